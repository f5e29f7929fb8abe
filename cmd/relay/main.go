// relay: upstream fetch relay for go_transcript.
//
// Runs next to (or far from) the transcript server and performs watch page,
// player and timed-text requests on its behalf when the server's own egress
// is blocked. Point the server at it with RELAY_URL.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anatolykoptev/go-kit/env"
	"github.com/joho/godotenv"

	"github.com/anatolykoptev/go_transcript/internal/engine"
	"github.com/anatolykoptev/go_transcript/internal/relay"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env", slog.Any("error", err))
	}

	port := env.Str("PORT", "3000")
	var browser *engine.BrowserClient
	if env.Str("STEALTH_ENABLED", "") == "true" {
		bc, err := engine.NewBrowserClient(15, env.Str("WEBSHARE_API_KEY", ""))
		if err != nil {
			slog.Error("stealth client init failed", slog.Any("error", err))
		} else {
			browser = bc
		}
	}

	s := relay.New(relay.Config{
		BaseURL:       env.Str("YOUTUBE_BASE_URL", "https://www.youtube.com"),
		AllowedOrigin: env.Str("ALLOWED_ORIGIN", "*"),
		RPS:           env.Float("RELAY_RPS", 5),
		Burst:         env.Int("RELAY_BURST", 10),
		FetchTimeout:  env.Duration("FETCH_TIMEOUT", 10*time.Second),
		Browser:       browser,
		HTTPClient: &http.Client{
			Timeout: 20 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     60 * time.Second,
			},
		},
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("relay listening", slog.String("port", port))
		if err := s.Start(":" + port); err != nil {
			slog.Error("relay failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		slog.Error("relay shutdown", slog.Any("error", err))
	}
}
