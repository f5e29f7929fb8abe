// go_transcript: YouTube transcript MCP server.
//
// Exposes two MCP tools: youtube_transcript, youtube_transcript_batch.
// Each request runs an ordered chain of retrieval strategies and returns
// the first non-empty transcript or a classified, human-readable failure.
// Set RELAY_URL to add the delegated-fetch strategy through cmd/relay.
package main

import (
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/anatolykoptev/go-kit/env"
	"github.com/anatolykoptev/go-mcpserver"
	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_transcript/internal/engine"
	"github.com/anatolykoptev/go_transcript/internal/engine/transcript"
	"github.com/anatolykoptev/go_transcript/internal/transcriptserver"
)

var version = "dev"

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env", slog.Any("error", err))
	}
	mcpPort := env.Str("MCP_PORT", "8893")

	initEngine()

	slog.Info("starting go_transcript",
		slog.String("port", mcpPort),
		slog.Bool("relay", engine.Cfg.RelayURL != ""),
	)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "go_transcript",
		Version: version,
	}, nil)

	svc := transcriptserver.NewService(newAcquirer,
		transcriptserver.NewMetadataClient(engine.Cfg.HTTPClient, engine.Cfg.BaseURL, engine.Cfg.FetchTimeout),
		engine.Cfg.Language)
	transcriptserver.RegisterTools(server, svc)
	slog.Info("tools registered", slog.Int("count", 2))

	if err := mcpserver.Run(server, mcpserver.Config{
		Name:         "go_transcript",
		Version:      version,
		Port:         mcpPort,
		WriteTimeout: 120 * time.Second,
		Metrics:      engine.FormatMetrics,
	}); err != nil {
		slog.Error("server failed", slog.Any("error", err))
	}
}

// newAcquirer maps the engine configuration onto the core for one language.
func newAcquirer(lang string) transcriptserver.Acquirer {
	c := engine.Cfg
	return transcript.New(transcript.Config{
		BaseURL:        c.BaseURL,
		RelayURL:       c.RelayURL,
		Language:       lang,
		DirectLangs:    c.DirectLangs,
		FetchTimeout:   c.FetchTimeout,
		RelayTimeout:   c.RelayTimeout,
		AcquireTimeout: c.AcquireTimeout,
		HTTPClient:     c.HTTPClient,
		Browser:        c.BrowserClient,
		DisableLibrary: !c.LibraryEnabled,
	})
}

func initEngine() {
	c := engine.Config{
		BaseURL:              env.Str("YOUTUBE_BASE_URL", transcript.DefaultBaseURL),
		RelayURL:             env.Str("RELAY_URL", ""),
		Language:             env.Str("TRANSCRIPT_LANG", transcript.DefaultLanguage),
		DirectLangs:          env.List("DIRECT_LANGS", "en,en-US,en-GB,a.en"),
		FetchTimeout:         env.Duration("FETCH_TIMEOUT", transcript.DefaultFetchTimeout),
		RelayTimeout:         env.Duration("RELAY_TIMEOUT", transcript.DefaultRelayTimeout),
		AcquireTimeout:       env.Duration("ACQUIRE_TIMEOUT", transcript.DefaultAcquireTimeout),
		LibraryEnabled:       envBool("LIBRARY_ENABLED", true),
		CacheMaxEntries:      env.Int("CACHE_MAX_ENTRIES", 1000),
		CacheCleanupInterval: env.Duration("CACHE_CLEANUP_INTERVAL", 300*time.Second),
		HTTPClient: &http.Client{
			Timeout: 20 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     60 * time.Second,
			},
		},
	}

	if envBool("STEALTH_ENABLED", false) {
		bc, err := engine.NewBrowserClient(15, env.Str("WEBSHARE_API_KEY", ""))
		if err != nil {
			slog.Error("stealth client init failed", slog.Any("error", err))
		} else {
			c.BrowserClient = bc
			slog.Info("stealth browser client initialized")
		}
	}

	engine.Init(c)

	cacheTTL := env.Duration("CACHE_TTL", 6*time.Hour)
	engine.InitCache(env.Str("REDIS_URL", ""), cacheTTL, c.CacheMaxEntries, c.CacheCleanupInterval)
}

func envBool(key string, def bool) bool {
	v, err := strconv.ParseBool(env.Str(key, strconv.FormatBool(def)))
	if err != nil {
		return def
	}
	return v
}
