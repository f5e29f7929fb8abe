// Package relay is the HTTP relay that performs upstream requests on behalf
// of a transcript client whose own egress is blocked.
//
// Endpoints (JSON in, JSON out):
//
//	GET  /health
//	POST /fetch-page       {videoId}                                    -> {html, videoId, length}
//	POST /fetch-transcript {url}                                        -> {xml, length}
//	POST /fetch-player     {videoId, apiKey, clientName, clientVersion} -> raw player JSON
//	POST /get-transcript   {videoId}                                    -> {transcript, unit}
//
// Errors are {"error": "..."} with a conventional status code.
package relay

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/anatolykoptev/go_transcript/internal/engine"
	"github.com/anatolykoptev/go_transcript/internal/engine/transcript"
)

// Config configures the relay.
type Config struct {
	BaseURL       string // upstream origin
	AllowedOrigin string // CORS origin, "*" for any
	RPS           float64
	Burst         int
	FetchTimeout  time.Duration
	HTTPClient    *http.Client
	// Browser, when set, carries upstream requests instead of HTTPClient.
	Browser *engine.BrowserClient
	// Library backs /get-transcript; nil uses the YouTube library.
	Library transcript.CaptionLibrary
	Retry   transcript.RetryPolicy
}

// Server is the relay HTTP server.
type Server struct {
	echo         *echo.Echo
	direct       *transcript.DirectTransport
	library      *transcript.LibraryStrategy
	limiter      *rate.Limiter
	allowedHosts map[string]bool
}

// defaultHosts may be fetched through /fetch-transcript.
var defaultHosts = []string{
	"youtube.com", "www.youtube.com", "m.youtube.com",
	"youtube-nocookie.com", "www.youtube-nocookie.com", "video.google.com",
}

// New builds the relay with its routes and middleware.
func New(cfg Config) *Server {
	if cfg.BaseURL == "" {
		cfg.BaseURL = transcript.DefaultBaseURL
	}
	if cfg.AllowedOrigin == "" {
		cfg.AllowedOrigin = "*"
	}
	if cfg.RPS <= 0 {
		cfg.RPS = 5
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 10
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = transcript.DefaultFetchTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = transcript.DefaultRetryPolicy
	}
	lib := cfg.Library
	if lib == nil {
		lib = transcript.NewYouTubeLibrary(cfg.HTTPClient)
	}

	s := &Server{
		direct:       transcript.NewDirectTransport(cfg.HTTPClient, cfg.BaseURL, cfg.FetchTimeout).UseBrowser(cfg.Browser),
		library:      transcript.NewLibraryStrategy(lib, nil, cfg.Retry).WithTimeout(cfg.FetchTimeout),
		limiter:      rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst),
		allowedHosts: make(map[string]bool),
	}
	for _, h := range defaultHosts {
		s.allowedHosts[h] = true
	}
	if u, err := url.Parse(cfg.BaseURL); err == nil && u.Host != "" {
		s.allowedHosts[strings.ToLower(u.Host)] = true
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("64K"))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{cfg.AllowedOrigin},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType},
	}))

	e.GET("/health", s.health)
	e.POST("/fetch-page", s.fetchPage)
	e.POST("/fetch-transcript", s.fetchTranscript)
	e.POST("/fetch-player", s.fetchPlayer)
	e.POST("/get-transcript", s.getTranscript)

	s.echo = e
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.echo }

// Start serves on addr until Shutdown.
func (s *Server) Start(addr string) error {
	err := s.echo.Start(addr)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) fetchPage(c echo.Context) error {
	var req transcript.RelayPageRequest
	if err := bindVideoID(c, &req); err != nil {
		return err
	}
	if err := s.wait(c); err != nil {
		return err
	}
	html, err := s.direct.WatchPage(c.Request().Context(), req.VideoID)
	s.logUpstream("fetch-page", req.VideoID, len(html), err)
	if err != nil {
		return upstreamError(err)
	}
	return c.JSON(http.StatusOK, transcript.RelayPageResponse{HTML: html, VideoID: req.VideoID, Length: len(html)})
}

func (s *Server) fetchTranscript(c echo.Context) error {
	var req transcript.RelayTranscriptRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON body")
	}
	if req.URL == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "url is required")
	}
	if !s.hostAllowed(req.URL) {
		return echo.NewHTTPError(http.StatusForbidden, "url host not allowed")
	}
	if err := s.wait(c); err != nil {
		return err
	}
	xml, err := s.direct.TimedText(c.Request().Context(), req.URL)
	s.logUpstream("fetch-transcript", req.URL, len(xml), err)
	if err != nil {
		return upstreamError(err)
	}
	return c.JSON(http.StatusOK, transcript.RelayTranscriptResponse{XML: xml, Length: len(xml)})
}

func (s *Server) fetchPlayer(c echo.Context) error {
	var req transcript.RelayPlayerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON body")
	}
	if strings.TrimSpace(req.VideoID) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "videoId is required")
	}
	client, ok := transcript.LookupClient(req.ClientName, req.ClientVersion)
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown clientName")
	}
	if err := s.wait(c); err != nil {
		return err
	}
	data, err := s.direct.Player(c.Request().Context(), req.VideoID, req.APIKey, client)
	s.logUpstream("fetch-player", req.VideoID, len(data), err)
	if err != nil {
		return upstreamError(err)
	}
	return c.JSONBlob(http.StatusOK, data)
}

func (s *Server) getTranscript(c echo.Context) error {
	var req transcript.RelayPageRequest
	if err := bindVideoID(c, &req); err != nil {
		return err
	}
	if err := s.wait(c); err != nil {
		return err
	}
	res := s.library.Attempt(c.Request().Context(), req.VideoID)
	switch res.Kind {
	case transcript.ResultItems:
		items := transcript.NormalizeUnit(res.Items, res.Unit)
		s.logUpstream("get-transcript", req.VideoID, len(items), nil)
		out := transcript.RelayGetTranscriptResponse{
			Transcript: make([]transcript.RelayItem, len(items)),
			Unit:       transcript.RelayUnitMillis,
		}
		for i, it := range items {
			offset := float64(it.OffsetMs)
			out.Transcript[i] = transcript.RelayItem{Text: it.Text, Offset: &offset, Duration: float64(it.DurationMs)}
		}
		return c.JSON(http.StatusOK, out)
	case transcript.ResultError:
		s.logUpstream("get-transcript", req.VideoID, 0, res.Err)
		return echo.NewHTTPError(statusForKind(transcript.Classify(res.Err)), res.Err.Error())
	}
	return echo.NewHTTPError(http.StatusNotFound, "transcript not available")
}

func (s *Server) wait(c echo.Context) error {
	if err := s.limiter.Wait(c.Request().Context()); err != nil {
		return echo.NewHTTPError(http.StatusTooManyRequests, "relay busy")
	}
	return nil
}

func (s *Server) hostAllowed(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") {
		return false
	}
	return s.allowedHosts[strings.ToLower(u.Host)]
}

func (s *Server) logUpstream(op, target string, size int, err error) {
	engine.IncrRelay(err != nil)
	if err != nil {
		slog.Warn("relay upstream failed", slog.String("op", op), slog.String("target", target), slog.Any("error", err))
		return
	}
	slog.Info("relay upstream", slog.String("op", op), slog.String("target", target), slog.Int("bytes", size))
}

func bindVideoID(c echo.Context, req *transcript.RelayPageRequest) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON body")
	}
	req.VideoID = strings.TrimSpace(req.VideoID)
	if req.VideoID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "videoId is required")
	}
	return nil
}

// upstreamError maps an upstream failure onto the relay's response status.
func upstreamError(err error) error {
	var se *transcript.StatusError
	if errors.As(err, &se) {
		return echo.NewHTTPError(se.StatusCode, err.Error())
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return echo.NewHTTPError(http.StatusGatewayTimeout, err.Error())
	}
	return echo.NewHTTPError(http.StatusBadGateway, err.Error())
}

func statusForKind(k transcript.ErrorKind) int {
	switch k {
	case transcript.KindDisabled, transcript.KindNotAvailable, transcript.KindUnavailable:
		return http.StatusNotFound
	case transcript.KindPrivateOrRestricted:
		return http.StatusForbidden
	case transcript.KindTimeout:
		return http.StatusGatewayTimeout
	}
	return http.StatusBadGateway
}

// errorHandler renders every error as {"error": message}.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	msg := err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		} else {
			msg = http.StatusText(code)
		}
	}
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, transcript.RelayError{Error: msg})
}
