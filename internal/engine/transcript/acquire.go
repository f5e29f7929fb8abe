package transcript

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/anatolykoptev/go-kit/strutil"
	"github.com/anatolykoptev/go_transcript/internal/engine"
)

// Default timeouts.
const (
	DefaultFetchTimeout   = 10 * time.Second
	DefaultRelayTimeout   = 15 * time.Second
	DefaultAcquireTimeout = 30 * time.Second
	DefaultBaseURL        = "https://www.youtube.com"
)

// maxDetailLen caps the diagnostic string carried by a Failure.
const maxDetailLen = 500

// Config is everything the Acquirer needs. An empty RelayURL disables the
// delegated-fetch strategy.
type Config struct {
	BaseURL        string
	RelayURL       string
	Language       string
	DirectLangs    []string
	FetchTimeout   time.Duration
	RelayTimeout   time.Duration
	AcquireTimeout time.Duration
	HTTPClient     *http.Client
	Clients        []ClientIdentity
	Retry          RetryPolicy
	// Browser, when set, carries all direct egress instead of HTTPClient.
	Browser *engine.BrowserClient
	// Library overrides the caption library; nil uses YouTubeLibrary.
	Library CaptionLibrary
	// DisableLibrary skips the library strategy entirely.
	DisableLibrary bool
}

// Option customizes an Acquirer.
type Option func(*Acquirer)

// WithStrategies replaces the default strategy list.
func WithStrategies(s ...Strategy) Option {
	return func(a *Acquirer) { a.strategies = s }
}

// Acquirer runs the strategy chain for one video at a time. It holds no
// mutable state, so one Acquirer may serve concurrent calls.
type Acquirer struct {
	strategies []Strategy
	language   string
	timeout    time.Duration
}

// New builds an Acquirer with the default strategy order:
// library, html-scrape, internal-api, direct-url, transcript-panel, then
// delegated-fetch when a relay is configured.
func New(cfg Config, opts ...Option) *Acquirer {
	cfg = withDefaults(cfg)

	direct := NewDirectTransport(cfg.HTTPClient, cfg.BaseURL, cfg.FetchTimeout).UseBrowser(cfg.Browser)
	var strategies []Strategy
	if !cfg.DisableLibrary {
		lib := cfg.Library
		if lib == nil {
			lib = NewYouTubeLibrary(cfg.HTTPClient)
		}
		strategies = append(strategies, NewLibraryStrategy(lib, LibraryLanguages(cfg.Language), cfg.Retry).WithTimeout(cfg.FetchTimeout))
	}
	strategies = append(strategies,
		NewScrapeStrategy(direct),
		NewInnertubeStrategy(direct, cfg.Clients),
		NewDirectURLStrategy(direct, cfg.DirectLangs),
		NewPanelStrategy(direct),
	)
	if cfg.RelayURL != "" {
		relay := NewRelayTransport(cfg.HTTPClient, cfg.RelayURL, cfg.RelayTimeout)
		strategies = append(strategies, NewDelegatedStrategy(relay, cfg.Clients))
	}

	a := &Acquirer{
		strategies: strategies,
		language:   cfg.Language,
		timeout:    cfg.AcquireTimeout,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

func withDefaults(cfg Config) Config {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}
	if cfg.RelayTimeout <= 0 {
		cfg.RelayTimeout = DefaultRelayTimeout
	}
	if cfg.AcquireTimeout <= 0 {
		cfg.AcquireTimeout = DefaultAcquireTimeout
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = DefaultRetryPolicy
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	return cfg
}

// Strategies returns the strategy names in execution order.
func (a *Acquirer) Strategies() []string {
	names := make([]string, len(a.strategies))
	for i, s := range a.strategies {
		names[i] = s.Name()
	}
	return names
}

// Acquire tries each strategy in order until one yields a non-empty
// transcript. Every failure is returned as a classified Outcome; the overall
// deadline cancels any in-flight call and yields KindTimeout.
func (a *Acquirer) Acquire(ctx context.Context, videoID string) Outcome {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	out := a.run(ctx, videoID)
	engine.IncrAcquisition(string(out.Kind))
	if out.OK() {
		slog.Info("transcript acquired",
			slog.String("video_id", videoID),
			slog.String("strategy", out.Strategy),
			slog.Int("items", len(out.Items)))
	} else {
		slog.Warn("transcript acquisition failed",
			slog.String("video_id", videoID),
			slog.String("kind", string(out.Kind)),
			slog.String("detail", out.Detail))
	}
	return out
}

func (a *Acquirer) run(ctx context.Context, videoID string) Outcome {
	var errs []error
	for _, s := range a.strategies {
		if ctx.Err() != nil {
			return timeoutOutcome(ctx, errs)
		}
		name := s.Name()
		slog.Debug("trying strategy", slog.String("strategy", name), slog.String("video_id", videoID))
		engine.IncrStrategyAttempt(name)

		items, err := a.attempt(ctx, s, videoID)
		if len(items) > 0 {
			engine.IncrStrategySuccess(name)
			return Success(name, items)
		}
		if err == nil {
			continue
		}
		engine.IncrStrategyFailure(name)
		slog.Warn("strategy failed",
			slog.String("strategy", name),
			slog.String("video_id", videoID),
			slog.Any("error", err))
		errs = append(errs, err)
	}
	if ctx.Err() != nil {
		return timeoutOutcome(ctx, errs)
	}
	return failureOutcome(errs)
}

// attempt runs one strategy in its own goroutine so the overall deadline
// wins even when a strategy ignores its context. The strategy's in-flight
// calls share ctx and are cancelled with it.
func (a *Acquirer) attempt(ctx context.Context, s Strategy, videoID string) ([]Item, error) {
	type result struct {
		items []Item
		err   error
	}
	done := make(chan result, 1)
	go func() {
		var r result
		r.err = engine.TrackOperation(ctx, s.Name(), func(ctx context.Context) error {
			var err error
			r.items, err = a.resolve(ctx, s, safeAttempt(ctx, s, videoID))
			return err
		})
		done <- r
	}()

	select {
	case r := <-done:
		return r.items, r.err
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", s.Name(), ctx.Err())
	}
}

// resolve turns a strategy Result into normalized items. Tracks are
// resolved through the transport that discovered them.
func (a *Acquirer) resolve(ctx context.Context, s Strategy, res Result) ([]Item, error) {
	switch res.Kind {
	case ResultItems:
		return nonEmpty(NormalizeUnit(res.Items, res.Unit)), nil
	case ResultTracks:
		track, err := SelectTrack(UsableTracks(res.Tracks), a.language)
		if err != nil {
			return nil, newError(s.Name(), KindNotAvailable, "", err)
		}
		if res.Source == nil {
			return nil, fmt.Errorf("%s: tracks without a transport", s.Name())
		}
		xml, err := res.Source.TimedText(ctx, track.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.Name(), err)
		}
		items := ParseTimedText(xml)
		if len(items) == 0 {
			return nil, newError(s.Name(), KindNotAvailable, "selected track "+track.LanguageCode, ErrEmptyTranscript)
		}
		return nonEmpty(NormalizeUnit(itemsToRaw(items), UnitMillis)), nil
	case ResultError:
		if res.Err == nil {
			return nil, fmt.Errorf("%s: unspecified failure", s.Name())
		}
		return nil, res.Err
	}
	return nil, nil
}

// safeAttempt converts a strategy panic into an error result.
func safeAttempt(ctx context.Context, s Strategy, videoID string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("strategy panicked", slog.String("strategy", s.Name()), slog.Any("panic", r))
			res = ErrorResult(fmt.Errorf("%s: panic: %v", s.Name(), r))
		}
	}()
	return s.Attempt(ctx, videoID)
}

// nonEmpty returns nil unless at least one item carries text.
func nonEmpty(items []Item) []Item {
	for _, it := range items {
		if it.Text != "" {
			return items
		}
	}
	return nil
}

func timeoutOutcome(ctx context.Context, errs []error) Outcome {
	detail := "acquisition deadline exceeded"
	if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.DeadlineExceeded) {
		detail = cause.Error()
	}
	if len(errs) > 0 {
		detail += "; last error: " + errs[len(errs)-1].Error()
	}
	return Failure(KindTimeout, truncateDetail(detail))
}

// failureOutcome classifies the last error. An Unknown last error yields
// to the most recent earlier error with a specific kind; no errors at all
// means the video is treated as unavailable.
func failureOutcome(errs []error) Outcome {
	if len(errs) == 0 {
		return Failure(KindUnavailable, "no strategy produced a transcript")
	}
	last := errs[len(errs)-1]
	kind := Classify(last)
	if kind == KindUnknown {
		if specific := mostSpecific(errs); specific != last {
			kind = Classify(specific)
		}
	}
	return Failure(kind, truncateDetail(last.Error()))
}

// mostSpecific returns the latest error whose kind is not Unknown, or the
// last error when none is.
func mostSpecific(errs []error) error {
	for i := len(errs) - 1; i >= 0; i-- {
		if Classify(errs[i]) != KindUnknown {
			return errs[i]
		}
	}
	return errs[len(errs)-1]
}

func truncateDetail(s string) string {
	return strutil.TruncateWith(s, maxDetailLen, "...")
}

// FormatTimestamp renders an offset in ms as m:ss or h:mm:ss.
func FormatTimestamp(ms int64) string {
	return engine.FormatClock(ms)
}
