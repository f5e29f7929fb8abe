package transcript

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Strategy names, in default execution order.
const (
	StrategyLibrary   = "library"
	StrategyScrape    = "html-scrape"
	StrategyInnertube = "internal-api"
	StrategyDirectURL = "direct-url"
	StrategyPanel     = "transcript-panel"
	StrategyDelegated = "delegated-fetch"
)

// ScrapeStrategy downloads the watch page and extracts caption tracks from
// the embedded structured data.
type ScrapeStrategy struct {
	transport Transport
	name      string
}

func NewScrapeStrategy(t Transport) *ScrapeStrategy {
	return &ScrapeStrategy{transport: t, name: StrategyScrape}
}

func (s *ScrapeStrategy) Name() string { return s.name }

func (s *ScrapeStrategy) Attempt(ctx context.Context, videoID string) Result {
	page, err := s.transport.WatchPage(ctx, videoID)
	if err != nil {
		return ErrorResult(fmt.Errorf("%s: %w", s.name, err))
	}
	return s.fromPage(page)
}

// fromPage extracts tracks from an already downloaded watch page.
func (s *ScrapeStrategy) fromPage(page string) Result {
	if tracks, ok := ExtractCaptionTracks(page); ok {
		return TracksResult(tracks, s.transport)
	}
	pr, ok := ExtractPlayerResponse(page)
	if !ok {
		return ErrorResult(newError(s.name, "", "no player response in page", nil))
	}
	return ErrorResult(playerError(s.name, pr))
}

// playerError codes a player response that carried no usable tracks.
func playerError(strategy string, pr PlayerResponse) error {
	switch strings.ToUpper(pr.Status) {
	case "LOGIN_REQUIRED", "AGE_CHECK_REQUIRED", "CONTENT_CHECK_REQUIRED":
		return newError(strategy, KindPrivateOrRestricted, pr.Status, reasonErr(pr.Reason))
	case "ERROR":
		return newError(strategy, KindUnavailable, pr.Status, reasonErr(pr.Reason))
	case "UNPLAYABLE":
		kind := ClassifyMessage(pr.Reason)
		if kind == KindUnknown {
			kind = KindUnavailable
		}
		return newError(strategy, kind, pr.Status, reasonErr(pr.Reason))
	}
	if !pr.HasCaptions {
		return newError(strategy, KindDisabled, "transcript disabled: no captions object", nil)
	}
	return newError(strategy, KindNotAvailable, "", ErrNoCaptions)
}

func reasonErr(reason string) error {
	if reason == "" {
		return nil
	}
	return errors.New(reason)
}

// InnertubeStrategy calls the internal player API impersonating a sequence
// of official clients until one returns caption tracks.
type InnertubeStrategy struct {
	transport Transport
	clients   []ClientIdentity
	name      string
}

func NewInnertubeStrategy(t Transport, clients []ClientIdentity) *InnertubeStrategy {
	if len(clients) == 0 {
		clients = DefaultClients
	}
	return &InnertubeStrategy{transport: t, clients: clients, name: StrategyInnertube}
}

func (s *InnertubeStrategy) Name() string { return s.name }

func (s *InnertubeStrategy) Attempt(ctx context.Context, videoID string) Result {
	// The page only contributes an API key and web client version; the
	// player endpoint works without both.
	var cfg InnertubeConfig
	if page, err := s.transport.WatchPage(ctx, videoID); err == nil {
		cfg = ExtractInnertubeConfig(page)
	}
	return s.withConfig(ctx, videoID, cfg)
}

func (s *InnertubeStrategy) withConfig(ctx context.Context, videoID string, cfg InnertubeConfig) Result {
	var lastErr error
	for _, client := range s.clients {
		if ctx.Err() != nil {
			break
		}
		if client.Name == ClientWeb.Name && cfg.ClientVersion != "" {
			client.Version = cfg.ClientVersion
		}
		data, err := s.transport.Player(ctx, videoID, cfg.APIKey, client)
		if err != nil {
			lastErr = fmt.Errorf("%s %s: %w", s.name, client.Name, err)
			continue
		}
		pr, err := ParsePlayerResponse(data)
		if err != nil {
			lastErr = fmt.Errorf("%s %s: decode player: %w", s.name, client.Name, err)
			continue
		}
		if len(pr.Tracks) > 0 {
			return TracksResult(pr.Tracks, s.transport)
		}
		lastErr = playerError(s.name, pr)
	}
	if lastErr == nil {
		return NotApplicable()
	}
	return ErrorResult(lastErr)
}

// DirectURLStrategy requests guessed timed-text URLs without discovery.
type DirectURLStrategy struct {
	transport *DirectTransport
	langs     []string
}

// DefaultDirectLanguages are the language codes guessed by DirectURLStrategy.
var DefaultDirectLanguages = []string{"en", "en-US", "en-GB", "a.en"}

func NewDirectURLStrategy(t *DirectTransport, langs []string) *DirectURLStrategy {
	if len(langs) == 0 {
		langs = DefaultDirectLanguages
	}
	return &DirectURLStrategy{transport: t, langs: langs}
}

func (s *DirectURLStrategy) Name() string { return StrategyDirectURL }

func (s *DirectURLStrategy) Attempt(ctx context.Context, videoID string) Result {
	var lastErr error
	for _, lang := range s.langs {
		if ctx.Err() != nil {
			break
		}
		body, err := s.transport.TimedText(ctx, s.transport.TimedTextURL(videoID, lang))
		if err != nil {
			lastErr = fmt.Errorf("%s %s: %w", StrategyDirectURL, lang, err)
			continue
		}
		if !LooksLikeTimedText(body) {
			continue
		}
		if items := ParseTimedText(body); len(items) > 0 {
			return ItemsResult(itemsToRaw(items), UnitMillis)
		}
	}
	if lastErr == nil {
		return NotApplicable()
	}
	return ErrorResult(lastErr)
}

// DelegatedStrategy repeats discovery through the relay: page scrape, then
// the internal API, then the relay-side library shortcut.
type DelegatedStrategy struct {
	relay     *RelayTransport
	scrape    *ScrapeStrategy
	innertube *InnertubeStrategy
}

func NewDelegatedStrategy(relay *RelayTransport, clients []ClientIdentity) *DelegatedStrategy {
	scrape := NewScrapeStrategy(relay)
	scrape.name = StrategyDelegated
	it := NewInnertubeStrategy(relay, clients)
	it.name = StrategyDelegated
	return &DelegatedStrategy{relay: relay, scrape: scrape, innertube: it}
}

func (s *DelegatedStrategy) Name() string { return StrategyDelegated }

func (s *DelegatedStrategy) Attempt(ctx context.Context, videoID string) Result {
	if s.relay == nil {
		return NotApplicable()
	}
	var errs []error
	// One page download serves both the scrape and the API key lookup.
	var cfg InnertubeConfig
	page, err := s.relay.WatchPage(ctx, videoID)
	if err != nil {
		errs = append(errs, fmt.Errorf("%s: %w", StrategyDelegated, err))
	} else {
		res := s.scrape.fromPage(page)
		if res.Kind == ResultTracks {
			return res
		}
		if res.Kind == ResultError {
			errs = append(errs, res.Err)
		}
		cfg = ExtractInnertubeConfig(page)
	}
	if ctx.Err() != nil {
		return ErrorResult(ctx.Err())
	}

	res := s.innertube.withConfig(ctx, videoID, cfg)
	switch res.Kind {
	case ResultTracks, ResultItems:
		return res
	case ResultError:
		errs = append(errs, res.Err)
	}
	if ctx.Err() != nil {
		return ErrorResult(ctx.Err())
	}

	raw, unit, err := s.relay.Transcript(ctx, videoID)
	if err == nil && len(raw) > 0 {
		return ItemsResult(raw, unit)
	}
	if err != nil {
		errs = append(errs, fmt.Errorf("%s: %w", StrategyDelegated, err))
	}
	if len(errs) == 0 {
		return NotApplicable()
	}
	return ErrorResult(mostSpecific(errs))
}
