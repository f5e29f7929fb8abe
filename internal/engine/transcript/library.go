package transcript

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/kkdai/youtube/v2"
)

// CaptionLibrary is a third-party caption fetcher. Items carry explicit
// offsets in milliseconds.
type CaptionLibrary interface {
	Transcript(ctx context.Context, videoID, lang string) ([]RawItem, error)
}

// YouTubeLibrary adapts github.com/kkdai/youtube to CaptionLibrary.
type YouTubeLibrary struct {
	client *youtube.Client
}

// NewYouTubeLibrary wraps a kkdai client using httpClient for egress.
func NewYouTubeLibrary(httpClient *http.Client) *YouTubeLibrary {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &YouTubeLibrary{client: &youtube.Client{HTTPClient: httpClient}}
}

func (l *YouTubeLibrary) Transcript(ctx context.Context, videoID, lang string) ([]RawItem, error) {
	video, err := l.client.GetVideoContext(ctx, videoID)
	if err != nil {
		return nil, libraryError(err)
	}
	segs, err := l.client.GetTranscriptCtx(ctx, video, lang)
	if err != nil {
		return nil, libraryError(err)
	}
	raw := make([]RawItem, 0, len(segs))
	for _, s := range segs {
		raw = append(raw, RawItem{
			Text:      s.Text,
			Offset:    float64(s.StartMs),
			Duration:  float64(s.Duration),
			HasOffset: true,
		})
	}
	return raw, nil
}

// libraryError attaches a taxonomy code to the library's sentinel errors.
func libraryError(err error) error {
	switch {
	case errors.Is(err, youtube.ErrTranscriptDisabled):
		return newError(StrategyLibrary, KindDisabled, "", err)
	case errors.Is(err, youtube.ErrVideoPrivate), errors.Is(err, youtube.ErrLoginRequired):
		return newError(StrategyLibrary, KindPrivateOrRestricted, "", err)
	}
	return err
}

// LibraryStrategy asks a caption library for the transcript, trying a
// short language sequence and retrying transient failures with backoff.
type LibraryStrategy struct {
	lib     CaptionLibrary
	langs   []string
	policy  RetryPolicy
	timeout time.Duration
}

// LibraryLanguages: target language, library default, regional variant.
func LibraryLanguages(lang string) []string {
	if lang == "" {
		lang = DefaultLanguage
	}
	out := []string{lang, ""}
	if lang == DefaultLanguage {
		out = append(out, "en-US")
	}
	return out
}

func NewLibraryStrategy(lib CaptionLibrary, langs []string, policy RetryPolicy) *LibraryStrategy {
	if len(langs) == 0 {
		langs = LibraryLanguages(DefaultLanguage)
	}
	return &LibraryStrategy{lib: lib, langs: langs, policy: policy}
}

// WithTimeout bounds every library call by d. Zero leaves calls bounded
// only by the caller's context.
func (s *LibraryStrategy) WithTimeout(d time.Duration) *LibraryStrategy {
	s.timeout = d
	return s
}

func (s *LibraryStrategy) Name() string { return StrategyLibrary }

func (s *LibraryStrategy) transcript(ctx context.Context, videoID, lang string) ([]RawItem, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return s.lib.Transcript(ctx, videoID, lang)
}

func (s *LibraryStrategy) Attempt(ctx context.Context, videoID string) Result {
	if s.lib == nil {
		return NotApplicable()
	}
	var lastErr error
	for _, lang := range s.langs {
		items, err := Retry(ctx, s.policy, IsTerminal, func() ([]RawItem, error) {
			return s.transcript(ctx, videoID, lang)
		})
		if err == nil && len(items) > 0 {
			return ItemsResult(items, UnitMillis)
		}
		if err == nil {
			continue
		}
		lastErr = err
		if IsTerminal(err) || ctx.Err() != nil {
			break
		}
	}
	if lastErr == nil {
		return NotApplicable()
	}
	var te *Error
	if errors.As(lastErr, &te) {
		return ErrorResult(lastErr)
	}
	return ErrorResult(fmt.Errorf("%s: %w", StrategyLibrary, lastErr))
}
