package transcriptserver

import (
	"context"
	"log/slog"
	"sync"

	"github.com/anatolykoptev/go_transcript/internal/engine"
	"github.com/anatolykoptev/go_transcript/internal/engine/transcript"
)

// Acquirer is the part of *transcript.Acquirer the tools need.
type Acquirer interface {
	Acquire(ctx context.Context, videoID string) transcript.Outcome
}

// AcquirerFactory builds an Acquirer targeting one caption language.
type AcquirerFactory func(lang string) Acquirer

// Entry is a cached successful acquisition.
type Entry struct {
	VideoID  string            `json:"video_id"`
	Language string            `json:"language"`
	Strategy string            `json:"strategy"`
	Items    []transcript.Item `json:"items"`
	Metadata *Metadata         `json:"metadata,omitempty"`
}

// Text is the plain transcript.
func (e *Entry) Text() string {
	return transcript.Success(e.Strategy, e.Items).Text()
}

// FetchError is a failed acquisition with its user-facing message.
type FetchError struct {
	VideoID string
	Kind    transcript.ErrorKind
	Detail  string
}

func (e *FetchError) Error() string {
	return FailureMessage(e.Kind)
}

// Service acquires transcripts, attaches metadata and caches successes.
type Service struct {
	factory     AcquirerFactory
	meta        *MetadataClient
	defaultLang string

	mu        sync.Mutex
	acquirers map[string]Acquirer
}

// NewService wires the tools' backend. meta may be nil to skip metadata.
func NewService(factory AcquirerFactory, meta *MetadataClient, defaultLang string) *Service {
	return &Service{
		factory:     factory,
		meta:        meta,
		defaultLang: engine.NormLang(defaultLang),
		acquirers:   make(map[string]Acquirer),
	}
}

func (s *Service) acquirer(lang string) Acquirer {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.acquirers[lang]
	if !ok {
		a = s.factory(lang)
		s.acquirers[lang] = a
	}
	return a
}

// Fetch resolves rawURL to a video id and returns its transcript, from cache
// when available. Acquisition failures are returned as *FetchError.
func (s *Service) Fetch(ctx context.Context, rawURL, lang string) (*Entry, error) {
	engine.IncrTranscript()
	videoID, err := ParseVideoID(rawURL)
	if err != nil {
		return nil, err
	}
	if lang == "" {
		lang = s.defaultLang
	}

	cacheKey := engine.CacheKey("youtube_transcript", videoID, lang)
	if e, ok := engine.CacheLoadJSON[Entry](ctx, cacheKey); ok {
		return &e, nil
	}

	out := s.acquirer(lang).Acquire(ctx, videoID)
	if !out.OK() {
		return nil, &FetchError{VideoID: videoID, Kind: out.Kind, Detail: out.Detail}
	}

	e := Entry{VideoID: videoID, Language: lang, Strategy: out.Strategy, Items: out.Items}
	if s.meta != nil {
		md, err := s.meta.Fetch(ctx, videoID, out.Items)
		if err != nil {
			slog.Warn("metadata fetch failed", slog.String("video_id", videoID), slog.Any("error", err))
			md = &Metadata{Thumbnail: FallbackThumbnail(videoID)}
			if d := TranscriptDuration(out.Items); d > 0 {
				md.Duration = engine.FormatClock(d)
			}
		}
		e.Metadata = md
	}

	engine.CacheStoreJSON(ctx, cacheKey, e)
	return &e, nil
}
