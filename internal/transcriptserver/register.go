package transcriptserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_transcript/internal/engine"
	"github.com/anatolykoptev/go_transcript/internal/engine/transcript"
	"github.com/anatolykoptev/go_transcript/internal/toolutil"
)

const (
	defaultMaxChars = 20000
	maxMaxChars     = 200000
	batchMaxChars   = 5000
	batchMaxVideos  = 10
	batchWorkers    = 3
)

type TranscriptInput struct {
	URL          string `json:"url" jsonschema:"YouTube video URL (watch, youtu.be, shorts, embed) or 11-character video id"`
	Language     string `json:"language,omitempty" jsonschema:"Preferred caption language code (default: en)"`
	IncludeItems bool   `json:"include_items,omitempty" jsonschema:"Also return timed segments with m:ss timestamps"`
	MaxChars     int    `json:"max_chars,omitempty" jsonschema:"Max characters of transcript text (default 20000, max 200000)"`
}

type TimedItem struct {
	Timestamp  string `json:"timestamp"`
	Text       string `json:"text"`
	OffsetMs   int64  `json:"offset_ms"`
	DurationMs int64  `json:"duration_ms"`
}

type TranscriptOutput struct {
	VideoID   string      `json:"video_id"`
	Language  string      `json:"language"`
	Strategy  string      `json:"strategy"`
	Metadata  *Metadata   `json:"metadata,omitempty"`
	Segments  int         `json:"segments"`
	Text      string      `json:"text"`
	Truncated bool        `json:"truncated,omitempty"`
	Items     []TimedItem `json:"items,omitempty"`
}

type BatchInput struct {
	Videos   []string `json:"videos" jsonschema:"YouTube URLs or video ids (max 10)"`
	Language string   `json:"language,omitempty" jsonschema:"Preferred caption language code (default: en)"`
	MaxChars int      `json:"max_chars,omitempty" jsonschema:"Max characters of text per video (default 5000)"`
}

type BatchEntry struct {
	Input     string               `json:"input"`
	VideoID   string               `json:"video_id,omitempty"`
	Title     string               `json:"title,omitempty"`
	Strategy  string               `json:"strategy,omitempty"`
	Text      string               `json:"text,omitempty"`
	Truncated bool                 `json:"truncated,omitempty"`
	ErrorKind transcript.ErrorKind `json:"error_kind,omitempty"`
	Message   string               `json:"message,omitempty"`
}

type BatchOutput struct {
	Count     int          `json:"count"`
	Succeeded int          `json:"succeeded"`
	Results   []BatchEntry `json:"results"`
}

// RegisterTools registers youtube_transcript and youtube_transcript_batch.
func RegisterTools(server *mcp.Server, svc *Service) {
	registerTranscript(server, svc)
	registerTranscriptBatch(server, svc)
}

func registerTranscript(server *mcp.Server, svc *Service) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "youtube_transcript",
		Description: "Fetch the transcript (captions) of a YouTube video. Tries several retrieval strategies in order and returns plain text plus video metadata (title, channel, thumbnail, duration). Optionally returns timed segments. Fails with a human-readable reason when captions are disabled, the video is private, or it is unavailable.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input TranscriptInput) (*mcp.CallToolResult, TranscriptOutput, error) {
		if input.URL == "" {
			return nil, TranscriptOutput{}, fmt.Errorf("url is required")
		}
		e, err := svc.Fetch(ctx, input.URL, input.Language)
		if err != nil {
			slog.Warn("youtube_transcript error", slog.String("url", input.URL), slog.Any("error", err))
			return nil, TranscriptOutput{}, err
		}
		return nil, renderTranscript(e, input), nil
	})
}

func registerTranscriptBatch(server *mcp.Server, svc *Service) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "youtube_transcript_batch",
		Description: "Fetch transcripts for up to 10 YouTube videos concurrently. Each result carries either the (truncated) transcript text or the reason it could not be fetched.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input BatchInput) (*mcp.CallToolResult, BatchOutput, error) {
		if len(input.Videos) == 0 {
			return nil, BatchOutput{}, fmt.Errorf("videos is required")
		}
		if len(input.Videos) > batchMaxVideos {
			return nil, BatchOutput{}, fmt.Errorf("at most %d videos per call", batchMaxVideos)
		}
		return nil, runBatch(ctx, svc, input), nil
	})
}

func runBatch(ctx context.Context, svc *Service, input BatchInput) BatchOutput {
	maxChars := toolutil.ClampLimit(input.MaxChars, batchMaxChars, maxMaxChars)
	results := toolutil.ParallelMap(ctx, input.Videos, batchWorkers, func(ctx context.Context, raw string) BatchEntry {
		entry := BatchEntry{Input: raw}
		e, err := svc.Fetch(ctx, raw, input.Language)
		if err != nil {
			entry.ErrorKind, entry.Message = describeError(err)
			var fe *FetchError
			if errors.As(err, &fe) {
				entry.VideoID = fe.VideoID
			}
			return entry
		}
		entry.VideoID = e.VideoID
		entry.Strategy = e.Strategy
		if e.Metadata != nil {
			entry.Title = e.Metadata.Title
		}
		entry.Text, entry.Truncated = truncateText(e.Text(), maxChars)
		return entry
	})

	out := BatchOutput{Count: len(results), Results: results}
	for i := range results {
		if results[i].VideoID == "" && results[i].Message == "" {
			// Never started: the request context ended first.
			results[i] = BatchEntry{Input: input.Videos[i], ErrorKind: transcript.KindTimeout, Message: FailureMessage(transcript.KindTimeout)}
		}
		if results[i].ErrorKind == "" {
			out.Succeeded++
		}
	}
	return out
}

func renderTranscript(e *Entry, input TranscriptInput) TranscriptOutput {
	maxChars := toolutil.ClampLimit(input.MaxChars, defaultMaxChars, maxMaxChars)
	out := TranscriptOutput{
		VideoID:  e.VideoID,
		Language: e.Language,
		Strategy: e.Strategy,
		Metadata: e.Metadata,
		Segments: len(e.Items),
	}
	out.Text, out.Truncated = truncateText(e.Text(), maxChars)
	if input.IncludeItems {
		out.Items = make([]TimedItem, len(e.Items))
		for i, it := range e.Items {
			out.Items[i] = TimedItem{
				Timestamp:  transcript.FormatTimestamp(it.OffsetMs),
				Text:       engine.CleanHTML(it.Text),
				OffsetMs:   it.OffsetMs,
				DurationMs: it.DurationMs,
			}
		}
	}
	return out
}

// describeError maps a fetch error to its kind and user-facing message.
func describeError(err error) (transcript.ErrorKind, string) {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind, fe.Error()
	}
	return transcript.KindUnknown, err.Error()
}

func truncateText(s string, maxChars int) (string, bool) {
	s = engine.CleanHTML(s)
	if utf8.RuneCountInString(s) <= maxChars {
		return s, false
	}
	return engine.TruncateAtWord(s, maxChars), true
}
