package transcript

import (
	"context"
	"strings"
)

// Caption acquisition: shared types.
// All values are created and discarded within a single Acquire call.

// CaptionTrack is one language variant of a video's subtitle data.
type CaptionTrack struct {
	LanguageCode string `json:"languageCode"`
	DisplayName  string `json:"name,omitempty"`
	BaseURL      string `json:"baseUrl"`
	Kind         string `json:"kind,omitempty"` // "asr" = auto-generated
}

// Item is one normalized transcript line. Offsets and durations are milliseconds.
type Item struct {
	Text       string `json:"text"`
	OffsetMs   int64  `json:"offset"`
	DurationMs int64  `json:"duration"`
}

// RawItem is a transcript line before unit inference and offset repair.
// HasOffset reports whether the source carried an explicit offset.
type RawItem struct {
	Text      string
	Offset    float64
	Duration  float64
	HasOffset bool
}

// Unit is the unit hint attached to raw items.
type Unit int

const (
	UnitAuto Unit = iota
	UnitSeconds
	UnitMillis
)

func (u Unit) String() string {
	switch u {
	case UnitSeconds:
		return "seconds"
	case UnitMillis:
		return "milliseconds"
	}
	return "auto"
}

// Outcome is the only value the core hands back to its caller.
// Kind is empty on success.
type Outcome struct {
	Items    []Item    `json:"items,omitempty"`
	Kind     ErrorKind `json:"kind,omitempty"`
	Detail   string    `json:"detail,omitempty"`
	Strategy string    `json:"strategy,omitempty"`
}

// Success builds a successful outcome.
func Success(strategy string, items []Item) Outcome {
	return Outcome{Items: items, Strategy: strategy}
}

// Failure builds a failed outcome.
func Failure(kind ErrorKind, detail string) Outcome {
	return Outcome{Kind: kind, Detail: detail}
}

// OK reports whether the outcome carries a transcript.
func (o Outcome) OK() bool {
	return o.Kind == "" && len(o.Items) > 0
}

// Text joins all item texts with single spaces.
func (o Outcome) Text() string {
	var sb strings.Builder
	for _, it := range o.Items {
		if it.Text == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(it.Text)
	}
	return sb.String()
}

// ResultKind tags a strategy Result.
type ResultKind int

const (
	ResultNotApplicable ResultKind = iota
	ResultItems
	ResultTracks
	ResultError
)

func (k ResultKind) String() string {
	switch k {
	case ResultItems:
		return "items"
	case ResultTracks:
		return "tracks"
	case ResultError:
		return "error"
	}
	return "not_applicable"
}

// Result is what a Strategy hands to the Acquirer.
//
// For ResultTracks, Source is the transport that must be used to retrieve
// the selected track's timed text, so relay-discovered tracks are fetched
// through the relay as well.
type Result struct {
	Kind   ResultKind
	Items  []RawItem
	Unit   Unit
	Tracks []CaptionTrack
	Source Transport
	Err    error
}

// ItemsResult wraps pre-parsed raw items.
func ItemsResult(items []RawItem, unit Unit) Result {
	return Result{Kind: ResultItems, Items: items, Unit: unit}
}

// TracksResult wraps discovered caption tracks.
func TracksResult(tracks []CaptionTrack, source Transport) Result {
	return Result{Kind: ResultTracks, Tracks: tracks, Source: source}
}

// ErrorResult wraps a strategy failure.
func ErrorResult(err error) Result {
	return Result{Kind: ResultError, Err: err}
}

// NotApplicable reports that a strategy had nothing to try.
func NotApplicable() Result {
	return Result{Kind: ResultNotApplicable}
}

// Strategy is one independent technique for obtaining a transcript.
// Attempt must never panic past its boundary; failures come back as ResultError.
type Strategy interface {
	Name() string
	Attempt(ctx context.Context, videoID string) Result
}
