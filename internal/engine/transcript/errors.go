package transcript

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/anatolykoptev/go_transcript/internal/engine"
)

// ErrorKind is the caller-facing failure taxonomy.
type ErrorKind string

const (
	KindDisabled            ErrorKind = "disabled"
	KindNotAvailable        ErrorKind = "not_available"
	KindPrivateOrRestricted ErrorKind = "private_or_restricted"
	KindUnavailable         ErrorKind = "unavailable"
	KindTimeout             ErrorKind = "timeout"
	KindNetworkError        ErrorKind = "network_error"
	KindUnknown             ErrorKind = "unknown"
)

var (
	ErrNoTrackAvailable = errors.New("no caption track available")
	ErrNoCaptions       = errors.New("transcript not available: no captions in response")
	ErrEmptyTranscript  = errors.New("empty transcript")
)

// Error is a strategy failure carrying an optional taxonomy code.
// Kind is left empty when the strategy cannot tell; Classify then falls back
// to inspecting the wrapped error.
type Error struct {
	Kind     ErrorKind
	Strategy string
	Msg      string
	Err      error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Strategy, e.Msg, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Strategy, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Strategy, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// newError builds a coded strategy error.
func newError(strategy string, kind ErrorKind, msg string, err error) *Error {
	return &Error{Kind: kind, Strategy: strategy, Msg: msg, Err: err}
}

// messageRules are matched in order against the lower-cased message.
// More specific kinds come first: "video unavailable" must not fall into
// not_available, and "fetch timed out" must not fall into network_error.
var messageRules = []struct {
	kind    ErrorKind
	needles []string
}{
	{KindDisabled, []string{
		"transcript disabled", "transcript is disabled", "disabled for videos",
		"subtitles are disabled", "captions disabled", "captions are disabled",
	}},
	{KindPrivateOrRestricted, []string{
		"private", "restricted", "login required", "login_required",
		"sign in to confirm", "age-restricted", "members-only",
	}},
	{KindUnavailable, []string{
		"video unavailable", "video not found", "video is unavailable",
		"has been removed", "does not exist", "no longer available",
	}},
	{KindNotAvailable, []string{
		"could not retrieve", "transcript not available", "no captions",
		"no caption track", "no transcript", "captions unavailable",
	}},
	{KindTimeout, []string{
		"timeout", "timed out", "took too long", "deadline exceeded",
	}},
	{KindNetworkError, []string{
		"network", "connection", "failed to fetch", "fetch failed", "no such host", "dial tcp",
		"eof", "tls handshake", "too many requests",
	}},
}

// ClassifyMessage maps a raw failure message onto the taxonomy by
// case-insensitive substring match. Unmatched messages are KindUnknown.
func ClassifyMessage(msg string) ErrorKind {
	lower := strings.ToLower(msg)
	for _, rule := range messageRules {
		for _, n := range rule.needles {
			if strings.Contains(lower, n) {
				return rule.kind
			}
		}
	}
	return KindUnknown
}

// Classify prefers an explicit code carried by *Error, then HTTP status,
// context and network error types, and only then substring matching on the message.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	var te *Error
	if errors.As(err, &te) {
		if te.Kind != "" {
			return te.Kind
		}
		// The strategy name is not evidence of anything; judge the message
		// and the cause.
		if k := ClassifyMessage(te.Msg); k != KindUnknown || te.Err == nil {
			return k
		}
		return Classify(te.Err)
	}
	var se *StatusError
	if errors.As(err, &se) && (se.StatusCode == http.StatusTooManyRequests || engine.IsRetryableStatus(se.StatusCode)) {
		return KindNetworkError
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return KindNetworkError
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return KindNetworkError
	}
	return ClassifyMessage(err.Error())
}
