package transcript

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryPolicy controls Retry.
type RetryPolicy struct {
	BaseDelay   time.Duration
	Factor      float64
	MaxAttempts int
}

// DefaultRetryPolicy: 1s, 2s between at most three attempts.
var DefaultRetryPolicy = RetryPolicy{
	BaseDelay:   time.Second,
	Factor:      2,
	MaxAttempts: 3,
}

// terminalMarkers are failure conditions retrying cannot change.
var terminalMarkers = []string{
	"disabled", "private", "restricted", "unavailable", "not available", "not found",
}

// IsTerminal reports whether err describes a condition no retry can fix.
func IsTerminal(err error) bool {
	if err == nil {
		return false
	}
	var te *Error
	if errors.As(err, &te) {
		switch te.Kind {
		case KindDisabled, KindNotAvailable, KindPrivateOrRestricted, KindUnavailable:
			return true
		}
	}
	msg := strings.ToLower(err.Error())
	for _, m := range terminalMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// Retry calls fn until it succeeds, p.MaxAttempts is reached, ctx ends, or
// isTerminal (when non-nil) reports the error as not worth retrying.
// Delays grow as BaseDelay * Factor^n without jitter.
func Retry[T any](ctx context.Context, p RetryPolicy, isTerminal func(error) bool, fn func() (T, error)) (T, error) {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.BaseDelay
	bo.Multiplier = p.Factor
	bo.RandomizationFactor = 0
	bo.MaxInterval = time.Minute

	attempt := 0
	op := func() (T, error) {
		attempt++
		v, err := fn()
		if err == nil {
			return v, nil
		}
		if isTerminal != nil && isTerminal(err) {
			return v, backoff.Permanent(err)
		}
		if attempt < p.MaxAttempts {
			slog.Debug("retrying", slog.Int("attempt", attempt), slog.Any("error", err))
		}
		return v, err
	}
	return backoff.Retry(ctx, op,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(uint(p.MaxAttempts)),
	)
}
