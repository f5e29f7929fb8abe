package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics tracks operational counters across the engine.
var metrics struct {
	Acquisitions       atomic.Int64
	AcquireSuccesses   atomic.Int64
	AcquireFailures    atomic.Int64
	FetchRequests      atomic.Int64
	FetchErrors        atomic.Int64
	RelayRequests      atomic.Int64
	RelayErrors        atomic.Int64
	MetadataRequests   atomic.Int64
	TranscriptRequests atomic.Int64
}

type strategyCounters struct {
	attempts  atomic.Int64
	successes atomic.Int64
	failures  atomic.Int64
}

// strategies: strategy name → *strategyCounters.
var strategies sync.Map

// failureKinds: error kind → *atomic.Int64.
var failureKinds sync.Map

func strategyStats(name string) *strategyCounters {
	v, _ := strategies.LoadOrStore(name, &strategyCounters{})
	return v.(*strategyCounters)
}

func IncrStrategyAttempt(name string) { strategyStats(name).attempts.Add(1) }
func IncrStrategySuccess(name string) { strategyStats(name).successes.Add(1) }
func IncrStrategyFailure(name string) { strategyStats(name).failures.Add(1) }

// IncrAcquisition records the end of one acquisition. kind is empty on success.
func IncrAcquisition(kind string) {
	metrics.Acquisitions.Add(1)
	if kind == "" {
		metrics.AcquireSuccesses.Add(1)
		return
	}
	metrics.AcquireFailures.Add(1)
	v, _ := failureKinds.LoadOrStore(kind, &atomic.Int64{})
	v.(*atomic.Int64).Add(1)
}

// IncrFetch counts an outbound call; failed marks it as errored.
func IncrFetch(failed bool) {
	metrics.FetchRequests.Add(1)
	if failed {
		metrics.FetchErrors.Add(1)
	}
}

// IncrRelay counts a relay-side upstream call.
func IncrRelay(failed bool) {
	metrics.RelayRequests.Add(1)
	if failed {
		metrics.RelayErrors.Add(1)
	}
}

func IncrMetadata()   { metrics.MetadataRequests.Add(1) }
func IncrTranscript() { metrics.TranscriptRequests.Add(1) }

// GetMetrics returns a snapshot of all metrics including cache stats.
func GetMetrics() map[string]int64 {
	hits, misses := CacheStats()
	m := map[string]int64{
		"acquisitions":        metrics.Acquisitions.Load(),
		"acquire_successes":   metrics.AcquireSuccesses.Load(),
		"acquire_failures":    metrics.AcquireFailures.Load(),
		"fetch_requests":      metrics.FetchRequests.Load(),
		"fetch_errors":        metrics.FetchErrors.Load(),
		"relay_requests":      metrics.RelayRequests.Load(),
		"relay_errors":        metrics.RelayErrors.Load(),
		"metadata_requests":   metrics.MetadataRequests.Load(),
		"transcript_requests": metrics.TranscriptRequests.Load(),
		"cache_hits":          hits,
		"cache_misses":        misses,
	}
	strategies.Range(func(k, v any) bool {
		name := strings.ReplaceAll(k.(string), "-", "_")
		s := v.(*strategyCounters)
		m["strategy_"+name+"_attempts"] = s.attempts.Load()
		m["strategy_"+name+"_successes"] = s.successes.Load()
		m["strategy_"+name+"_failures"] = s.failures.Load()
		return true
	})
	failureKinds.Range(func(k, v any) bool {
		m["failure_"+k.(string)] = v.(*atomic.Int64).Load()
		return true
	})
	return m
}

// FormatMetrics returns metrics as a simple text format for HTTP endpoint.
func FormatMetrics() string {
	m := GetMetrics()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&sb, "%s %d\n", k, m[k])
	}
	return sb.String()
}

// TrackOperation logs a warning if an operation takes longer than threshold.
func TrackOperation(ctx context.Context, name string, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	if elapsed > 5*time.Second {
		slog.Warn("slow operation", slog.String("op", name), slog.Duration("elapsed", elapsed))
	}
	return err
}
