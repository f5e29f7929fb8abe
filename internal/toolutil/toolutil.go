// Package toolutil provides shared helper functions for go_transcript MCP tools.
package toolutil

import (
	"context"
	"sync"
)

// ClampLimit returns def for n <= 0 and max for n > max.
func ClampLimit(n, def, max int) int {
	if n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}

// ParallelMap runs fn for every input with at most workers goroutines in
// flight and returns results in input order. Inputs not yet started when
// ctx is done are skipped and left as the zero value.
func ParallelMap[In, Out any](ctx context.Context, inputs []In, workers int, fn func(context.Context, In) Out) []Out {
	if workers <= 0 {
		workers = 1
	}
	out := make([]Out, len(inputs))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i, in := range inputs {
		if ctx.Err() != nil {
			break
		}
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			wg.Wait()
			return out
		}
		wg.Add(1)
		go func(i int, in In) {
			defer wg.Done()
			defer func() { <-sem }()
			out[i] = fn(ctx, in)
		}(i, in)
	}
	wg.Wait()
	return out
}
