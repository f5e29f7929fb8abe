package toolutil

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClampLimit(t *testing.T) {
	assert.Equal(t, 5, ClampLimit(0, 5, 10))
	assert.Equal(t, 5, ClampLimit(-3, 5, 10))
	assert.Equal(t, 7, ClampLimit(7, 5, 10))
	assert.Equal(t, 10, ClampLimit(50, 5, 10))
}

func TestParallelMap_Order(t *testing.T) {
	in := []int{1, 2, 3, 4, 5, 6}
	out := ParallelMap(context.Background(), in, 2, func(_ context.Context, n int) int {
		time.Sleep(time.Duration(7-n) * time.Millisecond)
		return n * n
	})
	assert.Equal(t, []int{1, 4, 9, 16, 25, 36}, out)
}

func TestParallelMap_BoundsConcurrency(t *testing.T) {
	var cur, peak atomic.Int32
	in := make([]int, 12)
	ParallelMap(context.Background(), in, 3, func(context.Context, int) struct{} {
		n := cur.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		cur.Add(-1)
		return struct{}{}
	})
	assert.LessOrEqual(t, peak.Load(), int32(3))
}

func TestParallelMap_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var calls atomic.Int32
	out := ParallelMap(ctx, []string{"a", "b", "c"}, 1, func(context.Context, string) string {
		calls.Add(1)
		return "x"
	})
	assert.Len(t, out, 3)
	assert.Zero(t, calls.Load())
}
