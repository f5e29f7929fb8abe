package transcript

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_SynthesizesMissingOffset(t *testing.T) {
	got := Normalize([]RawItem{
		{Text: "a", Offset: 0, Duration: 5, HasOffset: true},
		{Text: "b", Duration: 3},
	})
	require.Len(t, got, 2)
	assert.Equal(t, Item{Text: "a", OffsetMs: 0, DurationMs: 5000}, got[0])
	assert.Equal(t, Item{Text: "b", OffsetMs: 5000, DurationMs: 3000}, got[1])
}

func TestNormalize_InfersMilliseconds(t *testing.T) {
	got := Normalize([]RawItem{
		{Text: "a", Offset: 1500, Duration: 2000, HasOffset: true},
		{Text: "b", Offset: 3500, Duration: 1000, HasOffset: true},
	})
	require.Len(t, got, 2)
	assert.Equal(t, int64(1500), got[0].OffsetMs)
	assert.Equal(t, int64(2000), got[0].DurationMs)
	assert.Equal(t, int64(3500), got[1].OffsetMs)
}

func TestNormalizeUnit_Hint(t *testing.T) {
	// Small millisecond values would be read as seconds without the hint.
	got := NormalizeUnit([]RawItem{{Text: "a", Offset: 0, Duration: 800, HasOffset: true}}, UnitMillis)
	require.Len(t, got, 1)
	assert.Equal(t, int64(800), got[0].DurationMs)

	got = NormalizeUnit([]RawItem{{Text: "a", Offset: 2000, Duration: 3, HasOffset: true}}, UnitSeconds)
	assert.Equal(t, int64(2_000_000), got[0].OffsetMs)
}

func TestNormalize_ZeroOffsetAfterFirstIsSynthesized(t *testing.T) {
	got := Normalize([]RawItem{
		{Text: "a", Offset: 0, Duration: 2, HasOffset: true},
		{Text: "b", Offset: 0, Duration: 2, HasOffset: true},
		{Text: "c", Offset: 0, Duration: 2, HasOffset: true},
	})
	assert.Equal(t, []int64{0, 2000, 4000}, offsets(got))
}

func TestNormalize_BadDurations(t *testing.T) {
	got := Normalize([]RawItem{
		{Text: "a", Offset: 1, Duration: -4, HasOffset: true},
		{Text: "b", Duration: math.NaN()},
		{Text: "c", Duration: math.Inf(1)},
	})
	for _, it := range got {
		assert.Equal(t, int64(0), it.DurationMs)
	}
	assert.Equal(t, []int64{1000, 1000, 1000}, offsets(got))
}

func TestNormalize_MonotonicOffsets(t *testing.T) {
	inputs := [][]RawItem{
		{
			{Offset: 10, Duration: 2, HasOffset: true},
			{Offset: 4, Duration: 1, HasOffset: true},
			{Duration: 1},
			{Offset: 3, Duration: 9, HasOffset: true},
		},
		{
			{Offset: 5000, Duration: 1000, HasOffset: true},
			{Offset: 1000, Duration: 50, HasOffset: true},
			{Offset: -7, Duration: 10},
			{Offset: 9000, Duration: 1, HasOffset: true},
		},
		{
			{Duration: 3},
			{Duration: -1},
			{Offset: math.NaN(), HasOffset: true},
		},
	}
	for i, raw := range inputs {
		got := offsets(Normalize(raw))
		for j := 1; j < len(got); j++ {
			assert.GreaterOrEqual(t, got[j], got[j-1], "input %d item %d", i, j)
		}
	}
}

func TestNormalize_Empty(t *testing.T) {
	assert.Empty(t, Normalize(nil))
}

func offsets(items []Item) []int64 {
	out := make([]int64, len(items))
	for i, it := range items {
		out[i] = it.OffsetMs
	}
	return out
}
