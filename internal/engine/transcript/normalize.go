package transcript

import (
	"math"
	"strings"
)

// msThreshold: a first offset or duration above this is taken as milliseconds.
const msThreshold = 1000

// Normalize infers the unit from the first item and repairs offsets.
func Normalize(raw []RawItem) []Item {
	return NormalizeUnit(raw, UnitAuto)
}

// NormalizeUnit canonicalizes raw items to milliseconds.
//
// Offsets missing (or non-positive past the first item) are synthesized from
// the running end time, which never regresses. Output offsets never fall
// below the previous output offset. Negative or non-finite durations become 0.
func NormalizeUnit(raw []RawItem, unit Unit) []Item {
	if len(raw) == 0 {
		return nil
	}
	if unit == UnitAuto {
		unit = inferUnit(raw[0])
	}
	scale := 1.0
	if unit == UnitMillis {
		scale = 1000
	}

	out := make([]Item, 0, len(raw))
	var lastEnd, lastOffset float64 // seconds
	for i, r := range raw {
		dur := finiteNonNeg(r.Duration) / scale

		var offset float64
		explicit := r.HasOffset && isFinite(r.Offset) && r.Offset >= 0
		switch {
		case i == 0 && explicit:
			offset = r.Offset / scale
		case i == 0:
			offset = 0
		case explicit && r.Offset > 0:
			offset = r.Offset / scale
		default:
			offset = lastEnd
		}
		if offset < lastOffset {
			offset = lastOffset
		}

		lastEnd = math.Max(lastEnd, offset+dur)
		lastOffset = offset

		out = append(out, Item{
			Text:       strings.TrimSpace(r.Text),
			OffsetMs:   secondsToMillis(offset),
			DurationMs: secondsToMillis(dur),
		})
	}
	return out
}

func inferUnit(first RawItem) Unit {
	if finiteNonNeg(first.Offset) > msThreshold || finiteNonNeg(first.Duration) > msThreshold {
		return UnitMillis
	}
	return UnitSeconds
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func finiteNonNeg(v float64) float64 {
	if !isFinite(v) || v < 0 {
		return 0
	}
	return v
}
