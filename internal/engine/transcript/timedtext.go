package transcript

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Timed-text XML parsing.
// Format: <transcript><text start="0.0" dur="5.5">Hello world</text>...</transcript>

var (
	textElemRE = regexp.MustCompile(`(?s)<text\b([^>]*?)(?:/>|>(.*?)</text>)`)
	attrRE     = regexp.MustCompile(`([A-Za-z_:][-\w:.]*)\s*=\s*"([^"]*)"`)
)

// entityReplacements is applied in order. Doubly escaped variants produced
// upstream come before their single-escaped forms, and &amp; is last.
var entityReplacements = [][2]string{
	{"&amp;#39;", "'"},
	{"&amp;quot;", `"`},
	{"&amp;amp;", "&"},
	{"&amp;gt;", ">"},
	{"&amp;lt;", "<"},
	{"&apos;", "'"},
	{"&quot;", `"`},
	{"&#39;", "'"},
	{"&#34;", `"`},
	{"&gt;", ">"},
	{"&lt;", "<"},
	{"&amp;", "&"},
}

// maxDecodePasses bounds the fixpoint loop in DecodeEntities.
const maxDecodePasses = 4

// DecodeEntities reverses the fixed entity set until no sequence from the
// set remains (or maxDecodePasses is reached).
func DecodeEntities(s string) string {
	for range maxDecodePasses {
		prev := s
		for _, r := range entityReplacements {
			s = strings.ReplaceAll(s, r[0], r[1])
		}
		if s == prev {
			break
		}
	}
	return s
}

// ParseTimedText extracts every <text start dur> element in document order.
// Unknown attributes are ignored. Elements whose start (or present dur) is
// not a valid non-negative number are skipped; a missing dur means 0.
func ParseTimedText(xml string) []Item {
	matches := textElemRE.FindAllStringSubmatch(xml, -1)
	items := make([]Item, 0, len(matches))
	for _, m := range matches {
		attrs := parseAttrs(m[1])

		start, ok := parseSeconds(attrs["start"])
		if !ok {
			continue
		}
		var dur float64
		if raw, present := attrs["dur"]; present {
			if dur, ok = parseSeconds(raw); !ok {
				continue
			}
		}

		items = append(items, Item{
			Text:       strings.TrimSpace(DecodeEntities(m[2])),
			OffsetMs:   secondsToMillis(start),
			DurationMs: secondsToMillis(dur),
		})
	}
	return items
}

// LooksLikeTimedText is the cheap check used before parsing guessed URLs.
func LooksLikeTimedText(body string) bool {
	return strings.Contains(body, "<text") || strings.Contains(body, "<transcript>")
}

func parseAttrs(s string) map[string]string {
	out := make(map[string]string, 2)
	for _, a := range attrRE.FindAllStringSubmatch(s, -1) {
		out[a[1]] = a[2]
	}
	return out
}

func parseSeconds(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, false
	}
	return v, true
}

func secondsToMillis(sec float64) int64 {
	return int64(math.Round(sec * 1000))
}

// itemsToRaw feeds already-parsed items back through the normalizer.
func itemsToRaw(items []Item) []RawItem {
	raw := make([]RawItem, len(items))
	for i, it := range items {
		raw[i] = RawItem{
			Text:      it.Text,
			Offset:    float64(it.OffsetMs),
			Duration:  float64(it.DurationMs),
			HasOffset: true,
		}
	}
	return raw
}
