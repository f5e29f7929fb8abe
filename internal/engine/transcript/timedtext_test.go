package transcript

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimedText(t *testing.T) {
	tests := []struct {
		name string
		xml  string
		want []Item
	}{
		{
			name: "doubly escaped apostrophes",
			xml:  `<text start="0.0" dur="5.5">Hello &amp;amp;#39;world&amp;amp;#39;</text>`,
			want: []Item{{Text: "Hello 'world'", OffsetMs: 0, DurationMs: 5500}},
		},
		{
			name: "document order and rounding",
			xml: `<?xml version="1.0" encoding="utf-8" ?><transcript>` +
				`<text start="1.2345" dur="2.0006">first</text>` +
				`<text start="3.5" dur="1">second</text></transcript>`,
			want: []Item{
				{Text: "first", OffsetMs: 1235, DurationMs: 2001},
				{Text: "second", OffsetMs: 3500, DurationMs: 1000},
			},
		},
		{
			name: "unknown attributes ignored",
			xml:  `<text foo="bar" start="2" dur="1" t="x">  padded  </text>`,
			want: []Item{{Text: "padded", OffsetMs: 2000, DurationMs: 1000}},
		},
		{
			name: "unparsable start skipped",
			xml:  `<text start="abc" dur="1">bad</text><text start="4" dur="1">good</text>`,
			want: []Item{{Text: "good", OffsetMs: 4000, DurationMs: 1000}},
		},
		{
			name: "unparsable dur skipped, missing dur is zero",
			xml:  `<text start="1" dur="x">bad</text><text start="2">nodur</text>`,
			want: []Item{{Text: "nodur", OffsetMs: 2000, DurationMs: 0}},
		},
		{
			name: "self-closing element",
			xml:  `<text start="0" dur="1"/>`,
			want: []Item{{Text: "", OffsetMs: 0, DurationMs: 1000}},
		},
		{
			name: "multiline payload and quotes",
			xml:  "<text start=\"0\" dur=\"2\">say &quot;hi&quot;\nand &lt;go&gt; &amp; run</text>",
			want: []Item{{Text: "say \"hi\"\nand <go> & run", OffsetMs: 0, DurationMs: 2000}},
		},
		{
			name: "empty document",
			xml:  "",
			want: []Item{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseTimedText(tt.xml)
			require.Len(t, got, len(tt.want))
			for i := range tt.want {
				assert.Equal(t, tt.want[i], got[i])
			}
		})
	}
}

func TestParseTimedText_NoResidualEntities(t *testing.T) {
	payloads := []string{
		"Tom &amp;amp;amp; Jerry",
		"&amp;quot;quoted&amp;quot;",
		"a &amp;lt;b&amp;gt; c",
		"it&#39;s &apos;fine&apos;",
		"&#34;x&#34; &amp;#39;y&amp;#39;",
	}
	for _, p := range payloads {
		items := ParseTimedText(`<text start="0" dur="1">` + p + `</text>`)
		require.Len(t, items, 1, p)
		for _, r := range entityReplacements {
			assert.NotContains(t, items[0].Text, r[0], "payload %q", p)
		}
	}
}

func TestDecodeEntities(t *testing.T) {
	assert.Equal(t, "Tom & Jerry", DecodeEntities("Tom &amp;amp; Jerry"))
	assert.Equal(t, `"x"`, DecodeEntities("&amp;quot;x&amp;quot;"))
	assert.Equal(t, "plain", DecodeEntities("plain"))
}

func TestLooksLikeTimedText(t *testing.T) {
	assert.True(t, LooksLikeTimedText(`<transcript><text start="0">x</text></transcript>`))
	assert.False(t, LooksLikeTimedText(""))
	assert.False(t, LooksLikeTimedText(strings.Repeat("<html>", 3)))
}
