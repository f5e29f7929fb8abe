package transcriptserver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVideoID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/watch?feature=share&v=dQw4w9WgXcQ&t=42", "dQw4w9WgXcQ"},
		{"youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"  https://m.youtube.com/watch?v=abc123  ", "abc123"},
		{"https://music.youtube.com/watch?v=abc123", "abc123"},
		{"https://m.youtube.com/watch/abc123", "abc123"},
		{"https://www.youtube.com/shorts/abc123?feature=share", "abc123"},
		{"https://www.youtube.com/embed/abc123", "abc123"},
		{"https://www.youtube-nocookie.com/embed/abc123", "abc123"},
		{"https://www.youtube.com/live/abc123", "abc123"},
		{"https://youtu.be/abc123?si=tracking", "abc123"},
		{"youtu.be/abc123/extra", "abc123"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseVideoID(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseVideoID_Invalid(t *testing.T) {
	for _, in := range []string{
		"",
		"   ",
		"https://example.com/watch?v=abc123",
		"https://www.youtube.com/",
		"https://www.youtube.com/feed/trending",
		"https://youtu.be/",
		"https://www.youtube.com/watch?v=<script>",
	} {
		_, err := ParseVideoID(in)
		assert.Error(t, err, in)
	}
}
