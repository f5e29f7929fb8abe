package transcriptserver

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go_transcript/internal/engine/transcript"
)

func oembedServer(t *testing.T, body string, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/oembed", r.URL.Path)
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Contains(t, r.URL.Query().Get("url"), "/watch?v=")
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestMetadataFetch(t *testing.T) {
	srv := oembedServer(t, `{"title":"A talk","author_name":"Chan","author_url":"https://www.youtube.com/@chan","thumbnail_url":"https://i.ytimg.com/vi/x/hq.jpg"}`, http.StatusOK)
	m := NewMetadataClient(srv.Client(), srv.URL, time.Second)

	items := []transcript.Item{
		{Text: "a", OffsetMs: 0, DurationMs: 5000},
		{Text: "b", OffsetMs: 61000, DurationMs: 4500},
		{Text: "c", OffsetMs: 62000, DurationMs: 1000},
	}
	md, err := m.Fetch(context.Background(), "x", items)
	require.NoError(t, err)
	assert.Equal(t, &Metadata{
		Title:       "A talk",
		Thumbnail:   "https://i.ytimg.com/vi/x/hq.jpg",
		Duration:    "1:05",
		ChannelName: "Chan",
		ChannelURL:  "https://www.youtube.com/@chan",
	}, md)
}

func TestMetadataFetch_FallbackThumbnail(t *testing.T) {
	srv := oembedServer(t, `{"title":"T"}`, http.StatusOK)
	m := NewMetadataClient(srv.Client(), srv.URL, time.Second)

	md, err := m.Fetch(context.Background(), "vid123", nil)
	require.NoError(t, err)
	assert.Equal(t, "https://img.youtube.com/vi/vid123/maxresdefault.jpg", md.Thumbnail)
	assert.Empty(t, md.Duration)
}

func TestMetadataFetch_NotFound(t *testing.T) {
	srv := oembedServer(t, `Not Found`, http.StatusNotFound)
	m := NewMetadataClient(srv.Client(), srv.URL, time.Second)

	_, err := m.Fetch(context.Background(), "gone", nil)
	assert.ErrorContains(t, err, "404")
}

func TestTranscriptDuration(t *testing.T) {
	assert.Zero(t, TranscriptDuration(nil))
	assert.Equal(t, int64(3_661_000), TranscriptDuration([]transcript.Item{
		{OffsetMs: 3_600_000, DurationMs: 61_000},
		{OffsetMs: 10, DurationMs: 5},
	}))
}
