package transcriptserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/anatolykoptev/go_transcript/internal/engine"
	"github.com/anatolykoptev/go_transcript/internal/engine/transcript"
)

// Metadata describes a video alongside its transcript.
type Metadata struct {
	Title       string `json:"title"`
	Thumbnail   string `json:"thumbnail"`
	Duration    string `json:"duration,omitempty"`
	ChannelName string `json:"channel,omitempty"`
	ChannelURL  string `json:"channel_url,omitempty"`
}

type oembedResponse struct {
	Title        string `json:"title"`
	AuthorName   string `json:"author_name"`
	AuthorURL    string `json:"author_url"`
	ThumbnailURL string `json:"thumbnail_url"`
}

// MetadataClient resolves video metadata through the public oEmbed endpoint.
type MetadataClient struct {
	client  *http.Client
	baseURL string
	timeout time.Duration
}

// NewMetadataClient creates a client against baseURL (normally https://www.youtube.com).
func NewMetadataClient(client *http.Client, baseURL string, timeout time.Duration) *MetadataClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &MetadataClient{client: client, baseURL: strings.TrimRight(baseURL, "/"), timeout: timeout}
}

// Fetch returns oEmbed metadata for videoID. The duration is derived from
// the transcript items since oEmbed does not report it.
func (m *MetadataClient) Fetch(ctx context.Context, videoID string, items []transcript.Item) (*Metadata, error) {
	engine.IncrMetadata()
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	watch := m.baseURL + "/watch?v=" + url.QueryEscape(videoID)
	endpoint := m.baseURL + "/oembed?format=json&url=" + url.QueryEscape(watch)

	data, err := engine.RetryDo(ctx, engine.DefaultRetryConfig, func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", engine.RandomUserAgent())
		req.Header.Set("Accept", "application/json")
		resp, err := m.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("oembed status %d", resp.StatusCode)
		}
		return io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	})
	if err != nil {
		return nil, fmt.Errorf("oembed %s: %w", videoID, err)
	}

	var o oembedResponse
	if err := json.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("oembed decode: %w", err)
	}

	md := &Metadata{
		Title:       o.Title,
		Thumbnail:   o.ThumbnailURL,
		ChannelName: o.AuthorName,
		ChannelURL:  o.AuthorURL,
	}
	if md.Thumbnail == "" {
		md.Thumbnail = FallbackThumbnail(videoID)
	}
	if d := TranscriptDuration(items); d > 0 {
		md.Duration = engine.FormatClock(d)
	}
	return md, nil
}

// FallbackThumbnail is the static thumbnail URL for videoID.
func FallbackThumbnail(videoID string) string {
	return "https://img.youtube.com/vi/" + videoID + "/maxresdefault.jpg"
}

// TranscriptDuration is the latest end time (offset + duration) in ms.
func TranscriptDuration(items []transcript.Item) int64 {
	var end int64
	for _, it := range items {
		if e := it.OffsetMs + it.DurationMs; e > end {
			end = e
		}
	}
	return end
}
