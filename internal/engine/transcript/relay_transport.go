package transcript

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/anatolykoptev/go-kit/strutil"
	"github.com/anatolykoptev/go_transcript/internal/engine"
)

// Relay request/response contract.
//
//	POST /fetch-page       {videoId}                                   -> {html}
//	POST /fetch-transcript {url}                                       -> {xml}
//	POST /fetch-player     {videoId, apiKey, clientName, clientVersion} -> raw player JSON
//	POST /get-transcript   {videoId}                                   -> {transcript: [...]}

type RelayPageRequest struct {
	VideoID string `json:"videoId"`
}

type RelayPageResponse struct {
	HTML    string `json:"html"`
	VideoID string `json:"videoId,omitempty"`
	Length  int    `json:"length,omitempty"`
}

type RelayTranscriptRequest struct {
	URL string `json:"url"`
}

type RelayTranscriptResponse struct {
	XML    string `json:"xml"`
	Length int    `json:"length,omitempty"`
}

type RelayPlayerRequest struct {
	VideoID       string `json:"videoId"`
	APIKey        string `json:"apiKey,omitempty"`
	ClientName    string `json:"clientName"`
	ClientVersion string `json:"clientVersion,omitempty"`
}

// RelayItem is a transcript line as the relay returns it. Offset is a
// pointer so a missing offset can be told apart from an explicit zero.
type RelayItem struct {
	Text     string   `json:"text"`
	Offset   *float64 `json:"offset,omitempty"`
	Duration float64  `json:"duration"`
}

// RelayGetTranscriptResponse carries library items. Unit is "ms" or "s";
// relays that omit it leave the unit to inference.
type RelayGetTranscriptResponse struct {
	Transcript []RelayItem `json:"transcript"`
	Unit       string      `json:"unit,omitempty"`
}

// Relay unit tags.
const (
	RelayUnitMillis  = "ms"
	RelayUnitSeconds = "s"
)

// RelayError is the body of a non-2xx relay response.
type RelayError struct {
	Error string `json:"error"`
}

// RelayTransport routes every outbound call through the relay.
type RelayTransport struct {
	client  *http.Client
	baseURL string
	timeout time.Duration
}

// NewRelayTransport creates a transport for the relay at baseURL.
func NewRelayTransport(client *http.Client, baseURL string, timeout time.Duration) *RelayTransport {
	if client == nil {
		client = http.DefaultClient
	}
	return &RelayTransport{client: client, baseURL: strings.TrimRight(baseURL, "/"), timeout: timeout}
}

func (t *RelayTransport) Name() string { return "relay" }

func (t *RelayTransport) WatchPage(ctx context.Context, videoID string) (string, error) {
	var out RelayPageResponse
	if err := t.postJSON(ctx, "/fetch-page", RelayPageRequest{VideoID: videoID}, &out); err != nil {
		return "", err
	}
	return out.HTML, nil
}

func (t *RelayTransport) Player(ctx context.Context, videoID, apiKey string, client ClientIdentity) ([]byte, error) {
	var raw json.RawMessage
	err := t.postJSON(ctx, "/fetch-player", RelayPlayerRequest{
		VideoID:       videoID,
		APIKey:        apiKey,
		ClientName:    client.Name,
		ClientVersion: client.Version,
	}, &raw)
	if err != nil {
		return nil, err
	}
	return raw, nil
}

func (t *RelayTransport) TimedText(ctx context.Context, trackURL string) (string, error) {
	var out RelayTranscriptResponse
	if err := t.postJSON(ctx, "/fetch-transcript", RelayTranscriptRequest{URL: trackURL}, &out); err != nil {
		return "", err
	}
	return out.XML, nil
}

// Transcript calls the relay-side library shortcut.
func (t *RelayTransport) Transcript(ctx context.Context, videoID string) ([]RawItem, Unit, error) {
	var out RelayGetTranscriptResponse
	if err := t.postJSON(ctx, "/get-transcript", RelayPageRequest{VideoID: videoID}, &out); err != nil {
		return nil, UnitAuto, err
	}
	raw := make([]RawItem, len(out.Transcript))
	for i, it := range out.Transcript {
		raw[i] = RawItem{Text: it.Text, Duration: it.Duration}
		if it.Offset != nil {
			raw[i].Offset = *it.Offset
			raw[i].HasOffset = true
		}
	}
	unit := UnitAuto
	switch out.Unit {
	case RelayUnitMillis:
		unit = UnitMillis
	case RelayUnitSeconds:
		unit = UnitSeconds
	}
	return raw, unit, nil
}

func (t *RelayTransport) postJSON(ctx context.Context, path string, in, out any) error {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	engine.IncrFetch(err != nil || resp.StatusCode >= 400)
	if err != nil {
		return fmt.Errorf("relay %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes+1024))
	if err != nil {
		return fmt.Errorf("relay %s: read: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var re RelayError
		msg := strutil.TruncateWith(strings.TrimSpace(string(body)), 200, "...")
		if json.Unmarshal(body, &re) == nil && re.Error != "" {
			msg = re.Error
		}
		return fmt.Errorf("relay %s: %w", path, &StatusError{URL: t.baseURL + path, StatusCode: resp.StatusCode, Body: msg})
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("relay %s: decode: %w", path, err)
	}
	return nil
}
