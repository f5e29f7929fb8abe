package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go_transcript/internal/engine/transcript"
)

const captionXML = `<transcript><text start="0" dur="2">relayed</text><text start="2" dur="1">line</text></transcript>`

type stubLibrary struct {
	items []transcript.RawItem
	err   error
}

func (s stubLibrary) Transcript(context.Context, string, string) ([]transcript.RawItem, error) {
	return s.items, s.err
}

// upstream fakes the video site the relay talks to.
func upstream(t *testing.T) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/watch", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<html><script>var ytInitialPlayerResponse = {"captions":{"playerCaptionsTracklistRenderer":{"captionTracks":[`+
			`{"baseUrl":"%s/api/timedtext?v=%s&lang=en","languageCode":"en"}]}}};</script></html>`,
			srv.URL, r.URL.Query().Get("v"))
	})
	mux.HandleFunc("/api/timedtext", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, captionXML)
	})
	mux.HandleFunc("/youtubei/v1/player", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"playabilityStatus":{"status":"OK"}}`)
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newRelay(t *testing.T, lib transcript.CaptionLibrary) (*httptest.Server, *httptest.Server) {
	t.Helper()
	up := upstream(t)
	s := New(Config{
		BaseURL:    up.URL,
		HTTPClient: up.Client(),
		Library:    lib,
		Retry:      transcript.RetryPolicy{BaseDelay: time.Millisecond, Factor: 2, MaxAttempts: 2},
		RPS:        100,
		Burst:      100,
	})
	relaySrv := httptest.NewServer(s.Handler())
	t.Cleanup(relaySrv.Close)
	return relaySrv, up
}

func postJSON(t *testing.T, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestHealth(t *testing.T) {
	relaySrv, _ := newRelay(t, stubLibrary{})
	resp, err := http.Get(relaySrv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var out map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "ok", out["status"])
}

func TestValidation(t *testing.T) {
	relaySrv, _ := newRelay(t, stubLibrary{})
	tests := []struct {
		path, body string
		code       int
	}{
		{"/fetch-page", `{}`, http.StatusBadRequest},
		{"/fetch-page", `not json`, http.StatusBadRequest},
		{"/fetch-transcript", `{}`, http.StatusBadRequest},
		{"/fetch-transcript", `{"url":"https://evil.example/steal"}`, http.StatusForbidden},
		{"/fetch-transcript", `{"url":"file:///etc/passwd"}`, http.StatusForbidden},
		{"/fetch-player", `{"videoId":"v","clientName":"NOPE"}`, http.StatusBadRequest},
		{"/get-transcript", `{"videoId":"  "}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.path+" "+tt.body, func(t *testing.T) {
			resp, out := postJSON(t, relaySrv.URL+tt.path, tt.body)
			assert.Equal(t, tt.code, resp.StatusCode)
			assert.NotEmpty(t, out["error"])
		})
	}
}

func TestCORS(t *testing.T) {
	relaySrv, _ := newRelay(t, stubLibrary{})
	req, err := http.NewRequest(http.MethodGet, relaySrv.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://app.example")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestRelayTransportRoundTrip(t *testing.T) {
	relaySrv, up := newRelay(t, stubLibrary{})
	rt := transcript.NewRelayTransport(relaySrv.Client(), relaySrv.URL, 5*time.Second)
	ctx := context.Background()

	html, err := rt.WatchPage(ctx, "abc")
	require.NoError(t, err)
	tracks, ok := transcript.ExtractCaptionTracks(html)
	require.True(t, ok)
	assert.Equal(t, up.URL+"/api/timedtext?v=abc&lang=en", tracks[0].BaseURL)

	xml, err := rt.TimedText(ctx, tracks[0].BaseURL)
	require.NoError(t, err)
	assert.Equal(t, captionXML, xml)

	player, err := rt.Player(ctx, "abc", "", transcript.ClientAndroid)
	require.NoError(t, err)
	pr, err := transcript.ParsePlayerResponse(player)
	require.NoError(t, err)
	assert.Equal(t, "OK", pr.Status)
}

func TestGetTranscript(t *testing.T) {
	lib := stubLibrary{items: []transcript.RawItem{
		{Text: "a", Offset: 0, Duration: 400, HasOffset: true},
		{Text: "b", Offset: 400, Duration: 600, HasOffset: true},
	}}
	relaySrv, _ := newRelay(t, lib)
	rt := transcript.NewRelayTransport(relaySrv.Client(), relaySrv.URL, 5*time.Second)

	raw, unit, err := rt.Transcript(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, transcript.UnitMillis, unit)
	items := transcript.NormalizeUnit(raw, unit)
	require.Len(t, items, 2)
	assert.Equal(t, transcript.Item{Text: "b", OffsetMs: 400, DurationMs: 600}, items[1])
}

func TestGetTranscript_LibraryFailure(t *testing.T) {
	relaySrv, _ := newRelay(t, stubLibrary{err: errors.New("transcript is disabled on this video")})
	rt := transcript.NewRelayTransport(relaySrv.Client(), relaySrv.URL, 5*time.Second)

	_, _, err := rt.Transcript(context.Background(), "abc")
	require.Error(t, err)
	var se *transcript.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
	assert.Equal(t, transcript.KindDisabled, transcript.Classify(err))
}

func TestDelegatedStrategyThroughRelay(t *testing.T) {
	relaySrv, _ := newRelay(t, stubLibrary{})
	rt := transcript.NewRelayTransport(relaySrv.Client(), relaySrv.URL, 5*time.Second)

	a := transcript.New(transcript.Config{DisableLibrary: true, AcquireTimeout: 5 * time.Second},
		transcript.WithStrategies(transcript.NewDelegatedStrategy(rt, nil)))
	out := a.Acquire(context.Background(), "abc")
	require.True(t, out.OK(), out.Detail)
	assert.Equal(t, transcript.StrategyDelegated, out.Strategy)
	assert.Equal(t, "relayed line", out.Text())
}

func TestStatusForKind(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, statusForKind(transcript.KindDisabled))
	assert.Equal(t, http.StatusForbidden, statusForKind(transcript.KindPrivateOrRestricted))
	assert.Equal(t, http.StatusGatewayTimeout, statusForKind(transcript.KindTimeout))
	assert.Equal(t, http.StatusBadGateway, statusForKind(transcript.KindUnknown))
}
