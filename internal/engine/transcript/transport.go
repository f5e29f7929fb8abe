package transcript

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/anatolykoptev/go_transcript/internal/engine"
)

// Body size caps.
const (
	maxPageBytes      = 6 * 1024 * 1024
	maxPlayerBytes    = 3 * 1024 * 1024
	maxTimedTextBytes = 2 * 1024 * 1024
)

// Transport performs the outbound calls a strategy needs. DirectTransport
// talks to the upstream itself; RelayTransport routes through the relay.
type Transport interface {
	Name() string
	WatchPage(ctx context.Context, videoID string) (string, error)
	Player(ctx context.Context, videoID, apiKey string, client ClientIdentity) ([]byte, error)
	TimedText(ctx context.Context, trackURL string) (string, error)
}

// StatusError is a non-2xx HTTP response.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("HTTP %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// DirectTransport issues requests from the core's own egress.
type DirectTransport struct {
	client  *http.Client
	browser *engine.BrowserClient
	baseURL string
	timeout time.Duration
}

// NewDirectTransport creates a direct transport against baseURL
// (normally https://www.youtube.com).
func NewDirectTransport(client *http.Client, baseURL string, timeout time.Duration) *DirectTransport {
	if client == nil {
		client = http.DefaultClient
	}
	return &DirectTransport{client: client, baseURL: strings.TrimRight(baseURL, "/"), timeout: timeout}
}

// UseBrowser sends every request through bc (Chrome TLS fingerprint,
// optional proxy pool) instead of the plain HTTP client. nil is a no-op.
func (t *DirectTransport) UseBrowser(bc *engine.BrowserClient) *DirectTransport {
	t.browser = bc
	return t
}

func (t *DirectTransport) Name() string { return "direct" }

// WatchURL is the canonical watch page for videoID.
func (t *DirectTransport) WatchURL(videoID string) string {
	return t.baseURL + "/watch?v=" + url.QueryEscape(videoID)
}

// TimedTextURL is the guessed caption endpoint for videoID and lang.
func (t *DirectTransport) TimedTextURL(videoID, lang string) string {
	q := url.Values{}
	q.Set("v", videoID)
	q.Set("lang", lang)
	return t.baseURL + "/api/timedtext?" + q.Encode()
}

// WatchPage fetches the watch page with a browser-like header set.
func (t *DirectTransport) WatchPage(ctx context.Context, videoID string) (string, error) {
	body, err := t.do(ctx, http.MethodGet, t.WatchURL(videoID), nil, engine.NavigationHeaders(t.baseURL+"/"), maxPageBytes)
	if err != nil {
		return "", fmt.Errorf("watch page: %w", err)
	}
	return string(body), nil
}

// Player calls the internal player endpoint as client.
func (t *DirectTransport) Player(ctx context.Context, videoID, apiKey string, client ClientIdentity) ([]byte, error) {
	reqBody, err := PlayerRequestBody(videoID, client)
	if err != nil {
		return nil, err
	}
	endpoint := t.baseURL + "/youtubei/v1/player?prettyPrint=false"
	if apiKey != "" {
		endpoint += "&key=" + url.QueryEscape(apiKey)
	}
	headers := map[string]string{
		"Content-Type":             "application/json",
		"Accept":                   "*/*",
		"User-Agent":               client.UserAgent,
		"X-Youtube-Client-Name":    client.HeaderID,
		"X-Youtube-Client-Version": client.Version,
		"Origin":                   t.baseURL,
	}
	data, err := t.do(ctx, http.MethodPost, endpoint, reqBody, headers, maxPlayerBytes)
	if err != nil {
		return nil, fmt.Errorf("innertube %s: %w", client.Name, err)
	}
	return data, nil
}

// Web posts a JSON payload to an internal endpoint as the WEB client,
// carrying visitorData the way a browser session would.
func (t *DirectTransport) Web(ctx context.Context, path string, payload any, visitorData string) ([]byte, error) {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", path, err)
	}
	headers := engine.FetchHeaders(t.baseURL+"/", "application/json")
	headers["Content-Type"] = "application/json"
	headers["X-Youtube-Client-Name"] = ClientWeb.HeaderID
	headers["X-Youtube-Client-Version"] = ClientWeb.Version
	headers["Origin"] = t.baseURL
	if visitorData != "" {
		headers["X-Goog-Visitor-Id"] = visitorData
	}
	return t.do(ctx, http.MethodPost, t.baseURL+path+"?prettyPrint=false", reqBody, headers, maxPlayerBytes)
}

// TimedText fetches a caption track's XML.
func (t *DirectTransport) TimedText(ctx context.Context, trackURL string) (string, error) {
	headers := engine.FetchHeaders(t.baseURL+"/", "text/xml,application/xml")
	body, err := t.do(ctx, http.MethodGet, trackURL, nil, headers, maxTimedTextBytes)
	if err != nil {
		return "", fmt.Errorf("fetch timedtext: %w", err)
	}
	return string(body), nil
}

func (t *DirectTransport) do(ctx context.Context, method, target string, body []byte, headers map[string]string, limit int64) ([]byte, error) {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}
	if t.browser != nil {
		return t.doBrowser(ctx, method, target, body, headers, limit)
	}

	resp, err := engine.RetryHTTP(ctx, engine.DefaultRetryConfig, func() (*http.Response, error) {
		var rd io.Reader
		if body != nil {
			rd = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, target, rd)
		if err != nil {
			return nil, err
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		return t.client.Do(req)
	})
	engine.IncrFetch(err != nil || resp.StatusCode >= 400)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, &StatusError{URL: target, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}
	return io.ReadAll(io.LimitReader(resp.Body, limit))
}

// doBrowser mirrors do over the browser client. The client takes no
// context, so cancellation is only observed between retries.
func (t *DirectTransport) doBrowser(ctx context.Context, method, target string, body []byte, headers map[string]string, limit int64) ([]byte, error) {
	data, err := engine.RetryDo(ctx, engine.DefaultRetryConfig, func() ([]byte, error) {
		var rd io.Reader
		if body != nil {
			rd = bytes.NewReader(body)
		}
		data, _, status, err := t.browser.Do(method, target, headers, rd)
		if err != nil {
			return nil, err
		}
		if status < 200 || status > 299 {
			snippet := strings.TrimSpace(string(data[:min(len(data), 256)]))
			return nil, &StatusError{URL: target, StatusCode: status, Body: snippet}
		}
		return data, nil
	})
	engine.IncrFetch(err != nil)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		data = data[:limit]
	}
	return data, nil
}
