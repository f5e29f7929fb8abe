package engine

import (
	"context"
	"log/slog"
	"maps"
	"net/http"

	stealth "github.com/anatolykoptev/go-stealth"
	"github.com/anatolykoptev/go-stealth/proxypool"
)

// Re-export stealth types and functions for engine consumers.
type BrowserClient = stealth.BrowserClient

var DefaultRetryConfig = stealth.DefaultRetryConfig

func ChromeHeaders() map[string]string { return stealth.ChromeHeaders() }
func RandomUserAgent() string          { return stealth.RandomUserAgent() }
func IsRetryableStatus(code int) bool  { return stealth.IsRetryableStatus(code) }

func RetryDo[T any](ctx context.Context, rc stealth.RetryConfig, fn func() (T, error)) (T, error) {
	return stealth.RetryDo(ctx, rc, fn)
}

func RetryHTTP(ctx context.Context, rc stealth.RetryConfig, fn func() (*http.Response, error)) (*http.Response, error) {
	return stealth.RetryHTTP(ctx, rc, fn)
}

// NavigationHeaders is the header set of a desktop Chrome top-level
// navigation, with the consent cookie that skips the EU interstitial.
func NavigationHeaders(referer string) map[string]string {
	h := maps.Clone(ChromeHeaders())
	// net/http only decompresses transparently when it set Accept-Encoding itself.
	delete(h, "accept-encoding")
	delete(h, "Accept-Encoding")
	h["referer"] = referer
	h["sec-fetch-dest"] = "document"
	h["sec-fetch-mode"] = "navigate"
	h["sec-fetch-site"] = "none"
	h["cookie"] = "CONSENT=YES+1"
	return h
}

// FetchHeaders is a lighter header set for XML/JSON subresource requests.
func FetchHeaders(referer, accept string) map[string]string {
	return map[string]string{
		"user-agent":      stealth.RandomUserAgent(),
		"accept":          accept,
		"accept-language": "en-US,en;q=0.9",
		"referer":         referer,
	}
}

// NewBrowserClient creates the Chrome-fingerprinted client used for direct
// egress. A non-empty webshareKey routes requests through a rotating proxy
// pool; a pool failure is logged and the client runs without proxies.
func NewBrowserClient(timeoutSec int, webshareKey string) (*BrowserClient, error) {
	opts := []stealth.ClientOption{stealth.WithTimeout(timeoutSec)}
	if webshareKey != "" {
		pool, err := proxypool.NewWebshare(webshareKey)
		if err != nil {
			slog.Warn("proxy pool init failed, running without proxy", slog.Any("error", err))
		} else {
			opts = append(opts, stealth.WithProxyPool(pool))
			slog.Info("proxy pool initialized", slog.Int("proxies", pool.Len()))
		}
	}
	return stealth.NewClient(opts...)
}
