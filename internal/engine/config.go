package engine

import (
	"net/http"
	"time"
)

// Config holds all engine configuration, injected from main.
type Config struct {
	BaseURL              string   // upstream origin, https://www.youtube.com
	RelayURL             string   // empty = delegated fetch disabled
	Language             string   // default target caption language
	DirectLangs          []string // guessed codes for direct timed-text URLs
	FetchTimeout         time.Duration
	RelayTimeout         time.Duration
	AcquireTimeout       time.Duration
	LibraryEnabled       bool
	CacheMaxEntries      int
	CacheCleanupInterval time.Duration
	HTTPClient           *http.Client
	BrowserClient        *BrowserClient // nil = plain HTTPClient egress
}

var cfg Config

// Cfg exposes the engine configuration for sub-packages.
// Always points to the current cfg value.
var Cfg = &cfg

// Init initializes the engine with the given configuration.
func Init(c Config) {
	cfg = c
	Cfg = &cfg
}
