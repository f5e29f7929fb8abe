package engine

import "testing"

func TestFormatClock(t *testing.T) {
	tests := []struct {
		ms   int64
		want string
	}{
		{-5, "0:00"},
		{0, "0:00"},
		{999, "0:00"},
		{65_400, "1:05"},
		{3_599_000, "59:59"},
		{3_661_000, "1:01:01"},
	}
	for _, tt := range tests {
		if got := FormatClock(tt.ms); got != tt.want {
			t.Errorf("FormatClock(%d) = %q, want %q", tt.ms, got, tt.want)
		}
	}
}

func TestNormLang(t *testing.T) {
	if got := NormLang("  "); got != "en" {
		t.Errorf("NormLang(blank) = %q", got)
	}
	if got := NormLang(" de "); got != "de" {
		t.Errorf("NormLang(de) = %q", got)
	}
}

func TestCleanHTML(t *testing.T) {
	if got := CleanHTML("  <b>bold</b> and <i>it</i> "); got != "bold and it" {
		t.Errorf("CleanHTML = %q", got)
	}
	if got := CleanHTML("a < b"); got != "a < b" {
		t.Errorf("CleanHTML kept comparison = %q", got)
	}
}

func TestNavigationHeaders(t *testing.T) {
	h := NavigationHeaders("https://www.youtube.com/")
	if h["referer"] != "https://www.youtube.com/" {
		t.Errorf("referer = %q", h["referer"])
	}
	if _, ok := h["accept-encoding"]; ok {
		t.Error("accept-encoding must not be set")
	}
	if h["cookie"] == "" {
		t.Error("consent cookie missing")
	}
}
