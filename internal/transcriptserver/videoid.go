package transcriptserver

import (
	"errors"
	"net/url"
	"regexp"
	"strings"
)

var (
	bareIDRe  = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
	validIDRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

	// ErrInvalidURL means no video id could be found in the input.
	ErrInvalidURL = errors.New("invalid YouTube URL: make sure it contains a valid video id")
)

// pathPrefixes carry the id as the next path segment.
var pathPrefixes = []string{"watch", "embed", "shorts", "live", "v", "e"}

// ParseVideoID extracts a video id from a watch/short/embed URL, a youtu.be
// link, a URL without scheme, or a bare 11-character id.
func ParseVideoID(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("url is required")
	}
	if bareIDRe.MatchString(raw) {
		return raw, nil
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", ErrInvalidURL
	}

	host := strings.ToLower(u.Hostname())
	segs := strings.FieldsFunc(u.Path, func(r rune) bool { return r == '/' })
	var id string
	switch {
	case host == "youtu.be" || strings.HasSuffix(host, ".youtu.be"):
		if len(segs) > 0 {
			id = segs[0]
		}
	case strings.HasSuffix(host, "youtube.com") || strings.HasSuffix(host, "youtube-nocookie.com"):
		id = u.Query().Get("v")
		if id == "" {
			id = idAfterPrefix(segs)
		}
	}

	id = strings.TrimSpace(id)
	if id == "" || !validIDRe.MatchString(id) {
		return "", ErrInvalidURL
	}
	return id, nil
}

func idAfterPrefix(segs []string) string {
	for i := 0; i+1 < len(segs); i++ {
		for _, p := range pathPrefixes {
			if segs[i] == p {
				return segs[i+1]
			}
		}
	}
	return ""
}
