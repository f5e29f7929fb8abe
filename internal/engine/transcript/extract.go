package transcript

import (
	"encoding/json"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// Structured-data extraction from watch page HTML.
//
// Primary:   ytInitialPlayerResponse object located by marker + balanced scan.
// Secondary: a bare "captionTracks":[...] array anywhere in the page.
// Tertiary:  other top-level objects inside <script> elements that embed the
//            player response under a different path (ytplayer.config, ytInitialData).

// maxScanLen caps the balanced scan; player responses run to ~1-2 MB.
const maxScanLen = 2_000_000

var playerResponseMarkers = []string{
	"var ytInitialPlayerResponse = ",
	"window[\"ytInitialPlayerResponse\"] = ",
	"ytInitialPlayerResponse = ",
	"ytInitialPlayerResponse=",
}

// captionPaths are tried in order against a player response object.
var captionPaths = [][]string{
	{"captions", "playerCaptionsTracklistRenderer", "captionTracks"},
	{"captions", "playerCaptionsRenderer", "captionTracks"},
}

var captionTracksRE = regexp.MustCompile(`"captionTracks"\s*:\s*\[`)

type tertiaryMarker struct {
	marker string
	// prefix leads from the marked object to an embedded player response.
	prefixes [][]string
}

var tertiaryMarkers = []tertiaryMarker{
	{"ytplayer.config = ", [][]string{{"args", "raw_player_response"}}},
	{"ytInitialData = ", [][]string{{"playerResponse"}, {"playerOverlays", "playerResponse"}}},
}

var (
	apiKeyRE        = regexp.MustCompile(`"INNERTUBE_API_KEY"\s*:\s*"([^"]+)"`)
	clientVersionRE = regexp.MustCompile(`"INNERTUBE_CLIENT_VERSION"\s*:\s*"([^"]+)"`)
	visitorDataRE   = regexp.MustCompile(`"VISITOR_DATA"\s*:\s*"([^"]+)"`)
)

// PlayerResponse is the part of a player payload the pipeline cares about.
// HasCaptions distinguishes "no captions object" from "empty track list".
type PlayerResponse struct {
	Tracks      []CaptionTrack
	HasCaptions bool
	Status      string
	Reason      string
}

// InnertubeConfig carries values recovered from the watch page's ytcfg.
type InnertubeConfig struct {
	APIKey        string
	ClientVersion string
	VisitorData   string
}

// ExtractCaptionTracks returns the first non-empty caption track list found
// in the document, trying primary, secondary and tertiary markers in turn.
func ExtractCaptionTracks(doc string) ([]CaptionTrack, bool) {
	if pr, ok := extractPrimary(doc); ok && len(pr.Tracks) > 0 {
		return pr.Tracks, true
	}
	if tracks := extractSecondary(doc); len(tracks) > 0 {
		return tracks, true
	}
	if pr, ok := extractTertiary(doc); ok && len(pr.Tracks) > 0 {
		return pr.Tracks, true
	}
	return nil, false
}

// ExtractPlayerResponse returns the embedded player response even when it
// has no caption tracks, so callers can inspect the playability status.
func ExtractPlayerResponse(doc string) (PlayerResponse, bool) {
	if pr, ok := extractPrimary(doc); ok {
		return pr, true
	}
	return extractTertiary(doc)
}

// ExtractInnertubeConfig pulls the API key and client version out of ytcfg.
func ExtractInnertubeConfig(doc string) InnertubeConfig {
	var cfg InnertubeConfig
	if m := apiKeyRE.FindStringSubmatch(doc); m != nil {
		cfg.APIKey = m[1]
	}
	if m := clientVersionRE.FindStringSubmatch(doc); m != nil {
		cfg.ClientVersion = m[1]
	}
	if m := visitorDataRE.FindStringSubmatch(doc); m != nil {
		cfg.VisitorData = m[1]
	}
	return cfg
}

// ParsePlayerResponse decodes a raw player JSON payload.
func ParsePlayerResponse(data []byte) (PlayerResponse, error) {
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return PlayerResponse{}, err
	}
	return playerFromMap(obj), nil
}

func extractPrimary(doc string) (PlayerResponse, bool) {
	for _, marker := range playerResponseMarkers {
		idx := strings.Index(doc, marker)
		if idx < 0 {
			continue
		}
		obj, ok := objectAt(doc, idx+len(marker), false)
		if !ok {
			continue
		}
		return playerFromMap(obj), true
	}
	return PlayerResponse{}, false
}

func extractSecondary(doc string) []CaptionTrack {
	for _, loc := range captionTracksRE.FindAllStringIndex(doc, -1) {
		open := loc[1] - 1
		end, ok := ScanBalanced(doc, open, false)
		if !ok {
			continue
		}
		var arr []any
		if err := json.Unmarshal([]byte(doc[open:end]), &arr); err != nil {
			continue
		}
		if tracks := tracksFromAny(arr); len(tracks) > 0 {
			return tracks
		}
	}
	return nil
}

func extractTertiary(doc string) (PlayerResponse, bool) {
	for _, script := range scriptBodies(doc) {
		for _, tm := range tertiaryMarkers {
			idx := strings.Index(script, tm.marker)
			if idx < 0 {
				continue
			}
			obj, ok := objectAt(script, idx+len(tm.marker), true)
			if !ok {
				continue
			}
			for _, prefix := range tm.prefixes {
				if inner, ok := lookup(obj, prefix).(map[string]any); ok {
					if pr := playerFromMap(inner); pr.HasCaptions {
						return pr, true
					}
				}
			}
			if raw, ok := findKey(obj, "captionTracks", 0); ok {
				if tracks := tracksFromAny(raw); len(tracks) > 0 {
					return PlayerResponse{Tracks: tracks, HasCaptions: true}, true
				}
			}
		}
	}
	return PlayerResponse{}, false
}

// objectAt decodes the JSON object starting at (or just after whitespace
// following) pos. Within a single <script> body, end of input also counts
// as a terminator.
func objectAt(s string, pos int, eofTerminates bool) (map[string]any, bool) {
	for pos < len(s) && isSpace(s[pos]) {
		pos++
	}
	if pos >= len(s) || s[pos] != '{' {
		return nil, false
	}
	end, ok := scanObject(s, pos, eofTerminates)
	if !ok {
		return nil, false
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(s[pos:end]), &obj); err != nil {
		return nil, false
	}
	return obj, true
}

// ScanBalanced scans from s[start] (an opening brace or bracket) and
// returns the index just past its matching closer. Quotes toggle the
// string state only when unescaped; delimiters inside strings are ignored.
// With needTerminator set, a depth-zero close only counts when the next
// non-whitespace character is ';' or '<'; otherwise scanning continues.
func ScanBalanced(s string, start int, needTerminator bool) (int, bool) {
	return scan(s, start, needTerminator, false)
}

func scanObject(s string, start int, eofTerminates bool) (int, bool) {
	return scan(s, start, true, eofTerminates)
}

func scan(s string, start int, needTerminator, eofTerminates bool) (int, bool) {
	if start < 0 || start >= len(s) {
		return 0, false
	}
	var opener, closer byte
	switch s[start] {
	case '{':
		opener, closer = '{', '}'
	case '[':
		opener, closer = '[', ']'
	default:
		return 0, false
	}

	limit := min(len(s), start+maxScanLen)
	depth := 0
	inStr, escaped := false, false
	for i := start; i < limit; i++ {
		c := s[i]
		if inStr {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case opener:
			depth++
		case closer:
			depth--
			if depth != 0 {
				continue
			}
			if !needTerminator || terminated(s, i+1, eofTerminates) {
				return i + 1, true
			}
		}
	}
	return 0, false
}

func terminated(s string, pos int, eofTerminates bool) bool {
	for pos < len(s) && isSpace(s[pos]) {
		pos++
	}
	if pos >= len(s) {
		return eofTerminates
	}
	return s[pos] == ';' || s[pos] == '<'
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// scriptBodies returns the text of every <script> element.
func scriptBodies(doc string) []string {
	var out []string
	z := html.NewTokenizer(strings.NewReader(doc))
	inScript := false
	for {
		switch z.Next() {
		case html.ErrorToken:
			return out
		case html.StartTagToken:
			name, _ := z.TagName()
			inScript = string(name) == "script"
		case html.EndTagToken:
			inScript = false
		case html.TextToken:
			if inScript {
				out = append(out, string(z.Text()))
			}
		}
	}
}

func playerFromMap(obj map[string]any) PlayerResponse {
	var pr PlayerResponse
	if st, ok := obj["playabilityStatus"].(map[string]any); ok {
		pr.Status, _ = st["status"].(string)
		pr.Reason, _ = st["reason"].(string)
	}
	_, pr.HasCaptions = obj["captions"].(map[string]any)
	for _, path := range captionPaths {
		if tracks := tracksFromAny(lookup(obj, path)); len(tracks) > 0 {
			pr.Tracks = tracks
			break
		}
	}
	return pr
}

func lookup(v any, path []string) any {
	for _, key := range path {
		m, ok := v.(map[string]any)
		if !ok {
			return nil
		}
		v = m[key]
	}
	return v
}

// findKey does a bounded depth-first search for key.
func findKey(v any, key string, depth int) (any, bool) {
	if depth > 32 {
		return nil, false
	}
	switch t := v.(type) {
	case map[string]any:
		if found, ok := t[key]; ok {
			return found, true
		}
		for _, child := range t {
			if found, ok := findKey(child, key, depth+1); ok {
				return found, true
			}
		}
	case []any:
		for _, child := range t {
			if found, ok := findKey(child, key, depth+1); ok {
				return found, true
			}
		}
	}
	return nil, false
}

func tracksFromAny(v any) []CaptionTrack {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	tracks := make([]CaptionTrack, 0, len(arr))
	for _, el := range arr {
		m, ok := el.(map[string]any)
		if !ok {
			continue
		}
		baseURL, _ := m["baseUrl"].(string)
		if baseURL == "" {
			continue
		}
		lang, _ := m["languageCode"].(string)
		kind, _ := m["kind"].(string)
		tracks = append(tracks, CaptionTrack{
			LanguageCode: lang,
			DisplayName:  trackName(m["name"]),
			BaseURL:      baseURL,
			Kind:         kind,
		})
	}
	return tracks
}

// trackName reads either {"simpleText": ...} or {"runs": [{"text": ...}]}.
func trackName(v any) string {
	m, ok := v.(map[string]any)
	if !ok {
		s, _ := v.(string)
		return s
	}
	if s, ok := m["simpleText"].(string); ok {
		return s
	}
	runs, _ := m["runs"].([]any)
	var sb strings.Builder
	for _, r := range runs {
		if rm, ok := r.(map[string]any); ok {
			if s, ok := rm["text"].(string); ok {
				sb.WriteString(s)
			}
		}
	}
	return sb.String()
}
