package transcript

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/url"
	"regexp"
	"strconv"
)

// Transcript panel: POST /next → engagement panel continuation token →
// POST /get_transcript → timed segments. Works from some datacenter IPs
// where /player answers LOGIN_REQUIRED.

// getTranscriptRE extracts the continuation token from a raw /next response.
var getTranscriptRE = regexp.MustCompile(`"getTranscriptEndpoint":\{"params":"([^"]+)"`)

var errNoPanelToken = errors.New("getTranscriptEndpoint not found in engagement panels")

type webClientCtx struct {
	ClientName    string `json:"clientName"`
	ClientVersion string `json:"clientVersion"`
	VisitorData   string `json:"visitorData,omitempty"`
	Hl            string `json:"hl,omitempty"`
	Gl            string `json:"gl,omitempty"`
}

type getTranscriptResp struct {
	Actions []struct {
		UpdateEngagementPanelAction *struct {
			Content struct {
				TranscriptRenderer struct {
					Content struct {
						TranscriptSearchPanelRenderer struct {
							Body struct {
								TranscriptSegmentListRenderer struct {
									InitialSegments []panelSegment `json:"initialSegments"`
								} `json:"transcriptSegmentListRenderer"`
							} `json:"body"`
						} `json:"transcriptSearchPanelRenderer"`
					} `json:"content"`
				} `json:"transcriptRenderer"`
			} `json:"content"`
		} `json:"updateEngagementPanelAction"`
	} `json:"actions"`
}

type panelSegment struct {
	TranscriptSegmentRenderer *struct {
		StartMs string `json:"startMs"`
		EndMs   string `json:"endMs"`
		Snippet struct {
			Runs []struct {
				Text string `json:"text"`
			} `json:"runs"`
		} `json:"snippet"`
	} `json:"transcriptSegmentRenderer"`
}

// PanelStrategy fetches the transcript shown in the watch page side panel.
type PanelStrategy struct {
	transport *DirectTransport
}

func NewPanelStrategy(t *DirectTransport) *PanelStrategy {
	return &PanelStrategy{transport: t}
}

func (s *PanelStrategy) Name() string { return StrategyPanel }

func (s *PanelStrategy) Attempt(ctx context.Context, videoID string) Result {
	visitor := generateVisitorData()
	nextData, err := s.transport.Web(ctx, "/youtubei/v1/next", map[string]any{
		"videoId": videoID,
		"context": webContext(visitor),
	}, visitor)
	if err != nil {
		return ErrorResult(fmt.Errorf("%s /next: %w", StrategyPanel, err))
	}

	token, err := extractPanelToken(nextData)
	if err != nil {
		return ErrorResult(newError(StrategyPanel, KindNotAvailable, "", err))
	}

	data, err := s.transport.Web(ctx, "/youtubei/v1/get_transcript", map[string]any{
		"params":  token,
		"context": webContext(visitor),
	}, visitor)
	if err != nil {
		return ErrorResult(fmt.Errorf("%s /get_transcript: %w", StrategyPanel, err))
	}

	var resp getTranscriptResp
	if err := json.Unmarshal(data, &resp); err != nil {
		return ErrorResult(fmt.Errorf("%s: decode transcript: %w", StrategyPanel, err))
	}
	raw := panelItems(resp)
	if len(raw) == 0 {
		return ErrorResult(newError(StrategyPanel, KindNotAvailable, "", ErrEmptyTranscript))
	}
	return ItemsResult(raw, UnitMillis)
}

func extractPanelToken(data []byte) (string, error) {
	m := getTranscriptRE.FindSubmatch(data)
	if len(m) < 2 {
		return "", errNoPanelToken
	}
	// The params value in the /next response is URL-encoded;
	// /get_transcript expects the raw base64 form.
	decoded, err := url.QueryUnescape(string(m[1]))
	if err != nil {
		return string(m[1]), nil
	}
	return decoded, nil
}

func panelItems(resp getTranscriptResp) []RawItem {
	var raw []RawItem
	for _, action := range resp.Actions {
		if action.UpdateEngagementPanelAction == nil {
			continue
		}
		segs := action.UpdateEngagementPanelAction.Content.
			TranscriptRenderer.Content.
			TranscriptSearchPanelRenderer.Body.
			TranscriptSegmentListRenderer.InitialSegments
		for _, seg := range segs {
			r := seg.TranscriptSegmentRenderer
			if r == nil {
				continue
			}
			var text string
			for _, run := range r.Snippet.Runs {
				text += run.Text
			}
			start, errStart := strconv.ParseFloat(r.StartMs, 64)
			end, errEnd := strconv.ParseFloat(r.EndMs, 64)
			item := RawItem{Text: text}
			if errStart == nil {
				item.Offset, item.HasOffset = start, true
				if errEnd == nil && end > start {
					item.Duration = end - start
				}
			}
			raw = append(raw, item)
		}
	}
	return raw
}

// generateVisitorData creates a random 11-char visitor ID for web client requests.
func generateVisitorData() string {
	const chars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"
	b := make([]byte, 11)
	for i := range b {
		b[i] = chars[rand.IntN(len(chars))] //nolint:gosec // non-cryptographic use
	}
	return string(b)
}

func webContext(visitor string) map[string]any {
	return map[string]any{
		"client": webClientCtx{
			ClientName:    ClientWeb.Name,
			ClientVersion: ClientWeb.Version,
			VisitorData:   visitor,
			Hl:            "en",
			Gl:            "US",
		},
		"user":    map[string]bool{"enableSafetyMode": false},
		"request": map[string]bool{"useSsl": true},
	}
}
