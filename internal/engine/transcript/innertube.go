package transcript

import (
	"encoding/json"
	"strings"

	"github.com/anatolykoptev/go_transcript/internal/engine"
)

// YouTube Innertube API: client identities and request types.

const (
	ytAndroidVersion = "20.10.38"
	ytWebVersion     = "2.20250222.10.00"
	ytTVEmbedVersion = "2.0"
)

// ClientIdentity is an official client the internal player API is called as.
type ClientIdentity struct {
	Name       string // clientName in the request context
	Version    string
	HeaderID   string // X-Youtube-Client-Name
	UserAgent  string
	AndroidSDK int
	EmbedURL   string // thirdParty.embedUrl, embedded players only
}

var (
	ClientAndroid = ClientIdentity{
		Name:       "ANDROID",
		Version:    ytAndroidVersion,
		HeaderID:   "3",
		UserAgent:  "com.google.android.youtube/" + ytAndroidVersion + " (Linux; U; Android 11) gzip",
		AndroidSDK: 30,
	}
	ClientTVEmbedded = ClientIdentity{
		Name:      "TVHTML5_SIMPLY_EMBEDDED_PLAYER",
		Version:   ytTVEmbedVersion,
		HeaderID:  "85",
		UserAgent: "Mozilla/5.0 (PlayStation; PlayStation 4/12.00) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/15.4 Safari/605.1.15",
		EmbedURL:  "https://www.youtube.com/",
	}
	ClientWeb = ClientIdentity{
		Name:      "WEB",
		Version:   ytWebVersion,
		HeaderID:  "1",
		UserAgent: engine.UserAgentChrome,
	}
)

// DefaultClients is the impersonation order: mobile, embedded TV, then web.
var DefaultClients = []ClientIdentity{ClientAndroid, ClientTVEmbedded, ClientWeb}

// LookupClient resolves a client by its clientName (case-insensitive) and
// applies version when non-empty.
func LookupClient(name, version string) (ClientIdentity, bool) {
	for _, c := range DefaultClients {
		if strings.EqualFold(c.Name, name) {
			if version != "" {
				c.Version = version
			}
			return c, true
		}
	}
	return ClientIdentity{}, false
}

type innertubeReq struct {
	VideoID        string       `json:"videoId"`
	Context        innertubeCtx `json:"context"`
	RacyCheckOk    bool         `json:"racyCheckOk"`
	ContentCheckOk bool         `json:"contentCheckOk"`
}

type innertubeCtx struct {
	Client     innertubeClient      `json:"client"`
	ThirdParty *innertubeThirdParty `json:"thirdParty,omitempty"`
}

type innertubeClient struct {
	ClientName        string `json:"clientName"`
	ClientVersion     string `json:"clientVersion"`
	AndroidSdkVersion int    `json:"androidSdkVersion,omitempty"`
	Hl                string `json:"hl,omitempty"`
	Gl                string `json:"gl,omitempty"`
}

type innertubeThirdParty struct {
	EmbedURL string `json:"embedUrl"`
}

// PlayerRequestBody builds the JSON body for POST /youtubei/v1/player.
func PlayerRequestBody(videoID string, c ClientIdentity) ([]byte, error) {
	req := innertubeReq{
		VideoID: videoID,
		Context: innertubeCtx{
			Client: innertubeClient{
				ClientName:        c.Name,
				ClientVersion:     c.Version,
				AndroidSdkVersion: c.AndroidSDK,
				Hl:                "en",
				Gl:                "US",
			},
		},
		RacyCheckOk:    true,
		ContentCheckOk: true,
	}
	if c.EmbedURL != "" {
		req.Context.ThirdParty = &innertubeThirdParty{EmbedURL: c.EmbedURL}
	}
	return json.Marshal(req)
}
