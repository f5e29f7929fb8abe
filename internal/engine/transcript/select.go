package transcript

import "strings"

// DefaultLanguage is the target language when none is configured.
const DefaultLanguage = "en"

// SelectTrack returns the track whose language code equals lang, or the
// first track in the given order.
func SelectTrack(tracks []CaptionTrack, lang string) (CaptionTrack, error) {
	if len(tracks) == 0 {
		return CaptionTrack{}, ErrNoTrackAvailable
	}
	if lang == "" {
		lang = DefaultLanguage
	}
	for _, t := range tracks {
		if t.LanguageCode == lang {
			return t, nil
		}
	}
	return tracks[0], nil
}

// UsableTracks drops tracks whose URL demands a proof-of-origin token
// (exp=xpe); such URLs answer with an empty body. When every track needs
// one the list is returned unchanged.
func UsableTracks(tracks []CaptionTrack) []CaptionTrack {
	var out []CaptionTrack
	for _, t := range tracks {
		if !strings.Contains(t.BaseURL, "&exp=xpe") {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return tracks
	}
	return out
}
