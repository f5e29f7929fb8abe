package transcriptserver

import "github.com/anatolykoptev/go_transcript/internal/engine/transcript"

var reasons = map[transcript.ErrorKind]string{
	transcript.KindDisabled:            "This video's transcript is not available. Some videos have transcripts disabled by the creator.",
	transcript.KindNotAvailable:        "Unable to retrieve transcript. The video may not have captions available.",
	transcript.KindPrivateOrRestricted: "This video is private or restricted. Transcripts are only available for public videos.",
	transcript.KindUnavailable:         "This video is not available or has been removed.",
	transcript.KindTimeout:             "The request timed out. This can happen on slow networks. Please try again.",
	transcript.KindNetworkError:        "Network error. Please check your connection and try again.",
}

// HumanReason is the user-facing sentence for a failure kind.
func HumanReason(kind transcript.ErrorKind) string {
	if r, ok := reasons[kind]; ok {
		return r
	}
	return "Something went wrong while fetching the transcript. Please try again."
}

// FailureMessage prefixes the reason the way every tool response does.
func FailureMessage(kind transcript.ErrorKind) string {
	return "Unable to fetch transcript: " + HumanReason(kind)
}
