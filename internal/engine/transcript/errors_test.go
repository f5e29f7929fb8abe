package transcript

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyMessage(t *testing.T) {
	tests := []struct {
		msg  string
		want ErrorKind
	}{
		{"Transcript is disabled on this video", KindDisabled},
		{"Subtitles are disabled for this video", KindDisabled},
		{"This video is private", KindPrivateOrRestricted},
		{"LOGIN_REQUIRED: Sign in to confirm your age", KindPrivateOrRestricted},
		{"Video unavailable", KindUnavailable},
		{"video not found", KindUnavailable},
		{"Transcript not available for this video", KindNotAvailable},
		{"Could not retrieve a transcript", KindNotAvailable},
		{"request timed out", KindTimeout},
		{"fetch failed: connection reset", KindNetworkError},
		{"TypeError: Failed to fetch", KindNetworkError},
		{"fetch timedtext: unexpected body", KindUnknown},
		{"HTTP 429 Too Many Requests", KindNetworkError},
		{"something odd happened", KindUnknown},
		{"", KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyMessage(tt.msg))
		})
	}
}

func TestClassify_PrefersCode(t *testing.T) {
	// The message alone would read as a network failure.
	err := newError(StrategyScrape, KindDisabled, "fetch ok", errors.New("connection fine"))
	assert.Equal(t, KindDisabled, Classify(err))
	assert.Equal(t, KindDisabled, Classify(fmt.Errorf("wrapped: %w", err)))
}

func TestClassify_ErrorTypes(t *testing.T) {
	assert.Equal(t, KindTimeout, Classify(fmt.Errorf("x: %w", context.DeadlineExceeded)))
	assert.Equal(t, KindNetworkError, Classify(&net.OpError{Op: "dial", Net: "tcp", Err: errors.New("refused")}))
	assert.Equal(t, KindNetworkError, Classify(&net.DNSError{Err: "no such host", Name: "x.invalid"}))
	assert.Equal(t, KindNetworkError, Classify(&StatusError{StatusCode: 429}))
	assert.Equal(t, KindNetworkError, Classify(&StatusError{StatusCode: 503}))
	assert.Equal(t, KindUnknown, Classify(&StatusError{StatusCode: 418}))
	assert.Equal(t, KindUnknown, Classify(nil))
}

func TestError_Message(t *testing.T) {
	err := newError("s", KindNotAvailable, "msg", ErrNoCaptions)
	assert.Equal(t, "s: msg: "+ErrNoCaptions.Error(), err.Error())
	assert.ErrorIs(t, err, ErrNoCaptions)
	assert.Equal(t, "s: only", newError("s", "", "only", nil).Error())
}

func TestClassify_IgnoresStrategyName(t *testing.T) {
	assert.Equal(t, KindUnknown, Classify(newError(StrategyDelegated, "", "no player response in page", nil)))
	assert.Equal(t, KindUnknown, Classify(fmt.Errorf("%s ANDROID: relay /fetch-player: decode: %w",
		StrategyDelegated, errors.New("invalid character 'o' in literal null"))))

	// An uncoded error still classifies by its message and cause.
	assert.Equal(t, KindPrivateOrRestricted, Classify(newError(StrategyDelegated, "", "this video is private", nil)))
	assert.Equal(t, KindTimeout, Classify(newError(StrategyDelegated, "", "player", context.DeadlineExceeded)))
}
