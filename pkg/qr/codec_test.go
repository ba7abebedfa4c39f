package qr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	payload, err := Encode("qr-session-123", "CS101")
	require.NoError(t, err)

	id, err := Decode(payload)
	require.NoError(t, err)
	assert.Equal(t, "qr-session-123", id)
}

func TestEncodeRequiresSessionID(t *testing.T) {
	_, err := Encode("", "CS101")
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func TestDecodeURLFallback(t *testing.T) {
	cases := map[string]string{
		"https://attendance.uni.edu/api/qr/mark/abc-123":       "abc-123",
		"http://localhost:8080/api/qr/mark/abc-123/":           "abc-123",
		"https://attendance.uni.edu/api/qr/mark/abc-123?x=1":   "abc-123",
		"/api/qr/mark/5f1c9d2e":                                "5f1c9d2e",
	}
	for payload, want := range cases {
		id, err := Decode(payload)
		require.NoError(t, err, payload)
		assert.Equal(t, want, id, payload)
	}
}

func TestDecodeRejectsUnknownShapes(t *testing.T) {
	cases := []string{
		"",
		"   ",
		"{\"className\":\"CS101\"}",
		"https://attendance.uni.edu/api/qr/mark/",
		"https://attendance.uni.edu/api/qr/sessions/abc",
		"not a payload at all {{",
	}
	for _, payload := range cases {
		_, err := Decode(payload)
		assert.ErrorIs(t, err, ErrInvalidFormat, payload)
	}
}
