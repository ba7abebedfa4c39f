// Package qr encodes and decodes the payload embedded in attendance QR
// images. Two wire forms are supported: the structured JSON payload used by
// current clients, and the older URL form where the session id is the path
// segment after "mark". Both stay supported until all printed codes using the
// URL form have expired.
package qr

import (
	"encoding/json"
	"errors"
	"net/url"
	"strings"
)

// markSegment is the path marker preceding the session id in URL payloads,
// e.g. https://host/api/qr/mark/<sessionId>.
const markSegment = "mark"

// ErrInvalidFormat is returned when a payload matches neither wire form.
var ErrInvalidFormat = errors.New("qr: payload is not a recognized format")

// Payload is the structured form embedded in generated QR images.
type Payload struct {
	SessionID string `json:"sessionId"`
	ClassName string `json:"className,omitempty"`
}

// Encode serializes the structured payload for embedding in a QR image.
func Encode(sessionID, className string) (string, error) {
	if sessionID == "" {
		return "", ErrInvalidFormat
	}
	raw, err := json.Marshal(Payload{SessionID: sessionID, ClassName: className})
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// Decode extracts the session id from a scanned or manually entered payload.
// The structured JSON form is tried first, then the URL form.
func Decode(payload string) (string, error) {
	trimmed := strings.TrimSpace(payload)
	if trimmed == "" {
		return "", ErrInvalidFormat
	}

	var structured Payload
	if err := json.Unmarshal([]byte(trimmed), &structured); err == nil && structured.SessionID != "" {
		return structured.SessionID, nil
	}

	if id := sessionIDFromURL(trimmed); id != "" {
		return id, nil
	}

	return "", ErrInvalidFormat
}

// sessionIDFromURL pulls the segment following the mark marker out of a
// URL-shaped payload. Returns "" when the payload does not parse as a URL or
// carries no usable segment.
func sessionIDFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if u.Path == "" {
		return ""
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, seg := range segments {
		if seg == markSegment && i+1 < len(segments) && segments[i+1] != "" {
			return segments[i+1]
		}
	}
	return ""
}
