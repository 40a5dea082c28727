// ABOUTME: Sentinel and typed errors returned by the transport
// ABOUTME: StatusError captures non-2xx fallback responses with FastAPI detail extraction

package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyMessage is returned when the message is blank after trimming.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrNotConfigured is returned when either credential is missing.
	ErrNotConfigured = errors.New("API keys are not configured")

	// ErrBusy is returned when a send is already awaiting its reply.
	ErrBusy = errors.New("a message is already in flight")

	// ErrReplyTimeout is returned when the socket path produced no reply in time.
	ErrReplyTimeout = errors.New("timed out waiting for a reply")

	// ErrMalformedReply is returned when the fallback response has no reply text.
	ErrMalformedReply = errors.New("reply did not contain a response")
)

// StatusError captures a non-2xx response from the fallback endpoint.
type StatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("chat request failed (%d): %s", e.StatusCode, e.Detail())
}

// HTTPStatusCode returns the response status.
func (e *StatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Detail returns the "detail" field of a JSON error body, or the trimmed body.
func (e *StatusError) Detail() string {
	var body struct {
		Detail any `json:"detail"`
	}
	if err := json.Unmarshal([]byte(e.Body), &body); err == nil && body.Detail != nil {
		if s, ok := body.Detail.(string); ok {
			return s
		}
		if b, err := json.Marshal(body.Detail); err == nil {
			return string(b)
		}
	}
	return strings.TrimSpace(e.Body)
}
