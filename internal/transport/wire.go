// ABOUTME: Wire formats for the websocket and HTTP chat endpoints
// ABOUTME: Frame encoding, URL derivation and lenient timestamp parsing

package transport

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// outboundFrame is sent over the websocket. Credentials travel in the frame.
type outboundFrame struct {
	Message        string  `json:"message"`
	ConversationID *string `json:"conversation_id"`
	KitAPIKey      string  `json:"kit_api_key"`
	ClaudeAPIKey   string  `json:"claude_api_key"`
}

// inboundFrame is pushed by the backend over the websocket.
type inboundFrame struct {
	Response       string `json:"response,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
	Timestamp      string `json:"timestamp,omitempty"`
	Error          string `json:"error,omitempty"`
}

// chatRequest is the body of POST /api/chat. Credentials go in headers.
type chatRequest struct {
	Message        string  `json:"message"`
	ConversationID *string `json:"conversation_id"`
}

// chatResponse is the body returned by POST /api/chat.
type chatResponse struct {
	Response       *string `json:"response"`
	ConversationID string  `json:"conversation_id,omitempty"`
}

// Credential header names on the fallback path.
const (
	HeaderKitAPIKey    = "X-Kit-API-Key"
	HeaderClaudeAPIKey = "X-Claude-API-Key"
)

// correlatorPtr maps an unset correlator to JSON null.
func correlatorPtr(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}

// WebSocketURL derives the socket endpoint from the HTTP base URL:
// http becomes ws, https becomes wss, and "/ws" is appended to the path.
func WebSocketURL(baseURL string) (string, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported base URL scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String(), nil
}

// timestampLayouts covers RFC 3339 and the naive ISO form the backend emits.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
}

// parseTimestamp parses a frame timestamp. Naive values are read as local
// time. Unparseable or empty values fall back to now.
func parseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Now()
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t
		}
	}
	return time.Now()
}
