// ABOUTME: Tests for the fake backend
// ABOUTME: Exercises status probes, chat, key checks and websocket frames

package fakebackend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, cfg Config) (*Server, *httptest.Server) {
	t.Helper()
	s := New(cfg, slog.Default())
	srv := httptest.NewServer(s.Router())
	t.Cleanup(srv.Close)
	return s, srv
}

func TestHealthz(t *testing.T) {
	s := New(Config{}, slog.Default())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestStatusEndpoints(t *testing.T) {
	s := New(Config{KitKey: "kit", ClaudeKey: "claude", Account: "Acme", Model: "m1"}, slog.Default())
	router := s.Router()

	tests := []struct {
		name     string
		path     string
		header   string
		value    string
		wantCode int
		wantBody string
	}{
		{"kit ok", "/api/status/kit", HeaderKitAPIKey, "kit", http.StatusOK, `{"status":"connected","account":"Acme"}`},
		{"kit missing", "/api/status/kit", "", "", http.StatusBadRequest, `{"detail":"Kit.com API key is required"}`},
		{"kit wrong", "/api/status/kit", HeaderKitAPIKey, "nope", http.StatusUnauthorized, `{"detail":"Invalid Kit.com API key"}`},
		{"claude ok", "/api/status/claude", HeaderClaudeAPIKey, "claude", http.StatusOK, `{"status":"connected","model":"m1"}`},
		{"claude wrong", "/api/status/claude", HeaderClaudeAPIKey, "kit", http.StatusUnauthorized, `{"detail":"Invalid Claude API key"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantCode, w.Code)
			assert.JSONEq(t, tt.wantBody, w.Body.String())
		})
	}
}

func TestChat_AssignsAndContinuesConversation(t *testing.T) {
	s := New(Config{}, slog.Default())
	router := s.Router()

	post := func(body string) map[string]string {
		req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
		req.Header.Set(HeaderKitAPIKey, "k")
		req.Header.Set(HeaderClaudeAPIKey, "c")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var out map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
		return out
	}

	first := post(`{"message":"hello","conversation_id":null}`)
	assert.Contains(t, first["response"], "hello")
	assert.Contains(t, first["response"], "Message 1")
	require.NotEmpty(t, first["conversation_id"])

	second := post(`{"message":"again","conversation_id":"` + first["conversation_id"] + `"}`)
	assert.Equal(t, first["conversation_id"], second["conversation_id"])
	assert.Contains(t, second["response"], "Message 2")
}

func TestChat_MissingHeader(t *testing.T) {
	s := New(Config{}, slog.Default())

	req := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewBufferString(`{"message":"x"}`))
	req.Header.Set(HeaderKitAPIKey, "k")
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"detail":"Claude API key is required"}`, w.Body.String())
}

func TestChat_ResponderError(t *testing.T) {
	s := New(Config{Responder: func(ctx context.Context, message, id string, turn int) (string, error) {
		return "", errors.New("upstream down")
	}}, slog.Default())

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message":"x"}`))
	req.Header.Set(HeaderKitAPIKey, "k")
	req.Header.Set(HeaderClaudeAPIKey, "c")
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"detail":"Error processing message: upstream down"}`, w.Body.String())
}

func TestWebSocket_Frames(t *testing.T) {
	s, srv := newTestServer(t, Config{ClaudeKey: "claude"})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	exchange := func(frame string) map[string]string {
		require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(frame)))
		_, data, err := conn.Read(ctx)
		require.NoError(t, err)
		var out map[string]string
		require.NoError(t, json.Unmarshal(data, &out))
		return out
	}

	out := exchange(`not json`)
	assert.Equal(t, "Invalid JSON", out["error"])
	assert.NotEmpty(t, out["timestamp"])

	out = exchange(`{"message":"hi","kit_api_key":"","claude_api_key":"claude"}`)
	assert.Equal(t, "Kit.com API key is required", out["error"])

	out = exchange(`{"message":"hi","kit_api_key":"k","claude_api_key":"wrong"}`)
	assert.Equal(t, "Invalid Claude API key", out["error"])

	out = exchange(`{"message":"hi","conversation_id":null,"kit_api_key":"k","claude_api_key":"claude"}`)
	assert.Empty(t, out["error"])
	assert.Contains(t, out["response"], "hi")
	assert.NotEmpty(t, out["conversation_id"])
	_, err = time.ParseInLocation(isoLayout, out["timestamp"], time.Local)
	assert.NoError(t, err)

	assert.Equal(t, 1, s.Connections())
}

func TestWebSocket_DropConnections(t *testing.T) {
	s, srv := newTestServer(t, Config{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	require.Eventually(t, func() bool { return s.Connections() == 1 }, time.Second, 10*time.Millisecond)

	go s.DropConnections()

	_, _, err = conn.Read(ctx)
	require.Error(t, err)
	assert.Equal(t, websocket.StatusGoingAway, websocket.CloseStatus(err))

	require.Eventually(t, func() bool { return s.Connections() == 0 }, time.Second, 10*time.Millisecond)
}

func TestWebSocket_Disabled(t *testing.T) {
	_, srv := newTestServer(t, Config{DisableWebSocket: true})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, resp, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
