// ABOUTME: Fake kitchat backend serving status probes, chat and the websocket endpoint
// ABOUTME: Used for local development and end-to-end tests without Kit.com or Claude

package fakebackend

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// Credential header names, shared with the real backend.
const (
	HeaderKitAPIKey    = "X-Kit-API-Key"
	HeaderClaudeAPIKey = "X-Claude-API-Key"
)

// isoLayout matches the naive ISO timestamps the real backend emits.
const isoLayout = "2006-01-02T15:04:05.000000"

// Responder produces the assistant reply for a message. turn counts the
// messages seen in the conversation, starting at 1.
type Responder func(ctx context.Context, message, conversationID string, turn int) (string, error)

// Config controls the fake backend's behaviour.
type Config struct {
	// KitKey and ClaudeKey, when set, are the only keys accepted. When
	// empty, any non-empty key is accepted.
	KitKey    string
	ClaudeKey string

	// Account and Model are reported by the status endpoints.
	Account string
	Model   string

	// DisableWebSocket makes /ws return 404 so clients use the fallback.
	DisableWebSocket bool

	// Responder generates replies; EchoResponder when nil.
	Responder Responder
}

// Server is the fake backend.
type Server struct {
	cfg    Config
	logger *slog.Logger

	mu            sync.Mutex
	conversations map[string]int
	sockets       map[string]*websocket.Conn
}

// New creates a Server.
func New(cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Account == "" {
		cfg.Account = "Fake Creator"
	}
	if cfg.Model == "" {
		cfg.Model = "fake-claude"
	}
	if cfg.Responder == nil {
		cfg.Responder = EchoResponder
	}
	return &Server{
		cfg:           cfg,
		logger:        logger.With("component", "fakebackend"),
		conversations: make(map[string]int),
		sockets:       make(map[string]*websocket.Conn),
	}
}

// Router returns the HTTP handler with all routes mounted.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(s.logger))

	r.Get("/healthz", s.handleHealthz)

	r.Route("/api", func(r chi.Router) {
		r.With(requireKey(HeaderKitAPIKey, "Kit.com", s.cfg.KitKey)).Get("/status/kit", s.handleKitStatus)
		r.With(requireKey(HeaderClaudeAPIKey, "Claude", s.cfg.ClaudeKey)).Get("/status/claude", s.handleClaudeStatus)
		r.With(
			requireKey(HeaderKitAPIKey, "Kit.com", s.cfg.KitKey),
			requireKey(HeaderClaudeAPIKey, "Claude", s.cfg.ClaudeKey),
		).Post("/chat", s.handleChat)
	})

	if !s.cfg.DisableWebSocket {
		r.Get("/ws", s.handleWebSocket)
	}

	return r
}

// Connections returns the number of open websockets.
func (s *Server) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sockets)
}

// DropConnections closes every open websocket, as a backend restart would.
func (s *Server) DropConnections() {
	s.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(s.sockets))
	for _, c := range s.sockets {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		c.Close(websocket.StatusGoingAway, "server restarting")
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleKitStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "connected",
		"account": s.cfg.Account,
	})
}

func (s *Server) handleClaudeStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "connected",
		"model":  s.cfg.Model,
	})
}

type chatRequest struct {
	Message        string  `json:"message"`
	ConversationID *string `json:"conversation_id"`
}

type chatReply struct {
	Response       string `json:"response,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
	Timestamp      string `json:"timestamp,omitempty"`
	Error          string `json:"error,omitempty"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	reply, err := s.process(r.Context(), req)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, fmt.Sprintf("Error processing message: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

type socketFrame struct {
	Message        string  `json:"message"`
	ConversationID *string `json:"conversation_id"`
	KitAPIKey      string  `json:"kit_api_key"`
	ClaudeAPIKey   string  `json:"claude_api_key"`
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket accept failed", "error", err)
		return
	}
	id := uuid.New().String()

	s.mu.Lock()
	s.sockets[id] = conn
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.sockets, id)
		s.mu.Unlock()
		conn.CloseNow()
	}()

	ctx := r.Context()
	s.logger.Debug("websocket connected", "connection_id", id)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			s.logger.Debug("websocket closed", "connection_id", id, "status", websocket.CloseStatus(err))
			return
		}

		out := s.handleFrame(ctx, data)
		b, err := json.Marshal(out)
		if err != nil {
			return
		}
		if err := conn.Write(ctx, websocket.MessageText, b); err != nil {
			return
		}
	}
}

func (s *Server) handleFrame(ctx context.Context, data []byte) chatReply {
	now := time.Now().Format(isoLayout)

	var frame socketFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return chatReply{Error: "Invalid JSON", Timestamp: now}
	}
	if msg := checkKey(frame.KitAPIKey, "Kit.com", s.cfg.KitKey); msg != "" {
		return chatReply{Error: msg, Timestamp: now}
	}
	if msg := checkKey(frame.ClaudeAPIKey, "Claude", s.cfg.ClaudeKey); msg != "" {
		return chatReply{Error: msg, Timestamp: now}
	}

	reply, err := s.process(ctx, chatRequest{Message: frame.Message, ConversationID: frame.ConversationID})
	if err != nil {
		return chatReply{Error: fmt.Sprintf("Error processing message: %v", err), Timestamp: now}
	}
	reply.Timestamp = now
	return reply
}

// process assigns or continues a conversation and asks the responder.
func (s *Server) process(ctx context.Context, req chatRequest) (chatReply, error) {
	s.mu.Lock()
	id := ""
	if req.ConversationID != nil {
		id = *req.ConversationID
	}
	if id == "" {
		id = uuid.New().String()
	}
	s.conversations[id]++
	turn := s.conversations[id]
	s.mu.Unlock()

	text, err := s.cfg.Responder(ctx, req.Message, id, turn)
	if err != nil {
		return chatReply{}, err
	}
	return chatReply{Response: text, ConversationID: id}, nil
}

// EchoResponder answers with a small markdown echo of the message.
func EchoResponder(ctx context.Context, message, conversationID string, turn int) (string, error) {
	return fmt.Sprintf("**You said:** %s\n\n_Message %d in this conversation._", message, turn), nil
}
