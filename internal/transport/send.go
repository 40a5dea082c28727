// ABOUTME: Send contract: one message in, one reply out, over whichever path is available
// ABOUTME: Socket sends wait for a pushed reply; otherwise a one-shot POST /api/chat is used

package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"

	"github.com/2389/kitchat/internal/credentials"
)

// Send delivers req and returns the reply. Blank messages are rejected with
// ErrEmptyMessage before any network activity, a missing credential with
// ErrNotConfigured, and a second concurrent send with ErrBusy.
//
// When the socket is open the message is written there and Send waits up to
// SendTimeout for the pushed reply (ErrReplyTimeout). Otherwise, or when the
// socket write itself fails, the message is POSTed to the fallback endpoint.
// A timed-out or cancelled socket send is not retried on the fallback path,
// since the backend may already be processing it. The socket is closed so a
// late reply cannot resolve a later send; the supervisor redials.
func (t *Transport) Send(ctx context.Context, req Request) (Reply, error) {
	if strings.TrimSpace(req.Message) == "" {
		return Reply{}, ErrEmptyMessage
	}

	t.mu.Lock()
	if t.sending {
		t.mu.Unlock()
		return Reply{}, ErrBusy
	}
	pair := req.Credentials
	if pair.IsZero() {
		pair = t.pair
	}
	if !pair.Complete() {
		t.mu.Unlock()
		return Reply{}, ErrNotConfigured
	}
	t.sending = true
	conn := t.conn
	var replyCh chan inboundFrame
	if t.state == StateOpen && conn != nil {
		replyCh = make(chan inboundFrame, 1)
		t.pending = replyCh
	}
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		t.sending = false
		t.pending = nil
		t.mu.Unlock()
	}()

	if replyCh != nil {
		reply, err := t.sendSocket(ctx, conn, replyCh, req, pair)
		if !errors.Is(err, errSocketWrite) {
			return reply, err
		}
		t.logger.Warn("socket write failed, using fallback", "error", err)
		t.mu.Lock()
		t.pending = nil
		t.mu.Unlock()
	}

	return t.sendFallback(ctx, req, pair)
}

// errSocketWrite marks a failure before the message left the client.
var errSocketWrite = errors.New("socket write failed")

func (t *Transport) sendSocket(ctx context.Context, conn *websocket.Conn, replyCh <-chan inboundFrame, req Request, pair credentials.Pair) (Reply, error) {
	frame, err := json.Marshal(outboundFrame{
		Message:        req.Message,
		ConversationID: correlatorPtr(req.ConversationID),
		KitAPIKey:      pair.Kit,
		ClaudeAPIKey:   pair.Claude,
	})
	if err != nil {
		return Reply{}, fmt.Errorf("encoding frame: %w", err)
	}

	writeCtx, cancel := context.WithTimeout(ctx, t.cfg.SendTimeout)
	defer cancel()
	if err := conn.Write(writeCtx, websocket.MessageText, frame); err != nil {
		return Reply{}, fmt.Errorf("%w: %w", errSocketWrite, err)
	}
	t.logger.Debug("message sent", "path", PathSocket, "conversation_id", req.ConversationID)

	timer := time.NewTimer(t.cfg.SendTimeout)
	defer timer.Stop()

	select {
	case in := <-replyCh:
		return Reply{
			Text:           in.Response,
			ConversationID: in.ConversationID,
			Timestamp:      parseTimestamp(in.Timestamp),
			Path:           PathSocket,
		}, nil
	case <-timer.C:
		// A reply arriving now would answer the next send; drop the socket.
		t.logger.Warn("no reply before timeout, closing socket", "timeout", t.cfg.SendTimeout)
		conn.CloseNow()
		return Reply{}, ErrReplyTimeout
	case <-ctx.Done():
		conn.CloseNow()
		return Reply{}, ctx.Err()
	}
}

func (t *Transport) sendFallback(ctx context.Context, req Request, pair credentials.Pair) (Reply, error) {
	body, err := json.Marshal(chatRequest{
		Message:        req.Message,
		ConversationID: correlatorPtr(req.ConversationID),
	})
	if err != nil {
		return Reply{}, fmt.Errorf("encoding request: %w", err)
	}

	url := t.cfg.BaseURL + "/api/chat"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Reply{}, fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(HeaderKitAPIKey, pair.Kit)
	httpReq.Header.Set(HeaderClaudeAPIKey, pair.Claude)

	t.logger.Debug("message sent", "path", PathFallback, "conversation_id", req.ConversationID)

	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return Reply{}, fmt.Errorf("chat request failed: %w", err)
	}
	defer resp.Body.Close()

	buf, err := io.ReadAll(io.LimitReader(resp.Body, maxFrameSize))
	if err != nil {
		return Reply{}, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Reply{}, &StatusError{
			StatusCode: resp.StatusCode,
			URL:        url,
			Body:       string(buf),
		}
	}

	var out chatResponse
	if err := json.Unmarshal(buf, &out); err != nil {
		return Reply{}, fmt.Errorf("decoding response: %w", err)
	}
	if out.Response == nil {
		return Reply{}, ErrMalformedReply
	}

	return Reply{
		Text:           *out.Response,
		ConversationID: out.ConversationID,
		Timestamp:      time.Now(),
		Path:           PathFallback,
	}, nil
}
