// ABOUTME: Connection supervisor that dials, reads and redials the websocket
// ABOUTME: Applies the reconnect delay and routes reply frames to the pending send

package transport

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/coder/websocket"

	"github.com/2389/kitchat/internal/credentials"
)

// Run supervises the websocket until ctx is cancelled. Only one Run may be
// active per Transport.
func (t *Transport) Run(ctx context.Context) error {
	t.logger.Info("transport supervisor started", "url", t.wsURL)
	defer t.logger.Info("transport supervisor stopped")

	delay := t.cfg.ReconnectDelay

	for {
		if ctx.Err() != nil {
			t.setState(StateDisconnected, nil)
			return nil
		}

		t.mu.Lock()
		pair := t.pair
		t.mu.Unlock()

		if !pair.Complete() {
			t.setState(StateDisconnected, nil)
			if !t.idle(ctx, 0) {
				return nil
			}
			continue
		}

		t.setState(StateConnecting, nil)
		conn, err := t.dial(ctx)
		if err != nil {
			t.setState(StateDisconnected, nil)
			if ctx.Err() != nil {
				return nil
			}
			t.logger.Warn("websocket dial failed", "error", err, "retry_in", delay)
			if !t.idle(ctx, delay) {
				return nil
			}
			delay = t.nextDelay(delay)
			continue
		}

		// Credentials changed while dialing: start over with the new pair.
		t.drainWake()
		if !t.open(pair, conn) {
			conn.CloseNow()
			t.setState(StateDisconnected, nil)
			continue
		}
		t.logger.Info("websocket connected")
		delay = t.cfg.ReconnectDelay

		err = t.readLoop(ctx, conn)
		conn.CloseNow()
		t.setState(StateDisconnected, nil)

		if ctx.Err() != nil {
			return nil
		}
		t.logger.Info("websocket disconnected", "reason", closeReason(err), "retry_in", delay)

		if t.credentialsChanged(pair) {
			continue
		}
		if !t.idle(ctx, delay) {
			return nil
		}
	}
}

// idle waits for a nudge, or for d when d is positive. It returns false when
// ctx is done.
func (t *Transport) idle(ctx context.Context, d time.Duration) bool {
	var timeout <-chan time.Time
	if d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case <-ctx.Done():
		return false
	case <-t.wake:
		return true
	case <-timeout:
		return true
	}
}

func (t *Transport) drainWake() {
	select {
	case <-t.wake:
	default:
	}
}

// open stores conn as the live socket if dialed is still the current pair.
// An Update either sees conn and closes it, or runs first and open reports false.
func (t *Transport) open(dialed credentials.Pair, conn *websocket.Conn) bool {
	t.mu.Lock()
	if t.pair != dialed {
		t.mu.Unlock()
		return false
	}
	changed := t.state != StateOpen
	t.state = StateOpen
	t.conn = conn
	t.mu.Unlock()

	if changed {
		t.publishState(StateOpen)
	}
	return true
}

func (t *Transport) credentialsChanged(dialed credentials.Pair) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pair != dialed
}

// nextDelay doubles d up to MaxReconnectDelay, or keeps it fixed when no
// maximum above the base delay is configured.
func (t *Transport) nextDelay(d time.Duration) time.Duration {
	if t.cfg.MaxReconnectDelay <= t.cfg.ReconnectDelay {
		return t.cfg.ReconnectDelay
	}
	d *= 2
	if d > t.cfg.MaxReconnectDelay {
		d = t.cfg.MaxReconnectDelay
	}
	return d
}

func (t *Transport) dial(ctx context.Context) (*websocket.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	conn, _, err := websocket.Dial(dialCtx, t.wsURL, t.dialOpts)
	if err != nil {
		return nil, err
	}
	conn.SetReadLimit(maxFrameSize)
	return conn, nil
}

// readLoop reads frames until the socket fails or ctx is done.
func (t *Transport) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		if typ != websocket.MessageText {
			t.logger.Warn("dropping non-text frame", "type", typ.String())
			continue
		}
		t.handleFrame(data)
	}
}

// handleFrame routes a reply to the pending send. Unparseable frames and
// frames carrying an error field are logged and dropped; they never resolve
// the pending send.
func (t *Transport) handleFrame(data []byte) {
	var frame inboundFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		t.logger.Warn("dropping malformed frame", "error", err, "size", len(data))
		return
	}
	if frame.Error != "" {
		t.logger.Warn("dropping error frame", "error", frame.Error)
		return
	}
	if frame.Response == "" {
		t.logger.Debug("dropping frame without response")
		return
	}

	t.mu.Lock()
	pending := t.pending
	t.pending = nil
	t.mu.Unlock()

	if pending == nil {
		t.logger.Warn("dropping reply with no send in flight", "conversation_id", frame.ConversationID)
		return
	}
	pending <- frame
}

func closeReason(err error) string {
	if err == nil {
		return ""
	}
	if status := websocket.CloseStatus(err); status != -1 {
		return status.String()
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	return err.Error()
}
