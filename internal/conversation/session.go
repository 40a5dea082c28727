// ABOUTME: Session drives one conversation: pending flag, dispatch and reply handling
// ABOUTME: Appends user input, sends it through the transport and records the reply or error

package conversation

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/2389/kitchat/internal/credentials"
	"github.com/2389/kitchat/internal/events"
	"github.com/2389/kitchat/internal/health"
	"github.com/2389/kitchat/internal/transport"
)

var (
	// ErrEmptyMessage is returned for blank input.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrNotConfigured is returned while either credential is missing.
	ErrNotConfigured = errors.New("API keys are not configured")
	// ErrBusy is returned while a previous message awaits its reply.
	ErrBusy = errors.New("waiting for the previous reply")
)

// Event kinds published on events.TopicTimeline.
const (
	EventAppended = "timeline.appended" // payload: Entry
	EventPending  = "timeline.pending"  // payload: bool
	EventPresence = "timeline.presence" // payload: Presence
	EventReset    = "timeline.reset"    // payload: nil
)

// Sender delivers one message and returns its reply.
type Sender interface {
	Send(ctx context.Context, req transport.Request) (transport.Reply, error)
}

// CredentialSource supplies the current credential pair.
type CredentialSource interface {
	Snapshot() credentials.Pair
}

// Result is the outcome of one submitted message.
type Result struct {
	// Entry is the appended assistant entry: the reply, or an error notice.
	Entry Entry
	Reply transport.Reply
	Err   error
}

// Session owns a Timeline and the pending flag for it.
type Session struct {
	sender    Sender
	creds     CredentialSource
	publisher events.Publisher
	logger    *slog.Logger

	mu       sync.Mutex
	timeline *Timeline
	pending  bool
	presence Presence
}

// NewSession creates a session with an empty timeline.
func NewSession(sender Sender, creds CredentialSource, publisher events.Publisher, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		timeline:  NewTimeline(),
		sender:    sender,
		creds:     creds,
		publisher: publisher,
		logger:    logger.With("component", "conversation"),
		presence:  Presence{Kind: PresenceWelcome, Text: WelcomeText},
	}
}

// Timeline returns the session's current timeline.
func (s *Session) Timeline() *Timeline {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timeline
}

// Reset starts a new conversation with an empty timeline and no
// correlator. It fails with ErrBusy while a reply is pending.
func (s *Session) Reset() error {
	s.mu.Lock()
	if s.pending {
		s.mu.Unlock()
		return ErrBusy
	}
	s.timeline = NewTimeline()
	s.presence = Presence{Kind: PresenceWelcome, Text: WelcomeText}
	s.mu.Unlock()

	s.logger.Debug("conversation reset")
	s.publish(EventReset, nil)
	return nil
}

// Pending reports whether a message is awaiting its reply.
func (s *Session) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Configured reports whether both credentials are set.
func (s *Session) Configured() bool {
	return s.creds.Snapshot().Complete()
}

// Presence returns the current notice, or PresenceReady once real
// conversation has started.
func (s *Session) Presence() Presence {
	if s.Timeline().HasReal() {
		return Presence{Kind: PresenceReady}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.presence
}

// ObserveHealth recomputes the presence from the two dependency snapshots.
// A connected or error notice is appended as a synthesized assistant entry
// when the presence changes to it and the timeline is still empty, so a
// conversation holds at most one notice and never one after a user entry.
func (s *Session) ObserveHealth(kit, claude health.Snapshot) {
	p := DerivePresence(kit, claude, s.Configured())

	s.mu.Lock()
	if p == s.presence {
		s.mu.Unlock()
		return
	}
	s.presence = p
	var (
		entry    Entry
		appended bool
	)
	if p.Notice() && !s.pending && s.timeline.Len() == 0 {
		entry = s.timeline.Append(Message{
			Content: p.Text,
			Role:    RoleAssistant,
		}, OriginSynthesized)
		appended = true
	}
	s.mu.Unlock()

	s.publish(EventPresence, p)
	if appended {
		s.logger.Debug("appended notice", "presence", p.Kind)
		s.publish(EventAppended, entry)
	}
}

// Submit appends text as a user message and dispatches it. The returned
// channel receives exactly one Result once the reply or a terminal error has
// been appended and the pending flag cleared.
func (s *Session) Submit(ctx context.Context, text string) (<-chan Result, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}
	pair := s.creds.Snapshot()
	if !pair.Complete() {
		return nil, ErrNotConfigured
	}

	s.mu.Lock()
	if s.pending {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	s.pending = true
	tl := s.timeline
	s.mu.Unlock()

	userEntry := tl.Append(Message{
		Content:   text,
		Role:      RoleUser,
		Timestamp: time.Now(),
	}, OriginReal)
	s.publish(EventAppended, userEntry)
	s.publish(EventPending, true)

	req := transport.Request{
		Message:        text,
		ConversationID: tl.Correlator(),
		Credentials:    pair,
	}

	out := make(chan Result, 1)
	go func() {
		defer close(out)
		out <- s.dispatch(ctx, tl, req)
	}()
	return out, nil
}

func (s *Session) dispatch(ctx context.Context, tl *Timeline, req transport.Request) Result {
	reply, err := s.sender.Send(ctx, req)

	var entry Entry
	if err != nil {
		s.logger.Warn("send failed", "error", err)
		entry = tl.Append(Message{
			Content:   "Error: " + err.Error(),
			Role:      RoleAssistant,
			Timestamp: time.Now(),
		}, OriginSynthesized)
	} else {
		entry = tl.Append(Message{
			Content:   reply.Text,
			Role:      RoleAssistant,
			Timestamp: reply.Timestamp,
		}, OriginReal)
		tl.SetCorrelator(reply.ConversationID)
		s.logger.Debug("reply received", "path", reply.Path, "conversation_id", tl.Correlator())
	}

	s.mu.Lock()
	s.pending = false
	s.mu.Unlock()

	s.publish(EventAppended, entry)
	s.publish(EventPending, false)

	return Result{Entry: entry, Reply: reply, Err: err}
}

func (s *Session) publish(kind string, payload any) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(events.TopicTimeline, events.NewEvent(events.TopicTimeline, kind, payload), "")
}
