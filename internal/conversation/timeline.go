// ABOUTME: Append-only conversation timeline with a server-assigned correlator
// ABOUTME: Tags entries as real or synthesized so notices never reach the server as history

package conversation

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Role is the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Origin distinguishes genuine conversation content from client-generated notices.
type Origin string

const (
	OriginReal        Origin = "real"
	OriginSynthesized Origin = "synthesized"
)

// Message is immutable once appended.
type Message struct {
	Content   string
	Role      Role
	Timestamp time.Time
}

// Entry is a Message at a fixed position in the timeline.
type Entry struct {
	ID      string
	Message Message
	Origin  Origin
}

// Synthesized reports whether the entry was generated by the client.
func (e Entry) Synthesized() bool {
	return e.Origin == OriginSynthesized
}

// Timeline is an ordered, append-only sequence of entries plus the current
// conversation correlator. Entries are never reordered or removed.
type Timeline struct {
	mu         sync.RWMutex
	entries    []Entry
	correlator string
}

// NewTimeline creates an empty timeline.
func NewTimeline() *Timeline {
	return &Timeline{}
}

// Append adds msg to the end and returns the stored entry.
func (t *Timeline) Append(msg Message, origin Origin) Entry {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	entry := Entry{
		ID:      uuid.New().String(),
		Message: msg,
		Origin:  origin,
	}

	t.mu.Lock()
	t.entries = append(t.entries, entry)
	t.mu.Unlock()

	return entry
}

// Entries returns a copy of all entries in order.
func (t *Timeline) Entries() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Len returns the number of entries.
func (t *Timeline) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// At returns the entry at position i.
func (t *Timeline) At(i int) (Entry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if i < 0 || i >= len(t.entries) {
		return Entry{}, false
	}
	return t.entries[i], true
}

// History returns only real messages, in order.
func (t *Timeline) History() []Message {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []Message
	for _, e := range t.entries {
		if e.Origin == OriginReal {
			out = append(out, e.Message)
		}
	}
	return out
}

// HasReal reports whether any real message has been appended.
func (t *Timeline) HasReal() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, e := range t.entries {
		if e.Origin == OriginReal {
			return true
		}
	}
	return false
}

// Correlator returns the current conversation ID, or "" if none was assigned.
func (t *Timeline) Correlator() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.correlator
}

// SetCorrelator replaces the correlator. An empty id is ignored; the client
// never clears a correlator once the server has assigned one.
func (t *Timeline) SetCorrelator(id string) {
	if id == "" {
		return
	}
	t.mu.Lock()
	t.correlator = id
	t.mu.Unlock()
}
