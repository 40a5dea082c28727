// ABOUTME: In-memory fan-out broadcaster for component state-change notifications
// ABOUTME: Publishes Events to all subscribers of a topic (or of TopicAll)

package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// subscriberBufferSize is the channel buffer for each subscriber.
	subscriberBufferSize = 64
)

// Topics published by kitchat components.
const (
	TopicCredentials = "credentials"
	TopicHealth      = "health"
	TopicTransport   = "transport"
	TopicTimeline    = "timeline"

	// TopicAll receives every event regardless of its topic.
	TopicAll = "*"
)

// Event describes a state change. Payload carries a read-only snapshot owned
// by the publisher; it may be nil.
type Event struct {
	ID      string
	Topic   string
	Kind    string
	At      time.Time
	Payload any
}

// NewEvent builds an Event stamped with a fresh ID and the current time.
func NewEvent(topic, kind string, payload any) *Event {
	return &Event{
		ID:      uuid.New().String(),
		Topic:   topic,
		Kind:    kind,
		At:      time.Now(),
		Payload: payload,
	}
}

// Publisher is the narrow interface components depend on.
type Publisher interface {
	Publish(topic string, event *Event, excludeSubID string)
}

// Broadcaster provides in-memory pub/sub keyed by topic.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[string]map[string]chan *Event // topic -> subID -> ch
	closed      bool
	logger      *slog.Logger
}

// NewBroadcaster creates a broadcaster. Pass nil logger for default.
func NewBroadcaster(logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{
		subscribers: make(map[string]map[string]chan *Event),
		logger:      logger.With("component", "events"),
	}
}

// Subscribe registers a subscriber for events on the given topic.
// Returns a channel that receives events and a subscription ID for later
// unsubscription. The subscription is automatically cleaned up when ctx is
// cancelled.
func (b *Broadcaster) Subscribe(ctx context.Context, topic string) (<-chan *Event, string) {
	subID := uuid.New().String()
	ch := make(chan *Event, subscriberBufferSize)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, subID
	}
	if _, ok := b.subscribers[topic]; !ok {
		b.subscribers[topic] = make(map[string]chan *Event)
	}
	b.subscribers[topic][subID] = ch
	b.mu.Unlock()

	b.logger.Debug("subscriber added", "topic", topic, "sub_id", subID)

	go func() {
		<-ctx.Done()
		b.Unsubscribe(topic, subID)
	}()

	return ch, subID
}

// Publish sends an event to all subscribers of the given topic and to
// TopicAll subscribers. If excludeSubID is non-empty, that subscriber is
// skipped. Non-blocking: events are dropped for subscribers whose channels
// are full.
func (b *Broadcaster) Publish(topic string, event *Event, excludeSubID string) {
	if event.Topic == "" {
		event.Topic = topic
	}

	b.mu.RLock()
	var targets []chan *Event
	for _, key := range []string{topic, TopicAll} {
		for id, ch := range b.subscribers[key] {
			if excludeSubID != "" && id == excludeSubID {
				continue
			}
			targets = append(targets, ch)
		}
	}

	// Sends happen under the read lock so Unsubscribe cannot close a channel
	// mid-send; they are non-blocking so the lock is held briefly.
	for _, ch := range targets {
		select {
		case ch <- event:
		default:
			b.logger.Debug("dropped event for slow subscriber",
				"topic", topic,
				"event_id", event.ID)
		}
	}
	b.mu.RUnlock()
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Broadcaster) Unsubscribe(topic, subID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.subscribers[topic]
	if !ok {
		return
	}

	ch, exists := subs[subID]
	if !exists {
		return
	}

	delete(subs, subID)
	close(ch)

	if len(subs) == 0 {
		delete(b.subscribers, topic)
	}

	b.logger.Debug("subscriber removed", "topic", topic, "sub_id", subID)
}

// Close shuts down the broadcaster and closes all subscriber channels.
// Later subscriptions receive an already-closed channel.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for topic, subs := range b.subscribers {
		for subID, ch := range subs {
			close(ch)
			delete(subs, subID)
		}
		delete(b.subscribers, topic)
	}
	b.closed = true

	b.logger.Debug("broadcaster closed")
}
