// ABOUTME: Tests for the topic-keyed Broadcaster
// ABOUTME: Covers subscribe, publish, TopicAll, unsubscribe, context cancellation, concurrency

package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcaster_SingleSubscriberReceivesEvent(t *testing.T) {
	b := NewBroadcaster(nil)
	defer b.Close()

	ch, _ := b.Subscribe(t.Context(), TopicHealth)

	event := NewEvent(TopicHealth, "state", nil)
	b.Publish(TopicHealth, event, "")

	select {
	case received := <-ch:
		assert.Equal(t, event.ID, received.ID)
		assert.Equal(t, TopicHealth, received.Topic)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestBroadcaster_TopicsAreIsolated(t *testing.T) {
	b := NewBroadcaster(nil)
	defer b.Close()

	health, _ := b.Subscribe(t.Context(), TopicHealth)
	creds, _ := b.Subscribe(t.Context(), TopicCredentials)

	b.Publish(TopicHealth, NewEvent(TopicHealth, "state", nil), "")

	select {
	case <-health:
	case <-time.After(time.Second):
		t.Fatal("health subscriber timed out")
	}

	select {
	case <-creds:
		t.Fatal("credentials subscriber should not receive health events")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestBroadcaster_TopicAllReceivesEverything(t *testing.T) {
	b := NewBroadcaster(nil)
	defer b.Close()

	all, _ := b.Subscribe(t.Context(), TopicAll)

	b.Publish(TopicHealth, NewEvent(TopicHealth, "state", nil), "")
	b.Publish(TopicTimeline, NewEvent(TopicTimeline, "append", nil), "")

	var topics []string
	for range 2 {
		select {
		case evt := <-all:
			topics = append(topics, evt.Topic)
		case <-time.After(time.Second):
			t.Fatal("TopicAll subscriber timed out")
		}
	}
	assert.Equal(t, []string{TopicHealth, TopicTimeline}, topics)
}

func TestBroadcaster_ExcludeSubIDSkipsOriginator(t *testing.T) {
	b := NewBroadcaster(nil)
	defer b.Close()

	ch1, subID1 := b.Subscribe(t.Context(), TopicTimeline)
	ch2, _ := b.Subscribe(t.Context(), TopicTimeline)

	b.Publish(TopicTimeline, NewEvent(TopicTimeline, "append", nil), subID1)

	select {
	case <-ch1:
		t.Fatal("excluded subscriber should not receive the event")
	case <-time.After(100 * time.Millisecond):
	}

	select {
	case <-ch2:
	case <-time.After(time.Second):
		t.Fatal("non-excluded subscriber timed out")
	}
}

func TestBroadcaster_SlowConsumerDoesNotBlockPublisher(t *testing.T) {
	b := NewBroadcaster(nil)
	defer b.Close()

	_, _ = b.Subscribe(t.Context(), TopicTransport)
	ch2, _ := b.Subscribe(t.Context(), TopicTransport)

	done := make(chan struct{})
	go func() {
		for range subscriberBufferSize * 2 {
			b.Publish(TopicTransport, NewEvent(TopicTransport, "state", nil), "")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publisher blocked on slow consumer")
	}
	assert.NotEmpty(t, ch2)
}

func TestBroadcaster_ContextCancellationCleansUp(t *testing.T) {
	b := NewBroadcaster(nil)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch, subID := b.Subscribe(ctx, TopicHealth)

	b.mu.RLock()
	_, exists := b.subscribers[TopicHealth][subID]
	b.mu.RUnlock()
	assert.True(t, exists, "subscription should exist before cancel")

	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok, "channel should be closed after context cancel")
	case <-time.After(time.Second):
		t.Fatal("channel not closed after context cancel")
	}

	b.mu.RLock()
	_, topicExists := b.subscribers[TopicHealth]
	b.mu.RUnlock()
	assert.False(t, topicExists, "empty topic should be removed")
}

func TestBroadcaster_CloseClosesAllSubscriptions(t *testing.T) {
	b := NewBroadcaster(nil)

	ch1, _ := b.Subscribe(t.Context(), TopicHealth)
	ch2, _ := b.Subscribe(t.Context(), TopicAll)

	b.Close()

	for i, ch := range []<-chan *Event{ch1, ch2} {
		select {
		case _, ok := <-ch:
			assert.False(t, ok, "channel %d should be closed after Close()", i)
		case <-time.After(time.Second):
			t.Fatalf("channel %d not closed after Close()", i)
		}
	}

	late, _ := b.Subscribe(t.Context(), TopicHealth)
	_, ok := <-late
	assert.False(t, ok, "subscribing after Close should yield a closed channel")

	// Publishing after close must not panic.
	b.Publish(TopicHealth, NewEvent(TopicHealth, "state", nil), "")
}

func TestBroadcaster_ConcurrentPublishSubscribe(t *testing.T) {
	b := NewBroadcaster(nil)
	defer b.Close()

	var wg sync.WaitGroup
	ctx := t.Context()

	for range 10 {
		wg.Go(func() {
			ch, _ := b.Subscribe(ctx, TopicTimeline)
			for range 5 {
				select {
				case <-ch:
				case <-time.After(500 * time.Millisecond):
					return
				}
			}
		})
	}

	for range 10 {
		wg.Go(func() {
			for range 10 {
				b.Publish(TopicTimeline, NewEvent(TopicTimeline, "append", nil), "")
			}
		})
	}

	wg.Wait()
}

func TestBroadcaster_SubscribeReturnsUniqueIDs(t *testing.T) {
	b := NewBroadcaster(nil)
	defer b.Close()

	_, id1 := b.Subscribe(t.Context(), TopicHealth)
	_, id2 := b.Subscribe(t.Context(), TopicHealth)

	require.NotEqual(t, id1, id2)
}
