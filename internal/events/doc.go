// Package events provides in-memory change notifications for kitchat.
//
// # Overview
//
// Components publish an Event whenever their observable state changes:
//
//   - credentials: a settings pair was saved, cleared or reloaded
//   - health: a Health Monitor changed state
//   - transport: the persistent channel changed state
//   - timeline: the conversation timeline or pending flag changed
//
// Consumers (the composition root in internal/client and the TUI) subscribe
// per topic, or to TopicAll to receive everything.
//
// # Delivery
//
// Publish never blocks. Each subscriber has a buffered channel; events are
// dropped for subscribers that fall behind. Consumers therefore treat an
// event as "something changed, re-read the snapshot" rather than as a delta.
//
// # Usage
//
//	b := events.NewBroadcaster(logger)
//	ch, _ := b.Subscribe(ctx, events.TopicHealth)
//	for evt := range ch {
//	    snap := monitor.Snapshot()
//	    ...
//	}
package events
