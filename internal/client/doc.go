// Package client wires the kitchat components together.
//
// # Overview
//
// A Client owns one of each:
//
//   - store.RecordStore holding the settings record
//   - credentials.Store
//   - two health.Monitor instances (Kit.com and Claude)
//   - transport.Transport
//   - conversation.Session
//   - events.Broadcaster connecting them
//
// # Data Flow
//
// Run subscribes to the bus and starts:
//
//   - the transport supervisor
//   - a credential follower: each credential change updates both monitors
//     (which re-probe only if their key changed) and the transport
//   - a health follower: each health change recomputes the session presence
//   - optionally, a file watcher that reloads credentials saved by another
//     kitchat process
//
// # Usage
//
//	c, err := client.New(ctx, cfg, logger)
//	if err != nil {
//	    return err
//	}
//	defer c.Close()
//
//	go c.Run(ctx)
//
//	if c.SettingsRequired() {
//	    // prompt for keys, then c.SaveSettings(ctx, pair)
//	}
//	results, err := c.Send(ctx, "How many subscribers do I have?")
package client
