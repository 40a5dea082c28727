// Package transport delivers chat messages to the kitchat backend.
//
// # Overview
//
// A Transport exposes one contract, Send(ctx, Request) (Reply, error), and
// hides which of two paths serviced it:
//
//   - Socket: a persistent websocket at <base>/ws. The message is written as
//     a JSON frame and the reply arrives later as a pushed frame.
//   - Fallback: POST <base>/api/chat with the credentials in the
//     X-Kit-API-Key and X-Claude-API-Key headers.
//
// The socket path is used whenever the socket is open at the moment Send is
// called. Only one send may be in flight; a second concurrent Send returns
// ErrBusy. That single-flight rule is what lets a pushed reply be matched to
// its request without an identifier.
//
// # Lifecycle
//
// Run supervises the socket:
//
//	disconnected -> connecting -> open -> disconnected -> (delay) -> connecting ...
//
// Nothing is dialed while either credential is empty. After the socket
// closes, the supervisor waits ReconnectDelay (3s by default) and redials.
// Setting MaxReconnectDelay turns the fixed delay into a capped doubling
// backoff. Update with a different credential pair drops the socket and
// redials immediately. State changes are published on events.TopicTransport.
//
// # Frames
//
// Outbound:
//
//	{"message": "...", "conversation_id": null, "kit_api_key": "...", "claude_api_key": "..."}
//
// Inbound:
//
//	{"response": "...", "conversation_id": "...", "timestamp": "..."}
//
// Frames that fail to parse, or that carry an "error" field, are logged and
// dropped without resolving the pending send. A socket send that sees no
// reply within SendTimeout fails with ErrReplyTimeout.
//
// # Usage
//
//	t, err := transport.New(transport.Config{BaseURL: "http://localhost:8000"}, bus, logger)
//	if err != nil {
//	    return err
//	}
//	go t.Run(ctx)
//	t.Update(credentials.Pair{Kit: kit, Claude: claude})
//
//	reply, err := t.Send(ctx, transport.Request{Message: "hello"})
package transport
