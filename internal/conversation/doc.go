// Package conversation holds the chat timeline and drives message exchange.
//
// # Overview
//
// Timeline is an append-only list of entries plus the conversation
// correlator (the server-assigned conversation_id). Each entry is tagged:
//
//   - real: user input and assistant replies
//   - synthesized: connection notices and "Error: ..." messages
//
// History returns only real messages, so client-generated text is never
// mistaken for conversation content.
//
// # Session
//
// A Session owns a Timeline and the pending flag. Submit:
//
//  1. rejects blank input, missing credentials, or a send already in flight
//  2. appends the user message and sets pending
//  3. sends it with the current correlator through the Sender
//  4. appends the reply (and adopts its correlator) or an error notice
//  5. clears pending and delivers one Result
//
// # Presence
//
// Before the conversation starts, DerivePresence maps the two health
// snapshots to a notice. Connected and error notices are appended as
// synthesized entries, once per change, while the timeline holds no real
// messages. Welcome and connecting are shown as placeholders and never
// appended.
//
// All changes are published on events.TopicTimeline.
package conversation
