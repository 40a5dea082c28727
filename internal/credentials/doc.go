// Package credentials owns the pair of upstream API keys.
//
// # Overview
//
// Store keeps the current Pair in memory and mirrors it to a single durable
// record (named "mcp_api_settings") in a store.RecordStore. The record body
// is the JSON form of Pair:
//
//	{"kitApiKey": "...", "claudeApiKey": "..."}
//
// Load is called once at startup. A record that cannot be parsed is treated
// as absent and deleted. Save writes the record first and only then swaps
// the in-memory pair, so a failed write leaves the previous pair in effect.
// Clear deletes the record and resets to the empty pair.
//
// # Notifications
//
// Every change is published on events.TopicCredentials with a Pair copy as
// payload. The health monitors and the transport follow these events rather
// than polling.
//
// # Secrecy
//
// Pair implements slog.LogValuer and fmt.Stringer so that logging or
// printing a Pair shows only whether each key is set.
//
// # Multiple processes
//
// Watch follows the SQLite file with fsnotify and calls Reload after writes
// settle, so "kitchat settings set" in one terminal reaches a running chat in
// another.
package credentials
