// Package health tracks the reachability of kitchat's two upstream dependencies.
//
// # Overview
//
// A Monitor owns the connectivity state of one Dependency (Kit or Claude).
// The state is one of:
//
//   - idle: no credential, or monitoring disabled; no request is made
//   - connecting: a probe is in flight
//   - connected: the last probe returned 2xx with a JSON body
//   - error: the last probe failed; Snapshot.Error holds the cause
//
// Health is "last known", not live. There is no polling loop: a probe runs
// when the credential or enabled flag changes (Update) or on explicit Retry.
//
// # Probes
//
// A probe is a GET to <base><Dependency.Path> with the credential in
// Dependency.Header. Non-2xx responses produce errors of the form
//
//	API error (401): {"detail":"Invalid Claude API key"}
//
// When probes overlap, the newest one wins: results from a superseded probe
// are dropped rather than overwriting a fresher state.
//
// # Notifications
//
// Every state change is published on events.TopicHealth with the new
// Snapshot as payload.
package health
