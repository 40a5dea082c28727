// Package fakebackend is a stand-in for the kitchat backend.
//
// # Overview
//
// It serves the same endpoints as the real server so the client can be
// developed and tested offline:
//
//	GET  /healthz             {"status":"ok"}
//	GET  /api/status/kit      X-Kit-API-Key      -> {"status":"connected","account":...}
//	GET  /api/status/claude   X-Claude-API-Key   -> {"status":"connected","model":...}
//	POST /api/chat            both headers       -> {"response":...,"conversation_id":...}
//	GET  /ws                  websocket, keys in each frame
//
// Missing keys get 400 with {"detail": "... API key is required"}. When
// Config.KitKey or Config.ClaudeKey is set, any other key gets 401.
// Websocket frames with missing or wrong keys, or invalid JSON, are
// answered with an {"error": ...} frame, as the real backend does.
//
// Replies come from Config.Responder; the default EchoResponder returns a
// short markdown echo. Conversation IDs are UUIDs assigned on first use.
package fakebackend
