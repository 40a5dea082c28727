// Package tui implements the interactive chat screen.
//
// # Overview
//
// Model is a bubbletea model driven by a Controller (normally a
// client.Client) and a channel of bus events. Every event triggers a
// refresh that copies health, timeline, presence and pending state from
// the controller, so the model never holds state the client does not.
//
// # Keys
//
//	enter     send the input (disabled while a reply is pending)
//	ctrl+s    open or close the settings dialog
//	ctrl+r    retry dependencies whose last probe failed
//	pgup/pgdn scroll the conversation
//	ctrl+c    quit
//
// The settings dialog opens on its own whenever either API key is missing
// and cannot be closed until both are saved.
package tui
