// ABOUTME: Derives the connection notice shown before the conversation starts
// ABOUTME: Maps two dependency health snapshots to welcome, connecting, connected or error

package conversation

import (
	"fmt"

	"github.com/2389/kitchat/internal/health"
)

// PresenceKind classifies what the empty conversation should show.
type PresenceKind string

const (
	PresenceWelcome    PresenceKind = "welcome"
	PresenceConnecting PresenceKind = "connecting"
	PresenceConnected  PresenceKind = "connected"
	PresenceError      PresenceKind = "error"
	// PresenceReady means real conversation has started; no notice applies.
	PresenceReady PresenceKind = "ready"
)

// Notice texts.
const (
	WelcomeText      = "Send a message to get started"
	WelcomeHint      = "Try asking about your Kit.com account, subscribers, or tags"
	ConnectingText   = "Connecting to APIs, please wait..."
	ConnectedText    = "Connected successfully with API keys. You can now interact with Kit.com using natural language."
	BothFailedText   = "Failed to connect to both Kit.com and Claude APIs. Please check your API keys in settings."
	NotConfiguredTip = "Please configure API keys in settings"
)

// Presence is a derived notice.
type Presence struct {
	Kind PresenceKind
	Text string
}

// Notice reports whether the presence is appended to the timeline as a
// synthesized message. Welcome and connecting are placeholders only.
func (p Presence) Notice() bool {
	return p.Kind == PresenceConnected || p.Kind == PresenceError
}

// DerivePresence computes the notice for the given dependency states.
// configured is false when either credential is missing.
func DerivePresence(kit, claude health.Snapshot, configured bool) Presence {
	if !configured {
		return Presence{Kind: PresenceWelcome, Text: WelcomeText}
	}

	kitErr := kit.State == health.StateError
	claudeErr := claude.State == health.StateError

	switch {
	case kit.State == health.StateConnected && claude.State == health.StateConnected:
		return Presence{Kind: PresenceConnected, Text: ConnectedText}
	case kitErr && claudeErr:
		return Presence{Kind: PresenceError, Text: BothFailedText}
	case kitErr:
		return Presence{Kind: PresenceError, Text: failedText(kit)}
	case claudeErr:
		return Presence{Kind: PresenceError, Text: failedText(claude)}
	case kit.State == health.StateConnecting || claude.State == health.StateConnecting:
		return Presence{Kind: PresenceConnecting, Text: ConnectingText}
	default:
		return Presence{Kind: PresenceWelcome, Text: WelcomeText}
	}
}

func failedText(s health.Snapshot) string {
	cause := s.Error
	if cause == "" {
		cause = "Unknown error"
	}
	return fmt.Sprintf("Failed to connect to %s API: %s", s.Dependency.Name, cause)
}
