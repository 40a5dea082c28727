// ABOUTME: Types describing an upstream dependency and its last known connectivity
// ABOUTME: Defines the Kit.com and Claude dependencies probed by the monitors

package health

import "time"

// Dependency identifies one upstream service and how to probe it.
type Dependency struct {
	// Name is the human-readable name used in notices.
	Name string
	// Path is the status endpoint relative to the base URL.
	Path string
	// Header carries the credential on the probe request.
	Header string
}

// The two dependencies kitchat monitors.
var (
	Kit = Dependency{
		Name:   "Kit.com",
		Path:   "/api/status/kit",
		Header: "X-Kit-API-Key",
	}
	Claude = Dependency{
		Name:   "Claude",
		Path:   "/api/status/claude",
		Header: "X-Claude-API-Key",
	}
)

// State is the connectivity state of a dependency.
type State string

const (
	// StateIdle means no credential is configured or monitoring is disabled.
	StateIdle       State = "idle"
	StateConnecting State = "connecting"
	StateConnected  State = "connected"
	StateError      State = "error"
)

// Label is the short status text shown next to a dependency.
func (s State) Label() string {
	switch s {
	case StateConnected:
		return "Connected"
	case StateConnecting:
		return "Connecting..."
	case StateError:
		return "Connection Error"
	default:
		return "Not Connected"
	}
}

// Settled reports whether a probe has finished.
func (s State) Settled() bool {
	return s == StateConnected || s == StateError
}

// Snapshot is a read-only view of a monitor's state.
type Snapshot struct {
	Dependency Dependency
	State      State
	// Error is the human-readable cause when State is StateError.
	Error string
	// Data is the decoded status payload from the last successful probe.
	Data map[string]any
	// CheckedAt is when the state was last set.
	CheckedAt time.Time
}

// Detail returns a short description of the payload, e.g. the account or
// model name reported by the backend.
func (s Snapshot) Detail() string {
	for _, key := range []string{"account", "model"} {
		if v, ok := s.Data[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
