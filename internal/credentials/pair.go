// ABOUTME: Credential pair type shared by the health monitors and the transport
// ABOUTME: Serializes to the durable settings record and never logs key material

package credentials

import "log/slog"

// Pair holds the two opaque upstream credentials. Either key may be empty.
// JSON field names match the durable settings record written by earlier
// kitchat clients.
type Pair struct {
	Kit    string `json:"kitApiKey"`
	Claude string `json:"claudeApiKey"`
}

// Complete reports whether both keys are set.
func (p Pair) Complete() bool {
	return p.Kit != "" && p.Claude != ""
}

// IsZero reports whether neither key is set.
func (p Pair) IsZero() bool {
	return p.Kit == "" && p.Claude == ""
}

// LogValue renders only whether each key is present.
func (p Pair) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("kit", presence(p.Kit)),
		slog.String("claude", presence(p.Claude)),
	)
}

// String keeps fmt verbs from printing key material.
func (p Pair) String() string {
	return "credentials{kit:" + presence(p.Kit) + " claude:" + presence(p.Claude) + "}"
}

// GoString covers %#v.
func (p Pair) GoString() string {
	return p.String()
}

func presence(key string) string {
	if key == "" {
		return "unset"
	}
	return "set"
}
