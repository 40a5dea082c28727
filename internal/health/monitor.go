// ABOUTME: Health monitor that probes a single dependency's status endpoint on demand
// ABOUTME: Tracks idle/connecting/connected/error with newest-probe-wins semantics

package health

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/2389/kitchat/internal/events"
)

// EventStateChanged is published on events.TopicHealth with a Snapshot payload.
const EventStateChanged = "health.state_changed"

// maxErrorBody bounds how much of a failing response is kept in the error text.
const maxErrorBody = 4096

// Monitor probes one dependency. It never returns probe failures to callers;
// they are captured in the Snapshot.
type Monitor struct {
	dep        Dependency
	baseURL    string
	httpClient *http.Client
	publisher  events.Publisher
	logger     *slog.Logger

	mu         sync.Mutex
	credential string
	enabled    bool
	snap       Snapshot
	generation uint64
}

// NewMonitor creates an idle monitor. timeout bounds each probe; zero means
// no client-side timeout beyond the caller's context.
func NewMonitor(dep Dependency, baseURL string, timeout time.Duration, publisher events.Publisher, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		dep:        dep,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		publisher:  publisher,
		logger:     logger.With("component", "health", "dependency", dep.Name),
		snap: Snapshot{
			Dependency: dep,
			State:      StateIdle,
			CheckedAt:  time.Now(),
		},
	}
}

// Dependency returns the monitored dependency.
func (m *Monitor) Dependency() Dependency {
	return m.dep
}

// Snapshot returns the current state.
func (m *Monitor) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap
}

// Update records new inputs and re-checks only when the credential or the
// enabled flag differs from the previous call. It returns the channel from
// Check, or nil when nothing changed.
func (m *Monitor) Update(ctx context.Context, credential string, enabled bool) <-chan Snapshot {
	m.mu.Lock()
	if credential == m.credential && enabled == m.enabled {
		m.mu.Unlock()
		return nil
	}
	m.credential = credential
	m.enabled = enabled
	m.mu.Unlock()

	return m.Check(ctx)
}

// Retry re-checks with the current inputs.
func (m *Monitor) Retry(ctx context.Context) <-chan Snapshot {
	return m.Check(ctx)
}

// Check starts a probe. With an empty credential or a disabled monitor the
// state becomes idle and no request is made. Otherwise the state is
// connecting by the time Check returns, and the settled snapshot is sent on
// the returned channel. If a later Check supersedes this one, its result is
// discarded and the channel is closed without a value.
func (m *Monitor) Check(ctx context.Context) <-chan Snapshot {
	out := make(chan Snapshot, 1)

	m.mu.Lock()
	m.generation++
	gen := m.generation
	credential := m.credential

	if credential == "" || !m.enabled {
		snap := m.setLocked(StateIdle, "", nil)
		m.mu.Unlock()
		m.publish(snap)
		out <- snap
		close(out)
		return out
	}

	snap := m.setLocked(StateConnecting, "", nil)
	m.mu.Unlock()
	m.publish(snap)

	go func() {
		defer close(out)

		data, err := m.probe(ctx, credential)

		m.mu.Lock()
		if gen != m.generation {
			m.mu.Unlock()
			m.logger.Debug("discarding superseded probe result")
			return
		}
		var settled Snapshot
		if err != nil {
			settled = m.setLocked(StateError, err.Error(), nil)
		} else {
			settled = m.setLocked(StateConnected, "", data)
		}
		m.mu.Unlock()

		if err != nil {
			m.logger.Warn("status check failed", "error", err)
		} else {
			m.logger.Info("status check succeeded")
		}
		m.publish(settled)
		out <- settled
	}()

	return out
}

// setLocked must be called with mu held.
func (m *Monitor) setLocked(state State, errText string, data map[string]any) Snapshot {
	m.snap = Snapshot{
		Dependency: m.dep,
		State:      state,
		Error:      errText,
		Data:       data,
		CheckedAt:  time.Now(),
	}
	return m.snap
}

// probe performs the authenticated status request.
func (m *Monitor) probe(ctx context.Context, credential string) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.baseURL+m.dep.Path, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(m.dep.Header, credential)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, string(body))
	}

	var data map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decoding status response: %w", err)
	}
	return data, nil
}

func (m *Monitor) publish(snap Snapshot) {
	if m.publisher == nil {
		return
	}
	m.publisher.Publish(events.TopicHealth, events.NewEvent(events.TopicHealth, EventStateChanged, snap), "")
}
