// ABOUTME: Tests for the bubbletea chat model
// ABOUTME: Uses a fake controller to cover settings, submit, retry and event refresh

package tui

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/kitchat/internal/conversation"
	"github.com/2389/kitchat/internal/credentials"
	"github.com/2389/kitchat/internal/events"
	"github.com/2389/kitchat/internal/health"
)

type fakeController struct {
	mu       sync.Mutex
	pair     credentials.Pair
	kit      health.Snapshot
	claude   health.Snapshot
	entries  []conversation.Entry
	presence conversation.Presence
	pending  bool

	saved   []credentials.Pair
	saveErr error
	sent    []string
	sendErr error
	retries int
}

func newFakeController(pair credentials.Pair) *fakeController {
	return &fakeController{
		pair:     pair,
		kit:      health.Snapshot{Dependency: health.Kit, State: health.StateIdle},
		claude:   health.Snapshot{Dependency: health.Claude, State: health.StateIdle},
		presence: conversation.Presence{Kind: conversation.PresenceWelcome, Text: conversation.WelcomeText},
	}
}

func (f *fakeController) SettingsRequired() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.pair.Complete()
}

func (f *fakeController) Credentials() credentials.Pair {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pair
}

func (f *fakeController) SaveSettings(ctx context.Context, pair credentials.Pair) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, pair)
	f.pair = pair
	return nil
}

func (f *fakeController) RetryHealth(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.retries++
}

func (f *fakeController) Health() (health.Snapshot, health.Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.kit, f.claude
}

func (f *fakeController) Send(ctx context.Context, text string) (<-chan conversation.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.sent = append(f.sent, text)
	f.pending = true
	f.entries = append(f.entries, conversation.Entry{
		ID:      "u1",
		Message: conversation.Message{Content: text, Role: conversation.RoleUser, Timestamp: time.Now()},
		Origin:  conversation.OriginReal,
	})
	return make(chan conversation.Result), nil
}

func (f *fakeController) Entries() []conversation.Entry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]conversation.Entry(nil), f.entries...)
}

func (f *fakeController) Presence() conversation.Presence {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.presence
}

func (f *fakeController) Pending() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pending
}

var validPair = credentials.Pair{Kit: "kit-key", Claude: "claude-key"}

func key(k tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: k}
}

func typeText(t *testing.T, m Model, s string) Model {
	t.Helper()
	out, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
	return out.(Model)
}

func press(t *testing.T, m Model, k tea.KeyType) (Model, tea.Cmd) {
	t.Helper()
	out, cmd := m.Update(key(k))
	return out.(Model), cmd
}

func TestNew_OpensSettingsWhenUnconfigured(t *testing.T) {
	ctrl := newFakeController(credentials.Pair{})
	m := New(context.Background(), ctrl, nil)

	assert.True(t, m.settings.open)
	assert.False(t, m.inputEnabled())

	view := m.View()
	assert.Contains(t, view, "API Settings")
	assert.Contains(t, view, "Kit.com API Key")
	assert.Contains(t, view, "Claude API Key")
	assert.NotContains(t, view, "esc close")
}

func TestNew_ConfiguredShowsWelcome(t *testing.T) {
	ctrl := newFakeController(validPair)
	m := New(context.Background(), ctrl, nil)

	assert.False(t, m.settings.open)
	assert.True(t, m.inputEnabled())

	view := m.View()
	assert.Contains(t, view, conversation.WelcomeText)
	assert.Contains(t, view, "Kit.com: Not Connected")
	assert.Contains(t, view, "Claude: Not Connected")
}

func TestSettings_SaveFlow(t *testing.T) {
	ctrl := newFakeController(credentials.Pair{})
	m := New(context.Background(), ctrl, nil)

	m = typeText(t, m, "my-kit-key")
	m, _ = press(t, m, tea.KeyTab)
	m = typeText(t, m, "my-claude-key")

	m, cmd := press(t, m, tea.KeyEnter)
	require.NotNil(t, cmd)

	out, _ := m.Update(cmd())
	m = out.(Model)

	require.Len(t, ctrl.saved, 1)
	assert.Equal(t, credentials.Pair{Kit: "my-kit-key", Claude: "my-claude-key"}, ctrl.saved[0])
	assert.False(t, m.settings.open)
	assert.True(t, m.inputEnabled())
}

func TestSettings_KeysAreMasked(t *testing.T) {
	ctrl := newFakeController(credentials.Pair{})
	m := New(context.Background(), ctrl, nil)
	m = typeText(t, m, "super-secret")

	assert.NotContains(t, m.View(), "super-secret")
}

func TestSettings_RequiresBothKeys(t *testing.T) {
	ctrl := newFakeController(credentials.Pair{})
	m := New(context.Background(), ctrl, nil)
	m = typeText(t, m, "only-kit")

	m, cmd := press(t, m, tea.KeyEnter)
	assert.Nil(t, cmd)
	assert.Empty(t, ctrl.saved)
	assert.Contains(t, m.View(), "Both API keys are required")
}

func TestSettings_SaveError(t *testing.T) {
	ctrl := newFakeController(credentials.Pair{})
	ctrl.saveErr = errors.New("disk full")
	m := New(context.Background(), ctrl, nil)
	m = typeText(t, m, "k")
	m, _ = press(t, m, tea.KeyTab)
	m = typeText(t, m, "c")

	m, cmd := press(t, m, tea.KeyEnter)
	require.NotNil(t, cmd)
	out, _ := m.Update(cmd())
	m = out.(Model)

	assert.True(t, m.settings.open)
	assert.Contains(t, m.View(), "disk full")
}

func TestSettings_CannotCloseWhileRequired(t *testing.T) {
	ctrl := newFakeController(credentials.Pair{})
	m := New(context.Background(), ctrl, nil)

	m, _ = press(t, m, tea.KeyEsc)
	assert.True(t, m.settings.open)
	m, _ = press(t, m, tea.KeyCtrlS)
	assert.True(t, m.settings.open)
}

func TestSettings_ToggleWhenConfigured(t *testing.T) {
	ctrl := newFakeController(validPair)
	m := New(context.Background(), ctrl, nil)

	m, _ = press(t, m, tea.KeyCtrlS)
	assert.True(t, m.settings.open)
	assert.Equal(t, "kit-key", m.settings.inputs[fieldKit].Value())
	assert.Contains(t, m.View(), "esc close")

	m, _ = press(t, m, tea.KeyEsc)
	assert.False(t, m.settings.open)
}

func TestSubmit_SendsAndDisablesInput(t *testing.T) {
	ctrl := newFakeController(validPair)
	m := New(context.Background(), ctrl, nil)

	m = typeText(t, m, "How many subscribers?")
	m, cmd := press(t, m, tea.KeyEnter)

	require.NotNil(t, cmd)
	assert.Equal(t, []string{"How many subscribers?"}, ctrl.sent)
	assert.Empty(t, m.input.Value())
	assert.True(t, m.pending)
	assert.False(t, m.inputEnabled())
	assert.Contains(t, m.View(), pendingPlaceholder)

	// Enter while pending does nothing.
	m = typeText(t, m, "again")
	_, _ = press(t, m, tea.KeyEnter)
	assert.Len(t, ctrl.sent, 1)
}

func TestSubmit_IgnoresBlankInput(t *testing.T) {
	ctrl := newFakeController(validPair)
	m := New(context.Background(), ctrl, nil)

	m = typeText(t, m, "   ")
	_, cmd := press(t, m, tea.KeyEnter)
	assert.Nil(t, cmd)
	assert.Empty(t, ctrl.sent)
}

func TestSubmit_ShowsSendError(t *testing.T) {
	ctrl := newFakeController(validPair)
	ctrl.sendErr = errors.New("message already in flight")
	m := New(context.Background(), ctrl, nil)

	m = typeText(t, m, "hi")
	m, _ = press(t, m, tea.KeyEnter)
	assert.Contains(t, m.View(), "message already in flight")
}

func TestRetry_OnlyWhenErrored(t *testing.T) {
	ctrl := newFakeController(validPair)
	m := New(context.Background(), ctrl, nil)

	m, _ = press(t, m, tea.KeyCtrlR)
	assert.Zero(t, ctrl.retries)

	ctrl.claude = health.Snapshot{Dependency: health.Claude, State: health.StateError, Error: "API error (401): bad key"}
	out, _ := m.Update(eventMsg{event: events.NewEvent(events.TopicHealth, health.EventStateChanged, nil)})
	m = out.(Model)
	assert.Contains(t, m.View(), "ctrl+r retry")

	_, _ = press(t, m, tea.KeyCtrlR)
	assert.Equal(t, 1, ctrl.retries)
}

func TestEvent_RefreshesTimeline(t *testing.T) {
	ctrl := newFakeController(validPair)
	m := New(context.Background(), ctrl, nil)

	ctrl.kit = health.Snapshot{Dependency: health.Kit, State: health.StateConnected, Data: map[string]any{"account": "Acme"}}
	ctrl.claude = health.Snapshot{Dependency: health.Claude, State: health.StateConnected}
	ctrl.presence = conversation.Presence{Kind: conversation.PresenceConnected, Text: conversation.ConnectedText}
	ctrl.entries = []conversation.Entry{{
		ID:      "n1",
		Message: conversation.Message{Content: "Connected successfully", Role: conversation.RoleAssistant, Timestamp: time.Now()},
		Origin:  conversation.OriginSynthesized,
	}}

	out, _ := m.Update(eventMsg{event: events.NewEvent(events.TopicTimeline, conversation.EventAppended, nil)})
	m = out.(Model)

	view := m.View()
	assert.Contains(t, view, "Kit.com: Connected (Acme)")
	assert.Contains(t, view, "Connected successfully")
}

func TestPlaceholder_Connecting(t *testing.T) {
	ctrl := newFakeController(validPair)
	ctrl.kit.State = health.StateConnecting
	ctrl.presence = conversation.Presence{Kind: conversation.PresenceConnecting, Text: conversation.ConnectingText}
	m := New(context.Background(), ctrl, nil)

	assert.Contains(t, m.View(), conversation.ConnectingText)
}

func TestWaitEvent(t *testing.T) {
	assert.Nil(t, waitEvent(nil))

	ch := make(chan *events.Event, 1)
	ev := events.NewEvent(events.TopicHealth, "x", nil)
	ch <- ev
	msg := waitEvent(ch)()
	assert.Equal(t, eventMsg{event: ev}, msg)

	close(ch)
	assert.Nil(t, waitEvent(ch)())
}
