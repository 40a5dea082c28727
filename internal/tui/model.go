// ABOUTME: Bubbletea model for the interactive chat screen
// ABOUTME: Mirrors client state on every bus event and routes keys to chat or settings

package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/2389/kitchat/internal/conversation"
	"github.com/2389/kitchat/internal/credentials"
	"github.com/2389/kitchat/internal/events"
	"github.com/2389/kitchat/internal/health"
	"github.com/2389/kitchat/internal/render"
)

// Controller is the client surface the UI drives.
type Controller interface {
	SettingsRequired() bool
	Credentials() credentials.Pair
	SaveSettings(ctx context.Context, pair credentials.Pair) error
	RetryHealth(ctx context.Context)
	Health() (kit, claude health.Snapshot)
	Send(ctx context.Context, text string) (<-chan conversation.Result, error)
	Entries() []conversation.Entry
	Presence() conversation.Presence
	Pending() bool
}

const (
	inputPlaceholder    = "Ask about your Kit.com account..."
	pendingPlaceholder  = "Waiting for reply..."
	settingsPlaceholder = conversation.NotConfiguredTip
)

type eventMsg struct {
	event *events.Event
}

type resultMsg struct {
	result conversation.Result
}

type settingsSavedMsg struct {
	err error
}

// Option configures a Model.
type Option func(*Model)

// WithRenderer renders assistant replies with styled markdown. Without it
// replies are shown as plain text.
func WithRenderer(r *render.Terminal) Option {
	return func(m *Model) {
		m.renderer = r
	}
}

// Model is the chat screen.
type Model struct {
	ctx    context.Context
	ctrl   Controller
	events <-chan *events.Event

	renderer *render.Terminal
	theme    theme

	width  int
	height int

	input    textinput.Model
	timeline viewport.Model
	spinner  spinner.Model
	settings settingsForm

	kit        health.Snapshot
	claude     health.Snapshot
	entries    []conversation.Entry
	presence   conversation.Presence
	pending    bool
	configured bool
	status     string
}

// New builds the chat model. feed should carry every bus topic so the
// model refreshes on credential, health and timeline changes.
func New(ctx context.Context, ctrl Controller, feed <-chan *events.Event, opts ...Option) Model {
	input := textinput.New()
	input.Prompt = "> "
	input.CharLimit = 4000

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	timeline := viewport.New(0, 0)
	timeline.MouseWheelEnabled = true

	m := Model{
		ctx:      ctx,
		ctrl:     ctrl,
		events:   feed,
		theme:    newTheme(),
		width:    80,
		height:   24,
		input:    input,
		timeline: timeline,
		spinner:  sp,
		settings: newSettingsForm(),
	}
	for _, opt := range opts {
		opt(&m)
	}
	m.spinner.Style = m.theme.title

	m.resize()
	m.refresh()
	return m
}

func waitEvent(ch <-chan *events.Event) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return eventMsg{event: ev}
	}
}

func waitResult(ch <-chan conversation.Result) tea.Cmd {
	return func() tea.Msg {
		res, ok := <-ch
		if !ok {
			return nil
		}
		return resultMsg{result: res}
	}
}

// Init starts the spinner and the event listener.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, textinput.Blink, waitEvent(m.events))
}

// Update handles a message.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.renderTimeline()
	case eventMsg:
		m.refresh()
		cmds = append(cmds, waitEvent(m.events))
	case resultMsg:
		m.refresh()
	case settingsSavedMsg:
		if msg.err != nil {
			m.settings.err = "Could not save settings: " + msg.err.Error()
			break
		}
		m.closeSettings()
		m.refresh()
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "ctrl+s":
		if m.settings.open {
			if m.configured {
				m.closeSettings()
			}
		} else {
			m.openSettings()
		}
		return m, nil
	case "ctrl+r":
		if m.kit.State == health.StateError || m.claude.State == health.StateError {
			m.ctrl.RetryHealth(m.ctx)
			m.refresh()
		}
		return m, nil
	}

	if m.settings.open {
		return m.updateSettings(msg)
	}

	switch msg.String() {
	case "enter":
		return m.submit()
	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.timeline, cmd = m.timeline.Update(msg)
		return m, cmd
	}

	if !m.inputEnabled() {
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	if !m.inputEnabled() {
		return m, nil
	}
	text := m.input.Value()
	if strings.TrimSpace(text) == "" {
		return m, nil
	}

	ch, err := m.ctrl.Send(m.ctx, text)
	if err != nil {
		m.status = err.Error()
		return m, nil
	}
	m.status = ""
	m.input.Reset()
	m.refresh()
	return m, waitResult(ch)
}

func (m Model) inputEnabled() bool {
	return m.configured && !m.pending && !m.settings.open
}

// refresh copies the controller state into the model.
func (m *Model) refresh() {
	m.kit, m.claude = m.ctrl.Health()
	m.entries = m.ctrl.Entries()
	m.presence = m.ctrl.Presence()
	m.pending = m.ctrl.Pending()
	m.configured = !m.ctrl.SettingsRequired()

	if !m.configured && !m.settings.open {
		m.openSettings()
	}
	m.syncInput()
	m.renderTimeline()
}

func (m *Model) syncInput() {
	switch {
	case !m.configured:
		m.input.Placeholder = settingsPlaceholder
	case m.pending:
		m.input.Placeholder = pendingPlaceholder
	default:
		m.input.Placeholder = inputPlaceholder
	}
	if m.inputEnabled() {
		m.input.Focus()
	} else {
		m.input.Blur()
	}
}

func (m *Model) openSettings() {
	m.settings.show(m.ctrl.Credentials())
	m.syncInput()
}

func (m *Model) closeSettings() {
	m.settings.hide()
	m.syncInput()
}

func (m *Model) resize() {
	contentWidth := max(20, m.width-4)
	m.input.Width = max(10, contentWidth-4)
	m.settings.setWidth(min(60, contentWidth-8))

	// header (3) + input panel (3) + footer (1) + timeline border (2)
	m.timeline.Width = contentWidth
	m.timeline.Height = max(3, m.height-9)

	if m.renderer != nil {
		_ = m.renderer.SetWidth(contentWidth - 2)
	}
}

func (m *Model) renderTimeline() {
	m.timeline.SetContent(m.timelineContent())
	m.timeline.GotoBottom()
}

func (m Model) timelineContent() string {
	if len(m.entries) == 0 {
		return m.placeholder()
	}

	width := max(10, m.timeline.Width-2)
	var b strings.Builder
	for i, e := range m.entries {
		if i > 0 {
			b.WriteString("\n\n")
		}
		stamp := m.theme.muted.Render(e.Message.Timestamp.Format("15:04"))
		switch {
		case e.Message.Role == conversation.RoleUser:
			b.WriteString(m.theme.user.Render("You") + " " + stamp + "\n")
			b.WriteString(lipgloss.NewStyle().Width(width).Render(e.Message.Content))
		case e.Synthesized():
			style := m.theme.notice
			if strings.HasPrefix(e.Message.Content, "Error: ") || strings.HasPrefix(e.Message.Content, "Failed to connect") {
				style = m.theme.errorText
			}
			b.WriteString(style.Width(width).Render(e.Message.Content))
		default:
			b.WriteString(m.theme.assistant.Render("Assistant") + " " + stamp + "\n")
			b.WriteString(m.markdown(e.Message.Content))
		}
	}
	return b.String()
}

func (m Model) placeholder() string {
	switch {
	case !m.configured:
		return conversation.WelcomeText + "\n" + m.theme.muted.Render(conversation.NotConfiguredTip)
	case m.presence.Kind == conversation.PresenceConnecting:
		return m.theme.muted.Render(conversation.ConnectingText)
	default:
		return conversation.WelcomeText + "\n" + m.theme.muted.Render(conversation.WelcomeHint)
	}
}

func (m Model) markdown(md string) string {
	if m.renderer == nil {
		return render.Plain(md)
	}
	return m.renderer.Render(md)
}
