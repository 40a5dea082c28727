// ABOUTME: Renders the chat screen and the settings overlay
// ABOUTME: Header shows per-dependency status; footer shows key hints

package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/2389/kitchat/internal/health"
)

// View renders the screen.
func (m Model) View() string {
	if m.settings.open {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.renderSettings())
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.theme.panel.Width(m.timeline.Width+2).Render(m.timeline.View()),
		m.renderInput(),
		m.renderFooter(),
	)
}

func (m Model) renderHeader() string {
	parts := []string{
		m.theme.title.Render("kitchat"),
		m.dependencyStatus(m.kit),
		m.dependencyStatus(m.claude),
	}
	if m.kit.State == health.StateConnecting || m.claude.State == health.StateConnecting {
		parts = append(parts, m.spinner.View())
	}
	return m.theme.header.Width(max(20, m.width-2)).Render(strings.Join(parts, "  "))
}

func (m Model) dependencyStatus(s health.Snapshot) string {
	text := fmt.Sprintf("%s: %s", s.Dependency.Name, s.State.Label())
	if s.State == health.StateConnected {
		if d := s.Detail(); d != "" {
			text += " (" + d + ")"
		}
	}
	return m.theme.state(s.State).Render(text)
}

func (m Model) renderInput() string {
	view := m.input.View()
	if m.pending {
		view = m.spinner.View() + " " + view
	}
	return m.theme.input.Width(max(20, m.width-2)).Render(view)
}

func (m Model) renderFooter() string {
	hints := []string{"enter send", "ctrl+s settings"}
	if m.kit.State == health.StateError || m.claude.State == health.StateError {
		hints = append(hints, "ctrl+r retry")
	}
	hints = append(hints, "pgup/pgdn scroll", "ctrl+c quit")

	line := m.theme.footer.Render(strings.Join(hints, " · "))
	if m.status != "" {
		line = m.theme.errorText.Render(m.status) + "  " + line
	}
	return line
}

func (m Model) renderSettings() string {
	f := m.settings
	var b strings.Builder

	b.WriteString(m.theme.title.Render("API Settings"))
	b.WriteString("\n\n")

	fields := []struct {
		label string
		snap  health.Snapshot
	}{
		{"Kit.com API Key", m.kit},
		{"Claude API Key", m.claude},
	}
	for i, field := range fields {
		b.WriteString(m.theme.dialogKey.Render(field.label))
		b.WriteString("\n")
		b.WriteString(f.inputs[i].View())
		b.WriteString("\n")
		status := m.theme.state(field.snap.State).Render(field.snap.State.Label())
		if field.snap.State == health.StateError && field.snap.Error != "" {
			status += " " + m.theme.muted.Render(field.snap.Error)
		}
		b.WriteString(status)
		b.WriteString("\n\n")
	}

	if f.err != "" {
		b.WriteString(m.theme.errorText.Render(f.err))
		b.WriteString("\n\n")
	}

	hints := []string{"enter save", "tab switch field"}
	if m.kit.State == health.StateError || m.claude.State == health.StateError {
		hints = append(hints, "ctrl+r retry")
	}
	if m.configured {
		hints = append(hints, "esc close")
	}
	b.WriteString(m.theme.muted.Render(strings.Join(hints, " · ")))

	return m.theme.dialog.Render(b.String())
}
