// ABOUTME: Lipgloss styles for the chat UI
// ABOUTME: One palette shared by header, timeline, input and settings dialog

package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/2389/kitchat/internal/health"
)

type theme struct {
	header    lipgloss.Style
	title     lipgloss.Style
	panel     lipgloss.Style
	input     lipgloss.Style
	footer    lipgloss.Style
	dialog    lipgloss.Style
	dialogKey lipgloss.Style

	user      lipgloss.Style
	assistant lipgloss.Style
	notice    lipgloss.Style
	errorText lipgloss.Style
	muted     lipgloss.Style

	states map[health.State]lipgloss.Style
}

func newTheme() theme {
	coral := lipgloss.Color("#fb6970")
	teal := lipgloss.Color("#2fc4b2")
	amber := lipgloss.Color("#f5b942")
	ink := lipgloss.Color("#e8e6f0")
	muted := lipgloss.Color("#8b8aa0")
	border := lipgloss.Color("#4a4763")

	return theme{
		header: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(border).
			Padding(0, 1),
		title: lipgloss.NewStyle().Foreground(coral).Bold(true),
		panel: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(border).
			Padding(0, 1),
		input: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(teal).
			Padding(0, 1),
		footer: lipgloss.NewStyle().Foreground(muted).Padding(0, 1),
		dialog: lipgloss.NewStyle().
			BorderStyle(lipgloss.ThickBorder()).
			BorderForeground(coral).
			Padding(1, 2),
		dialogKey: lipgloss.NewStyle().Foreground(ink).Bold(true),

		user:      lipgloss.NewStyle().Foreground(teal).Bold(true),
		assistant: lipgloss.NewStyle().Foreground(coral).Bold(true),
		notice:    lipgloss.NewStyle().Foreground(muted).Italic(true),
		errorText: lipgloss.NewStyle().Foreground(coral),
		muted:     lipgloss.NewStyle().Foreground(muted),

		states: map[health.State]lipgloss.Style{
			health.StateIdle:       lipgloss.NewStyle().Foreground(muted),
			health.StateConnecting: lipgloss.NewStyle().Foreground(amber),
			health.StateConnected:  lipgloss.NewStyle().Foreground(teal),
			health.StateError:      lipgloss.NewStyle().Foreground(coral).Bold(true),
		},
	}
}

func (t theme) state(s health.State) lipgloss.Style {
	if st, ok := t.states[s]; ok {
		return st
	}
	return t.muted
}
