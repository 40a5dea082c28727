// ABOUTME: Settings dialog with masked inputs for the two API keys
// ABOUTME: Opens automatically while either key is missing

package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/2389/kitchat/internal/credentials"
)

const (
	fieldKit = iota
	fieldClaude
)

type settingsForm struct {
	open   bool
	focus  int
	inputs [2]textinput.Model
	err    string
}

func newSettingsForm() settingsForm {
	var f settingsForm
	for i := range f.inputs {
		in := textinput.New()
		in.EchoMode = textinput.EchoPassword
		in.EchoCharacter = '•'
		in.Prompt = ""
		f.inputs[i] = in
	}
	f.inputs[fieldKit].Placeholder = "Kit.com API key"
	f.inputs[fieldClaude].Placeholder = "Claude API key"
	return f
}

func (f *settingsForm) show(current credentials.Pair) {
	f.open = true
	f.err = ""
	f.inputs[fieldKit].SetValue(current.Kit)
	f.inputs[fieldClaude].SetValue(current.Claude)
	f.focus = fieldKit
	if current.Kit != "" && current.Claude == "" {
		f.focus = fieldClaude
	}
	f.focusField()
}

func (f *settingsForm) hide() {
	f.open = false
	f.err = ""
	for i := range f.inputs {
		f.inputs[i].Blur()
		f.inputs[i].Reset()
	}
}

func (f *settingsForm) setWidth(w int) {
	for i := range f.inputs {
		f.inputs[i].Width = max(10, w)
	}
}

func (f *settingsForm) focusField() {
	for i := range f.inputs {
		if i == f.focus {
			f.inputs[i].Focus()
		} else {
			f.inputs[i].Blur()
		}
	}
}

func (f *settingsForm) pair() credentials.Pair {
	return credentials.Pair{
		Kit:    strings.TrimSpace(f.inputs[fieldKit].Value()),
		Claude: strings.TrimSpace(f.inputs[fieldClaude].Value()),
	}
}

func (m Model) updateSettings(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	f := &m.settings
	switch msg.String() {
	case "esc":
		if m.configured {
			m.closeSettings()
		}
		return m, nil
	case "tab", "shift+tab", "up", "down":
		f.focus = 1 - f.focus
		f.focusField()
		return m, nil
	case "enter":
		pair := f.pair()
		if !pair.Complete() {
			f.err = "Both API keys are required"
			return m, nil
		}
		f.err = ""
		return m, m.saveCmd(pair)
	}

	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return m, cmd
}

func (m Model) saveCmd(pair credentials.Pair) tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		return settingsSavedMsg{err: ctrl.SaveSettings(ctx, pair)}
	}
}
