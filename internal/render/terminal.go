// ABOUTME: Styled markdown rendering for the terminal UI using glamour
// ABOUTME: Re-creates the renderer when the wrap width changes

package render

import (
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
)

// Glamour standard style names accepted by NewTerminal.
const (
	StyleAuto  = "auto"
	StyleDark  = "dark"
	StyleLight = "light"
	StyleNoTTY = "notty"
)

// Terminal renders markdown with ANSI styling at a fixed wrap width.
type Terminal struct {
	mu       sync.Mutex
	style    string
	width    int
	renderer *glamour.TermRenderer
}

// NewTerminal creates a renderer. An empty style means StyleAuto.
func NewTerminal(style string, width int) (*Terminal, error) {
	if style == "" {
		style = StyleAuto
	}
	t := &Terminal{style: style}
	if err := t.SetWidth(width); err != nil {
		return nil, err
	}
	return t, nil
}

// Width returns the current wrap width.
func (t *Terminal) Width() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.width
}

// SetWidth rebuilds the renderer for a new wrap width. Widths below 20 are
// raised to 20.
func (t *Terminal) SetWidth(width int) error {
	if width < 20 {
		width = 20
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.renderer != nil && width == t.width {
		return nil
	}

	styleOpt := glamour.WithStandardStyle(t.style)
	if t.style == StyleAuto {
		styleOpt = glamour.WithAutoStyle()
	}
	r, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(width))
	if err != nil {
		return fmt.Errorf("creating markdown renderer: %w", err)
	}
	t.renderer = r
	t.width = width
	return nil
}

// Render returns md styled for the terminal. If rendering fails the plain
// text form is returned instead.
func (t *Terminal) Render(md string) string {
	t.mu.Lock()
	r := t.renderer
	t.mu.Unlock()

	out, err := r.Render(md)
	if err != nil {
		return Plain(md)
	}
	return strings.Trim(out, "\n")
}
