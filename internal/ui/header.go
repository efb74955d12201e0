package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Header is a banner with a title, the command being run and its parameters
type Header struct {
	Title   string  // e.g., "ACE STATUS"
	Command string  // e.g., "acectl watch"
	Params  []Field // e.g., {"Port", "/dev/ttyACM0"}
	Width   int     // Terminal width for responsive rendering
}

// NewHeader creates a new header with the given values
func NewHeader(title, command string, params ...Field) *Header {
	return &Header{
		Title:   title,
		Command: command,
		Params:  params,
		Width:   GetTerminalWidth(),
	}
}

// SetWidth sets the terminal width for responsive rendering
func (h *Header) SetWidth(width int) *Header {
	h.Width = width
	return h
}

// Render returns the styled header as a string
func (h *Header) Render() string {
	width := h.Width
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}

	top := lipgloss.JoinVertical(lipgloss.Left,
		HeaderTitleStyle.Render(strings.ToUpper(h.Title)),
		HeaderCommandStyle.Render(h.Command),
	)
	if len(h.Params) == 0 {
		return HeaderBorderStyle(width).Render(top)
	}

	dividerWidth := width - 6 // Account for border and padding
	if dividerWidth < 10 {
		dividerWidth = 10
	}
	divider := lipgloss.NewStyle().
		Foreground(AccentColor).
		PaddingLeft(2).
		Render(strings.Repeat("─", dividerWidth))

	params := make([]string, len(h.Params))
	for i, p := range h.Params {
		params[i] = HeaderParamKeyStyle.Render(p.Key+":") + " " + HeaderParamValueStyle.Render(p.Value)
	}

	content := lipgloss.JoinVertical(lipgloss.Left, top, divider, strings.Join(params, "\n"))
	return HeaderBorderStyle(width).Render(content)
}

// String implements fmt.Stringer
func (h *Header) String() string {
	return h.Render()
}
