package ui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Palette. Accent frames headers and the spinner; the three state colors
// follow the unit's own idle/busy/fault reporting.
var (
	AccentColor = lipgloss.Color("#7D56F4")
	IdleColor   = lipgloss.Color("#43BF6D")
	FaultColor  = lipgloss.Color("#FF5555")
	BusyColor   = lipgloss.Color("#FFA500")
	DimColor    = lipgloss.Color("#626262")
	PlainColor  = lipgloss.Color("#FFFFFF")
)

// Width bounds for rendered output
const (
	MinTerminalWidth = 60
	MaxContentWidth  = 100
)

func fg(c lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(c)
}

var (
	HeaderTitleStyle      = fg(PlainColor).Bold(true).PaddingLeft(2)
	HeaderCommandStyle    = fg(DimColor).PaddingLeft(2)
	HeaderParamKeyStyle   = fg(DimColor).PaddingLeft(2)
	HeaderParamValueStyle = fg(PlainColor)

	SuccessTitleStyle = fg(IdleColor).Bold(true)
	ErrorTitleStyle   = fg(FaultColor).Bold(true)
	ErrorMessageStyle = fg(FaultColor)

	// ResultKeyStyle pads response keys into a column; see KeyColumnStyle
	ResultKeyStyle   = fg(DimColor).Width(24)
	ResultValueStyle = fg(PlainColor)

	TroubleshootingTitleStyle = fg(DimColor).Bold(true)
	TroubleshootingItemStyle  = fg(DimColor)

	SpinnerStyle = fg(AccentColor)
	HelpStyle    = fg(DimColor).PaddingLeft(2)

	StatusReadyStyle = fg(IdleColor)
	StatusBusyStyle  = fg(BusyColor)
)

const (
	SuccessMarker = "✓"
	FailureMarker = "✗"
)

// GetTerminalWidth returns the stdout width clamped to
// [MinTerminalWidth, MaxContentWidth].
func GetTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	switch {
	case err != nil, width < MinTerminalWidth:
		return MinTerminalWidth
	case width > MaxContentWidth:
		return MaxContentWidth
	}
	return width
}

// IsTerminal reports whether stdout is attached to a terminal
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// KeyColumnStyle returns ResultKeyStyle widened to fit the longest key
func KeyColumnStyle(fields []Field, indent int) lipgloss.Style {
	width := 24
	for _, f := range fields {
		if w := lipgloss.Width(f.Key) + indent + 1; w > width {
			width = w
		}
	}
	return ResultKeyStyle.Width(width)
}

// box is a bordered block filling width columns including the border
func box(border lipgloss.Border, color lipgloss.Color, width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(border).
		BorderForeground(color).
		Width(width - 2)
}

func HeaderBorderStyle(width int) lipgloss.Style {
	return box(lipgloss.RoundedBorder(), AccentColor, width)
}

func SuccessBoxStyle(width int) lipgloss.Style {
	return box(lipgloss.DoubleBorder(), IdleColor, width).Padding(0, 2)
}

func ErrorBoxStyle(width int) lipgloss.Style {
	return box(lipgloss.DoubleBorder(), FaultColor, width).Padding(0, 2)
}

// TroubleshootingBoxStyle is the inset box holding hints inside an error box
func TroubleshootingBoxStyle(width int) lipgloss.Style {
	inner := max(width-12, 40)
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(DimColor).
		Width(inner).
		Padding(0, 1).
		MarginLeft(3)
}

// StatusStyle picks a style for a unit state string such as "ready",
// "drying" or "error".
func StatusStyle(status string) lipgloss.Style {
	switch status {
	case "ready", "stop", "idle", "success":
		return StatusReadyStyle
	case "error", "fault":
		return ErrorMessageStyle
	default:
		return StatusBusyStyle
	}
}
