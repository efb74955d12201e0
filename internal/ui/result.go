package ui

import (
	"fmt"
	"strings"

	"github.com/muurk/acectl/internal/driver"
)

// ResultType indicates success or failure
type ResultType int

const (
	ResultSuccess ResultType = iota
	ResultFailure
)

// Result represents a result box for one command
type Result struct {
	Type            ResultType // Success or failure
	Title           string     // e.g., "feed_filament"
	Fields          []Field    // Response fields to display
	Error           error      // Error (for failure results)
	Notes           []string   // Explanation lines above the tips
	Troubleshooting []string   // Troubleshooting tips (for failure results)
	Width           int        // Terminal width
}

// NewSuccessResult creates a success result box
func NewSuccessResult(title string, fields []Field) *Result {
	return &Result{
		Type:   ResultSuccess,
		Title:  title,
		Fields: fields,
		Width:  GetTerminalWidth(),
	}
}

// NewFailureResult creates a failure result box. The driver hint for err
// supplies the notes and troubleshooting tips.
func NewFailureResult(title string, err error) *Result {
	notes, tips := splitHint(driver.Hint(err))
	return &Result{
		Type:            ResultFailure,
		Title:           title,
		Error:           err,
		Notes:           notes,
		Troubleshooting: tips,
		Width:           GetTerminalWidth(),
	}
}

// SetWidth sets the terminal width for responsive rendering
func (r *Result) SetWidth(width int) *Result {
	r.Width = width
	return r
}

// Render returns the styled result box as a string
func (r *Result) Render() string {
	width := r.Width
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}

	if r.Type == ResultFailure {
		return r.renderFailure(width)
	}
	return r.renderSuccess(width)
}

func (r *Result) renderSuccess(width int) string {
	lines := []string{
		"",
		SuccessTitleStyle.Render(fmt.Sprintf(" %s  OK  ─  %s", SuccessMarker, r.Title)),
		"",
	}

	keyStyle := KeyColumnStyle(r.Fields, 1)
	for _, f := range r.Fields {
		lines = append(lines, keyStyle.Render(" "+f.Key)+" "+ResultValueStyle.Render(f.Value))
	}
	if len(r.Fields) > 0 {
		lines = append(lines, "")
	}

	return SuccessBoxStyle(width).Render(strings.Join(lines, "\n"))
}

func (r *Result) renderFailure(width int) string {
	lines := []string{
		"",
		ErrorTitleStyle.Render(fmt.Sprintf(" %s  FAILED  ─  %s", FailureMarker, r.Title)),
		"",
	}

	if r.Error != nil {
		lines = append(lines, ErrorMessageStyle.Render(" "+driver.ShortMessage(r.Error)))
		lines = append(lines, ResultValueStyle.Render(" "+r.Error.Error()))
		lines = append(lines, "")
	}
	for _, note := range r.Notes {
		lines = append(lines, ResultValueStyle.Render(" "+note))
	}
	if len(r.Notes) > 0 {
		lines = append(lines, "")
	}

	if len(r.Troubleshooting) > 0 {
		tl := []string{TroubleshootingTitleStyle.Render("Troubleshooting:"), ""}
		for _, tip := range r.Troubleshooting {
			tl = append(tl, TroubleshootingItemStyle.Render("  • "+tip))
		}
		lines = append(lines, TroubleshootingBoxStyle(width).Render(strings.Join(tl, "\n")), "")
	}

	return ErrorBoxStyle(width).Render(strings.Join(lines, "\n"))
}

// String implements fmt.Stringer
func (r *Result) String() string {
	return r.Render()
}

// splitHint separates a driver hint into plain lines and bullet tips
func splitHint(hint string) (notes, tips []string) {
	for _, line := range strings.Split(hint, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "", trimmed == "Troubleshooting:":
		case strings.HasPrefix(trimmed, "•"):
			tips = append(tips, strings.TrimSpace(strings.TrimPrefix(trimmed, "•")))
		default:
			notes = append(notes, trimmed)
		}
	}
	return notes, tips
}
