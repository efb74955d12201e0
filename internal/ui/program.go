package ui

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/muurk/acectl/internal/driver"
)

// Format selects how responses are printed
type Format string

const (
	FormatJSON   Format = "json"   // Indented JSON, for scripts
	FormatPretty Format = "pretty" // Styled result boxes
)

// ParseFormat validates a --format value. "auto" picks pretty output on a
// terminal and JSON otherwise.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "pretty":
		return FormatPretty, nil
	case "auto":
		if IsTerminal() {
			return FormatPretty, nil
		}
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want json, pretty or auto)", s)
	}
}

// Printer writes command results. Responses go to out; errors go to errOut.
type Printer struct {
	out    io.Writer
	errOut io.Writer
	format Format
	width  int
}

// NewPrinter creates a new Printer. Nil writers default to os.Stdout and
// os.Stderr.
func NewPrinter(out, errOut io.Writer, format Format) *Printer {
	if out == nil {
		out = os.Stdout
	}
	if errOut == nil {
		errOut = os.Stderr
	}
	return &Printer{
		out:    out,
		errOut: errOut,
		format: format,
		width:  GetTerminalWidth(),
	}
}

// Format returns the output format in use
func (p *Printer) Format() Format {
	return p.format
}

// SetWidth overrides the detected terminal width
func (p *Printer) SetWidth(width int) *Printer {
	p.width = width
	return p
}

// Println writes content with a newline
func (p *Printer) Println(content string) {
	_, _ = fmt.Fprintln(p.out, content)
}

// PrintResponse prints a decoded response for the named method
func (p *Printer) PrintResponse(method string, value any) error {
	if p.format == FormatPretty {
		p.Println(NewSuccessResult(method, Flatten(value)).SetWidth(p.width).Render())
		return nil
	}

	text, err := IndentJSON(value)
	if err != nil {
		return fmt.Errorf("failed to format response: %w", err)
	}
	p.Println(text)
	return nil
}

// PrintError prints err for the named method. JSON output gets a plain
// "Error:" line plus the driver hint; pretty output gets a failure box.
func (p *Printer) PrintError(method string, err error) {
	if p.format == FormatPretty {
		_, _ = fmt.Fprintln(p.errOut, NewFailureResult(method, err).SetWidth(p.width).Render())
		return
	}
	_, _ = fmt.Fprintf(p.errOut, "Error: %v\n", err)

	var drvErr *driver.Error
	if errors.As(err, &drvErr) {
		_, _ = fmt.Fprintf(p.errOut, "\n%s\n", driver.Hint(err))
	}
}
