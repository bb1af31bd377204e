// Package console renders the driver's human-facing output: color-coded,
// prefixed status lines and the final deployment summary. Structured
// diagnostics go through slog; this package is only the operator-visible
// surface.
package console

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

// ANSI color sequences.
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[0;32m"
	colorYellow = "\033[1;33m"
	colorRed    = "\033[0;31m"
	colorBlue   = "\033[0;34m"
)

// Console writes prefixed status lines to a single writer.
type Console struct {
	out   io.Writer
	color bool
}

// New creates a Console writing to out. Colors are enabled only when out is
// a terminal.
func New(out io.Writer) *Console {
	color := false
	if f, ok := out.(*os.File); ok {
		color = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &Console{out: out, color: color}
}

// NewWithColor creates a Console with color output forced on or off.
func NewWithColor(out io.Writer, color bool) *Console {
	return &Console{out: out, color: color}
}

// Status prints an informational progress line.
func (c *Console) Status(format string, args ...any) {
	c.line(colorBlue, "[INFO]", format, args...)
}

// Success prints a success line.
func (c *Console) Success(format string, args ...any) {
	c.line(colorGreen, "[ OK ]", format, args...)
}

// Warning prints a non-fatal warning line.
func (c *Console) Warning(format string, args ...any) {
	c.line(colorYellow, "[WARNING]", format, args...)
}

// Error prints a fatal error line.
func (c *Console) Error(format string, args ...any) {
	c.line(colorRed, "[ERROR]", format, args...)
}

// Plain prints an unprefixed line, used for summary bodies.
func (c *Console) Plain(format string, args ...any) {
	fmt.Fprintf(c.out, format+"\n", args...)
}

// Blank prints an empty line.
func (c *Console) Blank() {
	fmt.Fprintln(c.out)
}

func (c *Console) line(color, prefix, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if c.color {
		fmt.Fprintf(c.out, "%s%s%s %s\n", color, prefix, colorReset, msg)
		return
	}
	fmt.Fprintf(c.out, "%s %s\n", prefix, msg)
}
