// Package output formats mitractl results for the terminal.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
)

// ColorMode selects when colors are used.
type ColorMode int

const (
	// ColorAuto follows the environment and config.
	ColorAuto ColorMode = iota
	ColorAlways
	ColorNever
)

// ParseColorMode parses auto, always or never.
func ParseColorMode(s string) (ColorMode, error) {
	switch s {
	case "", "auto":
		return ColorAuto, nil
	case "always":
		return ColorAlways, nil
	case "never":
		return ColorNever, nil
	default:
		return ColorAuto, fmt.Errorf("invalid color mode %q: must be auto, always, or never", s)
	}
}

// ResolveColors decides whether to color output. NO_COLOR and TERM=dumb turn
// colors off in auto mode.
func ResolveColors(mode ColorMode, configColors bool) bool {
	switch mode {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	default:
		if _, ok := os.LookupEnv("NO_COLOR"); ok {
			return false
		}
		if os.Getenv("TERM") == "dumb" {
			return false
		}
		return configColors
	}
}

// Printer writes messages to out and problems to errOut.
type Printer struct {
	out       io.Writer
	errOut    io.Writer
	useColors bool
}

// NewPrinter builds a printer.
func NewPrinter(out, errOut io.Writer, useColors bool) *Printer {
	return &Printer{out: out, errOut: errOut, useColors: useColors}
}

// Out is the writer for regular output.
func (p *Printer) Out() io.Writer { return p.out }

// Info prints an informational message.
func (p *Printer) Info(format string, args ...any) {
	if p.useColors {
		color.New(color.FgCyan).Fprintf(p.out, format+"\n", args...)
		return
	}
	fmt.Fprintf(p.out, format+"\n", args...)
}

// Success prints a success message.
func (p *Printer) Success(format string, args ...any) {
	if p.useColors {
		color.New(color.FgGreen).Fprintf(p.out, "✓ "+format+"\n", args...)
		return
	}
	fmt.Fprintf(p.out, "[OK] "+format+"\n", args...)
}

// Warning prints a warning.
func (p *Printer) Warning(format string, args ...any) {
	if p.useColors {
		color.New(color.FgYellow).Fprintf(p.errOut, "⚠ "+format+"\n", args...)
		return
	}
	fmt.Fprintf(p.errOut, "[WARN] "+format+"\n", args...)
}

// Error prints an error message.
func (p *Printer) Error(format string, args ...any) {
	if p.useColors {
		color.New(color.FgRed).Fprintf(p.errOut, "✗ "+format+"\n", args...)
		return
	}
	fmt.Fprintf(p.errOut, "[ERROR] "+format+"\n", args...)
}

// Print prints a plain line.
func (p *Printer) Print(format string, args ...any) {
	fmt.Fprintf(p.out, format+"\n", args...)
}

// Header prints a section title.
func (p *Printer) Header(title string) {
	underline := strings.Repeat("-", len(title))
	if p.useColors {
		color.New(color.FgWhite, color.Bold).Fprintf(p.out, "\n%s\n", title)
		fmt.Fprintf(p.out, "%s\n", underline)
		return
	}
	fmt.Fprintf(p.out, "\n%s\n%s\n", title, underline)
}

// Status renders a verification or order status.
func (p *Printer) Status(status string) string {
	if !p.useColors {
		return status
	}
	switch status {
	case "approved", "completed", "active":
		return color.GreenString(status)
	case "rejected", "cancelled", "suspended":
		return color.RedString(status)
	case "pending", "confirmed", "in_progress":
		return color.YellowString(status)
	default:
		return status
	}
}
