// Package output renders command results as tables or JSON.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// Format selects how results are rendered.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
)

// ParseFormat accepts table or json in any case. Empty means table.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case "", FormatTable:
		return FormatTable, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (want table or json)", s)
	}
}

// Options configures a Writer.
type Options struct {
	Format    Format
	UseColors bool
	// Width overrides the detected terminal width when positive.
	Width int
}

// Writer renders results to an io.Writer.
type Writer struct {
	out  io.Writer
	opts Options
}

// NewWriter creates a writer on out.
func NewWriter(out io.Writer, opts Options) *Writer {
	if opts.Format == "" {
		opts.Format = FormatTable
	}
	return &Writer{out: out, opts: opts}
}

// Stdout renders to standard output, with colors only on a terminal.
func Stdout(format Format) *Writer {
	return NewWriter(os.Stdout, Options{
		Format:    format,
		UseColors: !color.NoColor && term.IsTerminal(int(os.Stdout.Fd())),
	})
}

const defaultWidth = 80

// width is the usable line width: the override, the terminal, or 80.
func (w *Writer) width() int {
	if w.opts.Width > 0 {
		return w.opts.Width
	}
	if f, ok := w.out.(*os.File); ok {
		if detected, _, err := term.GetSize(int(f.Fd())); err == nil && detected > 0 {
			return detected
		}
	}
	return defaultWidth
}

func (w *Writer) json() bool {
	return w.opts.Format == FormatJSON
}

func writeJSON(out io.Writer, data any) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// paint returns a colorizer, or fmt.Sprint when colors are off.
func (w *Writer) paint(attrs ...color.Attribute) func(...any) string {
	if !w.opts.UseColors {
		return fmt.Sprint
	}
	c := color.New(attrs...)
	c.EnableColor()
	return c.SprintFunc()
}

func truncate(s string, max int) string {
	if max <= 3 || len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
