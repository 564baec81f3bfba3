package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"
)

// OutputMode represents the output format.
type OutputMode int

const (
	OutputText OutputMode = iota
	OutputJSON
	OutputYAML
)

func parseOutputMode(s string) (OutputMode, error) {
	switch strings.ToLower(s) {
	case "", "text":
		return OutputText, nil
	case "json":
		return OutputJSON, nil
	case "yaml", "yml":
		return OutputYAML, nil
	}
	return OutputText, fmt.Errorf("unknown output format %q (want text, json or yaml)", s)
}

// GetOutputMode returns the current output mode. --json wins over --output.
func GetOutputMode() OutputMode {
	if jsonOut {
		return OutputJSON
	}
	mode, _ := parseOutputMode(outputFmt)
	return mode
}

// render writes v as JSON or YAML, or calls text for the default format.
func render(w io.Writer, v any, text func(w io.Writer) error) error {
	switch GetOutputMode() {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case OutputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	return text(w)
}

// Table provides a simple table formatter.
type Table struct {
	w *tabwriter.Writer
}

// NewTable creates a table writing to out with the given headers.
func NewTable(out io.Writer, headers ...string) *Table {
	t := &Table{w: tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)}
	if len(headers) > 0 {
		t.Row(headers...)
	}
	return t
}

// Row adds a row to the table.
func (t *Table) Row(values ...string) {
	_, _ = t.w.Write([]byte(strings.Join(values, "\t") + "\n"))
}

// Flush writes the table output.
func (t *Table) Flush() {
	_ = t.w.Flush()
}

var (
	boldStyle  = lipgloss.NewStyle().Bold(true)
	dimStyle   = lipgloss.NewStyle().Faint(true)
	greenStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	redStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

// paint applies style only when color output is enabled.
func paint(style lipgloss.Style, s string) string {
	if !ColorEnabled() {
		return s
	}
	return style.Render(s)
}

// StatusIcon returns an icon for the given boolean status.
func StatusIcon(active bool) string {
	if active {
		return "●"
	}
	return "○"
}

// FormatProgress formats a progress bar.
func FormatProgress(current, total, width int) string {
	if total <= 0 {
		return strings.Repeat("─", width)
	}
	filled := min(width, max(0, current*width/total))
	return strings.Repeat("━", filled) + strings.Repeat("─", width-filled)
}
