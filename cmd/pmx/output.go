package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	json "github.com/goccy/go-json"
	"golang.org/x/term"
)

var (
	headlineStyle = lipgloss.NewStyle().Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#1F2329", Dark: "#E8E8E8"})
	subtleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#646A73", Dark: "#8A8F98"})
	okStyle = lipgloss.NewStyle().Bold(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#237804", Dark: "#73D13D"})
)

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// writeJSON encodes v to w, indented when w is a terminal or pretty is set.
func writeJSON(w io.Writer, v any, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty || isTerminal(w) {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}

// summaryLine prints "label  detail" with the label emphasized.
func summaryLine(w io.Writer, label, detail string) {
	fmt.Fprintf(w, "%s  %s\n", headlineStyle.Render(label), subtleStyle.Render(detail))
}

func successLine(w io.Writer, label, detail string) {
	fmt.Fprintf(w, "%s  %s\n", okStyle.Render(label), subtleStyle.Render(detail))
}
