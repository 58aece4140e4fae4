// Package ui renders task listings, outlines and run progress.
package ui

import (
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

var namedColors = map[string]string{
	"black":   "0",
	"red":     "1",
	"green":   "2",
	"yellow":  "3",
	"blue":    "4",
	"magenta": "5",
	"cyan":    "6",
	"white":   "7",
	"gray":    "8",
	"grey":    "8",
}

// Theme holds the styles used for each message class.
type Theme struct {
	Info    lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Muted   lipgloss.Style
}

// NewTheme builds styles for out from the configured colors. Colors are
// names like "cyan", ANSI numbers or hex values.
func NewTheme(out io.Writer, colors map[string]string, noColor bool) Theme {
	r := lipgloss.NewRenderer(out)
	if noColor {
		r.SetColorProfile(termenv.Ascii)
	}
	style := func(key string) lipgloss.Style {
		return r.NewStyle().Foreground(color(colors[key]))
	}
	return Theme{
		Info:    style("info").Bold(true),
		Success: style("success"),
		Warning: style("warning"),
		Error:   style("error").Bold(true),
		Muted:   r.NewStyle().Faint(true),
	}
}

func color(name string) lipgloss.Color {
	name = strings.ToLower(strings.TrimSpace(name))
	if c, ok := namedColors[name]; ok {
		return lipgloss.Color(c)
	}
	return lipgloss.Color(name)
}
