package security

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// Output limits applied when the caller passes a non-positive value.
const (
	DefaultMaxOutputLength = 100_000
	DefaultMaxOutputLines  = 1000
)

// SanitizeOutput prepares external command output for display. It strips
// ANSI escape sequences and control characters other than newline, carriage
// return and tab, then truncates to maxLength characters and maxLines lines.
// Output holding a NUL byte is treated as binary and replaced by a marker.
func SanitizeOutput(text string, maxLength, maxLines int) string {
	if maxLength <= 0 {
		maxLength = DefaultMaxOutputLength
	}
	if maxLines <= 0 {
		maxLines = DefaultMaxOutputLines
	}
	if text == "" {
		return ""
	}
	if strings.IndexByte(text, 0) >= 0 {
		return fmt.Sprintf("[binary output suppressed: %d bytes]", len(text))
	}

	text = stripControl(ansi.Strip(text))

	var markers []string
	if runes := []rune(text); len(runes) > maxLength {
		text = string(runes[:maxLength])
		markers = append(markers, fmt.Sprintf("... [output truncated: exceeded %d characters]", maxLength))
	}

	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	if len(lines) > maxLines {
		dropped := len(lines) - maxLines
		text = strings.Join(lines[:maxLines], "\n")
		markers = append(markers, fmt.Sprintf("... [output truncated: %d more lines]", dropped))
	}
	for _, m := range markers {
		text = strings.TrimSuffix(text, "\n") + "\n" + m
	}
	return text
}

func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\r' || r == '\t':
			return r
		case r < 0x20 || r == 0x7f:
			return -1
		case r >= 0x80 && r < 0xa0:
			return -1
		}
		return r
	}, s)
}
