package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"
)

// VisualWidth returns the display width of text, accounting for multi-byte characters
// and ignoring ANSI escape sequences.
func VisualWidth(s string) int {
	return runewidth.StringWidth(ansi.Strip(s))
}

// PadRight pads plain text with spaces to width.
func PadRight(s string, width int) string {
	return runewidth.FillRight(s, width)
}

// PadLeft right-aligns plain text within width.
func PadLeft(s string, width int) string {
	return runewidth.FillLeft(s, width)
}

// TruncateLine cuts a possibly styled line to width columns, keeping escape
// sequences intact so colors never bleed into the next line.
func TruncateLine(line string, width int) string {
	if width <= 0 || ansi.StringWidth(line) <= width {
		return line
	}
	return ansi.Truncate(line, width, "…")
}

// Age formats the time elapsed between t and now as a compact relative age.
func Age(t *time.Time, now time.Time) string {
	if t == nil {
		return "-"
	}
	d := now.Sub(*t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d/time.Minute))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d/time.Hour))
	}
	return fmt.Sprintf("%dd ago", int(d/(24*time.Hour)))
}

func plural(n int, one, many string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, one)
	}
	return fmt.Sprintf("%d %s", n, many)
}

func joinNonEmpty(parts []string, sep string) string {
	out := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}
