package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"cistat/src/aggregate"
	"cistat/src/dashboard"
	"cistat/src/render"
)

// Header is the status bar above the dashboard.
type Header struct {
	styles *render.StyleConfig
}

// NewHeader creates a header drawn with the given palette.
func NewHeader(styles *render.StyleConfig) Header {
	return Header{styles: styles}
}

// Render draws the title, the loop state and when the shown snapshot was taken.
func (h Header) Render(width int, state dashboard.State, spin string, snap *aggregate.Snapshot) string {
	titleStyle := lipgloss.NewStyle().
		Foreground(h.styles.Accent).
		Bold(true).
		Padding(0, 1)
	infoStyle := lipgloss.NewStyle().
		Foreground(h.styles.TextSecondary).
		Padding(0, 1)

	title := titleStyle.Render("cistat")

	activity := state.String()
	if state == dashboard.Fetching {
		activity = spin + " fetching"
	}

	info := activity
	if snap != nil {
		info = fmt.Sprintf("%s · updated %s · cycle %d", activity, snap.TakenAt.Format("15:04:05"), snap.Cycle)
	}

	bar := lipgloss.JoinHorizontal(lipgloss.Left, title, infoStyle.Render(info))
	return render.TruncateLine(bar, width)
}
