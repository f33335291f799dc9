package render

import (
	"github.com/charmbracelet/lipgloss"

	"cistat/src/status"
)

// StyleConfig holds the dashboard palette.
type StyleConfig struct {
	TextPrimary   lipgloss.Color
	TextSecondary lipgloss.Color
	Accent        lipgloss.Color
	Warning       lipgloss.Color

	// Per-status colors
	StatusColors map[status.Status]lipgloss.Color
}

// DefaultStyles returns the default color palette
func DefaultStyles() *StyleConfig {
	return &StyleConfig{
		TextPrimary:   lipgloss.Color("#E8EAED"),
		TextSecondary: lipgloss.Color("#9AA0A6"),
		Accent:        lipgloss.Color("#8AB4F8"),
		Warning:       lipgloss.Color("#FBBC04"),
		StatusColors: map[status.Status]lipgloss.Color{
			status.Unknown:   lipgloss.Color("#5F6368"),
			status.Pending:   lipgloss.Color("#A142F4"), // Purple
			status.Running:   lipgloss.Color("#4285F4"), // Blue
			status.Passed:    lipgloss.Color("#34A853"), // Green
			status.Failed:    lipgloss.Color("#EA4335"), // Red
			status.Errored:   lipgloss.Color("#F29900"), // Orange
			status.Cancelled: lipgloss.Color("#9AA0A6"), // Grey
		},
	}
}

var glyphs = map[status.Status]string{
	status.Unknown:   "?",
	status.Pending:   "○",
	status.Running:   "●",
	status.Passed:    "✓",
	status.Failed:    "✗",
	status.Errored:   "!",
	status.Cancelled: "⊘",
}

// Glyph returns the symbol drawn for st.
func Glyph(st status.Status) string {
	if g, ok := glyphs[st]; ok {
		return g
	}
	return "?"
}

// Word returns the label drawn for st. Passing builds read "ok".
func Word(st status.Status) string {
	if st == status.Passed {
		return "ok"
	}
	return st.String()
}

type styles struct {
	status    map[status.Status]lipgloss.Style
	name      lipgloss.Style
	secondary lipgloss.Style
	stale     lipgloss.Style
	problem   lipgloss.Style
	summary   lipgloss.Style
}

func newStyles(r *lipgloss.Renderer, cfg *StyleConfig) styles {
	s := styles{
		status:    make(map[status.Status]lipgloss.Style, len(cfg.StatusColors)),
		name:      r.NewStyle().Foreground(cfg.TextPrimary),
		secondary: r.NewStyle().Foreground(cfg.TextSecondary),
		stale:     r.NewStyle().Foreground(cfg.Warning).Italic(true),
		problem:   r.NewStyle().Foreground(cfg.Warning),
		summary:   r.NewStyle().Foreground(cfg.Accent).Bold(true),
	}
	for st, c := range cfg.StatusColors {
		s.status[st] = r.NewStyle().Foreground(c)
	}
	return s
}

func (s styles) forStatus(st status.Status) lipgloss.Style {
	if style, ok := s.status[st]; ok {
		return style
	}
	return s.secondary
}
