// Package render formats dashboard snapshots as terminal text.
//
// Rendering is pure: relative ages are computed against the snapshot's
// TakenAt and the color profile is fixed when the Renderer is built, so an
// identical snapshot always yields byte-identical output.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"cistat/src/aggregate"
	"cistat/src/status"
)

// Align controls how group names are aligned in their column.
type Align int

const (
	AlignLeft Align = iota
	AlignRight
)

// ParseAlign parses "left" or "right".
func ParseAlign(s string) (Align, error) {
	switch strings.ToLower(s) {
	case "", "left":
		return AlignLeft, nil
	case "right":
		return AlignRight, nil
	}
	return AlignLeft, fmt.Errorf("unknown alignment %q (want left or right)", s)
}

// Renderer turns snapshots into text.
type Renderer struct {
	profile termenv.Profile
	width   int
	trend   bool
	align   Align
	palette *StyleConfig
	styles  styles
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithColorProfile fixes the color profile. termenv.Ascii disables color.
func WithColorProfile(p termenv.Profile) Option {
	return func(r *Renderer) { r.profile = p }
}

// WithWidth truncates every line to width columns. Zero disables truncation.
func WithWidth(width int) Option {
	return func(r *Renderer) { r.width = width }
}

// WithTrend appends a per-build trend of the group's history.
func WithTrend(on bool) Option {
	return func(r *Renderer) { r.trend = on }
}

// WithAlign sets the alignment of the name column.
func WithAlign(a Align) Option {
	return func(r *Renderer) { r.align = a }
}

// WithStyles replaces the default palette.
func WithStyles(cfg *StyleConfig) Option {
	return func(r *Renderer) { r.palette = cfg }
}

// New creates a Renderer. Without WithColorProfile output is uncolored.
func New(opts ...Option) *Renderer {
	r := &Renderer{profile: termenv.Ascii, palette: DefaultStyles()}
	for _, opt := range opts {
		opt(r)
	}

	lr := lipgloss.NewRenderer(io.Discard)
	lr.SetColorProfile(r.profile)
	lr.SetHasDarkBackground(true)
	r.styles = newStyles(lr, r.palette)
	return r
}

// Width returns the configured line width.
func (r *Renderer) Width() int {
	return r.width
}

// Styles returns the palette in use.
func (r *Renderer) Styles() *StyleConfig {
	return r.palette
}

// Resize returns a copy of the renderer that truncates to width.
func (r *Renderer) Resize(width int) *Renderer {
	c := *r
	c.width = width
	return &c
}

// Render formats snap: one line per group, a summary line, then any problems
// recorded during the cycle.
func (r *Renderer) Render(snap aggregate.Snapshot) string {
	var lines []string

	nameWidth := 0
	for _, g := range snap.Groups {
		if w := VisualWidth(g.Name); w > nameWidth {
			nameWidth = w
		}
	}
	wordWidth := 0
	for _, st := range append([]status.Status{status.Unknown}, status.Statuses...) {
		if w := len(Word(st)); w > wordWidth {
			wordWidth = w
		}
	}

	for _, g := range snap.Groups {
		lines = append(lines, r.groupLine(g, snap, nameWidth, wordWidth))
	}
	if len(snap.Groups) == 0 {
		lines = append(lines, r.styles.secondary.Render("no builds found"))
	}

	lines = append(lines, "", r.summaryLine(snap.Groups))

	for _, p := range snap.Problems {
		lines = append(lines, r.styles.problem.Render("! "+p))
	}

	for i, line := range lines {
		lines[i] = TruncateLine(line, r.width)
	}
	return strings.Join(lines, "\n") + "\n"
}

func (r *Renderer) groupLine(g aggregate.PipelineGroup, snap aggregate.Snapshot, nameWidth, wordWidth int) string {
	st := status.Unknown
	if g.HasData() {
		st = g.Latest.Status
	}
	style := r.styles.forStatus(st)

	name := PadRight(g.Name, nameWidth)
	if r.align == AlignRight {
		name = PadLeft(g.Name, nameWidth)
	}

	parts := []string{
		style.Render(Glyph(st)),
		r.styles.name.Render(name),
		style.Render(PadRight(Word(st), wordWidth)),
	}

	if !g.HasData() {
		if g.Err != "" {
			parts = append(parts, r.styles.problem.Render(g.Err))
		}
		if g.Stale {
			parts = append(parts, r.staleMarker(g))
		}
		return strings.Join(parts, " ")
	}

	latest := g.Latest
	var tail []string
	if latest.Status == status.Failed && latest.Number > 0 {
		tail = append(tail, style.Render(fmt.Sprintf("#%d", latest.Number)))
	}
	if r.trend && len(g.History) > 1 {
		tail = append(tail, r.trendLine(g.History))
	}
	if g.Stale {
		tail = append(tail, r.staleMarker(g))
	}
	if latest.Diagnostic != "" {
		tail = append(tail, r.styles.secondary.Render("("+latest.Diagnostic+")"))
	}

	age := Age(latest.StartedAt, snap.TakenAt)
	if len(tail) > 0 {
		age = PadRight(age, len("just now"))
	}
	parts = append(parts,
		r.styles.secondary.Render(PadRight(latest.Commit, status.ShortCommitLen)),
		r.styles.secondary.Render(age),
	)
	return strings.Join(append(parts, tail...), " ")
}

// trendLine draws history oldest to newest.
func (r *Renderer) trendLine(history []status.BuildRecord) string {
	var b strings.Builder
	for i := len(history) - 1; i >= 0; i-- {
		st := history[i].Status
		b.WriteString(r.styles.forStatus(st).Render(Glyph(st)))
	}
	return b.String()
}

func (r *Renderer) staleMarker(g aggregate.PipelineGroup) string {
	if g.StaleFor > 1 {
		return r.styles.stale.Render(fmt.Sprintf("(stale ×%d)", g.StaleFor))
	}
	return r.styles.stale.Render("(stale)")
}

func (r *Renderer) summaryLine(groups []aggregate.PipelineGroup) string {
	sum := aggregate.Summarize(groups)

	health := "all green"
	if !sum.Healthy() {
		health = joinNonEmpty([]string{
			countIf(sum.Failing, "failing"),
			countIf(sum.Errored, "errored"),
		}, " · ")
	}

	return r.styles.summary.Render(joinNonEmpty([]string{
		plural(sum.Total, "pipeline", "pipelines"),
		health,
		countIf(sum.Running, "running"),
		countIf(sum.Stale, "stale"),
	}, " · "))
}

func countIf(n int, label string) string {
	if n == 0 {
		return ""
	}
	return fmt.Sprintf("%d %s", n, label)
}
