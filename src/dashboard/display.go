package dashboard

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"

	"cistat/src/aggregate"
	"cistat/src/render"
)

// Display receives every published snapshot.
type Display interface {
	Show(snap aggregate.Snapshot) error
}

// DisplayFunc adapts a function to Display.
type DisplayFunc func(snap aggregate.Snapshot) error

// Show calls f(snap).
func (f DisplayFunc) Show(snap aggregate.Snapshot) error {
	return f(snap)
}

// WriterDisplay renders snapshots to a writer, one after another.
type WriterDisplay struct {
	w        io.Writer
	out      *termenv.Output
	renderer *render.Renderer
	clear    bool
}

// NewWriterDisplay creates a display writing rendered snapshots to w. When
// clear is set the terminal is cleared before each snapshot after the first.
func NewWriterDisplay(w io.Writer, r *render.Renderer, clear bool) *WriterDisplay {
	return &WriterDisplay{w: w, out: termenv.NewOutput(w), renderer: r, clear: clear}
}

// Show writes the rendered snapshot.
func (d *WriterDisplay) Show(snap aggregate.Snapshot) error {
	if d.clear && snap.Cycle > 1 {
		d.out.ClearScreen()
	}
	if _, err := io.WriteString(d.w, d.renderer.Render(snap)); err != nil {
		return fmt.Errorf("failed to write dashboard: %w", err)
	}
	return nil
}
