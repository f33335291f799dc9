package tui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"cistat/src/aggregate"
	"cistat/src/dashboard"
	"cistat/src/render"
)

// Display forwards snapshots and state changes to a running program. It is
// created before the orchestrator and attached to the program by Run.
type Display struct {
	program *tea.Program
}

// NewDisplay creates an unattached display.
func NewDisplay() *Display {
	return &Display{}
}

// Show implements dashboard.Display.
func (d *Display) Show(snap aggregate.Snapshot) error {
	if d.program == nil {
		return fmt.Errorf("display not attached")
	}
	d.program.Send(SnapshotMsg(snap))
	return nil
}

// StateChanged is a dashboard transition hook.
func (d *Display) StateChanged(from, to dashboard.State) {
	if d.program != nil {
		d.program.Send(StateMsg(to))
	}
}

// Loop is the refresh loop driving the view.
type Loop interface {
	Run(ctx context.Context) error
	Refresh()
}

// Run shows the live view until the user quits, ctx is cancelled or the loop
// fails. The loop's error is returned.
func Run(ctx context.Context, d *Display, loop Loop, r *render.Renderer, opts ...tea.ProgramOption) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	p := tea.NewProgram(NewMainModel(r, loop.Refresh), opts...)
	d.program = p

	loopErr := make(chan error, 1)
	go func() {
		err := loop.Run(ctx)
		if err != nil {
			p.Send(fatalMsg{err: err})
		}
		loopErr <- err
	}()

	_, err := p.Run()
	cancel()
	if lerr := <-loopErr; lerr != nil {
		return lerr
	}
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("watch view failed: %w", err)
	}
	return nil
}
