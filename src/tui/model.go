// Package tui is the live watch-mode view. It receives published snapshots as
// messages and never fetches anything itself.
package tui

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"cistat/src/aggregate"
	"cistat/src/dashboard"
	"cistat/src/render"
)

// SnapshotMsg delivers a newly published snapshot.
type SnapshotMsg aggregate.Snapshot

// StateMsg reports a refresh loop state change.
type StateMsg dashboard.State

// fatalMsg stops the view after the refresh loop failed.
type fatalMsg struct{ err error }

// MainModel is the root bubbletea model.
type MainModel struct {
	renderer *render.Renderer
	refresh  func()

	header   Header
	keys     keyMap
	help     help.Model
	spinner  spinner.Model
	viewport viewport.Model

	snap  *aggregate.Snapshot
	state dashboard.State
	err   error

	width  int
	height int
	ready  bool
}

// NewMainModel creates the model. refresh is called when the user asks for
// an immediate refresh.
func NewMainModel(r *render.Renderer, refresh func()) MainModel {
	sp := spinner.New(
		spinner.WithSpinner(spinner.MiniDot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(r.Styles().Warning)),
	)
	return MainModel{
		renderer: r,
		refresh:  refresh,
		header:   NewHeader(r.Styles()),
		keys:     defaultKeyMap(),
		help:     help.New(),
		spinner:  sp,
		state:    dashboard.Idle,
	}
}

// Init starts the spinner.
func (m MainModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles window, key, snapshot and loop state messages.
func (m MainModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.renderer = m.renderer.Resize(msg.Width)
		m.help.Width = msg.Width
		bodyHeight := max(1, msg.Height-2) // header and help line
		if !m.ready {
			m.viewport = viewport.New(msg.Width, bodyHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = bodyHeight
		}
		m.syncContent()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Refresh):
			if m.refresh != nil {
				m.refresh()
			}
			return m, nil
		}
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case SnapshotMsg:
		snap := aggregate.Snapshot(msg)
		m.snap = &snap
		m.syncContent()
		return m, nil

	case StateMsg:
		m.state = dashboard.State(msg)
		return m, nil

	case fatalMsg:
		m.err = msg.err
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *MainModel) syncContent() {
	if !m.ready || m.snap == nil {
		return
	}
	m.viewport.SetContent(m.renderer.Render(*m.snap))
}

// View renders header, dashboard and key help.
func (m MainModel) View() string {
	if m.err != nil {
		return m.err.Error() + "\n"
	}
	if !m.ready {
		return "\n  Initializing..."
	}

	header := m.header.Render(m.width, m.state, m.spinner.View(), m.snap)
	body := "  " + m.spinner.View() + " waiting for first results..."
	if m.snap != nil {
		body = m.viewport.View()
	}
	footer := render.TruncateLine(m.help.ShortHelpView(m.keys.ShortHelp()), m.width)
	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}
