// Package ui is the Bubble Tea dashboard behind `pyship tui`: workflow
// actions on the left, streaming run output on the right, recent history
// one keypress away.
package ui

import (
	"context"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pyship/pyship/internal/history"
)

// Action is one runnable workflow entry shown in the left pane.
type Action struct {
	// Command is the workflow command handed to Config.Run.
	Command string
	Title   string
	Desc    string
	// Confirm asks before starting. Set for actions that upload.
	Confirm bool
}

// Config wires the dashboard to the rest of the application. Run and
// History are required; tests provide fakes.
type Config struct {
	// Project is the project name shown in the title bar.
	Project string
	Actions []Action
	// Run executes a workflow command, streaming combined stdout and
	// stderr to w. It returns when the workflow finishes or ctx is
	// canceled.
	Run func(ctx context.Context, command string, w io.Writer) error
	// History returns the most recent recorded runs, newest first.
	History func(limit int) ([]history.Run, error)
}

// Messages
type outputMsg string
type runDoneMsg struct{ err error }
type historyMsg struct {
	runs []history.Run
	err  error
}

// Model is the Bubble Tea model used by cmd/tui.
type Model struct {
	cfg  Config
	list list.Model
	vp   viewport.Model
	spin spinner.Model

	width  int
	height int

	showHistory bool
	historyRuns []history.Run
	historyErr  error

	// confirm holds the action waiting for a y/n answer.
	confirm *Action

	runInProgress bool
	runCommand    string
	runErr        error
	logs          strings.Builder
	cancelRun     context.CancelFunc
	runCh         chan string
	runDone       chan error

	// focus: false = left pane (list), true = right pane (viewport)
	focusRight bool
}

// NewModel constructs the dashboard model from its wiring config.
func NewModel(cfg Config) *Model {
	items := make([]list.Item, 0, len(cfg.Actions))
	for _, a := range cfg.Actions {
		items = append(items, actionItem{a: a})
	}
	l := list.New(items, list.NewDefaultDelegate(), 0, 0)
	l.Title = "pyship — workflows"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#0ea5a4"))

	vp := viewport.New(0, 0)

	m := &Model{cfg: cfg, list: l, vp: vp, spin: sp}
	m.vp.SetContent(welcomeText)
	return m
}

// NewProgram constructs the tea.Program for the dashboard.
func NewProgram(cfg Config) *tea.Program {
	m := NewModel(cfg)
	return tea.NewProgram(m, tea.WithAltScreen())
}

// Init gives the panes reasonable defaults so the UI shows content on
// first render, before a WindowSizeMsg arrives.
func (m *Model) Init() tea.Cmd {
	return func() tea.Msg {
		if m.list.Height() == 0 {
			m.list.SetSize(30, 10)
		}
		if m.vp.Width == 0 || m.vp.Height == 0 {
			m.vp = viewport.New(60, 12)
			m.vp.SetContent(welcomeText)
		}
		if len(m.list.Items()) > 0 {
			m.list.Select(0)
		}
		return nil
	}
}

const welcomeText = `Pick a workflow on the left and press Enter.

Output streams here while it runs. Publishing workflows ask
for confirmation first; press h any time to browse past runs.`

// readOutput returns a command that reads one chunk of run output from the
// channel and returns it as a tea.Msg. The caller should return the command
// again from Update to continue the stream. A closed channel means the run
// goroutine finished writing; the trailing runDoneMsg carries its error.
func readOutput(ch <-chan string, done <-chan error) tea.Cmd {
	return func() tea.Msg {
		chunk, ok := <-ch
		if !ok {
			return runDoneMsg{err: <-done}
		}
		return outputMsg(chunk)
	}
}

// chanWriter adapts the workflow's io.Writer output into channel sends the
// update loop consumes one chunk at a time.
type chanWriter struct{ ch chan<- string }

func (w chanWriter) Write(p []byte) (int, error) {
	w.ch <- string(p)
	return len(p), nil
}

// actionItem adapts Action for the list component.
type actionItem struct{ a Action }

func (i actionItem) Title() string       { return i.a.Title }
func (i actionItem) Description() string { return i.a.Desc }
func (i actionItem) FilterValue() string { return i.a.Command + " " + i.a.Desc }
