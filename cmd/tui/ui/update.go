package ui

import (
	"context"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/pyship/pyship/internal/tui/sanitize"
)

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		s := msg.String()
		// The confirmation prompt swallows everything except its own keys.
		if m.confirm != nil {
			switch s {
			case "y", "Y", "enter":
				a := *m.confirm
				m.confirm = nil
				return m, m.startRun(a)
			case "n", "N", "esc", "q":
				m.confirm = nil
				return m, nil
			case "ctrl+c":
				return m, tea.Quit
			}
			return m, nil
		}
		// global keybindings handled BEFORE passing to the list so they are
		// never swallowed by the focused component
		switch s {
		case "q", "ctrl+c":
			if m.cancelRun != nil {
				m.cancelRun()
			}
			return m, tea.Quit
		case "x":
			// cancel the run but stay in the dashboard
			if m.runInProgress && m.cancelRun != nil {
				m.cancelRun()
			}
			return m, nil
		case "tab":
			m.focusRight = !m.focusRight
			return m, nil
		case "left":
			m.focusRight = false
			return m, nil
		case "right":
			m.focusRight = true
			return m, nil
		case "h":
			if m.runInProgress {
				return m, nil
			}
			if m.showHistory {
				m.showHistory = false
				m.syncViewport()
				return m, nil
			}
			return m, m.loadHistory()
		case "esc":
			if m.showHistory {
				m.showHistory = false
				m.focusRight = false
				m.syncViewport()
			}
			return m, nil
		case "enter":
			if m.runInProgress || m.showHistory {
				return m, nil
			}
			if i, ok := m.list.SelectedItem().(actionItem); ok {
				if i.a.Confirm {
					a := i.a
					m.confirm = &a
					return m, nil
				}
				return m, m.startRun(i.a)
			}
			return m, nil
		}
		// Scroll whichever pane has focus.
		if m.focusRight {
			switch s {
			case "up", "k":
				m.vp.LineUp(1)
			case "down", "j":
				m.vp.LineDown(1)
			case "pgup":
				m.vp.HalfViewUp()
			case "pgdown":
				m.vp.HalfViewDown()
			case "home":
				m.vp.GotoTop()
			case "end":
				m.vp.GotoBottom()
			}
			return m, nil
		}
		m.list, cmd = m.list.Update(msg)
		return m, cmd

	case outputMsg:
		m.logs.WriteString(sanitize.RunOutput(string(msg)))
		if !m.showHistory {
			m.vp.SetContent(m.logs.String())
			m.vp.GotoBottom()
		}
		// continue reading
		if m.runCh != nil {
			return m, readOutput(m.runCh, m.runDone)
		}
		return m, nil

	case runDoneMsg:
		m.runInProgress = false
		m.runErr = msg.err
		m.cancelRun = nil
		m.runCh = nil
		m.runDone = nil
		return m, nil

	case historyMsg:
		m.historyRuns = msg.runs
		m.historyErr = msg.err
		m.showHistory = true
		m.focusRight = true
		m.syncViewport()
		m.vp.GotoTop()
		return m, nil

	case spinner.TickMsg:
		if !m.runInProgress {
			return m, nil
		}
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil
	}

	return m, cmd
}

// startRun launches a workflow in its own goroutine and begins streaming
// its output into the right pane.
func (m *Model) startRun(a Action) tea.Cmd {
	m.logs.Reset()
	m.runErr = nil
	m.runCommand = a.Command
	m.runInProgress = true
	m.showHistory = false
	m.focusRight = true

	ctx, cancel := context.WithCancel(context.Background())
	m.cancelRun = cancel

	ch := make(chan string, 64)
	done := make(chan error, 1)
	m.runCh = ch
	m.runDone = done

	go func() {
		err := m.cfg.Run(ctx, a.Command, chanWriter{ch: ch})
		done <- err
		close(ch)
	}()

	m.syncViewport()
	return tea.Batch(m.spin.Tick, readOutput(ch, done))
}

// loadHistory fetches recent runs off the update loop.
func (m *Model) loadHistory() tea.Cmd {
	return func() tea.Msg {
		if m.cfg.History == nil {
			return historyMsg{}
		}
		runs, err := m.cfg.History(20)
		return historyMsg{runs: runs, err: err}
	}
}

// syncViewport points the right pane at whatever the current mode shows.
func (m *Model) syncViewport() {
	switch {
	case m.showHistory:
		m.vp.SetContent(m.renderHistory())
	case m.logs.Len() > 0:
		m.vp.SetContent(m.logs.String())
		m.vp.GotoBottom()
	default:
		m.vp.SetContent(welcomeText)
	}
}

// layout recomputes pane sizes from the terminal dimensions.
func (m *Model) layout() {
	headH := 1
	footerH := 1
	bodyH := m.height - headH - footerH - 2
	if bodyH < 3 {
		bodyH = 3
	}

	sideW := int(float64(m.width) * 0.35)
	if sideW > 36 {
		sideW = 36
	}
	if sideW < 20 {
		sideW = 20
	}
	innerSideW := sideW - 2
	if innerSideW < 10 {
		innerSideW = 10
	}

	rightW := m.width - sideW - 4
	if rightW < 12 {
		rightW = 12
	}
	innerRightW := rightW - 2
	if innerRightW < 10 {
		innerRightW = 10
	}

	innerBodyH := bodyH - 2
	if innerBodyH < 1 {
		innerBodyH = 1
	}

	m.list.SetSize(innerSideW, innerBodyH)
	m.ensureViewportSize(innerRightW, innerBodyH)
	m.syncViewport()
}
