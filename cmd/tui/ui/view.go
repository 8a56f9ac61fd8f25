package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	humanize "github.com/dustin/go-humanize"

	"github.com/pyship/pyship/internal/history"
)

func (m *Model) View() string {
	headH := 1
	footerH := 1
	bodyH := m.height - headH - footerH - 2
	if bodyH < 3 {
		bodyH = 3
	}

	// Focused pane gets the thick bright border, the other one dims.
	var sideBorder, rightBorder string
	sideBorderStyle := lipgloss.NormalBorder()
	rightBorderStyle := lipgloss.NormalBorder()
	if m.focusRight {
		sideBorder = "#334155"  // dimmed slate
		rightBorder = "#c084fc" // active purple
		rightBorderStyle = lipgloss.ThickBorder()
	} else {
		sideBorder = "#7dd3fc" // active sky
		sideBorderStyle = lipgloss.ThickBorder()
		rightBorder = "#334155" // dimmed slate
	}

	titleBox := m.renderTitleBox(fmt.Sprintf(" pyship — %s ", m.cfg.Project))

	sidebarStyle := lipgloss.NewStyle().BorderStyle(sideBorderStyle).BorderForeground(lipgloss.Color(sideBorder)).Padding(0).Width(m.list.Width()).Height(bodyH)
	sidebar := sidebarStyle.Render(m.list.View())

	rightW := m.width - m.list.Width() - 4
	if rightW < 12 {
		rightW = 12
	}
	rightContent := m.vp.View()
	if m.confirm != nil {
		rightContent = m.renderConfirm()
	}
	rightStyle := lipgloss.NewStyle().BorderStyle(rightBorderStyle).BorderForeground(lipgloss.Color(rightBorder)).Padding(1).Width(rightW).Height(bodyH)
	right := rightStyle.Render(rightContent)

	var body string
	if m.width < 80 {
		body = lipgloss.JoinVertical(lipgloss.Left, sidebar, right)
	} else {
		body = lipgloss.JoinHorizontal(lipgloss.Top, sidebar, right)
	}

	bottom := lipgloss.NewStyle().
		Background(lipgloss.Color("#0b1226")).
		Foreground(lipgloss.Color("#cbd5e1")).
		Padding(0, 1).
		Width(m.width).
		Render(" " + m.statusLine() + " ")

	footer := lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("#94a3b8")).Render(m.footerHints())

	return lipgloss.JoinVertical(lipgloss.Left, titleBox, body, footer, bottom)
}

// statusLine summarizes what the dashboard is doing right now.
func (m *Model) statusLine() string {
	okStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#22c55e")).Bold(true)
	failStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#ef4444")).Bold(true)

	parts := []string{}
	switch {
	case m.runInProgress:
		parts = append(parts, m.spin.View()+"RUNNING "+m.runCommand)
	case m.runErr != nil:
		parts = append(parts, failStyle.Render("FAILED "+m.runCommand))
	case m.runCommand != "":
		parts = append(parts, okStyle.Render("DONE "+m.runCommand))
	default:
		parts = append(parts, fmt.Sprintf("Workflows: %d", len(m.list.Items())))
	}
	if m.showHistory {
		parts = append(parts, fmt.Sprintf("HISTORY (%d runs)", len(m.historyRuns)))
	}
	if m.confirm != nil {
		parts = append(parts, "CONFIRM "+m.confirm.Command)
	}
	if m.focusRight {
		parts = append(parts, "FOCUS: OUTPUT")
	} else {
		parts = append(parts, "FOCUS: WORKFLOWS")
	}
	return strings.Join(parts, " • ")
}

// footerHints shows the keys that make sense in the current state.
func (m *Model) footerHints() string {
	switch {
	case m.confirm != nil:
		return "(y) Confirm • (n) Cancel"
	case m.runInProgress:
		return "x cancel run • Tab switch focus • ↑ / ↓ scroll • q quit"
	case m.showHistory:
		return "Esc back • ↑ / ↓ scroll • q quit"
	default:
		return "Enter run • ← / → / Tab switch focus • ↑ / ↓ scroll • h history • q quit"
	}
}

// renderConfirm fills the right pane with the publish confirmation prompt.
func (m *Model) renderConfirm() string {
	warn := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ef4444"))
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("#94a3b8"))

	var b strings.Builder
	b.WriteString(warn.Render(fmt.Sprintf("Run %s?", m.confirm.Command)) + "\n\n")
	if m.confirm.Desc != "" {
		b.WriteString(m.confirm.Desc + "\n\n")
	}
	b.WriteString("This workflow uploads the package once every check passes.\n")
	b.WriteString("Uploaded files cannot be replaced on the index.\n\n")
	b.WriteString(dim.Render("(y) continue • (n) cancel"))
	return b.String()
}

// renderHistory formats recent runs for the right pane.
func (m *Model) renderHistory() string {
	head := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#0ea5a4"))
	okStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#22c55e"))
	failStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#ef4444"))
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("#94a3b8"))

	if m.historyErr != nil {
		return "history unavailable: " + m.historyErr.Error()
	}
	if len(m.historyRuns) == 0 {
		return "no runs recorded yet"
	}

	var b strings.Builder
	b.WriteString(head.Render("Recent runs") + "\n\n")
	for _, r := range m.historyRuns {
		status := fmt.Sprintf("%-8s", r.Status)
		switch r.Status {
		case history.StatusOK:
			status = okStyle.Render(status)
		case history.StatusFailed, history.StatusAborted:
			status = failStyle.Render(status)
		}
		age := r.StartedAt
		if t := r.Started(); !t.IsZero() {
			age = humanize.Time(t)
		}
		b.WriteString(fmt.Sprintf("%s  %-10s %s %-14s %s\n",
			shortRunID(r.ID), r.Command, status, age, dim.Render(r.Source)))
	}
	b.WriteString("\n" + dim.Render("Esc to go back"))
	return b.String()
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// renderTitleBox produces the bordered title bar shared by every view.
func (m *Model) renderTitleBox(text string) string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ffffff")).Background(lipgloss.Color("#0f766e")).Padding(0, 1)
	title := titleStyle.Render(text)
	titleInner := lipgloss.Place(m.width-2, 1, lipgloss.Center, lipgloss.Center, title)
	return lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("#0ea5a4")).Width(m.width).Render(titleInner)
}
