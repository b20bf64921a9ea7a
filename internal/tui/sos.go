package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/bmbranch/branchdesk/internal/alerts"
)

// sosModel renders the latest poller snapshot. It never fetches on its own;
// the root model feeds it sosPolledMsg.
type sosModel struct {
	snap        alerts.Snapshot
	cursor      int
	showPending bool
	dismissed   bool
	width       int
	height      int
}

func newSOSModel() sosModel {
	return sosModel{}
}

func (m sosModel) Update(msg tea.Msg) (sosModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case sosPolledMsg:
		if msg.snap.Err != m.snap.Err {
			m.dismissed = false
		}
		m.snap = msg.snap
		m.cursor = clampCursor(m.cursor, len(m.visible()))

	case tea.KeyMsg:
		switch msg.String() {
		case "j", "down":
			if m.cursor < len(m.visible())-1 {
				m.cursor++
			}
		case "k", "up":
			if m.cursor > 0 {
				m.cursor--
			}
		case "p":
			m.showPending = !m.showPending
			m.cursor = 0
		case "x":
			m.dismissed = true
		}
	}
	return m, nil
}

func (m sosModel) visible() []alertRow {
	rows := make([]alertRow, 0, len(m.snap.Alerts))
	for _, a := range m.snap.Alerts {
		if m.showPending && !a.Pending() {
			continue
		}
		rows = append(rows, alertRow{id: a.ID, kind: a.SosType, guard: a.GuardName, status: a.Status, pending: a.Pending()})
	}
	return rows
}

type alertRow struct {
	id      int64
	kind    string
	guard   string
	status  string
	pending bool
}

func (m sosModel) View() string {
	var b strings.Builder

	head := " " + sectionHeaderStyle.Render("SOS alerts")
	if m.snap.Active > 0 {
		head += "  " + alertStyle.Render(fmt.Sprintf("%d active", m.snap.Active))
	}
	if m.showPending {
		head += dimStyle.Render(" · pending only")
	}
	b.WriteString(head + "\n")

	if !m.dismissed {
		b.WriteString(errorBanner(m.snap.Err, "x"))
	}

	if !m.snap.Loaded {
		b.WriteString(" " + dimStyle.Render("loading...") + "\n")
		return b.String()
	}

	rows := m.visible()
	if len(rows) == 0 {
		b.WriteString(" " + dimStyle.Render("no alerts") + "\n")
		return b.String()
	}

	for i, r := range rows {
		cursor := " "
		if i == m.cursor {
			cursor = accentStyle.Render("▸")
		}
		status := dimStyle.Render(r.status)
		kind := normalStyle.Render(fmt.Sprintf("%-14s", truncStr(r.kind, 14)))
		if r.pending {
			status = alertStyle.Render(r.status)
			kind = alertStyle.Render(fmt.Sprintf("%-14s", truncStr(r.kind, 14)))
		}
		b.WriteString(fmt.Sprintf(" %s %s %s %s %s\n",
			cursor, metaStyle.Render(fmt.Sprintf("#%-5d", r.id)), kind,
			normalStyle.Render(fmt.Sprintf("%-20s", truncStr(r.guard, 20))), status))
	}

	if !m.snap.PolledAt.IsZero() {
		b.WriteString("\n " + metaStyle.Render("updated "+m.snap.PolledAt.Format("15:04:05")) + "\n")
	}
	return b.String()
}

func (m sosModel) helpKeys() string {
	return strings.Join([]string{helpEntry("j/k", "nav"), helpEntry("p", "pending only"), helpEntry("r", "refresh")}, "  ")
}
