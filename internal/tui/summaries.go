package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/bmbranch/branchdesk/pkg/client"
	"github.com/bmbranch/branchdesk/pkg/domain"
)

// -- messages --

type summariesLoadedMsg struct {
	gen       int
	summaries []domain.RunSummary
	err       error
}

// openRunsMsg opens the runs view for one day.
type openRunsMsg struct {
	day string
}

// summaryFilterMsg narrows the summaries to one client. Zero clears it.
type summaryFilterMsg struct {
	clientID int64
	name     string
}

type summaryMode int

const (
	summaryModeTable summaryMode = iota
	summaryModeGraph
)

// -- model --

type summariesModel struct {
	api        API
	user       domain.User
	year       int
	month      int
	thisYear   int
	clientID   int64
	clientName string
	summaries  []domain.RunSummary
	mode       summaryMode
	cursor     int
	gen        int
	loading    bool
	err        string
	width      int
	height     int
}

func newSummariesModel(api API, now time.Time) summariesModel {
	return summariesModel{
		api:      api,
		year:     now.Year(),
		month:    int(now.Month()),
		thisYear: now.Year(),
	}
}

func (m summariesModel) query() domain.SummaryQuery {
	return domain.SummaryQuery{
		Year:     m.year,
		Month:    m.month,
		BranchID: m.user.ID,
		ClientID: m.clientID,
	}
}

// reload starts a fetch; results from earlier fetches are dropped.
func (m summariesModel) reload() (summariesModel, tea.Cmd) {
	m.gen++
	m.loading = true
	gen := m.gen
	api := m.api
	q := m.query()
	return m, func() tea.Msg {
		summaries, err := api.RunSummaries(context.Background(), q)
		return summariesLoadedMsg{gen: gen, summaries: summaries, err: err}
	}
}

func (m summariesModel) Update(msg tea.Msg) (summariesModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case summariesLoadedMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			m.err = client.UserMessage(msg.err)
		} else {
			m.summaries = msg.summaries
			m.err = ""
			m.cursor = clampCursor(m.cursor, len(m.summaries))
		}

	case summaryFilterMsg:
		m.clientID = msg.clientID
		m.clientName = msg.name
		m.cursor = 0

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m summariesModel) handleKey(msg tea.KeyMsg) (summariesModel, tea.Cmd) {
	switch msg.String() {
	case "j", "down":
		if m.cursor < len(m.summaries)-1 {
			m.cursor++
		}
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
	case "l", "right":
		m.month = m.month%12 + 1
		m.cursor = 0
		return m.reload()
	case "h", "left":
		m.month = (m.month+10)%12 + 1
		m.cursor = 0
		return m.reload()
	case "y":
		// Only the current and previous year are offered.
		if m.year == m.thisYear {
			m.year = m.thisYear - 1
		} else {
			m.year = m.thisYear
		}
		m.cursor = 0
		return m.reload()
	case "g":
		if m.mode == summaryModeTable {
			m.mode = summaryModeGraph
		} else {
			m.mode = summaryModeTable
		}
	case "c":
		if m.clientID != 0 {
			m.clientID = 0
			m.clientName = ""
			m.cursor = 0
			return m.reload()
		}
	case "r":
		return m.reload()
	case "x":
		m.err = ""
	case "enter":
		if m.cursor < len(m.summaries) {
			day := m.summaries[m.cursor].Day()
			return m, func() tea.Msg { return openRunsMsg{day: day} }
		}
	}
	return m, nil
}

func (m summariesModel) View() string {
	var b strings.Builder

	period := time.Month(m.month).String() + " " + fmt.Sprint(m.year)
	header := " " + sectionHeaderStyle.Render("Daily runs") + "  " + selectedStyle.Render(period)
	if m.clientName != "" {
		header += dimStyle.Render(" · client ") + normalStyle.Render(m.clientName)
	}
	b.WriteString(header + "\n")

	b.WriteString(errorBanner(m.err, "x"))

	if m.loading && len(m.summaries) == 0 {
		b.WriteString(" " + dimStyle.Render("loading...") + "\n")
		return b.String()
	}

	totals := domain.Totals(m.summaries)
	b.WriteString(" " + metaStyle.Render("total runs ") + selectedStyle.Render(fmt.Sprint(totals.Runs)) +
		metaStyle.Render(" · total amount ") + amountStyle.Render(totals.AmountString()) + "\n\n")

	if len(m.summaries) == 0 {
		b.WriteString(" " + dimStyle.Render("no runs this month") + "\n")
		return b.String()
	}

	if m.mode == summaryModeGraph {
		b.WriteString(m.graphView())
	} else {
		b.WriteString(m.tableView())
	}
	return b.String()
}

func (m summariesModel) tableView() string {
	var b strings.Builder
	b.WriteString("   " + metaStyle.Render(fmt.Sprintf("%-17s %6s %10s %12s %12s", "date", "runs", "completed", "amount", "completed")) + "\n")
	for i, s := range m.summaries {
		cursor := " "
		style := normalStyle
		if i == m.cursor {
			cursor = accentStyle.Render("▸")
			style = selectedStyle
		}
		row := fmt.Sprintf("%-17s %6d %10d %12s %12s",
			formatDay(s.Date), s.TotalRuns, s.TotalRunsCompleted,
			domain.FormatAmount(s.TotalAmount), domain.FormatAmount(s.TotalAmountCompleted))
		b.WriteString(" " + cursor + " " + style.Render(row) + "\n")
	}
	return b.String()
}

func (m summariesModel) graphView() string {
	maxRuns := 0
	for _, s := range m.summaries {
		maxRuns = max(maxRuns, s.TotalRuns)
	}
	barWidth := max(m.width-30, 10)

	var b strings.Builder
	for i, s := range m.summaries {
		cursor := " "
		if i == m.cursor {
			cursor = accentStyle.Render("▸")
		}
		done, total := 0, 0
		if maxRuns > 0 {
			total = s.TotalRuns * barWidth / maxRuns
			done = min(s.TotalRunsCompleted*barWidth/maxRuns, total)
		}
		bar := barDoneStyle.Render(strings.Repeat("█", done)) + barStyle.Render(strings.Repeat("░", total-done))
		label := s.Day()
		if t := s.Time(); !t.IsZero() {
			label = t.Format("Jan 02")
		}
		b.WriteString(fmt.Sprintf(" %s %s %s %s\n", cursor, dimStyle.Render(label), bar, metaStyle.Render(fmt.Sprint(s.TotalRuns))))
	}
	b.WriteString("\n " + metaStyle.Render("█ completed  ░ pending") + "\n")
	return b.String()
}

func (m summariesModel) helpKeys() string {
	keys := []string{helpEntry("j/k", "nav"), helpEntry("h/l", "month"), helpEntry("y", "year"), helpEntry("g", "graph"), helpEntry("enter", "runs")}
	if m.clientID != 0 {
		keys = append(keys, helpEntry("c", "clear client"))
	}
	return strings.Join(append(keys, helpEntry("r", "refresh")), "  ")
}
