package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/bmbranch/branchdesk/pkg/client"
	"github.com/bmbranch/branchdesk/pkg/domain"
)

type runsLoadedMsg struct {
	gen  int
	runs []domain.RunRequest
	err  error
}

type runsModel struct {
	api     API
	user    domain.User
	day     string
	runs    []domain.RunRequest
	cursor  int
	gen     int
	loading bool
	err     string
	status  string
	width   int
	height  int
}

func newRunsModel(api API) runsModel {
	return runsModel{api: api}
}

// open switches to day. The fetch starts when the route is entered.
func (m runsModel) open(day string) runsModel {
	m.day = day
	m.runs = nil
	m.cursor = 0
	m.status = ""
	m.err = ""
	return m
}

func (m runsModel) reload() (runsModel, tea.Cmd) {
	if m.day == "" {
		return m, nil
	}
	m.gen++
	m.loading = true
	gen := m.gen
	api := m.api
	day := m.day
	branch := m.user.ID
	return m, func() tea.Msg {
		runs, err := api.ListRequests(context.Background(), day, branch)
		return runsLoadedMsg{gen: gen, runs: runs, err: err}
	}
}

func (m runsModel) Update(msg tea.Msg) (runsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case runsLoadedMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			m.err = client.UserMessage(msg.err)
		} else {
			m.runs = msg.runs
			m.err = ""
			m.cursor = clampCursor(m.cursor, len(m.runs))
		}

	case copyResultMsg:
		if msg.err != nil {
			m.status = "copy failed: " + msg.err.Error()
		} else {
			m.status = "copied " + msg.what
		}

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m runsModel) handleKey(msg tea.KeyMsg) (runsModel, tea.Cmd) {
	switch msg.String() {
	case "j", "down":
		if m.cursor < len(m.runs)-1 {
			m.cursor++
		}
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
	case "c":
		if m.cursor < len(m.runs) {
			run := m.runs[m.cursor]
			text := runLine(run)
			what := fmt.Sprintf("run #%d", run.ID)
			return m, func() tea.Msg {
				return copyResultMsg{what: what, err: clipboard.WriteAll(text)}
			}
		}
	case "r":
		return m.reload()
	case "x":
		m.err = ""
		m.status = ""
	case "esc", "backspace":
		return m, navigateCmd(routeDaily)
	}
	return m, nil
}

// runLine is the plain-text form of a run used for copying.
func runLine(r domain.RunRequest) string {
	line := fmt.Sprintf("#%d %s -> %s %s", r.ID, r.PickupLocation, r.DeliveryLocation, domain.FormatAmount(r.Price))
	if r.Status != "" {
		line += " (" + r.Status + ")"
	}
	return line
}

func (m runsModel) View() string {
	var b strings.Builder

	b.WriteString(" " + sectionHeaderStyle.Render("Runs") + "  " + selectedStyle.Render(formatDay(m.day)) + "\n")
	b.WriteString(errorBanner(m.err, "x"))
	b.WriteString(infoBanner(m.status, "x"))

	if m.loading && len(m.runs) == 0 {
		b.WriteString(" " + dimStyle.Render("loading...") + "\n")
		return b.String()
	}
	if len(m.runs) == 0 {
		if m.err == "" {
			b.WriteString(" " + dimStyle.Render("no runs on this date") + "\n")
		}
		return b.String()
	}

	var total float64
	for _, r := range m.runs {
		total += r.Price
	}
	b.WriteString(" " + metaStyle.Render(fmt.Sprintf("%d runs · ", len(m.runs))) + amountStyle.Render(domain.FormatAmount(total)) + "\n\n")

	locWidth := max((m.width-30)/2, 12)
	for i, r := range m.runs {
		cursor := " "
		style := normalStyle
		if i == m.cursor {
			cursor = accentStyle.Render("▸")
			style = selectedStyle
		}
		row := fmt.Sprintf("#%-6d %-*s → %-*s",
			r.ID,
			locWidth, truncStr(r.PickupLocation, locWidth),
			locWidth, truncStr(r.DeliveryLocation, locWidth))
		line := " " + cursor + " " + style.Render(row) + " " + amountStyle.Render(fmt.Sprintf("%10s", domain.FormatAmount(r.Price)))
		if r.Status != "" {
			line += " " + dimStyle.Render(r.Status)
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

func (m runsModel) helpKeys() string {
	return strings.Join([]string{helpEntry("j/k", "nav"), helpEntry("c", "copy"), helpEntry("r", "refresh"), helpEntry("esc", "back")}, "  ")
}
