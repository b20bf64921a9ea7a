package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/bmbranch/branchdesk/pkg/client"
	"github.com/bmbranch/branchdesk/pkg/domain"
)

type clientsLoadedMsg struct {
	clients []domain.Client
	err     error
}

type branchesLoadedMsg struct {
	clientID int64
	branches []domain.Branch
	err      error
}

type clientsModel struct {
	api      API
	clients  []domain.Client
	cursor   int
	selected int64 // client whose branches are listed, 0 for none
	branches []domain.Branch
	loading  bool
	fetching bool // branches in flight
	err      string
	width    int
	height   int
}

func newClientsModel(api API) clientsModel {
	return clientsModel{api: api}
}

func (m clientsModel) Init() tea.Cmd {
	api := m.api
	return func() tea.Msg {
		clients, err := api.ListClients(context.Background())
		return clientsLoadedMsg{clients: clients, err: err}
	}
}

func (m clientsModel) loadBranches(id int64) tea.Cmd {
	api := m.api
	return func() tea.Msg {
		branches, err := api.ListBranches(context.Background(), id)
		return branchesLoadedMsg{clientID: id, branches: branches, err: err}
	}
}

func (m clientsModel) Update(msg tea.Msg) (clientsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case clientsLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = client.UserMessage(msg.err)
		} else {
			m.clients = msg.clients
			m.err = ""
			m.cursor = clampCursor(m.cursor, len(m.clients))
		}

	case branchesLoadedMsg:
		if msg.clientID != m.selected {
			return m, nil
		}
		m.fetching = false
		if msg.err != nil {
			m.err = client.UserMessage(msg.err)
			m.branches = nil
		} else {
			m.branches = msg.branches
		}

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m clientsModel) handleKey(msg tea.KeyMsg) (clientsModel, tea.Cmd) {
	switch msg.String() {
	case "j", "down":
		if m.cursor < len(m.clients)-1 {
			m.cursor++
		}
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
	case "enter":
		if m.cursor < len(m.clients) {
			m.selected = m.clients[m.cursor].ID
			m.branches = nil
			m.fetching = true
			return m, m.loadBranches(m.selected)
		}
	case "s":
		if m.cursor < len(m.clients) {
			c := m.clients[m.cursor]
			return m, tea.Sequence(
				func() tea.Msg { return summaryFilterMsg{clientID: c.ID, name: c.Name} },
				navigateCmd(routeDaily),
			)
		}
	case "r":
		m.loading = true
		return m, m.Init()
	case "x":
		m.err = ""
	}
	return m, nil
}

func (m clientsModel) View() string {
	var b strings.Builder
	b.WriteString(" " + sectionHeaderStyle.Render("Clients") + "\n")
	b.WriteString(errorBanner(m.err, "x"))

	if m.loading && len(m.clients) == 0 {
		b.WriteString(" " + dimStyle.Render("loading...") + "\n")
		return b.String()
	}
	if len(m.clients) == 0 {
		if m.err == "" {
			b.WriteString(" " + dimStyle.Render("no clients") + "\n")
		}
		return b.String()
	}

	for i, c := range m.clients {
		cursor := " "
		style := normalStyle
		if i == m.cursor {
			cursor = accentStyle.Render("▸")
			style = selectedStyle
		}
		b.WriteString(fmt.Sprintf(" %s %s %s\n", cursor, metaStyle.Render(fmt.Sprintf("#%-4d", c.ID)), style.Render(c.Name)))
		if c.ID == m.selected {
			b.WriteString(m.branchesView())
		}
	}
	return b.String()
}

func (m clientsModel) branchesView() string {
	if m.fetching {
		return "      " + dimStyle.Render("loading branches...") + "\n"
	}
	if len(m.branches) == 0 {
		return "      " + dimStyle.Render("no branches") + "\n"
	}
	var b strings.Builder
	for _, br := range m.branches {
		b.WriteString("      " + metaStyle.Render("└ ") + normalStyle.Render(br.Name) + " " + metaStyle.Render(fmt.Sprintf("#%d", br.ID)) + "\n")
	}
	return b.String()
}

func (m clientsModel) helpKeys() string {
	return strings.Join([]string{helpEntry("j/k", "nav"), helpEntry("enter", "branches"), helpEntry("s", "summaries"), helpEntry("r", "refresh")}, "  ")
}
