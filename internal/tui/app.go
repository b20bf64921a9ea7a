package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/bmbranch/branchdesk/internal/alerts"
	"github.com/bmbranch/branchdesk/internal/session"
	"github.com/bmbranch/branchdesk/pkg/client"
	"github.com/bmbranch/branchdesk/pkg/domain"
)

// chrome is the number of lines outside the body: header, tabs and help.
const chrome = 3

const (
	noticeExpired   = "Your session has expired. Please sign in again."
	noticeSignedOut = "Signed out."
)

// sessionReadyMsg carries the settled state after rehydration.
type sessionReadyMsg struct {
	state session.State
}

// authFailureMsg is delivered for every 401 the gateway reports.
type authFailureMsg struct {
	ev client.AuthEvent
}

type sosTickMsg struct {
	gen int
}

type sosPolledMsg struct {
	gen    int
	manual bool
	snap   alerts.Snapshot
}

// Options configures the dashboard.
type Options struct {
	// Poller drives the SOS badge and view. Nil disables polling.
	Poller       *alerts.Poller
	PollInterval time.Duration
	Version      string
	Log          zerolog.Logger
	// Now defaults to time.Now; it seeds the summaries period.
	Now func() time.Time
	// OnAuthFailure is called once per handled 401.
	OnAuthFailure func()
}

// App is the root Bubbletea model. It is the only consumer of the
// gateway's auth failures and the only place that navigates.
type App struct {
	api   API
	store *session.Store
	opts  Options

	route route
	from  route

	login   loginModel
	daily   summariesModel
	runs    runsModel
	clients clientsModel
	sos     sosModel

	alerts  alerts.Snapshot
	polling bool
	pollGen int

	notice  string
	spinner spinner.Model
	width   int
	height  int
}

// NewApp creates the dashboard. The session store is rehydrated by Init.
func NewApp(api API, store *session.Store, opts Options) App {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = alerts.DefaultInterval
	}
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = accentStyle

	return App{
		api:     api,
		store:   store,
		opts:    opts,
		route:   defaultRoute,
		login:   newLoginModel(api, store, opts.Log),
		daily:   newSummariesModel(api, opts.Now()),
		runs:    newRunsModel(api),
		clients: newClientsModel(api),
		sos:     newSOSModel(),
		spinner: sp,
	}
}

func (a App) Init() tea.Cmd {
	return tea.Batch(a.initSession(), a.waitForAuthFailure(), a.spinner.Tick)
}

func (a App) initSession() tea.Cmd {
	store := a.store
	return func() tea.Msg {
		return sessionReadyMsg{state: store.Initialize()}
	}
}

func (a App) waitForAuthFailure() tea.Cmd {
	if a.api == nil {
		return nil
	}
	ch := a.api.AuthFailures()
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return authFailureMsg{ev: ev}
	}
}

func (a App) identity() domain.User {
	sess, _ := a.store.Current()
	return sess.Identity
}

func (a App) bodySize() tea.WindowSizeMsg {
	return tea.WindowSizeMsg{Width: a.width, Height: a.height - chrome}
}

// navigate routes through the guard and prepares the target view.
func (a App) navigate(to route) (App, tea.Cmd) {
	d := guard(a.store.State(), to, a.from)
	switch d.kind {
	case decisionLoading:
		a.route = d.to
		return a, nil
	case decisionRedirect:
		if d.to == routeLogin {
			a.from = d.from
		} else {
			a.from = routeNone
		}
		a.opts.Log.Debug().Str("requested", to.String()).Str("to", d.to.String()).Msg("redirect")
		return a.navigate(d.to)
	}

	a.route = d.to
	cmd := a.enterRoute(d.to)
	if !d.to.protected() {
		return a, cmd
	}
	var pollCmd tea.Cmd
	a, pollCmd = a.startPolling()
	return a, tea.Batch(cmd, pollCmd)
}

func (a *App) enterRoute(r route) tea.Cmd {
	var cmd tea.Cmd
	switch r {
	case routeLogin:
		a.login = newLoginModel(a.api, a.store, a.opts.Log)
		a.login, _ = a.login.Update(a.bodySize())
		cmd = a.login.Init()
	case routeDaily:
		a.daily.user = a.identity()
		a.daily, cmd = a.daily.reload()
	case routeRuns:
		if a.runs.day == "" {
			a.route = routeDaily
			return a.enterRoute(routeDaily)
		}
		a.runs.user = a.identity()
		a.runs, cmd = a.runs.reload()
	case routeClients:
		a.clients.loading = true
		cmd = a.clients.Init()
	case routeSOS:
		a.sos, _ = a.sos.Update(sosPolledMsg{snap: a.alerts})
	}
	return cmd
}

func (a App) startPolling() (App, tea.Cmd) {
	if a.polling || a.opts.Poller == nil {
		return a, nil
	}
	a.polling = true
	a.pollGen++
	return a, a.pollCmd(a.pollGen, false)
}

func (a *App) stopPolling() {
	a.polling = false
	a.pollGen++
	a.alerts = alerts.Snapshot{}
	a.sos, _ = a.sos.Update(sosPolledMsg{snap: a.alerts})
	if a.opts.Poller != nil {
		a.opts.Poller.Reset()
	}
}

func (a App) pollCmd(gen int, manual bool) tea.Cmd {
	p := a.opts.Poller
	if p == nil {
		return nil
	}
	return func() tea.Msg {
		return sosPolledMsg{gen: gen, manual: manual, snap: p.Poll(context.Background())}
	}
}

func (a App) pollTickCmd(gen int) tea.Cmd {
	return tea.Tick(a.opts.PollInterval, func(time.Time) tea.Msg {
		return sosTickMsg{gen: gen}
	})
}

func (a App) handleAuthFailure(ev client.AuthEvent) (App, tea.Cmd) {
	a.opts.Log.Warn().Str("method", ev.Method).Str("path", ev.Path).Msg("server rejected credentials")
	if a.opts.OnAuthFailure != nil {
		a.opts.OnAuthFailure()
	}

	wasAuthenticated := a.store.IsAuthenticated()
	a.store.Logout()
	a.stopPolling()

	cmds := []tea.Cmd{a.waitForAuthFailure()}
	if a.route != routeLogin {
		if a.route.protected() {
			a.from = a.route
		}
		if wasAuthenticated {
			a.notice = noticeExpired
		}
		var cmd tea.Cmd
		a, cmd = a.navigate(routeLogin)
		cmds = append(cmds, cmd)
	}
	return a, tea.Batch(cmds...)
}

func (a App) logout() (App, tea.Cmd) {
	a.store.Logout()
	a.stopPolling()
	a.from = routeNone
	a.notice = noticeSignedOut
	return a.navigate(routeLogin)
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		bodyMsg := a.bodySize()
		a.login, _ = a.login.Update(bodyMsg)
		a.daily, _ = a.daily.Update(bodyMsg)
		a.runs, _ = a.runs.Update(bodyMsg)
		a.clients, _ = a.clients.Update(bodyMsg)
		a.sos, _ = a.sos.Update(bodyMsg)
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case sessionReadyMsg:
		a.opts.Log.Info().Str("state", msg.state.String()).Msg("session ready")
		return a.navigate(a.route)

	case authFailureMsg:
		return a.handleAuthFailure(msg.ev)

	case loginSucceededMsg:
		to := a.from
		if !to.protected() {
			to = defaultRoute
		}
		a.from = routeNone
		a.notice = ""
		return a.navigate(to)

	case navigateMsg:
		return a.navigate(msg.to)

	case openRunsMsg:
		a.runs = a.runs.open(msg.day)
		return a.navigate(routeRuns)

	case sosTickMsg:
		if msg.gen != a.pollGen || !a.polling {
			return a, nil
		}
		if !a.store.IsAuthenticated() {
			a.polling = false
			return a, nil
		}
		return a, a.pollCmd(msg.gen, false)

	case sosPolledMsg:
		return a.handlePoll(msg)

	case tea.KeyMsg:
		return a.handleKey(msg)
	}

	// Async results go to every view; each ignores what isn't its own.
	var cmds []tea.Cmd
	var cmd tea.Cmd
	a.login, cmd = a.login.Update(msg)
	cmds = append(cmds, cmd)
	a.daily, cmd = a.daily.Update(msg)
	cmds = append(cmds, cmd)
	a.runs, cmd = a.runs.Update(msg)
	cmds = append(cmds, cmd)
	a.clients, cmd = a.clients.Update(msg)
	cmds = append(cmds, cmd)
	return a, tea.Batch(cmds...)
}

func (a App) handlePoll(msg sosPolledMsg) (App, tea.Cmd) {
	if msg.gen != a.pollGen {
		return a, nil
	}
	if !a.store.IsAuthenticated() {
		a.polling = false
		return a, nil
	}
	a.alerts = msg.snap
	a.sos, _ = a.sos.Update(msg)

	var cmds []tea.Cmd
	if !msg.manual {
		cmds = append(cmds, a.pollTickCmd(msg.gen))
	}
	if a.opts.Poller != nil && a.opts.Poller.ShouldOpen(msg.snap, a.route == routeSOS) {
		a.opts.Log.Info().Int("active", msg.snap.Active).Msg("opening sos view")
		var cmd tea.Cmd
		a, cmd = a.navigate(routeSOS)
		cmds = append(cmds, cmd)
	}
	return a, tea.Batch(cmds...)
}

func (a App) handleKey(msg tea.KeyMsg) (App, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return a, tea.Quit
	}

	// The login form and the loading screen take keys as text.
	if a.route == routeLogin {
		if msg.String() == "esc" && a.notice != "" && a.login.err == "" {
			a.notice = ""
			return a, nil
		}
		var cmd tea.Cmd
		a.login, cmd = a.login.Update(msg)
		return a, cmd
	}
	if !a.store.State().Settled() {
		return a, nil
	}

	switch msg.String() {
	case "q":
		return a, tea.Quit
	case "1":
		return a.navigate(routeDaily)
	case "2":
		return a.navigate(routeClients)
	case "3":
		return a.navigate(routeSOS)
	case "L":
		return a.logout()
	case "x":
		if a.notice != "" {
			a.notice = ""
			return a, nil
		}
	case "r":
		if a.route == routeSOS && a.polling {
			return a, a.pollCmd(a.pollGen, true)
		}
	}

	var cmd tea.Cmd
	switch a.route {
	case routeDaily:
		a.daily, cmd = a.daily.Update(msg)
	case routeRuns:
		a.runs, cmd = a.runs.Update(msg)
	case routeClients:
		a.clients, cmd = a.clients.Update(msg)
	case routeSOS:
		a.sos, cmd = a.sos.Update(msg)
	}
	return a, cmd
}

func (a App) View() string {
	header := a.headerView()
	tabs := a.tabsView()

	var body, help string
	switch {
	case a.route != routeLogin && !a.store.State().Settled():
		body = "\n " + a.spinner.View() + " " + dimStyle.Render("restoring session...") + "\n"
		help = helpBar(helpEntry("ctrl+c", "quit"))
	case a.route == routeLogin:
		body = a.login.View()
		help = a.login.helpKeys()
	case a.route == routeDaily:
		body = a.daily.View()
		help = " " + helpEntry("1-3", "views") + "  " + a.daily.helpKeys() + "  " + helpEntry("L", "logout") + "  " + helpEntry("q", "quit")
	case a.route == routeRuns:
		body = a.runs.View()
		help = " " + helpEntry("1-3", "views") + "  " + a.runs.helpKeys() + "  " + helpEntry("q", "quit")
	case a.route == routeClients:
		body = a.clients.View()
		help = " " + helpEntry("1-3", "views") + "  " + a.clients.helpKeys() + "  " + helpEntry("q", "quit")
	case a.route == routeSOS:
		body = a.sos.View()
		help = " " + helpEntry("1-3", "views") + "  " + a.sos.helpKeys() + "  " + helpEntry("q", "quit")
	}

	dismiss := "x"
	if a.route == routeLogin {
		dismiss = "esc"
	}
	body = infoBanner(a.notice, dismiss) + body

	if a.height > 0 {
		body = truncateToHeight(body, a.height-chrome)
	}
	body = strings.TrimRight(body, "\n")

	return fmt.Sprintf("%s\n%s\n%s\n%s", header, tabs, body, help)
}

func (a App) headerView() string {
	left := " " + titleStyle.Render("branchdesk")
	if a.opts.Version != "" {
		left += " " + metaStyle.Render(a.opts.Version)
	}

	var right []string
	if sess, ok := a.store.Current(); ok {
		who := sess.Identity.Name
		if who == "" {
			who = sess.Identity.Email
		}
		if sess.Identity.Role != "" {
			who += metaStyle.Render(" · " + sess.Identity.Role)
		}
		right = append(right, normalStyle.Render(who))
	}
	if a.alerts.Active > 0 {
		right = append(right, alertBadgeStyle.Render(fmt.Sprintf("SOS %d", a.alerts.Active)))
	}
	if len(right) == 0 {
		return left
	}
	r := strings.Join(right, "  ") + " "
	gap := a.width - lipgloss.Width(left) - lipgloss.Width(r)
	if gap < 2 {
		gap = 2
	}
	return left + strings.Repeat(" ", gap) + r
}

func (a App) tabsView() string {
	if !a.store.IsAuthenticated() {
		return ""
	}
	type tabEntry struct {
		key  string
		name string
		r    route
	}
	tabs := []tabEntry{
		{"1", "Daily", routeDaily},
		{"2", "Clients", routeClients},
		{"3", "SOS", routeSOS},
	}
	current := a.route
	if current == routeRuns {
		current = routeDaily
	}

	parts := make([]string, 0, len(tabs))
	for _, t := range tabs {
		var label string
		if t.r == current {
			label = accentStyle.Render(t.key) + " " + selectedStyle.Underline(true).Render(t.name)
		} else {
			label = metaStyle.Render(t.key) + " " + dimStyle.Render(t.name)
		}
		if t.r == routeSOS && a.alerts.Active > 0 {
			label += " " + alertStyle.Render(fmt.Sprintf("●%d", a.alerts.Active))
		}
		parts = append(parts, label)
	}
	return " " + strings.Join(parts, "   ")
}
