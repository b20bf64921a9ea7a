package tui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/bmbranch/branchdesk/internal/session"
	"github.com/bmbranch/branchdesk/pkg/client"
	"github.com/bmbranch/branchdesk/pkg/domain"
)

// loginErrorTTL is how long a login error stays on screen.
const loginErrorTTL = 5 * time.Second

const (
	msgMissingFields   = "Please enter both username and password"
	msgInvalidResponse = "Invalid response from server"
	msgSaveFailed      = "Could not save your session. Please try again."
)

// -- messages --

type loginResultMsg struct {
	resp *domain.LoginResponse
	err  error
}

// loginErrClearMsg clears the error only if no newer error replaced it.
type loginErrClearMsg struct {
	gen int
}

// loginSucceededMsg tells the root model the session is now authenticated.
type loginSucceededMsg struct{}

// -- model --

type loginModel struct {
	api      API
	store    *session.Store
	validate *validator.Validate
	log      zerolog.Logger

	username   textinput.Model
	password   textinput.Model
	focus      int // 0 username, 1 password
	submitting bool
	err        string
	errGen     int
	width      int
	height     int
}

func newLoginModel(api API, store *session.Store, log zerolog.Logger) loginModel {
	u := textinput.New()
	u.Prompt = ""
	u.Placeholder = "username"
	u.CharLimit = 128
	u.Focus()

	p := textinput.New()
	p.Prompt = ""
	p.Placeholder = "password"
	p.CharLimit = 256
	p.EchoMode = textinput.EchoPassword
	p.EchoCharacter = '•'

	return loginModel{
		api:      api,
		store:    store,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		log:      log,
		username: u,
		password: p,
	}
}

func (m loginModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m loginModel) submit() tea.Cmd {
	api := m.api
	req := domain.LoginRequest{Username: m.username.Value(), Password: m.password.Value()}
	return func() tea.Msg {
		resp, err := api.Login(context.Background(), req)
		return loginResultMsg{resp: resp, err: err}
	}
}

func (m loginModel) setError(text string) (loginModel, tea.Cmd) {
	m.err = text
	m.errGen++
	gen := m.errGen
	return m, tea.Tick(loginErrorTTL, func(time.Time) tea.Msg {
		return loginErrClearMsg{gen: gen}
	})
}

func (m loginModel) Update(msg tea.Msg) (loginModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case loginErrClearMsg:
		if msg.gen == m.errGen {
			m.err = ""
		}
		return m, nil

	case loginResultMsg:
		return m.handleResult(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	if m.focus == 0 {
		m.username, cmd = m.username.Update(msg)
	} else {
		m.password, cmd = m.password.Update(msg)
	}
	return m, cmd
}

func (m loginModel) handleKey(msg tea.KeyMsg) (loginModel, tea.Cmd) {
	switch msg.String() {
	case "tab", "shift+tab", "up", "down":
		m = m.toggleFocus()
		return m, textinput.Blink
	case "esc":
		m.err = ""
		return m, nil
	case "enter":
		if m.submitting {
			return m, nil
		}
		req := domain.LoginRequest{Username: m.username.Value(), Password: m.password.Value()}
		if err := m.validate.Struct(req); err != nil {
			m.log.Debug().Msg("login form incomplete")
			return m.setError(msgMissingFields)
		}
		m.err = ""
		m.submitting = true
		return m, m.submit()
	}

	var cmd tea.Cmd
	if m.focus == 0 {
		m.username, cmd = m.username.Update(msg)
	} else {
		m.password, cmd = m.password.Update(msg)
	}
	return m, cmd
}

func (m loginModel) toggleFocus() loginModel {
	if m.focus == 0 {
		m.focus = 1
		m.username.Blur()
		m.password.Focus()
	} else {
		m.focus = 0
		m.password.Blur()
		m.username.Focus()
	}
	return m
}

func (m loginModel) handleResult(msg loginResultMsg) (loginModel, tea.Cmd) {
	m.submitting = false
	if msg.err != nil {
		m.log.Warn().Err(msg.err).Msg("login failed")
		return m.setError(client.LoginMessage(msg.err))
	}
	if msg.resp == nil || msg.resp.Token == "" || msg.resp.User == nil {
		m.log.Error().
			Bool("token", msg.resp != nil && msg.resp.Token != "").
			Bool("user", msg.resp != nil && msg.resp.User != nil).
			Msg("login response missing token or user")
		return m.setError(msgInvalidResponse)
	}
	if err := m.store.Login(msg.resp.Token, *msg.resp.User); err != nil {
		m.log.Error().Err(err).Msg("persist session")
		return m.setError(msgSaveFailed)
	}
	m.password.SetValue("")
	m.err = ""
	return m, func() tea.Msg { return loginSucceededMsg{} }
}

func (m loginModel) View() string {
	var b strings.Builder

	b.WriteString("\n " + titleStyle.Render("Sign in") + "\n")
	b.WriteString(" " + dimStyle.Render("Branch dashboard") + "\n\n")

	b.WriteString(errorBanner(m.err, "esc"))
	if m.err != "" {
		b.WriteString("\n")
	}

	b.WriteString(m.field("Username", m.username, m.focus == 0))
	b.WriteString(m.field("Password", m.password, m.focus == 1))
	b.WriteString("\n")

	if m.submitting {
		b.WriteString(" " + dimStyle.Render("signing in...") + "\n")
	} else {
		b.WriteString(" " + metaStyle.Render("enter to sign in") + "\n")
	}
	return b.String()
}

func (m loginModel) field(label string, in textinput.Model, focused bool) string {
	marker := "  "
	if focused {
		marker = inputPromptStyle.Render("> ")
	}
	return " " + marker + inputLabelStyle.Render(label) + in.View() + "\n"
}

func (m loginModel) helpKeys() string {
	return helpBar(helpEntry("tab", "next"), helpEntry("enter", "sign in"), helpEntry("esc", "dismiss"), helpEntry("ctrl+c", "quit"))
}
