package tui

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/bmbranch/branchdesk/internal/session"
	"github.com/bmbranch/branchdesk/pkg/client"
	"github.com/bmbranch/branchdesk/pkg/domain"
)

func newTestLogin(api API) (loginModel, *session.Store) {
	store, _ := newSignedOutStore()
	store.Initialize()
	return newLoginModel(api, store, zerolog.Nop()), store
}

// submitLogin fills the form, presses enter and feeds the result back.
func submitLogin(t *testing.T, m loginModel, user, pass string) (loginModel, any) {
	t.Helper()
	m.username.SetValue(user)
	m.password.SetValue(pass)
	m, cmd := m.Update(key("enter"))
	if cmd == nil {
		t.Fatal("expected submit command")
	}
	if !m.submitting {
		t.Error("expected submitting while request is in flight")
	}
	m, next := m.Update(cmd())
	if next == nil {
		return m, nil
	}
	return m, next()
}

func TestLoginInvalidCredentialsFromServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Invalid credentials"}`))
	}))
	defer srv.Close()

	m, store := newTestLogin(client.New(srv.URL, nil))
	m.username.SetValue("ana")
	m.password.SetValue("wrong")
	m, cmd := m.Update(key("enter"))
	m, _ = m.Update(cmd())

	if m.err != "Invalid credentials" {
		t.Errorf("expected server message, got %q", m.err)
	}
	if store.State() != session.StateUnauthenticated {
		t.Errorf("expected unauthenticated, got %s", store.State())
	}
	if !strings.Contains(m.View(), "Invalid credentials") {
		t.Errorf("expected error in view, got:\n%s", m.View())
	}
	if m.submitting {
		t.Error("expected submitting cleared")
	}
}

func TestLoginSuccessPersistsSession(t *testing.T) {
	api := newFakeAPI()
	m, store := newTestLogin(api)

	m, msg := submitLogin(t, m, "ana", "secret")
	if _, ok := msg.(loginSucceededMsg); !ok {
		t.Fatalf("expected loginSucceededMsg, got %#v", msg)
	}
	if !store.IsAuthenticated() {
		t.Fatal("expected authenticated")
	}
	sess, _ := store.Current()
	if sess.Credential != "tok" || sess.Identity.ID != 7 {
		t.Errorf("unexpected session %+v", sess)
	}
	if m.password.Value() != "" {
		t.Error("expected password cleared after sign in")
	}
}

func TestLoginMissingFields(t *testing.T) {
	api := newFakeAPI()
	m, _ := newTestLogin(api)
	m.username.SetValue("ana")

	m, cmd := m.Update(key("enter"))
	if m.err != msgMissingFields {
		t.Errorf("expected %q, got %q", msgMissingFields, m.err)
	}
	if cmd == nil {
		t.Error("expected error clear timer")
	}
	if api.loginCalls != 0 {
		t.Errorf("expected no request, got %d", api.loginCalls)
	}
}

func TestLoginIncompleteResponse(t *testing.T) {
	tests := []struct {
		name string
		resp *domain.LoginResponse
	}{
		{"nil", nil},
		{"no token", &domain.LoginResponse{User: &domain.User{ID: 1}}},
		{"no user", &domain.LoginResponse{Token: "tok"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			api := newFakeAPI()
			api.loginFn = func(domain.LoginRequest) (*domain.LoginResponse, error) { return tc.resp, nil }
			m, store := newTestLogin(api)

			m, msg := submitLogin(t, m, "ana", "secret")
			if _, ok := msg.(loginSucceededMsg); ok {
				t.Fatal("expected no success")
			}
			if m.err != msgInvalidResponse {
				t.Errorf("expected %q, got %q", msgInvalidResponse, m.err)
			}
			if store.IsAuthenticated() {
				t.Error("expected unauthenticated")
			}
		})
	}
}

func TestLoginStorageFailure(t *testing.T) {
	st := session.NewMemoryStorage()
	st.FailSet(session.KeyUser, errors.New("disk full"))
	store := session.NewStore(st, zerolog.Nop())
	store.Initialize()
	m := newLoginModel(newFakeAPI(), store, zerolog.Nop())

	m, _ = submitLogin(t, m, "ana", "secret")
	if m.err != msgSaveFailed {
		t.Errorf("expected %q, got %q", msgSaveFailed, m.err)
	}
	if store.IsAuthenticated() {
		t.Error("expected unauthenticated")
	}
}

func TestLoginErrorClearsAfterTimer(t *testing.T) {
	m, _ := newTestLogin(newFakeAPI())
	m, _ = m.setError("first")
	stale := m.errGen
	m, _ = m.setError("second")

	m, _ = m.Update(loginErrClearMsg{gen: stale})
	if m.err != "second" {
		t.Errorf("expected newer error kept, got %q", m.err)
	}
	m, _ = m.Update(loginErrClearMsg{gen: m.errGen})
	if m.err != "" {
		t.Errorf("expected error cleared, got %q", m.err)
	}
}

func TestLoginFocusToggle(t *testing.T) {
	m, _ := newTestLogin(newFakeAPI())
	m, _ = m.Update(key("tab"))
	if m.focus != 1 || !m.password.Focused() || m.username.Focused() {
		t.Fatal("expected password focused after tab")
	}
	m, _ = m.Update(key("x"))
	if m.password.Value() != "x" || m.username.Value() != "" {
		t.Errorf("expected typing into password, got user=%q pass=%q", m.username.Value(), m.password.Value())
	}
	if !strings.Contains(m.View(), "•") {
		t.Errorf("expected password to be masked, got:\n%s", m.View())
	}
}

func TestLoginMessage(t *testing.T) {
	body := func(status int, b string) error {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_, _ = w.Write([]byte(b))
		}))
		defer srv.Close()
		_, err := client.New(srv.URL, nil).Login(t.Context(), domain.LoginRequest{Username: "a", Password: "b"})
		return err
	}

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"401 with message", body(401, `{"message":"Account locked"}`), "Account locked"},
		{"401 without message", body(401, `{}`), "Invalid username or password"},
		{"404", body(404, `{"message":"nope"}`), "Service not found. Please contact support."},
		{"500", body(500, `{"message":"boom"}`), "Server error. Please try again later."},
		{"422 with message", body(422, `{"message":"Username too short"}`), "Username too short"},
		{"422 without message", body(422, `{}`), "Login failed. Please try again."},
		{"timeout", &client.Error{Status: 408, Code: client.CodeTimeout}, client.MsgTimeout},
		{"network", &client.Error{Code: client.CodeNetwork}, "Network error. Please check your connection."},
		{"unknown", &client.Error{Status: 500, Code: client.CodeUnknown}, "An unexpected error occurred. Please try again."},
		{"plain", errors.New("what"), "An unexpected error occurred. Please try again."},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := client.LoginMessage(tc.err); got != tc.want {
				t.Errorf("LoginMessage() = %q, want %q", got, tc.want)
			}
		})
	}
}
