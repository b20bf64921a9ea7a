package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/bmbranch/branchdesk/pkg/client"
	"github.com/bmbranch/branchdesk/pkg/domain"
)

// API is the slice of the gateway the dashboard uses. *client.Client
// implements it.
type API interface {
	Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error)
	ListRequests(ctx context.Context, pickupDate string, branchID int64) ([]domain.RunRequest, error)
	ListClients(ctx context.Context) ([]domain.Client, error)
	ListBranches(ctx context.Context, clientID int64) ([]domain.Branch, error)
	RunSummaries(ctx context.Context, q domain.SummaryQuery) ([]domain.RunSummary, error)
	ListSOS(ctx context.Context) ([]domain.SosAlert, error)
	AuthFailures() <-chan client.AuthEvent
}

var _ API = (*client.Client)(nil)

// navigateMsg asks the root model to switch route through the guard.
type navigateMsg struct {
	to route
}

func navigateCmd(to route) tea.Cmd {
	return func() tea.Msg { return navigateMsg{to: to} }
}

// copyResultMsg reports a clipboard write.
type copyResultMsg struct {
	what string
	err  error
}
