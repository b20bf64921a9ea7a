package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/bmbranch/branchdesk/pkg/domain"
)

// Login exchanges username and password for a token and user.
func (c *Client) Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error) {
	var resp domain.LoginResponse
	if err := c.Post(ctx, "/auth/login", req, &resp); err != nil {
		return nil, fmt.Errorf("client.Login: %w", err)
	}
	return &resp, nil
}

// ListRequests returns the runs picked up on pickupDate (YYYY-MM-DD).
// Zero or empty filters are left off the query.
func (c *Client) ListRequests(ctx context.Context, pickupDate string, branchID int64) ([]domain.RunRequest, error) {
	params := url.Values{}
	if pickupDate != "" {
		params.Set("pickupDate", pickupDate)
	}
	if branchID != 0 {
		params.Set("branchId", strconv.FormatInt(branchID, 10))
	}

	var runs []domain.RunRequest
	if err := c.Get(ctx, withQuery("/requests", params), &runs); err != nil {
		return nil, fmt.Errorf("client.ListRequests: %w", err)
	}
	return runs, nil
}

// ListClients returns every client visible to the user.
func (c *Client) ListClients(ctx context.Context) ([]domain.Client, error) {
	var clients []domain.Client
	if err := c.Get(ctx, "/clients", &clients); err != nil {
		return nil, fmt.Errorf("client.ListClients: %w", err)
	}
	return clients, nil
}

// ListBranches returns the branches of one client.
func (c *Client) ListBranches(ctx context.Context, clientID int64) ([]domain.Branch, error) {
	var branches []domain.Branch
	path := "/clients/" + url.PathEscape(strconv.FormatInt(clientID, 10)) + "/branches"
	if err := c.Get(ctx, path, &branches); err != nil {
		return nil, fmt.Errorf("client.ListBranches: %w", err)
	}
	return branches, nil
}

// RunSummaries returns the per-day run aggregates for a month.
func (c *Client) RunSummaries(ctx context.Context, q domain.SummaryQuery) ([]domain.RunSummary, error) {
	params := url.Values{}
	params.Set("year", strconv.Itoa(q.Year))
	params.Set("month", strconv.Itoa(q.Month))
	if q.BranchID != 0 {
		params.Set("branchId", strconv.FormatInt(q.BranchID, 10))
	}
	if q.ClientID != 0 {
		params.Set("clientId", strconv.FormatInt(q.ClientID, 10))
	}

	var summaries []domain.RunSummary
	if err := c.Get(ctx, withQuery("/runs/summaries", params), &summaries); err != nil {
		return nil, fmt.Errorf("client.RunSummaries: %w", err)
	}
	return summaries, nil
}

// ListSOS returns all SOS alerts, pending or not.
func (c *Client) ListSOS(ctx context.Context) ([]domain.SosAlert, error) {
	var alerts []domain.SosAlert
	if err := c.Get(ctx, "/sos", &alerts); err != nil {
		return nil, fmt.Errorf("client.ListSOS: %w", err)
	}
	return alerts, nil
}

// SendLog ships one structured log record to the server.
func (c *Client) SendLog(ctx context.Context, entry domain.LogEntry) error {
	if err := c.Post(ctx, "/logs", entry, nil); err != nil {
		return fmt.Errorf("client.SendLog: %w", err)
	}
	return nil
}

func withQuery(path string, params url.Values) string {
	if len(params) == 0 {
		return path
	}
	return path + "?" + params.Encode()
}
