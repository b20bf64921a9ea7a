package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultTimeout bounds every gateway request.
const DefaultTimeout = 30 * time.Second

// maxBody caps how much of a response body the gateway will read.
const maxBody = 1 << 20

// CredentialSource supplies the bearer token for outgoing requests.
// An empty string means the request goes out unauthenticated.
type CredentialSource interface {
	Credential() string
}

// CredentialFunc adapts a function to CredentialSource.
type CredentialFunc func() string

// Credential implements CredentialSource.
func (f CredentialFunc) Credential() string { return f() }

// Observer receives one call per completed request. Code is empty on success.
type Observer interface {
	ObserveRequest(method, path string, status int, code string, elapsed time.Duration)
}

// AuthEvent is published whenever the API answers 401.
type AuthEvent struct {
	Method  string
	Path    string
	Message string
}

// Response is a successful API response passed through unchanged.
type Response struct {
	Body       []byte
	Status     int
	StatusText string
	Header     http.Header
}

// Client is the branch API gateway. All API traffic goes through it.
type Client struct {
	baseURL    string
	creds      CredentialSource
	httpClient *http.Client
	log        zerolog.Logger
	observer   Observer
	authCh     chan AuthEvent
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithObserver registers a per-request observer, typically metrics.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// New creates a gateway rooted at baseURL. creds may be nil.
func New(baseURL string, creds CredentialSource, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		creds:   creds,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		log:    zerolog.Nop(),
		authCh: make(chan AuthEvent, 1),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// BaseURL returns the normalised API root the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// AuthFailures delivers an event for every 401 response. The channel holds
// at most one pending event; further 401s are coalesced until it is drained.
// Exactly one consumer should read it.
func (c *Client) AuthFailures() <-chan AuthEvent { return c.authCh }

func (c *Client) publishAuthFailure(ev AuthEvent) {
	select {
	case c.authCh <- ev:
	default:
	}
}

// Do performs one request and returns the raw response on success.
// Any failure is returned as *Error.
func (c *Client) Do(ctx context.Context, method, path string, body any) (*Response, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, unknownError(fmt.Errorf("marshal body: %w", err))
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, unknownError(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.creds != nil {
		if tok := c.creds.Credential(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}
	reqID := uuid.NewString()
	req.Header.Set("X-Request-ID", reqID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		apiErr := transportError(err)
		c.finish(method, path, reqID, apiErr.Status, apiErr, start)
		return nil, apiErr
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close

	data, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBody))

	if resp.StatusCode >= 400 {
		apiErr := httpError(resp.StatusCode, data)
		c.finish(method, path, reqID, resp.StatusCode, apiErr, start)
		if resp.StatusCode == http.StatusUnauthorized {
			c.publishAuthFailure(AuthEvent{Method: method, Path: path, Message: apiErr.Message})
		}
		return nil, apiErr
	}

	if readErr != nil {
		apiErr := transportError(readErr)
		c.finish(method, path, reqID, resp.StatusCode, apiErr, start)
		return nil, apiErr
	}

	c.finish(method, path, reqID, resp.StatusCode, nil, start)
	return &Response{
		Body:       data,
		Status:     resp.StatusCode,
		StatusText: http.StatusText(resp.StatusCode),
		Header:     resp.Header,
	}, nil
}

func (c *Client) finish(method, path, reqID string, status int, apiErr *Error, start time.Time) {
	elapsed := time.Since(start)
	code := ""
	if apiErr != nil {
		code = apiErr.Code
		c.log.Warn().
			Str("method", method).
			Str("path", path).
			Str("request_id", reqID).
			Int("status", apiErr.Status).
			Str("code", apiErr.Code).
			Dur("elapsed", elapsed).
			Msg(apiErr.Message)
	} else {
		c.log.Debug().
			Str("method", method).
			Str("path", path).
			Str("request_id", reqID).
			Int("status", status).
			Dur("elapsed", elapsed).
			Msg("api request")
	}
	if c.observer != nil {
		c.observer.ObserveRequest(method, path, status, code, elapsed)
	}
}

func (c *Client) doRequest(ctx context.Context, method, path string, body any, out any) error {
	resp, err := c.Do(ctx, method, path, body)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(resp.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return unknownError(fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// Get decodes the JSON body of GET path into out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.doRequest(ctx, http.MethodGet, path, nil, out)
}

// Post sends body as JSON and decodes the response into out (which may be nil).
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.doRequest(ctx, http.MethodPost, path, body, out)
}

// errAsAPI is a small helper for endpoint wrappers that need the status.
func errAsAPI(err error) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return nil
}
