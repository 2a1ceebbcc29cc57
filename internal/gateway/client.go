// Package gateway is the request/response boundary to the remote backend. It
// speaks JSON over REST, bounds every call with the configured timeout, and
// maps transport failures onto the domain error kinds.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"example.com/liftsync/internal/domain"
)

// Client talks to the backend REST API.
type Client struct {
	baseURL string
	httpc   *http.Client
	timeout time.Duration
	logger  *log.Logger

	auth authState
}

// New constructs a Client. timeout bounds each remote call; a call that
// exceeds it is reported as a remote failure, never left pending.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{},
		timeout: timeout,
		logger:  log.New(log.Writer(), "[gateway] ", log.LstdFlags),
	}
}

// ListTemplates fetches all templates for the user.
func (c *Client) ListTemplates(ctx context.Context, userID string) ([]domain.Template, error) {
	var out []domain.Template
	path := "/rest/v1/templates?user_id=" + url.QueryEscape(userID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// InsertTemplate creates a template; the backend assigns the canonical id and
// returns the stored record.
func (c *Client) InsertTemplate(ctx context.Context, t domain.Template) (domain.Template, error) {
	var out domain.Template
	if err := c.do(ctx, http.MethodPost, "/rest/v1/templates", t, &out); err != nil {
		return domain.Template{}, err
	}
	return out, nil
}

// UpdateTemplate applies a partial update.
func (c *Client) UpdateTemplate(ctx context.Context, id string, patch domain.TemplatePatch) error {
	return c.do(ctx, http.MethodPatch, "/rest/v1/templates/"+url.PathEscape(id), patch, nil)
}

// DeleteTemplate removes a template.
func (c *Client) DeleteTemplate(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/rest/v1/templates/"+url.PathEscape(id), nil, nil)
}

// ListSessions fetches all sessions for the user.
func (c *Client) ListSessions(ctx context.Context, userID string) ([]domain.Session, error) {
	var out []domain.Session
	path := "/rest/v1/sessions?user_id=" + url.QueryEscape(userID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// InsertSession creates a session and returns the stored record.
func (c *Client) InsertSession(ctx context.Context, s domain.Session) (domain.Session, error) {
	var out domain.Session
	if err := c.do(ctx, http.MethodPost, "/rest/v1/sessions", s, &out); err != nil {
		return domain.Session{}, err
	}
	return out, nil
}

// UpdateSession applies a partial update.
func (c *Client) UpdateSession(ctx context.Context, id string, patch domain.SessionPatch) error {
	return c.do(ctx, http.MethodPatch, "/rest/v1/sessions/"+url.PathEscape(id), patch, nil)
}

// DeleteSession removes a session.
func (c *Client) DeleteSession(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/rest/v1/sessions/"+url.PathEscape(id), nil, nil)
}

// Ping probes backend reachability. Used by the connectivity monitor.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(callCtx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.auth.currentToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		// Timeouts and caller cancellation land here and take the same
		// failure path as any other transport error.
		return fmt.Errorf("%w: %s %s: %v", domain.ErrRemoteUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s %s", domain.ErrNotFound, method, path)
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s %s", domain.ErrAuthRequired, method, path)
	case resp.StatusCode >= 400:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("%w: %s %s: status %d: %s", domain.ErrRemoteUnavailable, method, path, resp.StatusCode, snippet)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s %s: %v", domain.ErrRemoteUnavailable, method, path, err)
	}
	return nil
}
