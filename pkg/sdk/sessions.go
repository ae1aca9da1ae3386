package sdk

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// CreateSession creates a session on farmID.
func (c *Client) CreateSession(ctx context.Context, farmID string, input CreateSessionInput) (*Session, error) {
	if farmID == "" {
		return nil, fmt.Errorf("farm ID is required")
	}
	var out Session
	if err := c.do(ctx, http.MethodPost, "/farms/"+escape(farmID)+"/sessions", nil, input, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListSessionsOptions narrows ListSessions.
type ListSessionsOptions struct {
	// Filter is a bexpr expression over session fields, e.g. `Status == "SUBMITTED"`.
	Filter string
}

// ListSessions returns the sessions of farmID visible to the caller.
func (c *Client) ListSessions(ctx context.Context, farmID string, opts ListSessionsOptions) ([]Session, error) {
	query := url.Values{}
	if opts.Filter != "" {
		query.Set("filter", opts.Filter)
	}
	var out []Session
	if err := c.do(ctx, http.MethodGet, "/farms/"+escape(farmID)+"/sessions", query, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetSession fetches one session.
func (c *Client) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	var out Session
	if err := c.do(ctx, http.MethodGet, "/sessions/"+escape(sessionID), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateSession patches the given fields, guarded by version.
func (c *Client) UpdateSession(ctx context.Context, sessionID string, version int64, fields map[string]any) (*Session, error) {
	body := make(map[string]any, len(fields)+1)
	for key, value := range fields {
		body[key] = value
	}
	body["version"] = version

	var out Session
	if err := c.do(ctx, http.MethodPatch, "/sessions/"+escape(sessionID), nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Lifecycle actions accepted by Transition.
const (
	ActionStart      = "start"
	ActionSubmit     = "submit"
	ActionComplete   = "complete"
	ActionReopen     = "reopen"
	ActionIncomplete = "incomplete"
)

// Transition runs one lifecycle action on a session.
func (c *Client) Transition(ctx context.Context, sessionID, action string, input TransitionInput) (*Session, error) {
	switch action {
	case ActionStart, ActionSubmit, ActionComplete, ActionReopen, ActionIncomplete:
	default:
		return nil, fmt.Errorf("unknown lifecycle action %q", action)
	}
	var out Session
	if err := c.do(ctx, http.MethodPost, "/sessions/"+escape(sessionID)+"/"+action, nil, input, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AuditEvents returns the audit trail of a session, oldest first.
func (c *Client) AuditEvents(ctx context.Context, sessionID string) ([]AuditEvent, error) {
	var out []AuditEvent
	if err := c.do(ctx, http.MethodGet, "/sessions/"+escape(sessionID)+"/audit", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Heatmap returns the weekly severity heatmap of a farm.
func (c *Client) Heatmap(ctx context.Context, farmID string, week, year int) (*Heatmap, error) {
	query := url.Values{}
	query.Set("week", fmt.Sprint(week))
	query.Set("year", fmt.Sprint(year))
	var out Heatmap
	if err := c.do(ctx, http.MethodGet, "/farms/"+escape(farmID)+"/heatmap", query, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
