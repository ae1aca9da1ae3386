package sdk

import (
	"context"
	"fmt"
	"net/http"
)

// UpsertObservation creates, replays or updates one observation.
func (c *Client) UpsertObservation(ctx context.Context, sessionID string, input ObservationInput) (*Observation, error) {
	if input.SessionTargetID == "" {
		return nil, fmt.Errorf("session target ID is required")
	}
	var out Observation
	if err := c.do(ctx, http.MethodPut, "/sessions/"+escape(sessionID)+"/observations", nil, input, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// BulkUpsertObservations applies entries all-or-nothing. A rejected batch
// returns an *APIError whose EntryIndex names the failing entry.
func (c *Client) BulkUpsertObservations(ctx context.Context, sessionID string, entries []ObservationInput) ([]Observation, error) {
	body := struct {
		SessionID    string             `json:"sessionId"`
		Observations []ObservationInput `json:"observations"`
	}{SessionID: sessionID, Observations: entries}

	var out struct {
		Observations []Observation `json:"observations"`
	}
	if err := c.do(ctx, http.MethodPost, "/sessions/"+escape(sessionID)+"/observations/bulk", nil, body, &out); err != nil {
		return nil, err
	}
	return out.Observations, nil
}

// DeleteObservation soft-deletes an observation.
func (c *Client) DeleteObservation(ctx context.Context, sessionID, observationID string) error {
	return c.do(ctx, http.MethodDelete, "/sessions/"+escape(sessionID)+"/observations/"+escape(observationID), nil, nil, nil)
}
