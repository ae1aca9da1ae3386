package sdk_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katlaang/pestscan-sub000/pkg/sdk"
)

func newTestServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_CreateSessionSendsBearerToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/farms/farm-1/sessions", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer scout-token", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "2026-03-10", body["sessionDate"])
		assert.Equal(t, "Roses", body["cropType"])

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":"s-1","version":1,"farmId":"farm-1","sessionDate":"2026-03-10","weekNumber":11,"status":"DRAFT","sections":[],"recommendations":[]}`)
	})
	srv := newTestServer(t, mux)

	client := sdk.NewClient(srv.URL+"/", sdk.WithToken("scout-token"))
	session, err := client.CreateSession(context.Background(), "farm-1", sdk.CreateSessionInput{
		SessionDate: "2026-03-10",
		CropType:    "Roses",
	})
	require.NoError(t, err)
	assert.Equal(t, "s-1", session.ID)
	assert.Equal(t, "DRAFT", session.Status)
	assert.Equal(t, 11, session.WeekNumber)
	assert.Equal(t, int64(1), session.Version)
}

func TestClient_UpdateSessionCarriesVersion(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("PATCH /api/v1/sessions/s-1", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(3), body["version"])
		assert.Equal(t, "Sunny", body["weather"])
		_, _ = io.WriteString(w, `{"id":"s-1","version":4,"weather":"Sunny"}`)
	})
	srv := newTestServer(t, mux)

	fields := map[string]any{"weather": "Sunny"}
	session, err := sdk.NewClient(srv.URL).UpdateSession(context.Background(), "s-1", 3, fields)
	require.NoError(t, err)
	assert.Equal(t, int64(4), session.Version)
	assert.NotContains(t, fields, "version", "caller map must not be modified")
}

func TestClient_TransitionRejectsUnknownAction(t *testing.T) {
	client := sdk.NewClient("http://127.0.0.1:0")
	_, err := client.Transition(context.Background(), "s-1", "archive", sdk.TransitionInput{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown lifecycle action")
}

func TestClient_ErrorMapping(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/sessions/s-1/submit", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, _ = io.WriteString(w, `{"error":"Session was modified by another request.","code":"conflict"}`)
	})
	mux.HandleFunc("POST /api/v1/sessions/s-1/observations/bulk", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":"Unknown session target.","code":"bad_request","entryIndex":2}`)
	})
	mux.HandleFunc("GET /api/v1/sessions/s-2", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
	})
	srv := newTestServer(t, mux)
	client := sdk.NewClient(srv.URL)
	ctx := context.Background()

	_, err := client.Transition(ctx, "s-1", sdk.ActionSubmit, sdk.TransitionInput{Version: 2})
	require.Error(t, err)
	assert.True(t, errors.Is(err, sdk.ErrConflict))
	assert.False(t, errors.Is(err, sdk.ErrNotFound))

	_, err = client.BulkUpsertObservations(ctx, "s-1", []sdk.ObservationInput{{SessionTargetID: "t-1"}})
	var apiErr *sdk.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, errors.Is(err, sdk.ErrBadRequest))
	require.NotNil(t, apiErr.EntryIndex)
	assert.Equal(t, 2, *apiErr.EntryIndex)
	assert.Equal(t, "Unknown session target.", apiErr.Message)

	_, err = client.GetSession(ctx, "s-2")
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "internal", apiErr.Code)
	assert.Equal(t, "upstream unavailable", apiErr.Message)
}

func TestClient_DeleteObservation(t *testing.T) {
	var called atomic.Bool
	mux := http.NewServeMux()
	mux.HandleFunc("DELETE /api/v1/sessions/s-1/observations/o-1", func(w http.ResponseWriter, r *http.Request) {
		called.Store(true)
		w.WriteHeader(http.StatusNoContent)
	})
	srv := newTestServer(t, mux)

	require.NoError(t, sdk.NewClient(srv.URL).DeleteObservation(context.Background(), "s-1", "o-1"))
	assert.True(t, called.Load())
}

func TestClient_HeatmapQuery(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/farms/farm-1/heatmap", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "11", r.URL.Query().Get("week"))
		assert.Equal(t, "2026", r.URL.Query().Get("year"))
		_, _ = io.WriteString(w, `{"farmId":"farm-1","week":11,"year":2026,"weekStart":"2026-03-09","weekEnd":"2026-03-15",
			"cells":[{"bayIndex":0,"benchIndex":0,"totalCount":32,"severityLevel":"EMERGENCY","color":"#7f0000"}],
			"sections":[],"severityLegend":[{"level":"ZERO","color":"#2ecc71","minInclusive":0,"maxInclusive":0}]}`)
	})
	srv := newTestServer(t, mux)

	heatmap, err := sdk.NewClient(srv.URL).Heatmap(context.Background(), "farm-1", 11, 2026)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-09", heatmap.WeekStart)
	require.Len(t, heatmap.Cells, 1)
	assert.Equal(t, "EMERGENCY", heatmap.Cells[0].SeverityLevel)
	require.Len(t, heatmap.SeverityLegend, 1)
	require.NotNil(t, heatmap.SeverityLegend[0].Max)
	assert.Equal(t, 0, *heatmap.SeverityLegend[0].Max)
}
