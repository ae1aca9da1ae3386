package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/apperr"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/auth"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/db/bunx"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/db/dbtest"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/db/models"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/repository"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/services/heatmap"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/services/masterdata"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/services/photo"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/services/session"
	scoutsync "github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/services/sync"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/telemetry"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/validation"
)

type apiHarness struct {
	handler    http.Handler
	seed       *dbtest.Seed
	adminToken string
	scoutToken string
	tokens     *auth.TokenService
}

func newAPIHarness(t *testing.T) *apiHarness {
	t.Helper()

	db := dbtest.NewSQLite(t)
	seed := dbtest.SeedFarm(t, db)
	store := repository.NewBunStore(db)
	lookup, err := masterdata.NewCachedLookup(repository.NewBunFarmRepository(db), 16, time.Minute)
	require.NoError(t, err)
	gate, err := auth.NewCasbinGate()
	require.NoError(t, err)
	validator, err := validation.NewSchemaValidator(4)
	require.NoError(t, err)

	registry := prometheus.NewRegistry()
	metrics, err := telemetry.NewScoutMetrics(registry)
	require.NoError(t, err)

	sessions := session.NewService(store, lookup, gate, nil).WithMetrics(metrics)
	tokens := auth.NewTokenService([]byte("test-secret"), "scoutapi", nil)

	h := &apiHarness{
		handler: NewRouter(RouterOptions{
			Sessions:       sessions,
			Photos:         photo.NewService(store, lookup, gate, nil).WithMetrics(metrics),
			Sync:           scoutsync.NewCoordinator(store, lookup, gate, sessions.Views()).WithMetrics(metrics),
			Heatmap:        heatmap.NewAggregator(store, lookup, gate),
			Validator:      validator,
			Tokens:         tokens,
			Metrics:        metrics,
			MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		}),
		seed:   seed,
		tokens: tokens,
	}
	h.adminToken = h.token(t, auth.Actor{ID: seed.OwnerID, Role: models.RoleFarmAdmin, Email: "owner@kilimo.test", Name: "Wanjiru"})
	h.scoutToken = h.token(t, auth.Actor{ID: seed.ScoutID, Role: models.RoleScout, Email: "scout@kilimo.test"})
	return h
}

func (h *apiHarness) token(t *testing.T, actor auth.Actor) string {
	t.Helper()
	token, err := h.tokens.Issue(actor, time.Hour)
	require.NoError(t, err)
	return token
}

func (h *apiHarness) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (h *apiHarness) createSession(t *testing.T) *session.View {
	t.Helper()
	rec := h.do(t, http.MethodPost, "/api/v1/farms/"+h.seed.Farm.ID+"/sessions", h.adminToken, map[string]any{
		"sessionDate": "2026-03-10",
		"cropType":    "Roses",
		"targets":     []map[string]any{{"greenhouseId": h.seed.Greenhouse.ID}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[*session.View](t, rec)
}

func TestHealthAndMetrics(t *testing.T) {
	h := newAPIHarness(t)

	rec := h.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())

	rec = h.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `scout_http_requests_total{method="GET",route="/health",status="200"} 1`)
}

func TestSessionLifecycleOverHTTP(t *testing.T) {
	h := newAPIHarness(t)
	created := h.createSession(t)
	assert.Equal(t, models.StatusDraft, created.Status)
	assert.Equal(t, 11, created.WeekNumber)
	base := "/api/v1/sessions/" + created.ID
	targetID := created.Sections[0].TargetID

	rec := h.do(t, http.MethodPost, base+"/start", h.scoutToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, models.StatusInProgress, decode[*session.View](t, rec).Status)

	cell := map[string]any{"sessionTargetId": targetID, "speciesCode": "THRIPS", "count": 5}
	rec = h.do(t, http.MethodPut, base+"/observations", h.scoutToken, cell)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	first := decode[session.ObservationView](t, rec)
	assert.Equal(t, int64(1), first.Version)

	cell["count"] = 12
	cell["version"] = 1
	rec = h.do(t, http.MethodPut, base+"/observations", h.scoutToken, cell)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	second := decode[session.ObservationView](t, rec)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, int64(2), second.Version)

	rec = h.do(t, http.MethodPut, base+"/observations", h.scoutToken, cell)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t, `{"error":"Observation has changed on the server","code":"conflict"}`, rec.Body.String())

	rec = h.do(t, http.MethodPost, base+"/observations/bulk", h.scoutToken, map[string]any{
		"sessionId": created.ID,
		"observations": []map[string]any{
			{"sessionTargetId": targetID, "speciesCode": "WHITEFLIES", "bayIndex": 1, "count": 2, "clientRequestId": "dev-1"},
			{"sessionTargetId": targetID, "speciesCode": "BOTRYTIS", "bayIndex": 1, "count": 1},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	bulk := decode[bulkResponse](t, rec)
	require.Len(t, bulk.Observations, 2)

	rec = h.do(t, http.MethodDelete, base+"/observations/"+bulk.Observations[1].ID, h.scoutToken, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = h.do(t, http.MethodDelete, base+"/observations/"+bulk.Observations[1].ID, h.scoutToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(t, http.MethodGet, "/api/v1/farms/"+h.seed.Farm.ID+"/sync?cursor=0&includeDeleted=true", h.scoutToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	delta := decode[map[string]any](t, rec)
	changes := delta["observations"].([]any)
	require.Len(t, changes, 3)
	tombstones := 0
	for _, change := range changes {
		if change.(map[string]any)["deleted"] == true {
			tombstones++
		}
	}
	assert.Equal(t, 1, tombstones)
	assert.NotZero(t, delta["watermark"].(map[string]any)["cursor"])

	rec = h.do(t, http.MethodGet, "/api/v1/farms/"+h.seed.Farm.ID+"/heatmap?week=11&year=2026", h.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	grid := decode[heatmap.Heatmap](t, rec)
	require.Len(t, grid.Cells, 2)
	assert.Equal(t, heatmap.SeverityHigh, grid.Cells[0].Severity)
	assert.Equal(t, heatmap.SeverityLow, grid.Cells[1].Severity)

	rec = h.do(t, http.MethodPost, base+"/submit", h.scoutToken, map[string]any{"confirmationAcknowledged": true, "deviceId": "tablet-7"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	submitted := decode[*session.View](t, rec)

	rec = h.do(t, http.MethodPost, base+"/complete", h.adminToken, map[string]any{"version": submitted.Version})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Please confirm all information is correct before completing the session.")

	rec = h.do(t, http.MethodPost, base+"/complete", h.adminToken, map[string]any{"version": submitted.Version, "confirmationAcknowledged": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, models.StatusCompleted, decode[*session.View](t, rec).Status)

	rec = h.do(t, http.MethodPut, base+"/observations", h.scoutToken, map[string]any{"sessionTargetId": targetID, "speciesCode": "THRIPS", "count": 1, "spotIndex": 4})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Locked sessions cannot be edited.")

	rec = h.do(t, http.MethodGet, base+"/audit", h.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	events := decode[[]auditEventView](t, rec)
	actions := make([]models.AuditAction, 0, len(events))
	for _, e := range events {
		actions = append(actions, e.Action)
	}
	assert.Equal(t, []models.AuditAction{
		models.AuditSessionCreated, models.AuditSessionStarted, models.AuditSessionSubmitted, models.AuditSessionCompleted,
	}, actions)
	assert.Equal(t, "tablet-7", events[2].DeviceID)
}

func TestPhotosOverHTTP(t *testing.T) {
	h := newAPIHarness(t)
	created := h.createSession(t)
	base := "/api/v1/sessions/" + created.ID + "/photos"

	rec := h.do(t, http.MethodPost, base, h.scoutToken, map[string]any{
		"localPhotoId": "IMG_0001",
		"purpose":      "leaf underside",
		"capturedAt":   "2026-03-10T09:30:00+03:00",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	registered := decode[photo.View](t, rec)
	assert.Equal(t, models.PhotoPendingUpload, registered.SyncStatus)

	rec = h.do(t, http.MethodPost, base, h.scoutToken, map[string]any{"localPhotoId": "IMG_0001"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, registered.ID, decode[photo.View](t, rec).ID)

	rec = h.do(t, http.MethodPost, base+"/confirm", h.scoutToken, map[string]any{"localPhotoId": "IMG_0001", "objectKey": "farms/IMG_0001.jpg"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	confirmed := decode[photo.View](t, rec)
	assert.Equal(t, models.PhotoSynced, confirmed.SyncStatus)
	require.NotNil(t, confirmed.ObjectKey)
	assert.Equal(t, "farms/IMG_0001.jpg", *confirmed.ObjectKey)

	rec = h.do(t, http.MethodGet, base, h.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, decode[[]photo.View](t, rec), 1)

	rec = h.do(t, http.MethodPost, base+"/confirm", h.scoutToken, map[string]any{"localPhotoId": "IMG_0404", "objectKey": "x"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(t, http.MethodPost, base, h.scoutToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, http.MethodGet, "/api/v1/farms/"+h.seed.Farm.ID+"/sync?cursor=0", h.scoutToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	delta := decode[map[string]any](t, rec)
	assert.Len(t, delta["photos"].([]any), 1)
}

func TestBulkRejections(t *testing.T) {
	h := newAPIHarness(t)
	created := h.createSession(t)
	base := "/api/v1/sessions/" + created.ID
	targetID := created.Sections[0].TargetID

	rec := h.do(t, http.MethodPost, base+"/observations/bulk", h.adminToken, map[string]any{
		"sessionId":    created.ID,
		"observations": []map[string]any{{"sessionTargetId": targetID, "speciesCode": "THRIPS", "count": -3}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "$.observations.0.count")

	rec = h.do(t, http.MethodPost, base+"/observations/bulk", h.adminToken, map[string]any{
		"sessionId":    bunx.NewUUIDv7(),
		"observations": []map[string]any{{"sessionTargetId": targetID, "speciesCode": "THRIPS", "count": 3}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Bulk payload does not match session.")

	rec = h.do(t, http.MethodPost, base+"/observations/bulk", h.adminToken, map[string]any{
		"sessionId": created.ID,
		"observations": []map[string]any{
			{"sessionTargetId": targetID, "speciesCode": "THRIPS", "count": 3},
			{"sessionTargetId": targetID, "speciesCode": "THRIPS", "count": 4, "version": 7},
		},
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	body := decode[bulkErrorBody](t, rec)
	assert.Equal(t, 1, body.EntryIndex)

	got := h.do(t, http.MethodGet, base, h.adminToken, nil)
	require.Equal(t, http.StatusOK, got.Code)
	assert.Empty(t, decode[*session.View](t, got).Sections[0].Observations, "failed batch leaves nothing behind")
}

func TestUpdateOverHTTP(t *testing.T) {
	h := newAPIHarness(t)
	created := h.createSession(t)
	path := "/api/v1/sessions/" + created.ID

	rec := h.do(t, http.MethodPatch, path, h.adminToken, map[string]any{"cropVariety": "Freedom"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Parameter 'version' is required.")

	rec = h.do(t, http.MethodPatch, path, h.adminToken, map[string]any{"version": created.Version, "colour": "red"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, http.MethodPatch, path, h.adminToken, map[string]any{"version": 1.5})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, http.MethodPatch, path, h.adminToken, map[string]any{
		"version":     created.Version,
		"cropVariety": "Freedom",
		"sessionDate": "2026-03-17",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[*session.View](t, rec)
	assert.Equal(t, "Freedom", updated.CropVariety)
	assert.Equal(t, "2026-03-17", updated.SessionDate)
	assert.Equal(t, created.Version+1, updated.Version)

	rec = h.do(t, http.MethodPatch, path, h.adminToken, map[string]any{"version": created.Version, "notes": "late"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestListWithFilter(t *testing.T) {
	h := newAPIHarness(t)
	first := h.createSession(t)
	h.createSession(t)
	require.Equal(t, http.StatusOK, h.do(t, http.MethodPost, "/api/v1/sessions/"+first.ID+"/start", h.scoutToken, nil).Code)

	rec := h.do(t, http.MethodGet, "/api/v1/farms/"+h.seed.Farm.ID+"/sessions?filter=Status%20%3D%3D%20%22IN_PROGRESS%22", h.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	views := decode[[]*session.View](t, rec)
	require.Len(t, views, 1)
	assert.Equal(t, first.ID, views[0].ID)

	rec = h.do(t, http.MethodGet, "/api/v1/farms/"+h.seed.Farm.ID+"/sessions?filter=Status%20%3D%3D", h.adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestErrorMapping(t *testing.T) {
	h := newAPIHarness(t)
	created := h.createSession(t)
	stranger := h.token(t, auth.Actor{ID: bunx.NewUUIDv7(), Role: models.RoleManager})
	farm := "/api/v1/farms/" + h.seed.Farm.ID

	tests := []struct {
		name       string
		method     string
		path       string
		token      string
		body       any
		wantStatus int
		wantError  string
	}{
		{"anonymous read", http.MethodGet, "/api/v1/sessions/" + created.ID, "", nil, http.StatusUnauthorized, ""},
		{"bad token", http.MethodGet, "/api/v1/sessions/" + created.ID, "garbage", nil, http.StatusUnauthorized, ""},
		{"unknown session", http.MethodGet, "/api/v1/sessions/" + bunx.NewUUIDv7(), h.adminToken, nil, http.StatusNotFound, ""},
		{"foreign manager", http.MethodGet, "/api/v1/sessions/" + created.ID, stranger, nil, http.StatusForbidden, ""},
		{"sync without window", http.MethodGet, farm + "/sync", h.adminToken, nil, http.StatusBadRequest, "Parameter 'since' is required for sync."},
		{"sync bad since", http.MethodGet, farm + "/sync?since=yesterday", h.adminToken, nil, http.StatusBadRequest, "RFC 3339"},
		{"sync bad cursor", http.MethodGet, farm + "/sync?cursor=x", h.adminToken, nil, http.StatusBadRequest, "integer"},
		{"heatmap without week", http.MethodGet, farm + "/heatmap?year=2026", h.adminToken, nil, http.StatusBadRequest, "Parameter 'week' is required."},
		{"heatmap bad week", http.MethodGet, farm + "/heatmap?week=54&year=2026", h.adminToken, nil, http.StatusBadRequest, ""},
		{"create without body", http.MethodPost, farm + "/sessions", h.adminToken, nil, http.StatusBadRequest, "Request body is required."},
		{"create with bad date", http.MethodPost, farm + "/sessions", h.adminToken, map[string]any{"sessionDate": "10/03/2026"}, http.StatusBadRequest, ""},
		{"malformed json", http.MethodPut, "/api/v1/sessions/" + created.ID + "/observations", h.adminToken, "{", http.StatusBadRequest, "Malformed JSON body"},
		{"scout completes", http.MethodPost, "/api/v1/sessions/" + created.ID + "/complete", h.scoutToken, nil, http.StatusForbidden, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := h.do(t, tt.method, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			body := decode[errorBody](t, rec)
			assert.NotEmpty(t, body.Code)
			if tt.wantError != "" {
				assert.Contains(t, body.Error, tt.wantError)
			}
		})
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{apperr.NotFound("x"), http.StatusNotFound, "not_found"},
		{apperr.BadRequest("x"), http.StatusBadRequest, "bad_request"},
		{apperr.Conflict("x"), http.StatusConflict, "conflict"},
		{apperr.Forbidden("x"), http.StatusForbidden, "forbidden"},
		{apperr.Unauthorized("x"), http.StatusUnauthorized, "unauthorized"},
		{fmt.Errorf("wrapped: %w", apperr.Conflict("x")), http.StatusConflict, "conflict"},
		{errors.New("boom"), http.StatusInternalServerError, "internal"},
	}
	for _, tt := range tests {
		status, code := statusFor(tt.err)
		assert.Equal(t, tt.status, status, tt.err.Error())
		assert.Equal(t, tt.code, code)
	}
}
