package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/apperr"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/auth"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/services/heatmap"
	scoutsync "github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/services/sync"
)

// SyncService computes deltas for edge clients.
type SyncService interface {
	Changes(ctx context.Context, actor auth.Actor, farmID string, req scoutsync.Request) (*scoutsync.Response, error)
}

// HeatmapService builds weekly severity grids.
type HeatmapService interface {
	Generate(ctx context.Context, actor auth.Actor, farmID string, week, year int) (*heatmap.Heatmap, error)
}

// ReadHandlers serves the farm-scoped read paths: delta sync and heatmaps.
type ReadHandlers struct {
	sync    SyncService
	heatmap HeatmapService
}

// NewReadHandlers creates the handler set.
func NewReadHandlers(sync SyncService, heatmap HeatmapService) *ReadHandlers {
	return &ReadHandlers{sync: sync, heatmap: heatmap}
}

// Sync handles GET /api/v1/farms/{farmID}/sync?since=&cursor=&includeDeleted=.
func (h *ReadHandlers) Sync(w http.ResponseWriter, r *http.Request) {
	req, err := parseSyncQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp, err := h.sync.Changes(r.Context(), actorFrom(r), chi.URLParam(r, "farmID"), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func parseSyncQuery(r *http.Request) (scoutsync.Request, error) {
	q := r.URL.Query()
	var req scoutsync.Request

	if raw := q.Get("since"); raw != "" {
		since, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return req, apperr.BadRequest("Parameter 'since' must be an RFC 3339 timestamp.")
		}
		req.Since = &since
	}
	if raw := q.Get("cursor"); raw != "" {
		cursor, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return req, apperr.BadRequest("Parameter 'cursor' must be an integer.")
		}
		req.Cursor = &cursor
	}
	if raw := q.Get("includeDeleted"); raw != "" {
		include, err := strconv.ParseBool(raw)
		if err != nil {
			return req, apperr.BadRequest("Parameter 'includeDeleted' must be a boolean.")
		}
		req.IncludeDeleted = include
	}
	return req, nil
}

// Heatmap handles GET /api/v1/farms/{farmID}/heatmap?week=&year=.
func (h *ReadHandlers) Heatmap(w http.ResponseWriter, r *http.Request) {
	week, err := requiredInt(r, "week")
	if err != nil {
		writeError(w, r, err)
		return
	}
	year, err := requiredInt(r, "year")
	if err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.heatmap.Generate(r.Context(), actorFrom(r), chi.URLParam(r, "farmID"), week, year)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func requiredInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, apperr.BadRequest("Parameter '%s' is required.", name)
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.BadRequest("Parameter '%s' must be an integer.", name)
	}
	return value, nil
}
