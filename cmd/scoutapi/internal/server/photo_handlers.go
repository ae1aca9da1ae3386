package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/auth"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/services/photo"
)

// PhotoService registers and confirms photo metadata.
type PhotoService interface {
	Register(ctx context.Context, actor auth.Actor, sessionID string, req photo.RegisterRequest) (*photo.View, bool, error)
	Confirm(ctx context.Context, actor auth.Actor, sessionID string, req photo.ConfirmRequest) (*photo.View, error)
	List(ctx context.Context, actor auth.Actor, sessionID string) ([]*photo.View, error)
}

// PhotoHandlers serves photo metadata nested under a session.
type PhotoHandlers struct {
	service PhotoService
}

// NewPhotoHandlers creates the handler set.
func NewPhotoHandlers(service PhotoService) *PhotoHandlers {
	return &PhotoHandlers{service: service}
}

// Register handles POST /api/v1/sessions/{sessionID}/photos. A repeated
// registration answers 200 with the stored photo.
func (h *PhotoHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var body photo.RegisterRequest
	if err := decodeJSON(r, &body, false); err != nil {
		writeError(w, r, err)
		return
	}

	view, created, err := h.service.Register(r.Context(), actorFrom(r), chi.URLParam(r, "sessionID"), body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, view)
}

// Confirm handles POST /api/v1/sessions/{sessionID}/photos/confirm.
func (h *PhotoHandlers) Confirm(w http.ResponseWriter, r *http.Request) {
	var body photo.ConfirmRequest
	if err := decodeJSON(r, &body, false); err != nil {
		writeError(w, r, err)
		return
	}

	view, err := h.service.Confirm(r.Context(), actorFrom(r), chi.URLParam(r, "sessionID"), body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// List handles GET /api/v1/sessions/{sessionID}/photos.
func (h *PhotoHandlers) List(w http.ResponseWriter, r *http.Request) {
	views, err := h.service.List(r.Context(), actorFrom(r), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}
