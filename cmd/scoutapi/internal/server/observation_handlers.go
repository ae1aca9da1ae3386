package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/apperr"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/db/models"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/services/observation"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/services/session"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/validation"
)

// PayloadValidator checks a raw JSON document against a named schema.
type PayloadValidator interface {
	Validate(name string, raw []byte) error
}

// ObservationHandlers serves observation writes nested under a session.
type ObservationHandlers struct {
	service   SessionService
	validator PayloadValidator
}

// NewObservationHandlers creates the handler set. validator may be nil, in
// which case bulk payloads are only checked by the services.
func NewObservationHandlers(service SessionService, validator PayloadValidator) *ObservationHandlers {
	return &ObservationHandlers{service: service, validator: validator}
}

// observationBody is the wire form of one observation write. A present
// version makes it an update guarded by that version.
type observationBody struct {
	SessionTargetID string             `json:"sessionTargetId"`
	SpeciesCode     models.SpeciesCode `json:"speciesCode"`
	BayIndex        int                `json:"bayIndex"`
	BayLabel        string             `json:"bayLabel"`
	BenchIndex      int                `json:"benchIndex"`
	BenchLabel      string             `json:"benchLabel"`
	SpotIndex       int                `json:"spotIndex"`
	Count           int                `json:"count"`
	Notes           string             `json:"notes"`
	ClientRequestID string             `json:"clientRequestId"`
	Version         *int64             `json:"version"`
}

func (b observationBody) toUpsert() observation.Upsert {
	cell := observation.Cell{
		TargetID:    b.SessionTargetID,
		SpeciesCode: b.SpeciesCode,
		BayIndex:    b.BayIndex,
		BayLabel:    b.BayLabel,
		BenchIndex:  b.BenchIndex,
		BenchLabel:  b.BenchLabel,
		SpotIndex:   b.SpotIndex,
	}
	values := observation.Values{Count: b.Count, Notes: b.Notes, ClientRequestID: b.ClientRequestID}
	if b.Version != nil {
		return observation.Update{Cell: cell, Values: values, ExpectedVersion: *b.Version}
	}
	return observation.Create{Cell: cell, Values: values}
}

type bulkBody struct {
	SessionID    string            `json:"sessionId"`
	Observations []observationBody `json:"observations"`
}

type bulkResponse struct {
	Observations []session.ObservationView `json:"observations"`
}

// Upsert handles PUT /api/v1/sessions/{sessionID}/observations.
func (h *ObservationHandlers) Upsert(w http.ResponseWriter, r *http.Request) {
	var body observationBody
	if err := decodeJSON(r, &body, false); err != nil {
		writeError(w, r, err)
		return
	}
	if body.SessionTargetID == "" {
		writeError(w, r, apperr.BadRequest("Parameter 'sessionTargetId' is required."))
		return
	}

	view, err := h.service.UpsertObservation(r.Context(), actorFrom(r), chi.URLParam(r, "sessionID"), body.toUpsert())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Bulk handles POST /api/v1/sessions/{sessionID}/observations/bulk. The
// payload is schema-checked before any entry is applied.
func (h *ObservationHandlers) Bulk(w http.ResponseWriter, r *http.Request) {
	raw, err := readBody(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if h.validator != nil {
		if err := h.validator.Validate(validation.BulkObservations, raw); err != nil {
			writeError(w, r, err)
			return
		}
	}

	var body bulkBody
	if err := json.Unmarshal(raw, &body); err != nil {
		writeError(w, r, apperr.BadRequest("%s", describeJSONError(err)))
		return
	}
	batch := observation.Batch{SessionID: body.SessionID, Entries: make([]observation.Upsert, 0, len(body.Observations))}
	for _, entry := range body.Observations {
		batch.Entries = append(batch.Entries, entry.toUpsert())
	}

	views, err := h.service.BulkUpsertObservations(r.Context(), actorFrom(r), chi.URLParam(r, "sessionID"), batch)
	if err != nil {
		status, code := statusFor(err)
		if index, ok := observation.EntryIndex(err); ok && status != http.StatusInternalServerError {
			writeJSON(w, status, bulkErrorBody{Error: apperr.Detail(err), Code: code, EntryIndex: index})
			return
		}
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bulkResponse{Observations: views})
}

type bulkErrorBody struct {
	Error      string `json:"error"`
	Code       string `json:"code"`
	EntryIndex int    `json:"entryIndex"`
}

// Delete handles DELETE /api/v1/sessions/{sessionID}/observations/{observationID}.
func (h *ObservationHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.service.DeleteObservation(r.Context(), actorFrom(r), chi.URLParam(r, "sessionID"), chi.URLParam(r, "observationID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
