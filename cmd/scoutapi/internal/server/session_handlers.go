package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/apperr"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/auth"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/db/models"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/services/audit"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/services/observation"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/services/session"
)

// SessionService is the session aggregate as seen by the HTTP layer.
type SessionService interface {
	Create(ctx context.Context, actor auth.Actor, farmID string, req session.CreateRequest) (*session.View, error)
	List(ctx context.Context, actor auth.Actor, farmID string, filter session.ListFilter) ([]*session.View, error)
	Get(ctx context.Context, actor auth.Actor, sessionID string) (*session.View, error)
	Update(ctx context.Context, actor auth.Actor, sessionID string, req session.UpdateRequest) (*session.View, error)
	Start(ctx context.Context, actor auth.Actor, sessionID string, req session.TransitionRequest) (*session.View, error)
	Submit(ctx context.Context, actor auth.Actor, sessionID string, req session.TransitionRequest) (*session.View, error)
	Complete(ctx context.Context, actor auth.Actor, sessionID string, req session.TransitionRequest) (*session.View, error)
	Reopen(ctx context.Context, actor auth.Actor, sessionID string, req session.TransitionRequest) (*session.View, error)
	MarkIncomplete(ctx context.Context, actor auth.Actor, sessionID string, req session.TransitionRequest) (*session.View, error)
	ListAuditEvents(ctx context.Context, actor auth.Actor, sessionID string) ([]models.SessionAuditEvent, error)

	UpsertObservation(ctx context.Context, actor auth.Actor, sessionID string, req observation.Upsert) (*session.ObservationView, error)
	BulkUpsertObservations(ctx context.Context, actor auth.Actor, sessionID string, batch observation.Batch) ([]session.ObservationView, error)
	DeleteObservation(ctx context.Context, actor auth.Actor, sessionID, observationID string) error
}

// SessionHandlers serves the session lifecycle endpoints.
type SessionHandlers struct {
	service SessionService
}

// NewSessionHandlers creates the handler set.
func NewSessionHandlers(service SessionService) *SessionHandlers {
	return &SessionHandlers{service: service}
}

type createSessionBody struct {
	Targets                 []session.TargetRequest `json:"targets"`
	SessionDate             string                  `json:"sessionDate"`
	WeekNumber              *int                    `json:"weekNumber"`
	Status                  models.SessionStatus    `json:"status"`
	ScoutID                 *string                 `json:"scoutId"`
	CropType                string                  `json:"cropType"`
	CropVariety             string                  `json:"cropVariety"`
	Weather                 string                  `json:"weather"`
	Notes                   string                  `json:"notes"`
	TemperatureCelsius      *float64                `json:"temperatureCelsius"`
	RelativeHumidityPercent *float64                `json:"relativeHumidityPercent"`
	ObservationTime         string                  `json:"observationTime"`
	WeatherNotes            string                  `json:"weatherNotes"`
	Recommendations         models.Recommendations  `json:"recommendations"`
}

type transitionBody struct {
	Version                  int64  `json:"version"`
	ConfirmationAcknowledged bool   `json:"confirmationAcknowledged"`
	Comment                  string `json:"comment"`
	DeviceID                 string `json:"deviceId"`
	DeviceType               string `json:"deviceType"`
	Location                 string `json:"location"`
	ActorName                string `json:"actorName"`
}

type auditEventView struct {
	ID         string             `json:"id"`
	SessionID  string             `json:"sessionId"`
	Action     models.AuditAction `json:"action"`
	ActorName  string             `json:"actorName"`
	ActorEmail string             `json:"actorEmail,omitempty"`
	ActorRole  models.Role        `json:"actorRole"`
	DeviceID   string             `json:"deviceId,omitempty"`
	DeviceType string             `json:"deviceType,omitempty"`
	Location   string             `json:"location,omitempty"`
	Comment    string             `json:"comment,omitempty"`
	OccurredAt time.Time          `json:"occurredAt"`
}

// Create handles POST /api/v1/farms/{farmID}/sessions.
func (h *SessionHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var body createSessionBody
	if err := decodeJSON(r, &body, false); err != nil {
		writeError(w, r, err)
		return
	}
	if body.SessionDate == "" {
		writeError(w, r, apperr.BadRequest("Session date is required."))
		return
	}
	date, err := session.ParseDate(body.SessionDate)
	if err != nil {
		writeError(w, r, err)
		return
	}

	view, err := h.service.Create(r.Context(), actorFrom(r), chi.URLParam(r, "farmID"), session.CreateRequest{
		Targets:                 body.Targets,
		SessionDate:             date,
		WeekNumber:              body.WeekNumber,
		Status:                  body.Status,
		ScoutID:                 body.ScoutID,
		CropType:                body.CropType,
		CropVariety:             body.CropVariety,
		Weather:                 body.Weather,
		Notes:                   body.Notes,
		TemperatureCelsius:      body.TemperatureCelsius,
		RelativeHumidityPercent: body.RelativeHumidityPercent,
		ObservationTime:         body.ObservationTime,
		WeatherNotes:            body.WeatherNotes,
		Recommendations:         body.Recommendations,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

// List handles GET /api/v1/farms/{farmID}/sessions?filter=.
func (h *SessionHandlers) List(w http.ResponseWriter, r *http.Request) {
	views, err := h.service.List(r.Context(), actorFrom(r), chi.URLParam(r, "farmID"), session.ListFilter{
		Expression: r.URL.Query().Get("filter"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

// Get handles GET /api/v1/sessions/{sessionID}.
func (h *SessionHandlers) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Get(r.Context(), actorFrom(r), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Update handles PATCH /api/v1/sessions/{sessionID}. The body is a partial
// document; "version" carries the expected version and every other key is a
// field to change.
func (h *SessionHandlers) Update(w http.ResponseWriter, r *http.Request) {
	var fields map[string]any
	if err := decodeJSON(r, &fields, false); err != nil {
		writeError(w, r, err)
		return
	}

	var version int64
	if raw, ok := fields["version"]; ok {
		number, isNumber := raw.(float64)
		if !isNumber || number != float64(int64(number)) {
			writeError(w, r, apperr.BadRequest("Parameter 'version' must be an integer."))
			return
		}
		version = int64(number)
		delete(fields, "version")
	}

	view, err := h.service.Update(r.Context(), actorFrom(r), chi.URLParam(r, "sessionID"), session.UpdateRequest{
		ExpectedVersion: version,
		Fields:          fields,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type transitionFunc func(ctx context.Context, actor auth.Actor, sessionID string, req session.TransitionRequest) (*session.View, error)

// transition adapts one lifecycle action to POST /api/v1/sessions/{sessionID}/<action>.
// The body is optional.
func (h *SessionHandlers) transition(action transitionFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body transitionBody
		if err := decodeJSON(r, &body, true); err != nil {
			writeError(w, r, err)
			return
		}

		view, err := action(r.Context(), actorFrom(r), chi.URLParam(r, "sessionID"), session.TransitionRequest{
			ExpectedVersion:          body.Version,
			ConfirmationAcknowledged: body.ConfirmationAcknowledged,
			Audit: audit.Metadata{
				Comment:    body.Comment,
				DeviceID:   body.DeviceID,
				DeviceType: body.DeviceType,
				Location:   body.Location,
				ActorName:  body.ActorName,
			},
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

// AuditEvents handles GET /api/v1/sessions/{sessionID}/audit.
func (h *SessionHandlers) AuditEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.service.ListAuditEvents(r.Context(), actorFrom(r), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]auditEventView, 0, len(events))
	for _, e := range events {
		out = append(out, auditEventView{
			ID:         e.ID,
			SessionID:  e.SessionID,
			Action:     e.Action,
			ActorName:  e.ActorName,
			ActorEmail: e.ActorEmail,
			ActorRole:  e.ActorRole,
			DeviceID:   e.DeviceID,
			DeviceType: e.DeviceType,
			Location:   e.Location,
			Comment:    e.Comment,
			OccurredAt: e.OccurredAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func actorFrom(r *http.Request) auth.Actor {
	actor, _ := auth.GetActorFromContext(r.Context())
	return actor
}
