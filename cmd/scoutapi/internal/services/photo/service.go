// Package photo records metadata for photos taken on scouting devices. The
// binaries go to object storage out of band; the server tracks which device
// photo belongs to which session and whether its upload was confirmed.
package photo

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/apperr"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/auth"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/db/bunx"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/db/models"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/repository"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/services/masterdata"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/telemetry"
)

const (
	tracerName        = "scoutapi/services/photo"
	maxLocalIDLength  = 100
	maxPurposeLength  = 255
	maxObjectKeyBytes = 500
)

// RegisterRequest announces a photo a device captured.
type RegisterRequest struct {
	ObservationID *string    `json:"observationId,omitempty"`
	LocalPhotoID  string     `json:"localPhotoId"`
	Purpose       string     `json:"purpose,omitempty"`
	CapturedAt    *time.Time `json:"capturedAt,omitempty"`
}

// ConfirmRequest reports that the photo binary is stored under ObjectKey.
type ConfirmRequest struct {
	LocalPhotoID string `json:"localPhotoId"`
	ObjectKey    string `json:"objectKey"`
}

// View is the wire form of a photo.
type View struct {
	ID            string                 `json:"id"`
	SessionID     string                 `json:"sessionId"`
	ObservationID *string                `json:"observationId,omitempty"`
	FarmID        string                 `json:"farmId"`
	LocalPhotoID  string                 `json:"localPhotoId"`
	Purpose       string                 `json:"purpose,omitempty"`
	ObjectKey     *string                `json:"objectKey,omitempty"`
	CapturedAt    *time.Time             `json:"capturedAt,omitempty"`
	SyncStatus    models.PhotoSyncStatus `json:"syncStatus"`
	Version       int64                  `json:"version"`
	ChangeSeq     int64                  `json:"changeSeq"`
	UpdatedAt     time.Time              `json:"updatedAt"`
}

// NewView converts a stored photo.
func NewView(p *models.ScoutingPhoto) *View {
	return &View{
		ID:            p.ID,
		SessionID:     p.SessionID,
		ObservationID: p.ObservationID,
		FarmID:        p.FarmID,
		LocalPhotoID:  p.LocalPhotoID,
		Purpose:       p.Purpose,
		ObjectKey:     p.ObjectKey,
		CapturedAt:    p.CapturedAt,
		SyncStatus:    p.SyncStatus,
		Version:       p.Version,
		ChangeSeq:     p.ChangeSeq,
		UpdatedAt:     p.UpdatedAt,
	}
}

// Service registers and confirms photo metadata.
//
// Writes take the farm's change stamp before re-reading the session, the same
// order observation writes and transitions use, so a photo write and a
// lifecycle change on the same farm never interleave.
type Service struct {
	store   repository.Store
	lookup  masterdata.Lookup
	gate    auth.Gate
	now     func() time.Time
	metrics *telemetry.ScoutMetrics
}

// NewService constructs a photo service. now may be nil.
func NewService(store repository.Store, lookup masterdata.Lookup, gate auth.Gate, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, lookup: lookup, gate: gate, now: now}
}

// WithMetrics attaches Prometheus instruments (optional dependency).
func (s *Service) WithMetrics(metrics *telemetry.ScoutMetrics) *Service {
	s.metrics = metrics
	return s
}

// Register stores the photo's metadata as PENDING_UPLOAD. Registering the same
// local photo id again for the same session returns the stored row; created
// reports whether this call inserted it.
func (s *Service) Register(ctx context.Context, actor auth.Actor, sessionID string, req RegisterRequest) (view *View, created bool, err error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "photo.Register",
		attribute.String(telemetry.AttrSessionID, sessionID),
		attribute.String(telemetry.AttrPhotoLocalID, req.LocalPhotoID),
	)
	defer span.End()
	defer func() { telemetry.RecordError(span, err) }()

	req.LocalPhotoID = strings.TrimSpace(req.LocalPhotoID)
	req.Purpose = strings.TrimSpace(req.Purpose)
	if err := validateRegister(req); err != nil {
		return nil, false, err
	}

	session, err := s.authorize(ctx, actor, sessionID)
	if err != nil {
		return nil, false, err
	}

	var stored *models.ScoutingPhoto
	err = s.store.RunInTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		current, stamp, err := s.lockSession(ctx, tx, session)
		if err != nil {
			return err
		}
		if req.ObservationID != nil {
			if err := checkObservation(ctx, tx, current.ID, *req.ObservationID); err != nil {
				return err
			}
		}

		existing, err := findInSession(ctx, tx, current, req.LocalPhotoID)
		if err != nil && !errors.Is(err, apperr.ErrNotFound) {
			return err
		}
		if existing != nil {
			stored = existing
			return nil
		}

		photo := &models.ScoutingPhoto{
			ID:            bunx.NewUUIDv7(),
			SessionID:     current.ID,
			ObservationID: req.ObservationID,
			FarmID:        current.FarmID,
			LocalPhotoID:  req.LocalPhotoID,
			Purpose:       req.Purpose,
			CapturedAt:    utcPtr(req.CapturedAt),
			SyncStatus:    models.PhotoPendingUpload,
			Version:       1,
			ChangeSeq:     stamp.Seq,
			CreatedAt:     stamp.At,
			UpdatedAt:     stamp.At,
		}
		err = tx.Photos().Insert(ctx, photo)
		if errors.Is(err, repository.ErrDuplicate) {
			// Another device registered it between the read and the insert.
			stored, err = findInSession(ctx, tx, current, req.LocalPhotoID)
			return err
		}
		if err != nil {
			return err
		}
		stored, created = photo, true
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	if created {
		s.metrics.RecordPhotoWrite(telemetry.PhotoRegistered)
		slog.InfoContext(ctx, "photo metadata registered",
			"photo_id", stored.ID, "session_id", stored.SessionID, "actor_id", actor.ID)
	} else {
		s.metrics.RecordPhotoWrite(telemetry.PhotoReplayed)
	}
	return NewView(stored), created, nil
}

// Confirm records where the uploaded binary lives and marks the photo SYNCED.
// Confirming again with the same object key is a no-op. Scouts cannot confirm
// uploads once the session is COMPLETED.
func (s *Service) Confirm(ctx context.Context, actor auth.Actor, sessionID string, req ConfirmRequest) (view *View, err error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "photo.Confirm",
		attribute.String(telemetry.AttrSessionID, sessionID),
		attribute.String(telemetry.AttrPhotoLocalID, req.LocalPhotoID),
	)
	defer span.End()
	defer func() { telemetry.RecordError(span, err) }()

	req.LocalPhotoID = strings.TrimSpace(req.LocalPhotoID)
	req.ObjectKey = strings.TrimSpace(req.ObjectKey)
	if req.LocalPhotoID == "" {
		return nil, apperr.BadRequest("Parameter 'localPhotoId' is required.")
	}
	if req.ObjectKey == "" {
		return nil, apperr.BadRequest("Parameter 'objectKey' is required.")
	}
	if len(req.ObjectKey) > maxObjectKeyBytes {
		return nil, apperr.BadRequest("Parameter 'objectKey' must be at most %d characters.", maxObjectKeyBytes)
	}

	session, err := s.authorize(ctx, actor, sessionID)
	if err != nil {
		return nil, err
	}

	var stored *models.ScoutingPhoto
	changed := false
	err = s.store.RunInTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		current, stamp, err := s.lockSession(ctx, tx, session)
		if err != nil {
			return err
		}
		photo, err := findInSession(ctx, tx, current, req.LocalPhotoID)
		if err != nil {
			return err
		}
		if actor.Role == models.RoleScout && current.Status == models.StatusCompleted {
			return apperr.Forbidden("Scouts cannot confirm photo uploads for completed sessions.")
		}
		stored = photo
		if photo.Synced() && photo.ObjectKey != nil && *photo.ObjectKey == req.ObjectKey {
			return nil
		}

		err = tx.Photos().ConfirmUpload(ctx, photo, req.ObjectKey, photo.Version, stamp)
		if errors.Is(err, repository.ErrStaleVersion) {
			return apperr.Conflict("Photo has changed on the server")
		}
		if err != nil {
			return err
		}
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.metrics.RecordPhotoWrite(telemetry.PhotoConfirmed)
		slog.InfoContext(ctx, "photo upload confirmed",
			"photo_id", stored.ID, "session_id", stored.SessionID, "object_key", req.ObjectKey)
	}
	return NewView(stored), nil
}

// List returns the session's photos.
func (s *Service) List(ctx context.Context, actor auth.Actor, sessionID string) ([]*View, error) {
	session, err := s.authorize(ctx, actor, sessionID)
	if err != nil {
		return nil, err
	}
	photos, err := s.store.Photos().ListBySession(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	views := make([]*View, 0, len(photos))
	for i := range photos {
		views = append(views, NewView(&photos[i]))
	}
	return views, nil
}

// authorize lets a scout act only on sessions assigned to them; other roles
// need view access to the farm.
func (s *Service) authorize(ctx context.Context, actor auth.Actor, sessionID string) (*models.ScoutingSession, error) {
	if actor.IsZero() {
		return nil, apperr.Unauthorized("authentication required")
	}
	session, err := s.store.Sessions().GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	farm, err := s.lookup.ResolveFarm(ctx, session.FarmID)
	if err != nil {
		return nil, err
	}
	if actor.Role == models.RoleScout {
		if !session.IsOwnedBy(actor.ID) {
			return nil, apperr.Forbidden("You are not assigned to this scouting session.")
		}
		return session, nil
	}
	if err := s.gate.RequireViewAccess(actor, farm); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *Service) lockSession(ctx context.Context, tx repository.Repositories, session *models.ScoutingSession) (*models.ScoutingSession, repository.ChangeStamp, error) {
	stamp, err := tx.Cursors().Next(ctx, session.FarmID, s.now())
	if err != nil {
		return nil, repository.ChangeStamp{}, err
	}
	current, err := tx.Sessions().GetByID(ctx, session.ID)
	if err != nil {
		return nil, repository.ChangeStamp{}, err
	}
	return current, stamp, nil
}

// findInSession resolves a local photo id within the session's farm. A photo
// registered under another session of the farm is a BadRequest.
func findInSession(ctx context.Context, tx repository.Repositories, session *models.ScoutingSession, localPhotoID string) (*models.ScoutingPhoto, error) {
	photo, err := tx.Photos().FindByLocalID(ctx, session.FarmID, localPhotoID)
	if err != nil {
		return nil, err
	}
	if photo.SessionID != session.ID {
		return nil, apperr.BadRequest("Photo belongs to a different session")
	}
	return photo, nil
}

func checkObservation(ctx context.Context, tx repository.Repositories, sessionID, observationID string) error {
	obs, err := tx.Observations().FindByID(ctx, observationID)
	if err != nil {
		return err
	}
	if obs.SessionID != sessionID {
		return apperr.BadRequest("Observation does not belong to the session")
	}
	if obs.Deleted {
		return apperr.NotFound("observation %s not found", observationID)
	}
	return nil
}

func validateRegister(req RegisterRequest) error {
	switch {
	case req.LocalPhotoID == "":
		return apperr.BadRequest("Parameter 'localPhotoId' is required.")
	case len(req.LocalPhotoID) > maxLocalIDLength:
		return apperr.BadRequest("Parameter 'localPhotoId' must be at most %d characters.", maxLocalIDLength)
	case len(req.Purpose) > maxPurposeLength:
		return apperr.BadRequest("Parameter 'purpose' must be at most %d characters.", maxPurposeLength)
	}
	return nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
