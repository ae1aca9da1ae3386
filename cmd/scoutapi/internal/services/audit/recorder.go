// Package audit appends and reads the lifecycle history of scouting sessions.
package audit

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/auth"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/db/bunx"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/db/models"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/repository"
)

// Metadata is the caller-supplied context attached to a lifecycle event.
type Metadata struct {
	Comment    string
	DeviceID   string
	DeviceType string
	Location   string
	// ActorName overrides the actor's own display name when not blank.
	ActorName string
}

// Recorder builds audit events and appends them through the repository it is given.
type Recorder struct {
	now func() time.Time
}

// NewRecorder constructs a recorder. now may be nil.
func NewRecorder(now func() time.Time) *Recorder {
	if now == nil {
		now = time.Now
	}
	return &Recorder{now: now}
}

// Record appends one event. Pass the transaction-bound repository so the
// event commits or rolls back together with the transition it describes.
func (r *Recorder) Record(ctx context.Context, repo repository.AuditRepository, session *models.ScoutingSession, action models.AuditAction, actor auth.Actor, meta Metadata) (*models.SessionAuditEvent, error) {
	actorName := strings.TrimSpace(meta.ActorName)
	if actorName == "" {
		actorName = strings.TrimSpace(actor.DisplayName())
	}
	if actorName == "" {
		actorName = actor.Email
	}

	event := &models.SessionAuditEvent{
		ID:         bunx.NewUUIDv7(),
		SessionID:  session.ID,
		FarmID:     session.FarmID,
		Action:     action,
		ActorName:  actorName,
		ActorEmail: actor.Email,
		ActorRole:  actor.Role,
		DeviceID:   meta.DeviceID,
		DeviceType: meta.DeviceType,
		Location:   meta.Location,
		Comment:    meta.Comment,
		OccurredAt: r.now().UTC(),
	}

	if err := repo.Append(ctx, event); err != nil {
		return nil, fmt.Errorf("record %s for session %s: %w", action, session.ID, err)
	}

	slog.DebugContext(ctx, "recorded audit event", "action", action, "session_id", session.ID)
	return event, nil
}
