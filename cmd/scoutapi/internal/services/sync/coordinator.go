// Package sync computes the delta of sessions, observations and photo metadata
// a client has not seen since its last watermark.
package sync

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/apperr"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/auth"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/db/models"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/repository"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/services/masterdata"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/services/photo"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/services/session"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/telemetry"
)

const tracerName = "scoutapi/services/sync"

// Request selects the delta window. Cursor wins over Since when both are set.
type Request struct {
	Since          *time.Time
	Cursor         *int64
	IncludeDeleted bool
}

// Watermark is what the client stores and sends back on its next call.
type Watermark struct {
	Cursor    int64     `json:"cursor"`
	Timestamp time.Time `json:"timestamp"`
}

// Tombstone identifies a deleted observation.
type Tombstone struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	DeletedAt time.Time `json:"deletedAt"`
	ChangeSeq int64     `json:"changeSeq"`
}

// Change is either an active observation or a tombstone. Exactly one field is set.
type Change struct {
	Active  *session.ObservationView
	Deleted *Tombstone
}

// IsDeleted reports whether the change is a tombstone.
func (c Change) IsDeleted() bool {
	return c.Deleted != nil
}

// MarshalJSON flattens the change into the wire form carrying a deleted flag.
func (c Change) MarshalJSON() ([]byte, error) {
	if c.Deleted != nil {
		return json.Marshal(struct {
			*Tombstone
			Deleted bool `json:"deleted"`
		}{c.Deleted, true})
	}
	return json.Marshal(c.Active)
}

// Response is one delta.
type Response struct {
	Sessions     []*session.View `json:"sessions"`
	Observations []Change        `json:"observations"`
	Photos       []*photo.View   `json:"photos"`
	Watermark    Watermark       `json:"watermark"`
}

// Coordinator answers sync requests for one farm at a time.
type Coordinator struct {
	store   repository.Store
	lookup  masterdata.Lookup
	gate    auth.Gate
	views   *session.ViewBuilder
	metrics *telemetry.ScoutMetrics
}

// NewCoordinator constructs a Coordinator.
func NewCoordinator(store repository.Store, lookup masterdata.Lookup, gate auth.Gate, views *session.ViewBuilder) *Coordinator {
	return &Coordinator{store: store, lookup: lookup, gate: gate, views: views}
}

// WithMetrics attaches Prometheus instruments (optional dependency).
func (c *Coordinator) WithMetrics(metrics *telemetry.ScoutMetrics) *Coordinator {
	c.metrics = metrics
	return c
}

// Changes returns the sessions, observations and photos changed after the
// request's window. Sessions touched only through their observations or photos
// are included too.
// Scouts receive only sessions assigned to them.
//
// The watermark is read before the rows. Stamps are handed out under the farm
// cursor row lock, so every stamp at or below it belongs to a committed write
// and chained calls cannot skip one; rows newer than the watermark may show up
// again on the next call.
func (c *Coordinator) Changes(ctx context.Context, actor auth.Actor, farmID string, req Request) (*Response, error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "sync.Changes",
		attribute.String(telemetry.AttrFarmID, farmID),
		attribute.String(telemetry.AttrActorRole, string(actor.Role)),
	)
	defer span.End()

	window, err := windowFor(req)
	if err != nil {
		return nil, err
	}

	farm, err := c.lookup.ResolveFarm(ctx, farmID)
	if err != nil {
		return nil, err
	}
	var scoutID string
	switch {
	case actor.IsZero():
		return nil, apperr.Unauthorized("authentication required")
	case actor.Role == models.RoleScout:
		scoutID = actor.ID
	default:
		if err := c.gate.RequireViewAccess(actor, farm); err != nil {
			return nil, err
		}
	}

	current, err := c.store.Cursors().Current(ctx, farm.ID)
	if err != nil {
		return nil, err
	}
	if window.AfterSeq != nil {
		span.SetAttributes(attribute.Int64(telemetry.AttrSyncCursor, *window.AfterSeq))
	}

	changedSessions, err := c.store.Sessions().ListChanged(ctx, farm.ID, window)
	if err != nil {
		return nil, err
	}
	changedObservations, err := c.store.Observations().ListChanged(ctx, farm.ID, window, req.IncludeDeleted)
	if err != nil {
		return nil, err
	}
	changedPhotos, err := c.store.Photos().ListChanged(ctx, farm.ID, window)
	if err != nil {
		return nil, err
	}

	touched := make([]string, 0, len(changedSessions))
	seen := make(map[string]struct{})
	for _, s := range changedSessions {
		if _, ok := seen[s.ID]; !ok {
			seen[s.ID] = struct{}{}
			touched = append(touched, s.ID)
		}
	}
	for _, o := range changedObservations {
		if _, ok := seen[o.SessionID]; !ok {
			seen[o.SessionID] = struct{}{}
			touched = append(touched, o.SessionID)
		}
	}
	for _, p := range changedPhotos {
		if _, ok := seen[p.SessionID]; !ok {
			seen[p.SessionID] = struct{}{}
			touched = append(touched, p.SessionID)
		}
	}

	rows, err := c.store.Sessions().ListByIDs(ctx, touched)
	if err != nil {
		return nil, err
	}
	visible := make(map[string]*models.ScoutingSession, len(rows))
	sessions := make([]*models.ScoutingSession, 0, len(rows))
	for i := range rows {
		if scoutID != "" && !rows[i].IsOwnedBy(scoutID) {
			continue
		}
		visible[rows[i].ID] = &rows[i]
		sessions = append(sessions, &rows[i])
	}

	views, err := c.views.Build(ctx, sessions)
	if err != nil {
		return nil, err
	}

	resp := &Response{
		Sessions:     views,
		Observations: make([]Change, 0, len(changedObservations)),
		Photos:       make([]*photo.View, 0, len(changedPhotos)),
		Watermark:    Watermark{Cursor: current.Seq, Timestamp: current.At},
	}
	tombstones := 0
	for i := range changedObservations {
		obs := &changedObservations[i]
		owner, ok := visible[obs.SessionID]
		if !ok {
			continue
		}
		if obs.Deleted {
			tombstones++
			resp.Observations = append(resp.Observations, Change{Deleted: tombstoneOf(obs)})
			continue
		}
		view := session.NewObservationView(obs, targetOf(owner, obs.TargetID))
		resp.Observations = append(resp.Observations, Change{Active: &view})
	}

	for i := range changedPhotos {
		if _, ok := visible[changedPhotos[i].SessionID]; ok {
			resp.Photos = append(resp.Photos, photo.NewView(&changedPhotos[i]))
		}
	}

	c.metrics.RecordSync(len(resp.Sessions), len(resp.Observations)-tombstones, tombstones, len(resp.Photos))
	slog.DebugContext(ctx, "sync delta served",
		"farm_id", farm.ID,
		"sessions", len(resp.Sessions),
		"observations", len(resp.Observations),
		"photos", len(resp.Photos),
		"watermark", current.Seq,
	)
	return resp, nil
}

func windowFor(req Request) (repository.ChangeWindow, error) {
	switch {
	case req.Cursor != nil:
		if *req.Cursor < 0 {
			return repository.ChangeWindow{}, apperr.BadRequest("Parameter 'cursor' must not be negative.")
		}
		cursor := *req.Cursor
		return repository.ChangeWindow{AfterSeq: &cursor}, nil
	case req.Since != nil:
		return repository.ChangeWindow{After: req.Since.UTC()}, nil
	default:
		return repository.ChangeWindow{}, apperr.BadRequest("Parameter 'since' is required for sync.")
	}
}

func tombstoneOf(obs *models.Observation) *Tombstone {
	t := &Tombstone{ID: obs.ID, SessionID: obs.SessionID, ChangeSeq: obs.ChangeSeq}
	if obs.DeletedAt != nil {
		t.DeletedAt = *obs.DeletedAt
	} else {
		t.DeletedAt = obs.UpdatedAt
	}
	return t
}

func targetOf(s *models.ScoutingSession, targetID string) *models.SessionTarget {
	for _, target := range s.Targets {
		if target.ID == targetID {
			return target
		}
	}
	return nil
}
