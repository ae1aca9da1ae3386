// Package observation owns per-cell observation writes: optimistic versioning,
// idempotency keys, all-or-nothing batches and soft deletes.
package observation

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/apperr"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/db/bunx"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/db/models"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/repository"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/telemetry"
)

const tracerName = "scoutapi/services/observation"

// Store applies observation writes. Callers are expected to have authorized
// the actor against the session's farm already.
type Store struct {
	store   repository.Store
	now     func() time.Time
	metrics *telemetry.ScoutMetrics
}

// NewStore constructs an observation store. now may be nil.
func NewStore(store repository.Store, now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{store: store, now: now}
}

// WithMetrics attaches Prometheus instruments (optional dependency).
func (s *Store) WithMetrics(metrics *telemetry.ScoutMetrics) *Store {
	s.metrics = metrics
	return s
}

// Upsert applies one write in its own transaction.
func (s *Store) Upsert(ctx context.Context, farmID, sessionID string, req Upsert) (*models.Observation, error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "observation.Upsert",
		attribute.String(telemetry.AttrSessionID, sessionID),
		attribute.String(telemetry.AttrSpeciesCode, string(req.cell().SpeciesCode)),
	)
	defer span.End()

	var result *models.Observation
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		session, stamp, err := s.lockSession(ctx, tx, farmID, sessionID)
		if err != nil {
			return err
		}
		var outcome string
		result, outcome, err = s.apply(ctx, tx, session, req, stamp)
		if err != nil {
			return err
		}
		s.metrics.RecordObservationWrite(outcome)
		return nil
	})
	if err != nil {
		s.recordFailure(err)
		telemetry.RecordError(span, err)
		return nil, err
	}
	return result, nil
}

// BulkUpsert applies every entry in one transaction. The first failing entry
// rolls back the whole batch.
func (s *Store) BulkUpsert(ctx context.Context, farmID, sessionID string, batch Batch) ([]*models.Observation, error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "observation.BulkUpsert",
		attribute.String(telemetry.AttrSessionID, sessionID),
		attribute.Int(telemetry.AttrBatchSize, len(batch.Entries)),
	)
	defer span.End()

	if batch.SessionID != sessionID {
		return nil, apperr.BadRequest("Bulk payload does not match session.")
	}

	results := make([]*models.Observation, 0, len(batch.Entries))
	outcomes := make([]string, 0, len(batch.Entries))
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		session, stamp, err := s.lockSession(ctx, tx, farmID, sessionID)
		if err != nil {
			return err
		}
		for i, entry := range batch.Entries {
			obs, outcome, err := s.apply(ctx, tx, session, entry, stamp)
			if err != nil {
				return wrapEntry(i, err)
			}
			results = append(results, obs)
			outcomes = append(outcomes, outcome)
		}
		return nil
	})
	if err != nil {
		s.recordFailure(err)
		telemetry.RecordError(span, err)
		return nil, err
	}

	for _, outcome := range outcomes {
		s.metrics.RecordObservationWrite(outcome)
	}
	return results, nil
}

// Delete soft-deletes a live observation of an editable session.
func (s *Store) Delete(ctx context.Context, farmID, sessionID, observationID string) (*models.Observation, error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "observation.Delete",
		attribute.String(telemetry.AttrSessionID, sessionID),
		attribute.String(telemetry.AttrObservationID, observationID),
	)
	defer span.End()

	var tombstone *models.Observation
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		session, stamp, err := s.lockSession(ctx, tx, farmID, sessionID)
		if err != nil {
			return err
		}
		if !session.Status.AcceptsObservations() {
			return apperr.BadRequest("Locked sessions cannot be edited.")
		}
		tombstone, err = tx.Observations().SoftDelete(ctx, sessionID, observationID, stamp)
		return err
	})
	if err != nil {
		s.recordFailure(err)
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.metrics.RecordObservationWrite(telemetry.OutcomeDeleted)
	return tombstone, nil
}

// lockSession takes the farm's next change stamp before reading the session.
// The stamp holds the farm cursor row, so a concurrent lifecycle transition
// either committed before this read or waits until this write commits.
func (s *Store) lockSession(ctx context.Context, tx repository.Repositories, farmID, sessionID string) (*models.ScoutingSession, repository.ChangeStamp, error) {
	stamp, err := tx.Cursors().Next(ctx, farmID, s.now())
	if err != nil {
		return nil, repository.ChangeStamp{}, err
	}
	session, err := tx.Sessions().GetByID(ctx, sessionID)
	if err != nil {
		return nil, repository.ChangeStamp{}, err
	}
	if session.FarmID != farmID {
		return nil, repository.ChangeStamp{}, apperr.NotFound("scouting session %s not found", sessionID)
	}
	return session, stamp, nil
}

func (s *Store) apply(ctx context.Context, tx repository.Repositories, session *models.ScoutingSession, req Upsert, stamp repository.ChangeStamp) (*models.Observation, string, error) {
	cell, values := req.cell(), req.values()

	if !session.Status.AcceptsObservations() {
		return nil, "", apperr.BadRequest("Locked sessions cannot be edited.")
	}

	target, err := tx.Sessions().GetTarget(ctx, session.ID, cell.TargetID)
	if err != nil {
		return nil, "", err
	}
	if cell.BayLabel != "" && !target.AllowsBay(cell.BayLabel) {
		return nil, "", apperr.BadRequest("Selected bay is not part of this session target.")
	}
	if cell.BenchLabel != "" && !target.AllowsBench(cell.BenchLabel) {
		return nil, "", apperr.BadRequest("Selected bench is not part of this session target.")
	}
	if !cell.SpeciesCode.Valid() {
		return nil, "", apperr.BadRequest("Unknown species code %q.", cell.SpeciesCode)
	}
	if values.Count < 0 {
		return nil, "", apperr.BadRequest("Count must not be negative.")
	}
	if cell.BayIndex < 0 || cell.BenchIndex < 0 || cell.SpotIndex < 0 {
		return nil, "", apperr.BadRequest("Bay, bench and spot indices must not be negative.")
	}

	if values.ClientRequestID != "" {
		existing, found, err := s.findByKey(ctx, tx, session.ID, values.ClientRequestID)
		if err != nil {
			return nil, "", err
		}
		if found {
			return existing, telemetry.OutcomeReplayed, nil
		}
	}

	live, err := tx.Observations().FindLiveByCell(ctx, repository.CellKey{
		SessionID:   session.ID,
		TargetID:    target.ID,
		BayIndex:    cell.BayIndex,
		BenchIndex:  cell.BenchIndex,
		SpotIndex:   cell.SpotIndex,
		SpeciesCode: cell.SpeciesCode,
	})
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		obs, replayed, err := s.insert(ctx, tx, session, target, cell, values, stamp)
		if err != nil {
			return nil, "", err
		}
		if replayed {
			return obs, telemetry.OutcomeReplayed, nil
		}
		return obs, telemetry.OutcomeCreated, nil
	case err != nil:
		return nil, "", err
	}

	if expected, ok := req.expectedVersion(); ok && expected != live.Version {
		return nil, "", apperr.Conflict("Observation has changed on the server")
	}

	live.Count = values.Count
	live.Notes = values.Notes
	if cell.BayLabel != "" {
		live.BayLabel = cell.BayLabel
	}
	if cell.BenchLabel != "" {
		live.BenchLabel = cell.BenchLabel
	}
	if values.ClientRequestID != "" {
		key := values.ClientRequestID
		live.ClientRequestID = &key
	}

	if err := tx.Observations().UpdateValues(ctx, live, live.Version, stamp); err != nil {
		if errors.Is(err, repository.ErrStaleVersion) {
			return nil, "", apperr.Conflict("Observation has changed on the server")
		}
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, "", apperr.Conflict("Idempotency key already used for another observation")
		}
		return nil, "", err
	}
	return live, telemetry.OutcomeUpdated, nil
}

func (s *Store) insert(ctx context.Context, tx repository.Repositories, session *models.ScoutingSession, target *models.SessionTarget, cell Cell, values Values, stamp repository.ChangeStamp) (*models.Observation, bool, error) {
	obs := &models.Observation{
		ID:          bunx.NewUUIDv7(),
		SessionID:   session.ID,
		TargetID:    target.ID,
		SpeciesCode: cell.SpeciesCode,
		BayIndex:    cell.BayIndex,
		BayLabel:    cell.BayLabel,
		BenchIndex:  cell.BenchIndex,
		BenchLabel:  cell.BenchLabel,
		SpotIndex:   cell.SpotIndex,
		Count:       values.Count,
		Notes:       values.Notes,
		Version:     1,
		ChangeSeq:   stamp.Seq,
		CreatedAt:   stamp.At,
		UpdatedAt:   stamp.At,
	}
	if values.ClientRequestID != "" {
		key := values.ClientRequestID
		obs.ClientRequestID = &key
	}

	err := tx.Observations().Insert(ctx, obs)
	if err == nil {
		return obs, false, nil
	}
	if !errors.Is(err, repository.ErrDuplicate) {
		return nil, false, err
	}

	// Lost a race on a unique index. A committed row with the same key is a
	// replay or a cross-session conflict; otherwise the cell was taken.
	if values.ClientRequestID != "" {
		existing, found, err := s.findByKey(ctx, tx, session.ID, values.ClientRequestID)
		if err != nil {
			return nil, false, err
		}
		if found {
			return existing, true, nil
		}
	}
	return nil, false, apperr.Conflict("Observation has changed on the server")
}

// findByKey resolves an idempotency key. found is true for a same-session
// replay; a key bound to another session is a Conflict.
func (s *Store) findByKey(ctx context.Context, tx repository.Repositories, sessionID, key string) (*models.Observation, bool, error) {
	existing, err := tx.Observations().FindByClientRequestID(ctx, key)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if existing.SessionID != sessionID {
		return nil, false, apperr.Conflict("Idempotency key already used for another session")
	}
	return existing, true, nil
}

func (s *Store) recordFailure(err error) {
	switch {
	case errors.Is(err, apperr.ErrConflict):
		s.metrics.RecordObservationWrite(telemetry.OutcomeConflict)
	case errors.Is(err, apperr.ErrBadRequest), errors.Is(err, apperr.ErrNotFound):
		s.metrics.RecordObservationWrite(telemetry.OutcomeRejected)
	}
}

type entryError struct {
	index int
	err   error
}

func (e *entryError) Error() string { return e.err.Error() }

func (e *entryError) Unwrap() error { return e.err }

// EntryIndex reports which batch entry caused err, if any.
func EntryIndex(err error) (int, bool) {
	var ee *entryError
	if errors.As(err, &ee) {
		return ee.index, true
	}
	return 0, false
}

func wrapEntry(index int, err error) error {
	return &entryError{index: index, err: err}
}
