package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/apperr"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/db/models"
	"github.com/uptrace/bun"
)

// BunObservationRepository persists observations using Bun.
type BunObservationRepository struct {
	db bun.IDB
}

// NewBunObservationRepository constructs a repository backed by Bun.
func NewBunObservationRepository(db bun.IDB) *BunObservationRepository {
	return &BunObservationRepository{db: db}
}

// Insert creates a new observation. Conflicts on the live-cell index or the
// client request id are skipped by the database rather than raised, so the
// surrounding transaction stays usable for the caller's follow-up reads.
func (r *BunObservationRepository) Insert(ctx context.Context, obs *models.Observation) error {
	if err := obs.ValidateForCreate(); err != nil {
		return apperr.BadRequest("%s", err)
	}

	result, err := r.db.NewInsert().
		Model(obs).
		On("CONFLICT DO NOTHING").
		Exec(ctx)
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("observation %s: %w", obs.ID, ErrDuplicate)
		}
		return fmt.Errorf("insert observation: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("observation %s: %w", obs.ID, ErrDuplicate)
	}
	return nil
}

// GetByID fetches an observation of the session, tombstones included.
func (r *BunObservationRepository) GetByID(ctx context.Context, sessionID, id string) (*models.Observation, error) {
	obs := new(models.Observation)
	err := r.db.NewSelect().
		Model(obs).
		Where("o.id = ?", id).
		Where("o.session_id = ?", sessionID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("observation %s not found", id)
		}
		return nil, fmt.Errorf("query observation: %w", err)
	}
	return obs, nil
}

// FindByID fetches an observation of any session, tombstones included.
func (r *BunObservationRepository) FindByID(ctx context.Context, id string) (*models.Observation, error) {
	obs := new(models.Observation)
	err := r.db.NewSelect().
		Model(obs).
		Where("o.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("observation %s not found", id)
		}
		return nil, fmt.Errorf("query observation: %w", err)
	}
	return obs, nil
}

// FindByClientRequestID looks the idempotency key up across all sessions.
func (r *BunObservationRepository) FindByClientRequestID(ctx context.Context, clientRequestID string) (*models.Observation, error) {
	obs := new(models.Observation)
	err := r.db.NewSelect().
		Model(obs).
		Where("o.client_request_id = ?", clientRequestID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("no observation for client request id %s", clientRequestID)
		}
		return nil, fmt.Errorf("query observation by client request id: %w", err)
	}
	return obs, nil
}

// FindLiveByCell returns the non-deleted observation for the cell.
func (r *BunObservationRepository) FindLiveByCell(ctx context.Context, key CellKey) (*models.Observation, error) {
	obs := new(models.Observation)
	err := r.db.NewSelect().
		Model(obs).
		Where("o.session_id = ?", key.SessionID).
		Where("o.target_id = ?", key.TargetID).
		Where("o.bay_index = ?", key.BayIndex).
		Where("o.bench_index = ?", key.BenchIndex).
		Where("o.spot_index = ?", key.SpotIndex).
		Where("o.species_code = ?", key.SpeciesCode).
		Where("o.deleted = ?", false).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("no live observation for cell")
		}
		return nil, fmt.Errorf("query observation by cell: %w", err)
	}
	return obs, nil
}

// UpdateValues writes count, notes, labels and client request id when the
// stored version still equals expectedVersion.
func (r *BunObservationRepository) UpdateValues(ctx context.Context, obs *models.Observation, expectedVersion int64, stamp ChangeStamp) error {
	result, err := r.db.NewUpdate().
		Model((*models.Observation)(nil)).
		Set("count_value = ?", obs.Count).
		Set("notes = ?", obs.Notes).
		Set("bay_label = ?", obs.BayLabel).
		Set("bench_label = ?", obs.BenchLabel).
		Set("client_request_id = ?", obs.ClientRequestID).
		Set("version = version + 1").
		Set("change_seq = ?", stamp.Seq).
		Set("updated_at = ?", stamp.At).
		Where("id = ?", obs.ID).
		Where("version = ?", expectedVersion).
		Where("deleted = ?", false).
		Exec(ctx)
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("observation %s: %w", obs.ID, ErrDuplicate)
		}
		return fmt.Errorf("update observation: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("observation %s: %w", obs.ID, ErrStaleVersion)
	}

	obs.Version = expectedVersion + 1
	obs.ChangeSeq = stamp.Seq
	obs.UpdatedAt = stamp.At
	return nil
}

// SoftDelete turns a live observation into a tombstone and returns it.
func (r *BunObservationRepository) SoftDelete(ctx context.Context, sessionID, id string, stamp ChangeStamp) (*models.Observation, error) {
	result, err := r.db.NewUpdate().
		Model((*models.Observation)(nil)).
		Set("deleted = ?", true).
		Set("deleted_at = ?", stamp.At).
		Set("version = version + 1").
		Set("change_seq = ?", stamp.Seq).
		Set("updated_at = ?", stamp.At).
		Where("id = ?", id).
		Where("session_id = ?", sessionID).
		Where("deleted = ?", false).
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("soft delete observation: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return nil, apperr.NotFound("observation %s not found", id)
	}

	return r.GetByID(ctx, sessionID, id)
}

// ListLiveBySessions returns non-deleted observations of the given sessions.
func (r *BunObservationRepository) ListLiveBySessions(ctx context.Context, sessionIDs []string) ([]models.Observation, error) {
	observations := []models.Observation{}
	if len(sessionIDs) == 0 {
		return observations, nil
	}

	err := r.db.NewSelect().
		Model(&observations).
		Where("o.session_id IN (?)", bun.In(sessionIDs)).
		Where("o.deleted = ?", false).
		Order("o.bay_index ASC", "o.bench_index ASC", "o.spot_index ASC", "o.species_code ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list observations: %w", err)
	}
	return observations, nil
}

// ListChanged returns observations of the farm's sessions stamped after the window, oldest first.
func (r *BunObservationRepository) ListChanged(ctx context.Context, farmID string, window ChangeWindow, includeDeleted bool) ([]models.Observation, error) {
	observations := []models.Observation{}
	q := r.db.NewSelect().
		Model(&observations).
		Join("JOIN scouting_sessions AS ss ON ss.id = o.session_id").
		Where("ss.farm_id = ?", farmID)
	if window.AfterSeq != nil {
		q = q.Where("o.change_seq > ?", *window.AfterSeq)
	} else {
		q = q.Where("o.updated_at > ?", window.After)
	}
	if !includeDeleted {
		q = q.Where("o.deleted = ?", false)
	}

	if err := q.Order("o.change_seq ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list changed observations: %w", err)
	}
	return observations, nil
}
