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

// BunSessionRepository persists scouting sessions and targets using Bun.
type BunSessionRepository struct {
	db bun.IDB
}

// NewBunSessionRepository constructs a repository backed by Bun.
func NewBunSessionRepository(db bun.IDB) *BunSessionRepository {
	return &BunSessionRepository{db: db}
}

// Create inserts the session and its targets.
func (r *BunSessionRepository) Create(ctx context.Context, session *models.ScoutingSession) error {
	if err := session.ValidateForCreate(); err != nil {
		return apperr.BadRequest("%s", err)
	}

	if _, err := r.db.NewInsert().Model(session).Exec(ctx); err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("session %s: %w", session.ID, ErrDuplicate)
		}
		return fmt.Errorf("insert session: %w", err)
	}

	if len(session.Targets) == 0 {
		return nil
	}
	for _, target := range session.Targets {
		target.SessionID = session.ID
		if err := target.ValidateForCreate(); err != nil {
			return apperr.BadRequest("%s", err)
		}
	}
	if _, err := r.db.NewInsert().Model(&session.Targets).Exec(ctx); err != nil {
		return fmt.Errorf("insert session targets: %w", err)
	}

	return nil
}

// GetByID fetches a session with its targets.
func (r *BunSessionRepository) GetByID(ctx context.Context, id string) (*models.ScoutingSession, error) {
	session := new(models.ScoutingSession)
	err := r.db.NewSelect().
		Model(session).
		Relation("Targets", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("st.created_at ASC", "st.id ASC")
		}).
		Where("ss.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("scouting session %s not found", id)
		}
		return nil, fmt.Errorf("query session: %w", err)
	}

	return session, nil
}

// List returns sessions newest session date first.
func (r *BunSessionRepository) List(ctx context.Context, filter SessionFilter) ([]models.ScoutingSession, error) {
	var sessions []models.ScoutingSession
	q := r.db.NewSelect().
		Model(&sessions).
		Relation("Targets").
		Where("ss.farm_id = ?", filter.FarmID)
	if filter.ScoutID != nil {
		q = q.Where("ss.scout_id = ?", *filter.ScoutID)
	}
	if filter.From != nil {
		q = q.Where("ss.session_date >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("ss.session_date <= ?", *filter.To)
	}

	if err := q.Order("ss.session_date DESC", "ss.created_at DESC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	if sessions == nil {
		sessions = []models.ScoutingSession{}
	}
	return sessions, nil
}

// ListByIDs fetches the given sessions with their targets.
func (r *BunSessionRepository) ListByIDs(ctx context.Context, ids []string) ([]models.ScoutingSession, error) {
	sessions := []models.ScoutingSession{}
	if len(ids) == 0 {
		return sessions, nil
	}

	err := r.db.NewSelect().
		Model(&sessions).
		Relation("Targets").
		Where("ss.id IN (?)", bun.In(ids)).
		Order("ss.change_seq ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sessions by id: %w", err)
	}
	return sessions, nil
}

// ListInProgressByScout returns the scout's IN_PROGRESS sessions on the farm.
func (r *BunSessionRepository) ListInProgressByScout(ctx context.Context, farmID, scoutID string) ([]models.ScoutingSession, error) {
	var sessions []models.ScoutingSession
	err := r.db.NewSelect().
		Model(&sessions).
		Where("ss.farm_id = ?", farmID).
		Where("ss.scout_id = ?", scoutID).
		Where("ss.status = ?", models.StatusInProgress).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list in-progress sessions: %w", err)
	}
	return sessions, nil
}

// ListChanged returns the farm's sessions stamped after the window, oldest first.
func (r *BunSessionRepository) ListChanged(ctx context.Context, farmID string, window ChangeWindow) ([]models.ScoutingSession, error) {
	sessions := []models.ScoutingSession{}
	q := r.db.NewSelect().
		Model(&sessions).
		Relation("Targets").
		Where("ss.farm_id = ?", farmID)
	if window.AfterSeq != nil {
		q = q.Where("ss.change_seq > ?", *window.AfterSeq)
	} else {
		q = q.Where("ss.updated_at > ?", window.After)
	}

	if err := q.Order("ss.change_seq ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list changed sessions: %w", err)
	}
	return sessions, nil
}

// Update performs a compare-and-swap write of the named columns.
func (r *BunSessionRepository) Update(ctx context.Context, session *models.ScoutingSession, expectedVersion int64, stamp ChangeStamp, columns ...string) error {
	session.Version = expectedVersion + 1
	session.ChangeSeq = stamp.Seq
	session.UpdatedAt = stamp.At

	cols := append([]string{"version", "change_seq", "updated_at"}, columns...)
	result, err := r.db.NewUpdate().
		Model(session).
		Column(cols...).
		Where("id = ?", session.ID).
		Where("version = ?", expectedVersion).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		if _, lookupErr := r.GetByID(ctx, session.ID); lookupErr != nil {
			return lookupErr
		}
		session.Version = expectedVersion
		return fmt.Errorf("session %s: %w", session.ID, ErrStaleVersion)
	}

	return nil
}

// GetTarget fetches a target that belongs to the session.
func (r *BunSessionRepository) GetTarget(ctx context.Context, sessionID, targetID string) (*models.SessionTarget, error) {
	target := new(models.SessionTarget)
	err := r.db.NewSelect().
		Model(target).
		Where("st.id = ?", targetID).
		Where("st.session_id = ?", sessionID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("Session target not found")
		}
		return nil, fmt.Errorf("query session target: %w", err)
	}
	return target, nil
}

// ListTargets returns the targets of the given sessions.
func (r *BunSessionRepository) ListTargets(ctx context.Context, sessionIDs []string) ([]models.SessionTarget, error) {
	targets := []models.SessionTarget{}
	if len(sessionIDs) == 0 {
		return targets, nil
	}
	err := r.db.NewSelect().
		Model(&targets).
		Where("st.session_id IN (?)", bun.In(sessionIDs)).
		Order("st.created_at ASC", "st.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list session targets: %w", err)
	}
	return targets, nil
}

// ReplaceTargets reconciles the session's targets with the given set. Targets
// for the same structure keep their identity and take the new tag rules;
// targets no longer listed are removed, which fails if observations reference them.
func (r *BunSessionRepository) ReplaceTargets(ctx context.Context, sessionID string, targets []*models.SessionTarget) error {
	existing, err := r.ListTargets(ctx, []string{sessionID})
	if err != nil {
		return err
	}

	byStructure := make(map[string]models.SessionTarget, len(existing))
	for _, t := range existing {
		byStructure[structureKey(&t)] = t
	}

	keep := make(map[string]struct{}, len(targets))
	for _, target := range targets {
		target.SessionID = sessionID
		if err := target.ValidateForCreate(); err != nil {
			return apperr.BadRequest("%s", err)
		}

		if current, ok := byStructure[structureKey(target)]; ok {
			target.ID = current.ID
			target.CreatedAt = current.CreatedAt
			keep[current.ID] = struct{}{}
			if _, err := r.db.NewUpdate().
				Model(target).
				Column("include_all_bays", "include_all_benches", "bay_tags", "bench_tags").
				WherePK().
				Exec(ctx); err != nil {
				return fmt.Errorf("update session target: %w", err)
			}
			continue
		}

		if _, err := r.db.NewInsert().Model(target).Exec(ctx); err != nil {
			return fmt.Errorf("insert session target: %w", err)
		}
		keep[target.ID] = struct{}{}
	}

	for _, t := range existing {
		if _, ok := keep[t.ID]; ok {
			continue
		}
		referenced, err := r.db.NewSelect().
			Model((*models.Observation)(nil)).
			Where("target_id = ?", t.ID).
			Exists(ctx)
		if err != nil {
			return fmt.Errorf("check target references: %w", err)
		}
		if referenced {
			return apperr.BadRequest("target %s has recorded observations and cannot be removed", t.ID)
		}
		if _, err := r.db.NewDelete().Model((*models.SessionTarget)(nil)).Where("id = ?", t.ID).Exec(ctx); err != nil {
			return fmt.Errorf("delete session target: %w", err)
		}
	}

	return nil
}

func structureKey(t *models.SessionTarget) string {
	if t.GreenhouseID != nil {
		return "greenhouse:" + *t.GreenhouseID
	}
	if t.FieldBlockID != nil {
		return "field_block:" + *t.FieldBlockID
	}
	return ""
}
