package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/db/models"
	"github.com/uptrace/bun"
)

// BunSyncCursorRepository hands out per-farm change stamps using Bun.
type BunSyncCursorRepository struct {
	db bun.IDB
}

// NewBunSyncCursorRepository constructs a repository backed by Bun.
func NewBunSyncCursorRepository(db bun.IDB) *BunSyncCursorRepository {
	return &BunSyncCursorRepository{db: db}
}

// Next increments the farm's sequence and returns a stamp whose time is the
// later of now and one microsecond after the previous stamp. The increment
// runs first so the row lock is held before the previous time is read.
func (r *BunSyncCursorRepository) Next(ctx context.Context, farmID string, now time.Time) (ChangeStamp, error) {
	var (
		seq    int64
		lastAt time.Time
	)

	bump := func() error {
		return r.db.NewUpdate().
			Model((*models.FarmSyncCursor)(nil)).
			Set("last_seq = last_seq + 1").
			Where("farm_id = ?", farmID).
			Returning("last_seq, last_at").
			Scan(ctx, &seq, &lastAt)
	}

	err := bump()
	if errors.Is(err, sql.ErrNoRows) {
		cursor := &models.FarmSyncCursor{FarmID: farmID, LastSeq: 0, LastAt: time.Unix(0, 0).UTC()}
		if _, err := r.db.NewInsert().Model(cursor).On("CONFLICT (farm_id) DO NOTHING").Exec(ctx); err != nil {
			return ChangeStamp{}, fmt.Errorf("create sync cursor: %w", err)
		}
		err = bump()
	}
	if err != nil {
		return ChangeStamp{}, fmt.Errorf("advance sync cursor: %w", err)
	}

	at := now.UTC().Truncate(time.Microsecond)
	if floor := lastAt.UTC().Add(time.Microsecond); at.Before(floor) {
		at = floor
	}

	if _, err := r.db.NewUpdate().
		Model((*models.FarmSyncCursor)(nil)).
		Set("last_at = ?", at).
		Where("farm_id = ?", farmID).
		Exec(ctx); err != nil {
		return ChangeStamp{}, fmt.Errorf("record sync cursor time: %w", err)
	}

	return ChangeStamp{Seq: seq, At: at}, nil
}

// Current returns the farm's latest stamp, or the zero stamp if nothing was written yet.
func (r *BunSyncCursorRepository) Current(ctx context.Context, farmID string) (ChangeStamp, error) {
	cursor := new(models.FarmSyncCursor)
	err := r.db.NewSelect().
		Model(cursor).
		Where("fsc.farm_id = ?", farmID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ChangeStamp{}, nil
		}
		return ChangeStamp{}, fmt.Errorf("query sync cursor: %w", err)
	}
	return ChangeStamp{Seq: cursor.LastSeq, At: cursor.LastAt.UTC()}, nil
}
