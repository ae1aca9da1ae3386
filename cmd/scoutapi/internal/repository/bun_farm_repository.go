package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/apperr"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/db/models"
	"github.com/uptrace/bun"
)

// BunFarmRepository reads and seeds farm master data using Bun.
type BunFarmRepository struct {
	db bun.IDB
}

// NewBunFarmRepository constructs a repository backed by Bun.
func NewBunFarmRepository(db bun.IDB) *BunFarmRepository {
	return &BunFarmRepository{db: db}
}

// GetFarm fetches a farm by id.
func (r *BunFarmRepository) GetFarm(ctx context.Context, id string) (*models.Farm, error) {
	farm := new(models.Farm)
	if err := r.db.NewSelect().Model(farm).Where("f.id = ?", id).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("farm %s not found", id)
		}
		return nil, fmt.Errorf("query farm: %w", err)
	}
	return farm, nil
}

// GetGreenhouse fetches a greenhouse by id.
func (r *BunFarmRepository) GetGreenhouse(ctx context.Context, id string) (*models.Greenhouse, error) {
	greenhouse := new(models.Greenhouse)
	if err := r.db.NewSelect().Model(greenhouse).Where("g.id = ?", id).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("greenhouse %s not found", id)
		}
		return nil, fmt.Errorf("query greenhouse: %w", err)
	}
	return greenhouse, nil
}

// GetFieldBlock fetches a field block by id.
func (r *BunFarmRepository) GetFieldBlock(ctx context.Context, id string) (*models.FieldBlock, error) {
	block := new(models.FieldBlock)
	if err := r.db.NewSelect().Model(block).Where("fb.id = ?", id).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("field block %s not found", id)
		}
		return nil, fmt.Errorf("query field block: %w", err)
	}
	return block, nil
}

// UpsertFarm inserts or refreshes a farm record.
func (r *BunFarmRepository) UpsertFarm(ctx context.Context, farm *models.Farm) error {
	if farm.CreatedAt.IsZero() {
		farm.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.NewInsert().
		Model(farm).
		On("CONFLICT (id) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("owner_id = EXCLUDED.owner_id").
		Set("scout_id = EXCLUDED.scout_id").
		Set("bay_count = EXCLUDED.bay_count").
		Set("benches_per_bay = EXCLUDED.benches_per_bay").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert farm: %w", err)
	}
	return nil
}

// UpsertGreenhouse inserts or refreshes a greenhouse record.
func (r *BunFarmRepository) UpsertGreenhouse(ctx context.Context, greenhouse *models.Greenhouse) error {
	if greenhouse.CreatedAt.IsZero() {
		greenhouse.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.NewInsert().
		Model(greenhouse).
		On("CONFLICT (id) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("bay_count = EXCLUDED.bay_count").
		Set("benches_per_bay = EXCLUDED.benches_per_bay").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert greenhouse: %w", err)
	}
	return nil
}

// UpsertFieldBlock inserts or refreshes a field block record.
func (r *BunFarmRepository) UpsertFieldBlock(ctx context.Context, block *models.FieldBlock) error {
	if block.CreatedAt.IsZero() {
		block.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.NewInsert().
		Model(block).
		On("CONFLICT (id) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("bay_count = EXCLUDED.bay_count").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert field block: %w", err)
	}
	return nil
}
