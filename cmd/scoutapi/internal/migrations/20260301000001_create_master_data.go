package migrations

import (
	"context"
	"fmt"

	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/db/models"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(up_20260301000001, down_20260301000001)
}

// up_20260301000001 creates the farm master data tables and the per-farm sync cursor
func up_20260301000001(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [up] creating master data tables...")

	if _, err := db.NewCreateTable().
		Model((*models.Farm)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to create farms table: %w", err)
	}

	if _, err := db.NewCreateTable().
		Model((*models.Greenhouse)(nil)).
		IfNotExists().
		ForeignKey(`("farm_id") REFERENCES "farms" ("id") ON DELETE CASCADE`).
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to create greenhouses table: %w", err)
	}

	if _, err := db.NewCreateTable().
		Model((*models.FieldBlock)(nil)).
		IfNotExists().
		ForeignKey(`("farm_id") REFERENCES "farms" ("id") ON DELETE CASCADE`).
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to create field_blocks table: %w", err)
	}

	if _, err := db.NewCreateTable().
		Model((*models.FarmSyncCursor)(nil)).
		IfNotExists().
		ForeignKey(`("farm_id") REFERENCES "farms" ("id") ON DELETE CASCADE`).
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to create farm_sync_cursors table: %w", err)
	}

	for _, stmt := range []string{
		`CREATE INDEX IF NOT EXISTS idx_greenhouses_farm ON greenhouses(farm_id)`,
		`CREATE INDEX IF NOT EXISTS idx_field_blocks_farm ON field_blocks(farm_id)`,
	} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create master data index: %w", err)
		}
	}

	fmt.Println(" OK")
	return nil
}

// down_20260301000001 drops the master data tables
func down_20260301000001(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [down] dropping master data tables...")

	for _, model := range []any{
		(*models.FarmSyncCursor)(nil),
		(*models.FieldBlock)(nil),
		(*models.Greenhouse)(nil),
		(*models.Farm)(nil),
	} {
		if _, err := db.NewDropTable().Model(model).IfExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to drop master data table: %w", err)
		}
	}

	fmt.Println(" OK")
	return nil
}
