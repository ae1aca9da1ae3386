package migrations

import (
	"context"
	"fmt"

	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/db/models"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(up_20260301000003, down_20260301000003)
}

// up_20260301000003 creates scouting_observations with the live-cell uniqueness index
func up_20260301000003(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [up] creating scouting_observations table...")

	if _, err := db.NewCreateTable().
		Model((*models.Observation)(nil)).
		IfNotExists().
		ForeignKey(`("session_id") REFERENCES "scouting_sessions" ("id") ON DELETE CASCADE`).
		ForeignKey(`("target_id") REFERENCES "scouting_session_targets" ("id") ON DELETE CASCADE`).
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to create scouting_observations table: %w", err)
	}

	// Tombstones keep their cell tuple, so uniqueness only covers live rows.
	// Both PostgreSQL and SQLite support partial indexes with this syntax.
	if err := execStatements(ctx, db, "live cell unique index",
		`CREATE UNIQUE INDEX IF NOT EXISTS uk_observations_live_cell
		ON scouting_observations(session_id, target_id, bay_index, bench_index, spot_index, species_code)
		WHERE NOT deleted`,
	); err != nil {
		return err
	}

	// The store validates counts on SQLite.
	if err := execStatements(ctx, db, "count check constraint", postgresOnly(db,
		`ALTER TABLE scouting_observations
			ADD CONSTRAINT chk_observations_count_non_negative CHECK (count_value >= 0)`,
	)...); err != nil {
		return err
	}

	if err := execStatements(ctx, db, "scouting_observations index",
		`CREATE INDEX IF NOT EXISTS idx_observations_session ON scouting_observations(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_observations_species ON scouting_observations(species_code)`,
		`CREATE INDEX IF NOT EXISTS idx_observations_change_seq ON scouting_observations(change_seq)`,
		`CREATE INDEX IF NOT EXISTS idx_observations_updated ON scouting_observations(updated_at)`,
	); err != nil {
		return err
	}

	fmt.Println(" OK")
	return nil
}

// down_20260301000003 drops scouting_observations
func down_20260301000003(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [down] dropping scouting_observations table...")

	if _, err := db.NewDropTable().Model((*models.Observation)(nil)).IfExists().Exec(ctx); err != nil {
		return fmt.Errorf("failed to drop scouting_observations table: %w", err)
	}

	fmt.Println(" OK")
	return nil
}
