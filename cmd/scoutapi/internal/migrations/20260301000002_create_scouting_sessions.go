package migrations

import (
	"context"
	"fmt"

	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/db/models"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(up_20260301000002, down_20260301000002)
}

// up_20260301000002 creates scouting_sessions and scouting_session_targets
func up_20260301000002(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [up] creating scouting_sessions tables...")

	if _, err := db.NewCreateTable().
		Model((*models.ScoutingSession)(nil)).
		IfNotExists().
		ForeignKey(`("farm_id") REFERENCES "farms" ("id") ON DELETE CASCADE`).
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to create scouting_sessions table: %w", err)
	}

	// Targets belong to exactly one session and go with it.
	if _, err := db.NewCreateTable().
		Model((*models.SessionTarget)(nil)).
		IfNotExists().
		ForeignKey(`("session_id") REFERENCES "scouting_sessions" ("id") ON DELETE CASCADE`).
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to create scouting_session_targets table: %w", err)
	}

	for _, stmt := range []string{
		`CREATE INDEX IF NOT EXISTS idx_scouting_sessions_farm ON scouting_sessions(farm_id)`,
		`CREATE INDEX IF NOT EXISTS idx_scouting_sessions_date ON scouting_sessions(session_date)`,
		`CREATE INDEX IF NOT EXISTS idx_scouting_sessions_farm_seq ON scouting_sessions(farm_id, change_seq)`,
		`CREATE INDEX IF NOT EXISTS idx_scouting_sessions_farm_updated ON scouting_sessions(farm_id, updated_at)`,
		`CREATE INDEX IF NOT EXISTS idx_scouting_session_targets_session ON scouting_session_targets(session_id)`,
	} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create scouting_sessions index: %w", err)
		}
	}

	fmt.Println(" OK")
	return nil
}

// down_20260301000002 drops scouting_session_targets and scouting_sessions
func down_20260301000002(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [down] dropping scouting_sessions tables...")

	if _, err := db.NewDropTable().Model((*models.SessionTarget)(nil)).IfExists().Exec(ctx); err != nil {
		return fmt.Errorf("failed to drop scouting_session_targets table: %w", err)
	}
	if _, err := db.NewDropTable().Model((*models.ScoutingSession)(nil)).IfExists().Exec(ctx); err != nil {
		return fmt.Errorf("failed to drop scouting_sessions table: %w", err)
	}

	fmt.Println(" OK")
	return nil
}
