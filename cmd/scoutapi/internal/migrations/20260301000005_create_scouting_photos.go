package migrations

import (
	"context"
	"fmt"

	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/db/models"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(up_20260301000005, down_20260301000005)
}

// up_20260301000005 creates scouting_photos. Device photo ids are unique per farm.
func up_20260301000005(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [up] creating scouting_photos table...")

	if _, err := db.NewCreateTable().
		Model((*models.ScoutingPhoto)(nil)).
		IfNotExists().
		ForeignKey(`("session_id") REFERENCES "scouting_sessions" ("id") ON DELETE CASCADE`).
		ForeignKey(`("observation_id") REFERENCES "scouting_observations" ("id") ON DELETE SET NULL`).
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to create scouting_photos table: %w", err)
	}

	if err := execStatements(ctx, db, "scouting_photos index",
		`CREATE UNIQUE INDEX IF NOT EXISTS uk_photos_farm_local ON scouting_photos(farm_id, local_photo_id)`,
		`CREATE INDEX IF NOT EXISTS idx_photos_session ON scouting_photos(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_photos_change_seq ON scouting_photos(farm_id, change_seq)`,
	); err != nil {
		return err
	}

	fmt.Println(" OK")
	return nil
}

// down_20260301000005 drops scouting_photos
func down_20260301000005(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [down] dropping scouting_photos table...")

	if _, err := db.NewDropTable().Model((*models.ScoutingPhoto)(nil)).IfExists().Exec(ctx); err != nil {
		return fmt.Errorf("failed to drop scouting_photos table: %w", err)
	}

	fmt.Println(" OK")
	return nil
}
