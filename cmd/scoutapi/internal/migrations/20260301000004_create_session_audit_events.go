package migrations

import (
	"context"
	"fmt"

	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/db/models"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(up_20260301000004, down_20260301000004)
}

// up_20260301000004 creates session_audit_events.
// No foreign key to scouting_sessions: history outlives the session it describes.
func up_20260301000004(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [up] creating session_audit_events table...")

	if _, err := db.NewCreateTable().
		Model((*models.SessionAuditEvent)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to create session_audit_events table: %w", err)
	}

	for _, stmt := range []string{
		`CREATE INDEX IF NOT EXISTS idx_session_audit_events_session ON session_audit_events(session_id, occurred_at)`,
		`CREATE INDEX IF NOT EXISTS idx_session_audit_events_farm ON session_audit_events(farm_id)`,
	} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create session_audit_events index: %w", err)
		}
	}

	fmt.Println(" OK")
	return nil
}

// down_20260301000004 drops session_audit_events
func down_20260301000004(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [down] dropping session_audit_events table...")

	if _, err := db.NewDropTable().Model((*models.SessionAuditEvent)(nil)).IfExists().Exec(ctx); err != nil {
		return fmt.Errorf("failed to drop session_audit_events table: %w", err)
	}

	fmt.Println(" OK")
	return nil
}
