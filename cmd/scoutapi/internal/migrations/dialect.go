package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// postgresOnly returns stmts when db is PostgreSQL and nil otherwise. SQLite
// cannot add constraints to an existing table.
func postgresOnly(db *bun.DB, stmts ...string) []string {
	if db.Dialect().Name() != dialect.PG {
		return nil
	}
	return stmts
}

// execStatements runs stmts in order and names the failing step with what.
func execStatements(ctx context.Context, db *bun.DB, what string, stmts ...string) error {
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create %s: %w", what, err)
		}
	}
	return nil
}
