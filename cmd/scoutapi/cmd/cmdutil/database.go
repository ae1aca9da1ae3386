package cmdutil

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"

	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/config"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/db/bunx"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/migrations"
)

// OpenDB centralizes database construction for CLI commands.
func OpenDB(ctx context.Context, cfg *config.Config) (*bun.DB, error) {
	db, err := bunx.NewDB(ctx, bunx.Options{
		DSN:          cfg.DatabaseURL,
		MaxOpenConns: cfg.MaxDBConnections,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// MigratorBundle bundles a migrator with the connection it runs on so
// callers release both with one Close.
type MigratorBundle struct {
	*migrate.Migrator
	DB *bun.DB
}

// Close releases the underlying database connection.
func (b *MigratorBundle) Close() {
	if b == nil || b.DB == nil {
		return
	}
	bunx.Close(b.DB)
}

// NewMigratorBundle opens the database and wraps it in a migrator over the
// registered migrations.
func NewMigratorBundle(ctx context.Context, cfg *config.Config) (*MigratorBundle, error) {
	db, err := OpenDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &MigratorBundle{
		Migrator: migrate.NewMigrator(db, migrations.Migrations),
		DB:       db,
	}, nil
}
