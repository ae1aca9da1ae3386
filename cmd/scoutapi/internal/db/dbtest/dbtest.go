// Package dbtest opens migrated in-memory databases for tests.
package dbtest

import (
	"context"
	"testing"
	"time"

	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/db/bunx"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/db/models"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/migrations"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

// NewSQLite returns a fully migrated in-memory SQLite database that is closed when the test ends.
func NewSQLite(t testing.TB) *bun.DB {
	t.Helper()

	ctx := context.Background()
	db, err := bunx.NewDB(ctx, bunx.Options{DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	migrator := migrate.NewMigrator(db, migrations.Migrations)
	require.NoError(t, migrator.Init(ctx))

	_, err = migrator.Migrate(ctx)
	require.NoError(t, err)

	return db
}

// Seed is master data inserted by SeedFarm.
type Seed struct {
	OwnerID    string
	ScoutID    string
	Farm       *models.Farm
	Greenhouse *models.Greenhouse
	Block      *models.FieldBlock
}

// SeedFarm inserts a farm with an owner, an assigned scout, one greenhouse and one field block.
func SeedFarm(t testing.TB, db *bun.DB) *Seed {
	t.Helper()

	ctx := context.Background()
	now := time.Now().UTC()
	seed := &Seed{OwnerID: bunx.NewUUIDv7(), ScoutID: bunx.NewUUIDv7()}

	seed.Farm = &models.Farm{
		ID:            bunx.NewUUIDv7(),
		Name:          "Kilimo Roses",
		OwnerID:       &seed.OwnerID,
		ScoutID:       &seed.ScoutID,
		BayCount:      4,
		BenchesPerBay: 3,
		CreatedAt:     now,
	}
	seed.Greenhouse = &models.Greenhouse{
		ID:            bunx.NewUUIDv7(),
		FarmID:        seed.Farm.ID,
		Name:          "greenhouse B",
		BayCount:      4,
		BenchesPerBay: 3,
		CreatedAt:     now,
	}
	seed.Block = &models.FieldBlock{
		ID:        bunx.NewUUIDv7(),
		FarmID:    seed.Farm.ID,
		Name:      "Block A",
		BayCount:  2,
		CreatedAt: now,
	}

	for _, model := range []any{seed.Farm, seed.Greenhouse, seed.Block} {
		_, err := db.NewInsert().Model(model).Exec(ctx)
		require.NoError(t, err)
	}
	return seed
}
