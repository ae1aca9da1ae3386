package repository

import (
	"context"
	"testing"
	"time"

	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/db/bunx"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/db/dbtest"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/db/models"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

type fixture struct {
	db         *bun.DB
	store      *BunStore
	farm       *models.Farm
	greenhouse *models.Greenhouse
	block      *models.FieldBlock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := dbtest.NewSQLite(t)
	ctx := context.Background()
	farms := NewBunFarmRepository(db)

	farm := &models.Farm{ID: bunx.NewUUIDv7(), Name: "North Farm", BayCount: 4, BenchesPerBay: 3}
	require.NoError(t, farms.UpsertFarm(ctx, farm))
	greenhouse := &models.Greenhouse{ID: bunx.NewUUIDv7(), FarmID: farm.ID, Name: "GH-1", BayCount: 4, BenchesPerBay: 3}
	require.NoError(t, farms.UpsertGreenhouse(ctx, greenhouse))
	block := &models.FieldBlock{ID: bunx.NewUUIDv7(), FarmID: farm.ID, Name: "Block A", BayCount: 2}
	require.NoError(t, farms.UpsertFieldBlock(ctx, block))

	return &fixture{db: db, store: NewBunStore(db), farm: farm, greenhouse: greenhouse, block: block}
}

func (f *fixture) newSession(t *testing.T, status models.SessionStatus) *models.ScoutingSession {
	t.Helper()

	now := time.Now().UTC()
	session := &models.ScoutingSession{
		ID:          bunx.NewUUIDv7(),
		FarmID:      f.farm.ID,
		SessionDate: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		WeekNumber:  11,
		Status:      status,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
		Targets: []*models.SessionTarget{{
			ID:                bunx.NewUUIDv7(),
			GreenhouseID:      &f.greenhouse.ID,
			IncludeAllBays:    true,
			IncludeAllBenches: true,
			CreatedAt:         now,
		}},
	}
	require.NoError(t, f.store.Sessions().Create(context.Background(), session))
	return session
}

func (f *fixture) newObservation(session *models.ScoutingSession, species models.SpeciesCode, count int) *models.Observation {
	now := time.Now().UTC()
	return &models.Observation{
		ID:          bunx.NewUUIDv7(),
		SessionID:   session.ID,
		TargetID:    session.Targets[0].ID,
		SpeciesCode: species,
		Count:       count,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func strPtr(s string) *string { return &s }
