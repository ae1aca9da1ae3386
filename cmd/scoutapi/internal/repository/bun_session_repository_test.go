package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/apperr"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/db/bunx"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/db/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBunSessionRepository_CreateAndGet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	repo := f.store.Sessions()

	session := f.newSession(t, models.StatusDraft)

	stored, err := repo.GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDraft, stored.Status)
	require.Len(t, stored.Targets, 1)
	assert.Equal(t, f.greenhouse.ID, *stored.Targets[0].GreenhouseID)

	_, err = repo.GetByID(ctx, bunx.NewUUIDv7())
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestBunSessionRepository_Update(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	repo := f.store.Sessions()
	session := f.newSession(t, models.StatusDraft)

	stamp := ChangeStamp{Seq: 1, At: time.Now().UTC().Truncate(time.Microsecond)}

	t.Run("matching version applies", func(t *testing.T) {
		session.Status = models.StatusInProgress
		session.Recommendations = models.Recommendations{models.RecommendationChemicalSprays: "spinosad"}
		require.NoError(t, repo.Update(ctx, session, 1, stamp, "status", "recommendations"))

		stored, err := repo.GetByID(ctx, session.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusInProgress, stored.Status)
		assert.Equal(t, int64(2), stored.Version)
		assert.Equal(t, "spinosad", stored.Recommendations[models.RecommendationChemicalSprays])
	})

	t.Run("stale version is rejected", func(t *testing.T) {
		stale, err := repo.GetByID(ctx, session.ID)
		require.NoError(t, err)
		stale.Status = models.StatusCompleted

		err = repo.Update(ctx, stale, 1, stamp, "status")
		assert.True(t, errors.Is(err, ErrStaleVersion))

		stored, err := repo.GetByID(ctx, session.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusInProgress, stored.Status)
	})
}

func TestBunSessionRepository_ReplaceTargets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	repo := f.store.Sessions()
	session := f.newSession(t, models.StatusDraft)
	originalTargetID := session.Targets[0].ID

	now := time.Now().UTC()
	replacement := []*models.SessionTarget{
		{ID: bunx.NewUUIDv7(), GreenhouseID: &f.greenhouse.ID, IncludeAllBays: false, BayTags: []string{"B1"}, IncludeAllBenches: true, CreatedAt: now},
		{ID: bunx.NewUUIDv7(), FieldBlockID: &f.block.ID, IncludeAllBays: true, IncludeAllBenches: true, CreatedAt: now},
	}
	require.NoError(t, repo.ReplaceTargets(ctx, session.ID, replacement))

	targets, err := repo.ListTargets(ctx, []string{session.ID})
	require.NoError(t, err)
	require.Len(t, targets, 2)
	assert.Equal(t, originalTargetID, replacement[0].ID, "same structure keeps its target id")
	assert.Equal(t, []string{"B1"}, targets[0].BayTags)

	// A target with observations cannot be dropped.
	obs := f.newObservation(session, models.SpeciesThrips, 1)
	obs.TargetID = replacement[1].ID
	require.NoError(t, f.store.Observations().Insert(ctx, obs))

	err = repo.ReplaceTargets(ctx, session.ID, replacement[:1])
	assert.True(t, errors.Is(err, apperr.ErrBadRequest))
}

func TestBunSessionRepository_ListChanged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	repo := f.store.Sessions()

	first := f.newSession(t, models.StatusDraft)
	second := f.newSession(t, models.StatusDraft)

	cursors := f.store.Cursors()
	s1, err := cursors.Next(ctx, f.farm.ID, time.Now())
	require.NoError(t, err)
	require.NoError(t, repo.Update(ctx, first, 1, s1, "status"))
	s2, err := cursors.Next(ctx, f.farm.ID, time.Now())
	require.NoError(t, err)
	require.NoError(t, repo.Update(ctx, second, 1, s2, "status"))

	changed, err := repo.ListChanged(ctx, f.farm.ID, ChangeWindow{AfterSeq: &s1.Seq})
	require.NoError(t, err)
	require.Len(t, changed, 1)
	assert.Equal(t, second.ID, changed[0].ID)

	all, err := repo.ListChanged(ctx, f.farm.ID, ChangeWindow{After: s1.At.Add(-time.Microsecond)})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestBunSessionRepository_CreateKeepsRestrictedTargetFlags(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Now().UTC()

	session := &models.ScoutingSession{
		ID:          bunx.NewUUIDv7(),
		FarmID:      f.farm.ID,
		SessionDate: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		WeekNumber:  11,
		Status:      models.StatusDraft,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
		Targets: []*models.SessionTarget{{
			ID:                bunx.NewUUIDv7(),
			GreenhouseID:      &f.greenhouse.ID,
			IncludeAllBays:    false,
			BayTags:           []string{"Bay-1"},
			IncludeAllBenches: false,
			BenchTags:         []string{"Bench-2"},
			CreatedAt:         now,
		}},
	}
	require.NoError(t, f.store.Sessions().Create(ctx, session))

	targets, err := f.store.Sessions().ListTargets(ctx, []string{session.ID})
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.False(t, targets[0].IncludeAllBays)
	assert.False(t, targets[0].IncludeAllBenches)
	assert.False(t, targets[0].AllowsBay("Bay-9"))
	assert.True(t, targets[0].AllowsBench("Bench-2"))
}
