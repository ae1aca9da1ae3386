package observation

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/apperr"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/db/bunx"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/db/models"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/repository"
)

// staleReadStore hides committed rows from the first key and cell lookup of
// each transaction, as if another writer committed between those reads and
// the insert.
type staleReadStore struct {
	repository.Store
	insertsLost atomic.Int32
}

func (s *staleReadStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx repository.Repositories) error) error {
	return s.Store.RunInTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		return fn(ctx, staleReadRepos{Repositories: tx, parent: s, obs: &staleReadObservations{}})
	})
}

type staleReadRepos struct {
	repository.Repositories
	parent *staleReadStore
	obs    *staleReadObservations
}

func (r staleReadRepos) Observations() repository.ObservationRepository {
	r.obs.ObservationRepository = r.Repositories.Observations()
	r.obs.parent = r.parent
	return r.obs
}

type staleReadObservations struct {
	repository.ObservationRepository
	parent     *staleReadStore
	keyMissed  bool
	cellMissed bool
}

func (o *staleReadObservations) FindByClientRequestID(ctx context.Context, key string) (*models.Observation, error) {
	if !o.keyMissed {
		o.keyMissed = true
		return nil, apperr.NotFound("no observation for client request id %s", key)
	}
	return o.ObservationRepository.FindByClientRequestID(ctx, key)
}

func (o *staleReadObservations) FindLiveByCell(ctx context.Context, key repository.CellKey) (*models.Observation, error) {
	if !o.cellMissed {
		o.cellMissed = true
		return nil, apperr.NotFound("no live observation for cell")
	}
	return o.ObservationRepository.FindLiveByCell(ctx, key)
}

func (o *staleReadObservations) Insert(ctx context.Context, obs *models.Observation) error {
	err := o.ObservationRepository.Insert(ctx, obs)
	if errors.Is(err, repository.ErrDuplicate) {
		o.parent.insertsLost.Add(1)
	}
	return err
}

func TestStore_InsertLostRace(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	farmID := env.seed.Farm.ID

	racing := &staleReadStore{Store: env.repos}
	late := NewStore(racing, nil)

	t.Run("same key in same session replays the committed row", func(t *testing.T) {
		committed, err := env.store.Upsert(ctx, farmID, env.session.ID, Create{
			Cell: env.cell(models.SpeciesThrips), Values: Values{Count: 4, ClientRequestID: "race-replay"},
		})
		require.NoError(t, err)

		before := racing.insertsLost.Load()
		replayed, err := late.Upsert(ctx, farmID, env.session.ID, Create{
			Cell: env.cell(models.SpeciesThrips), Values: Values{Count: 40, ClientRequestID: "race-replay"},
		})
		require.NoError(t, err)
		assert.Equal(t, before+1, racing.insertsLost.Load(), "insert must lose on the unique index")
		assert.Equal(t, committed.ID, replayed.ID)
		assert.Equal(t, committed.Version, replayed.Version)
		assert.Equal(t, 4, replayed.Count)
	})

	t.Run("key committed by another session conflicts", func(t *testing.T) {
		other := env.newSession(t, models.StatusInProgress, &models.SessionTarget{
			ID: bunx.NewUUIDv7(), GreenhouseID: &env.seed.Greenhouse.ID, IncludeAllBays: true, IncludeAllBenches: true,
		})
		_, err := env.store.Upsert(ctx, farmID, other.ID, Create{
			Cell:   Cell{TargetID: other.Targets[0].ID, SpeciesCode: models.SpeciesWhiteflies},
			Values: Values{Count: 1, ClientRequestID: "race-shared"},
		})
		require.NoError(t, err)

		before := racing.insertsLost.Load()
		_, err = late.Upsert(ctx, farmID, env.session.ID, Create{
			Cell: env.cell(models.SpeciesWhiteflies), Values: Values{Count: 2, ClientRequestID: "race-shared"},
		})
		require.Error(t, err)
		assert.Equal(t, before+1, racing.insertsLost.Load())
		assert.True(t, errors.Is(err, apperr.ErrConflict))
		assert.Equal(t, "Idempotency key already used for another session", apperr.Detail(err))
	})

	t.Run("cell taken without a key conflicts", func(t *testing.T) {
		committed, err := env.store.Upsert(ctx, farmID, env.session.ID, Create{
			Cell: env.cell(models.SpeciesMealybugs), Values: Values{Count: 6},
		})
		require.NoError(t, err)

		before := racing.insertsLost.Load()
		_, err = late.Upsert(ctx, farmID, env.session.ID, Create{
			Cell: env.cell(models.SpeciesMealybugs), Values: Values{Count: 9},
		})
		require.Error(t, err)
		assert.Equal(t, before+1, racing.insertsLost.Load())
		assert.True(t, errors.Is(err, apperr.ErrConflict))
		assert.Equal(t, "Observation has changed on the server", apperr.Detail(err))

		stored, err := env.repos.Observations().GetByID(ctx, env.session.ID, committed.ID)
		require.NoError(t, err)
		assert.Equal(t, 6, stored.Count)
		assert.Equal(t, int64(1), stored.Version)
	})
}
