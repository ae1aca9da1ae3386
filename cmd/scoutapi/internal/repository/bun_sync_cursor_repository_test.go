package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBunSyncCursorRepository_Next(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	repo := f.store.Cursors()

	zero, err := repo.Current(ctx, f.farm.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), zero.Seq)

	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	first, err := repo.Next(ctx, f.farm.ID, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.Seq)
	assert.True(t, first.At.Equal(now))

	// A clock that steps backwards still yields increasing stamps.
	second, err := repo.Next(ctx, f.farm.ID, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.Seq)
	assert.True(t, second.At.After(first.At))

	current, err := repo.Current(ctx, f.farm.ID)
	require.NoError(t, err)
	assert.Equal(t, second.Seq, current.Seq)
	assert.True(t, current.At.Equal(second.At))
}

func TestBunStore_RunInTxRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := f.store.RunInTx(ctx, func(ctx context.Context, tx Repositories) error {
		if _, err := tx.Cursors().Next(ctx, f.farm.ID, time.Now()); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	current, err := f.store.Cursors().Current(ctx, f.farm.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), current.Seq)
}
