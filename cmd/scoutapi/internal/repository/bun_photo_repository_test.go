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

func (f *fixture) newPhoto(session *models.ScoutingSession, localID string, seq int64) *models.ScoutingPhoto {
	now := time.Now().UTC()
	return &models.ScoutingPhoto{
		ID:           bunx.NewUUIDv7(),
		SessionID:    session.ID,
		FarmID:       session.FarmID,
		LocalPhotoID: localID,
		SyncStatus:   models.PhotoPendingUpload,
		Version:      1,
		ChangeSeq:    seq,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestBunPhotoRepository_InsertAndFind(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	repo := f.store.Photos()
	session := f.newSession(t, models.StatusInProgress)

	photo := f.newPhoto(session, "IMG_0001", 1)
	photo.Purpose = "leaf underside"
	require.NoError(t, repo.Insert(ctx, photo))

	found, err := repo.FindByLocalID(ctx, f.farm.ID, "IMG_0001")
	require.NoError(t, err)
	assert.Equal(t, photo.ID, found.ID)
	assert.Equal(t, "leaf underside", found.Purpose)
	assert.Equal(t, models.PhotoPendingUpload, found.SyncStatus)
	assert.Nil(t, found.ObjectKey)

	other := f.newSession(t, models.StatusInProgress)
	err = repo.Insert(ctx, f.newPhoto(other, "IMG_0001", 2))
	assert.True(t, errors.Is(err, ErrDuplicate), "local id is unique per farm")

	_, err = repo.FindByLocalID(ctx, f.farm.ID, "IMG_0404")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestBunPhotoRepository_ConfirmUpload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	repo := f.store.Photos()
	session := f.newSession(t, models.StatusInProgress)

	photo := f.newPhoto(session, "IMG_0002", 1)
	require.NoError(t, repo.Insert(ctx, photo))

	stamp := ChangeStamp{Seq: 5, At: time.Now().UTC()}
	require.NoError(t, repo.ConfirmUpload(ctx, photo, "farms/x/IMG_0002.jpg", 1, stamp))
	assert.Equal(t, int64(2), photo.Version)
	assert.True(t, photo.Synced())

	stored, err := repo.FindByLocalID(ctx, f.farm.ID, "IMG_0002")
	require.NoError(t, err)
	require.NotNil(t, stored.ObjectKey)
	assert.Equal(t, "farms/x/IMG_0002.jpg", *stored.ObjectKey)
	assert.Equal(t, models.PhotoSynced, stored.SyncStatus)
	assert.Equal(t, int64(5), stored.ChangeSeq)

	err = repo.ConfirmUpload(ctx, stored, "other.jpg", 1, stamp)
	assert.True(t, errors.Is(err, ErrStaleVersion))
}

func TestBunPhotoRepository_Listings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	repo := f.store.Photos()
	first := f.newSession(t, models.StatusInProgress)
	second := f.newSession(t, models.StatusInProgress)

	require.NoError(t, repo.Insert(ctx, f.newPhoto(first, "a", 1)))
	require.NoError(t, repo.Insert(ctx, f.newPhoto(second, "b", 2)))
	require.NoError(t, repo.Insert(ctx, f.newPhoto(first, "c", 3)))

	photos, err := repo.ListBySession(ctx, first.ID)
	require.NoError(t, err)
	require.Len(t, photos, 2)
	assert.Equal(t, "a", photos[0].LocalPhotoID)
	assert.Equal(t, "c", photos[1].LocalPhotoID)

	after := int64(1)
	changed, err := repo.ListChanged(ctx, f.farm.ID, ChangeWindow{AfterSeq: &after})
	require.NoError(t, err)
	require.Len(t, changed, 2)
	assert.Equal(t, "b", changed[0].LocalPhotoID)
	assert.Equal(t, "c", changed[1].LocalPhotoID)
}
