package photo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/apperr"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/auth"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/db/bunx"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/db/dbtest"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/db/models"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/repository"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/services/masterdata"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/services/observation"
)

type harness struct {
	svc   *Service
	store *repository.BunStore
	seed  *dbtest.Seed
	admin auth.Actor
	scout auth.Actor
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	db := dbtest.NewSQLite(t)
	seed := dbtest.SeedFarm(t, db)
	store := repository.NewBunStore(db)
	lookup, err := masterdata.NewCachedLookup(repository.NewBunFarmRepository(db), 16, time.Minute)
	require.NoError(t, err)
	gate, err := auth.NewCasbinGate()
	require.NoError(t, err)

	return &harness{
		svc:   NewService(store, lookup, gate, nil),
		store: store,
		seed:  seed,
		admin: auth.Actor{ID: seed.OwnerID, Role: models.RoleFarmAdmin, Email: "owner@kilimo.test"},
		scout: auth.Actor{ID: seed.ScoutID, Role: models.RoleScout, Email: "scout@kilimo.test"},
	}
}

func (h *harness) newSession(t *testing.T, status models.SessionStatus) *models.ScoutingSession {
	t.Helper()

	now := time.Now().UTC()
	session := &models.ScoutingSession{
		ID:          bunx.NewUUIDv7(),
		FarmID:      h.seed.Farm.ID,
		ScoutID:     &h.seed.ScoutID,
		SessionDate: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		WeekNumber:  11,
		Status:      status,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
		Targets: []*models.SessionTarget{{
			ID:                bunx.NewUUIDv7(),
			GreenhouseID:      &h.seed.Greenhouse.ID,
			IncludeAllBays:    true,
			IncludeAllBenches: true,
			CreatedAt:         now,
		}},
	}
	require.NoError(t, h.store.Sessions().Create(context.Background(), session))
	return session
}

func (h *harness) newObservation(t *testing.T, session *models.ScoutingSession) *models.Observation {
	t.Helper()
	obs, err := observation.NewStore(h.store, nil).Upsert(context.Background(), session.FarmID, session.ID, observation.Create{
		Cell:   observation.Cell{TargetID: session.Targets[0].ID, SpeciesCode: models.SpeciesThrips},
		Values: observation.Values{Count: 3},
	})
	require.NoError(t, err)
	return obs
}

func assertAppErr(t *testing.T, err error, kind error, detail string) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, errors.Is(err, kind), "want %v, got %v", kind, err)
	if detail != "" {
		assert.Equal(t, detail, apperr.Detail(err))
	}
}

func TestService_RegisterIsIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	session := h.newSession(t, models.StatusInProgress)
	captured := time.Date(2026, 3, 10, 9, 30, 0, 0, time.FixedZone("EAT", 3*3600))

	first, created, err := h.svc.Register(ctx, h.scout, session.ID, RegisterRequest{
		LocalPhotoID: " IMG_0001 ",
		Purpose:      "leaf underside",
		CapturedAt:   &captured,
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "IMG_0001", first.LocalPhotoID)
	assert.Equal(t, models.PhotoPendingUpload, first.SyncStatus)
	assert.Equal(t, h.seed.Farm.ID, first.FarmID)
	assert.Nil(t, first.ObjectKey)
	require.NotNil(t, first.CapturedAt)
	assert.Equal(t, time.UTC, first.CapturedAt.Location())

	again, created, err := h.svc.Register(ctx, h.scout, session.ID, RegisterRequest{LocalPhotoID: "IMG_0001", Purpose: "changed"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, "leaf underside", again.Purpose, "replay returns the stored row")

	photos, err := h.svc.List(ctx, h.admin, session.ID)
	require.NoError(t, err)
	assert.Len(t, photos, 1)
}

func TestService_RegisterRejections(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	session := h.newSession(t, models.StatusInProgress)
	other := h.newSession(t, models.StatusNew)
	foreignObs := h.newObservation(t, other)

	_, _, err := h.svc.Register(ctx, h.scout, other.ID, RegisterRequest{LocalPhotoID: "IMG_0100"})
	require.NoError(t, err)

	missing := bunx.NewUUIDv7()
	stranger := auth.Actor{ID: bunx.NewUUIDv7(), Role: models.RoleManager}
	otherScout := auth.Actor{ID: bunx.NewUUIDv7(), Role: models.RoleScout}

	tests := []struct {
		name   string
		actor  auth.Actor
		req    RegisterRequest
		kind   error
		detail string
	}{
		{"blank local id", h.scout, RegisterRequest{LocalPhotoID: "  "}, apperr.ErrBadRequest, "Parameter 'localPhotoId' is required."},
		{"local id registered in another session", h.scout, RegisterRequest{LocalPhotoID: "IMG_0100"}, apperr.ErrBadRequest, "Photo belongs to a different session"},
		{"observation of another session", h.scout, RegisterRequest{LocalPhotoID: "IMG_0101", ObservationID: &foreignObs.ID}, apperr.ErrBadRequest, "Observation does not belong to the session"},
		{"unknown observation", h.scout, RegisterRequest{LocalPhotoID: "IMG_0102", ObservationID: &missing}, apperr.ErrNotFound, ""},
		{"scout not assigned", otherScout, RegisterRequest{LocalPhotoID: "IMG_0103"}, apperr.ErrForbidden, "You are not assigned to this scouting session."},
		{"manager of another farm", stranger, RegisterRequest{LocalPhotoID: "IMG_0104"}, apperr.ErrForbidden, ""},
		{"anonymous", auth.Actor{}, RegisterRequest{LocalPhotoID: "IMG_0105"}, apperr.ErrUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := h.svc.Register(ctx, tt.actor, session.ID, tt.req)
			assertAppErr(t, err, tt.kind, tt.detail)
		})
	}

	photos, err := h.store.Photos().ListBySession(ctx, session.ID)
	require.NoError(t, err)
	assert.Empty(t, photos)
}

func TestService_RegisterLinksObservation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	session := h.newSession(t, models.StatusInProgress)
	obs := h.newObservation(t, session)

	view, _, err := h.svc.Register(ctx, h.scout, session.ID, RegisterRequest{LocalPhotoID: "IMG_0200", ObservationID: &obs.ID})
	require.NoError(t, err)
	require.NotNil(t, view.ObservationID)
	assert.Equal(t, obs.ID, *view.ObservationID)
}

func TestService_Confirm(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	session := h.newSession(t, models.StatusInProgress)
	registered, _, err := h.svc.Register(ctx, h.scout, session.ID, RegisterRequest{LocalPhotoID: "IMG_0300"})
	require.NoError(t, err)

	confirmed, err := h.svc.Confirm(ctx, h.scout, session.ID, ConfirmRequest{LocalPhotoID: "IMG_0300", ObjectKey: "farms/f1/IMG_0300.jpg"})
	require.NoError(t, err)
	assert.Equal(t, registered.ID, confirmed.ID)
	assert.Equal(t, models.PhotoSynced, confirmed.SyncStatus)
	require.NotNil(t, confirmed.ObjectKey)
	assert.Equal(t, "farms/f1/IMG_0300.jpg", *confirmed.ObjectKey)
	assert.Equal(t, int64(2), confirmed.Version)
	assert.Greater(t, confirmed.ChangeSeq, registered.ChangeSeq)

	again, err := h.svc.Confirm(ctx, h.scout, session.ID, ConfirmRequest{LocalPhotoID: "IMG_0300", ObjectKey: "farms/f1/IMG_0300.jpg"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), again.Version, "same key again changes nothing")

	moved, err := h.svc.Confirm(ctx, h.admin, session.ID, ConfirmRequest{LocalPhotoID: "IMG_0300", ObjectKey: "farms/f1/archive/IMG_0300.jpg"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), moved.Version)

	_, err = h.svc.Confirm(ctx, h.scout, session.ID, ConfirmRequest{LocalPhotoID: "IMG_0404", ObjectKey: "x"})
	assertAppErr(t, err, apperr.ErrNotFound, "")

	_, err = h.svc.Confirm(ctx, h.scout, session.ID, ConfirmRequest{LocalPhotoID: "IMG_0300"})
	assertAppErr(t, err, apperr.ErrBadRequest, "Parameter 'objectKey' is required.")

	other := h.newSession(t, models.StatusInProgress)
	_, err = h.svc.Confirm(ctx, h.scout, other.ID, ConfirmRequest{LocalPhotoID: "IMG_0300", ObjectKey: "x"})
	assertAppErr(t, err, apperr.ErrBadRequest, "Photo belongs to a different session")
}

func TestService_ConfirmCompletedSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	session := h.newSession(t, models.StatusCompleted)
	_, _, err := h.svc.Register(ctx, h.scout, session.ID, RegisterRequest{LocalPhotoID: "IMG_0400"})
	require.NoError(t, err)

	_, err = h.svc.Confirm(ctx, h.scout, session.ID, ConfirmRequest{LocalPhotoID: "IMG_0400", ObjectKey: "k"})
	assertAppErr(t, err, apperr.ErrForbidden, "Scouts cannot confirm photo uploads for completed sessions.")

	stored, err := h.store.Photos().FindByLocalID(ctx, h.seed.Farm.ID, "IMG_0400")
	require.NoError(t, err)
	assert.False(t, stored.Synced())

	view, err := h.svc.Confirm(ctx, h.admin, session.ID, ConfirmRequest{LocalPhotoID: "IMG_0400", ObjectKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, models.PhotoSynced, view.SyncStatus)
}

func TestService_WritesAdvanceFarmStamp(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	session := h.newSession(t, models.StatusInProgress)

	view, _, err := h.svc.Register(ctx, h.scout, session.ID, RegisterRequest{LocalPhotoID: "IMG_0500"})
	require.NoError(t, err)

	current, err := h.store.Cursors().Current(ctx, h.seed.Farm.ID)
	require.NoError(t, err)
	assert.Equal(t, current.Seq, view.ChangeSeq)

	after := view.ChangeSeq - 1
	changed, err := h.store.Photos().ListChanged(ctx, h.seed.Farm.ID, repository.ChangeWindow{AfterSeq: &after})
	require.NoError(t, err)
	require.Len(t, changed, 1)
	assert.Equal(t, view.ID, changed[0].ID)
}
