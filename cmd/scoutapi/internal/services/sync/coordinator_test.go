package sync

import (
	"context"
	"encoding/json"
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
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/services/photo"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/services/session"
)

type env struct {
	sessions *session.Service
	photos   *photo.Service
	sync     *Coordinator
	seed     *dbtest.Seed
	admin    auth.Actor
	scout    auth.Actor
}

func newEnv(t *testing.T) *env {
	t.Helper()

	db := dbtest.NewSQLite(t)
	seed := dbtest.SeedFarm(t, db)
	store := repository.NewBunStore(db)
	lookup, err := masterdata.NewCachedLookup(repository.NewBunFarmRepository(db), 16, time.Minute)
	require.NoError(t, err)
	gate, err := auth.NewCasbinGate()
	require.NoError(t, err)

	sessions := session.NewService(store, lookup, gate, nil)
	return &env{
		sessions: sessions,
		photos:   photo.NewService(store, lookup, gate, nil),
		sync:     NewCoordinator(store, lookup, gate, sessions.Views()),
		seed:     seed,
		admin:    auth.Actor{ID: seed.OwnerID, Role: models.RoleFarmAdmin, Email: "owner@kilimo.test"},
		scout:    auth.Actor{ID: seed.ScoutID, Role: models.RoleScout, Email: "scout@kilimo.test"},
	}
}

func (e *env) newSession(t *testing.T, scoutID *string) *session.View {
	t.Helper()
	view, err := e.sessions.Create(context.Background(), e.admin, e.seed.Farm.ID, session.CreateRequest{
		Targets:     []session.TargetRequest{{GreenhouseID: &e.seed.Greenhouse.ID}},
		SessionDate: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		ScoutID:     scoutID,
	})
	require.NoError(t, err)
	return view
}

func (e *env) record(t *testing.T, view *session.View, species models.SpeciesCode, count int) *session.ObservationView {
	t.Helper()
	obs, err := e.sessions.UpsertObservation(context.Background(), e.admin, view.ID, observation.Create{
		Cell:   observation.Cell{TargetID: view.Sections[0].TargetID, SpeciesCode: species},
		Values: observation.Values{Count: count},
	})
	require.NoError(t, err)
	return obs
}

func cursorOf(v int64) *int64 { return &v }

func TestCoordinator_RequiresWindow(t *testing.T) {
	e := newEnv(t)

	_, err := e.sync.Changes(context.Background(), e.admin, e.seed.Farm.ID, Request{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrBadRequest))
	assert.Equal(t, "Parameter 'since' is required for sync.", apperr.Detail(err))
}

func TestCoordinator_CursorChaining(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	view := e.newSession(t, nil)
	thrips := e.record(t, view, models.SpeciesThrips, 4)

	first, err := e.sync.Changes(ctx, e.admin, e.seed.Farm.ID, Request{Cursor: cursorOf(0), IncludeDeleted: true})
	require.NoError(t, err)
	require.Len(t, first.Sessions, 1)
	require.Len(t, first.Observations, 1)
	assert.Equal(t, thrips.ID, first.Observations[0].Active.ID)
	assert.Equal(t, thrips.ChangeSeq, first.Watermark.Cursor)

	again, err := e.sync.Changes(ctx, e.admin, e.seed.Farm.ID, Request{Cursor: cursorOf(0), IncludeDeleted: true})
	require.NoError(t, err)
	assert.Equal(t, first.Watermark, again.Watermark)
	assert.Len(t, again.Observations, 1)

	mites := e.record(t, view, models.SpeciesRedSpiderMite, 2)
	require.NoError(t, e.sessions.DeleteObservation(ctx, e.admin, view.ID, thrips.ID))

	second, err := e.sync.Changes(ctx, e.admin, e.seed.Farm.ID, Request{Cursor: cursorOf(first.Watermark.Cursor), IncludeDeleted: true})
	require.NoError(t, err)
	require.Len(t, second.Observations, 2)
	assert.Equal(t, mites.ID, second.Observations[0].Active.ID)
	require.True(t, second.Observations[1].IsDeleted())
	assert.Equal(t, thrips.ID, second.Observations[1].Deleted.ID)
	require.Len(t, second.Sessions, 1, "session touched through its observations")
	assert.Len(t, second.Sessions[0].Sections[0].Observations, 1, "views carry live rows only")
	assert.Greater(t, second.Watermark.Cursor, first.Watermark.Cursor)

	live, err := e.sync.Changes(ctx, e.admin, e.seed.Farm.ID, Request{Cursor: cursorOf(first.Watermark.Cursor)})
	require.NoError(t, err)
	require.Len(t, live.Observations, 1)
	assert.False(t, live.Observations[0].IsDeleted())

	idle, err := e.sync.Changes(ctx, e.admin, e.seed.Farm.ID, Request{Cursor: cursorOf(second.Watermark.Cursor), IncludeDeleted: true})
	require.NoError(t, err)
	assert.Empty(t, idle.Sessions)
	assert.Empty(t, idle.Observations)
	assert.Equal(t, second.Watermark, idle.Watermark)
}

func TestCoordinator_SinceWindow(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	before := time.Now().Add(-time.Hour)
	view := e.newSession(t, nil)
	e.record(t, view, models.SpeciesWhiteflies, 1)

	all, err := e.sync.Changes(ctx, e.admin, e.seed.Farm.ID, Request{Since: &before})
	require.NoError(t, err)
	assert.Len(t, all.Sessions, 1)
	assert.Len(t, all.Observations, 1)

	since := all.Watermark.Timestamp
	none, err := e.sync.Changes(ctx, e.admin, e.seed.Farm.ID, Request{Since: &since})
	require.NoError(t, err)
	assert.Empty(t, none.Sessions)
	assert.Empty(t, none.Observations)
}

func TestCoordinator_ScoutSeesOwnSessions(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	own := e.newSession(t, nil)
	other := bunx.NewUUIDv7()
	foreign := e.newSession(t, &other)
	e.record(t, own, models.SpeciesThrips, 1)
	e.record(t, foreign, models.SpeciesThrips, 1)

	resp, err := e.sync.Changes(ctx, e.scout, e.seed.Farm.ID, Request{Cursor: cursorOf(0)})
	require.NoError(t, err)
	require.Len(t, resp.Sessions, 1)
	assert.Equal(t, own.ID, resp.Sessions[0].ID)
	require.Len(t, resp.Observations, 1)
	assert.Equal(t, own.ID, resp.Observations[0].Active.SessionID)

	stranger := auth.Actor{ID: bunx.NewUUIDv7(), Role: models.RoleManager}
	_, err = e.sync.Changes(ctx, stranger, e.seed.Farm.ID, Request{Cursor: cursorOf(0)})
	assert.True(t, errors.Is(err, apperr.ErrForbidden))
}

func TestCoordinator_PhotoChanges(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	own := e.newSession(t, nil)
	other := bunx.NewUUIDv7()
	foreign := e.newSession(t, &other)

	start, err := e.sync.Changes(ctx, e.admin, e.seed.Farm.ID, Request{Cursor: cursorOf(0)})
	require.NoError(t, err)
	assert.Empty(t, start.Photos)

	_, _, err = e.photos.Register(ctx, e.scout, own.ID, photo.RegisterRequest{LocalPhotoID: "IMG_1"})
	require.NoError(t, err)
	_, _, err = e.photos.Register(ctx, e.admin, foreign.ID, photo.RegisterRequest{LocalPhotoID: "IMG_2"})
	require.NoError(t, err)

	mine, err := e.sync.Changes(ctx, e.scout, e.seed.Farm.ID, Request{Cursor: cursorOf(start.Watermark.Cursor)})
	require.NoError(t, err)
	require.Len(t, mine.Sessions, 1, "session touched through its photos")
	assert.Equal(t, own.ID, mine.Sessions[0].ID)
	require.Len(t, mine.Photos, 1)
	assert.Equal(t, "IMG_1", mine.Photos[0].LocalPhotoID)
	assert.Equal(t, models.PhotoPendingUpload, mine.Photos[0].SyncStatus)

	all, err := e.sync.Changes(ctx, e.admin, e.seed.Farm.ID, Request{Cursor: cursorOf(start.Watermark.Cursor)})
	require.NoError(t, err)
	assert.Len(t, all.Sessions, 2)
	assert.Len(t, all.Photos, 2)

	_, err = e.photos.Confirm(ctx, e.scout, own.ID, photo.ConfirmRequest{LocalPhotoID: "IMG_1", ObjectKey: "farm/IMG_1.jpg"})
	require.NoError(t, err)

	next, err := e.sync.Changes(ctx, e.scout, e.seed.Farm.ID, Request{Cursor: cursorOf(mine.Watermark.Cursor)})
	require.NoError(t, err)
	require.Len(t, next.Photos, 1)
	assert.Equal(t, models.PhotoSynced, next.Photos[0].SyncStatus)
	assert.Empty(t, next.Observations)
}

func TestChange_MarshalJSON(t *testing.T) {
	deletedAt := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

	raw, err := json.Marshal(Change{Deleted: &Tombstone{ID: "o1", SessionID: "s1", DeletedAt: deletedAt, ChangeSeq: 7}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"o1","sessionId":"s1","deletedAt":"2026-03-10T08:00:00Z","changeSeq":7,"deleted":true}`, string(raw))

	raw, err = json.Marshal(Change{Active: &session.ObservationView{ID: "o2", Count: 3}})
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, false, decoded["deleted"])
	assert.Equal(t, "o2", decoded["id"])
}
