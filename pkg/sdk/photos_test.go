package sdk_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katlaang/pestscan-sub000/pkg/sdk"
)

func TestClient_RegisterAndConfirmPhoto(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/sessions/s-1/photos", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "IMG_0001", body["localPhotoId"])
		assert.Equal(t, "o-1", body["observationId"])
		assert.Equal(t, "2026-03-10T06:30:00Z", body["capturedAt"])

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":"p-1","sessionId":"s-1","observationId":"o-1","farmId":"farm-1","localPhotoId":"IMG_0001","syncStatus":"PENDING_UPLOAD","version":1}`)
	})
	mux.HandleFunc("POST /api/v1/sessions/s-1/photos/confirm", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]string{"localPhotoId": "IMG_0001", "objectKey": "farm-1/IMG_0001.jpg"}, body)
		_, _ = io.WriteString(w, `{"id":"p-1","sessionId":"s-1","localPhotoId":"IMG_0001","objectKey":"farm-1/IMG_0001.jpg","syncStatus":"SYNCED","version":2}`)
	})
	mux.HandleFunc("POST /api/v1/sessions/s-2/photos/confirm", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `{"error":"Scouts cannot confirm photo uploads for completed sessions.","code":"forbidden"}`)
	})
	srv := newTestServer(t, mux)
	client := sdk.NewClient(srv.URL)
	ctx := context.Background()

	obsID := "o-1"
	captured := time.Date(2026, 3, 10, 6, 30, 0, 0, time.UTC)
	photo, err := client.RegisterPhoto(ctx, "s-1", sdk.PhotoInput{LocalPhotoID: "IMG_0001", ObservationID: &obsID, CapturedAt: &captured})
	require.NoError(t, err)
	assert.Equal(t, "p-1", photo.ID)
	assert.Equal(t, "PENDING_UPLOAD", photo.SyncStatus)

	confirmed, err := client.ConfirmPhotoUpload(ctx, "s-1", "IMG_0001", "farm-1/IMG_0001.jpg")
	require.NoError(t, err)
	assert.Equal(t, "SYNCED", confirmed.SyncStatus)
	require.NotNil(t, confirmed.ObjectKey)
	assert.Equal(t, "farm-1/IMG_0001.jpg", *confirmed.ObjectKey)

	_, err = client.ConfirmPhotoUpload(ctx, "s-2", "IMG_0009", "k")
	assert.True(t, errors.Is(err, sdk.ErrForbidden))
}

func TestClient_PhotoInputValidation(t *testing.T) {
	client := sdk.NewClient("http://127.0.0.1:0")

	_, err := client.RegisterPhoto(context.Background(), "s-1", sdk.PhotoInput{})
	assert.ErrorContains(t, err, "local photo ID is required")

	_, err = client.ConfirmPhotoUpload(context.Background(), "s-1", "IMG_0001", "")
	assert.ErrorContains(t, err, "object key are required")
}

func TestClient_ListPhotos(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/sessions/s-1/photos", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[{"id":"p-1","localPhotoId":"a","syncStatus":"SYNCED"},{"id":"p-2","localPhotoId":"b","syncStatus":"PENDING_UPLOAD"}]`)
	})
	srv := newTestServer(t, mux)

	photos, err := sdk.NewClient(srv.URL).ListPhotos(context.Background(), "s-1")
	require.NoError(t, err)
	require.Len(t, photos, 2)
	assert.Equal(t, "b", photos[1].LocalPhotoID)
}
