package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/auth"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/db/models"
)

func TestAuthnMiddleware(t *testing.T) {
	tokens := auth.NewTokenService([]byte("test-secret"), "scoutapi", nil)
	scout := auth.Actor{ID: "scout-1", Role: models.RoleScout, Email: "scout@kilimo.test"}
	valid, err := tokens.Issue(scout, time.Hour)
	require.NoError(t, err)

	var seen auth.Actor
	var hasActor bool
	handler := NewAuthnMiddleware(tokens)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, hasActor = auth.GetActorFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantActor  bool
	}{
		{name: "anonymous", header: "", wantStatus: http.StatusNoContent},
		{name: "valid bearer", header: "Bearer " + valid, wantStatus: http.StatusNoContent, wantActor: true},
		{name: "lowercase scheme", header: "bearer " + valid, wantStatus: http.StatusNoContent, wantActor: true},
		{name: "basic scheme", header: "Basic dXNlcjpwYXNz", wantStatus: http.StatusUnauthorized},
		{name: "empty token", header: "Bearer ", wantStatus: http.StatusUnauthorized},
		{name: "garbage token", header: "Bearer not-a-jwt", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen, hasActor = auth.Actor{}, false
			req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/s1", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantActor, hasActor)
			if tt.wantActor {
				assert.Equal(t, scout, seen)
			}
			if tt.wantStatus == http.StatusUnauthorized {
				assert.Contains(t, rec.Body.String(), `"code":"unauthorized"`)
				assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))
			}
		})
	}
}
