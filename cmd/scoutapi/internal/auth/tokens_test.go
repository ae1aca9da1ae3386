package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/apperr"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/db/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenService_RoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	svc := NewTokenService([]byte("test-secret"), "scoutapi", func() time.Time { return now })

	actor := Actor{ID: "user-1", Role: models.RoleScout, Email: "s@example.com", Name: "Sam"}
	token, err := svc.Issue(actor, time.Hour)
	require.NoError(t, err)

	parsed, err := svc.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, actor, parsed)
}

func TestTokenService_Rejects(t *testing.T) {
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	svc := NewTokenService([]byte("test-secret"), "scoutapi", func() time.Time { return now })
	actor := Actor{ID: "user-1", Role: models.RoleManager}

	t.Run("expired", func(t *testing.T) {
		token, err := svc.Issue(actor, time.Hour)
		require.NoError(t, err)

		later := NewTokenService([]byte("test-secret"), "scoutapi", func() time.Time { return now.Add(2 * time.Hour) })
		_, err = later.Parse(token)
		assert.True(t, errors.Is(err, apperr.ErrUnauthorized))
	})

	t.Run("wrong secret", func(t *testing.T) {
		token, err := svc.Issue(actor, time.Hour)
		require.NoError(t, err)

		other := NewTokenService([]byte("other-secret"), "scoutapi", func() time.Time { return now })
		_, err = other.Parse(token)
		assert.True(t, errors.Is(err, apperr.ErrUnauthorized))
	})

	t.Run("wrong issuer", func(t *testing.T) {
		token, err := svc.Issue(actor, time.Hour)
		require.NoError(t, err)

		other := NewTokenService([]byte("test-secret"), "elsewhere", func() time.Time { return now })
		_, err = other.Parse(token)
		assert.True(t, errors.Is(err, apperr.ErrUnauthorized))
	})

	t.Run("unknown role cannot be issued", func(t *testing.T) {
		_, err := svc.Issue(Actor{ID: "x", Role: "GUEST"}, time.Hour)
		assert.Error(t, err)
	})
}
