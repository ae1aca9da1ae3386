package auth

import (
	"context"

	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/db/models"
)

// Actor is the caller identity threaded explicitly through every service call.
type Actor struct {
	ID    string
	Role  models.Role
	Email string
	Name  string
}

// DisplayName returns the name, falling back to the email when the name is blank.
func (a Actor) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	return a.Email
}

// IsZero reports whether no identity was resolved.
func (a Actor) IsZero() bool {
	return a.ID == ""
}

type actorContextKey struct{}

// SetActorContext stores the authenticated actor on the context for handlers.
func SetActorContext(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// GetActorFromContext retrieves the authenticated actor from the context.
func GetActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	return actor, ok
}
