package bunx

import "github.com/google/uuid"

// NewUUIDv7 returns a time-ordered UUID string for primary keys.
// Generation only fails when the entropy source is broken, so it panics.
func NewUUIDv7() string {
	return uuid.Must(uuid.NewV7()).String()
}

// IsUUID reports whether s parses as a UUID.
func IsUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
