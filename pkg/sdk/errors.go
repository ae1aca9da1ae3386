package sdk

import (
	"errors"
	"fmt"
)

// Sentinel errors matched by APIError.Is on the server's error code.
var (
	ErrNotFound     = errors.New("not found")
	ErrBadRequest   = errors.New("bad request")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)

// APIError is a non-2xx response from the scout API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	// EntryIndex names the failing entry of a rejected bulk write.
	EntryIndex *int
}

func (e *APIError) Error() string {
	if e.EntryIndex != nil {
		return fmt.Sprintf("%s (%d): entry %d: %s", e.Code, e.StatusCode, *e.EntryIndex, e.Message)
	}
	return fmt.Sprintf("%s (%d): %s", e.Code, e.StatusCode, e.Message)
}

// Is lets errors.Is(err, sdk.ErrConflict) and friends match on the code.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Code == "not_found"
	case ErrBadRequest:
		return e.Code == "bad_request"
	case ErrConflict:
		return e.Code == "conflict"
	case ErrForbidden:
		return e.Code == "forbidden"
	case ErrUnauthorized:
		return e.Code == "unauthorized"
	}
	return false
}
