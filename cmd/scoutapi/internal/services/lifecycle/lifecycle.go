// Package lifecycle decides which session status changes a role may perform.
package lifecycle

import (
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/apperr"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/db/models"
)

type rule struct {
	from      []models.SessionStatus
	adminOnly bool
}

// rules is keyed by the target status.
var rules = map[models.SessionStatus]rule{
	models.StatusNew: {
		from:      []models.SessionStatus{models.StatusDraft},
		adminOnly: true,
	},
	models.StatusInProgress: {
		from: []models.SessionStatus{models.StatusNew, models.StatusDraft, models.StatusReopened},
	},
	models.StatusSubmitted: {
		from: []models.SessionStatus{models.StatusNew, models.StatusDraft, models.StatusInProgress, models.StatusReopened},
	},
	models.StatusCompleted: {
		from:      []models.SessionStatus{models.StatusSubmitted, models.StatusReopened},
		adminOnly: true,
	},
	models.StatusReopened: {
		from:      []models.SessionStatus{models.StatusSubmitted, models.StatusCompleted, models.StatusIncomplete},
		adminOnly: true,
	},
	models.StatusIncomplete: {
		from: []models.SessionStatus{models.StatusInProgress},
	},
}

// CanTransition reports whether role may move a session from one status to another.
// Unknown statuses and roles are always denied.
func CanTransition(from, to models.SessionStatus, role models.Role) bool {
	if !role.Valid() {
		return false
	}
	r, ok := rules[to]
	if !ok {
		return false
	}
	if r.adminOnly && !role.IsAdminFamily() {
		return false
	}
	for _, allowed := range r.from {
		if allowed == from {
			return true
		}
	}
	return false
}

// Validate returns a BadRequest error naming the rejected transition.
func Validate(from, to models.SessionStatus, role models.Role) error {
	if CanTransition(from, to, role) {
		return nil
	}
	return apperr.BadRequest("Invalid session transition from %s to %s for role %s", from, to, role)
}
