package session

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/apperr"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/auth"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/db/models"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/repository"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/services/audit"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/services/lifecycle"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/telemetry"
)

const supersededComment = "New session started while another was open"

// transition describes one lifecycle action. check runs against the row read
// inside the transaction, before the state machine is consulted.
type transition struct {
	action models.AuditAction
	to     models.SessionStatus
	meta   audit.Metadata
	check  func(current *models.ScoutingSession) error
	apply  func(current *models.ScoutingSession, stamp repository.ChangeStamp) []string
	before func(ctx context.Context, tx repository.Repositories, current *models.ScoutingSession, stamp repository.ChangeStamp) error
}

// Start moves a session to IN_PROGRESS. Any other IN_PROGRESS session of the
// same scout on the farm is marked INCOMPLETE in the same transaction.
func (s *Service) Start(ctx context.Context, actor auth.Actor, sessionID string, req TransitionRequest) (*View, error) {
	session, farm, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.requireOwnerOr(actor, session, farm, s.gate.RequireAdmin); err != nil {
		return nil, err
	}
	if session.Status == models.StatusInProgress {
		return s.views.BuildOne(ctx, session)
	}

	return s.run(ctx, actor, session, transition{
		action: models.AuditSessionStarted,
		to:     models.StatusInProgress,
		meta:   req.Audit,
		check: func(current *models.ScoutingSession) error {
			if current.Status.LockedForEditing() {
				return apperr.BadRequest("Cannot start a session that has already been submitted or completed.")
			}
			return optionalVersion(req.ExpectedVersion, current)
		},
		apply: func(current *models.ScoutingSession, stamp repository.ChangeStamp) []string {
			if current.StartedAt == nil {
				at := stamp.At
				current.StartedAt = &at
			}
			return []string{"started_at"}
		},
		before: func(ctx context.Context, tx repository.Repositories, current *models.ScoutingSession, stamp repository.ChangeStamp) error {
			return s.supersedeOpenSessions(ctx, tx, actor, current, stamp)
		},
	})
}

// Submit hands a session over for review and records the scout's confirmation.
func (s *Service) Submit(ctx context.Context, actor auth.Actor, sessionID string, req TransitionRequest) (*View, error) {
	session, farm, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.requireOwnerOr(actor, session, farm, s.gate.RequireViewAccess); err != nil {
		return nil, err
	}

	return s.run(ctx, actor, session, transition{
		action: models.AuditSessionSubmitted,
		to:     models.StatusSubmitted,
		meta:   req.Audit,
		check: func(current *models.ScoutingSession) error {
			if current.Status.LockedForEditing() {
				return apperr.BadRequest("Session has already been submitted or completed.")
			}
			return optionalVersion(req.ExpectedVersion, current)
		},
		apply: func(current *models.ScoutingSession, stamp repository.ChangeStamp) []string {
			at := stamp.At
			if current.StartedAt == nil {
				current.StartedAt = &at
			}
			current.SubmittedAt = &at
			current.ConfirmationAcknowledged = req.ConfirmationAcknowledged
			return []string{"started_at", "submitted_at", "confirmation_acknowledged"}
		},
	})
}

// Complete approves a submitted or reopened session. The caller must confirm
// the data and present the current version.
func (s *Service) Complete(ctx context.Context, actor auth.Actor, sessionID string, req TransitionRequest) (*View, error) {
	session, farm, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.gate.RequireAdmin(actor, farm); err != nil {
		return nil, err
	}

	return s.run(ctx, actor, session, transition{
		action: models.AuditSessionCompleted,
		to:     models.StatusCompleted,
		meta:   req.Audit,
		check: func(current *models.ScoutingSession) error {
			if current.Status == models.StatusCompleted {
				return apperr.BadRequest("Session is already completed.")
			}
			if current.Status != models.StatusSubmitted && current.Status != models.StatusReopened {
				return apperr.BadRequest("Session must be submitted before approval.")
			}
			if req.ExpectedVersion <= 0 {
				return apperr.BadRequest("Parameter 'version' is required.")
			}
			if err := checkVersion(req.ExpectedVersion, current); err != nil {
				return err
			}
			if !req.ConfirmationAcknowledged {
				return apperr.BadRequest("Please confirm all information is correct before completing the session.")
			}
			return nil
		},
		apply: func(current *models.ScoutingSession, stamp repository.ChangeStamp) []string {
			at := stamp.At
			if current.StartedAt == nil {
				current.StartedAt = &at
			}
			current.CompletedAt = &at
			current.ConfirmationAcknowledged = true
			return []string{"started_at", "completed_at", "confirmation_acknowledged"}
		},
	})
}

// Reopen unlocks a submitted, completed or incomplete session for editing.
func (s *Service) Reopen(ctx context.Context, actor auth.Actor, sessionID string, req TransitionRequest) (*View, error) {
	session, farm, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.gate.RequireAdmin(actor, farm); err != nil {
		return nil, err
	}

	return s.run(ctx, actor, session, transition{
		action: models.AuditSessionReopened,
		to:     models.StatusReopened,
		meta:   req.Audit,
		check: func(current *models.ScoutingSession) error {
			switch current.Status {
			case models.StatusCompleted, models.StatusSubmitted, models.StatusIncomplete:
			default:
				return apperr.BadRequest("Only submitted, completed or incomplete sessions can be reopened.")
			}
			return optionalVersion(req.ExpectedVersion, current)
		},
		apply: func(current *models.ScoutingSession, _ repository.ChangeStamp) []string {
			current.ReopenComment = req.Audit.Comment
			current.CompletedAt = nil
			current.ConfirmationAcknowledged = false
			return []string{"reopen_comment", "completed_at", "confirmation_acknowledged"}
		},
	})
}

// MarkIncomplete closes an IN_PROGRESS session without submitting it.
func (s *Service) MarkIncomplete(ctx context.Context, actor auth.Actor, sessionID string, req TransitionRequest) (*View, error) {
	session, farm, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.requireOwnerOr(actor, session, farm, s.gate.RequireAdmin); err != nil {
		return nil, err
	}

	return s.run(ctx, actor, session, transition{
		action: models.AuditSessionMarkedIncomplete,
		to:     models.StatusIncomplete,
		meta:   req.Audit,
		check: func(current *models.ScoutingSession) error {
			return optionalVersion(req.ExpectedVersion, current)
		},
	})
}

// run executes t as one compare-and-swap on the session row plus its audit event.
func (s *Service) run(ctx context.Context, actor auth.Actor, session *models.ScoutingSession, t transition) (*View, error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "session.Transition",
		attribute.String(telemetry.AttrSessionID, session.ID),
		attribute.String(telemetry.AttrSessionStatus, string(t.to)),
		attribute.String(telemetry.AttrActorRole, string(actor.Role)),
	)
	defer span.End()

	var updated *models.ScoutingSession
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		stamp, current, err := s.lockSession(ctx, tx, session)
		if err != nil {
			return err
		}
		if t.check != nil {
			if err := t.check(current); err != nil {
				return err
			}
		}
		if err := lifecycle.Validate(current.Status, t.to, actor.Role); err != nil {
			return err
		}
		if t.before != nil {
			if err := t.before(ctx, tx, current, stamp); err != nil {
				return err
			}
		}

		var columns []string
		if t.apply != nil {
			columns = t.apply(current, stamp)
		}
		current.Status = t.to
		if err := s.write(ctx, tx, current, stamp, append(columns, "status")...); err != nil {
			return err
		}
		if _, err := s.recorder.Record(ctx, tx.Audit(), current, t.action, actor, t.meta); err != nil {
			return err
		}
		updated = current
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.metrics.RecordTransition(string(t.action))
	slog.InfoContext(ctx, "session transition", "session_id", updated.ID, "action", t.action, "status", updated.Status)
	return s.views.BuildOne(ctx, updated)
}

// supersedeOpenSessions marks the scout's other IN_PROGRESS sessions on the farm INCOMPLETE.
func (s *Service) supersedeOpenSessions(ctx context.Context, tx repository.Repositories, actor auth.Actor, current *models.ScoutingSession, stamp repository.ChangeStamp) error {
	if current.ScoutID == nil {
		return nil
	}

	open, err := tx.Sessions().ListInProgressByScout(ctx, current.FarmID, *current.ScoutID)
	if err != nil {
		return err
	}
	for i := range open {
		other := &open[i]
		if other.ID == current.ID {
			continue
		}
		other.Status = models.StatusIncomplete
		if err := s.write(ctx, tx, other, stamp, "status"); err != nil {
			return err
		}
		meta := audit.Metadata{Comment: supersededComment}
		if _, err := s.recorder.Record(ctx, tx.Audit(), other, models.AuditSessionMarkedIncomplete, actor, meta); err != nil {
			return err
		}
	}
	return nil
}

// requireOwnerOr lets a scout act only on sessions assigned to them; every
// other role must pass the given gate predicate.
func (s *Service) requireOwnerOr(actor auth.Actor, session *models.ScoutingSession, farm *models.Farm, predicate func(auth.Actor, *models.Farm) error) error {
	if actor.IsZero() {
		return apperr.Unauthorized("authentication required")
	}
	if actor.Role == models.RoleScout {
		if session.IsOwnedBy(actor.ID) {
			return nil
		}
		return apperr.Forbidden("You are not assigned to this scouting session.")
	}
	return predicate(actor, farm)
}

func optionalVersion(expected int64, current *models.ScoutingSession) error {
	if expected == 0 {
		return nil
	}
	return checkVersion(expected, current)
}
