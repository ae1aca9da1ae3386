package session

import (
	"context"
	"strings"

	"github.com/hashicorp/go-bexpr"
	"go.opentelemetry.io/otel/attribute"

	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/apperr"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/auth"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/db/models"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/repository"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/telemetry"
)

// ListFilter narrows ListSessions. Expression is a go-bexpr boolean expression
// over the session fields, e.g. `Status == "SUBMITTED" and WeekNumber == 14`.
type ListFilter struct {
	Expression string
}

// filterFields is the record list filter expressions are evaluated against.
type filterFields struct {
	ID              string
	Status          string
	WeekNumber      int
	SessionDate     string
	ScoutID         string
	ManagerID       string
	CropType        string
	CropVariety     string
	Weather         string
	ObservationTime string
	Confirmed       bool
	Version         int64
}

// Get returns the session view. Scouts only see sessions assigned to them.
func (s *Service) Get(ctx context.Context, actor auth.Actor, sessionID string) (*View, error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "session.Get",
		attribute.String(telemetry.AttrSessionID, sessionID),
	)
	defer span.End()

	session, farm, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.requireOwnerOr(actor, session, farm, s.gate.RequireViewAccess); err != nil {
		return nil, err
	}
	return s.views.BuildOne(ctx, session)
}

// List returns the farm's sessions newest session date first. Scouts get only
// their own sessions.
func (s *Service) List(ctx context.Context, actor auth.Actor, farmID string, filter ListFilter) ([]*View, error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "session.List",
		attribute.String(telemetry.AttrFarmID, farmID),
	)
	defer span.End()

	farm, err := s.lookup.ResolveFarm(ctx, farmID)
	if err != nil {
		return nil, err
	}

	query := repository.SessionFilter{FarmID: farm.ID}
	switch {
	case actor.IsZero():
		return nil, apperr.Unauthorized("authentication required")
	case actor.Role == models.RoleScout:
		scoutID := actor.ID
		query.ScoutID = &scoutID
	default:
		if err := s.gate.RequireViewAccess(actor, farm); err != nil {
			return nil, err
		}
	}

	evaluator, err := s.compileFilter(filter.Expression)
	if err != nil {
		return nil, err
	}

	rows, err := s.store.Sessions().List(ctx, query)
	if err != nil {
		return nil, err
	}

	sessions := make([]*models.ScoutingSession, 0, len(rows))
	for i := range rows {
		if evaluator != nil {
			ok, err := evaluator.Evaluate(fieldsOf(&rows[i]))
			if err != nil {
				return nil, apperr.BadRequest("Invalid filter expression: %v", err)
			}
			if !ok {
				continue
			}
		}
		sessions = append(sessions, &rows[i])
	}

	return s.views.Build(ctx, sessions)
}

// ListAuditEvents returns the session's lifecycle history oldest first.
func (s *Service) ListAuditEvents(ctx context.Context, actor auth.Actor, sessionID string) ([]models.SessionAuditEvent, error) {
	session, farm, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.requireOwnerOr(actor, session, farm, s.gate.RequireViewAccess); err != nil {
		return nil, err
	}
	return s.store.Audit().ListBySession(ctx, session.ID)
}

func (s *Service) compileFilter(expression string) (*bexpr.Evaluator, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, nil
	}
	if cached, ok := s.filters.Get(expression); ok {
		return cached, nil
	}

	evaluator, err := bexpr.CreateEvaluator(expression)
	if err != nil {
		return nil, apperr.BadRequest("Invalid filter expression: %v", err)
	}
	s.filters.Add(expression, evaluator)
	return evaluator, nil
}

func fieldsOf(session *models.ScoutingSession) filterFields {
	fields := filterFields{
		ID:              session.ID,
		Status:          string(session.Status),
		WeekNumber:      session.WeekNumber,
		SessionDate:     session.SessionDate.Format(DateLayout),
		CropType:        session.CropType,
		CropVariety:     session.CropVariety,
		Weather:         session.Weather,
		ObservationTime: session.ObservationTime,
		Confirmed:       session.ConfirmationAcknowledged,
		Version:         session.Version,
	}
	if session.ScoutID != nil {
		fields.ScoutID = *session.ScoutID
	}
	if session.ManagerID != nil {
		fields.ManagerID = *session.ManagerID
	}
	return fields
}
