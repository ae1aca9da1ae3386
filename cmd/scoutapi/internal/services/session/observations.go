package session

import (
	"context"
	"errors"

	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/apperr"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/auth"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/db/models"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/services/observation"
)

// UpsertObservation authorizes the actor and writes one observation cell.
func (s *Service) UpsertObservation(ctx context.Context, actor auth.Actor, sessionID string, req observation.Upsert) (*ObservationView, error) {
	session, err := s.authorizeObservationWrite(ctx, actor, sessionID)
	if err != nil {
		return nil, err
	}

	obs, err := s.observations.Upsert(ctx, session.FarmID, session.ID, req)
	if err != nil {
		return nil, err
	}
	view := NewObservationView(obs, targetOf(session, obs.TargetID))
	return &view, nil
}

// BulkUpsertObservations authorizes the actor and applies the batch atomically.
func (s *Service) BulkUpsertObservations(ctx context.Context, actor auth.Actor, sessionID string, batch observation.Batch) ([]ObservationView, error) {
	session, err := s.authorizeObservationWrite(ctx, actor, sessionID)
	if err != nil {
		return nil, err
	}

	written, err := s.observations.BulkUpsert(ctx, session.FarmID, session.ID, batch)
	if err != nil {
		return nil, err
	}
	views := make([]ObservationView, 0, len(written))
	for _, obs := range written {
		views = append(views, NewObservationView(obs, targetOf(session, obs.TargetID)))
	}
	return views, nil
}

// DeleteObservation authorizes the actor and soft-deletes the observation.
func (s *Service) DeleteObservation(ctx context.Context, actor auth.Actor, sessionID, observationID string) error {
	session, err := s.authorizeObservationWrite(ctx, actor, sessionID)
	if err != nil {
		return err
	}
	_, err = s.observations.Delete(ctx, session.FarmID, session.ID, observationID)
	return err
}

// authorizeObservationWrite allows the assigned scout, or any role with view
// access to the farm. A scout must also still be the farm's scout.
func (s *Service) authorizeObservationWrite(ctx context.Context, actor auth.Actor, sessionID string) (*models.ScoutingSession, error) {
	session, farm, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.requireOwnerOr(actor, session, farm, s.gate.RequireViewAccess); err != nil {
		return nil, err
	}
	if actor.Role == models.RoleScout {
		if err := s.gate.RequireScoutOfFarm(actor, farm); err != nil {
			if errors.Is(err, apperr.ErrForbidden) {
				return nil, apperr.Forbidden("Only the assigned scout can perform this action.")
			}
			return nil, err
		}
	}
	return session, nil
}

func targetOf(session *models.ScoutingSession, targetID string) *models.SessionTarget {
	for _, target := range session.Targets {
		if target.ID == targetID {
			return target
		}
	}
	return nil
}
