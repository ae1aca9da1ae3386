// Package session composes sessions, targets and observations into views and
// orchestrates lifecycle transitions.
package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hashicorp/go-bexpr"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.opentelemetry.io/otel/attribute"

	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/apperr"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/auth"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/db/bunx"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/db/models"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/repository"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/services/audit"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/services/masterdata"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/services/observation"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/telemetry"
)

const (
	tracerName      = "scoutapi/services/session"
	filterCacheSize = 128
)

// Service is the entry point for session reads, writes and transitions.
//
// Authorization and master data lookups run before a transaction opens; the
// transaction then takes the farm's change stamp before re-reading the session,
// so every write to a farm's sessions is serialized behind that row.
type Service struct {
	store        repository.Store
	lookup       masterdata.Lookup
	gate         auth.Gate
	observations *observation.Store
	recorder     *audit.Recorder
	views        *ViewBuilder
	filters      *lru.Cache[string, *bexpr.Evaluator]
	now          func() time.Time
	metrics      *telemetry.ScoutMetrics
}

// NewService constructs a session service. now may be nil.
func NewService(store repository.Store, lookup masterdata.Lookup, gate auth.Gate, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	filters, _ := lru.New[string, *bexpr.Evaluator](filterCacheSize)
	return &Service{
		store:        store,
		lookup:       lookup,
		gate:         gate,
		observations: observation.NewStore(store, now),
		recorder:     audit.NewRecorder(now),
		views:        NewViewBuilder(store, lookup),
		filters:      filters,
		now:          now,
	}
}

// WithMetrics attaches Prometheus instruments (optional dependency).
func (s *Service) WithMetrics(metrics *telemetry.ScoutMetrics) *Service {
	s.metrics = metrics
	s.observations.WithMetrics(metrics)
	return s
}

// Views exposes the view builder for read paths outside this package.
func (s *Service) Views() *ViewBuilder {
	return s.views
}

// Create validates the request, resolves its targets against the farm and
// stores a new session in DRAFT (or NEW when asked for explicitly).
func (s *Service) Create(ctx context.Context, actor auth.Actor, farmID string, req CreateRequest) (*View, error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "session.Create",
		attribute.String(telemetry.AttrFarmID, farmID),
		attribute.String(telemetry.AttrActorID, actor.ID),
	)
	defer span.End()

	farm, err := s.lookup.ResolveFarm(ctx, farmID)
	if err != nil {
		return nil, err
	}
	if err := s.gate.RequireAdmin(actor, farm); err != nil {
		return nil, err
	}

	status := req.Status
	if status == "" {
		status = models.StatusDraft
	}
	if status != models.StatusDraft && status != models.StatusNew {
		return nil, apperr.BadRequest("Session status must be DRAFT or NEW when creating.")
	}
	if req.SessionDate.IsZero() {
		return nil, apperr.BadRequest("Session date is required.")
	}
	if len(req.Targets) == 0 {
		return nil, apperr.BadRequest("At least one session target is required.")
	}
	if err := validateRecommendations(req.Recommendations); err != nil {
		return nil, err
	}

	targets, err := s.resolveTargets(ctx, farm, req.Targets)
	if err != nil {
		return nil, err
	}

	session := &models.ScoutingSession{
		ID:                      bunx.NewUUIDv7(),
		FarmID:                  farm.ID,
		ManagerID:               managerFor(actor, farm),
		ScoutID:                 farm.ScoutID,
		GreenhouseID:            targets[0].GreenhouseID,
		FieldBlockID:            targets[0].FieldBlockID,
		SessionDate:             dateOnly(req.SessionDate),
		WeekNumber:              weekNumber(req.SessionDate, req.WeekNumber),
		CropType:                req.CropType,
		CropVariety:             req.CropVariety,
		Weather:                 req.Weather,
		Notes:                   req.Notes,
		TemperatureCelsius:      req.TemperatureCelsius,
		RelativeHumidityPercent: req.RelativeHumidityPercent,
		ObservationTime:         req.ObservationTime,
		WeatherNotes:            req.WeatherNotes,
		Status:                  status,
		Recommendations:         copyRecommendations(req.Recommendations),
		Version:                 1,
		Targets:                 targets,
	}
	if req.ScoutID != nil {
		scoutID := *req.ScoutID
		session.ScoutID = &scoutID
	}

	err = s.store.RunInTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		stamp, err := tx.Cursors().Next(ctx, farm.ID, s.now())
		if err != nil {
			return err
		}
		session.ChangeSeq = stamp.Seq
		session.CreatedAt = stamp.At
		session.UpdatedAt = stamp.At
		for _, target := range session.Targets {
			target.CreatedAt = stamp.At
		}

		if err := tx.Sessions().Create(ctx, session); err != nil {
			return err
		}
		_, err = s.recorder.Record(ctx, tx.Audit(), session, models.AuditSessionCreated, actor, audit.Metadata{})
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.metrics.RecordTransition(string(models.AuditSessionCreated))
	slog.InfoContext(ctx, "created scouting session", "session_id", session.ID, "farm_id", farm.ID)
	return s.views.BuildOne(ctx, session)
}

// Update applies a partial metadata update guarded by the expected version.
// A non-empty target list replaces the targets; recommendations, when present,
// are replaced wholesale.
func (s *Service) Update(ctx context.Context, actor auth.Actor, sessionID string, req UpdateRequest) (*View, error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "session.Update",
		attribute.String(telemetry.AttrSessionID, sessionID),
		attribute.String(telemetry.AttrActorID, actor.ID),
	)
	defer span.End()

	session, farm, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.gate.RequireAdmin(actor, farm); err != nil {
		return nil, err
	}
	if req.ExpectedVersion <= 0 {
		return nil, apperr.BadRequest("Parameter 'version' is required.")
	}

	patch, err := decodePatch(req.Fields)
	if err != nil {
		return nil, err
	}
	if patch.Recommendations != nil {
		if err := validateRecommendations(*patch.Recommendations); err != nil {
			return nil, err
		}
	}

	var targets []*models.SessionTarget
	if len(patch.Targets) > 0 {
		if targets, err = s.resolveTargets(ctx, farm, patch.Targets); err != nil {
			return nil, err
		}
	}

	var updated *models.ScoutingSession
	err = s.store.RunInTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		stamp, current, err := s.lockSession(ctx, tx, session)
		if err != nil {
			return err
		}
		if current.Status.LockedForEditing() {
			return apperr.BadRequest("Locked sessions must be reopened before editing.")
		}
		if err := checkVersion(req.ExpectedVersion, current); err != nil {
			return err
		}

		columns := applyPatch(current, patch)
		if targets != nil {
			for _, target := range targets {
				target.CreatedAt = stamp.At
			}
			if err := tx.Sessions().ReplaceTargets(ctx, current.ID, targets); err != nil {
				return err
			}
			current.GreenhouseID = targets[0].GreenhouseID
			current.FieldBlockID = targets[0].FieldBlockID
			current.Targets = targets
			columns = append(columns, "greenhouse_id", "field_block_id")
		}

		if err := s.write(ctx, tx, current, stamp, columns...); err != nil {
			return err
		}
		updated = current
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	slog.InfoContext(ctx, "updated scouting session", "session_id", updated.ID, "version", updated.Version)
	return s.views.BuildOne(ctx, updated)
}

// load reads a session and its farm outside any transaction.
func (s *Service) load(ctx context.Context, sessionID string) (*models.ScoutingSession, *models.Farm, error) {
	session, err := s.store.Sessions().GetByID(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	farm, err := s.lookup.ResolveFarm(ctx, session.FarmID)
	if err != nil {
		return nil, nil, err
	}
	return session, farm, nil
}

// lockSession takes the farm stamp and re-reads the session inside tx.
func (s *Service) lockSession(ctx context.Context, tx repository.Repositories, session *models.ScoutingSession) (repository.ChangeStamp, *models.ScoutingSession, error) {
	stamp, err := tx.Cursors().Next(ctx, session.FarmID, s.now())
	if err != nil {
		return repository.ChangeStamp{}, nil, err
	}
	current, err := tx.Sessions().GetByID(ctx, session.ID)
	if err != nil {
		return repository.ChangeStamp{}, nil, err
	}
	return stamp, current, nil
}

// write is the compare-and-swap on (id, version) shared by every session mutation.
func (s *Service) write(ctx context.Context, tx repository.Repositories, session *models.ScoutingSession, stamp repository.ChangeStamp, columns ...string) error {
	err := tx.Sessions().Update(ctx, session, session.Version, stamp, columns...)
	if errors.Is(err, repository.ErrStaleVersion) {
		return apperr.Conflict("Session has changed on the server. Please sync and retry.")
	}
	return err
}

func checkVersion(expected int64, current *models.ScoutingSession) error {
	if expected != current.Version {
		return apperr.Conflict("Session has changed on the server. Please sync and retry.")
	}
	return nil
}

func (s *Service) resolveTargets(ctx context.Context, farm *models.Farm, requests []TargetRequest) ([]*models.SessionTarget, error) {
	targets := make([]*models.SessionTarget, 0, len(requests))
	for _, req := range requests {
		target, err := s.resolveTarget(ctx, farm, req)
		if err != nil {
			return nil, err
		}
		targets = append(targets, target)
	}
	return targets, nil
}

func (s *Service) resolveTarget(ctx context.Context, farm *models.Farm, req TargetRequest) (*models.SessionTarget, error) {
	if (req.GreenhouseID == nil) == (req.FieldBlockID == nil) {
		return nil, apperr.BadRequest("Each target must reference exactly one greenhouse or field block.")
	}

	target := &models.SessionTarget{
		ID:                bunx.NewUUIDv7(),
		IncludeAllBays:    req.IncludeAllBays == nil || *req.IncludeAllBays,
		IncludeAllBenches: req.IncludeAllBenches == nil || *req.IncludeAllBenches,
		BayTags:           models.NormalizeTags(req.BayTags),
		BenchTags:         models.NormalizeTags(req.BenchTags),
	}

	if req.GreenhouseID != nil {
		greenhouse, err := s.lookup.ResolveGreenhouse(ctx, *req.GreenhouseID)
		if err != nil {
			return nil, err
		}
		if greenhouse.FarmID != farm.ID {
			return nil, apperr.BadRequest("Greenhouse does not belong to this farm.")
		}
		target.GreenhouseID = &greenhouse.ID
	} else {
		block, err := s.lookup.ResolveFieldBlock(ctx, *req.FieldBlockID)
		if err != nil {
			return nil, err
		}
		if block.FarmID != farm.ID {
			return nil, apperr.BadRequest("Field block does not belong to this farm.")
		}
		target.FieldBlockID = &block.ID
	}

	if !target.IncludeAllBays && len(target.BayTags) == 0 {
		return nil, apperr.BadRequest("Provide bay tags when include all bays is false.")
	}
	if !target.IncludeAllBenches && len(target.BenchTags) == 0 {
		return nil, apperr.BadRequest("Provide bench tags when include all benches is false.")
	}
	return target, nil
}

func applyPatch(session *models.ScoutingSession, patch *sessionPatch) []string {
	var columns []string
	set := func(column string, apply func()) {
		apply()
		columns = append(columns, column)
	}

	if patch.SessionDate != nil {
		set("session_date", func() { session.SessionDate = dateOnly(*patch.SessionDate) })
		set("week_number", func() { session.WeekNumber = weekNumber(*patch.SessionDate, patch.WeekNumber) })
	} else if patch.WeekNumber != nil {
		set("week_number", func() { session.WeekNumber = *patch.WeekNumber })
	}
	if patch.ScoutID != nil {
		set("scout_id", func() { session.ScoutID = patch.ScoutID })
	}
	if patch.CropType != nil {
		set("crop_type", func() { session.CropType = *patch.CropType })
	}
	if patch.CropVariety != nil {
		set("crop_variety", func() { session.CropVariety = *patch.CropVariety })
	}
	if patch.Weather != nil {
		set("weather", func() { session.Weather = *patch.Weather })
	}
	if patch.Notes != nil {
		set("notes", func() { session.Notes = *patch.Notes })
	}
	if patch.TemperatureCelsius != nil {
		set("temperature_celsius", func() { session.TemperatureCelsius = patch.TemperatureCelsius })
	}
	if patch.RelativeHumidityPercent != nil {
		set("relative_humidity_percent", func() { session.RelativeHumidityPercent = patch.RelativeHumidityPercent })
	}
	if patch.ObservationTime != nil {
		set("observation_time", func() { session.ObservationTime = *patch.ObservationTime })
	}
	if patch.WeatherNotes != nil {
		set("weather_notes", func() { session.WeatherNotes = *patch.WeatherNotes })
	}
	if patch.Recommendations != nil {
		set("recommendations", func() { session.Recommendations = copyRecommendations(*patch.Recommendations) })
	}
	return columns
}

func validateRecommendations(recs map[models.RecommendationType]string) error {
	for kind := range recs {
		if !kind.Valid() {
			return apperr.BadRequest("Unknown recommendation type %q.", kind)
		}
	}
	return nil
}

func copyRecommendations(recs map[models.RecommendationType]string) models.Recommendations {
	out := make(models.Recommendations, len(recs))
	for kind, text := range recs {
		out[kind] = text
	}
	return out
}

// managerFor picks the farm owner when a super admin acts on the farm's
// behalf, otherwise the acting user.
func managerFor(actor auth.Actor, farm *models.Farm) *string {
	if actor.Role == models.RoleSuperAdmin && farm.OwnerID != nil {
		owner := *farm.OwnerID
		return &owner
	}
	id := actor.ID
	return &id
}

func weekNumber(date time.Time, explicit *int) int {
	if explicit != nil && *explicit > 0 {
		return *explicit
	}
	_, week := date.ISOWeek()
	return week
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
