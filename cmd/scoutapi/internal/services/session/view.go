package session

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/apperr"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/db/models"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/repository"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/services/masterdata"
)

// View is the full current state of a session: metadata, sections with their
// live observations, and recommendations.
type View struct {
	ID                       string                `json:"id"`
	Version                  int64                 `json:"version"`
	FarmID                   string                `json:"farmId"`
	SessionDate              string                `json:"sessionDate"`
	WeekNumber               int                   `json:"weekNumber"`
	Status                   models.SessionStatus  `json:"status"`
	ManagerID                *string               `json:"managerId,omitempty"`
	ScoutID                  *string               `json:"scoutId,omitempty"`
	CropType                 string                `json:"crop,omitempty"`
	CropVariety              string                `json:"variety,omitempty"`
	Weather                  string                `json:"weather,omitempty"`
	TemperatureCelsius       *float64              `json:"temperatureCelsius,omitempty"`
	RelativeHumidityPercent  *float64              `json:"relativeHumidityPercent,omitempty"`
	ObservationTime          string                `json:"observationTime,omitempty"`
	WeatherNotes             string                `json:"weatherNotes,omitempty"`
	Notes                    string                `json:"notes,omitempty"`
	StartedAt                *time.Time            `json:"startedAt,omitempty"`
	SubmittedAt              *time.Time            `json:"submittedAt,omitempty"`
	CompletedAt              *time.Time            `json:"completedAt,omitempty"`
	UpdatedAt                time.Time             `json:"updatedAt"`
	ChangeSeq                int64                 `json:"changeSeq"`
	ConfirmationAcknowledged bool                  `json:"confirmationAcknowledged"`
	ReopenComment            string                `json:"reopenComment,omitempty"`
	Sections                 []Section             `json:"sections"`
	Recommendations          []RecommendationEntry `json:"recommendations"`
}

// Section is one target of a session with its observations.
type Section struct {
	TargetID          string            `json:"targetId"`
	GreenhouseID      *string           `json:"greenhouseId,omitempty"`
	FieldBlockID      *string           `json:"fieldBlockId,omitempty"`
	Name              string            `json:"name"`
	IncludeAllBays    bool              `json:"includeAllBays"`
	IncludeAllBenches bool              `json:"includeAllBenches"`
	BayTags           []string          `json:"bayTags"`
	BenchTags         []string          `json:"benchTags"`
	Observations      []ObservationView `json:"observations"`
}

// RecommendationEntry is one recommendation of a session.
type RecommendationEntry struct {
	Type models.RecommendationType `json:"type"`
	Text string                    `json:"text"`
}

// ObservationView is the wire form of an observation.
type ObservationView struct {
	ID              string                     `json:"id"`
	Version         int64                      `json:"version"`
	SessionID       string                     `json:"sessionId"`
	TargetID        string                     `json:"sessionTargetId"`
	GreenhouseID    *string                    `json:"greenhouseId,omitempty"`
	FieldBlockID    *string                    `json:"fieldBlockId,omitempty"`
	SpeciesCode     models.SpeciesCode         `json:"speciesCode"`
	Category        models.ObservationCategory `json:"category"`
	BayIndex        int                        `json:"bayIndex"`
	BayLabel        string                     `json:"bayLabel,omitempty"`
	BenchIndex      int                        `json:"benchIndex"`
	BenchLabel      string                     `json:"benchLabel,omitempty"`
	SpotIndex       int                        `json:"spotIndex"`
	Count           int                        `json:"count"`
	Notes           string                     `json:"notes,omitempty"`
	ClientRequestID *string                    `json:"clientRequestId,omitempty"`
	UpdatedAt       time.Time                  `json:"updatedAt"`
	ChangeSeq       int64                      `json:"changeSeq"`
	Deleted         bool                       `json:"deleted"`
	DeletedAt       *time.Time                 `json:"deletedAt,omitempty"`
}

// NewObservationView converts an observation. target may be nil when the
// caller does not have it loaded; structure ids are then omitted.
func NewObservationView(obs *models.Observation, target *models.SessionTarget) ObservationView {
	view := ObservationView{
		ID:              obs.ID,
		Version:         obs.Version,
		SessionID:       obs.SessionID,
		TargetID:        obs.TargetID,
		SpeciesCode:     obs.SpeciesCode,
		Category:        obs.Category(),
		BayIndex:        obs.BayIndex,
		BayLabel:        obs.BayLabel,
		BenchIndex:      obs.BenchIndex,
		BenchLabel:      obs.BenchLabel,
		SpotIndex:       obs.SpotIndex,
		Count:           obs.Count,
		Notes:           obs.Notes,
		ClientRequestID: obs.ClientRequestID,
		UpdatedAt:       obs.UpdatedAt,
		ChangeSeq:       obs.ChangeSeq,
		Deleted:         obs.Deleted,
		DeletedAt:       obs.DeletedAt,
	}
	if target != nil {
		view.GreenhouseID = target.GreenhouseID
		view.FieldBlockID = target.FieldBlockID
	}
	return view
}

// ViewBuilder assembles session views from stored rows and master data names.
type ViewBuilder struct {
	repos  repository.Repositories
	lookup masterdata.Lookup
}

// NewViewBuilder constructs a ViewBuilder.
func NewViewBuilder(repos repository.Repositories, lookup masterdata.Lookup) *ViewBuilder {
	return &ViewBuilder{repos: repos, lookup: lookup}
}

// Build returns one view per session in input order. Deleted observations are
// never part of a view.
func (b *ViewBuilder) Build(ctx context.Context, sessions []*models.ScoutingSession) ([]*View, error) {
	ids := make([]string, 0, len(sessions))
	for _, s := range sessions {
		ids = append(ids, s.ID)
	}

	live, err := b.repos.Observations().ListLiveBySessions(ctx, ids)
	if err != nil {
		return nil, err
	}
	byTarget := make(map[string][]models.Observation)
	for _, obs := range live {
		byTarget[obs.TargetID] = append(byTarget[obs.TargetID], obs)
	}

	views := make([]*View, 0, len(sessions))
	for _, s := range sessions {
		view, err := b.build(ctx, s, byTarget)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

// BuildOne is Build for a single session.
func (b *ViewBuilder) BuildOne(ctx context.Context, session *models.ScoutingSession) (*View, error) {
	views, err := b.Build(ctx, []*models.ScoutingSession{session})
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

// StructureName returns the name of the greenhouse or field block a target
// points at, or "" when the record is gone.
func (b *ViewBuilder) StructureName(ctx context.Context, target *models.SessionTarget) (string, error) {
	var (
		name string
		err  error
	)
	switch {
	case target.GreenhouseID != nil:
		var gh *models.Greenhouse
		if gh, err = b.lookup.ResolveGreenhouse(ctx, *target.GreenhouseID); err == nil {
			name = gh.Name
		}
	case target.FieldBlockID != nil:
		var fb *models.FieldBlock
		if fb, err = b.lookup.ResolveFieldBlock(ctx, *target.FieldBlockID); err == nil {
			name = fb.Name
		}
	}
	if errors.Is(err, apperr.ErrNotFound) {
		return "", nil
	}
	return name, err
}

func (b *ViewBuilder) build(ctx context.Context, s *models.ScoutingSession, byTarget map[string][]models.Observation) (*View, error) {
	view := &View{
		ID:                       s.ID,
		Version:                  s.Version,
		FarmID:                   s.FarmID,
		SessionDate:              s.SessionDate.Format(DateLayout),
		WeekNumber:               s.WeekNumber,
		Status:                   s.Status,
		ManagerID:                s.ManagerID,
		ScoutID:                  s.ScoutID,
		CropType:                 s.CropType,
		CropVariety:              s.CropVariety,
		Weather:                  s.Weather,
		TemperatureCelsius:       s.TemperatureCelsius,
		RelativeHumidityPercent:  s.RelativeHumidityPercent,
		ObservationTime:          s.ObservationTime,
		WeatherNotes:             s.WeatherNotes,
		Notes:                    s.Notes,
		StartedAt:                s.StartedAt,
		SubmittedAt:              s.SubmittedAt,
		CompletedAt:              s.CompletedAt,
		UpdatedAt:                s.UpdatedAt,
		ChangeSeq:                s.ChangeSeq,
		ConfirmationAcknowledged: s.ConfirmationAcknowledged,
		ReopenComment:            s.ReopenComment,
		Sections:                 make([]Section, 0, len(s.Targets)),
		Recommendations:          recommendationEntries(s.Recommendations),
	}

	for _, target := range s.Targets {
		name, err := b.StructureName(ctx, target)
		if err != nil {
			return nil, err
		}

		observations := byTarget[target.ID]
		sort.SliceStable(observations, func(i, j int) bool {
			a, c := observations[i], observations[j]
			if a.BayIndex != c.BayIndex {
				return a.BayIndex < c.BayIndex
			}
			if a.BenchIndex != c.BenchIndex {
				return a.BenchIndex < c.BenchIndex
			}
			if a.SpotIndex != c.SpotIndex {
				return a.SpotIndex < c.SpotIndex
			}
			return a.SpeciesCode < c.SpeciesCode
		})

		section := Section{
			TargetID:          target.ID,
			GreenhouseID:      target.GreenhouseID,
			FieldBlockID:      target.FieldBlockID,
			Name:              name,
			IncludeAllBays:    target.IncludeAllBays,
			IncludeAllBenches: target.IncludeAllBenches,
			BayTags:           nonNil(target.BayTags),
			BenchTags:         nonNil(target.BenchTags),
			Observations:      make([]ObservationView, 0, len(observations)),
		}
		for i := range observations {
			section.Observations = append(section.Observations, NewObservationView(&observations[i], target))
		}
		view.Sections = append(view.Sections, section)
	}

	sort.SliceStable(view.Sections, func(i, j int) bool {
		return strings.ToLower(view.Sections[i].Name) < strings.ToLower(view.Sections[j].Name)
	})
	return view, nil
}

func recommendationEntries(recs models.Recommendations) []RecommendationEntry {
	entries := make([]RecommendationEntry, 0, len(recs))
	for kind, text := range recs {
		entries = append(entries, RecommendationEntry{Type: kind, Text: text})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Type < entries[j].Type })
	return entries
}

func nonNil(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
