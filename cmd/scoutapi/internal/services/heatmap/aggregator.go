// Package heatmap projects a farm's weekly observations onto a bay/bench
// severity grid.
package heatmap

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/apperr"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/auth"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/db/models"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/repository"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/services/masterdata"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/telemetry"
)

const tracerName = "scoutapi/services/heatmap"

// Cell is the aggregate of one (bay, bench) position.
type Cell struct {
	BayIndex        int           `json:"bayIndex"`
	BenchIndex      int           `json:"benchIndex"`
	PestCount       int           `json:"pestCount"`
	DiseaseCount    int           `json:"diseaseCount"`
	BeneficialCount int           `json:"beneficialCount"`
	TotalCount      int           `json:"totalCount"`
	Severity        SeverityLevel `json:"severityLevel"`
	Color           string        `json:"color"`
}

// Section is the grid of one session target.
type Section struct {
	TargetID      string  `json:"targetId"`
	GreenhouseID  *string `json:"greenhouseId,omitempty"`
	FieldBlockID  *string `json:"fieldBlockId,omitempty"`
	Name          string  `json:"targetName"`
	BayCount      int     `json:"bayCount"`
	BenchesPerBay int     `json:"benchesPerBay"`
	Cells         []Cell  `json:"cells"`
}

// Heatmap is the weekly severity projection of one farm.
type Heatmap struct {
	FarmID        string        `json:"farmId"`
	FarmName      string        `json:"farmName"`
	Week          int           `json:"week"`
	Year          int           `json:"year"`
	WeekStart     string        `json:"weekStart"`
	WeekEnd       string        `json:"weekEnd"`
	BayCount      int           `json:"bayCount"`
	BenchesPerBay int           `json:"benchesPerBay"`
	Cells         []Cell        `json:"cells"`
	Sections      []Section     `json:"sections"`
	Legend        []LegendEntry `json:"severityLegend"`
}

// Aggregator builds heatmaps from stored sessions and observations.
type Aggregator struct {
	store  repository.Store
	lookup masterdata.Lookup
	gate   auth.Gate
}

// NewAggregator constructs an Aggregator.
func NewAggregator(store repository.Store, lookup masterdata.Lookup, gate auth.Gate) *Aggregator {
	return &Aggregator{store: store, lookup: lookup, gate: gate}
}

// Generate aggregates the non-deleted observations of every session dated in
// the given ISO week. Scouts only see their own sessions.
func (a *Aggregator) Generate(ctx context.Context, actor auth.Actor, farmID string, week, year int) (*Heatmap, error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "heatmap.Generate",
		attribute.String(telemetry.AttrFarmID, farmID),
		attribute.Int(telemetry.AttrHeatmapWeek, week),
		attribute.Int(telemetry.AttrHeatmapYear, year),
	)
	defer span.End()

	start, err := WeekStart(year, week)
	if err != nil {
		return nil, err
	}
	end := start.AddDate(0, 0, 6)

	farm, err := a.lookup.ResolveFarm(ctx, farmID)
	if err != nil {
		return nil, err
	}
	filter := repository.SessionFilter{FarmID: farm.ID, From: &start, To: &end}
	switch {
	case actor.IsZero():
		return nil, apperr.Unauthorized("authentication required")
	case actor.Role == models.RoleScout:
		scoutID := actor.ID
		filter.ScoutID = &scoutID
	default:
		if err := a.gate.RequireViewAccess(actor, farm); err != nil {
			return nil, err
		}
	}

	result := &Heatmap{
		FarmID:        farm.ID,
		FarmName:      farm.Name,
		Week:          week,
		Year:          year,
		WeekStart:     start.Format(time.DateOnly),
		WeekEnd:       end.Format(time.DateOnly),
		BayCount:      farm.ResolvedBayCount(),
		BenchesPerBay: farm.ResolvedBenchesPerBay(),
		Cells:         []Cell{},
		Sections:      []Section{},
		Legend:        Legend(),
	}

	sessions, err := a.store.Sessions().List(ctx, filter)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if len(sessions) == 0 {
		slog.DebugContext(ctx, "no sessions in heatmap week", "farm_id", farm.ID, "week", week, "year", year)
		return result, nil
	}

	sessionIDs := make([]string, 0, len(sessions))
	sections := make(map[string]*sectionGrid)
	for i := range sessions {
		sessionIDs = append(sessionIDs, sessions[i].ID)
		for _, target := range sessions[i].Targets {
			section, err := a.sectionFor(ctx, farm, target)
			if err != nil {
				return nil, err
			}
			sections[target.ID] = section
		}
	}

	observations, err := a.store.Observations().ListLiveBySessions(ctx, sessionIDs)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	overview := grid{}
	for i := range observations {
		obs := &observations[i]
		overview.add(obs)
		if section, ok := sections[obs.TargetID]; ok {
			section.cells.add(obs)
		}
	}

	result.Cells = overview.sorted()
	for _, section := range sections {
		section.Cells = section.cells.sorted()
		result.Sections = append(result.Sections, section.Section)
	}
	sort.SliceStable(result.Sections, func(i, j int) bool {
		li, lj := strings.ToLower(result.Sections[i].Name), strings.ToLower(result.Sections[j].Name)
		if li != lj {
			return li < lj
		}
		return result.Sections[i].TargetID < result.Sections[j].TargetID
	})

	slog.DebugContext(ctx, "heatmap generated",
		"farm_id", farm.ID,
		"week", week,
		"year", year,
		"sessions", len(sessions),
		"observations", len(observations),
	)
	return result, nil
}

// WeekStart returns the Monday of the ISO week. Weeks a year does not have
// are BadRequest.
func WeekStart(year, week int) (time.Time, error) {
	if week < 1 || week > 53 {
		return time.Time{}, apperr.BadRequest("Week must be between 1 and 53.")
	}
	// January 4th always falls in ISO week 1.
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	offset := (int(jan4.Weekday()) + 6) % 7
	start := jan4.AddDate(0, 0, -offset+(week-1)*7)
	if y, w := start.ISOWeek(); y != year || w != week {
		return time.Time{}, apperr.BadRequest("Year %d has no ISO week %d.", year, week)
	}
	return start, nil
}

type sectionGrid struct {
	Section
	cells grid
}

func (a *Aggregator) sectionFor(ctx context.Context, farm *models.Farm, target *models.SessionTarget) (*sectionGrid, error) {
	section := Section{
		TargetID:      target.ID,
		GreenhouseID:  target.GreenhouseID,
		FieldBlockID:  target.FieldBlockID,
		Name:          farm.Name,
		BayCount:      farm.ResolvedBayCount(),
		BenchesPerBay: farm.ResolvedBenchesPerBay(),
	}
	switch {
	case target.GreenhouseID != nil:
		gh, err := a.lookup.ResolveGreenhouse(ctx, *target.GreenhouseID)
		if err != nil {
			return nil, err
		}
		section.Name = gh.Name
		if gh.BayCount > 0 {
			section.BayCount = gh.BayCount
		}
		if gh.BenchesPerBay > 0 {
			section.BenchesPerBay = gh.BenchesPerBay
		}
	case target.FieldBlockID != nil:
		fb, err := a.lookup.ResolveFieldBlock(ctx, *target.FieldBlockID)
		if err != nil {
			return nil, err
		}
		section.Name = fb.Name
		if fb.BayCount > 0 {
			section.BayCount = fb.BayCount
		}
	}
	return &sectionGrid{Section: section, cells: grid{}}, nil
}

type cellKey struct{ bay, bench int }

type grid map[cellKey]*Cell

func (g grid) add(obs *models.Observation) {
	key := cellKey{obs.BayIndex, obs.BenchIndex}
	cell, ok := g[key]
	if !ok {
		cell = &Cell{BayIndex: obs.BayIndex, BenchIndex: obs.BenchIndex}
		g[key] = cell
	}
	switch obs.SpeciesCode.Category() {
	case models.CategoryPest:
		cell.PestCount += obs.Count
	case models.CategoryDisease:
		cell.DiseaseCount += obs.Count
	case models.CategoryBeneficial:
		cell.BeneficialCount += obs.Count
	}
}

func (g grid) sorted() []Cell {
	cells := make([]Cell, 0, len(g))
	for _, cell := range g {
		c := *cell
		c.TotalCount = c.PestCount + c.DiseaseCount
		c.Severity = SeverityFor(c.TotalCount)
		c.Color = c.Severity.Color()
		cells = append(cells, c)
	}
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].BayIndex != cells[j].BayIndex {
			return cells[i].BayIndex < cells[j].BayIndex
		}
		return cells[i].BenchIndex < cells[j].BenchIndex
	})
	return cells
}
