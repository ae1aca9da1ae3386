package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Recommendations maps a recommendation type to its free-form text.
type Recommendations map[RecommendationType]string

// ScoutingSession groups the targets and observations of one scouting visit.
type ScoutingSession struct {
	bun.BaseModel `bun:"table:scouting_sessions,alias:ss"`

	ID                       string          `bun:"id,pk,type:uuid"`
	FarmID                   string          `bun:"farm_id,notnull,type:uuid"`
	ManagerID                *string         `bun:"manager_id,type:uuid"`
	ScoutID                  *string         `bun:"scout_id,type:uuid"`
	GreenhouseID             *string         `bun:"greenhouse_id,type:uuid"`
	FieldBlockID             *string         `bun:"field_block_id,type:uuid"`
	SessionDate              time.Time       `bun:"session_date,notnull"`
	WeekNumber               int             `bun:"week_number,notnull"`
	CropType                 string          `bun:"crop_type"`
	CropVariety              string          `bun:"crop_variety"`
	Weather                  string          `bun:"weather"`
	Notes                    string          `bun:"notes"`
	TemperatureCelsius       *float64        `bun:"temperature_celsius"`
	RelativeHumidityPercent  *float64        `bun:"relative_humidity_percent"`
	ObservationTime          string          `bun:"observation_time"`
	WeatherNotes             string          `bun:"weather_notes"`
	Status                   SessionStatus   `bun:"status,notnull"`
	StartedAt                *time.Time      `bun:"started_at"`
	SubmittedAt              *time.Time      `bun:"submitted_at"`
	CompletedAt              *time.Time      `bun:"completed_at"`
	ConfirmationAcknowledged bool            `bun:"confirmation_acknowledged,notnull,default:false"`
	ReopenComment            string          `bun:"reopen_comment"`
	Recommendations          Recommendations `bun:"recommendations,type:jsonb"`
	Version                  int64           `bun:"version,notnull,default:1"`
	ChangeSeq                int64           `bun:"change_seq,notnull,default:0"`
	CreatedAt                time.Time       `bun:"created_at,notnull"`
	UpdatedAt                time.Time       `bun:"updated_at,notnull"`

	Targets []*SessionTarget `bun:"rel:has-many,join:id=session_id"`
}

// ValidateForCreate verifies the record is well formed before insertion.
func (s *ScoutingSession) ValidateForCreate() error {
	if _, err := uuid.Parse(s.ID); err != nil {
		return errors.New("id must be a valid UUID")
	}
	if _, err := uuid.Parse(s.FarmID); err != nil {
		return errors.New("farm_id must be a valid UUID")
	}
	if s.SessionDate.IsZero() {
		return errors.New("session_date is required")
	}
	if !s.Status.Valid() {
		return errors.New("status is invalid")
	}
	for kind := range s.Recommendations {
		if !kind.Valid() {
			return errors.New("recommendation type is invalid")
		}
	}
	return nil
}

// IsOwnedBy reports whether the scout assigned to the session is userID.
func (s *ScoutingSession) IsOwnedBy(userID string) bool {
	return s.ScoutID != nil && *s.ScoutID == userID
}

// SessionTarget scopes a session to one greenhouse or field block and restricts its bay and bench tags.
type SessionTarget struct {
	bun.BaseModel `bun:"table:scouting_session_targets,alias:st"`

	ID                string    `bun:"id,pk,type:uuid"`
	SessionID         string    `bun:"session_id,notnull,type:uuid"`
	GreenhouseID      *string   `bun:"greenhouse_id,type:uuid"`
	FieldBlockID      *string   `bun:"field_block_id,type:uuid"`
	IncludeAllBays    bool      `bun:"include_all_bays,notnull"`
	IncludeAllBenches bool      `bun:"include_all_benches,notnull"`
	BayTags           []string  `bun:"bay_tags,type:jsonb"`
	BenchTags         []string  `bun:"bench_tags,type:jsonb"`
	CreatedAt         time.Time `bun:"created_at,notnull"`
}

// ValidateForCreate verifies the target references exactly one structure and has usable tag rules.
func (t *SessionTarget) ValidateForCreate() error {
	if (t.GreenhouseID == nil) == (t.FieldBlockID == nil) {
		return errors.New("target must reference exactly one of greenhouse or field block")
	}
	if !t.IncludeAllBays && len(t.BayTags) == 0 {
		return errors.New("provide bay tags when include all bays is false")
	}
	if !t.IncludeAllBenches && len(t.BenchTags) == 0 {
		return errors.New("provide bench tags when include all benches is false")
	}
	return nil
}

// AllowsBay reports whether label is permitted by the bay inclusion rule.
func (t *SessionTarget) AllowsBay(label string) bool {
	return t.IncludeAllBays || containsTag(t.BayTags, label)
}

// AllowsBench reports whether label is permitted by the bench inclusion rule.
func (t *SessionTarget) AllowsBench(label string) bool {
	return t.IncludeAllBenches || containsTag(t.BenchTags, label)
}

func containsTag(tags []string, label string) bool {
	for _, tag := range tags {
		if tag == label {
			return true
		}
	}
	return false
}
