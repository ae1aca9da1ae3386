package session

import (
	"reflect"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/apperr"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/db/models"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/services/audit"
)

// DateLayout is the wire format of session dates.
const DateLayout = "2006-01-02"

// TargetRequest selects one greenhouse or field block and its bay/bench tag rules.
// Nil include flags default to true.
type TargetRequest struct {
	GreenhouseID      *string  `json:"greenhouseId,omitempty" mapstructure:"greenhouseId"`
	FieldBlockID      *string  `json:"fieldBlockId,omitempty" mapstructure:"fieldBlockId"`
	IncludeAllBays    *bool    `json:"includeAllBays,omitempty" mapstructure:"includeAllBays"`
	IncludeAllBenches *bool    `json:"includeAllBenches,omitempty" mapstructure:"includeAllBenches"`
	BayTags           []string `json:"bayTags,omitempty" mapstructure:"bayTags"`
	BenchTags         []string `json:"benchTags,omitempty" mapstructure:"benchTags"`
}

// CreateRequest describes a new session. Status defaults to DRAFT; the scout
// defaults to the farm's assigned scout; the week number defaults to the ISO
// week of SessionDate.
type CreateRequest struct {
	Targets                 []TargetRequest
	SessionDate             time.Time
	WeekNumber              *int
	Status                  models.SessionStatus
	ScoutID                 *string
	CropType                string
	CropVariety             string
	Weather                 string
	Notes                   string
	TemperatureCelsius      *float64
	RelativeHumidityPercent *float64
	ObservationTime         string
	WeatherNotes            string
	Recommendations         models.Recommendations
}

// UpdateRequest carries a partial update. Only keys present in Fields change.
type UpdateRequest struct {
	ExpectedVersion int64
	Fields          map[string]any
}

// TransitionRequest carries the optional version guard, the confirmation box
// and the audit metadata of a lifecycle action.
type TransitionRequest struct {
	// ExpectedVersion of zero skips the version guard where it is optional.
	ExpectedVersion          int64
	ConfirmationAcknowledged bool
	Audit                    audit.Metadata
}

// sessionPatch is the decoded form of UpdateRequest.Fields. Pointer fields are
// nil when the key was absent.
type sessionPatch struct {
	SessionDate             *time.Time                            `mapstructure:"sessionDate"`
	WeekNumber              *int                                  `mapstructure:"weekNumber"`
	ScoutID                 *string                               `mapstructure:"scoutId"`
	CropType                *string                               `mapstructure:"cropType"`
	CropVariety             *string                               `mapstructure:"cropVariety"`
	Weather                 *string                               `mapstructure:"weather"`
	Notes                   *string                               `mapstructure:"notes"`
	TemperatureCelsius      *float64                              `mapstructure:"temperatureCelsius"`
	RelativeHumidityPercent *float64                              `mapstructure:"relativeHumidityPercent"`
	ObservationTime         *string                               `mapstructure:"observationTime"`
	WeatherNotes            *string                               `mapstructure:"weatherNotes"`
	Targets                 []TargetRequest                       `mapstructure:"targets"`
	Recommendations         *map[models.RecommendationType]string `mapstructure:"recommendations"`
}

func decodePatch(fields map[string]any) (*sessionPatch, error) {
	patch := &sessionPatch{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			stringToDateHook,
		),
		ErrorUnused: true,
		Result:      patch,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(fields); err != nil {
		return nil, apperr.BadRequest("Invalid session update: %v", err)
	}
	return patch, nil
}

func stringToDateHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to != reflect.TypeOf(time.Time{}) {
		return data, nil
	}
	return ParseDate(data.(string))
}

// ParseDate parses a session date in DateLayout, falling back to RFC 3339.
func ParseDate(value string) (time.Time, error) {
	if t, err := time.Parse(DateLayout, value); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, apperr.BadRequest("Invalid date %q, expected YYYY-MM-DD.", value)
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
}
