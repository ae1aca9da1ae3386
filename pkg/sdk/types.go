package sdk

import "time"

// Session is the full current state of a scouting session.
type Session struct {
	ID                       string           `json:"id"`
	Version                  int64            `json:"version"`
	FarmID                   string           `json:"farmId"`
	SessionDate              string           `json:"sessionDate"`
	WeekNumber               int              `json:"weekNumber"`
	Status                   string           `json:"status"`
	ManagerID                *string          `json:"managerId,omitempty"`
	ScoutID                  *string          `json:"scoutId,omitempty"`
	CropType                 string           `json:"crop,omitempty"`
	CropVariety              string           `json:"variety,omitempty"`
	Weather                  string           `json:"weather,omitempty"`
	TemperatureCelsius       *float64         `json:"temperatureCelsius,omitempty"`
	RelativeHumidityPercent  *float64         `json:"relativeHumidityPercent,omitempty"`
	ObservationTime          string           `json:"observationTime,omitempty"`
	WeatherNotes             string           `json:"weatherNotes,omitempty"`
	Notes                    string           `json:"notes,omitempty"`
	StartedAt                *time.Time       `json:"startedAt,omitempty"`
	SubmittedAt              *time.Time       `json:"submittedAt,omitempty"`
	CompletedAt              *time.Time       `json:"completedAt,omitempty"`
	UpdatedAt                time.Time        `json:"updatedAt"`
	ChangeSeq                int64            `json:"changeSeq"`
	ConfirmationAcknowledged bool             `json:"confirmationAcknowledged"`
	ReopenComment            string           `json:"reopenComment,omitempty"`
	Sections                 []Section        `json:"sections"`
	Recommendations          []Recommendation `json:"recommendations"`
}

// Section is one scouted structure of a session.
type Section struct {
	TargetID          string        `json:"targetId"`
	GreenhouseID      *string       `json:"greenhouseId,omitempty"`
	FieldBlockID      *string       `json:"fieldBlockId,omitempty"`
	Name              string        `json:"name"`
	IncludeAllBays    bool          `json:"includeAllBays"`
	IncludeAllBenches bool          `json:"includeAllBenches"`
	BayTags           []string      `json:"bayTags"`
	BenchTags         []string      `json:"benchTags"`
	Observations      []Observation `json:"observations"`
}

// Recommendation is one free-form recommendation of a session.
type Recommendation struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Observation is one species count at one sample point. Tombstones returned by
// Sync carry only ID, SessionID, DeletedAt, ChangeSeq and Deleted.
type Observation struct {
	ID              string     `json:"id"`
	Version         int64      `json:"version"`
	SessionID       string     `json:"sessionId"`
	TargetID        string     `json:"sessionTargetId"`
	GreenhouseID    *string    `json:"greenhouseId,omitempty"`
	FieldBlockID    *string    `json:"fieldBlockId,omitempty"`
	SpeciesCode     string     `json:"speciesCode"`
	Category        string     `json:"category"`
	BayIndex        int        `json:"bayIndex"`
	BayLabel        string     `json:"bayLabel,omitempty"`
	BenchIndex      int        `json:"benchIndex"`
	BenchLabel      string     `json:"benchLabel,omitempty"`
	SpotIndex       int        `json:"spotIndex"`
	Count           int        `json:"count"`
	Notes           string     `json:"notes,omitempty"`
	ClientRequestID *string    `json:"clientRequestId,omitempty"`
	UpdatedAt       time.Time  `json:"updatedAt"`
	ChangeSeq       int64      `json:"changeSeq"`
	Deleted         bool       `json:"deleted"`
	DeletedAt       *time.Time `json:"deletedAt,omitempty"`
}

// AuditEvent is one entry of a session's audit trail.
type AuditEvent struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"sessionId"`
	Action     string    `json:"action"`
	ActorName  string    `json:"actorName"`
	ActorEmail string    `json:"actorEmail,omitempty"`
	ActorRole  string    `json:"actorRole"`
	DeviceID   string    `json:"deviceId,omitempty"`
	DeviceType string    `json:"deviceType,omitempty"`
	Location   string    `json:"location,omitempty"`
	Comment    string    `json:"comment,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// TargetInput selects one structure for a new session.
type TargetInput struct {
	GreenhouseID      *string  `json:"greenhouseId,omitempty"`
	FieldBlockID      *string  `json:"fieldBlockId,omitempty"`
	IncludeAllBays    *bool    `json:"includeAllBays,omitempty"`
	IncludeAllBenches *bool    `json:"includeAllBenches,omitempty"`
	BayTags           []string `json:"bayTags,omitempty"`
	BenchTags         []string `json:"benchTags,omitempty"`
}

// CreateSessionInput describes a new session. SessionDate is YYYY-MM-DD.
type CreateSessionInput struct {
	Targets                 []TargetInput     `json:"targets"`
	SessionDate             string            `json:"sessionDate"`
	WeekNumber              *int              `json:"weekNumber,omitempty"`
	Status                  string            `json:"status,omitempty"`
	ScoutID                 *string           `json:"scoutId,omitempty"`
	CropType                string            `json:"cropType,omitempty"`
	CropVariety             string            `json:"cropVariety,omitempty"`
	Weather                 string            `json:"weather,omitempty"`
	Notes                   string            `json:"notes,omitempty"`
	TemperatureCelsius      *float64          `json:"temperatureCelsius,omitempty"`
	RelativeHumidityPercent *float64          `json:"relativeHumidityPercent,omitempty"`
	ObservationTime         string            `json:"observationTime,omitempty"`
	WeatherNotes            string            `json:"weatherNotes,omitempty"`
	Recommendations         map[string]string `json:"recommendations,omitempty"`
}

// TransitionInput accompanies a lifecycle action. Version is the session
// version the caller last saw.
type TransitionInput struct {
	Version                  int64  `json:"version"`
	ConfirmationAcknowledged bool   `json:"confirmationAcknowledged,omitempty"`
	Comment                  string `json:"comment,omitempty"`
	DeviceID                 string `json:"deviceId,omitempty"`
	DeviceType               string `json:"deviceType,omitempty"`
	Location                 string `json:"location,omitempty"`
	ActorName                string `json:"actorName,omitempty"`
}

// ObservationInput is one observation write. A nil Version creates or
// replays; a set Version updates the stored row guarded by that version.
type ObservationInput struct {
	SessionTargetID string `json:"sessionTargetId"`
	SpeciesCode     string `json:"speciesCode"`
	BayIndex        int    `json:"bayIndex"`
	BayLabel        string `json:"bayLabel,omitempty"`
	BenchIndex      int    `json:"benchIndex"`
	BenchLabel      string `json:"benchLabel,omitempty"`
	SpotIndex       int    `json:"spotIndex"`
	Count           int    `json:"count"`
	Notes           string `json:"notes,omitempty"`
	ClientRequestID string `json:"clientRequestId,omitempty"`
	Version         *int64 `json:"version,omitempty"`
}

// Watermark is the position a client resumes sync from.
type Watermark struct {
	Cursor    int64     `json:"cursor"`
	Timestamp time.Time `json:"timestamp"`
}

// Photo is the metadata of a photo taken during a session. ObjectKey is set
// once the upload was confirmed and SyncStatus is SYNCED.
type Photo struct {
	ID            string     `json:"id"`
	SessionID     string     `json:"sessionId"`
	ObservationID *string    `json:"observationId,omitempty"`
	FarmID        string     `json:"farmId"`
	LocalPhotoID  string     `json:"localPhotoId"`
	Purpose       string     `json:"purpose,omitempty"`
	ObjectKey     *string    `json:"objectKey,omitempty"`
	CapturedAt    *time.Time `json:"capturedAt,omitempty"`
	SyncStatus    string     `json:"syncStatus"`
	Version       int64      `json:"version"`
	ChangeSeq     int64      `json:"changeSeq"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// PhotoInput registers a device photo with a session.
type PhotoInput struct {
	LocalPhotoID  string     `json:"localPhotoId"`
	ObservationID *string    `json:"observationId,omitempty"`
	Purpose       string     `json:"purpose,omitempty"`
	CapturedAt    *time.Time `json:"capturedAt,omitempty"`
}

// SyncResponse is one delta of a farm.
type SyncResponse struct {
	Sessions     []Session     `json:"sessions"`
	Observations []Observation `json:"observations"`
	Photos       []Photo       `json:"photos"`
	Watermark    Watermark     `json:"watermark"`
}

// HeatmapCell is the aggregated count of one bay/bench position.
type HeatmapCell struct {
	BayIndex        int    `json:"bayIndex"`
	BenchIndex      int    `json:"benchIndex"`
	PestCount       int    `json:"pestCount"`
	DiseaseCount    int    `json:"diseaseCount"`
	BeneficialCount int    `json:"beneficialCount"`
	TotalCount      int    `json:"totalCount"`
	SeverityLevel   string `json:"severityLevel"`
	Color           string `json:"color"`
}

// HeatmapSection is the grid of one session target.
type HeatmapSection struct {
	TargetID      string        `json:"targetId"`
	GreenhouseID  *string       `json:"greenhouseId,omitempty"`
	FieldBlockID  *string       `json:"fieldBlockId,omitempty"`
	TargetName    string        `json:"targetName"`
	BayCount      int           `json:"bayCount"`
	BenchesPerBay int           `json:"benchesPerBay"`
	Cells         []HeatmapCell `json:"cells"`
}

// SeverityBand is one entry of the heatmap legend.
type SeverityBand struct {
	Level string `json:"level"`
	Color string `json:"color"`
	Min   int    `json:"minInclusive"`
	Max   *int   `json:"maxInclusive,omitempty"`
}

// Heatmap is the weekly severity projection of a farm.
type Heatmap struct {
	FarmID         string           `json:"farmId"`
	FarmName       string           `json:"farmName"`
	Week           int              `json:"week"`
	Year           int              `json:"year"`
	WeekStart      string           `json:"weekStart"`
	WeekEnd        string           `json:"weekEnd"`
	BayCount       int              `json:"bayCount"`
	BenchesPerBay  int              `json:"benchesPerBay"`
	Cells          []HeatmapCell    `json:"cells"`
	Sections       []HeatmapSection `json:"sections"`
	SeverityLegend []SeverityBand   `json:"severityLegend"`
}
