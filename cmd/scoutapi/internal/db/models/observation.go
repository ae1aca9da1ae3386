package models

import (
	"errors"
	"time"

	"github.com/uptrace/bun"
)

// Observation is one species reading at one grid cell of a session target.
type Observation struct {
	bun.BaseModel `bun:"table:scouting_observations,alias:o"`

	ID              string      `bun:"id,pk,type:uuid"`
	SessionID       string      `bun:"session_id,notnull,type:uuid"`
	TargetID        string      `bun:"target_id,notnull,type:uuid"`
	SpeciesCode     SpeciesCode `bun:"species_code,notnull"`
	BayIndex        int         `bun:"bay_index,notnull"`
	BayLabel        string      `bun:"bay_label"`
	BenchIndex      int         `bun:"bench_index,notnull"`
	BenchLabel      string      `bun:"bench_label"`
	SpotIndex       int         `bun:"spot_index,notnull"`
	Count           int         `bun:"count_value,notnull"`
	Notes           string      `bun:"notes"`
	Version         int64       `bun:"version,notnull,default:1"`
	ClientRequestID *string     `bun:"client_request_id,unique"`
	Deleted         bool        `bun:"deleted,notnull,default:false"`
	DeletedAt       *time.Time  `bun:"deleted_at"`
	ChangeSeq       int64       `bun:"change_seq,notnull,default:0"`
	CreatedAt       time.Time   `bun:"created_at,notnull"`
	UpdatedAt       time.Time   `bun:"updated_at,notnull"`
}

// ValidateForCreate verifies the record is well formed before insertion.
func (o *Observation) ValidateForCreate() error {
	if !o.SpeciesCode.Valid() {
		return errors.New("species_code is not in the catalog")
	}
	if o.Count < 0 {
		return errors.New("count must not be negative")
	}
	if o.BayIndex < 0 || o.BenchIndex < 0 || o.SpotIndex < 0 {
		return errors.New("cell indices must not be negative")
	}
	return nil
}

// Category returns the category of the observed species.
func (o *Observation) Category() ObservationCategory {
	return o.SpeciesCode.Category()
}
