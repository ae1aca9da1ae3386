package observation

import "github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/db/models"

// Cell addresses one reading: a species at a bay/bench/spot of a session target.
type Cell struct {
	TargetID    string
	SpeciesCode models.SpeciesCode
	BayIndex    int
	BayLabel    string
	BenchIndex  int
	BenchLabel  string
	SpotIndex   int
}

// Values are the mutable fields of an observation.
type Values struct {
	Count int
	Notes string
	// ClientRequestID is the optional idempotency key.
	ClientRequestID string
}

// Upsert is either a Create or an Update.
type Upsert interface {
	cell() Cell
	values() Values
	expectedVersion() (int64, bool)
}

// Create writes a cell without asserting what the client last saw.
type Create struct {
	Cell
	Values
}

// Update writes a cell the client last saw at ExpectedVersion.
type Update struct {
	Cell
	Values
	ExpectedVersion int64
}

func (c Create) cell() Cell                     { return c.Cell }
func (c Create) values() Values                 { return c.Values }
func (c Create) expectedVersion() (int64, bool) { return 0, false }

func (u Update) cell() Cell                     { return u.Cell }
func (u Update) values() Values                 { return u.Values }
func (u Update) expectedVersion() (int64, bool) { return u.ExpectedVersion, true }

// Batch is a bulk upsert bound to one session.
type Batch struct {
	SessionID string
	Entries   []Upsert
}
