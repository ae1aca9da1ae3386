package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	defaultBayCount      = 1
	defaultBenchesPerBay = 1
)

// Farm is master data owned by the farm administration collaborator.
type Farm struct {
	bun.BaseModel `bun:"table:farms,alias:f"`

	ID            string    `bun:"id,pk,type:uuid"`
	Name          string    `bun:"name,notnull"`
	OwnerID       *string   `bun:"owner_id,type:uuid"`
	ScoutID       *string   `bun:"scout_id,type:uuid"`
	BayCount      int       `bun:"bay_count"`
	BenchesPerBay int       `bun:"benches_per_bay"`
	CreatedAt     time.Time `bun:"created_at,notnull"`
}

// ResolvedBayCount returns the configured bay count or the default.
func (f *Farm) ResolvedBayCount() int {
	if f.BayCount > 0 {
		return f.BayCount
	}
	return defaultBayCount
}

// ResolvedBenchesPerBay returns the configured benches per bay or the default.
func (f *Farm) ResolvedBenchesPerBay() int {
	if f.BenchesPerBay > 0 {
		return f.BenchesPerBay
	}
	return defaultBenchesPerBay
}

// Greenhouse is a covered growing structure on a farm.
type Greenhouse struct {
	bun.BaseModel `bun:"table:greenhouses,alias:g"`

	ID            string    `bun:"id,pk,type:uuid"`
	FarmID        string    `bun:"farm_id,notnull,type:uuid"`
	Name          string    `bun:"name,notnull"`
	BayCount      int       `bun:"bay_count"`
	BenchesPerBay int       `bun:"benches_per_bay"`
	CreatedAt     time.Time `bun:"created_at,notnull"`
}

// FieldBlock is an open-field growing area on a farm.
type FieldBlock struct {
	bun.BaseModel `bun:"table:field_blocks,alias:fb"`

	ID        string    `bun:"id,pk,type:uuid"`
	FarmID    string    `bun:"farm_id,notnull,type:uuid"`
	Name      string    `bun:"name,notnull"`
	BayCount  int       `bun:"bay_count"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}

// FarmSyncCursor hands out strictly increasing change stamps per farm.
// Writers take the next stamp inside their transaction, so stamps follow commit order.
type FarmSyncCursor struct {
	bun.BaseModel `bun:"table:farm_sync_cursors,alias:fsc"`

	FarmID  string    `bun:"farm_id,pk,type:uuid"`
	LastSeq int64     `bun:"last_seq,notnull,default:0"`
	LastAt  time.Time `bun:"last_at,notnull"`
}
