package models

import (
	"time"

	"github.com/uptrace/bun"
)

// ScoutingPhoto is the metadata of a photo taken during a session. The binary
// lives in object storage under ObjectKey once the device confirms the upload.
type ScoutingPhoto struct {
	bun.BaseModel `bun:"table:scouting_photos,alias:sp"`

	ID            string          `bun:"id,pk,type:uuid"`
	SessionID     string          `bun:"session_id,notnull,type:uuid"`
	ObservationID *string         `bun:"observation_id,type:uuid"`
	FarmID        string          `bun:"farm_id,notnull,type:uuid"`
	LocalPhotoID  string          `bun:"local_photo_id,notnull"`
	Purpose       string          `bun:"purpose"`
	ObjectKey     *string         `bun:"object_key"`
	CapturedAt    *time.Time      `bun:"captured_at"`
	SyncStatus    PhotoSyncStatus `bun:"sync_status,notnull"`
	Version       int64           `bun:"version,notnull"`
	ChangeSeq     int64           `bun:"change_seq,notnull"`
	CreatedAt     time.Time       `bun:"created_at,notnull"`
	UpdatedAt     time.Time       `bun:"updated_at,notnull"`
}

// Synced reports whether the upload was confirmed.
func (p *ScoutingPhoto) Synced() bool {
	return p.SyncStatus == PhotoSynced
}
