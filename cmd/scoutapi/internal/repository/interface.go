package repository

import (
	"context"
	"errors"
	"time"

	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/db/models"
)

// ErrStaleVersion is returned by compare-and-swap updates when the stored version moved on.
var ErrStaleVersion = errors.New("stored version does not match expected version")

// ErrDuplicate is returned when an insert lost a race on a unique key.
var ErrDuplicate = errors.New("duplicate key")

// ChangeStamp orders writes within one farm. Seq and At both increase strictly
// and are handed out in commit order.
type ChangeStamp struct {
	Seq int64
	At  time.Time
}

// ChangeWindow selects rows changed after a watermark. Exactly one of AfterSeq
// and After is used; AfterSeq wins when set.
type ChangeWindow struct {
	AfterSeq *int64
	After    time.Time
}

// SessionFilter narrows session listings.
type SessionFilter struct {
	FarmID  string
	ScoutID *string
	From    *time.Time
	To      *time.Time
}

// CellKey identifies one grid cell reading within a session.
type CellKey struct {
	SessionID   string
	TargetID    string
	BayIndex    int
	BenchIndex  int
	SpotIndex   int
	SpeciesCode models.SpeciesCode
}

// SessionRepository persists scouting sessions and their targets.
type SessionRepository interface {
	Create(ctx context.Context, session *models.ScoutingSession) error
	GetByID(ctx context.Context, id string) (*models.ScoutingSession, error)
	List(ctx context.Context, filter SessionFilter) ([]models.ScoutingSession, error)
	ListByIDs(ctx context.Context, ids []string) ([]models.ScoutingSession, error)
	ListInProgressByScout(ctx context.Context, farmID, scoutID string) ([]models.ScoutingSession, error)
	ListChanged(ctx context.Context, farmID string, window ChangeWindow) ([]models.ScoutingSession, error)

	// Update writes the named columns plus version/stamp columns when the stored
	// version equals expectedVersion. Returns ErrStaleVersion otherwise.
	Update(ctx context.Context, session *models.ScoutingSession, expectedVersion int64, stamp ChangeStamp, columns ...string) error

	GetTarget(ctx context.Context, sessionID, targetID string) (*models.SessionTarget, error)
	ListTargets(ctx context.Context, sessionIDs []string) ([]models.SessionTarget, error)
	ReplaceTargets(ctx context.Context, sessionID string, targets []*models.SessionTarget) error
}

// ObservationRepository persists observations with versioning, idempotency keys and tombstones.
type ObservationRepository interface {
	// Insert creates the row unless a live row for the cell or the idempotency key
	// already exists, in which case ErrDuplicate is returned and nothing changes.
	Insert(ctx context.Context, obs *models.Observation) error
	GetByID(ctx context.Context, sessionID, id string) (*models.Observation, error)
	// FindByID looks an observation up without scoping it to a session.
	FindByID(ctx context.Context, id string) (*models.Observation, error)
	FindByClientRequestID(ctx context.Context, clientRequestID string) (*models.Observation, error)
	FindLiveByCell(ctx context.Context, key CellKey) (*models.Observation, error)

	// UpdateValues is a compare-and-swap on (id, version) over live rows.
	UpdateValues(ctx context.Context, obs *models.Observation, expectedVersion int64, stamp ChangeStamp) error
	SoftDelete(ctx context.Context, sessionID, id string, stamp ChangeStamp) (*models.Observation, error)

	ListLiveBySessions(ctx context.Context, sessionIDs []string) ([]models.Observation, error)
	ListChanged(ctx context.Context, farmID string, window ChangeWindow, includeDeleted bool) ([]models.Observation, error)
}

// PhotoRepository persists photo metadata registered by devices.
type PhotoRepository interface {
	// Insert returns ErrDuplicate when the farm already has the local photo id.
	Insert(ctx context.Context, photo *models.ScoutingPhoto) error
	FindByLocalID(ctx context.Context, farmID, localPhotoID string) (*models.ScoutingPhoto, error)

	// ConfirmUpload is a compare-and-swap on (id, version) that stores the
	// object key and marks the photo synced.
	ConfirmUpload(ctx context.Context, photo *models.ScoutingPhoto, objectKey string, expectedVersion int64, stamp ChangeStamp) error

	ListBySession(ctx context.Context, sessionID string) ([]models.ScoutingPhoto, error)
	ListChanged(ctx context.Context, farmID string, window ChangeWindow) ([]models.ScoutingPhoto, error)
}

// AuditRepository appends and reads session audit history.
type AuditRepository interface {
	Append(ctx context.Context, event *models.SessionAuditEvent) error
	ListBySession(ctx context.Context, sessionID string) ([]models.SessionAuditEvent, error)
}

// SyncCursorRepository hands out per-farm change stamps.
type SyncCursorRepository interface {
	// Next reserves the next stamp for farmID. The row stays locked until the
	// surrounding transaction ends, so concurrent writers queue behind it.
	Next(ctx context.Context, farmID string, now time.Time) (ChangeStamp, error)
	Current(ctx context.Context, farmID string) (ChangeStamp, error)
}

// FarmRepository reads and seeds farm master data.
type FarmRepository interface {
	GetFarm(ctx context.Context, id string) (*models.Farm, error)
	GetGreenhouse(ctx context.Context, id string) (*models.Greenhouse, error)
	GetFieldBlock(ctx context.Context, id string) (*models.FieldBlock, error)
	UpsertFarm(ctx context.Context, farm *models.Farm) error
	UpsertGreenhouse(ctx context.Context, greenhouse *models.Greenhouse) error
	UpsertFieldBlock(ctx context.Context, block *models.FieldBlock) error
}

// Repositories groups the repositories that share one database handle.
type Repositories interface {
	Sessions() SessionRepository
	Observations() ObservationRepository
	Photos() PhotoRepository
	Audit() AuditRepository
	Cursors() SyncCursorRepository
}

// Store is the entry point services use. RunInTx hands fn repositories bound to
// a single transaction; any error from fn rolls every write back.
type Store interface {
	Repositories
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Repositories) error) error
}
