package repository

import (
	"context"
	"strings"

	"github.com/uptrace/bun"
)

// BunStore builds repositories over a *bun.DB and runs transactional units of work.
type BunStore struct {
	bunRepositories
	db *bun.DB
}

// NewBunStore constructs a store backed by Bun.
func NewBunStore(db *bun.DB) *BunStore {
	return &BunStore{bunRepositories: bunRepositories{db: db}, db: db}
}

// RunInTx executes fn inside one database transaction.
func (s *BunStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx Repositories) error) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, bunRepositories{db: tx})
	})
}

type bunRepositories struct {
	db bun.IDB
}

func (r bunRepositories) Sessions() SessionRepository { return NewBunSessionRepository(r.db) }
func (r bunRepositories) Observations() ObservationRepository {
	return NewBunObservationRepository(r.db)
}
func (r bunRepositories) Photos() PhotoRepository       { return NewBunPhotoRepository(r.db) }
func (r bunRepositories) Audit() AuditRepository        { return NewBunAuditRepository(r.db) }
func (r bunRepositories) Cursors() SyncCursorRepository { return NewBunSyncCursorRepository(r.db) }

func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}

	msg := err.Error()
	return strings.Contains(msg, "duplicate key value") || strings.Contains(msg, "unique constraint") || strings.Contains(msg, "UNIQUE constraint") || strings.Contains(msg, "23505")
}
