package repository

import (
	"context"
	"fmt"

	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/db/models"
	"github.com/uptrace/bun"
)

// BunAuditRepository appends session audit events using Bun. Events are never updated or deleted.
type BunAuditRepository struct {
	db bun.IDB
}

// NewBunAuditRepository constructs a repository backed by Bun.
func NewBunAuditRepository(db bun.IDB) *BunAuditRepository {
	return &BunAuditRepository{db: db}
}

// Append inserts one audit event.
func (r *BunAuditRepository) Append(ctx context.Context, event *models.SessionAuditEvent) error {
	if _, err := r.db.NewInsert().Model(event).Exec(ctx); err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListBySession returns the session's history oldest first.
func (r *BunAuditRepository) ListBySession(ctx context.Context, sessionID string) ([]models.SessionAuditEvent, error) {
	events := []models.SessionAuditEvent{}
	err := r.db.NewSelect().
		Model(&events).
		Where("sae.session_id = ?", sessionID).
		Order("sae.occurred_at ASC", "sae.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	return events, nil
}
