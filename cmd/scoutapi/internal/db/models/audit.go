package models

import (
	"time"

	"github.com/uptrace/bun"
)

// SessionAuditEvent is an append-only record of a lifecycle action on a session.
type SessionAuditEvent struct {
	bun.BaseModel `bun:"table:session_audit_events,alias:sae"`

	ID         string      `bun:"id,pk,type:uuid"`
	SessionID  string      `bun:"session_id,notnull,type:uuid"`
	FarmID     string      `bun:"farm_id,notnull,type:uuid"`
	Action     AuditAction `bun:"action,notnull"`
	ActorName  string      `bun:"actor_name"`
	ActorEmail string      `bun:"actor_email"`
	ActorRole  Role        `bun:"actor_role"`
	DeviceID   string      `bun:"device_id"`
	DeviceType string      `bun:"device_type"`
	Location   string      `bun:"location"`
	Comment    string      `bun:"comment"`
	OccurredAt time.Time   `bun:"occurred_at,notnull"`
}
