package models

import (
	"time"

	"github.com/uptrace/bun"
)

// CancellationEvent is an append-only ledger row, one per user cancellation.
type CancellationEvent struct {
	bun.BaseModel `bun:"table:cancellation_events"`

	ID         int64     `bun:"id,pk,autoincrement" json:"id"`
	UserID     int64     `bun:"user_id,notnull" json:"user_id"`
	CanceledAt time.Time `bun:"canceled_at,notnull" json:"canceled_at"`
}
