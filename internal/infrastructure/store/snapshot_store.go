package store

import (
	"context"
	"time"
)

// TicketSnapshot is the per-owner baseline for kitchen ticket deltas: the
// quantity of each item key included in the last committed ticket.
type TicketSnapshot struct {
	Owner      string         `json:"owner"`
	Quantities map[string]int `json:"quantities"` // item key -> printed quantity
	UpdatedAt  time.Time      `json:"updated_at"`
}

// SnapshotStore persists ticket snapshots. Get returns (nil, nil) for an
// owner without a snapshot; Delete of an absent owner is a no-op.
type SnapshotStore interface {
	Get(ctx context.Context, owner string) (*TicketSnapshot, error)
	Save(ctx context.Context, snapshot *TicketSnapshot) error
	Delete(ctx context.Context, owner string) error
}
