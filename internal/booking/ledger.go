package booking

import (
	"context"

	"github.com/evertly/boxoffice/internal/model"
)

// LedgerStore is the read side the capacity ledger aggregates over:
// finalized sales and live reservations.  Both counts respect a
// transaction carried in ctx, which is how the reservation manager gets
// a consistent view under the tier row lock.
type LedgerStore interface {
	TierByID(ctx context.Context, tierID uint64) (model.Tier, error)
	CountSoldUnits(ctx context.Context, tierID uint64) (int, error)
	SumLiveReservedUnits(ctx context.Context, tierID uint64) (int, error)
}

// Availability is a point-in-time capacity snapshot for a tier.
// Available is nil when the tier has no capacity ceiling.
type Availability struct {
	Capacity  *int `json:"capacity"`
	Committed int  `json:"committed"`
	Available *int `json:"available"`
}

// Ledger answers "how many units of this tier are committed right
// now?".  It is a pure read with no caching: every call hits the store
// because the answer gates correctness.
type Ledger struct {
	store LedgerStore
}

// NewLedger returns a capacity ledger over the given store.
func NewLedger(store LedgerStore) *Ledger {
	return &Ledger{store: store}
}

// Committed returns sold units (every ticket status except cancelled
// and refunded) plus unexpired reservation quantities for the tier.
func (l *Ledger) Committed(ctx context.Context, tierID uint64) (int, error) {
	sold, err := l.store.CountSoldUnits(ctx, tierID)
	if err != nil {
		return 0, err
	}
	reserved, err := l.store.SumLiveReservedUnits(ctx, tierID)
	if err != nil {
		return 0, err
	}
	return sold + reserved, nil
}

// Availability reports committed units and, for capacity-limited tiers,
// how many remain.  Availability never goes negative even if a past
// race oversubscribed the tier.
func (l *Ledger) Availability(ctx context.Context, tierID uint64) (Availability, error) {
	tier, err := l.store.TierByID(ctx, tierID)
	if err != nil {
		return Availability{}, err
	}
	committed, err := l.Committed(ctx, tierID)
	if err != nil {
		return Availability{}, err
	}
	avail := Availability{Capacity: tier.Capacity, Committed: committed}
	if tier.Capacity != nil {
		left := *tier.Capacity - committed
		if left < 0 {
			left = 0
		}
		avail.Available = &left
	}
	return avail, nil
}
