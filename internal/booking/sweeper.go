package booking

import (
	"context"
	"log"
	"time"

	"github.com/evertly/boxoffice/internal/clock"
	"github.com/evertly/boxoffice/internal/model"
)

// SweeperStore is what the background sweeper needs from persistence.
type SweeperStore interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	DeleteExpiredReservations(ctx context.Context, before time.Time) (int64, error)
	OrphanStaleJournal(ctx context.Context, before time.Time) ([]model.ChargeJournal, error)
}

// Sweeper is the storage-hygiene job: it deletes reservation rows that
// expired longer than a grace period ago, and flags charge journal
// entries stuck in pending.  It is decoupled from the request path and
// idempotent; live queries already exclude everything it touches, so
// observable behavior never changes.
type Sweeper struct {
	store SweeperStore
	clock clock.Clock

	// Interval between sweep passes.
	Interval time.Duration
	// Grace is how long an expired reservation survives before
	// deletion.  Keeping the corpse around briefly aids debugging and
	// guarantees the sweeper never races a liveness check.
	Grace time.Duration
	// JournalGrace is how long a pending journal entry may wait for its
	// commit before being flagged orphaned.
	JournalGrace time.Duration
}

// NewSweeper returns a sweeper with production defaults.
func NewSweeper(store SweeperStore, clk clock.Clock) *Sweeper {
	return &Sweeper{
		store:        store,
		clock:        clk,
		Interval:     10 * time.Minute,
		Grace:        time.Hour,
		JournalGrace: 15 * time.Minute,
	}
}

// Run loops until ctx is cancelled, sweeping once per interval.  Errors
// are logged and the loop keeps going; a failed pass just leaves rows
// for the next one.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil {
				log.Printf("sweeper: pass failed: %v", err)
			}
		}
	}
}

// Sweep performs one pass.  Exposed separately so operators (and tests)
// can trigger it on demand.
func (s *Sweeper) Sweep(ctx context.Context) error {
	now := s.clock.Now()
	deleted, err := s.store.DeleteExpiredReservations(ctx, now.Add(-s.Grace))
	if err != nil {
		return err
	}
	if deleted > 0 {
		log.Printf("sweeper: removed %d expired reservations", deleted)
	}
	var stale []model.ChargeJournal
	err = s.store.WithTx(ctx, func(ctx context.Context) error {
		var txErr error
		stale, txErr = s.store.OrphanStaleJournal(ctx, now.Add(-s.JournalGrace))
		return txErr
	})
	if err != nil {
		return err
	}
	for _, j := range stale {
		// Money moved without tickets.  Loud on purpose: an operator
		// has to reconcile these by retrying the commit or refunding.
		log.Printf("sweeper: ALERT orphaned charge %s (tier %d, qty %d, %d cents) needs reconciliation",
			j.ChargeRef, j.TierID, j.Quantity, j.AmountCents)
	}
	return nil
}
