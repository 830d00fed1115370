package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/evertly/boxoffice/internal/clock"
	"github.com/evertly/boxoffice/internal/model"
	"github.com/evertly/boxoffice/internal/repository"
)

// ReservationTTL is how long a hold counts toward capacity.  It is
// fixed by design: there is no renewal, a buyer whose hold lapses
// starts over and re-validates capacity from scratch.
const ReservationTTL = 10 * time.Minute

// sessionTokenBytes sizes the random session token (hex-doubled).
const sessionTokenBytes = 32

// ReservationStore is what the reservation manager needs from
// persistence.  TierForUpdate must lock the tier row for the duration
// of the transaction opened by WithTx; that lock is what serializes
// concurrent check-and-reserve sequences.
type ReservationStore interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	TierForUpdate(ctx context.Context, tierID uint64) (model.Tier, error)
	EventByID(ctx context.Context, eventID uint64) (model.Event, error)
	CountSoldUnits(ctx context.Context, tierID uint64) (int, error)
	SumLiveReservedUnits(ctx context.Context, tierID uint64) (int, error)
	BuyerFinalizedUnits(ctx context.Context, eventID uint64, email string) (int, error)
	BuyerReservedUnits(ctx context.Context, eventID uint64, email string) (int, error)
	AddrFinalizedUnits(ctx context.Context, eventID uint64, addr string) (int, error)
	AddrReservedUnits(ctx context.Context, eventID uint64, addr string) (int, error)
	InsertReservation(ctx context.Context, res *model.Reservation) error
	ReservationByToken(ctx context.Context, token string, tierID uint64) (model.Reservation, error)
}

// CapPolicy turns a tier's per-customer maximum into concrete limits
// for each identity signal.  It is injected so stronger verification
// can replace the heuristics without touching reservation logic.
type CapPolicy interface {
	// BuyerLimit is the hard limit for a buyer email.
	BuyerLimit(maxPerCustomer int) int
	// NetworkLimit is the limit for a network address.
	NetworkLimit(maxPerCustomer int) int
}

// DefaultCaps enforces the per-customer maximum exactly for emails and
// doubles it for network addresses, tolerating shared office networks.
type DefaultCaps struct{}

func (DefaultCaps) BuyerLimit(maxPerCustomer int) int   { return maxPerCustomer }
func (DefaultCaps) NetworkLimit(maxPerCustomer int) int { return 2 * maxPerCustomer }

// ReservationManager creates and resolves time-boxed holds against the
// capacity ledger, enforcing per-order and per-identity caps.
type ReservationManager struct {
	store ReservationStore
	caps  CapPolicy
	clock clock.Clock
}

// NewReservationManager wires a manager over the given store.  A nil
// policy falls back to DefaultCaps.
func NewReservationManager(store ReservationStore, caps CapPolicy, clk clock.Clock) *ReservationManager {
	if caps == nil {
		caps = DefaultCaps{}
	}
	return &ReservationManager{store: store, caps: caps, clock: clk}
}

// Create places a hold on quantity units of a tier.  The availability
// check, the identity-cap checks and the insert run inside one
// transaction holding the tier row lock, so N racers for the last unit
// admit exactly one.  Email is optional at this stage (deferred to
// purchase); when absent only the network-address check applies.
func (m *ReservationManager) Create(ctx context.Context, tierID uint64, quantity int, buyerEmail, buyerAddr *string) (model.Reservation, error) {
	if quantity <= 0 {
		return model.Reservation{}, ErrInvalidQuantity
	}
	token, err := newToken(sessionTokenBytes)
	if err != nil {
		return model.Reservation{}, fmt.Errorf("generate session token: %w", err)
	}
	res := model.Reservation{
		TierID:       tierID,
		Quantity:     quantity,
		SessionToken: token,
		BuyerEmail:   buyerEmail,
		BuyerAddr:    buyerAddr,
		ExpiresAt:    m.clock.Now().Add(ReservationTTL),
	}
	err = m.store.WithTx(ctx, func(ctx context.Context) error {
		tier, err := m.store.TierForUpdate(ctx, tierID)
		if errors.Is(err, repository.ErrTierNotFound) {
			return ErrInvalidTier
		}
		if err != nil {
			return err
		}
		if !tier.Active {
			return ErrInvalidTier
		}
		event, err := m.store.EventByID(ctx, tier.EventID)
		if err != nil {
			return err
		}
		if event.MaxPerOrder > 0 && quantity > event.MaxPerOrder {
			return &OverPerOrderLimitError{Max: event.MaxPerOrder}
		}
		if tier.Capacity != nil {
			sold, err := m.store.CountSoldUnits(ctx, tierID)
			if err != nil {
				return err
			}
			reserved, err := m.store.SumLiveReservedUnits(ctx, tierID)
			if err != nil {
				return err
			}
			if available := *tier.Capacity - sold - reserved; quantity > available {
				if available < 0 {
					available = 0
				}
				return &InsufficientCapacityError{Available: available}
			}
		}
		if tier.MaxPerCustomer != nil {
			if err := m.checkIdentityCaps(ctx, event.ID, *tier.MaxPerCustomer, quantity, buyerEmail, buyerAddr); err != nil {
				return err
			}
		}
		return m.store.InsertReservation(ctx, &res)
	})
	if err != nil {
		return model.Reservation{}, err
	}
	return res, nil
}

// checkIdentityCaps applies the per-email and per-address allowances.
// Both count finalized units (excluding cancelled) plus live held
// units; the request must fit in what remains.
func (m *ReservationManager) checkIdentityCaps(ctx context.Context, eventID uint64, maxPerCustomer, quantity int, buyerEmail, buyerAddr *string) error {
	if buyerEmail != nil && *buyerEmail != "" {
		finalized, err := m.store.BuyerFinalizedUnits(ctx, eventID, *buyerEmail)
		if err != nil {
			return err
		}
		reserved, err := m.store.BuyerReservedUnits(ctx, eventID, *buyerEmail)
		if err != nil {
			return err
		}
		limit := m.caps.BuyerLimit(maxPerCustomer)
		if finalized+reserved+quantity > limit {
			return &PerCustomerLimitError{Remaining: remaining(limit, finalized+reserved)}
		}
	}
	if buyerAddr != nil && *buyerAddr != "" {
		finalized, err := m.store.AddrFinalizedUnits(ctx, eventID, *buyerAddr)
		if err != nil {
			return err
		}
		reserved, err := m.store.AddrReservedUnits(ctx, eventID, *buyerAddr)
		if err != nil {
			return err
		}
		limit := m.caps.NetworkLimit(maxPerCustomer)
		if finalized+reserved+quantity > limit {
			return &PerNetworkLimitError{Remaining: remaining(limit, finalized+reserved)}
		}
	}
	return nil
}

// Get resolves a session token to its live reservation.  Expired holds
// are logically absent and yield ErrReservationExpired even though the
// row may still be in storage.
func (m *ReservationManager) Get(ctx context.Context, token string, tierID uint64) (model.Reservation, error) {
	res, err := m.store.ReservationByToken(ctx, token, tierID)
	if errors.Is(err, repository.ErrReservationNotFound) {
		return model.Reservation{}, ErrReservationExpired
	}
	if err != nil {
		return model.Reservation{}, err
	}
	return res, nil
}

func remaining(limit, used int) int {
	if used >= limit {
		return 0
	}
	return limit - used
}
