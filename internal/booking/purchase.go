package booking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"

	"github.com/evertly/boxoffice/internal/model"
	"github.com/evertly/boxoffice/internal/payment"
	"github.com/evertly/boxoffice/internal/repository"
)

// redemptionCodeBytes sizes the random per-ticket redemption code.
const redemptionCodeBytes = 16

// PurchaseStore is what the purchase coordinator needs from
// persistence.  The ticket insert, reservation delete and customer
// upsert all run inside one WithTx transaction.
type PurchaseStore interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	TierByID(ctx context.Context, tierID uint64) (model.Tier, error)
	EventByID(ctx context.Context, eventID uint64) (model.Event, error)
	ReservationByToken(ctx context.Context, token string, tierID uint64) (model.Reservation, error)
	BuyerFinalizedUnits(ctx context.Context, eventID uint64, email string) (int, error)
	InsertTickets(ctx context.Context, tickets []model.Ticket) error
	DeleteReservation(ctx context.Context, id uint64) (bool, error)
	UpsertCustomer(ctx context.Context, orgID, eventID uint64, email, name string, spendCents int64) error
	InsertChargeJournal(ctx context.Context, j *model.ChargeJournal) error
	MarkJournalCommitted(ctx context.Context, id uint64) error
}

// PurchaseInput carries everything the buyer submits at checkout.  The
// unit price is deliberately absent: it is resolved from the tier at
// purchase time, never trusted from the client.
type PurchaseInput struct {
	SessionToken     string // reservation capability token
	TierID           uint64 // tier being purchased
	Quantity         int    // units, must match the reservation
	BuyerEmail       string // required at purchase even if absent at hold
	BuyerName        string // buyer display name
	BuyerAddr        string // client network address, kept for fraud review
	PaymentMethodRef string // buyer payment method on the platform account
}

// PurchaseResult is returned to the caller, who builds the HTTP
// response and fires notifications from it.
type PurchaseResult struct {
	Tickets    []model.Ticket // freshly created, status valid
	ChargeRef  string         // empty for free tickets
	TotalCents int64          // amount charged
	FeeCents   int64          // platform fee declared on the charge
}

// PurchaseCoordinator consumes a valid reservation, charges the
// external payment capability, and commits tickets atomically.
type PurchaseCoordinator struct {
	store    PurchaseStore
	provider payment.Provider
	accounts payment.AccountLookup
	plans    payment.PlanLookup
	fee      payment.FeeSchedule
	caps     CapPolicy
	currency string
}

// NewPurchaseCoordinator wires a coordinator.  A nil fee schedule falls
// back to payment.DefaultFeeSchedule; a nil cap policy to DefaultCaps.
func NewPurchaseCoordinator(store PurchaseStore, provider payment.Provider, accounts payment.AccountLookup, plans payment.PlanLookup, fee payment.FeeSchedule, caps CapPolicy, currency string) *PurchaseCoordinator {
	if fee == nil {
		fee = payment.DefaultFeeSchedule
	}
	if caps == nil {
		caps = DefaultCaps{}
	}
	return &PurchaseCoordinator{
		store:    store,
		provider: provider,
		accounts: accounts,
		plans:    plans,
		fee:      fee,
		caps:     caps,
		currency: currency,
	}
}

// Purchase finalizes a sale.  Hard preconditions, in order: the
// reservation must still be live (time has passed since it was
// validated), the buyer must still be under the per-customer cap, and
// for paid tiers the charge must settle synchronously as succeeded.
// Only then does one transaction insert the tickets, delete the
// reservation and upsert the customer record.  A transaction failure
// after the charge settled is returned as *CommitFailedError and must
// be escalated: funds moved without inventory, and the journal entry is
// left pending for the reconciler.
func (p *PurchaseCoordinator) Purchase(ctx context.Context, in PurchaseInput) (PurchaseResult, error) {
	if in.Quantity <= 0 {
		return PurchaseResult{}, ErrInvalidQuantity
	}
	if in.BuyerEmail == "" {
		return PurchaseResult{}, ErrBuyerEmailRequired
	}

	// Step 1: re-fetch the reservation with expiry > now.  Mandatory
	// even though it was validated at creation time.
	res, err := p.store.ReservationByToken(ctx, in.SessionToken, in.TierID)
	if errors.Is(err, repository.ErrReservationNotFound) {
		return PurchaseResult{}, ErrReservationExpired
	}
	if err != nil {
		return PurchaseResult{}, err
	}
	if res.Quantity != in.Quantity {
		return PurchaseResult{}, ErrQuantityMismatch
	}

	tier, err := p.store.TierByID(ctx, in.TierID)
	if errors.Is(err, repository.ErrTierNotFound) {
		return PurchaseResult{}, ErrInvalidTier
	}
	if err != nil {
		return PurchaseResult{}, err
	}
	event, err := p.store.EventByID(ctx, tier.EventID)
	if err != nil {
		return PurchaseResult{}, err
	}

	// Step 2: re-check the email cap against finalized tickets.
	// Defense in depth against a concurrent purchase that slipped
	// through between reservation and checkout.
	if tier.MaxPerCustomer != nil {
		finalized, err := p.store.BuyerFinalizedUnits(ctx, event.ID, in.BuyerEmail)
		if err != nil {
			return PurchaseResult{}, err
		}
		limit := p.caps.BuyerLimit(*tier.MaxPerCustomer)
		if finalized+in.Quantity > limit {
			return PurchaseResult{}, &PerCustomerLimitError{Remaining: remaining(limit, finalized)}
		}
	}

	// Steps 3-4: resolve price and platform fee server-side.
	total := tier.PriceCents * int64(in.Quantity)
	var feeCents int64
	var chargeRef string
	var journal *model.ChargeJournal

	// Step 5: charge, unless the ticket is free.
	if total > 0 {
		plan, err := p.plans.Plan(ctx, event.OrgID)
		if err != nil {
			return PurchaseResult{}, err
		}
		feeCents = p.fee(plan, total)

		account, err := p.accounts.ConnectedAccount(ctx, event.OrgID)
		if errors.Is(err, payment.ErrNoAccount) {
			return PurchaseResult{}, ErrPaymentsNotEnabled
		}
		if err != nil {
			return PurchaseResult{}, err
		}
		if !account.ChargesEnabled {
			return PurchaseResult{}, ErrPaymentsNotEnabled
		}

		methodRef, err := p.provider.CloneMethod(ctx, in.PaymentMethodRef, account.ID)
		if err != nil {
			return PurchaseResult{}, &PaymentFailedError{Err: err}
		}
		result, err := p.provider.Charge(ctx, payment.ChargeRequest{
			MethodRef:   methodRef,
			AmountCents: total,
			Currency:    p.currency,
			AccountID:   account.ID,
			AppFeeCents: feeCents,
			Metadata: map[string]string{
				"event_id": strconv.FormatUint(event.ID, 10),
				"tier_id":  strconv.FormatUint(tier.ID, 10),
				"quantity": strconv.Itoa(in.Quantity),
			},
		})
		if err != nil {
			return PurchaseResult{}, &PaymentFailedError{Err: err}
		}
		if result.Status != payment.ChargeSucceeded {
			return PurchaseResult{}, &PaymentFailedError{Status: string(result.Status)}
		}
		chargeRef = result.ChargeRef

		// Durable saga marker before the inventory transaction.  From
		// here on, any failure leaves a pending journal row describing
		// the settled charge.
		journal = &model.ChargeJournal{
			ChargeRef:    chargeRef,
			SessionToken: in.SessionToken,
			TierID:       tier.ID,
			Quantity:     in.Quantity,
			AmountCents:  total,
		}
		if err := p.store.InsertChargeJournal(ctx, journal); err != nil {
			return PurchaseResult{}, &CommitFailedError{ChargeRef: chargeRef, Err: err}
		}
	}

	tickets, err := p.mintTickets(tier, event, in, total, feeCents, chargeRef)
	if err != nil {
		if chargeRef != "" {
			return PurchaseResult{}, &CommitFailedError{ChargeRef: chargeRef, Err: err}
		}
		return PurchaseResult{}, err
	}

	// Step 6: one atomic transaction for the inventory mutation.
	err = p.store.WithTx(ctx, func(ctx context.Context) error {
		if err := p.store.InsertTickets(ctx, tickets); err != nil {
			return fmt.Errorf("insert tickets: %w", err)
		}
		deleted, err := p.store.DeleteReservation(ctx, res.ID)
		if err != nil {
			return fmt.Errorf("delete reservation: %w", err)
		}
		if !deleted {
			return fmt.Errorf("reservation %d already consumed", res.ID)
		}
		if err := p.store.UpsertCustomer(ctx, event.OrgID, event.ID, in.BuyerEmail, in.BuyerName, total); err != nil {
			return fmt.Errorf("upsert customer: %w", err)
		}
		return nil
	})
	if err != nil {
		if chargeRef != "" {
			return PurchaseResult{}, &CommitFailedError{ChargeRef: chargeRef, Err: err}
		}
		return PurchaseResult{}, err
	}

	if journal != nil {
		if err := p.store.MarkJournalCommitted(ctx, journal.ID); err != nil {
			// Tickets exist; the stale pending row will surface via the
			// reconciler and resolve as a false positive.
			log.Printf("purchase: journal %d not marked committed: %v", journal.ID, err)
		}
	}

	return PurchaseResult{
		Tickets:    tickets,
		ChargeRef:  chargeRef,
		TotalCents: total,
		FeeCents:   feeCents,
	}, nil
}

// mintTickets builds the rows for the commit transaction.  Each ticket
// gets a fresh unique redemption code, the resolved unit price and an
// even floor-divided share of the platform fee; up to quantity-1 cents
// of rounding drift is accepted and documented, not corrected.
func (p *PurchaseCoordinator) mintTickets(tier model.Tier, event model.Event, in PurchaseInput, total, feeCents int64, chargeRef string) ([]model.Ticket, error) {
	feeShare := feeCents / int64(in.Quantity)
	var ref *string
	if chargeRef != "" {
		ref = &chargeRef
	}
	tickets := make([]model.Ticket, 0, in.Quantity)
	for i := 0; i < in.Quantity; i++ {
		code, err := newToken(redemptionCodeBytes)
		if err != nil {
			return nil, fmt.Errorf("generate redemption code: %w", err)
		}
		tickets = append(tickets, model.Ticket{
			TierID:           tier.ID,
			EventID:          event.ID,
			Code:             code,
			BuyerEmail:       in.BuyerEmail,
			BuyerName:        in.BuyerName,
			BuyerAddr:        in.BuyerAddr,
			Status:           model.TicketValid,
			AmountPaidCents:  tier.PriceCents,
			PlatformFeeCents: feeShare,
			ChargeRef:        ref,
		})
	}
	return tickets, nil
}
