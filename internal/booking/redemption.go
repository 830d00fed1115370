package booking

import (
	"context"
	"errors"
	"time"

	"github.com/evertly/boxoffice/internal/clock"
	"github.com/evertly/boxoffice/internal/model"
	"github.com/evertly/boxoffice/internal/repository"
)

// RedemptionStore is what the scanner needs from persistence.
// MarkRedeemed must be a single conditional update guarded on
// status='valid' so duplicate scans race safely.
type RedemptionStore interface {
	TicketByCode(ctx context.Context, code string) (model.Ticket, uint64, string, error)
	TicketByID(ctx context.Context, id uint64) (model.Ticket, error)
	MarkRedeemed(ctx context.Context, id uint64, redeemedBy uint64, device *string, at time.Time) (bool, error)
}

// ScanOutcome classifies the result of presenting a redemption code.
type ScanOutcome string

const (
	// ScanValid: the ticket was valid and is now marked used.
	ScanValid ScanOutcome = "valid"
	// ScanAlreadyUsed: the ticket was redeemed earlier (or by a
	// concurrent duplicate of this very scan).
	ScanAlreadyUsed ScanOutcome = "already_used"
	// ScanWrongEvent: the code is real and org-scoped but belongs to a
	// different event than the scanner expected.
	ScanWrongEvent ScanOutcome = "wrong_event"
	// ScanInvalid: unknown code, foreign organization, or a refunded or
	// cancelled ticket.  Foreign-org codes report plain invalid so the
	// scan does not leak their existence.
	ScanInvalid ScanOutcome = "invalid"
)

// ScanResult is everything door staff need to wave a holder through or
// turn them away.
type ScanResult struct {
	Outcome         ScanOutcome        `json:"outcome"`
	HolderName      string             `json:"holder_name,omitempty"`
	HolderEmail     string             `json:"holder_email,omitempty"`
	AmountPaidCents int64              `json:"amount_paid_cents,omitempty"`
	EventName       string             `json:"event_name,omitempty"`
	PriorStatus     model.TicketStatus `json:"prior_status,omitempty"`
	RedeemedAt      *time.Time         `json:"redeemed_at,omitempty"`
}

// ScanRequest identifies the code being presented and who is scanning.
type ScanRequest struct {
	Code            string  // redemption code from the ticket
	ScanningOrgID   uint64  // organization of the scanning staff
	ExpectedEventID *uint64 // optional event the scanner is working
	RedeemerID      uint64  // staff member performing the scan
	Device          *string // optional scanning device identifier
}

// Redeemer validates and consumes redemption codes at the door.
type Redeemer struct {
	store RedemptionStore
	clock clock.Clock
}

// NewRedeemer wires a redemption state machine over the given store.
func NewRedeemer(store RedemptionStore, clk clock.Clock) *Redeemer {
	return &Redeemer{store: store, clock: clk}
}

// Scan runs the valid→used transition.  It never errors for the
// conflict cases; those come back as outcomes so the point-of-entry UI
// can show them.  Concurrent duplicate scans of the same code resolve
// to exactly one ScanValid: the valid→used flip is one conditional
// update, and the loser re-reads the row and reports ScanAlreadyUsed.
func (r *Redeemer) Scan(ctx context.Context, req ScanRequest) (ScanResult, error) {
	ticket, orgID, eventName, err := r.store.TicketByCode(ctx, req.Code)
	if errors.Is(err, repository.ErrTicketNotFound) {
		return ScanResult{Outcome: ScanInvalid}, nil
	}
	if err != nil {
		return ScanResult{}, err
	}
	if orgID != req.ScanningOrgID {
		// Do not reveal that the code exists under another org.
		return ScanResult{Outcome: ScanInvalid}, nil
	}
	if req.ExpectedEventID != nil && ticket.EventID != *req.ExpectedEventID {
		return ScanResult{Outcome: ScanWrongEvent, EventName: eventName}, nil
	}
	switch ticket.Status {
	case model.TicketUsed:
		return alreadyUsed(ticket), nil
	case model.TicketRefunded, model.TicketCancelled:
		return ScanResult{Outcome: ScanInvalid, PriorStatus: ticket.Status}, nil
	}

	flipped, err := r.store.MarkRedeemed(ctx, ticket.ID, req.RedeemerID, req.Device, r.clock.Now())
	if err != nil {
		return ScanResult{}, err
	}
	if !flipped {
		// A concurrent scan won the conditional update.  Re-read to
		// report when and for whom the ticket was consumed.
		current, err := r.store.TicketByID(ctx, ticket.ID)
		if err != nil {
			return ScanResult{}, err
		}
		if current.Status == model.TicketUsed {
			return alreadyUsed(current), nil
		}
		return ScanResult{Outcome: ScanInvalid, PriorStatus: current.Status}, nil
	}
	return ScanResult{
		Outcome:         ScanValid,
		HolderName:      ticket.BuyerName,
		HolderEmail:     ticket.BuyerEmail,
		AmountPaidCents: ticket.AmountPaidCents,
		EventName:       eventName,
	}, nil
}

func alreadyUsed(t model.Ticket) ScanResult {
	return ScanResult{
		Outcome:     ScanAlreadyUsed,
		HolderName:  t.BuyerName,
		HolderEmail: t.BuyerEmail,
		RedeemedAt:  t.RedeemedAt,
	}
}
