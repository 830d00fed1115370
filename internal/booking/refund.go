package booking

import (
	"context"
	"strconv"

	"github.com/evertly/boxoffice/internal/model"
	"github.com/evertly/boxoffice/internal/payment"
)

// RefundStore is what the refund/cancellation manager needs from
// persistence.
type RefundStore interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	TicketByID(ctx context.Context, id uint64) (model.Ticket, error)
	EventByID(ctx context.Context, eventID uint64) (model.Event, error)
	MarkRefunded(ctx context.Context, id uint64) (bool, error)
	MarkCancelled(ctx context.Context, id uint64) (bool, error)
	ReduceCustomerSpend(ctx context.Context, orgID, eventID uint64, email string, amountCents int64) error
}

// RefundResult reports what actually happened to the money and the
// ticket.
type RefundResult struct {
	RefundAmountCents int64  // amount sent back to the buyer
	FullRefund        bool   // whether the ticket flipped to refunded
	RefundRef         string // provider refund reference, empty when no charge existed
}

// RefundManager transitions finalized tickets to refunded or cancelled
// and reverses external charges.  The platform fee is never refunded:
// it remains earned regardless of what happens to the merchant amount.
type RefundManager struct {
	store    RefundStore
	provider payment.Provider
	accounts payment.AccountLookup
}

// NewRefundManager wires a refund/cancellation manager.
func NewRefundManager(store RefundStore, provider payment.Provider, accounts payment.AccountLookup) *RefundManager {
	return &RefundManager{store: store, provider: provider, accounts: accounts}
}

// Refund reverses a ticket's charge.  A nil amount means a full refund
// of the amount paid; explicit amounts must be positive and within the
// amount paid.  Only a full refund flips the ticket to refunded and
// decrements the buyer's lifetime spend (floored at zero); a partial
// refund leaves the ticket usable.
func (m *RefundManager) Refund(ctx context.Context, ticketID uint64, amountCents *int64, reason string) (RefundResult, error) {
	ticket, err := m.store.TicketByID(ctx, ticketID)
	if err != nil {
		return RefundResult{}, err
	}
	switch ticket.Status {
	case model.TicketRefunded:
		return RefundResult{}, ErrAlreadyRefunded
	case model.TicketCancelled:
		return RefundResult{}, ErrAlreadyCancelled
	}

	amount := ticket.AmountPaidCents
	if amountCents != nil {
		amount = *amountCents
		if amount <= 0 {
			return RefundResult{}, ErrAmountNotPositive
		}
		if amount > ticket.AmountPaidCents {
			return RefundResult{}, ErrAmountExceedsPaid
		}
	}
	full := amount >= ticket.AmountPaidCents

	event, err := m.store.EventByID(ctx, ticket.EventID)
	if err != nil {
		return RefundResult{}, err
	}

	var refundRef string
	if ticket.ChargeRef != nil && amount > 0 {
		account, err := m.accounts.ConnectedAccount(ctx, event.OrgID)
		if err != nil {
			return RefundResult{}, err
		}
		metadata := map[string]string{"ticket_id": strconv.FormatUint(ticket.ID, 10)}
		if reason != "" {
			metadata["reason"] = reason
		}
		refundRef, err = m.provider.Refund(ctx, payment.RefundRequest{
			ChargeRef:   *ticket.ChargeRef,
			AmountCents: amount,
			AccountID:   account.ID,
			Metadata:    metadata,
		})
		if err != nil {
			return RefundResult{}, &PaymentRejectedError{Err: err}
		}
	}

	if full {
		err = m.store.WithTx(ctx, func(ctx context.Context) error {
			flipped, err := m.store.MarkRefunded(ctx, ticket.ID)
			if err != nil {
				return err
			}
			if !flipped {
				return ErrAlreadyRefunded
			}
			return m.store.ReduceCustomerSpend(ctx, event.OrgID, event.ID, ticket.BuyerEmail, amount)
		})
		if err != nil {
			return RefundResult{}, err
		}
	}

	return RefundResult{RefundAmountCents: amount, FullRefund: full, RefundRef: refundRef}, nil
}

// Cancel voids an unredeemed ticket without reversing its charge.  Used
// tickets must go through Refund; terminal tickets are rejected with
// their specific prior state.
func (m *RefundManager) Cancel(ctx context.Context, ticketID uint64) error {
	ticket, err := m.store.TicketByID(ctx, ticketID)
	if err != nil {
		return err
	}
	switch ticket.Status {
	case model.TicketRefunded:
		return ErrAlreadyRefunded
	case model.TicketCancelled:
		return ErrAlreadyCancelled
	case model.TicketUsed:
		return ErrNotCancellable
	}
	flipped, err := m.store.MarkCancelled(ctx, ticket.ID)
	if err != nil {
		return err
	}
	if !flipped {
		return ErrNotCancellable
	}
	return nil
}
