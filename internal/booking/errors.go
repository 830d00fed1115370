// Package booking implements the ticket inventory engine: the capacity
// ledger, time-boxed reservations, the purchase coordinator, scan-once
// redemption and refund/cancellation transitions.  It is transport
// agnostic; handlers translate its typed errors into HTTP responses.
package booking

import (
	"errors"
	"fmt"
)

// ErrInvalidTier is returned when the requested tier does not exist, is
// inactive, or belongs to a different event than the caller claims.
var ErrInvalidTier = errors.New("tier not found or not on sale")

// ErrInvalidQuantity is returned for non-positive quantities.
var ErrInvalidQuantity = errors.New("quantity must be positive")

// ErrBuyerEmailRequired is returned when a purchase is submitted
// without a buyer email.  Email is optional at reservation time only.
var ErrBuyerEmailRequired = errors.New("buyer email is required")

// ErrReservationExpired is returned when no live reservation matches
// the session token: the row never existed, was consumed by a purchase,
// or its TTL elapsed.  The client must start a new reservation, which
// re-validates capacity from scratch.
var ErrReservationExpired = errors.New("reservation expired or invalid")

// ErrQuantityMismatch is returned when a purchase requests a different
// quantity than the reservation holds.
var ErrQuantityMismatch = errors.New("quantity does not match reservation")

// ErrPaymentsNotEnabled is returned when a paid purchase targets an
// organization without an active, charge-enabled connected account.
var ErrPaymentsNotEnabled = errors.New("organization cannot accept payments")

// Refund/cancellation conflicts.  All are recoverable client errors.
var (
	ErrAlreadyRefunded   = errors.New("ticket already refunded")
	ErrAlreadyCancelled  = errors.New("ticket already cancelled")
	ErrNotCancellable    = errors.New("only valid tickets can be cancelled")
	ErrAmountNotPositive = errors.New("refund amount must be positive")
	ErrAmountExceedsPaid = errors.New("refund amount exceeds amount paid")
)

// OverPerOrderLimitError rejects a reservation whose quantity exceeds
// the event's per-order ceiling.
type OverPerOrderLimitError struct {
	Max int // maximum units per order for the event
}

func (e *OverPerOrderLimitError) Error() string {
	return fmt.Sprintf("quantity exceeds per-order limit of %d", e.Max)
}

// InsufficientCapacityError rejects a reservation that would
// oversubscribe the tier.  Available carries the current availability
// so the client can retry with a smaller quantity.
type InsufficientCapacityError struct {
	Available int // units still available at rejection time
}

func (e *InsufficientCapacityError) Error() string {
	return fmt.Sprintf("not enough tickets available: %d left", e.Available)
}

// PerCustomerLimitError rejects a reservation or purchase that would
// push a buyer email past the tier's per-customer maximum.  Remaining
// is the allowance left (never negative).
type PerCustomerLimitError struct {
	Remaining int
}

func (e *PerCustomerLimitError) Error() string {
	return fmt.Sprintf("per-customer limit reached: %d remaining", e.Remaining)
}

// PerNetworkLimitError rejects a reservation that would push a network
// address past its looser (2x) allowance.  A secondary fraud signal,
// not strong identity.
type PerNetworkLimitError struct {
	Remaining int
}

func (e *PerNetworkLimitError) Error() string {
	return fmt.Sprintf("per-network limit reached: %d remaining", e.Remaining)
}

// PaymentFailedError reports a charge that did not settle as succeeded.
// The provider's verdict is carried verbatim; the engine never retries.
type PaymentFailedError struct {
	Status string // provider settlement status, empty when the call errored
	Err    error  // underlying provider error, nil when the status alone failed
}

func (e *PaymentFailedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("payment failed: %v", e.Err)
	}
	return fmt.Sprintf("payment failed: charge status %q", e.Status)
}

func (e *PaymentFailedError) Unwrap() error { return e.Err }

// PaymentRejectedError wraps a provider-side refund rejection.
type PaymentRejectedError struct {
	Err error
}

func (e *PaymentRejectedError) Error() string {
	return fmt.Sprintf("payment provider rejected refund: %v", e.Err)
}

func (e *PaymentRejectedError) Unwrap() error { return e.Err }

// CommitFailedError is the one fatal error in the engine: the charge
// settled but the inventory transaction did not land, so money moved
// without tickets existing.  The charge is not auto-reversed; the
// journal entry stays pending for an operator to reconcile.
type CommitFailedError struct {
	ChargeRef string // settled charge that has no tickets
	Err       error  // transaction failure
}

func (e *CommitFailedError) Error() string {
	return fmt.Sprintf("inventory commit failed after charge %s settled: %v", e.ChargeRef, e.Err)
}

func (e *CommitFailedError) Unwrap() error { return e.Err }
