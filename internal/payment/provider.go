// Package payment defines the boundary to the external payment
// platform: charging a buyer's payment method on behalf of a connected
// merchant account, refunding a prior charge, and the merchant-side
// lookups (connected account, subscription plan) the purchase flow
// needs.  The engine only ever talks to these interfaces; concrete
// integrations live behind them.
package payment

import (
	"context"
	"errors"
)

// ChargeStatus is the synchronous settlement outcome reported by the
// provider.  Anything other than ChargeSucceeded aborts the purchase
// before inventory is touched.
type ChargeStatus string

const (
	ChargeSucceeded ChargeStatus = "succeeded"
	ChargePending   ChargeStatus = "pending"
	ChargeFailed    ChargeStatus = "failed"
)

// ErrNoAccount is returned by AccountLookup when the organization has
// no connected payment account at all.
var ErrNoAccount = errors.New("no connected payment account")

// ChargeRequest describes a charge to create and confirm in one step on
// the merchant's connected account.  AppFeeCents is withheld for the
// platform as an application fee.  Metadata is attached verbatim for
// later reconciliation (event, tier, quantity).
type ChargeRequest struct {
	MethodRef   string            // payment method on the connected account
	AmountCents int64             // total charge in minor units
	Currency    string            // ISO currency code, e.g. "usd"
	AccountID   string            // merchant connected account
	AppFeeCents int64             // platform fee declared on the charge
	Metadata    map[string]string // opaque tags carried on the charge
}

// ChargeResult is the provider's synchronous answer to a ChargeRequest.
type ChargeResult struct {
	Status    ChargeStatus // settlement outcome
	ChargeRef string       // provider charge reference
}

// RefundRequest reverses part or all of a previous charge.  The
// platform fee is never included; only the merchant-side amount moves.
type RefundRequest struct {
	ChargeRef   string            // charge to refund against
	AmountCents int64             // refund amount in minor units
	AccountID   string            // merchant connected account
	Metadata    map[string]string // opaque tags carried on the refund
}

// Provider is the external payment capability.  All calls are
// synchronous from the engine's point of view: they complete or fail
// before the purchase flow proceeds.
type Provider interface {
	// CloneMethod makes the buyer's payment method usable on the
	// merchant's connected account and returns the account-scoped ref.
	CloneMethod(ctx context.Context, methodRef, accountID string) (string, error)
	// Charge creates and immediately confirms a charge.
	Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error)
	// Refund reverses amountCents of a prior charge and returns the
	// provider refund reference.
	Refund(ctx context.Context, req RefundRequest) (string, error)
}

// Account is a merchant's connected account as seen by the engine.
type Account struct {
	ID             string // provider account identifier
	ChargesEnabled bool   // whether the account can accept charges
}

// AccountLookup resolves an organization's connected payment account.
// Implementations return ErrNoAccount when none exists.
type AccountLookup interface {
	ConnectedAccount(ctx context.Context, orgID uint64) (Account, error)
}

// PlanLookup resolves an organization's current subscription plan,
// used only to select the platform fee schedule.
type PlanLookup interface {
	Plan(ctx context.Context, orgID uint64) (string, error)
}
