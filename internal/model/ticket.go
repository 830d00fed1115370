package model

import "time"

// TicketStatus enumerates the lifecycle states of a sold ticket.
// Transitions are one-directional: valid→used at the door, and
// valid/used→refunded or valid→cancelled, which are terminal.
type TicketStatus string

const (
	TicketValid     TicketStatus = "valid"
	TicketUsed      TicketStatus = "used"
	TicketRefunded  TicketStatus = "refunded"
	TicketCancelled TicketStatus = "cancelled"
)

// Ticket is a finalized, sold unit of inventory.  Rows are created only
// inside the purchase transaction, mutated by redemption and
// refund/cancellation, and never deleted.  The redemption code is a
// capability token, globally unique and immutable once issued, and is
// independent of any reservation session token.
//
// Fields:
//  ID               – primary key identifier.
//  TierID           – tier the ticket was sold under.
//  EventID          – event the ticket admits to.
//  Code             – unique redemption code presented at the door.
//  BuyerEmail       – purchaser email.
//  BuyerName        – purchaser display name.
//  BuyerAddr        – purchaser network address, retained for fraud review.
//  Status           – lifecycle state.
//  AmountPaidCents  – unit price actually paid, in minor units.
//  PlatformFeeCents – this ticket's share of the platform fee.
//  ChargeRef        – external payment charge reference (nil for free tickets).
//  RedeemedAt       – when the ticket was scanned (nullable).
//  RedeemedBy       – staff member who scanned it (nullable).
//  RedeemedDevice   – scanning device identifier (nullable).
//  CreatedAt        – creation timestamp.
//  UpdatedAt        – last mutation timestamp.
type Ticket struct {
	ID               uint64       // tickets.id
	TierID           uint64       // tickets.tier_id
	EventID          uint64       // tickets.event_id
	Code             string       // tickets.code
	BuyerEmail       string       // tickets.buyer_email
	BuyerName        string       // tickets.buyer_name
	BuyerAddr        string       // tickets.buyer_addr
	Status           TicketStatus // tickets.status
	AmountPaidCents  int64        // tickets.amount_paid_cents
	PlatformFeeCents int64        // tickets.platform_fee_cents
	ChargeRef        *string      // tickets.charge_ref (nullable)
	RedeemedAt       *time.Time   // tickets.redeemed_at (nullable)
	RedeemedBy       *uint64      // tickets.redeemed_by (nullable)
	RedeemedDevice   *string      // tickets.redeemed_device (nullable)
	CreatedAt        time.Time    // tickets.created_at
	UpdatedAt        time.Time    // tickets.updated_at
}

// Counts reports whether the ticket still occupies tier capacity.
// Refunded and cancelled tickets release their unit.
func (t Ticket) Counts() bool {
	return t.Status != TicketRefunded && t.Status != TicketCancelled
}
