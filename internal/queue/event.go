// Package queue defines the message payloads exchanged over the broker
// and the background consumer that processes them.
package queue

// Queue names for the ticket lifecycle events.  Each is a durable
// RabbitMQ queue; handlers publish fire-and-forget after the engine
// returns.
const (
	TicketPurchasedQueue = "ticket.purchased"
	TicketScannedQueue   = "ticket.scanned"
	TicketRefundedQueue  = "ticket.refunded"
)

// TicketPurchasedEvent is published after a purchase commits.  It
// carries enough for downstream consumers (confirmation email, reminder
// scheduling, live dashboards) without querying the primary database.
type TicketPurchasedEvent struct {
	EventID     uint64   `json:"event_id"`
	TierID      uint64   `json:"tier_id"`
	BuyerEmail  string   `json:"buyer_email"`
	BuyerName   string   `json:"buyer_name"`
	Quantity    int      `json:"quantity"`
	TotalCents  int64    `json:"total_cents"`
	FeeCents    int64    `json:"fee_cents"`
	ChargeRef   string   `json:"charge_ref,omitempty"`
	TicketCodes []string `json:"ticket_codes"`
	PurchasedAt string   `json:"purchased_at"`
}

// TicketScannedEvent is published after a redemption attempt.
type TicketScannedEvent struct {
	Code      string `json:"code"`
	Outcome   string `json:"outcome"`
	OrgID     uint64 `json:"org_id"`
	StaffID   uint64 `json:"staff_id"`
	ScannedAt string `json:"scanned_at"`
}

// TicketRefundedEvent is published after a refund or cancellation.
type TicketRefundedEvent struct {
	TicketID    uint64 `json:"ticket_id"`
	AmountCents int64  `json:"amount_cents"`
	FullRefund  bool   `json:"full_refund"`
	Cancelled   bool   `json:"cancelled"`
	Reason      string `json:"reason,omitempty"`
	RefundedAt  string `json:"refunded_at"`
}
