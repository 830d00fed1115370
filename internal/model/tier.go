package model

import "time"

// Tier is a priced slice of an event's inventory.  Capacity and
// MaxPerCustomer are nil when unlimited; Active gates whether new
// reservations may be placed, with no effect on already-sold tickets.
type Tier struct {
	ID             uint64    // tiers.id
	EventID        uint64    // tiers.event_id
	Name           string    // tiers.name
	PriceCents     int64     // tiers.price_cents (0 = free)
	Capacity       *int      // tiers.capacity (nullable, nil = unlimited)
	MaxPerCustomer *int      // tiers.max_per_customer (nullable, nil = unlimited)
	Active         bool      // tiers.is_active
	CreatedAt      time.Time // tiers.created_at
}
