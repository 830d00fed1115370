package model

import "time"

// Customer is the buyer relationship record upserted on every
// successful purchase, keyed by (org_id, event_id, email).  Order
// count and lifetime spend accumulate across purchases; full refunds
// decrement spend, floored at zero.
//
// Fields:
//  ID                 – primary key identifier.
//  OrgID              – organization the relationship belongs to.
//  EventID            – event scope of the relationship.
//  Email              – buyer email (unique within org+event).
//  Name               – most recent buyer display name.
//  OrderCount         – number of completed purchases.
//  LifetimeSpendCents – accumulated spend in minor units.
//  CreatedAt          – creation timestamp.
//  UpdatedAt          – last upsert timestamp.
type Customer struct {
	ID                 uint64    // customers.id
	OrgID              uint64    // customers.org_id
	EventID            uint64    // customers.event_id
	Email              string    // customers.email
	Name               string    // customers.name
	OrderCount         int       // customers.order_count
	LifetimeSpendCents int64     // customers.lifetime_spend_cents
	CreatedAt          time.Time // customers.created_at
	UpdatedAt          time.Time // customers.updated_at
}
