package model

import "time"

// Reservation is a time-boxed hold on N units of a tier while a buyer
// completes checkout.  A reservation counts toward committed capacity
// only while expires_at is in the future; expired rows are filtered by
// every live query and eventually removed by the sweeper, never by the
// request path.
//
// Fields:
//  ID           – primary key identifier.
//  TierID       – tier being held.
//  Quantity     – number of units held.
//  SessionToken – opaque capability token returned to the client.
//  BuyerEmail   – buyer email when known at hold time (nullable).
//  BuyerAddr    – buyer network address, used for the network cap (nullable).
//  ExpiresAt    – when the hold lapses.
//  CreatedAt    – creation timestamp.
type Reservation struct {
	ID           uint64    // reservations.id
	TierID       uint64    // reservations.tier_id
	Quantity     int       // reservations.quantity
	SessionToken string    // reservations.session_token
	BuyerEmail   *string   // reservations.buyer_email (nullable)
	BuyerAddr    *string   // reservations.buyer_addr (nullable)
	ExpiresAt    time.Time // reservations.expires_at
	CreatedAt    time.Time // reservations.created_at
}

// Live reports whether the reservation still counts toward capacity at
// the given instant.
func (r Reservation) Live(now time.Time) bool {
	return now.Before(r.ExpiresAt)
}
