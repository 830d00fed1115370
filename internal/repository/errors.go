// Package repository implements MySQL persistence for the ticketing
// engine.  This file defines sentinel errors shared across the store's
// method sets.  They let the booking layer distinguish "row absent"
// from infrastructure failures without importing database/sql.
package repository

import "errors"

// ErrTierNotFound is returned when a tier does not exist.
var ErrTierNotFound = errors.New("tier not found")

// ErrEventNotFound is returned when an event does not exist.
var ErrEventNotFound = errors.New("event not found")

// ErrReservationNotFound is returned when no live reservation matches
// the lookup.  Expired rows are logically absent even though they are
// still physically present until the sweeper removes them.
var ErrReservationNotFound = errors.New("reservation not found")

// ErrTicketNotFound is returned when a ticket does not exist.
var ErrTicketNotFound = errors.New("ticket not found")

// ErrOrgNotFound is returned when an organization does not exist.
var ErrOrgNotFound = errors.New("organization not found")
