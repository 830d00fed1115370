// Package model defines the persistent domain entities shared by the
// repository and the booking engine.  Structs mirror table rows; all
// monetary amounts are integer minor units and all timestamps are UTC.
package model

import "time"

// Event is a dated occasion an organization sells tickets for.  The
// per-order ceiling lives here because it is a property of the sale,
// not of any one tier; zero means no ceiling.
type Event struct {
	ID          uint64     // events.id
	OrgID       uint64     // events.org_id
	Name        string     // events.name
	MaxPerOrder int        // events.max_per_order (0 = unlimited)
	StartsAt    *time.Time // events.starts_at (nullable)
	CreatedAt   time.Time  // events.created_at
}
