// Package clock abstracts time acquisition so that expiry logic can be
// tested without sleeping.  Production code uses System; tests supply a
// fixed or steppable implementation.
package clock

import "time"

// Clock yields the current instant.  All implementations must return
// UTC times; every expiry comparison in the engine is done in UTC.
type Clock interface {
	Now() time.Time
}

// System reads the wall clock.
type System struct{}

// Now returns the current UTC time.
func (System) Now() time.Time { return time.Now().UTC() }
