// Package staff resolves which staff members are eligible for an offer:
// given a required role and a time window, return candidate staff ids.
package staff

import (
	"context"
	"time"
)

// Member describes one staff member on the roster.
type Member struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Role   string   `json:"role"`
	Skills []string `json:"skills,omitempty"`
	Active bool     `json:"active"`
}

// AvailabilityWindow represents a working period for a staff member.
type AvailabilityWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether the window fully covers [start, end).
func (w AvailabilityWindow) Contains(start, end time.Time) bool {
	return !start.Before(w.Start) && !end.After(w.End)
}

// Directory exposes eligibility lookups for the offer engine.
type Directory interface {
	// Eligible returns the ids of active staff matching the role whose
	// availability covers the given window.
	Eligible(ctx context.Context, role string, start, end time.Time) ([]string, error)
	// Member returns the roster entry for the given id.
	Member(ctx context.Context, id string) (Member, bool)
}
