// Package events defines the offer lifecycle events published on the
// internal event bus for metric sinks and other observers.
package events

import (
	"time"

	"github.com/villaops/dispatchd/core/model"
)

// OfferEvent is published when an offer is created.
type OfferEvent struct {
	Offer model.Offer
	Job   model.Job
}

// AcceptanceEvent is published when a staff member wins an offer.
type AcceptanceEvent struct {
	OfferID string
	JobID   string
	StaffID string
	Attempt int
	// Latency is the time from offer creation to acceptance.
	Latency time.Duration
}

// ExpiryEvent is published when an open offer passes its TTL.
type ExpiryEvent struct {
	OfferID      string
	JobID        string
	Attempt      int
	WillEscalate bool
}

// EscalationEvent is published on every re-offer attempt, including the
// final handoff to manual assignment.
type EscalationEvent struct {
	JobID          string
	FromAttempt    int
	ToAttempt      int
	ManualRequired bool
}
