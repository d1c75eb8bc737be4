package model

import (
	"fmt"
	"time"
)

// OfferStatus tracks an offer through its lifecycle.
type OfferStatus string

const (
	OfferOpen      OfferStatus = "open"
	OfferAccepted  OfferStatus = "accepted"
	OfferExpired   OfferStatus = "expired"
	OfferCancelled OfferStatus = "cancelled"
)

// Offer is a time-boxed invitation for one job, addressed to the set of
// staff eligible at creation time. Attempt numbers are monotonically
// increasing per job across its offer history.
type Offer struct {
	ID            string      `json:"id"`
	JobID         string      `json:"job_id"`
	PropertyID    string      `json:"property_id"`
	RequiredRole  string      `json:"required_role"`
	EligibleStaff []string    `json:"eligible_staff"`
	AttemptNumber int         `json:"attempt_number"`
	Status        OfferStatus `json:"status"`
	AcceptedBy    string      `json:"accepted_by,omitempty"`
	CreatedBy     string      `json:"created_by"`
	CreatedAt     time.Time   `json:"created_at"`
	ExpiresAt     time.Time   `json:"expires_at"`
}

// Validate checks that the offer configuration is sound.
func (o Offer) Validate() error {
	if o.JobID == "" {
		return fmt.Errorf("job id is required")
	}
	if o.AttemptNumber < 1 {
		return fmt.Errorf("attempt number must be >= 1")
	}
	if !o.ExpiresAt.After(o.CreatedAt) {
		return fmt.Errorf("expiry must follow creation")
	}
	return nil
}

// Expired reports whether the offer TTL has elapsed at the given time.
func (o Offer) Expired(now time.Time) bool {
	return o.Status == OfferOpen && now.After(o.ExpiresAt)
}

// TimeRemaining returns how long the offer stays open from now.
// It returns zero for anything already past its expiry.
func (o Offer) TimeRemaining(now time.Time) time.Duration {
	if !o.ExpiresAt.After(now) {
		return 0
	}
	return o.ExpiresAt.Sub(now)
}
