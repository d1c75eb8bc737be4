// Package metrics defines the sink abstraction used to export offer
// lifecycle measurements to external time-series backends.
package metrics

import "time"

// OfferCycleRecord is one measurement of the offer lifecycle.
type OfferCycleRecord struct {
	Event      string    // created, accepted, expired or escalated
	JobID      string
	OfferID    string
	PropertyID string
	Role       string
	Attempt    int
	StaffID    string  // accepting staff, when applicable
	StaffCount int     // eligible staff at creation
	LatencySec float64 // creation-to-acceptance latency, when applicable
	Time       time.Time
}

// Sink records offer cycle measurements.
type Sink interface {
	RecordOfferCycle(recs []OfferCycleRecord) error
}

// NopSink discards all measurements.
type NopSink struct{}

// RecordOfferCycle implements Sink.
func (NopSink) RecordOfferCycle([]OfferCycleRecord) error { return nil }
