// Package audit provides the append-only event log recording every
// offer and job state transition for traceability.
package audit

import (
	"context"
	"time"
)

// EventType enumerates the recorded state transitions.
type EventType string

const (
	EventOfferCreated        EventType = "offer_created"
	EventOfferNotified       EventType = "offer_notified"
	EventOfferAccepted       EventType = "offer_accepted"
	EventOfferExpired        EventType = "offer_expired"
	EventOfferCancelled      EventType = "offer_cancelled"
	EventJobAssigned         EventType = "job_assigned"
	EventManualOverride      EventType = "manual_override"
	EventEscalationTriggered EventType = "escalation_triggered"
)

// Event is one immutable record of a state transition. Events are never
// updated or deleted; querying is the only read path.
type Event struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Actor      string         `json:"actor"`
	JobID      string         `json:"job_id,omitempty"`
	OfferID    string         `json:"offer_id,omitempty"`
	PropertyID string         `json:"property_id,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
	Details    map[string]any `json:"details,omitempty"`
}

// Query defines filters for retrieving events.
type Query struct {
	JobID   string
	OfferID string
	Type    EventType
	Start   time.Time
	End     time.Time
	Limit   int
	// Desc returns newest events first; default is append order.
	Desc bool
}

// Log persists events and supports filtered reads. Append assigns the
// record id and timestamp; identical appends yield distinct records.
type Log interface {
	Append(ctx context.Context, ev Event) (string, error)
	Query(ctx context.Context, q Query) ([]Event, error)
	Close() error
}
