package audit

import (
	"context"
	"time"

	"github.com/villaops/dispatchd/core/model"
)

// Recorder wraps a Log with typed helpers producing canonical detail
// shapes per event type, keeping the schema consistent for downstream
// trail queries.
type Recorder struct {
	log Log
}

// NewRecorder returns a Recorder writing to the given log.
func NewRecorder(log Log) *Recorder { return &Recorder{log: log} }

// OfferCreated records the creation of an offer.
func (r *Recorder) OfferCreated(ctx context.Context, o model.Offer) (string, error) {
	return r.log.Append(ctx, Event{
		Type:       EventOfferCreated,
		Actor:      o.CreatedBy,
		JobID:      o.JobID,
		OfferID:    o.ID,
		PropertyID: o.PropertyID,
		Details: map[string]any{
			"attempt_number": o.AttemptNumber,
			"required_role":  o.RequiredRole,
			"eligible_count": len(o.EligibleStaff),
			"expires_at":     o.ExpiresAt.Format(time.RFC3339),
		},
	})
}

// OfferNotified records one fan-out batch, listing the staff that were
// successfully notified.
func (r *Recorder) OfferNotified(ctx context.Context, o model.Offer, notified []string) (string, error) {
	return r.log.Append(ctx, Event{
		Type:       EventOfferNotified,
		Actor:      "system",
		JobID:      o.JobID,
		OfferID:    o.ID,
		PropertyID: o.PropertyID,
		Details: map[string]any{
			"notified_staff": notified,
			"attempt_number": o.AttemptNumber,
		},
	})
}

// OfferAccepted records the winning acceptance of an offer.
func (r *Recorder) OfferAccepted(ctx context.Context, o model.Offer, staffID string) (string, error) {
	return r.log.Append(ctx, Event{
		Type:       EventOfferAccepted,
		Actor:      staffID,
		JobID:      o.JobID,
		OfferID:    o.ID,
		PropertyID: o.PropertyID,
		Details: map[string]any{
			"attempt_number": o.AttemptNumber,
		},
	})
}

// JobAssigned records a job transitioning to assigned.
func (r *Recorder) JobAssigned(ctx context.Context, jobID, propertyID, staffID, via string) (string, error) {
	return r.log.Append(ctx, Event{
		Type:       EventJobAssigned,
		Actor:      staffID,
		JobID:      jobID,
		PropertyID: propertyID,
		Details:    map[string]any{"via": via},
	})
}

// OfferExpired records an offer passing its TTL. willEscalate signals
// whether the orchestrator will attempt another offer cycle.
func (r *Recorder) OfferExpired(ctx context.Context, o model.Offer, willEscalate bool) (string, error) {
	return r.log.Append(ctx, Event{
		Type:       EventOfferExpired,
		Actor:      "system",
		JobID:      o.JobID,
		OfferID:    o.ID,
		PropertyID: o.PropertyID,
		Details: map[string]any{
			"attempt_number": o.AttemptNumber,
			"will_escalate":  willEscalate,
		},
	})
}

// OfferCancelled records an administrative cancellation.
func (r *Recorder) OfferCancelled(ctx context.Context, o model.Offer, actor, reason string) (string, error) {
	return r.log.Append(ctx, Event{
		Type:       EventOfferCancelled,
		Actor:      actor,
		JobID:      o.JobID,
		OfferID:    o.ID,
		PropertyID: o.PropertyID,
		Details:    map[string]any{"reason": reason},
	})
}

// EscalationTriggered records a re-offer attempt, or the handoff to
// manual assignment once the attempt limit is exhausted.
func (r *Recorder) EscalationTriggered(ctx context.Context, jobID, propertyID string, fromAttempt, toAttempt, maxAttempts int) (string, error) {
	return r.log.Append(ctx, Event{
		Type:       EventEscalationTriggered,
		Actor:      "system",
		JobID:      jobID,
		PropertyID: propertyID,
		Details: map[string]any{
			"from_attempt":    fromAttempt,
			"to_attempt":      toAttempt,
			"max_attempts":    maxAttempts,
			"manual_required": toAttempt > maxAttempts,
		},
	})
}

// ManualOverride records an admin bypassing the offer cycle.
func (r *Recorder) ManualOverride(ctx context.Context, jobID, propertyID, actor, staffID string) (string, error) {
	return r.log.Append(ctx, Event{
		Type:       EventManualOverride,
		Actor:      actor,
		JobID:      jobID,
		PropertyID: propertyID,
		Details:    map[string]any{"assigned_staff": staffID},
	})
}

// JobTrail returns the audit trail for one job, oldest first.
func (r *Recorder) JobTrail(ctx context.Context, jobID string, limit int) ([]Event, error) {
	return r.log.Query(ctx, Query{JobID: jobID, Limit: limit})
}

// OfferTrail returns the audit trail for one offer, oldest first.
func (r *Recorder) OfferTrail(ctx context.Context, offerID string, limit int) ([]Event, error) {
	return r.log.Query(ctx, Query{OfferID: offerID, Limit: limit})
}

// Recent returns the latest events across the system, newest first.
func (r *Recorder) Recent(ctx context.Context, limit int) ([]Event, error) {
	return r.log.Query(ctx, Query{Limit: limit, Desc: true})
}
