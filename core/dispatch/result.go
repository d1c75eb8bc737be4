package dispatch

import "errors"

// ErrManualIntervention is returned when a job has exhausted its offer
// attempts and requires manual admin assignment.
var ErrManualIntervention = errors.New("dispatch: requires manual intervention")

// Outcome tags the result of an offer trigger. Guard failures are
// Skipped, not errors; only service-level failures are Failed.
type Outcome int

const (
	// OutcomeCreated means an offer was created.
	OutcomeCreated Outcome = iota + 1
	// OutcomeSkipped means a guard rejected the trigger; Reason explains why.
	OutcomeSkipped
	// OutcomeFailed means a persistence or service error occurred.
	OutcomeFailed
)

// String implements fmt.Stringer.
func (o Outcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result reports the outcome of an offer trigger.
type Result struct {
	Outcome Outcome
	OfferID string
	Reason  string
	Err     error
}

// Created builds a successful result carrying the new offer id.
func Created(offerID string) Result {
	return Result{Outcome: OutcomeCreated, OfferID: offerID}
}

// Skipped builds a soft no-op result with a human-readable reason.
func Skipped(reason string) Result {
	return Result{Outcome: OutcomeSkipped, Reason: reason}
}

// Failed builds an error result.
func Failed(err error) Result {
	return Result{Outcome: OutcomeFailed, Err: err}
}
