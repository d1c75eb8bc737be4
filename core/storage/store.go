// Package storage defines the persistence contracts for jobs, offers
// and offer notifications. Status transitions are compare-and-set so
// concurrent triggers cannot double-dispatch a job or double-accept an
// offer.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/villaops/dispatchd/core/model"
)

var (
	// ErrNotFound is returned when the referenced document does not exist.
	ErrNotFound = errors.New("storage: not found")
	// ErrConflict is returned when a conditional write loses its race,
	// e.g. a second open offer for the same job or a status transition
	// whose precondition no longer holds.
	ErrConflict = errors.New("storage: conflict")
)

// JobStore persists jobs.
type JobStore interface {
	PutJob(ctx context.Context, j model.Job) error
	GetJob(ctx context.Context, id string) (model.Job, error)
	// TransitionJob moves a job from one status to another atomically.
	// When assignee is non-empty it is recorded as the assigned staff.
	// Returns ErrConflict if the job is not in the from status.
	TransitionJob(ctx context.Context, id string, from, to model.JobStatus, assignee string) error
	ListJobs(ctx context.Context) ([]model.Job, error)
	JobsUpdatedSince(ctx context.Context, since time.Time) ([]model.Job, error)
	// OpenJobCount returns the number of non-terminal jobs currently
	// assigned to the staff member.
	OpenJobCount(ctx context.Context, staffID string) (int, error)
}

// OfferStore persists offers.
type OfferStore interface {
	// CreateOpenOffer inserts the offer, failing with ErrConflict when
	// the job already has an open offer. This is the invariant guard:
	// at most one open offer per job.
	CreateOpenOffer(ctx context.Context, o model.Offer) error
	GetOffer(ctx context.Context, id string) (model.Offer, error)
	// TransitionOffer moves an offer between statuses atomically,
	// recording the accepting staff when acceptedBy is non-empty.
	TransitionOffer(ctx context.Context, id string, from, to model.OfferStatus, acceptedBy string) error
	// DueOffers returns open offers whose expiry has passed.
	DueOffers(ctx context.Context, now time.Time) ([]model.Offer, error)
	// LastAttempt returns the highest attempt number recorded for the
	// job, zero when the job never had an offer.
	LastAttempt(ctx context.Context, jobID string) (int, error)
}

// NotificationStore persists per-staff offer notifications.
type NotificationStore interface {
	AddNotification(ctx context.Context, n model.OfferNotification) error
	MarkRead(ctx context.Context, id string, at time.Time) error
	// SupersedeOffer marks all notifications of the offer as superseded
	// except the winning staff member's, returning the count updated.
	SupersedeOffer(ctx context.Context, offerID, winnerStaffID string) (int, error)
	NotificationsForStaff(ctx context.Context, staffID string, since time.Time) ([]model.OfferNotification, error)
}

// Store combines all persistence contracts behind one handle.
type Store interface {
	JobStore
	OfferStore
	NotificationStore
	Close() error
}
