package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/villaops/dispatchd/core/audit"
	"github.com/villaops/dispatchd/core/events"
	"github.com/villaops/dispatchd/core/logger"
	"github.com/villaops/dispatchd/core/model"
	"github.com/villaops/dispatchd/core/staff"
	"github.com/villaops/dispatchd/core/storage"
	"github.com/villaops/dispatchd/internal/eventbus"
)

// OfferRequest carries everything the engine needs to open an offer
// cycle for a job. Eligibility guards (status, dispatch window, notice)
// are enforced by the orchestrator, not re-validated here.
type OfferRequest struct {
	Job           model.Job
	AttemptNumber int
	CreatedBy     string
}

// OfferEngine creates time-boxed offers listing the staff eligible for
// a job. The one-open-offer-per-job invariant is enforced through the
// store's conditional insert, so concurrent triggers cannot race two
// offers onto the same job.
type OfferEngine struct {
	store     storage.OfferStore
	directory staff.Directory
	audit     *audit.Recorder
	bus       eventbus.EventBus
	logger    logger.Logger
	ttl       time.Duration
	now       func() time.Time
}

// NewOfferEngine creates an engine. The event bus may be nil.
func NewOfferEngine(store storage.OfferStore, dir staff.Directory, rec *audit.Recorder, bus eventbus.EventBus, log logger.Logger, ttl time.Duration) (*OfferEngine, error) {
	if store == nil || dir == nil || rec == nil || log == nil {
		return nil, fmt.Errorf("dispatch: nil parameter provided to NewOfferEngine")
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &OfferEngine{
		store:     store,
		directory: dir,
		audit:     rec,
		bus:       bus,
		logger:    log,
		ttl:       ttl,
		now:       time.Now,
	}, nil
}

// CreateOffer computes the eligible staff set, persists an open offer
// with a TTL-based expiry and records the offer_created audit event
// before returning. An empty candidate set or a lost insert race yields
// a Skipped result; only service failures yield Failed.
func (e *OfferEngine) CreateOffer(ctx context.Context, req OfferRequest) Result {
	job := req.Job
	start, end := job.Window()
	eligible, err := e.directory.Eligible(ctx, job.RequiredRole, start, end)
	if err != nil {
		return Failed(fmt.Errorf("eligibility lookup: %w", err))
	}
	if len(eligible) == 0 {
		e.logger.Infof("no eligible %s staff for job %s, skipping offer", job.RequiredRole, job.ID)
		return Skipped(fmt.Sprintf("no eligible staff for role %s", job.RequiredRole))
	}

	now := e.now().UTC()
	offer := model.Offer{
		ID:            uuid.NewString(),
		JobID:         job.ID,
		PropertyID:    job.PropertyID,
		RequiredRole:  job.RequiredRole,
		EligibleStaff: eligible,
		AttemptNumber: req.AttemptNumber,
		Status:        model.OfferOpen,
		CreatedBy:     req.CreatedBy,
		CreatedAt:     now,
		ExpiresAt:     now.Add(e.ttl),
	}
	if err := offer.Validate(); err != nil {
		return Failed(fmt.Errorf("offer validation: %w", err))
	}
	if err := e.store.CreateOpenOffer(ctx, offer); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			e.logger.Warnf("job %s already has an open offer, skipping", job.ID)
			return Skipped("job already has an open offer")
		}
		return Failed(fmt.Errorf("persist offer: %w", err))
	}

	if _, err := e.audit.OfferCreated(ctx, offer); err != nil {
		e.logger.Errorf("offer_created audit event failed: %v", err)
	}
	offersCreated.WithLabelValues(strconv.Itoa(offer.AttemptNumber)).Inc()
	if e.bus != nil {
		e.bus.Publish(events.OfferEvent{Offer: offer, Job: job})
	}
	e.logger.Infof("offer %s created for job %s (attempt %d, %d candidates)",
		offer.ID, job.ID, offer.AttemptNumber, len(eligible))
	return Created(offer.ID)
}

// Offer returns the persisted offer with the given id.
func (e *OfferEngine) Offer(ctx context.Context, id string) (model.Offer, error) {
	return e.store.GetOffer(ctx, id)
}
