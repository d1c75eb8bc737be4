package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/villaops/dispatchd/core/audit"
	"github.com/villaops/dispatchd/core/events"
	"github.com/villaops/dispatchd/core/logger"
	"github.com/villaops/dispatchd/core/model"
	"github.com/villaops/dispatchd/core/storage"
	"github.com/villaops/dispatchd/internal/eventbus"
)

// Sweeper expires open offers whose TTL has elapsed and hands the
// affected jobs back to the orchestrator for the next attempt.
type Sweeper struct {
	store  storage.Store
	orch   *AutoDispatcher
	audit  *audit.Recorder
	bus    eventbus.EventBus
	logger logger.Logger
	now    func() time.Time
}

// NewSweeper creates a Sweeper. The event bus may be nil.
func NewSweeper(store storage.Store, orch *AutoDispatcher, rec *audit.Recorder, bus eventbus.EventBus, log logger.Logger) (*Sweeper, error) {
	if store == nil || orch == nil || rec == nil || log == nil {
		return nil, fmt.Errorf("dispatch: nil parameter provided to NewSweeper")
	}
	return &Sweeper{store: store, orch: orch, audit: rec, bus: bus, logger: log, now: time.Now}, nil
}

// Run sweeps at the configured interval until the context is canceled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.orch.Config().SweepInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n, err := s.SweepOnce(ctx); err != nil {
				s.logger.Errorf("expiry sweep: %v", err)
			} else if n > 0 {
				s.logger.Infof("expired %d offers", n)
			}
		case <-ctx.Done():
			return
		}
	}
}

// SweepOnce expires all due offers and triggers escalation for each.
// It returns the number of offers expired.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	due, err := s.store.DueOffers(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("list due offers: %w", err)
	}
	expired := 0
	for _, offer := range due {
		if err := s.expire(ctx, offer); err != nil {
			s.logger.Errorf("expire offer %s: %v", offer.ID, err)
			continue
		}
		expired++
	}
	return expired, nil
}

func (s *Sweeper) expire(ctx context.Context, offer model.Offer) error {
	if err := s.store.TransitionOffer(ctx, offer.ID, model.OfferOpen, model.OfferExpired, ""); err != nil {
		// A racing acceptance beat the sweep; nothing to do.
		if errors.Is(err, storage.ErrConflict) {
			return nil
		}
		return err
	}
	offer.Status = model.OfferExpired
	offersExpired.Inc()

	willEscalate := offer.AttemptNumber < s.orch.Config().MaxAttempts
	if _, err := s.audit.OfferExpired(ctx, offer, willEscalate); err != nil {
		s.logger.Errorf("offer_expired audit event failed: %v", err)
	}
	if s.bus != nil {
		s.bus.Publish(events.ExpiryEvent{
			OfferID:      offer.ID,
			JobID:        offer.JobID,
			Attempt:      offer.AttemptNumber,
			WillEscalate: willEscalate,
		})
	}

	job, err := s.store.GetJob(ctx, offer.JobID)
	if err != nil {
		return fmt.Errorf("load job %s: %w", offer.JobID, err)
	}
	res := s.orch.TriggerOfferCreationForUnassignedJob(ctx, job, offer.AttemptNumber)
	switch res.Outcome {
	case OutcomeFailed:
		if errors.Is(res.Err, ErrManualIntervention) {
			s.logger.Warnf("job %s flagged for manual assignment", job.ID)
			return nil
		}
		return res.Err
	case OutcomeSkipped:
		s.logger.Debugf("escalation skipped for job %s: %s", job.ID, res.Reason)
	}
	return nil
}
