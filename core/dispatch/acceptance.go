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

var (
	// ErrNotEligible is returned when the accepting staff member was not
	// on the offer's eligible list.
	ErrNotEligible = errors.New("dispatch: staff not eligible for offer")
	// ErrOfferClosed is returned when the offer was already accepted,
	// expired or cancelled.
	ErrOfferClosed = errors.New("dispatch: offer no longer open")
)

// Acceptor handles staff responses to offers. The first acceptance wins
// through compare-and-set transitions on the offer and the job; losing
// staff's notifications are marked superseded so client apps can drop
// the stale offer from their inbox.
type Acceptor struct {
	store  storage.Store
	audit  *audit.Recorder
	bus    eventbus.EventBus
	logger logger.Logger
	now    func() time.Time
}

// NewAcceptor creates an Acceptor. The event bus may be nil.
func NewAcceptor(store storage.Store, rec *audit.Recorder, bus eventbus.EventBus, log logger.Logger) (*Acceptor, error) {
	if store == nil || rec == nil || log == nil {
		return nil, fmt.Errorf("dispatch: nil parameter provided to NewAcceptor")
	}
	return &Acceptor{store: store, audit: rec, bus: bus, logger: log, now: time.Now}, nil
}

// Accept records the staff member's acceptance of the offer. On success
// the offer is accepted, the job assigned, offer_accepted and
// job_assigned audit events recorded and the other staff's
// notifications superseded.
func (ac *Acceptor) Accept(ctx context.Context, offerID, staffID string) (model.Offer, error) {
	offer, err := ac.store.GetOffer(ctx, offerID)
	if err != nil {
		return model.Offer{}, err
	}
	if !contains(offer.EligibleStaff, staffID) {
		return model.Offer{}, ErrNotEligible
	}

	if err := ac.store.TransitionOffer(ctx, offerID, model.OfferOpen, model.OfferAccepted, staffID); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return model.Offer{}, ErrOfferClosed
		}
		return model.Offer{}, err
	}
	if err := ac.store.TransitionJob(ctx, offer.JobID, model.JobPending, model.JobAssigned, staffID); err != nil {
		// The job left pending under us (manual override or
		// cancellation). Reopen the offer so state stays consistent.
		if rerr := ac.store.TransitionOffer(ctx, offerID, model.OfferAccepted, model.OfferOpen, ""); rerr != nil {
			ac.logger.Errorf("reopen offer %s after job conflict: %v", offerID, rerr)
		}
		if errors.Is(err, storage.ErrConflict) {
			return model.Offer{}, ErrOfferClosed
		}
		return model.Offer{}, err
	}

	offer.Status = model.OfferAccepted
	offer.AcceptedBy = staffID

	if _, err := ac.audit.OfferAccepted(ctx, offer, staffID); err != nil {
		ac.logger.Errorf("offer_accepted audit event failed: %v", err)
	}
	if _, err := ac.audit.JobAssigned(ctx, offer.JobID, offer.PropertyID, staffID, "offer_acceptance"); err != nil {
		ac.logger.Errorf("job_assigned audit event failed: %v", err)
	}
	if n, err := ac.store.SupersedeOffer(ctx, offerID, staffID); err != nil {
		ac.logger.Errorf("supersede notifications for offer %s: %v", offerID, err)
	} else if n > 0 {
		ac.logger.Debugf("superseded %d notifications for offer %s", n, offerID)
	}

	latency := ac.now().Sub(offer.CreatedAt)
	offersAccepted.Inc()
	acceptanceLatency.Observe(latency.Seconds())
	if ac.bus != nil {
		ac.bus.Publish(events.AcceptanceEvent{
			OfferID: offerID,
			JobID:   offer.JobID,
			StaffID: staffID,
			Attempt: offer.AttemptNumber,
			Latency: latency,
		})
	}
	ac.logger.Infof("offer %s accepted by %s after %s", offerID, staffID, latency.Round(time.Second))
	return offer, nil
}

// Cancel closes an open offer administratively and records the reason.
func (ac *Acceptor) Cancel(ctx context.Context, offerID, actor, reason string) error {
	offer, err := ac.store.GetOffer(ctx, offerID)
	if err != nil {
		return err
	}
	if err := ac.store.TransitionOffer(ctx, offerID, model.OfferOpen, model.OfferCancelled, ""); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return ErrOfferClosed
		}
		return err
	}
	if _, err := ac.audit.OfferCancelled(ctx, offer, actor, reason); err != nil {
		ac.logger.Errorf("offer_cancelled audit event failed: %v", err)
	}
	return nil
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
