package metrics

import (
	"context"
	"time"

	"github.com/villaops/dispatchd/core/events"
	coremetrics "github.com/villaops/dispatchd/core/metrics"
	"github.com/villaops/dispatchd/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and forwards offer
// lifecycle events to the sink. It stops when the context is canceled.
func StartEventCollector(ctx context.Context, bus eventbus.EventBus, sink coremetrics.Sink) {
	if bus == nil || sink == nil {
		return
	}
	sub := bus.Subscribe()
	go func() {
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if rec, ok := toRecord(ev); ok {
					_ = sink.RecordOfferCycle([]coremetrics.OfferCycleRecord{rec})
				}
			}
		}
	}()
}

func toRecord(ev eventbus.Event) (coremetrics.OfferCycleRecord, bool) {
	now := time.Now()
	switch e := ev.(type) {
	case events.OfferEvent:
		return coremetrics.OfferCycleRecord{
			Event:      "created",
			JobID:      e.Offer.JobID,
			OfferID:    e.Offer.ID,
			PropertyID: e.Offer.PropertyID,
			Role:       e.Offer.RequiredRole,
			Attempt:    e.Offer.AttemptNumber,
			StaffCount: len(e.Offer.EligibleStaff),
			Time:       now,
		}, true
	case events.AcceptanceEvent:
		return coremetrics.OfferCycleRecord{
			Event:      "accepted",
			JobID:      e.JobID,
			OfferID:    e.OfferID,
			Attempt:    e.Attempt,
			StaffID:    e.StaffID,
			LatencySec: e.Latency.Seconds(),
			Time:       now,
		}, true
	case events.ExpiryEvent:
		return coremetrics.OfferCycleRecord{
			Event:   "expired",
			JobID:   e.JobID,
			OfferID: e.OfferID,
			Attempt: e.Attempt,
			Time:    now,
		}, true
	case events.EscalationEvent:
		return coremetrics.OfferCycleRecord{
			Event:   "escalated",
			JobID:   e.JobID,
			Attempt: e.ToAttempt,
			Time:    now,
		}, true
	default:
		return coremetrics.OfferCycleRecord{}, false
	}
}
