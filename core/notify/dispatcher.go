// Package notify fans offers out to their eligible staff as in-app
// notification records plus best-effort push messages.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/villaops/dispatchd/core/audit"
	"github.com/villaops/dispatchd/core/logger"
	"github.com/villaops/dispatchd/core/model"
	"github.com/villaops/dispatchd/core/push"
	"github.com/villaops/dispatchd/core/storage"
)

// BatchResult reports which staff were notified for an offer. Per-staff
// failures are collected, not fatal to the batch.
type BatchResult struct {
	Notified []string `json:"notified"`
	Failed   []string `json:"failed"`
}

// Dispatcher writes per-staff notification records and pushes alerts.
// It is not idempotent: re-invoking for the same offer creates
// duplicate records, so callers must call it once per offer.
type Dispatcher struct {
	store  storage.NotificationStore
	push   push.Client
	audit  *audit.Recorder
	logger logger.Logger
	now    func() time.Time
}

// NewDispatcher creates a Dispatcher. The push client may be nil when
// no push transport is configured.
func NewDispatcher(store storage.NotificationStore, pc push.Client, rec *audit.Recorder, log logger.Logger) *Dispatcher {
	return &Dispatcher{store: store, push: pc, audit: rec, logger: log, now: time.Now}
}

// NotifyStaffOfOffer delivers the offer to every eligible staff member.
// The in-app record is written first; push delivery failures are logged
// and never fail the record. One offer_notified audit event is emitted
// per batch, listing the successfully notified staff.
func (d *Dispatcher) NotifyStaffOfOffer(ctx context.Context, offer model.Offer, job model.Job) BatchResult {
	var res BatchResult
	now := d.now().UTC()
	title, body := composeMessage(offer, job, now)
	deepLink := fmt.Sprintf("villaops://offers/%s", offer.ID)

	for _, staffID := range offer.EligibleStaff {
		n := model.OfferNotification{
			ID:         uuid.NewString(),
			StaffID:    staffID,
			OfferID:    offer.ID,
			JobID:      offer.JobID,
			PropertyID: offer.PropertyID,
			Title:      title,
			Body:       body,
			DeepLink:   deepLink,
			Status:     model.NotificationSent,
			SentAt:     now,
		}
		if err := d.store.AddNotification(ctx, n); err != nil {
			d.logger.Errorf("notification record for %s failed: %v", staffID, err)
			notificationsFailed.Inc()
			res.Failed = append(res.Failed, staffID)
			continue
		}
		notificationsSent.Inc()
		res.Notified = append(res.Notified, staffID)

		if d.push == nil {
			continue
		}
		msg := push.Message{Title: title, Body: body, DeepLink: deepLink, OfferID: offer.ID, JobID: offer.JobID}
		if _, err := d.push.Push(ctx, staffID, msg); err != nil {
			pushFailure.Inc()
			d.logger.Warnf("push to %s failed: %v", staffID, err)
		} else {
			pushSuccess.Inc()
		}
	}

	if d.audit != nil && len(res.Notified) > 0 {
		if _, err := d.audit.OfferNotified(ctx, offer, res.Notified); err != nil {
			d.logger.Errorf("offer_notified audit event failed: %v", err)
		}
	}
	return res
}

// composeMessage renders the notification title and body from the offer
// metadata. Escalated offers carry a siren marker so staff can spot
// re-offers at a glance.
func composeMessage(offer model.Offer, job model.Job, now time.Time) (string, string) {
	title := fmt.Sprintf("New job offer: %s at %s", offer.RequiredRole, offer.PropertyID)
	if offer.AttemptNumber > 1 {
		title = "🚨 " + title
	}

	dur := job.EstimatedDuration
	if dur <= 0 {
		dur = time.Hour
	}
	body := fmt.Sprintf("%s job, est. %s", job.Type, dur.Round(time.Minute))
	if job.PayoutAmount > 0 {
		body += fmt.Sprintf(", payout %.2f", job.PayoutAmount)
	}
	if remaining := offer.TimeRemaining(now); remaining > 0 {
		body += fmt.Sprintf(", respond within %s", remaining.Round(time.Minute))
	}
	return title, body
}
