package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/villaops/dispatchd/core/audit"
	"github.com/villaops/dispatchd/core/events"
	"github.com/villaops/dispatchd/core/logger"
	"github.com/villaops/dispatchd/core/model"
	"github.com/villaops/dispatchd/core/notify"
	"github.com/villaops/dispatchd/internal/eventbus"
)

// Notifier fans a freshly created offer out to its eligible staff.
type Notifier interface {
	NotifyStaffOfOffer(ctx context.Context, offer model.Offer, job model.Job) notify.BatchResult
}

// AutoDispatcher decides whether a newly created or newly unassigned
// job enters the offer cycle, and escalates expired offers up to the
// configured attempt limit. Guard failures are soft skips; only
// service-level errors surface as Failed results.
type AutoDispatcher struct {
	engine   *OfferEngine
	notifier Notifier
	audit    *audit.Recorder
	bus      eventbus.EventBus
	logger   logger.Logger
	cfg      Config
	now      func() time.Time
}

// NewAutoDispatcher creates the orchestrator. notifier and bus may be
// nil; offers are then created without fan-out or bus events.
func NewAutoDispatcher(engine *OfferEngine, notifier Notifier, rec *audit.Recorder, bus eventbus.EventBus, log logger.Logger, cfg Config) (*AutoDispatcher, error) {
	if engine == nil || rec == nil || log == nil {
		return nil, fmt.Errorf("dispatch: nil parameter provided to NewAutoDispatcher")
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &AutoDispatcher{
		engine:   engine,
		notifier: notifier,
		audit:    rec,
		bus:      bus,
		logger:   log,
		cfg:      cfg,
		now:      time.Now,
	}, nil
}

// ShouldTriggerAutoDispatch is the pure eligibility predicate combining
// every guard: pending status, unassigned, future-scheduled, within the
// dispatch window, with enough notice. The returned reason explains the
// first failing guard.
func (a *AutoDispatcher) ShouldTriggerAutoDispatch(job model.Job, now time.Time) (bool, string) {
	if job.Status != model.JobPending {
		return false, fmt.Sprintf("job status is %s, not pending", job.Status)
	}
	if !job.Unassigned() {
		return false, "job is already assigned"
	}
	notice := job.ScheduledStart.Sub(now)
	if notice < 0 {
		return false, "job is scheduled in the past"
	}
	if notice < a.cfg.MinNotice() {
		return false, fmt.Sprintf("job needs at least %d hours notice before dispatch", a.cfg.MinNoticeHours)
	}
	if notice > a.cfg.Window() {
		return false, fmt.Sprintf("job is scheduled more than %d days out", a.cfg.WindowDays)
	}
	return true, ""
}

// TriggerOfferCreationForNewJob runs the attempt-1 offer cycle for a
// freshly created job. Guard failures return Skipped with the reason.
func (a *AutoDispatcher) TriggerOfferCreationForNewJob(ctx context.Context, job model.Job) Result {
	if ok, reason := a.ShouldTriggerAutoDispatch(job, a.now()); !ok {
		a.logger.Debugf("auto-dispatch skipped for job %s: %s", job.ID, reason)
		return Skipped(reason)
	}
	return a.createAndNotify(ctx, job, 1)
}

// TriggerOfferCreationForUnassignedJob runs the next offer cycle after
// an expiry or staff cancellation put the job back to pending. Past the
// attempt limit it records the escalation and returns Failed with
// ErrManualIntervention instead of creating another offer.
func (a *AutoDispatcher) TriggerOfferCreationForUnassignedJob(ctx context.Context, job model.Job, previousAttempt int) Result {
	if job.Status != model.JobPending || !job.Unassigned() {
		reason := fmt.Sprintf("job status is %s, not pending", job.Status)
		if job.Status == model.JobPending {
			reason = "job is already assigned"
		}
		a.logger.Debugf("re-offer skipped for job %s: %s", job.ID, reason)
		return Skipped(reason)
	}

	next := previousAttempt + 1
	if _, err := a.audit.EscalationTriggered(ctx, job.ID, job.PropertyID, previousAttempt, next, a.cfg.MaxAttempts); err != nil {
		a.logger.Errorf("escalation_triggered audit event failed: %v", err)
	}
	manual := next > a.cfg.MaxAttempts
	if a.bus != nil {
		a.bus.Publish(events.EscalationEvent{
			JobID:          job.ID,
			FromAttempt:    previousAttempt,
			ToAttempt:      next,
			ManualRequired: manual,
		})
	}
	if manual {
		manualEscalations.Inc()
		a.logger.Warnf("job %s exhausted %d offer attempts, manual assignment required", job.ID, a.cfg.MaxAttempts)
		return Failed(fmt.Errorf("%w: job %s exhausted %d offer attempts", ErrManualIntervention, job.ID, a.cfg.MaxAttempts))
	}
	escalations.Inc()
	return a.createAndNotify(ctx, job, next)
}

func (a *AutoDispatcher) createAndNotify(ctx context.Context, job model.Job, attempt int) Result {
	res := a.engine.CreateOffer(ctx, OfferRequest{
		Job:           job,
		AttemptNumber: attempt,
		CreatedBy:     "auto-dispatch",
	})
	if res.Outcome != OutcomeCreated || a.notifier == nil {
		return res
	}
	offer, err := a.engine.Offer(ctx, res.OfferID)
	if err != nil {
		a.logger.Errorf("reload offer %s for fan-out: %v", res.OfferID, err)
		return res
	}
	batch := a.notifier.NotifyStaffOfOffer(ctx, offer, job)
	if len(batch.Failed) > 0 {
		a.logger.Warnf("offer %s: %d of %d notifications failed",
			offer.ID, len(batch.Failed), len(offer.EligibleStaff))
	}
	return res
}

// Config returns the orchestrator's effective configuration.
func (a *AutoDispatcher) Config() Config { return a.cfg }
