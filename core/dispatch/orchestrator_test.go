package dispatch

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/villaops/dispatchd/core/audit"
	"github.com/villaops/dispatchd/core/model"
	"github.com/villaops/dispatchd/core/storage"
	"github.com/villaops/dispatchd/infra/logger"
)

func newTestDispatcher(t *testing.T, store *storage.MemoryStore, log *audit.MemoryLog) *AutoDispatcher {
	t.Helper()
	rec := audit.NewRecorder(log)
	eng, err := NewOfferEngine(store, testRoster("housekeeper", "s1", "s2"), rec, nil, logger.NopLogger{}, 30*time.Minute)
	if err != nil {
		t.Fatalf("NewOfferEngine: %v", err)
	}
	orch, err := NewAutoDispatcher(eng, nil, rec, nil, logger.NopLogger{}, Config{})
	if err != nil {
		t.Fatalf("NewAutoDispatcher: %v", err)
	}
	return orch
}

func TestShouldTriggerAutoDispatchGuards(t *testing.T) {
	orch := newTestDispatcher(t, storage.NewMemoryStore(), audit.NewMemoryLog())
	now := time.Now().UTC()

	cases := []struct {
		name   string
		mutate func(*model.Job)
		ok     bool
		reason string
	}{
		{"eligible", func(j *model.Job) {}, true, ""},
		{"not pending", func(j *model.Job) { j.Status = model.JobAssigned }, false, "not pending"},
		{"already assigned", func(j *model.Job) { j.AssignedStaffID = "s1" }, false, "already assigned"},
		{"in the past", func(j *model.Job) { j.ScheduledStart = now.Add(-time.Hour) }, false, "in the past"},
		{"too little notice", func(j *model.Job) { j.ScheduledStart = now.Add(30 * time.Minute) }, false, "hours notice"},
		{"too far out", func(j *model.Job) { j.ScheduledStart = now.Add(20 * 24 * time.Hour) }, false, "days"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			job := testJob("j1", now.Add(4*time.Hour))
			tc.mutate(&job)
			ok, reason := orch.ShouldTriggerAutoDispatch(job, now)
			if ok != tc.ok {
				t.Fatalf("ok = %v, want %v (reason %q)", ok, tc.ok, reason)
			}
			if !ok && !strings.Contains(reason, tc.reason) {
				t.Errorf("reason = %q, want substring %q", reason, tc.reason)
			}
		})
	}
}

func TestTriggerNewJobCreatesAttemptOne(t *testing.T) {
	store := storage.NewMemoryStore()
	orch := newTestDispatcher(t, store, audit.NewMemoryLog())

	job := testJob("j1", time.Now().Add(4*time.Hour))
	res := orch.TriggerOfferCreationForNewJob(context.Background(), job)
	if res.Outcome != OutcomeCreated {
		t.Fatalf("expected created, got %s (reason %q, err %v)", res.Outcome, res.Reason, res.Err)
	}
	offer, err := store.GetOffer(context.Background(), res.OfferID)
	if err != nil {
		t.Fatalf("GetOffer: %v", err)
	}
	if offer.AttemptNumber != 1 {
		t.Errorf("attempt = %d, want 1", offer.AttemptNumber)
	}
}

func TestTriggerNewJobOutsideWindowSkipped(t *testing.T) {
	orch := newTestDispatcher(t, storage.NewMemoryStore(), audit.NewMemoryLog())

	job := testJob("j1", time.Now().Add(30*24*time.Hour))
	res := orch.TriggerOfferCreationForNewJob(context.Background(), job)
	if res.Outcome != OutcomeSkipped {
		t.Fatalf("expected skipped, got %s", res.Outcome)
	}
	if !strings.Contains(res.Reason, "days") {
		t.Errorf("reason = %q, want dispatch-window explanation", res.Reason)
	}
}

func TestEscalationIncrementsAttempt(t *testing.T) {
	store := storage.NewMemoryStore()
	log := audit.NewMemoryLog()
	orch := newTestDispatcher(t, store, log)

	job := testJob("j1", time.Now().Add(4*time.Hour))
	res := orch.TriggerOfferCreationForUnassignedJob(context.Background(), job, 1)
	if res.Outcome != OutcomeCreated {
		t.Fatalf("expected created, got %s (reason %q, err %v)", res.Outcome, res.Reason, res.Err)
	}
	offer, err := store.GetOffer(context.Background(), res.OfferID)
	if err != nil {
		t.Fatalf("GetOffer: %v", err)
	}
	if offer.AttemptNumber != 2 {
		t.Errorf("attempt = %d, want 2", offer.AttemptNumber)
	}

	events, err := log.Query(context.Background(), audit.Query{JobID: job.ID, Type: audit.EventEscalationTriggered})
	if err != nil {
		t.Fatalf("audit query: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 escalation_triggered event, got %d", len(events))
	}
	if manual, _ := events[0].Details["manual_required"].(bool); manual {
		t.Errorf("manual_required = true, want false")
	}
}

func TestEscalationExhaustedRequiresManual(t *testing.T) {
	store := storage.NewMemoryStore()
	log := audit.NewMemoryLog()
	orch := newTestDispatcher(t, store, log)

	job := testJob("j1", time.Now().Add(4*time.Hour))
	res := orch.TriggerOfferCreationForUnassignedJob(context.Background(), job, orch.Config().MaxAttempts)
	if res.Outcome != OutcomeFailed {
		t.Fatalf("expected failed, got %s", res.Outcome)
	}
	if !errors.Is(res.Err, ErrManualIntervention) {
		t.Fatalf("err = %v, want ErrManualIntervention", res.Err)
	}
	n, err := store.LastAttempt(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("LastAttempt: %v", err)
	}
	if n != 0 {
		t.Errorf("an offer was created past the attempt limit (attempt %d)", n)
	}

	events, err := log.Query(context.Background(), audit.Query{JobID: job.ID, Type: audit.EventEscalationTriggered})
	if err != nil {
		t.Fatalf("audit query: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 escalation_triggered event, got %d", len(events))
	}
	if manual, _ := events[0].Details["manual_required"].(bool); !manual {
		t.Errorf("manual_required = false, want true")
	}
}

func TestEscalationSkippedWhenJobNoLongerPending(t *testing.T) {
	orch := newTestDispatcher(t, storage.NewMemoryStore(), audit.NewMemoryLog())

	job := testJob("j1", time.Now().Add(4*time.Hour))
	job.Status = model.JobAssigned
	job.AssignedStaffID = "s1"
	res := orch.TriggerOfferCreationForUnassignedJob(context.Background(), job, 1)
	if res.Outcome != OutcomeSkipped {
		t.Fatalf("expected skipped, got %s", res.Outcome)
	}
}
