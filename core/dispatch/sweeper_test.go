package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/villaops/dispatchd/core/audit"
	"github.com/villaops/dispatchd/core/model"
	"github.com/villaops/dispatchd/core/storage"
	"github.com/villaops/dispatchd/infra/logger"
)

func newTestSweeper(t *testing.T, store *storage.MemoryStore, log *audit.MemoryLog) *Sweeper {
	t.Helper()
	orch := newTestDispatcher(t, store, log)
	sw, err := NewSweeper(store, orch, audit.NewRecorder(log), nil, logger.NopLogger{})
	if err != nil {
		t.Fatalf("NewSweeper: %v", err)
	}
	return sw
}

func seedExpiredOffer(t *testing.T, store *storage.MemoryStore, jobID string, attempt int) model.Offer {
	t.Helper()
	ctx := context.Background()
	job := testJob(jobID, time.Now().Add(4*time.Hour))
	if err := store.PutJob(ctx, job); err != nil {
		t.Fatalf("PutJob: %v", err)
	}
	created := time.Now().UTC().Add(-time.Hour)
	offer := model.Offer{
		ID:            "expired-" + jobID,
		JobID:         jobID,
		PropertyID:    job.PropertyID,
		RequiredRole:  job.RequiredRole,
		EligibleStaff: []string{"s1"},
		AttemptNumber: attempt,
		Status:        model.OfferOpen,
		CreatedBy:     "auto-dispatch",
		CreatedAt:     created,
		ExpiresAt:     created.Add(30 * time.Minute),
	}
	if err := store.CreateOpenOffer(ctx, offer); err != nil {
		t.Fatalf("CreateOpenOffer: %v", err)
	}
	return offer
}

func TestSweepExpiresAndEscalates(t *testing.T) {
	store := storage.NewMemoryStore()
	log := audit.NewMemoryLog()
	sw := newTestSweeper(t, store, log)
	offer := seedExpiredOffer(t, store, "j1", 1)
	ctx := context.Background()

	n, err := sw.SweepOnce(ctx)
	if err != nil {
		t.Fatalf("SweepOnce: %v", err)
	}
	if n != 1 {
		t.Fatalf("expired %d offers, want 1", n)
	}

	got, err := store.GetOffer(ctx, offer.ID)
	if err != nil {
		t.Fatalf("GetOffer: %v", err)
	}
	if got.Status != model.OfferExpired {
		t.Errorf("offer status = %s, want expired", got.Status)
	}

	last, err := store.LastAttempt(ctx, "j1")
	if err != nil {
		t.Fatalf("LastAttempt: %v", err)
	}
	if last != 2 {
		t.Errorf("last attempt = %d, want 2 (escalation offer)", last)
	}

	expiredEvents, err := log.Query(ctx, audit.Query{OfferID: offer.ID, Type: audit.EventOfferExpired})
	if err != nil {
		t.Fatalf("audit query: %v", err)
	}
	if len(expiredEvents) != 1 {
		t.Fatalf("expected 1 offer_expired event, got %d", len(expiredEvents))
	}
	if will, _ := expiredEvents[0].Details["will_escalate"].(bool); !will {
		t.Errorf("will_escalate = false, want true")
	}
}

func TestSweepHandsOffToManualPastMaxAttempts(t *testing.T) {
	store := storage.NewMemoryStore()
	log := audit.NewMemoryLog()
	sw := newTestSweeper(t, store, log)
	offer := seedExpiredOffer(t, store, "j1", 3)
	ctx := context.Background()

	if _, err := sw.SweepOnce(ctx); err != nil {
		t.Fatalf("SweepOnce: %v", err)
	}

	got, err := store.GetOffer(ctx, offer.ID)
	if err != nil {
		t.Fatalf("GetOffer: %v", err)
	}
	if got.Status != model.OfferExpired {
		t.Errorf("offer status = %s, want expired", got.Status)
	}
	// No fourth offer.
	last, err := store.LastAttempt(ctx, "j1")
	if err != nil {
		t.Fatalf("LastAttempt: %v", err)
	}
	if last != 3 {
		t.Errorf("last attempt = %d, want 3", last)
	}

	events, err := log.Query(ctx, audit.Query{JobID: "j1", Type: audit.EventEscalationTriggered})
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

func TestSweepSkipsFreshOffers(t *testing.T) {
	store := storage.NewMemoryStore()
	sw := newTestSweeper(t, store, audit.NewMemoryLog())
	seedOpenOffer(t, store, "j1", "s1")

	n, err := sw.SweepOnce(context.Background())
	if err != nil {
		t.Fatalf("SweepOnce: %v", err)
	}
	if n != 0 {
		t.Errorf("expired %d offers, want 0", n)
	}
}
