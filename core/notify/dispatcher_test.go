package notify

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/villaops/dispatchd/core/audit"
	"github.com/villaops/dispatchd/core/model"
	"github.com/villaops/dispatchd/core/storage"
	"github.com/villaops/dispatchd/infra/logger"
	"github.com/villaops/dispatchd/infra/push"
)

// failingStore rejects notification writes for the listed staff ids.
type failingStore struct {
	*storage.MemoryStore
	failFor map[string]bool
}

func (f *failingStore) AddNotification(ctx context.Context, n model.OfferNotification) error {
	if f.failFor[n.StaffID] {
		return fmt.Errorf("write rejected for %s", n.StaffID)
	}
	return f.MemoryStore.AddNotification(ctx, n)
}

func testOffer(staff ...string) (model.Offer, model.Job) {
	now := time.Now().UTC()
	job := model.Job{
		ID:                "j1",
		Type:              model.JobCleaning,
		Status:            model.JobPending,
		PropertyID:        "villa-1",
		RequiredRole:      "housekeeper",
		ScheduledStart:    now.Add(4 * time.Hour),
		EstimatedDuration: 90 * time.Minute,
		PayoutAmount:      45,
	}
	offer := model.Offer{
		ID:            "o1",
		JobID:         job.ID,
		PropertyID:    job.PropertyID,
		RequiredRole:  job.RequiredRole,
		EligibleStaff: staff,
		AttemptNumber: 1,
		Status:        model.OfferOpen,
		CreatedAt:     now,
		ExpiresAt:     now.Add(30 * time.Minute),
	}
	return offer, job
}

func TestNotifyStaffOfOffer(t *testing.T) {
	store := storage.NewMemoryStore()
	log := audit.NewMemoryLog()
	pc := push.NewMockClient()
	d := NewDispatcher(store, pc, audit.NewRecorder(log), logger.NopLogger{})

	offer, job := testOffer("s1", "s2")
	res := d.NotifyStaffOfOffer(context.Background(), offer, job)
	if len(res.Notified) != 2 || len(res.Failed) != 0 {
		t.Fatalf("notified %v failed %v, want 2/0", res.Notified, res.Failed)
	}

	for _, staffID := range offer.EligibleStaff {
		notifs, err := store.NotificationsForStaff(context.Background(), staffID, time.Time{})
		if err != nil {
			t.Fatalf("NotificationsForStaff: %v", err)
		}
		if len(notifs) != 1 {
			t.Fatalf("staff %s has %d notifications, want 1", staffID, len(notifs))
		}
		n := notifs[0]
		if n.Status != model.NotificationSent {
			t.Errorf("status = %s, want sent", n.Status)
		}
		if n.DeepLink != "villaops://offers/o1" {
			t.Errorf("deep link = %s", n.DeepLink)
		}
		if len(pc.Messages[staffID]) != 1 {
			t.Errorf("staff %s got %d push messages, want 1", staffID, len(pc.Messages[staffID]))
		}
	}

	events, err := log.Query(context.Background(), audit.Query{OfferID: offer.ID, Type: audit.EventOfferNotified})
	if err != nil {
		t.Fatalf("audit query: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 offer_notified event, got %d", len(events))
	}
	notified, _ := events[0].Details["notified_staff"].([]string)
	if len(notified) != 2 {
		t.Errorf("notified_staff = %v, want 2 ids", events[0].Details["notified_staff"])
	}
}

func TestNotifyCollectsPerStaffFailures(t *testing.T) {
	store := &failingStore{MemoryStore: storage.NewMemoryStore(), failFor: map[string]bool{"s2": true}}
	log := audit.NewMemoryLog()
	d := NewDispatcher(store, nil, audit.NewRecorder(log), logger.NopLogger{})

	offer, job := testOffer("s1", "s2", "s3")
	res := d.NotifyStaffOfOffer(context.Background(), offer, job)
	if len(res.Notified) != 2 {
		t.Errorf("notified = %v, want s1 and s3", res.Notified)
	}
	if len(res.Failed) != 1 || res.Failed[0] != "s2" {
		t.Errorf("failed = %v, want [s2]", res.Failed)
	}

	events, err := log.Query(context.Background(), audit.Query{OfferID: offer.ID, Type: audit.EventOfferNotified})
	if err != nil {
		t.Fatalf("audit query: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 offer_notified event, got %d", len(events))
	}
	notified, _ := events[0].Details["notified_staff"].([]string)
	if len(notified) != 2 {
		t.Errorf("notified_staff lists %v, want the 2 successes", events[0].Details["notified_staff"])
	}
}

func TestNotifyPushFailureDoesNotFailRecord(t *testing.T) {
	store := storage.NewMemoryStore()
	pc := push.NewMockClient()
	pc.FailIDs["s1"] = true
	d := NewDispatcher(store, pc, audit.NewRecorder(audit.NewMemoryLog()), logger.NopLogger{})

	offer, job := testOffer("s1")
	res := d.NotifyStaffOfOffer(context.Background(), offer, job)
	if len(res.Notified) != 1 || len(res.Failed) != 0 {
		t.Fatalf("notified %v failed %v, want the in-app record to survive a push failure", res.Notified, res.Failed)
	}
}

func TestNotifyEscalationMarker(t *testing.T) {
	store := storage.NewMemoryStore()
	d := NewDispatcher(store, nil, audit.NewRecorder(audit.NewMemoryLog()), logger.NopLogger{})

	offer, job := testOffer("s1")
	offer.AttemptNumber = 2
	d.NotifyStaffOfOffer(context.Background(), offer, job)

	notifs, err := store.NotificationsForStaff(context.Background(), "s1", time.Time{})
	if err != nil {
		t.Fatalf("NotificationsForStaff: %v", err)
	}
	if len(notifs) != 1 {
		t.Fatalf("got %d notifications, want 1", len(notifs))
	}
	if !strings.HasPrefix(notifs[0].Title, "🚨") {
		t.Errorf("title = %q, want escalation marker prefix", notifs[0].Title)
	}
	if !strings.Contains(notifs[0].Body, "payout") {
		t.Errorf("body = %q, want payout mention", notifs[0].Body)
	}
}
