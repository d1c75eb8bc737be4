package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/villaops/dispatchd/core/model"
)

func openStores(t *testing.T) map[string]Store {
	t.Helper()
	sqlite, err := NewSQLiteStore(filepath.Join(t.TempDir(), "dispatchd.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() {
		if err := sqlite.Close(); err != nil {
			t.Errorf("close sqlite store: %v", err)
		}
	})
	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sqlite,
	}
}

func storedJob(id string) model.Job {
	now := time.Now().UTC()
	return model.Job{
		ID:             id,
		Type:           model.JobCleaning,
		Status:         model.JobPending,
		Priority:       model.PriorityMedium,
		PropertyID:     "villa-1",
		RequiredRole:   "housekeeper",
		ScheduledStart: now.Add(4 * time.Hour),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func storedOffer(id, jobID string, status model.OfferStatus) model.Offer {
	now := time.Now().UTC()
	return model.Offer{
		ID:            id,
		JobID:         jobID,
		PropertyID:    "villa-1",
		RequiredRole:  "housekeeper",
		EligibleStaff: []string{"s1", "s2"},
		AttemptNumber: 1,
		Status:        status,
		CreatedAt:     now,
		ExpiresAt:     now.Add(30 * time.Minute),
	}
}

func TestTransitionJobConditional(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := store.PutJob(ctx, storedJob("j1")); err != nil {
				t.Fatalf("PutJob: %v", err)
			}

			if err := store.TransitionJob(ctx, "j1", model.JobPending, model.JobAssigned, "s1"); err != nil {
				t.Fatalf("transition: %v", err)
			}
			job, err := store.GetJob(ctx, "j1")
			if err != nil {
				t.Fatalf("GetJob: %v", err)
			}
			if job.Status != model.JobAssigned || job.AssignedStaffID != "s1" {
				t.Errorf("job = %s/%s, want assigned/s1", job.Status, job.AssignedStaffID)
			}

			// The precondition no longer holds.
			err = store.TransitionJob(ctx, "j1", model.JobPending, model.JobAssigned, "s2")
			if !errors.Is(err, ErrConflict) {
				t.Fatalf("stale transition err = %v, want ErrConflict", err)
			}
			job, _ = store.GetJob(ctx, "j1")
			if job.AssignedStaffID != "s1" {
				t.Errorf("losing transition overwrote the assignee: %s", job.AssignedStaffID)
			}

			err = store.TransitionJob(ctx, "missing", model.JobPending, model.JobAssigned, "")
			if !errors.Is(err, ErrNotFound) {
				t.Errorf("missing job err = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestCreateOpenOfferEnforcesSingleOpen(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := store.CreateOpenOffer(ctx, storedOffer("o1", "j1", model.OfferOpen)); err != nil {
				t.Fatalf("first offer: %v", err)
			}
			err := store.CreateOpenOffer(ctx, storedOffer("o2", "j1", model.OfferOpen))
			if !errors.Is(err, ErrConflict) {
				t.Fatalf("second open offer err = %v, want ErrConflict", err)
			}

			// Closing the first offer frees the slot.
			if err := store.TransitionOffer(ctx, "o1", model.OfferOpen, model.OfferExpired, ""); err != nil {
				t.Fatalf("expire first offer: %v", err)
			}
			next := storedOffer("o3", "j1", model.OfferOpen)
			next.AttemptNumber = 2
			if err := store.CreateOpenOffer(ctx, next); err != nil {
				t.Fatalf("offer after close: %v", err)
			}

			last, err := store.LastAttempt(ctx, "j1")
			if err != nil {
				t.Fatalf("LastAttempt: %v", err)
			}
			if last != 2 {
				t.Errorf("last attempt = %d, want 2", last)
			}
		})
	}
}

func TestTransitionOfferConditional(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := store.CreateOpenOffer(ctx, storedOffer("o1", "j1", model.OfferOpen)); err != nil {
				t.Fatalf("CreateOpenOffer: %v", err)
			}

			if err := store.TransitionOffer(ctx, "o1", model.OfferOpen, model.OfferAccepted, "s1"); err != nil {
				t.Fatalf("accept: %v", err)
			}
			err := store.TransitionOffer(ctx, "o1", model.OfferOpen, model.OfferAccepted, "s2")
			if !errors.Is(err, ErrConflict) {
				t.Fatalf("second accept err = %v, want ErrConflict", err)
			}
			offer, err := store.GetOffer(ctx, "o1")
			if err != nil {
				t.Fatalf("GetOffer: %v", err)
			}
			if offer.AcceptedBy != "s1" {
				t.Errorf("accepted by %s, want s1", offer.AcceptedBy)
			}
		})
	}
}

func TestDueOffers(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			now := time.Now().UTC()

			due := storedOffer("due", "j1", model.OfferOpen)
			due.ExpiresAt = now.Add(-time.Minute)
			fresh := storedOffer("fresh", "j2", model.OfferOpen)
			closed := storedOffer("closed", "j3", model.OfferExpired)
			closed.ExpiresAt = now.Add(-time.Hour)
			for _, o := range []model.Offer{due, fresh, closed} {
				if err := store.CreateOpenOffer(ctx, o); err != nil {
					t.Fatalf("CreateOpenOffer %s: %v", o.ID, err)
				}
			}

			got, err := store.DueOffers(ctx, now)
			if err != nil {
				t.Fatalf("DueOffers: %v", err)
			}
			if len(got) != 1 || got[0].ID != "due" {
				t.Errorf("due offers = %v, want just 'due'", got)
			}
		})
	}
}

func TestNotificationLifecycle(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			sent := time.Now().UTC()
			for i, staffID := range []string{"s1", "s2", "s3"} {
				n := model.OfferNotification{
					ID:      "n" + staffID,
					StaffID: staffID,
					OfferID: "o1",
					JobID:   "j1",
					Status:  model.NotificationSent,
					SentAt:  sent.Add(time.Duration(i) * time.Millisecond),
				}
				if err := store.AddNotification(ctx, n); err != nil {
					t.Fatalf("AddNotification: %v", err)
				}
			}

			count, err := store.SupersedeOffer(ctx, "o1", "s2")
			if err != nil {
				t.Fatalf("SupersedeOffer: %v", err)
			}
			if count != 2 {
				t.Errorf("superseded %d notifications, want 2", count)
			}
			winner, err := store.NotificationsForStaff(ctx, "s2", sent.Add(-time.Second))
			if err != nil {
				t.Fatalf("NotificationsForStaff: %v", err)
			}
			if len(winner) != 1 || winner[0].Status != model.NotificationSent {
				t.Errorf("winner notification = %+v, want status sent", winner)
			}

			readAt := sent.Add(time.Minute)
			if err := store.MarkRead(ctx, "ns2", readAt); err != nil {
				t.Fatalf("MarkRead: %v", err)
			}
			winner, _ = store.NotificationsForStaff(ctx, "s2", sent.Add(-time.Second))
			if winner[0].Status != model.NotificationRead || winner[0].ReadAt == nil {
				t.Errorf("read notification = %+v, want status read with timestamp", winner[0])
			}

			if err := store.MarkRead(ctx, "missing", readAt); !errors.Is(err, ErrNotFound) {
				t.Errorf("MarkRead missing err = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestJobsUpdatedSince(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			old := storedJob("old")
			old.UpdatedAt = time.Now().UTC().Add(-time.Hour)
			recent := storedJob("recent")
			for _, j := range []model.Job{old, recent} {
				if err := store.PutJob(ctx, j); err != nil {
					t.Fatalf("PutJob: %v", err)
				}
			}

			got, err := store.JobsUpdatedSince(ctx, time.Now().UTC().Add(-time.Minute))
			if err != nil {
				t.Fatalf("JobsUpdatedSince: %v", err)
			}
			if len(got) != 1 || got[0].ID != "recent" {
				t.Errorf("updated jobs = %v, want just 'recent'", got)
			}
		})
	}
}

func TestOpenJobCount(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			assigned := storedJob("a")
			assigned.Status = model.JobAssigned
			assigned.AssignedStaffID = "s1"
			done := storedJob("d")
			done.Status = model.JobCompleted
			done.AssignedStaffID = "s1"
			other := storedJob("o")
			other.Status = model.JobInProgress
			other.AssignedStaffID = "s2"
			for _, j := range []model.Job{assigned, done, other} {
				if err := store.PutJob(ctx, j); err != nil {
					t.Fatalf("PutJob: %v", err)
				}
			}

			n, err := store.OpenJobCount(ctx, "s1")
			if err != nil {
				t.Fatalf("OpenJobCount: %v", err)
			}
			if n != 1 {
				t.Errorf("open jobs for s1 = %d, want 1", n)
			}
		})
	}
}
