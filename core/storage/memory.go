package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/villaops/dispatchd/core/model"
)

// MemoryStore is an in-memory Store used in tests.
type MemoryStore struct {
	mu            sync.Mutex
	jobs          map[string]model.Job
	offers        map[string]model.Offer
	notifications map[string]model.OfferNotification
	notifOrder    []string
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs:          make(map[string]model.Job),
		offers:        make(map[string]model.Offer),
		notifications: make(map[string]model.OfferNotification),
	}
}

// PutJob inserts or replaces the job.
func (m *MemoryStore) PutJob(_ context.Context, j model.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j.UpdatedAt.IsZero() {
		j.UpdatedAt = time.Now().UTC()
	}
	m.jobs[j.ID] = j
	return nil
}

// GetJob returns the job with the given id.
func (m *MemoryStore) GetJob(_ context.Context, id string) (model.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return model.Job{}, ErrNotFound
	}
	return j, nil
}

// TransitionJob implements the conditional status transition.
func (m *MemoryStore) TransitionJob(_ context.Context, id string, from, to model.JobStatus, assignee string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return ErrNotFound
	}
	if j.Status != from {
		return ErrConflict
	}
	j.Status = to
	if assignee != "" {
		j.AssignedStaffID = assignee
	}
	j.UpdatedAt = time.Now().UTC()
	m.jobs[id] = j
	return nil
}

// ListJobs returns all jobs.
func (m *MemoryStore) ListJobs(_ context.Context) ([]model.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res := make([]model.Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		res = append(res, j)
	}
	sort.Slice(res, func(i, k int) bool { return res[i].UpdatedAt.Before(res[k].UpdatedAt) })
	return res, nil
}

// JobsUpdatedSince returns jobs modified after the given instant.
func (m *MemoryStore) JobsUpdatedSince(_ context.Context, since time.Time) ([]model.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []model.Job
	for _, j := range m.jobs {
		if j.UpdatedAt.After(since) {
			res = append(res, j)
		}
	}
	sort.Slice(res, func(i, k int) bool { return res[i].UpdatedAt.Before(res[k].UpdatedAt) })
	return res, nil
}

// OpenJobCount counts non-terminal jobs assigned to the staff member.
func (m *MemoryStore) OpenJobCount(_ context.Context, staffID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, j := range m.jobs {
		if j.AssignedStaffID == staffID && !j.Status.Terminal() {
			n++
		}
	}
	return n, nil
}

// CreateOpenOffer inserts the offer unless the job already has one open.
func (m *MemoryStore) CreateOpenOffer(_ context.Context, o model.Offer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.offers {
		if e.JobID == o.JobID && e.Status == model.OfferOpen {
			return ErrConflict
		}
	}
	m.offers[o.ID] = o
	return nil
}

// GetOffer returns the offer with the given id.
func (m *MemoryStore) GetOffer(_ context.Context, id string) (model.Offer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.offers[id]
	if !ok {
		return model.Offer{}, ErrNotFound
	}
	return o, nil
}

// TransitionOffer implements the conditional status transition.
func (m *MemoryStore) TransitionOffer(_ context.Context, id string, from, to model.OfferStatus, acceptedBy string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.offers[id]
	if !ok {
		return ErrNotFound
	}
	if o.Status != from {
		return ErrConflict
	}
	o.Status = to
	if acceptedBy != "" {
		o.AcceptedBy = acceptedBy
	}
	m.offers[id] = o
	return nil
}

// DueOffers returns open offers past their expiry.
func (m *MemoryStore) DueOffers(_ context.Context, now time.Time) ([]model.Offer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []model.Offer
	for _, o := range m.offers {
		if o.Status == model.OfferOpen && !o.ExpiresAt.After(now) {
			res = append(res, o)
		}
	}
	sort.Slice(res, func(i, k int) bool { return res[i].ExpiresAt.Before(res[k].ExpiresAt) })
	return res, nil
}

// LastAttempt returns the highest attempt number recorded for the job.
func (m *MemoryStore) LastAttempt(_ context.Context, jobID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	max := 0
	for _, o := range m.offers {
		if o.JobID == jobID && o.AttemptNumber > max {
			max = o.AttemptNumber
		}
	}
	return max, nil
}

// AddNotification appends a notification record.
func (m *MemoryStore) AddNotification(_ context.Context, n model.OfferNotification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications[n.ID] = n
	m.notifOrder = append(m.notifOrder, n.ID)
	return nil
}

// MarkRead records the read timestamp on a notification.
func (m *MemoryStore) MarkRead(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notifications[id]
	if !ok {
		return ErrNotFound
	}
	n.Status = model.NotificationRead
	t := at
	n.ReadAt = &t
	m.notifications[id] = n
	return nil
}

// SupersedeOffer marks the losing staff's notifications superseded.
func (m *MemoryStore) SupersedeOffer(_ context.Context, offerID, winnerStaffID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for id, n := range m.notifications {
		if n.OfferID == offerID && n.StaffID != winnerStaffID && n.Status != model.NotificationSuperseded {
			n.Status = model.NotificationSuperseded
			m.notifications[id] = n
			count++
		}
	}
	return count, nil
}

// NotificationsForStaff returns notifications sent to the staff member
// after the given instant, in send order.
func (m *MemoryStore) NotificationsForStaff(_ context.Context, staffID string, since time.Time) ([]model.OfferNotification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []model.OfferNotification
	for _, id := range m.notifOrder {
		n := m.notifications[id]
		if n.StaffID == staffID && n.SentAt.After(since) {
			res = append(res, n)
		}
	}
	return res, nil
}

// Close implements Store.
func (m *MemoryStore) Close() error { return nil }
