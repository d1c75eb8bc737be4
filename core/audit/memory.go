package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryLog is an in-memory Log used in tests and small deployments.
type MemoryLog struct {
	mu     sync.Mutex
	events []Event
}

// NewMemoryLog returns an empty in-memory log.
func NewMemoryLog() *MemoryLog { return &MemoryLog{} }

// Append stores the event and returns its assigned id.
func (m *MemoryLog) Append(_ context.Context, ev Event) (string, error) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	m.mu.Lock()
	m.events = append(m.events, ev)
	m.mu.Unlock()
	return ev.ID, nil
}

// Query returns events matching q.
func (m *MemoryLog) Query(_ context.Context, q Query) ([]Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []Event
	src := m.events
	if q.Desc {
		src = make([]Event, len(m.events))
		for i, ev := range m.events {
			src[len(m.events)-1-i] = ev
		}
	}
	for _, ev := range src {
		if q.JobID != "" && ev.JobID != q.JobID {
			continue
		}
		if q.OfferID != "" && ev.OfferID != q.OfferID {
			continue
		}
		if q.Type != "" && ev.Type != q.Type {
			continue
		}
		if !q.Start.IsZero() && ev.Timestamp.Before(q.Start) {
			continue
		}
		if !q.End.IsZero() && ev.Timestamp.After(q.End) {
			continue
		}
		res = append(res, ev)
		if q.Limit > 0 && len(res) >= q.Limit {
			break
		}
	}
	return res, nil
}

// Close implements Log.
func (m *MemoryLog) Close() error { return nil }
