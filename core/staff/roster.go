package staff

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Roster is an in-memory Directory backed by per-staff availability
// windows. Staff with no recorded windows are treated as always
// available, which matches how small properties run their rosters.
type Roster struct {
	mu           sync.RWMutex
	members      map[string]Member
	availability map[string][]AvailabilityWindow
}

// NewRoster returns an empty roster.
func NewRoster() *Roster {
	return &Roster{
		members:      make(map[string]Member),
		availability: make(map[string][]AvailabilityWindow),
	}
}

// Add registers or replaces a staff member.
func (r *Roster) Add(m Member) {
	r.mu.Lock()
	r.members[m.ID] = m
	r.mu.Unlock()
}

// SetAvailability replaces the availability windows for a staff member.
func (r *Roster) SetAvailability(staffID string, windows []AvailabilityWindow) {
	r.mu.Lock()
	r.availability[staffID] = append([]AvailabilityWindow(nil), windows...)
	r.mu.Unlock()
}

// Eligible implements Directory.
func (r *Roster) Eligible(_ context.Context, role string, start, end time.Time) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ids []string
	for id, m := range r.members {
		if !m.Active || m.Role != role {
			continue
		}
		if r.available(id, start, end) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Member implements Directory.
func (r *Roster) Member(_ context.Context, id string) (Member, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.members[id]
	return m, ok
}

func (r *Roster) available(id string, start, end time.Time) bool {
	windows := r.availability[id]
	if len(windows) == 0 {
		return true
	}
	for _, w := range windows {
		if w.Contains(start, end) {
			return true
		}
	}
	return false
}
