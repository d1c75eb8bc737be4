package model

import (
	"testing"
	"time"
)

func TestJobValidate(t *testing.T) {
	base := Job{
		ID:             "j1",
		PropertyID:     "villa-1",
		RequiredRole:   "housekeeper",
		ScheduledStart: time.Now(),
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("valid job rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Job)
	}{
		{"missing id", func(j *Job) { j.ID = "" }},
		{"missing property", func(j *Job) { j.PropertyID = "" }},
		{"missing role", func(j *Job) { j.RequiredRole = "" }},
		{"missing start", func(j *Job) { j.ScheduledStart = time.Time{} }},
		{"end before start", func(j *Job) { j.ScheduledEnd = j.ScheduledStart.Add(-time.Hour) }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			j := base
			tc.mutate(&j)
			if err := j.Validate(); err == nil {
				t.Errorf("expected validation error")
			}
		})
	}
}

func TestJobWindowDefaults(t *testing.T) {
	start := time.Now()
	j := Job{ScheduledStart: start}
	_, end := j.Window()
	if got := end.Sub(start); got != time.Hour {
		t.Errorf("default window = %v, want 1h", got)
	}

	j.EstimatedDuration = 90 * time.Minute
	_, end = j.Window()
	if got := end.Sub(start); got != 90*time.Minute {
		t.Errorf("estimated window = %v, want 90m", got)
	}

	j.ScheduledEnd = start.Add(3 * time.Hour)
	_, end = j.Window()
	if !end.Equal(j.ScheduledEnd) {
		t.Errorf("explicit end ignored: %v", end)
	}
}

func TestJobStatusTerminal(t *testing.T) {
	for status, terminal := range map[JobStatus]bool{
		JobPending:    false,
		JobAssigned:   false,
		JobInProgress: false,
		JobCompleted:  true,
		JobCancelled:  true,
	} {
		if status.Terminal() != terminal {
			t.Errorf("%s.Terminal() = %v, want %v", status, status.Terminal(), terminal)
		}
	}
}

func TestOfferValidate(t *testing.T) {
	now := time.Now()
	valid := Offer{JobID: "j1", AttemptNumber: 1, CreatedAt: now, ExpiresAt: now.Add(time.Minute)}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid offer rejected: %v", err)
	}
	if err := (Offer{AttemptNumber: 1, CreatedAt: now, ExpiresAt: now.Add(time.Minute)}).Validate(); err == nil {
		t.Error("missing job id accepted")
	}
	if err := (Offer{JobID: "j1", AttemptNumber: 0, CreatedAt: now, ExpiresAt: now.Add(time.Minute)}).Validate(); err == nil {
		t.Error("zero attempt accepted")
	}
	if err := (Offer{JobID: "j1", AttemptNumber: 1, CreatedAt: now, ExpiresAt: now}).Validate(); err == nil {
		t.Error("expiry at creation accepted")
	}
}

func TestOfferExpiry(t *testing.T) {
	now := time.Now()
	o := Offer{Status: OfferOpen, CreatedAt: now.Add(-time.Hour), ExpiresAt: now.Add(-time.Minute)}
	if !o.Expired(now) {
		t.Error("overdue open offer not expired")
	}
	if o.TimeRemaining(now) != 0 {
		t.Errorf("remaining = %v, want 0", o.TimeRemaining(now))
	}

	o.Status = OfferAccepted
	if o.Expired(now) {
		t.Error("accepted offer reported expired")
	}

	fresh := Offer{Status: OfferOpen, ExpiresAt: now.Add(10 * time.Minute)}
	if got := fresh.TimeRemaining(now); got != 10*time.Minute {
		t.Errorf("remaining = %v, want 10m", got)
	}
}
