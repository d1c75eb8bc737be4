package model

import (
	"fmt"
	"time"
)

// JobType identifies the kind of work a job represents.
type JobType string

const (
	JobCleaning    JobType = "cleaning"
	JobMaintenance JobType = "maintenance"
	JobInspection  JobType = "inspection"
	JobSetup       JobType = "setup"
	JobConcierge   JobType = "concierge"
)

// JobStatus tracks a job through its lifecycle.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobAssigned   JobStatus = "assigned"
	JobAccepted   JobStatus = "accepted"
	JobInProgress JobStatus = "in_progress"
	JobCompleted  JobStatus = "completed"
	JobCancelled  JobStatus = "cancelled"
)

// Terminal reports whether the status ends the job lifecycle.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobCancelled
}

// Priority is the admin-assigned urgency tier of a job.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Job is a unit of work tied to a property and optionally a booking.
// A job holds at most one open offer at a time; the storage layer
// enforces this with a conditional insert.
type Job struct {
	ID             string    `json:"id"`
	Type           JobType   `json:"type"`
	Status         JobStatus `json:"status"`
	Priority       Priority  `json:"priority"`
	PropertyID     string    `json:"property_id"`
	BookingID      string    `json:"booking_id,omitempty"`
	RequiredRole   string    `json:"required_role"`
	RequiredSkills []string  `json:"required_skills,omitempty"`

	ScheduledStart    time.Time     `json:"scheduled_start"`
	ScheduledEnd      time.Time     `json:"scheduled_end"`
	EstimatedDuration time.Duration `json:"estimated_duration"`
	Deadline          *time.Time    `json:"deadline,omitempty"`

	AssignedStaffID string `json:"assigned_staff_id,omitempty"`

	// Booking context consumed by the priority scorer.
	BookingValue   float64    `json:"booking_value,omitempty"`
	RepeatGuest    bool       `json:"repeat_guest,omitempty"`
	GuestArrival   *time.Time `json:"guest_arrival,omitempty"`
	GuestDeparture *time.Time `json:"guest_departure,omitempty"`

	PayoutAmount        float64 `json:"payout_amount,omitempty"`
	SpecialInstructions string  `json:"special_instructions,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks that the job configuration is sound.
func (j Job) Validate() error {
	if j.ID == "" {
		return fmt.Errorf("job id is required")
	}
	if j.PropertyID == "" {
		return fmt.Errorf("property id is required")
	}
	if j.RequiredRole == "" {
		return fmt.Errorf("required role is required")
	}
	if j.ScheduledStart.IsZero() {
		return fmt.Errorf("scheduled start is required")
	}
	if !j.ScheduledEnd.IsZero() && j.ScheduledEnd.Before(j.ScheduledStart) {
		return fmt.Errorf("scheduled end precedes start")
	}
	return nil
}

// Unassigned reports whether the job has no staff member attached.
func (j Job) Unassigned() bool { return j.AssignedStaffID == "" }

// Window returns the scheduled time window of the job. When no explicit
// end is set the estimated duration is applied, defaulting to one hour.
func (j Job) Window() (time.Time, time.Time) {
	end := j.ScheduledEnd
	if end.IsZero() {
		d := j.EstimatedDuration
		if d <= 0 {
			d = time.Hour
		}
		end = j.ScheduledStart.Add(d)
	}
	return j.ScheduledStart, end
}

// Blocking reports whether the job type typically gates other work on
// the same property (a villa cannot be inspected before it is cleaned).
func (j Job) Blocking() bool {
	return j.Type == JobCleaning || j.Type == JobMaintenance
}
