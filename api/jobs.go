package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/villaops/dispatchd/core/dispatch"
	"github.com/villaops/dispatchd/core/model"
	"github.com/villaops/dispatchd/core/storage"
)

type createJobRequest struct {
	Type                model.JobType  `json:"type"`
	Priority            model.Priority `json:"priority"`
	PropertyID          string         `json:"property_id"`
	BookingID           string         `json:"booking_id"`
	RequiredRole        string         `json:"required_role"`
	RequiredSkills      []string       `json:"required_skills"`
	ScheduledStart      time.Time      `json:"scheduled_start"`
	ScheduledEnd        time.Time      `json:"scheduled_end"`
	EstimatedMinutes    int            `json:"estimated_minutes"`
	Deadline            *time.Time     `json:"deadline"`
	BookingValue        float64        `json:"booking_value"`
	RepeatGuest         bool           `json:"repeat_guest"`
	GuestArrival        *time.Time     `json:"guest_arrival"`
	GuestDeparture      *time.Time     `json:"guest_departure"`
	PayoutAmount        float64        `json:"payout_amount"`
	SpecialInstructions string         `json:"special_instructions"`
}

type createJobResponse struct {
	Job      model.Job `json:"job"`
	Dispatch string    `json:"dispatch"`
	OfferID  string    `json:"offer_id,omitempty"`
	Reason   string    `json:"reason,omitempty"`
}

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var req createJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Priority == "" {
		req.Priority = model.PriorityMedium
	}
	now := time.Now().UTC()
	job := model.Job{
		ID:                  uuid.NewString(),
		Type:                req.Type,
		Status:              model.JobPending,
		Priority:            req.Priority,
		PropertyID:          req.PropertyID,
		BookingID:           req.BookingID,
		RequiredRole:        req.RequiredRole,
		RequiredSkills:      req.RequiredSkills,
		ScheduledStart:      req.ScheduledStart,
		ScheduledEnd:        req.ScheduledEnd,
		EstimatedDuration:   time.Duration(req.EstimatedMinutes) * time.Minute,
		Deadline:            req.Deadline,
		BookingValue:        req.BookingValue,
		RepeatGuest:         req.RepeatGuest,
		GuestArrival:        req.GuestArrival,
		GuestDeparture:      req.GuestDeparture,
		PayoutAmount:        req.PayoutAmount,
		SpecialInstructions: req.SpecialInstructions,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := job.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.store.PutJob(r.Context(), job); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	res := s.orch.TriggerOfferCreationForNewJob(r.Context(), job)
	resp := createJobResponse{Job: job, Dispatch: res.Outcome.String(), OfferID: res.OfferID, Reason: res.Reason}
	if res.Outcome == dispatch.OutcomeFailed {
		s.logger.Errorf("auto-dispatch for job %s failed: %v", job.ID, res.Err)
		resp.Reason = res.Err.Error()
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handlePrioritizedJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.store.ListJobs(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	var open []model.Job
	for _, j := range jobs {
		if !j.Status.Terminal() {
			open = append(open, j)
		}
	}
	writeJSON(w, http.StatusOK, s.scorer.PrioritizeJobs(open, time.Now()))
}

type assignStaffRequest struct {
	BookingID           string   `json:"bookingId"`
	StaffIDs            []string `json:"staffIds"`
	AssignedBy          string   `json:"assignedBy"`
	GeneralInstructions string   `json:"generalInstructions"`
}

type assignStaffResponse struct {
	Assigned map[string]string `json:"assigned"` // job id -> staff id
	Skipped  []string          `json:"skipped,omitempty"`
}

// handleAssignStaff is the manual admin override: it bypasses the offer
// cycle and assigns the booking's pending jobs round-robin across the
// given staff.
func (s *Server) handleAssignStaff(w http.ResponseWriter, r *http.Request) {
	var req assignStaffRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.BookingID == "" || len(req.StaffIDs) == 0 || req.AssignedBy == "" {
		writeError(w, http.StatusBadRequest, "bookingId, staffIds and assignedBy are required")
		return
	}
	for _, id := range req.StaffIDs {
		if _, ok := s.directory.Member(r.Context(), id); !ok {
			writeError(w, http.StatusNotFound, "unknown staff "+id)
			return
		}
	}
	jobs, err := s.store.ListJobs(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	var pending []model.Job
	for _, j := range jobs {
		if j.BookingID == req.BookingID && j.Status == model.JobPending {
			pending = append(pending, j)
		}
	}
	if len(pending) == 0 {
		writeError(w, http.StatusNotFound, "no pending jobs for booking")
		return
	}

	resp := assignStaffResponse{Assigned: make(map[string]string)}
	for i, job := range pending {
		staffID := req.StaffIDs[i%len(req.StaffIDs)]
		if err := s.store.TransitionJob(r.Context(), job.ID, model.JobPending, model.JobAssigned, staffID); err != nil {
			if errors.Is(err, storage.ErrConflict) {
				resp.Skipped = append(resp.Skipped, job.ID)
				continue
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if _, err := s.audit.ManualOverride(r.Context(), job.ID, job.PropertyID, req.AssignedBy, staffID); err != nil {
			s.logger.Errorf("manual_override audit event failed: %v", err)
		}
		if _, err := s.audit.JobAssigned(r.Context(), job.ID, job.PropertyID, staffID, "manual_override"); err != nil {
			s.logger.Errorf("job_assigned audit event failed: %v", err)
		}
		resp.Assigned[job.ID] = staffID
	}
	writeJSON(w, http.StatusOK, resp)
}

type acceptOfferRequest struct {
	StaffID string `json:"staffId"`
}

func (s *Server) handleAcceptOffer(w http.ResponseWriter, r *http.Request) {
	offerID := chi.URLParam(r, "id")
	var req acceptOfferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.StaffID == "" {
		writeError(w, http.StatusBadRequest, "staffId is required")
		return
	}
	offer, err := s.acceptor.Accept(r.Context(), offerID, req.StaffID)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, offer)
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "offer not found")
	case errors.Is(err, dispatch.ErrNotEligible):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, dispatch.ErrOfferClosed):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
