package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/villaops/dispatchd/core/model"
	"github.com/villaops/dispatchd/core/storage"
)

type mobileJobUpdateRequest struct {
	JobID  string          `json:"jobId"`
	Status model.JobStatus `json:"status"`
	Notes  string          `json:"notes"`
}

// mobileTransitions lists the status moves the staff app may perform.
var mobileTransitions = map[model.JobStatus][]model.JobStatus{
	model.JobAssigned:   {model.JobAccepted, model.JobCancelled},
	model.JobAccepted:   {model.JobInProgress, model.JobCancelled},
	model.JobInProgress: {model.JobCompleted, model.JobCancelled},
}

func (s *Server) handleMobileJobUpdate(w http.ResponseWriter, r *http.Request) {
	var req mobileJobUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.JobID == "" || req.Status == "" {
		writeError(w, http.StatusBadRequest, "jobId and status are required")
		return
	}
	if err := s.applyJobUpdate(r, req); err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			writeError(w, http.StatusNotFound, "job not found")
		case errors.Is(err, storage.ErrConflict):
			writeError(w, http.StatusConflict, "job changed concurrently")
		case errors.Is(err, errBadTransition):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(req.Status)})
}

var errBadTransition = errors.New("status transition not allowed")

func (s *Server) applyJobUpdate(r *http.Request, req mobileJobUpdateRequest) error {
	job, err := s.store.GetJob(r.Context(), req.JobID)
	if err != nil {
		return err
	}
	allowed := false
	for _, to := range mobileTransitions[job.Status] {
		if to == req.Status {
			allowed = true
			break
		}
	}
	if !allowed {
		return errBadTransition
	}
	return s.store.TransitionJob(r.Context(), job.ID, job.Status, req.Status, "")
}

type syncRequest struct {
	LastSyncTimestamp time.Time `json:"lastSyncTimestamp"`
	StaffID           string    `json:"staffId"`
	DeviceID          string    `json:"deviceId"`
	PendingChanges    struct {
		Assignments []mobileJobUpdateRequest `json:"assignments"`
	} `json:"pendingChanges"`
}

type syncResponse struct {
	Timestamp     time.Time                 `json:"timestamp"`
	Jobs          []model.Job               `json:"jobs"`
	Notifications []model.OfferNotification `json:"notifications,omitempty"`
	Applied       []string                  `json:"applied,omitempty"`
	Rejected      map[string]string         `json:"rejected,omitempty"`
}

// handleMobileSync applies the device's pending changes best-effort per
// item, then returns everything updated since the last sync.
func (s *Server) handleMobileSync(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	resp := syncResponse{Timestamp: time.Now().UTC(), Rejected: make(map[string]string)}
	for _, change := range req.PendingChanges.Assignments {
		if change.JobID == "" || change.Status == "" {
			continue
		}
		if err := s.applyJobUpdate(r, change); err != nil {
			resp.Rejected[change.JobID] = err.Error()
			continue
		}
		resp.Applied = append(resp.Applied, change.JobID)
	}

	jobs, err := s.store.JobsUpdatedSince(r.Context(), req.LastSyncTimestamp)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp.Jobs = jobs
	if req.StaffID != "" {
		notifs, err := s.store.NotificationsForStaff(r.Context(), req.StaffID, req.LastSyncTimestamp)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp.Notifications = notifs
	}
	if len(resp.Rejected) == 0 {
		resp.Rejected = nil
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleNotificationRead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.MarkRead(r.Context(), id, time.Now().UTC()); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "notification not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "read"})
}
