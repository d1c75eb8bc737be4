// Package api exposes the HTTP surface of the dispatch service:
// booking/job intake, the staff mobile endpoints and the audit trails.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/villaops/dispatchd/config"
	"github.com/villaops/dispatchd/core/audit"
	"github.com/villaops/dispatchd/core/dispatch"
	"github.com/villaops/dispatchd/core/logger"
	"github.com/villaops/dispatchd/core/staff"
	"github.com/villaops/dispatchd/core/storage"
)

// Server wires the HTTP handlers.
type Server struct {
	store     storage.Store
	directory staff.Directory
	orch      *dispatch.AutoDispatcher
	acceptor  *dispatch.Acceptor
	scorer    dispatch.Scorer
	audit     *audit.Recorder
	auth      config.AuthConfig
	logger    logger.Logger
}

// New constructs the API server.
func New(store storage.Store, dir staff.Directory, orch *dispatch.AutoDispatcher, acceptor *dispatch.Acceptor, scorer dispatch.Scorer, rec *audit.Recorder, auth config.AuthConfig, log logger.Logger) *Server {
	return &Server{
		store:     store,
		directory: dir,
		orch:      orch,
		acceptor:  acceptor,
		scorer:    scorer,
		audit:     rec,
		auth:      auth,
		logger:    log,
	}
}

// Router builds the HTTP router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/api/jobs", s.handleCreateJob)
	r.Get("/api/jobs/prioritized", s.handlePrioritizedJobs)
	r.Post("/api/bookings/assign-staff", s.handleAssignStaff)
	r.Post("/api/offers/{id}/accept", s.handleAcceptOffer)

	r.Group(func(r chi.Router) {
		r.Use(s.mobileAuth)
		r.Patch("/api/mobile/jobs", s.handleMobileJobUpdate)
		r.Post("/api/mobile/sync", s.handleMobileSync)
		r.Post("/api/mobile/notifications/{id}/read", s.handleNotificationRead)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.adminAuth)
		r.Get("/api/audit/jobs/{id}", s.handleJobTrail)
		r.Get("/api/audit/offers/{id}", s.handleOfferTrail)
		r.Get("/api/audit/recent", s.handleRecentEvents)
	})

	return r
}

// mobileAuth checks the shared-secret headers of the staff mobile app.
// The secrets come from injected configuration, never source literals.
func (s *Server) mobileAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.auth.APIKey != "" && r.Header.Get("X-API-Key") != s.auth.APIKey {
			writeError(w, http.StatusUnauthorized, "invalid api key")
			return
		}
		if s.auth.MobileSecret != "" && r.Header.Get("X-Mobile-Secret") != s.auth.MobileSecret {
			writeError(w, http.StatusUnauthorized, "invalid mobile secret")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// adminAuth checks the bearer token protecting the audit trails.
func (s *Server) adminAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.auth.AdminToken != "" && r.Header.Get("Authorization") != "Bearer "+s.auth.AdminToken {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
