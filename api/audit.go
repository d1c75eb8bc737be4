package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

const defaultTrailLimit = 100

func trailLimit(r *http.Request) int {
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return defaultTrailLimit
}

func (s *Server) handleJobTrail(w http.ResponseWriter, r *http.Request) {
	events, err := s.audit.JobTrail(r.Context(), chi.URLParam(r, "id"), trailLimit(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleOfferTrail(w http.ResponseWriter, r *http.Request) {
	events, err := s.audit.OfferTrail(r.Context(), chi.URLParam(r, "id"), trailLimit(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleRecentEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.audit.Recent(r.Context(), trailLimit(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, events)
}
