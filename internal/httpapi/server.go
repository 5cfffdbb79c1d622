// Package httpapi exposes the lookup and job-tracking API over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/cdubvdub/fpl-power-meter-api/internal/jobs"
	"github.com/cdubvdub/fpl-power-meter-api/internal/portal"
	"github.com/cdubvdub/fpl-power-meter-api/internal/progress"
	"github.com/cdubvdub/fpl-power-meter-api/internal/rows"
	"github.com/cdubvdub/fpl-power-meter-api/internal/store"
)

// Submitter is the scheduler surface the API depends on.
type Submitter interface {
	Submit(ctx context.Context, params jobs.SessionParams, batch []rows.NormalizedRow) (*store.Job, error)
	LookupSingle(ctx context.Context, params jobs.SessionParams, row rows.NormalizedRow) (*portal.LookupResult, error)
}

// Server routes API requests to the scheduler, the store and the hub.
type Server struct {
	router *mux.Router
	sched  Submitter
	store  store.Store
	hub    *progress.Hub
	log    portal.Logger
}

// NewServer wires the routes.
func NewServer(sched Submitter, st store.Store, hub *progress.Hub, log portal.Logger) *Server {
	if log == nil {
		log = &portal.SimpleLogger{}
	}
	s := &Server{
		router: mux.NewRouter(),
		sched:  sched,
		store:  st,
		hub:    hub,
		log:    log,
	}

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/status/single", s.handleSingle).Methods("POST")
	api.HandleFunc("/status/batch", s.handleBatch).Methods("POST")
	api.HandleFunc("/jobs/{jobId}", s.handleGetJob).Methods("GET")
	api.HandleFunc("/jobs/{jobId}/results", s.handleListResults).Methods("GET")
	api.HandleFunc("/jobs/{jobId}/events", s.handleEvents).Methods("GET")
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Errorf("failed to write response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, code int, msg string) {
	s.writeJSON(w, code, map[string]string{"error": msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
