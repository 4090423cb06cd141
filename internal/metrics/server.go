package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Status is the progress snapshot served on /status.
type Status struct {
	RunID     string         `json:"runId"`
	Stage     string         `json:"stage"`
	StartedAt time.Time      `json:"startedAt"`
	Rows      map[string]int `json:"rows,omitempty"`
	Done      bool           `json:"done"`
	Error     string         `json:"error,omitempty"`
}

// Tracker holds the current Status for concurrent readers
type Tracker struct {
	mu     sync.RWMutex
	status Status
}

// Update applies fn to the status under the lock
func (t *Tracker) Update(fn func(s *Status)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fn(&t.status)
}

// Snapshot returns a copy of the current status
func (t *Tracker) Snapshot() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s := t.status
	if t.status.Rows != nil {
		s.Rows = make(map[string]int, len(t.status.Rows))
		for k, v := range t.status.Rows {
			s.Rows[k] = v
		}
	}
	return s
}

// Server serves /metrics, /healthz and /status while a run is in progress
type Server struct {
	srv *http.Server
}

// NewServer builds the HTTP server for the given metrics set
func NewServer(addr string, set *Set, tracker *Tracker) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           NewRouter(set, tracker),
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// NewRouter returns the routes of the metrics server
func NewRouter(set *Set, tracker *Tracker) *mux.Router {
	r := mux.NewRouter()
	r.Use(set.HTTP.Middleware)

	r.Handle("/metrics", promhttp.HandlerFor(set.Registry, promhttp.HandlerOpts{Registry: set.Registry})).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	r.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(tracker.Snapshot()); err != nil {
			log.Error().Err(err).Msg("Failed to encode status")
		}
	}).Methods(http.MethodGet)
	return r
}

// Start listens in the background
func (s *Server) Start() {
	go func() {
		log.Info().Str("addr", s.srv.Addr).Msg("Starting metrics server")
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Metrics server failed")
		}
	}()
}

// Shutdown stops the server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
