package httpsnap

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/cuemby/driftdb/pkg/collection"
	"github.com/cuemby/driftdb/pkg/log"
	"github.com/cuemby/driftdb/pkg/metrics"
	"github.com/cuemby/driftdb/pkg/store"
)

// Server serves a store's snapshot over HTTP: GET /snapshot returns the
// current collection.Collection as JSON; POST /snapshot merges a posted
// collection.Collection into the store.
type Server struct {
	store  *store.Store
	mux    *http.ServeMux
	logger zerolog.Logger
}

// NewServer wraps s, handling GET and POST on /snapshot.
func NewServer(s *store.Store) *Server {
	srv := &Server{
		store:  s,
		mux:    http.NewServeMux(),
		logger: log.WithComponent("httpsnap"),
	}
	srv.mux.HandleFunc("/snapshot", srv.handleSnapshot)
	return srv
}

// ServeHTTP implements http.Handler, so a Server can be registered
// directly with http.Handle or used with httptest.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleGet(w, r)
	case http.MethodPost:
		s.handlePost(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	snapshot := s.store.Collection()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snapshot); err != nil {
		s.logger.Error().Err(err).Msg("encoding snapshot response failed")
	}
}

func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	var snapshot collection.Collection
	if err := json.NewDecoder(r.Body).Decode(&snapshot); err != nil {
		metrics.SyncPushesTotal.WithLabelValues("error").Inc()
		http.Error(w, fmt.Sprintf("decoding pushed snapshot: %v", err), http.StatusBadRequest)
		return
	}

	changes, err := s.store.Merge(&snapshot)
	if err != nil {
		metrics.SyncPushesTotal.WithLabelValues("error").Inc()
		http.Error(w, fmt.Sprintf("merging pushed snapshot: %v", err), http.StatusConflict)
		return
	}
	metrics.SyncPushesTotal.WithLabelValues("ok").Inc()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(struct {
		Added   int `json:"added"`
		Updated int `json:"updated"`
		Deleted int `json:"deleted"`
	}{
		Added:   len(changes.Added),
		Updated: len(changes.Updated),
		Deleted: len(changes.Deleted),
	})
}
