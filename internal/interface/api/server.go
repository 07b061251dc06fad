// Package api exposes the read-only observer HTTP surface: session listings,
// persisted pipeline status, and a live event stream. It never mutates
// pipeline state; dashboards and editors poll or subscribe here while the
// CLI drives the build.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/afero"

	"github.com/appforge-dev/appforge/internal/app"
	"github.com/appforge-dev/appforge/internal/app/eventbus"
	sessionrepo "github.com/appforge-dev/appforge/internal/infra/repository/session"
	staterepo "github.com/appforge-dev/appforge/internal/infra/repository/state"
)

// Server serves the observer API for one control directory
type Server struct {
	fs       afero.Fs
	home     string
	registry *sessionrepo.Registry
	bus      *eventbus.Bus
	httpSrv  *http.Server
}

// NewServer wires the observer API. The bus may be shared with an in-process
// pipeline run so /api/events streams it live.
func NewServer(fs afero.Fs, home string, registry *sessionrepo.Registry, bus *eventbus.Bus, addr string) *Server {
	s := &Server{
		fs:       fs,
		home:     home,
		registry: registry,
		bus:      bus,
	}

	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/sessions", s.handleSessions).Methods(http.MethodGet)
	r.HandleFunc("/api/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/status/{sessionID}", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/flow", s.handleFlow).Methods(http.MethodGet)
	r.HandleFunc("/api/flow/{sessionID}", s.handleFlow).Methods(http.MethodGet)
	r.HandleFunc("/api/events", s.handleEvents).Methods(http.MethodGet)

	s.httpSrv = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // /api/events streams indefinitely
	}
	return s
}

// Handler exposes the router for tests
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

// ListenAndServe blocks until the server stops
func (s *Server) ListenAndServe() error {
	app.GetLogger().Info("observer API listening on %s", s.httpSrv.Addr)
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	idx := s.registry.LoadIndex()
	writeJSON(w, http.StatusOK, idx)
}

// handleStatus returns the persisted pipeline state for the named session,
// defaulting to the active one
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionID"]
	if sessionID == "" {
		active := s.registry.GetActiveSession()
		if active == nil {
			writeError(w, http.StatusNotFound, "no active session")
			return
		}
		sessionID = active.ID
	}

	store := staterepo.NewStore(s.fs, s.home, sessionID)
	st, err := store.Load()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if st == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no state for session %s", sessionID))
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// handleEvents streams pipeline events as server-sent events until the
// client disconnects
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	events := make(chan eventbus.Event, 64)
	unsubscribe := s.bus.Subscribe(func(ev eventbus.Event) {
		select {
		case events <- ev:
		default:
			// slow client: drop rather than block the pipeline
		}
	})
	defer unsubscribe()

	keepalive := time.NewTicker(30 * time.Second)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepalive.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		case ev := <-events:
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
			flusher.Flush()
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		app.GetLogger().Warn("failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
