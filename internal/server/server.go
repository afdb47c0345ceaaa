// Package server exposes a read-only HTTP view of a workspace: run state,
// the latest scorecard, and the archived iteration history. It never
// mutates the workspace, so it can run alongside an active convergence run.
package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/slidectl/slidectl/pkg/errors"
	"github.com/slidectl/slidectl/pkg/history"
	"github.com/slidectl/slidectl/pkg/metrics"
	"github.com/slidectl/slidectl/pkg/state"
	"github.com/slidectl/slidectl/pkg/workspace"
)

const (
	readTimeout     = 10 * time.Second
	writeTimeout    = 30 * time.Second
	shutdownTimeout = 5 * time.Second
)

// Server serves workspace status over HTTP.
type Server struct {
	ws      *workspace.Workspace
	states  *state.Manager
	archive history.Store
	logger  *log.Logger
}

// New creates a server for the given workspace. A nil archive disables
// the history endpoint's content (it reports an empty list).
func New(ws *workspace.Workspace, archive history.Store, logger *log.Logger) *Server {
	if archive == nil {
		archive = history.NewNullStore()
	}
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Server{
		ws:      ws,
		states:  state.NewManager(ws.StateDir()),
		archive: archive,
		logger:  logger,
	}
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/scorecard", s.handleScorecard)
		r.Get("/report", s.handleReport)
	})
	return r
}

// ListenAndServe runs the server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("status server listening", "addr", addr, "workspace", s.ws.Root)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleStatus returns the persisted run state.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.states.Load()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// handleScorecard returns the latest scorecard artifact.
func (s *Server) handleScorecard(w http.ResponseWriter, r *http.Request) {
	card, err := metrics.LoadScorecard(s.ws.ScorecardFile())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

// handleReport returns the archived iteration records, optionally filtered
// by the run_id query parameter.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	records, err := s.archive.List(r.Context(), r.URL.Query().Get("run_id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if records == nil {
		records = []history.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

// writeError maps error codes to HTTP statuses and emits a JSON body.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch errors.GetCode(err) {
	case errors.ErrCodeFileNotFound, errors.ErrCodeNotFound, errors.ErrCodeWorkspaceNotFound:
		status = http.StatusNotFound
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidState:
		status = http.StatusUnprocessableEntity
	}
	s.logger.Debug("request failed", "status", status, "error", err)
	writeJSON(w, status, map[string]string{
		"code":  string(errors.GetCode(err)),
		"error": errors.UserMessage(err),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
