// Package server exposes the relaunchd HTTP API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/psantana5/relaunch/internal/report"
	"github.com/psantana5/relaunch/internal/restart"
	"github.com/psantana5/relaunch/pkg/auth"
	"github.com/psantana5/relaunch/pkg/logging"
	"github.com/psantana5/relaunch/pkg/middleware"
	"github.com/psantana5/relaunch/pkg/ratelimit"
	"github.com/psantana5/relaunch/pkg/relaunch"
	"github.com/psantana5/relaunch/pkg/tracing"
)

// DefaultReason is used when a restart request carries no reason.
const DefaultReason = "api"

// Restarter performs one restart
type Restarter interface {
	Restart(ctx context.Context, reason string) (*report.Result, error)
	InProgress() bool
}

// FailureSource lists recent failed attempts
type FailureSource interface {
	GetRecent(n int) []report.FailureSample
	Count() int
}

// Config wires the handlers
type Config struct {
	Restarter Restarter
	Failures  FailureSource
	Gatherer  prometheus.Gatherer
	Verifier  *auth.TokenVerifier // nil disables auth
	Limiter   *ratelimit.Limiter  // nil disables rate limiting
	Tracer    *tracing.Provider   // nil disables tracing
	Logger    *logging.Logger
	Version   string
}

// Server holds the HTTP handlers
type Server struct {
	cfg       Config
	startedAt time.Time
}

// New creates a server
func New(cfg Config) *Server {
	return &Server{cfg: cfg, startedAt: time.Now()}
}

// RestartRequest is the optional body of POST /restart
type RestartRequest struct {
	Reason string `json:"reason"`
}

// RestartResponse is returned by POST /restart
type RestartResponse struct {
	Result *report.Result `json:"result,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// HealthResponse is returned by GET /health
type HealthResponse struct {
	Status     string `json:"status"`
	PID        int    `json:"pid"`
	Version    string `json:"version,omitempty"`
	Uptime     string `json:"uptime"`
	Restarting bool   `json:"restarting"`
}

// FailuresResponse is returned by GET /restart/failures
type FailuresResponse struct {
	Failures []report.FailureSample `json:"failures"`
	Total    int                    `json:"total"`
}

// Router builds the route table
func (s *Server) Router() http.Handler {
	router := mux.NewRouter()
	router.Use(middleware.RequestID)
	if s.cfg.Tracer != nil {
		router.Use(tracing.HTTPMiddleware(s.cfg.Tracer))
	}
	router.Use(middleware.AccessLog(s.cfg.Logger))

	router.HandleFunc("/health", s.HandleHealth).Methods(http.MethodGet)
	if s.cfg.Gatherer != nil {
		router.Handle("/metrics", promhttp.HandlerFor(s.cfg.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	var restartHandler http.Handler = http.HandlerFunc(s.HandleRestart)
	if s.cfg.Limiter != nil {
		restartHandler = s.cfg.Limiter.Middleware(ratelimit.GlobalKeyFunc)(restartHandler)
	}
	restartHandler = s.cfg.Verifier.Middleware(restartHandler)

	router.Handle("/restart", restartHandler).Methods(http.MethodPost)
	router.HandleFunc("/restart/failures", s.HandleFailures).Methods(http.MethodGet)

	return router
}

// HandleHealth reports liveness of this instance
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:     "ok",
		PID:        os.Getpid(),
		Version:    s.cfg.Version,
		Uptime:     time.Since(s.startedAt).Round(time.Second).String(),
		Restarting: s.cfg.Restarter.InProgress(),
	})
}

// HandleRestart relaunches the program.
//
// 202 when the attempt reached the spawn step, whatever its outcome,
// 409 while another restart runs, 500 when the executable path could not
// be resolved.
func (s *Server) HandleRestart(w http.ResponseWriter, r *http.Request) {
	var req RestartRequest
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
			return
		}
	}
	if req.Reason == "" {
		req.Reason = DefaultReason
	}

	res, err := s.cfg.Restarter.Restart(r.Context(), req.Reason)
	switch {
	case errors.Is(err, restart.ErrInProgress):
		writeJSON(w, http.StatusConflict, RestartResponse{Error: err.Error()})
	case errors.Is(err, relaunch.ErrExecutablePathUnavailable):
		writeJSON(w, http.StatusInternalServerError, RestartResponse{Result: res, Error: err.Error()})
	case err != nil:
		s.cfg.Logger.Error("Restart failed", map[string]interface{}{"error": err})
		writeJSON(w, http.StatusInternalServerError, RestartResponse{Result: res, Error: err.Error()})
	default:
		writeJSON(w, http.StatusAccepted, RestartResponse{Result: res})
	}
}

// HandleFailures lists recent failed attempts. ?limit=N caps the list.
func (s *Server) HandleFailures(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	failures := s.cfg.Failures.GetRecent(limit)
	if failures == nil {
		failures = []report.FailureSample{}
	}
	writeJSON(w, http.StatusOK, FailuresResponse{
		Failures: failures,
		Total:    s.cfg.Failures.Count(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
