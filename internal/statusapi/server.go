// Package statusapi exposes a read-only HTTP view of a running host's
// lease and trace state: liveness, current lease ownership, and the
// trace pipeline's buffering health.
package statusapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hostlease/hostlease/internal/cli/health"
	"github.com/hostlease/hostlease/pkg/lease"
	"github.com/hostlease/hostlease/pkg/trace"
)

// Config is the construction contract for a Server.
type Config struct {
	// JWTSecret, if non-empty, requires a valid Bearer token on every /v1/*
	// route. /healthz is always unauthenticated.
	JWTSecret string
	JWTIssuer string
}

// Server is a chi.Router exposing read-only status endpoints.
type Server struct {
	router    chi.Router
	manager   *lease.Manager
	writer    *trace.BufferedTraceWriter
	startedAt time.Time
}

// New builds a Server reading from manager and writer. Either may be nil;
// the corresponding route then reports a 503 rather than panicking.
func New(manager *lease.Manager, writer *trace.BufferedTraceWriter, cfg Config) *Server {
	s := &Server{manager: manager, writer: writer, startedAt: time.Now()}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Second))

	r.Get("/healthz", s.handleHealthz)

	r.Route("/v1", func(v1 chi.Router) {
		if cfg.JWTSecret != "" {
			v1.Use(requireBearer(cfg.JWTSecret, cfg.JWTIssuer))
		}
		v1.Get("/lease", s.handleLease)
		v1.Get("/trace/stats", s.handleTraceStats)
	})

	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	uptime := time.Since(s.startedAt)

	var resp health.Response
	resp.Status = "healthy"
	resp.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	resp.Data.Service = "hostleased"
	resp.Data.StartedAt = s.startedAt.UTC().Format(time.RFC3339Nano)
	resp.Data.Uptime = uptime.String()
	resp.Data.UptimeSec = int64(uptime.Seconds())

	writeJSON(w, http.StatusOK, resp)
}

type leaseResponse struct {
	HasLease             bool   `json:"hasLease"`
	LeaseID              string `json:"leaseId"`
	State                string `json:"state"`
	LastRenewalAt        string `json:"lastRenewalAt,omitempty"`
	LastRenewalLatencyMs int64  `json:"lastRenewalLatencyMs"`
}

func (s *Server) handleLease(w http.ResponseWriter, _ *http.Request) {
	if s.manager == nil {
		http.Error(w, "lease manager not configured", http.StatusServiceUnavailable)
		return
	}

	snap := s.manager.Snapshot()
	resp := leaseResponse{
		HasLease:             snap.HasLease,
		LeaseID:              snap.LeaseID,
		State:                snap.State.String(),
		LastRenewalLatencyMs: snap.LastRenewalLatency.Milliseconds(),
	}
	if !snap.LastRenewalAt.IsZero() {
		resp.LastRenewalAt = snap.LastRenewalAt.UTC().Format(time.RFC3339Nano)
	}

	writeJSON(w, http.StatusOK, resp)
}

type traceStatsResponse struct {
	BufferedRecords int    `json:"bufferedRecords"`
	LastFlushAt     string `json:"lastFlushAt,omitempty"`
	LastFlushError  string `json:"lastFlushError,omitempty"`
}

func (s *Server) handleTraceStats(w http.ResponseWriter, _ *http.Request) {
	if s.writer == nil {
		http.Error(w, "trace writer not configured", http.StatusServiceUnavailable)
		return
	}

	stats := s.writer.Stats()
	resp := traceStatsResponse{BufferedRecords: stats.BufferedRecords}
	if !stats.LastFlushAt.IsZero() {
		resp.LastFlushAt = stats.LastFlushAt.UTC().Format(time.RFC3339Nano)
	}
	if stats.LastFlushErr != nil {
		resp.LastFlushError = stats.LastFlushErr.Error()
	}

	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
