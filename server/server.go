// Package server exposes the aegis HTTP API: scan triggering, report
// polling, maturity assessment, compliance attestation, and the
// streaming assistant.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aegisinsight/aegis/advisor"
	"github.com/aegisinsight/aegis/compliance"
	"github.com/aegisinsight/aegis/intel"
	"github.com/aegisinsight/aegis/maturity"
	"github.com/aegisinsight/aegis/store"
)

// Server wires the pipeline components behind an HTTP mux.
type Server struct {
	pipeline   *intel.Pipeline
	assessor   *maturity.Assessor
	advisor    *advisor.Advisor
	compliance *compliance.Service
	planner    *compliance.Planner
	store      store.Store
	logger     *slog.Logger

	httpServer *http.Server
}

// Config holds the server's listen address and timeouts.
type Config struct {
	Addr string

	// ReadTimeout bounds request header and body reads. Zero means no
	// limit.
	ReadTimeout time.Duration

	// WriteTimeout is deliberately left off the assist route; a
	// streaming response outlives any fixed bound.
	WriteTimeout time.Duration
}

// New creates a Server. A nil logger defaults to slog.Default.
func New(
	cfg Config,
	pipeline *intel.Pipeline,
	assessor *maturity.Assessor,
	adv *advisor.Advisor,
	comp *compliance.Service,
	planner *compliance.Planner,
	st store.Store,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		pipeline:   pipeline,
		assessor:   assessor,
		advisor:    adv,
		compliance: comp,
		planner:    planner,
		store:      st,
		logger:     logger,
	}

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	s.httpServer = &http.Server{
		Addr:        cfg.Addr,
		Handler:     s.withMiddleware(mux),
		ReadTimeout: cfg.ReadTimeout,
	}

	return s
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/scans", s.handleScan)
	mux.HandleFunc("GET /api/v1/reports", s.handleListReports)
	mux.HandleFunc("GET /api/v1/reports/{id}", s.handleGetReport)
	mux.HandleFunc("POST /api/v1/maturity", s.handleMaturity)
	mux.HandleFunc("POST /api/v1/assist", s.handleAssist)
	mux.HandleFunc("GET /api/v1/frameworks", s.handleListFrameworks)
	mux.HandleFunc("POST /api/v1/controls/attest", s.handleAttest)
	mux.HandleFunc("GET /api/v1/compliance/stats", s.handleComplianceStats)
	mux.HandleFunc("POST /api/v1/plans", s.handleGeneratePlan)
	mux.HandleFunc("GET /api/v1/activities", s.handleListActivities)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.Handle("GET /metrics", promhttp.Handler())
}

// Handler returns the fully assembled handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins serving and blocks until the listener closes.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
