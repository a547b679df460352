// Package api exposes the provisioning pipeline over HTTP.
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ferro.is/voxic/internal/audit"
	"ferro.is/voxic/internal/brand"
	"ferro.is/voxic/internal/clock"
	"ferro.is/voxic/internal/config"
	"ferro.is/voxic/internal/i18n"
	"ferro.is/voxic/internal/logging"
	"ferro.is/voxic/internal/metrics"
	"ferro.is/voxic/internal/provision"
)

// ServerConfig holds HTTP server hardening knobs.
type ServerConfig struct {
	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
	MaxBodyBytes      int64
}

// DefaultServerConfig returns secure default server configuration.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16,
		MaxBodyBytes:      1 << 20, // endpoint payloads are small
	}
}

// Server handles API requests.
type Server struct {
	cfg       *config.Config
	manager   *provision.Manager
	audit     *audit.Store
	logger    *logging.Logger
	srvCfg    *ServerConfig
	reg       *metrics.Registry
	startTime time.Time
	mux       *http.ServeMux
	httpSrv   *http.Server
}

// ServerOptions holds dependencies for the API server.
type ServerOptions struct {
	Config  *config.Config
	Manager *provision.Manager
	Audit   *audit.Store // optional; nil disables the trail
	Logger  *logging.Logger
	SrvCfg  *ServerConfig
}

// NewServer wires the routes and returns a ready server.
func NewServer(opts ServerOptions) *Server {
	if opts.Logger == nil {
		opts.Logger = logging.WithComponent("api")
	}
	if opts.SrvCfg == nil {
		opts.SrvCfg = DefaultServerConfig()
	}

	s := &Server{
		cfg:       opts.Config,
		manager:   opts.Manager,
		audit:     opts.Audit,
		logger:    opts.Logger,
		srvCfg:    opts.SrvCfg,
		reg:       metrics.Get(),
		startTime: clock.Now(),
		mux:       http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	// Public surfaces for monitoring.
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.Handle("GET /metrics", promhttp.Handler())

	// Everything below mutates or reveals the managed file.
	s.mux.HandleFunc("GET /api/endpoints", s.instrument("/api/endpoints", s.requireKey(s.handleListEndpoints)))
	s.mux.HandleFunc("POST /api/endpoints", s.instrument("/api/endpoints", s.requireKey(s.handleCreateEndpoint)))
	s.mux.HandleFunc("GET /api/endpoints/availability/{id}", s.instrument("/api/endpoints/availability", s.requireKey(s.handleAvailability)))
	s.mux.HandleFunc("GET /api/endpoints/{id}", s.instrument("/api/endpoints/{id}", s.requireKey(s.handleGetEndpoint)))
	s.mux.HandleFunc("PUT /api/endpoints/{id}", s.instrument("/api/endpoints/{id}", s.requireKey(s.handleUpdateEndpoint)))
	s.mux.HandleFunc("DELETE /api/endpoints/{id}", s.instrument("/api/endpoints/{id}", s.requireKey(s.handleDeleteEndpoint)))

	s.mux.HandleFunc("POST /api/reload", s.instrument("/api/reload", s.requireKey(s.handleReload)))
	s.mux.HandleFunc("GET /api/config/raw", s.instrument("/api/config/raw", s.requireKey(s.handleRawConfig)))

	s.mux.HandleFunc("GET /api/backups", s.instrument("/api/backups", s.requireKey(s.handleListBackups)))
	s.mux.HandleFunc("POST /api/backups", s.instrument("/api/backups", s.requireKey(s.handleCreateBackup)))
	s.mux.HandleFunc("POST /api/backups/{version}/restore", s.instrument("/api/backups/restore", s.requireKey(s.handleRestoreBackup)))

	s.mux.HandleFunc("GET /api/audit", s.instrument("/api/audit", s.requireKey(s.handleAuditLog)))
}

// instrument wraps a handler with request metrics and a body limit.
func (s *Server) instrument(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := clock.Now()
		r.Body = http.MaxBytesReader(w, r.Body, s.srvCfg.MaxBodyBytes)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)

		s.reg.APIRequests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		s.reg.APILatency.WithLabelValues(r.Method, route).Observe(clock.Since(start).Seconds())
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Handler returns the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler { return i18n.Middleware(s.mux) }

// ListenAndServe runs the server until the context is canceled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.srvCfg.ReadHeaderTimeout,
		ReadTimeout:       s.srvCfg.ReadTimeout,
		WriteTimeout:      s.srvCfg.WriteTimeout,
		IdleTimeout:       s.srvCfg.IdleTimeout,
		MaxHeaderBytes:    s.srvCfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("API listening", "addr", s.cfg.Listen)
		errCh <- s.httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpSrv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"name":           brand.LowerName,
		"version":        brand.Version,
		"uptime_seconds": int64(clock.Since(s.startTime).Seconds()),
	})
}
