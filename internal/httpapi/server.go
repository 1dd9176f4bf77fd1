// Package httpapi exposes the library and study sessions over HTTP.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/abhisek/brainbrew/internal/account"
	"github.com/abhisek/brainbrew/internal/logging"
	"github.com/abhisek/brainbrew/internal/store"
	"github.com/abhisek/brainbrew/internal/telemetry"
	"github.com/abhisek/brainbrew/internal/tutor"
)

// Library is the document store the API serves from.
type Library interface {
	tutor.PersistenceService
	Document(ctx context.Context, handle string) (*store.Document, error)
}

// Deps wires the API to its collaborators.
type Deps struct {
	Content   tutor.ContentService
	Grader    tutor.GradingService
	Library   Library
	Exchanges store.ExchangeRepo
	Verifier  *account.Verifier

	// Registry receives the HTTP and tutor metrics and is served at
	// /metrics. Nil creates a fresh registry.
	Registry *prometheus.Registry

	Logger *logging.Logger

	// Tutor configures every session controller. Logger, Metrics and
	// Recorder are filled in per session.
	Tutor tutor.Options

	// Ping reports storage health for /healthz.
	Ping func(context.Context) error
}

// Options tunes the HTTP server.
type Options struct {
	Addr            string
	Service         string
	AllowedOrigins  []string
	SessionTTL      time.Duration
	ShutdownTimeout time.Duration
}

// Server is the brainbrew HTTP API.
type Server struct {
	engine   *gin.Engine
	sessions *Sessions
	opts     Options
	log      *logging.Logger
}

type handler struct {
	deps     Deps
	sessions *Sessions
	metrics  *tutor.Metrics
	log      *logging.Logger
}

// New builds the router. It panics only if metric registration collides,
// as promauto does.
func New(deps Deps, opts Options) *Server {
	if opts.Service == "" {
		opts.Service = "brainbrew"
	}
	if deps.Registry == nil {
		deps.Registry = telemetry.NewRegistry()
	}
	log := logging.OrNop(deps.Logger).Named("http")

	h := &handler{
		deps:     deps,
		sessions: NewSessions(opts.SessionTTL),
		metrics:  tutor.NewMetrics(deps.Registry),
		log:      log,
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(opts.Service))
	r.Use(requestLogger(log))
	r.Use(newHTTPMetrics(deps.Registry).middleware())
	if len(opts.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     opts.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.GET("/healthz", h.health)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{Registry: deps.Registry})))

	api := r.Group("/api/v1")
	api.Use(requireAuth(deps.Verifier))
	{
		api.POST("/documents", h.uploadDocument)
		api.GET("/documents", h.listDocuments)
		api.GET("/documents/:id/url", h.documentURL)
		api.DELETE("/documents/:id", h.deleteDocument)

		api.POST("/sessions", h.createSession)
		api.GET("/sessions/:id", h.getSession)
		api.POST("/sessions/:id/answer", h.answer)
		api.POST("/sessions/:id/hint", h.hint)
		api.POST("/sessions/:id/retry", h.retry)
		api.DELETE("/sessions/:id", h.resetSession)
	}

	return &Server{engine: r, sessions: h.sessions, opts: opts, log: log}
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Sessions returns the live session registry.
func (s *Server) Sessions() *Sessions {
	return s.sessions
}

// Run serves until ctx is cancelled, then shuts down gracefully. Idle
// sessions are swept while serving.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sweepDone := make(chan struct{})
	sweepCtx, stopSweep := context.WithCancel(ctx)
	go func() {
		defer close(sweepDone)
		s.sessions.RunSweeper(sweepCtx, s.log)
	}()
	defer func() {
		stopSweep()
		<-sweepDone
	}()

	errc := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", s.opts.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	timeout := s.opts.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	s.log.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	s.sessions.Close()
	return nil
}

func (h *handler) health(c *gin.Context) {
	if h.deps.Ping != nil {
		if err := h.deps.Ping(c.Request.Context()); err != nil {
			h.log.Warn("health check failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": h.sessions.Len()})
}
