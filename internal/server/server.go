package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/tradewind/papertrader/internal/database"
	"github.com/tradewind/papertrader/internal/identity"
	"github.com/tradewind/papertrader/internal/scheduler"
	"github.com/tradewind/papertrader/internal/modules/analytics"
	"github.com/tradewind/papertrader/internal/modules/execution"
	"github.com/tradewind/papertrader/internal/modules/portfolio"
	"github.com/tradewind/papertrader/internal/modules/positions"
	"github.com/tradewind/papertrader/internal/modules/signals"
)

// Config holds server configuration and the handler set to mount
type Config struct {
	Port    int
	DevMode bool
	Log     zerolog.Logger
	DB      *database.DB

	Identity  identity.Provider
	Scheduler *scheduler.Scheduler
	SweepJob  scheduler.Job
	Signals   *signals.Handlers
	Execution *execution.Handlers
	Positions *positions.Handlers
	Portfolio *portfolio.Handlers
	Analytics *analytics.Handlers
}

// Server represents the HTTP server
type Server struct {
	router    *chi.Mux
	server    *http.Server
	log       zerolog.Logger
	db        *database.DB
	scheduler *scheduler.Scheduler
	sweepJob  scheduler.Job
	port      int
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		log:       cfg.Log.With().Str("component", "server").Logger(),
		db:        cfg.DB,
		scheduler: cfg.Scheduler,
		sweepJob:  cfg.SweepJob,
		port:      cfg.Port,
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes(cfg)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes. Everything under /api requires an
// authenticated caller.
func (s *Server) setupRoutes(cfg Config) {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(identity.Middleware(cfg.Identity, s.log))

		r.Route("/system", func(r chi.Router) {
			r.Get("/status", s.handleSystemStatus)
			r.Post("/sweep", s.handleRunSweep)
		})

		r.Route("/signals", func(r chi.Router) {
			r.Post("/", cfg.Signals.HandleCreate)
			r.Get("/", cfg.Signals.HandleList)
			r.Post("/{id}/execute", cfg.Execution.HandleExecute)
		})

		r.Route("/positions", func(r chi.Router) {
			r.Get("/", cfg.Positions.HandleList)
			r.Post("/mark", cfg.Positions.HandleMark)
			r.Post("/{id}/close", cfg.Positions.HandleClose)
		})

		r.Route("/portfolios", func(r chi.Router) {
			r.Post("/", cfg.Portfolio.HandleCreate)
			r.Get("/{id}", cfg.Portfolio.HandleGet)
			r.Post("/{id}/recompute", cfg.Portfolio.HandleRecompute)
		})

		r.Route("/analytics", func(r chi.Router) {
			r.Get("/risk", cfg.Analytics.HandleRisk)
			r.Get("/tpsl/{symbol}", cfg.Analytics.HandleTPSL)
		})
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
