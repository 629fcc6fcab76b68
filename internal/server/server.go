// Package server provides the HTTP server and routing for the forex signals API.
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

	"github.com/askpay/forexsignals/internal/config"
	"github.com/askpay/forexsignals/internal/database"
	"github.com/askpay/forexsignals/internal/events"
	"github.com/askpay/forexsignals/internal/metrics"
	"github.com/askpay/forexsignals/internal/modules/auth"
	authhandlers "github.com/askpay/forexsignals/internal/modules/auth/handlers"
	"github.com/askpay/forexsignals/internal/modules/ledger"
	ledgerhandlers "github.com/askpay/forexsignals/internal/modules/ledger/handlers"
	protectionhandlers "github.com/askpay/forexsignals/internal/modules/protection/handlers"
	"github.com/askpay/forexsignals/internal/modules/signals"
	signalshandlers "github.com/askpay/forexsignals/internal/modules/signals/handlers"
	"github.com/askpay/forexsignals/internal/reliability"
)

// Version is reported by the status endpoint
const Version = "1.0.0"

const maxBodyBytes = 10 << 20

// Config holds server dependencies
type Config struct {
	Log      zerolog.Logger
	DB       *database.DB
	Config   *config.Config
	Ledger   *ledger.Ledger
	Bus      *events.Bus
	Metrics  *metrics.Registry
	Signals  *signals.Service
	Auth     *auth.Service
	Snapshot *reliability.SnapshotService // nil when backups are disabled
}

// Server represents the HTTP server
type Server struct {
	router   *chi.Mux
	server   *http.Server
	log      zerolog.Logger
	db       *database.DB
	cfg      *config.Config
	ledger   *ledger.Ledger
	bus      *events.Bus
	metrics  *metrics.Registry
	signals  *signals.Service
	auth     *auth.Service
	snapshot *reliability.SnapshotService
	limiter  *ipRateLimiter
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:   chi.NewRouter(),
		log:      cfg.Log.With().Str("component", "server").Logger(),
		db:       cfg.DB,
		cfg:      cfg.Config,
		ledger:   cfg.Ledger,
		bus:      cfg.Bus,
		metrics:  cfg.Metrics,
		signals:  cfg.Signals,
		auth:     cfg.Auth,
		snapshot: cfg.Snapshot,
		limiter:  newIPRateLimiter(cfg.Config.RateLimitMaxRequests, cfg.Config.RateLimitWindow),
	}

	s.setupMiddleware(cfg.Config.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the root router
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware(devMode bool) {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)

	// Logging and request metrics
	s.router.Use(s.loggingMiddleware)

	s.router.Use(middleware.Timeout(60 * time.Second))
	s.router.Use(middleware.RequestSize(maxBodyBytes))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{s.cfg.FrontendURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Compress responses
	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Handle("/metrics", s.metrics.Handler())

	s.router.Route("/api", func(r chi.Router) {
		r.Use(s.rateLimitMiddleware)

		r.Get("/", s.handleStatus)
		r.Get("/health", s.handleHealth)

		authhandlers.NewHandler(s.auth, s.log).RegisterRoutes(r)
		protectionhandlers.NewHandler(s.log).RegisterRoutes(r)

		r.Group(func(r chi.Router) {
			if s.cfg.AuthRequired {
				r.Use(auth.Middleware(s.auth))
			}
			signalshandlers.NewHandler(s.signals, s.log).RegisterRoutes(r)
			ledgerhandlers.NewHandler(s.ledger, s.bus, s.storedSignals(), s.log).RegisterRoutes(r)

			r.Post("/system/backup", s.handleBackup)
		})
	})

	s.router.NotFound(s.handleNotFound)
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests and records request metrics by route pattern
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		duration := time.Since(start)
		route := ""
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			route = rctx.RoutePattern()
		}
		if s.metrics != nil {
			s.metrics.ObserveRequest(r.Method, route, ww.Status(), duration)
		}

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", duration).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}

// storedSignals keeps a missing signals service a nil interface
func (s *Server) storedSignals() ledgerhandlers.StoredSignals {
	if s.signals == nil {
		return nil
	}
	return s.signals
}
