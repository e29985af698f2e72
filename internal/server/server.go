// Package server provides the HTTP API for the market data backend.
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

	"github.com/madhav2145/Stocks-and-ETFS-broking-platform/internal/database"
	"github.com/madhav2145/Stocks-and-ETFS-broking-platform/internal/logos"
	"github.com/madhav2145/Stocks-and-ETFS-broking-platform/internal/marketdata"
	"github.com/madhav2145/Stocks-and-ETFS-broking-platform/internal/watchlist"
)

// RateLimitReporter exposes the remaining upstream request budget.
type RateLimitReporter interface {
	GetRemainingRequests() int
}

// BackupTrigger runs an on-demand backup and returns the uploaded key.
type BackupTrigger interface {
	CreateAndUpload(ctx context.Context) (string, error)
}

// Config holds server dependencies.
type Config struct {
	Log        zerolog.Logger
	Port       int
	DevMode    bool
	DataDir    string
	CacheDB    *database.DB
	StateDB    *database.DB
	Market     *marketdata.Service
	Watchlists *watchlist.Store
	Quotes     *watchlist.QuoteService
	Logos      *logos.Resolver
	RateLimit  RateLimitReporter
	Backups    BackupTrigger
}

// Server is the HTTP server.
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	market         *marketdata.Service
	watchlists     *watchlist.Store
	quotes         *watchlist.QuoteService
	logos          *logos.Resolver
	rateLimit      RateLimitReporter
	backups        BackupTrigger
	systemHandlers *SystemHandlers
}

// New creates a configured HTTP server.
func New(cfg Config) *Server {
	s := &Server{
		router:         chi.NewRouter(),
		log:            cfg.Log.With().Str("component", "server").Logger(),
		market:         cfg.Market,
		watchlists:     cfg.Watchlists,
		quotes:         cfg.Quotes,
		logos:          cfg.Logos,
		rateLimit:      cfg.RateLimit,
		backups:        cfg.Backups,
		systemHandlers: NewSystemHandlers(cfg.Log, cfg.DataDir, []*database.DB{cfg.CacheDB, cfg.StateDB}, cfg.RateLimit),
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

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
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// Timeout
	s.router.Use(middleware.Timeout(60 * time.Second))

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
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
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/system", func(r chi.Router) {
			r.Get("/info", s.systemHandlers.HandleSystemInfo)
			r.Get("/database/stats", s.systemHandlers.HandleDatabaseStats)
			r.Post("/backup", s.handleTriggerBackup)
		})

		r.Route("/market", func(r chi.Router) {
			r.Get("/top-movers", s.handleTopMovers)
			r.Get("/search", s.handleSearch)
			r.Get("/overview/{symbol}", s.handleOverview)
			r.Get("/timeseries/{symbol}", s.handleTimeSeries)
		})

		r.Get("/logos/{symbol}", s.handleLogo)

		r.Route("/watchlists", func(r chi.Router) {
			r.Get("/", s.handleListWatchlists)
			r.Post("/", s.handleCreateWatchlist)
			r.Route("/{group}", func(r chi.Router) {
				r.Get("/", s.handleGetWatchlist)
				r.Delete("/", s.handleDeleteWatchlist)
				r.Post("/symbols", s.handleToggleSymbol)
				r.Get("/quotes", s.handleGroupQuotes)
			})
		})
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// Handler returns the router, for tests.
func (s *Server) Handler() http.Handler {
	return s.router
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
