// Package server hosts the search engine behind an HTTP API.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/klauspost/compress/gzhttp"

	"github.com/merxlabs/merx/pkg/auth"
	"github.com/merxlabs/merx/pkg/cache"
	"github.com/merxlabs/merx/pkg/engine"
	"github.com/merxlabs/merx/pkg/events"
	gql "github.com/merxlabs/merx/pkg/graphql"
	"github.com/merxlabs/merx/pkg/metrics"
	"github.com/merxlabs/merx/pkg/server/handlers"
)

// Server represents the HTTP server hosting the engine.
type Server struct {
	config       *Config
	engine       *engine.Engine
	router       *chi.Mux
	httpSrv      *http.Server
	startTime    time.Time
	collector    *metrics.Collector
	promExporter *metrics.PrometheusExporter
	bus          *events.Bus
	logger       *log.Logger
}

// New creates a new HTTP server instance.
func New(config *Config) (*Server, error) {
	if config.EnableTLS {
		if config.TLSCertFile == "" || config.TLSKeyFile == "" {
			return nil, fmt.Errorf("TLS enabled but certificate or key file not specified")
		}
		if _, err := os.Stat(config.TLSCertFile); os.IsNotExist(err) {
			return nil, fmt.Errorf("TLS certificate file not found: %s", config.TLSCertFile)
		}
		if _, err := os.Stat(config.TLSKeyFile); os.IsNotExist(err) {
			return nil, fmt.Errorf("TLS key file not found: %s", config.TLSKeyFile)
		}
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{
		Prefix:          "merx",
		ReportTimestamp: true,
	})

	bus := events.NewBus(64)
	eng := engine.New(engine.Config{
		BloomCapacity:  config.BloomCapacity,
		BloomErrorRate: config.BloomErrorRate,
	}, engine.WithEventBus(bus), engine.WithLogger(logger))

	collector := metrics.NewCollector()

	srv := &Server{
		config:       config,
		engine:       eng,
		router:       chi.NewRouter(),
		startTime:    time.Now(),
		collector:    collector,
		promExporter: metrics.NewPrometheusExporter(collector, eng),
		bus:          bus,
		logger:       logger,
	}

	srv.setupMiddleware()
	if err := srv.setupRoutes(); err != nil {
		return nil, err
	}

	addr := fmt.Sprintf("%s:%d", config.Host, config.Port)
	srv.httpSrv = &http.Server{
		Addr:         addr,
		Handler:      srv.router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	return srv, nil
}

// Engine exposes the hosted engine, mainly for tests.
func (s *Server) Engine() *engine.Engine {
	return s.engine
}

// Router exposes the configured router, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// setupMiddleware configures the HTTP middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)

	if s.config.EnableLogging {
		s.router.Use(middleware.Logger)
	}
	if s.config.EnableCORS {
		s.router.Use(s.corsMiddleware)
	}
	if s.config.EnableGzip {
		s.router.Use(func(next http.Handler) http.Handler {
			return gzhttp.GzipHandler(next)
		})
	}

	s.router.Use(s.requestSizeLimitMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))
}

// setupRoutes configures HTTP routes.
func (s *Server) setupRoutes() error {
	var resultCache *cache.LRUCache
	if s.config.CacheSize > 0 {
		resultCache = cache.NewLRUCache(s.config.CacheSize, s.config.CacheTTL)
	}

	h := handlers.New(s.engine, resultCache, s.collector, s.bus, s.logger)

	s.router.Get("/health", h.Health(s.startTime))
	s.router.Get("/stats", h.Stats)
	s.router.Get("/metrics", s.handlePrometheusMetrics)

	s.router.Route("/api/search", func(r chi.Router) {
		r.Get("/", h.Search)
		r.Get("/autocomplete", h.Autocomplete)
		r.Get("/recommendations/{id}", h.Recommendations)
		r.Post("/index/product", h.IndexProduct)
		r.Delete("/index/product/{id}", h.DeleteProduct)
		r.Post("/analytics/view", h.RecordView)
		r.Get("/analytics", h.Analytics)
	})

	// Admin surface, optionally key-guarded.
	var verifier *auth.KeyVerifier
	if s.config.AdminKey != "" {
		v, err := auth.NewKeyVerifier(s.config.AdminKey)
		if err != nil {
			return fmt.Errorf("failed to set up admin key: %w", err)
		}
		verifier = v
	}
	s.router.Route("/admin", func(r chi.Router) {
		r.Use(auth.Middleware(verifier))
		r.Delete("/reset", h.Reset)
	})

	s.router.Get("/ws/events", h.StreamEvents)

	if s.config.EnableGraphQL {
		graphqlHandler, err := gql.NewHandler(s.engine)
		if err != nil {
			return fmt.Errorf("failed to create GraphQL handler: %w", err)
		}
		s.router.Post("/graphql", graphqlHandler.ServeHTTP)
		s.router.Get("/graphiql", gql.GraphiQLHandler())
		s.logger.Info("GraphQL API enabled", "endpoint", "/graphql", "playground", "/graphiql")
	}

	return nil
}

// corsMiddleware handles CORS headers.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := "*"
		if len(s.config.AllowedOrigins) > 0 {
			origin = s.config.AllowedOrigins[0]
		}

		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// requestSizeLimitMiddleware limits request body size.
func (s *Server) requestSizeLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxRequestSize)
		next.ServeHTTP(w, r)
	})
}

// handlePrometheusMetrics handles the Prometheus metrics endpoint.
func (s *Server) handlePrometheusMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	if err := s.promExporter.WriteMetrics(w); err != nil {
		http.Error(w, fmt.Sprintf("Error writing metrics: %v", err), http.StatusInternalServerError)
	}
}

// Start starts the HTTP server and blocks until shutdown.
func (s *Server) Start() error {
	protocol := "http"
	if s.config.EnableTLS {
		protocol = "https"
	}
	s.logger.Info("server starting",
		"addr", fmt.Sprintf("%s://%s:%d", protocol, s.config.Host, s.config.Port),
		"bloom_capacity", s.config.BloomCapacity,
		"cache_size", s.config.CacheSize,
	)

	errChan := make(chan error, 1)
	go func() {
		var err error
		if s.config.EnableTLS {
			err = s.httpSrv.ListenAndServeTLS(s.config.TLSCertFile, s.config.TLSKeyFile)
		} else {
			err = s.httpSrv.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		s.logger.Info("shutting down", "signal", sig.String())
		return s.Shutdown()
	}
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpSrv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}
