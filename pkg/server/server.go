package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"

	"github.com/kacperjurak/gos2pcore/internal/processing"
	"github.com/kacperjurak/gos2pcore/pkg/cache"
	"github.com/kacperjurak/gos2pcore/pkg/config"
	"github.com/kacperjurak/gos2pcore/pkg/handlers"
	"github.com/kacperjurak/gos2pcore/pkg/models"
	"github.com/kacperjurak/gos2pcore/pkg/profiling"
	"github.com/kacperjurak/gos2pcore/pkg/storage"
	"github.com/kacperjurak/gos2pcore/pkg/webhook"
	"github.com/kacperjurak/gos2pcore/pkg/worker"
)

const apiVersion = "1.0.0"

// Server represents the HTTP server with all dependencies
type Server struct {
	config       *config.Config
	serverConfig *config.ServerConfig
	processor    *processing.DecodeProcessor
	objects      storage.ObjectSource
	cache        cache.Cache
	workerPool   *worker.Pool
	router       chi.Router
	httpServer   *http.Server
	profiler     *profiling.Profiler
	middleware   *profiling.Middleware
}

// Options holds configuration for creating a new server
type Options struct {
	Config       *config.Config
	ServerConfig *config.ServerConfig
	Cache        cache.Cache          // optional
	Objects      storage.ObjectSource // optional
}

// New creates a new server instance
func New(opts Options) *Server {
	if opts.Config == nil {
		opts.Config = config.DefaultConfig()
	}
	if opts.ServerConfig == nil {
		opts.ServerConfig = config.DefaultServerConfig()
	}

	processor := processing.NewDecodeProcessor(opts.Config, opts.Cache)

	poolOpts := worker.Options{
		Workers:   opts.ServerConfig.WorkerCount,
		Processor: processor.ProcessorFunc(),
	}
	if opts.ServerConfig.WebhookURL != "" {
		poolOpts.Webhook = webhook.NewClient(opts.ServerConfig.WebhookURL, opts.Config.Quiet)
	}

	s := &Server{
		config:       opts.Config,
		serverConfig: opts.ServerConfig,
		processor:    processor,
		objects:      opts.Objects,
		cache:        opts.Cache,
		workerPool:   worker.New(poolOpts),
		profiler:     profiling.New(opts.ServerConfig),
		middleware:   profiling.NewMiddleware(opts.ServerConfig.EnableProfiling),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(zerologLogger())
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.serverConfig.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))
	router.Use(s.middleware.Handler)

	humaConfig := huma.DefaultConfig("S2P Decode API", apiVersion)
	humaConfig.DocsPath = "/api/docs"
	api := humachi.New(router, humaConfig)

	decodeHandler := handlers.NewDecodeHandler(s.processor, s.objects)
	batchHandler := handlers.NewBatchHandler(s.workerPool)

	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, input *struct{}) (*models.HealthResponse, error) {
		resp := &models.HealthResponse{}
		resp.Body.Status = "healthy"
		resp.Body.Version = apiVersion
		resp.Body.Time = time.Now()
		return resp, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "decodeFile",
		Method:      http.MethodPost,
		Path:        "/api/decode",
		Summary:     "Decode a .s2p file",
		Description: "Decodes Touchstone two-port text into frequency points and network parameters",
		Tags:        []string{"Decode"},
	}, decodeHandler.Decode)

	huma.Register(api, huma.Operation{
		OperationID: "decodeBatch",
		Method:      http.MethodPost,
		Path:        "/api/decode/batch",
		Summary:     "Decode several .s2p files",
		Description: "Decodes every file on the worker pool and returns results in input order",
		Tags:        []string{"Decode"},
	}, batchHandler.DecodeBatch)

	huma.Register(api, huma.Operation{
		OperationID: "decodeObject",
		Method:      http.MethodGet,
		Path:        "/api/objects/decode",
		Summary:     "Decode a stored .s2p object",
		Tags:        []string{"Decode"},
	}, decodeHandler.DecodeObject)

	router.Get("/debug/gc", s.gcHandler)
	router.Get("/debug/memory", s.memoryHandler)

	s.router = router
	s.httpServer = &http.Server{
		Addr:         ":" + s.serverConfig.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// gcHandler triggers garbage collection and returns stats
func (s *Server) gcHandler(w http.ResponseWriter, r *http.Request) {
	before, after := profiling.ForceGC()
	writeJSON(w, map[string]interface{}{
		"before":    before,
		"after":     after,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// memoryHandler provides current memory and cache statistics
func (s *Server) memoryHandler(w http.ResponseWriter, r *http.Request) {
	body := map[string]interface{}{
		"memory":    profiling.GetMemoryStats(),
		"gc":        profiling.GetGCStats(),
		"timestamp": time.Now().Format(time.RFC3339),
	}
	if s.cache != nil {
		body["cache"] = s.cache.Metrics()
	}
	writeJSON(w, body)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("failed to write response")
	}
}

// Start starts the profiler and the HTTP server. It blocks until the server
// stops and returns nil after a graceful Shutdown.
func (s *Server) Start() error {
	if err := s.profiler.Start(); err != nil {
		log.Error().Err(err).Msg("failed to start profiler")
	}

	log.Info().
		Str("port", s.serverConfig.Port).
		Str("docs", fmt.Sprintf("http://localhost:%s/api/docs", s.serverConfig.Port)).
		Msg("starting HTTP server")

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains HTTP connections, then stops the profiler and the worker
// pool.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("shutting down server")

	httpErr := s.httpServer.Shutdown(ctx)
	if err := s.profiler.Stop(); err != nil {
		log.Warn().Err(err).Msg("profiler shutdown error")
	}
	s.workerPool.Shutdown()

	if httpErr != nil {
		return fmt.Errorf("http server shutdown: %w", httpErr)
	}
	log.Info().Msg("server shutdown complete")
	return nil
}

// zerologLogger returns a Chi middleware that logs HTTP requests using zerolog
func zerologLogger() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				log.Info().
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Str("request_id", middleware.GetReqID(r.Context())).
					Int("status", ww.Status()).
					Dur("latency", time.Since(start)).
					Msg("HTTP request")
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
