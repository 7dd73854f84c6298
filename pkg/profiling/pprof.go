package profiling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/kacperjurak/gos2pcore/pkg/config"
)

// Profiler manages pprof profiling server
type Profiler struct {
	config *config.ServerConfig
	server *http.Server
}

// New creates a new profiler instance
func New(cfg *config.ServerConfig) *Profiler {
	return &Profiler{
		config: cfg,
	}
}

// Handler returns the profiling routes: pprof under /debug/pprof and a
// runtime summary at /debug/info.
func (p *Profiler) Handler() http.Handler {
	r := chi.NewRouter()
	r.Mount("/debug", middleware.Profiler())
	r.Get("/debug/info", p.infoHandler)
	return r
}

// Start starts the profiling server on a separate port
func (p *Profiler) Start() error {
	if !p.config.EnableProfiling {
		log.Info().Msg("profiling disabled")
		return nil
	}

	runtime.SetBlockProfileRate(1)
	runtime.SetMutexProfileFraction(1)

	p.server = &http.Server{
		Addr:              ":" + p.config.ProfilingPort,
		Handler:           p.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info().
		Str("port", p.config.ProfilingPort).
		Str("index", fmt.Sprintf("http://localhost:%s/debug/pprof/", p.config.ProfilingPort)).
		Msg("starting profiling server")

	go func() {
		if err := p.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("profiling server error")
		}
	}()

	return nil
}

// Stop gracefully stops the profiling server
func (p *Profiler) Stop() error {
	if p.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := p.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("profiling server shutdown error: %w", err)
	}

	log.Info().Msg("profiling server stopped")
	return nil
}

type runtimeInfo struct {
	Timestamp  string      `json:"timestamp"`
	Goroutines int         `json:"goroutines"`
	GOMAXPROCS int         `json:"gomaxprocs"`
	NumCPU     int         `json:"num_cpu"`
	Version    string      `json:"version"`
	Memory     MemoryStats `json:"memory"`
	GC         GCStats     `json:"gc"`
}

func (p *Profiler) infoHandler(w http.ResponseWriter, r *http.Request) {
	info := runtimeInfo{
		Timestamp:  time.Now().Format(time.RFC3339),
		Goroutines: runtime.NumGoroutine(),
		GOMAXPROCS: runtime.GOMAXPROCS(0),
		NumCPU:     runtime.NumCPU(),
		Version:    runtime.Version(),
		Memory:     GetMemoryStats(),
		GC:         GetGCStats(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(info); err != nil {
		log.Warn().Err(err).Msg("failed to write runtime info")
	}
}
