package profiling

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

// Middleware provides profiling and metrics middleware for HTTP handlers
type Middleware struct {
	enableProfiling bool
}

// NewMiddleware creates a new profiling middleware
func NewMiddleware(enableProfiling bool) *Middleware {
	return &Middleware{
		enableProfiling: enableProfiling,
	}
}

// Handler wraps next with request timing. Start headers are set before the
// handler writes; the rest of the metrics go to the debug log.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.enableProfiling {
			next.ServeHTTP(w, r)
			return
		}

		rp := startRequest(r)
		w.Header().Set("X-Profiling-Enabled", "true")
		w.Header().Set("X-Start-Time", rp.start.Format(time.RFC3339Nano))
		w.Header().Set("X-Start-Goroutines", strconv.Itoa(rp.goroutines))

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		metrics := rp.finish(ww.Status(), ww.BytesWritten())
		log.Debug().
			Str("route", metrics.Route).
			Str("request_id", metrics.RequestID).
			Int("status", metrics.Status).
			Int("bytes", metrics.Bytes).
			Dur("duration", metrics.Duration).
			Int64("alloc_delta", metrics.AllocDelta).
			Int("goroutine_delta", metrics.GoroutineDelta).
			Msg("request profile")
	})
}

// requestProfile is the snapshot taken before a request is served
type requestProfile struct {
	route      string
	requestID  string
	start      time.Time
	alloc      uint64
	goroutines int
}

func startRequest(r *http.Request) requestProfile {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return requestProfile{
		route:      r.Method + " " + r.URL.Path,
		requestID:  middleware.GetReqID(r.Context()),
		start:      time.Now(),
		alloc:      m.Alloc,
		goroutines: runtime.NumGoroutine(),
	}
}

// RequestMetrics describes one served request
type RequestMetrics struct {
	Route          string
	RequestID      string
	Status         int
	Bytes          int
	Duration       time.Duration
	AllocDelta     int64
	GoroutineDelta int
}

func (rp requestProfile) finish(status, bytes int) RequestMetrics {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return RequestMetrics{
		Route:          rp.route,
		RequestID:      rp.requestID,
		Status:         status,
		Bytes:          bytes,
		Duration:       time.Since(rp.start),
		AllocDelta:     int64(m.Alloc) - int64(rp.alloc),
		GoroutineDelta: runtime.NumGoroutine() - rp.goroutines,
	}
}
