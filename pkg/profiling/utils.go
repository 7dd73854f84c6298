package profiling

import (
	"runtime"
	"time"

	"github.com/rs/zerolog/log"
)

// WorkerProfiler profiles worker pool operations
type WorkerProfiler struct {
	startTime   time.Time
	startMemory uint64
	workerID    int
	operation   string
}

// NewWorkerProfiler creates a new worker profiler
func NewWorkerProfiler(workerID int, operation string) *WorkerProfiler {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return &WorkerProfiler{
		startTime:   time.Now(),
		startMemory: m.Alloc,
		workerID:    workerID,
		operation:   operation,
	}
}

// Finish logs the elapsed time and heap delta at debug level
func (wp *WorkerProfiler) Finish() time.Duration {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	duration := time.Since(wp.startTime)
	log.Debug().
		Int("worker", wp.workerID).
		Str("operation", wp.operation).
		Dur("duration", duration).
		Int64("memory_delta", int64(m.Alloc)-int64(wp.startMemory)).
		Int("goroutines", runtime.NumGoroutine()).
		Msg("worker operation finished")
	return duration
}

// WebhookProfiler profiles webhook operations
type WebhookProfiler struct {
	startTime time.Time
	batchID   string
}

// NewWebhookProfiler creates a new webhook profiler
func NewWebhookProfiler(batchID string) *WebhookProfiler {
	return &WebhookProfiler{
		startTime: time.Now(),
		batchID:   batchID,
	}
}

// Finish completes webhook profiling
func (whp *WebhookProfiler) Finish(success bool) {
	log.Debug().
		Str("batch_id", whp.batchID).
		Bool("success", success).
		Dur("duration", time.Since(whp.startTime)).
		Msg("webhook finished")
}

// GCStats provides garbage collection statistics
type GCStats struct {
	NumGC        uint32        `json:"num_gc"`
	PauseTotal   time.Duration `json:"pause_total_ns"`
	PauseRecent  time.Duration `json:"pause_recent_ns"`
	LastGC       time.Time     `json:"last_gc"`
	GCCPUPercent float64       `json:"gc_cpu_percent"`
}

// GetGCStats returns current garbage collection statistics
func GetGCStats() GCStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	var recentPause time.Duration
	if m.NumGC > 0 {
		recentPause = time.Duration(m.PauseNs[(m.NumGC+255)%256])
	}

	return GCStats{
		NumGC:        m.NumGC,
		PauseTotal:   time.Duration(m.PauseTotalNs),
		PauseRecent:  recentPause,
		LastGC:       time.Unix(0, int64(m.LastGC)),
		GCCPUPercent: m.GCCPUFraction * 100,
	}
}

// MemoryStats is a snapshot of heap usage in megabytes
type MemoryStats struct {
	AllocMB      float64 `json:"alloc_mb"`
	TotalAllocMB float64 `json:"total_alloc_mb"`
	SysMB        float64 `json:"sys_mb"`
	NumGC        uint32  `json:"num_gc"`
	Goroutines   int     `json:"goroutines"`
}

func GetMemoryStats() MemoryStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return MemoryStats{
		AllocMB:      bToMb(m.Alloc),
		TotalAllocMB: bToMb(m.TotalAlloc),
		SysMB:        bToMb(m.Sys),
		NumGC:        m.NumGC,
		Goroutines:   runtime.NumGoroutine(),
	}
}

// ForceGC triggers garbage collection and returns the stats before and after
func ForceGC() (before, after GCStats) {
	before = GetGCStats()
	runtime.GC()
	after = GetGCStats()

	log.Info().
		Uint32("runs_before", before.NumGC).
		Uint32("runs_after", after.NumGC).
		Dur("pause", after.PauseRecent).
		Msg("forced GC")
	return before, after
}

func bToMb(b uint64) float64 {
	return float64(b) / 1024 / 1024
}
