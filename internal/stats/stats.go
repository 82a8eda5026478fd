// Package stats collects the counters shown by /debug and /metrics.
package stats

import (
	"runtime"
	"time"

	"github.com/keepmind9/shelfbot/internal/dispatch"
	"github.com/keepmind9/shelfbot/internal/interactive"
)

const mebibyte = 1024 * 1024

// Runtime describes the process
type Runtime struct {
	Goroutines   int    `json:"goroutines"`
	HeapAllocMiB uint64 `json:"heap_alloc_mib"`
	SysMiB       uint64 `json:"sys_mib"`
	GoVersion    string `json:"go_version"`
	Platform     string `json:"platform"`
}

// Snapshot is a point-in-time view of the bot
type Snapshot struct {
	Connected   bool              `json:"connected"`
	Ready       bool              `json:"ready"`
	Guilds      int               `json:"guilds"`
	LatencyMS   int64             `json:"latency_ms"`
	Uptime      string            `json:"uptime"`
	Messages    dispatch.Stats    `json:"messages"`
	Reactions   dispatch.Stats    `json:"reactions"`
	Interactive interactive.Stats `json:"interactive"`
	Runtime     Runtime           `json:"runtime"`
}

// Source produces snapshots on demand
type Source func() Snapshot

// ReadRuntime samples the Go runtime
func ReadRuntime() Runtime {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	return Runtime{
		Goroutines:   runtime.NumGoroutine(),
		HeapAllocMiB: mem.HeapAlloc / mebibyte,
		SysMiB:       mem.Sys / mebibyte,
		GoVersion:    runtime.Version(),
		Platform:     runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// FormatUptime renders the time since start rounded to seconds
func FormatUptime(start time.Time) string {
	return time.Since(start).Round(time.Second).String()
}
