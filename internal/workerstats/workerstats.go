// Package workerstats reports per-PID resource usage for a session's pose
// producer worker process, backing GET /sessions/{id}/stats.
package workerstats

import (
	"fmt"

	"github.com/shirou/gopsutil/v3/process"
)

// Stats is one point-in-time reading of a worker process's resource usage.
type Stats struct {
	PID        int32   `json:"pid"`
	CPUPercent float64 `json:"cpuPercent"`
	RSSBytes   uint64  `json:"rssBytes"`
	NumThreads int32   `json:"numThreads"`
}

// Collect reads current CPU/RSS/thread-count stats for pid. It returns an
// error if the process no longer exists (e.g. the worker already exited).
func Collect(pid int) (Stats, error) {
	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		return Stats{}, fmt.Errorf("workerstats: open pid %d: %w", pid, err)
	}

	stats := Stats{PID: int32(pid)}

	if cpuPercent, err := proc.CPUPercent(); err == nil {
		stats.CPUPercent = cpuPercent
	}
	if mem, err := proc.MemoryInfo(); err == nil && mem != nil {
		stats.RSSBytes = mem.RSS
	}
	if threads, err := proc.NumThreads(); err == nil {
		stats.NumThreads = threads
	}

	return stats, nil
}
