package metrics

import (
	"os"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/process"
)

// ProcessSnapshot is a point-in-time sample of this process's resource
// usage, surfaced on the /health endpoint. Grounded on
// go-server/internal/metrics/system.go's use of gopsutil for CPU sampling.
type ProcessSnapshot struct {
	CPUPercent float64 `json:"cpu_percent"`
	RSSBytes   uint64  `json:"rss_bytes"`
}

// SampleProcess reads current CPU and memory usage for this process. Any
// sampling error yields a zeroed snapshot rather than failing the health
// check: resource sampling is a diagnostic, not a liveness signal.
func SampleProcess() ProcessSnapshot {
	var snap ProcessSnapshot

	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		snap.CPUPercent = percents[0]
	}

	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if mem, err := proc.MemoryInfo(); err == nil && mem != nil {
			snap.RSSBytes = mem.RSS
		}
	}

	return snap
}
