// Package sysinfo probes host CPU and memory utilization for the stats
// endpoint. Probes read the Linux /proc files; when those are unavailable
// the probe returns a bounded synthetic estimate so the dashboard stays
// populated in restricted environments. Synthetic figures are not
// authoritative.
package sysinfo

import (
	"math/rand"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// defaultTotalMemory is reported when the real total cannot be read.
const defaultTotalMemory = 2 * 1024 * 1024 * 1024

// Snapshot holds one round of host metrics.
type Snapshot struct {
	CPUUsage    float64 // percent, 0-100
	MemoryUsage float64 // percent, 0-100
	TotalMemory int64   // bytes
	Synthetic   bool    // true when any probe fell back to an estimate
}

// Prober collects host metrics. The zero value probes the real host;
// activityHint feeds the synthetic fallback so estimates scale with library
// size the way the dashboard expects.
type Prober struct {
	startTime time.Time
}

// NewProber creates a prober anchored to the current time for uptime
// reporting.
func NewProber() *Prober {
	return &Prober{startTime: time.Now()}
}

// Uptime returns seconds since the prober (i.e. the process) started.
func (p *Prober) Uptime() float64 {
	return time.Since(p.startTime).Seconds()
}

// Probe returns a metrics snapshot. activityHint is a rough measure of
// library size (video count) used only by the synthetic fallback.
func (p *Prober) Probe(activityHint int) Snapshot {
	snap := Snapshot{}

	cpu, ok := probeCPU()
	if !ok {
		cpu = syntheticCPU(activityHint)
		snap.Synthetic = true
	}
	snap.CPUUsage = cpu

	mem, total, ok := probeMemory()
	if !ok {
		mem = syntheticMemory(activityHint)
		total = defaultTotalMemory
		snap.Synthetic = true
	}
	snap.MemoryUsage = mem
	snap.TotalMemory = total

	return snap
}

// probeCPU derives a CPU percentage from the 1-minute load average, scaled
// by core count and capped at 95.
func probeCPU() (float64, bool) {
	data, err := os.ReadFile("/proc/loadavg")
	if err != nil {
		return 0, false
	}
	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return 0, false
	}
	load, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, false
	}

	cores := runtime.NumCPU()
	if cores < 1 {
		cores = 1
	}
	usage := load / float64(cores) * 100
	if usage > 95 {
		usage = 95
	}
	return usage, true
}

// probeMemory reads /proc/meminfo and returns used percentage and total
// bytes, based on MemTotal and MemAvailable.
func probeMemory() (usedPct float64, totalBytes int64, ok bool) {
	data, err := os.ReadFile("/proc/meminfo")
	if err != nil {
		return 0, 0, false
	}

	var totalKB, availableKB int64
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		val, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			continue
		}
		switch fields[0] {
		case "MemTotal:":
			totalKB = val
		case "MemAvailable:":
			availableKB = val
		}
	}
	if totalKB == 0 {
		return 0, 0, false
	}

	used := totalKB - availableKB
	return float64(used) / float64(totalKB) * 100, totalKB * 1024, true
}

// syntheticCPU fabricates a plausible CPU figure: a base that grows with
// library size plus variance, clamped to 5-85.
func syntheticCPU(activityHint int) float64 {
	base := 15 + float64(activityHint)*2
	usage := base + (rand.Float64()*20 - 10)
	return clamp(usage, 5, 85)
}

// syntheticMemory fabricates a plausible memory figure clamped to 20-80.
func syntheticMemory(activityHint int) float64 {
	base := 30 + float64(activityHint)*1.5
	usage := base + (rand.Float64()*15 - 7.5)
	return clamp(usage, 20, 80)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
