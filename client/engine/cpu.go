//go:build linux || darwin || windows

package engine

import (
	"github.com/mackerelio/go-osstat/cpu"
)

// cpuSample measures how busy the load generating host was between its
// creation and the call to busy. A saturated client skews every latency it
// reports.
type cpuSample struct {
	before *cpu.Stats
}

func startCPUSample() *cpuSample {
	before, err := cpu.Get()
	if err != nil {
		return &cpuSample{}
	}

	return &cpuSample{before: before}
}

// busy returns the non-idle share of CPU time in percent. ok is false when
// the platform counters were unavailable.
func (s *cpuSample) busy() (percent float64, ok bool) {
	if s.before == nil {
		return 0, false
	}

	after, err := cpu.Get()
	if err != nil || after.Total <= s.before.Total {
		return 0, false
	}

	total := float64(after.Total - s.before.Total)
	idle := float64(after.Idle - s.before.Idle)

	return Clamp01(1-idle/total) * 100, true
}
