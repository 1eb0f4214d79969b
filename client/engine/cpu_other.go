//go:build !linux && !darwin && !windows

package engine

type cpuSample struct{}

func startCPUSample() *cpuSample {
	return &cpuSample{}
}

func (s *cpuSample) busy() (float64, bool) {
	return 0, false
}
