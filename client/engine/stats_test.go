package engine

import (
	"testing"
	"time"

	errs "github.com/croessner/nbench/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsLatencies(t *testing.T) {
	r := WorkerResult{
		TotalTimes: []time.Duration{2 * time.Second},
		Latencies:  []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 30 * time.Millisecond},
		Transfers:  []int64{30},
	}

	s, err := r.Stats()
	require.NoError(t, err)

	assert.Equal(t, 3, s.TotalRequests)
	assert.Equal(t, 20*time.Millisecond, s.Avg)
	assert.Equal(t, 10*time.Millisecond, s.Min)
	assert.Equal(t, 30*time.Millisecond, s.Max)
	assert.InDelta(t, 66.6667e-6, s.Variance, 1e-9)
	assert.InDelta(t, float64(8165*time.Microsecond), float64(s.StdDev), float64(time.Microsecond))

	assert.Equal(t, 2*time.Second, s.AvgRoundTime)
	assert.InDelta(t, 1.5, s.RequestsPerSec, 1e-9)
	assert.InDelta(t, 15.0, s.TransferPerSec, 1e-9)
	assert.Equal(t, int64(30), s.TotalTransfer)
}

func TestStatsPercentiles(t *testing.T) {
	var r WorkerResult

	r.TotalTimes = []time.Duration{time.Second}

	for i := 1; i <= 100; i++ {
		r.Latencies = append(r.Latencies, time.Duration(i)*time.Millisecond)
	}

	s, err := r.Stats()
	require.NoError(t, err)

	tolerance := float64(time.Millisecond) / 10

	assert.InDelta(t, float64(50*time.Millisecond), float64(s.P50), tolerance)
	assert.InDelta(t, float64(90*time.Millisecond), float64(s.P90), tolerance)
	assert.InDelta(t, float64(99*time.Millisecond), float64(s.P99), tolerance)
}

func TestStatsSingleSample(t *testing.T) {
	r := WorkerResult{
		TotalTimes: []time.Duration{time.Second},
		Latencies:  []time.Duration{5 * time.Millisecond},
	}

	s, err := r.Stats()
	require.NoError(t, err)

	assert.Zero(t, s.Variance)
	assert.Zero(t, s.StdDev)
	assert.Equal(t, s.Min, s.Max)
}

func TestStatsNoRequests(t *testing.T) {
	r := WorkerResult{
		TotalTimes: []time.Duration{time.Second},
		Transfers:  []int64{0},
		Errors:     map[string]int{"connection closed": 4, "connection refused": 4, "boom": 7},
	}

	s, err := r.Stats()
	require.ErrorIs(t, err, errs.ErrNoRequestsCompleted)

	assert.Zero(t, s.TotalRequests)
	assert.Zero(t, s.RequestsPerSec)
	assert.Equal(t, []ErrorCount{
		{Message: "boom", Count: 7},
		{Message: "connection closed", Count: 4},
		{Message: "connection refused", Count: 4},
	}, s.Errors)

	_, err = WorkerResult{}.Stats()
	assert.ErrorIs(t, err, errs.ErrNoRequestsCompleted)
}

func TestStatsStatusCodesSorted(t *testing.T) {
	r := WorkerResult{
		TotalTimes:  []time.Duration{time.Second},
		Latencies:   []time.Duration{time.Millisecond, time.Millisecond, time.Millisecond},
		StatusCodes: map[int]int{503: 1, 200: 2},
	}

	s, err := r.Stats()
	require.NoError(t, err)

	assert.Equal(t, []StatusCount{{Code: 200, Count: 2}, {Code: 503, Count: 1}}, s.StatusCodes)
}

func TestAvgRoundTime(t *testing.T) {
	r := WorkerResult{TotalTimes: []time.Duration{time.Second, 3 * time.Second}}

	assert.Equal(t, 2*time.Second, r.AvgRoundTime())
	assert.Zero(t, WorkerResult{}.AvgRoundTime())
}
