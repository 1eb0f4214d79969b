package engine

import (
	"cmp"
	"math"
	"slices"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/croessner/nbench/definitions"
	errs "github.com/croessner/nbench/errors"
)

// Stats is a read-only view derived from a merged round result.
type Stats struct {
	TotalRequests  int
	TotalTransfer  int64
	AvgRoundTime   time.Duration
	RequestsPerSec float64
	TransferPerSec float64

	Avg, Min, Max time.Duration
	StdDev        time.Duration
	// Variance is the population variance of the latencies in seconds².
	Variance float64

	P50, P90, P99 time.Duration

	Errors      []ErrorCount
	StatusCodes []StatusCount
}

// ErrorCount is one line of the deduplicated error list.
type ErrorCount struct {
	Message string `json:"message"`
	Count   int    `json:"count"`
}

// StatusCount is the number of responses with one HTTP status.
type StatusCount struct {
	Code  int `json:"code"`
	Count int `json:"count"`
}

// Stats derives the round statistics. If no request completed it returns
// errors.ErrNoRequestsCompleted together with the error and status tallies
// only, so that no division by zero can happen.
func (r WorkerResult) Stats() (Stats, error) {
	s := Stats{
		TotalRequests: len(r.Latencies),
		TotalTransfer: r.TotalTransfer(),
		Errors:        sortedErrors(r.Errors),
		StatusCodes:   sortedStatusCodes(r.StatusCodes),
	}

	if s.TotalRequests == 0 {
		return s, errs.ErrNoRequestsCompleted
	}

	s.AvgRoundTime = r.AvgRoundTime()
	if secs := s.AvgRoundTime.Seconds(); secs > 0 {
		s.RequestsPerSec = float64(s.TotalRequests) / secs
		s.TransferPerSec = float64(s.TotalTransfer) / secs
	}

	var sum float64

	s.Min = r.Latencies[0]
	s.Max = r.Latencies[0]

	for _, l := range r.Latencies {
		sum += l.Seconds()
		s.Min = min(s.Min, l)
		s.Max = max(s.Max, l)
	}

	n := float64(s.TotalRequests)
	mean := sum / n

	var squares float64

	for _, l := range r.Latencies {
		delta := l.Seconds() - mean
		squares += delta * delta
	}

	s.Avg = secondsToDuration(mean)
	s.Variance = squares / n
	s.StdDev = secondsToDuration(math.Sqrt(s.Variance))
	s.P50, s.P90, s.P99 = percentiles(r.Latencies)

	return s, nil
}

// TotalTransfer is the sum of all per-connection byte counts.
func (r WorkerResult) TotalTransfer() int64 {
	var total int64

	for _, b := range r.Transfers {
		total += b
	}

	return total
}

// AvgRoundTime is the mean wall time of the workers. Workers run concurrently
// for roughly the same time, so this is the divisor for all rates.
func (r WorkerResult) AvgRoundTime() time.Duration {
	if len(r.TotalTimes) == 0 {
		return 0
	}

	var sum float64

	for _, t := range r.TotalTimes {
		sum += t.Seconds()
	}

	return secondsToDuration(sum / float64(len(r.TotalTimes)))
}

func percentiles(latencies []time.Duration) (p50, p90, p99 time.Duration) {
	h := hdrhistogram.New(1, definitions.MaxTrackableLatency.Microseconds(), 3)

	for _, l := range latencies {
		us := max(l.Microseconds(), 1)
		us = min(us, h.HighestTrackableValue())

		_ = h.RecordValue(us)
	}

	at := func(q float64) time.Duration {
		return time.Duration(h.ValueAtQuantile(q)) * time.Microsecond
	}

	return at(50), at(90), at(99)
}

func secondsToDuration(secs float64) time.Duration {
	return time.Duration(math.Round(secs * float64(time.Second)))
}

func sortedErrors(m map[string]int) []ErrorCount {
	out := make([]ErrorCount, 0, len(m))

	for msg, count := range m {
		out = append(out, ErrorCount{Message: msg, Count: count})
	}

	slices.SortFunc(out, func(a, b ErrorCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}

		return cmp.Compare(a.Message, b.Message)
	})

	return out
}

func sortedStatusCodes(m map[int]int) []StatusCount {
	out := make([]StatusCount, 0, len(m))

	for code, count := range m {
		out = append(out, StatusCount{Code: code, Count: count})
	}

	slices.SortFunc(out, func(a, b StatusCount) int {
		return cmp.Compare(a.Code, b.Code)
	})

	return out
}
