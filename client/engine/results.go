package engine

import (
	"time"
)

// WorkerResult is everything one worker measured during a round. Results of
// all workers are folded with Merge; the empty value is the identity.
type WorkerResult struct {
	// TotalTimes holds the wall time of each worker that managed to connect.
	TotalTimes []time.Duration

	// Latencies holds one entry per successfully completed request.
	Latencies []time.Duration

	// Transfers holds the body bytes received on each established connection.
	Transfers []int64

	// Errors counts failed request attempts by message.
	Errors map[string]int

	// StatusCodes counts completed requests by HTTP status.
	StatusCodes map[int]int
}

// Merge combines two results without modifying either of them. It is
// associative and commutative up to the order of the concatenated samples,
// which no derived statistic depends on.
func (r WorkerResult) Merge(other WorkerResult) WorkerResult {
	return WorkerResult{
		TotalTimes:  concat(r.TotalTimes, other.TotalTimes),
		Latencies:   concat(r.Latencies, other.Latencies),
		Transfers:   concat(r.Transfers, other.Transfers),
		Errors:      sumCounts(r.Errors, other.Errors),
		StatusCodes: sumCounts(r.StatusCodes, other.StatusCodes),
	}
}

// MergeAll folds any number of results.
func MergeAll(results ...WorkerResult) WorkerResult {
	var out WorkerResult

	for _, r := range results {
		out = out.Merge(r)
	}

	return out
}

// IsEmpty reports whether r carries no data at all.
func (r WorkerResult) IsEmpty() bool {
	return len(r.TotalTimes) == 0 && len(r.Latencies) == 0 && len(r.Transfers) == 0 &&
		len(r.Errors) == 0 && len(r.StatusCodes) == 0
}

func (r *WorkerResult) addError(message string) {
	if r.Errors == nil {
		r.Errors = make(map[string]int)
	}

	r.Errors[message]++
}

func (r *WorkerResult) addStatus(code int) {
	if r.StatusCodes == nil {
		r.StatusCodes = make(map[int]int)
	}

	r.StatusCodes[code]++
}

func concat[T any](a, b []T) []T {
	if len(a)+len(b) == 0 {
		return nil
	}

	out := make([]T, 0, len(a)+len(b))
	out = append(out, a...)

	return append(out, b...)
}

func sumCounts[K comparable](a, b map[K]int) map[K]int {
	if len(a)+len(b) == 0 {
		return nil
	}

	out := make(map[K]int, len(a)+len(b))

	for k, v := range a {
		out[k] += v
	}

	for k, v := range b {
		out[k] += v
	}

	return out
}
