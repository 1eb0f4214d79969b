package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/croessner/nbench/definitions"
	errs "github.com/croessner/nbench/errors"
	"github.com/croessner/nbench/log/level"
)

// Worker is one logical client. It keeps exactly one connection open for the
// duration of a round and issues the templated request serially over it,
// reconnecting transparently whenever the connection fails.
type Worker struct {
	id        int
	template  *Template
	connector Connector
	logger    *slog.Logger
}

func NewWorker(id int, tpl *Template, connector Connector, logger *slog.Logger) *Worker {
	return &Worker{id: id, template: tpl, connector: connector, logger: logger}
}

// outcome of one serving step.
type outcome int

const (
	outcomeSuccess outcome = iota
	outcomeFailure
	outcomeDeadline
)

// Run executes the worker state machine until ctx ends. The returned result
// is empty when the initial connection could not be established.
func (w *Worker) Run(ctx context.Context) WorkerResult {
	start := time.Now()

	conn, err := w.connector.Connect(ctx)
	if err != nil {
		level.Debug(w.logger).Log(
			definitions.LogKeyMsg, "Initial connect failed",
			definitions.LogKeyWorker, w.id,
			definitions.LogKeyError, err,
		)

		return WorkerResult{}
	}

	var (
		result      WorkerResult
		transferred int64
	)

	for conn != nil {
		resp, latency, out, failure := w.serve(ctx, conn)

		switch out {
		case outcomeSuccess:
			result.Latencies = append(result.Latencies, latency)
			result.addStatus(resp.Status)
			transferred += resp.Bytes

			continue
		case outcomeDeadline:
			_ = conn.Close()
			result.Transfers = append(result.Transfers, transferred)
			conn = nil

			continue
		}

		result.addError(failure.Error())

		_ = conn.Close()
		result.Transfers = append(result.Transfers, transferred)
		transferred = 0

		level.Debug(w.logger).Log(
			definitions.LogKeyMsg, "Request failed, reconnecting",
			definitions.LogKeyWorker, w.id,
			definitions.LogKeyError, failure,
		)

		conn, err = ConnectUntil(ctx, w.connector, w.logger)
		if err != nil {
			conn = nil
		}
	}

	result.TotalTimes = []time.Duration{time.Since(start)}

	level.Debug(w.logger).Log(
		definitions.LogKeyMsg, "Worker terminated",
		definitions.LogKeyWorker, w.id,
		definitions.LogKeyRequests, len(result.Latencies),
		definitions.LogKeyElapsed, result.TotalTimes[0],
	)

	return result
}

// serve issues one request and waits for whichever comes first: the driver
// stopping, the fully drained response or the end of the round. A driver
// that failed wins over a response that became ready at the same time; a
// driver that shut down cleanly after delivering the response (Connection:
// close) does not void that response.
func (w *Worker) serve(ctx context.Context, conn Conn) (Response, time.Duration, outcome, error) {
	if ctx.Err() != nil {
		return Response{}, 0, outcomeDeadline, nil
	}

	req := w.template.NewRequest()
	start := time.Now()
	reply := conn.Send(req)

	select {
	case <-conn.Done():
		if conn.Err() == nil {
			select {
			case resp := <-reply:
				return resp, time.Since(start), outcomeSuccess, nil
			default:
			}
		}

		return Response{}, 0, outcomeFailure, driverError(conn)
	case resp := <-reply:
		latency := time.Since(start)

		select {
		case <-conn.Done():
			if conn.Err() != nil {
				return Response{}, 0, outcomeFailure, driverError(conn)
			}
		default:
		}

		return resp, latency, outcomeSuccess, nil
	case <-ctx.Done():
		return Response{}, 0, outcomeDeadline, nil
	}
}

func driverError(conn Conn) error {
	if err := conn.Err(); err != nil {
		return err
	}

	return errs.ErrConnectionClosed
}
