package engine

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/croessner/nbench/definitions"
	"github.com/croessner/nbench/log/level"
	"golang.org/x/sync/errgroup"
)

// busyCPUThreshold marks a load generator as saturated.
const busyCPUThreshold = 90.0

// RoundReport is the outcome of one round handed to the Reporter.
type RoundReport struct {
	Number    int
	Result    WorkerResult
	ClientCPU float64
	CPUKnown  bool
}

// App runs the configured number of rounds one after another.
type App struct {
	Config   *Config
	Reporter *Reporter
	Logger   *slog.Logger

	// Resolver and NewConnector are replaceable for tests.
	Resolver     Resolver
	NewConnector func(tpl *Template) Connector

	stopChan chan struct{}
	stopOnce sync.Once
}

func NewApp(cfg *Config, reporter *Reporter, logger *slog.Logger) *App {
	return &App{
		Config:   cfg,
		Reporter: reporter,
		Logger:   logger,
		NewConnector: func(tpl *Template) Connector {
			return NewConnector(tpl)
		},
		stopChan: make(chan struct{}),
	}
}

// Stop ends the running round early and skips the remaining rounds.
func (a *App) Stop() {
	a.stopOnce.Do(func() {
		close(a.stopChan)
	})
}

// Run executes all rounds. Only fatal template errors are returned; a round
// in which no request completed is reported and the run goes on.
func (a *App) Run(ctx context.Context) error {
	prev := runtime.GOMAXPROCS(a.Config.Threads)
	defer runtime.GOMAXPROCS(prev)

	a.ensureFileLimit()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case <-a.stopChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	level.Info(a.Logger).Log(
		definitions.LogKeyMsg, "Benchmark started",
		definitions.LogKeyTarget, a.Config.Target,
		definitions.LogKeyThreads, a.Config.Threads,
		definitions.LogKeyConnections, a.Config.Connections,
	)

	for round := 1; round <= a.Config.Rounds; round++ {
		if ctx.Err() != nil {
			break
		}

		report, err := a.RunRound(ctx, round)
		if err != nil {
			return err
		}

		if report.CPUKnown && report.ClientCPU >= busyCPUThreshold {
			level.Warn(a.Logger).Log(
				definitions.LogKeyMsg, "Load generator CPU saturated, latencies are likely inflated",
				definitions.LogKeyRound, round,
				"cpu_percent", report.ClientCPU,
			)
		}

		if err = a.Reporter.Round(a.Config, report); err != nil {
			return err
		}
	}

	return nil
}

// RunRound resolves the template, runs one worker per connection until the
// round deadline and merges their results.
func (a *App) RunRound(ctx context.Context, round int) (RoundReport, error) {
	deadline := time.Now().Add(a.Config.Duration)

	tpl, err := ResolveTemplate(ctx, a.Config, a.Resolver)
	if err != nil {
		level.Error(a.Logger).Log(
			definitions.LogKeyMsg, "Unable to resolve target",
			definitions.LogKeyTarget, a.Config.Target,
			definitions.LogKeyError, err,
		)

		return RoundReport{}, err
	}

	level.Debug(a.Logger).Log(
		definitions.LogKeyMsg, "Target resolved",
		definitions.LogKeyRound, round,
		definitions.LogKeyAddress, tpl.Addr,
	)

	roundCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	a.Reporter.RoundStart(round, a.Config)

	connector := a.NewConnector(tpl)
	cpuSample := startCPUSample()
	results := make(chan WorkerResult, a.Config.Connections)

	var g errgroup.Group

	for id := range a.Config.Connections {
		g.Go(func() error {
			results <- NewWorker(id, tpl, connector, a.Logger).Run(roundCtx)

			return nil
		})
	}

	_ = g.Wait()
	close(results)

	report := RoundReport{Number: round}

	for r := range results {
		report.Result = report.Result.Merge(r)
	}

	report.ClientCPU, report.CPUKnown = cpuSample.busy()

	level.Info(a.Logger).Log(
		definitions.LogKeyMsg, "Round finished",
		definitions.LogKeyRound, round,
		definitions.LogKeyRequests, len(report.Result.Latencies),
	)

	return report, nil
}

func (a *App) ensureFileLimit() {
	// One descriptor per connection plus headroom for stdio and the resolver.
	want := uint64(a.Config.Connections) + 64

	got, err := raiseFileLimit(want)
	if err != nil {
		level.Warn(a.Logger).Log(definitions.LogKeyMsg, "Unable to raise open file limit", definitions.LogKeyError, err)

		return
	}

	if got < want {
		level.Warn(a.Logger).Log(
			definitions.LogKeyMsg, "Open file limit is lower than the number of connections",
			"limit", got,
			definitions.LogKeyConnections, a.Config.Connections,
		)
	}
}
