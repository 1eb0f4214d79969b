package engine

import (
	"fmt"
	"log/slog"

	"github.com/croessner/nbench/definitions"
	"github.com/croessner/nbench/log/level"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
)

// Module provides the fx module for the benchmark engine. The caller supplies
// the validated *Config and the *slog.Logger.
var Module = fx.Module("engine",
	fx.Provide(
		NewReporter,
		NewApp,
	),
)

// FxEventLogger routes fx lifecycle events into the benchmark logger.
type FxEventLogger struct {
	logger *slog.Logger
}

func NewFxEventLogger(logger *slog.Logger) fxevent.Logger {
	return &FxEventLogger{logger: logger}
}

func (l *FxEventLogger) LogEvent(event fxevent.Event) {
	if l == nil || l.logger == nil {
		return
	}

	switch e := event.(type) {
	case *fxevent.Started:
		l.logResult("fx started", "", e.Err)
	case *fxevent.Stopped:
		l.logResult("fx stopped", "", e.Err)
	case *fxevent.RollingBack:
		level.Warn(l.logger).Log(definitions.LogKeyMsg, "fx rolling back", definitions.LogKeyError, e.StartErr)
	case *fxevent.OnStartExecuted:
		l.logResult("fx OnStart executed", e.FunctionName, e.Err)
	case *fxevent.OnStopExecuted:
		l.logResult("fx OnStop executed", e.FunctionName, e.Err)
	case *fxevent.Provided:
		level.Debug(l.logger).Log(definitions.LogKeyMsg, "fx provided", "constructor", e.ConstructorName, "module", e.ModuleName)
	case *fxevent.Invoked:
		l.logResult("fx invoked", e.FunctionName, e.Err)
	default:
		level.Debug(l.logger).Log(definitions.LogKeyMsg, "fx event", "type", fmt.Sprintf("%T", event))
	}
}

func (l *FxEventLogger) logResult(msg string, callee string, err error) {
	if err != nil {
		level.Error(l.logger).Log(definitions.LogKeyMsg, msg, "callee", callee, definitions.LogKeyError, err)

		return
	}

	level.Debug(l.logger).Log(definitions.LogKeyMsg, msg, "callee", callee)
}
