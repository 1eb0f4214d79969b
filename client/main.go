package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/croessner/nbench/client/engine"
	"github.com/croessner/nbench/definitions"
	"github.com/croessner/nbench/log"
	"github.com/croessner/nbench/log/level"
	"github.com/mattn/go-isatty"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
)

func main() {
	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}

		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	logger := log.SetupLogging(cfg.LogLevel, cfg.LogJSON, logColor(cfg.ColorMode), definitions.ServiceName)

	fx.New(
		fx.Supply(cfg, logger),
		fx.WithLogger(func() fxevent.Logger {
			if cfg.Debug {
				return engine.NewFxEventLogger(logger)
			}

			return fxevent.NopLogger
		}),
		engine.Module,
		fx.Invoke(runApp),
	).Run()
}

func setupFlags(flags *pflag.FlagSet) {
	defaults := engine.DefaultConfig()

	flags.IntP("threads", "t", defaults.Threads, "Number of OS threads driving the connections")
	flags.IntP("connections", "c", defaults.Connections, "Number of concurrent connections")
	flags.StringP("host", "h", "", "Target URL, e.g. http://localhost:8080/path")
	flags.StringP("duration", "d", defaults.Duration.String(), "Duration of one round, e.g. 10s or '1m 30s'; a bare number means seconds")
	flags.IntP("rounds", "r", defaults.Rounds, "Number of rounds to run")
	flags.StringP("method", "m", defaults.Method, "HTTP method")
	flags.StringArrayP("header", "H", nil, "Additional request header 'Name: value', may be repeated")
	flags.StringP("body", "b", "", "Request body")
	flags.String("log-level", "warn", "Diagnostic log level: none|error|warn|info|debug")
	flags.Bool("log-json", false, "Write diagnostic logs as JSON")
	flags.String("color", defaults.ColorMode, "Color output: auto|always|never")
	flags.String("format", defaults.Format, "Report format: text|json")
	flags.Bool("debug", false, "Enable debug output (including FX logs)")

	// -h is the target host, so help only has the long form.
	flags.Bool("help", false, "Show this help")
}

// loadConfig parses args, applies NBENCH_* environment overrides and
// returns a validated configuration.
func loadConfig(args []string) (*engine.Config, error) {
	flags := pflag.NewFlagSet(definitions.ServiceName, pflag.ContinueOnError)
	flags.SortFlags = false

	setupFlags(flags)

	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	if help, _ := flags.GetBool("help"); help {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n%s", definitions.ServiceName, flags.FlagUsages())

		return nil, pflag.ErrHelp
	}

	v := viper.New()
	v.SetEnvPrefix(definitions.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(flags); err != nil {
		return nil, err
	}

	// Header values may contain commas, so they bypass viper's CSV splitting.
	headers, err := flags.GetStringArray("header")
	if err != nil {
		return nil, err
	}

	return buildConfig(v, headers)
}

func buildConfig(v *viper.Viper, headers []string) (*engine.Config, error) {
	cfg := engine.DefaultConfig()

	cfg.Threads = v.GetInt("threads")
	cfg.Connections = v.GetInt("connections")
	cfg.Target = v.GetString("host")
	cfg.Rounds = v.GetInt("rounds")
	cfg.Method = v.GetString("method")
	cfg.Body = []byte(v.GetString("body"))
	cfg.LogJSON = v.GetBool("log-json")
	cfg.ColorMode = strings.ToLower(v.GetString("color"))
	cfg.Format = strings.ToLower(v.GetString("format"))
	cfg.Debug = v.GetBool("debug")

	duration, err := engine.ParseDuration(v.GetString("duration"))
	if err != nil {
		return nil, err
	}

	cfg.Duration = duration

	if cfg.Headers, err = engine.ParseHeaders(headers); err != nil {
		return nil, err
	}

	if cfg.LogLevel, err = log.ParseLevel(v.GetString("log-level")); err != nil {
		return nil, err
	}

	if cfg.Debug {
		cfg.LogLevel = definitions.LogLevelDebug
	}

	if err = cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func logColor(mode string) bool {
	switch mode {
	case definitions.ColorAlways:
		return true
	case definitions.ColorNever:
		return false
	}

	fd := os.Stderr.Fd()

	return os.Getenv("NO_COLOR") == "" && (isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd))
}

func runApp(lifecycle fx.Lifecycle, app *engine.App, logger *slog.Logger, shutdown fx.Shutdowner) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lifecycle.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			go func() {
				defer close(done)

				exitCode := 0

				if err := app.Run(ctx); err != nil {
					fmt.Fprintf(os.Stderr, "error: %v\n", err)

					exitCode = 1
				}

				level.Debug(logger).Log(definitions.LogKeyMsg, "Benchmark finished", "exit_code", exitCode)

				_ = shutdown.Shutdown(fx.ExitCode(exitCode))
			}()

			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			app.Stop()

			select {
			case <-done:
			case <-stopCtx.Done():
				cancel()
				<-done
			}

			cancel()

			return nil
		},
	})
}
