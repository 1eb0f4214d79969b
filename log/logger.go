// Copyright (C) 2024 Christian Rößner
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/croessner/nbench/definitions"
	"github.com/croessner/nbench/log/color"
)

var (
	mu sync.Mutex

	// Logger is used for all diagnostic messages. They go to stderr so the
	// benchmark report on stdout stays machine friendly.
	Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
)

// SetupLogging initializes the global "Logger" object.
func SetupLogging(configLogLevel int, formatJSON bool, useColor bool, instance string) *slog.Logger {
	mu.Lock()

	defer mu.Unlock()

	Logger = NewLogger(os.Stderr, configLogLevel, formatJSON, useColor, instance)

	return Logger
}

// NewLogger builds a logger writing to w. LogLevelNone discards everything.
func NewLogger(w io.Writer, configLogLevel int, formatJSON bool, useColor bool, instance string) *slog.Logger {
	var lvl slog.Level

	switch configLogLevel {
	case definitions.LogLevelNone:
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	case definitions.LogLevelError:
		lvl = slog.LevelError
	case definitions.LogLevelWarn:
		lvl = slog.LevelWarn
	case definitions.LogLevelInfo:
		lvl = slog.LevelInfo
	default:
		lvl = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: lvl}

	var handler slog.Handler

	switch {
	case formatJSON:
		handler = slog.NewJSONHandler(w, opts)
	case useColor:
		handler = color.NewLineWrapper(w, opts, nil)
	default:
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler).With(definitions.LogKeyInstance, instance)
}

// ParseLevel maps the textual verbosity of the command line to a log level.
func ParseLevel(value string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "none", "off":
		return definitions.LogLevelNone, nil
	case "error":
		return definitions.LogLevelError, nil
	case "warn", "warning", "":
		return definitions.LogLevelWarn, nil
	case "info":
		return definitions.LogLevelInfo, nil
	case "debug":
		return definitions.LogLevelDebug, nil
	default:
		return definitions.LogLevelNone, fmt.Errorf("wrong verbose level: <%s>", value)
	}
}
