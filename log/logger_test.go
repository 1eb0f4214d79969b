package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/croessner/nbench/definitions"
	"github.com/croessner/nbench/log/level"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name       string
		level      int
		formatJSON bool
		useColor   bool
		wantDebug  bool
		wantWarn   bool
	}{
		{name: "none", level: definitions.LogLevelNone},
		{name: "error, logfmt", level: definitions.LogLevelError},
		{name: "warn, json", level: definitions.LogLevelWarn, formatJSON: true, wantWarn: true},
		{name: "info, color", level: definitions.LogLevelInfo, useColor: true, wantWarn: true},
		{name: "debug, json", level: definitions.LogLevelDebug, formatJSON: true, wantDebug: true, wantWarn: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}

			logger := NewLogger(buf, tt.level, tt.formatJSON, tt.useColor, "test")

			level.Debug(logger).Log(definitions.LogKeyMsg, "debug line")
			level.Warn(logger).Log(definitions.LogKeyMsg, "warn line")

			out := buf.String()

			assert.Equal(t, tt.wantDebug, strings.Contains(out, "debug line"))
			assert.Equal(t, tt.wantWarn, strings.Contains(out, "warn line"))

			if tt.wantWarn {
				assert.Contains(t, out, "test")
			}

			if tt.useColor {
				assert.Contains(t, out, "\x1b[33m")
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]int{
		"none":  definitions.LogLevelNone,
		"Error": definitions.LogLevelError,
		"":      definitions.LogLevelWarn,
		"info":  definitions.LogLevelInfo,
		"DEBUG": definitions.LogLevelDebug,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestSetupLoggingReplacesGlobal(t *testing.T) {
	before := Logger

	got := SetupLogging(definitions.LogLevelWarn, false, false, definitions.ServiceName)

	assert.Same(t, got, Logger)
	assert.NotSame(t, before, Logger)
	assert.False(t, got.Enabled(t.Context(), slog.LevelInfo))
}
