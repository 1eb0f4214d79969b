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

// Package color colours complete slog text lines by level. It is used for
// diagnostics written to a terminal; the benchmark report is coloured
// separately.
package color

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"sync"
)

const (
	ansiReset  = "\x1b[0m"
	ansiFaint  = "\x1b[2m"
	ansiRed    = "\x1b[31m"
	ansiYellow = "\x1b[33m"
	ansiCyan   = "\x1b[36m"
)

// DefaultColors maps levels to ANSI foreground colours. Info stays uncoloured
// so that it reads like plain output next to the report.
func DefaultColors() map[slog.Level]string {
	return map[slog.Level]string{
		slog.LevelDebug: ansiFaint,
		slog.LevelInfo:  "",
		slog.LevelWarn:  ansiYellow,
		slog.LevelError: ansiRed,
	}
}

// LineWrapper renders records with slog.TextHandler and wraps each line in
// the colour of its level.
type LineWrapper struct {
	mu   *sync.Mutex
	out  io.Writer
	opts *slog.HandlerOptions
	// ops replays WithAttrs and WithGroup calls in call order.
	ops    []func(slog.Handler) slog.Handler
	colors map[slog.Level]string
}

// NewLineWrapper creates a LineWrapper. A nil colour map selects DefaultColors.
func NewLineWrapper(out io.Writer, opts *slog.HandlerOptions, colors map[slog.Level]string) *LineWrapper {
	if colors == nil {
		colors = DefaultColors()
	}

	if opts == nil {
		opts = &slog.HandlerOptions{}
	}

	return &LineWrapper{mu: &sync.Mutex{}, out: out, opts: opts, colors: colors}
}

func (h *LineWrapper) Enabled(_ context.Context, lvl slog.Level) bool {
	if h.opts.Level == nil {
		return lvl >= slog.LevelInfo
	}

	return lvl >= h.opts.Level.Level()
}

func (h *LineWrapper) Handle(ctx context.Context, r slog.Record) error {
	var buf bytes.Buffer

	var inner slog.Handler = slog.NewTextHandler(&buf, h.opts)

	for _, op := range h.ops {
		inner = op(inner)
	}

	if err := inner.Handle(ctx, r); err != nil {
		return err
	}

	line := bytes.TrimSuffix(buf.Bytes(), []byte{'\n'})
	prefix := h.pick(r.Level)

	var out bytes.Buffer

	if prefix != "" {
		out.WriteString(prefix)
		out.Write(line)
		out.WriteString(ansiReset)
	} else {
		out.Write(line)
	}

	out.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()

	_, err := h.out.Write(out.Bytes())

	return err
}

func (h *LineWrapper) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.with(func(inner slog.Handler) slog.Handler {
		return inner.WithAttrs(attrs)
	})
}

func (h *LineWrapper) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}

	return h.with(func(inner slog.Handler) slog.Handler {
		return inner.WithGroup(name)
	})
}

func (h *LineWrapper) with(op func(slog.Handler) slog.Handler) *LineWrapper {
	cp := *h
	cp.ops = append(append([]func(slog.Handler) slog.Handler(nil), h.ops...), op)

	return &cp
}

func (h *LineWrapper) pick(lvl slog.Level) string {
	if c, ok := h.colors[lvl]; ok {
		return c
	}

	switch {
	case lvl >= slog.LevelError:
		return ansiRed
	case lvl >= slog.LevelWarn:
		return ansiYellow
	case lvl <= slog.LevelDebug:
		return ansiCyan
	default:
		return ""
	}
}

var _ slog.Handler = (*LineWrapper)(nil)
