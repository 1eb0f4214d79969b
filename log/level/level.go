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

// Package level provides go-kit style leveled logging on top of log/slog:
//
//	level.Info(logger).Log(definitions.LogKeyMsg, "round finished", "requests", n)
//
// A "msg" key with a string value becomes the record message, all other pairs
// are emitted as slog attributes.
package level

import (
	"context"
	"log/slog"
	"reflect"
)

// Logger is the minimal keyvals logging interface.
type Logger interface {
	Log(keyvals ...any) error
}

type leveled struct {
	l   *slog.Logger
	lvl slog.Level
}

func Debug(l *slog.Logger) Logger { return leveled{l: l, lvl: slog.LevelDebug} }

func Info(l *slog.Logger) Logger { return leveled{l: l, lvl: slog.LevelInfo} }

func Warn(l *slog.Logger) Logger { return leveled{l: l, lvl: slog.LevelWarn} }

func Error(l *slog.Logger) Logger { return leveled{l: l, lvl: slog.LevelError} }

// Log implements Logger. Non-string keys and a trailing key without value are
// dropped. A nil logger discards everything.
func (s leveled) Log(keyvals ...any) error {
	if s.l == nil {
		return nil
	}

	ctx := context.Background()
	if !s.l.Enabled(ctx, s.lvl) {
		return nil
	}

	var msg string

	attrs := make([]slog.Attr, 0, len(keyvals)/2)

	for i := 0; i+1 < len(keyvals); i += 2 {
		k, ok := keyvals[i].(string)
		if !ok {
			continue
		}

		v := keyvals[i+1]

		if k == "msg" {
			if vs, ok := v.(string); ok {
				msg = vs

				continue
			}
		}

		if isTypedNil(v) {
			attrs = append(attrs, slog.String(k, "<nil>"))

			continue
		}

		switch vv := v.(type) {
		case string:
			attrs = append(attrs, slog.String(k, vv))
		case error:
			attrs = append(attrs, slog.String(k, vv.Error()))
		default:
			attrs = append(attrs, slog.Any(k, vv))
		}
	}

	if msg == "" {
		msg = s.lvl.String()
	}

	s.l.LogAttrs(ctx, s.lvl, msg, attrs...)

	return nil
}

func isTypedNil(v any) bool {
	if v == nil {
		return true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Chan, reflect.Func, reflect.Map, reflect.Pointer, reflect.Interface, reflect.Slice:
		return rv.IsNil()
	default:
		return false
	}
}
