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

package errors

import (
	"errors"
)

// DetailedError attaches a human readable detail (for example the offending
// target or header) to one of the sentinel errors below. errors.Is matches
// against the wrapped sentinel.
type DetailedError struct {
	err     error
	details string
}

func (d *DetailedError) Error() string {
	if d.details == "" {
		return d.err.Error()
	}

	return d.err.Error() + ": " + d.details
}

func (d *DetailedError) Unwrap() error {
	return d.err
}

func (d *DetailedError) GetDetails() string {
	return d.details
}

func NewDetailedError(err error, details string) *DetailedError {
	return &DetailedError{err: err, details: details}
}

// categories.

var (
	ErrConfiguration      = errors.New("invalid configuration")
	ErrTemplateResolution = errors.New("template resolution failed")
)

// configuration.

var (
	ErrMissingTarget      = errors.New("missing 'host' parameter")
	ErrInvalidThreads     = errors.New("invalid parameter for 'threads' given, input type must be a positive integer")
	ErrInvalidConnections = errors.New("invalid parameter for 'connections' given, input type must be a positive integer")
	ErrInvalidRounds      = errors.New("invalid parameter for 'rounds' given, input type must be a positive integer")
	ErrInvalidDuration    = errors.New("failed to parse duration parameter")
	ErrInvalidMethod      = errors.New("invalid request method")
	ErrInvalidHeader      = errors.New("invalid header")
	ErrInvalidFormat      = errors.New("unsupported output format")
	ErrInvalidColorMode   = errors.New("unsupported color mode")
)

// template.

var (
	ErrInvalidURI        = errors.New("invalid uri")
	ErrUnsupportedScheme = errors.New("invalid scheme")
	ErrMissingHost       = errors.New("host not present on uri")
	ErrResolutionFailed  = errors.New("hostname lookup failed")
)

// connection.

var (
	ErrConnect          = errors.New("connect error")
	ErrTLS              = errors.New("tls handshake error")
	ErrHandshake        = errors.New("http handshake error")
	ErrConnectionClosed = errors.New("connection closed")
	ErrDeadlineExceeded = errors.New("deadline exceeded")
)

// results.

var (
	ErrNoRequestsCompleted = errors.New("no requests completed successfully")
)
