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

package definitions

import "time"

const (
	// LogKeyMsg represents the message content in log entries.
	LogKeyMsg = "msg"

	// LogKeyError represents error information in log entries.
	LogKeyError = "error"

	// LogKeyInstance represents instance identification in log entries.
	LogKeyInstance = "instance"

	// LogKeyRound is the 1-based round number.
	LogKeyRound = "round"

	// LogKeyWorker identifies a worker within a round.
	LogKeyWorker = "worker"

	// LogKeyTarget is the benchmarked target URL.
	LogKeyTarget = "target"

	// LogKeyAddress is the resolved socket address of the target.
	LogKeyAddress = "address"

	// LogKeyConnections is the number of concurrent connections.
	LogKeyConnections = "connections"

	// LogKeyThreads is the number of scheduler threads.
	LogKeyThreads = "threads"

	// LogKeyAttempts counts connection attempts.
	LogKeyAttempts = "attempts"

	// LogKeyRequests is the number of completed requests.
	LogKeyRequests = "requests"

	// LogKeyElapsed is an elapsed wall time.
	LogKeyElapsed = "elapsed"
)

// Log level.
const (
	// LogLevelNone is the iota constant representing no logs
	LogLevelNone = iota

	// LogLevelError is the iota constant for error logs
	LogLevelError

	// LogLevelWarn is the iota constant for warning logs
	LogLevelWarn

	// LogLevelInfo is the iota constant for info logs
	LogLevelInfo

	// LogLevelDebug is the iota constant for debug logs
	LogLevelDebug
)

const (
	// ServiceName is used as the logger instance and the environment prefix.
	ServiceName = "nbench"

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "NBENCH"

	// ReconnectInterval is the pause between two failed connection attempts.
	ReconnectInterval = 25 * time.Millisecond

	// DefaultDuration is the length of one round.
	DefaultDuration = 2 * time.Second

	// DefaultMethod is the request method used when none was configured.
	DefaultMethod = "GET"

	// DefaultHTTPPort and DefaultHTTPSPort are used when the target has no explicit port.
	DefaultHTTPPort  = 80
	DefaultHTTPSPort = 443

	// MaxTrackableLatency is the upper bound of the percentile histogram.
	MaxTrackableLatency = time.Minute
)

// Schemes accepted in a target URL.
const (
	SchemeHTTP  = "http"
	SchemeHTTPS = "https"
)

// Supported values for the colour and output format switches.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"

	FormatText = "text"
	FormatJSON = "json"
)
