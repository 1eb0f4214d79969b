package engine

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/croessner/nbench/definitions"
	errs "github.com/croessner/nbench/errors"
	"golang.org/x/net/http/httpguts"
)

// Config holds all parameters for one benchmark run. It is filled by the
// command line layer, validated once and treated as read-only afterwards.
type Config struct {
	Threads     int
	Connections int
	Target      string
	Duration    time.Duration
	Rounds      int
	Method      string
	Headers     http.Header
	Body        []byte

	LogLevel  int
	LogJSON   bool
	ColorMode string
	Format    string
	Debug     bool
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Threads:     1,
		Connections: 1,
		Duration:    definitions.DefaultDuration,
		Rounds:      1,
		Method:      definitions.DefaultMethod,
		Headers:     make(http.Header),
		LogLevel:    definitions.LogLevelWarn,
		ColorMode:   definitions.ColorAuto,
		Format:      definitions.FormatText,
	}
}

// Validate normalizes the method and checks every field. All failures wrap
// errors.ErrConfiguration.
func (c *Config) Validate() error {
	c.Target = strings.TrimSpace(c.Target)
	c.Method = strings.ToUpper(strings.TrimSpace(c.Method))

	if c.Method == "" {
		c.Method = definitions.DefaultMethod
	}

	if c.Headers == nil {
		c.Headers = make(http.Header)
	}

	var err error

	switch {
	case c.Target == "":
		err = errs.ErrMissingTarget
	case c.Threads < 1:
		err = errs.NewDetailedError(errs.ErrInvalidThreads, strconv.Itoa(c.Threads))
	case c.Connections < 1:
		err = errs.NewDetailedError(errs.ErrInvalidConnections, strconv.Itoa(c.Connections))
	case c.Rounds < 1:
		err = errs.NewDetailedError(errs.ErrInvalidRounds, strconv.Itoa(c.Rounds))
	case c.Duration <= 0:
		err = errs.NewDetailedError(errs.ErrInvalidDuration, c.Duration.String())
	case !httpguts.ValidHeaderFieldName(c.Method):
		err = errs.NewDetailedError(errs.ErrInvalidMethod, c.Method)
	case c.Format != definitions.FormatText && c.Format != definitions.FormatJSON:
		err = errs.NewDetailedError(errs.ErrInvalidFormat, c.Format)
	}

	if err == nil {
		switch c.ColorMode {
		case definitions.ColorAuto, definitions.ColorAlways, definitions.ColorNever:
		default:
			err = errs.NewDetailedError(errs.ErrInvalidColorMode, c.ColorMode)
		}
	}

	if err != nil {
		return fmt.Errorf("%w: %w", errs.ErrConfiguration, err)
	}

	return nil
}

// ParseHeader splits a "Name: value" command line argument.
func ParseHeader(value string) (name string, headerValue string, err error) {
	name, headerValue, ok := strings.Cut(value, ":")
	if !ok {
		return "", "", errs.NewDetailedError(errs.ErrInvalidHeader, "header value missing colon (\": \"): "+value)
	}

	name = strings.TrimSpace(name)
	headerValue = strings.TrimSpace(headerValue)

	if !httpguts.ValidHeaderFieldName(name) {
		return "", "", errs.NewDetailedError(errs.ErrInvalidHeader, "invalid header name: "+name)
	}

	if !httpguts.ValidHeaderFieldValue(headerValue) {
		return "", "", errs.NewDetailedError(errs.ErrInvalidHeader, "invalid header value: "+headerValue)
	}

	return name, headerValue, nil
}

// ParseHeaders collects repeated -H arguments into an http.Header.
func ParseHeaders(values []string) (http.Header, error) {
	header := make(http.Header, len(values))

	for _, v := range values {
		name, value, err := ParseHeader(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errs.ErrConfiguration, err)
		}

		header.Add(name, value)
	}

	return header, nil
}

// ParseDuration accepts Go durations with optional blanks between the
// components ("1m 30s") and bare integers, which are taken as seconds.
func ParseDuration(value string) (time.Duration, error) {
	compact := strings.Join(strings.Fields(value), "")
	if compact == "" {
		return 0, fmt.Errorf("%w: %w", errs.ErrConfiguration, errs.NewDetailedError(errs.ErrInvalidDuration, "empty"))
	}

	if secs, err := strconv.ParseUint(compact, 10, 32); err == nil {
		return time.Duration(secs) * time.Second, nil
	}

	d, err := time.ParseDuration(compact)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%w: %w", errs.ErrConfiguration, errs.NewDetailedError(errs.ErrInvalidDuration, value))
	}

	return d, nil
}
