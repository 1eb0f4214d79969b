package engine

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/croessner/nbench/definitions"
	errs "github.com/croessner/nbench/errors"
	"github.com/croessner/nbench/log/level"
)

// Connector opens logical connections to the benchmark target.
type Connector interface {
	Connect(ctx context.Context) (Conn, error)
}

// NetConnector dials the address of a Template and speaks HTTP/1.1 over TCP
// or TLS.
type NetConnector struct {
	template *Template
	dialer   net.Dialer
}

func NewConnector(tpl *Template) *NetConnector {
	return &NetConnector{
		template: tpl,
		dialer:   net.Dialer{KeepAlive: 30 * time.Second},
	}
}

// Connect opens the transport, runs the TLS handshake if the scheme needs
// one and starts the connection driver. Failures wrap errors.ErrConnect,
// errors.ErrTLS or errors.ErrHandshake.
func (c *NetConnector) Connect(ctx context.Context) (Conn, error) {
	raw, err := c.dialer.DialContext(ctx, "tcp", c.template.Addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrConnect, err)
	}

	if c.template.Scheme == SchemeTLS {
		tlsConn := tls.Client(raw, c.template.TLSConfig)

		if err = tlsConn.HandshakeContext(ctx); err != nil {
			_ = raw.Close()

			return nil, fmt.Errorf("%w: %w", errs.ErrTLS, err)
		}

		if proto := tlsConn.ConnectionState().NegotiatedProtocol; proto != "" && proto != "http/1.1" {
			_ = tlsConn.Close()

			return nil, fmt.Errorf("%w: server selected protocol %q", errs.ErrHandshake, proto)
		}

		raw = tlsConn
	}

	if err = ctx.Err(); err != nil {
		_ = raw.Close()

		return nil, fmt.Errorf("%w: %w", errs.ErrHandshake, err)
	}

	return newStreamConn(raw), nil
}

// ConnectUntil keeps calling Connect, pausing definitions.ReconnectInterval
// after every failure, until it succeeds or ctx ends. In the latter case it
// returns errors.ErrDeadlineExceeded.
func ConnectUntil(ctx context.Context, connector Connector, logger *slog.Logger) (Conn, error) {
	var timer *time.Timer

	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for attempt := 1; ; attempt++ {
		if ctx.Err() != nil {
			return nil, errs.ErrDeadlineExceeded
		}

		conn, err := connector.Connect(ctx)
		if err == nil {
			return conn, nil
		}

		level.Debug(logger).Log(
			definitions.LogKeyMsg, "Connection attempt failed",
			definitions.LogKeyAttempts, attempt,
			definitions.LogKeyError, err,
		)

		if timer == nil {
			timer = time.NewTimer(definitions.ReconnectInterval)
		} else {
			timer.Reset(definitions.ReconnectInterval)
		}

		select {
		case <-timer.C:
		case <-ctx.Done():
			return nil, errs.ErrDeadlineExceeded
		}
	}
}
