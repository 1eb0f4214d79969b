package engine

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"sync"

	errs "github.com/croessner/nbench/errors"
)

// Response is what the connection driver reports for one completed exchange.
type Response struct {
	Status int
	Bytes  int64
}

// Conn is a request-issuing handle. Behind it a driver goroutine owns the
// byte stream; Done is closed once that goroutine has stopped, which is the
// authoritative signal that the connection is unusable.
type Conn interface {
	// Send hands req to the driver. The returned channel yields exactly one
	// Response if the exchange completes; it never fires if the driver dies.
	Send(req *http.Request) <-chan Response

	// Done is closed when the driver stopped.
	Done() <-chan struct{}

	// Err reports why the driver stopped. It is nil for a clean close and
	// only meaningful after Done is closed.
	Err() error

	// Close stops the driver and releases the stream.
	Close() error
}

type exchange struct {
	req   *http.Request
	reply chan Response
}

// streamConn drives one HTTP/1.1 connection. Only the drive goroutine reads
// from or writes to raw.
type streamConn struct {
	raw      net.Conn
	requests chan exchange
	done     chan struct{}
	closing  chan struct{}
	once     sync.Once
	err      error
}

func newStreamConn(raw net.Conn) *streamConn {
	c := &streamConn{
		raw:      raw,
		requests: make(chan exchange),
		done:     make(chan struct{}),
		closing:  make(chan struct{}),
	}

	go c.drive()

	return c
}

func (c *streamConn) Send(req *http.Request) <-chan Response {
	ex := exchange{req: req, reply: make(chan Response, 1)}

	select {
	case c.requests <- ex:
		return ex.reply
	case <-c.done:
		return nil
	}
}

func (c *streamConn) Done() <-chan struct{} {
	return c.done
}

func (c *streamConn) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}

func (c *streamConn) Close() error {
	c.once.Do(func() {
		close(c.closing)
	})

	// Unblocks a driver that is stuck in a read or write.
	err := c.raw.Close()

	<-c.done

	return err
}

func (c *streamConn) drive() {
	defer close(c.done)
	defer c.raw.Close()

	br := bufio.NewReader(c.raw)
	bw := bufio.NewWriter(c.raw)

	for {
		select {
		case <-c.closing:
			return
		case ex := <-c.requests:
			resp, keepAlive, err := roundTrip(br, bw, ex.req)
			if err != nil {
				select {
				case <-c.closing:
				default:
					c.err = streamError(err)
				}

				return
			}

			ex.reply <- resp

			if !keepAlive {
				return
			}
		}
	}
}

// roundTrip writes req, reads its response and drains the body. The returned
// byte count is the number of body bytes received.
func roundTrip(br *bufio.Reader, bw *bufio.Writer, req *http.Request) (Response, bool, error) {
	if err := req.Write(bw); err != nil {
		return Response{}, false, err
	}

	if err := bw.Flush(); err != nil {
		return Response{}, false, err
	}

	var resp *http.Response

	for {
		r, err := http.ReadResponse(br, req)
		if err != nil {
			return Response{}, false, err
		}

		// Interim responses precede the real one on the same stream.
		if r.StatusCode >= 100 && r.StatusCode < 200 && r.StatusCode != http.StatusSwitchingProtocols {
			_ = r.Body.Close()

			continue
		}

		resp = r

		break
	}

	n, err := io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	if err != nil {
		return Response{}, false, err
	}

	return Response{Status: resp.StatusCode, Bytes: n}, !resp.Close, nil
}

// streamError strips the socket addresses from I/O errors so that failures of
// the same kind share one message, whatever ephemeral port they happened on.
func streamError(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return errs.ErrConnectionClosed
	}

	var opErr *net.OpError
	if !errors.As(err, &opErr) {
		return err
	}

	var sysErr *os.SyscallError
	if errors.As(opErr.Err, &sysErr) {
		return sysErr
	}

	return fmt.Errorf("%s: %w", opErr.Op, opErr.Err)
}

func newBodyReader(body []byte) io.ReadCloser {
	return io.NopCloser(bytes.NewReader(body))
}
