package engine

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/croessner/nbench/definitions"
	errs "github.com/croessner/nbench/errors"
)

// Scheme tells a connector whether a TLS session has to be layered on top of
// the TCP connection.
type Scheme int

const (
	SchemePlain Scheme = iota
	SchemeTLS
)

func (s Scheme) String() string {
	if s == SchemeTLS {
		return definitions.SchemeHTTPS
	}

	return definitions.SchemeHTTP
}

func (s Scheme) defaultPort() int {
	if s == SchemeTLS {
		return definitions.DefaultHTTPSPort
	}

	return definitions.DefaultHTTPPort
}

// Resolver is the subset of *net.Resolver used for target lookups.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// Template is the immutable description of the request every worker repeats.
// It is built once per round and shared by all workers of that round.
type Template struct {
	Addr       string
	Scheme     Scheme
	TLSConfig  *tls.Config
	Host       string
	HostHeader string
	URL        *url.URL
	Method     string
	Header     http.Header
	Body       []byte
}

// NewRequest builds a fresh request. The header map is cloned, the body slice
// is shared and only wrapped by a new reader.
func (t *Template) NewRequest() *http.Request {
	req := &http.Request{
		Method:     t.Method,
		URL:        t.URL,
		Proto:      "HTTP/1.1",
		ProtoMajor: 1,
		ProtoMinor: 1,
		Header:     t.Header.Clone(),
		Host:       t.HostHeader,
	}

	if len(t.Body) > 0 {
		req.Body = newBodyReader(t.Body)
		req.ContentLength = int64(len(t.Body))
	}

	return req
}

// ResolveTemplate parses the configured target and resolves its address.
// Every failure wraps errors.ErrTemplateResolution.
func ResolveTemplate(ctx context.Context, cfg *Config, resolver Resolver) (*Template, error) {
	tpl, err := resolveTemplate(ctx, cfg, resolver)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrTemplateResolution, err)
	}

	return tpl, nil
}

func resolveTemplate(ctx context.Context, cfg *Config, resolver Resolver) (*Template, error) {
	target := strings.TrimSpace(cfg.Target)
	if !strings.Contains(target, "://") {
		target = definitions.SchemeHTTP + "://" + target
	}

	u, err := url.Parse(target)
	if err != nil {
		return nil, errs.NewDetailedError(errs.ErrInvalidURI, err.Error())
	}

	var scheme Scheme

	switch strings.ToLower(u.Scheme) {
	case definitions.SchemeHTTP:
		scheme = SchemePlain
	case definitions.SchemeHTTPS:
		scheme = SchemeTLS
	default:
		return nil, errs.NewDetailedError(errs.ErrUnsupportedScheme, u.Scheme)
	}

	if u.Host == "" {
		return nil, errs.NewDetailedError(errs.ErrMissingHost, cfg.Target)
	}

	host := u.Hostname()
	if host == "" {
		host = "localhost"
	}

	port := scheme.defaultPort()

	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil || port < 1 || port > 65535 {
			return nil, errs.NewDetailedError(errs.ErrInvalidURI, "invalid port "+p)
		}
	}

	hostHeader := host
	if strings.Contains(host, ":") {
		hostHeader = "[" + host + "]"
	}

	if u.Port() != "" {
		hostHeader = net.JoinHostPort(host, u.Port())
	}

	ip, err := lookup(ctx, resolver, host)
	if err != nil {
		return nil, err
	}

	u.Scheme = scheme.String()
	u.Host = hostHeader

	header := cfg.Headers.Clone()
	if header == nil {
		header = make(http.Header)
	}

	// A Host header given on the command line replaces the authority, e.g. to
	// hit a virtual host by IP. net/http only writes Request.Host.
	if override := header.Get("Host"); override != "" {
		hostHeader = override
		header.Del("Host")
	}

	if u.Path == "" {
		u.Path = "/"
	}

	tpl := &Template{
		Addr:       net.JoinHostPort(ip.String(), strconv.Itoa(port)),
		Scheme:     scheme,
		Host:       host,
		HostHeader: hostHeader,
		URL:        u,
		Method:     cfg.Method,
		Header:     header,
		Body:       cfg.Body,
	}

	if scheme == SchemeTLS {
		tpl.TLSConfig = newTLSConfig(host)
	}

	return tpl, nil
}

// newTLSConfig returns the client TLS policy of the tool. Certificate and
// hostname verification are switched off on purpose: benchmark targets are
// frequently staging hosts with self-signed certificates. Only HTTP/1.1 is
// offered via ALPN.
func newTLSConfig(host string) *tls.Config {
	return &tls.Config{
		ServerName:         host,
		InsecureSkipVerify: true, //nolint:gosec // benchmarking arbitrary targets
		NextProtos:         []string{"http/1.1"},
	}
}

// lookup resolves host without blocking the caller past ctx. When several
// addresses come back the first IPv4 address wins, otherwise the last one.
func lookup(ctx context.Context, resolver Resolver, host string) (net.IP, error) {
	if ip := net.ParseIP(host); ip != nil {
		return ip, nil
	}

	if resolver == nil {
		resolver = net.DefaultResolver
	}

	type result struct {
		addrs []net.IPAddr
		err   error
	}

	done := make(chan result, 1)

	go func() {
		addrs, err := resolver.LookupIPAddr(ctx, host)
		done <- result{addrs: addrs, err: err}
	}()

	var res result

	select {
	case res = <-done:
	case <-ctx.Done():
		return nil, errs.NewDetailedError(errs.ErrResolutionFailed, ctx.Err().Error())
	}

	if res.err != nil {
		return nil, errs.NewDetailedError(errs.ErrResolutionFailed, res.err.Error())
	}

	ip := pickAddress(res.addrs)
	if ip == nil {
		return nil, errs.NewDetailedError(errs.ErrResolutionFailed, host)
	}

	return ip, nil
}

func pickAddress(addrs []net.IPAddr) net.IP {
	var last net.IP

	for _, a := range addrs {
		last = a.IP
		if a.IP.To4() != nil {
			break
		}
	}

	return last
}
