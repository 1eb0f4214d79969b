package engine

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"testing"

	errs "github.com/croessner/nbench/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResolver struct {
	addrs []net.IPAddr
	err   error
	hosts []string
	block bool
}

func (r *fakeResolver) LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error) {
	r.hosts = append(r.hosts, host)

	if r.block {
		<-ctx.Done()

		return nil, ctx.Err()
	}

	return r.addrs, r.err
}

func ipAddrs(ips ...string) []net.IPAddr {
	out := make([]net.IPAddr, 0, len(ips))

	for _, ip := range ips {
		out = append(out, net.IPAddr{IP: net.ParseIP(ip)})
	}

	return out
}

func templateConfig(target string) *Config {
	cfg := DefaultConfig()
	cfg.Target = target

	return cfg
}

func TestResolveTemplate(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		addrs      []net.IPAddr
		wantAddr   string
		wantScheme Scheme
		wantHost   string
		wantPath   string
	}{
		{
			name:       "http default port",
			target:     "http://example.test/index.html",
			addrs:      ipAddrs("192.0.2.10"),
			wantAddr:   "192.0.2.10:80",
			wantScheme: SchemePlain,
			wantHost:   "example.test",
			wantPath:   "/index.html",
		},
		{
			name:       "https default port",
			target:     "https://example.test",
			addrs:      ipAddrs("192.0.2.11"),
			wantAddr:   "192.0.2.11:443",
			wantScheme: SchemeTLS,
			wantHost:   "example.test",
			wantPath:   "/",
		},
		{
			name:       "explicit port kept in host header",
			target:     "http://example.test:8080/a?b=c",
			addrs:      ipAddrs("192.0.2.12"),
			wantAddr:   "192.0.2.12:8080",
			wantScheme: SchemePlain,
			wantHost:   "example.test:8080",
			wantPath:   "/a",
		},
		{
			name:       "missing scheme means http",
			target:     "example.test:81",
			addrs:      ipAddrs("192.0.2.13"),
			wantAddr:   "192.0.2.13:81",
			wantScheme: SchemePlain,
			wantHost:   "example.test:81",
			wantPath:   "/",
		},
		{
			name:       "ipv4 preferred",
			target:     "http://dual.test",
			addrs:      ipAddrs("2001:db8::1", "192.0.2.14", "192.0.2.15"),
			wantAddr:   "192.0.2.14:80",
			wantScheme: SchemePlain,
			wantHost:   "dual.test",
			wantPath:   "/",
		},
		{
			name:       "last address without ipv4",
			target:     "http://v6.test",
			addrs:      ipAddrs("2001:db8::1", "2001:db8::2"),
			wantAddr:   "[2001:db8::2]:80",
			wantScheme: SchemePlain,
			wantHost:   "v6.test",
			wantPath:   "/",
		},
		{
			name:       "empty hostname is localhost",
			target:     "http://:9000/",
			addrs:      ipAddrs("127.0.0.1"),
			wantAddr:   "127.0.0.1:9000",
			wantScheme: SchemePlain,
			wantHost:   "localhost:9000",
			wantPath:   "/",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tpl, err := ResolveTemplate(t.Context(), templateConfig(tt.target), &fakeResolver{addrs: tt.addrs})
			require.NoError(t, err)

			assert.Equal(t, tt.wantAddr, tpl.Addr)
			assert.Equal(t, tt.wantScheme, tpl.Scheme)
			assert.Equal(t, tt.wantHost, tpl.HostHeader)
			assert.Equal(t, tt.wantPath, tpl.URL.Path)
			assert.Equal(t, tt.wantScheme == SchemeTLS, tpl.TLSConfig != nil)
		})
	}
}

func TestResolveTemplateIPLiteralSkipsLookup(t *testing.T) {
	resolver := &fakeResolver{err: errors.New("must not be called")}

	tpl, err := ResolveTemplate(t.Context(), templateConfig("http://127.0.0.1:8080"), resolver)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8080", tpl.Addr)
	assert.Empty(t, resolver.hosts)

	tpl, err = ResolveTemplate(t.Context(), templateConfig("http://[::1]/"), resolver)
	require.NoError(t, err)

	assert.Equal(t, "[::1]:80", tpl.Addr)
	assert.Equal(t, "[::1]", tpl.HostHeader)
}

func TestResolveTemplateErrors(t *testing.T) {
	tests := []struct {
		name     string
		target   string
		resolver *fakeResolver
		wantErr  error
	}{
		{name: "bad uri", target: "http://exa mple.test/%zz", resolver: &fakeResolver{}, wantErr: errs.ErrInvalidURI},
		{name: "bad port", target: "http://example.test:99999/", resolver: &fakeResolver{}, wantErr: errs.ErrInvalidURI},
		{name: "unsupported scheme", target: "ftp://example.test/", resolver: &fakeResolver{}, wantErr: errs.ErrUnsupportedScheme},
		{name: "missing host", target: "http:///path", resolver: &fakeResolver{}, wantErr: errs.ErrMissingHost},
		{name: "lookup error", target: "http://nx.test", resolver: &fakeResolver{err: errors.New("no such host")}, wantErr: errs.ErrResolutionFailed},
		{name: "no addresses", target: "http://empty.test", resolver: &fakeResolver{}, wantErr: errs.ErrResolutionFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ResolveTemplate(t.Context(), templateConfig(tt.target), tt.resolver)

			assert.ErrorIs(t, err, errs.ErrTemplateResolution)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestResolveTemplateHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := ResolveTemplate(ctx, templateConfig("http://slow.test"), &fakeResolver{block: true})
	assert.ErrorIs(t, err, errs.ErrResolutionFailed)
}

func TestTemplateTLSConfig(t *testing.T) {
	tpl, err := ResolveTemplate(t.Context(), templateConfig("https://secure.test:8443"), &fakeResolver{addrs: ipAddrs("192.0.2.20")})
	require.NoError(t, err)

	require.NotNil(t, tpl.TLSConfig)
	assert.True(t, tpl.TLSConfig.InsecureSkipVerify)
	assert.Equal(t, "secure.test", tpl.TLSConfig.ServerName)
	assert.Equal(t, []string{"http/1.1"}, tpl.TLSConfig.NextProtos)
}

func TestTemplateNewRequest(t *testing.T) {
	cfg := templateConfig("http://example.test:8080/submit")
	cfg.Method = http.MethodPost
	cfg.Body = []byte("0123456789")
	cfg.Headers.Set("X-Test", "1")

	tpl, err := ResolveTemplate(t.Context(), cfg, &fakeResolver{addrs: ipAddrs("192.0.2.30")})
	require.NoError(t, err)

	first := tpl.NewRequest()
	second := tpl.NewRequest()

	assert.Equal(t, http.MethodPost, first.Method)
	assert.Equal(t, "example.test:8080", first.Host)
	assert.Equal(t, int64(10), first.ContentLength)
	assert.Equal(t, 1, first.ProtoMajor)
	assert.Equal(t, 1, first.ProtoMinor)

	body, err := io.ReadAll(first.Body)
	require.NoError(t, err)
	assert.Equal(t, "0123456789", string(body))

	// Each request gets its own reader and header map.
	body, err = io.ReadAll(second.Body)
	require.NoError(t, err)
	assert.Equal(t, "0123456789", string(body))

	first.Header.Set("X-Test", "changed")
	assert.Equal(t, "1", second.Header.Get("X-Test"))
	assert.Equal(t, "1", tpl.Header.Get("X-Test"))

	get := templateConfig("http://example.test")
	tpl, err = ResolveTemplate(t.Context(), get, &fakeResolver{addrs: ipAddrs("192.0.2.31")})
	require.NoError(t, err)

	req := tpl.NewRequest()
	assert.Nil(t, req.Body)
	assert.Zero(t, req.ContentLength)
}

func TestResolveTemplateHostHeaderOverride(t *testing.T) {
	cfg := templateConfig("http://192.0.2.40:8080/")
	cfg.Headers.Set("Host", "vhost.test")
	cfg.Headers.Set("X-Keep", "1")

	tpl, err := ResolveTemplate(t.Context(), cfg, nil)
	require.NoError(t, err)

	assert.Equal(t, "192.0.2.40:8080", tpl.Addr)
	assert.Equal(t, "vhost.test", tpl.HostHeader)
	assert.Empty(t, tpl.Header.Values("Host"))
	assert.Equal(t, "1", tpl.Header.Get("X-Keep"))
	assert.Equal(t, "vhost.test", cfg.Headers.Get("Host"))

	req := tpl.NewRequest()
	assert.Equal(t, "vhost.test", req.Host)
	assert.Equal(t, "192.0.2.40:8080", req.URL.Host)
}
