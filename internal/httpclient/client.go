package httpclient

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/cookiejar"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/proxy"
)

const (
	// DefaultTimeout is the per-request timeout.
	DefaultTimeout = 10 * time.Second

	// MaxRedirects is the number of redirects followed before giving up.
	MaxRedirects = 10
)

// Factory creates HTTP clients that share transport settings.
// Each call to NewHTTPClient returns a client with a fresh cookie jar, so
// cookies set by one store website never leak into the crawl of another.
type Factory struct {
	// proxyAddress is the optional SOCKS5 proxy in "host:port" format.
	proxyAddress string

	// dialer is the SOCKS5 dialer, nil when connecting directly.
	dialer proxy.Dialer

	// timeout is the per-request timeout.
	timeout time.Duration

	// userAgent is sent when a request has no User-Agent of its own.
	userAgent string

	// transport is shared by every client of the factory for connection reuse.
	transport *http.Transport
}

// Option configures a Factory.
type Option func(*Factory)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *Factory) {
		f.timeout = d
	}
}

// WithProxy routes connections through the SOCKS5 proxy at address.
// An empty address means direct connections.
func WithProxy(address string) Option {
	return func(f *Factory) {
		f.proxyAddress = address
	}
}

// WithUserAgent sets the default User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Factory) {
		f.userAgent = ua
	}
}

// New creates a Factory.
//
// The proxy address is validated here but the proxy is not contacted;
// connection problems show up as fetch errors on the first request.
func New(opts ...Option) (*Factory, error) {
	f := &Factory{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(f)
	}

	f.transport = &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,
		TLSHandshakeTimeout: f.timeout,
	}

	if f.proxyAddress != "" {
		if !isValidProxyAddress(f.proxyAddress) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidProxyAddress, f.proxyAddress)
		}
		dialer, err := proxy.SOCKS5("tcp", f.proxyAddress, nil, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
		}
		f.dialer = dialer
		f.transport.Proxy = nil
		f.transport.DialContext = f.dialContext
	}
	return f, nil
}

// isValidProxyAddress checks if the address is in valid "host:port" format.
func isValidProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return false
	}
	return n >= 1 && n <= 65535
}

// dialContext dials through the SOCKS5 proxy, honoring ctx when the dialer
// supports it.
func (f *Factory) dialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	if cd, ok := f.dialer.(proxy.ContextDialer); ok {
		return cd.DialContext(ctx, network, addr)
	}
	return f.dialer.Dial(network, addr)
}

// ProxyAddress returns the configured proxy address, or "" for direct connections.
func (f *Factory) ProxyAddress() string {
	return f.proxyAddress
}

// Timeout returns the per-request timeout.
func (f *Factory) Timeout() time.Duration {
	return f.timeout
}

// NewHTTPClient creates an HTTP client with a fresh cookie jar.
func (f *Factory) NewHTTPClient() *http.Client {
	jar, _ := cookiejar.New(nil) //nolint:errcheck // cookiejar.New only fails with invalid options

	var transport http.RoundTripper = f.transport
	if f.userAgent != "" {
		transport = &headerInjectingTransport{base: f.transport, userAgent: f.userAgent}
	}

	return &http.Client{
		Transport: transport,
		Timeout:   f.timeout,
		Jar:       jar,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= MaxRedirects {
				return ErrTooManyRedirects
			}
			return nil
		},
	}
}

// HTTPClientWithConfig creates an HTTP client that adds a cookie and custom
// headers to requests for host, including redirects that stay on host.
// Requests to any other host get neither. Sites behind an age gate or a
// region selector typically need a fixed cookie.
//
// The host parameter is compared with url.URL.Host, port included.
// The cookie parameter is a raw cookie string (e.g., "age_verified=1").
func (f *Factory) HTTPClientWithConfig(host, cookie string, headers map[string]string) *http.Client {
	client := f.NewHTTPClient()
	if cookie == "" && len(headers) == 0 {
		return client
	}
	client.Transport = &headerInjectingTransport{
		base:      f.transport,
		userAgent: f.userAgent,
		host:      host,
		cookie:    cookie,
		headers:   headers,
	}
	return client
}

// headerInjectingTransport wraps an http.RoundTripper to inject the
// User-Agent into every request, and a cookie and custom headers into
// requests for host only.
type headerInjectingTransport struct {
	base      http.RoundTripper
	userAgent string
	host      string
	cookie    string
	headers   map[string]string
}

// RoundTrip implements http.RoundTripper.
func (t *headerInjectingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())

	if t.userAgent != "" && clone.Header.Get("User-Agent") == "" {
		clone.Header.Set("User-Agent", t.userAgent)
	}

	if !strings.EqualFold(clone.URL.Host, t.host) {
		return t.base.RoundTrip(clone)
	}

	if t.cookie != "" {
		if existing := clone.Header.Get("Cookie"); existing != "" {
			clone.Header.Set("Cookie", existing+"; "+t.cookie)
		} else {
			clone.Header.Set("Cookie", t.cookie)
		}
	}

	for key, value := range t.headers {
		clone.Header.Set(key, value)
	}

	return t.base.RoundTrip(clone)
}
