package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/proxy"
	"golang.org/x/time/rate"
)

// Default request settings.
const (
	// DefaultUserAgent is a current desktop Chrome on Windows.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"

	// DefaultAcceptLanguage asks for English content.
	DefaultAcceptLanguage = "en-US,en;q=0.9"

	// DefaultTimeout bounds a single request including redirects.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxBodySize is the maximum decoded body size read per response (5MB).
	DefaultMaxBodySize int64 = 5 * 1024 * 1024

	// maxRedirects matches the limit browsers use before giving up.
	maxRedirects = 10

	acceptHeader         = "text/html,application/xhtml+xml,application/xml;q=0.9,text/css,*/*;q=0.8"
	acceptEncodingHeader = "gzip, deflate, br"
)

// Fetcher returns the decoded text body of a URL.
// Any error means the URL yielded nothing usable.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (string, error)
}

// Client is the HTTP implementation of Fetcher.
// It is safe for concurrent use.
type Client struct {
	httpClient     *http.Client
	userAgent      string
	acceptLanguage string
	maxBodySize    int64
	timeout        time.Duration
	proxyAddress   string
	cookie         string
	headers        map[string]string
	siteHost       string
	limiter        *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithAcceptLanguage overrides the Accept-Language header.
func WithAcceptLanguage(lang string) Option {
	return func(c *Client) {
		if lang != "" {
			c.acceptLanguage = lang
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMaxBodySize sets the maximum number of decoded bytes read per response.
func WithMaxBodySize(size int64) Option {
	return func(c *Client) {
		if size > 0 {
			c.maxBodySize = size
		}
	}
}

// WithProxy routes all requests through a SOCKS5 proxy at "host:port".
func WithProxy(address string) Option {
	return func(c *Client) {
		c.proxyAddress = address
	}
}

// WithCookie sends a raw cookie string with requests to the site host.
func WithCookie(cookie string) Option {
	return func(c *Client) {
		c.cookie = cookie
	}
}

// WithHeaders sends extra headers with requests to the site host.
func WithHeaders(headers map[string]string) Option {
	return func(c *Client) {
		c.headers = headers
	}
}

// WithSiteHost scopes the cookie and extra headers to host. A host
// and its "www." form are treated as the same site. Without a site
// host the cookie and headers are never sent.
func WithSiteHost(host string) Option {
	return func(c *Client) {
		c.siteHost = strings.ToLower(host)
	}
}

// WithDelay waits at least d between consecutive requests.
func WithDelay(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.limiter = rate.NewLimiter(rate.Every(d), 1)
		}
	}
}

// NewClient creates a Client.
//
// The proxy address, when set, is validated here but not contacted.
// A proxy that is down surfaces as a failed Fetch.
func NewClient(opts ...Option) (*Client, error) {
	c := &Client{
		userAgent:      DefaultUserAgent,
		acceptLanguage: DefaultAcceptLanguage,
		maxBodySize:    DefaultMaxBodySize,
		timeout:        DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     30 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		// Accept-Encoding is set explicitly and decoded in decompress.
		DisableCompression: true,
	}

	if c.proxyAddress != "" {
		if !isValidProxyAddress(c.proxyAddress) {
			return nil, ErrInvalidProxyAddress
		}
		dialer, err := proxy.SOCKS5("tcp", c.proxyAddress, nil, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
		}
		transport.Proxy = nil
		transport.DialContext = contextDialer(dialer)
	}

	var rt http.RoundTripper = transport
	if c.siteHost != "" && (c.cookie != "" || len(c.headers) > 0) {
		rt = &headerInjectingTransport{
			base:    transport,
			host:    c.siteHost,
			cookie:  c.cookie,
			headers: c.headers,
		}
	}

	c.httpClient = &http.Client{
		Transport: rt,
		Timeout:   c.timeout,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}
	return c, nil
}

// Fetch downloads rawURL and returns its body as UTF-8 text.
func (c *Client) Fetch(ctx context.Context, rawURL string) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("Accept-Language", c.acceptLanguage)
	req.Header.Set("Accept-Encoding", acceptEncodingHeader)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	body, err := decompress(resp.Body, resp.Header.Get("Content-Encoding"))
	if err != nil {
		return "", err
	}
	defer body.Close()

	data, err := io.ReadAll(io.LimitReader(body, c.maxBodySize))
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", fmt.Errorf("failed to read body: %w", err)
	}
	if len(data) == 0 {
		return "", ErrEmptyBody
	}

	return toUTF8(data, resp.Header.Get("Content-Type")), nil
}

// contextDialer adapts a proxy.Dialer to http.Transport.DialContext.
// The SOCKS5 dialer from x/net implements proxy.ContextDialer; the
// fallback ignores cancellation during the dial itself.
func contextDialer(d proxy.Dialer) func(ctx context.Context, network, addr string) (net.Conn, error) {
	if cd, ok := d.(proxy.ContextDialer); ok {
		return cd.DialContext
	}
	return func(_ context.Context, network, addr string) (net.Conn, error) {
		return d.Dial(network, addr)
	}
}

// isValidProxyAddress checks for "host:port" with a port in 1..65535.
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

// headerInjectingTransport adds a cookie and extra headers to requests
// for one site, including requests made while following redirects back
// to it. Requests to any other host pass through untouched.
type headerInjectingTransport struct {
	base    http.RoundTripper
	host    string
	cookie  string
	headers map[string]string
}

// RoundTrip implements http.RoundTripper.
func (t *headerInjectingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if !sameSite(req.URL.Hostname(), t.host) {
		return t.base.RoundTrip(req)
	}
	clone := req.Clone(req.Context())

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

// sameSite reports whether host belongs to site, ignoring case and a
// leading "www." on either side.
func sameSite(host, site string) bool {
	host = strings.ToLower(host)
	if host == "" || site == "" {
		return false
	}
	if host == site {
		return true
	}
	return strings.TrimPrefix(host, "www.") == strings.TrimPrefix(site, "www.")
}
