package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/proxy"
	"golang.org/x/time/rate"

	"github.com/nao1215/sitewalker/internal/crawler"
)

// Default client settings.
const (
	defaultTimeout     = 60 * time.Second
	defaultMaxBodySize = 32 * 1024 * 1024 // 32MB
	defaultUserAgent   = "Mozilla/5.0"
	defaultAcceptLang  = "en-US,en;q=0.5"
	maxRedirects       = 10
)

// Accept headers per request kind.
const (
	acceptDocument = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	acceptResource = "image/avif,image/webp,image/*,*/*;q=0.8"
)

// Client fetches documents and binary resources through a shared limiter.
type Client struct {
	httpClient   *http.Client
	limiter      *rate.Limiter
	timeout      time.Duration
	interval     time.Duration
	userAgent    string
	maxBodySize  int64
	proxyAddress string
	headers      map[string]string
	logger       *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithRequestInterval sets the minimum interval between two requests.
// Zero disables throttling.
func WithRequestInterval(d time.Duration) Option {
	return func(c *Client) {
		c.interval = d
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithMaxBodySize limits how many bytes are read from one response.
func WithMaxBodySize(size int64) Option {
	return func(c *Client) {
		if size > 0 {
			c.maxBodySize = size
		}
	}
}

// WithProxy routes every request through the SOCKS5 proxy at address
// ("host:port"). An empty address means a direct connection.
func WithProxy(address string) Option {
	return func(c *Client) {
		c.proxyAddress = address
	}
}

// WithHeaders adds static headers to every request.
func WithHeaders(headers map[string]string) Option {
	return func(c *Client) {
		for k, v := range headers {
			c.headers[k] = v
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client. Headers are still
// injected on top of its transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a Client. It validates the proxy address format but
// does not connect to the proxy.
func NewClient(opts ...Option) (*Client, error) {
	c := &Client{
		timeout:     defaultTimeout,
		userAgent:   defaultUserAgent,
		maxBodySize: defaultMaxBodySize,
		headers: map[string]string{
			"Accept-Language": defaultAcceptLang,
		},
		logger: slog.New(slog.DiscardHandler),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.limiter = newLimiter(c.interval)

	if c.httpClient == nil {
		transport, err := c.newTransport()
		if err != nil {
			return nil, err
		}
		c.httpClient = &http.Client{
			Transport: transport,
			Timeout:   c.timeout,
			CheckRedirect: func(_ *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return http.ErrUseLastResponse
				}
				return nil
			},
		}
	}

	base := c.httpClient.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	headers := map[string]string{"User-Agent": c.userAgent}
	for k, v := range c.headers {
		headers[k] = v
	}
	wrapped := *c.httpClient
	wrapped.Transport = &headerInjectingTransport{base: base, headers: headers}
	c.httpClient = &wrapped

	return c, nil
}

// newLimiter returns a limiter allowing one request per interval.
func newLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

// newTransport builds the HTTP transport, dialing through the SOCKS5 proxy
// when one is configured.
func (c *Client) newTransport() (*http.Transport, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone() //nolint:forcetypeassert // DefaultTransport is always *http.Transport

	if c.proxyAddress == "" {
		return transport, nil
	}
	if !isValidProxyAddress(c.proxyAddress) {
		return nil, ErrInvalidProxyAddress
	}

	// Most local SOCKS ports don't require auth.
	dialer, err := proxy.SOCKS5("tcp", c.proxyAddress, nil, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
	}

	transport.Proxy = nil
	if cd, ok := dialer.(proxy.ContextDialer); ok {
		transport.DialContext = cd.DialContext
	} else {
		transport.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
			return dialer.Dial(network, addr)
		}
	}
	return transport, nil
}

// isValidProxyAddress checks if the address is in valid "host:port" format.
func isValidProxyAddress(address string) bool {
	parts := strings.Split(address, ":")
	if len(parts) != 2 {
		return false
	}

	host, port := parts[0], parts[1]
	if host == "" || port == "" {
		return false
	}

	portNum := 0
	for _, c := range port {
		if c < '0' || c > '9' {
			return false
		}
		portNum = portNum*10 + int(c-'0')
		if portNum > 65535 {
			return false
		}
	}

	return portNum >= 1
}

// ProxyAddress returns the configured proxy address, or "".
func (c *Client) ProxyAddress() string {
	return c.proxyAddress
}

// Document is a fetched and parsed HTML page.
type Document struct {
	// FinalURL is the URL after redirects.
	FinalURL string

	// Document is the parsed page.
	Document *crawler.Document

	// Title is the <title> text, or "" when the page has none.
	Title string
}

// Resource is a fetched binary resource.
type Resource struct {
	// FinalURL is the URL after redirects.
	FinalURL string

	// Bytes is the response body.
	Bytes []byte

	// ContentType is the response Content-Type header.
	ContentType string

	// SuggestedName is the Content-Disposition filename, else the last path
	// segment of FinalURL. It may be empty.
	SuggestedName string
}

// FetchDocument fetches rawURL and parses it as HTML. referrer is sent as
// the Referer header and is the base for resolving a relative rawURL.
func (c *Client) FetchDocument(ctx context.Context, rawURL, referrer string) (*Document, error) {
	body, resp, err := c.get(ctx, rawURL, referrer, acceptDocument)
	if err != nil {
		return nil, err
	}

	finalURL := resp.Request.URL.String()
	doc, err := crawler.ParseDocument(bytes.NewReader(body), finalURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", finalURL, err)
	}

	return &Document{
		FinalURL: finalURL,
		Document: doc,
		Title:    doc.Title(),
	}, nil
}

// FetchBytes fetches rawURL as raw bytes. referrer is handled as in
// FetchDocument.
func (c *Client) FetchBytes(ctx context.Context, rawURL, referrer string) (*Resource, error) {
	body, resp, err := c.get(ctx, rawURL, referrer, acceptResource)
	if err != nil {
		return nil, err
	}

	finalURL := resp.Request.URL.String()
	return &Resource{
		FinalURL:      finalURL,
		Bytes:         body,
		ContentType:   resp.Header.Get("Content-Type"),
		SuggestedName: suggestedName(resp.Header.Get("Content-Disposition"), finalURL),
	}, nil
}

// get waits on the limiter, performs the request and reads the body.
// The returned response's body is already closed.
func (c *Client) get(ctx context.Context, rawURL, referrer, accept string) ([]byte, *http.Response, error) {
	target, err := resolveTarget(rawURL, referrer)
	if err != nil {
		return nil, nil, err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	req.Header.Set("Accept", accept)
	if referrer != "" {
		req.Header.Set("Referer", referrer)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("fetched",
		"url", target,
		"status", resp.StatusCode,
		"elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, nil, &StatusError{URL: target, StatusCode: resp.StatusCode}
	}

	// Read one extra byte to detect bodies over the limit.
	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize+1))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	if int64(len(body)) > c.maxBodySize {
		return nil, nil, fmt.Errorf("%w: %w: %s", ErrTransport, ErrBodyTooLarge, target)
	}

	return body, resp, nil
}

// resolveTarget returns an absolute http(s) URL for rawURL, resolving
// relative references against referrer.
func resolveTarget(rawURL, referrer string) (string, error) {
	target, ok := crawler.ResolveReference(referrer, rawURL)
	if !ok {
		return "", fmt.Errorf("%w: %w: %q", ErrTransport, ErrUnsupportedURL, rawURL)
	}
	u, err := url.Parse(target)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: %w: %q", ErrTransport, ErrUnsupportedURL, rawURL)
	}
	return target, nil
}

// suggestedName picks a file name from a Content-Disposition header,
// falling back to the URL's last path segment.
func suggestedName(disposition, finalURL string) string {
	if disposition != "" {
		if _, params, err := mime.ParseMediaType(disposition); err == nil {
			if name := params["filename"]; name != "" {
				return name
			}
		}
	}
	return crawler.LastPathSegment(finalURL)
}

// headerInjectingTransport wraps an http.RoundTripper to inject
// static headers into every request, including redirects.
type headerInjectingTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

// RoundTrip implements http.RoundTripper.
func (t *headerInjectingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	for key, value := range t.headers {
		if clone.Header.Get(key) == "" {
			clone.Header.Set(key, value)
		}
	}
	return t.base.RoundTrip(clone)
}
