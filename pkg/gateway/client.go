package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/flowguard/pkg/logging"
)

const (
	// DefaultBaseURL is the API root of the application under test
	DefaultBaseURL = "https://automationexercise.com/api/"

	// DefaultTimeout bounds a single request
	DefaultTimeout = 10 * time.Second
)

// Client is a typed request/response wrapper over the backend HTTP surface.
// It owns a request context with an explicit Init/Dispose lifecycle; a Client
// belongs to exactly one scenario and is never shared.
type Client struct {
	baseURL string
	headers map[string]string
	timeout time.Duration
	factory TransportFactory
	logger  *logging.Logger

	mu        sync.Mutex
	base      *url.URL
	transport Transport
}

// Option configures a Client.
type Option func(*Client)

// WithHeader adds a default header sent with every request.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.headers[key] = value
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithTransport replaces the transport factory used by Init.
func WithTransport(factory TransportFactory) Option {
	return func(c *Client) {
		c.factory = factory
	}
}

// WithPlaywright routes requests through a Playwright APIRequestContext.
func WithPlaywright(pw *playwright.Playwright) Option {
	return WithTransport(PlaywrightTransport(pw))
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger *logging.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates an uninitialized client for the given base address.
// An empty baseURL selects DefaultBaseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: baseURL,
		headers: map[string]string{"Accept": "*/*"},
		timeout: DefaultTimeout,
		factory: NewHTTPTransport,
		logger:  logging.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured base address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Init establishes the request context. It is idempotent.
func (c *Client) Init() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.transport != nil {
		return nil
	}

	base, err := url.Parse(c.baseURL)
	if err != nil {
		return &TransportInitError{BaseURL: c.baseURL, Err: err}
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return &TransportInitError{BaseURL: c.baseURL, Err: fmt.Errorf("unsupported scheme %q", base.Scheme)}
	}
	if base.Host == "" {
		return &TransportInitError{BaseURL: c.baseURL, Err: fmt.Errorf("missing host")}
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	transport, err := c.factory(base, c.headers, c.timeout)
	if err != nil {
		return &TransportInitError{BaseURL: c.baseURL, Err: err}
	}

	c.base = base
	c.transport = transport
	c.logger.Debugf("request context established for %s", base)
	return nil
}

// Dispose releases the request context. It is idempotent; request methods
// fail with ErrNotInitialized afterwards.
func (c *Client) Dispose() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.transport == nil {
		return nil
	}

	err := c.transport.Close()
	c.transport = nil
	c.base = nil
	if err != nil {
		return fmt.Errorf("failed to dispose request context: %w", err)
	}
	c.logger.Debugf("request context disposed for %s", c.baseURL)
	return nil
}

// Initialized reports whether the request context is live.
func (c *Client) Initialized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transport != nil
}

// Get issues a GET request with params encoded in the query string.
func (c *Client) Get(ctx context.Context, path string, params map[string]string) (*Envelope, error) {
	return c.do(ctx, &Request{Method: http.MethodGet, Params: params}, path)
}

// Post issues a form-encoded POST request.
func (c *Client) Post(ctx context.Context, path string, form map[string]string) (*Envelope, error) {
	return c.do(ctx, &Request{Method: http.MethodPost, Form: nonNil(form)}, path)
}

// Put issues a form-encoded PUT request.
func (c *Client) Put(ctx context.Context, path string, form map[string]string) (*Envelope, error) {
	return c.do(ctx, &Request{Method: http.MethodPut, Form: nonNil(form)}, path)
}

// Delete issues a form-encoded DELETE request.
func (c *Client) Delete(ctx context.Context, path string, form map[string]string) (*Envelope, error) {
	return c.do(ctx, &Request{Method: http.MethodDelete, Form: nonNil(form)}, path)
}

func (c *Client) do(ctx context.Context, req *Request, path string) (*Envelope, error) {
	c.mu.Lock()
	transport, base := c.transport, c.base
	c.mu.Unlock()

	if transport == nil {
		return nil, ErrNotInitialized
	}

	req.URL = base.JoinPath(strings.TrimPrefix(path, "/"))
	req.Headers = c.headers

	start := time.Now()
	resp, err := transport.Do(ctx, req)
	if err != nil {
		c.logger.Warnf("%s %s failed after %s: %v", req.Method, req.URL, time.Since(start).Round(time.Millisecond), err)
		return nil, &TransportError{Method: req.Method, URL: req.URL.String(), Err: err}
	}

	env := newEnvelope(resp.Status, resp.Headers, resp.Body)
	c.logger.Debugf("%s %s -> %d (code %d) in %s", req.Method, req.URL, env.TransportStatus, env.Code(), time.Since(start).Round(time.Millisecond))
	return env, nil
}

func nonNil(form map[string]string) map[string]string {
	if form == nil {
		return map[string]string{}
	}
	return form
}
