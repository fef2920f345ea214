// Package apiclient is the HTTP transport for the staff REST API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"peelojuice-staff/internal/apierror"
	"peelojuice-staff/internal/model"
	"peelojuice-staff/internal/sessionstore"
)

const (
	DefaultTimeout = 30 * time.Second
	maxBodyBytes   = 4 << 20
)

// UnauthorizedObserver is told, synchronously, that the server rejected the
// stored credentials.
type UnauthorizedObserver interface {
	HandleUnauthorized(ctx context.Context)
}

type Client struct {
	baseURL string
	http    *http.Client
	store   sessionstore.Store
	logger  *slog.Logger

	mu        sync.RWMutex
	observers []UnauthorizedObserver
}

type options struct {
	timeout   time.Duration
	transport http.RoundTripper
	registry  prometheus.Registerer
	logger    *slog.Logger
	tracing   bool
}

type Option func(*options)

func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithTransport replaces the base transport (default http.DefaultTransport).
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.transport = rt }
}

func WithRegistry(reg prometheus.Registerer) Option {
	return func(o *options) { o.registry = reg }
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithoutTracing skips the OpenTelemetry transport.
func WithoutTracing() Option {
	return func(o *options) { o.tracing = false }
}

func New(baseURL string, store sessionstore.Store, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid API base URL %q", baseURL)
	}
	if store == nil {
		return nil, errors.New("session store is required")
	}

	o := options{
		timeout:   DefaultTimeout,
		transport: http.DefaultTransport,
		logger:    slog.Default(),
		tracing:   true,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.timeout <= 0 {
		o.timeout = DefaultTimeout
	}

	rt := o.transport
	if o.tracing {
		rt = otelhttp.NewTransport(rt)
	}
	if o.registry != nil {
		metrics, err := NewMetrics(o.registry)
		if err != nil {
			return nil, fmt.Errorf("register API metrics: %w", err)
		}
		rt = metrics.instrument(rt)
	}
	rt = &bearerTransport{store: store, next: rt, logger: o.logger}

	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: o.timeout, Transport: rt},
		store:   store,
		logger:  o.logger,
	}, nil
}

// Observe registers an observer for 401 responses.
func (c *Client) Observe(observer UnauthorizedObserver) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, observer)
}

func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, body any, out any) error {
	return c.Do(ctx, http.MethodPost, path, body, out)
}

// Do sends one request and decodes a 2xx body into out (when non-nil).
func (c *Client) Do(ctx context.Context, method string, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	requestID := ulid.Make().String()
	req.Header.Set(requestIDHeader, requestID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("api request failed", "method", method, "path", path, "request_id", requestID, "error", err)
		return classifyTransportError(ctx, method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return classifyTransportError(ctx, method, path, err)
	}

	c.logger.Debug("api request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(started).Milliseconds(),
		"request_id", requestID,
	)

	if resp.StatusCode == http.StatusUnauthorized {
		c.expireSession(ctx)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apierror.FromResponse(method, path, resp.StatusCode, data)
	}

	if out == nil {
		return nil
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return fmt.Errorf("%w: %s %s: empty body", model.ErrMalformedResponse, method, path)
	}
	if err := json.Unmarshal(data, out); err != nil {
		if errors.Is(err, model.ErrMalformedResponse) {
			return fmt.Errorf("%s %s: %w", method, path, err)
		}
		return fmt.Errorf("%w: %s %s: %v", model.ErrMalformedResponse, method, path, err)
	}
	return nil
}

// expireSession clears the stored credentials and notifies observers. It runs
// even when the caller's context has been cancelled.
func (c *Client) expireSession(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)

	if err := c.store.RemoveAll(ctx, sessionstore.ExpiredKeys); err != nil {
		c.logger.Warn("failed to clear expired session", "error", err)
	}

	c.mu.RLock()
	observers := append([]UnauthorizedObserver(nil), c.observers...)
	c.mu.RUnlock()

	for _, observer := range observers {
		observer.HandleUnauthorized(ctx)
	}
}

func classifyTransportError(ctx context.Context, method string, path string, err error) error {
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return fmt.Errorf("%s %s: %w", method, path, ctx.Err())
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %s %s: %v", model.ErrTimeout, method, path, err)
	}

	return fmt.Errorf("%w: %s %s: %v", model.ErrNetwork, method, path, err)
}
