package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"dirstream/internal/domain"
	"dirstream/internal/domain/ports"
	"dirstream/internal/metrics"
)

const (
	DefaultListingTimeout = 10 * time.Second
	DefaultStreamTimeout  = 30 * time.Second
)

// Client performs all upstream exchanges. Listings and HEADs run under the
// short ceiling, data streams under the long one; both ceilings are measured
// from request issuance through body completion, so a slow but progressing
// transfer is still cut at its ceiling. No retries, no caching.
type Client struct {
	base    *url.URL
	listing *http.Client
	data    *http.Client
}

type Option func(*settings)

type settings struct {
	listingTimeout time.Duration
	streamTimeout  time.Duration
	transport      http.RoundTripper
}

func WithListingTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.listingTimeout = d
		}
	}
}

func WithStreamTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.streamTimeout = d
		}
	}
}

// WithTransport replaces the pooled default transport. Tests use this to
// avoid the real dialer.
func WithTransport(rt http.RoundTripper) Option {
	return func(s *settings) {
		if rt != nil {
			s.transport = rt
		}
	}
}

func New(baseURL string, opts ...Option) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse upstream base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("upstream base url must be http(s), got %q", baseURL)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("upstream base url missing host: %q", baseURL)
	}
	base.Path = canonicalBasePath(base.Path)
	base.RawPath = ""

	cfg := settings{
		listingTimeout: DefaultListingTimeout,
		streamTimeout:  DefaultStreamTimeout,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.transport == nil {
		cfg.transport = &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
			IdleConnTimeout:     90 * time.Second,
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout: 5 * time.Second,
		}
	}
	rt := otelhttp.NewTransport(cfg.transport)

	return &Client{
		base:    base,
		listing: &http.Client{Timeout: cfg.listingTimeout, Transport: rt},
		data:    &http.Client{Timeout: cfg.streamTimeout, Transport: rt},
	}, nil
}

// FetchListing retrieves the index page at path.
func (c *Client) FetchListing(ctx context.Context, path string) (_ string, err error) {
	start := time.Now()
	defer func() { observe("listing", start, err) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.resourceURL(path), nil)
	if err != nil {
		return "", fmt.Errorf("build listing request: %w", err)
	}

	resp, err := c.listing.Do(req)
	if err != nil {
		return "", classify(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return "", &domain.UpstreamHTTPError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", classify(err)
	}
	return string(body), nil
}

// Head reports the resource size. A missing Content-Length degrades to 0.
func (c *Client) Head(ctx context.Context, path string) (_ int64, err error) {
	start := time.Now()
	defer func() { observe("head", start, err) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.resourceURL(path), nil)
	if err != nil {
		return 0, fmt.Errorf("build head request: %w", err)
	}

	resp, err := c.listing.Do(req)
	if err != nil {
		return 0, classify(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, &domain.UpstreamHTTPError{StatusCode: resp.StatusCode, Status: resp.Status}
	}
	if resp.ContentLength >= 0 {
		return resp.ContentLength, nil
	}
	return 0, nil
}

// OpenStream starts a file GET. The Range header is sent only when the
// window is narrower than the whole resource; an unbounded window keeps the
// open "bytes=N-" form. The caller owns the returned body.
func (c *Client) OpenStream(ctx context.Context, path string, rng *domain.ByteRange) (_ ports.StreamSource, err error) {
	start := time.Now()
	defer func() { observe("stream", start, err) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.resourceURL(path), nil)
	if err != nil {
		return ports.StreamSource{}, fmt.Errorf("build stream request: %w", err)
	}
	if rng != nil && (rng.Start > 0 || rng.HasEnd) {
		req.Header.Set("Range", rng.HeaderValue())
	}

	resp, err := c.data.Do(req)
	if err != nil {
		return ports.StreamSource{}, classify(err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		status := resp.Status
		code := resp.StatusCode
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		resp.Body.Close()
		return ports.StreamSource{}, &domain.UpstreamHTTPError{StatusCode: code, Status: status}
	}

	return ports.StreamSource{Status: resp.StatusCode, Header: resp.Header, Body: resp.Body}, nil
}

// resourceURL joins a canonical absolute path onto the base URL. The path is
// held decoded in URL.Path, so reserved characters are re-escaped on the
// wire.
func (c *Client) resourceURL(path string) string {
	u := *c.base
	u.Path = c.base.Path + path
	u.RawPath = ""
	return u.String()
}

func canonicalBasePath(p string) string {
	for len(p) > 0 && p[len(p)-1] == '/' {
		p = p[:len(p)-1]
	}
	return p
}

// observe records one upstream exchange. Stream durations cover the time to
// response headers, not the full body transfer.
func observe(op string, start time.Time, err error) {
	metrics.UpstreamRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	metrics.UpstreamRequestsTotal.WithLabelValues(op, outcome(err)).Inc()
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	var httpErr *domain.UpstreamHTTPError
	switch {
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, domain.ErrTimeout):
		return "timeout"
	case errors.Is(err, domain.ErrNetwork):
		return "network_error"
	case errors.As(err, &httpErr):
		return "http_error"
	default:
		return "error"
	}
}

// classify maps transport failures onto the domain taxonomy. Context
// cancellation (the client went away) passes through untouched.
func classify(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", domain.ErrTimeout, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", domain.ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", domain.ErrNetwork, err)
}
