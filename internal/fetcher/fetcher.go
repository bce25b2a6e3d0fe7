package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Document is a fetched resource.
type Document struct {
	URL         string
	StatusCode  int
	ContentType string
	Body        []byte
}

// MediaType returns the content type without parameters, lower-cased.
func (d *Document) MediaType() string {
	mt, _, err := mime.ParseMediaType(d.ContentType)
	if err != nil {
		return ""
	}
	return mt
}

// StatusError is returned when the server answered with a non-2xx status.
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %s", e.URL, e.Status)
}

// Options configure a Client.
type Options struct {
	UserAgent    string
	MaxBodyBytes int64
	// LinkedRate and LinkedBurst bound linked-documentation fetches per second.
	LinkedRate  float64
	LinkedBurst int
	Transport   http.RoundTripper
}

// Client performs documentation GETs with a custom User-Agent and per-call timeouts.
type Client struct {
	http      *http.Client
	userAgent string
	maxBody   int64
	limiter   *rate.Limiter
	logger    *zap.Logger
}

// New creates a Client. Timeouts are supplied per call.
func New(opts Options, logger *zap.Logger) *Client {
	if opts.UserAgent == "" {
		opts.UserAgent = "API-Dochancer/1.0"
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 20 << 20
	}
	limit := rate.Inf
	if opts.LinkedRate > 0 {
		limit = rate.Limit(opts.LinkedRate)
	}
	if opts.LinkedBurst <= 0 {
		opts.LinkedBurst = 1
	}

	return &Client{
		http: &http.Client{
			Transport: NewCompressionMiddleware(opts.Transport),
		},
		userAgent: opts.UserAgent,
		maxBody:   opts.MaxBodyBytes,
		limiter:   rate.NewLimiter(limit, opts.LinkedBurst),
		logger:    logger.Named("fetcher"),
	}
}

// Fetch GETs rawURL within timeout. Non-2xx answers are returned as *StatusError.
func (c *Client) Fetch(ctx context.Context, rawURL string, timeout time.Duration) (*Document, error) {
	resp, body, err := c.get(ctx, rawURL, timeout, nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{URL: rawURL, StatusCode: resp.StatusCode, Status: resp.Status}
	}
	return &Document{
		URL:         rawURL,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

// FetchLinked is Fetch behind the linked-documentation rate limiter.
func (c *Client) FetchLinked(ctx context.Context, rawURL string, timeout time.Duration) (*Document, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	return c.Fetch(ctx, rawURL, timeout)
}

// CloseIdleConnections releases pooled connections.
func (c *Client) CloseIdleConnections() {
	c.http.CloseIdleConnections()
}

// get performs one request and reads the (bounded) body before the timeout expires.
func (c *Client) get(ctx context.Context, rawURL string, timeout time.Duration, header http.Header) (*http.Response, []byte, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("GET failed", zap.String("url", rawURL), zap.Error(err))
		return nil, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read response body: %w", err)
	}

	c.logger.Debug("GET completed",
		zap.String("url", rawURL),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(body)),
		zap.Duration("duration", time.Since(start)),
	)
	return resp, body, nil
}

// IsTimeout reports whether err came from an expired deadline.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}
