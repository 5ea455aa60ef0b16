package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

const (
	// DefaultTimeout bounds connection setup and the full body transfer.
	DefaultTimeout = 120 * time.Second

	// DefaultUserAgent is sent on every request. Some image hosts reject
	// clients that do not look like a browser.
	DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

var (
	// ErrStatus is wrapped by errors caused by a non-2xx response.
	ErrStatus = errors.New("fetch: unexpected status")

	// ErrNotFile is wrapped by errors for file:// URLs naming a directory.
	ErrNotFile = errors.New("fetch: not a regular file")
)

// Options configures the HTTP client.
type Options struct {
	// Timeout for a single request including the body.
	// Default: 120s
	Timeout time.Duration

	// Proxy routes all requests through the given proxy. Nil connects directly.
	Proxy *url.URL

	// UserAgent overrides DefaultUserAgent.
	UserAgent string
}

// DefaultOptions returns options with the fixed timeout and user agent.
func DefaultOptions() Options {
	return Options{
		Timeout:   DefaultTimeout,
		UserAgent: DefaultUserAgent,
	}
}

// Error is the single failure value returned by Fetch.
type Error struct {
	URL        string
	StatusCode int // zero unless the server answered
	Err        error
}

func (e *Error) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Timeout reports whether the request gave up because the deadline passed.
func (e *Error) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(e.Err, &ne) && ne.Timeout()
}

// Client fetches asset bytes.
type Client struct {
	client    *http.Client
	userAgent string
}

// NewClient creates a new client with the given options. Zero fields fall
// back to DefaultOptions.
func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}

	transport := &http.Transport{
		Proxy:               http.ProxyURL(opts.Proxy),
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 30 * time.Second,
	}
	// Images referenced by relative path are handed to us as file:// URLs.
	transport.RegisterProtocol("file", http.NewFileTransport(http.Dir("/")))

	return &Client{
		client: &http.Client{
			Transport: transport,
			Timeout:   opts.Timeout,
		},
		userAgent: opts.UserAgent,
	}
}

// Fetch performs a GET request and returns the full response body.
// Any failure is returned as *Error.
func (c *Client) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &Error{URL: rawURL, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("User-Agent", c.userAgent)

	// The file transport answers a directory with a listing or its index.html.
	if req.URL.Scheme == "file" {
		if info, err := os.Stat(filepath.FromSlash(req.URL.Path)); err == nil && info.IsDir() {
			return nil, &Error{URL: rawURL, Err: fmt.Errorf("%w: %s", ErrNotFile, req.URL.Path)}
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &Error{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Drain a little so the connection can be reused.
		_, _ = io.CopyN(io.Discard, resp.Body, 4096)
		return nil, &Error{
			URL:        rawURL,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%w: %s", ErrStatus, resp.Status),
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{URL: rawURL, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}
	return data, nil
}
