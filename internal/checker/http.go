package checker

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/y0f/httpcheck/internal/safenet"
)

const maxBodyRead = 1 << 20 // 1MB

// Request is what the engine asks a Client to send.
type Request struct {
	Method  string
	URL     string
	Body    string
	Headers Headers
	Options ClientOptions
}

// Response is the observed HTTP response.
type Response struct {
	StatusCode int
	Headers    Headers
	Body       string
	Elapsed    time.Duration
}

// Client issues HTTP requests. An error return is a transport failure and
// becomes an error Verdict.
type Client interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// TransportError describes a request that produced no response.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("request failed: %v", e.Err) }

func (e *TransportError) Unwrap() error { return e.Err }

// HTTPClient is the default Client. Requests naming the same pool and
// transport settings share one http.Transport and its idle connections.
type HTTPClient struct {
	AllowPrivate bool
	Logger       *slog.Logger

	mu    sync.Mutex
	pools map[transportKey]*http.Transport
}

type transportKey struct {
	pool          string
	minTLS        TLSVersion
	skipTLSVerify bool
	proxy         string
	timeout       time.Duration
}

func NewHTTPClient(allowPrivate bool, logger *slog.Logger) *HTTPClient {
	return &HTTPClient{AllowPrivate: allowPrivate, Logger: logger}
}

func (c *HTTPClient) Do(ctx context.Context, r *Request) (*Response, error) {
	opts := r.Options

	var bodyReader io.Reader
	if r.Body != "" {
		bodyReader = strings.NewReader(r.Body)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, r.URL, bodyReader)
	if err != nil {
		return nil, &TransportError{Err: fmt.Errorf("invalid request: %w", err)}
	}
	for _, h := range r.Headers {
		req.Header.Add(h.Name, h.Value)
	}
	if opts.BasicAuthUser != "" {
		req.SetBasicAuth(opts.BasicAuthUser, opts.BasicAuthPass)
	}

	transport, err := c.transport(opts)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	client := &http.Client{
		Transport: transport,
		Timeout:   opts.Timeout,
	}
	if opts.FollowRedirects != nil && !*opts.FollowRedirects {
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	start := time.Now()
	resp, err := client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyRead))
	if err != nil {
		return nil, &TransportError{Err: fmt.Errorf("read body: %w", err)}
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Headers:    flattenHeader(resp.Header),
		Body:       string(bodyBytes),
		Elapsed:    elapsed,
	}, nil
}

// CloseIdleConnections closes idle connections in every pool.
func (c *HTTPClient) CloseIdleConnections() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range c.pools {
		t.CloseIdleConnections()
	}
}

func (c *HTTPClient) transport(opts ClientOptions) (*http.Transport, error) {
	key := transportKey{
		pool:          opts.Pool,
		minTLS:        opts.MinTLSVersion,
		skipTLSVerify: opts.SkipTLSVerify,
		proxy:         opts.Proxy,
		timeout:       opts.Timeout,
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.pools[key]; ok {
		return t, nil
	}
	if c.pools == nil {
		c.pools = make(map[transportKey]*http.Transport)
	}

	dialer := &net.Dialer{
		Timeout: opts.Timeout,
		Control: safenet.MaybeDialControl(c.AllowPrivate),
	}
	t := &http.Transport{
		DialContext: dialer.DialContext,
		TLSClientConfig: &tls.Config{
			MinVersion:         uint16(opts.MinTLSVersion),
			InsecureSkipVerify: opts.SkipTLSVerify,
		},
		TLSHandshakeTimeout:   opts.Timeout,
		ResponseHeaderTimeout: opts.Timeout,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       90 * time.Second,
	}
	if err := applyProxy(t, opts.Proxy, dialer.DialContext); err != nil {
		return nil, err
	}

	c.pools[key] = t
	if c.Logger != nil {
		c.Logger.Debug("transport created", "pool", opts.Pool, "proxy", opts.Proxy != "")
	}
	return t, nil
}

// flattenHeader turns h into ordered pairs sorted by name, keeping the
// order of repeated values.
func flattenHeader(h http.Header) Headers {
	names := make([]string, 0, len(h))
	for k := range h {
		names = append(names, k)
	}
	sort.Strings(names)

	out := make(Headers, 0, len(h))
	for _, k := range names {
		for _, v := range h[k] {
			out = append(out, Header{Name: k, Value: v})
		}
	}
	return out
}
