// Package remote talks to the hosted backend: the REST table API under
// /rest/v1 and the auth API under /auth/v1.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fjod/storefront/pkg/circuitbreaker"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var (
	ErrMissingConfig      = errors.New("remote service URL and API key are required")
	ErrBackendUnavailable = errors.New("remote service unavailable")
)

type Config struct {
	URL     string
	APIKey  string
	Timeout time.Duration
	Breaker circuitbreaker.Settings
	// Transport overrides the default instrumented transport.
	Transport http.RoundTripper
}

type Client struct {
	baseURL *url.URL
	apiKey  string
	http    *http.Client
	breaker *circuitbreaker.Breaker[*response]
}

type request struct {
	method string
	path   string
	query  url.Values
	header http.Header
	body   any
}

type response struct {
	status int
	header http.Header
	body   []byte
}

func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.URL) == "" || strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingConfig
	}
	base, err := url.Parse(strings.TrimRight(cfg.URL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid remote service URL %q", cfg.URL)
	}

	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Breaker.Name == "" {
		cfg.Breaker = circuitbreaker.DefaultSettings("remote")
	}
	cfg.Breaker.IsSuccessful = countsAsSuccess

	transport := cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	return &Client{
		baseURL: base,
		apiKey:  cfg.APIKey,
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(transport),
		},
		breaker: circuitbreaker.New[*response](cfg.Breaker),
	}, nil
}

// countsAsSuccess keeps well-formed client errors and cancellations from
// tripping the breaker.
func countsAsSuccess(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	var e *Error
	return errors.As(err, &e) && e.Status < http.StatusInternalServerError
}

// Ping reports ErrBackendUnavailable while the circuit breaker is open.
func (c *Client) Ping(context.Context) error {
	if c.breaker.Open() {
		return ErrBackendUnavailable
	}
	return nil
}

func (c *Client) do(ctx context.Context, req request) (*response, error) {
	return c.breaker.Execute(func() (*response, error) {
		return c.roundTrip(ctx, req)
	})
}

func (c *Client) roundTrip(ctx context.Context, req request) (*response, error) {
	u := *c.baseURL
	u.Path = u.Path + req.path
	if len(req.query) > 0 {
		u.RawQuery = req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		data, err := json.Marshal(req.body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, vs := range req.header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}

	bearer := AccessToken(ctx)
	if bearer == "" {
		bearer = c.apiKey
	}
	httpReq.Header.Set("apikey", c.apiKey)
	httpReq.Header.Set("Authorization", "Bearer "+bearer)
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", "application/json")
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.method, req.path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, decodeError(resp.StatusCode, data)
	}

	return &response{status: resp.StatusCode, header: resp.Header, body: data}, nil
}

func decodeInto(resp *response, dst any) error {
	if dst == nil || len(bytes.TrimSpace(resp.body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.body, dst); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
