package monitor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/http2"
)

// Endpoint is a request the monitor sends to the backend.
type Endpoint struct {
	Method string
	Path   string
	Body   any
}

// HealthEndpoint is the target of every probe.
var HealthEndpoint = Endpoint{Method: http.MethodGet, Path: "/health"}

// WakeEndpoints is the fixed, ordered wake sequence.
var WakeEndpoints = []Endpoint{
	{Method: http.MethodGet, Path: "/"},
	{Method: http.MethodGet, Path: "/health"},
	{
		Method: http.MethodPost,
		Path:   "/ai-enhance",
		Body: map[string]string{
			"section": "summary",
			"content": "Server wake-up test",
		},
	},
}

// CheckResult captures the outcome of one request.
type CheckResult struct {
	Endpoint   Endpoint
	OK         bool
	StatusCode int
	Latency    time.Duration
	Err        *CheckError
}

// Client sends bounded-time requests to the backend.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient builds a client for baseURL. Deadlines come from the context passed to Check.
func NewClient(baseURL string) *Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	// h2 is negotiated through ALPN on https backends; plain http stays on HTTP/1.1.
	_ = http2.ConfigureTransport(transport)

	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Transport: transport},
	}
}

// BaseURL returns the backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Check issues a single request. ctx is the cancellation handle for the call.
func (c *Client) Check(ctx context.Context, endpoint Endpoint) CheckResult {
	res := CheckResult{Endpoint: endpoint}
	start := time.Now()

	req, err := c.newRequest(ctx, endpoint)
	if err != nil {
		res.Err = &CheckError{Kind: KindTransport, Err: err}
		return res
	}

	response, err := c.client.Do(req)
	res.Latency = time.Since(start)
	if err != nil {
		res.Err = classifyError(ctx, err)
		return res
	}
	defer response.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(response.Body, 64<<10))

	res.StatusCode = response.StatusCode
	res.OK = response.StatusCode >= 200 && response.StatusCode < 300
	if !res.OK {
		res.Err = statusError(response.StatusCode)
	}
	return res
}

func (c *Client) newRequest(ctx context.Context, endpoint Endpoint) (*http.Request, error) {
	var body io.Reader
	if endpoint.Body != nil {
		payload, err := json.Marshal(endpoint.Body)
		if err != nil {
			return nil, fmt.Errorf("encode %s body: %w", endpoint.Path, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, endpoint.Method, c.baseURL+endpoint.Path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return req, nil
}
