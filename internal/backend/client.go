// Package backend executes one HTTP request per tool call against the Ghost
// management REST API and classifies the outcome.
package backend

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

	"github.com/preangelleo/ghost-blog-management-mcp/internal/creds"
)

// Timeout classes. Fast covers plain CMS operations; slow covers calls that
// may run AI content or image generation upstream.
const (
	TimeoutClassFast = "fast"
	TimeoutClassSlow = "slow"

	DefaultFastTimeout = 30 * time.Second
	DefaultSlowTimeout = 300 * time.Second
)

const (
	headerServiceKey  = "X-API-Key"
	headerAdminAPIKey = "X-Ghost-Admin-API-Key"
	headerAPIURL      = "X-Ghost-API-URL"

	maxResponseBytes = 4 << 20
)

// Config holds backend client configuration.
type Config struct {
	// BaseURL is the root URL of the management API backend.
	BaseURL string
	// FastTimeout bounds fast-class calls. Defaults to 30s.
	FastTimeout time.Duration
	// SlowTimeout bounds slow-class (generative) calls. Defaults to 300s.
	SlowTimeout time.Duration
	// HTTPClient optionally overrides the transport, mainly for tests.
	HTTPClient *http.Client
}

// Client issues exactly one HTTP request per Invoke call. It never retries:
// upstream operations such as post creation are not idempotent, so a silent
// retry could duplicate content.
type Client struct {
	baseURL    string
	fast       time.Duration
	slow       time.Duration
	httpClient *http.Client
}

// Request describes one outbound backend call.
type Request struct {
	Method       string
	Path         string
	Query        url.Values
	Body         map[string]any
	Credentials  creds.Set
	TimeoutClass string
}

// OutcomeKind is the four-way classification of one backend call.
type OutcomeKind string

const (
	// OutcomeSuccess means the backend responded with an affirmative envelope.
	OutcomeSuccess OutcomeKind = "success"
	// OutcomeBackendFailure means the backend responded but signaled an
	// application-level error (non-2xx status or success=false).
	OutcomeBackendFailure OutcomeKind = "backend_failure"
	// OutcomeTimeout means no response arrived inside the timeout window.
	OutcomeTimeout OutcomeKind = "timeout"
	// OutcomeTransportFailure means a network-level error before any response.
	OutcomeTransportFailure OutcomeKind = "transport_failure"
)

// Outcome is the classified result of one backend call.
type Outcome struct {
	Kind       OutcomeKind
	StatusCode int
	Data       any
	Message    string
	Timestamp  string
	// Timeout is the class timeout that applied to this call.
	Timeout time.Duration
}

// envelope is the backend response wrapper shared across endpoints. Data is
// endpoint-specific and treated opaquely here.
type envelope struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	Error     string `json:"error,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// New creates a backend client.
func New(cfg Config) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		return nil, fmt.Errorf("backend: BaseURL is required")
	}
	baseURL = strings.TrimRight(baseURL, "/")

	fast := cfg.FastTimeout
	if fast <= 0 {
		fast = DefaultFastTimeout
	}
	slow := cfg.SlowTimeout
	if slow <= 0 {
		slow = DefaultSlowTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		// Deadline enforcement happens per request via context, matching
		// the timeout class; the client itself carries no fixed timeout.
		httpClient = &http.Client{}
	}

	return &Client{
		baseURL:    baseURL,
		fast:       fast,
		slow:       slow,
		httpClient: httpClient,
	}, nil
}

// ClassTimeout returns the wall-clock timeout for a timeout class.
func (c *Client) ClassTimeout(class string) time.Duration {
	if strings.ToLower(strings.TrimSpace(class)) == TimeoutClassSlow {
		return c.slow
	}
	return c.fast
}

// Invoke performs one classified backend call. The returned error is non-nil
// only for request construction bugs; every network or backend condition is
// expressed through the Outcome kind.
func (c *Client) Invoke(ctx context.Context, req Request) (*Outcome, error) {
	timeout := c.ClassTimeout(req.TimeoutClass)
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := c.buildHTTPRequest(callCtx, req)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
			return &Outcome{
				Kind:    OutcomeTimeout,
				Message: fmt.Sprintf("no response from backend within %s", timeout),
				Timeout: timeout,
			}, nil
		}
		return &Outcome{
			Kind:    OutcomeTransportFailure,
			Message: err.Error(),
			Timeout: timeout,
		}, nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return &Outcome{
				Kind:       OutcomeTimeout,
				StatusCode: resp.StatusCode,
				Message:    fmt.Sprintf("no response from backend within %s", timeout),
				Timeout:    timeout,
			}, nil
		}
		return &Outcome{
			Kind:       OutcomeTransportFailure,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("reading backend response: %v", err),
			Timeout:    timeout,
		}, nil
	}

	return classifyResponse(resp.StatusCode, body, timeout), nil
}

func (c *Client) buildHTTPRequest(ctx context.Context, req Request) (*http.Request, error) {
	target := c.baseURL + req.Path
	if encoded := req.Query.Encode(); encoded != "" {
		target += "?" + encoded
	}

	var bodyReader io.Reader
	if methodCarriesBody(req.Method) && req.Body != nil {
		encoded, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("building backend request: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")
	if bodyReader != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	// The service key is always attached; per-blog credentials only when
	// resolution produced them. Credentials travel exclusively as headers.
	httpReq.Header.Set(headerServiceKey, req.Credentials.ServiceKey)
	if req.Credentials.AdminAPIKey != "" {
		httpReq.Header.Set(headerAdminAPIKey, req.Credentials.AdminAPIKey)
	}
	if req.Credentials.APIURL != "" {
		httpReq.Header.Set(headerAPIURL, req.Credentials.APIURL)
	}

	return httpReq, nil
}

func classifyResponse(statusCode int, body []byte, timeout time.Duration) *Outcome {
	var env envelope
	decodeErr := json.Unmarshal(body, &env)

	if statusCode < 200 || statusCode > 299 {
		message := strings.TrimSpace(env.Error)
		if message == "" {
			message = fmt.Sprintf("backend returned status %d", statusCode)
		}
		return &Outcome{
			Kind:       OutcomeBackendFailure,
			StatusCode: statusCode,
			Message:    message,
			Timestamp:  env.Timestamp,
			Timeout:    timeout,
		}
	}

	if decodeErr != nil {
		return &Outcome{
			Kind:       OutcomeBackendFailure,
			StatusCode: statusCode,
			Message:    fmt.Sprintf("malformed backend response: %v", decodeErr),
			Timeout:    timeout,
		}
	}

	if !env.Success {
		message := strings.TrimSpace(env.Error)
		if message == "" {
			message = "backend reported failure without detail"
		}
		return &Outcome{
			Kind:       OutcomeBackendFailure,
			StatusCode: statusCode,
			Message:    message,
			Timestamp:  env.Timestamp,
			Timeout:    timeout,
		}
	}

	return &Outcome{
		Kind:       OutcomeSuccess,
		StatusCode: statusCode,
		Data:       env.Data,
		Timestamp:  env.Timestamp,
		Timeout:    timeout,
	}
}

func methodCarriesBody(method string) bool {
	switch strings.ToUpper(strings.TrimSpace(method)) {
	case http.MethodPost, http.MethodPut:
		return true
	default:
		return false
	}
}
