// Package llmclient provides a base HTTP client for collaborator APIs with
// request marshaling, retries with exponential backoff, standardized error
// parsing and circuit breaking. Retry policy lives here, at the
// collaborator boundary; pipeline components make exactly one call.
package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"time"

	"agrivoice/internal/core"
	"agrivoice/internal/httpclient"
)

// Config holds configuration for a collaborator client.
type Config struct {
	// ProviderName identifies the collaborator in error messages.
	ProviderName string

	// BaseURL is the API base URL.
	BaseURL string

	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	BackoffFactor  float64

	CircuitBreaker *BreakerConfig
}

// BreakerConfig holds circuit breaker settings.
type BreakerConfig struct {
	FailureThreshold int
	SuccessThreshold int
	Timeout          time.Duration
}

// DefaultConfig returns default client configuration.
func DefaultConfig(providerName, baseURL string) Config {
	return Config{
		ProviderName:   providerName,
		BaseURL:        baseURL,
		MaxRetries:     3,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     30 * time.Second,
		BackoffFactor:  2.0,
		CircuitBreaker: &BreakerConfig{
			FailureThreshold: 5,
			SuccessThreshold: 2,
			Timeout:          30 * time.Second,
		},
	}
}

// HeaderSetter applies collaborator-specific headers to a request.
type HeaderSetter func(req *http.Request)

// Client is a base HTTP client for collaborator APIs.
type Client struct {
	httpClient   *http.Client
	config       Config
	headerSetter HeaderSetter
	breaker      *breaker
}

// New creates a client with the default transport.
func New(config Config, headerSetter HeaderSetter) *Client {
	return NewWithHTTPClient(httpclient.NewDefault(), config, headerSetter)
}

// NewWithHTTPClient creates a client with a custom *http.Client.
func NewWithHTTPClient(hc *http.Client, config Config, headerSetter HeaderSetter) *Client {
	c := &Client{
		httpClient:   hc,
		config:       config,
		headerSetter: headerSetter,
	}
	if config.CircuitBreaker != nil {
		c.breaker = newBreaker(
			config.CircuitBreaker.FailureThreshold,
			config.CircuitBreaker.SuccessThreshold,
			config.CircuitBreaker.Timeout,
		)
	}
	return c
}

// SetBaseURL updates the base URL. Intended for tests.
func (c *Client) SetBaseURL(url string) {
	c.config.BaseURL = url
}

// Request represents a JSON request to be made.
type Request struct {
	Method   string
	Endpoint string
	Body     any // JSON marshaled when not nil
	Headers  map[string]string
}

// MultipartRequest represents a multipart/form-data upload request.
type MultipartRequest struct {
	Endpoint  string
	Fields    map[string]string
	FileField string
	FileName  string
	File      io.Reader
}

// Do executes a JSON request with retries and circuit breaking, then
// unmarshals the response into result when non-nil.
func (c *Client) Do(ctx context.Context, req Request, result any) error {
	var bodyBytes []byte
	if req.Body != nil {
		b, err := json.Marshal(req.Body)
		if err != nil {
			return &core.ProviderError{Provider: c.config.ProviderName, Message: "failed to marshal request", Err: err}
		}
		bodyBytes = b
	}

	build := func(ctx context.Context) (*http.Request, error) {
		var rd io.Reader
		if bodyBytes != nil {
			rd = bytes.NewReader(bodyBytes)
		}
		httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.config.BaseURL+req.Endpoint, rd)
		if err != nil {
			return nil, err
		}
		if bodyBytes != nil {
			httpReq.Header.Set("Content-Type", "application/json")
		}
		for k, v := range req.Headers {
			httpReq.Header.Set(k, v)
		}
		return httpReq, nil
	}

	respBody, err := c.doWithRetry(ctx, build)
	if err != nil {
		return err
	}
	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return &core.ProviderError{Provider: c.config.ProviderName, Message: "failed to unmarshal response", Err: err}
		}
	}
	return nil
}

// DoRaw executes a request and returns the raw response bytes. Used for
// collaborators that return non-JSON payloads such as encoded audio.
func (c *Client) DoRaw(ctx context.Context, req Request) ([]byte, error) {
	build := func(ctx context.Context) (*http.Request, error) {
		httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.config.BaseURL+req.Endpoint, nil)
		if err != nil {
			return nil, err
		}
		for k, v := range req.Headers {
			httpReq.Header.Set(k, v)
		}
		return httpReq, nil
	}
	return c.doWithRetry(ctx, build)
}

// DoMultipart executes a multipart upload with retries and circuit
// breaking. The file is buffered once so the body can be replayed across
// attempts.
func (c *Client) DoMultipart(ctx context.Context, req MultipartRequest, result any) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range req.Fields {
		if err := w.WriteField(k, v); err != nil {
			return &core.ProviderError{Provider: c.config.ProviderName, Message: "failed to build multipart body", Err: err}
		}
	}
	fw, err := w.CreateFormFile(req.FileField, req.FileName)
	if err != nil {
		return &core.ProviderError{Provider: c.config.ProviderName, Message: "failed to build multipart body", Err: err}
	}
	if _, err := io.Copy(fw, req.File); err != nil {
		return &core.ProviderError{Provider: c.config.ProviderName, Message: "failed to read upload", Err: err}
	}
	if err := w.Close(); err != nil {
		return &core.ProviderError{Provider: c.config.ProviderName, Message: "failed to finalize multipart body", Err: err}
	}

	body := buf.Bytes()
	contentType := w.FormDataContentType()
	build := func(ctx context.Context) (*http.Request, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+req.Endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Content-Type", contentType)
		return httpReq, nil
	}

	respBody, err := c.doWithRetry(ctx, build)
	if err != nil {
		return err
	}
	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return &core.ProviderError{Provider: c.config.ProviderName, Message: "failed to unmarshal response", Err: err}
		}
	}
	return nil
}

// doWithRetry runs the request with backoff and circuit breaking. build is
// called once per attempt so the body reader is fresh each time.
func (c *Client) doWithRetry(ctx context.Context, build func(context.Context) (*http.Request, error)) ([]byte, error) {
	if c.breaker != nil && !c.breaker.Allow() {
		return nil, &core.ProviderError{
			Provider:   c.config.ProviderName,
			StatusCode: http.StatusServiceUnavailable,
			Message:    "circuit breaker is open - collaborator temporarily unavailable",
		}
	}

	maxAttempts := c.config.MaxRetries + 1
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.backoff(attempt)):
			}
		}

		httpReq, err := build(ctx)
		if err != nil {
			return nil, &core.ProviderError{Provider: c.config.ProviderName, Message: "failed to create request", Err: err}
		}
		if c.headerSetter != nil {
			c.headerSetter(httpReq)
		}

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			c.recordFailure()
			lastErr = &core.ProviderError{Provider: c.config.ProviderName, Message: "failed to send request", Err: err}
			continue
		}

		body, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			c.recordFailure()
			lastErr = &core.ProviderError{Provider: c.config.ProviderName, Message: "failed to read response", Err: err}
			continue
		}

		if isRetryable(resp.StatusCode) {
			c.recordFailure()
			lastErr = core.ParseProviderError(c.config.ProviderName, resp.StatusCode, body, nil)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			if resp.StatusCode >= 500 {
				c.recordFailure()
			}
			return nil, core.ParseProviderError(c.config.ProviderName, resp.StatusCode, body, nil)
		}

		c.recordSuccess()
		return body, nil
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return nil, &core.ProviderError{
		Provider:   c.config.ProviderName,
		StatusCode: http.StatusBadGateway,
		Message:    "request failed after retries",
	}
}

func (c *Client) recordFailure() {
	if c.breaker != nil {
		c.breaker.RecordFailure()
	}
}

func (c *Client) recordSuccess() {
	if c.breaker != nil {
		c.breaker.RecordSuccess()
	}
}

func (c *Client) backoff(attempt int) time.Duration {
	b := float64(c.config.InitialBackoff) * math.Pow(c.config.BackoffFactor, float64(attempt-1))
	if b > float64(c.config.MaxBackoff) {
		b = float64(c.config.MaxBackoff)
	}
	return time.Duration(b)
}

func isRetryable(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests ||
		statusCode == http.StatusServiceUnavailable ||
		statusCode == http.StatusBadGateway ||
		statusCode == http.StatusGatewayTimeout
}
