package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	DefaultBaseURL        = "http://localhost:8000/api"
	DefaultRequestTimeout = 30 * time.Second

	maxErrorBody = 4 << 10
)

// Client talks to the protocol-drafting backend. Request/response calls go
// through a client with a timeout; streams use a separate client without
// one, since a live run has no upper bound on duration.
type Client struct {
	baseURL      *url.URL
	httpClient   *http.Client
	streamClient *http.Client
}

type ClientOption func(*Client)

// WithHTTPClient replaces both the request and the stream HTTP clients.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
		c.streamClient = httpClient
	}
}

// WithRequestTimeout bounds request/response calls only.
func WithRequestTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		clone := *c.httpClient
		clone.Timeout = timeout
		c.httpClient = &clone
	}
}

func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", baseURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("invalid base url %q: scheme must be http or https", baseURL)
	}

	transport := newInstrumentedTransport()
	c := &Client{
		baseURL:      parsed,
		httpClient:   &http.Client{Transport: transport, Timeout: DefaultRequestTimeout},
		streamClient: &http.Client{Transport: transport},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func newInstrumentedTransport() http.RoundTripper {
	return otelhttp.NewTransport(http.DefaultTransport,
		otelhttp.WithSpanNameFormatter(func(operationName string, request *http.Request) string {
			return request.Method + " " + request.URL.Path
		}),
	)
}

// URL resolves path segments against the base URL.
func (c *Client) URL(segments ...string) *url.URL {
	return c.baseURL.JoinPath(segments...)
}

func (c *Client) BaseURL() *url.URL {
	clone := *c.baseURL
	return &clone
}

// StreamHTTPClient is the client used for long-lived streams.
func (c *Client) StreamHTTPClient() *http.Client { return c.streamClient }

func (c *Client) do(ctx context.Context, op, method string, target *url.URL, body, out any) (err error) {
	ctx, span := tracer.Start(ctx, op)
	defer span.End()
	span.SetAttributes(
		attribute.String("request.method", method),
		attribute.String("request.url", target.String()),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: error marshalling JSON: %w", op, err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return fmt.Errorf("%s: error creating HTTP request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("response.status_code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		errorBody, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		if readErr != nil {
			logger.DebugContext(ctx, "failed to read error body", "op", op, "error", readErr)
		}
		return &TransportError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Body:       string(errorBody),
			Err:        fmt.Errorf("non-OK HTTP status: %s", resp.Status),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return &TransportError{Op: op, Err: err}
		}
		return &ParseError{Op: op, Err: err}
	}
	return nil
}
