// Package apiclient talks to the storefront REST backend.
//
// Every request goes through one transport that attaches the session's
// bearer token, so individual calls never deal with credentials.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/niloyhakimai/medistore-client/pkg/logger"
	"github.com/niloyhakimai/medistore-client/pkg/metrics"
	"github.com/niloyhakimai/medistore-client/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// TokenSource yields the bearer credential of the current session, if any
type TokenSource interface {
	Token(ctx context.Context) (string, bool)
}

// TokenFunc adapts a function to TokenSource
type TokenFunc func(ctx context.Context) (string, bool)

// Token calls f
func (f TokenFunc) Token(ctx context.Context) (string, bool) {
	return f(ctx)
}

// Config holds client settings
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// DefaultConfig returns the local development backend settings
func DefaultConfig() *Config {
	return &Config{
		BaseURL: "http://localhost:5000/api",
		Timeout: 10 * time.Second,
	}
}

// Client is a typed client for the storefront backend
type Client struct {
	baseURL    string
	httpClient *http.Client
	metrics    *metrics.Metrics
	log        *logger.Logger
}

// New creates a client. tokens may be nil for anonymous use.
func New(cfg *Config, tokens TokenSource) *Client {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: &bearerTransport{base: http.DefaultTransport, tokens: tokens},
		},
		metrics: metrics.Default(),
		log:     logger.Get(),
	}
}

// bearerTransport attaches the session token to every outgoing request
type bearerTransport struct {
	base   http.RoundTripper
	tokens TokenSource
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.tokens == nil {
		return t.base.RoundTrip(req)
	}
	token, ok := t.tokens.Token(req.Context())
	if !ok {
		return t.base.RoundTrip(req)
	}
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+token)
	return t.base.RoundTrip(req)
}

// call describes one backend request
type call struct {
	op      string
	method  string
	path    string
	body    interface{}
	headers map[string]string
}

// do sends c and decodes the payload into out, unwrapping the {data: ...}
// envelope when present
func (cl *Client) do(ctx context.Context, c call, out interface{}) error {
	ctx, span := telemetry.StartSpan(ctx, "apiclient."+c.op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", c.method),
			attribute.String("http.route", c.path),
		),
	)
	defer span.End()

	var reader io.Reader
	if c.body != nil {
		payload, err := json.Marshal(c.body)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", c.op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, c.method, cl.baseURL+c.path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	telemetry.InjectHTTPHeaders(ctx, req.Header)

	start := time.Now()
	resp, err := cl.httpClient.Do(req)
	if err != nil {
		cl.metrics.ObserveRequest(c.op, 0, time.Since(start))
		telemetry.SetSpanError(ctx, err)
		return fmt.Errorf("failed to call %s: %w", c.op, err)
	}
	defer resp.Body.Close()
	cl.metrics.ObserveRequest(c.op, resp.StatusCode, time.Since(start))
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		telemetry.SetSpanError(ctx, err)
		return fmt.Errorf("failed to read %s response: %w", c.op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := newAPIError(resp.StatusCode, body)
		telemetry.SetSpanError(ctx, apiErr)
		cl.log.Debug("Backend rejected request",
			"op", c.op,
			"status", resp.StatusCode,
			"error", apiErr.Error(),
			"trace_id", telemetry.GetTraceID(ctx),
		)
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := decodeData(body, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", c.op, err)
	}
	return nil
}

// decodeData unwraps the {"data": ...} envelope when present. An explicit
// null payload leaves out at its zero value.
func decodeData(body []byte, out interface{}) error {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err == nil {
		if data, ok := envelope["data"]; ok {
			if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
				return nil
			}
			return json.Unmarshal(data, out)
		}
	}
	return json.Unmarshal(body, out)
}
