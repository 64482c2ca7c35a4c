// Package validation is the client for the external email validation API.
package validation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/usergate/usergate/internal/metrics"
	"github.com/usergate/usergate/internal/middleware"
	"github.com/usergate/usergate/internal/model"
)

const (
	// ValidatePath is appended to the configured base URL.
	ValidatePath = "/validate"
	// DefaultTimeout bounds a whole validation call.
	DefaultTimeout = 5 * time.Second
	// DialTimeout is the connection timeout.
	DialTimeout = 2 * time.Second
	// ResponseHeaderTimeout is time to wait for response headers.
	ResponseHeaderTimeout = 4 * time.Second

	maxResponseBytes = 64 << 10
	userAgent        = "usergate/0.1.0"
	tracerName       = "github.com/usergate/usergate/internal/validation"
)

// Client calls GET {baseURL}/validate?email=... and decodes the verdict.
// It never retries and never caches.
type Client struct {
	baseURL    string
	httpClient *http.Client
	metrics    metrics.Recorder
	tracer     trace.Tracer
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithMetrics sets the recorder for call outcomes.
func WithMetrics(recorder metrics.Recorder) Option {
	return func(c *Client) {
		if recorder != nil {
			c.metrics = recorder
		}
	}
}

// New creates a Client for the given base URL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: NewHTTPClient(DefaultTimeout),
		metrics:    metrics.NewNoop(),
		tracer:     otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewHTTPClient creates an HTTP client for validation calls.
// timeout bounds the whole request; zero falls back to DefaultTimeout.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   DialTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   DialTimeout,
			ResponseHeaderTimeout: ResponseHeaderTimeout,
			MaxIdleConns:          20,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
		},
	}
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Validate asks the validation API about email.
// Any failure to obtain a well-formed verdict is returned as *UnavailableError.
func (c *Client) Validate(ctx context.Context, email string) (*model.EmailValidationResult, error) {
	start := time.Now()

	ctx, span := c.tracer.Start(ctx, "email_validation.validate", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	result, err := c.do(ctx, span, email)

	outcome := metrics.OutcomeValid
	switch {
	case err != nil:
		outcome = metrics.OutcomeUnavailable
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	case !result.Valid:
		outcome = metrics.OutcomeInvalid
	}
	if result != nil {
		span.SetAttributes(attribute.Bool("email_validation.valid", result.Valid))
	}
	c.metrics.ObserveValidationCall(outcome, time.Since(start))

	return result, err
}

func (c *Client) do(ctx context.Context, span trace.Span, email string) (*model.EmailValidationResult, error) {
	endpoint := c.baseURL + ValidatePath + "?" + url.Values{"email": {email}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &UnavailableError{Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if requestID := middleware.GetRequestID(ctx); requestID != "" {
		req.Header.Set(middleware.RequestIDHeader, requestID)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &UnavailableError{Err: fmt.Errorf("send request: %w", err)}
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return nil, &UnavailableError{StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UnavailableError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected response: %s", http.StatusText(resp.StatusCode)),
		}
	}

	if len(body) > maxResponseBytes {
		return nil, &UnavailableError{StatusCode: resp.StatusCode, Err: errors.New("response body too large")}
	}

	result, err := decodeResult(body)
	if err != nil {
		return nil, &UnavailableError{StatusCode: resp.StatusCode, Err: err}
	}

	return result, nil
}

// decodeResult checks body against the result schema and decodes it.
func decodeResult(body []byte) (*model.EmailValidationResult, error) {
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("malformed response body: %w", err)
	}

	if err := resultSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("response does not match schema: %w", err)
	}

	var result model.EmailValidationResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode response body: %w", err)
	}

	return &result, nil
}
