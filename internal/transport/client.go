// Package transport performs the backchannel calls to the provider: bounded
// time, bounded body size, optional certificate pinning, and errors mapped
// onto the handshake taxonomy.
package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/BlackMission/tencentauth/internal/domain"
)

const (
	DefaultTimeout          = 60 * time.Second
	DefaultMaxResponseBytes = 10 << 20
	userAgent               = "tencentauth"
)

// Options configures a backchannel Client.
type Options struct {
	Timeout          time.Duration
	MaxResponseBytes int64

	// RoundTripper replaces the default pooled transport.
	RoundTripper http.RoundTripper

	// Validator runs after the standard chain verification. It can only be
	// installed on an *http.Transport.
	Validator CertificateValidator

	// Observe is called once per completed call with the endpoint label and latency.
	Observe func(endpoint string, d time.Duration, err error)
}

// Response is a fully read backchannel response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Client is safe for concurrent use; the underlying http.Client owns the
// connection pool.
type Client struct {
	http     *http.Client
	maxBytes int64
	observe  func(string, time.Duration, error)
	tracer   trace.Tracer
}

// New builds a Client, failing with domain.ErrConfiguration when a validator
// is combined with a RoundTripper that cannot accept it.
func New(opts Options) (*Client, error) {
	rt, err := resolveRoundTripper(opts.RoundTripper, opts.Validator)
	if err != nil {
		return nil, err
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	maxBytes := opts.MaxResponseBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxResponseBytes
	}

	return &Client{
		http:     &http.Client{Transport: rt, Timeout: timeout},
		maxBytes: maxBytes,
		observe:  opts.Observe,
		tracer:   otel.Tracer("github.com/BlackMission/tencentauth/internal/transport"),
	}, nil
}

func resolveRoundTripper(rt http.RoundTripper, v CertificateValidator) (http.RoundTripper, error) {
	if v == nil {
		if rt == nil {
			return http.DefaultTransport.(*http.Transport).Clone(), nil
		}
		return rt, nil
	}

	var base *http.Transport
	switch t := rt.(type) {
	case nil:
		base = http.DefaultTransport.(*http.Transport).Clone()
	case *http.Transport:
		base = t.Clone()
	default:
		return nil, fmt.Errorf("%w: certificate validator requires an *http.Transport, got %T", domain.ErrConfiguration, rt)
	}

	if base.TLSClientConfig == nil {
		base.TLSClientConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	base.TLSClientConfig.VerifyConnection = v.Validate
	return base, nil
}

// Do sends req and reads the whole body. endpoint labels traces and metrics.
// Failures are domain.ErrTransport, domain.ErrResponseTooLarge, or
// domain.ErrCancelled when ctx ended first.
func (c *Client) Do(ctx context.Context, endpoint string, req *http.Request) (resp *Response, err error) {
	ctx, span := c.tracer.Start(ctx, "backchannel "+endpoint,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", req.Method),
			attribute.String("server.address", req.URL.Host),
		))
	start := time.Now()
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "backchannel failure")
		}
		span.End()
		if c.observe != nil {
			c.observe(endpoint, time.Since(start), err)
		}
	}()

	req = req.WithContext(ctx)
	req.Header.Set("User-Agent", userAgent)

	httpResp, err := c.http.Do(req)
	if err != nil {
		return nil, c.classify(ctx, err)
	}
	defer httpResp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", httpResp.StatusCode))

	if httpResp.ContentLength > c.maxBytes {
		return nil, fmt.Errorf("%w: declared %d bytes", domain.ErrResponseTooLarge, httpResp.ContentLength)
	}

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, c.maxBytes+1))
	if err != nil {
		return nil, c.classify(ctx, err)
	}
	if int64(len(body)) > c.maxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", domain.ErrResponseTooLarge, c.maxBytes)
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       body,
	}, nil
}

func (c *Client) classify(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(ctxErr, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", domain.ErrCancelled, ctxErr)
	}
	return fmt.Errorf("%w: %w", domain.ErrTransport, err)
}
