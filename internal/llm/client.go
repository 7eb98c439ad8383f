package llm

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/quietloop/aecore/internal/backoff"
	"github.com/quietloop/aecore/internal/observability"
	"github.com/quietloop/aecore/internal/ratelimit"
)

// Client wraps a vendor Provider with the retry policy spec §4.5
// mandates: "Retries ApiConnection, RateLimited, Internal up to
// max_retries with jittered exponential backoff (base 10s, jitter ±20%).
// InvalidRequest is not retried."
//
// Concurrency: spec §4.5 requires at most one in-flight call per
// controller; Client itself is safe to share across sessions, matching
// spec §5's "the client itself is thread-safe and may be shared across
// sessions." The per-provider rate limiter bounds spec §5's
// "internal HTTP pool bounded by max_connections" ahead of the retry loop.
type Client struct {
	provider   Provider
	maxRetries int
	policy     backoff.BackoffPolicy
	limiter    *ratelimit.Limiter
	metrics    *observability.Metrics
	tracer     *observability.Tracer
}

// NewClient wraps provider with the default LLM retry policy and
// maxRetries attempts.
func NewClient(provider Provider, maxRetries int) *Client {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &Client{
		provider:   provider,
		maxRetries: maxRetries,
		policy:     backoff.LLMRetryPolicy(),
		limiter:    ratelimit.NewLimiter(ratelimit.DefaultConfig()),
	}
}

// WithRateLimit replaces the client's per-provider rate limiter.
func (c *Client) WithRateLimit(cfg ratelimit.Config) *Client {
	c.limiter = ratelimit.NewLimiter(cfg)
	return c
}

// WithMetrics attaches a Prometheus-backed recorder; every Generate call
// reports its outcome, latency, and token usage once attached.
func (c *Client) WithMetrics(m *observability.Metrics) *Client {
	c.metrics = m
	return c
}

// WithTracer attaches an OpenTelemetry tracer; every Generate call is
// wrapped in a span named for the provider and model.
func (c *Client) WithTracer(t *observability.Tracer) *Client {
	c.tracer = t
	return c
}

// Generate calls the wrapped provider, retrying retryable error kinds with
// jittered exponential backoff. A non-retryable *Error (InvalidRequest)
// returns immediately without sleeping.
func (c *Client) Generate(ctx context.Context, req Request) (Response, error) {
	if c.tracer != nil {
		var span trace.Span
		ctx, span = c.tracer.TraceLLMRequest(ctx, c.provider.Name(), req.Model)
		defer span.End()
		resp, err := c.generate(ctx, req)
		if err != nil {
			c.tracer.RecordError(span, err)
		}
		return resp, err
	}
	return c.generate(ctx, req)
}

func (c *Client) generate(ctx context.Context, req Request) (Response, error) {
	start := time.Now()

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return Response{}, err
		}
		if err := c.limiter.Wait(ctx, c.provider.Name()); err != nil {
			return Response{}, err
		}

		resp, err := c.provider.Generate(ctx, req)
		if err == nil {
			if resp.Metadata.LatencyMS == 0 {
				resp.Metadata.LatencyMS = time.Since(start).Milliseconds()
			}
			c.recordMetrics(req, "ok", start, resp)
			return resp, nil
		}

		lastErr = err
		llmErr, ok := err.(*Error)
		if !ok || !llmErr.Retryable() {
			c.recordMetrics(req, "error", start, Response{})
			return Response{}, err
		}
		if attempt < c.maxRetries {
			if sleepErr := backoff.SleepWithBackoff(ctx, c.policy, attempt); sleepErr != nil {
				return Response{}, sleepErr
			}
		}
	}

	c.recordMetrics(req, "error", start, Response{})
	return Response{}, lastErr
}

func (c *Client) recordMetrics(req Request, status string, start time.Time, resp Response) {
	if c.metrics == nil {
		return
	}
	c.metrics.RecordLLMRequest(c.provider.Name(), req.Model, status, time.Since(start).Seconds(),
		resp.Metadata.PromptTokens, resp.Metadata.CompletionTokens)
	if resp.Metadata.CostUSD > 0 {
		c.metrics.RecordLLMCost(c.provider.Name(), req.Model, resp.Metadata.CostUSD)
	}
}

// Name delegates to the wrapped provider.
func (c *Client) Name() string { return c.provider.Name() }

// SupportsTools delegates to the wrapped provider.
func (c *Client) SupportsTools() bool { return c.provider.SupportsTools() }
