// Package observability provides monitoring and debugging capabilities for
// the agent execution core through metrics, structured logging, and
// distributed tracing.
//
// # Overview
//
// The observability package implements the three pillars of observability:
//
//  1. Metrics - Quantitative measurements using Prometheus
//  2. Logging - Structured logs with sensitive data redaction
//  3. Tracing - Distributed request tracing with OpenTelemetry
//
// # Metrics
//
// Metrics are implemented using Prometheus client libraries and track LLM
// request latency, token usage, cost, and tool execution performance.
//
// Example usage:
//
//	metrics := observability.NewMetrics()
//
//	// Track LLM requests
//	start := time.Now()
//	// ... make LLM request ...
//	metrics.RecordLLMRequest("anthropic", "claude-3-opus", "success",
//	    time.Since(start).Seconds(), promptTokens, completionTokens)
//	metrics.RecordLLMCost("anthropic", "claude-3-opus", 0.015)
//
//	// Track tool execution
//	start = time.Now()
//	// ... execute tool ...
//	metrics.RecordToolExecution("file_read", "success", time.Since(start).Seconds())
//
// # Logging
//
// Logging is built on Go's slog package with enhancements for:
//   - Automatic request/session ID correlation from context
//   - Sensitive data redaction (API keys, passwords, tokens)
//   - JSON output for production, text for development
//   - Configurable log levels
//
// Example usage:
//
//	logger := observability.NewLogger(observability.LogConfig{
//	    Level:     "info",
//	    Format:    "json",
//	    AddSource: true,
//	})
//
//	ctx = observability.AddSessionID(ctx, sessionID)
//
//	logger.Info(ctx, "controller state transition", "from", "THINKING", "to", "ACTING")
//
//	// Error logging with automatic redaction
//	logger.Error(ctx, "LLM request failed",
//	    "error", err,
//	    "provider", "anthropic",
//	    "api_key", apiKey, // Automatically redacted
//	)
//
// # Tracing
//
// Distributed tracing uses OpenTelemetry to track requests across the
// controller's drive loop:
//   - End-to-end turn visualization
//   - LLM and tool call latency breakdowns
//   - Error correlation across spans
//
// Example usage:
//
//	tracer, shutdown := observability.NewTracer(observability.TraceConfig{
//	    ServiceName: "aecore",
//	    Endpoint:    "localhost:4317", // OTLP collector
//	    SamplingRate: 0.1,             // Sample 10% of traces
//	})
//	defer shutdown(context.Background())
//
//	ctx, llmSpan := tracer.TraceLLMRequest(ctx, "anthropic", "claude-3-opus")
//	defer llmSpan.End()
//	if err != nil {
//	    tracer.RecordError(llmSpan, err)
//	}
//
//	ctx, toolSpan := tracer.TraceToolExecution(ctx, "file_read")
//	defer toolSpan.End()
//
// # Security Considerations
//
// The logging component automatically redacts:
//   - API keys (Anthropic, OpenAI, generic)
//   - Passwords and secrets
//   - JWT tokens
//   - Bearer tokens
//   - Custom patterns via configuration
//
// Sensitive fields in maps are also redacted:
//   - password, passwd, pwd
//   - secret, api_key, apikey
//   - token, auth, authorization
//   - private_key, privatekey
//
// # Monitoring Dashboard
//
// The metrics exposed can be used to build dashboards:
//
//	# LLM request latency (95th percentile)
//	histogram_quantile(0.95, rate(aecore_llm_request_duration_seconds_bucket[5m]))
//
//	# LLM cost rate
//	rate(aecore_llm_cost_usd_total[1h])
//
//	# Tool execution time
//	rate(aecore_tool_execution_duration_seconds_sum[5m]) /
//	rate(aecore_tool_execution_duration_seconds_count[5m])
//
//	# Tool error rate
//	rate(aecore_tool_executions_total{status="error"}[5m])
package observability
