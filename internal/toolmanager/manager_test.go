package toolmanager

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quietloop/aecore/internal/observability"
	"github.com/quietloop/aecore/pkg/events"
)

// newTestMetrics builds a Metrics backed by an isolated Prometheus registry,
// so tests can assert on recorded values without colliding with
// observability.NewMetrics()'s global-registry registration.
func newTestMetrics(reg *prometheus.Registry) *observability.Metrics {
	factory := promauto.With(reg)
	return &observability.Metrics{
		LLMRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{Name: "test_llm_request_duration_seconds"}, []string{"provider", "model"}),
		LLMRequestCounter:  factory.NewCounterVec(prometheus.CounterOpts{Name: "test_llm_requests_total"}, []string{"provider", "model", "status"}),
		LLMTokensUsed:      factory.NewCounterVec(prometheus.CounterOpts{Name: "test_llm_tokens_total"}, []string{"provider", "model", "type"}),
		LLMCostUSD:         factory.NewCounterVec(prometheus.CounterOpts{Name: "test_llm_cost_usd_total"}, []string{"provider", "model"}),
		ToolExecutionCounter: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "test_tool_executions_total",
		}, []string{"tool_name", "status"}),
		ToolExecutionDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name: "test_tool_execution_duration_seconds",
		}, []string{"tool_name"}),
	}
}

type stubTool struct {
	name   string
	schema json.RawMessage
	out    Output
	err    error
}

func (s stubTool) Name() string                 { return s.name }
func (s stubTool) Description() string          { return "stub" }
func (s stubTool) InputSchema() json.RawMessage { return s.schema }
func (s stubTool) Run(_ context.Context, _ json.RawMessage, _ RunContext) (Output, error) {
	return s.out, s.err
}

func callAction(name string, input string, callID string) events.ToolCallAction {
	return events.ToolCallAction{
		Action:     events.Action{Event: events.Event{ID: 1, Source: events.SourceAgent, Type: events.KindToolCallAction}},
		ToolName:   name,
		ToolInput:  json.RawMessage(input),
		ToolCallID: callID,
	}
}

func TestHandleAction_UnknownTool(t *testing.T) {
	m := New(NewRegistry())
	obs := m.HandleAction(context.Background(), callAction("nope", "{}", "c1"))

	assert.False(t, obs.Success)
	assert.Contains(t, obs.ErrorMessage, "UnknownTool")
	assert.Equal(t, "c1", obs.ToolCallID)
}

func TestHandleAction_InvalidInput(t *testing.T) {
	reg := NewRegistry()
	reg.Register(stubTool{
		name:   "echo",
		schema: json.RawMessage(`{"type":"object","required":["text"],"properties":{"text":{"type":"string"}}}`),
	})
	m := New(reg)

	obs := m.HandleAction(context.Background(), callAction("echo", `{}`, "c1"))

	assert.False(t, obs.Success)
	assert.Contains(t, obs.ErrorMessage, "InvalidInput")
}

func TestHandleAction_Success(t *testing.T) {
	reg := NewRegistry()
	reg.Register(stubTool{
		name:   "echo",
		schema: json.RawMessage(`{"type":"object","properties":{"text":{"type":"string"}}}`),
		out:    Output{Content: "hello back"},
	})
	m := New(reg)

	obs := m.HandleAction(context.Background(), callAction("echo", `{"text":"hi"}`, "c1"))

	require.True(t, obs.Success)
	assert.Equal(t, "hello back", obs.Content)
	assert.Equal(t, "echo", obs.ToolName)
}

func TestHandleAction_ToolError(t *testing.T) {
	reg := NewRegistry()
	reg.Register(stubTool{name: "boom", err: errors.New("kaboom")})
	m := New(reg)

	obs := m.HandleAction(context.Background(), callAction("boom", `{}`, "c1"))

	assert.False(t, obs.Success)
	assert.Contains(t, obs.ErrorMessage, "kaboom")
}

func TestHandleAction_CompleteSetsStop(t *testing.T) {
	reg := NewRegistry()
	reg.Register(stubTool{name: ToolComplete, out: Output{Content: "done"}})
	m := New(reg)

	assert.False(t, m.ShouldStop())
	m.HandleAction(context.Background(), callAction(ToolComplete, `{}`, "c1"))

	assert.True(t, m.ShouldStop())
	assert.Equal(t, "done", m.FinalAnswer())
}

func TestHandleAction_RecordsToolExecutionMetric(t *testing.T) {
	reg := NewRegistry()
	reg.Register(stubTool{
		name:   "echo",
		schema: json.RawMessage(`{"type":"object","properties":{"text":{"type":"string"}}}`),
		out:    Output{Content: "hello back"},
	})
	reg.Register(stubTool{name: "boom", err: errors.New("kaboom")})

	promReg := prometheus.NewRegistry()
	metrics := newTestMetrics(promReg)
	m := New(reg).WithMetrics(metrics)

	m.HandleAction(context.Background(), callAction("echo", `{"text":"hi"}`, "c1"))
	m.HandleAction(context.Background(), callAction("boom", `{}`, "c2"))

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.ToolExecutionCounter.WithLabelValues("echo", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.ToolExecutionCounter.WithLabelValues("boom", "error")))
	assert.Equal(t, 2, testutil.CollectAndCount(metrics.ToolExecutionDuration, "test_tool_execution_duration_seconds"))
}

func TestCapOutput_TruncatesMiddle(t *testing.T) {
	content := strings.Repeat("a", MaxToolOutputChars+100)
	capped, truncated := capOutput(content)

	assert.True(t, truncated)
	assert.Less(t, len(capped), len(content))
	assert.Contains(t, capped, "truncated")
}

func TestCapOutput_NoopUnderLimit(t *testing.T) {
	capped, truncated := capOutput("short")
	assert.False(t, truncated)
	assert.Equal(t, "short", capped)
}
