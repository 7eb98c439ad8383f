package toolmanager

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.opentelemetry.io/otel/trace"

	"github.com/quietloop/aecore/internal/observability"
	"github.com/quietloop/aecore/pkg/events"
)

// MaxToolOutputChars caps a tool's output (spec §4.6 default 30,000);
// overflow is truncated from the middle, preserving the first and last
// halves, with a marker noting how much was dropped.
const MaxToolOutputChars = 30000

// Completion tool names the controller must recognize specially (spec
// §4.6).
const (
	ToolComplete            = "complete"
	ToolReturnControlToUser = "return_control_to_user"
	ToolMessageUser         = "message_user"

	// ToolReturnControlToGeneralAgent is the reviewer sub-loop's dedicated
	// completion tool (spec §4.10): its argument is the review feedback
	// that replaces the main loop's final answer.
	ToolReturnControlToGeneralAgent = "return_control_to_general_agent"
)

// Manager implements spec §4.6's tool manager: it owns the
// tool_name -> Tool mapping, validates and dispatches ToolCallActions, and
// tracks completion state.
type Manager struct {
	registry *Registry
	rc       RunContext
	tracer   *observability.Tracer
	metrics  *observability.Metrics

	mu          sync.Mutex
	stopped     bool
	finalAnswer string
}

// New returns a Manager dispatching through registry.
func New(registry *Registry) *Manager {
	return &Manager{registry: registry}
}

// WithRunContext sets the session id and workspace root threaded through to
// every Tool.Run call (spec §9). Returns m for chaining at construction
// time.
func (m *Manager) WithRunContext(rc RunContext) *Manager {
	m.rc = rc
	return m
}

// WithTracer attaches an OpenTelemetry tracer; every dispatched tool call
// is wrapped in a span named for the tool.
func (m *Manager) WithTracer(t *observability.Tracer) *Manager {
	m.tracer = t
	return m
}

// WithMetrics attaches a Prometheus metrics recorder; every dispatched tool
// call records its outcome and latency under ToolExecutionCounter and
// ToolExecutionDuration.
func (m *Manager) WithMetrics(metrics *observability.Metrics) *Manager {
	m.metrics = metrics
	return m
}

// Tools returns the schema list passed to the LLM client.
func (m *Manager) Tools() []Descriptor {
	return m.registry.Descriptors()
}

// ShouldStop reports whether a completion tool has been invoked (spec
// §4.6).
func (m *Manager) ShouldStop() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopped
}

// FinalAnswer returns the argument of the completion tool once
// ShouldStop() is true.
func (m *Manager) FinalAnswer() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.finalAnswer
}

// Reset clears completion state, letting the same Manager (and its
// registry) back a second, independent pass of the core loop — spec
// §4.10's reviewer sub-loop reuses the main loop's tool manager after the
// main loop has already called a completion tool once.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = false
	m.finalAnswer = ""
}

// HandleAction is the sole dispatch path (spec §4.6): it validates the
// tool name and input, invokes the tool, and always returns an
// Observation — tool errors never propagate past this boundary (spec §7,
// "the agent must see every tool error as an Observation").
func (m *Manager) HandleAction(ctx context.Context, action events.Runnable) events.ToolResultObservation {
	base := action.Base()
	name := action.CallName()
	callID := action.CallID()

	// message_user is ordinarily intercepted by the controller before an
	// action ever reaches HandleAction (spec §4.6); messageUserTool above
	// still backs it as a real registered tool so a direct dispatch (or a
	// caller that bypasses the controller) gets a correct Observation
	// instead of a dead branch.

	if len(name) > MaxToolNameLength {
		return m.failure(base.ID, callID, name, "UnknownTool", "tool name exceeds maximum length")
	}

	tool, ok := m.registry.Get(name)
	if !ok {
		return m.failure(base.ID, callID, name, "UnknownTool", "tool not found: "+name)
	}

	input := action.CallInput()
	if len(input) > MaxToolInputBytes {
		return m.failure(base.ID, callID, name, "InvalidInput", "tool input exceeds maximum size")
	}

	if err := validateInput(tool.InputSchema(), input); err != nil {
		return m.failure(base.ID, callID, name, "InvalidInput", err.Error())
	}

	var span trace.Span
	if m.tracer != nil {
		ctx, span = m.tracer.TraceToolExecution(ctx, name)
	}
	start := time.Now()
	out, err := tool.Run(ctx, input, m.rc)
	duration := time.Since(start).Seconds()
	if span != nil {
		if err != nil {
			m.tracer.RecordError(span, err)
		}
		span.End()
	}
	if m.metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		m.metrics.RecordToolExecution(name, status, duration)
	}
	if err != nil {
		return m.failure(base.ID, callID, name, "ToolExecution", err.Error())
	}

	if name == ToolComplete || name == ToolReturnControlToUser || name == ToolReturnControlToGeneralAgent {
		m.mu.Lock()
		m.stopped = true
		m.finalAnswer = out.Content
		m.mu.Unlock()
	}

	return m.success(base.ID, callID, name, out.Content)
}

func (m *Manager) success(causeID int64, callID, toolName, content string) events.ToolResultObservation {
	capped, truncated := capOutput(content)
	return events.ToolResultObservation{
		Observation: events.Observation{
			Event:   events.Event{Source: events.SourceEnvironment, Type: events.KindToolResultObservation},
			Content: capped,
			Cause:   causeID,
		},
		Success:    true,
		ToolName:   toolName,
		ToolCallID: callID,
		Truncated:  truncated,
	}
}

func (m *Manager) failure(causeID int64, callID, toolName, kind, message string) events.ToolResultObservation {
	return events.ToolResultObservation{
		Observation: events.Observation{
			Event:   events.Event{Source: events.SourceEnvironment, Type: events.KindToolResultObservation},
			Content: message,
			Cause:   causeID,
		},
		Success:      false,
		ToolName:     toolName,
		ToolCallID:   callID,
		ErrorMessage: kind + ": " + message,
	}
}

// capOutput truncates content from the middle when it exceeds
// MaxToolOutputChars, preserving the first and last halves (spec §4.6).
func capOutput(content string) (string, bool) {
	if len(content) <= MaxToolOutputChars {
		return content, false
	}
	half := MaxToolOutputChars / 2
	marker := "\n...[truncated " + strconv.Itoa(len(content)-MaxToolOutputChars) + " chars]...\n"
	return content[:half] + marker + content[len(content)-half:], true
}

// validateInput validates input against schema using JSON-Schema. An empty
// schema is treated as "no constraints."
func validateInput(schema, input json.RawMessage) error {
	if len(schema) == 0 {
		return nil
	}

	compiler := jsonschema.NewCompiler()
	const resourceName = "tool-input-schema.json"
	if err := compiler.AddResource(resourceName, strings.NewReader(string(schema))); err != nil {
		return err
	}
	compiled, err := compiler.Compile(resourceName)
	if err != nil {
		return err
	}

	var instance any
	if len(input) > 0 {
		if err := json.Unmarshal(input, &instance); err != nil {
			return err
		}
	} else {
		instance = map[string]any{}
	}

	return compiled.Validate(instance)
}
