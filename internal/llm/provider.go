// Package llm implements the LLM client abstraction (component C5): a
// single vendor-agnostic generate operation, response normalization, and
// retry with jittered exponential backoff (spec §4.5).
package llm

import (
	"context"
	"encoding/json"
)

// Message is one vendor-agnostic conversation entry sent to generate.
// Role is "system", "user", "assistant", or "tool".
type Message struct {
	Role        string
	Content     string
	ToolCalls   []ToolCall
	ToolResults []ToolResult
}

// ToolCall is a tool invocation request surfaced by an assistant message.
type ToolCall struct {
	ID    string
	Name  string
	Input json.RawMessage
}

// ToolResult is a tool invocation's outcome attached to a "tool" message.
type ToolResult struct {
	ToolCallID string
	Content    string
	IsError    bool
}

// ToolDescriptor is a tool's schema as sent to the vendor (spec §6.1, §4.5
// "tool descriptors are sent with parameters marked strict: true where the
// vendor supports it").
type ToolDescriptor struct {
	Name        string
	Description string
	InputSchema json.RawMessage
	Strict      bool
}

// BlockKind discriminates the two shapes a generate response block can take
// (spec §4.5: "blocks: a list of TextResult and ToolCall values").
type BlockKind string

const (
	BlockTextResult BlockKind = "text_result"
	BlockToolCall   BlockKind = "tool_call"
)

// Block is one normalized response block.
type Block struct {
	Kind BlockKind
	Text string
	Call *ToolCall
}

// Metadata is the minimum accounting data every generate call returns,
// per spec §4.5.
type Metadata struct {
	PromptTokens     int
	CompletionTokens int
	CostUSD          float64
	LatencyMS        int64
}

// Request bundles the parameters spec §4.5 names for generate:
// "generate(messages, max_tokens, system_prompt, tools, tool_choice,
// temperature)".
type Request struct {
	Messages     []Message
	MaxTokens    int
	SystemPrompt string
	Tools        []ToolDescriptor
	ToolChoice   string
	Temperature  float64
	Model        string
}

// Response is generate's return value: blocks plus metadata.
type Response struct {
	Blocks   []Block
	Metadata Metadata
}

// Provider is the single operation every LLM vendor adapter implements.
// Implementations must be safe for concurrent use: spec §5 states "the
// client itself is thread-safe and may be shared across sessions."
type Provider interface {
	// Generate performs one completion call and returns the normalized
	// response, or an *Error classified per the error-kind table in
	// spec §7.
	Generate(ctx context.Context, req Request) (Response, error)

	// Name identifies the provider for logging and model routing.
	Name() string

	// SupportsTools reports whether this provider can accept ToolDescriptors.
	SupportsTools() bool
}
