package events

// ToolCallMetadata links a ToolCallAction (and its eventual
// ToolResultObservation) back to the LLM response it was extracted from,
// per spec §3.1. FunctionName and ToolCallID are duplicated from the
// owning action/observation for convenience when metadata is logged or
// persisted independently of its parent event.
type ToolCallMetadata struct {
	FunctionName string `json:"function_name"`
	ToolCallID   string `json:"tool_call_id"`

	// ModelResponseID is the id the LLM vendor assigned to the completion
	// that produced this tool call, for correlating with provider-side logs.
	ModelResponseID string `json:"model_response_id,omitempty"`

	// Usage, when the provider reports it, lets callers attribute cost and
	// latency to the turn that produced this call.
	Usage *UsageMetrics `json:"usage,omitempty"`
}

// UsageMetrics captures the optional per-call accounting data spec §3.1
// allows ToolCallMetadata to carry.
type UsageMetrics struct {
	PromptTokens     int     `json:"prompt_tokens,omitempty"`
	CompletionTokens int     `json:"completion_tokens,omitempty"`
	CostUSD          float64 `json:"cost_usd,omitempty"`
	LatencyMS        int64   `json:"latency_ms,omitempty"`
}
