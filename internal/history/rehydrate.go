package history

import "github.com/quietloop/aecore/pkg/events"

// FromEvents rebuilds a MessageHistory from a session's durable event log
// (spec §4.9 step 1: "build LLM messages from state.history by rehydrating
// ToolCall/ToolResult pairs"). The event log remains authoritative; this
// runs once per agent step, not on every append.
func FromEvents(systemPrompt string, evs []events.Envelope) *MessageHistory {
	h := New(systemPrompt)

	for _, e := range evs {
		switch v := e.(type) {
		case events.UserMessageObservation:
			h.AppendUser(v.Content, v.Files...)
		case events.MessageAction:
			h.AppendAssistant(Block{Kind: BlockTextResult, Text: v.Content})
		case events.SystemMessageAction:
			// carried by MessageHistory.systemPrompt, not re-appended.
		case events.CompleteAction:
			h.AppendAssistant(Block{Kind: BlockTextResult, Text: v.FinalAnswer})
		case events.Runnable:
			h.AppendAssistant(Block{
				Kind:       BlockToolCall,
				ToolName:   v.CallName(),
				ToolInput:  v.CallInput(),
				ToolCallID: v.CallID(),
			})
		case events.ToolResultObservation:
			content := v.Content
			if !v.Success && v.ErrorMessage != "" {
				content = v.ErrorMessage
			}
			h.AppendToolResult(v.ToolCallID, content, !v.Success)
		}
	}

	return h
}
