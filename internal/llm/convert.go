package llm

import "github.com/quietloop/aecore/internal/history"

// FromTurns converts a projected, budget-fit turn list into the
// vendor-agnostic Message list generate() consumes (spec §4.9 step 1/2).
// The system turn, if present, is folded into req.SystemPrompt by the
// caller rather than sent as a Message — vendors that accept a dedicated
// system field (all three adapters in this package) expect it there.
func FromTurns(turns []history.Turn) []Message {
	out := make([]Message, 0, len(turns))
	for _, t := range turns {
		if t.Role == history.RoleSystem {
			continue
		}
		out = append(out, fromTurn(t))
	}
	return out
}

func fromTurn(t history.Turn) Message {
	msg := Message{Role: string(t.Role)}
	for _, b := range t.Blocks {
		switch b.Kind {
		case history.BlockTextPrompt, history.BlockTextResult:
			if msg.Content != "" {
				msg.Content += "\n"
			}
			msg.Content += b.Text
		case history.BlockToolCall:
			msg.ToolCalls = append(msg.ToolCalls, ToolCall{ID: b.ToolCallID, Name: b.ToolName, Input: b.ToolInput})
		case history.BlockToolFormattedResult:
			msg.ToolResults = append(msg.ToolResults, ToolResult{ToolCallID: b.ToolCallID, Content: b.Content, IsError: b.IsError})
		}
	}
	return msg
}

// SystemPromptFromTurns extracts the leading system turn's text, if any.
func SystemPromptFromTurns(turns []history.Turn) string {
	if len(turns) == 0 || turns[0].Role != history.RoleSystem {
		return ""
	}
	for _, b := range turns[0].Blocks {
		if b.Kind == history.BlockTextPrompt {
			return b.Text
		}
	}
	return ""
}
