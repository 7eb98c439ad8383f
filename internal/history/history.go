package history

// MessageHistory is the append-only log of LLM-formatted turns backing one
// session's LLM calls. It is rebuilt, not authoritative: the event log
// (pkg/events) remains the source of truth, but a MessageHistory lets the
// controller and context manager work in vendor-agnostic turn form without
// re-deriving it from scratch for every operation.
type MessageHistory struct {
	systemPrompt string
	turns        []Turn
}

// New returns an empty MessageHistory that will prepend systemPrompt as a
// single system turn on every projection.
func New(systemPrompt string) *MessageHistory {
	return &MessageHistory{systemPrompt: systemPrompt}
}

// AppendUser appends a user turn carrying a TextPrompt block and, if given,
// a set of file references folded into the same block's text.
func (h *MessageHistory) AppendUser(text string, files ...string) {
	blk := Block{Kind: BlockTextPrompt, Text: text}
	h.turns = append(h.turns, Turn{Role: RoleUser, Blocks: []Block{blk}})
	_ = files // file references are carried by the caller's Action, not re-serialized here
}

// AppendAssistant appends an assistant turn of one or more blocks (a
// TextResult, one or more ToolCalls, or a mix of both per spec §4.5 "if the
// vendor advertises both text and tool calls in the same response").
func (h *MessageHistory) AppendAssistant(blocks ...Block) {
	h.turns = append(h.turns, Turn{Role: RoleAssistant, Blocks: blocks})
}

// AppendToolResult appends a tool-role turn reporting the outcome of one
// tool call.
func (h *MessageHistory) AppendToolResult(toolCallID, content string, isError bool) {
	h.turns = append(h.turns, ToolResultTurn(toolCallID, content, isError))
}

// Clear discards all turns.
func (h *MessageHistory) Clear() {
	h.turns = nil
}

// ClearFromLastUser discards history from (and including) the most recent
// user turn, used when the controller handles an in-flight query edit
// (spec §4.7, "truncates the history back to ... the most recent prior
// user turn").
func (h *MessageHistory) ClearFromLastUser() {
	for i := len(h.turns) - 1; i >= 0; i-- {
		if h.turns[i].Role == RoleUser {
			h.turns = h.turns[:i]
			return
		}
	}
}

// Turns returns a defensive copy of the raw, unprojected turn list.
func (h *MessageHistory) Turns() []Turn {
	out := make([]Turn, len(h.turns))
	copy(out, h.turns)
	return out
}

// ProjectForLLM returns the filtered, vendor-agnostic message list per the
// projection rules of spec §4.2:
//   - drop turns carrying no content worth sending,
//   - drop orphaned ToolCalls/ToolFormattedResults,
//   - insert blank spacing between two consecutive user turns,
//   - prepend exactly one system turn authored from the configured prompt.
func (h *MessageHistory) ProjectForLLM() []Turn {
	filtered := dropOrphans(h.turns)

	out := make([]Turn, 0, len(filtered)+2)
	if h.systemPrompt != "" {
		out = append(out, SystemTurn(h.systemPrompt))
	}

	prevWasUser := false
	for _, t := range filtered {
		if t.isPureProgress() {
			continue
		}
		if t.Role == RoleUser && prevWasUser {
			out = append(out, Turn{Role: RoleUser, Blocks: []Block{{Kind: BlockTextPrompt, Text: ""}}})
		}
		out = append(out, t)
		prevWasUser = t.Role == RoleUser
	}
	return out
}

// dropOrphans removes ToolCall blocks with no matching ToolFormattedResult
// and ToolFormattedResult blocks with no matching ToolCall, mirroring the
// pending-id bookkeeping the teacher's repairTranscript performs over its
// own message representation: an assistant turn's tool-call ids become
// "pending" until the next tool-role turn clears them, and any id left
// pending when a new assistant turn begins is dropped as orphaned.
func dropOrphans(turns []Turn) []Turn {
	pending := make(map[string]struct{})
	out := make([]Turn, 0, len(turns))

	for _, t := range turns {
		switch t.Role {
		case RoleAssistant:
			for k := range pending {
				delete(pending, k)
			}
			kept := make([]Block, 0, len(t.Blocks))
			for _, b := range t.Blocks {
				if b.Kind == BlockToolCall {
					if b.ToolCallID == "" {
						continue
					}
					pending[b.ToolCallID] = struct{}{}
				}
				kept = append(kept, b)
			}
			out = append(out, Turn{Role: t.Role, Blocks: kept})
		case RoleTool:
			kept := make([]Block, 0, len(t.Blocks))
			for _, b := range t.Blocks {
				if b.Kind != BlockToolFormattedResult || b.ToolCallID == "" {
					continue
				}
				if _, ok := pending[b.ToolCallID]; !ok {
					continue
				}
				delete(pending, b.ToolCallID)
				kept = append(kept, b)
			}
			if len(kept) == 0 {
				continue
			}
			out = append(out, Turn{Role: t.Role, Blocks: kept})
		default:
			out = append(out, t)
		}
	}

	return stripDanglingToolCalls(out)
}

// stripDanglingToolCalls removes ToolCall blocks left pending at the end of
// the turn list (no later tool-role turn ever resolved them), and drops
// the resulting turn entirely if it becomes empty, matching invariant 3
// (spec §3.2): no assistant turn is left ending in an unresolved ToolCall
// unless a matching result exists somewhere after it.
func stripDanglingToolCalls(turns []Turn) []Turn {
	resolved := make(map[string]struct{})
	for _, t := range turns {
		if t.Role != RoleTool {
			continue
		}
		for _, b := range t.Blocks {
			if b.Kind == BlockToolFormattedResult {
				resolved[b.ToolCallID] = struct{}{}
			}
		}
	}

	out := make([]Turn, 0, len(turns))
	for _, t := range turns {
		if t.Role != RoleAssistant {
			out = append(out, t)
			continue
		}
		kept := make([]Block, 0, len(t.Blocks))
		for _, b := range t.Blocks {
			if b.Kind == BlockToolCall {
				if _, ok := resolved[b.ToolCallID]; !ok {
					continue
				}
			}
			kept = append(kept, b)
		}
		if len(kept) == 0 {
			continue
		}
		out = append(out, Turn{Role: t.Role, Blocks: kept})
	}
	return out
}
