// Package history implements the append-only, LLM-facing projection of a
// session's event log (spec §4.2, component C2). The event log remains the
// source of truth; MessageHistory is rebuilt lazily from it per LLM call.
package history

// Role identifies which side of the conversation a Turn's blocks belong to
// once projected into vendor-agnostic message form.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// BlockKind discriminates the four content-block shapes spec §3.1 names.
type BlockKind string

const (
	BlockTextPrompt          BlockKind = "text_prompt"
	BlockTextResult          BlockKind = "text_result"
	BlockToolCall            BlockKind = "tool_call"
	BlockToolFormattedResult BlockKind = "tool_formatted_result"
)

// Block is one content block within a Turn. Exactly the fields relevant to
// its Kind are populated.
type Block struct {
	Kind BlockKind

	// TextPrompt / TextResult
	Text string

	// ToolCall
	ToolName   string
	ToolInput  []byte
	ToolCallID string

	// ToolFormattedResult
	Content    string
	IsError    bool
	Truncated  bool
}

// Turn is a single role+content-blocks contribution to the LLM-facing
// message list (glossary: "Turn").
type Turn struct {
	Role   Role
	Blocks []Block
}

// TextPromptTurn builds a user turn carrying a single TextPrompt block.
func TextPromptTurn(text string) Turn {
	return Turn{Role: RoleUser, Blocks: []Block{{Kind: BlockTextPrompt, Text: text}}}
}

// SystemTurn builds the single system turn placed at the head of a
// projection (spec §4.2, "emit at most one system turn at the head").
func SystemTurn(prompt string) Turn {
	return Turn{Role: RoleSystem, Blocks: []Block{{Kind: BlockTextPrompt, Text: prompt}}}
}

// ToolResultTurn builds a tool-role turn carrying a single
// ToolFormattedResult block.
func ToolResultTurn(toolCallID, content string, isError bool) Turn {
	return Turn{
		Role: RoleTool,
		Blocks: []Block{{
			Kind:       BlockToolFormattedResult,
			ToolCallID: toolCallID,
			Content:    content,
			IsError:    isError,
		}},
	}
}

// toolCallIDs returns every ToolCall block id present in the turn, in
// order, skipping blocks with an empty id.
func (t Turn) toolCallIDs() []string {
	var ids []string
	for _, b := range t.Blocks {
		if b.Kind == BlockToolCall && b.ToolCallID != "" {
			ids = append(ids, b.ToolCallID)
		}
	}
	return ids
}

// toolResultIDs returns every ToolFormattedResult block id present in the
// turn, in order, skipping blocks with an empty id.
func (t Turn) toolResultIDs() []string {
	var ids []string
	for _, b := range t.Blocks {
		if b.Kind == BlockToolFormattedResult && b.ToolCallID != "" {
			ids = append(ids, b.ToolCallID)
		}
	}
	return ids
}

// isPureProgress reports whether a turn carries no content worth sending
// to the LLM (spec §4.2, "drop any turn that is purely progress/tracing").
func (t Turn) isPureProgress() bool {
	if len(t.Blocks) == 0 {
		return true
	}
	for _, b := range t.Blocks {
		switch b.Kind {
		case BlockTextPrompt, BlockTextResult:
			if b.Text != "" {
				return false
			}
		case BlockToolCall, BlockToolFormattedResult:
			return false
		}
	}
	return true
}
