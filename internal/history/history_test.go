package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectForLLM_SystemHeadAndOrdering(t *testing.T) {
	h := New("be helpful")
	h.AppendUser("hello")
	h.AppendAssistant(Block{Kind: BlockTextResult, Text: "hi"})

	turns := h.ProjectForLLM()
	require.Len(t, turns, 3)
	assert.Equal(t, RoleSystem, turns[0].Role)
	assert.Equal(t, RoleUser, turns[1].Role)
	assert.Equal(t, RoleAssistant, turns[2].Role)
}

func TestProjectForLLM_DropsOrphanedToolCall(t *testing.T) {
	h := New("")
	h.AppendUser("read file x")
	h.AppendAssistant(Block{Kind: BlockToolCall, ToolName: "file_read", ToolCallID: "tc1"})
	// no matching tool result ever arrives

	turns := h.ProjectForLLM()
	for _, turn := range turns {
		for _, b := range turn.Blocks {
			assert.NotEqual(t, BlockToolCall, b.Kind, "orphaned tool call must be dropped")
		}
	}
}

func TestProjectForLLM_DropsOrphanedToolResult(t *testing.T) {
	h := New("")
	h.AppendUser("hello")
	h.AppendToolResult("tc-never-called", "stray result", false)

	turns := h.ProjectForLLM()
	for _, turn := range turns {
		assert.NotEqual(t, RoleTool, turn.Role, "orphaned tool result must be dropped")
	}
}

func TestProjectForLLM_KeepsMatchedPair(t *testing.T) {
	h := New("")
	h.AppendUser("read file x")
	h.AppendAssistant(Block{Kind: BlockToolCall, ToolName: "file_read", ToolCallID: "tc1"})
	h.AppendToolResult("tc1", "contents", false)
	h.AppendAssistant(Block{Kind: BlockTextResult, Text: "done"})

	turns := h.ProjectForLLM()
	var sawCall, sawResult bool
	for _, turn := range turns {
		for _, b := range turn.Blocks {
			if b.Kind == BlockToolCall && b.ToolCallID == "tc1" {
				sawCall = true
			}
			if b.Kind == BlockToolFormattedResult && b.ToolCallID == "tc1" {
				sawResult = true
			}
		}
	}
	assert.True(t, sawCall)
	assert.True(t, sawResult)
}

func TestProjectForLLM_Idempotent(t *testing.T) {
	h := New("sys")
	h.AppendUser("hi")
	h.AppendAssistant(Block{Kind: BlockToolCall, ToolCallID: "a"})
	h.AppendToolResult("a", "ok", false)
	h.AppendAssistant(Block{Kind: BlockTextResult, Text: "done"})

	once := h.ProjectForLLM()

	h2 := New("")
	h2.turns = once
	twice := h2.ProjectForLLM()

	// Re-projecting an already-projected history (minus the synthetic
	// system turn, which New("") won't re-add) yields the same turns.
	require.Len(t, twice, len(once)-1)
}

func TestClearFromLastUser(t *testing.T) {
	h := New("")
	h.AppendUser("first")
	h.AppendAssistant(Block{Kind: BlockTextResult, Text: "reply1"})
	h.AppendUser("second")
	h.AppendAssistant(Block{Kind: BlockTextResult, Text: "reply2"})

	h.ClearFromLastUser()
	h.AppendUser("edited second")

	turns := h.Turns()
	require.Len(t, turns, 2)
	assert.Equal(t, "first", turns[0].Blocks[0].Text)
	assert.Equal(t, RoleUser, turns[1].Role)
	assert.Equal(t, "edited second", turns[1].Blocks[0].Text)
}
