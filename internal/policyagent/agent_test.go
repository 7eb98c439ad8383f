package policyagent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quietloop/aecore/internal/contextmgr"
	"github.com/quietloop/aecore/internal/llm"
	"github.com/quietloop/aecore/pkg/events"
)

type stubCounter struct{}

func (stubCounter) CountTurn(t interface{ CountTurn() }) int { return 0 }

// charCounter satisfies contextmgr.Counter with a trivial 1-token-per-char
// rule, enough to keep Apply's budget checks a no-op for these tests.
type charCounter struct{}

func (charCounter) CountTurn(t interface{}) int { return 0 }

type fakeGenerator struct {
	resp llm.Response
	err  error
}

func (f fakeGenerator) Generate(_ context.Context, _ llm.Request) (llm.Response, error) {
	return f.resp, f.err
}

func newTestAgent(t *testing.T, gen Generator, sentinel string) *Agent {
	t.Helper()
	cm := contextmgr.New(trivialCounter{}, nil, 10)
	return New(gen, cm, Config{SystemPrompt: "be helpful", Budget: 1_000_000, CompletionSentinel: sentinel}, events.NewSequencer())
}

type trivialCounter struct{}

func (trivialCounter) CountTurn(t interface{ Role() }) int { return 0 }

func TestAgent_Step_ToolCallWins(t *testing.T) {
	gen := fakeGenerator{resp: llm.Response{Blocks: []llm.Block{
		{Kind: llm.BlockTextResult, Text: "thinking..."},
		{Kind: llm.BlockToolCall, Call: &llm.ToolCall{ID: "c1", Name: "echo", Input: []byte(`{}`)}},
	}}}
	a := newTestAgent(t, gen, "")

	action, err := a.Step(context.Background(), nil)
	require.NoError(t, err)

	call, ok := action.(events.ToolCallAction)
	require.True(t, ok)
	assert.Equal(t, "echo", call.ToolName)
	assert.Equal(t, "c1", call.ToolCallID)
}

func TestAgent_Step_TextBecomesMessage(t *testing.T) {
	gen := fakeGenerator{resp: llm.Response{Blocks: []llm.Block{{Kind: llm.BlockTextResult, Text: "hi there"}}}}
	a := newTestAgent(t, gen, "")

	action, err := a.Step(context.Background(), nil)
	require.NoError(t, err)

	msg, ok := action.(events.MessageAction)
	require.True(t, ok)
	assert.Equal(t, "hi there", msg.Content)
}

func TestAgent_Step_SentinelBecomesComplete(t *testing.T) {
	gen := fakeGenerator{resp: llm.Response{Blocks: []llm.Block{{Kind: llm.BlockTextResult, Text: "DONE"}}}}
	a := newTestAgent(t, gen, "DONE")

	action, err := a.Step(context.Background(), nil)
	require.NoError(t, err)

	complete, ok := action.(events.CompleteAction)
	require.True(t, ok)
	assert.Equal(t, "DONE", complete.FinalAnswer)
}

func TestAgent_Step_PropagatesGenerateError(t *testing.T) {
	gen := fakeGenerator{err: assert.AnError}
	a := newTestAgent(t, gen, "")

	_, err := a.Step(context.Background(), nil)
	assert.Error(t, err)
}
