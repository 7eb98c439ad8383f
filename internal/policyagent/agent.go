// Package policyagent implements the Agent (component C9): a thin policy
// with a single public operation, step(state) -> action (spec §4.9). It
// holds no long-lived state beyond the system prompt and tool
// descriptors — everything else is rebuilt from the event log on every
// call.
//
// Named policyagent rather than the spec's literal "policy/agent" path to
// avoid colliding with the unrelated tool-access policy package the
// teacher already carries at internal/tools/policy.
package policyagent

import (
	"context"
	"strings"

	"github.com/quietloop/aecore/internal/contextmgr"
	"github.com/quietloop/aecore/internal/history"
	"github.com/quietloop/aecore/internal/llm"
	"github.com/quietloop/aecore/pkg/events"
)

// Generator is the subset of *llm.Client the Agent depends on, so tests
// can substitute a fake without spinning up a real provider.
type Generator interface {
	Generate(ctx context.Context, req llm.Request) (llm.Response, error)
}

// Config configures one Agent instance.
type Config struct {
	SystemPrompt string
	Tools        []llm.ToolDescriptor
	Model        string
	MaxTokens    int
	Budget       int

	// CompletionSentinel is the exact text that, when it is the sole
	// TextResult block in a response, causes Step to return a
	// CompleteAction instead of a MessageAction (spec §4.9 step 5).
	CompletionSentinel string
}

// Agent is the thin policy of spec §4.9.
type Agent struct {
	client     Generator
	contextMgr *contextmgr.Manager
	cfg        Config
	seq        *events.Sequencer
}

// New returns an Agent. seq hands out ids for the Action it produces;
// callers own appending the result to the session's event log.
func New(client Generator, contextMgr *contextmgr.Manager, cfg Config, seq *events.Sequencer) *Agent {
	return &Agent{client: client, contextMgr: contextMgr, cfg: cfg, seq: seq}
}

// Step implements spec §4.9's five-step policy: rehydrate history, apply
// the context manager, call the LLM, and map the chosen block to an
// Action.
func (a *Agent) Step(ctx context.Context, history_ []events.Envelope) (events.Envelope, error) {
	mh := history.FromEvents(a.cfg.SystemPrompt, history_)
	turns := mh.ProjectForLLM()
	turns = a.contextMgr.Apply(ctx, turns, a.cfg.Budget)

	req := llm.Request{
		Messages:     llm.FromTurns(turns),
		MaxTokens:    a.cfg.MaxTokens,
		SystemPrompt: a.cfg.SystemPrompt,
		Tools:        a.cfg.Tools,
		Model:        a.cfg.Model,
	}

	resp, err := a.client.Generate(ctx, req)
	if err != nil {
		return nil, err
	}

	return a.chooseAction(resp), nil
}

// chooseAction implements "choose the first ToolCall if any, else the
// first TextResult" (spec §4.9 step 4/5, invariant "at most one Action
// per turn").
func (a *Agent) chooseAction(resp llm.Response) events.Envelope {
	base := events.Action{Event: events.Event{ID: a.seq.Next(), Source: events.SourceAgent, Type: events.KindToolCallAction}}

	for _, b := range resp.Blocks {
		if b.Kind == llm.BlockToolCall && b.Call != nil {
			base.Type = events.KindToolCallAction
			return events.ToolCallAction{
				Action:     base,
				ToolName:   b.Call.Name,
				ToolInput:  b.Call.Input,
				ToolCallID: b.Call.ID,
			}
		}
	}

	for _, b := range resp.Blocks {
		if b.Kind == llm.BlockTextResult {
			text := strings.TrimSpace(b.Text)
			if a.cfg.CompletionSentinel != "" && text == a.cfg.CompletionSentinel {
				base.Type = events.KindCompleteAction
				return events.CompleteAction{Action: base, FinalAnswer: text}
			}
			base.Type = events.KindMessageAction
			return events.MessageAction{Action: base, Content: b.Text}
		}
	}

	base.Type = events.KindMessageAction
	return events.MessageAction{Action: base, Content: ""}
}
