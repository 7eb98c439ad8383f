package controller

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quietloop/aecore/internal/toolmanager"
	"github.com/quietloop/aecore/pkg/events"
)

// scriptedPolicy returns one action per call to Step, in order, so tests
// can script an exact LLM-driven conversation.
type scriptedPolicy struct {
	seq     *events.Sequencer
	actions []func(id int64) events.Envelope
	calls   int
}

func (p *scriptedPolicy) Step(_ context.Context, _ []events.Envelope) (events.Envelope, error) {
	if p.calls >= len(p.actions) {
		p.calls++
		return events.MessageAction{Action: events.Action{Event: events.Event{ID: p.seq.Next(), Source: events.SourceAgent, Type: events.KindMessageAction}}}, nil
	}
	fn := p.actions[p.calls]
	p.calls++
	return fn(p.seq.Next()), nil
}

// fakeTools is a ToolDispatcher stub scripted per tool_call_id.
type fakeTools struct {
	results     map[string]events.ToolResultObservation
	stopAfter   string // tool_call_id after which ShouldStop reports true
	stopped     bool
	finalAnswer string
}

func (f *fakeTools) HandleAction(_ context.Context, action events.Runnable) events.ToolResultObservation {
	obs := f.results[action.CallID()]
	if action.CallID() == f.stopAfter {
		f.stopped = true
		f.finalAnswer = obs.Content
	}
	return obs
}

func (f *fakeTools) ShouldStop() bool      { return f.stopped }
func (f *fakeTools) FinalAnswer() string   { return f.finalAnswer }

type recordingSink struct {
	events []events.Envelope
}

func (s *recordingSink) Publish(e events.Envelope) { s.events = append(s.events, e) }

func messageAction(id int64, text string) events.Envelope {
	return events.MessageAction{
		Action:  events.Action{Event: events.Event{ID: id, Source: events.SourceAgent, Type: events.KindMessageAction}},
		Content: text,
	}
}

func completeAction(id int64, text string) events.Envelope {
	return events.CompleteAction{
		Action:      events.Action{Event: events.Event{ID: id, Source: events.SourceAgent, Type: events.KindCompleteAction}},
		FinalAnswer: text,
	}
}

func toolCallAction(id int64, name, callID string) events.Envelope {
	return events.ToolCallAction{
		Action:     events.Action{Event: events.Event{ID: id, Source: events.SourceAgent, Type: events.KindToolCallAction}},
		ToolName:   name,
		ToolCallID: callID,
	}
}

// S1: user says "hello"; LLM returns a single TextResult "hi"; expect one
// MessageAction, one CompleteAction, final answer "hi", state COMPLETED,
// event log length 3 (UserMessage, Message, Complete).
func TestController_S1_NoOp(t *testing.T) {
	seq := events.NewSequencer()
	policy := &scriptedPolicy{seq: seq, actions: []func(int64) events.Envelope{
		func(id int64) events.Envelope { return messageAction(id, "hi") },
		func(id int64) events.Envelope { return completeAction(id, "hi") },
	}}
	tools := &fakeTools{results: map[string]events.ToolResultObservation{}}
	sink := &recordingSink{}
	c := New("s1", seq, policy, tools, sink, Config{MaxTurns: 10})

	answer, err := c.Run(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "hi", answer)
	assert.Equal(t, StateCompleted, c.State())
	assert.Len(t, c.History(), 3)
}

// S2: single tool call round-trips through the tool manager with a
// matching tool_call_id before the agent completes.
func TestController_S2_SingleToolCall(t *testing.T) {
	seq := events.NewSequencer()
	policy := &scriptedPolicy{seq: seq, actions: []func(int64) events.Envelope{
		func(id int64) events.Envelope { return toolCallAction(id, "file_read", "call-1") },
		func(id int64) events.Envelope { return messageAction(id, "done") },
		func(id int64) events.Envelope { return completeAction(id, "done") },
	}}
	tools := &fakeTools{results: map[string]events.ToolResultObservation{
		"call-1": {
			Observation: events.Observation{Content: "contents"},
			Success:     true,
			ToolName:    "file_read",
			ToolCallID:  "call-1",
		},
	}}
	sink := &recordingSink{}
	c := New("s2", seq, policy, tools, sink, Config{MaxTurns: 10})

	answer, err := c.Run(context.Background(), "read file x")
	require.NoError(t, err)
	assert.Equal(t, "done", answer)

	hist := c.History()
	require.Len(t, hist, 5) // UserMessage, ToolCall, ToolResult, Message, Complete

	call, ok := hist[1].(events.ToolCallAction)
	require.True(t, ok)
	result, ok := hist[2].(events.ToolResultObservation)
	require.True(t, ok)
	assert.Equal(t, call.ToolCallID, result.ToolCallID)
	assert.True(t, result.Success)
	assert.Equal(t, "contents", result.Content)
}

// S3: first tool call fails, second succeeds; both remain in the log and
// the session still completes.
func TestController_S3_ToolErrorThenRetry(t *testing.T) {
	seq := events.NewSequencer()
	policy := &scriptedPolicy{seq: seq, actions: []func(int64) events.Envelope{
		func(id int64) events.Envelope { return toolCallAction(id, "cmd_run", "call-1") },
		func(id int64) events.Envelope { return toolCallAction(id, "cmd_run", "call-2") },
		func(id int64) events.Envelope { return completeAction(id, "ok") },
	}}
	tools := &fakeTools{results: map[string]events.ToolResultObservation{
		"call-1": {
			Observation:  events.Observation{Content: "banned"},
			Success:      false,
			ToolName:     "cmd_run",
			ToolCallID:   "call-1",
			ErrorMessage: "banned",
		},
		"call-2": {
			Observation: events.Observation{Content: "ok"},
			Success:     true,
			ToolName:    "cmd_run",
			ToolCallID:  "call-2",
		},
	}}
	sink := &recordingSink{}
	c := New("s3", seq, policy, tools, sink, Config{MaxTurns: 10})

	_, err := c.Run(context.Background(), "run a command")
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, c.State())

	hist := c.History()
	var toolCalls int
	for _, ev := range hist {
		if ev.Kind() == events.KindToolCallAction {
			toolCalls++
		}
	}
	assert.Equal(t, 2, toolCalls)
}

// message_user (spec §4.6) must never reach the tool manager: the
// controller recognizes the tool call by name and converts it into a
// real MessageAction carrying the parsed content and wait_for_response,
// without ever dispatching it as a tool (no ToolResultObservation should
// appear for it, and fakeTools.HandleAction must not be called for it).
func TestController_MessageUserToolIsInterceptedAsMessageAction(t *testing.T) {
	seq := events.NewSequencer()
	policy := &scriptedPolicy{seq: seq, actions: []func(int64) events.Envelope{
		func(id int64) events.Envelope {
			return events.ToolCallAction{
				Action:     events.Action{Event: events.Event{ID: id, Source: events.SourceAgent, Type: events.KindToolCallAction}},
				ToolName:   toolmanager.ToolMessageUser,
				ToolInput:  []byte(`{"content":"hang tight","wait_for_response":true}`),
				ToolCallID: "call-1",
			}
		},
		func(id int64) events.Envelope { return completeAction(id, "done") },
	}}
	tools := &fakeTools{results: map[string]events.ToolResultObservation{}}
	sink := &recordingSink{}
	c := New("s-message-user", seq, policy, tools, sink, Config{MaxTurns: 10})

	answer, err := c.Run(context.Background(), "go do something")
	require.NoError(t, err)
	assert.Equal(t, "done", answer)

	hist := c.History()
	require.Len(t, hist, 3) // UserMessage, MessageAction (from message_user), Complete
	msg, ok := hist[1].(events.MessageAction)
	require.True(t, ok, "expected hist[1] to be a MessageAction, got %T", hist[1])
	assert.Equal(t, "hang tight", msg.Content)
	assert.True(t, msg.WaitForResponse)
	assert.Equal(t, events.KindMessageAction, msg.Kind())

	for _, ev := range hist {
		_, isToolCall := ev.(events.ToolCallAction)
		assert.False(t, isToolCall, "message_user must never survive as a ToolCallAction")
		if obs, ok := ev.(events.ToolResultObservation); ok {
			require.Fail(t, "message_user must never be dispatched to the tool manager", "got %+v", obs)
		}
	}
}

// S6: max-turns guard. The policy always returns the same tool call;
// expect an ERROR after MaxTurns ACTING turns, no infinite loop.
func TestController_S6_MaxTurnsGuard(t *testing.T) {
	seq := events.NewSequencer()
	policy := &repeatingToolCallPolicy{seq: seq, name: "cmd_run"}
	tools := &fakeTools{results: map[string]events.ToolResultObservation{}}
	sink := &recordingSink{}
	c := New("s6", seq, policy, tools, sink, Config{MaxTurns: 3})

	_, err := c.Run(context.Background(), "loop forever")
	require.Error(t, err)
	assert.Equal(t, StateError, c.State())

	var loopErr *LoopError
	require.ErrorAs(t, err, &loopErr)
	assert.Equal(t, PhaseGuard, loopErr.Phase)
}

type repeatingToolCallPolicy struct {
	seq  *events.Sequencer
	name string
}

func (p *repeatingToolCallPolicy) Step(_ context.Context, _ []events.Envelope) (events.Envelope, error) {
	return toolCallAction(p.seq.Next(), p.name, "same-call"), nil
}

// cancelOnDispatchPolicy returns a tool call on its first Step, requesting
// cancellation on the controller as a side effect (simulating a new user
// message arriving the instant the agent decides to act), then completes
// on its second Step.
type cancelOnDispatchPolicy struct {
	seq         *events.Sequencer
	controller  *Controller
	pendingText string
	calls       int
}

func (p *cancelOnDispatchPolicy) Step(_ context.Context, _ []events.Envelope) (events.Envelope, error) {
	p.calls++
	if p.calls == 1 {
		p.controller.Cancel(p.pendingText)
		return toolCallAction(p.seq.Next(), "cmd_run", "call-1"), nil
	}
	return completeAction(p.seq.Next(), "after edit"), nil
}

// S5: cancellation requested the instant the agent decides to dispatch a
// tool call produces an interruption Observation (spec §5: "causes the
// next handle_action call to inject an interruption Observation rather
// than dispatch") and the edited query is appended as the new user turn.
func TestController_S5_CancellationShortCircuitsDispatch(t *testing.T) {
	seq := events.NewSequencer()
	tools := &fakeTools{results: map[string]events.ToolResultObservation{
		"call-1": {Observation: events.Observation{Content: "should not run"}, Success: true, ToolName: "cmd_run", ToolCallID: "call-1"},
	}}
	sink := &recordingSink{}
	c := New("s5", seq, nil, tools, sink, Config{MaxTurns: 10})
	policy := &cancelOnDispatchPolicy{seq: seq, controller: c, pendingText: "edited query"}
	c.policy = policy

	answer, err := c.Run(context.Background(), "original query")
	require.NoError(t, err)
	assert.Equal(t, "after edit", answer)

	var sawInterruption bool
	var sawEditedUser bool
	for _, ev := range c.History() {
		if obs, ok := ev.(events.ToolResultObservation); ok && !obs.Success {
			sawInterruption = true
		}
		if obs, ok := ev.(events.UserMessageObservation); ok && obs.Content == "edited query" {
			sawEditedUser = true
		}
	}
	assert.True(t, sawInterruption, "expected an interruption Observation")
	assert.True(t, sawEditedUser, "expected the edited user message to be appended")

	// The interrupted tool call and its interruption Observation must not
	// survive the truncation back to the prior user turn.
	hist := c.History()
	for i, ev := range hist {
		if call, ok := ev.(events.ToolCallAction); ok {
			require.Fail(t, "unexpected surviving ToolCallAction", "index %d: %+v", i, call)
		}
	}
}
