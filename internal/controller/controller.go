package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/quietloop/aecore/internal/observability"
	"github.com/quietloop/aecore/internal/toolmanager"
	"github.com/quietloop/aecore/pkg/events"
)

// DefaultMaxTurns matches spec §6.4's CLI default (`--max-turns`, default 200).
const DefaultMaxTurns = 200

// Policy is the subset of policyagent.Agent the controller depends on
// (spec §4.9: "Given a state snapshot, produces the next Action"). Taking
// an interface here — rather than importing policyagent directly — avoids
// the cyclic reference spec §9 flags and lets tests supply a fake.
type Policy interface {
	Step(ctx context.Context, history []events.Envelope) (events.Envelope, error)
}

// ToolDispatcher is the subset of toolmanager.Manager the controller needs
// (spec §4.6).
type ToolDispatcher interface {
	HandleAction(ctx context.Context, action events.Runnable) events.ToolResultObservation
	ShouldStop() bool
	FinalAnswer() string
}

// EventSink receives every Event the controller appends to the log, for
// fan-out to durable storage and remote observers (component C8, spec
// §4.8). Publish must not block the controller; a slow or failed consumer
// is the sink implementation's problem, not the controller's.
type EventSink interface {
	Publish(events.Envelope)
}

// noopSink discards events; used when a caller does not wire a sink.
type noopSink struct{}

func (noopSink) Publish(events.Envelope) {}

// Config configures one Controller instance.
type Config struct {
	// MaxTurns bounds the THINKING/ACTING cycle (spec §4.7, "the loop
	// terminates deterministically within max_turns turns regardless of
	// LLM output"). Zero uses DefaultMaxTurns.
	MaxTurns int

	// Logger receives structured state-transition and error logs. Nil
	// disables logging.
	Logger *observability.Logger
}

// Controller is the Agent Controller of spec §4.7: a single-threaded
// cooperative state machine per session that drives the core loop, owns
// the cancellation signal, and publishes every Action/Observation it
// appends to the session's event log.
//
// Each session owns one Controller instance (spec §9: "replace cyclic
// references with a session-scoped struct owning all three by index").
type Controller struct {
	sessionID string
	seq       *events.Sequencer
	policy    Policy
	tools     ToolDispatcher
	sink      EventSink
	cfg       Config

	mu      sync.Mutex
	state   State
	history []events.Envelope

	cancelMu     sync.Mutex
	cancelSet    bool
	pendingText  string
	hasPending   bool
	activeCancel context.CancelFunc
}

// New returns a Controller for sessionID. seq must be the same Sequencer
// instance the Policy uses to mint Action ids, so the session's event ids
// stay monotonic across both Actions and Observations (spec invariant 1).
func New(sessionID string, seq *events.Sequencer, policy Policy, tools ToolDispatcher, sink EventSink, cfg Config) *Controller {
	if sink == nil {
		sink = noopSink{}
	}
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = DefaultMaxTurns
	}
	return &Controller{
		sessionID: sessionID,
		seq:       seq,
		policy:    policy,
		tools:     tools,
		sink:      sink,
		cfg:       cfg,
		state:     StateInit,
	}
}

// State returns the controller's current position in the loop.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// History returns a copy of the session's event log, suitable for
// checkpointing (spec §3.3: "State: ... checkpointed opportunistically
// after each Observation").
func (c *Controller) History() []events.Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]events.Envelope, len(c.history))
	copy(out, c.history)
	return out
}

// Restore seeds the controller's event log and state from durable storage
// (spec §3.3, "State: reconstructed on session open").
func (c *Controller) Restore(history []events.Envelope, state State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = append([]events.Envelope(nil), history...)
	c.state = state
}

// Cancel requests cancellation of any in-flight tool dispatch and queues
// newUserText as the edited query (spec §4.7, "Edit-query handling"; §5,
// "Cancellation is level-triggered"). It is safe to call from a different
// goroutine than the one running Run.
func (c *Controller) Cancel(newUserText string) {
	c.cancelMu.Lock()
	defer c.cancelMu.Unlock()
	c.cancelSet = true
	c.pendingText = newUserText
	c.hasPending = true
	if c.activeCancel != nil {
		c.activeCancel()
	}
}

func (c *Controller) takeCancelled() (pendingText string, ok bool) {
	c.cancelMu.Lock()
	defer c.cancelMu.Unlock()
	if !c.cancelSet {
		return "", false
	}
	pendingText = c.pendingText
	c.cancelSet = false
	c.hasPending = false
	c.pendingText = ""
	return pendingText, true
}

func (c *Controller) isCancelled() bool {
	c.cancelMu.Lock()
	defer c.cancelMu.Unlock()
	return c.cancelSet
}

func (c *Controller) setActiveCancel(fn context.CancelFunc) {
	c.cancelMu.Lock()
	defer c.cancelMu.Unlock()
	c.activeCancel = fn
}

// Run accepts a new user message and drives the core loop until the
// agent completes, errors, or the session's turn budget is exhausted
// (spec §4.7's transition table). It implements both the INIT -> THINKING
// transition for a fresh session and the COMPLETED -> THINKING transition
// for a follow-up message ("transition through INIT").
func (c *Controller) Run(ctx context.Context, userText string, files ...string) (string, error) {
	c.mu.Lock()
	c.state = StateInit
	c.appendLocked(events.UserMessageObservation{
		Observation: events.Observation{
			Event:   c.newEvent(events.SourceUser, events.KindUserMessageObservation),
			Content: userText,
		},
		Files: files,
	})
	c.state = StateThinking
	c.mu.Unlock()

	return c.drive(ctx)
}

// drive runs the THINKING/ACTING cycle until a terminal state is reached.
func (c *Controller) drive(ctx context.Context) (string, error) {
	for turn := 0; turn < c.cfg.MaxTurns; turn++ {
		if pendingText, cancelled := c.takeCancelled(); cancelled {
			c.handleEditQuery(pendingText)
			continue
		}

		action, err := c.policy.Step(ctx, c.History())
		if err != nil {
			return c.fail(PhaseThink, turn, err)
		}

		if r, ok := action.(events.Runnable); ok && r.CallName() == toolmanager.ToolMessageUser {
			action = messageActionFromToolCall(r)
		}

		c.mu.Lock()
		c.appendLocked(action)
		c.mu.Unlock()

		switch a := action.(type) {
		case events.CompleteAction:
			c.setState(StateCompleted)
			return a.FinalAnswer, nil

		case events.MessageAction:
			c.setState(StateThinking)
			continue

		case events.Runnable:
			c.setState(StateActing)
			obs, cancelledDuringDispatch := c.dispatch(ctx, a)
			c.mu.Lock()
			obs.Event.ID = c.seq.Next()
			obs.Event.Timestamp = time.Now()
			c.appendLocked(obs)
			c.mu.Unlock()

			if c.tools.ShouldStop() {
				c.setState(StateCompleted)
				return c.tools.FinalAnswer(), nil
			}
			if cancelledDuringDispatch {
				if pendingText, cancelled := c.takeCancelled(); cancelled {
					c.handleEditQuery(pendingText)
					continue
				}
			}
			c.setState(StateThinking)

		default:
			// A policy returning neither Complete, Message, nor a
			// Runnable is an implementation bug in the Policy, not a
			// recoverable runtime condition; treat it the same as an
			// InvalidRequest from the LLM client (spec §7).
			return c.fail(PhaseThink, turn, fmt.Errorf("policy returned unrecognized action kind %T", action))
		}
	}

	return c.fail(PhaseGuard, c.cfg.MaxTurns, fmt.Errorf("max turns (%d) exceeded", c.cfg.MaxTurns))
}

// dispatch runs a single tool call, honoring the cancellation contract of
// spec §5: if cancellation was already requested, short-circuit without
// dispatching; otherwise dispatch with a cancellable context so
// cooperative tools can abort, and report back whether a cancellation
// arrived during the call.
func (c *Controller) dispatch(ctx context.Context, action events.Runnable) (events.ToolResultObservation, bool) {
	if c.isCancelled() {
		return c.interruption(action), true
	}

	toolCtx, cancel := context.WithCancel(ctx)
	c.setActiveCancel(cancel)
	obs := c.tools.HandleAction(toolCtx, action)
	cancel()
	c.setActiveCancel(nil)

	return obs, c.isCancelled()
}

// messageActionFromToolCall converts a ToolCallAction naming the
// message_user pseudo-tool into the MessageAction it represents, per spec
// §4.6: "message_user: emits a MessageAction visible to external
// observers but never waits for a reply (unless wait_for_response =
// true)". The controller recognizes this tool name before the action
// ever reaches the tool manager, so toolmanager.Manager.HandleAction is
// never invoked for it (the THINKING -> THINKING transition of spec
// §4.7's table, not THINKING -> ACTING).
func messageActionFromToolCall(r events.Runnable) events.MessageAction {
	var args struct {
		Content         string `json:"content"`
		WaitForResponse bool   `json:"wait_for_response"`
	}
	_ = json.Unmarshal(r.CallInput(), &args)

	base := r.Base()
	base.Type = events.KindMessageAction
	action := events.Action{Event: base}
	if tc, ok := r.(events.ToolCallAction); ok {
		action.Thought = tc.Thought
		action.SecurityRisk = tc.SecurityRisk
	}

	return events.MessageAction{
		Action:          action,
		Content:         args.Content,
		WaitForResponse: args.WaitForResponse,
	}
}

// interruption builds the Observation spec §4.7 and §7 require when a
// dispatch is short-circuited by cancellation ("Cancelled ... As an
// interruption Observation").
func (c *Controller) interruption(action events.Runnable) events.ToolResultObservation {
	base := action.Base()
	return events.ToolResultObservation{
		Observation: events.Observation{
			Event:   events.Event{Source: events.SourceEnvironment, Type: events.KindToolResultObservation},
			Content: "cancelled before dispatch",
			Cause:   base.ID,
		},
		Success:      false,
		ToolName:     action.CallName(),
		ToolCallID:   action.CallID(),
		ErrorMessage: "Cancelled: action interrupted by a new user message",
	}
}

// handleEditQuery implements spec §4.7's edit-query handling: truncate the
// history back to (and including) the most recent prior user turn, append
// the new user message, and re-enter THINKING. The cancellation flag is
// already cleared by takeCancelled before this runs.
func (c *Controller) handleEditQuery(newText string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	lastUser := -1
	for i, ev := range c.history {
		if ev.Kind() == events.KindUserMessageObservation {
			lastUser = i
		}
	}
	if lastUser >= 0 {
		c.history = c.history[:lastUser+1]
	}

	c.appendLocked(events.UserMessageObservation{
		Observation: events.Observation{
			Event:   c.newEvent(events.SourceUser, events.KindUserMessageObservation),
			Content: newText,
		},
	})
	c.state = StateThinking
}

func (c *Controller) fail(phase Phase, turn int, cause error) (string, error) {
	loopErr := &LoopError{Phase: phase, Turn: turn, Cause: cause}

	if c.cfg.Logger != nil {
		c.cfg.Logger.Error(context.Background(), "controller loop failed",
			"session_id", c.sessionID, "phase", string(phase), "turn", turn, "error", cause)
	}

	c.mu.Lock()
	c.appendLocked(events.ErrorObservation{
		Observation: events.Observation{
			Event:   c.newEvent(events.SourceEnvironment, events.KindErrorObservation),
			Content: loopErr.Error(),
		},
		ErrorKind: phaseErrorKind(phase),
	})
	c.state = StateError
	c.mu.Unlock()

	return "", loopErr
}

func phaseErrorKind(p Phase) string {
	if p == PhaseGuard {
		return "Timeout"
	}
	return "InvalidRequest"
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
	if c.cfg.Logger != nil {
		c.cfg.Logger.Info(context.Background(), "controller state transition",
			"session_id", c.sessionID, "state", string(s))
	}
}

// appendLocked appends ev to the history and publishes it to the sink.
// Callers must hold c.mu.
func (c *Controller) appendLocked(ev events.Envelope) {
	c.history = append(c.history, ev)
	c.sink.Publish(ev)
}

// newEvent mints an Event envelope with the next sequence id and the
// current wall-clock timestamp.
func (c *Controller) newEvent(source events.Source, kind events.Kind) events.Event {
	return events.Event{ID: c.seq.Next(), Timestamp: time.Now(), Source: source, Type: kind}
}
