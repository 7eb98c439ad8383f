// Package reviewer implements the reviewer sub-loop (component C10, spec
// §4.10): an optional second pass that critiques the main agent's output
// after it emits a CompleteAction. It is a second AgentController instance
// sharing the main loop's tool manager and sequencer, seeded with the
// original task, the main loop's result, and the workspace path as its
// first user message, grounded on the handoff-to-a-specialist pattern in
// the teacher's internal/multiagent/handoff_tool.go — except the handoff
// here runs sequentially rather than through an orchestrator, matching
// spec §9's "no nested await; the top-level orchestrator runs them
// sequentially."
package reviewer

import (
	"context"
	"fmt"

	"github.com/quietloop/aecore/internal/controller"
	"github.com/quietloop/aecore/pkg/events"
)

// Resettable lets the reviewer clear the completion state a shared tool
// manager accumulated during the main loop, so its return_control_to_user
// or complete call doesn't make ShouldStop() report true before the
// review even begins.
type Resettable interface {
	Reset()
}

// Dispatcher is the tool dependency the reviewer needs: the controller's
// ToolDispatcher contract plus Reset.
type Dispatcher interface {
	controller.ToolDispatcher
	Resettable
}

// Config seeds one review pass.
type Config struct {
	// Task is the original task given to the main agent.
	Task string
	// Result is the main loop's CompleteAction answer under review.
	Result string
	// WorkspaceRoot is surfaced to the reviewer for tools that need it.
	WorkspaceRoot string
	// MaxTurns bounds the review pass independently of the main loop's
	// budget; zero uses controller.DefaultMaxTurns.
	MaxTurns int
}

// SeedMessage builds the first user message of the review session (spec
// §4.10: "the original task + result + workspace path seeded as the
// first user message").
func (cfg Config) SeedMessage() string {
	return fmt.Sprintf(
		"Task:\n%s\n\nProposed result:\n%s\n\nWorkspace: %s\n\n"+
			"Review the proposed result against the task. Call %s with your "+
			"feedback once you are done.",
		cfg.Task, cfg.Result, cfg.WorkspaceRoot, "return_control_to_general_agent",
	)
}

// Run drives a fresh Controller through the review pass and returns the
// feedback that replaces the main loop's final answer (spec §4.10: "the
// feedback replaces the final answer surfaced to the user").
func Run(ctx context.Context, sessionID string, seq *events.Sequencer, policy controller.Policy, tools Dispatcher, sink controller.EventSink, cfg Config) (string, error) {
	tools.Reset()

	c := controller.New(sessionID, seq, policy, tools, sink, controller.Config{MaxTurns: cfg.MaxTurns})
	return c.Run(ctx, cfg.SeedMessage())
}
