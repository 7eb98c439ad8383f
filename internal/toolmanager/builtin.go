package toolmanager

import (
	"context"
	"encoding/json"
)

// controlTool is the three completion/handoff pseudo-tools spec §4.6
// recognizes by name (complete, return_control_to_user,
// return_control_to_general_agent): each takes a single free-text
// argument and returns it verbatim as Output.Content, which Manager then
// stores as FinalAnswer. Grounded on the shape of the teacher's
// HandoffTool (internal/multiagent/handoff_tool.go) — a tool whose entire
// job is to carry a control-transfer payload, not to do work.
type controlTool struct {
	name        string
	description string
	argName     string
}

func (t controlTool) Name() string        { return t.name }
func (t controlTool) Description() string { return t.description }

func (t controlTool) InputSchema() json.RawMessage {
	schema, _ := json.Marshal(map[string]any{
		"type": "object",
		"properties": map[string]any{
			t.argName: map[string]any{"type": "string"},
		},
		"required": []string{t.argName},
	})
	return schema
}

func (t controlTool) Run(_ context.Context, input json.RawMessage, _ RunContext) (Output, error) {
	var args map[string]string
	if len(input) > 0 {
		if err := json.Unmarshal(input, &args); err != nil {
			return Output{}, err
		}
	}
	return Output{Content: args[t.argName]}, nil
}

// messageUserTool is the non-blocking "talk to the user" pseudo-tool spec
// §4.6 names (message_user): the controller recognizes a call to this
// tool before it ever reaches Manager.HandleAction and emits a
// MessageAction directly ("emits a MessageAction visible to external
// observers but never waits for a reply (unless wait_for_response =
// true)"). Run is only reached if a caller dispatches it straight through
// Manager.HandleAction instead of going through the controller.
type messageUserTool struct{}

func (messageUserTool) Name() string { return ToolMessageUser }

func (messageUserTool) Description() string {
	return "Send a message to the user without ending the task. Provide the text as the 'content' argument; set 'wait_for_response' to true to pause for a reply instead of continuing immediately."
}

func (messageUserTool) InputSchema() json.RawMessage {
	schema, _ := json.Marshal(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"content":           map[string]any{"type": "string"},
			"wait_for_response": map[string]any{"type": "boolean"},
		},
		"required": []string{"content"},
	})
	return schema
}

func (messageUserTool) Run(_ context.Context, input json.RawMessage, _ RunContext) (Output, error) {
	var args struct {
		Content string `json:"content"`
	}
	if len(input) > 0 {
		if err := json.Unmarshal(input, &args); err != nil {
			return Output{}, err
		}
	}
	return Output{Content: args.Content}, nil
}

// RegisterControlTools adds the completion pseudo-tools spec §4.6 and
// §4.10 name to registry: complete and return_control_to_user for the
// main loop, return_control_to_general_agent for the reviewer sub-loop,
// and message_user for non-blocking user-visible messages.
func RegisterControlTools(registry *Registry) {
	registry.Register(controlTool{
		name:        ToolComplete,
		description: "Signal that the task is finished. Provide the final answer as the 'answer' argument.",
		argName:     "answer",
	})
	registry.Register(controlTool{
		name:        ToolReturnControlToUser,
		description: "Return control to the user without a final answer, e.g. to ask a clarifying question. Provide the message as the 'answer' argument.",
		argName:     "answer",
	})
	registry.Register(controlTool{
		name:        ToolReturnControlToGeneralAgent,
		description: "End the review pass and hand feedback back to the general agent. Provide the feedback as the 'answer' argument.",
		argName:     "answer",
	})
	registry.Register(messageUserTool{})
}
