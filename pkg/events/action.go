package events

import "encoding/json"

// Action is an intent emitted by an agent: a message to the user, a tool
// invocation, or a signal that the task is complete.
type Action struct {
	Event

	// Thought carries the agent's reasoning for emitting this action, when
	// the model surfaces one. Optional on every variant.
	Thought string `json:"thought,omitempty"`

	// SecurityRisk classifies runnable actions. Zero value (empty string)
	// means the producer did not classify it; callers should treat that as
	// SecurityRiskUnknown.
	SecurityRisk SecurityRisk `json:"security_risk,omitempty"`
}

func (a Action) Base() Event { return a.Event }

// MessageAction represents free-form text the agent wants to surface to the
// user. WaitForResponse signals the controller should stay in THINKING
// rather than transitioning out of the loop (§4.7, "message_user" tool).
type MessageAction struct {
	Action
	Content          string `json:"content"`
	WaitForResponse  bool   `json:"wait_for_response,omitempty"`
}

func (MessageAction) Kind() Kind { return KindMessageAction }

// SystemMessageAction is the single synthetic event placed at the head of
// every session's event log (spec §4.2: "emit at most one system turn at
// the head, authored by the controller from the configured system
// prompt"). ToolDescriptors are recorded for audit/replay purposes.
type SystemMessageAction struct {
	Action
	Content         string   `json:"content"`
	ToolDescriptors []string `json:"tool_descriptors,omitempty"`
}

func (SystemMessageAction) Kind() Kind { return KindSystemMessageAction }

// ToolCallAction is a generic tool invocation: tool_name plus a keyed bag
// of scalar/string/array inputs, identified by a ToolCallID unique within
// the response that produced it (invariant 4, spec §3.2).
type ToolCallAction struct {
	Action
	ToolName         string            `json:"tool_name"`
	ToolInput        json.RawMessage   `json:"tool_input"`
	ToolCallID       string            `json:"tool_call_id"`
	ToolCallMetadata *ToolCallMetadata `json:"tool_call_metadata,omitempty"`
}

func (ToolCallAction) Kind() Kind { return KindToolCallAction }

// CallID, CallName, and CallInput let the tool manager dispatch any
// runnable Action variant uniformly: every specialized variant below
// embeds ToolCallAction and so promotes these methods unchanged.
func (t ToolCallAction) CallID() string            { return t.ToolCallID }
func (t ToolCallAction) CallName() string           { return t.ToolName }
func (t ToolCallAction) CallInput() json.RawMessage { return t.ToolInput }

// CompleteAction signals the agent believes the task is finished. After a
// CompleteAction is appended, invariant 5 (spec §3.2) forbids accepting
// further Actions until a new UserMessage arrives.
type CompleteAction struct {
	Action
	FinalAnswer string `json:"final_answer"`
}

func (CompleteAction) Kind() Kind { return KindCompleteAction }

// Runnable is implemented by ToolCallAction and every specialized
// tool-call variant, letting the tool manager dispatch any of them
// uniformly without a type switch per variant.
type Runnable interface {
	Envelope
	CallID() string
	CallName() string
	CallInput() json.RawMessage
}

// runnable is embedded by the strongly-typed tool-call variants below. Each
// carries the same ToolCallAction envelope fields plus validated,
// schema-specific inputs, per spec §3.1.
type runnable struct {
	ToolCallAction
}

// FileReadAction reads a workspace-relative file.
type FileReadAction struct {
	runnable
	Path      string `json:"path"`
	StartLine int    `json:"start_line,omitempty"`
	EndLine   int    `json:"end_line,omitempty"`
}

func (FileReadAction) Kind() Kind { return KindFileReadAction }

// FileWriteAction writes (overwrites or creates) a workspace-relative file.
type FileWriteAction struct {
	runnable
	Path    string `json:"path"`
	Content string `json:"content"`
}

func (FileWriteAction) Kind() Kind { return KindFileWriteAction }

// FileEditAction applies a structured edit (old/new string replacement or a
// patch) to a workspace-relative file.
type FileEditAction struct {
	runnable
	Path    string `json:"path"`
	OldText string `json:"old_text,omitempty"`
	NewText string `json:"new_text,omitempty"`
	Patch   string `json:"patch,omitempty"`
}

func (FileEditAction) Kind() Kind { return KindFileEditAction }

// CmdRunAction runs a shell command in the session's workspace.
type CmdRunAction struct {
	runnable
	Command string `json:"command"`
	Cwd     string `json:"cwd,omitempty"`
	TimeoutSeconds int `json:"timeout_seconds,omitempty"`
}

func (CmdRunAction) Kind() Kind { return KindCmdRunAction }

// IPythonRunCellAction runs a cell of Python/IPython code.
type IPythonRunCellAction struct {
	runnable
	Code string `json:"code"`
}

func (IPythonRunCellAction) Kind() Kind { return KindIPythonRunCellAction }

// BrowseURLAction navigates a browser tool to a URL.
type BrowseURLAction struct {
	runnable
	URL string `json:"url"`
}

func (BrowseURLAction) Kind() Kind { return KindBrowseURLAction }

// BrowseInteractiveAction issues a browser interaction program (click,
// type, scroll, etc.) expressed as the tool's own DSL string.
type BrowseInteractiveAction struct {
	runnable
	Program string `json:"program"`
}

func (BrowseInteractiveAction) Kind() Kind { return KindBrowseInteractive }

// MCPAction invokes a tool exposed by a Model Context Protocol server.
type MCPAction struct {
	runnable
	ServerName string          `json:"server_name"`
	MethodName string          `json:"method_name"`
	Arguments  json.RawMessage `json:"arguments"`
}

func (MCPAction) Kind() Kind { return KindMCPAction }
