package events

// Observation is a result produced by the environment in response to an
// Action. Cause references the id of the Action that produced it;
// invariant 2 (spec §3.2) requires that Action to precede this Observation
// in the event log.
type Observation struct {
	Event
	Content          string            `json:"content"`
	Cause            int64             `json:"cause"`
	ToolCallMetadata *ToolCallMetadata `json:"tool_call_metadata,omitempty"`
}

func (o Observation) Base() Event { return o.Event }

// UserMessageObservation replays a user's input as a system event so it
// participates in the same ordered log as agent-produced events.
type UserMessageObservation struct {
	Observation
	Files []string `json:"files,omitempty"`
}

func (UserMessageObservation) Kind() Kind { return KindUserMessageObservation }

// ToolResultObservation is the generic result of a tool dispatch. Success
// is false whenever the tool manager could not run the tool at all
// (UnknownTool, InvalidInput) or the tool itself reported failure.
type ToolResultObservation struct {
	Observation
	Success      bool   `json:"success"`
	ToolName     string `json:"tool_name"`
	ToolCallID   string `json:"tool_call_id"`
	ErrorMessage string `json:"error_message,omitempty"`
	Truncated    bool   `json:"truncated,omitempty"`
}

func (ToolResultObservation) Kind() Kind { return KindToolResultObservation }

// FileReadObservation carries the contents of a file read by FileReadAction.
type FileReadObservation struct {
	Observation
	Path string `json:"path"`
}

func (FileReadObservation) Kind() Kind { return KindFileReadObservation }

// FileWriteObservation confirms a file write.
type FileWriteObservation struct {
	Observation
	Path string `json:"path"`
}

func (FileWriteObservation) Kind() Kind { return KindFileWriteObservation }

// FileEditObservation carries a diff or confirmation of an edit.
type FileEditObservation struct {
	Observation
	Path string `json:"path"`
	Diff string `json:"diff,omitempty"`
}

func (FileEditObservation) Kind() Kind { return KindFileEditObservation }

// CmdRunObservation carries a shell command's combined output and exit code.
type CmdRunObservation struct {
	Observation
	Command  string `json:"command"`
	ExitCode int    `json:"exit_code"`
}

func (CmdRunObservation) Kind() Kind { return KindCmdRunObservation }

// BrowseObservation carries the result of a browser action (page text,
// screenshot reference, or interaction outcome).
type BrowseObservation struct {
	Observation
	URL        string `json:"url,omitempty"`
	ScreenshotURL string `json:"screenshot_url,omitempty"`
}

func (BrowseObservation) Kind() Kind { return KindBrowseObservation }

// ErrorObservation surfaces a non-tool error (e.g. an LLM InvalidRequest,
// a ContextOverflow that could not be resolved, a Cancelled interruption)
// to the agent as an event instead of raising it past the tool boundary
// (spec §7, "the agent must see every tool error as an Observation").
type ErrorObservation struct {
	Observation
	ErrorKind string `json:"error_kind"`
}

func (ErrorObservation) Kind() Kind { return KindErrorObservation }
