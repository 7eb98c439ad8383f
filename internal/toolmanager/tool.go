// Package toolmanager implements the tool manager (component C6): the
// registry + dispatcher that turns a ToolCallAction into an Observation by
// invoking a named tool (spec §4.6).
package toolmanager

import (
	"context"
	"encoding/json"
)

// RunContext is passed to every tool invocation, giving it the session id
// and workspace root without a back-pointer into the controller (spec §9,
// "replace cyclic references with a session-scoped struct").
type RunContext struct {
	SessionID     string
	WorkspaceRoot string
}

// Artifact is a typed content block a tool may return alongside or instead
// of plain text (spec §6.1: "a list of typed content blocks (text, image
// by url or base64)").
type Artifact struct {
	Type     string
	MimeType string
	URL      string
	Data     []byte
}

// Output is a tool's successful result.
type Output struct {
	Content   string
	Artifacts []Artifact
}

// Tool is the plug-in interface spec §6.1 defines. Concrete tool
// implementations (shell, browser, file edit, web search, ...) are
// external collaborators per spec §1's Non-goals; this package only
// defines the contract and the dispatcher that calls it.
type Tool interface {
	Name() string
	Description() string
	InputSchema() json.RawMessage
	Run(ctx context.Context, input json.RawMessage, rc RunContext) (Output, error)
}

// Descriptor is the schema shape sent to the LLM client (spec §4.6,
// "tools() -> list<ToolDescriptor>").
type Descriptor struct {
	Name        string
	Description string
	InputSchema json.RawMessage
}
