package toolmanager

import "sync"

// MaxToolNameLength bounds a tool_name field to prevent resource
// exhaustion from a malformed ToolCallAction (grounded in the teacher's
// ToolRegistry constants).
const MaxToolNameLength = 256

// MaxToolInputBytes bounds a tool_input payload.
const MaxToolInputBytes = 10 << 20

// Registry is the thread-safe `tool_name -> Tool` map spec §4.6 requires.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds tool, replacing any existing tool under the same name.
func (r *Registry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name()] = tool
}

// Unregister removes a tool by name.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, name)
}

// Get looks up a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Descriptors returns the schema list passed to the LLM client (spec §4.6,
// "tools() -> list<ToolDescriptor>").
func (r *Registry) Descriptors() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Descriptor, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, Descriptor{Name: t.Name(), Description: t.Description(), InputSchema: t.InputSchema()})
	}
	return out
}
