package tools

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/luminon/agentd/llm"
	"github.com/luminon/agentd/types"
)

// Tool is one invokable external capability. Invoke blocks for the duration
// of the external call; retries, if any, belong to the transport behind the
// implementation, not to callers.
type Tool interface {
	// Invoke executes the call and returns the result content.
	Invoke(ctx context.Context, call types.ToolCall) (string, error)
	// Describe returns the schema advertised to the generation model.
	Describe() llm.ToolSchema
}

// Registry holds tools by name. Reads vastly outnumber writes; registration
// happens at startup, lookup on every tool-invoke node.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool under its declared schema name.
func (r *Registry) Register(tool Tool) error {
	if tool == nil {
		return fmt.Errorf("tool is required")
	}
	name := tool.Describe().Name
	if name == "" {
		return fmt.Errorf("tool schema must declare a name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %q already registered", name)
	}
	r.tools[name] = tool
	return nil
}

// Get returns the tool registered under name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Schemas returns the schemas of all registered tools, sorted by name, for
// inclusion in generation requests.
func (r *Registry) Schemas() []llm.ToolSchema {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	schemas := make([]llm.ToolSchema, 0, len(names))
	for _, name := range names {
		schemas = append(schemas, r.tools[name].Describe())
	}
	return schemas
}
