package llm

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps model names to configured providers. It is constructed once
// at process start and handed to the components that need model access;
// nothing in this package caches providers globally.
type Registry struct {
	mu           sync.RWMutex
	models       map[string]Provider
	defaultModel string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{models: make(map[string]Provider)}
}

// Register binds a model name to a provider. The first registered model
// becomes the default unless SetDefault overrides it.
func (r *Registry) Register(model string, provider Provider) error {
	if model == "" {
		return fmt.Errorf("model name is required")
	}
	if provider == nil {
		return fmt.Errorf("provider is required for model %q", model)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.models[model]; exists {
		return fmt.Errorf("model %q already registered", model)
	}
	r.models[model] = provider
	if r.defaultModel == "" {
		r.defaultModel = model
	}
	return nil
}

// SetDefault sets the default model. The model must be registered.
func (r *Registry) SetDefault(model string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.models[model]; !ok {
		return fmt.Errorf("unknown model: %q", model)
	}
	r.defaultModel = model
	return nil
}

// Get returns the provider for a model name. An empty name resolves to the
// default model.
func (r *Registry) Get(model string) (Provider, string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if model == "" {
		model = r.defaultModel
	}
	p, ok := r.models[model]
	if !ok {
		return nil, "", fmt.Errorf("unknown model: %q", model)
	}
	return p, model, nil
}

// Default returns the default model name, empty if nothing is registered.
func (r *Registry) Default() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultModel
}

// Models returns the registered model names, sorted.
func (r *Registry) Models() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
