package api

import (
	"encoding/json"

	"github.com/luminon/agentd/types"
)

// UserInput is the request body of /invoke, /stream, and /ws.
type UserInput struct {
	// Message is the user's text. Required.
	Message string `json:"message"`
	// Model overrides the default generation model.
	Model string `json:"model,omitempty"`
	// ThreadID continues an existing conversation; empty starts one.
	ThreadID string `json:"thread_id,omitempty"`
	// StreamTokens controls token events on streaming endpoints.
	// Defaults to true.
	StreamTokens *bool `json:"stream_tokens,omitempty"`
	// AgentConfig carries extra key/value pairs for the agent. Keys that
	// shadow top-level fields are rejected.
	AgentConfig map[string]json.RawMessage `json:"agent_config,omitempty"`
}

// reservedAgentConfigKeys shadow top-level request fields and are not
// allowed inside agent_config.
var reservedAgentConfigKeys = map[string]struct{}{
	"message":       {},
	"model":         {},
	"thread_id":     {},
	"stream_tokens": {},
}

// Validate rejects empty messages and reserved agent_config keys.
func (in *UserInput) Validate() error {
	if in.Message == "" {
		return types.NewError(types.ErrValidation, "message is required")
	}
	for key := range in.AgentConfig {
		if _, reserved := reservedAgentConfigKeys[key]; reserved {
			return types.NewError(types.ErrValidation, "agent_config contains reserved key: "+key)
		}
	}
	return nil
}

// WantsTokens reports whether token events were requested.
func (in *UserInput) WantsTokens() bool {
	if in.StreamTokens == nil {
		return true
	}
	return *in.StreamTokens
}

// InvokeResponse is the body of a successful /invoke call.
type InvokeResponse struct {
	RunID    string          `json:"run_id"`
	ThreadID string          `json:"thread_id"`
	Messages []types.Message `json:"messages"`
	Blocked  bool            `json:"blocked,omitempty"`
}

// HistoryRequest asks for the message history of one thread.
type HistoryRequest struct {
	ThreadID string `json:"thread_id"`
}

// HistoryResponse is the body of /history.
type HistoryResponse struct {
	ThreadID string          `json:"thread_id"`
	Messages []types.Message `json:"messages"`
}

// FeedbackRequest is the body of /feedback.
type FeedbackRequest struct {
	RunID  string            `json:"run_id"`
	Key    string            `json:"key"`
	Score  float64           `json:"score"`
	Kwargs map[string]string `json:"kwargs,omitempty"`
}

// Validate checks required feedback fields.
func (fr *FeedbackRequest) Validate() error {
	if fr.RunID == "" {
		return types.NewError(types.ErrValidation, "run_id is required")
	}
	if fr.Key == "" {
		return types.NewError(types.ErrValidation, "key is required")
	}
	return nil
}

// FeedbackResponse acknowledges a stored feedback entry.
type FeedbackResponse struct {
	FeedbackID string `json:"feedback_id"`
}

// ServiceInfo is the body of /info.
type ServiceInfo struct {
	Agent          string   `json:"agent"`
	Description    string   `json:"description"`
	Models         []string `json:"models"`
	DefaultModel   string   `json:"default_model"`
	Tools          []string `json:"tools"`
	GuardDegraded  bool     `json:"guard_degraded"`
	StreamingPaths []string `json:"streaming_paths"`
}
