package llm

import (
	"context"
	"encoding/json"
	"time"
)

// WireRole is the role vocabulary of the chat-completions wire format.
// It is distinct from types.Role: conversation roles are mapped onto wire
// roles at the engine boundary, with an exhaustive switch.
type WireRole string

const (
	WireRoleSystem    WireRole = "system"
	WireRoleUser      WireRole = "user"
	WireRoleAssistant WireRole = "assistant"
	WireRoleTool      WireRole = "tool"
)

// ChatMessage is one message as sent to a generation backend.
type ChatMessage struct {
	Role       WireRole   `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolCall mirrors the wire-format tool invocation request.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ToolSchema declares a tool to the generation backend.
type ToolSchema struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters"`
}

// ChatRequest is a single generation request.
type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Tools       []ToolSchema  `json:"tools,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float32       `json:"temperature,omitempty"`
	Timeout     time.Duration `json:"timeout,omitempty"`
}

// ChatResponse is the complete result of a generation request.
type ChatResponse struct {
	Model        string      `json:"model"`
	Content      string      `json:"content"`
	ToolCalls    []ToolCall  `json:"tool_calls,omitempty"`
	FinishReason string      `json:"finish_reason,omitempty"`
	Usage        ChatUsage   `json:"usage,omitempty"`
	CreatedAt    time.Time   `json:"created_at,omitempty"`
}

// ChatUsage reports token accounting for a request.
type ChatUsage struct {
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
	TotalTokens      int `json:"total_tokens,omitempty"`
}

// StreamChunk is one increment of a streaming generation.
type StreamChunk struct {
	Content      string     `json:"content,omitempty"`
	ToolCalls    []ToolCall `json:"tool_calls,omitempty"`
	FinishReason string     `json:"finish_reason,omitempty"`
	Err          error      `json:"-"`
}

// Provider is the uniform generation interface. Both calls block until the
// backend responds; Stream's channel is closed when the stream ends or ctx
// is cancelled.
type Provider interface {
	Completion(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
	Stream(ctx context.Context, req *ChatRequest) (<-chan StreamChunk, error)
	Name() string
}
