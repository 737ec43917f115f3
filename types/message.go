package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// Role identifies the author of a conversation message. The set is closed:
// adding a new role means extending the constants below and fixing every
// exhaustive switch the compiler then flags.
type Role string

const (
	RoleHuman  Role = "human"
	RoleAgent  Role = "agent"
	RoleTool   Role = "tool"
	RoleCustom Role = "custom"
)

// Valid reports whether r is one of the closed role set.
func (r Role) Valid() bool {
	switch r {
	case RoleHuman, RoleAgent, RoleTool, RoleCustom:
		return true
	}
	return false
}

// ToolCall is a tool invocation requested by the reasoning model.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// Message is one turn in a conversation. Messages are owned by the
// ConversationState that contains them and are immutable once appended.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	RunID      string     `json:"run_id,omitempty"`
	Timestamp  time.Time  `json:"timestamp,omitempty"`
}

// NewMessage creates a message with the given role and content.
func NewMessage(role Role, content string) Message {
	return Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewHumanMessage creates a human-role message.
func NewHumanMessage(content string) Message {
	return NewMessage(RoleHuman, content)
}

// NewAgentMessage creates an agent-role message.
func NewAgentMessage(content string) Message {
	return NewMessage(RoleAgent, content)
}

// NewToolMessage creates a tool-result message tagged with the call it answers.
func NewToolMessage(toolCallID, content string) Message {
	return Message{
		Role:       RoleTool,
		Content:    content,
		ToolCallID: toolCallID,
		Timestamp:  time.Now(),
	}
}

// WithToolCalls returns a copy of the message carrying tool call requests.
func (m Message) WithToolCalls(calls []ToolCall) Message {
	m.ToolCalls = calls
	return m
}

// WithRunID returns a copy of the message correlated with a run.
func (m Message) WithRunID(runID string) Message {
	m.RunID = runID
	return m
}

// Validate checks the structural invariants of a message.
func (m Message) Validate() error {
	if !m.Role.Valid() {
		return fmt.Errorf("invalid message role: %q", m.Role)
	}
	if m.Role == RoleTool && m.ToolCallID == "" {
		return fmt.Errorf("tool message missing tool_call_id")
	}
	return nil
}
