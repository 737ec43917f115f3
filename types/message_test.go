package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRole_Valid(t *testing.T) {
	assert.True(t, RoleHuman.Valid())
	assert.True(t, RoleAgent.Valid())
	assert.True(t, RoleTool.Valid())
	assert.True(t, RoleCustom.Valid())
	assert.False(t, Role("system").Valid())
	assert.False(t, Role("").Valid())
}

func TestMessage_Validate(t *testing.T) {
	assert.NoError(t, NewHumanMessage("hi").Validate())
	assert.NoError(t, NewToolMessage("call-1", "result").Validate())

	err := Message{Role: RoleTool, Content: "result"}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tool_call_id")

	assert.Error(t, Message{Role: "ai"}.Validate())
}

func TestMessage_WithRunID(t *testing.T) {
	m := NewAgentMessage("hello")
	tagged := m.WithRunID("run-1")
	assert.Equal(t, "run-1", tagged.RunID)
	assert.Empty(t, m.RunID, "WithRunID must not mutate the receiver")
}

func TestVerdict_Validate(t *testing.T) {
	assert.NoError(t, SafeVerdict().Validate())
	assert.NoError(t, ErrorVerdict().Validate())
	assert.NoError(t, UnsafeVerdict("Hate").Validate())
	assert.Error(t, Verdict{Assessment: AssessmentUnsafe}.Validate())
	assert.Error(t, Verdict{Assessment: "maybe"}.Validate())
}

func TestConversationState_MergePending(t *testing.T) {
	s := NewConversationState()
	s.Append(NewHumanMessage("question"))
	s.StageToolResults(NewToolMessage("call-1", "data"))

	require.Len(t, s.PendingToolResults, 1)
	s.MergePending()

	assert.Empty(t, s.PendingToolResults)
	require.Len(t, s.Messages, 2)
	assert.Equal(t, RoleTool, s.Messages[1].Role)

	// merging again is a no-op
	s.MergePending()
	assert.Len(t, s.Messages, 2)
}

func TestConversationState_LastHumanMessage(t *testing.T) {
	s := NewConversationState()
	_, ok := s.LastHumanMessage()
	assert.False(t, ok)

	s.Append(NewHumanMessage("first"), NewAgentMessage("reply"), NewHumanMessage("second"))
	m, ok := s.LastHumanMessage()
	require.True(t, ok)
	assert.Equal(t, "second", m.Content)
}

func TestConversationState_Clone(t *testing.T) {
	s := NewConversationState()
	s.Append(NewHumanMessage("a"))
	s.StageToolResults(NewToolMessage("c1", "x"))
	v := UnsafeVerdict("Hate")
	s.LastVerdict = &v

	c := s.Clone()
	c.Append(NewAgentMessage("b"))
	c.LastVerdict.Categories[0] = "Hate" // same value, no aliasing check needed for contents
	c.PendingToolResults = nil

	assert.Len(t, s.Messages, 1)
	assert.Len(t, s.PendingToolResults, 1)
	assert.NotSame(t, s.LastVerdict, c.LastVerdict)
}
