package types

// ConversationState is the per-thread state mutated by the workflow engine
// and checkpointed by the thread store.
//
// Messages is append-only within a run. PendingToolResults is a staging
// buffer for tool output awaiting merge into Messages; it is non-empty only
// transiently between the tool-invoke step and the next reasoning step, and
// must be empty at the start and end of every run.
type ConversationState struct {
	Messages           []Message `json:"messages"`
	PendingToolResults []Message `json:"pending_tool_results,omitempty"`
	NeedsToolCall      bool      `json:"needs_tool_call,omitempty"`
	LastVerdict        *Verdict  `json:"last_verdict,omitempty"`
}

// NewConversationState returns an empty conversation state.
func NewConversationState() *ConversationState {
	return &ConversationState{}
}

// Append adds messages to the conversation history.
func (s *ConversationState) Append(msgs ...Message) {
	s.Messages = append(s.Messages, msgs...)
}

// StageToolResults places tool result messages into the staging buffer.
func (s *ConversationState) StageToolResults(msgs ...Message) {
	s.PendingToolResults = append(s.PendingToolResults, msgs...)
}

// MergePending moves staged tool results into the message history and clears
// the staging buffer. The merge must happen before the next generation call
// so the model sees tool output as conversation history, not a side channel.
func (s *ConversationState) MergePending() {
	if len(s.PendingToolResults) == 0 {
		return
	}
	s.Messages = append(s.Messages, s.PendingToolResults...)
	s.PendingToolResults = nil
}

// LastHumanMessage returns the most recent human-role message, if any.
func (s *ConversationState) LastHumanMessage() (Message, bool) {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleHuman {
			return s.Messages[i], true
		}
	}
	return Message{}, false
}

// LastMessage returns the most recent message, if any.
func (s *ConversationState) LastMessage() (Message, bool) {
	if len(s.Messages) == 0 {
		return Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}

// Clone returns a deep-enough copy for checkpointing: the slices are copied,
// the messages themselves are immutable by contract.
func (s *ConversationState) Clone() *ConversationState {
	out := &ConversationState{
		NeedsToolCall: s.NeedsToolCall,
	}
	if len(s.Messages) > 0 {
		out.Messages = append([]Message(nil), s.Messages...)
	}
	if len(s.PendingToolResults) > 0 {
		out.PendingToolResults = append([]Message(nil), s.PendingToolResults...)
	}
	if s.LastVerdict != nil {
		v := *s.LastVerdict
		out.LastVerdict = &v
	}
	return out
}
