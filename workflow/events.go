package workflow

import (
	"context"

	"github.com/luminon/agentd/types"
)

// EventType tags a stream event.
type EventType string

const (
	// EventToken carries one streamed content fragment.
	EventToken EventType = "token"
	// EventMessage carries a complete message committed to the thread.
	EventMessage EventType = "message"
	// EventError carries a run failure.
	EventError EventType = "error"
	// EventDone marks the end of the stream for a run.
	EventDone EventType = "done"
)

// Event is one item on a run's event stream. Exactly one of Token,
// Message, or Err is set depending on Type; Done carries neither.
type Event struct {
	Type     EventType      `json:"type"`
	RunID    string         `json:"run_id"`
	ThreadID string         `json:"thread_id,omitempty"`
	Token    string         `json:"content,omitempty"`
	Message  *types.Message `json:"message,omitempty"`
	Err      *types.Error   `json:"error,omitempty"`
}

// emitter receives events as the graph produces them. Emit reports
// false when the consumer is gone and the run should stop streaming.
type emitter interface {
	Emit(ctx context.Context, ev Event) bool
}

// channelEmitter forwards events to a consumer channel, dropping out
// when the context is cancelled.
type channelEmitter struct {
	ch chan<- Event
}

func (e *channelEmitter) Emit(ctx context.Context, ev Event) bool {
	select {
	case e.ch <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// collectEmitter buffers message events for non-streaming runs. Token
// events are dropped; the full message arrives at the end anyway.
type collectEmitter struct {
	messages []types.Message
}

func (e *collectEmitter) Emit(_ context.Context, ev Event) bool {
	if ev.Type == EventMessage && ev.Message != nil {
		e.messages = append(e.messages, *ev.Message)
	}
	return true
}
