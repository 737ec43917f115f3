package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/luminon/agentd/api"
	"github.com/luminon/agentd/types"
	"github.com/luminon/agentd/workflow"
)

// doneSentinel terminates every SSE stream.
const doneSentinel = "[DONE]"

// RunHandler serves /invoke and /stream.
type RunHandler struct {
	engine *workflow.Engine
	logger *zap.Logger
}

func NewRunHandler(engine *workflow.Engine, logger *zap.Logger) *RunHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RunHandler{
		engine: engine,
		logger: logger.With(zap.String("component", "handlers.run")),
	}
}

func (h *RunHandler) decodeInput(w http.ResponseWriter, r *http.Request) (*api.UserInput, bool) {
	var in api.UserInput
	if err := decodeJSON(r, &in); err != nil {
		WriteError(w, err, h.logger)
		return nil, false
	}
	if err := in.Validate(); err != nil {
		WriteError(w, err, h.logger)
		return nil, false
	}
	return &in, true
}

// Invoke runs a full turn and returns the produced messages.
func (h *RunHandler) Invoke(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	in, ok := h.decodeInput(w, r)
	if !ok {
		return
	}

	res, err := h.engine.Run(r.Context(), workflow.RunInput{
		ThreadID: in.ThreadID,
		Message:  in.Message,
		Model:    in.Model,
	})
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, api.InvokeResponse{
		RunID:    res.RunID,
		ThreadID: res.ThreadID,
		Messages: res.Messages,
		Blocked:  res.Blocked,
	})
}

// streamEvent is the SSE wire form of a workflow event.
type streamEvent struct {
	Type     string         `json:"type"`
	RunID    string         `json:"run_id,omitempty"`
	ThreadID string         `json:"thread_id,omitempty"`
	Content  string         `json:"content,omitempty"`
	Message  *types.Message `json:"message,omitempty"`
	Error    *ErrorInfo     `json:"error,omitempty"`
}

func toStreamEvent(ev workflow.Event) streamEvent {
	out := streamEvent{
		Type:     string(ev.Type),
		RunID:    ev.RunID,
		ThreadID: ev.ThreadID,
		Content:  ev.Token,
		Message:  ev.Message,
	}
	if ev.Err != nil {
		out.Error = &ErrorInfo{
			Code:      string(ev.Err.Code),
			Message:   ev.Err.Message,
			Retryable: ev.Err.Retryable,
		}
	}
	return out
}

// Stream runs a turn and emits server-sent events, terminated by the
// [DONE] sentinel.
func (h *RunHandler) Stream(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	in, ok := h.decodeInput(w, r)
	if !ok {
		return
	}
	flusher, canFlush := w.(http.Flusher)
	if !canFlush {
		WriteError(w, types.NewError(types.ErrInternal, "streaming unsupported by connection"), h.logger)
		return
	}

	events, err := h.engine.Stream(r.Context(), workflow.RunInput{
		ThreadID:     in.ThreadID,
		Message:      in.Message,
		Model:        in.Model,
		StreamTokens: in.WantsTokens(),
	})
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	for ev := range events {
		if ev.Type == workflow.EventDone {
			fmt.Fprintf(w, "data: %s\n\n", doneSentinel)
			flusher.Flush()
			break
		}
		payload, err := json.Marshal(toStreamEvent(ev))
		if err != nil {
			h.logger.Error("event marshal failed", zap.Error(err))
			continue
		}
		fmt.Fprintf(w, "data: %s\n\n", payload)
		flusher.Flush()
	}
}
