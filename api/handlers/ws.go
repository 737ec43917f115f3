package handlers

import (
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"

	"github.com/luminon/agentd/api"
	"github.com/luminon/agentd/workflow"
)

// WSHandler serves /ws: the client sends UserInput frames, the server
// answers each with the run's event sequence, done event included. The
// connection stays open for further turns.
type WSHandler struct {
	engine *workflow.Engine
	logger *zap.Logger
}

func NewWSHandler(engine *workflow.Engine, logger *zap.Logger) *WSHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WSHandler{
		engine: engine,
		logger: logger.With(zap.String("component", "handlers.ws")),
	}
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket accept failed", zap.Error(err))
		return
	}
	defer conn.Close(websocket.StatusInternalError, "closed")

	ctx := r.Context()
	for {
		var in api.UserInput
		if err := wsjson.Read(ctx, conn, &in); err != nil {
			conn.Close(websocket.StatusNormalClosure, "")
			return
		}
		if err := in.Validate(); err != nil {
			typed := errorInfoFor(err)
			if writeErr := wsjson.Write(ctx, conn, streamEvent{Type: string(workflow.EventError), Error: typed}); writeErr != nil {
				return
			}
			continue
		}

		events, err := h.engine.Stream(ctx, workflow.RunInput{
			ThreadID:     in.ThreadID,
			Message:      in.Message,
			Model:        in.Model,
			StreamTokens: in.WantsTokens(),
		})
		if err != nil {
			if writeErr := wsjson.Write(ctx, conn, streamEvent{Type: string(workflow.EventError), Error: errorInfoFor(err)}); writeErr != nil {
				return
			}
			continue
		}
		for ev := range events {
			if err := wsjson.Write(ctx, conn, toStreamEvent(ev)); err != nil {
				return
			}
		}
	}
}
