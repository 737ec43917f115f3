package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/luminon/agentd/api"
	"github.com/luminon/agentd/store"
	"github.com/luminon/agentd/types"
)

// HistoryHandler serves /history.
type HistoryHandler struct {
	threads store.ThreadStore
	logger  *zap.Logger
}

func NewHistoryHandler(threads store.ThreadStore, logger *zap.Logger) *HistoryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HistoryHandler{
		threads: threads,
		logger:  logger.With(zap.String("component", "handlers.history")),
	}
}

func (h *HistoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req api.HistoryRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err, h.logger)
		return
	}
	if req.ThreadID == "" {
		WriteError(w, types.NewError(types.ErrValidation, "thread_id is required"), h.logger)
		return
	}

	state, err := h.threads.Load(r.Context(), req.ThreadID)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, api.HistoryResponse{
		ThreadID: req.ThreadID,
		Messages: state.Messages,
	})
}
