package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/luminon/agentd/api"
	"github.com/luminon/agentd/store"
)

// FeedbackHandler serves /feedback.
type FeedbackHandler struct {
	feedback store.FeedbackStore
	logger   *zap.Logger
}

func NewFeedbackHandler(feedback store.FeedbackStore, logger *zap.Logger) *FeedbackHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeedbackHandler{
		feedback: feedback,
		logger:   logger.With(zap.String("component", "handlers.feedback")),
	}
}

func (h *FeedbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req api.FeedbackRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		WriteError(w, err, h.logger)
		return
	}

	fb := store.Feedback{
		ID:        uuid.NewString(),
		RunID:     req.RunID,
		Key:       req.Key,
		Score:     req.Score,
		Kwargs:    req.Kwargs,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.feedback.SaveFeedback(r.Context(), fb); err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, api.FeedbackResponse{FeedbackID: fb.ID})
}
