package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/luminon/agentd/guard"
)

// HealthHandler serves /healthz.
type HealthHandler struct {
	classifier *guard.Classifier
	logger     *zap.Logger
}

func NewHealthHandler(classifier *guard.Classifier, logger *zap.Logger) *HealthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthHandler{classifier: classifier, logger: logger}
}

type healthStatus struct {
	Status        string `json:"status"`
	GuardDegraded bool   `json:"guard_degraded"`
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	WriteSuccess(w, healthStatus{
		Status:        "ok",
		GuardDegraded: h.classifier.Degraded(),
	})
}
