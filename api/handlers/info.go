package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/luminon/agentd/api"
	"github.com/luminon/agentd/guard"
	"github.com/luminon/agentd/llm"
	"github.com/luminon/agentd/tools"
)

// AgentName identifies the single agent this service exposes. Run routes
// are also registered under a "/<agent>" prefix so clients addressing the
// agent by name keep working.
const AgentName = "math-research-agent"

// InfoHandler serves /info.
type InfoHandler struct {
	models     *llm.Registry
	classifier *guard.Classifier
	tools      *tools.Registry
	logger     *zap.Logger
}

func NewInfoHandler(models *llm.Registry, classifier *guard.Classifier, toolReg *tools.Registry, logger *zap.Logger) *InfoHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InfoHandler{
		models:     models,
		classifier: classifier,
		tools:      toolReg,
		logger:     logger.With(zap.String("component", "handlers.info")),
	}
}

func (h *InfoHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	var toolNames []string
	for _, schema := range h.tools.Schemas() {
		toolNames = append(toolNames, schema.Name)
	}
	WriteSuccess(w, api.ServiceInfo{
		Agent:          AgentName,
		Description:    "Research assistant for general mathematics questions with web search.",
		Models:         h.models.Models(),
		DefaultModel:   h.models.Default(),
		Tools:          toolNames,
		GuardDegraded:  h.classifier.Degraded(),
		StreamingPaths: []string{"/stream", "/ws"},
	})
}
