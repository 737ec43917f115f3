package workflow

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/luminon/agentd/guard"
	"github.com/luminon/agentd/internal/metrics"
	"github.com/luminon/agentd/llm"
	"github.com/luminon/agentd/store"
	"github.com/luminon/agentd/tools"
	"github.com/luminon/agentd/types"
)

// Node names of the conversation graph.
const (
	nodeSecurityCheck = "security_check"
	nodeBlock         = "block"
	nodeReason        = "reason"
	nodeToolInvoke    = "tool_invoke"
)

// DefaultMaxToolRounds bounds the reason/tool loop per turn.
const DefaultMaxToolRounds = 10

// Config tunes engine behavior.
type Config struct {
	// Model is the default generation model when the request names none.
	Model string `yaml:"model"`
	// MaxToolRounds caps reason/tool iterations in one turn.
	MaxToolRounds int `yaml:"max_tool_rounds"`
	// MaxTokens and Temperature are passed through to the provider.
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float32 `yaml:"temperature"`
}

func (c *Config) applyDefaults() {
	if c.MaxToolRounds <= 0 {
		c.MaxToolRounds = DefaultMaxToolRounds
	}
}

// RunInput is one user turn.
type RunInput struct {
	// ThreadID selects the conversation; empty starts a new thread.
	ThreadID string
	// Message is the user's text.
	Message string
	// Model overrides the engine default for this turn.
	Model string
	// StreamTokens requests token events during generation.
	StreamTokens bool
}

// Result is the outcome of a completed turn.
type Result struct {
	RunID    string
	ThreadID string
	// Messages are the messages this run produced, in order. The user's
	// own input is not echoed back.
	Messages []types.Message
	// Blocked reports that the safety gate refused the turn.
	Blocked bool
}

// Run carries the mutable state of one turn through the graph.
type Run struct {
	id       string
	threadID string
	input    RunInput

	state    *types.ConversationState
	provider llm.Provider
	model    string

	emitter      emitter
	streamTokens bool

	toolRounds int
	produced   []types.Message
	blocked    bool
}

// commit appends msg to the thread history and emits it.
func (r *Run) commit(ctx context.Context, msg types.Message) {
	r.state.Append(msg)
	r.produced = append(r.produced, msg)
	r.emitter.Emit(ctx, Event{Type: EventMessage, RunID: r.id, ThreadID: r.threadID, Message: &msg})
}

// Engine executes conversation turns through the safety/reason/tool graph.
type Engine struct {
	models     *llm.Registry
	classifier *guard.Classifier
	override   guard.TopicOverride
	tools      *tools.Registry
	threads    store.ThreadStore
	metrics    *metrics.Collector
	estimator  *llm.Estimator

	cfg    Config
	graph  *Graph
	logger *zap.Logger
	tracer trace.Tracer
}

func NewEngine(
	models *llm.Registry,
	classifier *guard.Classifier,
	override guard.TopicOverride,
	toolReg *tools.Registry,
	threads store.ThreadStore,
	collector *metrics.Collector,
	cfg Config,
	logger *zap.Logger,
) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.applyDefaults()
	e := &Engine{
		models:     models,
		classifier: classifier,
		override:   override,
		tools:      toolReg,
		threads:    threads,
		metrics:    collector,
		estimator:  llm.NewEstimator(),
		cfg:        cfg,
		logger:     logger.With(zap.String("component", "workflow.engine")),
		tracer:     otel.Tracer("agentd/workflow"),
	}
	e.graph = NewGraph(nodeSecurityCheck).
		AddNode(nodeSecurityCheck, e.securityCheck).
		AddNode(nodeBlock, e.block).
		AddNode(nodeReason, e.reason).
		AddNode(nodeToolInvoke, e.toolInvoke).
		AddRouter(nodeSecurityCheck, func(run *Run) string {
			if run.state.LastVerdict != nil && run.state.LastVerdict.IsUnsafe() {
				return nodeBlock
			}
			return nodeReason
		}).
		AddRouter(nodeReason, func(run *Run) string {
			if run.state.NeedsToolCall {
				return nodeToolInvoke
			}
			return End
		}).
		AddEdge(nodeToolInvoke, nodeReason).
		OnStep(e.checkpoint)
	return e
}

// checkpoint persists the thread after every completed node. A client
// disconnect mid-run loses at most the node in flight.
func (e *Engine) checkpoint(ctx context.Context, run *Run) error {
	if err := e.threads.Save(ctx, run.threadID, run.state); err != nil {
		return types.NewError(types.ErrInternal, "checkpoint save failed").WithCause(err)
	}
	return nil
}

// Run executes one turn and returns the produced messages.
func (e *Engine) Run(ctx context.Context, input RunInput) (*Result, error) {
	collect := &collectEmitter{}
	run, err := e.execute(ctx, input, collect)
	if err != nil {
		return nil, err
	}
	return &Result{
		RunID:    run.id,
		ThreadID: run.threadID,
		Messages: collect.messages,
		Blocked:  run.blocked,
	}, nil
}

// Stream executes one turn, emitting events as it progresses. The
// returned channel is closed after the done event. Input validation
// errors are returned synchronously; later failures arrive as error
// events.
func (e *Engine) Stream(ctx context.Context, input RunInput) (<-chan Event, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	ch := make(chan Event, 16)
	go func() {
		defer close(ch)
		em := &channelEmitter{ch: ch}
		run, err := e.execute(ctx, input, em)
		var runID, threadID string
		if run != nil {
			runID, threadID = run.id, run.threadID
		}
		if err != nil {
			typed, ok := types.AsError(err)
			if !ok {
				typed = types.NewError(types.ErrInternal, "run failed").WithCause(err)
			}
			em.Emit(ctx, Event{Type: EventError, RunID: runID, ThreadID: threadID, Err: typed})
		}
		em.Emit(ctx, Event{Type: EventDone, RunID: runID, ThreadID: threadID})
	}()
	return ch, nil
}

func validateInput(input RunInput) error {
	if strings.TrimSpace(input.Message) == "" {
		return types.NewError(types.ErrValidation, "message must not be empty")
	}
	return nil
}

func (e *Engine) execute(ctx context.Context, input RunInput, em emitter) (*Run, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	modelName := input.Model
	if modelName == "" {
		modelName = e.cfg.Model
	}
	provider, model, err := e.models.Get(modelName)
	if err != nil {
		return nil, err
	}

	run := &Run{
		id:           uuid.NewString(),
		threadID:     input.ThreadID,
		input:        input,
		provider:     provider,
		model:        model,
		emitter:      em,
		streamTokens: input.StreamTokens,
	}
	if run.threadID == "" {
		run.threadID = uuid.NewString()
	}

	ctx, span := e.tracer.Start(ctx, "workflow.run")
	defer span.End()

	started := time.Now()
	logger := e.logger.With(
		zap.String("run_id", run.id),
		zap.String("thread_id", run.threadID),
		zap.String("model", run.model),
	)

	release, err := e.threads.Acquire(ctx, run.threadID)
	if err != nil {
		e.metrics.RunCompleted("error", time.Since(started).Seconds())
		return run, err
	}
	defer release()

	state, err := e.threads.Load(ctx, run.threadID)
	if types.IsErrorCode(err, types.ErrNotFound) {
		state = types.NewConversationState()
	} else if err != nil {
		e.metrics.RunCompleted("error", time.Since(started).Seconds())
		return run, err
	}
	run.state = state
	run.state.Append(types.NewHumanMessage(input.Message).WithRunID(run.id))

	if err := e.graph.Execute(ctx, run); err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		logger.Error("run failed", zap.Error(err))
		e.metrics.RunCompleted("error", time.Since(started).Seconds())
		return run, err
	}

	status := "ok"
	if run.blocked {
		status = "blocked"
	}
	e.metrics.RunCompleted(status, time.Since(started).Seconds())
	logger.Info("run completed",
		zap.String("status", status),
		zap.Int("tool_rounds", run.toolRounds),
		zap.Duration("elapsed", time.Since(started)),
	)
	return run, nil
}
