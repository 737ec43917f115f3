package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	otelcodes "go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/luminon/agentd/guard"
	"github.com/luminon/agentd/llm"
	"github.com/luminon/agentd/types"
)

// civilRefusal is the fixed answer for the topic override category.
const civilRefusal = "Sorry, I can help with general math but not civil engineering topics."

// securityCheck screens the latest user input. A classifier parse error
// degrades to safe but is logged and counted; an adapter failure aborts
// the run.
func (e *Engine) securityCheck(ctx context.Context, run *Run) error {
	ctx, span := e.tracer.Start(ctx, "workflow.security_check")
	defer span.End()

	verdict, err := e.classifier.Classify(ctx, guard.ReviewUser, run.state.Messages)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return err
	}
	if verdict.Assessment == types.AssessmentError {
		e.metrics.ClassifierError()
		e.logger.Warn("classifier verdict unparseable, treating as safe",
			zap.String("run_id", run.id))
	}
	if human, ok := run.state.LastHumanMessage(); ok {
		verdict = e.override.Apply(verdict, human.Content)
	}
	run.state.LastVerdict = &verdict
	return nil
}

// block ends the turn with a refusal message.
func (e *Engine) block(ctx context.Context, run *Run) error {
	_, span := e.tracer.Start(ctx, "workflow.block")
	defer span.End()

	verdict := run.state.LastVerdict
	for _, cat := range verdict.Categories {
		e.metrics.RunBlocked(cat)
	}
	msg := types.NewAgentMessage(refusalFor(*verdict)).WithRunID(run.id)
	run.commit(ctx, msg)
	run.blocked = true
	run.state.NeedsToolCall = false
	return nil
}

func refusalFor(verdict types.Verdict) string {
	for _, cat := range verdict.Categories {
		if cat == guard.OverrideCategory {
			return civilRefusal
		}
	}
	return fmt.Sprintf("This request was flagged as unsafe (%s). I can't help with that.",
		strings.Join(verdict.Categories, ", "))
}

// reason asks the model for the next step: either a final answer or a
// batch of tool calls. Final answers pass through the output safety gate
// before they are committed.
func (e *Engine) reason(ctx context.Context, run *Run) error {
	ctx, span := e.tracer.Start(ctx, "workflow.reason")
	defer span.End()

	run.state.MergePending()
	req := e.buildRequest(run)
	e.logger.Debug("prompt assembled",
		zap.String("run_id", run.id),
		zap.Int("messages", len(req.Messages)),
		zap.Int("prompt_tokens_estimate", e.estimator.CountRequest(req)),
	)

	var (
		resp *llm.ChatResponse
		err  error
	)
	if run.streamTokens {
		resp, err = e.streamCompletion(ctx, run, req)
	} else {
		resp, err = run.provider.Completion(ctx, req)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return err
	}

	candidate := types.NewAgentMessage(resp.Content).WithRunID(run.id)
	if len(resp.ToolCalls) > 0 {
		candidate = candidate.WithToolCalls(conversationToolCalls(resp.ToolCalls))
	}

	// Every reason output is gated, tool-call requests included. An unsafe
	// verdict wins over a tool-call request: the refusal replaces the
	// candidate and its calls never run.
	gated := append(run.state.Clone().Messages, candidate)
	verdict, err := e.classifier.Classify(ctx, guard.ReviewAgent, gated)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return err
	}
	if verdict.Assessment == types.AssessmentError {
		e.metrics.ClassifierError()
		e.logger.Warn("output gate verdict unparseable, treating as safe",
			zap.String("run_id", run.id))
	}
	if verdict.IsUnsafe() {
		for _, cat := range verdict.Categories {
			e.metrics.RunBlocked(cat)
		}
		run.state.LastVerdict = &verdict
		run.blocked = true
		candidate = types.NewAgentMessage(refusalFor(verdict)).WithRunID(run.id)
	}

	run.state.NeedsToolCall = len(candidate.ToolCalls) > 0
	run.commit(ctx, candidate)
	return nil
}

// toolInvoke runs every tool call from the last agent message. Results
// are staged, not merged; the next reason pass folds them into history.
// Tool failures stay in band as tool-role error messages.
func (e *Engine) toolInvoke(ctx context.Context, run *Run) error {
	ctx, span := e.tracer.Start(ctx, "workflow.tool_invoke")
	defer span.End()

	if run.toolRounds >= e.cfg.MaxToolRounds {
		err := types.NewError(types.ErrToolLoopExceeded,
			fmt.Sprintf("tool loop exceeded %d rounds", e.cfg.MaxToolRounds))
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return err
	}
	run.toolRounds++

	last, ok := run.state.LastMessage()
	if !ok || len(last.ToolCalls) == 0 {
		return types.NewError(types.ErrInternal, "tool node reached without pending tool calls")
	}

	now := time.Now().UTC()
	for _, call := range last.ToolCalls {
		var (
			content string
			outcome = "ok"
		)
		tool, found := e.tools.Get(call.Name)
		if !found {
			content = fmt.Sprintf("tool error: unknown tool %q", call.Name)
			outcome = "unknown"
		} else {
			out, err := tool.Invoke(ctx, call)
			if err != nil {
				content = "tool error: " + err.Error()
				outcome = "error"
				e.logger.Warn("tool invocation failed",
					zap.String("run_id", run.id),
					zap.String("tool", call.Name),
					zap.Error(err))
			} else {
				content = annotateToolResult(out, now)
			}
		}
		e.metrics.ToolInvoked(call.Name, outcome)

		msg := types.NewToolMessage(call.ID, content).WithRunID(run.id)
		run.state.StageToolResults(msg)
		run.produced = append(run.produced, msg)
		run.emitter.Emit(ctx, Event{Type: EventMessage, RunID: run.id, ThreadID: run.threadID, Message: &msg})
	}
	run.state.NeedsToolCall = false
	return nil
}

// streamCompletion forwards token chunks as events while assembling the
// complete response.
func (e *Engine) streamCompletion(ctx context.Context, run *Run, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	ch, err := run.provider.Stream(ctx, req)
	if err != nil {
		return nil, err
	}
	var (
		content   strings.Builder
		toolCalls []llm.ToolCall
		finish    string
	)
	for chunk := range ch {
		if chunk.Err != nil {
			return nil, chunk.Err
		}
		if chunk.Content != "" {
			content.WriteString(chunk.Content)
			e.metrics.TokenStreamed()
			if !run.emitter.Emit(ctx, Event{Type: EventToken, RunID: run.id, ThreadID: run.threadID, Token: chunk.Content}) {
				return nil, types.NewError(types.ErrInternal, "stream consumer gone").WithCause(ctx.Err())
			}
		}
		if len(chunk.ToolCalls) > 0 {
			toolCalls = chunk.ToolCalls
		}
		if chunk.FinishReason != "" {
			finish = chunk.FinishReason
		}
	}
	return &llm.ChatResponse{
		Model:        run.model,
		Content:      content.String(),
		ToolCalls:    toolCalls,
		FinishReason: finish,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// buildRequest maps conversation history onto the chat wire format,
// prefixed by the system preamble.
func (e *Engine) buildRequest(run *Run) *llm.ChatRequest {
	messages := make([]llm.ChatMessage, 0, len(run.state.Messages)+1)
	messages = append(messages, llm.ChatMessage{
		Role:    llm.WireRoleSystem,
		Content: e.systemPreamble(time.Now().UTC()),
	})
	messages = append(messages, wireMessages(run.state.Messages)...)

	req := &llm.ChatRequest{
		Model:       run.model,
		Messages:    messages,
		MaxTokens:   e.cfg.MaxTokens,
		Temperature: e.cfg.Temperature,
	}
	if e.tools != nil {
		req.Tools = e.tools.Schemas()
	}
	return req
}

func wireMessages(msgs []types.Message) []llm.ChatMessage {
	out := make([]llm.ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case types.RoleHuman:
			out = append(out, llm.ChatMessage{Role: llm.WireRoleUser, Content: m.Content})
		case types.RoleAgent:
			cm := llm.ChatMessage{Role: llm.WireRoleAssistant, Content: m.Content}
			for _, tc := range m.ToolCalls {
				cm.ToolCalls = append(cm.ToolCalls, llm.ToolCall{
					ID:        tc.ID,
					Name:      tc.Name,
					Arguments: tc.Arguments,
				})
			}
			out = append(out, cm)
		case types.RoleTool:
			out = append(out, llm.ChatMessage{
				Role:       llm.WireRoleTool,
				Content:    m.Content,
				ToolCallID: m.ToolCallID,
			})
		case types.RoleCustom:
			// application metadata, never sent to the model
		}
	}
	return out
}

func conversationToolCalls(calls []llm.ToolCall) []types.ToolCall {
	out := make([]types.ToolCall, 0, len(calls))
	for _, c := range calls {
		out = append(out, types.ToolCall{ID: c.ID, Name: c.Name, Arguments: c.Arguments})
	}
	return out
}

// systemPreamble sets the assistant's scope and the current date so
// date math in search results is anchored.
func (e *Engine) systemPreamble(now time.Time) string {
	var b strings.Builder
	b.WriteString("You are a helpful research assistant for general mathematics questions, with the ability to search the web for information.\n")
	fmt.Fprintf(&b, "Today's date is %s.\n\n", now.Format("Monday, January 2, 2006"))
	b.WriteString("NOTE: THE USER CAN'T SEE THE TOOL RESPONSE.\n\n")
	b.WriteString("A few things to remember:\n")
	b.WriteString("- Do not answer questions about civil engineering topics. Politely refuse and offer to help with general math instead.\n")
	b.WriteString("- Please include markdown-formatted links to any citations used in your response. Only include one or two citations per response unless more are needed.\n")
	b.WriteString("- Only use tool calls when you need information you do not already have.")
	return b.String()
}

// annotateToolResult stamps a result with the invocation time and, when
// the text mentions both 2024 and 2025, a disambiguation warning so the
// model does not mix stale and current figures.
func annotateToolResult(content string, now time.Time) string {
	var b strings.Builder
	if strings.Contains(content, "2024") && strings.Contains(content, "2025") {
		b.WriteString("Warning: these results mention both 2024 and 2025. Prefer the most recent information and state which year a figure refers to.\n\n")
	}
	fmt.Fprintf(&b, "Current timestamp: %s\n\n", now.Format(time.RFC3339))
	b.WriteString(content)
	return b.String()
}
