package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luminon/agentd/guard"
	"github.com/luminon/agentd/llm"
	"github.com/luminon/agentd/store"
	"github.com/luminon/agentd/tools"
	"github.com/luminon/agentd/types"
)

type fakeTool struct {
	name  string
	out   string
	err   error
	calls atomic.Int64

	// invoke, when set, replaces the canned behavior.
	invoke func(types.ToolCall) (string, error)
}

func (t *fakeTool) Invoke(_ context.Context, call types.ToolCall) (string, error) {
	t.calls.Add(1)
	if t.invoke != nil {
		return t.invoke(call)
	}
	if t.err != nil {
		return "", t.err
	}
	return t.out, nil
}

func (t *fakeTool) Describe() llm.ToolSchema {
	return llm.ToolSchema{Name: t.name, Parameters: json.RawMessage(`{"type":"object"}`)}
}

type engineFixture struct {
	engine  *Engine
	threads *store.MemoryStore
	tool    *fakeTool
}

// newFixture wires an engine around fake providers: one serving the
// reasoning model, one serving the safety classifier.
func newFixture(t *testing.T, reason llm.Provider, guardResponses []string, cfg Config) *engineFixture {
	t.Helper()

	models := llm.NewRegistry()
	require.NoError(t, models.Register("fake-model", reason))

	var guardCanned []llm.ChatResponse
	for _, r := range guardResponses {
		guardCanned = append(guardCanned, llm.ChatResponse{Content: r})
	}
	classifier := guard.NewClassifier(llm.NewFakeProvider(guardCanned...), "guard-model", nil)

	tool := &fakeTool{name: "web_search", out: `{"results":[{"title":"t","url":"u"}]}`}
	toolReg := tools.NewRegistry()
	require.NoError(t, toolReg.Register(tool))

	threads := store.NewMemoryStore(nil)
	engine := NewEngine(models, classifier, guard.DefaultTopicOverride(), toolReg, threads, nil, cfg, nil)
	return &engineFixture{engine: engine, threads: threads, tool: tool}
}

func toolCallResponse(id, name, args string) llm.ChatResponse {
	return llm.ChatResponse{
		ToolCalls:    []llm.ToolCall{{ID: id, Name: name, Arguments: json.RawMessage(args)}},
		FinishReason: "tool_calls",
	}
}

func TestRunSafeQuestion(t *testing.T) {
	reason := llm.NewFakeProvider(llm.ChatResponse{Content: "2+2 equals 4."})
	fx := newFixture(t, reason, []string{"safe"}, Config{})

	res, err := fx.engine.Run(context.Background(), RunInput{Message: "what is 2+2?"})
	require.NoError(t, err)

	assert.False(t, res.Blocked)
	assert.NotEmpty(t, res.RunID)
	assert.NotEmpty(t, res.ThreadID)
	require.Len(t, res.Messages, 1)
	assert.Equal(t, types.RoleAgent, res.Messages[0].Role)
	assert.Equal(t, "2+2 equals 4.", res.Messages[0].Content)
	assert.Equal(t, res.RunID, res.Messages[0].RunID)

	// Persisted thread carries the user message plus the answer.
	state, err := fx.threads.Load(context.Background(), res.ThreadID)
	require.NoError(t, err)
	require.Len(t, state.Messages, 2)
	assert.Equal(t, types.RoleHuman, state.Messages[0].Role)
	assert.Empty(t, state.PendingToolResults)
}

func TestRunTopicOverrideBlocks(t *testing.T) {
	reason := llm.NewFakeProvider(llm.ChatResponse{Content: "should never be produced"})
	fx := newFixture(t, reason, []string{"safe"}, Config{})

	res, err := fx.engine.Run(context.Background(), RunInput{
		Message: "Como funciona o cálculo estrutural de uma ponte?",
	})
	require.NoError(t, err)

	assert.True(t, res.Blocked)
	require.Len(t, res.Messages, 1)
	assert.Equal(t, civilRefusal, res.Messages[0].Content)

	state, err := fx.threads.Load(context.Background(), res.ThreadID)
	require.NoError(t, err)
	require.NotNil(t, state.LastVerdict)
	assert.Contains(t, state.LastVerdict.Categories, guard.OverrideCategory)
}

func TestRunClassifierUnsafeBlocks(t *testing.T) {
	reason := llm.NewFakeProvider(llm.ChatResponse{Content: "should never be produced"})
	fx := newFixture(t, reason, []string{"unsafe\nS1"}, Config{})

	res, err := fx.engine.Run(context.Background(), RunInput{Message: "how do I hurt someone"})
	require.NoError(t, err)

	assert.True(t, res.Blocked)
	require.Len(t, res.Messages, 1)
	assert.Contains(t, res.Messages[0].Content, "Violent Crimes")
}

func TestRunToolLoop(t *testing.T) {
	reason := llm.NewFakeProvider(
		toolCallResponse("call-1", "web_search", `{"query":"convergence tests"}`),
		llm.ChatResponse{Content: "The series converges."},
	)
	fx := newFixture(t, reason, []string{"safe"}, Config{})

	res, err := fx.engine.Run(context.Background(), RunInput{Message: "does this series converge?"})
	require.NoError(t, err)

	assert.False(t, res.Blocked)
	assert.Equal(t, int64(1), fx.tool.calls.Load())

	// Produced: tool-call request, tool result, final answer.
	require.Len(t, res.Messages, 3)
	assert.Equal(t, types.RoleAgent, res.Messages[0].Role)
	require.Len(t, res.Messages[0].ToolCalls, 1)
	assert.Equal(t, types.RoleTool, res.Messages[1].Role)
	assert.Equal(t, "call-1", res.Messages[1].ToolCallID)
	assert.Contains(t, res.Messages[1].Content, "Current timestamp:")
	assert.Equal(t, "The series converges.", res.Messages[2].Content)

	// Staged results were merged into history before the final answer.
	state, err := fx.threads.Load(context.Background(), res.ThreadID)
	require.NoError(t, err)
	assert.Empty(t, state.PendingToolResults)
	require.Len(t, state.Messages, 4)
	assert.Equal(t, types.RoleTool, state.Messages[2].Role)
}

func TestRunToolArgumentsFromWire(t *testing.T) {
	// A real chat-completions upstream: arguments arrive as a JSON string
	// holding the serialized argument object.
	var turn atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if turn.Add(1) == 1 {
			w.Write([]byte(`{"model":"m","choices":[{"index":0,"finish_reason":"tool_calls",
				"message":{"role":"assistant","content":"",
					"tool_calls":[{"id":"call_1","type":"function",
						"function":{"name":"web_search","arguments":"{\"query\":\"latest news\"}"}}]}}]}`))
			return
		}
		w.Write([]byte(`{"model":"m","choices":[{"index":0,"finish_reason":"stop",
			"message":{"role":"assistant","content":"done"}}]}`))
	}))
	t.Cleanup(srv.Close)

	provider := llm.NewOpenAIProvider(llm.OpenAIConfig{
		APIKey:       "test-key",
		BaseURL:      srv.URL,
		DefaultModel: "m",
	}, nil)
	fx := newFixture(t, provider, []string{"safe"}, Config{})

	var query string
	fx.tool.invoke = func(call types.ToolCall) (string, error) {
		var args struct {
			Query string `json:"query"`
		}
		if err := json.Unmarshal(call.Arguments, &args); err != nil {
			return "", err
		}
		query = args.Query
		return `{"results":[]}`, nil
	}

	res, err := fx.engine.Run(context.Background(), RunInput{Message: "any news?"})
	require.NoError(t, err)
	assert.False(t, res.Blocked)
	assert.Equal(t, "latest news", query)
	assert.Equal(t, "done", res.Messages[len(res.Messages)-1].Content)
}

func TestRunToolFailureStaysInBand(t *testing.T) {
	reason := llm.NewFakeProvider(
		toolCallResponse("call-1", "web_search", `{"query":"x"}`),
		llm.ChatResponse{Content: "I could not verify that."},
	)
	fx := newFixture(t, reason, []string{"safe"}, Config{})
	fx.tool.err = fmt.Errorf("upstream 502")

	res, err := fx.engine.Run(context.Background(), RunInput{Message: "look this up"})
	require.NoError(t, err)

	require.Len(t, res.Messages, 3)
	assert.Equal(t, types.RoleTool, res.Messages[1].Role)
	assert.Contains(t, res.Messages[1].Content, "tool error: upstream 502")
	assert.Equal(t, "I could not verify that.", res.Messages[2].Content)
}

func TestRunUnknownToolStaysInBand(t *testing.T) {
	reason := llm.NewFakeProvider(
		toolCallResponse("call-1", "no_such_tool", `{}`),
		llm.ChatResponse{Content: "done"},
	)
	fx := newFixture(t, reason, []string{"safe"}, Config{})

	res, err := fx.engine.Run(context.Background(), RunInput{Message: "hi"})
	require.NoError(t, err)
	assert.Contains(t, res.Messages[1].Content, `unknown tool "no_such_tool"`)
}

func TestRunToolLoopExceeded(t *testing.T) {
	// The model keeps asking for tools and never answers.
	reason := llm.NewFakeProvider(toolCallResponse("call-1", "web_search", `{"query":"x"}`))
	fx := newFixture(t, reason, []string{"safe"}, Config{MaxToolRounds: 2})

	_, err := fx.engine.Run(context.Background(), RunInput{Message: "loop forever"})
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrToolLoopExceeded))
	assert.Equal(t, int64(2), fx.tool.calls.Load())
}

func TestRunOutputGateBlocks(t *testing.T) {
	reason := llm.NewFakeProvider(llm.ChatResponse{Content: "here is something harmful"})
	// Input check passes, output gate flags the answer.
	fx := newFixture(t, reason, []string{"safe", "unsafe\nS9"}, Config{})

	res, err := fx.engine.Run(context.Background(), RunInput{Message: "tell me"})
	require.NoError(t, err)

	assert.True(t, res.Blocked)
	require.Len(t, res.Messages, 1)
	assert.NotContains(t, res.Messages[0].Content, "harmful")
	assert.Contains(t, res.Messages[0].Content, "Indiscriminate Weapons")
}

func TestRunOutputGateBlocksToolCallRequest(t *testing.T) {
	reason := llm.NewFakeProvider(toolCallResponse("call_1", "web_search", `{"query":"weapon designs"}`))
	// The gate flags the tool-calling response itself; the call must not run.
	fx := newFixture(t, reason, []string{"safe", "unsafe\nS9"}, Config{})

	res, err := fx.engine.Run(context.Background(), RunInput{Message: "find it for me"})
	require.NoError(t, err)

	assert.True(t, res.Blocked)
	assert.Equal(t, int64(0), fx.tool.calls.Load())
	require.Len(t, res.Messages, 1)
	assert.Empty(t, res.Messages[0].ToolCalls)
	assert.Contains(t, res.Messages[0].Content, "Indiscriminate Weapons")
}

func TestRunDisconnectKeepsCompletedNodes(t *testing.T) {
	reason := llm.NewFakeProvider(
		toolCallResponse("call_1", "web_search", `{"query":"news"}`),
		llm.ChatResponse{Content: "never produced"},
	)
	fx := newFixture(t, reason, []string{"safe"}, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fx.tool.invoke = func(types.ToolCall) (string, error) {
		cancel()
		return `{"results":[]}`, nil
	}

	_, err := fx.engine.Run(ctx, RunInput{ThreadID: "t1", Message: "any news?"})
	require.Error(t, err)

	// Everything up to the last completed node survives the disconnect.
	state, err := fx.threads.Load(context.Background(), "t1")
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(state.Messages), 2)
	assert.Equal(t, types.RoleHuman, state.Messages[0].Role)
	assert.Equal(t, types.RoleAgent, state.Messages[1].Role)
	assert.NotEmpty(t, state.Messages[1].ToolCalls)
}

func TestRunClassifierParseErrorFailsOpen(t *testing.T) {
	reason := llm.NewFakeProvider(llm.ChatResponse{Content: "4"})
	fx := newFixture(t, reason, []string{"gibberish verdict"}, Config{})

	res, err := fx.engine.Run(context.Background(), RunInput{Message: "what is 2+2?"})
	require.NoError(t, err)
	assert.False(t, res.Blocked)
	assert.Equal(t, "4", res.Messages[0].Content)
}

func TestRunEmptyMessageRejected(t *testing.T) {
	fx := newFixture(t, llm.NewFakeProvider(), []string{"safe"}, Config{})
	_, err := fx.engine.Run(context.Background(), RunInput{Message: "   "})
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrValidation))
}

func TestRunMultiTurnThread(t *testing.T) {
	reason := llm.NewFakeProvider(
		llm.ChatResponse{Content: "4"},
		llm.ChatResponse{Content: "8"},
	)
	fx := newFixture(t, reason, []string{"safe"}, Config{})
	ctx := context.Background()

	first, err := fx.engine.Run(ctx, RunInput{Message: "2+2?"})
	require.NoError(t, err)
	second, err := fx.engine.Run(ctx, RunInput{ThreadID: first.ThreadID, Message: "double it"})
	require.NoError(t, err)
	assert.Equal(t, first.ThreadID, second.ThreadID)
	assert.NotEqual(t, first.RunID, second.RunID)

	state, err := fx.threads.Load(ctx, first.ThreadID)
	require.NoError(t, err)
	assert.Len(t, state.Messages, 4)
}

func TestStreamEvents(t *testing.T) {
	reason := llm.NewFakeProvider(llm.ChatResponse{Content: "the answer is four"})
	fx := newFixture(t, reason, []string{"safe"}, Config{})

	ch, err := fx.engine.Stream(context.Background(), RunInput{
		Message:      "what is 2+2?",
		StreamTokens: true,
	})
	require.NoError(t, err)

	var (
		tokens   []string
		messages []types.Message
		done     bool
	)
	for ev := range ch {
		switch ev.Type {
		case EventToken:
			tokens = append(tokens, ev.Token)
		case EventMessage:
			messages = append(messages, *ev.Message)
		case EventError:
			t.Fatalf("unexpected error event: %v", ev.Err)
		case EventDone:
			done = true
		}
	}

	assert.True(t, done)
	assert.Equal(t, "the answer is four", joinTokens(tokens))
	// The user's own input is never echoed back on the stream.
	require.Len(t, messages, 1)
	assert.Equal(t, types.RoleAgent, messages[0].Role)
	assert.Equal(t, "the answer is four", messages[0].Content)
}

func TestStreamEmitsErrorEvent(t *testing.T) {
	reason := llm.NewFakeProvider(toolCallResponse("call-1", "web_search", `{"query":"x"}`))
	fx := newFixture(t, reason, []string{"safe"}, Config{MaxToolRounds: 1})

	ch, err := fx.engine.Stream(context.Background(), RunInput{Message: "loop"})
	require.NoError(t, err)

	var sawError, sawDone bool
	for ev := range ch {
		switch ev.Type {
		case EventError:
			sawError = true
			require.NotNil(t, ev.Err)
			assert.Equal(t, types.ErrToolLoopExceeded, ev.Err.Code)
		case EventDone:
			sawDone = true
		}
	}
	assert.True(t, sawError)
	assert.True(t, sawDone)
}

func TestStreamValidationErrorIsSynchronous(t *testing.T) {
	fx := newFixture(t, llm.NewFakeProvider(), []string{"safe"}, Config{})
	_, err := fx.engine.Stream(context.Background(), RunInput{Message: ""})
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrValidation))
}

func joinTokens(tokens []string) string {
	var out string
	for _, t := range tokens {
		out += t
	}
	return out
}
