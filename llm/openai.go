package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/luminon/agentd/types"
)

// OpenAIConfig configures an OpenAI-compatible chat-completions backend.
// Any provider speaking that wire format (OpenAI, Groq, local gateways)
// works by pointing BaseURL at it.
type OpenAIConfig struct {
	ProviderName string        `yaml:"provider_name"`
	APIKey       string        `yaml:"api_key"`
	BaseURL      string        `yaml:"base_url"`
	DefaultModel string        `yaml:"default_model"`
	Timeout      time.Duration `yaml:"timeout"`
	Temperature  float32       `yaml:"temperature"`
}

// OpenAIProvider implements Provider against an OpenAI-compatible API.
type OpenAIProvider struct {
	cfg    OpenAIConfig
	client *http.Client
	logger *zap.Logger
}

// NewOpenAIProvider creates a provider with defaults applied.
func NewOpenAIProvider(cfg OpenAIConfig, logger *zap.Logger) *OpenAIProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com"
	}
	if cfg.ProviderName == "" {
		cfg.ProviderName = "openai"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OpenAIProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		logger: logger.With(zap.String("provider", cfg.ProviderName)),
	}
}

func (p *OpenAIProvider) Name() string { return p.cfg.ProviderName }

// wire structs for the chat-completions format

type oaTool struct {
	Type     string     `json:"type"`
	Function ToolSchema `json:"function"`
}

type oaToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type,omitempty"`
	Function struct {
		Name string `json:"name"`
		// Arguments is a JSON string holding the serialized argument
		// object, per the chat-completions wire format.
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type oaMessage struct {
	Role       WireRole     `json:"role"`
	Content    string       `json:"content"`
	ToolCalls  []oaToolCall `json:"tool_calls,omitempty"`
	ToolCallID string       `json:"tool_call_id,omitempty"`
}

type oaRequest struct {
	Model       string      `json:"model"`
	Messages    []oaMessage `json:"messages"`
	Tools       []oaTool    `json:"tools,omitempty"`
	MaxTokens   int         `json:"max_tokens,omitempty"`
	Temperature float32     `json:"temperature,omitempty"`
	Stream      bool        `json:"stream,omitempty"`
}

type oaResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Created int64  `json:"created"`
	Choices []struct {
		Index        int        `json:"index"`
		FinishReason string     `json:"finish_reason"`
		Message      *oaMessage `json:"message,omitempty"`
		Delta        *oaMessage `json:"delta,omitempty"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage,omitempty"`
}

func (p *OpenAIProvider) buildBody(req *ChatRequest, stream bool) oaRequest {
	model := req.Model
	if model == "" {
		model = p.cfg.DefaultModel
	}
	temperature := req.Temperature
	if temperature == 0 {
		temperature = p.cfg.Temperature
	}
	body := oaRequest{
		Model:       model,
		MaxTokens:   req.MaxTokens,
		Temperature: temperature,
		Stream:      stream,
	}
	body.Messages = make([]oaMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		body.Messages = append(body.Messages, oaMessage{
			Role:       m.Role,
			Content:    m.Content,
			ToolCalls:  toWireToolCalls(m.ToolCalls),
			ToolCallID: m.ToolCallID,
		})
	}
	for _, t := range req.Tools {
		body.Tools = append(body.Tools, oaTool{Type: "function", Function: t})
	}
	return body
}

func toWireToolCalls(calls []ToolCall) []oaToolCall {
	if len(calls) == 0 {
		return nil
	}
	out := make([]oaToolCall, 0, len(calls))
	for _, c := range calls {
		tc := oaToolCall{ID: c.ID, Type: "function"}
		tc.Function.Name = c.Name
		tc.Function.Arguments = string(c.Arguments)
		out = append(out, tc)
	}
	return out
}

func fromWireToolCalls(calls []oaToolCall) []ToolCall {
	if len(calls) == 0 {
		return nil
	}
	out := make([]ToolCall, 0, len(calls))
	for _, c := range calls {
		out = append(out, ToolCall{ID: c.ID, Name: c.Function.Name, Arguments: json.RawMessage(c.Function.Arguments)})
	}
	return out
}

// completionsURL joins the configured base URL, which already carries the
// API version segment ("https://api.openai.com/v1"), with the completions
// path.
func completionsURL(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + "/chat/completions"
}

func (p *OpenAIProvider) post(ctx context.Context, req *ChatRequest, stream bool) (*http.Response, error) {
	payload, err := json.Marshal(p.buildBody(req, stream))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	endpoint := completionsURL(p.cfg.BaseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, types.NewError(types.ErrAdapterFailure, "generation request failed").
			WithCause(err).WithRetryable(true)
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, types.NewError(types.ErrAdapterFailure,
			fmt.Sprintf("generation error: status=%d body=%s", resp.StatusCode, string(errBody))).
			WithRetryable(resp.StatusCode >= 500)
	}
	return resp, nil
}

// Completion performs a non-streaming chat completion.
func (p *OpenAIProvider) Completion(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	resp, err := p.post(ctx, req, false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var oaResp oaResponse
	if err := json.NewDecoder(resp.Body).Decode(&oaResp); err != nil {
		return nil, types.NewError(types.ErrAdapterFailure, "failed to decode response").WithCause(err)
	}
	if len(oaResp.Choices) == 0 {
		return nil, types.NewError(types.ErrAdapterFailure, "no choices in response")
	}

	choice := oaResp.Choices[0]
	out := &ChatResponse{
		Model:        oaResp.Model,
		FinishReason: choice.FinishReason,
	}
	if choice.Message != nil {
		out.Content = choice.Message.Content
		out.ToolCalls = fromWireToolCalls(choice.Message.ToolCalls)
	}
	if oaResp.Usage != nil {
		out.Usage = ChatUsage{
			PromptTokens:     oaResp.Usage.PromptTokens,
			CompletionTokens: oaResp.Usage.CompletionTokens,
			TotalTokens:      oaResp.Usage.TotalTokens,
		}
	}
	if oaResp.Created != 0 {
		out.CreatedAt = time.Unix(oaResp.Created, 0)
	}
	return out, nil
}

// Stream performs a streaming chat completion over SSE. Tool call deltas are
// accumulated per index and emitted on the final chunk so the consumer sees
// complete calls.
func (p *OpenAIProvider) Stream(ctx context.Context, req *ChatRequest) (<-chan StreamChunk, error) {
	resp, err := p.post(ctx, req, true)
	if err != nil {
		return nil, err
	}

	ch := make(chan StreamChunk)
	go func() {
		defer resp.Body.Close()
		defer close(ch)

		var pending []ToolCall
		reader := bufio.NewReader(resp.Body)
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				if err != io.EOF {
					emit(ctx, ch, StreamChunk{Err: types.NewError(types.ErrAdapterFailure, "stream read failed").WithCause(err)})
				}
				return
			}
			line = strings.TrimSpace(line)
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == "[DONE]" {
				return
			}

			var oaResp oaResponse
			if err := json.Unmarshal([]byte(data), &oaResp); err != nil {
				emit(ctx, ch, StreamChunk{Err: types.NewError(types.ErrAdapterFailure, "malformed stream chunk").WithCause(err)})
				return
			}
			for _, choice := range oaResp.Choices {
				chunk := StreamChunk{FinishReason: choice.FinishReason}
				if choice.Delta != nil {
					chunk.Content = choice.Delta.Content
					pending = mergeToolCallDeltas(pending, choice.Delta.ToolCalls)
				}
				if choice.FinishReason != "" && len(pending) > 0 {
					chunk.ToolCalls = pending
					pending = nil
				}
				if !emit(ctx, ch, chunk) {
					return
				}
			}
		}
	}()
	return ch, nil
}

func emit(ctx context.Context, ch chan<- StreamChunk, chunk StreamChunk) bool {
	select {
	case <-ctx.Done():
		return false
	case ch <- chunk:
		return true
	}
}

// mergeToolCallDeltas folds streamed tool-call fragments into whole calls.
// The wire format sends the id and name first, then fragments of the
// arguments string; the decoded fragments concatenate into the serialized
// argument object.
func mergeToolCallDeltas(pending []ToolCall, deltas []oaToolCall) []ToolCall {
	for _, d := range deltas {
		if d.ID != "" {
			pending = append(pending, ToolCall{ID: d.ID, Name: d.Function.Name, Arguments: json.RawMessage(d.Function.Arguments)})
			continue
		}
		if len(pending) == 0 {
			continue
		}
		last := &pending[len(pending)-1]
		last.Arguments = append(last.Arguments, d.Function.Arguments...)
	}
	return pending
}
