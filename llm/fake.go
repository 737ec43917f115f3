package llm

import (
	"context"
	"strings"
	"sync"
)

// FakeProvider returns canned responses in order, cycling when exhausted.
// It exists for tests and for running the service without any API key.
type FakeProvider struct {
	mu        sync.Mutex
	responses []ChatResponse
	next      int
}

// NewFakeProvider creates a fake provider with the given responses. With no
// responses it answers with a fixed test string.
func NewFakeProvider(responses ...ChatResponse) *FakeProvider {
	if len(responses) == 0 {
		responses = []ChatResponse{{Content: "This is a test response from the fake model."}}
	}
	return &FakeProvider{responses: responses}
}

func (p *FakeProvider) Name() string { return "fake" }

func (p *FakeProvider) take() ChatResponse {
	p.mu.Lock()
	defer p.mu.Unlock()
	resp := p.responses[p.next%len(p.responses)]
	p.next++
	return resp
}

// Completion returns the next canned response.
func (p *FakeProvider) Completion(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resp := p.take()
	if resp.Model == "" {
		resp.Model = req.Model
	}
	return &resp, nil
}

// Stream splits the next canned response into word-level chunks.
func (p *FakeProvider) Stream(ctx context.Context, req *ChatRequest) (<-chan StreamChunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resp := p.take()

	ch := make(chan StreamChunk)
	go func() {
		defer close(ch)
		words := strings.SplitAfter(resp.Content, " ")
		for _, w := range words {
			if w == "" {
				continue
			}
			if !emit(ctx, ch, StreamChunk{Content: w}) {
				return
			}
		}
		final := StreamChunk{FinishReason: "stop"}
		if len(resp.ToolCalls) > 0 {
			final.ToolCalls = resp.ToolCalls
			final.FinishReason = "tool_calls"
		}
		emit(ctx, ch, final)
	}()
	return ch, nil
}
