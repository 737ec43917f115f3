package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry()
	fake := NewFakeProvider()

	require.NoError(t, r.Register("fake-small", fake))
	require.NoError(t, r.Register("fake-large", fake))

	p, model, err := r.Get("fake-large")
	require.NoError(t, err)
	assert.Equal(t, "fake-large", model)
	assert.Equal(t, "fake", p.Name())

	// empty name resolves to the default (first registered)
	_, model, err = r.Get("")
	require.NoError(t, err)
	assert.Equal(t, "fake-small", model)

	_, _, err = r.Get("nope")
	assert.Error(t, err)
}

func TestRegistry_DuplicateAndInvalid(t *testing.T) {
	r := NewRegistry()
	fake := NewFakeProvider()

	require.NoError(t, r.Register("m", fake))
	assert.Error(t, r.Register("m", fake))
	assert.Error(t, r.Register("", fake))
	assert.Error(t, r.Register("n", nil))
}

func TestRegistry_SetDefault(t *testing.T) {
	r := NewRegistry()
	fake := NewFakeProvider()
	require.NoError(t, r.Register("a", fake))
	require.NoError(t, r.Register("b", fake))

	assert.Error(t, r.SetDefault("missing"))
	require.NoError(t, r.SetDefault("b"))
	assert.Equal(t, "b", r.Default())
	assert.Equal(t, []string{"a", "b"}, r.Models())
}

func TestFakeProvider_CyclesResponses(t *testing.T) {
	p := NewFakeProvider(
		ChatResponse{Content: "one"},
		ChatResponse{Content: "two"},
	)

	ctx := context.Background()
	r1, err := p.Completion(ctx, &ChatRequest{Model: "fake"})
	require.NoError(t, err)
	r2, err := p.Completion(ctx, &ChatRequest{Model: "fake"})
	require.NoError(t, err)
	r3, err := p.Completion(ctx, &ChatRequest{Model: "fake"})
	require.NoError(t, err)

	assert.Equal(t, "one", r1.Content)
	assert.Equal(t, "two", r2.Content)
	assert.Equal(t, "one", r3.Content)
}

func TestFakeProvider_Stream(t *testing.T) {
	p := NewFakeProvider(ChatResponse{Content: "hello streaming world"})

	ch, err := p.Stream(context.Background(), &ChatRequest{})
	require.NoError(t, err)

	var content string
	var finish string
	for chunk := range ch {
		content += chunk.Content
		if chunk.FinishReason != "" {
			finish = chunk.FinishReason
		}
	}
	assert.Equal(t, "hello streaming world", content)
	assert.Equal(t, "stop", finish)
}
