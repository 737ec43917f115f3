package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/luminon/agentd/llm"
)

func TestProperty_StagingBufferDrainedAfterRun(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)

	properties.Property("pending tool results are empty after any completed run", prop.ForAll(
		func(toolRounds int, answer string) bool {
			ctx := context.Background()

			// The model asks for a tool toolRounds times, then answers.
			var canned []llm.ChatResponse
			for i := 0; i < toolRounds; i++ {
				canned = append(canned, llm.ChatResponse{
					ToolCalls: []llm.ToolCall{{
						ID:        fmt.Sprintf("call-%d", i),
						Name:      "web_search",
						Arguments: json.RawMessage(`{"query":"q"}`),
					}},
					FinishReason: "tool_calls",
				})
			}
			canned = append(canned, llm.ChatResponse{Content: answer})

			fx := newFixture(t, llm.NewFakeProvider(canned...), []string{"safe"}, Config{})
			res, err := fx.engine.Run(ctx, RunInput{Message: "question"})
			if err != nil {
				t.Logf("run failed: %v", err)
				return false
			}

			state, err := fx.threads.Load(ctx, res.ThreadID)
			if err != nil {
				t.Logf("load failed: %v", err)
				return false
			}
			if len(state.PendingToolResults) != 0 {
				return false
			}
			// Every produced message carries the run id, and history grew by
			// exactly the produced messages plus the user input.
			for _, m := range res.Messages {
				if m.RunID != res.RunID {
					return false
				}
			}
			return len(state.Messages) == len(res.Messages)+1
		},
		gen.IntRange(0, 4),
		gen.AlphaString().SuchThat(func(s string) bool { return s != "" }),
	))

	properties.TestingRun(t)
}
