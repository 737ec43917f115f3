package llm

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// Estimator counts prompt tokens for logging and context-size guarding.
// The tiktoken encoding is loaded lazily; when it cannot be loaded (offline
// environments) a character heuristic is used instead.
type Estimator struct {
	encoding string
	once     sync.Once
	enc      *tiktoken.Tiktoken
}

// NewEstimator creates an estimator using the cl100k_base encoding, which is
// close enough for every chat model this service fronts.
func NewEstimator() *Estimator {
	return &Estimator{encoding: "cl100k_base"}
}

// CountTokens estimates the token count of text.
func (e *Estimator) CountTokens(text string) int {
	e.once.Do(func() {
		enc, err := tiktoken.GetEncoding(e.encoding)
		if err == nil {
			e.enc = enc
		}
	})
	if e.enc != nil {
		return len(e.enc.Encode(text, nil, nil))
	}
	// ~4 characters per token for English text
	n := len(text) / 4
	if n == 0 && len(text) > 0 {
		n = 1
	}
	return n
}

// CountRequest estimates the total prompt tokens of a request, including a
// small per-message framing overhead.
func (e *Estimator) CountRequest(req *ChatRequest) int {
	total := 0
	for _, m := range req.Messages {
		total += e.CountTokens(m.Content) + 4
	}
	return total
}
