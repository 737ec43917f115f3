package store

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/luminon/agentd/types"
)

// MemoryStore keeps everything in process memory. It is the default
// backend for tests and for running without a database.
type MemoryStore struct {
	mu       sync.RWMutex
	threads  map[string]*types.ConversationState
	feedback []Feedback
	locker   *threadLocker
	logger   *zap.Logger
}

func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryStore{
		threads: make(map[string]*types.ConversationState),
		locker:  newThreadLocker(),
		logger:  logger.With(zap.String("component", "store.memory")),
	}
}

func (s *MemoryStore) Load(_ context.Context, threadID string) (*types.ConversationState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.threads[threadID]
	if !ok {
		return nil, notFound(threadID)
	}
	return state.Clone(), nil
}

func (s *MemoryStore) Save(_ context.Context, threadID string, state *types.ConversationState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threads[threadID] = state.Clone()
	return nil
}

func (s *MemoryStore) Acquire(ctx context.Context, threadID string) (ReleaseFunc, error) {
	return s.locker.Acquire(ctx, threadID)
}

func (s *MemoryStore) SaveFeedback(_ context.Context, fb Feedback) error {
	if fb.ID == "" {
		fb.ID = uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feedback = append(s.feedback, fb)
	return nil
}

// FeedbackByRun returns recorded feedback for a run id, newest last.
func (s *MemoryStore) FeedbackByRun(runID string) []Feedback {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Feedback
	for _, fb := range s.feedback {
		if fb.RunID == runID {
			out = append(out, fb)
		}
	}
	return out
}

func (s *MemoryStore) Close() error { return nil }
