package store

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/luminon/agentd/types"
)

// ReleaseFunc returns a thread lease. It is safe to call more than once.
type ReleaseFunc func()

// ThreadStore persists conversation state keyed by thread id.
type ThreadStore interface {
	// Load returns the state for threadID, or a NOT_FOUND error when the
	// thread has never been saved.
	Load(ctx context.Context, threadID string) (*types.ConversationState, error)

	// Save replaces the stored state for threadID.
	Save(ctx context.Context, threadID string, state *types.ConversationState) error

	// Acquire takes the exclusive per-thread lease, blocking until it is
	// available or ctx is done.
	Acquire(ctx context.Context, threadID string) (ReleaseFunc, error)

	// Close releases backend resources.
	Close() error
}

// Feedback is a user score attached to a completed run.
type Feedback struct {
	ID        string            `json:"id"`
	RunID     string            `json:"run_id"`
	Key       string            `json:"key"`
	Score     float64           `json:"score"`
	Kwargs    map[string]string `json:"kwargs,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// FeedbackStore records feedback entries.
type FeedbackStore interface {
	SaveFeedback(ctx context.Context, fb Feedback) error
}

// threadLocker hands out in-process leases, one semaphore per thread id.
// Backends without a native distributed lock embed it.
type threadLocker struct {
	mu     sync.Mutex
	leases map[string]*semaphore.Weighted
}

func newThreadLocker() *threadLocker {
	return &threadLocker{leases: make(map[string]*semaphore.Weighted)}
}

func (l *threadLocker) Acquire(ctx context.Context, threadID string) (ReleaseFunc, error) {
	l.mu.Lock()
	sem, ok := l.leases[threadID]
	if !ok {
		sem = semaphore.NewWeighted(1)
		l.leases[threadID] = sem
	}
	l.mu.Unlock()

	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, types.NewError(types.ErrConflict, "thread lease not acquired").WithCause(err)
	}
	var once sync.Once
	return func() { once.Do(func() { sem.Release(1) }) }, nil
}

func notFound(threadID string) error {
	return types.NewError(types.ErrNotFound, "thread not found: "+threadID)
}
