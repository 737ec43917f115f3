package store

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/luminon/agentd/types"
)

const (
	threadKeyPrefix = "agentd:thread:"
	leaseKeyPrefix  = "agentd:lease:"

	leaseTTL       = 60 * time.Second
	leaseRetryWait = 50 * time.Millisecond
)

// RedisConfig configures the Redis backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// RedisStore persists thread state as JSON values and implements the
// per-thread lease with SET NX plus a TTL, so the lease holds across
// processes sharing the same Redis.
type RedisStore struct {
	client *redis.Client
	logger *zap.Logger
}

func NewRedisStore(cfg RedisConfig, logger *zap.Logger) *RedisStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &RedisStore{
		client: client,
		logger: logger.With(zap.String("component", "store.redis")),
	}
}

// NewRedisStoreFromClient wraps an existing client. Used by tests.
func NewRedisStoreFromClient(client *redis.Client, logger *zap.Logger) *RedisStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStore{client: client, logger: logger.With(zap.String("component", "store.redis"))}
}

func (s *RedisStore) Load(ctx context.Context, threadID string) (*types.ConversationState, error) {
	raw, err := s.client.Get(ctx, threadKeyPrefix+threadID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, notFound(threadID)
	}
	if err != nil {
		return nil, types.NewError(types.ErrInternal, "thread load failed").WithCause(err)
	}
	var state types.ConversationState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, types.NewError(types.ErrInternal, "thread state decode failed").WithCause(err)
	}
	return &state, nil
}

func (s *RedisStore) Save(ctx context.Context, threadID string, state *types.ConversationState) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return types.NewError(types.ErrInternal, "thread state encode failed").WithCause(err)
	}
	if err := s.client.Set(ctx, threadKeyPrefix+threadID, payload, 0).Err(); err != nil {
		return types.NewError(types.ErrInternal, "thread save failed").WithCause(err)
	}
	return nil
}

func (s *RedisStore) Acquire(ctx context.Context, threadID string) (ReleaseFunc, error) {
	key := leaseKeyPrefix + threadID
	token := uuid.NewString()
	for {
		ok, err := s.client.SetNX(ctx, key, token, leaseTTL).Result()
		if err != nil {
			return nil, types.NewError(types.ErrInternal, "thread lease failed").WithCause(err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, types.NewError(types.ErrConflict, "thread lease not acquired").WithCause(ctx.Err())
		case <-time.After(leaseRetryWait):
		}
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			// Delete only our own lease; an expired lease may have been
			// re-acquired by another holder.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			held, err := s.client.Get(ctx, key).Result()
			if err == nil && held == token {
				if err := s.client.Del(ctx, key).Err(); err != nil {
					s.logger.Warn("lease release failed", zap.String("thread_id", threadID), zap.Error(err))
				}
			}
		})
	}
	return release, nil
}

func (s *RedisStore) SaveFeedback(ctx context.Context, fb Feedback) error {
	if fb.ID == "" {
		fb.ID = uuid.NewString()
	}
	if fb.CreatedAt.IsZero() {
		fb.CreatedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(fb)
	if err != nil {
		return types.NewError(types.ErrValidation, "feedback encode failed").WithCause(err)
	}
	key := "agentd:feedback:" + fb.RunID
	if err := s.client.RPush(ctx, key, payload).Err(); err != nil {
		return types.NewError(types.ErrInternal, "feedback save failed").WithCause(err)
	}
	return nil
}

func (s *RedisStore) Close() error { return s.client.Close() }
