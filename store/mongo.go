package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"

	"github.com/luminon/agentd/types"
)

// MongoConfig configures the MongoDB backend.
type MongoConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

type mongoThreadDoc struct {
	ThreadID  string    `bson:"_id"`
	State     []byte    `bson:"state"`
	UpdatedAt time.Time `bson:"updated_at"`
}

type mongoFeedbackDoc struct {
	ID        string            `bson:"_id"`
	RunID     string            `bson:"run_id"`
	Key       string            `bson:"key"`
	Score     float64           `bson:"score"`
	Kwargs    map[string]string `bson:"kwargs,omitempty"`
	CreatedAt time.Time         `bson:"created_at"`
}

// MongoStore persists threads and feedback in MongoDB collections. The
// per-thread lease is process local, same as the SQL backend.
type MongoStore struct {
	client   *mongo.Client
	threads  *mongo.Collection
	feedback *mongo.Collection
	locker   *threadLocker
	logger   *zap.Logger
}

func NewMongoStore(cfg MongoConfig, logger *zap.Logger) (*MongoStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client, err := mongo.Connect(options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, types.NewError(types.ErrInternal, "mongo connect failed").WithCause(err)
	}
	db := client.Database(cfg.Database)
	return &MongoStore{
		client:   client,
		threads:  db.Collection("threads"),
		feedback: db.Collection("feedback"),
		locker:   newThreadLocker(),
		logger:   logger.With(zap.String("component", "store.mongo")),
	}, nil
}

func (s *MongoStore) Load(ctx context.Context, threadID string) (*types.ConversationState, error) {
	var doc mongoThreadDoc
	err := s.threads.FindOne(ctx, bson.M{"_id": threadID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, notFound(threadID)
	}
	if err != nil {
		return nil, types.NewError(types.ErrInternal, "thread load failed").WithCause(err)
	}
	var state types.ConversationState
	if err := json.Unmarshal(doc.State, &state); err != nil {
		return nil, types.NewError(types.ErrInternal, "thread state decode failed").WithCause(err)
	}
	return &state, nil
}

func (s *MongoStore) Save(ctx context.Context, threadID string, state *types.ConversationState) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return types.NewError(types.ErrInternal, "thread state encode failed").WithCause(err)
	}
	doc := mongoThreadDoc{ThreadID: threadID, State: payload, UpdatedAt: time.Now().UTC()}
	_, err = s.threads.ReplaceOne(ctx, bson.M{"_id": threadID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return types.NewError(types.ErrInternal, "thread save failed").WithCause(err)
	}
	return nil
}

func (s *MongoStore) Acquire(ctx context.Context, threadID string) (ReleaseFunc, error) {
	return s.locker.Acquire(ctx, threadID)
}

func (s *MongoStore) SaveFeedback(ctx context.Context, fb Feedback) error {
	if fb.ID == "" {
		fb.ID = uuid.NewString()
	}
	if fb.CreatedAt.IsZero() {
		fb.CreatedAt = time.Now().UTC()
	}
	doc := mongoFeedbackDoc{
		ID:        fb.ID,
		RunID:     fb.RunID,
		Key:       fb.Key,
		Score:     fb.Score,
		Kwargs:    fb.Kwargs,
		CreatedAt: fb.CreatedAt,
	}
	if _, err := s.feedback.InsertOne(ctx, doc); err != nil {
		return types.NewError(types.ErrInternal, "feedback save failed").WithCause(err)
	}
	return nil
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
