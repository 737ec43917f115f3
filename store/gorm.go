package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/luminon/agentd/types"
)

// DatabaseConfig selects the SQL backend for GormStore.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite, postgres, mysql
	DSN    string `yaml:"dsn"`
}

// ThreadRecord is the threads table row. State is the JSON-encoded
// conversation state.
type ThreadRecord struct {
	ThreadID  string `gorm:"primaryKey;size:128"`
	State     []byte `gorm:"type:blob"`
	UpdatedAt time.Time
}

func (ThreadRecord) TableName() string { return "threads" }

// FeedbackRecord is the feedback table row.
type FeedbackRecord struct {
	ID        string `gorm:"primaryKey;size:64"`
	RunID     string `gorm:"index;size:64"`
	Key       string `gorm:"size:128"`
	Score     float64
	Kwargs    []byte `gorm:"type:blob"`
	CreatedAt time.Time
}

func (FeedbackRecord) TableName() string { return "feedback" }

// OpenDatabase opens a gorm handle for the configured driver.
func OpenDatabase(cfg DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite", "":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = "file:agentd.db?cache=shared"
		}
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	default:
		return nil, types.NewError(types.ErrValidation, fmt.Sprintf("unsupported database driver: %s", cfg.Driver))
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, types.NewError(types.ErrInternal, "database open failed").WithCause(err)
	}
	return db, nil
}

// GormStore persists threads and feedback in a SQL database. The schema
// is applied by internal/migration before the store opens. The
// per-thread lease is process local; run one writer process per
// database or use the Redis backend for a shared lease.
type GormStore struct {
	db     *gorm.DB
	locker *threadLocker
	logger *zap.Logger
}

func NewGormStore(db *gorm.DB, logger *zap.Logger) *GormStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GormStore{
		db:     db,
		locker: newThreadLocker(),
		logger: logger.With(zap.String("component", "store.gorm")),
	}
}

func (s *GormStore) Load(ctx context.Context, threadID string) (*types.ConversationState, error) {
	var rec ThreadRecord
	err := s.db.WithContext(ctx).First(&rec, "thread_id = ?", threadID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound(threadID)
	}
	if err != nil {
		return nil, types.NewError(types.ErrInternal, "thread load failed").WithCause(err)
	}
	var state types.ConversationState
	if err := json.Unmarshal(rec.State, &state); err != nil {
		return nil, types.NewError(types.ErrInternal, "thread state decode failed").WithCause(err)
	}
	return &state, nil
}

func (s *GormStore) Save(ctx context.Context, threadID string, state *types.ConversationState) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return types.NewError(types.ErrInternal, "thread state encode failed").WithCause(err)
	}
	rec := ThreadRecord{ThreadID: threadID, State: payload, UpdatedAt: time.Now().UTC()}
	err = s.db.WithContext(ctx).Save(&rec).Error
	if err != nil {
		return types.NewError(types.ErrInternal, "thread save failed").WithCause(err)
	}
	return nil
}

func (s *GormStore) Acquire(ctx context.Context, threadID string) (ReleaseFunc, error) {
	return s.locker.Acquire(ctx, threadID)
}

func (s *GormStore) SaveFeedback(ctx context.Context, fb Feedback) error {
	if fb.ID == "" {
		fb.ID = uuid.NewString()
	}
	if fb.CreatedAt.IsZero() {
		fb.CreatedAt = time.Now().UTC()
	}
	var kwargs []byte
	if len(fb.Kwargs) > 0 {
		var err error
		kwargs, err = json.Marshal(fb.Kwargs)
		if err != nil {
			return types.NewError(types.ErrValidation, "feedback kwargs encode failed").WithCause(err)
		}
	}
	rec := FeedbackRecord{
		ID:        fb.ID,
		RunID:     fb.RunID,
		Key:       fb.Key,
		Score:     fb.Score,
		Kwargs:    kwargs,
		CreatedAt: fb.CreatedAt,
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return types.NewError(types.ErrInternal, "feedback save failed").WithCause(err)
	}
	return nil
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
