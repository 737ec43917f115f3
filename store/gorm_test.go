package store

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/luminon/agentd/internal/migration"
	"github.com/luminon/agentd/types"
)

func newTestGormStore(t *testing.T) *GormStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, migration.Up(sqlDB, "sqlite", nil))
	return NewGormStore(db, nil)
}

func TestGormStoreRoundTrip(t *testing.T) {
	s := newTestGormStore(t)
	ctx := context.Background()

	_, err := s.Load(ctx, "missing")
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrNotFound))

	state := &types.ConversationState{}
	state.Append(types.NewHumanMessage("what is 2+2"))
	state.Append(types.NewAgentMessage("4"))
	require.NoError(t, s.Save(ctx, "t1", state))

	got, err := s.Load(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, types.RoleAgent, got.Messages[1].Role)

	// Save replaces the existing row.
	state.Append(types.NewHumanMessage("thanks"))
	require.NoError(t, s.Save(ctx, "t1", state))
	got, err = s.Load(ctx, "t1")
	require.NoError(t, err)
	assert.Len(t, got.Messages, 3)
}

func TestGormStoreFeedback(t *testing.T) {
	s := newTestGormStore(t)
	ctx := context.Background()

	fb := Feedback{
		RunID:  "run-1",
		Key:    "human-feedback-stars",
		Score:  0.8,
		Kwargs: map[string]string{"comment": "helpful"},
	}
	require.NoError(t, s.SaveFeedback(ctx, fb))

	var rec FeedbackRecord
	require.NoError(t, s.db.First(&rec, "run_id = ?", "run-1").Error)
	assert.Equal(t, 0.8, rec.Score)
	assert.NotEmpty(t, rec.ID)
	assert.Contains(t, string(rec.Kwargs), "helpful")
}

func TestOpenDatabaseUnsupportedDriver(t *testing.T) {
	_, err := OpenDatabase(DatabaseConfig{Driver: "oracle"})
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrValidation))
}
