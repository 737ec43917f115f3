package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/luminon/agentd/types"
)

func newMockGormStore(t *testing.T) (*GormStore, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	return &GormStore{db: db, locker: newThreadLocker()}, mock
}

func TestGormStoreLoadQueryError(t *testing.T) {
	s, mock := newMockGormStore(t)
	mock.ExpectQuery(`SELECT .* FROM "threads"`).WillReturnError(fmt.Errorf("connection reset"))

	_, err := s.Load(context.Background(), "t1")
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrInternal))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStoreLoadCorruptState(t *testing.T) {
	s, mock := newMockGormStore(t)
	rows := sqlmock.NewRows([]string{"thread_id", "state", "updated_at"}).
		AddRow("t1", []byte("{not json"), nil)
	mock.ExpectQuery(`SELECT .* FROM "threads"`).WillReturnRows(rows)

	_, err := s.Load(context.Background(), "t1")
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrInternal))
}
