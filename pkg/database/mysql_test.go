package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

func TestDatabase_DSN(t *testing.T) {
	cfg := Database{Type: "mysql", Host: "db", Port: "3306", User: "conveyor", Password: "pw", DB: "runs"}
	assert.Equal(t, "conveyor:pw@tcp(db:3306)/runs?charset=utf8mb4&parseTime=True&loc=Local", cfg.DSN())
}

func TestNewDatabase_UnsupportedType(t *testing.T) {
	_, err := NewDatabase(Database{Type: "oracle"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database type")
}

func TestProvideDatabase_Disabled(t *testing.T) {
	db, cleanup, err := ProvideDatabase(Database{})
	require.NoError(t, err)
	assert.Nil(t, db)
	cleanup()
}

func TestGormLoggerAdapter(t *testing.T) {
	l := NewGormLoggerAdapter(logger.Config{SlowThreshold: time.Millisecond}, logger.Warn)
	silent := l.LogMode(logger.Silent).(*GormLoggerAdapter)
	assert.Equal(t, logger.Silent, silent.Level)
	assert.Equal(t, logger.Warn, l.Level)

	called := false
	silent.Trace(context.Background(), time.Now(), func() (string, int64) {
		called = true
		return "SELECT 1", 1
	}, nil)
	assert.False(t, called)

	assert.NotPanics(t, func() {
		l.Trace(context.Background(), time.Now().Add(-time.Second), func() (string, int64) { return "SELECT 1", 1 }, nil)
		l.Trace(context.Background(), time.Now(), func() (string, int64) { return "SELECT 1", 0 }, errors.New("boom"))
		l.Info(context.Background(), "ignored")
	})
}
