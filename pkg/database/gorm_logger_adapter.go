package database

import (
	"context"
	"errors"
	"time"

	"github.com/go-arcade/conveyor/pkg/log"
	"go.uber.org/zap"
	"gorm.io/gorm/logger"
)

// GormLoggerAdapter routes gorm logging into the global zap logger.
type GormLoggerAdapter struct {
	Config logger.Config
	Level  logger.LogLevel
	sugar  *zap.SugaredLogger
}

func NewGormLoggerAdapter(config logger.Config, logLevel logger.LogLevel) *GormLoggerAdapter {
	return &GormLoggerAdapter{
		Config: config,
		Level:  logLevel,
		sugar:  log.GetLogger().Desugar().WithOptions(zap.AddCallerSkip(2)).Sugar(),
	}
}

func (l *GormLoggerAdapter) LogMode(level logger.LogLevel) logger.Interface {
	clone := *l
	clone.Level = level
	return &clone
}

func (l *GormLoggerAdapter) Info(_ context.Context, msg string, data ...any) {
	if l.Level >= logger.Info {
		l.sugar.Infow(msg, data...)
	}
}

func (l *GormLoggerAdapter) Warn(_ context.Context, msg string, data ...any) {
	if l.Level >= logger.Warn {
		l.sugar.Warnw(msg, data...)
	}
}

func (l *GormLoggerAdapter) Error(_ context.Context, msg string, data ...any) {
	if l.Level >= logger.Error {
		l.sugar.Errorw(msg, data...)
	}
}

func (l *GormLoggerAdapter) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.Level <= logger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()

	switch {
	case err != nil && l.Level >= logger.Error && (!errors.Is(err, logger.ErrRecordNotFound) || !l.Config.IgnoreRecordNotFoundError):
		l.sugar.Errorw("SQL query failed", "sql", sql, "rows", rows, "elapsed", elapsed, "error", err)
	case l.Config.SlowThreshold != 0 && elapsed > l.Config.SlowThreshold && l.Level >= logger.Warn:
		l.sugar.Warnw("Slow SQL query", "sql", sql, "rows", rows, "elapsed", elapsed)
	case l.Level == logger.Info:
		l.sugar.Debugw("SQL query", "sql", sql, "rows", rows, "elapsed", elapsed)
	}
}
