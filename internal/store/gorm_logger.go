package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const slowQueryThreshold = 200 * time.Millisecond

// GormLogger routes gorm logging into slog.
type GormLogger struct {
	logger *slog.Logger
	level  gormlogger.LogLevel
}

// NewGormLogger logs warnings and errors by default.
func NewGormLogger(logger *slog.Logger) *GormLogger {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &GormLogger{logger: logger.With("component", "store"), level: gormlogger.Warn}
}

func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	next := *l
	next.level = level
	return &next
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Info {
		l.logger.InfoContext(ctx, fmt.Sprintf(msg, data...))
	}
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Warn {
		l.logger.WarnContext(ctx, fmt.Sprintf(msg, data...))
	}
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Error {
		l.logger.ErrorContext(ctx, fmt.Sprintf(msg, data...))
	}
}

func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()
	attrs := []any{"duration_ms", elapsed.Milliseconds(), "rows", rows, "sql", sql}

	switch {
	// record not found is a normal lookup outcome
	case err != nil && l.level >= gormlogger.Error && !errors.Is(err, gorm.ErrRecordNotFound):
		l.logger.ErrorContext(ctx, "query failed", append(attrs, "error", err.Error())...)
	case elapsed > slowQueryThreshold && l.level >= gormlogger.Warn:
		l.logger.WarnContext(ctx, "slow query", attrs...)
	case l.level >= gormlogger.Info:
		l.logger.InfoContext(ctx, "query", attrs...)
	}
}
