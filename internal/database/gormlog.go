package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"warbler/internal/middleware"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const slowQuery = 200 * time.Millisecond

// queryLog sends GORM's output through the application logger. Failed
// queries log at warn because unique-constraint violations on signup and
// follow are normal, and record-not-found is not logged at all.
type queryLog struct {
	level gormlogger.LogLevel
	slow  time.Duration
	out   *slog.Logger
}

func newQueryLog() *queryLog {
	return &queryLog{level: gormlogger.Warn, slow: slowQuery, out: middleware.Logger}
}

func (q *queryLog) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	cp := *q
	cp.level = level
	return &cp
}

func (q *queryLog) Info(ctx context.Context, msg string, args ...interface{}) {
	q.printf(ctx, gormlogger.Info, slog.LevelInfo, msg, args)
}

func (q *queryLog) Warn(ctx context.Context, msg string, args ...interface{}) {
	q.printf(ctx, gormlogger.Warn, slog.LevelWarn, msg, args)
}

func (q *queryLog) Error(ctx context.Context, msg string, args ...interface{}) {
	q.printf(ctx, gormlogger.Error, slog.LevelError, msg, args)
}

func (q *queryLog) printf(ctx context.Context, need gormlogger.LogLevel, lvl slog.Level, msg string, args []interface{}) {
	if q.level >= need {
		q.out.Log(ctx, lvl, fmt.Sprintf(msg, args...))
	}
}

func (q *queryLog) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if q.level <= gormlogger.Silent {
		return
	}
	took := time.Since(begin)

	var lvl slog.Level
	var msg string
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && q.level >= gormlogger.Error:
		lvl, msg = slog.LevelWarn, "query failed"
	case q.slow > 0 && took > q.slow && q.level >= gormlogger.Warn:
		lvl, msg = slog.LevelWarn, "slow query"
	case q.level >= gormlogger.Info:
		lvl, msg = slog.LevelDebug, "query"
	default:
		return
	}

	sql, rows := fc()
	attrs := []slog.Attr{
		slog.String("sql", sql),
		slog.Int64("rows", rows),
		slog.Duration("took", took),
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	q.out.LogAttrs(ctx, lvl, msg, attrs...)
}
