package storage

import (
	"context"
	"time"

	gormlogger "gorm.io/gorm/logger"

	"pixelens/internal/logger"
)

// GormLogger bridges gorm's logging interface to the project logger.
type GormLogger struct {
	logger.Logger
	LogLevel gormlogger.LogLevel
}

func NewGormLogger(l logger.Logger) *GormLogger {
	return &GormLogger{Logger: l, LogLevel: gormlogger.Warn}
}

// LogMode sets the log level.
func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	out := *l
	out.LogLevel = level
	return &out
}

func (l *GormLogger) Info(_ context.Context, msg string, data ...any) {
	if l.LogLevel >= gormlogger.Info {
		l.Logger.Info(msg, kvPairs(data)...)
	}
}

func (l *GormLogger) Warn(_ context.Context, msg string, data ...any) {
	if l.LogLevel >= gormlogger.Warn {
		l.Logger.Warn(msg, kvPairs(data)...)
	}
}

func (l *GormLogger) Error(_ context.Context, msg string, data ...any) {
	if l.LogLevel >= gormlogger.Error {
		l.Logger.Error(msg, kvPairs(data)...)
	}
}

// Trace logs executed SQL, flagging errors and slow queries.
func (l *GormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.LogLevel <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()
	fields := []any{
		"sql", sql,
		"rows", rows,
		"timeMs", float64(elapsed.Nanoseconds()) / 1e6,
	}

	switch {
	case err != nil && l.LogLevel >= gormlogger.Error:
		l.Logger.Err(err, "sql failed", fields...)
	case elapsed > time.Second && l.LogLevel >= gormlogger.Warn:
		l.Logger.Warn("slow sql", append(fields, "threshold", "1s")...)
	case l.LogLevel >= gormlogger.Info:
		l.Logger.Debug("sql executed", fields...)
	}
}

func kvPairs(data []any) []any {
	out := make([]any, 0, len(data)*2)
	for _, d := range data {
		out = append(out, "arg", d)
	}
	return out
}
