package logger

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

// DefaultSlowThreshold is used when GormLoggerConfig leaves it unset.
const DefaultSlowThreshold = 200 * time.Millisecond

// GormLoggerConfig controls what the GORM logger reports.
type GormLoggerConfig struct {
	Level         gormlogger.LogLevel
	SlowThreshold time.Duration
	// LogNotFound reports gorm.ErrRecordNotFound as an error. Repositories
	// translate it to a domain error, so it is off by default.
	LogNotFound bool
}

// GormLogger writes GORM statements to zap. Each statement carries the
// request, tenant and trace ids found on its context, and row-locking
// statements are flagged so lock waits are easy to find.
type GormLogger struct {
	log *zap.Logger
	cfg GormLoggerConfig
}

var _ gormlogger.Interface = (*GormLogger)(nil)

// NewGormLogger builds a GORM logger under the "gorm" name.
func NewGormLogger(log *zap.Logger, cfg GormLoggerConfig) *GormLogger {
	if cfg.SlowThreshold <= 0 {
		cfg.SlowThreshold = DefaultSlowThreshold
	}
	return &GormLogger{log: log.Named("gorm"), cfg: cfg}
}

func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	cp := *l
	cp.cfg.Level = level
	return &cp
}

func (l *GormLogger) Info(_ context.Context, msg string, data ...any) {
	if l.cfg.Level >= gormlogger.Info {
		l.log.Sugar().Infof(msg, data...)
	}
}

func (l *GormLogger) Warn(_ context.Context, msg string, data ...any) {
	if l.cfg.Level >= gormlogger.Warn {
		l.log.Sugar().Warnf(msg, data...)
	}
}

func (l *GormLogger) Error(_ context.Context, msg string, data ...any) {
	if l.cfg.Level >= gormlogger.Error {
		l.log.Sugar().Errorf(msg, data...)
	}
}

// Trace reports one executed statement: failures at error, statements over
// the slow threshold at warn, everything else at debug when the level is
// Info.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	level := l.cfg.Level
	if level <= gormlogger.Silent {
		return
	}
	failed := err != nil && (l.cfg.LogNotFound || !errors.Is(err, gormlogger.ErrRecordNotFound))
	elapsed := time.Since(begin)
	slow := elapsed > l.cfg.SlowThreshold

	switch {
	case failed && level >= gormlogger.Error:
		l.log.Error("SQL error", append(l.statementFields(ctx, elapsed, fc), zap.Error(err))...)
	case err == nil && slow && level >= gormlogger.Warn:
		l.log.Warn("Slow SQL", append(l.statementFields(ctx, elapsed, fc),
			zap.Duration("threshold", l.cfg.SlowThreshold))...)
	case err == nil && level >= gormlogger.Info:
		l.log.Debug("SQL", l.statementFields(ctx, elapsed, fc)...)
	}
}

func (l *GormLogger) statementFields(ctx context.Context, elapsed time.Duration, fc func() (string, int64)) []zap.Field {
	sql, rows := fc()
	fields := []zap.Field{
		zap.String("sql", sql),
		zap.Int64("rows", rows),
		zap.Duration("elapsed", elapsed),
	}
	if strings.Contains(strings.ToUpper(sql), "FOR UPDATE") {
		fields = append(fields, zap.Bool("row_lock", true))
	}
	for _, id := range [...]struct{ key, value string }{
		{"request_id", GetRequestID(ctx)},
		{"tenant_id", GetTenantID(ctx)},
		{"trace_id", GetTraceID(ctx)},
	} {
		if id.value != "" {
			fields = append(fields, zap.String(id.key, id.value))
		}
	}
	return fields
}

// MapGormLogLevel maps the database.log_level setting to a GORM level.
// Unknown values fall back to warn so slow statements still show up.
func MapGormLogLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info", "debug":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}
