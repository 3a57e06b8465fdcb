package logger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// GormLogger routes gorm output through the zerolog logger. Only errors
// and slow queries are logged by default; SQL text is kept out of info logs.
type GormLogger struct {
	level         gormlogger.LogLevel
	slowThreshold time.Duration
}

func NewGormLogger(slowThreshold time.Duration) *GormLogger {
	return &GormLogger{
		level:         gormlogger.Warn,
		slowThreshold: slowThreshold,
	}
}

func (g *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	out := *g
	out.level = level
	return &out
}

func (g *GormLogger) Info(ctx context.Context, msg string, args ...interface{}) {
	if g.level >= gormlogger.Info {
		Get().Info(fmt.Sprintf(msg, args...), map[string]interface{}{"component": "gorm"})
	}
}

func (g *GormLogger) Warn(ctx context.Context, msg string, args ...interface{}) {
	if g.level >= gormlogger.Warn {
		Get().Warn(fmt.Sprintf(msg, args...), map[string]interface{}{"component": "gorm"})
	}
}

func (g *GormLogger) Error(ctx context.Context, msg string, args ...interface{}) {
	if g.level >= gormlogger.Error {
		Get().Error(fmt.Sprintf(msg, args...), nil, map[string]interface{}{"component": "gorm"})
	}
}

func (g *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if g.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	switch {
	// 조회 결과 없음은 호출부에서 처리
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && g.level >= gormlogger.Error:
		sql, rows := fc()
		Get().Error("Database query failed", err, map[string]interface{}{
			"component":  "gorm",
			"sql":        sql,
			"rows":       rows,
			"elapsed_ms": elapsed.Milliseconds(),
		})
	case g.slowThreshold > 0 && elapsed > g.slowThreshold && g.level >= gormlogger.Warn:
		sql, rows := fc()
		Get().Warn("Slow database query", map[string]interface{}{
			"component":  "gorm",
			"sql":        sql,
			"rows":       rows,
			"elapsed_ms": elapsed.Milliseconds(),
			"threshold":  g.slowThreshold.String(),
		})
	case g.level >= gormlogger.Info:
		sql, rows := fc()
		Get().Debug("Database query", map[string]interface{}{
			"component":  "gorm",
			"sql":        sql,
			"rows":       rows,
			"elapsed_ms": elapsed.Milliseconds(),
		})
	}
}
