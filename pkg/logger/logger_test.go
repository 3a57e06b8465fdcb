package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func captureLogs(t *testing.T, level string) *bytes.Buffer {
	var buf bytes.Buffer
	Initialize(Config{Level: level, Format: "json", Output: &buf, Service: "storefront-test"})
	t.Cleanup(func() {
		Initialize(Config{Level: "info", Format: "console"})
	})
	return &buf
}

func lastEntry(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.NotEmpty(t, lines)
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &entry))
	return entry
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel(" warning "))
	assert.Equal(t, zerolog.TraceLevel, ParseLevel("trace"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("verbose"))
}

func TestLogger_WritesFieldsAndService(t *testing.T) {
	buf := captureLogs(t, "debug")

	WithContext(map[string]interface{}{"request_id": "req-1"}).
		With("profile_id", "p-1").
		Info("Cart loaded", map[string]interface{}{"items": 2})

	entry := lastEntry(t, buf)
	assert.Equal(t, "Cart loaded", entry["message"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "storefront-test", entry["service"])
	assert.Equal(t, "req-1", entry["request_id"])
	assert.Equal(t, "p-1", entry["profile_id"])
	assert.Equal(t, float64(2), entry["items"])
	assert.Contains(t, entry["caller"], "logger_test.go")
}

func TestLogger_ErrorAndLevelFilter(t *testing.T) {
	buf := captureLogs(t, "warn")

	Info("hidden")
	assert.Empty(t, buf.String())

	Error("Store failed", errors.New("boom"), nil)
	entry := lastEntry(t, buf)
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "boom", entry["error"])
}

func TestGormLogger_Trace(t *testing.T) {
	buf := captureLogs(t, "debug")
	g := NewGormLogger(50 * time.Millisecond)
	query := func() (string, int64) { return "SELECT 1", 1 }

	// 빠른 쿼리는 기록하지 않음
	g.Trace(context.Background(), time.Now(), query, nil)
	assert.Empty(t, buf.String())

	// not found는 에러로 보지 않음
	g.Trace(context.Background(), time.Now(), query, gorm.ErrRecordNotFound)
	assert.Empty(t, buf.String())

	g.Trace(context.Background(), time.Now().Add(-time.Second), query, nil)
	entry := lastEntry(t, buf)
	assert.Equal(t, "Slow database query", entry["message"])
	assert.Equal(t, "gorm", entry["component"])

	g.Trace(context.Background(), time.Now(), query, errors.New("connection reset"))
	entry = lastEntry(t, buf)
	assert.Equal(t, "Database query failed", entry["message"])
	assert.Equal(t, "SELECT 1", entry["sql"])
}

func TestGormLogger_SilentMode(t *testing.T) {
	buf := captureLogs(t, "debug")
	g := NewGormLogger(time.Millisecond).LogMode(gormlogger.Silent)

	g.Trace(context.Background(), time.Now().Add(-time.Second), func() (string, int64) { return "SELECT 1", 0 }, errors.New("x"))
	g.Error(context.Background(), "ignored %d", 1)

	assert.Empty(t, buf.String())
}
