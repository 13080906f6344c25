package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func newObservedGormLogger(level gormlogger.LogLevel, opts ...GormLoggerOption) (*GormLogger, *observer.ObservedLogs) {
	core, recorded := observer.New(zapcore.DebugLevel)
	return NewGormLogger(zap.New(core), level, opts...), recorded
}

func invoiceQuery() (string, int64) {
	return "SELECT * FROM invoices WHERE status = 'SENT'", 3
}

func TestNewGormLogger(t *testing.T) {
	gl, _ := newObservedGormLogger(gormlogger.Info)

	require.NotNil(t, gl)
	assert.Equal(t, gormlogger.Info, gl.logLevel)
	assert.Equal(t, defaultSlowThreshold, gl.slowThreshold)
	assert.True(t, gl.ignoreRecordNotFoundError)
}

func TestNewGormLogger_Options(t *testing.T) {
	gl, _ := newObservedGormLogger(gormlogger.Info,
		WithSlowThreshold(500*time.Millisecond),
		WithIgnoreRecordNotFoundError(false),
	)

	assert.Equal(t, 500*time.Millisecond, gl.slowThreshold)
	assert.False(t, gl.ignoreRecordNotFoundError)
}

func TestGormLogger_LogMode(t *testing.T) {
	gl, _ := newObservedGormLogger(gormlogger.Info)

	clone := gl.LogMode(gormlogger.Warn)

	assert.Equal(t, gormlogger.Info, gl.logLevel)
	cloned, ok := clone.(*GormLogger)
	require.True(t, ok)
	assert.Equal(t, gormlogger.Warn, cloned.logLevel)
}

func TestGormLogger_Levels(t *testing.T) {
	t.Run("info logs when enabled", func(t *testing.T) {
		gl, recorded := newObservedGormLogger(gormlogger.Info)
		gl.Info(context.Background(), "starting %s", "migration")

		logs := recorded.All()
		require.Len(t, logs, 1)
		assert.Equal(t, "starting migration", logs[0].Message)
	})

	t.Run("info suppressed when silent", func(t *testing.T) {
		gl, recorded := newObservedGormLogger(gormlogger.Silent)
		gl.Info(context.Background(), "starting migration")

		assert.Empty(t, recorded.All())
	})

	t.Run("warn", func(t *testing.T) {
		gl, recorded := newObservedGormLogger(gormlogger.Warn)
		gl.Warn(context.Background(), "retrying %d", 2)

		logs := recorded.All()
		require.Len(t, logs, 1)
		assert.Equal(t, zapcore.WarnLevel, logs[0].Level)
		assert.Equal(t, "retrying 2", logs[0].Message)
	})

	t.Run("error", func(t *testing.T) {
		gl, recorded := newObservedGormLogger(gormlogger.Error)
		gl.Error(context.Background(), "connection lost")

		logs := recorded.All()
		require.Len(t, logs, 1)
		assert.Equal(t, zapcore.ErrorLevel, logs[0].Level)
	})
}

func TestGormLogger_Trace_Error(t *testing.T) {
	gl, recorded := newObservedGormLogger(gormlogger.Error)

	gl.Trace(context.Background(), time.Now(), invoiceQuery, errors.New("constraint violation"))

	logs := recorded.All()
	require.Len(t, logs, 1)
	assert.Equal(t, "SQL error", logs[0].Message)
}

func TestGormLogger_Trace_RecordNotFoundIgnored(t *testing.T) {
	gl, recorded := newObservedGormLogger(gormlogger.Error, WithIgnoreRecordNotFoundError(true))

	gl.Trace(context.Background(), time.Now(), invoiceQuery, gormlogger.ErrRecordNotFound)

	assert.Empty(t, recorded.All())
}

func TestGormLogger_Trace_SlowQuery(t *testing.T) {
	gl, recorded := newObservedGormLogger(gormlogger.Warn, WithSlowThreshold(time.Nanosecond))

	begin := time.Now().Add(-time.Second)
	gl.Trace(context.Background(), begin, invoiceQuery, nil)

	logs := recorded.All()
	require.Len(t, logs, 1)
	assert.Contains(t, logs[0].Message, "slow SQL")
	assert.Equal(t, zapcore.WarnLevel, logs[0].Level)
}

func TestGormLogger_Trace_NormalQuery(t *testing.T) {
	gl, recorded := newObservedGormLogger(gormlogger.Info)

	gl.Trace(context.Background(), time.Now(), invoiceQuery, nil)

	logs := recorded.All()
	require.Len(t, logs, 1)
	assert.Equal(t, "SQL trace", logs[0].Message)
}

func TestGormLogger_Trace_Silent(t *testing.T) {
	gl, recorded := newObservedGormLogger(gormlogger.Silent)

	gl.Trace(context.Background(), time.Now(), invoiceQuery, nil)

	assert.Empty(t, recorded.All())
}

func TestGormLogger_Trace_WithRequestID(t *testing.T) {
	gl, recorded := newObservedGormLogger(gormlogger.Info)

	ctx := context.WithValue(context.Background(), RequestIDKey, "req-7")
	gl.Trace(ctx, time.Now(), invoiceQuery, nil)

	logs := recorded.All()
	require.Len(t, logs, 1)
	assert.Equal(t, "req-7", logs[0].ContextMap()["request_id"])
}

func TestMapGormLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected gormlogger.LogLevel
	}{
		{"silent", gormlogger.Silent},
		{"error", gormlogger.Error},
		{"warn", gormlogger.Warn},
		{"info", gormlogger.Info},
		{"debug", gormlogger.Info},
		{"unknown", gormlogger.Warn},
		{"", gormlogger.Warn},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			assert.Equal(t, tt.expected, MapGormLogLevel(tt.level))
		})
	}
}

func TestGormLoggerImplementsInterface(t *testing.T) {
	gl, _ := newObservedGormLogger(gormlogger.Info)
	var _ gormlogger.Interface = gl
}
