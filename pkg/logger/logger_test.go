package logger_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/frame-datalogger/pkg/config"
	"github.com/frame-datalogger/pkg/logger"
)

func TestLoggerLevels(t *testing.T) {
	cfg := &config.ZapLogConfig{
		Level:   "debug",
		Format:  "console",
		Path:    t.TempDir(),
		MaxSize: 1,
		MaxAge:  1,
	}

	l, err := logger.InitLogger(cfg)
	require.NoError(t, err)
	require.NotNil(t, l)

	// 普通日志
	logger.Debug("debug msg")
	logger.Info("info msg")
	logger.Warn("warn msg")
	logger.Error("error msg")

	// Panic 测试
	assert.Panics(t, func() { logger.Panic("panic msg") })

	// Fatal 测试（替换 fatal 行为，不触发 os.Exit）
	logger.GetLogger().WithOptions(zap.WithFatalHook(zapcore.WriteThenNoop)).Fatal("fatal msg")

	_ = logger.Sync()
}

func TestReplaceLoggerAddsDefaultFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	restore := logger.ReplaceLogger(zap.New(core))
	defer restore()

	logger.SetDefaultComponent("datalogger")
	defer logger.SetDefaultComponent("")

	logger.Warn("cycle skipped", zap.Int("cycle", 3))

	entries := logs.FilterMessage("cycle skipped").All()
	require.Len(t, entries, 1)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "datalogger", ctx["component"])
	assert.Contains(t, ctx, "goid")
	assert.EqualValues(t, 3, ctx["cycle"])
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
}
