// Copyright (C) 2019-2025, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package testutil

import (
	"os"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type TestLogger struct {
	*zap.Logger
	traceVerboseLogger *zap.Logger
	panicOnWarn        bool
}

func (t *TestLogger) Intercept(hook func(entry zapcore.Entry) error) {
	t.Logger = t.Logger.WithOptions(zap.Hooks(hook))
}

func (t *TestLogger) Silence() {
	atomicLevel := zap.NewAtomicLevelAt(zapcore.FatalLevel)
	core := t.Logger.Core()
	t.Logger = zap.New(core, zap.AddCaller(), zap.IncreaseLevel(atomicLevel))
	t.traceVerboseLogger = zap.New(core, zap.AddCaller(), zap.IncreaseLevel(atomicLevel))
}

func (t *TestLogger) SetPanicOnWarn(panicOnWarn bool) {
	t.panicOnWarn = panicOnWarn
}

func (t *TestLogger) Trace(msg string, fields ...zap.Field) {
	t.traceVerboseLogger.Log(zapcore.DebugLevel, msg, fields...)
}

func (t *TestLogger) Verbo(msg string, fields ...zap.Field) {
	t.traceVerboseLogger.Log(zapcore.DebugLevel, msg, fields...)
}

func (t *TestLogger) Warn(msg string, fields ...zap.Field) {
	if t.panicOnWarn {
		t.Logger.Error(msg, fields...)
		panic("WARN: " + msg)
	}
	t.Logger.Warn(msg, fields...)
}

func MakeLogger(t *testing.T, node ...int) *TestLogger {
	config := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	config.EncodeLevel = func(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(strings.ToUpper(l.String()))
	}
	config.EncodeTime = zapcore.TimeEncoderOfLayout("[01-02|15:04:05.000]")
	config.ConsoleSeparator = " "
	encoder := zapcore.NewConsoleEncoder(config)

	level := zapcore.DebugLevel
	if strings.ToLower(os.Getenv("LOG_LEVEL")) == "info" {
		level = zapcore.InfoLevel
	}
	core := zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), zap.NewAtomicLevelAt(level))

	logger := zap.New(core, zap.AddCaller()).With(zap.String("test", t.Name()))
	traceVerboseLogger := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).With(zap.String("test", t.Name()))
	if len(node) > 0 {
		logger = logger.With(zap.Int("myNodeID", node[0]))
		traceVerboseLogger = traceVerboseLogger.With(zap.Int("myNodeID", node[0]))
	}

	return &TestLogger{Logger: logger, traceVerboseLogger: traceVerboseLogger}
}
