package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewFxLoggerWritesDebugEntries(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)

	l := NewFxLogger(zap.New(core))
	l.LogEvent(&fxevent.Started{})

	entries := logs.All()
	require.NotEmpty(t, entries)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, "fx", entries[0].LoggerName)
}

func TestFxOptionQuietByDefault(t *testing.T) {
	assert.NotNil(t, FxOption(false))
	assert.NotNil(t, FxOption(true))
}
