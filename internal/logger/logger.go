// Package logger adapts the application logger for the fx container.
package logger

import (
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// FxOption routes fx lifecycle events through the application logger at
// debug level when verbose, and silences them otherwise.
func FxOption(verbose bool) fx.Option {
	if !verbose {
		return fx.NopLogger
	}
	return fx.WithLogger(NewFxLogger)
}

func NewFxLogger(log *zap.Logger) fxevent.Logger {
	l := &fxevent.ZapLogger{Logger: log.Named("fx")}
	l.UseLogLevel(zapcore.DebugLevel)
	return l
}
