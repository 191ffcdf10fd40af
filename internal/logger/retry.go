package logger

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// RetryLogger adapts the context logger to the leveled logger interface
// expected by HTTP retry clients.
type RetryLogger struct {
	log *zap.SugaredLogger
}

// NewRetryLogger builds a RetryLogger from the logger stored in ctx.
// Retry chatter is limited to warnings unless the global level is debug.
func NewRetryLogger(ctx context.Context) *RetryLogger {
	base := FromContext(ctx).Named("http")
	if Level() > zapcore.DebugLevel {
		base = base.WithOptions(WithLevel(zapcore.WarnLevel))
	}

	return &RetryLogger{log: base}
}

// Error logs a retry client error.
func (r *RetryLogger) Error(msg string, keysAndValues ...any) {
	r.log.Errorw(msg, keysAndValues...)
}

// Warn logs a retry client warning.
func (r *RetryLogger) Warn(msg string, keysAndValues ...any) {
	r.log.Warnw(msg, keysAndValues...)
}

// Info logs retry client progress.
func (r *RetryLogger) Info(msg string, keysAndValues ...any) {
	r.log.Infow(msg, keysAndValues...)
}

// Debug logs retry client internals.
func (r *RetryLogger) Debug(msg string, keysAndValues ...any) {
	r.log.Debugw(msg, keysAndValues...)
}
