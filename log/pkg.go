package log

import (
	"context"
	"log/slog"
	"os"
	"sync/atomic"
)

// standard writes to stderr; stdout carries evaluation results.
var standard atomic.Pointer[Logger]

func init() {
	l := Make(os.Stderr)
	standard.Store(&l)
}

// Config replaces the default logger with a copy reconfigured by opts.
func Config(opts ...Option) {
	l := Default().Wrap(opts...)
	standard.Store(&l)
}

// Default returns the logger used by the package-level functions.
func Default() Logger { return *standard.Load() }

// With returns the default logger extended with attrs.
func With(attrs ...slog.Attr) Logger { return Default().With(attrs...) }

func TraceContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	Default().emit(ctx, LevelTrace, msg, attrs)
}

func DebugContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	Default().emit(ctx, LevelDebug, msg, attrs)
}

func InfoContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	Default().emit(ctx, LevelInfo, msg, attrs)
}

func WarnContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	Default().emit(ctx, LevelWarn, msg, attrs)
}

func ErrorContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	Default().emit(ctx, LevelError, msg, attrs)
}

func Trace(msg string, attrs ...slog.Attr) {
	Default().emit(context.Background(), LevelTrace, msg, attrs)
}

func Debug(msg string, attrs ...slog.Attr) {
	Default().emit(context.Background(), LevelDebug, msg, attrs)
}

func Info(msg string, attrs ...slog.Attr) {
	Default().emit(context.Background(), LevelInfo, msg, attrs)
}

func Warn(msg string, attrs ...slog.Attr) {
	Default().emit(context.Background(), LevelWarn, msg, attrs)
}

func Error(msg string, attrs ...slog.Attr) {
	Default().emit(context.Background(), LevelError, msg, attrs)
}
