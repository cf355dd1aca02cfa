package log

import (
	"context"
	"io"
	"log/slog"
	"runtime"
	"slices"
	"time"
)

// Logger writes leveled, structured records. Its methods are safe for
// concurrent use, and the zero value discards everything.
type Logger struct {
	cfg     config
	attrs   []slog.Attr
	handler slog.Handler
}

// Make returns a [Logger] writing to w. Without options it writes pretty
// [FormatText] records at [DefaultLevel] with [DefaultTimeLayout] stamps.
func Make(w io.Writer, opts ...Option) Logger {
	return build(newConfig(w, opts...), nil)
}

func build(c config, attrs []slog.Attr) Logger {
	h := c.handler()
	if len(attrs) > 0 {
		h = h.WithAttrs(attrs)
	}

	return Logger{cfg: c, attrs: attrs, handler: h}
}

// Wrap returns a copy of l with opts applied. Attributes added with
// [Logger.With] are kept.
func (l Logger) Wrap(opts ...Option) Logger {
	if l.handler == nil {
		return Make(nil, opts...)
	}

	return build(l.cfg.with(opts...), l.attrs)
}

// With returns a copy of l that adds attrs to every record.
func (l Logger) With(attrs ...slog.Attr) Logger {
	if l.handler == nil || len(attrs) == 0 {
		return l
	}

	l.attrs = append(slices.Clip(l.attrs), attrs...)
	l.handler = l.handler.WithAttrs(attrs)

	return l
}

// Level returns the minimum level l writes.
func (l Logger) Level() Level {
	if l.handler == nil {
		return LevelOff
	}

	return l.cfg.level
}

// Format returns the encoding of l's records.
func (l Logger) Format() Format { return l.cfg.format }

// Enabled reports whether a message at level would be written.
func (l Logger) Enabled(ctx context.Context, level Level) bool {
	return l.handler != nil && l.handler.Enabled(ctx, slog.Level(level))
}

// Slog returns a [slog.Logger] sharing l's handler.
func (l Logger) Slog() *slog.Logger {
	if l.handler == nil {
		return slog.New(slog.DiscardHandler)
	}

	return slog.New(l.handler)
}

func (l Logger) TraceContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	l.emit(ctx, LevelTrace, msg, attrs)
}

func (l Logger) DebugContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	l.emit(ctx, LevelDebug, msg, attrs)
}

func (l Logger) InfoContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	l.emit(ctx, LevelInfo, msg, attrs)
}

func (l Logger) WarnContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	l.emit(ctx, LevelWarn, msg, attrs)
}

func (l Logger) ErrorContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	l.emit(ctx, LevelError, msg, attrs)
}

func (l Logger) Trace(msg string, attrs ...slog.Attr) {
	l.emit(context.Background(), LevelTrace, msg, attrs)
}

func (l Logger) Debug(msg string, attrs ...slog.Attr) {
	l.emit(context.Background(), LevelDebug, msg, attrs)
}

func (l Logger) Info(msg string, attrs ...slog.Attr) {
	l.emit(context.Background(), LevelInfo, msg, attrs)
}

func (l Logger) Warn(msg string, attrs ...slog.Attr) {
	l.emit(context.Background(), LevelWarn, msg, attrs)
}

func (l Logger) Error(msg string, attrs ...slog.Attr) {
	l.emit(context.Background(), LevelError, msg, attrs)
}

// emit must be called directly by the exported logging method so that the
// recorded caller is the method's caller.
func (l Logger) emit(ctx context.Context, level Level, msg string, attrs []slog.Attr) {
	if !l.Enabled(ctx, level) {
		return
	}

	var pc uintptr

	if l.cfg.caller {
		var pcs [1]uintptr

		// runtime.Callers, emit, logging method
		runtime.Callers(3, pcs[:])
		pc = pcs[0]
	}

	r := slog.NewRecord(time.Now(), slog.Level(level), msg, pc)
	r.AddAttrs(attrs...)

	_ = l.handler.Handle(ctx, r)
}
