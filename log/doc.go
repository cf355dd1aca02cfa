// Package log is the structured logger of zero, built on [log/slog].
//
// Diagnostics go to stderr; stdout is reserved for evaluation results.
//
//	logger := log.Make(os.Stderr, log.WithLevel(log.LevelDebug))
//	logger.DebugContext(ctx, "fetched module", slog.String("address", addr))
//
// A [Logger] is a small value. Copies made by [Logger.With] and
// [Logger.Wrap] never affect the original, and the zero value discards
// everything, so components holding an optional logger need no nil checks.
//
// The default text format is colorized when stderr is a terminal and plain
// otherwise. [FormatJSON] writes one object per line for log collectors.
//
// [LevelTrace] sits below [LevelDebug] and carries per-fetch and per-probe
// detail. [LevelOff] silences a logger.
//
// The package-level functions write through [Default], which the command line
// reconfigures with [Config] while it parses flags.
package log
