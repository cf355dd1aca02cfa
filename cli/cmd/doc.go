// Package cmd implements the zero sub-commands: run, parse, grammar, match,
// repl and init.
//
// Commands receive the invocation's [context.Context], which carries the
// parsed [kong.Context] (see [WithContext]) and the shared module resolver
// (see [WithResolver]). Evaluation diagnostics are returned unchanged so the
// caller can render them with [lang.Report].
package cmd

var (
	// CacheIdentifier is the kong variable identifier containing the path to
	// the runtime cache directory.
	CacheIdentifier = "cache"

	// ConfigIdentifier is the kong variable identifier containing the path to
	// the configuration file.
	ConfigIdentifier = "config"

	// HistoryIdentifier is the kong variable identifier containing the path to
	// the REPL history file.
	HistoryIdentifier = "history"
)
