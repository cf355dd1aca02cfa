// Package cli contains the command line interface for zero.
//
// # Usage
//
//	zero [flags] [run] <address>     evaluate a module and print its value
//	zero parse <address>             print the syntax tree of a module
//	zero grammar [rule]              print the language grammar as data
//	zero match <grammar.json> [text] match text against a grammar-as-data file
//	zero repl [module]               start an interactive session
//	zero init                        write the default configuration file
//
// An address is a file path, an http(s) URL, or '-' for stdin. Evaluation
// errors are printed to stderr with their source location and the process
// exits with status 1.
//
// # Configuration
//
// Flag defaults are read from config.0 in the user configuration directory,
// a zero module whose value is a record of flag names (see [resolve]), and
// from config.0.json beside it.
//
// # Logging Options
//
// Diagnostics are written to stderr; stdout only carries results.
//
//   - --log-level: trace, debug, info (default), warn, error, or off
//   - --log-format: text (default, colorized on terminals) or json
//   - --log-time-layout: a time package layout name such as RFC3339 or
//     Kitchen, a literal layout, or none
//   - --log-caller: Include the source position of each diagnostic
//
// # Module Options
//
//   - --module-path: Directories searched for named modules ("lib.0"),
//     ahead of the ZEROPATH environment variable
//   - --module-cache: File persisting the content of remote modules
//   - --module-timeout: Timeout of each remote fetch
//
// # Profiling Options
//
// Profiling is only available when built with the pprof build tag:
//
//	go build -tags pprof -o zero .
//
//   - --pprof-mode: Enable profiling (allocs, block, clock, cpu, goroutine,
//     heap, mem, mutex, thread, trace)
//   - --pprof-dir: Set profile output directory
package cli
