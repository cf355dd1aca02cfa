// Package profile provides optional runtime profiling for the zero command.
//
// # Overview
//
// This package integrates [github.com/pkg/profile] behind the "pprof" build
// tag. Without the tag every operation is a no-op and [Modes] is empty, so
// the command line offers no profiling flags.
//
// # Available Profiling Modes
//
//   - allocs:    Memory allocation profiling (all allocations)
//   - block:     Block (synchronization) profiling
//   - clock:     Wall-clock profiling
//   - cpu:       CPU profiling
//   - goroutine: Goroutine profiling
//   - heap:      Heap memory profiling (live allocations)
//   - mem:       General memory profiling
//   - mutex:     Mutex contention profiling
//   - thread:    Thread creation profiling
//   - trace:     Execution trace profiling
//
// # Usage
//
//	p := profile.Make(profile.WithMode("cpu"), profile.WithPath(dir)).Start()
//	defer p.Stop()
//
// Profile files are written to the directory with names matching the mode
// (e.g., cpu.pprof, mem.pprof).
//
// # Command-Line Usage
//
//	go build -tags pprof -o zero .
//	./zero --pprof-mode cpu run ./main.0
//	go tool pprof ./zero "$XDG_CACHE_HOME/zero/pprof/cpu.pprof"
//
// Module evaluation is single-threaded, so cpu and heap are the useful modes
// for evaluator work; block and mutex show contention in concurrent module
// fetches.
package profile

// Tag is the build tag required to enable pprof profiling.
const Tag = `pprof`
