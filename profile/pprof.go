//go:build pprof

package profile

import (
	"maps"
	"slices"
	"sync"

	"github.com/pkg/profile"
)

// Modes returns the sorted list of supported profiling modes.
var Modes = sync.OnceValue(
	func() []string {
		return slices.Sorted(maps.Keys(mode))
	},
)

var mode = map[string]func(*profile.Profile){
	"block":     profile.BlockProfile,
	"cpu":       profile.CPUProfile,
	"clock":     profile.ClockProfile,
	"goroutine": profile.GoroutineProfile,
	"mem":       profile.MemProfile,
	"allocs":    profile.MemProfileAllocs,
	"heap":      profile.MemProfileHeap,
	"mutex":     profile.MutexProfile,
	"thread":    profile.ThreadcreationProfile,
	"trace":     profile.TraceProfile,
}

// option appends a profile setting to the list passed to [profile.Start].
type option func([]func(*profile.Profile)) []func(*profile.Profile)

func start(m, path string, quiet bool) interface{ Stop() } {
	fn, ok := mode[m]
	if !ok {
		return ignore{}
	}

	var opts []func(*profile.Profile)

	for _, opt := range []option{withMode(fn), withPath(path), withQuiet(quiet)} {
		opts = opt(opts)
	}

	return profile.Start(opts...)
}

func withMode(fn func(*profile.Profile)) option {
	return func(o []func(*profile.Profile)) []func(*profile.Profile) {
		return append(o, fn)
	}
}

func withPath(p string) option {
	return func(o []func(*profile.Profile)) []func(*profile.Profile) {
		if p != "" {
			o = append(o, profile.ProfilePath(p))
		}

		return o
	}
}

func withQuiet(v bool) option {
	return func(o []func(*profile.Profile)) []func(*profile.Profile) {
		if v {
			o = append(o, profile.Quiet)
		}

		return o
	}
}
