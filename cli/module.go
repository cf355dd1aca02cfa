package cli

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/alecthomas/kong"

	"github.com/ardnew/zero/lang"
	"github.com/ardnew/zero/log"
	"github.com/ardnew/zero/module"
	"github.com/ardnew/zero/pkg"
)

type moduleConfig struct {
	Path     []string      `help:"Directories searched for named modules before those in ${moduleEnv}" sep:"${moduleSep}" type:"path"`
	Cache    string        `default:"${moduleCache}" help:"Remote module cache file"         type:"path"`
	NoCache  bool          `help:"Do not read or write the remote module cache"`
	Timeout  time.Duration `default:"${moduleTimeout}" help:"Timeout of each remote fetch"`
	Parallel int           `default:"8" help:"Concurrent fetches while discovering imports"`
	Depth    int           `default:"${moduleDepth}" help:"Maximum call depth during evaluation"`
}

func (moduleConfig) vars() kong.Vars {
	return kong.Vars{
		"moduleEnv":     module.PathEnv,
		"moduleSep":     string(os.PathListSeparator),
		"moduleCache":   pkg.ModuleCacheFile(),
		"moduleTimeout": module.DefaultTimeout.String(),
		"moduleDepth":   strconv.Itoa(lang.DefaultMaxDepth),
	}
}

func (moduleConfig) group() kong.Group {
	var group kong.Group

	group.Key = "module"
	group.Title = "Module options"

	return group
}

// start builds the resolver shared by all commands and loads its cache. The
// returned flush persists the cache and must be called on exit.
func (f moduleConfig) start(
	ctx context.Context,
) (res *module.Resolver, flush func() error, err error) {
	logger := log.Default()

	path := f.Cache
	if f.NoCache {
		path = ""
	}

	opts := []module.Option{
		module.WithLogger(logger),
		module.WithTimeout(f.Timeout),
		module.WithParallel(f.Parallel),
		module.WithSearchPath(module.SearchPath(os.Getenv(module.PathEnv), f.Path...)...),
		module.WithEvalOptions(lang.WithMaxDepth(f.Depth)),
	}

	cache := module.NewCache(path, opts...)
	if err := cache.Load(ctx); err != nil {
		return nil, nil, err
	}

	log.DebugContext(ctx, "module resolver ready",
		slog.String("cache", path),
		slog.Int("cached", cache.Len()),
		slog.Any("search", f.Path),
	)

	return module.New(cache, opts...), func() error { return cache.Flush(ctx) }, nil
}
