package module

import (
	"net/http"
	"time"

	"github.com/ardnew/zero/lang"
	"github.com/ardnew/zero/log"
)

type config struct {
	logger   log.Logger
	client   *http.Client
	search   []string
	eval     []lang.Option
	timeout  time.Duration
	parallel int
}

// Option applies a configuration option to a [Cache] or [Resolver].
type Option func(config) config

func makeConfig(opts ...Option) config {
	cfg := config{
		client:   http.DefaultClient,
		timeout:  DefaultTimeout,
		parallel: 8,
	}

	for _, opt := range opts {
		cfg = opt(cfg)
	}

	return cfg
}

// WithLogger sets the logger for fetch, cache and evaluation events.
func WithLogger(logger log.Logger) Option {
	return func(c config) config {
		c.logger = logger

		return c
	}
}

// WithHTTPClient sets the client used to download remote modules.
func WithHTTPClient(client *http.Client) Option {
	return func(c config) config {
		if client != nil {
			c.client = client
		}

		return c
	}
}

// WithTimeout bounds each remote fetch.
func WithTimeout(timeout time.Duration) Option {
	return func(c config) config {
		if timeout > 0 {
			c.timeout = timeout
		}

		return c
	}
}

// WithSearchPath sets the directories searched for named modules.
func WithSearchPath(dirs ...string) Option {
	return func(c config) config {
		c.search = dirs

		return c
	}
}

// WithParallel limits the number of concurrent fetches while discovering
// dependencies.
func WithParallel(n int) Option {
	return func(c config) config {
		if n > 0 {
			c.parallel = n
		}

		return c
	}
}

// WithEvalOptions configures the evaluator used for module bodies.
func WithEvalOptions(opts ...lang.Option) Option {
	return func(c config) config {
		c.eval = append(c.eval, opts...)

		return c
	}
}
