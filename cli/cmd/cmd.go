package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	"github.com/klauspost/readahead"

	"github.com/ardnew/zero/log"
	"github.com/ardnew/zero/module"
)

// ContextKey is used to store a [kong.Context] value in [context.Context].
type contextKey struct{}

// WithContext returns a new context.Context containing the given kong.Context.
func WithContext(ctx context.Context, ktx *kong.Context) context.Context {
	return context.WithValue(ctx, contextKey{}, ktx)
}

func kongContextFrom(ctx context.Context) *kong.Context {
	ktx, ok := ctx.Value(contextKey{}).(*kong.Context)
	if !ok || ktx == nil {
		return nil
	}

	return ktx
}

type resolverKey struct{}

// WithResolver returns a new context.Context containing the module resolver
// shared by all commands of one invocation.
func WithResolver(ctx context.Context, r *module.Resolver) context.Context {
	return context.WithValue(ctx, resolverKey{}, r)
}

// resolverFrom retrieves the resolver stored by [WithResolver]. Without one,
// it returns a resolver with an in-memory cache.
func resolverFrom(ctx context.Context) *module.Resolver {
	if r, ok := ctx.Value(resolverKey{}).(*module.Resolver); ok && r != nil {
		return r
	}

	return module.New(nil, module.WithLogger(log.Default()))
}

// stdinSource is the special source indicator for reading from stdin.
const stdinSource = "-"

// stdin is the reader behind [stdinSource].
var stdin io.Reader = os.Stdin

// readInput returns the content of the file at path, or of stdin if path is
// [stdinSource].
func readInput(path string) (string, error) {
	var r io.Reader = stdin

	if path != stdinSource {
		file, err := os.Open(path)
		if err != nil {
			return "", ErrReadInput.With(slog.String("source", path)).Wrap(err)
		}
		defer file.Close()

		r = file
	}

	ra := readahead.NewReader(r)
	defer ra.Close()

	data, err := io.ReadAll(ra)
	if err != nil {
		return "", ErrReadInput.With(slog.String("source", path)).Wrap(err)
	}

	return string(data), nil
}
