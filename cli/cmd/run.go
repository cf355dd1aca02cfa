package cmd

import (
	"context"
	"log/slog"

	"github.com/ardnew/zero/log"
)

// Run evaluates a module and prints its value.
type Run struct {
	Address string `arg:"" default:"-" help:"Module file, URL, or '-' for stdin" name:"address"`
	Format  string `default:"native" enum:"native,json,yaml" help:"Output format (${enum})" short:"o"`
	Indent  int    `default:"2" help:"Indent width; 0 prints on one line" short:"i"`
	Query   string `help:"Expression over the result, bound to 'value'" short:"q"`
}

// Run executes the run command.
func (r *Run) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	res := resolverFrom(ctx)

	var v any

	if r.Address == stdinSource {
		src, err := readInput(stdinSource)
		if err != nil {
			return err
		}

		v, err = res.Eval(ctx, src)
		if err != nil {
			return err
		}
	} else {
		v, err = res.Run(ctx, r.Address)
		if err != nil {
			return err
		}
	}

	log.DebugContext(ctx, "module evaluated",
		slog.String("address", r.Address),
		slog.Int("cached", res.Cache().Len()),
	)

	if r.Query != "" {
		if v, err = query(ctx, r.Query, v); err != nil {
			return err
		}
	}

	return write(ctx, stdout, r.Format, v, r.Indent)
}
