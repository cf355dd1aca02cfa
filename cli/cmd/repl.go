package cmd

import (
	"context"
	"log/slog"

	"github.com/ardnew/zero/cli/cmd/repl"
	"github.com/ardnew/zero/log"
)

// Repl starts an interactive session.
type Repl struct {
	Seed      string `arg:"" help:"Module whose declarations seed the session" optional:"" type:"existingfile"`
	History   string `default:"${history}" help:"History file" type:"path"`
	NoHistory bool   `help:"Do not read or write the history file"`
}

// Run executes the repl command.
func (r *Repl) Run(ctx context.Context) error {
	var (
		seed string
		err  error
	)

	if r.Seed != "" {
		if seed, err = readInput(r.Seed); err != nil {
			return err
		}
	}

	history := r.History
	if r.NoHistory {
		history = ""
	}

	log.DebugContext(ctx, "repl",
		slog.String("seed", r.Seed),
		slog.String("history", history),
	)

	return repl.Run(ctx, resolverFrom(ctx), seed, history, log.Default())
}
