package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ardnew/zero/grammar"
	"github.com/ardnew/zero/lang"
)

// Grammar prints the language grammar in the grammar-as-data format.
type Grammar struct {
	Rule   string `arg:"" help:"Print only the named rule" optional:""`
	Format string `default:"json" enum:"json,yaml" help:"Output format (${enum})" short:"o"`
	Indent int    `default:"2" help:"Indent width; 0 prints on one line" short:"i"`
	List   bool   `help:"List rule names only, one per line" short:"l"`
}

// Run executes the grammar command.
func (g *Grammar) Run(ctx context.Context) error {
	rules := lang.Rules()

	var v any

	switch {
	case g.List:
		for _, name := range rules.Names() {
			if _, err := fmt.Fprintln(stdout, name); err != nil {
				return ErrFormat.Wrap(err)
			}
		}

		return nil

	case g.Rule != "":
		def, ok := rules.Definition(g.Rule)
		if !ok {
			return ErrGrammar.
				With(slog.String("rule", g.Rule)).
				Wrap(grammar.ErrUnknownRule)
		}

		v = grammar.Encode(def)

	default:
		v = grammar.EncodeRegistry(rules)
	}

	return write(ctx, stdout, g.Format, v, g.Indent)
}
