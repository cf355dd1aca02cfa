package cmd

import (
	"context"
	"log/slog"
	"os"

	"github.com/ardnew/zero/grammar"
	"github.com/ardnew/zero/lang"
	"github.com/ardnew/zero/log"
)

// Match interprets a grammar against input text and prints the parse result.
type Match struct {
	Grammar string `arg:"" help:"Grammar-as-data JSON file (or a rule name with --rule)" name:"grammar"`
	Input   string `arg:"" help:"Input text; read from stdin if omitted" optional:""`
	Rule    bool   `help:"Treat the grammar argument as a language rule name" short:"r"`
	Format  string `default:"json" enum:"json,yaml" help:"Output format (${enum})" short:"o"`
	Indent  int    `default:"2" help:"Indent width; 0 prints on one line" short:"i"`
}

// Run executes the match command.
func (m *Match) Run(ctx context.Context) error {
	g, err := m.load()
	if err != nil {
		return err
	}

	input := m.Input
	if input == "" {
		if input, err = readInput(stdinSource); err != nil {
			return err
		}
	}

	res := grammar.Interpret(g, input)

	log.DebugContext(ctx, "grammar matched",
		slog.String("grammar", m.Grammar),
		slog.Bool("ok", res.OK()),
		slog.Bool("complete", res.Complete()),
		slog.Int("furthest", res.Furthest()),
	)

	return write(ctx, stdout, m.Format, res.Wire(), m.Indent)
}

// load returns the grammar named by the command arguments. References to
// rules ({"regra": name}) in a grammar file resolve against the language
// rules.
func (m *Match) load() (*grammar.Grammar, error) {
	rules := lang.Rules()

	if m.Rule {
		g, ok := rules.Lookup(m.Grammar)
		if !ok {
			return nil, ErrGrammar.
				With(slog.String("rule", m.Grammar)).
				Wrap(grammar.ErrUnknownRule)
		}

		return g, nil
	}

	data, err := os.ReadFile(m.Grammar)
	if err != nil {
		return nil, ErrGrammar.With(slog.String("file", m.Grammar)).Wrap(err)
	}

	g, err := grammar.Unmarshal(data, rules)
	if err != nil {
		return nil, ErrGrammar.With(slog.String("file", m.Grammar)).Wrap(err)
	}

	return g, nil
}
