package cmd

import (
	"context"

	"github.com/ardnew/zero/lang"
	"github.com/ardnew/zero/module"
)

// Parse prints the syntax tree of a module without evaluating it.
type Parse struct {
	Address string `arg:"" default:"-" help:"Module file, URL, or '-' for stdin" name:"address"`
	Format  string `default:"json" enum:"json,yaml" help:"Output format (${enum})" short:"o"`
	Indent  int    `default:"2" help:"Indent width; 0 prints on one line" short:"i"`
}

// Run executes the parse command.
func (p *Parse) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	var prog *lang.Program

	if p.Address == stdinSource {
		src, err := readInput(stdinSource)
		if err != nil {
			return err
		}

		if prog, err = lang.ParseProgram(module.Anonymous, src); err != nil {
			return err
		}
	} else {
		res := resolverFrom(ctx)

		address, err := res.Resolve("", p.Address)
		if err != nil {
			return err
		}

		if prog, err = res.Program(ctx, address); err != nil {
			return err
		}
	}

	return write(ctx, stdout, p.Format, prog.Tree(), p.Indent)
}
