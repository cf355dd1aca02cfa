package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"github.com/ardnew/zero/cli/cmd"
	"github.com/ardnew/zero/lang"
	"github.com/ardnew/zero/log"
	"github.com/ardnew/zero/pkg"
)

// CLI is the top-level command-line interface for zero.
type CLI struct {
	Log    logConfig    `embed:"" group:"log"    prefix:"log-"`
	Pprof  pprofConfig  `embed:"" group:"pprof"  prefix:"pprof-"`
	Module moduleConfig `embed:"" group:"module" prefix:"module-"`

	Version kong.VersionFlag `help:"Print version and exit" short:"V"`

	Run     cmd.Run     `cmd:"" default:"withargs" help:"Evaluate a module and print its value"`
	Parse   cmd.Parse   `cmd:""                    help:"Print the syntax tree of a module"`
	Grammar cmd.Grammar `cmd:""                    help:"Print the language grammar as data"`
	Match   cmd.Match   `cmd:""                    help:"Match input against a grammar-as-data file"`
	Repl    cmd.Repl    `cmd:""                    help:"Start an interactive session"`
	Init    cmd.Init    `cmd:""                    help:"Initialize configuration file"`
}

// stderr receives evaluation diagnostics.
var stderr io.Writer = os.Stderr

// Run executes the zero CLI with the given context and arguments.
// The exit function is called with the appropriate exit code upon completion.
func Run(
	ctx context.Context,
	exit func(code int),
	args ...string,
) (err error) {
	var (
		cli      CLI
		reported bool
	)

	// Exit only after every deferred cleanup below has run.
	defer func() {
		if reported {
			exit(1)
		}
	}()

	err = pkg.MkdirAll()
	if err != nil {
		return err
	}

	configFilePath := pkg.ConfigFile()

	vars := kong.Vars{
		"version":             pkg.Name + " " + pkg.Version(),
		cmd.ConfigIdentifier:  configFilePath,
		cmd.CacheIdentifier:   pkg.CacheDir(),
		cmd.HistoryIdentifier: pkg.HistoryFile(),
	}.
		CloneWith(cli.Log.vars()).
		CloneWith(cli.Pprof.vars()).
		CloneWith(cli.Module.vars())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Pre-scan for logger flags to ensure early configuration regardless of
	// flag position. TextUnmarshaler on logFormat/logLevel handles those flags
	// during normal parsing, but this early scan also catches boolean flags
	// like --log-pretty.
	cli.Log.scan(args)

	// Parse command line
	parser, err := kong.New(&cli,
		kong.Name(pkg.Name),
		kong.Description(pkg.Description),
		kong.UsageOnError(),
		kong.Exit(exit),
		kong.ExplicitGroups(
			[]kong.Group{cli.Log.group(), cli.Pprof.group(), cli.Module.group()},
		),
		kong.BindSingletonProvider(func() context.Context {
			return ctx
		}),
		kong.ConfigureHelp(
			kong.HelpOptions{
				Compact:             true,
				Summary:             true,
				Tree:                true,
				FlagsLast:           false,
				NoAppSummary:        false,
				NoExpandSubcommands: true,
			}),
		kong.Configuration(kong.JSON, configFilePath+".json"),
		kong.Configuration(resolve(ctx), configFilePath),
		vars,
	)
	if err != nil {
		return err
	}

	ktx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	// Finalize logger configuration with all parsed values including
	// TimeLayout and Caller which don't use TextUnmarshaler.
	cli.Log.start(ctx)

	// [pprofConfig.start] is no-op unless built with tag pprof and enabled.
	defer cli.Pprof.start(ctx)()

	res, flush, err := cli.Module.start(ctx)
	if err != nil {
		return err
	}

	defer func() { err = pkg.Join(err, flush()) }()

	// Stuff additional context values for use by commands
	ctx = cmd.WithContext(ctx, ktx)
	ctx = cmd.WithResolver(ctx, res)

	// Execute the selected command
	err = ktx.Run(ctx, &cli)
	if diagnostic(err) {
		fmt.Fprint(stderr, lang.Report(err))
		log.DebugContext(ctx, "evaluation failed", slog.Any("error", err))

		reported = true

		return nil
	}

	return err
}

// diagnostic reports whether err is a language error rendered for the user
// rather than an operational failure.
func diagnostic(err error) bool {
	var (
		syn *lang.SyntaxError
		sem *lang.SemanticError
	)

	return errors.As(err, &syn) || errors.As(err, &sem)
}
