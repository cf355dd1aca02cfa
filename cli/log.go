package cli

import (
	"context"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/ardnew/zero/log"
)

// logLevel reconfigures the default logger as soon as kong decodes it, so
// diagnostics emitted while the remaining flags and the config file are
// parsed already honor it.
type logLevel string

func (l *logLevel) UnmarshalText(text []byte) error {
	*l = logLevel(text)
	log.Config(log.WithLevel(log.ParseLevel(string(text))))

	return nil
}

// logFormat is the format counterpart of logLevel.
type logFormat string

func (f *logFormat) UnmarshalText(text []byte) error {
	*f = logFormat(text)
	log.Config(log.WithFormat(log.ParseFormat(string(text))))

	return nil
}

type logConfig struct {
	Level      logLevel  `default:"info"    enum:"${logLevelEnum}"  help:"Minimum level of diagnostics written to stderr."`
	Format     logFormat `default:"text"    enum:"${logFormatEnum}" help:"Encoding of diagnostics."`
	TimeLayout string    `default:"RFC3339"                         help:"Timestamp layout, a time package name, or \"none\"."`
	Caller     bool      `default:"false"                           help:"Include the source position of each diagnostic." negatable:""`
	Pretty     bool      `default:"true"                            help:"Colorize text diagnostics on terminals."         negatable:""`
}

func (*logConfig) vars() kong.Vars {
	return kong.Vars{
		"logLevelEnum":  strings.Join(slices.Collect(log.Levels()), ","),
		"logFormatEnum": strings.Join(slices.Collect(log.Formats()), ","),
	}
}

func (*logConfig) group() kong.Group {
	return kong.Group{Key: "log", Title: "Logging options"}
}

func (f *logConfig) options() []log.Option {
	return []log.Option{
		log.WithLevel(log.ParseLevel(string(f.Level))),
		log.WithFormat(log.ParseFormat(string(f.Format))),
		log.WithTimeLayout(f.TimeLayout),
		log.WithCaller(f.Caller),
		log.WithPretty(f.Pretty),
	}
}

func (f *logConfig) start(ctx context.Context) {
	log.Config(f.options()...)

	log.DebugContext(ctx, "logger configured",
		slog.String("level", string(f.Level)),
		slog.String("format", string(f.Format)),
		slog.String("time_layout", f.TimeLayout),
		slog.Bool("caller", f.Caller),
		slog.Bool("pretty", f.Pretty),
	)
}

// scan applies the log flags found in args before kong parses them, so the
// logger is configured wherever the flags appear and whatever the config
// file says. Only flags present in args are applied; the rest keep the
// logger's current settings until start.
func (f *logConfig) scan(args []string) {
	var opts []log.Option

	for i := 0; i < len(args); i++ {
		if args[i] == "--" {
			break
		}

		name, value, assigned := strings.Cut(args[i], "=")

		text := func() string {
			if !assigned && i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				i++

				return args[i]
			}

			return value
		}

		switch name {
		case "--log-level":
			f.Level = logLevel(text())
			opts = append(opts, log.WithLevel(log.ParseLevel(string(f.Level))))

		case "--log-format":
			f.Format = logFormat(text())
			opts = append(opts, log.WithFormat(log.ParseFormat(string(f.Format))))

		case "--log-time-layout":
			f.TimeLayout = text()
			opts = append(opts, log.WithTimeLayout(f.TimeLayout))

		case "--log-caller", "--no-log-caller":
			if v, ok := switchValue(name, value, assigned); ok {
				f.Caller = v
				opts = append(opts, log.WithCaller(v))
			}

		case "--log-pretty", "--no-log-pretty":
			if v, ok := switchValue(name, value, assigned); ok {
				f.Pretty = v
				opts = append(opts, log.WithPretty(v))
			}
		}
	}

	if len(opts) > 0 {
		log.Config(opts...)
	}
}

// switchValue decodes a negatable boolean flag. A bare flag is true, and the
// "--no-" spelling inverts whatever value was given.
func switchValue(name, value string, assigned bool) (bool, bool) {
	v := true

	if assigned {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return false, false
		}

		v = b
	}

	if strings.HasPrefix(name, "--no-") {
		v = !v
	}

	return v, true
}
