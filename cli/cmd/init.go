package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/ardnew/zero/lang"
	"github.com/ardnew/zero/log"
	"github.com/ardnew/zero/profile"
)

// configHeader starts every generated configuration file.
const configHeader = `// zero configuration.
//
// Each declaration sets the default of the command-line flag with the same
// name, with '-' written as '_'. Records group flags by prefix: the
// declaration log = {level: "debug"} sets --log-level.
`

// Init generates a default configuration file with current flag values.
type Init struct {
	Force  bool `help:"Overwrite existing configuration file" short:"f"`
	Stdout bool `help:"Print the configuration instead of writing it"`
}

// Run executes the init command.
func (i *Init) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	ktx := kongContextFrom(ctx)

	confPath, ok := ktx.Model.Vars()[ConfigIdentifier]
	if !ok {
		panic("internal error: config path undefined")
	}

	content := i.render(ktx)

	if i.Stdout {
		_, err = fmt.Fprint(stdout, content)

		return err
	}

	// Check if file exists and force not set
	_, err = os.Stat(confPath)
	if err == nil && !i.Force {
		return ErrWriteConfig.
			With(slog.String("file", confPath)).
			With(slog.Bool("exists", true)).
			Wrap(ErrFileExists)
	}

	if err := os.MkdirAll(filepath.Dir(confPath), 0o700); err != nil {
		return ErrWriteConfig.
			With(slog.String("file", confPath)).
			Wrap(err)
	}

	if err := os.WriteFile(confPath, []byte(content), 0o600); err != nil {
		return ErrWriteConfig.
			With(slog.String("file", confPath)).
			Wrap(err)
	}

	log.DebugContext(
		ctx,
		"initialized configuration file",
		slog.String("path", confPath),
	)

	return nil
}

// render returns the configuration file content: one declaration per flag
// with a value, in flag order.
func (i *Init) render(ktx *kong.Context) string {
	var sb strings.Builder

	sb.WriteString(configHeader)
	sb.WriteString("\n")

	prefixIgnore := []string{"help", "version", profile.Tag}

	for _, flag := range ktx.Model.Flags {
		if flag.Hidden || slices.ContainsFunc(prefixIgnore, func(s string) bool {
			return strings.HasPrefix(flag.Name, s)
		}) {
			continue
		}

		val, ok := flagValue(ktx.FlagValue(flag))
		if !ok {
			continue
		}

		name := strings.ReplaceAll(flag.Name, "-", "_")

		fmt.Fprintf(&sb, "%s = %s\n", name, lang.FormatString(val))
	}

	return sb.String()
}

// flagValue converts a parsed flag value to a language value. Booleans
// become 1 or 0. It returns false for unset values.
func flagValue(val any) (any, bool) {
	switch v := val.(type) {
	case nil:
		return nil, false

	case bool:
		if v {
			return 1.0, true
		}

		return 0.0, true

	case string:
		if v == "" {
			return nil, false
		}

		return v, true

	case int:
		return float64(v), true

	case int64:
		return float64(v), true

	case uint:
		return float64(v), true

	case float64:
		return v, true

	case []string:
		if len(v) == 0 {
			return nil, false
		}

		list := make([]any, len(v))
		for i, s := range v {
			list[i] = s
		}

		return list, true

	default:
		if s := fmt.Sprint(v); s != "" {
			return s, true
		}

		return nil, false
	}
}
