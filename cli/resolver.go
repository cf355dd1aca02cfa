package cli

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/ardnew/zero/lang"
	"github.com/ardnew/zero/log"
	"github.com/ardnew/zero/module"
)

// resolve returns a [kong.ConfigurationLoader] that evaluates config files
// written in the zero language.
//
// It can be used with [kong.Configuration] like this:
//
//	kong.Configuration(resolve(ctx), "/path/to/config.0")
//
// The file is evaluated as a module and its value must be a record:
//   - Each field names a flag; hyphens in flag names are written as
//     underscores (e.g., log_level for --log-level)
//   - Nested records join their keys with the flag separator, so
//     log = {level: "debug"} also sets --log-level
//   - Numbers are passed to kong as decimal text, so 1 and 0 set booleans
//   - Lists set repeated flags
//
// Example config file:
//
//	log_level = "debug"
//	log = {format: "text", pretty: 0}
//	module_path = ["/opt/zero/lib"]
//
// Command-line flags override config file values. A config file that fails
// to evaluate is logged and ignored.
func resolve(ctx context.Context) func(r io.Reader) (kong.Resolver, error) {
	return func(r io.Reader) (kong.Resolver, error) {
		data, err := io.ReadAll(r)
		if err != nil {
			return config{}, nil
		}

		v, err := module.New(nil).Eval(ctx, string(data))
		if err != nil {
			log.WarnContext(ctx, "ignoring configuration",
				slog.String("error", lang.Report(err)),
			)

			return config{}, nil
		}

		rec, ok := v.(*lang.Record)
		if !ok {
			log.WarnContext(ctx, "ignoring configuration",
				slog.String("type", lang.TypeOf(v)),
			)

			return config{}, nil
		}

		cfg := config{}
		cfg.flatten("", rec)

		return cfg, nil
	}
}

// config implements [kong.Resolver] for zero language configs.
type config map[string]any

// Validate implements [kong.Resolver].
func (r config) Validate(*kong.Application) error {
	// No validation needed - the config was already evaluated successfully
	return nil
}

// Resolve implements [kong.Resolver].
func (r config) Resolve(
	_ *kong.Context,
	_ *kong.Path,
	flag *kong.Flag,
) (any, error) {
	// Kong flags use hyphens (e.g., "log-level") but zero identifiers
	// use underscores. Try both forms.
	name := flag.Name
	underscoreName := strings.ReplaceAll(name, "-", "_")

	// Look up the value in our config
	if value, ok := r[name]; ok {
		return value, nil
	}

	// Try underscore variant
	if value, ok := r[underscoreName]; ok {
		return value, nil
	}

	// Not found - return nil to let Kong use defaults
	return nil, nil
}

// flatten adds the fields of rec to r, naming nested fields by their key
// path joined with "-".
func (r config) flatten(prefix string, rec *lang.Record) {
	for _, key := range rec.Keys() {
		val, _ := rec.Get(key)

		name := key
		if prefix != "" {
			name = prefix + "-" + key
		}

		if inner, ok := val.(*lang.Record); ok {
			r.flatten(name, inner)

			continue
		}

		r[strings.ReplaceAll(name, "_", "-")] = flagText(val)
	}
}

// flagText converts a config value to the form kong parses: text for
// scalars and lists of text for lists.
func flagText(v any) any {
	switch v := v.(type) {
	case float64:
		// Kong requires numbers as strings for parsing
		return strconv.FormatFloat(v, 'f', -1, 64)

	case string:
		return v

	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = lang.Stringify(e)
		}

		return out

	default:
		return lang.Stringify(v)
	}
}
