package cmd

import (
	"context"
	"log/slog"
	"os"
	"slices"

	"github.com/expr-lang/expr"

	"github.com/ardnew/zero/lang"
)

// query evaluates the expr-lang expression q over the native form of v,
// bound to the name "value", and converts the result back to a language
// value. The function env(name) returns an environment variable.
func query(ctx context.Context, q string, v any) (any, error) {
	env := map[string]any{
		"value": lang.Native(v),
		"env":   os.Getenv,
	}

	program, err := expr.Compile(q, expr.Env(env))
	if err != nil {
		return nil, ErrQuery.With(slog.String("query", q)).Wrap(err)
	}

	out, err := expr.Run(program, env)
	if err != nil {
		return nil, ErrQuery.With(slog.String("query", q)).Wrap(err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return fromNative(out), nil
}

// fromNative converts plain Go data into language values. Map keys are
// sorted since Go maps are unordered.
func fromNative(v any) any {
	switch v := v.(type) {
	case map[string]any:
		rec := lang.NewRecord()

		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}

		slices.Sort(keys)

		for _, k := range keys {
			rec.Set(k, fromNative(v[k]))
		}

		return rec

	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = fromNative(e)
		}

		return out

	case bool:
		if v {
			return 1.0
		}

		return 0.0

	case int:
		return float64(v)

	case int64:
		return float64(v)

	case float32:
		return float64(v)

	default:
		return v
	}
}
