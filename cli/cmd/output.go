package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/ardnew/zero/lang"
)

// Output formats.
const (
	formatNative = "native"
	formatJSON   = "json"
	formatYAML   = "yaml"
)

// stdout receives command output.
var stdout io.Writer = os.Stdout

// write encodes v to w in the named format.
func write(ctx context.Context, w io.Writer, format string, v any, indent int) error {
	var err error

	switch format {
	case formatJSON:
		err = lang.FormatJSON(ctx, w, v, indent)
	case formatYAML:
		err = lang.FormatYAML(ctx, w, v, indent)
	default:
		err = lang.Format(ctx, w, v, indent)
	}

	if err != nil {
		return ErrFormat.With(slog.String("format", format)).Wrap(err)
	}

	return nil
}
