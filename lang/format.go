package lang

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
)

// TypeOf returns the name of the type of v.
func TypeOf(v any) string {
	switch v.(type) {
	case float64:
		return "number"
	case string:
		return "text"
	case nil:
		return "null"
	case undefined:
		return "undefined"
	case []any:
		return "list"
	case *Record:
		return "record"
	case *Closure:
		return "function"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// Stringify returns texts unchanged and the [Format] of any other value.
func Stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}

	return FormatString(v)
}

// FormatString returns v in language syntax on a single line.
func FormatString(v any) string {
	var sb strings.Builder

	formatValue(&sb, v, 0, 0)

	return sb.String()
}

// Format writes v in language syntax. A positive indent spreads lists and
// records over multiple lines. Top-level texts are written raw.
func Format(_ context.Context, w io.Writer, v any, indent int) error {
	var sb strings.Builder

	if s, ok := v.(string); ok {
		sb.WriteString(s)
	} else {
		formatValue(&sb, v, indent, 0)
	}

	_, err := fmt.Fprintln(w, sb.String())

	return err
}

// FormatJSON writes v as JSON.
func FormatJSON(_ context.Context, w io.Writer, v any, indent int) error {
	var (
		jsonData []byte
		err      error
	)

	if indent > 0 {
		jsonData, err = json.MarshalIndent(v, "", strings.Repeat(" ", indent))
	} else {
		jsonData, err = json.Marshal(v)
	}

	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, string(jsonData))

	return err
}

// FormatYAML writes v as YAML, preserving the key order of records.
func FormatYAML(ctx context.Context, w io.Writer, v any, indent int) error {
	var opts []yaml.EncodeOption
	if indent > 0 {
		opts = append(opts, yaml.Indent(indent))
	} else {
		opts = append(opts, yaml.Flow(true))
	}

	yamlData, err := yaml.MarshalContext(ctx, yamlValue(v), opts...)
	if err != nil {
		return err
	}

	_, err = fmt.Fprint(w, string(yamlData))

	return err
}

func yamlValue(v any) any {
	switch v := v.(type) {
	case *Record:
		out := make(yaml.MapSlice, 0, v.Len())
		for _, k := range v.keys {
			out = append(out, yaml.MapItem{Key: k, Value: yamlValue(v.vals[k])})
		}

		return out

	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = yamlValue(e)
		}

		return out

	case map[string]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			out[k] = yamlValue(e)
		}

		return out

	case float64:
		// Integral numbers encode without a fractional part.
		if v == math.Trunc(v) && math.Abs(v) < 1e15 {
			return int64(v)
		}

		return v

	default:
		return Native(v)
	}
}

func formatNumber(n float64) string {
	if n == math.Trunc(n) && math.Abs(n) < 1e15 {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}

	return strconv.FormatFloat(n, 'g', -1, 64)
}

func formatValue(sb *strings.Builder, v any, indent, depth int) {
	switch v := v.(type) {
	case float64:
		sb.WriteString(formatNumber(v))

	case string:
		sb.WriteString(`"` + v + `"`)

	case nil:
		sb.WriteString("null")

	case []any:
		formatItems(sb, "[", "]", len(v), indent, depth, func(i int) {
			formatValue(sb, v[i], indent, depth+1)
		})

	case *Record:
		formatItems(sb, "{", "}", v.Len(), indent, depth, func(i int) {
			k := v.keys[i]
			sb.WriteString(formatKey(k))
			sb.WriteString(": ")
			formatValue(sb, v.vals[k], indent, depth+1)
		})

	case fmt.Stringer:
		sb.WriteString(v.String())

	default:
		fmt.Fprint(sb, v)
	}
}

func formatItems(
	sb *strings.Builder,
	open, closing string,
	n, indent, depth int,
	item func(int),
) {
	sb.WriteString(open)

	if n > 0 && indent > 0 {
		sb.WriteRune('\n')
	}

	for i := range n {
		sb.WriteString(strings.Repeat(" ", (depth+1)*indent))
		item(i)

		if indent == 0 {
			if i < n-1 {
				sb.WriteString(", ")
			}
		} else {
			// Always add comma for easier editing
			sb.WriteString(",\n")
		}
	}

	if n > 0 && indent > 0 {
		sb.WriteString(strings.Repeat(" ", depth*indent))
	}

	sb.WriteString(closing)
}

// formatKey quotes record keys that are neither identifiers nor natural
// numbers.
func formatKey(k string) string {
	if isIdentifier(k) || isNatural(k) {
		return k
	}

	return `"` + k + `"`
}

// isLetter matches the letter class of the lexical grammar: anything but
// whitespace, digits and ASCII punctuation other than '_'.
func isLetter(r rune) bool {
	switch {
	case r <= ' ',
		'!' <= r && r <= '/',
		'0' <= r && r <= '@',
		'[' <= r && r <= '^',
		r == '`',
		'{' <= r && r <= '~':
		return false
	}

	return true
}

func isDigit(r rune) bool { return '0' <= r && r <= '9' }

func isIdentifier(s string) bool {
	for i, r := range s {
		if !isLetter(r) && (i == 0 || !isDigit(r)) {
			return false
		}
	}

	return s != ""
}

func isNatural(s string) bool {
	for _, r := range s {
		if !isDigit(r) {
			return false
		}
	}

	return s != ""
}
