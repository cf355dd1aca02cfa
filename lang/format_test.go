package lang

import (
	"bytes"
	"testing"

	g "github.com/ardnew/zero/grammar"
)

func TestFormatString(t *testing.T) {
	tests := []struct {
		name string
		v    any
		want string
	}{
		{"integer", 42.0, "42"},
		{"fraction", 0.5, "0.5"},
		{"large", 1e21, "1e+21"},
		{"text", "hi", `"hi"`},
		{"null", nil, "null"},
		{"undefined", Undefined, "undefined"},
		{"list", []any{1.0, "a", []any{}}, `[1, "a", []]`},
		{"record", record("a", 1.0, "b c", 2.0, "0", 3.0), `{a: 1, "b c": 2, 0: 3}`},
		{"function", &Closure{Lambda: &Lambda{Param: Param{Name: "x"}}}, "<function x>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatString(tt.v); got != tt.want {
				t.Errorf("FormatString() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		name   string
		v      any
		indent int
		want   string
	}{
		{"raw_text", "hello", 2, "hello\n"},
		{"flat", record("a", []any{1.0, 2.0}), 0, "{a: [1, 2]}\n"},
		{
			"indented", record("a", []any{1.0}, "b", NewRecord()), 2,
			"{\n  a: [\n    1,\n  ],\n  b: {},\n}\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := Format(t.Context(), &buf, tt.v, tt.indent); err != nil {
				t.Fatalf("Format: %v", err)
			}

			if got := buf.String(); got != tt.want {
				t.Errorf("Format() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatJSON_KeyOrder(t *testing.T) {
	v := record("z", 1.0, "a", []any{"x", nil, Undefined}, "m", record("y", 2.0, "b", 3.0))

	var buf bytes.Buffer
	if err := FormatJSON(t.Context(), &buf, v, 0); err != nil {
		t.Fatalf("FormatJSON: %v", err)
	}

	want := `{"z":1,"a":["x",null,null],"m":{"y":2,"b":3}}` + "\n"
	if got := buf.String(); got != want {
		t.Errorf("FormatJSON() = %s, want %s", got, want)
	}
}

func TestFormatYAML_KeyOrder(t *testing.T) {
	v := record("z", "last", "a", "first")

	var buf bytes.Buffer
	if err := FormatYAML(t.Context(), &buf, v, 2); err != nil {
		t.Fatalf("FormatYAML: %v", err)
	}

	want := "z: last\na: first\n"
	if got := buf.String(); got != want {
		t.Errorf("FormatYAML() = %q, want %q", got, want)
	}
}

func TestTypeOf(t *testing.T) {
	tests := []struct {
		v    any
		want string
	}{
		{1.0, "number"},
		{"", "text"},
		{nil, "null"},
		{Undefined, "undefined"},
		{[]any{}, "list"},
		{NewRecord(), "record"},
		{&Closure{Lambda: &Lambda{}}, "function"},
	}

	for _, tt := range tests {
		if got := TypeOf(tt.v); got != tt.want {
			t.Errorf("TypeOf(%v) = %s, want %s", tt.v, got, tt.want)
		}
	}
}

func TestFormatKey_AgreesWithLexer(t *testing.T) {
	l := rules()

	for _, k := range []string{
		"a", "log_level", "x1", "größe", "_", "0", "42", "007",
		"", "1a", "b c", "a-b", "a.b", "-1", "a$", `q"`, "ü2", "{", "~x",
	} {
		t.Run(k, func(t *testing.T) {
			bare := g.Interpret(l.ident, k).Complete() || g.Interpret(l.natural, k).Complete()

			if got := formatKey(k) == k; got != bare {
				t.Errorf("formatKey(%q) bare = %v, lexer accepts = %v", k, got, bare)
			}
		})
	}
}
