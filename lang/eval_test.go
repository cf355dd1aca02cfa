package lang

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
)

// run parses and evaluates src as the module "test.0".
func run(t *testing.T, src string, opts ...Option) (any, error) {
	t.Helper()

	p, err := ParseProgram("test.0", src)
	if err != nil {
		return nil, err
	}

	mc := &ModuleContext{Address: "test.0", Source: src}

	return NewEvaluator(opts...).Program(t.Context(), p, mc)
}

// expr evaluates a single expression in an empty scope.
func expr(t *testing.T, src string) (any, error) {
	t.Helper()

	n, err := ParseExpr(src)
	if err != nil {
		return nil, err
	}

	return Evaluate(t.Context(), n, NewScope(nil))
}

func record(kv ...any) *Record {
	r := NewRecord()
	for i := 0; i+1 < len(kv); i += 2 {
		r.Set(kv[i].(string), kv[i+1])
	}

	return r
}

func TestEval_Precedence(t *testing.T) {
	v, err := run(t, "2 + 3 * 4")
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if v != 14.0 {
		t.Errorf("2 + 3 * 4 = %v, want 14", v)
	}
}

func TestEval_Declarations(t *testing.T) {
	v, err := run(t, "a = 5\nb = 8\na+b")
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if v != 13.0 {
		t.Errorf("a+b = %v, want 13", v)
	}
}

func TestEval_ObjectLaterFieldsSeeEarlier(t *testing.T) {
	v, err := run(t, "{ a: 1, b: a + 1 }")
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if want := record("a", 1.0, "b", 2.0); !Equal(v, want) {
		t.Errorf("value = %s, want %s", FormatString(v), FormatString(want))
	}
}

func TestEval_ProgramWithoutBody(t *testing.T) {
	v, err := run(t, "name = \"zero\"\nsize = 2 * 3\n")
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if want := record("name", "zero", "size", 6.0); !Equal(v, want) {
		t.Errorf("value = %s, want %s", FormatString(v), FormatString(want))
	}
}

func TestEval_ExtendKeepsBindings(t *testing.T) {
	e := NewEvaluator()
	s := NewModuleScope(&ModuleContext{Address: "session"})

	lines := []struct {
		src  string
		want any
	}{
		{"x = 20", record("x", 20.0)},
		{"double = n => n * 2", nil},
		{"double(x) + 2", 42.0},
		{"x = 1\nx + 1", 2.0},
	}

	for _, line := range lines {
		p, err := ParseProgram("session", line.src)
		if err != nil {
			t.Fatalf("parse %q: %v", line.src, err)
		}

		v, err := e.Extend(t.Context(), p, s)
		if err != nil {
			t.Fatalf("Extend(%q): %v", line.src, err)
		}

		if line.want != nil && !Equal(v, line.want) {
			t.Errorf("Extend(%q) = %s, want %s", line.src, FormatString(v), FormatString(line.want))
		}
	}

	if names := s.Local(); !reflect.DeepEqual(names, []string{"x", "double"}) {
		t.Errorf("Local() = %v", names)
	}
}

func TestEval_Expressions(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want any
	}{
		{"subtract", "10 - 4 - 3", 3.0},
		{"divide", "12 / 4", 3.0},
		{"negative_literal", "2 - -1", 3.0},
		{"not_zero", "!0", 1.0},
		{"not_other", "!7", 0.0},
		{"not_text", `!"x"`, 0.0},
		{"and_false", "0 & x", 0.0},
		{"and_true", "2 & 3", 3.0},
		{"or_false", "0 | 4", 4.0},
		{"or_true", "5 | x", 5.0},
		{"conditional", `1 > 2 ? "a" : "b"`, "b"},
		{"nested_conditional", `0 ? 1 : 0 ? 2 : 3`, 3.0},
		{"text_concat", `"a" + 1`, "a1"},
		{"list_concat", "[1] + [2]", []any{1.0, 2.0}},
		{"join_codepoints", `[104, 105] * ""`, "hi"},
		{"join_sep", `["a", "b", 3] * "-"`, "a-b-3"},
		{"split", `"a,b" / ","`, []any{"a", "b"}},
		{"text_compare", `"b" > "a"`, 1.0},
		{"structural_equal", `[1, {a: 2}] == [1, {a: 2}]`, 1.0},
		{"not_equal", `[1] != [2]`, 1.0},
		{"null", "null", nil},
		{"index_text", `"hello"[1]`, "e"},
		{"index_unicode", `"héllo"[1]`, "é"},
		{"slice_text", `"hello"[1:3]`, "el"},
		{"slice_negative", `"hello"[-3:]`, "llo"},
		{"slice_open", `[1, 2, 3][:2]`, []any{1.0, 2.0}},
		{"slice_clamped", `[1, 2, 3][1:10]`, []any{2.0, 3.0}},
		{"slice_beyond_int", `"ab"[0:99999999999999999999]`, "ab"},
		{"slice_below_int", `"ab"[-99999999999999999999:1]`, "a"},
		{"slice_list_beyond_int", `[1, 2][-1000000000000000000000000000000:1000000000000000000000000000000]`, []any{1.0, 2.0}},
		{"index_beyond_int", `"ab"[99999999999999999999]`, Undefined},
		{"index_list_below_int", `[1][-1000000000000000000000000000000]`, Undefined},
		{"index_record_beyond_int", `{length: 1, 0: "x"}[1000000000000000000000000000000]`, Undefined},
		{"join_invalid_codepoint", `[104, 1000000000000000000000000000000] * ""`, "h\uFFFD"},
		{"length_list", "[1, 2, 3][.]", 3.0},
		{"length_text", `"héllo"[.]`, 5.0},
		{"index_out_of_range", "[1, 2, 3][5]", Undefined},
		{"keys_record", "{a: 1, b: 2}[*]", []any{"a", "b"}},
		{"keys_text", `"abc"[*]`, []any{0.0, 1.0, 2.0}},
		{"index_record_key", `{a: 1}["a"]`, 1.0},
		{"index_record_missing", `{a: 1}["b"]`, Undefined},
		{"index_array_like", `{length: 2, 0: "x", 1: "y"}[1]`, "y"},
		{"index_array_like_bounds", `{length: 2, 0: "x", 1: "y", 2: "z"}[2]`, Undefined},
		{"attr", "{a: {b: 7}}.a.b", 7.0},
		{"curried", "(add = a => b => a + b add(2)(3))", 5.0},
		{"group_decls", "(a = 1 b = a + 1 a + b)", 3.0},
		{"immediate_lambda", "(x => x * 2)(21)", 42.0},
		{"degrade_to_list", "{1, 2, ...[3]}", []any{1.0, 2.0, 3.0}},
		{"list_spread", "[0, ...[1, 2], ...{a: 3, length: 1}]", []any{0.0, 1.0, 2.0, 3.0}},
		{"comments", "1 /* inline */ + // trailing\n 2", 3.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := expr(t, tt.src)
			if err != nil {
				t.Fatalf("%s: %v", tt.src, err)
			}

			if !reflect.DeepEqual(Native(v), Native(tt.want)) || TypeOf(v) != TypeOf(tt.want) {
				t.Errorf("%s = %s (%s), want %s", tt.src, FormatString(v), TypeOf(v), FormatString(tt.want))
			}
		})
	}
}

func TestEval_Objects(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want *Record
	}{
		{"empty", "{}", NewRecord()},
		{"forward_reference", "{ a: b + 1, b: 2 }", record("a", 3.0, "b", 2.0)},
		{"shorthand", "(x = 4 {x, y: x * 2})", record("x", 4.0, "y", 8.0)},
		{"record_spread", "{...{a: 1, length: 9}, b: 2}", record("a", 1.0, "b", 2.0)},
		{"indexed_and_keyed", `{"x", k: 1}`, record("0", "x", "k", 1.0)},
		{"merge", "{a: 1, b: 1} + {b: 2}", record("a", 1.0, "b", 2.0)},
		{"quoted_key", `{"a b": 1}`, record("a b", 1.0)},
		{"own_key_reads_outer", "(x = 4 {x: x + 1})", record("x", 5.0)},
		{"own_key_shorthand_sibling", "(x = 4 {y: x, x: x * 10})", record("y", 40.0, "x", 40.0)},
		{"nested_own_key", "(a = 40 {a: {a: a + 2}})", record("a", record("a", 42.0))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := expr(t, tt.src)
			if err != nil {
				t.Fatalf("%s: %v", tt.src, err)
			}

			rec, ok := v.(*Record)
			if !ok {
				t.Fatalf("%s = %s, want record", tt.src, FormatString(v))
			}

			if !Equal(rec, tt.want) || !reflect.DeepEqual(rec.Keys(), tt.want.Keys()) {
				t.Errorf("%s = %s, want %s", tt.src, FormatString(rec), FormatString(tt.want))
			}
		})
	}
}

func TestEval_Functions(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want any
	}{
		{
			"guards",
			"sign = n => | n < 0 = \"neg\" | n == 0 = \"zero\" | \"pos\"\n" +
				"[sign(-5), sign(0), sign(3)]",
			[]any{"neg", "zero", "pos"},
		},
		{
			"guards_fall_through",
			"f = n => | n > 0 = 1\nf(-1)",
			Undefined,
		},
		{
			"destructure",
			"f = {a b} => a * b\nf({a: 3, b: 4}) + f([5, 6])",
			42.0,
		},
		{
			"destructure_missing",
			"f = {a, b} => b\nf({a: 1})",
			Undefined,
		},
		{
			"recursion",
			"fact = n => | n <= 1 = 1 | n * fact(n - 1)\nfact(5)",
			120.0,
		},
		{
			"closure_captures_scope",
			"mk = n => x => x + n\nadd2 = mk(2)\nadd2(40)",
			42.0,
		},
		{
			"no_argument",
			"f = x => x\nf()",
			Undefined,
		},
		{
			"method",
			"m = {twice: x => x * 2}\nm.twice(4)",
			8.0,
		},
		{
			"record_member_recursion",
			"m = {fact: n => | n <= 1 = 1 | n * fact(n - 1)}\nm.fact(4)",
			24.0,
		},
		{
			"record_key_shadows_declaration",
			"a = 40\nr = {a: a + 2}\nr.a",
			42.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := run(t, tt.src)
			if err != nil {
				t.Fatalf("run: %v", err)
			}

			if !reflect.DeepEqual(Native(v), Native(tt.want)) || TypeOf(v) != TypeOf(tt.want) {
				t.Errorf("value = %s, want %s", FormatString(v), FormatString(tt.want))
			}
		})
	}
}

func TestEval_SemanticErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		kind ErrorKind
	}{
		{"unknown_name", "x + 1", NameNotFound},
		{"call_number", "5(1)", NotAFunction},
		{"call_name", "(f = 3 f(1))", NotAFunction},
		{"slice_record", "{a: 1}[0:1]", RecordSlice},
		{"attr_null", "null.a", NotIndexable},
		{"attr_missing", "{a: 1}.b", NameNotFound},
		{"index_type", `[1]["x"]`, InvalidIndexType},
		{"index_number", "5[0]", NotIndexable},
		{"module_outside", "./m.0", MissingModuleContext},
		{"load_outside", "@./data.txt", MissingModuleContext},
		{"operand", `1 - "a"`, InvalidOperand},
		{"uninitialized", "(a = b b = 1 a)", Uninitialized},
		{"object_cycle", "{a: b, b: a}", CircularDependency},
		{"object_cycle_through_outer", "(a = 1 {a: b, b: a})", CircularDependency},
		{"own_key_undeclared", "{x: x}", NameNotFound},
		{"spread_number", "[...1]", NotIndexable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := expr(t, tt.src)

			var se *SemanticError
			if !errors.As(err, &se) {
				t.Fatalf("%s: error = %v, want semantic error", tt.src, err)
			}

			if se.Kind != tt.kind {
				t.Errorf("%s: kind = %v, want %v", tt.src, se.Kind, tt.kind)
			}
		})
	}
}

func TestEval_NoLoader(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"module", "./m.0"},
		{"load", "@./data.txt"},
		{"import", "m#./m.0\nm"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.src)

			var se *SemanticError
			if !errors.As(err, &se) || se.Kind != MissingModuleContext {
				t.Fatalf("%q: error = %v, want %v", tt.src, err, MissingModuleContext)
			}

			if !errors.Is(err, ErrNoLoader) {
				t.Errorf("%q: error does not wrap %v", tt.src, ErrNoLoader)
			}
		})
	}
}

func TestEval_NameNotFoundListsAvailable(t *testing.T) {
	_, err := run(t, "alpha = 1\nbeta = 2\ngamma")

	var se *SemanticError
	if !errors.As(err, &se) || se.Kind != NameNotFound {
		t.Fatalf("error = %v, want name not found", err)
	}

	if se.Name != "gamma" {
		t.Errorf("Name = %q, want gamma", se.Name)
	}

	if want := []string{"alpha", "beta"}; !reflect.DeepEqual(se.Available, want) {
		t.Errorf("Available = %v, want %v", se.Available, want)
	}

	if got := se.Error(); !strings.HasPrefix(got, "test.0:3:1: name not found") {
		t.Errorf("Error() = %q", got)
	}
}

func TestEval_ErrorProvenance(t *testing.T) {
	src := "f = x => x.missing\ng = y => f(y)\ng({a: 1})"

	_, err := run(t, src)

	var se *SemanticError
	if !errors.As(err, &se) {
		t.Fatalf("error = %v, want semantic error", err)
	}

	trace := se.Trace()
	if len(trace) != 3 {
		t.Fatalf("Trace() = %v, want 3 frames", trace)
	}

	lines := []int{trace[0].Pos.Line, trace[1].Pos.Line, trace[2].Pos.Line}
	if !reflect.DeepEqual(lines, []int{3, 2, 1}) {
		t.Errorf("frame lines = %v, want [3 2 1]", lines)
	}

	if trace[2].Pos != (Position{Line: 1, Column: 11}) {
		t.Errorf("origin = %v, want 1:11", trace[2].Pos)
	}

	report := Report(err)
	if !strings.Contains(report, "available: a\n") {
		t.Errorf("report lacks available names:\n%s", report)
	}

	if strings.Index(report, "test.0:3:") > strings.Index(report, "test.0:1:") {
		t.Errorf("report is not in call-site order:\n%s", report)
	}
}

func TestEval_CallDepth(t *testing.T) {
	_, err := run(t, "f = x => f(x)\nf(1)", WithMaxDepth(50))

	var se *SemanticError
	if !errors.As(err, &se) || se.Kind != CallDepth {
		t.Fatalf("error = %v, want call depth error", err)
	}
}

func TestEval_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	n, err := ParseExpr("(x => x)(1)")
	if err != nil {
		t.Fatalf("ParseExpr: %v", err)
	}

	if _, err := Evaluate(ctx, n, NewScope(nil)); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

type fakeLoader struct {
	values map[string]any
	texts  map[string]string
}

func (f fakeLoader) Resolve(_, spec string) (string, error) { return spec, nil }

func (f fakeLoader) Value(_ context.Context, address string) (any, error) {
	if v, ok := f.values[address]; ok {
		return v, nil
	}

	return nil, &SemanticError{Kind: ModuleNotLoaded, Message: address}
}

func (f fakeLoader) Text(_ context.Context, address string) (string, error) {
	return f.texts[address], nil
}

func TestEval_ModuleReferences(t *testing.T) {
	loader := fakeLoader{
		values: map[string]any{"./lib.0": record("n", 40.0)},
		texts:  map[string]string{"./greeting.txt": "hi"},
	}

	src := "lib#./lib.0\nlib.n + ./lib.0.n + @./greeting.txt[.]"

	p, err := ParseProgram("main.0", src)
	if err != nil {
		t.Fatalf("ParseProgram: %v", err)
	}

	// "./lib.0.n" is a single address: path characters include '.'.
	if _, err := NewEvaluator().Program(
		t.Context(), p, &ModuleContext{Address: "main.0", Source: src, Loader: loader},
	); err == nil {
		t.Fatal("expected error for address ./lib.0.n")
	}

	src = "lib#./lib.0\nlib.n + (./lib.0).n - @./greeting.txt[.]"

	p, err = ParseProgram("main.0", src)
	if err != nil {
		t.Fatalf("ParseProgram: %v", err)
	}

	v, err := NewEvaluator().Program(
		t.Context(), p, &ModuleContext{Address: "main.0", Source: src, Loader: loader},
	)
	if err != nil {
		t.Fatalf("Program: %v", err)
	}

	if v != 78.0 {
		t.Errorf("value = %v, want 78", v)
	}
}
