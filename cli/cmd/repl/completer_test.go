package repl

import (
	"context"
	"slices"
	"testing"

	"github.com/sahilm/fuzzy"

	"github.com/ardnew/zero/lang"
)

func TestWordBounds_ExprOperators(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		cursor    int
		wantWord  string
		wantStart int
		wantEnd   int
	}{
		{"simple", "foo", 3, "foo", 0, 3},
		{"dot_separated", "bar.baz", 7, "baz", 4, 7},
		{"after_plus", "a + fo", 6, "fo", 4, 6},
		{"after_paren", "double(fo", 9, "fo", 7, 9},
		{"after_comma", "add(a, fo", 9, "fo", 7, 9},
		{"after_comparison", "a > fo", 6, "fo", 4, 6},
		{"empty_at_boundary", "a + ", 4, "", 4, 4},
		{"mid_word", "foobar", 3, "foobar", 0, 6},
		{"at_start", "foo", 0, "foo", 0, 3},
		{"between_operators", "a+b", 2, "b", 2, 3},
		{"minus_is_operator", "a-b", 3, "b", 2, 3},
		{"underscore", "log_level", 9, "log_level", 0, 9},
		{"underscore_after_dot", "config.log_le", 13, "log_le", 7, 13},
		{"after_import_hash", "m#./lib", 7, "lib", 4, 7},
		{"empty_after_dot", "config.", 7, "", 7, 7},
		{"unicode", "größe", 7, "größe", 0, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			word, start, end := wordBounds(tt.input, tt.cursor)
			if word != tt.wantWord || start != tt.wantStart || end != tt.wantEnd {
				t.Errorf("wordBounds(%q, %d) = (%q, %d, %d), want (%q, %d, %d)",
					tt.input, tt.cursor, word, start, end,
					tt.wantWord, tt.wantStart, tt.wantEnd)
			}
		})
	}
}

func TestParentPath_WithOperators(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wordStart int
		want      string
	}{
		{"top_level", "fo", 0, ""},
		{"simple_chain", "bar.baz.", 8, "bar.baz"},
		{"after_operator", "foo + bar.baz.", 14, "bar.baz"},
		{"after_paren", "(bar.baz.", 9, "bar.baz"},
		{"no_chain", "a + ", 4, ""},
		{"deep_chain", "a.b.c.", 6, "a.b.c"},
		{"after_equals", "x = a.b.", 8, "a.b"},
		{"underscore_chain", "config.log_level.", 17, "config.log_level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parentPath(tt.input, tt.wordStart)
			if got != tt.want {
				t.Errorf("parentPath(%q, %d) = %q, want %q",
					tt.input, tt.wordStart, got, tt.want)
			}
		})
	}
}

// testScope returns a scope holding a nested record, a function, and an
// unforced module thunk.
func testScope(t *testing.T) *lang.Scope {
	t.Helper()

	http := lang.NewRecord()
	http.Set("host", "localhost")
	http.Set("port", 8080.0)

	server := lang.NewRecord()
	server.Set("http", http)
	server.Set("name", "api")

	s := lang.NewScope(nil)
	s.Define("server", server)
	s.Define("double", &lang.Closure{
		Lambda: &lang.Lambda{Param: lang.Param{Name: "n"}},
		Scope:  s,
	})
	s.Define("lib", lang.NewLazy("lib", func(context.Context) (any, error) {
		t.Error("completion forced a module")

		return nil, nil
	}))

	return s
}

func TestLookupPath(t *testing.T) {
	s := testScope(t)

	tests := []struct {
		name   string
		path   string
		wantOK bool
		want   any
	}{
		{"top_level", "server", true, nil},
		{"nested", "server.http.port", true, 8080.0},
		{"missing_top", "client", false, nil},
		{"missing_key", "server.grpc", false, nil},
		{"through_scalar", "server.name.x", false, nil},
		{"through_thunk", "lib.x", false, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := lookupPath(s, tt.path)
			if ok != tt.wantOK {
				t.Fatalf("lookupPath(%q) ok = %v, want %v", tt.path, ok, tt.wantOK)
			}

			if tt.want != nil && got != tt.want {
				t.Errorf("lookupPath(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestChildCandidates(t *testing.T) {
	s := testScope(t)
	child := s.Child()
	child.Define("x", 1.0)

	tests := []struct {
		name   string
		scope  *lang.Scope
		parent string
		want   []string
	}{
		{"top_level", s, "", []string{"double", "lib", "server"}},
		{"inner_scope", child, "", []string{"double", "lib", "server", "x"}},
		{"record", s, "server", []string{"http", "name"}},
		{"nested_record", s, "server.http", []string{"host", "port"}},
		{"function", s, "double", nil},
		{"missing", s, "nope", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := childCandidates(tt.scope, tt.parent)
			if !slices.Equal(got, tt.want) {
				t.Errorf("childCandidates(%q) = %v, want %v", tt.parent, got, tt.want)
			}
		})
	}
}

func TestPreview(t *testing.T) {
	long := "abcdefghijklmnopqrstuvwxyzabcdefghijklmnopqrstuvwxyz"

	tests := []struct {
		name string
		v    any
		want string
	}{
		{"number", 42.0, "42"},
		{"module", lang.NewLazy("m", nil), "<module>"},
		{
			"function",
			&lang.Closure{Lambda: &lang.Lambda{Param: lang.Param{Name: "n"}}},
			"n => …",
		},
		{
			"guarded",
			&lang.Closure{Lambda: &lang.Lambda{
				Param:   lang.Param{Fields: []string{"a", "b"}},
				Guarded: true,
			}},
			"{a b} => | …",
		},
		{"truncated", long, `"` + long[:36] + "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := preview(tt.v); got != tt.want {
				t.Errorf("preview() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderCandidateBar_Ellipsizes(t *testing.T) {
	candidates := []string{"alpha", "bravo", "charlie", "delta", "echo"}
	matches := fuzzy.Find("a", candidates)

	if got := renderCandidateBar(nil, 0, false, 80, nil); got != "" {
		t.Errorf("empty matches rendered %q", got)
	}

	full := renderCandidateBar(matches, -1, false, 200, func(string) bool { return false })
	short := renderCandidateBar(matches, -1, false, 12, func(string) bool { return false })

	if len(short) >= len(full) {
		t.Errorf("narrow bar (%d bytes) not shorter than wide bar (%d bytes)",
			len(short), len(full))
	}
}
