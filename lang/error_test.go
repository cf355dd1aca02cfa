package lang

import (
	"errors"
	"strings"
	"testing"
)

func TestLocate(t *testing.T) {
	src := "first\n\tsecond line\r\nthird"

	tests := []struct {
		offset int
		pos    Position
		text   string
	}{
		{0, Position{1, 1}, "first"},
		{5, Position{1, 6}, "first"},
		{7, Position{2, 2}, "\tsecond line"},
		{len(src), Position{3, 6}, "third"},
		{-3, Position{1, 1}, "first"},
	}

	for _, tt := range tests {
		pos, text := Locate(src, tt.offset)
		if pos != tt.pos || text != tt.text {
			t.Errorf("Locate(%d) = %v, %q, want %v, %q", tt.offset, pos, text, tt.pos, tt.text)
		}
	}
}

func TestLocate_CountsCharacters(t *testing.T) {
	src := `"héllo" + x`

	pos, _ := Locate(src, strings.Index(src, "x"))
	if pos.Column != 11 {
		t.Errorf("Column = %d, want 11", pos.Column)
	}
}

func TestSnippet(t *testing.T) {
	got := snippet(12, "\ta + b", 4)
	want := "  12 | \ta + b\n" + "       \t  ^\n"

	if got != want {
		t.Errorf("snippet() = %q, want %q", got, want)
	}
}

func TestSyntaxError_Error(t *testing.T) {
	err := &SyntaxError{
		Source:   "a = ",
		Offset:   4,
		Expected: []string{"a", "b", "c", "d", "e", "f", "g", "h", "i"},
	}

	want := "<input>:1:5: syntax error: expected a, b, c, d, e, f, g, h, …"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	report := Report(err)
	if !strings.HasSuffix(report, "  1 | a = \n          ^\n") {
		t.Errorf("Report() = %q", report)
	}
}

func TestSemanticError_TraceCollapsesLines(t *testing.T) {
	src := "f = x => x.y\nf(1) + f(2)"

	err := &SemanticError{Kind: NotIndexable}
	err.Push(NewFrame("m.0", src, 10, ""))
	err.Push(NewFrame("m.0", src, 20, "f"))
	err.Push(NewFrame("m.0", src, 13, "f"))
	err.Push(NewFrame("n.0", "m.0.v", 0, "m.0"))

	trace := err.Trace()

	var got []string
	for _, f := range trace {
		got = append(got, f.String())
	}

	want := []string{"n.0:1:1 (m.0)", "m.0:2:8 (f)", "m.0:1:11"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("Trace() = %v, want %v", got, want)
	}
}

func TestSemanticError_Report(t *testing.T) {
	err := &SemanticError{
		Kind:      NameNotFound,
		Message:   `"z" is not defined`,
		Available: []string{"x", "y"},
	}
	err.Push(NewFrame("m.0", "x = 1\ny = z", 10, ""))

	want := strings.Join([]string{
		`error: name not found: "z" is not defined`,
		"m.0:2:5",
		"  2 | y = z",
		"          ^",
		"available: x, y",
		"",
	}, "\n")

	if got := err.Report(); got != want {
		t.Errorf("Report() =\n%s\nwant\n%s", got, want)
	}

	if got := err.Error(); got != `m.0:2:5: name not found: "z" is not defined` {
		t.Errorf("Error() = %q", got)
	}
}

func TestReport_OtherErrors(t *testing.T) {
	if got := Report(errors.New("boom")); got != "boom\n" {
		t.Errorf("Report() = %q", got)
	}
}

func TestError_IsSentinel(t *testing.T) {
	err := ErrNoLoader.Wrap(errors.New("detail"))

	if !errors.Is(err, ErrNoLoader) {
		t.Error("wrapped error does not match its sentinel")
	}

	if errors.Is(err, ErrParse) {
		t.Error("wrapped error matches an unrelated sentinel")
	}

	if got := err.Error(); got != "no module loader: detail" {
		t.Errorf("Error() = %q", got)
	}
}
