package repl

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ardnew/zero/log"
	"github.com/ardnew/zero/module"
)

func testModel(t *testing.T) *model {
	t.Helper()

	return newModel(t.Context(), module.New(nil), NewHistory(""), log.Logger{})
}

func TestModel_EvaluateKeepsSession(t *testing.T) {
	m := testModel(t)

	steps := []struct {
		input string
		want  string
	}{
		{"x = 20", "x = 20"},
		{"double = n => n * 2", "double = n => …"},
		{"double(x) + 2", "42"},
		{"nope + 1", "nope"},
		{"1 +", "syntax error"},
	}

	for _, step := range steps {
		if got := m.evaluate(step.input); !strings.Contains(got, step.want) {
			t.Errorf("evaluate(%q) = %q, want it to contain %q", step.input, got, step.want)
		}
	}

	if want := "x = 20\ndouble = n => n * 2\n"; m.source != want {
		t.Errorf("source = %q, want %q", m.source, want)
	}

	list := m.list()
	for _, name := range []string{"x", "double"} {
		if !strings.Contains(list, name) {
			t.Errorf("list() = %q, missing %q", list, name)
		}
	}
}

func TestModel_ReplaceSession(t *testing.T) {
	m := testModel(t)
	m.evaluate("x = 1")

	m.replaceSession("y = 2\n")

	if _, ok := m.scope.Get("x"); ok {
		t.Error("x survived session replacement")
	}

	if v, ok := m.scope.Get("y"); !ok || v != 2.0 {
		t.Errorf("y = %v, %v; want 2", v, ok)
	}

	if m.source != "y = 2\n" {
		t.Errorf("source = %q", m.source)
	}

	// A failing edit keeps the current session.
	m.replaceSession("z = nope\n")

	if _, ok := m.scope.Get("y"); !ok {
		t.Error("failed edit discarded the session")
	}
}

func TestModel_ModeToggle(t *testing.T) {
	m := testModel(t)

	m.input.SetValue("1 + 1")
	m.handleKey(tea.KeyMsg{Type: tea.KeyEsc})

	if m.mode != modeCtrl || m.input.Value() != "" {
		t.Fatalf("after Esc: mode = %v, input = %q", m.mode, m.input.Value())
	}

	m.input.SetValue("li")
	m.refreshMatches(false)

	if len(m.matches) == 0 || m.matches[0].Str != "list" {
		t.Errorf("command matches = %v, want list first", m.matches)
	}

	m.handleKey(tea.KeyMsg{Type: tea.KeyEsc})

	if m.mode != modeEval || m.input.Value() != "1 + 1" {
		t.Errorf("after second Esc: mode = %v, input = %q", m.mode, m.input.Value())
	}
}

func TestModel_HistoryNavigationSwitchesMode(t *testing.T) {
	m := testModel(t)

	for _, e := range []HistoryEntry{
		{Line: "x = 1", Mode: modeEval},
		{Line: "list", Mode: modeCtrl},
	} {
		if err := m.history.Write(e.Line, e.Mode); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}

	m.historyIdx = m.history.Len()

	m.historyStep(-1, false)

	if m.mode != modeCtrl || m.input.Value() != "list" {
		t.Errorf("Up: mode = %v, input = %q", m.mode, m.input.Value())
	}

	m.historyStep(-1, false)

	if m.mode != modeEval || m.input.Value() != "x = 1" {
		t.Errorf("Up: mode = %v, input = %q", m.mode, m.input.Value())
	}

	m.historyStep(1, true) // skips the command entry

	if m.input.Value() != "" || m.historyIdx != m.history.Len() {
		t.Errorf("Shift+Down: input = %q, idx = %d", m.input.Value(), m.historyIdx)
	}
}
