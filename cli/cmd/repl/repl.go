package repl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ardnew/zero/lang"
	"github.com/ardnew/zero/log"
)

// Evaluator evaluates source text in a session scope that keeps the imports
// and declarations of earlier input.
type Evaluator interface {
	Session() *lang.Scope
	Extend(ctx context.Context, src string, s *lang.Scope) (any, error)
}

// editMsg is sent when editing the transcript completes successfully.
type editMsg struct{ source string }

// editCancelledMsg is sent when the user cleared the editor content.
type editCancelledMsg struct{}

// editDeclinedMsg is sent when the user declined to re-edit after a syntax
// error.
type editDeclinedMsg struct{}

// editErrorMsg is sent when the edit process encounters a non-syntax error.
type editErrorMsg struct{ err error }

const (
	evalPrompt = "➜ "
	ctrlPrompt = " :"
)

const helpMessage = `
: Commands (press Esc to toggle mode):

  help     Print this help
  list     List the names declared in this session
  edit     Edit the session declarations in $EDITOR
  clear    Clear screen
  quit     Exit

Usage:
  Type an expression to evaluate it
  Type name = expr to declare a name, or name#address to import a module
  Completions appear automatically as you type
  Press Tab / Shift-Tab to cycle through candidates
  Press Esc to toggle between eval and command modes
  Use Up/Down arrows for history navigation (mode switches automatically)
  Use Shift+Up/Shift+Down for history navigation within current mode only
  Press Ctrl+C on empty line or Ctrl+D to exit`

// inputMode represents the current input mode.
type inputMode int

const (
	modeEval inputMode = iota
	modeCtrl
)

// Styles.
var (
	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("6")).
			Bold(true)
	ctrlPromptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("5")).
			Bold(true)
	inputStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	resultStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	hintStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	suggestionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	selectedStyle   = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("4"))
)

// model is the Bubble Tea model for the REPL.
type model struct {
	ctxFunc      func() context.Context
	input        textinput.Model
	eval         Evaluator
	scope        *lang.Scope
	source       string // imports and declarations entered so far
	logger       log.Logger
	history      *History
	historyIdx   int
	matches      fuzzy.Matches // current fuzzy match results
	candidates   []string      // backing candidate list
	wordStart    int           // byte offset of current word start
	wordEnd      int           // byte offset of current word end
	suggIdx      int           // selected candidate index
	tabActive    bool          // whether user is tab-cycling
	preTabText   string        // input text before tab-cycling began
	preTabCursor int           // cursor position before tab-cycling began
	width        int           // terminal width for ellipsization
	quitting     bool
	mode         inputMode
	evalText     string
	evalCursor   int
	ctrlText     string
	ctrlCursor   int
}

// Run starts the REPL. The seed source, if any, is evaluated first and its
// declarations are visible to the session.
func Run(
	ctx context.Context,
	eval Evaluator,
	seed string,
	historyPath string,
	logger log.Logger,
) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	logger.TraceContext(
		ctx,
		"repl start",
		slog.String("history", historyPath),
		slog.Bool("has_seed", seed != ""),
	)

	history := NewHistory(historyPath)
	if err := history.Load(); err != nil {
		logger.WarnContext(ctx, "could not load history", slog.Any("error", err))
	}

	m := newModel(ctx, eval, history, logger)

	if strings.TrimSpace(seed) != "" {
		if _, err := eval.Extend(ctx, seed, m.scope); err != nil {
			return err
		}

		m.source = strings.TrimRight(seed, "\n") + "\n"
	}

	logger.TraceContext(
		ctx,
		"repl session ready",
		slog.Int("history_count", history.Len()),
		slog.Int("name_count", len(m.scope.Local())),
	)

	_, err = tea.NewProgram(m, tea.WithContext(ctx)).Run()

	return err
}

const defaultWidth = 80

func newModel(
	ctx context.Context,
	eval Evaluator,
	history *History,
	logger log.Logger,
) *model {
	ti := textinput.New()
	ti.Prompt = promptStyle.Render(evalPrompt)
	ti.Focus()
	ti.CharLimit = 1024
	ti.Width = defaultWidth

	return &model{
		ctxFunc:    func() context.Context { return ctx },
		input:      ti,
		eval:       eval,
		scope:      eval.Session(),
		logger:     logger,
		history:    history,
		historyIdx: history.Len(),
		width:      defaultWidth,
		mode:       modeEval,
	}
}

func (m *model) Init() tea.Cmd {
	return textinput.Blink
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m, m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = msg.Width - len(evalPrompt) - 2

		return m, nil

	case editMsg:
		return m, m.replaceSession(msg.source)

	case editCancelledMsg:
		return m, tea.Println(hintStyle.Render("edit cancelled"))

	case editDeclinedMsg:
		m.quitting = true

		return m, tea.Quit

	case editErrorMsg:
		return m, tea.Println(errorStyle.Render("error: " + msg.err.Error()))
	}

	var cmd tea.Cmd

	m.input, cmd = m.input.Update(msg)

	return m, cmd
}

func (m *model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(m.input.View())
	b.WriteString("\n")

	input := m.input.Value()
	call := detectFunctionCall(input, m.input.Position())

	switch {
	case m.historyIdx < m.history.Len():
		hint := fmt.Sprintf("%s/%d",
			lipgloss.NewStyle().Bold(true).Render(strconv.Itoa(m.historyIdx+1)),
			m.history.Len())
		b.WriteString(hintStyle.Render(hint))

	case strings.TrimSpace(input) == "":
		hint := "Type an expression or press Esc for commands"
		if m.mode == modeCtrl {
			hint = "Type: help, list, edit, clear, quit (press Esc to return)"
		}

		b.WriteString(hintStyle.Render(hint))

	case call.inCall && m.mode == modeEval && renderSignatureHint(m.scope, call) != "":
		b.WriteString(renderSignatureHint(m.scope, call))

	case len(m.matches) > 0:
		b.WriteString(renderCandidateBar(m.matches, m.suggIdx, m.tabActive, m.width, m.isFunction))
	}

	b.WriteString("\n")

	return b.String()
}

// isFunction reports whether name is bound to a function in the session.
func (m *model) isFunction(name string) bool {
	if m.mode != modeEval {
		return false
	}

	v, ok := m.scope.Get(name)
	if !ok {
		return false
	}

	_, ok = v.(*lang.Closure)

	return ok
}

func (m *model) handleKey(msg tea.KeyMsg) tea.Cmd {
	m.logger.TraceContext(
		m.ctxFunc(),
		"repl keypress",
		slog.String("key", msg.String()),
	)

	switch msg.Type {
	case tea.KeyCtrlC:
		if m.input.Value() == "" {
			m.quitting = true

			return tea.Quit
		}

		m.input.SetValue("")
		m.tabActive = false
		m.historyIdx = m.history.Len()
		m.refreshMatches(false)

		return nil

	case tea.KeyCtrlD:
		if m.input.Value() == "" {
			m.quitting = true

			return tea.Quit
		}

		return nil

	case tea.KeyEnter:
		if !m.tabActive || len(m.matches) == 0 {
			return m.executeInput()
		}

		// Lock in the current tab candidate without executing.
		m.tabActive = false
		m.refreshMatches(true)

		return nil

	case tea.KeyTab:
		m.cycle(1)

		return nil

	case tea.KeyShiftTab:
		m.cycle(-1)

		return nil

	case tea.KeyUp:
		m.historyStep(-1, false)

		return nil

	case tea.KeyDown:
		m.historyStep(1, false)

		return nil

	case tea.KeyShiftUp:
		m.historyStep(-1, true)

		return nil

	case tea.KeyShiftDown:
		m.historyStep(1, true)

		return nil

	case tea.KeyEsc:
		if m.tabActive {
			m.tabActive = false
			m.input.SetValue(m.preTabText)
			m.input.SetCursor(m.preTabCursor)
			m.refreshMatches(false)

			return nil
		}

		if m.mode == modeEval {
			m.switchToMode(modeCtrl)
		} else {
			m.switchToMode(modeEval)
		}

		return nil

	case tea.KeyRunes:
		if m.tabActive && msg.String() == " " {
			m.tabActive = false
		}

		var cmd tea.Cmd

		m.historyIdx = m.history.Len()
		m.input, cmd = m.input.Update(msg)
		m.refreshMatches(true)

		return cmd
	}

	// Any other key (backspace, delete, arrows, etc.) edits without
	// auto-confirming a completion.
	var cmd tea.Cmd

	m.tabActive = false
	m.historyIdx = m.history.Len()
	m.input, cmd = m.input.Update(msg)
	m.refreshMatches(false)

	return cmd
}

// cycle moves the tab selection by step through the current candidates.
func (m *model) cycle(step int) {
	if len(m.matches) == 0 {
		return
	}

	if len(m.matches) == 1 {
		m.replaceCurrentWord(m.matches[0].Str)
		m.tabActive = false
		m.suggIdx = -1
		m.matches = nil

		return
	}

	if m.tabActive {
		m.suggIdx = (m.suggIdx + step + len(m.matches)) % len(m.matches)
	} else {
		m.tabActive = true
		m.preTabText = m.input.Value()
		m.preTabCursor = m.input.Position()

		m.suggIdx = 0
		if step < 0 {
			m.suggIdx = len(m.matches) - 1
		}
	}

	m.replaceCurrentWord(m.matches[m.suggIdx].Str)
}

// replaceCurrentWord replaces the current word in the input with the given
// text and repositions the cursor after it.
func (m *model) replaceCurrentWord(replacement string) {
	input := m.input.Value()
	cursor := m.wordStart + len(replacement)

	m.input.SetValue(input[:m.wordStart] + replacement + input[m.wordEnd:])
	m.input.SetCursor(cursor)

	m.wordEnd = cursor
}

// refreshMatches recomputes fuzzy matches for the current input state.
// When autoConfirm is true it also confirms the completion when exactly one
// candidate remains and the typed word already equals it.
func (m *model) refreshMatches(autoConfirm bool) {
	m.matches, m.candidates, m.wordStart, m.wordEnd = m.computeMatches()

	if !m.tabActive {
		m.suggIdx = -1
	}

	if !autoConfirm || len(m.matches) != 1 {
		return
	}

	if m.input.Value()[m.wordStart:m.wordEnd] == m.matches[0].Str {
		m.tabActive = false
		m.suggIdx = -1
		m.matches = nil
	}
}

func (m *model) executeInput() tea.Cmd {
	input := strings.TrimSpace(m.input.Value())
	if input == "" {
		return nil
	}

	m.evalText, m.evalCursor = "", 0
	m.ctrlText, m.ctrlCursor = "", 0
	m.input.SetValue("")
	m.matches = nil

	if err := m.history.Write(input, m.mode); err != nil {
		m.logger.DebugContext(m.ctxFunc(), "history write failed", slog.Any("error", err))
	}

	m.historyIdx = m.history.Len()

	if m.mode == modeCtrl {
		return m.executeCommand(input)
	}

	echo := tea.Println(promptStyle.Render(evalPrompt) + inputStyle.Render(input))

	return tea.Sequence(echo, tea.Println(m.evaluate(input)))
}

// evaluate runs one line of input in the session and renders the outcome.
func (m *model) evaluate(input string) string {
	ctx := m.ctxFunc()

	p, err := lang.ParseProgram("<input>", input)
	if err != nil {
		return errorStyle.Render(lang.Report(err))
	}

	v, err := m.eval.Extend(ctx, input, m.scope)

	m.logger.TraceContext(
		ctx,
		"repl eval",
		slog.String("input", input),
		slog.String("type", lang.TypeOf(v)),
		slog.Bool("ok", err == nil),
	)

	if err != nil {
		return errorStyle.Render(strings.TrimRight(lang.Report(err), "\n"))
	}

	if len(p.Imports) == 0 && len(p.Decls) == 0 {
		return resultStyle.Render(lang.FormatString(v))
	}

	m.source += input + "\n"

	var out []string

	for _, imp := range p.Imports {
		out = append(out, hintStyle.Render(imp.Name+" # "+imp.Spec))
	}

	for _, d := range p.Decls {
		val, _ := m.scope.Get(d.Name)
		out = append(out, resultStyle.Render(d.Name+" = "+preview(val)))
	}

	if p.Body != nil {
		out = append(out, resultStyle.Render(lang.FormatString(v)))
	}

	return strings.Join(out, "\n")
}

func (m *model) executeCommand(input string) tea.Cmd {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return nil
	}

	echo := tea.Println(ctrlPromptStyle.Render(ctrlPrompt) + inputStyle.Render(input))

	m.logger.TraceContext(
		m.ctxFunc(),
		"repl command",
		slog.String("command", parts[0]),
		slog.Any("args", parts[1:]),
	)

	switch parts[0] {
	case "q", "quit", "exit":
		m.quitting = true

		return tea.Sequence(echo, tea.Quit)

	case "h", "help":
		return tea.Sequence(echo, tea.Println(helpMessage))

	case "l", "list":
		return tea.Sequence(echo, tea.Println(m.list()))

	case "c", "clear":
		return tea.ClearScreen

	case "e", "edit":
		return tea.Sequence(echo, m.edit())

	default:
		return tea.Println(
			errorStyle.Render("Unknown command: " + parts[0] + " (try 'help')"),
		)
	}
}

// list renders the names declared in the session with a value preview.
func (m *model) list() string {
	var b strings.Builder

	for _, name := range m.scope.Local() {
		v, _ := m.scope.Get(name)
		fmt.Fprintf(&b, "  %s %s\n", name, hintStyle.Render(preview(v)))
	}

	return b.String()
}

func (m *model) edit() tea.Cmd {
	cmd := &editCommand{
		source:  m.source,
		ctxFunc: m.ctxFunc,
		logger:  m.logger,
	}

	return tea.Exec(cmd, func(err error) tea.Msg {
		if errors.Is(err, ErrEditDeclined) {
			return editDeclinedMsg{}
		}

		if err != nil {
			return editErrorMsg{err: err}
		}

		if cmd.edited == nil {
			return editCancelledMsg{}
		}

		return editMsg{source: *cmd.edited}
	})
}

// replaceSession evaluates source in a fresh session and adopts it if it
// succeeds.
func (m *model) replaceSession(source string) tea.Cmd {
	scope := m.eval.Session()

	if _, err := m.eval.Extend(m.ctxFunc(), source, scope); err != nil {
		return tea.Println(errorStyle.Render(strings.TrimRight(lang.Report(err), "\n")))
	}

	m.scope = scope
	m.source = source

	m.logger.TraceContext(
		m.ctxFunc(),
		"repl edit complete",
		slog.Int("name_count", len(scope.Local())),
	)

	return tea.Println(resultStyle.Render("session updated"))
}

// historyStep moves through history by step. With inMode set, entries of
// the other mode are skipped; otherwise the mode follows the entry.
func (m *model) historyStep(step int, inMode bool) {
	for i := m.historyIdx + step; i >= 0 && i < m.history.Len(); i += step {
		entry, err := m.history.Entry(i)
		if err != nil {
			return
		}

		if inMode && entry.Mode != m.mode {
			continue
		}

		if entry.Mode != m.mode {
			m.switchToMode(entry.Mode)
		}

		m.historyIdx = i
		m.input.SetValue(entry.Line)
		m.input.SetCursor(len(entry.Line))
		m.refreshMatches(false)

		return
	}

	// Stepping past the newest entry returns to an empty line.
	if step > 0 && m.historyIdx < m.history.Len() {
		m.historyIdx = m.history.Len()
		m.input.SetValue("")
		m.refreshMatches(false)
	}
}

// switchToMode switches to the specified mode, preserving the input of the
// mode being left.
func (m *model) switchToMode(mode inputMode) {
	if m.mode == modeEval {
		m.evalText, m.evalCursor = m.input.Value(), m.input.Position()
	} else {
		m.ctrlText, m.ctrlCursor = m.input.Value(), m.input.Position()
	}

	m.mode = mode

	if mode == modeEval {
		m.input.Prompt = promptStyle.Render(evalPrompt)
		m.input.SetValue(m.evalText)
		m.input.SetCursor(m.evalCursor)
	} else {
		m.input.Prompt = ctrlPromptStyle.Render(ctrlPrompt)
		m.input.SetValue(m.ctrlText)
		m.input.SetCursor(m.ctrlCursor)
	}

	m.refreshMatches(false)
}
