package lang

import (
	"errors"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Predefined errors (sentinel values).
var (
	ErrGrammar  = NewError("invalid language grammar")
	ErrParse    = NewError("parse error")
	ErrNoLoader = NewError("no module loader")
)

// Error represents an error with optional structured logging attributes.
// It implements both error and slog.LogValuer interfaces.
type Error struct {
	msg   string
	err   error       // Wrapped error (for errors.Unwrap)
	attrs []slog.Attr // Attributes for structured logging
}

// NewError creates a new Error with a message.
func NewError(msg string) *Error {
	return &Error{msg: msg}
}

// Error implements the error interface.
func (e *Error) Error() string {
	part := make([]string, 0, 2)

	if e.msg != "" {
		part = append(part, e.msg)
	}

	if e.err != nil {
		part = append(part, e.err.Error())
	}

	return strings.Join(part, ": ")
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error { return e.err }

// Is reports whether target is the sentinel this error was derived from.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)

	return ok && t.msg == e.msg && t.msg != ""
}

// LogValue implements slog.LogValuer for rich structured logging.
func (e *Error) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, len(e.attrs)+2)

	if e.msg != "" {
		attrs = append(attrs, slog.String("error", e.msg))
	}

	if e.err != nil {
		attrs = append(attrs, slog.String("cause", e.err.Error()))
	}

	return slog.GroupValue(append(attrs, e.attrs...)...)
}

// Wrap creates a new Error wrapping another error.
func (e *Error) Wrap(err error) *Error {
	return &Error{
		msg:   e.msg,
		err:   err,
		attrs: e.attrs, // Share attrs
	}
}

// With adds attributes to the error for structured logging.
// This creates a new Error instance to maintain immutability.
func (e *Error) With(attrs ...slog.Attr) *Error {
	newAttrs := make([]slog.Attr, len(e.attrs)+len(attrs))
	copy(newAttrs, e.attrs)
	copy(newAttrs[len(e.attrs):], attrs)

	return &Error{
		msg:   e.msg,
		err:   e.err,
		attrs: newAttrs,
	}
}

// Position is a 1-based line and column within a source text. Columns count
// characters, not bytes.
type Position struct {
	Line, Column int
}

// String returns "line:column".
func (p Position) String() string {
	return strconv.Itoa(p.Line) + ":" + strconv.Itoa(p.Column)
}

// Locate returns the position of byte offset within src and the full text
// of the line containing it.
func Locate(src string, offset int) (Position, string) {
	offset = min(max(offset, 0), len(src))

	start := strings.LastIndexByte(src[:offset], '\n') + 1

	end := strings.IndexByte(src[offset:], '\n')
	if end < 0 {
		end = len(src)
	} else {
		end += offset
	}

	return Position{
		Line:   strings.Count(src[:start], "\n") + 1,
		Column: utf8.RuneCountInString(src[start:offset]) + 1,
	}, strings.TrimSuffix(src[start:end], "\r")
}

// snippet renders a source line with a caret under column.
//
//	  3 | a + x
//	          ^
func snippet(line int, text string, column int) string {
	var sb strings.Builder

	num := strconv.Itoa(line)

	sb.WriteString("  ")
	sb.WriteString(num)
	sb.WriteString(" | ")
	sb.WriteString(text)
	sb.WriteRune('\n')

	// +5 accounts for: 2 leading spaces + " | " (3 chars)
	sb.WriteString(strings.Repeat(" ", len(num)+5))

	// Tabs in the source line keep their width in the marker line.
	for i, r := range []rune(text) {
		if i >= column-1 {
			break
		}

		if r == '\t' {
			sb.WriteRune('\t')
		} else {
			sb.WriteRune(' ')
		}
	}

	sb.WriteString("^\n")

	return sb.String()
}

// maxExpected limits the number of alternatives listed in a syntax error.
const maxExpected = 8

// SyntaxError reports input the grammar could not match.
type SyntaxError struct {
	Address  string
	Source   string
	Expected []string
	Offset   int
}

// Position returns the location of the error within its source.
func (e *SyntaxError) Position() Position {
	pos, _ := Locate(e.Source, e.Offset)

	return pos
}

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	var sb strings.Builder

	sb.WriteString(location(e.Address, e.Position()))
	sb.WriteString(": syntax error")

	if len(e.Expected) > 0 {
		exp := e.Expected
		if len(exp) > maxExpected {
			exp = append(slices.Clone(exp[:maxExpected]), "…")
		}

		sb.WriteString(": expected ")
		sb.WriteString(strings.Join(exp, ", "))
	}

	return sb.String()
}

// Snippet returns the offending source line with a caret marker.
func (e *SyntaxError) Snippet() string {
	pos, text := Locate(e.Source, e.Offset)

	return snippet(pos.Line, text, pos.Column)
}

// Unwrap allows errors.Is(err, ErrParse).
func (e *SyntaxError) Unwrap() error { return ErrParse }

// LogValue implements slog.LogValuer.
func (e *SyntaxError) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("error", "syntax error"),
		slog.String("address", e.Address),
		slog.String("position", e.Position().String()),
		slog.Any("expected", e.Expected),
	)
}

func location(address string, pos Position) string {
	if address == "" {
		address = "<input>"
	}

	return address + ":" + pos.String()
}

// ErrorKind classifies a [SemanticError].
type ErrorKind int

const (
	NameNotFound ErrorKind = iota
	NotAFunction
	NotIndexable
	InvalidIndexType
	RecordSlice
	MissingModuleContext
	ModuleNotLoaded
	CircularDependency
	Uninitialized
	InvalidOperand
	CallDepth
)

// String returns a short description of the kind.
func (k ErrorKind) String() string {
	switch k {
	case NameNotFound:
		return "name not found"
	case NotAFunction:
		return "not a function"
	case NotIndexable:
		return "value is not indexable"
	case InvalidIndexType:
		return "invalid index type"
	case RecordSlice:
		return "cannot slice a record"
	case MissingModuleContext:
		return "missing module context"
	case ModuleNotLoaded:
		return "module not loaded"
	case CircularDependency:
		return "circular dependency"
	case Uninitialized:
		return "name used before initialization"
	case InvalidOperand:
		return "invalid operand"
	case CallDepth:
		return "maximum call depth exceeded"
	default:
		return "ErrorKind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Frame is one step of a semantic error's provenance: the module and source
// location of a failing expression, call site, or module reference.
type Frame struct {
	Address string
	Name    string
	Text    string // source line
	Pos     Position
	Offset  int
}

// String returns "address:line:col" optionally followed by the frame name.
func (f Frame) String() string {
	s := location(f.Address, f.Pos)
	if f.Name != "" {
		s += " (" + f.Name + ")"
	}

	return s
}

// NewFrame returns the frame for offset within the module at address whose
// text is src.
func NewFrame(address, src string, offset int, name string) Frame {
	pos, text := Locate(src, offset)

	return Frame{
		Address: address,
		Name:    name,
		Text:    text,
		Pos:     pos,
		Offset:  offset,
	}
}

// SemanticError is raised while evaluating a syntactically valid program.
//
// Frames accumulate as the error unwinds through calls and module
// references; the first frame is where the error originated.
type SemanticError struct {
	Err       error // underlying cause, if any
	Name      string
	Message   string
	Available []string
	Frames    []Frame
	Kind      ErrorKind
}

// Error implements the error interface. It reports the kind, message and
// location where the error originated.
func (e *SemanticError) Error() string {
	var sb strings.Builder

	if len(e.Frames) > 0 {
		f := e.Frames[0]
		sb.WriteString(location(f.Address, f.Pos))
		sb.WriteString(": ")
	}

	sb.WriteString(e.Kind.String())

	if e.Message != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Message)
	}

	return sb.String()
}

// Unwrap returns the underlying cause.
func (e *SemanticError) Unwrap() error { return e.Err }

// Push appends a provenance frame.
func (e *SemanticError) Push(f Frame) *SemanticError {
	e.Frames = append(e.Frames, f)

	return e
}

// Trace returns the frames in call-site order, from the outermost caller to
// the origin, with immediately repeated frames on the same line of the same
// module collapsed.
func (e *SemanticError) Trace() []Frame {
	out := make([]Frame, 0, len(e.Frames))

	for i := len(e.Frames) - 1; i >= 0; i-- {
		f := e.Frames[i]

		if n := len(out); n > 0 {
			last := out[n-1]
			if last.Address == f.Address && last.Pos.Line == f.Pos.Line {
				out[n-1] = f

				continue
			}
		}

		out = append(out, f)
	}

	return out
}

// Report renders the full provenance trace: each frame's location and source
// line with a caret, and the available names after the innermost frame.
func (e *SemanticError) Report() string {
	var sb strings.Builder

	sb.WriteString("error: ")
	sb.WriteString(e.Kind.String())

	if e.Message != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Message)
	}

	sb.WriteRune('\n')

	trace := e.Trace()

	for i, f := range trace {
		sb.WriteString(f.String())
		sb.WriteRune('\n')
		sb.WriteString(snippet(f.Pos.Line, f.Text, f.Pos.Column))

		if i == len(trace)-1 && len(e.Available) > 0 {
			sb.WriteString("available: ")
			sb.WriteString(strings.Join(e.Available, ", "))
			sb.WriteRune('\n')
		}
	}

	return sb.String()
}

// LogValue implements slog.LogValuer.
func (e *SemanticError) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("error", e.Kind.String()),
		slog.String("message", e.Message),
	}

	if e.Name != "" {
		attrs = append(attrs, slog.String("name", e.Name))
	}

	if len(e.Frames) > 0 {
		attrs = append(attrs, slog.String("at", e.Frames[0].String()))
	}

	return slog.GroupValue(attrs...)
}

// Report renders err for display. Syntax errors include the offending line
// and a caret; semantic errors include their full provenance trace. Any
// other error renders as its message.
func Report(err error) string {
	var syn *SyntaxError
	if errors.As(err, &syn) {
		return syn.Error() + "\n" + syn.Snippet()
	}

	var sem *SemanticError
	if errors.As(err, &sem) {
		return sem.Report()
	}

	return err.Error() + "\n"
}
