package repl

import (
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"

	"github.com/ardnew/zero/lang"
)

var (
	signatureStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	signatureNameStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("6")).
				Bold(true)
	currentParamStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("11")).
				Bold(true)
)

// functionCall represents a detected function call in the input.
type functionCall struct {
	name     string // dotted function path (e.g., "util.double")
	argIndex int    // comma-separated position within the argument
	inCall   bool   // true if cursor is inside the argument list
}

// detectFunctionCall analyzes the input to determine if the cursor is inside
// the argument list of a call written as name(...), with no space between the
// name and the parenthesis.
func detectFunctionCall(input string, cursor int) functionCall {
	if cursor > len(input) {
		cursor = len(input)
	}

	depth := 0
	open := -1

	for i := cursor; i > 0; {
		r, size := utf8.DecodeLastRuneInString(input[:i])
		i -= size

		if r == ')' {
			depth++
		} else if r == '(' {
			if depth == 0 {
				open = i

				break
			}

			depth--
		}
	}

	if open <= 0 {
		return functionCall{}
	}

	start := open

	for start > 0 {
		r, size := utf8.DecodeLastRuneInString(input[:start])
		if r != '.' && isWordBoundary(r) {
			break
		}

		start -= size
	}

	name := strings.Trim(input[start:open], ".")
	if name == "" {
		return functionCall{}
	}

	argIndex := 0
	depth = 0

	for _, r := range input[open+1 : cursor] {
		switch r {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case ',':
			if depth == 0 {
				argIndex++
			}
		}
	}

	return functionCall{name: name, argIndex: argIndex, inCall: true}
}

// signature describes the parameter of a closure the way it was written.
func signature(c *lang.Closure) string {
	param := signatureParam(c.Lambda.Param)

	if c.Lambda.Guarded {
		return param + " => | …"
	}

	return param + " => …"
}

// renderSignatureHint renders the signature of the function name bound in s,
// highlighting the destructured field at argIndex. It returns "" if name is
// not bound to a function.
func renderSignatureHint(s *lang.Scope, call functionCall) string {
	v, ok := lookupPath(s, call.name)
	if !ok {
		return ""
	}

	c, ok := v.(*lang.Closure)
	if !ok {
		return ""
	}

	var b strings.Builder

	b.WriteString(signatureNameStyle.Render(call.name))
	b.WriteString(signatureStyle.Render(": "))

	p := c.Lambda.Param

	if p.Name != "" {
		b.WriteString(currentParamStyle.Render(p.Name))
	} else {
		b.WriteString(signatureStyle.Render("{"))

		for i, field := range p.Fields {
			if i > 0 {
				b.WriteString(signatureStyle.Render(" "))
			}

			if i == call.argIndex {
				b.WriteString(currentParamStyle.Render(field))
			} else {
				b.WriteString(signatureStyle.Render(field))
			}
		}

		b.WriteString(signatureStyle.Render("}"))
	}

	b.WriteString(signatureStyle.Render(strings.TrimPrefix(signature(c), signatureParam(p))))

	return b.String()
}

func signatureParam(p lang.Param) string {
	if p.Name != "" {
		return p.Name
	}

	return "{" + strings.Join(p.Fields, " ") + "}"
}
