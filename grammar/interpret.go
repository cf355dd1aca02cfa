package grammar

import (
	"strings"
	"unicode/utf8"
)

// blockCommentEnd is the terminator whose expectation a repetition
// propagates instead of stopping silently.
const blockCommentEnd = "*/"

// Result is the outcome of interpreting a grammar against input.
//
// A successful result carries the produced Value. A failed result carries
// no value. Both carry the furthest input position at which any attempted
// branch failed, together with the set of grammars expected there.
type Result struct {
	Value    any
	Expected []*Grammar
	input    string
	pos      int
	furthest int
	ok       bool
}

// OK reports whether the grammar matched.
func (r Result) OK() bool { return r.ok }

// Pos returns the byte offset of the remaining input. A failed result
// reports the position at which the failing grammar started.
func (r Result) Pos() int { return r.pos }

// Rest returns the remaining, unconsumed input.
func (r Result) Rest() string { return r.input[r.pos:] }

// Input returns the complete input the result was computed from.
func (r Result) Input() string { return r.input }

// Furthest returns the byte offset of the deepest failure observed while
// computing the result, or -1 if nothing failed.
func (r Result) Furthest() int { return r.furthest }

// Complete reports whether the grammar matched all of the input.
func (r Result) Complete() bool { return r.ok && r.pos == len(r.input) }

// Interpret matches g against the start of input.
//
// Interpret is a pure function of its arguments; grammars carry no
// evaluation state and may be shared between concurrent calls.
func Interpret(g *Grammar, input string) Result {
	return match(g, input, 0)
}

// InterpretAt matches g against input starting at byte offset pos.
func InterpretAt(g *Grammar, input string, pos int) Result {
	return match(g, input, min(max(pos, 0), len(input)))
}

func match(g *Grammar, in string, pos int) Result {
	var r Result

	switch g.kind {
	case KindLiteral:
		if strings.HasPrefix(in[pos:], g.text) {
			r = success(in, pos+len(g.text), g.text)
		} else {
			r = failure(in, pos, pos, g)
		}

	case KindRange:
		c, size := utf8.DecodeRuneInString(in[pos:])
		if size > 0 && c >= g.lo && c <= g.hi {
			r = success(in, pos+size, in[pos:pos+size])
		} else {
			r = failure(in, pos, pos, g)
		}

	case KindNegation:
		r = negate(g, in, pos)

	case KindRepetition:
		r = repeat(g, in, pos)

	case KindSequence:
		r = sequence(g, in, pos)

	case KindAlternative:
		r = alternate(g, in, pos)

	case KindRule:
		body := g.reg.body(g)
		if body == nil {
			r = failure(in, pos, pos, g)

			break
		}

		r = match(body, in, pos)

		// A rule that fails without getting past its own start is more
		// usefully reported by name than by its first primitive. The
		// innermost such rule names the failure.
		if !r.ok && r.furthest <= pos && !namesRule(r.Expected) {
			r.Expected = []*Grammar{g}
			r.furthest = pos
		}
	}

	if r.ok && g.action != nil {
		r.Value = g.action(r.Value, Span{Start: pos, End: r.pos})
	}

	return r
}

func negate(g *Grammar, in string, pos int) Result {
	if pos >= len(in) {
		return failure(in, pos, pos, g)
	}

	if inner := match(g.inner, in, pos); inner.ok {
		return failure(in, pos, pos, g)
	}

	_, size := utf8.DecodeRuneInString(in[pos:])

	return success(in, pos+size, in[pos:pos+size])
}

func repeat(g *Grammar, in string, pos int) Result {
	diag := Result{furthest: -1}
	cur := pos
	values := []any{}

	for {
		r := match(g.inner, in, cur)
		diag = diag.merge(r)

		if !r.ok {
			if expects(r.Expected, blockCommentEnd) {
				return r
			}

			break
		}

		if r.pos == cur {
			break
		}

		values = append(values, r.Value)
		cur = r.pos
	}

	return diag.settle(in, cur, values)
}

func sequence(g *Grammar, in string, pos int) Result {
	diag := Result{furthest: -1}
	cur := pos

	var (
		record map[string]any
		values = make([]any, 0, len(g.items))
		text   = true
	)

	for _, it := range g.items {
		r := match(it.Grammar, in, cur)
		diag = diag.merge(r)

		if !r.ok {
			return Result{
				input:    in,
				pos:      pos,
				furthest: diag.furthest,
				Expected: diag.Expected,
			}
		}

		cur = r.pos

		if it.Key != "" {
			if record == nil {
				record = make(map[string]any)
			}

			record[it.Key] = r.Value

			continue
		}

		if _, ok := r.Value.(string); !ok {
			text = false
		}

		values = append(values, r.Value)
	}

	switch {
	case record != nil:
		return diag.settle(in, cur, record)

	case text:
		var sb strings.Builder
		for _, v := range values {
			sb.WriteString(v.(string)) //nolint:forcetypeassert
		}

		return diag.settle(in, cur, sb.String())

	default:
		return diag.settle(in, cur, values)
	}
}

func alternate(g *Grammar, in string, pos int) Result {
	diag := Result{furthest: -1}

	for _, alt := range g.alts {
		r := match(alt, in, pos)
		if r.ok {
			merged := diag.merge(r)
			r.furthest, r.Expected = merged.furthest, merged.Expected

			return r
		}

		diag = diag.merge(r)
	}

	return Result{
		input:    in,
		pos:      pos,
		furthest: diag.furthest,
		Expected: diag.Expected,
	}
}

func success(in string, pos int, value any) Result {
	return Result{input: in, pos: pos, furthest: -1, Value: value, ok: true}
}

func failure(in string, pos, at int, expected *Grammar) Result {
	return Result{
		input:    in,
		pos:      pos,
		furthest: at,
		Expected: []*Grammar{expected},
	}
}

// settle converts the diagnostics accumulated in r into a successful result.
func (r Result) settle(in string, pos int, value any) Result {
	return Result{
		input:    in,
		pos:      pos,
		furthest: r.furthest,
		Expected: r.Expected,
		Value:    value,
		ok:       true,
	}
}

// merge combines the failure diagnostics of r and s. The deeper failure
// wins; failures at the same position union their expected sets.
func (r Result) merge(s Result) Result {
	switch {
	case s.furthest < 0 || s.furthest < r.furthest:
		return r

	case s.furthest > r.furthest:
		r.furthest = s.furthest
		r.Expected = s.Expected

		return r

	default:
		r.Expected = union(r.Expected, s.Expected)

		return r
	}
}

func union(a, b []*Grammar) []*Grammar {
	if len(b) == 0 {
		return a
	}

	if len(a) == 0 {
		return b
	}

	out := make([]*Grammar, 0, len(a)+len(b))
	seen := make(map[string]struct{}, len(a)+len(b))

	for _, list := range [][]*Grammar{a, b} {
		for _, g := range list {
			id := g.identity()
			if _, dup := seen[id]; dup {
				continue
			}

			seen[id] = struct{}{}
			out = append(out, g)
		}
	}

	return out
}

func namesRule(set []*Grammar) bool {
	for _, g := range set {
		if g.kind == KindRule {
			return true
		}
	}

	return false
}

func expects(set []*Grammar, text string) bool {
	for _, g := range set {
		if g.kind == KindLiteral && g.text == text {
			return true
		}
	}

	return false
}
