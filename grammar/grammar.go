package grammar

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// Kind identifies the variant of a [Grammar].
type Kind int

const (
	KindLiteral     Kind = iota // literal
	KindRange                   // range
	KindSequence                // sequence
	KindAlternative             // alternative
	KindRepetition              // repetition
	KindNegation                // negation
	KindRule                    // rule
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindLiteral:
		return "literal"
	case KindRange:
		return "range"
	case KindSequence:
		return "sequence"
	case KindAlternative:
		return "alternative"
	case KindRepetition:
		return "repetition"
	case KindNegation:
		return "negation"
	case KindRule:
		return "rule"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Span is the half-open byte interval of input matched by a grammar.
type Span struct {
	Start, End int
}

// Action maps the value produced by a successful match to a new value.
type Action func(value any, span Span) any

// Item is an element of a sequence. Elements with a non-empty Key populate
// a record in the sequence's value.
type Item struct {
	Key     string
	Grammar *Grammar
}

// Grammar is an immutable description of a syntactic rule.
//
// The zero value is not usable; construct grammars with [Literal], [Range],
// [Sequence], [Alternative], [Repetition], [Negation], or through a
// [Registry].
type Grammar struct {
	action Action
	reg    *Registry
	inner  *Grammar
	text   string
	items  []Item
	alts   []*Grammar
	index  int
	kind   Kind
	lo, hi rune
}

// Kind returns the variant of g.
func (g *Grammar) Kind() Kind { return g.kind }

// Text returns the text matched by a literal.
func (g *Grammar) Text() string { return g.text }

// Bounds returns the inclusive code point range of a range grammar.
func (g *Grammar) Bounds() (lo, hi rune) { return g.lo, g.hi }

// Items returns the elements of a sequence.
func (g *Grammar) Items() []Item { return g.items }

// Alternatives returns the branches of an alternative.
func (g *Grammar) Alternatives() []*Grammar { return g.alts }

// Inner returns the operand of a repetition or negation.
func (g *Grammar) Inner() *Grammar { return g.inner }

// Name returns the name of a rule reference.
func (g *Grammar) Name() string {
	if g.kind != KindRule {
		return ""
	}

	return g.reg.names[g.index]
}

// Map returns a copy of g that applies fn to every successful match.
// Any action already attached to g runs first.
func (g *Grammar) Map(fn Action) *Grammar {
	c := *g

	if prev := g.action; prev != nil {
		c.action = func(v any, s Span) any { return fn(prev(v, s), s) }
	} else {
		c.action = fn
	}

	return &c
}

// String returns a compact, human-readable description of g.
func (g *Grammar) String() string {
	var sb strings.Builder

	g.describe(&sb, 0)

	return sb.String()
}

const maxDescribeDepth = 3

func (g *Grammar) describe(sb *strings.Builder, depth int) {
	if depth > maxDescribeDepth {
		sb.WriteString("…")

		return
	}

	switch g.kind {
	case KindLiteral:
		sb.WriteString(strconv.Quote(g.text))

	case KindRange:
		sb.WriteString("[" + string(g.lo) + "-" + string(g.hi) + "]")

	case KindRule:
		sb.WriteString(g.Name())

	case KindNegation:
		sb.WriteString("!")
		g.inner.describe(sb, depth+1)

	case KindRepetition:
		g.inner.describe(sb, depth+1)
		sb.WriteString("*")

	case KindSequence:
		sb.WriteString("(")

		for i, it := range g.items {
			if i > 0 {
				sb.WriteString(" ")
			}

			if it.Key != "" {
				sb.WriteString(it.Key + ":")
			}

			it.Grammar.describe(sb, depth+1)
		}

		sb.WriteString(")")

	case KindAlternative:
		sb.WriteString("(")

		for i, alt := range g.alts {
			if i > 0 {
				sb.WriteString(" | ")
			}

			alt.describe(sb, depth+1)
		}

		sb.WriteString(")")
	}
}

// identity returns a key that is equal for structurally interchangeable
// expectations, used to deduplicate expected sets.
func (g *Grammar) identity() string {
	switch g.kind {
	case KindLiteral:
		return "l" + g.text
	case KindRange:
		return "r" + string(g.lo) + string(g.hi)
	case KindRule:
		return "n" + g.Name()
	default:
		return fmt.Sprintf("p%p", g)
	}
}

// Literal matches the exact text s.
func Literal(s string) *Grammar {
	return &Grammar{kind: KindLiteral, text: s}
}

// Range matches a single character whose code point lies within [lo, hi].
func Range(lo, hi rune) *Grammar {
	return &Grammar{kind: KindRange, lo: lo, hi: hi}
}

// Keyed returns a sequence element whose value is recorded under key.
func Keyed(key string, g any) Item {
	return Item{Key: key, Grammar: From(g)}
}

// Sequence matches each element in order. Elements are grammars, strings
// (treated as literals), or keyed [Item] values.
func Sequence(elems ...any) *Grammar {
	items := make([]Item, 0, len(elems))

	for _, e := range elems {
		if it, ok := e.(Item); ok {
			items = append(items, it)

			continue
		}

		items = append(items, Item{Grammar: From(e)})
	}

	return &Grammar{kind: KindSequence, items: items}
}

// Alternative matches the first branch that succeeds.
func Alternative(alts ...any) *Grammar {
	gs := make([]*Grammar, len(alts))
	for i, a := range alts {
		gs[i] = From(a)
	}

	return &Grammar{kind: KindAlternative, alts: gs}
}

// Repetition matches g zero or more times.
func Repetition(g any) *Grammar {
	return &Grammar{kind: KindRepetition, inner: From(g)}
}

// Negation consumes one character if g does not match at the current
// position.
func Negation(g any) *Grammar {
	return &Grammar{kind: KindNegation, inner: From(g)}
}

// Optional matches g or nothing. When g does not match, the value is nil.
func Optional(g any) *Grammar {
	return Alternative(g, Sequence().Map(func(any, Span) any { return nil }))
}

// OneOrMore matches g at least once. The value is the list of matches.
func OneOrMore(g any) *Grammar {
	inner := From(g)

	return Sequence(inner, Repetition(inner)).Map(
		func(v any, _ Span) any {
			pair, _ := v.([]any)
			rest, _ := pair[1].([]any)

			return append([]any{pair[0]}, rest...)
		},
	)
}

// Join is an [Action] that flattens a value into the concatenation of every
// string it contains.
func Join(v any, _ Span) any {
	var sb strings.Builder

	flatten(&sb, v)

	return sb.String()
}

func flatten(sb *strings.Builder, v any) {
	switch v := v.(type) {
	case string:
		sb.WriteString(v)
	case []any:
		for _, e := range v {
			flatten(sb, e)
		}
	case map[string]any:
		for _, k := range slices.Sorted(maps.Keys(v)) {
			flatten(sb, v[k])
		}
	}
}

// From converts a string to a literal grammar and returns grammars unchanged.
// It panics on any other type, which indicates a programming error in a
// grammar definition.
func From(v any) *Grammar {
	switch v := v.(type) {
	case *Grammar:
		if v == nil {
			panic("grammar: nil grammar")
		}

		return v
	case string:
		return Literal(v)
	case rune:
		return Literal(string(v))
	default:
		panic("grammar: cannot use value as grammar")
	}
}
