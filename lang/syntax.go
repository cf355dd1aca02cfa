package lang

import (
	"slices"
	"sync"

	g "github.com/ardnew/zero/grammar"
)

// Rule names of the language grammar.
const (
	ruleExpression     = "expressão"
	ruleLogical        = "lógica"
	ruleConditional    = "condicional"
	ruleRelational     = "relacional"
	ruleAdditive       = "aditiva"
	ruleMultiplicative = "multiplicativa"
	ruleUnary          = "unária"
	rulePostfix        = "pós-fixa"
	ruleAtom           = "átomo"
	ruleList           = "lista"
	ruleObject         = "objeto"
	ruleGroup          = "grupo"
	ruleLambda         = "lambda"
	ruleDeclaration    = "declaração"
	ruleProgram        = "programa"
)

// language holds the rules of the grammar and the entry points used by the
// parser.
type language struct {
	reg     *g.Registry
	quiet   map[*g.Grammar]bool
	ws      *g.Grammar
	ident   *g.Grammar
	natural *g.Grammar
	integer *g.Grammar
	text    *g.Grammar
	address *g.Grammar
	imports *g.Grammar
	program *g.Grammar
	expr    *g.Grammar
}

var rules = sync.OnceValue(func() *language {
	l := &language{
		reg:   g.NewRegistry(),
		quiet: make(map[*g.Grammar]bool),
	}

	l.lexical()
	l.syntactic()

	if err := l.reg.Check(); err != nil {
		panic(ErrGrammar.Wrap(err))
	}

	return l
})

// Rules returns the registry holding every rule of the language grammar.
// The registry must not be modified.
func Rules() *g.Registry { return rules().reg }

// suffix applies a postfix operation to its operand.
type suffix func(Node) Node

var operators = map[string]Operator{
	"+":  add,
	"-":  subtract,
	"*":  multiply,
	"/":  divide,
	"==": equal,
	"!=": notEqual,
	">=": greaterEqual,
	"<=": lessEqual,
	">":  greater,
	"<":  less,
}

// chain parses operand (op operand)* and folds the pairs left to right.
func (l *language) chain(operand *g.Grammar, ops ...string) *g.Grammar {
	alts := make([]any, len(ops))
	for i, op := range ops {
		alts[i] = op
	}

	step := g.Sequence(
		l.ws, g.Keyed("op", g.Alternative(alts...).Map(asToken)),
		l.ws, g.Keyed("x", operand),
	)

	return g.Sequence(
		g.Keyed("first", operand), g.Keyed("rest", g.Repetition(step)),
	).Map(func(v any, _ g.Span) any {
		acc := node(field(v, "first"))

		for _, st := range items(field(v, "rest")) {
			op, _ := field(st, "op").(token)
			rhs := node(field(st, "x"))

			switch op.text {
			case "&", "|":
				acc = &Logical{at: at{op.at}, L: acc, R: rhs, Op: op.text}
			default:
				acc = &Binary{
					at: at{op.at}, L: acc, R: rhs, Fn: operators[op.text], Op: op.text,
				}
			}
		}

		return acc
	})
}

// commas parses a comma-separated list of elem with an optional trailing
// comma. The value is the list of element values.
func (l *language) commas(elem *g.Grammar) *g.Grammar {
	next := g.Sequence(l.ws, ",", l.ws, g.Keyed("x", elem)).Map(
		func(v any, _ g.Span) any { return field(v, "x") },
	)

	return g.Sequence(
		g.Keyed("first", elem),
		g.Keyed("rest", g.Repetition(next)),
		g.Keyed("end", g.Optional(g.Sequence(l.ws, ","))),
	).Map(func(v any, _ g.Span) any {
		return append([]any{field(v, "first")}, items(field(v, "rest"))...)
	})
}

func (l *language) syntactic() {
	var (
		expr        = l.reg.Declare(ruleExpression)
		conditional = l.reg.Declare(ruleConditional)
		unary       = l.reg.Declare(ruleUnary)
		ws          = l.ws
	)

	l.expr = expr

	l.reg.MustDefine(ruleExpression, l.reg.MustDefine(ruleLogical,
		l.chain(conditional, "&", "|"),
	))

	relational := l.reg.MustDefine(ruleRelational, l.chain(
		l.reg.MustDefine(ruleAdditive, l.chain(
			l.reg.MustDefine(ruleMultiplicative, l.chain(unary, "*", "/")),
			"+", "-",
		)),
		">=", "<=", "==", "!=", ">", "<",
	))

	l.reg.MustDefine(ruleConditional, g.Sequence(
		g.Keyed("cond", relational),
		g.Keyed("branch", g.Optional(g.Sequence(
			ws, g.Keyed("q", g.Literal("?").Map(asToken)),
			ws, g.Keyed("then", conditional),
			ws, ":",
			ws, g.Keyed("else", conditional),
		))),
	).Map(func(v any, _ g.Span) any {
		cond := node(field(v, "cond"))

		br := field(v, "branch")
		if br == nil {
			return cond
		}

		q, _ := field(br, "q").(token)

		return &Conditional{
			at:   at{q.at},
			Cond: cond,
			Then: node(field(br, "then")),
			Else: node(field(br, "else")),
		}
	}))

	l.reg.MustDefine(ruleUnary, g.Alternative(
		l.lambda(conditional),
		g.Sequence("!", ws, g.Keyed("x", unary)).Map(func(v any, s g.Span) any {
			return &Not{at: at{s.Start}, X: node(field(v, "x"))}
		}),
		g.Sequence("$", ws, g.Keyed("x", unary)).Map(func(v any, s g.Span) any {
			return &Probe{at: at{s.Start}, X: node(field(v, "x"))}
		}),
		l.reg.MustDefine(rulePostfix, g.Sequence(
			g.Keyed("x", l.atom()), g.Keyed("ops", g.Repetition(l.postfix())),
		).Map(func(v any, _ g.Span) any {
			x := node(field(v, "x"))
			for _, op := range items(field(v, "ops")) {
				if fn, ok := op.(suffix); ok {
					x = fn(x)
				}
			}

			return x
		})),
	))

	decl := l.reg.MustDefine(ruleDeclaration, g.Sequence(
		g.Keyed("name", l.ident), ws, "=", ws, g.Keyed("value", expr),
	).Map(func(v any, s g.Span) any {
		return Decl{
			Value:  node(field(v, "value")),
			Name:   str(field(v, "name")),
			Offset: s.Start,
		}
	}))

	l.reg.MustDefine(ruleGroup, g.Sequence(
		"(", ws,
		g.Keyed("decls", l.declarations(decl)),
		g.Keyed("body", expr), ws, ")",
	).Map(func(v any, s g.Span) any {
		decls := declsOf(field(v, "decls"))
		if len(decls) == 0 {
			return node(field(v, "body"))
		}

		return &Group{at: at{s.Start}, Body: node(field(v, "body")), Decls: decls}
	}))

	l.program = l.reg.MustDefine(ruleProgram, g.Sequence(
		ws,
		g.Keyed("imports", g.Repetition(
			g.Sequence(g.Keyed("x", l.imports), ws).Map(
				func(v any, _ g.Span) any { return field(v, "x") },
			),
		)),
		g.Keyed("decls", l.declarations(decl)),
		g.Keyed("body", g.Optional(expr)),
		ws,
	).Map(func(v any, _ g.Span) any {
		p := &Program{
			Body:  node(field(v, "body")),
			Decls: declsOf(field(v, "decls")),
		}

		for _, it := range items(field(v, "imports")) {
			if imp, ok := it.(Import); ok {
				p.Imports = append(p.Imports, imp)
			}
		}

		return p
	}))
}

func (l *language) declarations(decl *g.Grammar) *g.Grammar {
	return g.Repetition(g.Sequence(g.Keyed("x", decl), l.ws).Map(
		func(v any, _ g.Span) any { return field(v, "x") },
	))
}

func declsOf(v any) []Decl {
	var out []Decl

	for _, it := range items(v) {
		if d, ok := it.(Decl); ok {
			out = append(out, d)
		}
	}

	return out
}

func (l *language) atom() *g.Grammar {
	ws := l.ws

	load := g.Sequence("@", g.Keyed("spec", l.address)).Map(
		func(v any, s g.Span) any {
			return &Load{at: at{s.Start}, Spec: str(field(v, "spec"))}
		},
	)

	moduleRef := l.address.Map(func(v any, s g.Span) any {
		return &ModuleRef{at: at{s.Start}, Spec: str(v)}
	})

	invoke := g.Sequence(
		g.Keyed("name", l.ident), "(", ws,
		g.Keyed("arg", g.Optional(l.expr)), ws, ")",
	).Map(func(v any, s g.Span) any {
		return &Invoke{
			at:   at{s.Start},
			Arg:  node(field(v, "arg")),
			Name: str(field(v, "name")),
		}
	})

	ref := l.ident.Map(func(v any, s g.Span) any {
		if name := str(v); name != "null" {
			return &Ref{at: at{s.Start}, Name: name}
		}

		return &Null{at: at{s.Start}}
	})

	spread := g.Sequence("...", ws, g.Keyed("x", l.expr)).Map(
		func(v any, s g.Span) any {
			return &Spread{at: at{s.Start}, X: node(field(v, "x"))}
		},
	)

	list := l.reg.MustDefine(ruleList, g.Sequence(
		"[", ws,
		g.Keyed("items", g.Optional(l.commas(g.Alternative(spread, l.expr)))),
		ws, "]",
	).Map(func(v any, s g.Span) any {
		lst := &List{at: at{s.Start}}
		for _, it := range items(field(v, "items")) {
			lst.Items = append(lst.Items, node(it))
		}

		return lst
	}))

	key := g.Alternative(
		l.ident,
		l.natural,
		l.text.Map(func(v any, _ g.Span) any {
			if t, ok := v.(*Text); ok {
				return t.Value
			}

			return ""
		}),
	)

	entry := g.Alternative(
		spread.Map(func(v any, s g.Span) any {
			sp, _ := v.(*Spread)

			return Entry{Value: sp.X, Kind: EntrySpread, Offset: s.Start}
		}),
		g.Sequence(
			g.Keyed("key", key), ws, ":", ws, g.Keyed("value", l.expr),
		).Map(func(v any, s g.Span) any {
			return Entry{
				Value:  node(field(v, "value")),
				Key:    str(field(v, "key")),
				Kind:   EntryKeyed,
				Offset: s.Start,
			}
		}),
		l.expr.Map(func(v any, s g.Span) any {
			if r, ok := v.(*Ref); ok {
				return Entry{Value: r, Key: r.Name, Kind: EntryShorthand, Offset: s.Start}
			}

			return Entry{Value: node(v), Kind: EntryIndexed, Offset: s.Start}
		}),
	)

	object := l.reg.MustDefine(ruleObject, g.Sequence(
		"{", ws, g.Keyed("entries", g.Optional(l.commas(entry))), ws, "}",
	).Map(func(v any, s g.Span) any {
		obj := &Object{at: at{s.Start}}
		for _, it := range items(field(v, "entries")) {
			if e, ok := it.(Entry); ok {
				obj.Entries = append(obj.Entries, e)
			}
		}

		return obj
	}))

	group := l.reg.Declare(ruleGroup)

	return l.reg.MustDefine(ruleAtom, g.Alternative(
		l.integer, l.text, load, moduleRef, invoke, ref, list, object, group,
	))
}

func (l *language) postfix() *g.Grammar {
	ws := l.ws

	return g.Alternative(
		g.Literal("[.]").Map(func(_ any, s g.Span) any {
			return suffix(func(x Node) Node { return &Length{at: atOf(s.Start), X: x} })
		}),
		g.Literal("[*]").Map(func(_ any, s g.Span) any {
			return suffix(func(x Node) Node { return &Keys{at: atOf(s.Start), X: x} })
		}),
		g.Sequence(
			"[", ws, g.Keyed("lo", g.Optional(l.expr)),
			ws, ":", ws, g.Keyed("hi", g.Optional(l.expr)), ws, "]",
		).Map(func(v any, s g.Span) any {
			lo, hi := node(field(v, "lo")), node(field(v, "hi"))

			return suffix(func(x Node) Node {
				return &Slice{at: atOf(s.Start), X: x, Lo: lo, Hi: hi}
			})
		}),
		g.Sequence("[", ws, g.Keyed("i", l.expr), ws, "]").Map(
			func(v any, s g.Span) any {
				i := node(field(v, "i"))

				return suffix(func(x Node) Node {
					return &Index{at: atOf(s.Start), X: x, Index: i}
				})
			},
		),
		g.Sequence(".", g.Keyed("name", l.ident)).Map(func(v any, s g.Span) any {
			name := str(field(v, "name"))

			return suffix(func(x Node) Node {
				return &Attr{at: atOf(s.Start), X: x, Name: name}
			})
		}),
		g.Sequence("(", ws, g.Keyed("arg", g.Optional(l.expr)), ws, ")").Map(
			func(v any, s g.Span) any {
				arg := node(field(v, "arg"))

				return suffix(func(x Node) Node {
					return &Call{at: atOf(s.Start), Fn: x, Arg: arg}
				})
			},
		),
	)
}

func atOf(offset int) at { return at{Offset: offset} }

func (l *language) lambda(conditional *g.Grammar) *g.Grammar {
	ws := l.ws

	fields := g.Sequence(
		g.Keyed("first", l.ident),
		g.Keyed("rest", g.Repetition(g.Sequence(
			ws, g.Optional(","), ws, g.Keyed("x", l.ident),
		).Map(func(v any, _ g.Span) any { return field(v, "x") }))),
	).Map(func(v any, _ g.Span) any {
		out := []string{str(field(v, "first"))}
		for _, it := range items(field(v, "rest")) {
			out = append(out, str(it))
		}

		return out
	})

	param := g.Alternative(
		l.ident.Map(func(v any, _ g.Span) any { return Param{Name: str(v)} }),
		g.Sequence(
			"{", ws, g.Keyed("fields", g.Optional(fields)), ws, g.Optional(","), ws, "}",
		).Map(func(v any, _ g.Span) any {
			fs, _ := field(v, "fields").([]string)

			return Param{Fields: fs}
		}),
	)

	guard := g.Sequence(
		ws, "|", ws, g.Keyed("cond", conditional),
		ws, "=", ws, g.Keyed("result", conditional),
	).Map(func(v any, _ g.Span) any {
		return Guard{Cond: node(field(v, "cond")), Result: node(field(v, "result"))}
	})

	guarded := g.Sequence(
		g.Keyed("guards", g.OneOrMore(guard)),
		g.Keyed("default", g.Optional(g.Sequence(
			ws, "|", ws, g.Keyed("x", conditional),
		).Map(func(v any, _ g.Span) any { return field(v, "x") }))),
	).Map(func(v any, _ g.Span) any {
		lam := &Lambda{Guarded: true, Default: node(field(v, "default"))}
		for _, it := range items(field(v, "guards")) {
			if gd, ok := it.(Guard); ok {
				lam.Guards = append(lam.Guards, gd)
			}
		}

		return lam
	})

	plain := l.expr.Map(func(v any, _ g.Span) any {
		return &Lambda{Body: node(v)}
	})

	return l.reg.MustDefine(ruleLambda, g.Sequence(
		g.Keyed("param", param), ws, "=>", g.Keyed("body", g.Alternative(
			guarded, g.Sequence(ws, g.Keyed("x", plain)).Map(
				func(v any, _ g.Span) any { return field(v, "x") },
			),
		)),
	).Map(func(v any, s g.Span) any {
		lam, _ := field(v, "body").(*Lambda)
		out := *lam
		out.at = at{s.Start}
		out.Param, _ = field(v, "param").(Param)

		return &out
	}))
}

// ParseProgram parses src, the content of the module at address.
func ParseProgram(address, src string) (*Program, error) {
	l := rules()

	r := g.Interpret(l.program, src)
	if !r.Complete() {
		return nil, l.syntaxError(address, r)
	}

	p, _ := r.Value.(*Program)
	p.Address, p.Source = address, src

	return p, nil
}

// ParseExpr parses a single expression surrounded by optional whitespace.
func ParseExpr(src string) (Node, error) {
	l := rules()

	r := g.Interpret(g.Sequence(l.ws, g.Keyed("x", l.expr), l.ws), src)
	if !r.Complete() {
		return nil, l.syntaxError("", r)
	}

	return node(field(r.Value, "x")), nil
}

// ParseDecl parses a single declaration "name = expr".
func ParseDecl(src string) (Decl, error) {
	l := rules()

	decl, _ := l.reg.Lookup(ruleDeclaration)

	r := g.Interpret(g.Sequence(l.ws, g.Keyed("x", decl), l.ws), src)
	if !r.Complete() {
		return Decl{}, l.syntaxError("", r)
	}

	d, _ := field(r.Value, "x").(Decl)

	return d, nil
}

// syntaxError reports the deepest failure of r, or unexpected trailing
// input when nothing failed beyond the matched prefix.
func (l *language) syntaxError(address string, r g.Result) *SyntaxError {
	off, exp := r.Pos(), r.Expected
	if r.Furthest() >= off {
		off = r.Furthest()
	} else {
		exp = nil
	}

	err := &SyntaxError{Address: address, Source: r.Input(), Offset: off}

	for _, e := range exp {
		if l.quiet[e] || e.Kind() == g.KindNegation {
			continue
		}

		err.Expected = append(err.Expected, e.String())
	}

	slices.Sort(err.Expected)
	err.Expected = slices.Compact(err.Expected)

	if len(err.Expected) == 0 && off < len(r.Input()) {
		err.Expected = []string{"end of input"}
	}

	return err
}
