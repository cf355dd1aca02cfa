package lang

import (
	"strconv"

	g "github.com/ardnew/zero/grammar"
)

// Rule names of the language grammar.
const (
	ruleSpace      = "espaço"
	ruleIdentifier = "identificador"
	ruleNatural    = "número"
	ruleInteger    = "inteiro"
	ruleText       = "texto"
	ruleAddress    = "endereço"
	ruleImport     = "importação"
)

// token is an operator or keyword together with its source offset.
type token struct {
	text string
	at   int
}

func asToken(v any, s g.Span) any {
	str, _ := v.(string)

	return token{text: str, at: s.Start}
}

// lexical defines the token-level rules: whitespace and comments,
// identifiers, integers, strings, addresses and imports.
func (l *language) lexical() {
	// Whitespace primitives are left out of syntax error reports.
	blank := []*g.Grammar{
		g.Literal(" "), g.Literal("\t"), g.Literal("\n"), g.Literal("\r"),
	}
	lineOpen, blockOpen := g.Literal("//"), g.Literal("/*")

	for _, q := range append(blank, lineOpen, blockOpen) {
		l.quiet[q] = true
	}

	lineComment := g.Sequence(lineOpen, g.Repetition(g.Negation("\n")))
	blockComment := g.Sequence(blockOpen, g.Repetition(g.Negation("*/")), "*/")

	l.ws = l.reg.MustDefine(ruleSpace, g.Repetition(g.Alternative(
		blank[0], blank[1], blank[2], blank[3], lineComment, blockComment,
	)))

	// A letter is any character that is not whitespace, a digit, or
	// ASCII punctuation other than '_'.
	letter := g.Negation(g.Alternative(
		g.Range(0, ' '),
		g.Range('!', '/'),
		g.Range('0', '@'),
		g.Range('[', '^'),
		"`",
		g.Range('{', '~'),
	))
	digit := g.Range('0', '9')

	word := g.Sequence(
		letter, g.Repetition(g.Alternative(letter, digit)),
	).Map(g.Join)

	l.ident = l.reg.MustDefine(ruleIdentifier, word)

	l.natural = l.reg.MustDefine(ruleNatural, g.OneOrMore(digit).Map(g.Join))

	l.integer = l.reg.MustDefine(ruleInteger, g.Sequence(
		g.Optional("-"), l.natural,
	).Map(func(v any, s g.Span) any {
		lit, _ := g.Join(v, s).(string)
		n, _ := strconv.ParseFloat(lit, 64)

		return &Number{at: at{s.Start}, Value: n}
	}))

	l.text = l.reg.MustDefine(ruleText, g.Sequence(
		`"`, g.Keyed("content", g.Repetition(g.Negation(`"`)).Map(g.Join)), `"`,
	).Map(func(v any, s g.Span) any {
		return &Text{at: at{s.Start}, Value: str(field(v, "content"))}
	}))

	// Path characters exclude whitespace and the delimiters of the
	// surrounding syntax.
	pathStop := []any{
		g.Range(0, ' '), `"`, "(", ")", "[", "]", "{", "}", ",", ";",
	}
	pathChar := g.Negation(g.Alternative(pathStop...))

	url := g.Sequence(
		g.OneOrMore(g.Range('a', 'z')), "://", g.OneOrMore(pathChar),
	)
	relative := g.Sequence(
		g.Alternative("./", "../"), g.OneOrMore(pathChar),
	)
	absolute := g.Sequence(
		"/", g.Negation(g.Alternative(append([]any{"/", "*"}, pathStop...)...)),
		g.Repetition(pathChar),
	)
	named := g.Sequence(word, Extension)

	l.address = l.reg.MustDefine(ruleAddress,
		g.Alternative(url, relative, absolute, named).Map(g.Join),
	)

	l.imports = l.reg.MustDefine(ruleImport, g.Sequence(
		g.Keyed("name", l.ident), "#", g.Keyed("spec", l.address),
	).Map(func(v any, s g.Span) any {
		return Import{
			Name:   str(field(v, "name")),
			Spec:   str(field(v, "spec")),
			Offset: s.Start,
		}
	}))
}

// Extension is the file name extension of source modules.
const Extension = ".0"

func field(v any, key string) any {
	m, _ := v.(map[string]any)

	return m[key]
}

func str(v any) string {
	s, _ := v.(string)

	return s
}

func node(v any) Node {
	n, _ := v.(Node)

	return n
}

func items(v any) []any {
	l, _ := v.([]any)

	return l
}
