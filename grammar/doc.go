// Package grammar interprets grammars described as plain data.
//
// A [Grammar] is one of six primitives:
//
//   - [Literal]: matches exact text
//   - [Range]: matches one character within an inclusive code point range
//   - [Sequence]: matches elements in order, optionally recording keyed
//     elements in a record
//   - [Alternative]: ordered choice, the first matching branch wins
//   - [Repetition]: zero or more matches, stopping when the operand fails or
//     does not advance
//   - [Negation]: consumes one character if the operand does not match
//
// Mutually recursive grammars are built through a [Registry]: rules are
// declared first, referenced freely, and defined afterwards. [Registry.Check]
// verifies every declared rule was defined.
//
// # Results
//
// [Interpret] returns a [Result]. Every result tracks the deepest position at
// which any attempted branch failed and the grammars expected there, so an
// [Alternative] whose branches all fail reports the branch that got furthest
// rather than the last one tried.
//
// Literals, ranges and negations produce the matched text. A sequence
// produces a record (map[string]any) when any element is keyed, the
// concatenation of its elements when all are strings, and a list otherwise.
// A repetition produces a list. Attach an [Action] with [Grammar.Map] to
// build other values.
//
// # Wire format
//
// [Encode] and [Decode] translate grammars to and from the grammar-as-data
// shape used by external tools:
//
//	"text"                                        literal
//	{"sequência": [node, {"chave": k, "gramática": node}]}
//	{"alternativa": [node, ...]}
//	{"repetição": node}
//	{"negação": node}
//	{"faixa": {"de": "a", "até": "z"}}
//	{"regra": name}                               registry reference
//
// [Result.MarshalJSON] produces {"resultado": v, "resto": s} on success and
// {"esperava": [...], "resto": s} on failure.
//
// Grammars must not be left-recursive.
package grammar
