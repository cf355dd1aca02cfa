package grammar

import (
	"encoding/json"
	"log/slog"
	"slices"
	"unicode/utf8"
)

// Keys of the grammar-as-data wire format.
const (
	wireSequence    = "sequência"
	wireKey         = "chave"
	wireGrammar     = "gramática"
	wireAlternative = "alternativa"
	wireRepetition  = "repetição"
	wireNegation    = "negação"
	wireRange       = "faixa"
	wireRangeLo     = "de"
	wireRangeHi     = "até"
	wireRule        = "regra"

	wireResult   = "resultado"
	wireExpected = "esperava"
	wireRest     = "resto"
)

// Encode converts g into plain data (strings, maps and slices) following the
// grammar-as-data wire format. Rule references encode as {"regra": name} and
// are not expanded. Actions are not represented.
func Encode(g *Grammar) any {
	switch g.kind {
	case KindLiteral:
		return g.text

	case KindRange:
		return map[string]any{
			wireRange: map[string]any{
				wireRangeLo: string(g.lo),
				wireRangeHi: string(g.hi),
			},
		}

	case KindSequence:
		items := make([]any, len(g.items))

		for i, it := range g.items {
			if it.Key == "" {
				items[i] = Encode(it.Grammar)

				continue
			}

			items[i] = map[string]any{
				wireKey:     it.Key,
				wireGrammar: Encode(it.Grammar),
			}
		}

		return map[string]any{wireSequence: items}

	case KindAlternative:
		alts := make([]any, len(g.alts))
		for i, a := range g.alts {
			alts[i] = Encode(a)
		}

		return map[string]any{wireAlternative: alts}

	case KindRepetition:
		return map[string]any{wireRepetition: Encode(g.inner)}

	case KindNegation:
		return map[string]any{wireNegation: Encode(g.inner)}

	case KindRule:
		return map[string]any{wireRule: g.Name()}

	default:
		return nil
	}
}

// EncodeRegistry encodes the body of every defined rule in r, keyed by rule
// name.
func EncodeRegistry(r *Registry) map[string]any {
	out := make(map[string]any, len(r.names))

	for i, name := range r.names {
		if def := r.defs[i]; def != nil {
			out[name] = Encode(def)
		}
	}

	return out
}

// Decode converts plain data in the grammar-as-data wire format into a
// grammar. Rule references are resolved against rules, which may be nil if
// the description contains none.
func Decode(v any, rules *Registry) (*Grammar, error) {
	switch v := v.(type) {
	case string:
		return Literal(v), nil

	case map[string]any:
		if len(v) != 1 {
			return nil, ErrInvalidGrammar.With(
				slog.Int("keys", len(v)),
			)
		}

		for key, body := range v {
			return decodeTagged(key, body, rules)
		}
	}

	return nil, ErrInvalidGrammar.With(slog.Any("value", v))
}

// Unmarshal decodes a JSON grammar description.
func Unmarshal(data []byte, rules *Registry) (*Grammar, error) {
	var v any

	if err := json.Unmarshal(data, &v); err != nil {
		return nil, ErrDecode.Wrap(err)
	}

	return Decode(v, rules)
}

// Marshal encodes g as JSON in the grammar-as-data wire format.
func Marshal(g *Grammar) ([]byte, error) {
	return json.Marshal(Encode(g))
}

func decodeTagged(key string, body any, rules *Registry) (*Grammar, error) {
	switch key {
	case wireSequence:
		list, ok := body.([]any)
		if !ok {
			return nil, ErrInvalidGrammar.With(slog.String("tag", key))
		}

		items := make([]any, 0, len(list))

		for _, e := range list {
			if m, ok := e.(map[string]any); ok {
				if name, ok := m[wireKey].(string); ok {
					inner, err := Decode(m[wireGrammar], rules)
					if err != nil {
						return nil, err
					}

					items = append(items, Keyed(name, inner))

					continue
				}
			}

			inner, err := Decode(e, rules)
			if err != nil {
				return nil, err
			}

			items = append(items, inner)
		}

		return Sequence(items...), nil

	case wireAlternative:
		list, ok := body.([]any)
		if !ok {
			return nil, ErrInvalidGrammar.With(slog.String("tag", key))
		}

		alts := make([]any, 0, len(list))

		for _, e := range list {
			inner, err := Decode(e, rules)
			if err != nil {
				return nil, err
			}

			alts = append(alts, inner)
		}

		return Alternative(alts...), nil

	case wireRepetition, wireNegation:
		inner, err := Decode(body, rules)
		if err != nil {
			return nil, err
		}

		if key == wireRepetition {
			return Repetition(inner), nil
		}

		return Negation(inner), nil

	case wireRange:
		m, ok := body.(map[string]any)
		if !ok {
			return nil, ErrInvalidGrammar.With(slog.String("tag", key))
		}

		lo, okLo := singleRune(m[wireRangeLo])
		hi, okHi := singleRune(m[wireRangeHi])

		if !okLo || !okHi {
			return nil, ErrInvalidGrammar.With(
				slog.String("tag", key),
				slog.Any(wireRangeLo, m[wireRangeLo]),
				slog.Any(wireRangeHi, m[wireRangeHi]),
			)
		}

		return Range(lo, hi), nil

	case wireRule:
		name, _ := body.(string)
		if rules != nil {
			if ref, ok := rules.Lookup(name); ok {
				return ref, nil
			}
		}

		return nil, ErrUnknownRule.With(slog.String("rule", name))

	default:
		return nil, ErrInvalidGrammar.With(slog.String("tag", key))
	}
}

func singleRune(v any) (rune, bool) {
	s, ok := v.(string)
	if !ok || utf8.RuneCountInString(s) != 1 {
		return 0, false
	}

	r, _ := utf8.DecodeRuneInString(s)

	return r, true
}

// Wire returns the result in the ParseResult wire shape:
// {"resultado": value, "resto": rest} on success and
// {"esperava": [...], "resto": rest} on failure.
func (r Result) Wire() map[string]any {
	if r.ok {
		return map[string]any{
			wireResult: r.Value,
			wireRest:   r.Rest(),
		}
	}

	expected := make([]any, len(r.Expected))
	for i, g := range r.Expected {
		expected[i] = Encode(g)
	}

	return map[string]any{
		wireExpected: expected,
		wireRest:     r.Rest(),
	}
}

// MarshalJSON implements [json.Marshaler] using the ParseResult wire shape.
func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Wire())
}

// ExpectedText returns the descriptions of the expected set, in order.
func (r Result) ExpectedText() []string {
	out := make([]string, 0, len(r.Expected))
	for _, g := range r.Expected {
		out = append(out, g.String())
	}

	return slices.Compact(out)
}
