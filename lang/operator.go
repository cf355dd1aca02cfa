package lang

import (
	"cmp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"
)

func invalidOperand(op string, l, r any) error {
	return &SemanticError{
		Kind:    InvalidOperand,
		Name:    op,
		Message: "cannot apply " + op + " to " + TypeOf(l) + " and " + TypeOf(r),
	}
}

func add(l, r any) (any, error) {
	switch a := l.(type) {
	case float64:
		if b, ok := r.(float64); ok {
			return a + b, nil
		}

	case []any:
		if b, ok := r.([]any); ok {
			return slices.Concat(a, b), nil
		}

	case *Record:
		if b, ok := r.(*Record); ok {
			out := NewRecord()

			for _, rec := range []*Record{a, b} {
				for _, k := range rec.keys {
					out.Set(k, rec.vals[k])
				}
			}

			return out, nil
		}
	}

	_, ls := l.(string)
	_, rs := r.(string)

	if ls || rs {
		return Stringify(l) + Stringify(r), nil
	}

	return nil, invalidOperand("+", l, r)
}

func subtract(l, r any) (any, error) {
	a, okl := l.(float64)
	b, okr := r.(float64)

	if !okl || !okr {
		return nil, invalidOperand("-", l, r)
	}

	return a - b, nil
}

func multiply(l, r any) (any, error) {
	switch a := l.(type) {
	case float64:
		if b, ok := r.(float64); ok {
			return a * b, nil
		}

	case []any:
		if sep, ok := r.(string); ok {
			return join(a, sep), nil
		}
	}

	return nil, invalidOperand("*", l, r)
}

// join concatenates the items of list separated by sep. With an empty
// separator numeric items are code points.
func join(list []any, sep string) string {
	part := make([]string, len(list))

	for i, it := range list {
		if n, ok := it.(float64); ok && sep == "" {
			r := utf8.RuneError
			if n >= 0 && n <= unicode.MaxRune {
				r = rune(n)
			}

			part[i] = string(r)

			continue
		}

		part[i] = Stringify(it)
	}

	return strings.Join(part, sep)
}

func divide(l, r any) (any, error) {
	switch a := l.(type) {
	case float64:
		if b, ok := r.(float64); ok {
			return a / b, nil
		}

	case string:
		if b, ok := r.(string); ok {
			fields := strings.Split(a, b)
			out := make([]any, len(fields))

			for i, f := range fields {
				out[i] = f
			}

			return out, nil
		}
	}

	return nil, invalidOperand("/", l, r)
}

func equal(l, r any) (any, error) { return boolean(Equal(l, r)), nil }

func notEqual(l, r any) (any, error) { return boolean(!Equal(l, r)), nil }

// compare orders two numbers or two texts.
func compare(op string, l, r any) (int, error) {
	switch a := l.(type) {
	case float64:
		if b, ok := r.(float64); ok {
			return cmp.Compare(a, b), nil
		}

	case string:
		if b, ok := r.(string); ok {
			return strings.Compare(a, b), nil
		}
	}

	return 0, invalidOperand(op, l, r)
}

func relation(op string, test func(int) bool) Operator {
	return func(l, r any) (any, error) {
		c, err := compare(op, l, r)
		if err != nil {
			return nil, err
		}

		return boolean(test(c)), nil
	}
}

var (
	greaterEqual = relation(">=", func(c int) bool { return c >= 0 })
	lessEqual    = relation("<=", func(c int) bool { return c <= 0 })
	greater      = relation(">", func(c int) bool { return c > 0 })
	less         = relation("<", func(c int) bool { return c < 0 })
)
