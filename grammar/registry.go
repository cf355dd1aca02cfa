package grammar

import (
	"log/slog"
	"slices"
	"strings"
)

// Registry is an arena of named, possibly mutually recursive rules.
//
// Rules are first declared, which yields a reference usable inside other
// grammars before the rule body exists, and later defined. [Registry.Check]
// verifies that every declared rule has been defined.
type Registry struct {
	index map[string]int
	names []string
	defs  []*Grammar
	refs  []*Grammar
}

// NewRegistry returns an empty rule registry.
func NewRegistry() *Registry {
	return &Registry{index: make(map[string]int)}
}

// Declare registers name and returns a reference to it. Declaring a name
// more than once returns the same reference.
func (r *Registry) Declare(name string) *Grammar {
	if i, ok := r.index[name]; ok {
		return r.refs[i]
	}

	i := len(r.names)
	ref := &Grammar{kind: KindRule, reg: r, index: i}

	r.index[name] = i
	r.names = append(r.names, name)
	r.defs = append(r.defs, nil)
	r.refs = append(r.refs, ref)

	return ref
}

// Define wires the body of rule name, declaring it first if needed.
// It returns the rule's reference.
func (r *Registry) Define(name string, g any) (*Grammar, error) {
	ref := r.Declare(name)

	if r.defs[ref.index] != nil {
		return nil, ErrRedefinedRule.With(slog.String("rule", name))
	}

	r.defs[ref.index] = From(g)

	return ref, nil
}

// MustDefine is like [Registry.Define] but panics on error. It is intended
// for grammars built once at package initialization.
func (r *Registry) MustDefine(name string, g any) *Grammar {
	ref, err := r.Define(name, g)
	if err != nil {
		panic(err)
	}

	return ref
}

// Check returns an error naming every rule that was declared but never
// defined.
func (r *Registry) Check() error {
	var missing []string

	for i, def := range r.defs {
		if def == nil {
			missing = append(missing, r.names[i])
		}
	}

	if len(missing) > 0 {
		return ErrUndefinedRule.With(
			slog.String("rules", strings.Join(missing, ", ")),
		)
	}

	return nil
}

// Lookup returns the reference to a declared rule.
func (r *Registry) Lookup(name string) (*Grammar, bool) {
	i, ok := r.index[name]
	if !ok {
		return nil, false
	}

	return r.refs[i], true
}

// Definition returns the body of a defined rule.
func (r *Registry) Definition(name string) (*Grammar, bool) {
	i, ok := r.index[name]
	if !ok || r.defs[i] == nil {
		return nil, false
	}

	return r.defs[i], true
}

// Names returns the declared rule names in declaration order.
func (r *Registry) Names() []string {
	return slices.Clone(r.names)
}

func (r *Registry) body(ref *Grammar) *Grammar {
	return r.defs[ref.index]
}
