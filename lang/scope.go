package lang

import (
	"context"
	"slices"
)

// Loader provides module values and raw content to the evaluator.
type Loader interface {
	// Resolve returns the address that spec refers to when written in the
	// module at base.
	Resolve(base, spec string) (string, error)

	// Value returns the evaluated value of the module at address.
	Value(ctx context.Context, address string) (any, error)

	// Text returns the raw content at address.
	Text(ctx context.Context, address string) (string, error)
}

// ModuleContext identifies the module a scope belongs to.
type ModuleContext struct {
	Loader  Loader
	Address string
	Source  string
}

type binding struct {
	value any
	set   bool
}

// Scope is a table of name bindings with an optional parent. Lookups walk
// outward through the parent chain.
type Scope struct {
	parent *Scope
	module *ModuleContext
	vars   map[string]*binding
	names  []string
	self   string // record key whose value is computed in this scope
}

// NewScope returns an empty scope whose parent is parent, which may be nil.
func NewScope(parent *Scope) *Scope {
	return &Scope{parent: parent, vars: make(map[string]*binding)}
}

// NewModuleScope returns a root scope carrying the given module context.
func NewModuleScope(mc *ModuleContext) *Scope {
	s := NewScope(nil)
	s.module = mc

	return s
}

// Parent returns the enclosing scope, or nil.
func (s *Scope) Parent() *Scope { return s.parent }

// Child returns a new scope nested in s.
func (s *Scope) Child() *Scope { return NewScope(s) }

// Declare binds name in s without a value. Looking up a declared name
// before it is defined is an [Uninitialized] error.
func (s *Scope) Declare(name string) {
	if _, ok := s.vars[name]; ok {
		return
	}

	s.vars[name] = &binding{}
	s.names = append(s.names, name)
}

// Define binds name to v in s, replacing any existing binding in s.
func (s *Scope) Define(name string, v any) {
	b, ok := s.vars[name]
	if !ok {
		b = &binding{}
		s.vars[name] = b
		s.names = append(s.names, name)
	}

	b.value, b.set = v, true
}

// Get returns the raw value bound to name in s or its ancestors. The value
// may be a [*Lazy].
func (s *Scope) Get(name string) (any, bool) {
	b, ok := s.lookup(name)
	if !ok || !b.set {
		return nil, false
	}

	return b.value, true
}

func (s *Scope) lookup(name string) (*binding, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if b, ok := sc.vars[name]; ok {
			return b, true
		}
	}

	return nil, false
}

// outer returns the scope in which name must be resolved instead, when
// name is the record key whose value is being computed from s. It returns
// nil if a nearer binding of name shadows that key.
func (s *Scope) outer(name string) *Scope {
	for sc := s; sc != nil && sc.parent != nil; sc = sc.parent {
		if _, ok := sc.vars[name]; ok {
			return nil
		}

		if sc.self == name {
			return sc.parent.parent
		}
	}

	return nil
}

// Local returns the names bound directly in s, in declaration order.
func (s *Scope) Local() []string { return slices.Clone(s.names) }

// Names returns every name visible from s, sorted.
func (s *Scope) Names() []string {
	var out []string

	for sc := s; sc != nil; sc = sc.parent {
		out = append(out, sc.names...)
	}

	slices.Sort(out)

	return slices.Compact(out)
}

// Module returns the nearest module context in the scope chain, or nil.
func (s *Scope) Module() *ModuleContext {
	for sc := s; sc != nil; sc = sc.parent {
		if sc.module != nil {
			return sc.module
		}
	}

	return nil
}
