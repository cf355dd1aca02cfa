package lang

import (
	"context"
	"log/slog"
	"math"
	"slices"
	"strconv"

	"github.com/ardnew/zero/log"
)

// DefaultMaxDepth is the default limit on nested function calls.
const DefaultMaxDepth = 4096

// Evaluator walks syntax trees and computes their values.
//
// An Evaluator tracks call depth and is not safe for concurrent use.
type Evaluator struct {
	logger   log.Logger
	maxDepth int
	depth    int
}

// Option configures an [Evaluator].
type Option func(Evaluator) Evaluator

// WithLogger sets the logger used by debug probes and tracing.
func WithLogger(logger log.Logger) Option {
	return func(e Evaluator) Evaluator {
		e.logger = logger

		return e
	}
}

// WithMaxDepth limits the number of nested function calls.
func WithMaxDepth(depth int) Option {
	return func(e Evaluator) Evaluator {
		if depth > 0 {
			e.maxDepth = depth
		}

		return e
	}
}

// NewEvaluator returns an evaluator configured with opts.
func NewEvaluator(opts ...Option) *Evaluator {
	e := Evaluator{maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		e = opt(e)
	}

	return &e
}

// Evaluate computes the value of n in scope s with a default evaluator.
func Evaluate(ctx context.Context, n Node, s *Scope) (any, error) {
	return NewEvaluator().Eval(ctx, n, s)
}

// frame returns the provenance frame for offset in the module of s.
func frame(s *Scope, offset int, name string) Frame {
	mc := s.Module()
	if mc == nil {
		return Frame{Offset: offset, Name: name, Pos: Position{Line: 1, Column: offset + 1}}
	}

	return NewFrame(mc.Address, mc.Source, offset, name)
}

// fail returns a semantic error originating at n.
func fail(s *Scope, n Node, kind ErrorKind, msg string) *SemanticError {
	return (&SemanticError{Kind: kind, Message: msg}).Push(frame(s, n.Pos(), ""))
}

// trace records the site at offset in the provenance of a semantic error.
func trace(err error, s *Scope, offset int, name string) error {
	if se, ok := err.(*SemanticError); ok {
		se.Push(frame(s, offset, name))
	}

	return err
}

// Eval computes the value of n in scope s.
func (e *Evaluator) Eval(ctx context.Context, n Node, s *Scope) (any, error) {
	switch n := n.(type) {
	case *Number:
		return n.Value, nil

	case *Text:
		return n.Value, nil

	case *Null:
		return nil, nil

	case *Ref:
		return e.lookup(ctx, s, n, n.Name)

	case *Not:
		v, err := e.Eval(ctx, n.X, s)
		if err != nil {
			return nil, err
		}

		return boolean(!truthy(v)), nil

	case *Probe:
		v, err := e.Eval(ctx, n.X, s)
		if err != nil {
			return nil, err
		}

		e.logger.InfoContext(ctx, "probe",
			slog.String("at", frame(s, n.Pos(), "").String()),
			slog.String("type", TypeOf(v)),
			slog.String("value", FormatString(v)),
		)

		return v, nil

	case *Load:
		return e.load(ctx, s, n)

	case *ModuleRef:
		return e.module(ctx, s, n)

	case *Group:
		inner := s.Child()
		if err := e.declare(ctx, n.Decls, inner); err != nil {
			return nil, err
		}

		return e.Eval(ctx, n.Body, inner)

	case *List:
		return e.list(ctx, s, n)

	case *Object:
		return e.object(ctx, s, n)

	case *Lambda:
		return &Closure{Lambda: n, Scope: s}, nil

	case *Call:
		fn, err := e.Eval(ctx, n.Fn, s)
		if err != nil {
			return nil, err
		}

		return e.call(ctx, s, n, fn, n.Arg, callee(n.Fn))

	case *Invoke:
		fn, err := e.lookup(ctx, s, n, n.Name)
		if err != nil {
			return nil, err
		}

		return e.call(ctx, s, n, fn, n.Arg, n.Name)

	case *Binary:
		l, err := e.Eval(ctx, n.L, s)
		if err != nil {
			return nil, err
		}

		r, err := e.Eval(ctx, n.R, s)
		if err != nil {
			return nil, err
		}

		v, err := n.Fn(l, r)
		if err != nil {
			return nil, trace(err, s, n.Pos(), "")
		}

		return v, nil

	case *Logical:
		l, err := e.Eval(ctx, n.L, s)
		if err != nil {
			return nil, err
		}

		switch {
		case n.Op == "&" && !truthy(l):
			return 0.0, nil
		case n.Op == "|" && truthy(l):
			return l, nil
		}

		return e.Eval(ctx, n.R, s)

	case *Conditional:
		c, err := e.Eval(ctx, n.Cond, s)
		if err != nil {
			return nil, err
		}

		if truthy(c) {
			return e.Eval(ctx, n.Then, s)
		}

		return e.Eval(ctx, n.Else, s)

	case *Index:
		return e.index(ctx, s, n)

	case *Slice:
		return e.slice(ctx, s, n)

	case *Length:
		return e.length(ctx, s, n)

	case *Keys:
		return e.keys(ctx, s, n)

	case *Attr:
		return e.attr(ctx, s, n)

	case nil:
		return Undefined, nil

	default:
		return nil, fail(s, n, InvalidOperand, "cannot evaluate "+TypeOf(n))
	}
}

// Program evaluates a parsed module: imports are bound as lazy module
// values, every declaration is declared, declarations are evaluated in
// order, and finally the body. A program without a body evaluates to the
// record of its declarations.
func (e *Evaluator) Program(
	ctx context.Context,
	p *Program,
	mc *ModuleContext,
) (any, error) {
	return e.Extend(ctx, p, NewModuleScope(mc))
}

// Extend evaluates p like [Evaluator.Program] but binds its imports and
// declarations in s, where they stay visible to later programs evaluated in
// the same scope. Names already bound in s are redefined.
func (e *Evaluator) Extend(ctx context.Context, p *Program, s *Scope) (any, error) {
	mc := s.Module()

	for _, imp := range p.Imports {
		if mc == nil || mc.Loader == nil {
			return nil, (&SemanticError{
				Err:     ErrNoLoader,
				Kind:    MissingModuleContext,
				Name:    imp.Name,
				Message: "cannot import " + imp.Spec + " without a module loader",
			}).Push(frame(s, imp.Offset, imp.Name))
		}

		addr, err := mc.Loader.Resolve(mc.Address, imp.Spec)
		if err != nil {
			return nil, err
		}

		s.Define(imp.Name, NewLazy(imp.Name, func(ctx context.Context) (any, error) {
			v, err := mc.Loader.Value(ctx, addr)
			if err != nil {
				return nil, trace(err, s, imp.Offset, imp.Spec)
			}

			return v, nil
		}))
	}

	if err := e.declare(ctx, p.Decls, s); err != nil {
		return nil, err
	}

	if p.Body != nil {
		return e.Eval(ctx, p.Body, s)
	}

	rec := NewRecord()

	for _, d := range p.Decls {
		v, _ := s.Get(d.Name)
		rec.Set(d.Name, v)
	}

	return rec, nil
}

// declare binds decls in s: all names first, then each value in order.
func (e *Evaluator) declare(ctx context.Context, decls []Decl, s *Scope) error {
	for _, d := range decls {
		s.Declare(d.Name)
	}

	for _, d := range decls {
		v, err := e.Eval(ctx, d.Value, s)
		if err != nil {
			return err
		}

		s.Define(d.Name, v)
	}

	return nil
}

func (e *Evaluator) lookup(
	ctx context.Context,
	s *Scope,
	n Node,
	name string,
) (any, error) {
	b, ok := s.lookup(name)
	if !ok {
		err := fail(s, n, NameNotFound, strconv.Quote(name)+" is not defined")
		err.Name = name
		err.Available = s.Names()

		return nil, err
	}

	if !b.set {
		err := fail(s, n, Uninitialized, strconv.Quote(name)+" is used before its value is defined")
		err.Name = name

		return nil, err
	}

	if lz, ok := b.value.(*Lazy); ok {
		// {x: x + 1} reads x from outside the literal.
		if lz.forcing() {
			if o := s.outer(name); o != nil {
				return e.lookup(ctx, o, n, name)
			}
		}

		v, err := lz.Force(ctx)
		if err != nil {
			return nil, trace(err, s, n.Pos(), name)
		}

		return v, nil
	}

	return b.value, nil
}

func (e *Evaluator) context(s *Scope, n Node, what string) (*ModuleContext, error) {
	mc := s.Module()
	if mc == nil || mc.Loader == nil {
		err := fail(s, n, MissingModuleContext, "cannot resolve "+what+" outside a module")
		err.Err = ErrNoLoader

		return nil, err
	}

	return mc, nil
}

func (e *Evaluator) load(ctx context.Context, s *Scope, n *Load) (any, error) {
	mc, err := e.context(s, n, n.Spec)
	if err != nil {
		return nil, err
	}

	addr, err := mc.Loader.Resolve(mc.Address, n.Spec)
	if err != nil {
		return nil, err
	}

	text, err := mc.Loader.Text(ctx, addr)
	if err != nil {
		return nil, trace(err, s, n.Pos(), n.Spec)
	}

	return text, nil
}

func (e *Evaluator) module(ctx context.Context, s *Scope, n *ModuleRef) (any, error) {
	mc, err := e.context(s, n, n.Spec)
	if err != nil {
		return nil, err
	}

	addr, err := mc.Loader.Resolve(mc.Address, n.Spec)
	if err != nil {
		return nil, err
	}

	v, err := mc.Loader.Value(ctx, addr)
	if err != nil {
		return nil, trace(err, s, n.Pos(), n.Spec)
	}

	return v, nil
}

func (e *Evaluator) list(ctx context.Context, s *Scope, n *List) (any, error) {
	out := make([]any, 0, len(n.Items))

	for _, it := range n.Items {
		sp, ok := it.(*Spread)
		if !ok {
			v, err := e.Eval(ctx, it, s)
			if err != nil {
				return nil, err
			}

			out = append(out, v)

			continue
		}

		v, err := e.Eval(ctx, sp.X, s)
		if err != nil {
			return nil, err
		}

		switch v := v.(type) {
		case []any:
			out = append(out, v...)
		case *Record:
			for _, k := range v.keys {
				if k != lengthKey {
					out = append(out, v.vals[k])
				}
			}
		default:
			return nil, fail(s, sp, NotIndexable, "cannot spread "+TypeOf(v))
		}
	}

	return out, nil
}

// object evaluates a record literal in two passes. The first binds every
// keyed entry as a lazy value in a scope nested in s, so entries may refer
// to each other in any order. The second evaluates entries left to right.
// While an entry's value is computed, its own key refers to the binding
// outside the literal.
//
// A non-empty literal whose entries are all unkeyed values or list spreads
// evaluates to a list.
func (e *Evaluator) object(ctx context.Context, s *Scope, n *Object) (any, error) {
	inner := s.Child()

	for _, ent := range n.Entries {
		if ent.Kind != EntryKeyed {
			continue
		}

		value, own := ent.Value, inner.Child()
		own.self = ent.Key

		inner.Define(ent.Key, NewLazy(ent.Key, func(ctx context.Context) (any, error) {
			return e.Eval(ctx, value, own)
		}))
	}

	var (
		rec    = NewRecord()
		list   []any
		listed = len(n.Entries) > 0
		next   int
	)

	put := func(k string, v any) {
		rec.Set(k, v)
		inner.Define(k, v)
	}

	for _, ent := range n.Entries {
		switch ent.Kind {
		case EntryKeyed:
			v, err := e.lookup(ctx, inner, ent.Value, ent.Key)
			if err != nil {
				return nil, err
			}

			put(ent.Key, v)

			listed = false

		case EntryShorthand:
			v, err := e.lookup(ctx, s, ent.Value, ent.Key)
			if err != nil {
				return nil, err
			}

			put(ent.Key, v)

			listed = false

		case EntryIndexed:
			v, err := e.Eval(ctx, ent.Value, inner)
			if err != nil {
				return nil, err
			}

			rec.Set(strconv.Itoa(next), v)
			list = append(list, v)
			next++

		case EntrySpread:
			v, err := e.Eval(ctx, ent.Value, inner)
			if err != nil {
				return nil, err
			}

			switch v := v.(type) {
			case []any:
				for _, it := range v {
					rec.Set(strconv.Itoa(next), it)
					next++
				}

				list = append(list, v...)

			case *Record:
				for _, k := range v.keys {
					if k != lengthKey {
						put(k, v.vals[k])
					}
				}

				listed = false

			default:
				return nil, fail(s, ent.Value, NotIndexable, "cannot spread "+TypeOf(v))
			}
		}
	}

	if listed {
		if list == nil {
			list = []any{}
		}

		return list, nil
	}

	return rec, nil
}

func callee(n Node) string {
	switch n := n.(type) {
	case *Ref:
		return n.Name
	case *Attr:
		return n.Name
	default:
		return ""
	}
}

func (e *Evaluator) call(
	ctx context.Context,
	s *Scope,
	site Node,
	fn any,
	argNode Node,
	name string,
) (any, error) {
	c, ok := fn.(*Closure)
	if !ok {
		err := fail(s, site, NotAFunction, TypeOf(fn)+" is not a function")
		if name != "" {
			err.Message = strconv.Quote(name) + " is " + TypeOf(fn) + ", not a function"
		}

		err.Name = name

		return nil, err
	}

	var arg any = Undefined

	if argNode != nil {
		v, err := e.Eval(ctx, argNode, s)
		if err != nil {
			return nil, err
		}

		arg = v
	}

	if e.depth >= e.maxDepth {
		return nil, fail(s, site, CallDepth, "exceeded "+strconv.Itoa(e.maxDepth)+" nested calls")
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.depth++
	defer func() { e.depth-- }()

	v, err := e.apply(ctx, c, arg)
	if err != nil {
		return nil, trace(err, s, site.Pos(), name)
	}

	return v, nil
}

// apply binds arg to the parameter of c in a fresh scope and evaluates the
// body, or the result of the first guard whose condition holds.
func (e *Evaluator) apply(ctx context.Context, c *Closure, arg any) (any, error) {
	inner := c.Scope.Child()
	lam := c.Lambda

	switch {
	case lam.Param.Fields != nil:
		for i, f := range lam.Param.Fields {
			inner.Define(f, destructure(arg, f, i))
		}

	case lam.Param.Name != "":
		inner.Define(lam.Param.Name, arg)
	}

	if !lam.Guarded {
		return e.Eval(ctx, lam.Body, inner)
	}

	for _, gd := range lam.Guards {
		cond, err := e.Eval(ctx, gd.Cond, inner)
		if err != nil {
			return nil, err
		}

		if truthy(cond) {
			return e.Eval(ctx, gd.Result, inner)
		}
	}

	if lam.Default != nil {
		return e.Eval(ctx, lam.Default, inner)
	}

	return Undefined, nil
}

// destructure returns field name of a record argument, or item i of a
// list argument.
func destructure(arg any, name string, i int) any {
	switch a := arg.(type) {
	case *Record:
		if v, ok := a.Get(name); ok {
			return v
		}

	case []any:
		if i < len(a) {
			return a[i]
		}
	}

	return Undefined
}

// integer converts an index value to an int.
func integer(v any) (int, bool) {
	n, ok := v.(float64)
	if !ok || n != math.Trunc(n) || math.IsInf(n, 0) {
		return 0, false
	}

	// Whole numbers beyond the range of int saturate. No sequence is that
	// long, so they index nothing and clamp to either end of a slice.
	switch {
	case n >= float64(math.MaxInt):
		return math.MaxInt, true
	case n < -float64(math.MaxInt):
		return math.MinInt, true
	}

	return int(n), true
}

func (e *Evaluator) index(ctx context.Context, s *Scope, n *Index) (any, error) {
	x, err := e.Eval(ctx, n.X, s)
	if err != nil {
		return nil, err
	}

	i, err := e.Eval(ctx, n.Index, s)
	if err != nil {
		return nil, err
	}

	switch x := x.(type) {
	case string:
		k, ok := integer(i)
		if !ok {
			return nil, fail(s, n.Index, InvalidIndexType, "cannot index text with "+TypeOf(i))
		}

		r := []rune(x)
		if k < 0 || k >= len(r) {
			return Undefined, nil
		}

		return string(r[k]), nil

	case []any:
		k, ok := integer(i)
		if !ok {
			return nil, fail(s, n.Index, InvalidIndexType, "cannot index list with "+TypeOf(i))
		}

		if k < 0 || k >= len(x) {
			return Undefined, nil
		}

		return x[k], nil

	case *Record:
		switch i := i.(type) {
		case string:
			if v, ok := x.Get(i); ok {
				return v, nil
			}

			return Undefined, nil

		case float64:
			k, ok := integer(i)
			if !ok {
				return Undefined, nil
			}

			if size, ok := x.vals[lengthKey].(float64); ok && (k < 0 || float64(k) >= size) {
				return Undefined, nil
			}

			if v, ok := x.Get(strconv.Itoa(k)); ok {
				return v, nil
			}

			return Undefined, nil

		default:
			return nil, fail(s, n.Index, InvalidIndexType, "cannot index record with "+TypeOf(i))
		}

	default:
		return nil, fail(s, n, NotIndexable, "cannot index "+TypeOf(x))
	}
}

// bounds resolves slice bounds against a sequence of length size. Negative
// bounds count from the end; both are clamped to [0, size].
func bounds(lo, hi any, size int) (int, int, bool) {
	clamp := func(v any, def int) (int, bool) {
		if v == nil || v == Undefined {
			return def, true
		}

		k, ok := integer(v)
		if !ok {
			return 0, false
		}

		if k < 0 {
			k += size
		}

		return min(max(k, 0), size), true
	}

	a, okLo := clamp(lo, 0)
	b, okHi := clamp(hi, size)

	return a, max(a, b), okLo && okHi
}

func (e *Evaluator) slice(ctx context.Context, s *Scope, n *Slice) (any, error) {
	x, err := e.Eval(ctx, n.X, s)
	if err != nil {
		return nil, err
	}

	var lo, hi any

	if n.Lo != nil {
		if lo, err = e.Eval(ctx, n.Lo, s); err != nil {
			return nil, err
		}
	}

	if n.Hi != nil {
		if hi, err = e.Eval(ctx, n.Hi, s); err != nil {
			return nil, err
		}
	}

	switch x := x.(type) {
	case string:
		r := []rune(x)

		a, b, ok := bounds(lo, hi, len(r))
		if !ok {
			return nil, fail(s, n, InvalidIndexType, "slice bounds must be integers")
		}

		return string(r[a:b]), nil

	case []any:
		a, b, ok := bounds(lo, hi, len(x))
		if !ok {
			return nil, fail(s, n, InvalidIndexType, "slice bounds must be integers")
		}

		return slices.Clone(x[a:b]), nil

	case *Record:
		return nil, fail(s, n, RecordSlice, "records support keyed indexing only")

	default:
		return nil, fail(s, n, NotIndexable, "cannot slice "+TypeOf(x))
	}
}

func (e *Evaluator) length(ctx context.Context, s *Scope, n *Length) (any, error) {
	x, err := e.Eval(ctx, n.X, s)
	if err != nil {
		return nil, err
	}

	switch x := x.(type) {
	case string:
		return float64(len([]rune(x))), nil
	case []any:
		return float64(len(x)), nil
	case *Record:
		if size, ok := x.vals[lengthKey].(float64); ok {
			return size, nil
		}

		return float64(x.Len()), nil
	default:
		return nil, fail(s, n, NotIndexable, TypeOf(x)+" has no length")
	}
}

func (e *Evaluator) keys(ctx context.Context, s *Scope, n *Keys) (any, error) {
	x, err := e.Eval(ctx, n.X, s)
	if err != nil {
		return nil, err
	}

	var size int

	switch x := x.(type) {
	case *Record:
		out := make([]any, 0, x.Len())
		for _, k := range x.keys {
			out = append(out, k)
		}

		return out, nil
	case string:
		size = len([]rune(x))
	case []any:
		size = len(x)
	default:
		return nil, fail(s, n, NotIndexable, TypeOf(x)+" has no keys")
	}

	out := make([]any, size)
	for i := range out {
		out[i] = float64(i)
	}

	return out, nil
}

func (e *Evaluator) attr(ctx context.Context, s *Scope, n *Attr) (any, error) {
	x, err := e.Eval(ctx, n.X, s)
	if err != nil {
		return nil, err
	}

	rec, ok := x.(*Record)
	if !ok {
		err := fail(s, n, NotIndexable, "cannot read "+strconv.Quote(n.Name)+" of "+TypeOf(x))
		err.Name = n.Name

		return nil, err
	}

	v, ok := rec.Get(n.Name)
	if !ok {
		err := fail(s, n, NameNotFound, "record has no key "+strconv.Quote(n.Name))
		err.Name = n.Name
		err.Available = slices.Sorted(slices.Values(rec.keys))

		return nil, err
	}

	return v, nil
}
