package lang

import (
	"bytes"
	"context"
	"encoding/json"
	"slices"
)

// Values produced by evaluation are one of:
//
//	float64    number
//	string     text
//	nil        null
//	Undefined  absent value
//	[]any      list
//	*Record    record
//	*Closure   function
//
// A *Lazy may appear in a scope binding; lookups force it, so it is never
// observed as a value.

type undefined struct{}

// Undefined is the value of an out-of-range index, a missing destructured
// field, or a guarded function whose guards all fail.
var Undefined = undefined{}

// String returns "undefined".
func (undefined) String() string { return "undefined" }

// MarshalJSON encodes Undefined as JSON null.
func (undefined) MarshalJSON() ([]byte, error) { return []byte("null"), nil }

// lengthKey is the record key that makes a record indexable by position.
const lengthKey = "length"

// Record is an ordered mapping from names to values.
type Record struct {
	vals map[string]any
	keys []string
}

// NewRecord returns an empty record.
func NewRecord() *Record {
	return &Record{vals: make(map[string]any)}
}

// Get returns the value bound to key.
func (r *Record) Get(key string) (any, bool) {
	v, ok := r.vals[key]

	return v, ok
}

// Set binds key to v. New keys are appended to the key order.
func (r *Record) Set(key string, v any) {
	if _, ok := r.vals[key]; !ok {
		r.keys = append(r.keys, key)
	}

	r.vals[key] = v
}

// Has reports whether key is bound.
func (r *Record) Has(key string) bool {
	_, ok := r.vals[key]

	return ok
}

// Keys returns the keys of r in insertion order.
func (r *Record) Keys() []string { return slices.Clone(r.keys) }

// Len returns the number of keys.
func (r *Record) Len() int { return len(r.keys) }

// Map returns the entries of r as a Go map with values converted by
// [Native].
func (r *Record) Map() map[string]any {
	m := make(map[string]any, len(r.keys))
	for _, k := range r.keys {
		m[k] = Native(r.vals[k])
	}

	return m
}

// MarshalJSON encodes r as a JSON object preserving key order.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte('{')

	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}

		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}

		val, err := json.Marshal(r.vals[k])
		if err != nil {
			return nil, err
		}

		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// Closure is a function value: a lambda together with the scope it was
// defined in.
type Closure struct {
	Lambda *Lambda
	Scope  *Scope
}

// String returns a short description of the closure.
func (c *Closure) String() string {
	if c.Lambda.Param.Name != "" {
		return "<function " + c.Lambda.Param.Name + ">"
	}

	return "<function>"
}

// MarshalJSON encodes a closure as its description.
func (c *Closure) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// Lazy is a value computed on first use and memoized thereafter. Lazy
// values belong to a single evaluation and are not safe for concurrent use.
type Lazy struct {
	fn    func(context.Context) (any, error)
	val   any
	err   error
	name  string
	state int // 0 pending, 1 forcing, 2 done
}

// NewLazy returns a thunk named name that computes its value with fn.
func NewLazy(name string, fn func(context.Context) (any, error)) *Lazy {
	return &Lazy{name: name, fn: fn}
}

// Force computes the value if needed and returns it. Forcing a thunk from
// within its own computation is a [CircularDependency] error.
func (l *Lazy) Force(ctx context.Context) (any, error) {
	switch l.state {
	case 1:
		return nil, &SemanticError{
			Kind:    CircularDependency,
			Name:    l.name,
			Message: l.name + " depends on its own value",
		}

	case 0:
		l.state = 1
		l.val, l.err = l.fn(ctx)
		l.state = 2
		l.fn = nil
	}

	return l.val, l.err
}

func (l *Lazy) forcing() bool { return l.state == 1 }

func truthy(v any) bool {
	n, ok := v.(float64)

	return !ok || n != 0
}

func boolean(b bool) float64 {
	if b {
		return 1
	}

	return 0
}

// Equal reports whether a and b are structurally equal. Closures are equal
// only to themselves.
func Equal(a, b any) bool {
	switch a := a.(type) {
	case []any:
		b, ok := b.([]any)

		return ok && slices.EqualFunc(a, b, Equal)

	case *Record:
		b, ok := b.(*Record)
		if !ok || a.Len() != b.Len() {
			return false
		}

		for _, k := range a.keys {
			bv, ok := b.vals[k]
			if !ok || !Equal(a.vals[k], bv) {
				return false
			}
		}

		return true

	case *Closure:
		b, ok := b.(*Closure)

		return ok && a == b

	default:
		return a == b
	}
}

// Native converts a value into plain Go data: records become
// map[string]any, lists become []any of native values, Undefined becomes
// nil, and closures become their description.
func Native(v any) any {
	switch v := v.(type) {
	case *Record:
		return v.Map()

	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = Native(e)
		}

		return out

	case undefined:
		return nil

	case *Closure:
		return v.String()

	default:
		return v
	}
}
