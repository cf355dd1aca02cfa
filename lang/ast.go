package lang

// Node is an element of the syntax tree. Nodes are immutable once built.
type Node interface {
	// Pos returns the byte offset of the node within its source.
	Pos() int
}

type at struct{ Offset int }

// Pos implements [Node].
func (a at) Pos() int { return a.Offset }

// Operator implements a binary operator over evaluated operands.
type Operator func(l, r any) (any, error)

type (
	// Number is a numeric literal.
	Number struct {
		at
		Value float64
	}

	// Text is a double-quoted string literal.
	Text struct {
		at
		Value string
	}

	// Null is the null literal.
	Null struct{ at }

	// Ref is a reference to a name in scope.
	Ref struct {
		at
		Name string
	}

	// Not is logical negation: !x.
	Not struct {
		at
		X Node
	}

	// Probe logs the value of X and yields it unchanged: $x.
	Probe struct {
		at
		X Node
	}

	// Load yields the raw text at an address: @./file.txt.
	Load struct {
		at
		Spec string
	}

	// ModuleRef yields the value of the module at an address.
	ModuleRef struct {
		at
		Spec string
	}

	// Group is a parenthesized expression with optional local declarations.
	Group struct {
		at
		Body  Node
		Decls []Decl
	}

	// List is a list literal. Items may be [*Spread] nodes.
	List struct {
		at
		Items []Node
	}

	// Spread expands a list or record into an enclosing literal.
	Spread struct {
		at
		X Node
	}

	// Object is a record literal.
	Object struct {
		at
		Entries []Entry
	}

	// Lambda is a function literal. A lambda has either a Body or, when
	// Guarded is set, a list of Guards and an optional Default.
	Lambda struct {
		at
		Body    Node
		Default Node
		Param   Param
		Guards  []Guard
		Guarded bool
	}

	// Call applies the value of Fn to Arg. Arg is nil for an empty argument
	// list.
	Call struct {
		at
		Fn  Node
		Arg Node
	}

	// Invoke calls the function bound to Name, written with no space between
	// the name and the argument list: f(x).
	Invoke struct {
		at
		Arg  Node
		Name string
	}

	// Binary is an arithmetic or relational operation.
	Binary struct {
		at
		L, R Node
		Fn   Operator
		Op   string
	}

	// Logical is a short-circuiting & or | operation.
	Logical struct {
		at
		L, R Node
		Op   string
	}

	// Conditional is c ? a : b.
	Conditional struct {
		at
		Cond, Then, Else Node
	}

	// Index is x[i].
	Index struct {
		at
		X, Index Node
	}

	// Slice is x[lo:hi]. Either bound may be nil.
	Slice struct {
		at
		X, Lo, Hi Node
	}

	// Length is x[.].
	Length struct {
		at
		X Node
	}

	// Keys is x[*].
	Keys struct {
		at
		X Node
	}

	// Attr is x.name.
	Attr struct {
		at
		X    Node
		Name string
	}
)

// EntryKind classifies the entries of an [Object].
type EntryKind int

const (
	EntryKeyed     EntryKind = iota // key: value
	EntryShorthand                  // name
	EntrySpread                     // ...value
	EntryIndexed                    // value
)

// String returns the name of the entry kind.
func (k EntryKind) String() string {
	switch k {
	case EntryKeyed:
		return "keyed"
	case EntryShorthand:
		return "shorthand"
	case EntrySpread:
		return "spread"
	case EntryIndexed:
		return "indexed"
	default:
		return "unknown"
	}
}

// Entry is one element of an object literal.
type Entry struct {
	Value  Node
	Key    string
	Kind   EntryKind
	Offset int
}

// Param is the parameter of a lambda: either a single Name or a list of
// Fields destructured from a record or list argument.
type Param struct {
	Name   string
	Fields []string
}

// Guard is one "| cond = result" clause of a guarded lambda.
type Guard struct {
	Cond, Result Node
}

// Decl binds Name to the value of an expression.
type Decl struct {
	Value  Node
	Name   string
	Offset int
}

// Import binds Name to the value of the module at Spec.
type Import struct {
	Name   string
	Spec   string
	Offset int
}

// Program is a parsed module: imports, then declarations, then a body.
type Program struct {
	Body    Node
	Address string
	Source  string
	Imports []Import
	Decls   []Decl
}

// Walk calls fn for n and every node beneath it, depth first. If fn returns
// false the children of that node are skipped.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}

	switch n := n.(type) {
	case *Not:
		Walk(n.X, fn)
	case *Probe:
		Walk(n.X, fn)
	case *Spread:
		Walk(n.X, fn)
	case *Length:
		Walk(n.X, fn)
	case *Keys:
		Walk(n.X, fn)
	case *Attr:
		Walk(n.X, fn)
	case *Group:
		for _, d := range n.Decls {
			Walk(d.Value, fn)
		}

		Walk(n.Body, fn)
	case *List:
		for _, it := range n.Items {
			Walk(it, fn)
		}
	case *Object:
		for _, e := range n.Entries {
			Walk(e.Value, fn)
		}
	case *Lambda:
		Walk(n.Body, fn)

		for _, g := range n.Guards {
			Walk(g.Cond, fn)
			Walk(g.Result, fn)
		}

		Walk(n.Default, fn)
	case *Call:
		Walk(n.Fn, fn)
		Walk(n.Arg, fn)
	case *Invoke:
		Walk(n.Arg, fn)
	case *Binary:
		Walk(n.L, fn)
		Walk(n.R, fn)
	case *Logical:
		Walk(n.L, fn)
		Walk(n.R, fn)
	case *Conditional:
		Walk(n.Cond, fn)
		Walk(n.Then, fn)
		Walk(n.Else, fn)
	case *Index:
		Walk(n.X, fn)
		Walk(n.Index, fn)
	case *Slice:
		Walk(n.X, fn)
		Walk(n.Lo, fn)
		Walk(n.Hi, fn)
	}
}

// Nodes calls fn for every node in the program's declarations and body.
func (p *Program) Nodes(fn func(Node) bool) {
	for _, d := range p.Decls {
		Walk(d.Value, fn)
	}

	Walk(p.Body, fn)
}
