package lang

// Tree returns n as plain data (maps, slices and scalars) suitable for JSON
// or YAML encoding. Every node becomes a map with a "node" kind and its
// source offset "at".
func Tree(n Node) any {
	if n == nil {
		return nil
	}

	m := map[string]any{"at": n.Pos()}

	switch n := n.(type) {
	case *Number:
		m["node"], m["value"] = "number", n.Value
	case *Text:
		m["node"], m["value"] = "text", n.Value
	case *Null:
		m["node"] = "null"
	case *Ref:
		m["node"], m["name"] = "ref", n.Name
	case *Not:
		m["node"], m["x"] = "not", Tree(n.X)
	case *Probe:
		m["node"], m["x"] = "probe", Tree(n.X)
	case *Load:
		m["node"], m["address"] = "load", n.Spec
	case *ModuleRef:
		m["node"], m["address"] = "module", n.Spec
	case *Group:
		m["node"], m["decls"], m["body"] = "group", declTrees(n.Decls), Tree(n.Body)
	case *List:
		m["node"], m["items"] = "list", trees(n.Items)
	case *Spread:
		m["node"], m["x"] = "spread", Tree(n.X)
	case *Object:
		entries := make([]any, len(n.Entries))
		for i, e := range n.Entries {
			entries[i] = map[string]any{
				"kind":  e.Kind.String(),
				"key":   e.Key,
				"value": Tree(e.Value),
			}
		}

		m["node"], m["entries"] = "object", entries
	case *Lambda:
		m["node"] = "lambda"
		m["param"] = paramTree(n.Param)

		if !n.Guarded {
			m["body"] = Tree(n.Body)

			break
		}

		guards := make([]any, len(n.Guards))
		for i, gd := range n.Guards {
			guards[i] = map[string]any{"if": Tree(gd.Cond), "then": Tree(gd.Result)}
		}

		m["guards"], m["default"] = guards, Tree(n.Default)
	case *Call:
		m["node"], m["fn"], m["arg"] = "call", Tree(n.Fn), Tree(n.Arg)
	case *Invoke:
		m["node"], m["name"], m["arg"] = "invoke", n.Name, Tree(n.Arg)
	case *Binary:
		m["node"], m["op"] = "binary", n.Op
		m["left"], m["right"] = Tree(n.L), Tree(n.R)
	case *Logical:
		m["node"], m["op"] = "logical", n.Op
		m["left"], m["right"] = Tree(n.L), Tree(n.R)
	case *Conditional:
		m["node"] = "conditional"
		m["if"], m["then"], m["else"] = Tree(n.Cond), Tree(n.Then), Tree(n.Else)
	case *Index:
		m["node"], m["x"], m["index"] = "index", Tree(n.X), Tree(n.Index)
	case *Slice:
		m["node"], m["x"] = "slice", Tree(n.X)
		m["lo"], m["hi"] = Tree(n.Lo), Tree(n.Hi)
	case *Length:
		m["node"], m["x"] = "length", Tree(n.X)
	case *Keys:
		m["node"], m["x"] = "keys", Tree(n.X)
	case *Attr:
		m["node"], m["x"], m["name"] = "attr", Tree(n.X), n.Name
	}

	return m
}

// Tree returns the program as plain data.
func (p *Program) Tree() map[string]any {
	imports := make([]any, len(p.Imports))
	for i, imp := range p.Imports {
		imports[i] = map[string]any{"name": imp.Name, "address": imp.Spec, "at": imp.Offset}
	}

	return map[string]any{
		"address": p.Address,
		"imports": imports,
		"decls":   declTrees(p.Decls),
		"body":    Tree(p.Body),
	}
}

func trees(ns []Node) []any {
	out := make([]any, len(ns))
	for i, n := range ns {
		out[i] = Tree(n)
	}

	return out
}

func declTrees(ds []Decl) []any {
	out := make([]any, len(ds))
	for i, d := range ds {
		out[i] = map[string]any{"name": d.Name, "at": d.Offset, "value": Tree(d.Value)}
	}

	return out
}

func paramTree(p Param) any {
	if p.Fields != nil {
		return p.Fields
	}

	return p.Name
}
