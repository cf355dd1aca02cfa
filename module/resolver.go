package module

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ardnew/zero/lang"
	"github.com/ardnew/zero/log"
)

// Anonymous is the address of source text evaluated outside any file.
const Anonymous = "<input>"

// Resolver loads, parses and evaluates modules. Each module address is
// fetched, parsed and evaluated at most once per Resolver.
//
// A Resolver implements [lang.Loader]: imports and module references are
// resolved relative to the importing module and evaluated on demand.
// Evaluation is single-threaded; a Resolver is not safe for concurrent use.
type Resolver struct {
	cache    *Cache
	eval     *lang.Evaluator
	logger   log.Logger
	modules  map[string]*lang.Program
	deps     map[string][]string // imports of each parsed module
	values   map[string]any      // settled module values
	search   []string
	active   []string // modules being evaluated, outermost first
	parallel int
}

// New returns a resolver reading content through cache.
func New(cache *Cache, opts ...Option) *Resolver {
	cfg := makeConfig(opts...)

	if cache == nil {
		cache = NewCache("", opts...)
	}

	return &Resolver{
		cache:    cache,
		eval:     lang.NewEvaluator(append([]lang.Option{lang.WithLogger(cfg.logger)}, cfg.eval...)...),
		logger:   cfg.logger,
		modules:  make(map[string]*lang.Program),
		deps:     make(map[string][]string),
		values:   make(map[string]any),
		search:   cfg.search,
		parallel: cfg.parallel,
	}
}

// Cache returns the content cache of r.
func (r *Resolver) Cache() *Cache { return r.cache }

// Resolve implements [lang.Loader].
func (r *Resolver) Resolve(base, spec string) (string, error) {
	return resolve(base, spec, r.search)
}

// Text implements [lang.Loader].
func (r *Resolver) Text(ctx context.Context, address string) (string, error) {
	text, err := r.cache.Fetch(ctx, address)
	if err != nil {
		return "", notLoaded(address, err)
	}

	return text, nil
}

// Run resolves spec relative to the working directory and returns the value
// of the module it names.
func (r *Resolver) Run(ctx context.Context, spec string) (any, error) {
	address, err := r.Resolve("", spec)
	if err != nil {
		return nil, err
	}

	return r.Value(ctx, address)
}

// Eval evaluates src as an anonymous module in the working directory, so
// that its relative imports resolve against it.
func (r *Resolver) Eval(ctx context.Context, src string) (any, error) {
	p, err := lang.ParseProgram(Anonymous, src)
	if err != nil {
		return nil, err
	}

	return r.eval.Program(ctx, p, &lang.ModuleContext{
		Loader: r, Address: Anonymous, Source: src,
	})
}

// Session returns an anonymous module scope for interactive use. Programs
// passed to [Resolver.Extend] with it share their declarations.
func (r *Resolver) Session() *lang.Scope {
	return lang.NewModuleScope(&lang.ModuleContext{Loader: r, Address: Anonymous})
}

// Extend evaluates src in the session scope s, keeping its imports and
// declarations bound in s.
func (r *Resolver) Extend(ctx context.Context, src string, s *lang.Scope) (any, error) {
	p, err := lang.ParseProgram(Anonymous, src)
	if err != nil {
		return nil, err
	}

	if mc := s.Module(); mc != nil {
		mc.Source = src
	}

	return r.eval.Extend(ctx, p, s)
}

// Program returns the parsed module at address, fetching and parsing it if
// needed.
func (r *Resolver) Program(ctx context.Context, address string) (*lang.Program, error) {
	if p, ok := r.modules[address]; ok {
		return p, nil
	}

	p, err := r.parse(ctx, address)
	if err != nil {
		return nil, err
	}

	r.modules[address] = p

	return p, nil
}

// Value implements [lang.Loader]. The first request for address discovers
// the modules it imports, directly or not, and evaluates each of them after
// its own imports.
func (r *Resolver) Value(ctx context.Context, address string) (any, error) {
	if v, ok := r.values[address]; ok {
		return v, nil
	}

	if i := slices.Index(r.active, address); i >= 0 {
		return nil, r.cycle(append(slices.Clone(r.active[i:]), address))
	}

	if err := r.discover(ctx, address); err != nil {
		return nil, err
	}

	order, err := r.schedule(address)
	if err != nil {
		return nil, err
	}

	for _, addr := range order {
		if err := r.evaluate(ctx, addr); err != nil {
			return nil, err
		}
	}

	return r.values[address], nil
}

func (r *Resolver) parse(ctx context.Context, address string) (*lang.Program, error) {
	text, err := r.cache.Fetch(ctx, address)
	if err != nil {
		return nil, err
	}

	return lang.ParseProgram(address, text)
}

// pending is a module found during discovery together with the import that
// named it.
type pending struct {
	address string
	from    string // importing module, empty for the root
	spec    string
	offset  int
	soft    bool // referenced but not imported: failures are deferred
}

// discover parses address and every module reachable from it through
// imports, one breadth-first level at a time with concurrent fetches.
// Module references and load directives are prefetched as well.
func (r *Resolver) discover(ctx context.Context, address string) error {
	seen := map[string]bool{address: true}
	level := []pending{{address: address}}

	for len(level) > 0 {
		progs := make([]*lang.Program, len(level))
		errs := make([]error, len(level))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(r.parallel)

		for i, pd := range level {
			if p, ok := r.modules[pd.address]; ok {
				progs[i] = p

				continue
			}

			g.Go(func() error {
				p, err := r.parse(gctx, pd.address)
				if err != nil && !pd.soft {
					return r.importFailed(pd, err)
				}

				progs[i], errs[i] = p, err

				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return err
		}

		var next []pending

		for i, pd := range level {
			if errs[i] != nil {
				r.logger.DebugContext(ctx, "skipped module reference",
					slog.String("address", pd.address),
					slog.Any("error", errs[i]),
				)

				continue
			}

			p := progs[i]
			r.modules[pd.address] = p

			refs, loads := r.references(p)
			r.deps[pd.address] = nil

			for _, ref := range refs {
				if !ref.soft {
					r.deps[pd.address] = append(r.deps[pd.address], ref.address)
				}

				if !seen[ref.address] {
					seen[ref.address] = true
					next = append(next, ref)
				}
			}

			r.prefetch(ctx, loads)
		}

		level = next
	}

	return nil
}

// references returns the modules p imports or refers to by address, and
// the addresses it loads as text.
func (r *Resolver) references(p *lang.Program) ([]pending, []string) {
	var (
		refs  []pending
		loads []string
	)

	for _, imp := range p.Imports {
		addr, err := r.Resolve(p.Address, imp.Spec)
		if err != nil {
			continue
		}

		refs = append(refs, pending{
			address: addr, from: p.Address, spec: imp.Spec, offset: imp.Offset,
		})
	}

	p.Nodes(func(n lang.Node) bool {
		switch n := n.(type) {
		case *lang.ModuleRef:
			if addr, err := r.Resolve(p.Address, n.Spec); err == nil {
				refs = append(refs, pending{
					address: addr, from: p.Address, spec: n.Spec, offset: n.Pos(), soft: true,
				})
			}

		case *lang.Load:
			if addr, err := r.Resolve(p.Address, n.Spec); err == nil {
				loads = append(loads, addr)
			}
		}

		return true
	})

	return refs, loads
}

// prefetch warms the cache with the given addresses. Failures surface when
// the content is actually used.
func (r *Resolver) prefetch(ctx context.Context, addresses []string) {
	if len(addresses) == 0 {
		return
	}

	var g errgroup.Group

	g.SetLimit(r.parallel)

	for _, addr := range addresses {
		g.Go(func() error {
			if _, err := r.cache.Fetch(ctx, addr); err != nil {
				r.logger.DebugContext(ctx, "prefetch failed",
					slog.String("address", addr),
					slog.Any("error", err),
				)
			}

			return nil
		})
	}

	_ = g.Wait()
}

// importFailed reports a module that could not be fetched or parsed. Syntax
// errors are returned as they are.
func (r *Resolver) importFailed(pd pending, err error) error {
	var syn *lang.SyntaxError
	if errors.As(err, &syn) {
		return err
	}

	se := notLoaded(pd.address, err)

	if p, ok := r.modules[pd.from]; ok {
		se.Push(lang.NewFrame(pd.from, p.Source, pd.offset, pd.spec))
	}

	return se
}

func notLoaded(address string, err error) *lang.SemanticError {
	return &lang.SemanticError{
		Kind:    lang.ModuleNotLoaded,
		Name:    address,
		Message: err.Error(),
		Err:     err,
	}
}

// schedule returns the unevaluated modules reachable from address through
// imports, each after all of its imports. It fails with a circular
// dependency when no remaining module can be evaluated next.
func (r *Resolver) schedule(address string) ([]string, error) {
	var (
		remaining []string
		seen      = make(map[string]bool)
		visit     func(string)
	)

	visit = func(addr string) {
		if seen[addr] {
			return
		}

		seen[addr] = true

		if _, ok := r.values[addr]; ok {
			return
		}

		remaining = append(remaining, addr)

		for _, dep := range r.deps[addr] {
			visit(dep)
		}
	}

	visit(address)

	for _, addr := range remaining {
		if i := slices.Index(r.active, addr); i >= 0 {
			return nil, r.cycle(r.path(address, addr, append(slices.Clone(r.active[i:]), address)))
		}
	}

	var (
		order []string
		done  = make(map[string]bool)
	)

	for len(remaining) > 0 {
		var rest []string

		for _, addr := range remaining {
			ready := true

			for _, dep := range r.deps[addr] {
				if _, ok := r.values[dep]; !ok && !done[dep] {
					ready = false

					break
				}
			}

			if ready {
				order = append(order, addr)
				done[addr] = true
			} else {
				rest = append(rest, addr)
			}
		}

		if len(rest) == len(remaining) {
			return nil, r.cycle(r.findCycle(rest))
		}

		remaining = rest
	}

	return order, nil
}

// path returns the cycle formed by the active chain and the import path
// from address back to the active module target.
func (r *Resolver) path(address, target string, chain []string) []string {
	var (
		route []string
		seen  = make(map[string]bool)
		walk  func(string) bool
	)

	walk = func(addr string) bool {
		if addr == target {
			return true
		}

		if seen[addr] {
			return false
		}

		seen[addr] = true

		for _, dep := range r.deps[addr] {
			if walk(dep) {
				route = append(route, dep)

				return true
			}
		}

		return false
	}

	if !walk(address) {
		return chain
	}

	slices.Reverse(route)

	return append(chain, route...)
}

// findCycle returns a closed import path among the stuck modules, starting
// and ending with the same address.
func (r *Resolver) findCycle(stuck []string) []string {
	blocked := make(map[string]bool, len(stuck))
	for _, addr := range stuck {
		blocked[addr] = true
	}

	var (
		chain []string
		index = make(map[string]int)
	)

	addr := stuck[0]

	for {
		if i, ok := index[addr]; ok {
			return append(chain[i:], addr)
		}

		index[addr] = len(chain)
		chain = append(chain, addr)

		next := ""

		for _, dep := range r.deps[addr] {
			if blocked[dep] {
				next = dep

				break
			}
		}

		if next == "" {
			return chain
		}

		addr = next
	}
}

// cycle returns a circular dependency error for the closed path chain, with
// a frame at each import along the path.
func (r *Resolver) cycle(chain []string) error {
	err := &lang.SemanticError{
		Kind:    lang.CircularDependency,
		Message: strings.Join(chain, " -> "),
	}

	for i := len(chain) - 1; i > 0; i-- {
		from, to := chain[i-1], chain[i]

		p, ok := r.modules[from]
		if !ok {
			continue
		}

		for _, imp := range p.Imports {
			if addr, rerr := r.Resolve(from, imp.Spec); rerr == nil && addr == to {
				err.Push(lang.NewFrame(from, p.Source, imp.Offset, imp.Spec))

				break
			}
		}
	}

	return err
}

func (r *Resolver) evaluate(ctx context.Context, address string) error {
	p, err := r.Program(ctx, address)
	if err != nil {
		return r.importFailed(pending{address: address}, err)
	}

	r.active = append(r.active, address)
	defer func() { r.active = r.active[:len(r.active)-1] }()

	v, err := r.eval.Program(ctx, p, &lang.ModuleContext{
		Loader:  r,
		Address: address,
		Source:  p.Source,
	})
	if err != nil {
		return err
	}

	r.values[address] = v

	r.logger.DebugContext(ctx, "evaluated module",
		slog.String("address", address),
		slog.String("type", lang.TypeOf(v)),
	)

	return nil
}
