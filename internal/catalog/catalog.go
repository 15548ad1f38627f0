package catalog

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/roach88/linql/internal/ast"
	"github.com/roach88/linql/internal/qerr"
)

// Definition is a named entry in a namespace: either a concrete type or
// an open generic awaiting arguments.
type Definition struct {
	name    string
	typ     *Type
	generic *genericDef
}

// Name returns the registered name.
func (d *Definition) Name() string { return d.name }

// Type returns the concrete type, nil for generic definitions.
func (d *Definition) Type() *Type { return d.typ }

// Arity returns the number of generic parameters, 0 for concrete types.
func (d *Definition) Arity() int {
	if d.generic != nil {
		return d.generic.arity
	}
	return 0
}

// Namespace is an ordered group of type definitions.
type Namespace struct {
	name  string
	defs  map[string]*Definition
	order []string
}

// NewNamespace creates an empty namespace.
func NewNamespace(name string) *Namespace {
	return &Namespace{name: name, defs: make(map[string]*Definition)}
}

// Name returns the namespace name.
func (n *Namespace) Name() string { return n.name }

// Define registers a concrete type under its own name.
func (n *Namespace) Define(t *Type) error {
	if t == nil {
		return fmt.Errorf("namespace %s: nil type", n.name)
	}
	if t.kind != KindObject {
		return fmt.Errorf("namespace %s: only object types can be defined, got %s", n.name, t.kind)
	}
	if t.namespace != "" && t.namespace != n.name {
		return fmt.Errorf("namespace %s: type %s already belongs to %s", n.name, t.name, t.namespace)
	}
	if err := n.define(&Definition{name: t.name, typ: t}); err != nil {
		return err
	}
	t.namespace = n.name
	return nil
}

func (n *Namespace) define(d *Definition) error {
	if d.name == "" || strings.ContainsAny(d.name, "<>,`.") {
		return fmt.Errorf("namespace %s: invalid type name %q", n.name, d.name)
	}
	if _, exists := n.defs[d.name]; exists {
		return fmt.Errorf("namespace %s: duplicate type %q", n.name, d.name)
	}
	n.defs[d.name] = d
	n.order = append(n.order, d.name)
	return nil
}

func (n *Namespace) mustDefine(d *Definition) {
	if err := n.define(d); err != nil {
		panic(err)
	}
}

// Lookup finds a definition by simple name.
func (n *Namespace) Lookup(name string) (*Definition, bool) {
	d, ok := n.defs[name]
	return d, ok
}

// Names lists definitions in registration order.
func (n *Namespace) Names() []string {
	out := make([]string, len(n.order))
	copy(out, n.order)
	return out
}

// Catalog resolves wire type descriptors to concrete types. It searches
// the System namespace first, then user namespaces in registration
// order; the first namespace holding a name wins.
//
// A Catalog is read-only after construction and safe for concurrent use.
type Catalog struct {
	namespaces []*Namespace
	logger     *slog.Logger
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithLogger sets the logger used for resolution diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *Catalog) { c.logger = l }
}

// New builds a catalog over the given namespaces.
func New(namespaces []*Namespace, opts ...Option) *Catalog {
	c := &Catalog{
		namespaces: append([]*Namespace{System()}, namespaces...),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Namespaces returns the search order.
func (c *Catalog) Namespaces() []*Namespace {
	out := make([]*Namespace, len(c.namespaces))
	copy(out, c.namespaces)
	return out
}

// Resolve maps a type descriptor to a concrete type.
//
// Names may be simple ("DataModel"), qualified by namespace
// ("Models.DataModel") and may carry a CLR-style arity suffix
// ("List`1"). Generic definitions require exactly as many
// GenericParameters as their arity.
func (c *Catalog) Resolve(ref *ast.TypeRef) (*Type, error) {
	if ref == nil {
		return nil, qerr.New(qerr.CodeTypeResolution, "missing type descriptor")
	}
	return c.resolve(fromTypeRef(ref))
}

// ResolveName resolves a type expression such as "List<Int32>",
// "Models.DataModel" or "Int32?". A trailing "?" lifts value types to
// Nullable and is a no-op on reference types.
func (c *Catalog) ResolveName(expr string) (*Type, error) {
	te, err := ParseTypeExpr(expr)
	if err != nil {
		return nil, qerr.Wrap(qerr.CodeTypeResolution, err, "invalid type expression %q", expr)
	}
	return c.resolve(te)
}

// MaxGenericDepth bounds how deeply generic arguments may nest in a type
// descriptor. Instantiations are memoized process-wide, so the bound also
// caps what one descriptor can add to the memo.
const MaxGenericDepth = 16

func (c *Catalog) resolve(te *TypeExpr) (*Type, error) {
	return c.resolveAt(te, 0)
}

func (c *Catalog) resolveAt(te *TypeExpr, depth int) (*Type, error) {
	if depth > MaxGenericDepth {
		return nil, qerr.New(qerr.CodeTypeResolution,
			"generic parameters nest deeper than %d", MaxGenericDepth)
	}
	name, suffixArity, err := splitArity(te.Name)
	if err != nil {
		return nil, qerr.Wrap(qerr.CodeTypeResolution, err, "invalid type name %q", te.Name)
	}

	def, err := c.lookup(name)
	if err != nil {
		return nil, err
	}

	if suffixArity >= 0 && suffixArity != def.Arity() {
		return nil, qerr.New(qerr.CodeTypeResolution,
			"type %q has arity %d but name declares %d", def.name, def.Arity(), suffixArity)
	}
	if len(te.Args) != def.Arity() {
		return nil, qerr.New(qerr.CodeTypeResolution,
			"type %q requires %d generic parameter(s), got %d", def.name, def.Arity(), len(te.Args))
	}

	t := def.typ
	if def.generic != nil {
		args := make([]*Type, len(te.Args))
		for i, a := range te.Args {
			arg, err := c.resolveAt(a, depth+1)
			if err != nil {
				return nil, err
			}
			args[i] = arg
		}
		t, err = instantiate(def.generic, args)
		if err != nil {
			return nil, qerr.Wrap(qerr.CodeTypeResolution, err, "cannot instantiate %s", te)
		}
	}
	if te.Nullable {
		t = Lift(t)
	}
	return t, nil
}

func (c *Catalog) lookup(name string) (*Definition, error) {
	if ns, simple, ok := c.qualified(name); ok {
		if def, found := ns.Lookup(simple); found {
			return def, nil
		}
		return nil, c.notFound(name, ns.Names())
	}

	for _, ns := range c.namespaces {
		if def, ok := ns.Lookup(name); ok {
			c.logger.Debug("type resolved", "name", name, "namespace", ns.name)
			return def, nil
		}
	}

	var all []string
	for _, ns := range c.namespaces {
		all = append(all, ns.Names()...)
	}
	return nil, c.notFound(name, all)
}

// qualified splits "Ns.Name" when the prefix names a registered namespace.
func (c *Catalog) qualified(name string) (*Namespace, string, bool) {
	i := strings.LastIndexByte(name, '.')
	if i <= 0 {
		return nil, "", false
	}
	prefix := name[:i]
	for _, ns := range c.namespaces {
		if ns.name == prefix {
			return ns, name[i+1:], true
		}
	}
	return nil, "", false
}

func (c *Catalog) notFound(name string, candidates []string) error {
	return qerr.New(qerr.CodeTypeResolution, "unknown type %q", name).
		WithSuggestion(qerr.Suggest(name, candidates))
}

// splitArity strips a trailing "`N" suffix. Returns -1 when absent.
func splitArity(name string) (string, int, error) {
	if name == "" {
		return "", 0, fmt.Errorf("empty type name")
	}
	i := strings.IndexByte(name, '`')
	if i < 0 {
		return name, -1, nil
	}
	n, err := strconv.Atoi(name[i+1:])
	if err != nil || n < 0 {
		return "", 0, fmt.Errorf("bad arity suffix %q", name[i:])
	}
	return name[:i], n, nil
}
