package scene

import "github.com/tinylanders/tinytalk/internal/ast"

// binding is one alias -> Object pair in a Context.
type binding struct {
	Alias  string
	Object *Object
}

// Context is an ordered alias -> Object mapping, the unit a rule's
// consequences evaluate against. An object may appear at most once
// across a single context (identity deduplication), enforced by
// ContainsIdentity / WithBinding's caller.
type Context struct {
	bindings []binding
	byID     map[string]struct{}
}

// NewContext returns the single empty context match expansion starts
// from.
func NewContext() Context {
	return Context{}
}

// Get looks up alias, returning (nil, false) if unbound.
func (c Context) Get(alias string) (*Object, bool) {
	for _, b := range c.bindings {
		if b.Alias == alias {
			return b.Object, true
		}
	}
	return nil, false
}

// ContainsIdentity reports whether obj is already bound to any alias in
// this context.
func (c Context) ContainsIdentity(obj *Object) bool {
	_, ok := c.byID[obj.ID]
	return ok
}

// WithBinding returns a new Context extending c with obj bound under
// every alias in aliases (pronoun equivalence: one object, many keys).
// If aliases is empty the object is bound under no name but still
// counts toward identity dedup and the trigger-id set.
func (c Context) WithBinding(aliases []string, obj *Object) Context {
	next := Context{
		bindings: make([]binding, len(c.bindings), len(c.bindings)+len(aliases)+1),
		byID:     make(map[string]struct{}, len(c.byID)+1),
	}
	copy(next.bindings, c.bindings)
	for id := range c.byID {
		next.byID[id] = struct{}{}
	}

	if len(aliases) == 0 {
		next.bindings = append(next.bindings, binding{Object: obj})
	}
	for _, alias := range aliases {
		next.bindings = append(next.bindings, binding{Alias: alias, Object: obj})
	}
	next.byID[obj.ID] = struct{}{}

	return next
}

// ResolveBareAttr looks up name as an attribute of any object bound in
// this context, trying each distinct object in binding order and
// returning the first match. This is how a consequence expression's
// bare (unaliased) names see the matched row's own attributes when the
// triggering match clause carried no "as" alias: the clause's object is
// still bound in the context (under its tag names), so its attrs are
// still reachable by name.
func (c Context) ResolveBareAttr(name string) (ast.Value, bool) {
	for _, obj := range c.Objects() {
		if v, ok := obj.Attrs[name]; ok {
			return v, true
		}
	}
	return ast.Value{}, false
}

// Objects returns every distinct object bound in this context, in
// binding order, with duplicate aliases of the same object collapsed.
func (c Context) Objects() []*Object {
	seen := make(map[string]struct{}, len(c.bindings))
	out := make([]*Object, 0, len(c.bindings))
	for _, b := range c.bindings {
		if _, ok := seen[b.Object.ID]; ok {
			continue
		}
		seen[b.Object.ID] = struct{}{}
		out = append(out, b.Object)
	}
	return out
}
