// Package rule expands a rule's premise into the set of contexts it
// matches and applies its consequences to a scene.Scene, grounded on
// original_source/tinytalk's interpreter.py run()/create_from_json()/
// update_from_json().
package rule

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/tinylanders/tinytalk/internal/ast"
	"github.com/tinylanders/tinytalk/internal/eval"
	"github.com/tinylanders/tinytalk/internal/match"
	"github.com/tinylanders/tinytalk/internal/scene"
)

// RuleError reports a failure evaluating or applying a rule.
type RuleError struct {
	Kind    string
	Message string
}

func (e RuleError) Error() string { return e.Kind + ": " + e.Message }

// AffectedKind distinguishes a create from an update for the reactive
// loop, which indexes the two separately (create_triggers vs
// update_triggers).
type AffectedKind int

const (
	Created AffectedKind = iota
	Updated
)

// Affected records one object a consequence created or updated, for the
// reactive loop to re-trigger on.
type Affected struct {
	Kind AffectedKind
	ID   string
	Tags []string
}

// Execute runs one rule against sc. triggerID, when non-empty, restricts
// execution to contexts that include the triggering object; an empty
// triggerID runs every surviving context (used for a rule's initial
// load-time pass, if a host chooses one).
func Execute(r *ast.Rule, triggerID string, sc *scene.Scene) ([]Affected, error) {
	contexts, skip := expand(r.Premise, sc)
	if skip {
		return nil, nil
	}

	if triggerID != "" {
		filtered := contexts[:0]
		for _, ctx := range contexts {
			if boundIdentity(ctx, triggerID) {
				filtered = append(filtered, ctx)
			}
		}
		contexts = filtered
	}

	var affected []Affected
	for _, ctx := range contexts {
		for _, cons := range r.Consequents {
			a, err := apply(cons, ctx, sc)
			if err != nil {
				// An unbound update alias or a missing object on update is
				// a runtime fault in this one consequence, not the whole
				// rule: it is skipped and the remaining consequences (and
				// remaining contexts) still run, so mutations already
				// applied earlier in this call are never discarded.
				slog.Default().Warn("consequence skipped", "error", err)
				continue
			}
			affected = append(affected, a)
		}
	}
	return affected, nil
}

// expand produces every context the premise yields, in deterministic
// order. The second return value reports whether the whole rule
// application should be skipped outright — the `one` adjective's
// "exactly one match or skip" semantics, which applies to the clause's
// role in the rule rather than to its candidate set alone.
func expand(premise []ast.MatchClause, sc *scene.Scene) ([]scene.Context, bool) {
	contexts := []scene.Context{scene.NewContext()}

	for _, clause := range premise {
		// A clause with no "as" binds its object under its own tag names,
		// so "when [#paddle x] update paddle [...]" can name it.
		aliases := clause.Aliases
		if len(aliases) == 0 {
			aliases = clause.Tags
		}

		var next []scene.Context
		for _, ctx := range contexts {
			// Candidates depend on ctx: attribute conditions may carry
			// alias.attr paths resolved against the bindings
			// accumulated so far.
			candidates := match.Candidates(clause, ctx, sc)
			if hasOne(clause.Adjectives) && len(candidates) != 1 {
				return nil, true
			}
			for _, obj := range candidates {
				if ctx.ContainsIdentity(obj) {
					continue
				}
				next = append(next, ctx.WithBinding(aliases, obj))
			}
		}
		contexts = next
		if len(contexts) == 0 {
			return nil, false
		}
	}

	return contexts, false
}

func hasOne(adjectives []ast.Adjective) bool {
	for _, a := range adjectives {
		if a == ast.AdjOne {
			return true
		}
	}
	return false
}

func boundIdentity(ctx scene.Context, id string) bool {
	for _, obj := range ctx.Objects() {
		if obj.ID == id {
			return true
		}
	}
	return false
}

func apply(cons ast.Consequence, ctx scene.Context, sc *scene.Scene) (Affected, error) {
	switch cons.Kind {
	case ast.CreateConsequence:
		return applyCreate(cons, ctx, sc)
	case ast.UpdateConsequence:
		return applyUpdate(cons, ctx, sc)
	default:
		return Affected{}, RuleError{Kind: "InvalidConsequence", Message: "unknown consequence kind"}
	}
}

func applyCreate(cons ast.Consequence, ctx scene.Context, sc *scene.Scene) (Affected, error) {
	attrs := evalAttrs(cons.Attrs, ctx)

	id := uuid.New().String()
	obj := sc.Create(id, cons.CreateTags, attrs)

	// The relation back-ref records the ids of every object bound in
	// the triggering context, under Object.RelatedIDs rather than a
	// generic attribute, since ast.Value has no list variant — the
	// attribute bag holds scalars only.
	if cons.Relation {
		related := make([]string, 0, len(ctx.Objects()))
		for _, o := range ctx.Objects() {
			related = append(related, o.ID)
		}
		obj.RelatedIDs = related
	}

	return Affected{Kind: Created, ID: obj.ID, Tags: cons.CreateTags}, nil
}

func applyUpdate(cons ast.Consequence, ctx scene.Context, sc *scene.Scene) (Affected, error) {
	target, ok := ctx.Get(cons.Alias)
	if !ok {
		return Affected{}, RuleError{Kind: "UnboundAlias", Message: "update alias not bound in context: " + cons.Alias}
	}

	patch := evalAttrs(cons.Attrs, ctx)
	updated, err := sc.Update(target.ID, patch)
	if err != nil {
		return Affected{}, err
	}

	tags := make([]string, 0, len(updated.Tags))
	for t := range updated.Tags {
		tags = append(tags, t)
	}
	return Affected{Kind: Updated, ID: updated.ID, Tags: tags}, nil
}

// evalAttrs evaluates every consequence expression with no row (there
// is none in a consequence), against ctx.
func evalAttrs(exprs map[string]*ast.Expr, ctx scene.Context) map[string]ast.Value {
	attrs := make(map[string]ast.Value, len(exprs))
	for name, expr := range exprs {
		attrs[name] = eval.EvalExpr(expr, nil, ctx)
	}
	return attrs
}
