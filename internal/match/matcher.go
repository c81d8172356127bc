// Package match implements the fixed five-stage filtering pipeline a
// single ast.MatchClause runs against a scene.Scene, grounded on
// original_source/tinytalk's interpreter.py match() function.
package match

import (
	"github.com/tinylanders/tinytalk/internal/ast"
	"github.com/tinylanders/tinytalk/internal/eval"
	"github.com/tinylanders/tinytalk/internal/scene"
)

// Candidates returns every object in sc that passes clause's filters,
// in the scene's deterministic iteration order. It does not perform
// identity deduplication against ctx — that is the rule executor's job
// (it needs to know which alias a surviving candidate binds to), so the
// same object may appear here even if it is already bound elsewhere in
// ctx.
func Candidates(clause ast.MatchClause, ctx scene.Context, sc *scene.Scene) []*scene.Object {
	candidates := filterByTags(clause.Tags, sc.Iter())
	candidates = applyAdjectives(clause.Adjectives, candidates)
	// The relation ("friend") filter is declared by the grammar but, per
	// the source, never implemented semantically: it passes every
	// candidate through unchanged.
	candidates = filterByAttrs(clause.Attrs, candidates, ctx)
	return candidates
}

// filterByTags keeps objects whose tag set equals tags exactly (not a
// subset). An object with no tags at all never matches a clause that
// names any.
func filterByTags(tags []string, objects []*scene.Object) []*scene.Object {
	want := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		want[t] = struct{}{}
	}

	out := make([]*scene.Object, 0, len(objects))
	for _, o := range objects {
		got := o.TagSet()
		if len(got) != len(want) {
			continue
		}
		match := true
		for t := range want {
			if _, ok := got[t]; !ok {
				match = false
				break
			}
		}
		if match {
			out = append(out, o)
		}
	}
	return out
}

// applyAdjectives runs each adjective's set-to-set predicate over
// candidates in order.
func applyAdjectives(adjectives []ast.Adjective, candidates []*scene.Object) []*scene.Object {
	for _, adj := range adjectives {
		switch adj {
		case ast.AdjOnly:
			if len(candidates) != 1 {
				return nil
			}
		case ast.AdjOne, ast.AdjGlobal:
			// Reserved: no-op at the matcher level. AdjOne's
			// "exactly one match or skip the whole rule" semantics
			// are enforced one layer up, by the rule executor, since
			// they apply to the clause's role in the rule rather
			// than to its candidate set in isolation.
		}
	}
	return candidates
}

// filterByAttrs keeps candidates that possess every named attribute and
// satisfy its condition. A bare name inside the condition resolves
// against the candidate itself (the "row"); an alias.attr path resolves
// through ctx.
func filterByAttrs(attrs map[string]ast.Condition, candidates []*scene.Object, ctx scene.Context) []*scene.Object {
	if len(attrs) == 0 {
		return candidates
	}

	out := make([]*scene.Object, 0, len(candidates))
	for _, o := range candidates {
		ok := true
		for name, cond := range attrs {
			if _, present := o.Attrs[name]; !present {
				ok = false
				break
			}
			if !eval.EvalCondition(cond, o, ctx) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, o)
		}
	}
	return out
}
