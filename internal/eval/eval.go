// Package eval evaluates ast.Expr and ast.Condition nodes against a row
// (the candidate object under a match filter) and a scene.Context
// (accumulated alias bindings), grounded on original_source/tinytalk's
// interpreter.py condition()/expression() functions.
package eval

import (
	"strconv"

	"github.com/tinylanders/tinytalk/internal/ast"
	"github.com/tinylanders/tinytalk/internal/scene"
)

// EvalExpr evaluates e. row is the object under consideration in a match
// condition, or nil when evaluating a consequence expression (where
// there is no row and bare names resolve against ctx instead).
func EvalExpr(e *ast.Expr, row *scene.Object, ctx scene.Context) ast.Value {
	switch e.Kind {
	case ast.LiteralExpr:
		return e.Lit

	case ast.RefExpr:
		return resolveRef(e.Ref, row, ctx)

	case ast.BinaryExpr:
		switch e.Op {
		case "+", "-", "*":
			return evalArith(e.Op, EvalExpr(e.Left, row, ctx), EvalExpr(e.Right, row, ctx))
		case "is", "not", "<", ">":
			return ast.Bool(evalCompare(e.Op, EvalExpr(e.Left, row, ctx), EvalExpr(e.Right, row, ctx)))
		case "and":
			left := EvalExpr(e.Left, row, ctx)
			if !truthy(left) {
				return ast.Bool(false)
			}
			return ast.Bool(truthy(EvalExpr(e.Right, row, ctx)))
		}
	}
	return ast.Undefined
}

// EvalCondition evaluates a match clause's per-attribute condition.
// AnyCondition is handled by the matcher's possession check before this
// is ever called on it, but is accepted here for completeness.
func EvalCondition(c ast.Condition, row *scene.Object, ctx scene.Context) bool {
	if c.Kind == ast.AnyCondition {
		return true
	}
	return truthy(EvalExpr(c.Expr, row, ctx))
}

func truthy(v ast.Value) bool {
	return v.Kind == ast.BoolVal && v.Bool
}

// resolveRef implements the name/path resolution rule: a bare Name
// resolves against row's attrs if row is non-nil, else against ctx; a
// Path always resolves through ctx. An unresolved reference falls back
// to its own textual form, matching the source's `lookup(name, row) or
// name` — load-bearing for bare string literals inside comparisons.
func resolveRef(ref ast.Value, row *scene.Object, ctx scene.Context) ast.Value {
	switch ref.Kind {
	case ast.NameVal:
		if row != nil {
			if v, ok := row.Attrs[ref.Name]; ok {
				return v
			}
		} else if v, ok := ctx.ResolveBareAttr(ref.Name); ok {
			// Consequence expressions have no row: a bare name resolves
			// against the bound objects' own attributes instead, so
			// "create [#vessel id: id]" with no "as" on the triggering
			// clause still sees the matched object's id. Ambiguous
			// across several bound objects, resolution picks the first
			// in binding order — rules that need to disambiguate use an
			// explicit alias.attribute path instead.
			return v
		}
		return ast.Str(ref.Name)

	case ast.PathVal:
		obj, ok := ctx.Get(ref.Alias)
		if !ok {
			return ast.Str(ref.Alias + "." + ref.Attribute)
		}
		if v, ok := obj.Attrs[ref.Attribute]; ok {
			return v
		}
		return ast.Str(ref.Alias + "." + ref.Attribute)

	default:
		return ref
	}
}

func evalArith(op string, l, r ast.Value) ast.Value {
	lf, lok := asNumber(l)
	rf, rok := asNumber(r)
	if !lok || !rok {
		return ast.Undefined
	}
	switch op {
	case "+":
		return ast.Number(lf + rf)
	case "-":
		return ast.Number(lf - rf)
	case "*":
		return ast.Number(lf * rf)
	}
	return ast.Undefined
}

func evalCompare(op string, l, r ast.Value) bool {
	switch op {
	case "is":
		return l.Equal(r)
	case "not":
		return !l.Equal(r)
	case "<", ">":
		lf, lok := asNumber(l)
		rf, rok := asNumber(r)
		if !lok || !rok {
			return false
		}
		if op == "<" {
			return lf < rf
		}
		return lf > rf
	}
	return false
}

// asNumber coerces a Value to a float64 for arithmetic/ordering. Numeric
// strings are accepted so that textual-fallback references (e.g. an
// unresolved bare number-looking name) still compare numerically.
func asNumber(v ast.Value) (float64, bool) {
	switch v.Kind {
	case ast.NumberVal:
		return v.Num, true
	case ast.StrVal:
		f, err := strconv.ParseFloat(v.Str, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
