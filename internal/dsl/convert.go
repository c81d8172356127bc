package dsl

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tinylanders/tinytalk/internal/ast"
)

// validName matches the "name" production: lowercase letters with - and
// _, with no further structure (paths are a distinct token).
var validName = regexp.MustCompile(`^[a-z][a-z_-]*$`)

var reservedNames = map[string]bool{
	"as": true, "where": true, "true": true, "false": true,
}

func validateName(name, kind string) error {
	if !validName.MatchString(name) {
		return SyntaxError{
			Kind:    "InvalidIdentifier",
			Message: fmt.Sprintf("%s %q is not a valid name", kind, name),
		}
	}
	if reservedNames[name] {
		return SyntaxError{
			Kind:    "ReservedWord",
			Message: fmt.Sprintf("%q is a reserved word and cannot be used as a %s", name, kind),
		}
	}
	return nil
}

// convertApp lowers a parsed AppAST into a Rule. source is the exact
// input text, kept on the result for diagnostics.
func convertApp(app *AppAST, source string) (*ast.Rule, error) {
	premise := make([]ast.MatchClause, 0, len(app.Matches))
	for _, m := range app.Matches {
		clause, err := convertMatch(m)
		if err != nil {
			return nil, err
		}
		premise = append(premise, clause)
	}

	consequents := make([]ast.Consequence, 0, len(app.Writes))
	for _, w := range app.Writes {
		cons, err := convertWrite(w)
		if err != nil {
			return nil, err
		}
		consequents = append(consequents, cons)
	}

	return &ast.Rule{Premise: premise, Consequents: consequents, Source: source}, nil
}

func convertMatch(m *MatchAST) (ast.MatchClause, error) {
	clause := ast.MatchClause{Relation: m.Relation}

	for _, adj := range m.Adjectives {
		clause.Adjectives = append(clause.Adjectives, ast.Adjective(adj))
	}

	for _, t := range m.Tags {
		if err := validateName(t.Name, "tag"); err != nil {
			return ast.MatchClause{}, err
		}
		clause.Tags = append(clause.Tags, t.Name)
	}

	if len(m.Conds) > 0 {
		clause.Attrs = make(map[string]ast.Condition, len(m.Conds))
		for _, c := range m.Conds {
			if err := validateName(c.Name, "attribute"); err != nil {
				return ast.MatchClause{}, err
			}

			switch {
			case c.Where != nil:
				expr, err := convertExpr(c.Where)
				if err != nil {
					return ast.MatchClause{}, err
				}
				clause.Attrs[c.Name] = ast.Cond(expr)

			case c.Value != nil:
				// A colon-valued datum is not used in match bodies per
				// the grammar, but is accepted here and lowered to an
				// equality condition against the given expression.
				expr, err := convertExpr(c.Value)
				if err != nil {
					return ast.MatchClause{}, err
				}
				clause.Attrs[c.Name] = ast.Cond(ast.Binary("is", ast.Ref(ast.Name(c.Name)), expr))

			default:
				clause.Attrs[c.Name] = ast.CondAny
			}
		}
	}

	if m.Alias != nil {
		for _, name := range m.Alias.Names {
			if err := validateName(name, "alias"); err != nil {
				return ast.MatchClause{}, err
			}
			clause.Aliases = append(clause.Aliases, name)
		}
	}

	return clause, nil
}

func convertWrite(w *WriteAST) (ast.Consequence, error) {
	if w.Create != nil {
		return convertCreate(w.Create)
	}
	return convertUpdate(w.Update)
}

func convertCreate(c *CreateAST) (ast.Consequence, error) {
	cons := ast.Consequence{Kind: ast.CreateConsequence, Relation: c.Relation}

	for _, t := range c.Tags {
		if err := validateName(t.Name, "tag"); err != nil {
			return ast.Consequence{}, err
		}
		cons.CreateTags = append(cons.CreateTags, t.Name)
	}

	attrs, err := convertData(c.Data)
	if err != nil {
		return ast.Consequence{}, err
	}
	cons.Attrs = attrs

	return cons, nil
}

func convertUpdate(u *UpdateAST) (ast.Consequence, error) {
	if err := validateName(u.Alias, "alias"); err != nil {
		return ast.Consequence{}, err
	}

	attrs, err := convertData(u.Data)
	if err != nil {
		return ast.Consequence{}, err
	}

	return ast.Consequence{Kind: ast.UpdateConsequence, Alias: u.Alias, Attrs: attrs}, nil
}

func convertData(data []*DatumAST) (map[string]*ast.Expr, error) {
	if len(data) == 0 {
		return nil, nil
	}

	attrs := make(map[string]*ast.Expr, len(data))
	for _, d := range data {
		if err := validateName(d.Name, "attribute"); err != nil {
			return nil, err
		}

		if d.Value != nil {
			expr, err := convertExpr(d.Value)
			if err != nil {
				return nil, err
			}
			attrs[d.Name] = expr
			continue
		}

		// A bare datum with no value lowers to the wildcard literal,
		// same as a valueless datum in a match clause — the grammar's
		// datum production is shared between match and write bodies,
		// and the source leaves this case unexercised in practice
		// (every create/update in the example programs uses "name:
		// expr").
		attrs[d.Name] = ast.Literal(ast.Wildcard)
	}

	return attrs, nil
}

func convertExpr(e *ExprAST) (*ast.Expr, error) {
	left, err := convertAdditive(e.Left)
	if err != nil {
		return nil, err
	}
	if len(e.Ops) == 0 {
		return left, nil
	}

	prev := left
	var result *ast.Expr
	for _, tail := range e.Ops {
		right, err := convertAdditive(tail.Right)
		if err != nil {
			return nil, err
		}
		cmp := ast.Binary(tail.Op, prev, right)
		if result == nil {
			result = cmp
		} else {
			result = ast.Binary("and", result, cmp)
		}
		prev = right
	}
	return result, nil
}

func convertAdditive(a *AdditiveAST) (*ast.Expr, error) {
	left, err := convertMultiplicative(a.Left)
	if err != nil {
		return nil, err
	}
	for _, tail := range a.Ops {
		right, err := convertMultiplicative(tail.Right)
		if err != nil {
			return nil, err
		}
		left = ast.Binary(tail.Op, left, right)
	}
	return left, nil
}

func convertMultiplicative(m *MultiplicativeAST) (*ast.Expr, error) {
	left, err := convertPrimary(m.Left)
	if err != nil {
		return nil, err
	}
	for _, tail := range m.Ops {
		right, err := convertPrimary(tail.Right)
		if err != nil {
			return nil, err
		}
		left = ast.Binary(tail.Op, left, right)
	}
	return left, nil
}

func convertPrimary(p *PrimaryAST) (*ast.Expr, error) {
	switch {
	case p.Number != nil:
		return ast.Literal(ast.Number(*p.Number)), nil
	case p.Str != nil:
		return ast.Literal(ast.Str(*p.Str)), nil
	case p.True:
		return ast.Literal(ast.Bool(true)), nil
	case p.False:
		return ast.Literal(ast.Bool(false)), nil
	case p.Path != nil:
		alias, attr, ok := strings.Cut(*p.Path, ".")
		if !ok {
			return nil, SyntaxError{Kind: "InvalidPath", Message: fmt.Sprintf("malformed path %q", *p.Path)}
		}
		return ast.Ref(ast.Path(alias, attr)), nil
	case p.Name != nil:
		if err := validateName(*p.Name, "name"); err != nil {
			return nil, err
		}
		return ast.Ref(ast.Name(*p.Name)), nil
	case p.Sub != nil:
		return convertExpr(p.Sub)
	case p.Neg != nil:
		inner, err := convertPrimary(p.Neg)
		if err != nil {
			return nil, err
		}
		// Fold a negated number literal back into a single literal (as
		// the old sign-in-token lexing produced) rather than a
		// subtraction-from-zero, so "-5" and "5" negated are structurally
		// identical ast.Expr values. Anything else (a name, a path, a
		// parenthesized expression) lowers to 0 - inner.
		if inner.Kind == ast.LiteralExpr && inner.Lit.Kind == ast.NumberVal {
			return ast.Literal(ast.Number(-inner.Lit.Num)), nil
		}
		return ast.Binary("-", ast.Literal(ast.Number(0)), inner), nil
	default:
		return nil, SyntaxError{Kind: "InvalidExpr", Message: "empty expression"}
	}
}
