package dsl

import (
	"strings"
	"testing"

	"github.com/tinylanders/tinytalk/internal/ast"
)

func mustParse(t *testing.T, src string) *ast.Rule {
	t.Helper()
	p, err := NewParser()
	if err != nil {
		t.Fatalf("NewParser failed: %v", err)
	}
	rule, err := p.ParseRule(src)
	if err != nil {
		t.Fatalf("ParseRule(%q) failed: %v", src, err)
	}
	return rule
}

func TestParser_MarkerToVessel(t *testing.T) {
	rule := mustParse(t, `when [#aruco id x y] create [#vessel id: id, x: x, y: y]`)

	if len(rule.Premise) != 1 {
		t.Fatalf("expected 1 premise clause, got %d", len(rule.Premise))
	}
	clause := rule.Premise[0]
	if len(clause.Tags) != 1 || clause.Tags[0] != "aruco" {
		t.Errorf("expected tags [aruco], got %v", clause.Tags)
	}
	for _, name := range []string{"id", "x", "y"} {
		cond, ok := clause.Attrs[name]
		if !ok || cond.Kind != ast.AnyCondition {
			t.Errorf("expected bare wildcard condition for %q, got %+v", name, cond)
		}
	}

	if len(rule.Consequents) != 1 {
		t.Fatalf("expected 1 consequence, got %d", len(rule.Consequents))
	}
	cons := rule.Consequents[0]
	if cons.Kind != ast.CreateConsequence {
		t.Fatalf("expected Create consequence, got %v", cons.Kind)
	}
	if len(cons.CreateTags) != 1 || cons.CreateTags[0] != "vessel" {
		t.Errorf("expected create tags [vessel], got %v", cons.CreateTags)
	}
	if len(cons.Attrs) != 3 {
		t.Errorf("expected 3 create attrs, got %d", len(cons.Attrs))
	}
}

func TestParser_ConditionalInRange(t *testing.T) {
	rule := mustParse(t, `when [#paddle x where 0 < x < 100, y] update paddle [x: x]`)

	clause := rule.Premise[0]
	cond, ok := clause.Attrs["x"]
	if !ok || cond.Kind != ast.ExprCondition {
		t.Fatalf("expected an expr condition on x, got %+v", cond)
	}

	// a < b < c lowers to And(Cmp(<, a, b), Cmp(<, b, c))
	expr := cond.Expr
	if expr.Kind != ast.BinaryExpr || expr.Op != "and" {
		t.Fatalf("expected top-level And, got kind=%v op=%q", expr.Kind, expr.Op)
	}
	left, right := expr.Left, expr.Right
	if left.Op != "<" || right.Op != "<" {
		t.Fatalf("expected nested < comparisons, got %q and %q", left.Op, right.Op)
	}
	if left.Right.Ref.Name != "x" || right.Left.Ref.Name != "x" {
		t.Fatalf("expected the middle operand x repeated, got %+v / %+v", left.Right, right.Left)
	}

	yCond := clause.Attrs["y"]
	if yCond.Kind != ast.AnyCondition {
		t.Errorf("expected bare wildcard for y, got %+v", yCond)
	}

	if rule.Consequents[0].Kind != ast.UpdateConsequence || rule.Consequents[0].Alias != "paddle" {
		t.Errorf("expected Update on alias paddle, got %+v", rule.Consequents[0])
	}
}

func TestParser_SwapCoordinates(t *testing.T) {
	rule := mustParse(t, `when [#marker x y] as m create [#ball x: m.y, y: m.x]`)

	clause := rule.Premise[0]
	if len(clause.Aliases) != 1 || clause.Aliases[0] != "m" {
		t.Fatalf("expected alias [m], got %v", clause.Aliases)
	}

	cons := rule.Consequents[0]
	xExpr := cons.Attrs["x"]
	if xExpr.Kind != ast.RefExpr || xExpr.Ref.Kind != ast.PathVal || xExpr.Ref.Alias != "m" || xExpr.Ref.Attribute != "y" {
		t.Errorf("expected x: m.y, got %+v", xExpr)
	}
	yExpr := cons.Attrs["y"]
	if yExpr.Ref.Attribute != "x" {
		t.Errorf("expected y: m.x, got %+v", yExpr)
	}
}

func TestParser_PronounAliases(t *testing.T) {
	rule := mustParse(t, `when [#paddle y] as me/my; friend [#aruco y] as tag/its update my [y: its.y]`)

	if len(rule.Premise) != 2 {
		t.Fatalf("expected 2 premise clauses, got %d", len(rule.Premise))
	}
	first := rule.Premise[0]
	if len(first.Aliases) != 2 || first.Aliases[0] != "me" || first.Aliases[1] != "my" {
		t.Errorf("expected aliases [me my], got %v", first.Aliases)
	}

	second := rule.Premise[1]
	if !second.Relation {
		t.Errorf("expected friend relation set on second clause")
	}
	if len(second.Aliases) != 2 || second.Aliases[0] != "tag" || second.Aliases[1] != "its" {
		t.Errorf("expected aliases [tag its], got %v", second.Aliases)
	}

	cons := rule.Consequents[0]
	if cons.Kind != ast.UpdateConsequence || cons.Alias != "my" {
		t.Fatalf("expected update on alias my, got %+v", cons)
	}
}

func TestParser_OnlyAdjective(t *testing.T) {
	rule := mustParse(t, `when only [#hero x] update hero [x: x]`)

	clause := rule.Premise[0]
	if len(clause.Adjectives) != 1 || clause.Adjectives[0] != ast.AdjOnly {
		t.Errorf("expected adjectives [only], got %v", clause.Adjectives)
	}
}

func TestParser_MultiTagMatch(t *testing.T) {
	rule := mustParse(t, `when [#a #b x] create [#c x: x]`)
	if len(rule.Premise[0].Tags) != 2 {
		t.Fatalf("expected 2 tags, got %v", rule.Premise[0].Tags)
	}
}

func TestParser_BareDatumInCreateIsWildcard(t *testing.T) {
	rule := mustParse(t, `when [#aruco id] create [#vessel id]`)
	cons := rule.Consequents[0]
	expr := cons.Attrs["id"]
	if expr.Kind != ast.LiteralExpr || expr.Lit.Kind != ast.WildcardVal {
		t.Errorf("expected a bare datum to lower to the wildcard literal, got %+v", expr)
	}
}

func TestParser_ArithmeticLeftToRight(t *testing.T) {
	rule := mustParse(t, `when [#a x] create [#b v: x - 10 + 1]`)
	expr := rule.Consequents[0].Attrs["v"]
	if expr.Kind != ast.BinaryExpr || expr.Op != "+" {
		t.Fatalf("expected top-level +, got %+v", expr)
	}
	if expr.Left.Op != "-" {
		t.Fatalf("expected left-to-right grouping ((x - 10) + 1), got left op %q", expr.Left.Op)
	}
}

func TestParser_NegativeLiteralAfterMultiply(t *testing.T) {
	rule := mustParse(t, `when [#ball vx] update ball [vx: vx * -1]`)
	expr := rule.Consequents[0].Attrs["vx"]
	if expr.Kind != ast.BinaryExpr || expr.Op != "*" {
		t.Fatalf("expected top-level *, got %+v", expr)
	}
	if expr.Right.Kind != ast.LiteralExpr || expr.Right.Lit.Num != -1 {
		t.Errorf("expected right operand literal -1, got %+v", expr.Right)
	}
}

func TestParser_SubtractionWithoutSpaces(t *testing.T) {
	rule := mustParse(t, `when [#a x] create [#b v: x-10]`)
	expr := rule.Consequents[0].Attrs["v"]
	if expr.Kind != ast.BinaryExpr || expr.Op != "-" {
		t.Fatalf("expected a binary subtraction, got %+v", expr)
	}
	if expr.Left.Kind != ast.RefExpr || expr.Left.Ref.Name != "x" {
		t.Errorf("expected left operand x, got %+v", expr.Left)
	}
	if expr.Right.Kind != ast.LiteralExpr || expr.Right.Lit.Num != 10 {
		t.Errorf("expected right operand literal 10, got %+v", expr.Right)
	}
}

func TestParser_LeadingNegativeLiteral(t *testing.T) {
	rule := mustParse(t, `when [#a] create [#b v: -5]`)
	expr := rule.Consequents[0].Attrs["v"]
	if expr.Kind != ast.LiteralExpr || expr.Lit.Num != -5 {
		t.Errorf("expected a literal -5, got %+v", expr)
	}
}

func TestParser_NegatedParenthesizedExpr(t *testing.T) {
	rule := mustParse(t, `when [#a x] create [#b v: -(x + 1)]`)
	expr := rule.Consequents[0].Attrs["v"]
	if expr.Kind != ast.BinaryExpr || expr.Op != "-" {
		t.Fatalf("expected negation to lower to a subtraction from 0, got %+v", expr)
	}
	if expr.Left.Kind != ast.LiteralExpr || expr.Left.Lit.Num != 0 {
		t.Errorf("expected left operand literal 0, got %+v", expr.Left)
	}
	if expr.Right.Kind != ast.BinaryExpr || expr.Right.Op != "+" {
		t.Errorf("expected right operand (x + 1), got %+v", expr.Right)
	}
}

func TestParser_Parenthesized(t *testing.T) {
	rule := mustParse(t, `when [#a x] create [#b v: (x + 1) * 2]`)
	expr := rule.Consequents[0].Attrs["v"]
	if expr.Kind != ast.BinaryExpr || expr.Op != "*" {
		t.Fatalf("expected top-level *, got %+v", expr)
	}
	if expr.Left.Op != "+" {
		t.Fatalf("expected parenthesized + on the left, got %+v", expr.Left)
	}
}

func TestParser_StringAndBoolLiterals(t *testing.T) {
	rule := mustParse(t, `when [#a] create [#b s: "hello", flag: true, other: false]`)
	cons := rule.Consequents[0]
	if cons.Attrs["s"].Lit.Str != `"hello"` {
		t.Errorf("expected string literal to retain quotes, got %q", cons.Attrs["s"].Lit.Str)
	}
	if cons.Attrs["flag"].Lit.Bool != true {
		t.Errorf("expected flag true")
	}
	if cons.Attrs["other"].Lit.Bool != false {
		t.Errorf("expected other false")
	}
}

func TestParser_ReservedWordsRejected(t *testing.T) {
	p, err := NewParser()
	if err != nil {
		t.Fatalf("NewParser failed: %v", err)
	}

	cases := []string{
		`when [#a] as as create [#b]`,
		`when [#a] as where create [#b]`,
		`when [#a] create [#b true: 1]`,
		`when [#a] create [#b false: 1]`,
	}
	for _, src := range cases {
		if _, err := p.ParseRule(src); err == nil {
			t.Errorf("expected reserved-word rejection for %q", src)
		}
	}
}

func TestParser_InvalidSyntax(t *testing.T) {
	p, err := NewParser()
	if err != nil {
		t.Fatalf("NewParser failed: %v", err)
	}

	cases := []string{
		``,
		`[#a] create [#b]`,            // missing "when"
		`when [#a]`,                    // missing write clause
		`when [#a x] create`,           // missing create body
		`when #a create [#b]`,          // missing brackets
	}
	for _, src := range cases {
		if _, err := p.ParseRule(src); err == nil {
			t.Errorf("expected parse error for %q", src)
		}
	}
}

func TestParser_ParseRuleFile(t *testing.T) {
	src := strings.Join([]string{
		`when [#aruco id x y] create [#vessel id: id, x: x, y: y]`,
		``,
		`not a valid rule at all {{{`,
		``,
		`when [#hero x] update hero [x: x]`,
	}, "\n")

	results, err := ParseRuleFile(strings.NewReader(src))
	if err != nil {
		t.Fatalf("ParseRuleFile failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(results))
	}
	if results[0].Err != nil || results[0].Rule == nil {
		t.Errorf("expected entry 0 to parse cleanly, got err=%v", results[0].Err)
	}
	if results[1].Err == nil {
		t.Errorf("expected entry 1 to fail to parse")
	}
	if results[2].Err != nil || results[2].Rule == nil {
		t.Errorf("expected entry 2 to parse cleanly despite entry 1's failure, got err=%v", results[2].Err)
	}
}
