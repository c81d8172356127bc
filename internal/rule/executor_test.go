package rule

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tinylanders/tinytalk/internal/ast"
	"github.com/tinylanders/tinytalk/internal/dsl"
	"github.com/tinylanders/tinytalk/internal/scene"
)

func parseRule(t *testing.T, src string) *ast.Rule {
	t.Helper()
	p, err := dsl.NewParser()
	require.NoError(t, err)
	r, err := p.ParseRule(src)
	require.NoError(t, err)
	return r
}

func TestExecute_MarkerToVessel(t *testing.T) {
	r := parseRule(t, `when [#aruco id x y] create [#vessel id: id, x: x, y: y]`)

	sc := scene.New()
	sc.Create("111", []string{"aruco"}, map[string]ast.Value{
		"id": ast.Str("111"),
		"x":  ast.Number(0),
		"y":  ast.Number(0),
	})

	affected, err := Execute(r, "111", sc)
	require.NoError(t, err)
	require.Len(t, affected, 1)

	var vessel *scene.Object
	for _, o := range sc.Iter() {
		if _, ok := o.Tags["vessel"]; ok {
			vessel = o
		}
	}
	require.NotNil(t, vessel)
	require.Equal(t, ast.Str("111"), vessel.Attrs["id"])
	require.Equal(t, ast.Number(0), vessel.Attrs["x"])
	require.Equal(t, ast.Number(0), vessel.Attrs["y"])
}

func TestExecute_UpdateByAlias(t *testing.T) {
	r := parseRule(t, `when [#paddle x where 0 < x < 100, y] update paddle [x: x]`)

	sc := scene.New()
	sc.Create("p1", []string{"paddle"}, map[string]ast.Value{
		"x": ast.Number(50), "y": ast.Number(1),
	})

	affected, err := Execute(r, "p1", sc)
	require.NoError(t, err)
	require.Len(t, affected, 1)

	o, ok := sc.Get("p1")
	require.True(t, ok)
	require.Equal(t, ast.Number(50), o.Attrs["x"])
}

func TestExecute_UpdateOutOfRangeDoesNotFire(t *testing.T) {
	r := parseRule(t, `when [#paddle x where 0 < x < 100, y] update paddle [x: x]`)

	sc := scene.New()
	sc.Create("p1", []string{"paddle"}, map[string]ast.Value{
		"x": ast.Number(500), "y": ast.Number(1),
	})

	affected, err := Execute(r, "p1", sc)
	require.NoError(t, err)
	require.Empty(t, affected)
}

func TestExecute_SwapCoordinates(t *testing.T) {
	r := parseRule(t, `when [#marker x y] as m create [#ball x: m.y, y: m.x]`)

	sc := scene.New()
	sc.Create("mk", []string{"marker"}, map[string]ast.Value{
		"x": ast.Number(3), "y": ast.Number(9),
	})

	_, err := Execute(r, "mk", sc)
	require.NoError(t, err)

	var ball *scene.Object
	for _, o := range sc.Iter() {
		if _, ok := o.Tags["ball"]; ok {
			ball = o
		}
	}
	require.NotNil(t, ball)
	require.Equal(t, ast.Number(9), ball.Attrs["x"])
	require.Equal(t, ast.Number(3), ball.Attrs["y"])
}

func TestExecute_PronounAliasesAndRelation(t *testing.T) {
	r := parseRule(t, `when [#paddle y] as me/my; friend [#aruco y] as tag/its update my [y: its.y]`)

	sc := scene.New()
	sc.Create("pad", []string{"paddle"}, map[string]ast.Value{"y": ast.Number(1)})
	sc.Create("tag1", []string{"aruco"}, map[string]ast.Value{"y": ast.Number(42)})

	_, err := Execute(r, "tag1", sc)
	require.NoError(t, err)

	pad, ok := sc.Get("pad")
	require.True(t, ok)
	require.Equal(t, ast.Number(42), pad.Attrs["y"])
}

func TestExecute_OnlyAdjectiveBlocksOnMultipleMatches(t *testing.T) {
	r := parseRule(t, `when only [#hero x] update hero [x: x]`)

	sc := scene.New()
	sc.Create("h1", []string{"hero"}, map[string]ast.Value{"x": ast.Number(1)})
	sc.Create("h2", []string{"hero"}, map[string]ast.Value{"x": ast.Number(2)})

	affected, err := Execute(r, "h1", sc)
	require.NoError(t, err)
	require.Empty(t, affected)
}

func TestExecute_OnlyAdjectiveFiresWithSingleMatch(t *testing.T) {
	r := parseRule(t, `when only [#hero x] update hero [x: x]`)

	sc := scene.New()
	sc.Create("h1", []string{"hero"}, map[string]ast.Value{"x": ast.Number(1)})

	affected, err := Execute(r, "h1", sc)
	require.NoError(t, err)
	require.Len(t, affected, 1)
}

func TestExecute_UnboundAliasConsequenceIsSkippedButOthersStillApply(t *testing.T) {
	r := parseRule(t, `when [#a] as x create [#b v: 1]; update ghost [v: 2]`)

	sc := scene.New()
	sc.Create("obj-a", []string{"a"}, nil)

	affected, err := Execute(r, "obj-a", sc)
	require.NoError(t, err)
	require.Len(t, affected, 1)
	require.Equal(t, Created, affected[0].Kind)

	var created *scene.Object
	for _, o := range sc.Iter() {
		if _, ok := o.Tags["b"]; ok {
			created = o
		}
	}
	require.NotNil(t, created, "the consequence preceding the unbound-alias one must still have applied")
}

func TestApplyUpdate_MissingObjectIsAFaultNotAPanic(t *testing.T) {
	sc := scene.New()
	ghost := scene.NewObject("gone", []string{"paddle"}, nil)
	ctx := scene.NewContext().WithBinding([]string{"p"}, ghost)

	cons := ast.Consequence{
		Kind:  ast.UpdateConsequence,
		Alias: "p",
		Attrs: map[string]*ast.Expr{"x": ast.Literal(ast.Number(1))},
	}

	_, err := applyUpdate(cons, ctx, sc)
	require.Error(t, err)
}

func TestExecute_RelationBackRefRecordsBoundIDs(t *testing.T) {
	r := parseRule(t, `when [#a] as x create friend [#b v: 1]`)

	sc := scene.New()
	sc.Create("obj-a", []string{"a"}, nil)

	_, err := Execute(r, "obj-a", sc)
	require.NoError(t, err)

	var created *scene.Object
	for _, o := range sc.Iter() {
		if _, ok := o.Tags["b"]; ok {
			created = o
		}
	}
	require.NotNil(t, created)
	require.Equal(t, []string{"obj-a"}, created.RelatedIDs)
}
