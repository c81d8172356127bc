package scene

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tinylanders/tinytalk/internal/ast"
)

func TestScene_CreateOnOccupiedIDIsTreatedAsUpdate(t *testing.T) {
	sc := New()
	first := sc.Create("obj", []string{"hero"}, map[string]ast.Value{"x": ast.Number(1)})
	second := sc.Create("obj", []string{"villain"}, map[string]ast.Value{"x": ast.Number(2)})

	require.Same(t, first, second, "re-creating an occupied id must return the existing object, not a new one")
	require.Equal(t, ast.Number(2), second.Attrs["x"])
	require.Equal(t, 1, sc.Len(), "no second object should have been inserted")
}

func TestScene_UpdateIsIdempotent(t *testing.T) {
	sc := New()
	sc.Create("obj", []string{"hero"}, map[string]ast.Value{"x": ast.Number(1), "y": ast.Number(5)})

	patch := map[string]ast.Value{"x": ast.Number(9)}
	once, err := sc.Update("obj", patch)
	require.NoError(t, err)

	twice, err := sc.Update("obj", patch)
	require.NoError(t, err)

	require.Equal(t, once.Attrs, twice.Attrs, "applying the same patch twice must yield the same final attrs")
	require.Equal(t, ast.Number(9), twice.Attrs["x"])
	require.Equal(t, ast.Number(5), twice.Attrs["y"], "attribute-level last-write-wins must leave untouched attrs alone")
}

func TestScene_UpdateMissingObjectFails(t *testing.T) {
	sc := New()
	_, err := sc.Update("ghost", map[string]ast.Value{"x": ast.Number(1)})
	require.Error(t, err)
}

func TestContext_IdentityDedupAcrossAliases(t *testing.T) {
	obj := NewObject("shared", []string{"aruco"}, nil)
	other := NewObject("other", []string{"aruco"}, nil)

	ctx := NewContext().WithBinding([]string{"a"}, obj)
	require.True(t, ctx.ContainsIdentity(obj))
	require.False(t, ctx.ContainsIdentity(other))

	// A second premise clause that would bind the same identity under a
	// different alias must see it as already bound — this is what keeps
	// a two-clause premise from ever producing a context that binds one
	// object to two aliases.
	ctx2 := ctx.WithBinding([]string{"b"}, other)
	require.True(t, ctx2.ContainsIdentity(obj))
	require.True(t, ctx2.ContainsIdentity(other))
	require.Len(t, ctx2.Objects(), 2)
}

func TestContext_PronounAliasesShareOneIdentity(t *testing.T) {
	obj := NewObject("p1", []string{"paddle"}, nil)
	ctx := NewContext().WithBinding([]string{"me", "my"}, obj)

	me, ok := ctx.Get("me")
	require.True(t, ok)
	my, ok := ctx.Get("my")
	require.True(t, ok)
	require.Same(t, me, my)
	require.Len(t, ctx.Objects(), 1, "two pronoun aliases for the same object count as one bound identity")
}
