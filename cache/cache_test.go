package cache

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/chazu/ember/codegen"
	"github.com/chazu/ember/ir"
	"github.com/stretchr/testify/require"
)

func sample() ir.Sequence {
	return ir.Sequence{
		ir.DefineBlock{Arity: 1},
		ir.PushArg{},
		ir.End{Label: ir.LabelDefineBlock},
		ir.Pop{},
		ir.PushInt{Value: 1},
		ir.PushInt{Value: 2},
		ir.Add(),
		ir.Return{},
	}
}

func TestCache_CompileHitsOnSecondCall(t *testing.T) {
	c, err := Open(filepath.Join(t.TempDir(), "nested", "cache.db"))
	require.NoError(t, err)
	defer c.Close()

	first, hit, err := c.Compile(sample(), codegen.Options{})
	require.NoError(t, err)
	require.False(t, hit)

	second, hit, err := c.Compile(sample(), codegen.Options{})
	require.NoError(t, err)
	require.True(t, hit)
	require.Equal(t, first, second, "the cached program is the one first generated")
	require.Equal(t, first.Source(), second.Source())

	n, err := c.Len()
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestCache_OptionsArePartOfTheKey(t *testing.T) {
	c, err := Open(":memory:")
	require.NoError(t, err)
	defer c.Close()

	_, _, err = c.Compile(sample(), codegen.Options{})
	require.NoError(t, err)
	prog, hit, err := c.Compile(sample(), codegen.Options{VarPrefix: "x_"})
	require.NoError(t, err)
	require.False(t, hit)
	require.Contains(t, prog.Body, "x_add")

	k1, err := Key(sample(), codegen.Options{})
	require.NoError(t, err)
	k2, err := Key(sample(), codegen.DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, k1, k2, "unset options key like their defaults")
}

func TestCache_Persists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")

	c, err := Open(path)
	require.NoError(t, err)
	first, _, err := c.Compile(sample(), codegen.Options{})
	require.NoError(t, err)
	require.NoError(t, c.Close())

	c, err = Open(path)
	require.NoError(t, err)
	defer c.Close()
	again, hit, err := c.Compile(sample(), codegen.Options{})
	require.NoError(t, err)
	require.True(t, hit)
	require.Equal(t, first.Unit, again.Unit)
}

func TestCache_GetMissing(t *testing.T) {
	c, err := Open(":memory:")
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Get("nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCache_FailedCompileIsNotStored(t *testing.T) {
	c, err := Open(":memory:")
	require.NoError(t, err)
	defer c.Close()

	_, _, err = c.Compile(ir.Sequence{ir.End{Label: ir.LabelIf}}, codegen.Options{})
	var se *ir.StructuralError
	require.True(t, errors.As(err, &se))

	n, err := c.Len()
	require.NoError(t, err)
	require.Equal(t, 0, n)
}

func TestCache_NilCompilesWithoutStoring(t *testing.T) {
	var c *Cache
	prog, hit, err := c.Compile(sample(), codegen.Options{})
	require.NoError(t, err)
	require.False(t, hit)
	require.NotEmpty(t, prog.Body)
	require.NoError(t, c.Close())
}
