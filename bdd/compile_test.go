package bdd_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dflrisk/odfengine/astdfl"
	"github.com/dflrisk/odfengine/bdd"
	"github.com/dflrisk/odfengine/model"
)

func buildModel(t *testing.T, src string) *model.Model {
	t.Helper()
	pf, err := astdfl.ParseFile(src)
	require.NoError(t, err)
	m, err := model.Build(pf)
	require.NoError(t, err)
	return m
}

const src = `
attacktree {
	toplevel root;
	root or a b;
	a prob=0.3;
	b prob=0.2;
}
faulttree { toplevel f; f prob=0.1; }
objectgraph {}
formulas {}
`

func TestCompileSingleLeafIsSatisfiable(t *testing.T) {
	m := buildModel(t, src)
	e, err := astdfl.ParseExpr("a")
	require.NoError(t, err)

	c, err := bdd.Compile(m, e)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Manager.BDD.Satcount(c.Root).Sign())
}

func TestCompileOrGateIsUnsatOnlyWhenBothChildrenFalse(t *testing.T) {
	m := buildModel(t, src)
	e, err := astdfl.ParseExpr("root")
	require.NoError(t, err)

	c, err := bdd.Compile(m, e)
	require.NoError(t, err)

	aIdx, ok := c.Manager.VarIndex("a")
	require.True(t, ok)
	bIdx, ok := c.Manager.VarIndex("b")
	require.True(t, ok)
	assert.NotEqual(t, aIdx, bIdx)

	neither, err := bdd.Restrict(c.Manager, c.Root, []astdfl.BoolMapping{{Name: "a", Value: false}, {Name: "b", Value: false}})
	require.NoError(t, err)
	assert.Equal(t, c.Manager.BDD.False(), neither)

	onlyB, err := bdd.Restrict(c.Manager, c.Root, []astdfl.BoolMapping{{Name: "a", Value: false}, {Name: "b", Value: true}})
	require.NoError(t, err)
	assert.Equal(t, c.Manager.BDD.True(), onlyB)
}

func TestCompileBoolEvidenceRestrictsVariable(t *testing.T) {
	m := buildModel(t, src)
	e, err := astdfl.ParseExpr("a[a:1]")
	require.NoError(t, err)

	c, err := bdd.Compile(m, e)
	require.NoError(t, err)
	assert.Equal(t, c.Manager.BDD.True(), c.Root)
}

func TestCompileUnknownAtomErrors(t *testing.T) {
	m := buildModel(t, src)
	e, err := astdfl.ParseExpr("nope")
	require.NoError(t, err)

	_, err = bdd.Compile(m, e)
	assert.Error(t, err)
}
