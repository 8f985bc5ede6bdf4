package astdfl_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dflrisk/odfengine/astdfl"
)

func TestParseExprBasic(t *testing.T) {
	e, err := astdfl.ParseExpr("a && (b || !c)")
	require.NoError(t, err)

	and, ok := e.(astdfl.And)
	require.True(t, ok)
	assert.Equal(t, astdfl.NodeAtom{Name: "a"}, and.L)

	or, ok := and.R.(astdfl.Or)
	require.True(t, ok)
	assert.Equal(t, astdfl.NodeAtom{Name: "b"}, or.L)

	not, ok := or.R.(astdfl.Not)
	require.True(t, ok)
	assert.Equal(t, astdfl.NodeAtom{Name: "c"}, not.X)
}

func TestParseExprImpliesRightAssoc(t *testing.T) {
	e, err := astdfl.ParseExpr("a => b => c")
	require.NoError(t, err)
	top, ok := e.(astdfl.Implies)
	require.True(t, ok)
	assert.Equal(t, astdfl.NodeAtom{Name: "a"}, top.L)
	_, ok = top.R.(astdfl.Implies)
	assert.True(t, ok)
}

func TestParseExprBoolEvidence(t *testing.T) {
	e, err := astdfl.ParseExpr("a[x:1, y:0]")
	require.NoError(t, err)
	we, ok := e.(astdfl.WithBoolEvidence)
	require.True(t, ok)
	assert.Equal(t, astdfl.NodeAtom{Name: "a"}, we.Body)
	require.Len(t, we.Evidence, 2)
	assert.Equal(t, astdfl.BoolMapping{Name: "x", Value: true}, we.Evidence[0])
	assert.Equal(t, astdfl.BoolMapping{Name: "y", Value: false}, we.Evidence[1])
}

func TestParseFileAllSections(t *testing.T) {
	src := `
attacktree {
	toplevel root;
	root or a b;
	a prob=0.3 objects=[srv];
	b prob=0.2 cond=(srv.exposed);
}
faulttree {
	toplevel froot;
	froot and f1 f2;
	f1 prob=0.1;
	f2 prob=0.1;
}
objectgraph {
	srv has disk;
	srv properties=[exposed, patched];
}
formulas {
	{exposed:1} a || b;
	mrs(a && b);
	p(a) >= 1/2 [a=0.8];
	MostRiskyA(srv);
}
`
	f, err := astdfl.ParseFile(src)
	require.NoError(t, err)

	require.Len(t, f.AttackStmts, 4)
	assert.True(t, f.AttackStmts[0].Toplevel)
	assert.Equal(t, "root", f.AttackStmts[0].Name)

	require.Len(t, f.FaultStmts, 4)
	require.Len(t, f.ObjectStmts, 2)
	require.Len(t, f.FormulaStmts, 4)

	_, ok := f.FormulaStmts[0].(astdfl.Layer1Query)
	assert.True(t, ok)

	l3, ok := f.FormulaStmts[3].(astdfl.Layer3Query)
	require.True(t, ok)
	assert.Equal(t, astdfl.MostRiskyA, l3.Kind)
	assert.Equal(t, "srv", l3.Object)
}

func TestParseLayer2QueryDetectedFromProbFormula(t *testing.T) {
	f, err := astdfl.ParseFile(`formulas { p(a) < 7/10 || p(b) >= 1/4; }`)
	require.NoError(t, err)
	require.Len(t, f.FormulaStmts, 1)
	_, ok := f.FormulaStmts[0].(astdfl.Layer2Query)
	assert.True(t, ok)
}
