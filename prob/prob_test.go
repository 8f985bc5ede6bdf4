package prob_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dflrisk/odfengine/astdfl"
	"github.com/dflrisk/odfengine/bdd"
	"github.com/dflrisk/odfengine/model"
	"github.com/dflrisk/odfengine/prob"
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
	root or a b nop;
	a prob=0.3;
	b prob=0.2;
	nop;
}
faulttree {
	toplevel froot;
	froot and f1 f2;
	f1 prob=0.5;
	f2 prob=0.4;
}
objectgraph {
	srv properties=[exposed];
}
formulas {}
`

func TestEvalLeafProbabilityIsItsOwnProbability(t *testing.T) {
	m := buildModel(t, src)
	e, err := astdfl.ParseExpr("a")
	require.NoError(t, err)
	c, err := bdd.Compile(m, e)
	require.NoError(t, err)

	p, err := prob.Eval(m, c.Manager, c.Root, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, big.NewRat(3, 10).Cmp(p), 0)
}

func TestEvalOrGateOfAttackEventsTakesMax(t *testing.T) {
	m := buildModel(t, src)
	e, err := astdfl.ParseExpr("a || b")
	require.NoError(t, err)
	c, err := bdd.Compile(m, e)
	require.NoError(t, err)

	p, err := prob.Eval(m, c.Manager, c.Root, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, big.NewRat(3, 10).Cmp(p), 0)
}

func TestEvalAndGateOfFaultEventsMultiplies(t *testing.T) {
	m := buildModel(t, src)
	e, err := astdfl.ParseExpr("f1 && f2")
	require.NoError(t, err)
	c, err := bdd.Compile(m, e)
	require.NoError(t, err)

	p, err := prob.Eval(m, c.Manager, c.Root, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, big.NewRat(1, 5).Cmp(p), 0)
}

func TestEvalFastForwardsThroughConfiguration(t *testing.T) {
	m := buildModel(t, src)
	e, err := astdfl.ParseExpr("a && srv.exposed")
	require.NoError(t, err)

	c, err := bdd.Compile(m, e)
	require.NoError(t, err)

	pTrue, err := prob.Eval(m, c.Manager, c.Root, astdfl.Configuration{"srv.exposed": true}, nil)
	require.NoError(t, err)
	assert.Equal(t, big.NewRat(3, 10).Cmp(pTrue), 0)

	pFalse, err := prob.Eval(m, c.Manager, c.Root, astdfl.Configuration{"srv.exposed": false}, nil)
	require.NoError(t, err)
	assert.Equal(t, big.NewRat(0, 1).Cmp(pFalse), 0)
}

func TestEvalProbabilityEvidenceOverridesDeclaredProbability(t *testing.T) {
	m := buildModel(t, src)
	e, err := astdfl.ParseExpr("a")
	require.NoError(t, err)
	c, err := bdd.Compile(m, e)
	require.NoError(t, err)

	p, err := prob.Eval(m, c.Manager, c.Root, nil, prob.Evidence{"a": big.NewRat(9, 10)})
	require.NoError(t, err)
	assert.Equal(t, big.NewRat(9, 10).Cmp(p), 0)
}

func TestEvalMissingProbabilityFails(t *testing.T) {
	m := buildModel(t, src)
	e, err := astdfl.ParseExpr("nop")
	require.NoError(t, err)
	c, err := bdd.Compile(m, e)
	require.NoError(t, err)

	_, err = prob.Eval(m, c.Manager, c.Root, nil, nil)
	assert.Error(t, err)
}

func TestCollectEvidenceFlattensNestedScopes(t *testing.T) {
	e, err := astdfl.ParseExpr("p(a[a=0.8]) >= 1/2 [b=0.1]")
	require.NoError(t, err)
	pf, ok := e.(astdfl.ProbFormula)
	require.True(t, ok)

	ev := prob.CollectEvidence(pf)
	require.Contains(t, ev, "a")
	require.Contains(t, ev, "b")
	assert.Equal(t, big.NewRat(8, 10).Cmp(ev["a"]), 0)
	assert.Equal(t, big.NewRat(1, 10).Cmp(ev["b"]), 0)
}
