package descent_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dflrisk/odfengine/astdfl"
	"github.com/dflrisk/odfengine/descent"
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
	b prob=0.2 cond=(srv.exposed);
}
faulttree {
	toplevel froot;
	froot and f1 f2;
	f1 prob=0.1;
	f2 prob=0.1;
}
objectgraph {
	srv properties=[exposed, patched];
}
formulas {}
`

func TestCollectBasicAtom(t *testing.T) {
	m := buildModel(t, src)
	e, err := astdfl.ParseExpr("a")
	require.NoError(t, err)

	v, err := descent.Collect(m, e)
	require.NoError(t, err)
	assert.Contains(t, v.AttackNodes, "a")
	assert.Empty(t, v.FaultNodes)
}

func TestCollectIntermediateExpandsBasicDescendantsAndConditions(t *testing.T) {
	m := buildModel(t, src)
	e, err := astdfl.ParseExpr("root")
	require.NoError(t, err)

	v, err := descent.Collect(m, e)
	require.NoError(t, err)
	assert.Contains(t, v.AttackNodes, "a")
	assert.Contains(t, v.AttackNodes, "b")
	assert.Contains(t, v.ObjectProperties, "srv.exposed")
}

func TestCollectUnknownAtomFails(t *testing.T) {
	m := buildModel(t, src)
	e, err := astdfl.ParseExpr("nosuchnode")
	require.NoError(t, err)

	_, err = descent.Collect(m, e)
	assert.Error(t, err)
}

func TestCollectEvidenceOnModuleOK(t *testing.T) {
	m := buildModel(t, src)
	e, err := astdfl.ParseExpr("root[a:1]")
	require.NoError(t, err)

	_, err = descent.Collect(m, e)
	require.NoError(t, err)
}

func TestCollectNestedEvidenceOutOfScopeFails(t *testing.T) {
	// The outer (last-applied) bracket binds f1, restricting any nested
	// evidence binding to f1's own descendants (none, since f1 is a
	// leaf); the inner binding on froot is therefore out of scope.
	m := buildModel(t, src)
	e, err := astdfl.ParseExpr("froot[froot:1][f1:1]")
	require.NoError(t, err)

	_, err = descent.Collect(m, e)
	assert.Error(t, err)
}

func TestCollectEvidenceOnUnknownElementFails(t *testing.T) {
	m := buildModel(t, src)
	e, err := astdfl.ParseExpr("a[nosuchnode:1]")
	require.NoError(t, err)

	_, err = descent.Collect(m, e)
	assert.Error(t, err)
}

func TestOrderedVariableDeclarationOrder(t *testing.T) {
	v := &descent.Vars{
		ObjectProperties: map[string]struct{}{"srv.exposed": {}},
		FaultNodes:       map[string]struct{}{"f1": {}},
		AttackNodes:      map[string]struct{}{"a": {}},
	}
	assert.Equal(t, []string{"srv.exposed", "f1", "a"}, v.Ordered())
}
