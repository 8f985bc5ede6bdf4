package dfskernel_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dalzilio/rudd"

	"github.com/dflrisk/odfengine/astdfl"
	"github.com/dflrisk/odfengine/bdd"
	"github.com/dflrisk/odfengine/dfskernel"
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

func TestWalkVisitsEveryNodeExactlyOnce(t *testing.T) {
	m := buildModel(t, src)
	e, err := astdfl.ParseExpr("root")
	require.NoError(t, err)
	c, err := bdd.Compile(m, e)
	require.NoError(t, err)

	seen := map[int]int{}
	err = dfskernel.Walk(c.Manager.BDD, c.Root, func(n rudd.Node) error {
		seen[*n]++
		return nil
	})
	require.NoError(t, err)
	for id, count := range seen {
		assert.Equal(t, 1, count, "node %d visited more than once", id)
	}
	assert.NotEmpty(t, seen)
}

func TestWalkVisitsChildrenBeforeParent(t *testing.T) {
	m := buildModel(t, src)
	e, err := astdfl.ParseExpr("root")
	require.NoError(t, err)
	c, err := bdd.Compile(m, e)
	require.NoError(t, err)

	order := map[int]int{}
	i := 0
	err = dfskernel.Walk(c.Manager.BDD, c.Root, func(n rudd.Node) error {
		order[*n] = i
		i++
		return nil
	})
	require.NoError(t, err)

	if !dfskernel.IsTerminal(c.Manager.BDD, c.Root) {
		lo := c.Manager.BDD.Low(c.Root)
		hi := c.Manager.BDD.High(c.Root)
		assert.Less(t, order[*lo], order[*c.Root])
		assert.Less(t, order[*hi], order[*c.Root])
	}
}

func TestFindConfigReflectionNodesOnlyAtOPBoundary(t *testing.T) {
	m := buildModel(t, src)
	e, err := astdfl.ParseExpr("a")
	require.NoError(t, err)
	c, err := bdd.Compile(m, e)
	require.NoError(t, err)

	isOP := func(n rudd.Node) bool { return c.Manager.IsObjectProperty(nameForLevel(c.Manager, n)) }
	var found []rudd.Node
	err = dfskernel.FindConfigReflectionNodes(c.Manager.BDD, c.Root, isOP, func(n rudd.Node) error {
		found = append(found, n)
		return nil
	})
	require.NoError(t, err)
	// "a" has no object properties at all, so root itself (not an OP
	// node) is immediately a reflection node under the "parent is OP"
	// seed assumption.
	assert.NotEmpty(t, found)
}

// nameForLevel is a test-only helper translating a node's BDD level
// back to a declared variable name, standing in for the name-aware
// is_op_node predicate the risk engine builds against Manager directly.
func nameForLevel(mgr *bdd.Manager, n rudd.Node) string {
	return mgr.NameAt(n)
}
