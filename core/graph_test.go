package core_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dflrisk/odfengine/core"
)

func TestAddNodeAndEdge(t *testing.T) {
	g := core.NewGraph[int]()
	require.NoError(t, g.AddNode("a", 1))
	require.NoError(t, g.AddNode("b", 2))
	require.ErrorIs(t, g.AddNode("a", 3), core.ErrNodeExists)
	require.ErrorIs(t, g.AddNode("", 0), core.ErrEmptyNodeID)

	require.NoError(t, g.AddEdge("a", "b"))
	require.ErrorIs(t, g.AddEdge("a", "b"), core.ErrEdgeExists)
	require.ErrorIs(t, g.AddEdge("a", "a"), core.ErrSelfLoop)
	require.ErrorIs(t, g.AddEdge("a", "missing"), core.ErrNodeNotFound)

	assert.Equal(t, []string{"b"}, g.Successors("a"))
	assert.Equal(t, []string{"a"}, g.Predecessors("b"))
	assert.Equal(t, []string{"a", "b"}, g.Nodes())
}

func TestAcyclic(t *testing.T) {
	g := core.NewGraph[int]()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, g.AddNode(id, 0))
	}
	require.NoError(t, g.AddEdge("a", "b"))
	require.NoError(t, g.AddEdge("b", "c"))
	ok, _ := g.Acyclic()
	assert.True(t, ok)

	require.NoError(t, g.AddEdge("c", "a"))
	ok, offender := g.Acyclic()
	assert.False(t, ok)
	assert.NotEmpty(t, offender)
}

func TestWeaklyConnected(t *testing.T) {
	g := core.NewGraph[int]()
	for _, id := range []string{"a", "b", "c", "d"} {
		require.NoError(t, g.AddNode(id, 0))
	}
	require.NoError(t, g.AddEdge("a", "b"))
	require.NoError(t, g.AddEdge("c", "d"))
	assert.False(t, g.WeaklyConnected())

	require.NoError(t, g.AddEdge("b", "c"))
	assert.True(t, g.WeaklyConnected())
}

func TestDescendants(t *testing.T) {
	g := core.NewGraph[int]()
	for _, id := range []string{"r", "a", "b", "c"} {
		require.NoError(t, g.AddNode(id, 0))
	}
	require.NoError(t, g.AddEdge("r", "a"))
	require.NoError(t, g.AddEdge("r", "b"))
	require.NoError(t, g.AddEdge("a", "c"))

	d := g.Descendants("r")
	assert.Len(t, d, 3)
	assert.Contains(t, d, "c")
}

func TestFreezePanics(t *testing.T) {
	g := core.NewGraph[int]()
	require.NoError(t, g.AddNode("a", 0))
	g.Freeze()
	assert.Panics(t, func() {
		_ = g.AddNode("b", 0)
	})
	assert.Panics(t, func() {
		_ = g.AddEdge("a", "a")
	})
}

func TestNodeLookupAndDegrees(t *testing.T) {
	g := core.NewGraph[string]()
	require.NoError(t, g.AddNode("a", "payload-a"))
	require.NoError(t, g.AddNode("b", "payload-b"))
	require.NoError(t, g.AddEdge("a", "b"))

	assert.True(t, g.HasNode("a"))
	assert.False(t, g.HasNode("missing"))

	v, ok := g.Node("a")
	require.True(t, ok)
	assert.Equal(t, "payload-a", v)

	_, ok = g.Node("missing")
	assert.False(t, ok)

	assert.Equal(t, "payload-b", g.MustNode("b"))
	assert.Panics(t, func() { g.MustNode("missing") })

	assert.Equal(t, 2, g.Len())
	assert.Equal(t, 1, g.OutDegree("a"))
	assert.Equal(t, 0, g.OutDegree("b"))
	assert.Equal(t, 0, g.InDegree("a"))
	assert.Equal(t, 1, g.InDegree("b"))
}

func TestRoots(t *testing.T) {
	g := core.NewGraph[int]()
	for _, id := range []string{"root1", "root2", "child"} {
		require.NoError(t, g.AddNode(id, 0))
	}
	require.NoError(t, g.AddEdge("root1", "child"))
	require.NoError(t, g.AddEdge("root2", "child"))

	assert.Equal(t, []string{"root1", "root2"}, g.Roots())
}
