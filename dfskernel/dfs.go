// Package dfskernel implements the shared iterative post-order traversal
// kernel (spec.md's C4) that the probability evaluator and the risk
// engine both build on. Grounded on
// original_source/odf/utils/dfs.py's dfs_nodes_with_complement and
// find_config_reflection_nodes.
//
// rudd carries no complemented edges (see DESIGN.md's Open Question
// resolution), so the two-phase stack here yields each reachable node
// exactly once, in reverse-topological ("children visited before their
// parents") order, with no complement flag to track alongside it.
package dfskernel

import (
	"github.com/dalzilio/rudd"
)

// VisitFunc is called once per node, in reverse-topological order.
type VisitFunc func(node rudd.Node) error

// nodeID returns the underlying node identity for use as a map key.
func nodeID(n rudd.Node) int { return *n }

// IsTerminal reports whether n is the BDD's True or False constant.
func IsTerminal(b rudd.BDD, n rudd.Node) bool {
	return nodeEqual(n, b.True()) || nodeEqual(n, b.False())
}

func nodeEqual(a, b rudd.Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

type frame struct {
	node    rudd.Node
	pending bool
}

// Walk visits every node reachable from root exactly once, low and high
// children before their parent, calling visit on each. It is the
// two-phase push/pop pattern of dfs_nodes_with_complement: a node is
// pushed once with pending=false to schedule its children, then again
// with pending=true once its children are scheduled, so it is only
// actually visited (and reported to visit) the second time it is
// popped — guaranteeing a node's children are visited first.
func Walk(b rudd.BDD, root rudd.Node, visit VisitFunc) error {
	stack := []frame{{node: root}}
	yielded := make(map[int]struct{})

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		id := nodeID(top.node)
		if _, done := yielded[id]; done {
			continue
		}
		if top.pending {
			yielded[id] = struct{}{}
			if err := visit(top.node); err != nil {
				return err
			}
			continue
		}

		stack = append(stack, frame{node: top.node, pending: true})
		if IsTerminal(b, top.node) {
			continue
		}
		stack = append(stack, frame{node: b.Low(top.node)})
		stack = append(stack, frame{node: b.High(top.node)})
	}
	return nil
}

// IsOPFunc reports whether a node is an object-property variable node.
type IsOPFunc func(node rudd.Node) bool

// ReflectionVisitFunc is called once per config-reflection node found.
type ReflectionVisitFunc func(node rudd.Node) error

type reflectionFrame struct {
	node       rudd.Node
	parentIsOP bool
}

type reflectionKey struct {
	id         int
	parentIsOP bool
}

// FindConfigReflectionNodes walks the BDD rooted at root looking for
// "hand-off" nodes: nodes that are not themselves OP-variable nodes but
// whose parent (in some path from root) is. These are exactly the
// points where the probability evaluator switches from "decide by
// configuration lookup" (Layer 2's OP fast-forward) to "decide by
// recursive probability" mode, and where the risk engine anchors
// per-configuration risk contributions. Grounded on
// find_config_reflection_nodes.
func FindConfigReflectionNodes(b rudd.BDD, root rudd.Node, isOP IsOPFunc, visit ReflectionVisitFunc) error {
	stack := []reflectionFrame{{node: root, parentIsOP: true}}
	visited := make(map[reflectionKey]struct{})

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		key := reflectionKey{id: nodeID(top.node), parentIsOP: top.parentIsOP}
		if _, seen := visited[key]; seen {
			continue
		}
		visited[key] = struct{}{}

		currentIsOP := isOP(top.node)
		if top.parentIsOP && !currentIsOP {
			if err := visit(top.node); err != nil {
				return err
			}
		}
		if !currentIsOP || IsTerminal(b, top.node) {
			continue
		}

		stack = append(stack, reflectionFrame{node: b.High(top.node), parentIsOP: currentIsOP})
		stack = append(stack, reflectionFrame{node: b.Low(top.node), parentIsOP: currentIsOP})
	}
	return nil
}
