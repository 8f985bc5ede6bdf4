// Package model holds the load-time representation of the three
// structures a DFL source file declares: the attack tree, the fault
// tree (together "disruption trees") and the object graph. It is
// grounded on original_source/odf/models/disruption_tree.py and
// object_graph.py, rebuilt on top of the core.Graph substrate instead of
// networkx.
package model

import (
	"math/big"
	"sort"

	"github.com/dflrisk/odfengine/astdfl"
)

// DTNode is one node of a disruption tree (attack or fault). Internal
// nodes carry a Gate and Children; leaf nodes may carry a Prob, and a
// missing Prob is reported only when an evaluation needs it. Any node
// may declare Objects and a Cond.
type DTNode struct {
	Name string

	Gate     astdfl.GateKind
	Children []string

	Prob   *big.Rat
	Impact *big.Rat
	Objects []string
	Cond    astdfl.Expr
}

// IsLeaf reports whether the node has no gate, i.e. is a basic event.
func (n *DTNode) IsLeaf() bool {
	return n.Gate == astdfl.GateNone
}

// ObjectProperties returns the qualified ("object.property") names this
// node's condition depends on, collected by walking the parsed condition
// expression. original_source's DTNode.object_properties instead
// regex-matched the raw condition text; here the AST is already
// available so a plain tree walk over NodeAtom leaves serves the same
// purpose more directly.
func (n *DTNode) ObjectProperties() []string {
	if n.Cond == nil {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	var walk func(astdfl.Expr)
	walk = func(e astdfl.Expr) {
		switch v := e.(type) {
		case astdfl.NodeAtom:
			if _, ok := seen[v.Name]; !ok {
				seen[v.Name] = struct{}{}
				out = append(out, v.Name)
			}
		case astdfl.Not:
			walk(v.X)
		case astdfl.And:
			walk(v.L)
			walk(v.R)
		case astdfl.Or:
			walk(v.L)
			walk(v.R)
		case astdfl.Implies:
			walk(v.L)
			walk(v.R)
		case astdfl.Equiv:
			walk(v.L)
			walk(v.R)
		case astdfl.Nequiv:
			walk(v.L)
			walk(v.R)
		}
	}
	walk(n.Cond)
	sort.Strings(out)
	return out
}
