package model

import (
	"sort"

	"github.com/dflrisk/odfengine/astdfl"
	"github.com/dflrisk/odfengine/core"
	"github.com/dflrisk/odfengine/oerrors"
)

// DisruptionTree is a validated, frozen attack tree or fault tree: a
// rooted DAG (in practice a tree, though shared sub-gates are legal) of
// DTNode values.
type DisruptionTree struct {
	Kind string // "attack" or "fault", used only in error messages
	Root string

	g *core.Graph[*DTNode]
}

// BuildDisruptionTree assembles and validates one tree from its parsed
// statements. A node's declaration may be spread across several
// statements (a gate statement and one or more attribute statements);
// later statements merge into the same DTNode the way
// DTNode.update_from_attrs merges partial attribute dicts in the
// original implementation.
func BuildDisruptionTree(kind string, stmts []astdfl.TreeStmt) (*DisruptionTree, error) {
	nodes := make(map[string]*DTNode)
	var order []string
	var roots []string

	get := func(name string) *DTNode {
		n, ok := nodes[name]
		if !ok {
			n = &DTNode{Name: name}
			nodes[name] = n
			order = append(order, name)
		}
		return n
	}

	for _, st := range stmts {
		n := get(st.Name)
		if st.Toplevel {
			roots = append(roots, st.Name)
		}
		if st.Gate != astdfl.GateNone {
			if n.Gate != astdfl.GateNone {
				return nil, oerrors.NewDuplicateNodeDefinitionError(kind, st.Name)
			}
			n.Gate = st.Gate
			n.Children = st.Children
		}
		if st.HasAttrs {
			if st.Prob != nil {
				n.Prob = st.Prob
			}
			if st.Impact != nil {
				n.Impact = st.Impact
			}
			if st.Objects != nil {
				n.Objects = append(n.Objects, st.Objects...)
			}
			if st.Cond != nil {
				n.Cond = st.Cond
			}
		}
	}

	uniqueRoots := dedupe(roots)
	if len(uniqueRoots) != 1 {
		return nil, oerrors.NewNotExactlyOneRootError(kind, uniqueRoots)
	}
	root := uniqueRoots[0]

	sort.Strings(order)
	g := core.NewGraph[*DTNode]()
	for _, name := range order {
		if err := g.AddNode(name, nodes[name]); err != nil {
			return nil, oerrors.NewDuplicateNodeDefinitionError(kind, name)
		}
	}
	for _, name := range order {
		n := nodes[name]
		for _, c := range n.Children {
			if !g.HasNode(c) {
				return nil, oerrors.NewCrossReferenceError(c, "%s tree: node %q references undeclared child %q", kind, name, c)
			}
			if err := g.AddEdge(name, c); err != nil {
				return nil, oerrors.NewMalformedTreeError(kind, "edge %s -> %s: %v", name, c, err)
			}
		}
	}
	if !g.HasNode(root) {
		return nil, oerrors.NewCrossReferenceError(root, "%s tree: toplevel node %q is never declared", kind, root)
	}

	if ok, offender := g.Acyclic(); !ok {
		return nil, oerrors.NewNotAcyclicError(kind, offender)
	}
	if !g.WeaklyConnected() {
		return nil, oerrors.NewNotConnectedError(kind)
	}

	g.Freeze()
	return &DisruptionTree{Kind: kind, Root: root, g: g}, nil
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	var out []string
	for _, s := range in {
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}

// Node returns the node with the given name.
func (t *DisruptionTree) Node(name string) (*DTNode, bool) { return t.g.Node(name) }

// HasNode reports whether name is declared in this tree.
func (t *DisruptionTree) HasNode(name string) bool { return t.g.HasNode(name) }

// Nodes returns every node name, sorted.
func (t *DisruptionTree) Nodes() []string { return t.g.Nodes() }

// Children returns the gate children of name, in declaration order as
// held on the DTNode (not resorted, since gate order is semantically
// insignificant for AND/OR but kept stable for readable output).
func (t *DisruptionTree) Children(name string) []string {
	n, ok := t.g.Node(name)
	if !ok {
		return nil
	}
	return n.Children
}

// Parents returns the sorted set of nodes with name as a direct gate
// child.
func (t *DisruptionTree) Parents(name string) []string { return t.g.Predecessors(name) }

// Descendants returns the set of node names reachable from name,
// excluding name itself.
func (t *DisruptionTree) Descendants(name string) map[string]struct{} { return t.g.Descendants(name) }

// BasicDescendants returns the sorted leaf (gateless) nodes among name
// and its descendants — name itself is included when it is a leaf.
func (t *DisruptionTree) BasicDescendants(name string) []string {
	candidates := t.Descendants(name)
	candidates[name] = struct{}{}
	var out []string
	for d := range candidates {
		if n, ok := t.g.Node(d); ok && n.IsLeaf() {
			out = append(out, d)
		}
	}
	sort.Strings(out)
	return out
}

// Ancestors returns the set of node names that can reach name via gate
// edges, excluding name itself.
func (t *DisruptionTree) Ancestors(name string) map[string]struct{} {
	out := make(map[string]struct{})
	var visit func(string)
	visit = func(cur string) {
		for _, p := range t.g.Predecessors(cur) {
			if _, ok := out[p]; !ok {
				out[p] = struct{}{}
				visit(p)
			}
		}
	}
	visit(name)
	return out
}

// IsModule reports whether name is a module: every parent of every
// descendant of name is either name itself or another descendant of
// name. Evidence may only be bound at module nodes, since otherwise the
// evidence would leak meaning into a context where the node's formula is
// shared by more than one enclosing scope.
func (t *DisruptionTree) IsModule(name string) bool {
	desc := t.Descendants(name)
	for d := range desc {
		for _, a := range t.Parents(d) {
			if a == name {
				continue
			}
			if _, ok := desc[a]; !ok {
				return false
			}
		}
	}
	return true
}

// Participants returns the sorted set of node names whose Objects
// include obj.
func (t *DisruptionTree) Participants(obj string) []string {
	var out []string
	for _, id := range t.g.Nodes() {
		n := t.g.MustNode(id)
		for _, o := range n.Objects {
			if o == obj {
				out = append(out, id)
				break
			}
		}
	}
	return out
}
