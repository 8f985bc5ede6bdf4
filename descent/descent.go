// Package descent implements the Formula Descent pre-pass (spec.md's C2):
// a single walk over a parsed formula that collects the three variable
// partitions a query touches (attack nodes, fault nodes, object
// properties) and validates every evidence scope before compilation ever
// starts. Grounded on
// original_source/odf/checker/layer1/layer1_bdd.py's Layer1FormulaVisitor
// and its with_boolean_evidence handler.
package descent

import (
	"sort"

	"github.com/dflrisk/odfengine/astdfl"
	"github.com/dflrisk/odfengine/model"
	"github.com/dflrisk/odfengine/oerrors"
)

// Vars is the three-way variable partition a formula depends on, in the
// OP, F, A order the BDD manager must declare variables in (spec.md §5).
type Vars struct {
	ObjectProperties map[string]struct{}
	FaultNodes       map[string]struct{}
	AttackNodes      map[string]struct{}
}

// Ordered returns ObjectProperties, FaultNodes, AttackNodes each sorted,
// concatenated in that fixed order — the exact variable declaration
// order bdd.Compile requires.
func (v *Vars) Ordered() []string {
	out := make([]string, 0, len(v.ObjectProperties)+len(v.FaultNodes)+len(v.AttackNodes))
	out = append(out, sortedKeys(v.ObjectProperties)...)
	out = append(out, sortedKeys(v.FaultNodes)...)
	out = append(out, sortedKeys(v.AttackNodes)...)
	return out
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func newVars() *Vars {
	return &Vars{
		ObjectProperties: make(map[string]struct{}),
		FaultNodes:       make(map[string]struct{}),
		AttackNodes:      make(map[string]struct{}),
	}
}

// Collect walks e and returns the variable partitions it touches,
// validating every evidence scope it encounters along the way. The model
// must already be fully validated (model.Build succeeded).
func Collect(m *model.Model, e astdfl.Expr) (*Vars, error) {
	v := newVars()
	c := &collector{m: m, v: v}
	if err := c.walk(e, nil); err != nil {
		return nil, err
	}
	return v, nil
}

type collector struct {
	m *model.Model
	v *Vars
}

// walk descends e. allowed, when non-nil, is the set of node names an
// evidence binding nested inside an enclosing evidence scope is
// permitted to target: it must be a descendant of (or equal to) one of
// the outer scope's bound nodes. A nil allowed set means no enclosing
// scope restricts this position.
func (c *collector) walk(e astdfl.Expr, allowed map[string]struct{}) error {
	switch n := e.(type) {
	case astdfl.NodeAtom:
		return c.visitAtom(n.Name)
	case astdfl.Not:
		return c.walk(n.X, allowed)
	case astdfl.And:
		if err := c.walk(n.L, allowed); err != nil {
			return err
		}
		return c.walk(n.R, allowed)
	case astdfl.Or:
		if err := c.walk(n.L, allowed); err != nil {
			return err
		}
		return c.walk(n.R, allowed)
	case astdfl.Implies:
		if err := c.walk(n.L, allowed); err != nil {
			return err
		}
		return c.walk(n.R, allowed)
	case astdfl.Equiv:
		if err := c.walk(n.L, allowed); err != nil {
			return err
		}
		return c.walk(n.R, allowed)
	case astdfl.Nequiv:
		if err := c.walk(n.L, allowed); err != nil {
			return err
		}
		return c.walk(n.R, allowed)
	case astdfl.MRS:
		return c.walk(n.Body, allowed)
	case astdfl.WithBoolEvidence:
		next, err := c.bindEvidence(n.Evidence, allowed)
		if err != nil {
			return err
		}
		return c.walk(n.Body, next)
	case astdfl.WithProbEvidence:
		next, err := c.bindProbEvidence(n.Evidence, allowed)
		if err != nil {
			return err
		}
		return c.walk(n.Body, next)
	case astdfl.ProbFormula:
		if err := c.walk(n.Body, nil); err != nil {
			return err
		}
		for _, ev := range n.Evidence {
			if _, err := c.bindProbEvidence([]astdfl.ProbMapping{ev}, nil); err != nil {
				return err
			}
		}
		return nil
	default:
		return nil
	}
}

// visitAtom resolves a leaf name against the attack tree, fault tree and
// object graph, recording every variable it implies.
func (c *collector) visitAtom(name string) error {
	if c.m.Attack.HasNode(name) {
		for _, d := range c.m.Attack.BasicDescendants(name) {
			c.v.AttackNodes[d] = struct{}{}
		}
		c.addConditionProperties(c.m.Attack, name)
		return nil
	}
	if c.m.Fault.HasNode(name) {
		for _, d := range c.m.Fault.BasicDescendants(name) {
			c.v.FaultNodes[d] = struct{}{}
		}
		c.addConditionProperties(c.m.Fault, name)
		return nil
	}
	if c.m.Objects.HasQualifiedProperty(name) {
		c.v.ObjectProperties[name] = struct{}{}
		return nil
	}
	return oerrors.NewCrossReferenceError(name, "unknown node or object property: %q", name)
}

func (c *collector) addConditionProperties(tree *model.DisruptionTree, name string) {
	names := tree.Descendants(name)
	names[name] = struct{}{}
	for d := range names {
		n, ok := tree.Node(d)
		if !ok {
			continue
		}
		for _, p := range n.ObjectProperties() {
			c.v.ObjectProperties[p] = struct{}{}
		}
	}
}

// bindEvidence validates one boolean evidence scope and returns the
// allowed-target set for nested scopes.
func (c *collector) bindEvidence(mappings []astdfl.BoolMapping, allowed map[string]struct{}) (map[string]struct{}, error) {
	next := make(map[string]struct{})
	for _, bm := range mappings {
		tree, isTreeNode := c.resolveTreeNode(bm.Name)
		isOP := c.m.Objects.HasQualifiedProperty(bm.Name)
		if !isTreeNode && !isOP {
			return nil, oerrors.NewEvidenceScopeError(bm.Name, "cannot set evidence for non-existent element %q", bm.Name)
		}
		if allowed != nil {
			if _, ok := allowed[bm.Name]; !ok {
				return nil, oerrors.NewEvidenceScopeError(bm.Name,
					"evidence on %q is out of scope: not a descendant of the enclosing evidence binding", bm.Name)
			}
		}
		if isTreeNode && !tree.IsModule(bm.Name) {
			return nil, oerrors.NewEvidenceScopeError(bm.Name, "evidence may only be set on a module; %q is not one", bm.Name)
		}
		if isTreeNode {
			c.recordDirectVar(tree, bm.Name)
			for d := range tree.Descendants(bm.Name) {
				next[d] = struct{}{}
			}
		} else {
			c.v.ObjectProperties[bm.Name] = struct{}{}
		}
		next[bm.Name] = struct{}{}
	}
	return next, nil
}

// recordDirectVar declares name itself as a BDD variable, not just its
// basic descendants. This lets an evidence binding on an intermediate
// (module) node compile to a single opaque variable instead of
// expanding its gate subtree, mirroring
// Layer1FormulaVisitor.with_boolean_evidence adding node_name directly
// to attack_nodes/fault_nodes (as opposed to node_atom's
// get_basic_descendants expansion).
func (c *collector) recordDirectVar(tree *model.DisruptionTree, name string) {
	if tree == c.m.Attack {
		c.v.AttackNodes[name] = struct{}{}
	} else {
		c.v.FaultNodes[name] = struct{}{}
	}
}

// bindProbEvidence validates one probabilistic evidence scope the same
// way as bindEvidence (existing target, nesting scope, module rule) and,
// like bindEvidence, declares every target as a variable: a tree node
// through recordDirectVar, an object property in the OP partition.
func (c *collector) bindProbEvidence(mappings []astdfl.ProbMapping, allowed map[string]struct{}) (map[string]struct{}, error) {
	next := make(map[string]struct{})
	for _, pm := range mappings {
		tree, isTreeNode := c.resolveTreeNode(pm.Name)
		isOP := c.m.Objects.HasQualifiedProperty(pm.Name)
		if !isTreeNode && !isOP {
			return nil, oerrors.NewEvidenceScopeError(pm.Name, "cannot set evidence for non-existent element %q", pm.Name)
		}
		if allowed != nil {
			if _, ok := allowed[pm.Name]; !ok {
				return nil, oerrors.NewEvidenceScopeError(pm.Name,
					"evidence on %q is out of scope: not a descendant of the enclosing evidence binding", pm.Name)
			}
		}
		if isTreeNode && !tree.IsModule(pm.Name) {
			return nil, oerrors.NewEvidenceScopeError(pm.Name, "evidence may only be set on a module; %q is not one", pm.Name)
		}
		if isTreeNode {
			c.recordDirectVar(tree, pm.Name)
			for d := range tree.Descendants(pm.Name) {
				next[d] = struct{}{}
			}
		} else {
			c.v.ObjectProperties[pm.Name] = struct{}{}
		}
		next[pm.Name] = struct{}{}
	}
	return next, nil
}

func (c *collector) resolveTreeNode(name string) (*model.DisruptionTree, bool) {
	if c.m.Attack.HasNode(name) {
		return c.m.Attack, true
	}
	if c.m.Fault.HasNode(name) {
		return c.m.Fault, true
	}
	return nil, false
}
