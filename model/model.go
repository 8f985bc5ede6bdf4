package model

import (
	"github.com/dflrisk/odfengine/astdfl"
	"github.com/dflrisk/odfengine/oerrors"
)

// Model is the fully validated combination of an attack tree, a fault
// tree and an object graph, ready for descent/compilation. Grounded on
// original_source/odf/models/validation.py, which runs these same
// cross-structure checks after each structure validates on its own.
type Model struct {
	Attack  *DisruptionTree
	Fault   *DisruptionTree
	Objects *ObjectGraph
}

// Build parses no further input of its own: it assembles and validates a
// Model from an already-parsed file.
func Build(pf *astdfl.ParsedFile) (*Model, error) {
	attack, err := BuildDisruptionTree("attack", pf.AttackStmts)
	if err != nil {
		return nil, err
	}
	fault, err := BuildDisruptionTree("fault", pf.FaultStmts)
	if err != nil {
		return nil, err
	}
	objects, err := BuildObjectGraph(pf.ObjectStmts)
	if err != nil {
		return nil, err
	}

	m := &Model{Attack: attack, Fault: fault, Objects: objects}
	if err := m.validateUniqueNames(); err != nil {
		return nil, err
	}
	if err := m.validateReferences(); err != nil {
		return nil, err
	}
	return m, nil
}

// validateUniqueNames enforces that attack tree nodes, fault tree nodes
// and objects share one global namespace, mirroring
// validate_unique_node_names in original_source/odf/models/validation.py.
func (m *Model) validateUniqueNames() error {
	seenIn := make(map[string]string)
	check := func(name, structure string) error {
		if prev, ok := seenIn[name]; ok {
			return oerrors.NewCrossReferenceError(name,
				"name %q is declared in both the %s and the %s", name, prev, structure)
		}
		seenIn[name] = structure
		return nil
	}
	for _, n := range m.Attack.Nodes() {
		if err := check(n, "attack tree"); err != nil {
			return err
		}
	}
	for _, n := range m.Fault.Nodes() {
		if err := check(n, "fault tree"); err != nil {
			return err
		}
	}
	for _, n := range m.Objects.Nodes() {
		if err := check(n, "object graph"); err != nil {
			return err
		}
	}
	return nil
}

// validateReferences checks that every object and property a disruption
// tree node mentions actually exists, mirroring
// validate_disruption_tree_references.
func (m *Model) validateReferences() error {
	check := func(tree *DisruptionTree) error {
		for _, id := range tree.Nodes() {
			n, _ := tree.Node(id)
			for _, o := range n.Objects {
				if !m.Objects.HasObject(o) {
					return oerrors.NewCrossReferenceError(o,
						"%s tree: node %q references undeclared object %q", tree.Kind, id, o)
				}
			}
			for _, p := range n.ObjectProperties() {
				if !m.Objects.HasQualifiedProperty(p) {
					return oerrors.NewCrossReferenceError(p,
						"%s tree: node %q condition references undeclared object property %q", tree.Kind, id, p)
				}
			}
		}
		return nil
	}
	if err := check(m.Attack); err != nil {
		return err
	}
	return check(m.Fault)
}
