package model

import (
	"errors"
	"sort"
	"strings"

	"github.com/dflrisk/odfengine/astdfl"
	"github.com/dflrisk/odfengine/core"
	"github.com/dflrisk/odfengine/oerrors"
)

// ObjectNode is one node of the object graph: a named object with a set
// of leaf boolean properties.
type ObjectNode struct {
	Name       string
	Properties []string
}

// ObjectGraph is a validated, frozen DAG of objects linked by the `has`
// relation, grounded on original_source/odf/models/object_graph.py.
type ObjectGraph struct {
	g *core.Graph[*ObjectNode]
}

// BuildObjectGraph assembles and validates the object graph from its
// parsed statements. As with disruption tree nodes, an object's `has`
// edges and `properties=` list may each be declared across more than one
// statement.
func BuildObjectGraph(stmts []astdfl.ObjectStmt) (*ObjectGraph, error) {
	nodes := make(map[string]*ObjectNode)
	edges := make(map[string][]string)
	propSeen := make(map[string]map[string]bool)
	var order []string

	get := func(name string) *ObjectNode {
		n, ok := nodes[name]
		if !ok {
			n = &ObjectNode{Name: name}
			nodes[name] = n
			propSeen[name] = make(map[string]bool)
			order = append(order, name)
		}
		return n
	}

	for _, st := range stmts {
		n := get(st.Name)
		if st.HasProps {
			for _, p := range st.Properties {
				if propSeen[st.Name][p] {
					return nil, oerrors.NewDuplicateObjectPropertyError(st.Name, p)
				}
				propSeen[st.Name][p] = true
				n.Properties = append(n.Properties, p)
			}
		}
		edges[st.Name] = append(edges[st.Name], st.HasEdges...)
	}

	sort.Strings(order)
	g := core.NewGraph[*ObjectNode]()
	for _, name := range order {
		if err := g.AddNode(name, nodes[name]); err != nil {
			return nil, oerrors.NewCrossReferenceError(name, "object graph: %v", err)
		}
	}
	for _, name := range order {
		for _, child := range edges[name] {
			if !g.HasNode(child) {
				return nil, oerrors.NewCrossReferenceError(child, "object graph: object %q references undeclared object %q", name, child)
			}
			if err := g.AddEdge(name, child); err != nil && !errors.Is(err, core.ErrEdgeExists) {
				return nil, oerrors.NewCrossReferenceError(name, "object graph: edge %s -> %s: %v", name, child, err)
			}
		}
	}

	if ok, offender := g.Acyclic(); !ok {
		return nil, oerrors.NewNotAcyclicError("object graph", offender)
	}

	g.Freeze()
	return &ObjectGraph{g: g}, nil
}

// Node returns the object with the given name.
func (og *ObjectGraph) Node(name string) (*ObjectNode, bool) { return og.g.Node(name) }

// Nodes returns every object name, sorted.
func (og *ObjectGraph) Nodes() []string { return og.g.Nodes() }

// HasObject reports whether name is a declared object.
func (og *ObjectGraph) HasObject(name string) bool { return og.g.HasNode(name) }

// HasProperty reports whether obj declares prop.
func (og *ObjectGraph) HasProperty(obj, prop string) bool {
	n, ok := og.g.Node(obj)
	if !ok {
		return false
	}
	for _, p := range n.Properties {
		if p == prop {
			return true
		}
	}
	return false
}

// HasQualifiedProperty reports whether "object.property" resolves to a
// declared property, as referenced from a tree node's condition (e.g.
// cond=(srv.exposed)).
func (og *ObjectGraph) HasQualifiedProperty(qualified string) bool {
	idx := strings.LastIndex(qualified, ".")
	if idx < 0 {
		return false
	}
	return og.HasProperty(qualified[:idx], qualified[idx+1:])
}

// AllQualifiedProperties returns every "object.property" name in the
// graph, sorted; this is the OP partition of the variable universe
// (spec.md §2).
func (og *ObjectGraph) AllQualifiedProperties() []string {
	var out []string
	for _, id := range og.g.Nodes() {
		n := og.g.MustNode(id)
		for _, p := range n.Properties {
			out = append(out, id+"."+p)
		}
	}
	sort.Strings(out)
	return out
}
