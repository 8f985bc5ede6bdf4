// Package core provides a minimal, concurrency-safe directed-acyclic-graph
// substrate shared by the attack tree, fault tree and object graph. It knows
// nothing about gates, probabilities or properties: those live in model.
package core

import "errors"

// Sentinel errors for graph operations, in the style of a small composable
// library: callers are expected to compare with errors.Is.
var (
	// ErrEmptyNodeID indicates a node was added or looked up with an empty ID.
	ErrEmptyNodeID = errors.New("core: node ID is empty")

	// ErrNodeNotFound indicates an operation referenced a node absent from the graph.
	ErrNodeNotFound = errors.New("core: node not found")

	// ErrNodeExists indicates an attempt to add a node whose ID is already present.
	ErrNodeExists = errors.New("core: node already exists")

	// ErrEdgeExists indicates an attempt to add a parallel edge; the substrate
	// does not support multi-edges.
	ErrEdgeExists = errors.New("core: edge already exists")

	// ErrSelfLoop indicates an edge from a node to itself, which disruption
	// trees and object graphs never contain.
	ErrSelfLoop = errors.New("core: self-loop not allowed")

	// ErrCyclic indicates the graph contains a cycle where one was expected
	// to be acyclic.
	ErrCyclic = errors.New("core: graph is not acyclic")
)
