// Package odfengine evaluates Disruption Formula Language (DFL) queries
// against attack trees, fault trees and object graphs.
//
// A DFL source file declares three structures — an attack tree, a fault
// tree and an object graph — then a formulas block of queries against
// them. Queries come in three layers:
//
//	Layer 1 — boolean:       is this formula satisfied under a configuration?
//	Layer 2 — probabilistic: does a sub-formula's probability meet a threshold?
//	Layer 3 — risk:          which participant, or configuration, is riskiest?
//
// Under the hood:
//
//	core/      — the generic DAG substrate trees and the object graph sit on
//	model/     — disruption trees, object graph, load-time validation
//	astdfl/    — the DFL lexer, parser and AST
//	descent/   — pre-pass over a formula's evidence scopes and variable set
//	bdd/       — compiles a boolean formula into a BDD (github.com/dalzilio/rudd)
//	dfskernel/ — traversal kernel shared by Layer 2/3 evaluation
//	prob/      — Layer 2's probability evaluator
//	risk/      — Layer 3's risk engine and rational-terminal ADD
//	query/     — dispatches and isolates each query in a file
//	oerrors/   — the typed error hierarchy
//	config/    — engine-wide (non-DFL) configuration
//	obslog/    — structured logging
//	cmd/odfq/  — the command-line entry point
package odfengine
