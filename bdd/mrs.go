package bdd

import (
	"fmt"
	"sort"

	"github.com/dalzilio/rudd"
)

// mrs implements the minimal-risk-scenarios operator, grounded on
// Layer1BDDInterpreter.mrs in
// original_source/odf/checker/layer1/layer1_bdd.py. It primes every
// non-object-property variable in formula's support with a fresh
// variable, builds the "one strictly smaller satisfying assignment
// exists" formula over the primed copy, and conjoins its negation onto
// formula so that only minimal (prime-implicant) satisfying
// assignments survive.
//
// rudd exposes no variable-renaming primitive in its documented
// interface, so primedFormula is built with the identity
// ∃x.(f ∧ (x ↔ y)) = f[x := y] for a fresh variable y, applied once per
// renamed variable via AppEx (Apply+Exist in one call).
func (c *compiler) mrs(formula rudd.Node) (rudd.Node, error) {
	c.mrsPrime++

	supportIdx, err := support(c.mgr, formula)
	if err != nil {
		return nil, err
	}

	var varsNonOP []int
	for _, vi := range supportIdx {
		if !c.mgr.IsObjectProperty(c.mgr.order[vi]) {
			varsNonOP = append(varsNonOP, vi)
		}
	}
	if len(varsNonOP) == 0 {
		return formula, nil
	}
	sort.Ints(varsNonOP)

	base := len(c.mgr.order)
	primeIdx := make([]int, len(varsNonOP))
	primeNames := make([]string, len(varsNonOP))
	for i, vi := range varsNonOP {
		primeNames[i] = fmt.Sprintf("%s'%d", c.mgr.order[vi], c.mrsPrime)
		primeIdx[i] = base + i
	}
	if err := c.mgr.BDD.SetVarnum(base + len(varsNonOP)); err != nil {
		return nil, fmt.Errorf("bdd: mrs: growing variable count: %w", err)
	}
	for i, name := range primeNames {
		c.mgr.varIndex[name] = primeIdx[i]
	}
	c.mgr.order = append(c.mgr.order, primeNames...)

	primedFormula := formula
	for i, vi := range varsNonOP {
		xVar := c.mgr.BDD.Ithvar(vi)
		yVar := c.mgr.BDD.Ithvar(primeIdx[i])
		biimp := c.mgr.BDD.Apply(xVar, yVar, rudd.OPbiimp)
		varset := c.mgr.BDD.Makeset([]int{vi})
		primedFormula = c.mgr.BDD.AppEx(primedFormula, biimp, rudd.OPand, varset)
	}

	implications := c.mgr.BDD.True()
	xorTerms := c.mgr.BDD.False()
	for i, vi := range varsNonOP {
		xVar := c.mgr.BDD.Ithvar(vi)
		yVar := c.mgr.BDD.Ithvar(primeIdx[i])
		impl := c.mgr.BDD.Apply(yVar, xVar, rudd.OPimp)
		implications = c.mgr.BDD.Apply(implications, impl, rudd.OPand)
		xorTerm := c.mgr.BDD.Apply(yVar, xVar, rudd.OPxor)
		xorTerms = c.mgr.BDD.Apply(xorTerms, xorTerm, rudd.OPor)
	}
	primesSubset := c.mgr.BDD.Apply(implications, xorTerms, rudd.OPand)

	conj := c.mgr.BDD.Apply(primesSubset, primedFormula, rudd.OPand)
	existSet := c.mgr.BDD.Makeset(primeIdx)
	existsSmaller := c.mgr.BDD.Exist(conj, existSet)

	return c.mgr.BDD.Apply(formula, c.mgr.BDD.Not(existsSmaller), rudd.OPand), nil
}

// Support returns the sorted set of declared variable names the BDD
// rooted at node actually depends on. Exported for callers (the risk
// engine's most_risky) that need to intersect a node's support with an
// evidence or configuration map before applying it.
func Support(mgr *Manager, node rudd.Node) ([]string, error) {
	idx, err := support(mgr, node)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(idx))
	for i, vi := range idx {
		out[i] = mgr.order[vi]
	}
	return out, nil
}

// support returns the sorted set of declared variable indices the BDD
// rooted at node actually depends on, found by walking the node table
// reachable from node via Allnodes. Terminal nodes (id 0 and 1, per
// rudd's documented convention for False/True) are skipped.
func support(mgr *Manager, node rudd.Node) ([]int, error) {
	seen := make(map[int]struct{})
	err := mgr.BDD.Allnodes(func(id, level, low, high int) error {
		if id > 1 {
			seen[level] = struct{}{}
		}
		return nil
	}, node)
	if err != nil {
		return nil, fmt.Errorf("bdd: computing support: %w", err)
	}
	out := make([]int, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Ints(out)
	return out, nil
}
