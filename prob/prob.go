// Package prob implements the probability evaluator (spec.md's C5):
// given a compiled boolean BDD, a configuration pinning some object
// properties, and an optional probability-evidence override for basic
// events, compute the exact rational probability of the formula under
// attacker-max / fault-expectation semantics. Grounded on
// original_source/odf/checker/layer2/check_layer2.py's l2_prob and
// calc_node_prob.
package prob

import (
	"math/big"

	"github.com/dalzilio/rudd"

	"github.com/dflrisk/odfengine/astdfl"
	"github.com/dflrisk/odfengine/bdd"
	"github.com/dflrisk/odfengine/dfskernel"
	"github.com/dflrisk/odfengine/model"
	"github.com/dflrisk/odfengine/oerrors"
)

// Evidence is the effective probability-evidence override in force for a
// node probability lookup: a basic event's probability in prob_evidence
// takes precedence over its declared Prob.
type Evidence map[string]*big.Rat

// Eval computes the exact probability of root under config, per
// eval_prob: step 1 fast-forwards through the OP prefix (variable order
// guarantees every OP decision a formula's support can reach precedes
// every F/A variable, so this is a single descent from root, not a
// search), step 2 hands off to NodeProb.
func Eval(m *model.Model, mgr *bdd.Manager, root rudd.Node, config astdfl.Configuration, evidence Evidence) (*big.Rat, error) {
	node := root
	for !dfskernel.IsTerminal(mgr.BDD, node) {
		name := mgr.NameAt(node)
		if !mgr.IsObjectProperty(name) {
			break
		}
		v, ok := config[name]
		if !ok {
			break
		}
		if v {
			node = mgr.BDD.High(node)
		} else {
			node = mgr.BDD.Low(node)
		}
	}
	return NodeProb(m, mgr, node, evidence)
}

// NodeProb runs C4 (dfskernel.Walk) in reverse-topological order over
// root, building a memo table of node id to probability. Base cases are
// the true/false terminals; every other node must resolve to a fault or
// attack tree node (object-property nodes must already have been
// fast-forwarded away by Eval — if one survives down here, the query's
// support/configuration invariant was violated upstream).
func NodeProb(m *model.Model, mgr *bdd.Manager, root rudd.Node, evidence Evidence) (*big.Rat, error) {
	probs := map[int]*big.Rat{
		*mgr.BDD.True():  big.NewRat(1, 1),
		*mgr.BDD.False(): big.NewRat(0, 1),
	}

	err := dfskernel.Walk(mgr.BDD, root, func(n rudd.Node) error {
		id := *n
		if _, ok := probs[id]; ok {
			return nil
		}

		name := mgr.NameAt(n)
		lowProb := probs[*mgr.BDD.Low(n)]
		highProb := probs[*mgr.BDD.High(n)]

		p, fault, err := effectiveProb(m, name, evidence)
		if err != nil {
			return err
		}

		one := big.NewRat(1, 1)
		if fault {
			notP := new(big.Rat).Sub(one, p)
			lo := new(big.Rat).Mul(lowProb, notP)
			hi := new(big.Rat).Mul(highProb, p)
			probs[id] = new(big.Rat).Add(lo, hi)
			return nil
		}

		hi := new(big.Rat).Mul(highProb, p)
		if lowProb.Cmp(hi) >= 0 {
			probs[id] = new(big.Rat).Set(lowProb)
		} else {
			probs[id] = new(big.Rat).Set(hi)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return probs[*root], nil
}

// effectiveProb resolves name's probability (the evidence override if
// present, else the declared Prob) and whether it is a fault (stochastic)
// variable as opposed to an attack (adversarial) one.
func effectiveProb(m *model.Model, name string, evidence Evidence) (*big.Rat, bool, error) {
	if evidence != nil {
		if p, ok := evidence[name]; ok {
			_, isFault := m.Fault.Node(name)
			return p, isFault, nil
		}
	}

	if n, ok := m.Fault.Node(name); ok {
		if n.Prob == nil {
			return nil, false, oerrors.NewMissingNodeProbabilityError(name)
		}
		return n.Prob, true, nil
	}
	if n, ok := m.Attack.Node(name); ok {
		if n.Prob == nil {
			return nil, false, oerrors.NewMissingNodeProbabilityError(name)
		}
		return n.Prob, false, nil
	}
	return nil, false, oerrors.NewMissingNodeProbabilityError(name)
}

// MergeEvidence composes prob-evidence scopes inner-shadows-outer, the
// same lexical rule package bdd's mergeEvidence applies to boolean
// evidence.
func MergeEvidence(outer Evidence, scope []astdfl.ProbMapping) Evidence {
	merged := make(Evidence, len(outer)+len(scope))
	for k, v := range outer {
		merged[k] = v
	}
	for _, pm := range scope {
		merged[pm.Name] = pm.Value
	}
	return merged
}
