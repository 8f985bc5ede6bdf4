package risk

import (
	"fmt"
	"math/big"
	"sort"

	"github.com/dalzilio/rudd"

	"github.com/dflrisk/odfengine/astdfl"
	"github.com/dflrisk/odfengine/bdd"
	"github.com/dflrisk/odfengine/descent"
	"github.com/dflrisk/odfengine/dfskernel"
	"github.com/dflrisk/odfengine/model"
	"github.com/dflrisk/odfengine/oerrors"
	"github.com/dflrisk/odfengine/prob"
)

// Result is the winning participant node of a most_risky query.
type Result struct {
	Node string
	Risk *big.Rat
}

func nodeIsFalse(mgr *bdd.Manager, n rudd.Node) bool {
	return *n == *mgr.BDD.False()
}

// filterEvidence returns the subset of evidence whose Name is among
// support, matching check_layer3.py's needed_evidence intersection.
func filterEvidence(evidence []astdfl.BoolMapping, support []string) []astdfl.BoolMapping {
	inSupport := make(map[string]struct{}, len(support))
	for _, s := range support {
		inSupport[s] = struct{}{}
	}
	var out []astdfl.BoolMapping
	for _, bm := range evidence {
		if _, ok := inSupport[bm.Name]; ok {
			out = append(out, bm)
		}
	}
	return out
}

// MostRisky implements most_risky: for every participant node of object
// in tree, compile node_atom(participant) on its own fresh BDD manager,
// restrict it by whatever evidence applies to its support, and take the
// max over its config-reflection nodes of node_prob * impact. The
// participant with the largest such risk wins.
func MostRisky(m *model.Model, tree *model.DisruptionTree, object string, evidence []astdfl.BoolMapping) (*Result, []string, error) {
	participants := tree.Participants(object)
	if len(participants) == 0 {
		return nil, nil, nil
	}

	var warnings []string
	usedEvidence := make(map[string]struct{})

	var best *Result
	for _, name := range participants {
		n, ok := tree.Node(name)
		if !ok {
			continue
		}
		if n.Impact == nil {
			return nil, nil, oerrors.NewMissingNodeImpactError(name, tree.Kind)
		}

		compiled, err := bdd.Compile(m, astdfl.NodeAtom{Name: name})
		if err != nil {
			return nil, nil, err
		}
		mgr := compiled.Manager
		node := compiled.Root

		if nodeIsFalse(mgr, node) {
			warnings = append(warnings, fmt.Sprintf("node %q is not satisfiable", name))
			continue
		}

		support, err := bdd.Support(mgr, node)
		if err != nil {
			return nil, nil, err
		}
		needed := filterEvidence(evidence, support)
		if len(needed) > 0 {
			node, err = bdd.Restrict(mgr, node, needed)
			if err != nil {
				return nil, nil, err
			}
			for _, bm := range needed {
				usedEvidence[bm.Name] = struct{}{}
			}
		}
		if nodeIsFalse(mgr, node) {
			warnings = append(warnings, fmt.Sprintf("evidence made node %q unsatisfiable", name))
			continue
		}

		isOP := func(bn rudd.Node) bool { return mgr.IsObjectProperty(mgr.NameAt(bn)) }
		var localMax *big.Rat
		err = dfskernel.FindConfigReflectionNodes(mgr.BDD, node, isOP, func(cr rudd.Node) error {
			p, err := prob.NodeProb(m, mgr, cr, nil)
			if err != nil {
				return err
			}
			val := new(big.Rat).Mul(p, n.Impact)
			if localMax == nil || val.Cmp(localMax) > 0 {
				localMax = val
			}
			return nil
		})
		if err != nil {
			return nil, nil, err
		}
		if localMax == nil {
			continue
		}
		if best == nil || localMax.Cmp(best.Risk) > 0 {
			best = &Result{Node: name, Risk: localMax}
		}
	}

	for _, bm := range evidence {
		if _, ok := usedEvidence[bm.Name]; !ok {
			warnings = append(warnings, fmt.Sprintf("evidence on %q is not used in this formula", bm.Name))
		}
	}
	return best, warnings, nil
}

// buildObjectRiskADD sums the single-node risk MTBDD of every attack
// and fault participant of object onto one shared BDD manager, per
// spec.md §4.6's per-object risk MTBDD.
func buildObjectRiskADD(m *model.Model, object string, evidence []astdfl.BoolMapping) (*Node, *bdd.Manager, []string, error) {
	attackParticipants := m.Attack.Participants(object)
	faultParticipants := m.Fault.Participants(object)
	if len(attackParticipants) == 0 && len(faultParticipants) == 0 {
		return nil, nil, nil, nil
	}

	all := append(append([]string{}, attackParticipants...), faultParticipants...)
	sort.Strings(all)
	var unionExpr astdfl.Expr
	for _, name := range all {
		atom := astdfl.NodeAtom{Name: name}
		if unionExpr == nil {
			unionExpr = atom
		} else {
			unionExpr = astdfl.Or{L: unionExpr, R: atom}
		}
	}

	vars, err := descent.Collect(m, unionExpr)
	if err != nil {
		return nil, nil, nil, err
	}
	mgr, err := bdd.NewManager(vars)
	if err != nil {
		return nil, nil, nil, err
	}

	var warnings []string
	usedEvidence := make(map[string]struct{})
	summed := Terminal(big.NewRat(0, 1))

	process := func(tree *model.DisruptionTree, name string) error {
		n, ok := tree.Node(name)
		if !ok {
			return nil
		}
		if n.Impact == nil {
			return oerrors.NewMissingNodeImpactError(name, tree.Kind)
		}
		compiled, err := bdd.CompileWith(mgr, m, astdfl.NodeAtom{Name: name})
		if err != nil {
			return err
		}
		node := compiled.Root
		if nodeIsFalse(mgr, node) {
			warnings = append(warnings, fmt.Sprintf("node %q is not satisfiable", name))
			return nil
		}

		support, err := bdd.Support(mgr, node)
		if err != nil {
			return err
		}
		needed := filterEvidence(evidence, support)
		if len(needed) > 0 {
			node, err = bdd.Restrict(mgr, node, needed)
			if err != nil {
				return err
			}
			for _, bm := range needed {
				usedEvidence[bm.Name] = struct{}{}
			}
		}
		if nodeIsFalse(mgr, node) {
			warnings = append(warnings, fmt.Sprintf("evidence made node %q unsatisfiable", name))
			return nil
		}

		riskNode, err := BuildRisk(m, mgr, node, n.Impact)
		if err != nil {
			return err
		}
		summed = Apply(mgr, summed, riskNode, Add)
		return nil
	}

	for _, name := range attackParticipants {
		if err := process(m.Attack, name); err != nil {
			return nil, nil, nil, err
		}
	}
	for _, name := range faultParticipants {
		if err := process(m.Fault, name); err != nil {
			return nil, nil, nil, err
		}
	}

	for _, bm := range evidence {
		if _, ok := usedEvidence[bm.Name]; !ok {
			warnings = append(warnings, fmt.Sprintf("evidence on %q is not used in this formula", bm.Name))
		}
	}
	return summed, mgr, warnings, nil
}

// Agg is a numeric fold over an ADD's terminal values.
type Agg int

const (
	Min Agg = iota
	Max
	Sum
)

// TotalRisk implements total_risk(object, agg): build the per-object
// risk MTBDD, then fold its terminals with agg.
func TotalRisk(m *model.Model, object string, agg Agg, evidence []astdfl.BoolMapping) (*big.Rat, []string, error) {
	add, _, warnings, err := buildObjectRiskADD(m, object, evidence)
	if err != nil {
		return nil, nil, err
	}
	if add == nil {
		return nil, warnings, nil
	}

	values := Terminals(add)
	result := new(big.Rat).Set(values[0])
	for _, v := range values[1:] {
		switch agg {
		case Min:
			if v.Cmp(result) < 0 {
				result = v
			}
		case Max:
			if v.Cmp(result) > 0 {
				result = v
			}
		case Sum:
			result = new(big.Rat).Add(result, v)
		}
	}
	return result, warnings, nil
}

// OptimalConf implements optimal_conf(object): traverse the per-object
// risk MTBDD collecting every path to a minimum-valued terminal.
func OptimalConf(m *model.Model, object string, evidence []astdfl.BoolMapping) ([]Path, *big.Rat, []string, error) {
	add, _, warnings, err := buildObjectRiskADD(m, object, evidence)
	if err != nil {
		return nil, nil, nil, err
	}
	if add == nil {
		return nil, nil, warnings, nil
	}
	paths, minValue := PathsToMin(add)
	return paths, minValue, warnings, nil
}
