// Package query implements the Layer 1/2/3 dispatch (spec.md's top-level
// control flow): it takes a parsed, model-checked file and evaluates
// every formula statement against the model, ties a query's Layer 2
// ProbFormula leaves and Layer 3 object queries into the prob and risk
// packages, and isolates failures per query so that one bad formula
// never prevents the rest of the file from being evaluated. Grounded on
// original_source/odf/checker/checker.py's check_formulas dispatch,
// check_layer1.py's layer1_check, check_layer2.py's Layer2Transformer,
// and check_layer3.py's check_layer3_query.
package query

import (
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/dflrisk/odfengine/astdfl"
	"github.com/dflrisk/odfengine/bdd"
	"github.com/dflrisk/odfengine/model"
	"github.com/dflrisk/odfengine/oerrors"
	"github.com/dflrisk/odfengine/prob"
	"github.com/dflrisk/odfengine/risk"
)

// Outcome is the result of evaluating one formula statement: either a
// non-nil Err (the query failed, per-query isolated) or a human-facing
// Result line plus any operational Warnings.
type Outcome struct {
	Index    int
	Text     string
	Result   string
	Warnings []string
	Err      error
}

// Run evaluates every query in pf.FormulaStmts against m, in order. A
// failing query is recorded as an Outcome with a non-nil Err (wrapped in
// oerrors.QueryError) and evaluation continues with the next query, per
// spec.md §7's "per-query errors do not poison subsequent queries" rule.
func Run(m *model.Model, pf *astdfl.ParsedFile) []Outcome {
	outcomes := make([]Outcome, len(pf.FormulaStmts))
	for i, q := range pf.FormulaStmts {
		text := astdfl.Reconstruct(q)
		result, warnings, err := evalQuery(m, q)
		if err != nil {
			err = oerrors.NewQueryError(i, err)
		}
		outcomes[i] = Outcome{Index: i, Text: text, Result: result, Warnings: warnings, Err: err}
	}
	return outcomes
}

func evalQuery(m *model.Model, q astdfl.Query) (string, []string, error) {
	switch v := q.(type) {
	case astdfl.Layer1Query:
		return evalLayer1(m, v)
	case astdfl.Layer2Query:
		return evalLayer2(m, v)
	case astdfl.Layer3Query:
		return evalLayer3(m, v)
	default:
		return "", nil, fmt.Errorf("query: %T is not a recognized query type", q)
	}
}

// ExitCode classifies outcomes into the CLI exit-code scheme of spec.md
// §6.3 (1 parse, 2 cross-reference, 3 semantic), taking the worst
// (highest) code seen across every query. Returns 0 if every query
// succeeded. Parse errors never reach here: they abort before Run is
// ever called.
func ExitCode(outcomes []Outcome) int {
	code := 0
	for _, o := range outcomes {
		if o.Err == nil {
			continue
		}
		if c := ClassifyError(o.Err); c > code {
			code = c
		}
	}
	return code
}

// ClassifyError maps any error produced while loading or evaluating a
// file to spec.md §6.3's exit-code scheme (2 cross-reference, 3
// semantic); err must be non-nil. cmd/odfq also uses this directly to
// classify model.Build errors, which happen before Run is ever called.
func ClassifyError(err error) int {
	var crossRef *oerrors.CrossReferenceError
	var malformed *oerrors.MalformedTreeError
	var notAcyclic *oerrors.NotAcyclicError
	var notConnected *oerrors.NotConnectedError
	var rootCount *oerrors.NotExactlyOneRootError
	var duplicate *oerrors.DuplicateNodeDefinitionError
	if errors.As(err, &crossRef) || errors.As(err, &malformed) ||
		errors.As(err, &notAcyclic) || errors.As(err, &notConnected) ||
		errors.As(err, &rootCount) || errors.As(err, &duplicate) {
		return 2
	}
	return 3
}

// evalLayer1 implements layer1_check: compile the formula, require the
// configuration to cover every variable the compiled BDD's support
// touches, warn about (and ignore) configuration entries for variables
// the formula never declared, then fully restrict and read off true/false.
func evalLayer1(m *model.Model, q astdfl.Layer1Query) (string, []string, error) {
	compiled, err := bdd.Compile(m, q.Formula)
	if err != nil {
		return "", nil, err
	}
	mgr := compiled.Manager

	support, err := bdd.Support(mgr, compiled.Root)
	if err != nil {
		return "", nil, err
	}

	var warnings []string
	var missing []string
	var mappings []astdfl.BoolMapping
	for _, name := range support {
		v, ok := q.Config[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		mappings = append(mappings, astdfl.BoolMapping{Name: name, Value: v})
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return "", nil, oerrors.NewMissingConfigurationError(missing[0])
	}

	declared := declaredVars(mgr)
	var ignored []string
	for name := range q.Config {
		if _, ok := declared[name]; !ok {
			ignored = append(ignored, name)
		}
	}
	if len(ignored) > 0 {
		sort.Strings(ignored)
		warnings = append(warnings, fmt.Sprintf("configuration entries not used by this formula, ignored: %s", strings.Join(ignored, ", ")))
	}

	node, err := bdd.Restrict(mgr, compiled.Root, mappings)
	if err != nil {
		return "", nil, err
	}
	res := mgr.IsTrue(node)
	return fmt.Sprintf("Result: %t", res), warnings, nil
}

func declaredVars(mgr *bdd.Manager) map[string]struct{} {
	out := make(map[string]struct{}, len(mgr.Vars.ObjectProperties)+len(mgr.Vars.FaultNodes)+len(mgr.Vars.AttackNodes))
	for name := range mgr.Vars.ObjectProperties {
		out[name] = struct{}{}
	}
	for name := range mgr.Vars.FaultNodes {
		out[name] = struct{}{}
	}
	for name := range mgr.Vars.AttackNodes {
		out[name] = struct{}{}
	}
	return out
}

// evalLayer2 implements check_layer2_query/Layer2Transformer: drop
// configuration entries that do not name an object property (warning),
// evaluate the boolean tree of ProbFormula leaves, then warn about
// configuration entries no leaf actually used.
func evalLayer2(m *model.Model, q astdfl.Layer2Query) (string, []string, error) {
	var warnings []string

	config := make(astdfl.Configuration, len(q.Config))
	var nonOP []string
	for name, v := range q.Config {
		if !m.Objects.HasQualifiedProperty(name) {
			nonOP = append(nonOP, name)
			continue
		}
		config[name] = v
	}
	if len(nonOP) > 0 {
		sort.Strings(nonOP)
		warnings = append(warnings, fmt.Sprintf("configuration entries are not object properties, ignored: %s", strings.Join(nonOP, ", ")))
	}

	used := make(map[string]struct{})
	res, probText, err := evalLayer2Expr(m, q.Formula, config, used, &warnings)
	if err != nil {
		return "", nil, err
	}

	var surplus []string
	for name := range config {
		if _, ok := used[name]; !ok {
			surplus = append(surplus, name)
		}
	}
	if len(surplus) > 0 {
		sort.Strings(surplus)
		warnings = append(warnings, fmt.Sprintf("configuration entries are not used in this formula: %s", strings.Join(surplus, ", ")))
	}

	if probText != "" {
		return fmt.Sprintf("Result: %t (%s)", res, probText), warnings, nil
	}
	return fmt.Sprintf("Result: %t", res), warnings, nil
}

// evalLayer2Expr evaluates e's boolean value under config. probText
// carries the last evaluated leaf's probability verdict for a
// single-leaf formula's header (cosmetic only, mirrors the original's
// "INFO: Probability: ..." line); composite formulas leave it blank.
func evalLayer2Expr(m *model.Model, e astdfl.Expr, config astdfl.Configuration, used map[string]struct{}, warnings *[]string) (bool, string, error) {
	switch n := e.(type) {
	case astdfl.ProbFormula:
		return evalProbFormula(m, n, config, used)
	case astdfl.Not:
		v, _, err := evalLayer2Expr(m, n.X, config, used, warnings)
		if err != nil {
			return false, "", err
		}
		return !v, "", nil
	case astdfl.And:
		l, _, err := evalLayer2Expr(m, n.L, config, used, warnings)
		if err != nil {
			return false, "", err
		}
		r, _, err := evalLayer2Expr(m, n.R, config, used, warnings)
		if err != nil {
			return false, "", err
		}
		return l && r, "", nil
	case astdfl.Or:
		l, _, err := evalLayer2Expr(m, n.L, config, used, warnings)
		if err != nil {
			return false, "", err
		}
		r, _, err := evalLayer2Expr(m, n.R, config, used, warnings)
		if err != nil {
			return false, "", err
		}
		return l || r, "", nil
	case astdfl.Implies:
		l, _, err := evalLayer2Expr(m, n.L, config, used, warnings)
		if err != nil {
			return false, "", err
		}
		r, _, err := evalLayer2Expr(m, n.R, config, used, warnings)
		if err != nil {
			return false, "", err
		}
		return !l || r, "", nil
	case astdfl.Equiv:
		l, _, err := evalLayer2Expr(m, n.L, config, used, warnings)
		if err != nil {
			return false, "", err
		}
		r, _, err := evalLayer2Expr(m, n.R, config, used, warnings)
		if err != nil {
			return false, "", err
		}
		return l == r, "", nil
	case astdfl.Nequiv:
		l, _, err := evalLayer2Expr(m, n.L, config, used, warnings)
		if err != nil {
			return false, "", err
		}
		r, _, err := evalLayer2Expr(m, n.R, config, used, warnings)
		if err != nil {
			return false, "", err
		}
		return l != r, "", nil
	default:
		return false, "", fmt.Errorf("query: %T is not a Layer 2 boolean combinator", e)
	}
}

func evalProbFormula(m *model.Model, pf astdfl.ProbFormula, config astdfl.Configuration, used map[string]struct{}) (bool, string, error) {
	compiled, err := bdd.Compile(m, pf.Body)
	if err != nil {
		return false, "", err
	}
	mgr := compiled.Manager

	support, err := bdd.Support(mgr, compiled.Root)
	if err != nil {
		return false, "", err
	}
	var missing []string
	for _, name := range support {
		if !mgr.IsObjectProperty(name) {
			continue
		}
		if _, ok := config[name]; !ok {
			missing = append(missing, name)
			continue
		}
		used[name] = struct{}{}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return false, "", oerrors.NewMissingConfigurationError(missing[0])
	}

	evidence := prob.CollectEvidence(pf)
	p, err := prob.Eval(m, mgr, compiled.Root, config, evidence)
	if err != nil {
		return false, "", err
	}

	verdict, err := compareRat(p, pf.Relation, pf.Threshold)
	if err != nil {
		return false, "", err
	}
	return verdict, fmt.Sprintf("P(...) = %s %s %s", p.RatString(), pf.Relation, pf.Threshold.RatString()), nil
}

func compareRat(p *big.Rat, relation string, threshold *big.Rat) (bool, error) {
	c := p.Cmp(threshold)
	switch relation {
	case "<":
		return c < 0, nil
	case "<=":
		return c <= 0, nil
	case "==":
		return c == 0, nil
	case ">=":
		return c >= 0, nil
	case ">":
		return c > 0, nil
	case "!=":
		return c != 0, nil
	default:
		return false, fmt.Errorf("query: invalid probability relation %q", relation)
	}
}

// evalLayer3 dispatches a Layer 3 query to the risk engine and formats
// its result, per check_layer3_query's match over formula_type.
func evalLayer3(m *model.Model, q astdfl.Layer3Query) (string, []string, error) {
	switch q.Kind {
	case astdfl.MostRiskyA:
		result, warnings, err := risk.MostRisky(m, m.Attack, q.Object, q.Evidence)
		if err != nil {
			return "", nil, err
		}
		if result == nil {
			return "Result: no attack participants for this object", warnings, nil
		}
		return fmt.Sprintf("Result: most risky attack node is %q (risk %s)", result.Node, result.Risk.RatString()), warnings, nil

	case astdfl.MostRiskyF:
		result, warnings, err := risk.MostRisky(m, m.Fault, q.Object, q.Evidence)
		if err != nil {
			return "", nil, err
		}
		if result == nil {
			return "Result: no fault participants for this object", warnings, nil
		}
		return fmt.Sprintf("Result: most risky fault node is %q (risk %s)", result.Node, result.Risk.RatString()), warnings, nil

	case astdfl.MaxTotalRisk:
		value, warnings, err := risk.TotalRisk(m, q.Object, risk.Max, q.Evidence)
		if err != nil {
			return "", nil, err
		}
		if value == nil {
			return "Result: no participants for this object", warnings, nil
		}
		return fmt.Sprintf("Result: max total risk is %s", value.RatString()), warnings, nil

	case astdfl.MinTotalRisk:
		value, warnings, err := risk.TotalRisk(m, q.Object, risk.Min, q.Evidence)
		if err != nil {
			return "", nil, err
		}
		if value == nil {
			return "Result: no participants for this object", warnings, nil
		}
		return fmt.Sprintf("Result: min total risk is %s", value.RatString()), warnings, nil

	case astdfl.OptimalConf:
		paths, minValue, warnings, err := risk.OptimalConf(m, q.Object, q.Evidence)
		if err != nil {
			return "", nil, err
		}
		if minValue == nil {
			return "Result: no participants for this object", warnings, nil
		}
		return fmt.Sprintf("Result: minimal risk %s achieved by %d configuration(s): %s", minValue.RatString(), len(paths), formatPaths(paths)), warnings, nil

	default:
		return "", nil, fmt.Errorf("query: unrecognized Layer 3 query kind %v", q.Kind)
	}
}

func formatPaths(paths []risk.Path) string {
	rendered := make([]string, len(paths))
	for i, path := range paths {
		names := make([]string, 0, len(path))
		for name := range path {
			names = append(names, name)
		}
		sort.Strings(names)
		parts := make([]string, len(names))
		for j, name := range names {
			parts[j] = fmt.Sprintf("%s=%t", name, path[name])
		}
		rendered[i] = "{" + strings.Join(parts, ", ") + "}"
	}
	return strings.Join(rendered, ", ")
}
