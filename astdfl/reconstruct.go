package astdfl

import (
	"sort"
	"strconv"
	"strings"
)

// Reconstruct renders q back into DFL source text, for the CLI to print as
// a query's header. Grounded on original_source/odf/utils/reconstructor.py's
// FormulaReconstructor, collapsed to a single-line ("multiline=False") form.
func Reconstruct(q Query) string {
	switch v := q.(type) {
	case Layer1Query:
		conf := reconstructConfiguration(v.Config)
		if conf == "" {
			return ReconstructExpr(v.Formula)
		}
		return conf + " " + ReconstructExpr(v.Formula)
	case Layer2Query:
		conf := reconstructConfiguration(v.Config)
		if conf == "" {
			return ReconstructExpr(v.Formula)
		}
		return conf + " " + ReconstructExpr(v.Formula)
	case Layer3Query:
		inner := v.Kind.String() + "(" + v.Object + ")"
		if len(v.Evidence) == 0 {
			return inner
		}
		return "(" + inner + " " + reconstructBoolEvidence(v.Evidence) + ")"
	default:
		return "?"
	}
}

// ReconstructExpr renders e back into DFL formula syntax.
func ReconstructExpr(e Expr) string {
	switch v := e.(type) {
	case NodeAtom:
		return v.Name
	case Not:
		return "!" + ReconstructExpr(v.X)
	case And:
		return ReconstructExpr(v.L) + " && " + ReconstructExpr(v.R)
	case Or:
		return ReconstructExpr(v.L) + " || " + ReconstructExpr(v.R)
	case Implies:
		return ReconstructExpr(v.L) + " => " + ReconstructExpr(v.R)
	case Equiv:
		return ReconstructExpr(v.L) + " == " + ReconstructExpr(v.R)
	case Nequiv:
		return ReconstructExpr(v.L) + " != " + ReconstructExpr(v.R)
	case MRS:
		return "MRS(" + ReconstructExpr(v.Body) + ")"
	case WithBoolEvidence:
		return "(" + ReconstructExpr(v.Body) + " " + reconstructBoolEvidence(v.Evidence) + ")"
	case WithProbEvidence:
		return "(" + ReconstructExpr(v.Body) + " " + reconstructProbEvidence(v.Evidence) + ")"
	case ProbFormula:
		s := "P(" + ReconstructExpr(v.Body) + ") " + v.Relation + " " + v.Threshold.RatString()
		if len(v.Evidence) == 0 {
			return s
		}
		return s + " " + reconstructProbEvidence(v.Evidence)
	default:
		return "?"
	}
}

func reconstructConfiguration(config Configuration) string {
	if len(config) == 0 {
		return ""
	}
	names := make([]string, 0, len(config))
	for name := range config {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + ": " + strconv.FormatBool(config[name])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func reconstructBoolEvidence(evidence []BoolMapping) string {
	parts := make([]string, len(evidence))
	for i, bm := range evidence {
		parts[i] = bm.Name + ": " + strconv.FormatBool(bm.Value)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func reconstructProbEvidence(evidence []ProbMapping) string {
	parts := make([]string, len(evidence))
	for i, pm := range evidence {
		parts[i] = pm.Name + "=" + pm.Value.RatString()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
