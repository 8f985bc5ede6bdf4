package astdfl

import "math/big"

// GateKind is the gate of an internal disruption-tree node.
type GateKind int

const (
	// GateNone marks a node with no gate statement yet (attributes-only
	// statements may arrive before or after the gate statement; they are
	// merged by model.BuildDisruptionTree the way
	// original_source/odf/models/disruption_tree.py's DTNode.update_from_attrs
	// merges partial attribute sets).
	GateNone GateKind = iota
	GateAnd
	GateOr
)

func (k GateKind) String() string {
	switch k {
	case GateAnd:
		return "and"
	case GateOr:
		return "or"
	default:
		return ""
	}
}

// TreeStmt is one statement from an attack-tree or fault-tree section:
//
//	toplevel X;
//	N and A B C;
//	N or A B C;
//	N prob=<rational> impact=<rational> objects=[...] cond=(<bool-expr>);
//
// A single node's full declaration may be spread across more than one
// statement; callers accumulate TreeStmt values per node name.
type TreeStmt struct {
	Name string

	Toplevel bool

	// Gate/Children are set together by a `N and/or ...;` statement.
	Gate     GateKind
	Children []string

	// Attribute fields, nil/zero when absent from this particular statement.
	Prob     *big.Rat
	Impact   *big.Rat
	Objects  []string
	Cond     Expr
	HasAttrs bool
}

// ObjectStmt is one statement from the object-graph section:
//
//	O has A B;
//	O properties=[p1, p2];
type ObjectStmt struct {
	Name string

	HasEdges []string // from `O has A B;`

	HasProps   bool
	Properties []string // from `O properties=[...];`
}

// ParsedFile is the result of parsing an entire DFL source file: the four
// labeled sections of spec.md §6.
type ParsedFile struct {
	AttackStmts  []TreeStmt
	FaultStmts   []TreeStmt
	ObjectStmts  []ObjectStmt
	FormulaStmts []Query
}
