// Package oerrors defines the typed error hierarchy shared by model
// construction, evidence handling and query evaluation. It mirrors the
// exception hierarchy of original_source/odf/models/exceptions.py,
// odf/checker/exceptions.py and odf/transformers/exceptions.py: a common
// base, and a handful of concrete cases each layer can test for with
// errors.As instead of string matching.
package oerrors

import "fmt"

// Base is embedded, directly or through MalformedTreeError or
// ConfigurationError, by every error type in this package and supplies
// its Error method. errors.As matches the concrete error types, not Base.
type Base struct {
	msg string
}

func (e *Base) Error() string { return e.msg }

// MalformedTreeError reports a structural defect in an attack or fault
// tree discovered at load time.
type MalformedTreeError struct {
	Base
	Tree string
}

func NewMalformedTreeError(tree, format string, args ...any) *MalformedTreeError {
	e := &MalformedTreeError{Tree: tree}
	e.msg = fmt.Sprintf("%s tree: %s", tree, fmt.Sprintf(format, args...))
	return e
}

// NotAcyclicError: the tree contains a cycle.
type NotAcyclicError struct{ *MalformedTreeError }

func NewNotAcyclicError(tree, offender string) *NotAcyclicError {
	return &NotAcyclicError{NewMalformedTreeError(tree, "cycle detected through node %q", offender)}
}

// NotConnectedError: the tree is not weakly connected.
type NotConnectedError struct{ *MalformedTreeError }

func NewNotConnectedError(tree string) *NotConnectedError {
	return &NotConnectedError{NewMalformedTreeError(tree, "graph is not weakly connected")}
}

// NotExactlyOneRootError: zero or more than one `toplevel` node declared.
type NotExactlyOneRootError struct {
	*MalformedTreeError
	Roots []string
}

func NewNotExactlyOneRootError(tree string, roots []string) *NotExactlyOneRootError {
	return &NotExactlyOneRootError{
		MalformedTreeError: NewMalformedTreeError(tree, "expected exactly one toplevel node, found %v", roots),
		Roots:              roots,
	}
}

// DuplicateNodeDefinitionError: the same node name declared twice.
type DuplicateNodeDefinitionError struct {
	*MalformedTreeError
	Name string
}

func NewDuplicateNodeDefinitionError(tree, name string) *DuplicateNodeDefinitionError {
	return &DuplicateNodeDefinitionError{
		MalformedTreeError: NewMalformedTreeError(tree, "node %q declared more than once", name),
		Name:               name,
	}
}

// DuplicateObjectDefinitionError: the same object name declared twice in
// the object graph.
type DuplicateObjectDefinitionError struct {
	Base
	Name string
}

func NewDuplicateObjectDefinitionError(name string) *DuplicateObjectDefinitionError {
	e := &DuplicateObjectDefinitionError{Name: name}
	e.msg = fmt.Sprintf("object graph: object %q declared more than once", name)
	return e
}

// DuplicateObjectPropertyError: the same property name declared twice on
// one object.
type DuplicateObjectPropertyError struct {
	Base
	Object, Property string
}

func NewDuplicateObjectPropertyError(object, property string) *DuplicateObjectPropertyError {
	e := &DuplicateObjectPropertyError{Object: object, Property: property}
	e.msg = fmt.Sprintf("object %q: property %q declared more than once", object, property)
	return e
}

// CrossReferenceError: a name used in one structure does not resolve in
// another (an object name on a tree node, a property name in a
// condition, a duplicate name shared between the attack tree, fault tree
// and object graph).
type CrossReferenceError struct {
	Base
	Name string
}

func NewCrossReferenceError(name, format string, args ...any) *CrossReferenceError {
	e := &CrossReferenceError{Name: name}
	e.msg = fmt.Sprintf(format, args...)
	return e
}

// MissingNodeProbabilityError: a node participates in a probabilistic
// evaluation (Layer 2/3) but has no declared probability and no evidence
// supplies one.
type MissingNodeProbabilityError struct {
	Base
	Node string
}

func NewMissingNodeProbabilityError(node string) *MissingNodeProbabilityError {
	e := &MissingNodeProbabilityError{Node: node}
	e.msg = fmt.Sprintf("node %q has no declared probability", node)
	return e
}

// ConfigurationError: a Layer 1 or Layer 2 query's configuration is
// invalid for the formula it accompanies.
type ConfigurationError struct {
	Base
}

func NewConfigurationError(format string, args ...any) *ConfigurationError {
	e := &ConfigurationError{}
	e.msg = fmt.Sprintf(format, args...)
	return e
}

// MissingConfigurationError: the configuration omits a variable the
// formula depends on (an object property in Layer 2; in Layer 1 any
// variable in the compiled formula's support, events included).
type MissingConfigurationError struct {
	*ConfigurationError
	Property string
}

func NewMissingConfigurationError(property string) *MissingConfigurationError {
	return &MissingConfigurationError{
		ConfigurationError: NewConfigurationError("configuration is missing a value for %q", property),
		Property:           property,
	}
}

// EvidenceScopeError: evidence was declared on a node that is not a
// module, or not a descendant of the node the enclosing evidence scope
// was bound to.
type EvidenceScopeError struct {
	Base
	Node string
}

func NewEvidenceScopeError(node, format string, args ...any) *EvidenceScopeError {
	e := &EvidenceScopeError{Node: node}
	e.msg = fmt.Sprintf(format, args...)
	return e
}

// MissingNodeImpactError: a most_risky query reached a participant node
// that declares no impact.
type MissingNodeImpactError struct {
	Base
	Node string
	Tree string
}

func NewMissingNodeImpactError(node, tree string) *MissingNodeImpactError {
	e := &MissingNodeImpactError{Node: node, Tree: tree}
	e.msg = fmt.Sprintf("%s tree: node %q has no declared impact", tree, node)
	return e
}

// QueryError wraps any error produced while evaluating a single query, so
// that callers processing a file of many queries can report-and-continue
// per spec.md's per-query error isolation rule.
type QueryError struct {
	Base
	Index int
	Err   error
}

func NewQueryError(index int, err error) *QueryError {
	return &QueryError{Base: Base{msg: fmt.Sprintf("query %d: %v", index, err)}, Index: index, Err: err}
}

func (e *QueryError) Unwrap() error { return e.Err }
