// Package ast defines the abstract syntax tree produced by the parser and
// annotated by the resolver and checker.  All node kinds are tagged variants:
// traversal is a single dispatch on the concrete type.
package ast

import "github.com/kennedyshead/prove/report"

// Node is the abstract interface for all AST nodes.
type Node interface {
	// Span returns the source span of the node.
	Span() report.Span
}

// NodeBase is a utility base struct embedded by all AST nodes.
type NodeBase struct {
	span report.Span
}

// NewNodeBaseOn creates a node base with the given span.
func NewNodeBaseOn(span report.Span) NodeBase {
	return NodeBase{span: span}
}

// NewNodeBaseOver creates a node base spanning from the start of one span to
// the end of another.
func NewNodeBaseOver(start, end report.Span) NodeBase {
	return NodeBase{span: report.SpanOver(start, end)}
}

func (nb NodeBase) Span() report.Span {
	return nb.span
}

// -----------------------------------------------------------------------------

// Module is a parsed source file: the narrative, imports, and top-level
// definitions in declaration order.
type Module struct {
	NodeBase

	// Name is the declared module name, or empty for an anonymous file.
	Name string

	// Narrative is the module-level narrative string, if declared.
	Narrative string

	// Temporal is the declared temporal step chain.  It is recorded but not
	// verified: temporal-ordering verification across call graphs is future
	// work.
	Temporal []string

	Imports []*ImportDecl

	// Defs holds every top-level definition in source order.
	Defs []Def
}

// Def is the interface for top-level definitions.
type Def interface {
	Node
	defNode()
}

// ImportDecl is a `with Module use …` declaration.  Imported names are
// grouped per verb.
type ImportDecl struct {
	NodeBase

	// ModuleName is the source module being imported from.
	ModuleName string

	Groups []ImportGroup
}

// ImportGroup is one verb-qualified group of imported names.  The verb is
// empty for unqualified names and the literal "types" for type imports.
type ImportGroup struct {
	Verb  string
	Names []string
	Spans []report.Span
}
