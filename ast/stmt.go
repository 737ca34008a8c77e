package ast

import (
	"github.com/kennedyshead/prove/report"
	"github.com/kennedyshead/prove/symbols"
)

// Stmt is the interface implemented by all statement nodes.
type Stmt interface {
	Node
	stmtNode()
}

// VarDecl is `name as Type = expr`.  The type expression may be omitted, in
// which case the declared type is inferred from the initializer.
type VarDecl struct {
	NodeBase

	Name     string
	NameSpan report.Span

	// Type is nil when omitted.
	Type  TypeExpr
	Value Expr

	Sym *symbols.Symbol

	// NeedsCheck is set by the checker when the declared type is a
	// refinement the initializer does not statically satisfy: the emitter
	// inserts a runtime check at this site.
	NeedsCheck bool
}

func (*VarDecl) stmtNode() {}

// Assign is `name = expr`.  Assignment is only legal to identifiers whose
// declared type carries the Mutable modifier.
type Assign struct {
	NodeBase

	Name  string
	Value Expr

	Sym *symbols.Symbol
}

func (*Assign) stmtNode() {}

// ExprStmt wraps an expression used for its effect or as the body's terminal
// value.
type ExprStmt struct {
	NodeBase

	Expr Expr
}

func (*ExprStmt) stmtNode() {}

// -----------------------------------------------------------------------------

// TypeExpr is the interface implemented by syntactic type expressions.  The
// checker resolves these to canonical types.
type TypeExpr interface {
	Node
	typeExprNode()
}

// SimpleType is a bare type name.
type SimpleType struct {
	NodeBase

	Name string
}

func (*SimpleType) typeExprNode() {}

// GenericType is a type head applied to arguments: `Head<T, U>`.
type GenericType struct {
	NodeBase

	Name string
	Args []TypeExpr
}

func (*GenericType) typeExprNode() {}

// TypeModifier is one entry of a modifier axis list.
type TypeModifier struct {
	// Name is set for named modifiers (`Size:32`), empty for positional
	// ones (`Unsigned`).
	Name  string
	Value string
	Span  report.Span
}

// ModifiedType is `Head:[mod1 mod2 …]`.
type ModifiedType struct {
	NodeBase

	Name string
	Mods []TypeModifier
}

func (*ModifiedType) typeExprNode() {}

// -----------------------------------------------------------------------------

// TypeBody is the interface for the right-hand side of a `type … is`
// definition.
type TypeBody interface {
	Node
	typeBodyNode()
}

// FieldDef is a single named field in a record or variant.
type FieldDef struct {
	NodeBase

	Name string
	Type TypeExpr

	// Where is the optional field refinement.
	Where Expr
}

// RecordBody is a record type body: ordered named fields.
type RecordBody struct {
	NodeBase

	Fields []*FieldDef
}

func (*RecordBody) typeBodyNode() {}

// VariantDef is one declared variant of an algebraic type body.
type VariantDef struct {
	NodeBase

	Name   string
	Fields []*FieldDef
}

// AlgebraicBody is an algebraic type body: an ordered list of variants.
type AlgebraicBody struct {
	NodeBase

	Variants []*VariantDef
}

func (*AlgebraicBody) typeBodyNode() {}

// RefinementBody is a refinement type body: a base type expression plus a
// constraint over the refined value.
type RefinementBody struct {
	NodeBase

	Base       TypeExpr
	Constraint Expr
}

func (*RefinementBody) typeBodyNode() {}
