package ast

import (
	"github.com/kennedyshead/prove/report"
	"github.com/kennedyshead/prove/symbols"
	"github.com/kennedyshead/prove/types"
)

// Expr is the interface implemented by all expression nodes.  Every typed
// expression carries a non-null type once the checker completes without
// errors.
type Expr interface {
	Node

	// Type is the yielded type of the expression.
	Type() types.Type

	// SetType sets the yielded type of the expression.
	SetType(types.Type)
}

// ExprBase is the base struct for all expressions.
type ExprBase struct {
	NodeBase

	typ types.Type
}

// NewExprBase creates an expression base with the given span.
func NewExprBase(span report.Span) ExprBase {
	return ExprBase{NodeBase: NewNodeBaseOn(span)}
}

func (eb *ExprBase) Type() types.Type {
	if eb.typ == nil {
		return types.Unknown
	}
	return eb.typ
}

func (eb *ExprBase) SetType(typ types.Type) {
	eb.typ = typ
}

// -----------------------------------------------------------------------------

// IntLit is an integer literal.  The value is parsed with underscores
// stripped; hex, binary, and octal forms are already decoded.
type IntLit struct {
	ExprBase

	Value int64
	Text  string
}

// DecimalLit is a decimal literal.
type DecimalLit struct {
	ExprBase

	Value float64
	Text  string
}

// BoolLit is `true` or `false`.
type BoolLit struct {
	ExprBase

	Value bool
}

// StringLit is a plain, triple, or raw string literal with escapes resolved.
type StringLit struct {
	ExprBase

	Value string
}

// InterpString is a format string: a sequence of literal and expression
// segments.
type InterpString struct {
	ExprBase

	// Parts alternates *StringLit segments and interpolated expressions.
	Parts []Expr
}

// RegexLit is a `/…/` regex literal.
type RegexLit struct {
	ExprBase

	Pattern string
}

// CharLit is a character literal.
type CharLit struct {
	ExprBase

	Value byte
}

// Identifier is a reference to a value by name.
type Identifier struct {
	ExprBase

	Name string

	// Sym is the resolved symbol, set by the resolver.  For call-site
	// identifiers with multiple verb-variants it is set by the checker once
	// context-aware resolution picks a candidate.
	Sym *symbols.Symbol
}

// TypeIdent is a reference to a type or variant constructor by name.
type TypeIdent struct {
	ExprBase

	Name string
	Sym  *symbols.Symbol
}

// Call is a function or constructor application.
type Call struct {
	ExprBase

	Func Expr
	Args []Expr
}

// FieldAccess is `root.field`.
type FieldAccess struct {
	ExprBase

	Root  Expr
	Field string
}

// Index is `list[i]`.
type Index struct {
	ExprBase

	Root    Expr
	Subject Expr
}

// Pipe is `lhs |> rhs`.  It desugars to a call at the typed-AST stage: the
// checker fills Desugared and all later stages read only that.
type Pipe struct {
	ExprBase

	Lhs, Rhs Expr

	Desugared *Call
}

// FailProp is the postfix `!` fail propagation.
type FailProp struct {
	ExprBase

	Operand Expr
}

// Lambda is a captureless anonymous function.  Lambdas may only appear as
// function arguments.
type Lambda struct {
	ExprBase

	Params     []string
	ParamSpans []report.Span
	Body       Expr

	// ParamSyms is filled by the resolver.
	ParamSyms []*symbols.Symbol
}

// Valid is the `valid f` / `valid f(x)` form: it binds or forces the
// validates variant of `f`.
type Valid struct {
	ExprBase

	Name string

	// Args is nil for the first-class reference form `valid f`.
	Args []Expr

	Sym *symbols.Symbol
}

// Match is a match expression.  A nil subject marks the implicit match body
// of a `matches` function (or an `inputs` over an algebraic first
// parameter); the checker binds the subject to the first parameter.
type Match struct {
	ExprBase

	Subject Expr
	Arms    []*MatchArm
}

// MatchArm is one `pattern => body` arm.
type MatchArm struct {
	NodeBase

	Pattern Pattern
	Body    []Stmt
}

// If is an if/else expression.  Branching with `if` is only legal inside
// comptime blocks; the checker rejects it elsewhere.
type If struct {
	ExprBase

	Cond Expr
	Then []Stmt
	Else []Stmt
}

// Binary is a binary operator application.
type Binary struct {
	ExprBase

	Op       string
	Lhs, Rhs Expr
}

// Unary is a prefix operator application (`!` or `-`).
type Unary struct {
	ExprBase

	Op      string
	Operand Expr
}

// ListLit is `[a, b, c]`.
type ListLit struct {
	ExprBase

	Elems []Expr
}

// Range is `lo..hi`.
type Range struct {
	ExprBase

	Lo, Hi Expr
}

// Comptime is a compile-time evaluated block.  It is the only context in
// which `if`/`else` is accepted.
type Comptime struct {
	ExprBase

	Body []Stmt
}

// -----------------------------------------------------------------------------

// Pattern is the interface implemented by all pattern nodes.
type Pattern interface {
	Node
	patternNode()
}

// VariantPattern matches one algebraic variant, destructuring its fields.
type VariantPattern struct {
	NodeBase

	Name   string
	Fields []Pattern

	Sym *symbols.Symbol
}

func (*VariantPattern) patternNode() {}

// WildcardPattern is `_`.
type WildcardPattern struct {
	NodeBase
}

func (*WildcardPattern) patternNode() {}

// LiteralPattern matches a literal value.
type LiteralPattern struct {
	NodeBase

	// Kind is the literal's token kind; Value is its lexed text.
	Kind  int
	Value string
}

func (*LiteralPattern) patternNode() {}

// BindingPattern binds the matched value to a fresh local.
type BindingPattern struct {
	NodeBase

	Name string
	Sym  *symbols.Symbol
}

func (*BindingPattern) patternNode() {}
