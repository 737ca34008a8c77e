package ast

import (
	"github.com/kennedyshead/prove/report"
	"github.com/kennedyshead/prove/symbols"
)

// Param is a single function parameter: a name, a type expression, and an
// optional inline `where` refinement.
type Param struct {
	Name     string
	NameSpan report.Span
	Type     TypeExpr

	// Where is the optional refinement constraint on the parameter.
	Where Expr

	// Sym is the parameter's symbol, set by the resolver.
	Sym *symbols.Symbol
}

// FuncDef is a verb-prefixed function definition.
type FuncDef struct {
	NodeBase

	// Verb is the declaring verb keyword: one of transforms, validates,
	// reads, creates, matches, inputs, outputs.
	Verb string

	Name     string
	NameSpan report.Span

	Params []*Param

	// ReturnType is nil when the return type is implicit (Boolean for
	// validates, Unit otherwise).
	ReturnType TypeExpr

	// CanFail is set when the signature carries the `!` fail marker.
	CanFail bool

	// Annots holds the annotations between the signature and `from`, in
	// source order.
	Annots []*Annot

	// Body is the statement sequence after `from`.  For `matches` (and
	// `inputs` over an algebraic first parameter) the body is a single
	// ExprStmt holding a Match with a nil subject.
	Body []Stmt

	Doc string

	// Sym is the function's symbol, set by the resolver.
	Sym *symbols.Symbol
}

func (*FuncDef) defNode() {}

// MainDef is the program entry point.
type MainDef struct {
	NodeBase

	ReturnType TypeExpr
	CanFail    bool
	Body       []Stmt
	Doc        string
}

func (*MainDef) defNode() {}

// TypeDef is a `type Name is …` definition.
type TypeDef struct {
	NodeBase

	Name     string
	NameSpan report.Span

	// TypeParams holds the generic parameter names, eg. `T` in `Stack<T>`.
	TypeParams []string

	Body TypeBody
	Doc  string

	Sym *symbols.Symbol
}

func (*TypeDef) defNode() {}

// ConstDef is a module-level constant definition (CONST_IDENT declaration).
type ConstDef struct {
	NodeBase

	Name     string
	NameSpan report.Span

	// Type is nil when the constant's type is inferred.
	Type  TypeExpr
	Value Expr

	Sym *symbols.Symbol
}

func (*ConstDef) defNode() {}

// ForeignBlock binds C functions from a named system library.
type ForeignBlock struct {
	NodeBase

	// Library is the library name as written, eg. "libm".
	Library string

	Funcs []*ForeignFunc
}

func (*ForeignBlock) defNode() {}

// ForeignFunc is a single C function binding inside a foreign block.
type ForeignFunc struct {
	NodeBase

	Name   string
	Params []*Param
	Return TypeExpr

	Sym *symbols.Symbol
}

// InvariantNetwork is a named set of cross-function invariant constraints.
// Networks are registered so `satisfies` can reference them; solving the
// network is future work.
type InvariantNetwork struct {
	NodeBase

	Name        string
	Constraints []Expr
}

func (*InvariantNetwork) defNode() {}

// -----------------------------------------------------------------------------

// Enumeration of annotation kinds.
const (
	AnnotRequires = iota
	AnnotEnsures
	AnnotTerminates
	AnnotTrusted
	AnnotKnow
	AnnotAssume
	AnnotBelieve
	AnnotWhyNot
	AnnotChosen
	AnnotNearMiss
	AnnotSatisfies
	AnnotIntent
	AnnotExplain
	AnnotProof
)

// Annot is a single function annotation.  The populated fields depend on the
// kind: contract kinds carry Expr, textual kinds carry Text, near_miss
// carries Input and Expected, satisfies carries Name, and explain/proof
// carry Rows.
type Annot struct {
	NodeBase

	Kind int

	Expr            Expr
	Text            string
	Name            string
	Input, Expected Expr
	Rows            []*AnnotRow
}

// AnnotRow is one row of an explain or proof block.  Proof rows carry the
// obligation name; explain rows have an empty name.  The text is preserved
// verbatim for the controlled-natural-language pass.
type AnnotRow struct {
	NodeBase

	Name string
	Text string
}
