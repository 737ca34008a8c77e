// Package types defines the canonical semantic types of the Prove language
// and the operations the checker performs on them: equality, unification,
// refinement subsumption, and monomorphization bookkeeping.
package types

import (
	"sort"
	"strings"
)

// Type is the interface implemented by all canonical types.
type Type interface {
	// Repr returns the human-readable name used in diagnostics.
	Repr() string

	// equals compares two types for semantic equality.  Modifier ordering is
	// ignored; modifier content is not.
	equals(other Type) bool
}

// -----------------------------------------------------------------------------

// PrimitiveType is a built-in scalar type with a modifier bag.
type PrimitiveType struct {
	// Name is one of Integer, Decimal, Float, Boolean, String, Byte,
	// Character.
	Name string

	// Mods is the modifier bag, eg. ["Unsigned", "32"] or ["Arena"].  Each
	// modifier axis admits at most one modifier per instance.
	Mods []string
}

func (pt PrimitiveType) Repr() string {
	if len(pt.Mods) == 0 {
		return pt.Name
	}
	return pt.Name + ":[" + strings.Join(pt.Mods, " ") + "]"
}

func (pt PrimitiveType) equals(other Type) bool {
	opt, ok := other.(PrimitiveType)
	if !ok || pt.Name != opt.Name {
		return false
	}
	return modsEqual(pt.Mods, opt.Mods)
}

// HasMod reports whether the modifier bag contains the given modifier.
func (pt PrimitiveType) HasMod(mod string) bool {
	for _, m := range pt.Mods {
		if m == mod {
			return true
		}
	}
	return false
}

func modsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}

// Enumeration of modifier axes.  The checker rejects a modifier bag carrying
// two modifiers on the same axis.
const (
	AxisSize = iota
	AxisSign
	AxisStorage
	AxisEncoding
	AxisOther
)

// ModAxis classifies a modifier onto its axis.
func ModAxis(mod string) int {
	switch mod {
	case "8", "16", "32", "64":
		return AxisSize
	case "Unsigned", "Signed":
		return AxisSign
	case "Arena", "Mutable":
		return AxisStorage
	case "Ascii", "Utf8":
		return AxisEncoding
	default:
		return AxisOther
	}
}

// -----------------------------------------------------------------------------

// UnitType is the type of expressions evaluated for effect only.
type UnitType struct{}

func (UnitType) Repr() string { return "Unit" }

func (UnitType) equals(other Type) bool {
	_, ok := other.(UnitType)
	return ok
}

// NeverType is the type of expressions that do not produce a value, such as
// an early fail propagation.
type NeverType struct{}

func (NeverType) Repr() string { return "Never" }

func (NeverType) equals(other Type) bool {
	_, ok := other.(NeverType)
	return ok
}

// UnknownType is the poison type assigned to erroneous expressions so a
// single mistake does not cascade.  It never survives a clean check.
type UnknownType struct{}

func (UnknownType) Repr() string { return "<unknown>" }

func (UnknownType) equals(other Type) bool {
	_, ok := other.(UnknownType)
	return ok
}

// -----------------------------------------------------------------------------

// RefinedType is a base type paired with a value constraint.  The base is
// always canonicalized: refinements compose by stacking over an already
// canonical base.
type RefinedType struct {
	// Name is the nominal name of the refinement, eg. `Port`, or empty for
	// an anonymous inline refinement.
	Name string

	Base       Type
	Constraint Constraint
}

func (rt RefinedType) Repr() string {
	if rt.Name != "" {
		return rt.Name
	}
	return rt.Base.Repr() + " where …"
}

func (rt RefinedType) equals(other Type) bool {
	ort, ok := other.(RefinedType)
	if !ok {
		return false
	}
	if rt.Name != "" || ort.Name != "" {
		return rt.Name == ort.Name
	}
	return rt.Base.equals(ort.Base)
}

// -----------------------------------------------------------------------------

// VariantField is a single named field of a variant or record.
type VariantField struct {
	Name string
	Type Type
}

// Variant is one arm of an algebraic type.
type Variant struct {
	Name   string
	Fields []VariantField
}

// AlgebraicType is a named nominal sum type.  No value of an algebraic type
// exists without a variant tag.
type AlgebraicType struct {
	Name     string
	Variants []*Variant
}

func (at *AlgebraicType) Repr() string { return at.Name }

func (at *AlgebraicType) equals(other Type) bool {
	oat, ok := other.(*AlgebraicType)
	return ok && at.Name == oat.Name
}

// VariantNamed returns the variant with the given name, or nil.
func (at *AlgebraicType) VariantNamed(name string) *Variant {
	for _, v := range at.Variants {
		if v.Name == name {
			return v
		}
	}
	return nil
}

// RecordType is a named nominal product type with ordered fields.
type RecordType struct {
	Name   string
	Fields []VariantField
}

func (rt *RecordType) Repr() string { return rt.Name }

func (rt *RecordType) equals(other Type) bool {
	ort, ok := other.(*RecordType)
	return ok && rt.Name == ort.Name
}

// FieldNamed returns the type of the named field and whether it exists.
func (rt *RecordType) FieldNamed(name string) (Type, bool) {
	for _, f := range rt.Fields {
		if f.Name == name {
			return f.Type, true
		}
	}
	return nil, false
}

// -----------------------------------------------------------------------------

// FuncType is the type of a function value.
type FuncType struct {
	// Verb is the declaring verb, or empty for lambdas and builtins.
	Verb string

	Params  []Type
	Return  Type
	CanFail bool
}

func (ft *FuncType) Repr() string {
	params := make([]string, len(ft.Params))
	for i, p := range ft.Params {
		params[i] = p.Repr()
	}
	suffix := ""
	if ft.CanFail {
		suffix = "!"
	}
	return "(" + strings.Join(params, ", ") + ") -> " + ft.Return.Repr() + suffix
}

func (ft *FuncType) equals(other Type) bool {
	oft, ok := other.(*FuncType)
	if !ok || len(ft.Params) != len(oft.Params) || ft.CanFail != oft.CanFail {
		return false
	}
	for i := range ft.Params {
		if !Equal(ft.Params[i], oft.Params[i]) {
			return false
		}
	}
	return Equal(ft.Return, oft.Return)
}

// -----------------------------------------------------------------------------

// ParamType is a rigid generic parameter, eg. `T` in `type Stack<T>`.
type ParamType struct {
	Name string
}

func (pt ParamType) Repr() string { return pt.Name }

func (pt ParamType) equals(other Type) bool {
	opt, ok := other.(ParamType)
	return ok && pt.Name == opt.Name
}

// AppliedType is a generic type constructor applied to arguments.  The
// built-in Option and Result types are applied types with those head names.
type AppliedType struct {
	Name string
	Args []Type
}

func (at *AppliedType) Repr() string {
	args := make([]string, len(at.Args))
	for i, a := range at.Args {
		args[i] = a.Repr()
	}
	return at.Name + "<" + strings.Join(args, ", ") + ">"
}

func (at *AppliedType) equals(other Type) bool {
	oat, ok := other.(*AppliedType)
	if !ok || at.Name != oat.Name || len(at.Args) != len(oat.Args) {
		return false
	}
	for i := range at.Args {
		if !Equal(at.Args[i], oat.Args[i]) {
			return false
		}
	}
	return true
}

// ListType is the built-in growable list type.
type ListType struct {
	Elem Type
}

func (lt *ListType) Repr() string { return "List<" + lt.Elem.Repr() + ">" }

func (lt *ListType) equals(other Type) bool {
	olt, ok := other.(*ListType)
	return ok && Equal(lt.Elem, olt.Elem)
}

// -----------------------------------------------------------------------------

// Shared instances of the built-in types.
var (
	IntegerType   = PrimitiveType{Name: "Integer"}
	DecimalType   = PrimitiveType{Name: "Decimal"}
	FloatType     = PrimitiveType{Name: "Float"}
	BooleanType   = PrimitiveType{Name: "Boolean"}
	StringType    = PrimitiveType{Name: "String"}
	ByteType      = PrimitiveType{Name: "Byte"}
	CharacterType = PrimitiveType{Name: "Character"}
	Unit          = UnitType{}
	Never         = NeverType{}
	Unknown       = UnknownType{}
)

// Primitives maps built-in primitive names to their canonical instances.
var Primitives = map[string]Type{
	"Integer":   IntegerType,
	"Decimal":   DecimalType,
	"Float":     FloatType,
	"Boolean":   BooleanType,
	"String":    StringType,
	"Byte":      ByteType,
	"Character": CharacterType,
	"Unit":      Unit,
	"Never":     Never,
}

// ResultOf constructs Result<T, E>.
func ResultOf(ok, err Type) *AppliedType {
	return &AppliedType{Name: "Result", Args: []Type{ok, err}}
}

// OptionOf constructs Option<T>.
func OptionOf(inner Type) *AppliedType {
	return &AppliedType{Name: "Option", Args: []Type{inner}}
}

// -----------------------------------------------------------------------------

// Equal compares two types for semantic equality.
func Equal(a, b Type) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.equals(b)
}

// IsUnknown reports whether a type is the poison type.
func IsUnknown(t Type) bool {
	_, ok := t.(UnknownType)
	return ok
}

// StripRefinements unwraps any stack of refinements down to the base type.
func StripRefinements(t Type) Type {
	for {
		rt, ok := t.(RefinedType)
		if !ok {
			return t
		}
		t = rt.Base
	}
}

// IsBoolean reports whether a type is Boolean after refinement erasure.
func IsBoolean(t Type) bool {
	pt, ok := StripRefinements(t).(PrimitiveType)
	return ok && pt.Name == "Boolean"
}

// IsNumeric reports whether a type is Integer, Decimal, or Float after
// refinement erasure.
func IsNumeric(t Type) bool {
	pt, ok := StripRefinements(t).(PrimitiveType)
	return ok && (pt.Name == "Integer" || pt.Name == "Decimal" || pt.Name == "Float")
}

// IsString reports whether a type is String after refinement erasure.
func IsString(t Type) bool {
	pt, ok := StripRefinements(t).(PrimitiveType)
	return ok && pt.Name == "String"
}

// EraseStorageMods drops storage-axis modifiers: Mutable and Arena describe
// the binding, not the value, so they never block an assignment.
func EraseStorageMods(t Type) Type {
	pt, ok := t.(PrimitiveType)
	if !ok {
		return t
	}

	var mods []string
	for _, m := range pt.Mods {
		if ModAxis(m) != AxisStorage {
			mods = append(mods, m)
		}
	}
	if len(mods) == len(pt.Mods) {
		return t
	}
	return PrimitiveType{Name: pt.Name, Mods: mods}
}

// ResultParts splits Result<T, E> into its arms.  Option<T> is treated as
// Result<T, Unit> so fail propagation handles both uniformly.
func ResultParts(t Type) (okType, errType Type, isResult bool) {
	at, ok := StripRefinements(t).(*AppliedType)
	if !ok {
		return nil, nil, false
	}
	switch at.Name {
	case "Result":
		if len(at.Args) == 2 {
			return at.Args[0], at.Args[1], true
		}
	case "Option":
		if len(at.Args) == 1 {
			return at.Args[0], Unit, true
		}
	}
	return nil, nil, false
}

// Key returns the normalized type key used in verb-dispatched function
// identities.  Modifiers are sorted so the key is stable under reordering.
func Key(t Type) string {
	switch t := t.(type) {
	case PrimitiveType:
		if len(t.Mods) == 0 {
			return t.Name
		}
		mods := append([]string(nil), t.Mods...)
		sort.Strings(mods)
		return t.Name + ":" + strings.Join(mods, ":")
	case RefinedType:
		if t.Name != "" {
			return t.Name
		}
		return Key(t.Base)
	case *AlgebraicType:
		return t.Name
	case *RecordType:
		return t.Name
	case *ListType:
		return "List<" + Key(t.Elem) + ">"
	case *AppliedType:
		parts := make([]string, len(t.Args))
		for i, a := range t.Args {
			parts[i] = Key(a)
		}
		return t.Name + "<" + strings.Join(parts, ",") + ">"
	case ParamType:
		return t.Name
	case *FuncType:
		return t.Repr()
	default:
		return t.Repr()
	}
}

// ParamKey returns the parameter-type-key of a declared parameter list.
func ParamKey(params []Type) string {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = Key(p)
	}
	return strings.Join(parts, "_")
}
