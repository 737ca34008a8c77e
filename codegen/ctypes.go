// Package codegen emits C translation units from the typed AST against the
// fixed Prove runtime ABI: ref-counted heap types with a Prove_Header,
// length-prefixed Prove_String, Prove_List, the payload-carrying
// Prove_Result, and the arena allocator.
package codegen

import (
	"strings"

	"github.com/kennedyshead/prove/types"
)

// CType is the C representation of a Prove type.
type CType struct {
	// Decl is the C type string, eg. "int64_t" or "Prove_String*".
	Decl string

	// Pointer marks heap values that participate in retain/release.
	Pointer bool

	// Header is the runtime header the type needs, if any.
	Header string
}

func mapInteger(mods []string) CType {
	unsigned := false
	size := "64"
	for _, m := range mods {
		switch m {
		case "Unsigned":
			unsigned = true
		case "8", "16", "32", "64":
			size = m
		}
	}
	if unsigned {
		return CType{Decl: "uint" + size + "_t"}
	}
	return CType{Decl: "int" + size + "_t"}
}

func mapFloat(mods []string) CType {
	for _, m := range mods {
		if m == "32" {
			return CType{Decl: "float"}
		}
	}
	return CType{Decl: "double"}
}

// MapType maps a canonical Prove type to its C representation.  Refinements
// erase to the base C type.
func MapType(t types.Type) CType {
	switch t := t.(type) {
	case types.PrimitiveType:
		switch t.Name {
		case "Integer":
			return mapInteger(t.Mods)
		case "Decimal", "Float":
			return mapFloat(t.Mods)
		case "Boolean":
			return CType{Decl: "bool"}
		case "Character":
			return CType{Decl: "char"}
		case "Byte":
			return CType{Decl: "uint8_t"}
		case "String":
			return CType{Decl: "Prove_String*", Pointer: !t.HasMod("Arena"), Header: "prove_string.h"}
		default:
			return CType{Decl: "int64_t"}
		}

	case types.UnitType:
		return CType{Decl: "void"}

	case types.NeverType:
		return CType{Decl: "void"}

	case types.RefinedType:
		return MapType(t.Base)

	case *types.RecordType:
		return CType{Decl: MangleTypeName(t.Name)}

	case *types.AlgebraicType:
		return CType{Decl: MangleTypeName(t.Name)}

	case *types.ListType:
		return CType{Decl: "Prove_List*", Pointer: true, Header: "prove_list.h"}

	case *types.AppliedType:
		switch t.Name {
		case "Result":
			return CType{Decl: "Prove_Result", Header: "prove_result.h"}
		case "Option":
			return CType{Decl: "Prove_Result", Header: "prove_result.h"}
		case "Table":
			return CType{Decl: "Prove_Table*", Pointer: true, Header: "prove_table.h"}
		default:
			return CType{Decl: MangleTypeName(t.Name)}
		}

	case *types.FuncType:
		return CType{Decl: "void*", Pointer: false}

	case types.ParamType:
		return CType{Decl: "void*"}

	default:
		return CType{Decl: "int64_t"}
	}
}

// -----------------------------------------------------------------------------

// MangleTypeName mangles a Prove type name for C: `Shape` -> `Type_Shape`.
func MangleTypeName(name string) string {
	return "Type_" + name
}

// MangleFunc mangles a function identity for C:
// (`transforms`, `email`, [String]) -> `prove_transforms_email_String`.
// The prefix keeps user functions clear of the C library namespace.
func MangleFunc(verb, name string, params []types.Type) string {
	parts := []string{"prove"}
	if verb != "" {
		parts = append(parts, verb)
	}
	parts = append(parts, name)
	for _, p := range params {
		parts = append(parts, typeTag(p))
	}
	return strings.Join(parts, "_")
}

// VariantTag returns the enum constant of a variant discriminant.
func VariantTag(typeName, variantName string) string {
	return MangleTypeName(typeName) + "_TAG_" + strings.ToUpper(variantName)
}

// VariantCtor returns the name of an inline variant constructor helper.
func VariantCtor(typeName, variantName string) string {
	return MangleTypeName(typeName) + "_" + variantName
}

// typeTag produces the short, C-safe tag a type contributes to a mangled
// name.
func typeTag(t types.Type) string {
	switch t := t.(type) {
	case types.PrimitiveType:
		if len(t.Mods) == 0 {
			return t.Name
		}
		return t.Name + "_" + strings.Join(t.Mods, "_")
	case types.RefinedType:
		if t.Name != "" {
			return t.Name
		}
		return typeTag(t.Base)
	case *types.RecordType:
		return t.Name
	case *types.AlgebraicType:
		return t.Name
	case *types.ListType:
		return "List_" + typeTag(t.Elem)
	case *types.AppliedType:
		parts := []string{t.Name}
		for _, a := range t.Args {
			parts = append(parts, typeTag(a))
		}
		return strings.Join(parts, "_")
	case types.UnitType:
		return "Unit"
	case types.ParamType:
		return t.Name
	default:
		return "T"
	}
}
