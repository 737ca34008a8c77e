package resolve

import (
	"github.com/kennedyshead/prove/report"
	"github.com/kennedyshead/prove/symbols"
	"github.com/kennedyshead/prove/types"
)

// IOBuiltins is the set of built-in functions identified as IO.  Pure verbs
// may not call them (E362).
var IOBuiltins = map[string]struct{}{
	"println":    {},
	"print":      {},
	"readln":     {},
	"read_file":  {},
	"write_file": {},
	"open":       {},
	"close":      {},
	"flush":      {},
	"sleep":      {},
}

// builtinSig describes one built-in function registration.
type builtinSig struct {
	name    string
	params  []types.Type
	ret     types.Type
	canFail bool
}

var tVar = types.ParamType{Name: "T"}
var uVar = types.ParamType{Name: "U"}

// builtinSigs lists the built-in functions every module sees.  The IO group
// mirrors the runtime's input/output modules; the pure group covers the
// list, string, and numeric helpers the emitter maps onto runtime calls.
var builtinSigs = []builtinSig{
	// IO.
	{"println", []types.Type{types.StringType}, types.Unit, false},
	{"print", []types.Type{types.StringType}, types.Unit, false},
	{"readln", nil, types.StringType, false},
	{"read_file", []types.Type{types.StringType}, types.ResultOf(types.StringType, types.StringType), true},
	{"write_file", []types.Type{types.StringType, types.StringType}, types.ResultOf(types.Unit, types.StringType), true},
	{"open", []types.Type{types.StringType}, types.ResultOf(types.IntegerType, types.StringType), true},
	{"close", []types.Type{types.IntegerType}, types.Unit, false},
	{"flush", nil, types.Unit, false},
	{"sleep", []types.Type{types.IntegerType}, types.Unit, false},

	// Pure helpers.
	{"len", []types.Type{&types.ListType{Elem: tVar}}, types.IntegerType, false},
	{"map", []types.Type{
		&types.ListType{Elem: tVar},
		&types.FuncType{Params: []types.Type{tVar}, Return: uVar},
	}, &types.ListType{Elem: uVar}, false},
	{"filter", []types.Type{
		&types.ListType{Elem: tVar},
		&types.FuncType{Params: []types.Type{tVar}, Return: types.BooleanType},
	}, &types.ListType{Elem: tVar}, false},
	{"reduce", []types.Type{
		&types.ListType{Elem: tVar},
		uVar,
		&types.FuncType{Params: []types.Type{uVar, tVar}, Return: uVar},
	}, uVar, false},
	{"each", []types.Type{
		&types.ListType{Elem: tVar},
		&types.FuncType{Params: []types.Type{tVar}, Return: types.Unit},
	}, types.Unit, false},
	{"to_string", []types.Type{tVar}, types.StringType, false},
	{"clamp", []types.Type{types.IntegerType, types.IntegerType, types.IntegerType}, types.IntegerType, false},
	{"min", []types.Type{types.IntegerType, types.IntegerType}, types.IntegerType, false},
	{"max", []types.Type{types.IntegerType, types.IntegerType}, types.IntegerType, false},
	{"abs", []types.Type{types.IntegerType}, types.IntegerType, false},
	{"trim", []types.Type{types.StringType}, types.StringType, false},
	{"lower", []types.Type{types.StringType}, types.StringType, false},
	{"upper", []types.Type{types.StringType}, types.StringType, false},
	{"decode", []types.Type{types.StringType}, types.ResultOf(types.StringType, types.StringType), true},
	{"ok", []types.Type{tVar}, types.ResultOf(tVar, types.StringType), false},
	{"err", []types.Type{types.StringType}, types.ResultOf(tVar, types.StringType), false},
	{"some", []types.Type{tVar}, types.OptionOf(tVar), false},
	{"none", nil, types.OptionOf(tVar), false},
}

// declareBuiltins registers the built-in functions in the symbol table.
func (r *Resolver) declareBuiltins() {
	for _, sig := range builtinSigs {
		ft := &types.FuncType{Params: sig.params, Return: sig.ret, CanFail: sig.canFail}
		sym := r.table.New(symbols.KindBuiltinFunction, sig.name, report.BuiltinSpan, ft)
		r.table.DefineFunc(symbols.FuncKey{Name: sig.name, ParamKey: types.ParamKey(sig.params)}, sym)
	}
}
