package types

import "testing"

func TestEqualityIgnoresModifierOrder(t *testing.T) {
	a := PrimitiveType{Name: "Integer", Mods: []string{"Unsigned", "32"}}
	b := PrimitiveType{Name: "Integer", Mods: []string{"32", "Unsigned"}}
	c := PrimitiveType{Name: "Integer", Mods: []string{"64", "Unsigned"}}

	if !Equal(a, b) {
		t.Error("modifier order must not affect equality")
	}
	if Equal(a, c) {
		t.Error("modifier content must affect equality")
	}
	if Key(a) != Key(b) {
		t.Errorf("keys differ: %q vs %q", Key(a), Key(b))
	}
}

func TestParamKeyStable(t *testing.T) {
	key := ParamKey([]Type{StringType, IntegerType})
	if key != "String_Integer" {
		t.Errorf("got %q", key)
	}
}

func TestResultParts(t *testing.T) {
	okType, errType, isResult := ResultParts(ResultOf(IntegerType, StringType))
	if !isResult || !Equal(okType, IntegerType) || !Equal(errType, StringType) {
		t.Errorf("Result parts: %v %v %v", okType, errType, isResult)
	}

	// Option<T> is treated as Result<T, Unit>.
	okType, errType, isResult = ResultParts(OptionOf(StringType))
	if !isResult || !Equal(okType, StringType) || !Equal(errType, Unit) {
		t.Errorf("Option parts: %v %v %v", okType, errType, isResult)
	}

	if _, _, isResult = ResultParts(IntegerType); isResult {
		t.Error("Integer is not a Result")
	}
}

func TestStripRefinements(t *testing.T) {
	port := RefinedType{Name: "Port", Base: IntegerType, Constraint: RangeConstraint{Lo: 1, Hi: 65535}}
	stacked := RefinedType{Name: "WellKnown", Base: port, Constraint: RangeConstraint{Lo: 1, Hi: 1023}}

	if !Equal(StripRefinements(stacked), IntegerType) {
		t.Error("stacked refinements must strip to the base")
	}
}

func TestEvalConstraint(t *testing.T) {
	tests := []struct {
		name    string
		c       Constraint
		v       ConstValue
		holds   bool
		decided bool
	}{
		{"range inside", RangeConstraint{Lo: 1, Hi: 65535}, IntValue(8080), true, true},
		{"range low edge", RangeConstraint{Lo: 1, Hi: 65535}, IntValue(1), true, true},
		{"range high edge", RangeConstraint{Lo: 1, Hi: 65535}, IntValue(65535), true, true},
		{"range below", RangeConstraint{Lo: 1, Hi: 65535}, IntValue(0), false, true},
		{"range above", RangeConstraint{Lo: 1, Hi: 65535}, IntValue(65536), false, true},
		{"cmp ge", CmpConstraint{Op: ">=", Bound: IntValue(0)}, IntValue(3), true, true},
		{"cmp lt fails", CmpConstraint{Op: "<", Bound: IntValue(0)}, IntValue(3), false, true},
		{"eq string", EqConstraint{Value: StrValue("x")}, StrValue("x"), true, true},
		{"and both", AndConstraint{Conjuncts: []Constraint{
			CmpConstraint{Op: ">=", Bound: IntValue(0)},
			CmpConstraint{Op: "<=", Bound: IntValue(9)},
		}}, IntValue(5), true, true},
		{"opaque undecided", OpaqueConstraint{Text: "matches(self)"}, IntValue(5), false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			holds, decided := EvalConstraint(tt.c, tt.v)
			if holds != tt.holds || decided != tt.decided {
				t.Errorf("got holds=%t decided=%t, want %t/%t", holds, decided, tt.holds, tt.decided)
			}
		})
	}
}

func TestConstraintImplication(t *testing.T) {
	narrow := RangeConstraint{Lo: 1, Hi: 1023}
	wide := RangeConstraint{Lo: 1, Hi: 65535}

	if !Implies(narrow, wide) {
		t.Error("narrow range must imply wide range")
	}
	if Implies(wide, narrow) {
		t.Error("wide range must not imply narrow range")
	}
	if !Implies(RangeConstraint{Lo: 5, Hi: 10}, CmpConstraint{Op: ">=", Bound: IntValue(0)}) {
		t.Error("range must imply a looser lower bound")
	}
	if Implies(OpaqueConstraint{Text: "p(self)"}, wide) {
		t.Error("opaque constraints are never subsumed")
	}
}

func TestSubsumedBy(t *testing.T) {
	port := RefinedType{Name: "Port", Base: IntegerType, Constraint: RangeConstraint{Lo: 1, Hi: 65535}}
	wellKnown := RefinedType{Name: "WellKnown", Base: IntegerType, Constraint: RangeConstraint{Lo: 1, Hi: 1023}}

	if !SubsumedBy(wellKnown, port) {
		t.Error("WellKnown must flow into Port without a check")
	}
	if SubsumedBy(port, wellKnown) {
		t.Error("Port must not flow into WellKnown")
	}
	if SubsumedBy(IntegerType, port) {
		t.Error("a bare base needs a runtime check")
	}
}

func TestUnifyGenerics(t *testing.T) {
	sub := Substitution{}
	listT := &ListType{Elem: ParamType{Name: "T"}}
	listInt := &ListType{Elem: IntegerType}

	if !Unify(listT, listInt, sub) {
		t.Fatal("List<T> must unify with List<Integer>")
	}
	if !Equal(sub["T"], IntegerType) {
		t.Errorf("T bound to %v", sub["T"])
	}

	// A conflicting second binding fails.
	if Unify(ParamType{Name: "T"}, StringType, sub) {
		t.Error("T already bound to Integer must not rebind to String")
	}
}

func TestUnifyNominalRigidity(t *testing.T) {
	a := &AlgebraicType{Name: "Shape"}
	b := &AlgebraicType{Name: "Color"}

	if Unify(a, b, Substitution{}) {
		t.Error("distinct nominal types must not unify")
	}
	if !Unify(a, a, Substitution{}) {
		t.Error("a nominal type must unify with itself")
	}
}

func TestUnifyErasesRefinements(t *testing.T) {
	port := RefinedType{Name: "Port", Base: IntegerType, Constraint: RangeConstraint{Lo: 1, Hi: 65535}}
	if !Unify(IntegerType, port, Substitution{}) {
		t.Error("refinements must erase during unification")
	}
}

func TestSubstitute(t *testing.T) {
	sub := Substitution{"T": StringType}
	got := Substitute(&ListType{Elem: ParamType{Name: "T"}}, sub)
	if !Equal(got, &ListType{Elem: StringType}) {
		t.Errorf("got %s", got.Repr())
	}
}

func TestMonoTableDedupes(t *testing.T) {
	mt := NewMonoTable()
	mt.Record("transforms_first_List<T>", Substitution{"T": IntegerType})
	mt.Record("transforms_first_List<T>", Substitution{"T": IntegerType})
	mt.Record("transforms_first_List<T>", Substitution{"T": StringType})

	insts := mt.Of("transforms_first_List<T>")
	if len(insts) != 2 {
		t.Fatalf("got %d instantiations, want 2", len(insts))
	}
}

func TestModifierAxes(t *testing.T) {
	if ModAxis("32") != AxisSize || ModAxis("Unsigned") != AxisSign {
		t.Error("axis classification broken")
	}
	if ModAxis("Arena") != AxisStorage {
		t.Error("Arena is a storage-axis modifier")
	}
}
