package resolve

import (
	"github.com/kennedyshead/prove/symbols"
	"github.com/kennedyshead/prove/types"
)

// verbPreference orders verbs for the final tie-break of context-aware call
// resolution.
var verbPreference = map[string]int{
	"transforms": 0,
	"validates":  1,
	"reads":      2,
	"creates":    3,
	"matches":    4,
	"inputs":     5,
	"outputs":    6,
}

// PickOverload applies the context-aware call-resolution rules to a
// candidate set built by bare-name lookup:
//
//  1. In a Boolean context, select the validates variant.
//  2. If the expected type equals the return type of exactly one candidate,
//     select it.
//  3. Unify each candidate's parameters against the arguments and keep the
//     survivors.
//  4. Prefer verbs in the order transforms, validates, reads, creates,
//     matches, inputs, outputs.
//  5. More than one survivor is an ambiguity; the remaining candidates are
//     returned for the diagnostic.
func PickOverload(candidates []*symbols.Symbol, argTypes []types.Type, expected types.Type, boolContext bool) (*symbols.Symbol, []*symbols.Symbol) {
	// Arity filter runs first: the candidate set is keyed by (name, arity).
	arityMatched := candidates[:0:0]
	for _, cand := range candidates {
		if ft, ok := cand.Type.(*types.FuncType); ok {
			if len(ft.Params) == len(argTypes) || types.IsUnknown(ft.Return) {
				arityMatched = append(arityMatched, cand)
			}
		}
	}
	if len(arityMatched) == 0 {
		return nil, candidates
	}
	if len(arityMatched) == 1 {
		return arityMatched[0], nil
	}

	// Rule 1: Boolean context selects the validates variant.
	if boolContext {
		for _, cand := range arityMatched {
			if cand.Verb == "validates" {
				return cand, nil
			}
		}
	}

	// Rule 2: a unique return-type match wins.
	if expected != nil && !types.IsUnknown(expected) {
		var matches []*symbols.Symbol
		for _, cand := range arityMatched {
			ft := cand.Type.(*types.FuncType)
			if types.Equal(types.StripRefinements(ft.Return), types.StripRefinements(expected)) {
				matches = append(matches, cand)
			}
		}
		if len(matches) == 1 {
			return matches[0], nil
		}
		if len(matches) > 1 {
			arityMatched = matches
		}
	}

	// Rule 3: keep candidates whose parameters unify with the arguments.
	var unified []*symbols.Symbol
	for _, cand := range arityMatched {
		ft := cand.Type.(*types.FuncType)
		if len(ft.Params) != len(argTypes) {
			continue
		}
		sub := types.Substitution{}
		ok := true
		for i := range ft.Params {
			if !types.Unify(ft.Params[i], argTypes[i], sub) {
				ok = false
				break
			}
		}
		if ok {
			unified = append(unified, cand)
		}
	}
	if len(unified) == 1 {
		return unified[0], nil
	}
	if len(unified) == 0 {
		unified = arityMatched
	}

	// Rule 4: verb preference.
	best := unified[0]
	bestRank := verbRank(best)
	tied := []*symbols.Symbol{best}
	for _, cand := range unified[1:] {
		rank := verbRank(cand)
		switch {
		case rank < bestRank:
			best, bestRank = cand, rank
			tied = []*symbols.Symbol{cand}
		case rank == bestRank:
			tied = append(tied, cand)
		}
	}
	if len(tied) == 1 {
		return best, nil
	}

	// Rule 5: ambiguity.
	return nil, tied
}

func verbRank(sym *symbols.Symbol) int {
	if rank, ok := verbPreference[sym.Verb]; ok {
		return rank
	}
	return len(verbPreference)
}
