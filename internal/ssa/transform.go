package ssa

import (
	"bxc/internal/rtl"
)

// Transform lowers a linear-IR program into minimized SSA: CFG construction,
// renaming with φ-placement and wiring, then φ-minimization to fixpoint. A
// single malformed routine fails the whole unit.
func Transform(prog *rtl.Program, counters *rtl.Counters) (*Program, error) {
	out := &Program{Globals: prog.Globals}
	for _, cbl := range prog.Callables {
		ssaCbl, err := BuildCFG(cbl, counters)
		if err != nil {
			return nil, err
		}
		if err := ssaCbl.Rename(); err != nil {
			return nil, err
		}
		ssaCbl.Minimize()
		out.Callables = append(out.Callables, ssaCbl)
	}
	return out, nil
}
