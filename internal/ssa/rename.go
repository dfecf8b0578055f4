package ssa

import (
	"fmt"
	"sort"

	"bxc/internal/rtl"
)

// SSA renaming: assign version numbers to every definition, place
// placeholder φs, wire their arguments from predecessors, then resolve every
// remaining Unresolved read. Rather than computing a dominance frontier, a φ
// is placed for every register at every non-entry block; the minimization
// pass deletes the useless ones.

type renamer struct {
	cbl    *Callable
	latest map[int]int
	ids    []int
}

// Rename versions the routine in place. Version numbers are assigned in one
// deterministic order: inputs first, then body writes in schedule order, then
// φ destinations in schedule order with ids ascending within a block.
func (c *Callable) Rename() error {
	r := &renamer{cbl: c, latest: make(map[int]int)}
	r.collectIDs()
	r.assignVersions()
	r.placePhis()
	r.wirePhis()
	return r.resolveReads()
}

// collectIDs gathers every register id mentioned anywhere in the routine.
func (r *renamer) collectIDs() {
	seen := make(map[int]bool)
	note := func(p Pseudo) Pseudo {
		if !p.IsDiscard() {
			seen[p.ID] = true
		}
		return p
	}
	for _, in := range r.cbl.Inputs {
		note(in)
	}
	for _, lab := range r.cbl.Schedule {
		for _, instr := range r.cbl.Body[lab].Body {
			instr.mapUses(note)
			for _, slot := range instr.defSlots() {
				note(*slot)
			}
		}
	}
	for id := range seen {
		r.ids = append(r.ids, id)
	}
	sort.Ints(r.ids)
}

// fresh records the next version for id, post-incrementing latest.
func (r *renamer) fresh(id int) int {
	v := r.latest[id]
	r.latest[id] = v + 1
	return v
}

func (r *renamer) assignVersions() {
	for n := range r.cbl.Inputs {
		in := &r.cbl.Inputs[n]
		in.Version = r.fresh(in.ID)
	}
	for _, lab := range r.cbl.Schedule {
		for _, instr := range r.cbl.Body[lab].Body {
			for _, slot := range instr.defSlots() {
				slot.Version = r.fresh(slot.ID)
			}
		}
	}
}

// placePhis prepends one empty-argument φ per register to every non-entry
// block. The entry block is seeded from the routine inputs instead and never
// needs φs (the CFG builder guarantees it has no predecessors).
func (r *renamer) placePhis() {
	for _, lab := range r.cbl.Schedule {
		if lab == r.cbl.Enter {
			continue
		}
		block := r.cbl.Body[lab]
		phis := make([]Instr, 0, len(r.ids))
		for _, id := range r.ids {
			phis = append(phis, &Phi{Dest: Pseudo{ID: id, Version: r.fresh(id)}})
		}
		block.Body = append(phis, block.Body...)
	}
}

// wirePhis fills each φ's arguments with the latest version of its register
// in every predecessor, pairing argument and predecessor in declaration
// order. A predecessor that never defines the register contributes nothing.
func (r *renamer) wirePhis() {
	preds := r.cbl.Preds()
	lastDefs := make(map[rtl.Label]map[int]int, len(r.cbl.Schedule))
	for _, lab := range r.cbl.Schedule {
		lastDefs[lab] = r.cbl.Body[lab].lastDefs()
	}
	// The routine inputs are definitions the entry block provides to its
	// successors; entry body writes shadow them.
	for _, in := range r.cbl.Inputs {
		if _, ok := lastDefs[r.cbl.Enter][in.ID]; !ok {
			lastDefs[r.cbl.Enter][in.ID] = in.Version
		}
	}
	for _, lab := range r.cbl.Schedule {
		for _, instr := range r.cbl.Body[lab].Body {
			phi, ok := instr.(*Phi)
			if !ok {
				continue
			}
			for _, pred := range preds[lab] {
				if v, ok := lastDefs[pred][phi.Dest.ID]; ok {
					phi.Args = append(phi.Args, Pseudo{ID: phi.Dest.ID, Version: v})
					phi.Preds = append(phi.Preds, pred)
				}
			}
		}
	}
}

// resolveReads rewrites every Unresolved operand to the most recent version
// at its program point. In the entry block the recent map starts from the
// routine inputs; everywhere else the block's φs define every register
// before the first read.
func (r *renamer) resolveReads() error {
	for _, lab := range r.cbl.Schedule {
		recent := make(map[int]int)
		if lab == r.cbl.Enter {
			for _, in := range r.cbl.Inputs {
				recent[in.ID] = in.Version
			}
		}
		var failed *Pseudo
		for _, instr := range r.cbl.Body[lab].Body {
			if _, isPhi := instr.(*Phi); !isPhi {
				instr.mapUses(func(p Pseudo) Pseudo {
					if p.IsDiscard() || p.Version != Unresolved {
						return p
					}
					v, ok := recent[p.ID]
					if !ok {
						if failed == nil {
							failed = &Pseudo{ID: p.ID}
						}
						return p
					}
					return Pseudo{ID: p.ID, Version: v}
				})
			}
			for _, slot := range instr.defSlots() {
				recent[slot.ID] = slot.Version
			}
			if failed != nil {
				return fmt.Errorf("ssa: routine %q: block %s reads pseudo %%%d with no defining path",
					r.cbl.Name, lab, failed.ID)
			}
		}
	}
	return nil
}
