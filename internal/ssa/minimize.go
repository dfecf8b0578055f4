package ssa

// φ-minimization: delete redundant φs and rewrite their uses, iterating the
// whole routine until a pass makes no change. Each pass either deletes a φ or
// rewrites operands to an older version class, and the number of φs never
// grows, so the fixpoint is reached.

// Minimize runs the φ-minimization loop to fixpoint.
func (c *Callable) Minimize() {
	for c.minimizePass() {
	}
}

// minimizePass classifies every φ once, deletes the redundant ones, then
// applies the collected replacements to every operand in the routine.
// Reports whether anything changed.
func (c *Callable) minimizePass() bool {
	table := make(map[Pseudo]Pseudo)
	deleted := false

	for _, lab := range c.Schedule {
		block := c.Body[lab]
		kept := block.Body[:0]
		for _, instr := range block.Body {
			phi, ok := instr.(*Phi)
			if !ok {
				kept = append(kept, instr)
				continue
			}
			if keep, repl := classifyPhi(phi); keep {
				kept = append(kept, instr)
			} else {
				deleted = true
				if repl != nil {
					table[phi.Dest] = *repl
				}
			}
		}
		block.Body = kept
	}

	if len(table) > 0 {
		c.applyReplacements(table)
	}
	return deleted || len(table) > 0
}

// classifyPhi decides a φ's fate. Returns keep=false to delete it, with an
// optional replacement its uses must be rewritten to:
//
//   - no arguments: no predecessor supplies a value, plain delete;
//   - one distinct incoming version equal to the dest: self-referential,
//     plain delete;
//   - one distinct incoming version: a trivial copy, replace dest by it;
//   - two distinct versions one of which is the dest itself: equivalent to
//     the other on every non-self edge, replace dest by the other.
func classifyPhi(phi *Phi) (keep bool, repl *Pseudo) {
	versions := make(map[int]bool)
	for _, a := range phi.Args {
		versions[a.Version] = true
	}
	switch {
	case len(versions) == 0:
		return false, nil
	case len(versions) == 1:
		if versions[phi.Dest.Version] {
			return false, nil
		}
		sole := Pseudo{ID: phi.Dest.ID, Version: phi.Args[0].Version}
		return false, &sole
	case len(versions) == 2 && versions[phi.Dest.Version]:
		for v := range versions {
			if v != phi.Dest.Version {
				other := Pseudo{ID: phi.Dest.ID, Version: v}
				return false, &other
			}
		}
	}
	return true, nil
}

// applyReplacements rewrites every operand matching a table key. Chains are
// resolved first: a copy chain deleted within one pass maps through to its
// final survivor, so no operand is left naming a deleted version.
func (c *Callable) applyReplacements(table map[Pseudo]Pseudo) {
	resolve := func(p Pseudo) Pseudo {
		// A replacement cycle can only form between mutually-referencing φs in
		// unreachable code; any member of the cycle is a sound pick there.
		start := p
		for {
			next, ok := table[p]
			if !ok || next == start {
				return p
			}
			p = next
		}
	}
	for _, lab := range c.Schedule {
		for _, instr := range c.Body[lab].Body {
			instr.mapUses(func(p Pseudo) Pseudo {
				return resolve(p)
			})
		}
	}
}
