package ssa

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bxc/internal/rtl"
)

func mustAdd(t *testing.T, cbl *rtl.Callable, lab rtl.Label, instr rtl.Instr) {
	t.Helper()
	require.NoError(t, cbl.AddInstr(lab, instr))
}

func buildAndRename(t *testing.T, cbl *rtl.Callable, counters *rtl.Counters) *Callable {
	t.Helper()
	out, err := BuildCFG(cbl, counters)
	require.NoError(t, err)
	require.NoError(t, out.Rename())
	return out
}

// uses collects every read operand of an instruction.
func uses(instr Instr) []Pseudo {
	var ps []Pseudo
	instr.mapUses(func(p Pseudo) Pseudo {
		ps = append(ps, p)
		return p
	})
	return ps
}

// checkSingleAssignment asserts every versioned pseudo is written at most
// once across the routine.
func checkSingleAssignment(t *testing.T, c *Callable) {
	t.Helper()
	seen := make(map[Pseudo]bool)
	for _, in := range c.Inputs {
		assert.False(t, seen[in], "input %s written twice", in)
		seen[in] = true
	}
	for _, lab := range c.Schedule {
		for _, instr := range c.Body[lab].Body {
			for _, slot := range instr.defSlots() {
				assert.False(t, seen[*slot], "pseudo %s written twice", *slot)
				seen[*slot] = true
			}
		}
	}
}

// checkNoUnresolved asserts no operand carries the unresolved version.
func checkNoUnresolved(t *testing.T, c *Callable) {
	t.Helper()
	for _, lab := range c.Schedule {
		for _, instr := range c.Body[lab].Body {
			for _, p := range uses(instr) {
				if !p.IsDiscard() {
					assert.NotEqual(t, Unresolved, p.Version,
						"unresolved read %s in block %s", p, lab)
				}
			}
		}
	}
}

// checkDominanceViaPhi asserts, on the un-minimized routine, that every read
// is defined earlier in its block, by one of its block's φs, or by a routine
// input in the entry block.
func checkDominanceViaPhi(t *testing.T, c *Callable) {
	t.Helper()
	inputs := make(map[Pseudo]bool)
	for _, in := range c.Inputs {
		inputs[in] = true
	}
	for _, lab := range c.Schedule {
		defined := make(map[Pseudo]bool)
		for _, instr := range c.Body[lab].Body {
			if _, isPhi := instr.(*Phi); !isPhi {
				for _, p := range uses(instr) {
					if p.IsDiscard() {
						continue
					}
					ok := defined[p] || (lab == c.Enter && inputs[p])
					assert.True(t, ok, "read %s in block %s has no dominating definition", p, lab)
				}
			}
			for _, slot := range instr.defSlots() {
				defined[*slot] = true
			}
		}
	}
}

// checkCardinalities asserts P4 (non-entry in-degree >= 1), P5 (out-label
// counts per terminator) and P6 (surviving φ arity equals predecessor count).
func checkCardinalities(t *testing.T, c *Callable) {
	t.Helper()
	preds := c.Preds()
	for _, lab := range c.Schedule {
		block := c.Body[lab]
		if lab != c.Enter {
			assert.NotEmpty(t, preds[lab], "non-entry block %s has no predecessors", lab)
		}

		expected := 1
		if len(block.Body) > 0 {
			switch block.Body[len(block.Body)-1].(type) {
			case *Ubranch, *Bbranch:
				expected = 2
			case *Return:
				expected = 0
			}
		}
		assert.Len(t, block.Out, expected, "block %s out-label count", lab)

		for _, instr := range block.Body {
			if phi, ok := instr.(*Phi); ok {
				assert.Len(t, phi.Args, len(preds[lab]),
					"φ %s arity in block %s", phi.Dest, lab)
				assert.Len(t, phi.Preds, len(phi.Args),
					"φ %s arg/pred pairing in block %s", phi.Dest, lab)
			}
		}
	}
}

// phisOf returns the φ instructions of a block.
func phisOf(block *BBlock) []*Phi {
	var phis []*Phi
	for _, instr := range block.Body {
		if phi, ok := instr.(*Phi); ok {
			phis = append(phis, phi)
		}
	}
	return phis
}
