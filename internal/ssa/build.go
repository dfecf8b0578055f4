package ssa

import (
	"fmt"

	"bxc/internal/rtl"
)

// CFG construction: partition a linear routine into basic blocks. A label is
// a leader iff it is the routine's entry or the target of a branch or goto;
// fall-through successors extend the current block, since branches and gotos
// are the only instructions that introduce join points.

type builder struct {
	src      *rtl.Callable
	dst      *Callable
	leaders  map[rtl.Label]bool
	order    []rtl.Label
}

// BuildCFG partitions cbl into basic blocks. Writes carry version 0 and
// reads Unresolved; the renaming pass assigns real versions. If the entry
// label is itself a branch or goto target, a fresh empty pre-entry block is
// inserted so the entry block never needs φ-instructions.
func BuildCFG(cbl *rtl.Callable, counters *rtl.Counters) (*Callable, error) {
	if err := cbl.Validate(); err != nil {
		return nil, err
	}

	b := &builder{
		src:     cbl,
		dst:     NewCallable(cbl.Name),
		leaders: make(map[rtl.Label]bool),
	}
	b.dst.Result = cbl.Result
	for _, in := range cbl.Inputs {
		b.dst.Inputs = append(b.dst.Inputs, Pseudo{ID: in.ID, Version: Unresolved})
	}

	b.addLeader(cbl.Enter)
	entryIsTarget := false
	for _, lab := range cbl.Schedule {
		switch instr := cbl.Body[lab].(type) {
		case *rtl.Ubranch:
			entryIsTarget = b.addLeader(instr.Then) || entryIsTarget
			entryIsTarget = b.addLeader(instr.Else) || entryIsTarget
		case *rtl.Bbranch:
			entryIsTarget = b.addLeader(instr.Then) || entryIsTarget
			entryIsTarget = b.addLeader(instr.Else) || entryIsTarget
		case *rtl.Goto:
			entryIsTarget = b.addLeader(instr.Succ) || entryIsTarget
		}
	}

	b.dst.Enter = cbl.Enter
	if entryIsTarget {
		preEnter := counters.FreshLabel()
		if err := b.dst.AddBlock(preEnter, &BBlock{Out: []rtl.Label{cbl.Enter}}); err != nil {
			return nil, err
		}
		b.dst.Enter = preEnter
	}

	for _, lab := range b.order {
		block, err := b.buildBlock(lab)
		if err != nil {
			return nil, err
		}
		if err := b.dst.AddBlock(lab, block); err != nil {
			return nil, err
		}
	}
	b.dst.pruneUnreachable()
	return b.dst, nil
}

// pruneUnreachable drops blocks no path from the entry reaches. Leaders can
// be minted by branches in code behind a return; keeping them would leave
// zero-predecessor blocks whose φs wire to nothing.
func (c *Callable) pruneUnreachable() {
	reached := map[rtl.Label]bool{c.Enter: true}
	work := []rtl.Label{c.Enter}
	for len(work) > 0 {
		lab := work[0]
		work = work[1:]
		for _, out := range c.Body[lab].Out {
			if !reached[out] {
				reached[out] = true
				work = append(work, out)
			}
		}
	}
	kept := c.Schedule[:0]
	for _, lab := range c.Schedule {
		if reached[lab] {
			kept = append(kept, lab)
		} else {
			delete(c.Body, lab)
		}
	}
	c.Schedule = kept
}

// addLeader records lab as a block leader, preserving discovery order, and
// reports whether lab is the routine's entry.
func (b *builder) addLeader(lab rtl.Label) bool {
	if !b.leaders[lab] {
		b.leaders[lab] = true
		b.order = append(b.order, lab)
	}
	return lab == b.src.Enter
}

// buildBlock walks the successor chain from leader lab, translating each
// linear instruction, and stops at a terminator or at the next leader.
func (b *builder) buildBlock(lab rtl.Label) (*BBlock, error) {
	block := &BBlock{}
	cur := lab
	for {
		instr, ok := b.src.Body[cur]
		if !ok {
			return nil, fmt.Errorf("ssa: routine %q: block %s walks into missing label %s",
				b.src.Name, lab, cur)
		}
		switch i := instr.(type) {
		case *rtl.Move:
			block.Body = append(block.Body, &Move{Source: i.Source, Dest: write(i.Dest)})
		case *rtl.Copy:
			block.Body = append(block.Body, &Copy{Src: read(i.Src), Dest: write(i.Dest)})
		case *rtl.Load:
			block.Body = append(block.Body, &Load{Src: i.Src, Offset: i.Offset, Dest: write(i.Dest)})
		case *rtl.Store:
			block.Body = append(block.Body, &Store{Src: read(i.Src), Dest: i.Dest, Offset: i.Offset})
		case *rtl.Unop:
			block.Body = append(block.Body, &Unop{Op: i.Op, Arg: read(i.Arg), Dest: write(i.Arg)})
		case *rtl.Binop:
			block.Body = append(block.Body, &Binop{
				Op:   i.Op,
				Left: read(i.Dest), Right: read(i.Src),
				Dest: write(i.Dest),
			})
		case *rtl.Call:
			args := make([]Pseudo, len(i.Args))
			for n, a := range i.Args {
				args[n] = read(a)
			}
			block.Body = append(block.Body, &Call{Func: i.Func, Args: args, Ret: write(i.Ret)})
		case *rtl.Ubranch:
			block.Body = append(block.Body, &Ubranch{Op: i.Op, Arg: read(i.Arg)})
			block.Out = []rtl.Label{i.Then, i.Else}
			return block, nil
		case *rtl.Bbranch:
			block.Body = append(block.Body, &Bbranch{Op: i.Op, Arg1: read(i.Arg1), Arg2: read(i.Arg2)})
			block.Out = []rtl.Label{i.Then, i.Else}
			return block, nil
		case *rtl.Goto:
			block.Out = []rtl.Label{i.Succ}
			return block, nil
		case *rtl.Return:
			block.Body = append(block.Body, &Return{Arg: read(i.Arg)})
			return block, nil
		default:
			return nil, fmt.Errorf("ssa: routine %q: unknown instruction at %s", b.src.Name, cur)
		}
		succ := instr.Successors()[0]
		if b.leaders[succ] {
			block.Out = []rtl.Label{succ}
			return block, nil
		}
		cur = succ
	}
}

func read(p rtl.Pseudo) Pseudo  { return Pseudo{ID: p.ID, Version: Unresolved} }
func write(p rtl.Pseudo) Pseudo { return Pseudo{ID: p.ID, Version: 0} }
