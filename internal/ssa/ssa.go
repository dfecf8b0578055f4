package ssa

import (
	"fmt"

	"bxc/internal/rtl"
	"bxc/internal/source"
)

// The SSA representation of the linear IR. Instructions no longer carry
// successor labels; control flow lives on the containing basic block as an
// ordered list of out-labels. Every pseudo is versioned, and φ-instructions
// at block entries merge versions along control-flow joins.

// Unresolved marks a read whose version has not been assigned yet. The
// renaming pass rewrites every Unresolved operand; none survive it.
const Unresolved = -1

// Pseudo is a versioned virtual register. Two pseudos are structurally equal
// iff both id and version match; SameReg compares ids only.
type Pseudo struct {
	ID      int
	Version int
}

func (p Pseudo) IsDiscard() bool          { return p.ID == -1 }
func (p Pseudo) SameReg(o Pseudo) bool    { return p.ID == o.ID }

func (p Pseudo) String() string {
	if p.IsDiscard() {
		return "%_"
	}
	return fmt.Sprintf("%%%d.%d", p.ID, p.Version)
}

// Instr is one SSA instruction. Operand slots distinguish reads from writes:
// mapUses rewrites every read slot, defSlots exposes the write slots for the
// renaming pass.
type Instr interface {
	String() string
	mapUses(f func(Pseudo) Pseudo)
	defSlots() []*Pseudo
}

type Move struct {
	Source int64
	Dest   Pseudo
}

func (i *Move) mapUses(func(Pseudo) Pseudo) {}
func (i *Move) defSlots() []*Pseudo         { return []*Pseudo{&i.Dest} }
func (i *Move) String() string              { return fmt.Sprintf("move %d, %s", i.Source, i.Dest) }

type Copy struct {
	Src  Pseudo
	Dest Pseudo
}

func (i *Copy) mapUses(f func(Pseudo) Pseudo) { i.Src = f(i.Src) }
func (i *Copy) defSlots() []*Pseudo           { return []*Pseudo{&i.Dest} }
func (i *Copy) String() string                { return fmt.Sprintf("copy %s, %s", i.Src, i.Dest) }

type Load struct {
	Src    string
	Offset int
	Dest   Pseudo
}

func (i *Load) mapUses(func(Pseudo) Pseudo) {}
func (i *Load) defSlots() []*Pseudo         { return []*Pseudo{&i.Dest} }
func (i *Load) String() string {
	return fmt.Sprintf("load %s+%d, %s", i.Src, i.Offset, i.Dest)
}

type Store struct {
	Src    Pseudo
	Dest   string
	Offset int
}

func (i *Store) mapUses(f func(Pseudo) Pseudo) { i.Src = f(i.Src) }
func (i *Store) defSlots() []*Pseudo           { return nil }
func (i *Store) String() string {
	return fmt.Sprintf("store %s, %s+%d", i.Src, i.Dest, i.Offset)
}

// Unop splits the linear read-modify-write form: Arg is the prior value of
// the register, Dest its fresh version.
type Unop struct {
	Op   rtl.UnopCode
	Arg  Pseudo
	Dest Pseudo
}

func (i *Unop) mapUses(f func(Pseudo) Pseudo) { i.Arg = f(i.Arg) }
func (i *Unop) defSlots() []*Pseudo           { return []*Pseudo{&i.Dest} }
func (i *Unop) String() string {
	return fmt.Sprintf("unop %s, %s >> %s", i.Op, i.Arg, i.Dest)
}

// Binop computes Dest = Left op Right, where Left is the prior value of the
// destination register and Right the source operand of the linear form.
type Binop struct {
	Op    rtl.BinopCode
	Left  Pseudo
	Right Pseudo
	Dest  Pseudo
}

func (i *Binop) mapUses(f func(Pseudo) Pseudo) {
	i.Left = f(i.Left)
	i.Right = f(i.Right)
}
func (i *Binop) defSlots() []*Pseudo { return []*Pseudo{&i.Dest} }
func (i *Binop) String() string {
	return fmt.Sprintf("binop %s, %s, %s >> %s", i.Op, i.Left, i.Right, i.Dest)
}

type Ubranch struct {
	Op  rtl.UbranchCode
	Arg Pseudo
}

func (i *Ubranch) mapUses(f func(Pseudo) Pseudo) { i.Arg = f(i.Arg) }
func (i *Ubranch) defSlots() []*Pseudo           { return nil }
func (i *Ubranch) String() string                { return fmt.Sprintf("ubranch %s, %s", i.Op, i.Arg) }

type Bbranch struct {
	Op   rtl.BbranchCode
	Arg1 Pseudo
	Arg2 Pseudo
}

func (i *Bbranch) mapUses(f func(Pseudo) Pseudo) {
	i.Arg1 = f(i.Arg1)
	i.Arg2 = f(i.Arg2)
}
func (i *Bbranch) defSlots() []*Pseudo { return nil }
func (i *Bbranch) String() string {
	return fmt.Sprintf("bbranch %s, %s, %s", i.Op, i.Arg1, i.Arg2)
}

type Call struct {
	Func string
	Args []Pseudo
	Ret  Pseudo
}

func (i *Call) mapUses(f func(Pseudo) Pseudo) {
	for n := range i.Args {
		i.Args[n] = f(i.Args[n])
	}
}

func (i *Call) defSlots() []*Pseudo {
	if i.Ret.IsDiscard() {
		return nil
	}
	return []*Pseudo{&i.Ret}
}

func (i *Call) String() string {
	s := fmt.Sprintf("call %s(", i.Func)
	for n, a := range i.Args {
		if n > 0 {
			s += ", "
		}
		s += a.String()
	}
	return fmt.Sprintf("%s), %s", s, i.Ret)
}

type Return struct {
	Arg Pseudo
}

func (i *Return) mapUses(f func(Pseudo) Pseudo) { i.Arg = f(i.Arg) }
func (i *Return) defSlots() []*Pseudo           { return nil }
func (i *Return) String() string                { return fmt.Sprintf("return %s", i.Arg) }

// Phi selects one of Args according to the predecessor edge taken. Args and
// Preds are kept aligned: Args[n] flows in from Preds[n].
type Phi struct {
	Args  []Pseudo
	Preds []rtl.Label
	Dest  Pseudo
}

func (i *Phi) mapUses(f func(Pseudo) Pseudo) {
	for n := range i.Args {
		i.Args[n] = f(i.Args[n])
	}
}

func (i *Phi) defSlots() []*Pseudo { return []*Pseudo{&i.Dest} }

func (i *Phi) String() string {
	s := "phi ("
	for n, a := range i.Args {
		if n > 0 {
			s += ", "
		}
		s += fmt.Sprintf("%s <- %s", a, i.Preds[n])
	}
	return fmt.Sprintf("%s) >> %s", s, i.Dest)
}

// BBlock is a basic block: straight-line instructions plus the ordered labels
// control may leave to. Only the last instruction may be a terminator; φs, if
// present, precede all non-φ instructions.
type BBlock struct {
	Body []Instr
	Out  []rtl.Label
}

// lastDefs maps each register id to the version of its final write in the
// block, φ destinations included.
func (b *BBlock) lastDefs() map[int]int {
	defs := make(map[int]int)
	for _, instr := range b.Body {
		for _, slot := range instr.defSlots() {
			if !slot.IsDiscard() {
				defs[slot.ID] = slot.Version
			}
		}
	}
	return defs
}

// Callable is one routine in SSA form. Predecessors are derived from the
// out-label relation on demand, never stored as a primary edge.
type Callable struct {
	Name     string
	Enter    rtl.Label
	Inputs   []Pseudo
	Body     map[rtl.Label]*BBlock
	Schedule []rtl.Label
	Result   source.Type
}

func NewCallable(name string) *Callable {
	return &Callable{Name: name, Body: make(map[rtl.Label]*BBlock)}
}

// AddBlock records block at lab; a repeated in-label fails the unit.
func (c *Callable) AddBlock(lab rtl.Label, block *BBlock) error {
	if _, ok := c.Body[lab]; ok {
		return fmt.Errorf("ssa: routine %q: repeated in-label %s", c.Name, lab)
	}
	c.Schedule = append(c.Schedule, lab)
	c.Body[lab] = block
	return nil
}

// Preds inverts the out-label relation. Predecessor order follows the
// schedule, which keeps φ argument wiring deterministic.
func (c *Callable) Preds() map[rtl.Label][]rtl.Label {
	preds := make(map[rtl.Label][]rtl.Label)
	for _, lab := range c.Schedule {
		for _, out := range c.Body[lab].Out {
			preds[out] = append(preds[out], lab)
		}
	}
	return preds
}

// Program is one compilation unit in SSA form.
type Program struct {
	Globals   source.GlobalVarTable
	Callables []*Callable
}
