package llvm

import (
	"fmt"
	"strconv"
	"strings"

	"bxc/internal/rtl"
	"bxc/internal/source"
	"bxc/internal/ssa"
)

// The emitter lowers each SSA routine to a textual function definition.
// Every versioned pseudo gets a fresh symbolic name x<N> from a counter
// scoped to the compilation unit; two versions of the same register receive
// different names, which is the whole point of SSA.

// PrintIntRuntime is the runtime routine backing the print builtin.
const PrintIntRuntime = "bx_print_int"

type Emitter struct {
	counter int
	names   map[ssa.Pseudo]string
	types   map[string]string
}

func NewEmitter() *Emitter {
	return &Emitter{
		names: make(map[ssa.Pseudo]string),
		types: map[string]string{PrintIntRuntime: "void"},
	}
}

// Generate emits a whole program: globals, external declarations, then one
// function definition per routine in program order.
func (e *Emitter) Generate(prog *ssa.Program) ([]*Line, error) {
	var lines []*Line
	for _, gv := range prog.Globals {
		switch gv.Type {
		case source.TypeInt64, source.TypeBool:
			lines = append(lines, GlobalWithValue(gv.Name, "i64", gv.Init.Value()))
		default:
			return nil, fmt.Errorf("llvm: global %q has unsupported type %s", gv.Name, gv.Type)
		}
	}

	lines = append(lines, Declare(PrintIntRuntime, "void", 1))
	for _, cbl := range prog.Callables {
		e.types[cbl.Name] = returnType(cbl.Result)
	}

	for _, cbl := range prog.Callables {
		fn, err := e.emitCallable(cbl)
		if err != nil {
			return nil, err
		}
		lines = append(lines, fn...)
	}
	return lines, nil
}

// GenerateText renders the program as the final .ll artifact.
func GenerateText(prog *ssa.Program) (string, error) {
	lines, err := NewEmitter().Generate(prog)
	if err != nil {
		return "", err
	}
	var out strings.Builder
	for _, l := range lines {
		out.WriteString(l.String())
		out.WriteString("\n")
	}
	return out.String(), nil
}

func returnType(t source.Type) string {
	if t == source.TypeVoid {
		return "void"
	}
	return "i64"
}

func (e *Emitter) emitCallable(cbl *ssa.Callable) ([]*Line, error) {
	params := make([]string, len(cbl.Inputs))
	for n, in := range cbl.Inputs {
		params[n] = e.value(in)
	}

	lines := []*Line{Define(cbl.Name, e.types[cbl.Name], params)}
	for _, lab := range cbl.Schedule {
		block := cbl.Body[lab]
		lines = append(lines, SetLabel(lab.ID))
		for _, instr := range block.Body {
			emitted, err := e.emitInstr(cbl, instr, block)
			if err != nil {
				return nil, err
			}
			lines = append(lines, emitted...)
		}
		switch len(block.Out) {
		case 0:
			if len(block.Body) == 0 {
				return nil, fmt.Errorf("llvm: routine %q: block %s has no terminator", cbl.Name, lab)
			}
			if _, ok := block.Body[len(block.Body)-1].(*ssa.Return); !ok {
				return nil, fmt.Errorf("llvm: routine %q: block %s has no terminator", cbl.Name, lab)
			}
		case 1:
			lines = append(lines, BrUncond(blockLabel(block.Out[0].ID)))
		}
	}
	lines = append(lines, Directive("}"))
	return lines, nil
}

func (e *Emitter) emitInstr(cbl *ssa.Callable, instr ssa.Instr, block *ssa.BBlock) ([]*Line, error) {
	switch i := instr.(type) {
	case *ssa.Move:
		return one(Add(e.translate(i.Dest), "i64", "0", strconv.FormatInt(i.Source, 10))), nil
	case *ssa.Copy:
		return one(Add(e.translate(i.Dest), "i64", e.value(i.Src), "0")), nil
	case *ssa.Load:
		return one(Load(e.translate(i.Dest), "i64", i.Src)), nil
	case *ssa.Store:
		return one(Store("i64", e.value(i.Src), i.Dest)), nil
	case *ssa.Unop:
		return e.emitUnop(i)
	case *ssa.Binop:
		return e.emitBinop(i)
	case *ssa.Ubranch:
		return e.emitUbranch(i, block)
	case *ssa.Bbranch:
		return e.emitBbranch(i, block)
	case *ssa.Call:
		return e.emitCall(i)
	case *ssa.Return:
		if i.Arg.IsDiscard() {
			return one(RetVoid()), nil
		}
		return one(RetType("i64", e.value(i.Arg))), nil
	case *ssa.Phi:
		pairs := make([][2]string, len(i.Args))
		for n, a := range i.Args {
			pairs[n] = [2]string{e.value(a), blockLabel(i.Preds[n].ID)}
		}
		return one(Phi(e.translate(i.Dest), "i64", pairs)), nil
	}
	return nil, fmt.Errorf("llvm: routine %q: unknown instruction %s", cbl.Name, instr)
}

func (e *Emitter) emitUnop(i *ssa.Unop) ([]*Line, error) {
	switch i.Op {
	case rtl.NEG:
		return one(Mul(e.translate(i.Dest), "i64", e.value(i.Arg), "-1")), nil
	case rtl.NOT:
		return one(Xor(e.translate(i.Dest), "i64", e.value(i.Arg), "1")), nil
	}
	return nil, fmt.Errorf("llvm: unknown unop %s", i.Op)
}

func (e *Emitter) emitBinop(i *ssa.Binop) ([]*Line, error) {
	dest := e.translate(i.Dest)
	left, right := e.value(i.Left), e.value(i.Right)
	switch i.Op {
	case rtl.ADD:
		return one(Add(dest, "i64", left, right)), nil
	case rtl.SUB:
		return one(Sub(dest, "i64", left, right)), nil
	case rtl.MUL:
		return one(Mul(dest, "i64", left, right)), nil
	case rtl.DIV:
		return one(Udiv(dest, "i64", left, right)), nil
	case rtl.REM:
		return one(Srem(dest, "i64", left, right)), nil
	case rtl.SAL:
		return one(Shl(dest, "i64", left, right)), nil
	case rtl.SAR:
		return one(Ashr(dest, "i64", left, right)), nil
	case rtl.AND:
		return one(And(dest, "i64", left, right)), nil
	case rtl.OR:
		return one(Or(dest, "i64", left, right)), nil
	case rtl.XOR:
		return one(Xor(dest, "i64", left, right)), nil
	}
	return nil, fmt.Errorf("llvm: unknown binop %s", i.Op)
}

func (e *Emitter) emitUbranch(i *ssa.Ubranch, block *ssa.BBlock) ([]*Line, error) {
	cond := e.freshName()
	var cmp *Line
	switch i.Op {
	case rtl.JZ:
		cmp = Eq(cond, "i64", e.value(i.Arg), "0")
	case rtl.JNZ:
		cmp = Ne(cond, "i64", e.value(i.Arg), "0")
	default:
		return nil, fmt.Errorf("llvm: unknown ubranch %s", i.Op)
	}
	return []*Line{cmp, BrCond(cond, blockLabel(block.Out[0].ID), blockLabel(block.Out[1].ID))}, nil
}

func (e *Emitter) emitBbranch(i *ssa.Bbranch, block *ssa.BBlock) ([]*Line, error) {
	cond := e.freshName()
	a1, a2 := e.value(i.Arg1), e.value(i.Arg2)
	var cmp *Line
	switch i.Op {
	case rtl.JE:
		cmp = Eq(cond, "i64", a1, a2)
	case rtl.JNE:
		cmp = Ne(cond, "i64", a1, a2)
	case rtl.JL, rtl.JNGE:
		cmp = Slt(cond, "i64", a1, a2)
	case rtl.JLE, rtl.JNG:
		cmp = Sle(cond, "i64", a1, a2)
	case rtl.JG, rtl.JNLE:
		cmp = Sgt(cond, "i64", a1, a2)
	case rtl.JGE, rtl.JNL:
		cmp = Sge(cond, "i64", a1, a2)
	default:
		return nil, fmt.Errorf("llvm: unknown bbranch %s", i.Op)
	}
	return []*Line{cmp, BrCond(cond, blockLabel(block.Out[0].ID), blockLabel(block.Out[1].ID))}, nil
}

func (e *Emitter) emitCall(i *ssa.Call) ([]*Line, error) {
	typ, ok := e.types[i.Func]
	if !ok {
		return nil, fmt.Errorf("llvm: call to unknown function %q", i.Func)
	}
	args := make([]string, len(i.Args))
	for n, a := range i.Args {
		args[n] = e.value(a)
	}
	dest := ""
	if typ != "void" && !i.Ret.IsDiscard() {
		dest = e.translate(i.Ret)
	}
	return one(Call(dest, i.Func, typ, args)), nil
}

// translate memoizes the symbolic name of a versioned pseudo.
func (e *Emitter) translate(p ssa.Pseudo) string {
	if name, ok := e.names[p]; ok {
		return name
	}
	name := e.freshName()
	e.names[p] = name
	return name
}

// value renders a pseudo as an SSA value reference.
func (e *Emitter) value(p ssa.Pseudo) string {
	return "%" + e.translate(p)
}

func (e *Emitter) freshName() string {
	name := fmt.Sprintf("x%d", e.counter)
	e.counter++
	return name
}

func blockLabel(id int) string { return fmt.Sprintf("L%d", id) }

func one(l *Line) []*Line { return []*Line{l} }
