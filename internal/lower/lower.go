package lower

import (
	"strconv"

	"bxc/internal/check"
	"bxc/internal/grammar"
	"bxc/internal/llvm"
	"bxc/internal/rtl"
	"bxc/internal/source"
)

// Syntax-directed lowering from the checked AST to the linear IR. Generation
// is forward: the lowerer keeps a current label, every straight-line
// instruction is placed there with a fresh successor, and control-flow
// statements pre-allocate their target labels. Statements behind a return
// are unreachable and skipped.

// Lower translates a checked program into linear IR.
func Lower(prog *grammar.Program, res *check.Result, counters *rtl.Counters) (*rtl.Program, error) {
	out := &rtl.Program{Globals: res.Globals}
	for _, decl := range prog.Decls {
		if decl.Proc == nil {
			continue
		}
		cbl, err := lowerProc(decl.Proc, res, counters)
		if err != nil {
			return nil, err
		}
		out.Callables = append(out.Callables, cbl)
	}
	return out, nil
}

// binding is a lowered local variable.
type binding struct {
	reg rtl.Pseudo
	typ source.Type
}

type lowerer struct {
	cbl      *rtl.Callable
	counters *rtl.Counters
	res      *check.Result
	cur      rtl.Label
	scopes   []map[string]binding
	err      error
}

func lowerProc(p *grammar.ProcDecl, res *check.Result, counters *rtl.Counters) (*rtl.Callable, error) {
	sig := res.Procs[p.Name]
	l := &lowerer{
		cbl:      rtl.NewCallable(p.Name),
		counters: counters,
		res:      res,
	}
	l.cbl.Result = sig.Return
	l.cbl.Enter = counters.FreshLabel()
	l.cbl.Leave = counters.FreshLabel()
	l.cur = l.cbl.Enter

	params := make(map[string]binding)
	for n, name := range sig.ParamNames {
		reg := counters.FreshPseudo()
		l.cbl.Inputs = append(l.cbl.Inputs, reg)
		params[name] = binding{reg: reg, typ: sig.Params[n]}
	}
	l.scopes = []map[string]binding{params}

	l.cbl.Output = rtl.Discard
	if sig.Return != source.TypeVoid {
		l.cbl.Output = counters.FreshPseudo()
	}

	l.lowerBlock(p.Body)
	if !check.Terminates(p.Body) {
		l.add(l.cur, &rtl.Return{Arg: rtl.Discard})
	}
	if l.err != nil {
		return nil, l.err
	}
	if err := l.cbl.Validate(); err != nil {
		return nil, err
	}
	return l.cbl, nil
}

// add records instr at lab, keeping the first error.
func (l *lowerer) add(lab rtl.Label, instr rtl.Instr) {
	if err := l.cbl.AddInstr(lab, instr); err != nil && l.err == nil {
		l.err = err
	}
}

// seq places instr at the current point with a fresh successor. The build
// callback receives that successor so the instruction can name it.
func (l *lowerer) seq(build func(succ rtl.Label) rtl.Instr) {
	next := l.counters.FreshLabel()
	l.add(l.cur, build(next))
	l.cur = next
}

func (l *lowerer) pushScope() { l.scopes = append(l.scopes, make(map[string]binding)) }
func (l *lowerer) popScope()  { l.scopes = l.scopes[:len(l.scopes)-1] }

// lookup finds a local binding; ok is false for globals.
func (l *lowerer) lookup(name string) (binding, bool) {
	for n := len(l.scopes) - 1; n >= 0; n-- {
		if b, ok := l.scopes[n][name]; ok {
			return b, true
		}
	}
	return binding{}, false
}

func (l *lowerer) lowerBlock(b *grammar.Block) {
	l.pushScope()
	for _, stmt := range b.Stmts {
		l.lowerStmt(stmt)
		if stmtEndsFlow(stmt) {
			break
		}
	}
	l.popScope()
}

func stmtEndsFlow(s *grammar.Stmt) bool {
	return s.Return != nil ||
		(s.Block != nil && check.Terminates(s.Block)) ||
		(s.If != nil && ifTerminatesBoth(s.If))
}

func ifTerminatesBoth(i *grammar.IfStmt) bool {
	if i.Else == nil || !check.Terminates(i.Then) {
		return false
	}
	if i.Else.If != nil {
		return ifTerminatesBoth(i.Else.If)
	}
	return check.Terminates(i.Else.Block)
}

func (l *lowerer) lowerStmt(s *grammar.Stmt) {
	switch {
	case s.VarDecl != nil:
		d := s.VarDecl
		reg := l.counters.FreshPseudo()
		l.lowerExpr(d.Init.Normalize(), reg)
		l.scopes[len(l.scopes)-1][d.Name] = binding{reg: reg, typ: namedType(d.Type)}

	case s.Assign != nil:
		a := s.Assign
		if b, ok := l.lookup(a.Name); ok {
			l.lowerExpr(a.Value.Normalize(), b.reg)
			return
		}
		tmp := l.counters.FreshPseudo()
		l.lowerExpr(a.Value.Normalize(), tmp)
		l.seq(func(succ rtl.Label) rtl.Instr {
			return &rtl.Store{Src: tmp, Dest: a.Name, Succ: succ}
		})

	case s.Eval != nil:
		node := s.Eval.Expr.Normalize()
		if call, ok := node.(*grammar.CallNode); ok {
			if l.res.Procs[call.Name].Return == source.TypeVoid {
				l.lowerCall(call, rtl.Discard)
				return
			}
		}
		l.lowerExpr(node, l.counters.FreshPseudo())

	case s.If != nil:
		l.lowerIf(s.If)

	case s.While != nil:
		l.lowerWhile(s.While)

	case s.Return != nil:
		if s.Return.Expr == nil {
			l.add(l.cur, &rtl.Return{Arg: rtl.Discard})
		} else {
			l.lowerExpr(s.Return.Expr.Normalize(), l.cbl.Output)
			l.add(l.cur, &rtl.Return{Arg: l.cbl.Output})
		}
		l.cur = l.counters.FreshLabel()

	case s.Block != nil:
		l.lowerBlock(s.Block)
	}
}

func (l *lowerer) lowerIf(i *grammar.IfStmt) {
	thenL := l.counters.FreshLabel()
	join := l.counters.FreshLabel()

	if i.Else == nil {
		l.lowerCond(i.Cond.Normalize(), thenL, join)
		l.cur = thenL
		l.lowerBlock(i.Then)
		if !check.Terminates(i.Then) {
			l.add(l.cur, &rtl.Goto{Succ: join})
		}
		l.cur = join
		return
	}

	elseL := l.counters.FreshLabel()
	l.lowerCond(i.Cond.Normalize(), thenL, elseL)

	l.cur = thenL
	l.lowerBlock(i.Then)
	if !check.Terminates(i.Then) {
		l.add(l.cur, &rtl.Goto{Succ: join})
	}

	l.cur = elseL
	if i.Else.If != nil {
		l.lowerIf(i.Else.If)
		if !ifTerminatesBoth(i.Else.If) {
			l.add(l.cur, &rtl.Goto{Succ: join})
		}
	} else {
		l.lowerBlock(i.Else.Block)
		if !check.Terminates(i.Else.Block) {
			l.add(l.cur, &rtl.Goto{Succ: join})
		}
	}
	l.cur = join
}

func (l *lowerer) lowerWhile(w *grammar.WhileStmt) {
	head := l.counters.FreshLabel()
	body := l.counters.FreshLabel()
	exit := l.counters.FreshLabel()

	l.add(l.cur, &rtl.Goto{Succ: head})
	l.cur = head
	l.lowerCond(w.Cond.Normalize(), body, exit)

	l.cur = body
	l.lowerBlock(w.Body)
	if !check.Terminates(w.Body) {
		l.add(l.cur, &rtl.Goto{Succ: head})
	}
	l.cur = exit
}

// lowerExpr computes node into dest, continuing at the current point.
func (l *lowerer) lowerExpr(node grammar.Node, dest rtl.Pseudo) {
	switch e := node.(type) {
	case *grammar.IntNode:
		v := parseInt64(e.Text)
		l.seq(func(succ rtl.Label) rtl.Instr {
			return &rtl.Move{Source: v, Dest: dest, Succ: succ}
		})

	case *grammar.BoolNode:
		v := int64(0)
		if e.Value {
			v = 1
		}
		l.seq(func(succ rtl.Label) rtl.Instr {
			return &rtl.Move{Source: v, Dest: dest, Succ: succ}
		})

	case *grammar.VarNode:
		if b, ok := l.lookup(e.Name); ok {
			l.seq(func(succ rtl.Label) rtl.Instr {
				return &rtl.Copy{Src: b.reg, Dest: dest, Succ: succ}
			})
			return
		}
		l.seq(func(succ rtl.Label) rtl.Instr {
			return &rtl.Load{Src: e.Name, Offset: 0, Dest: dest, Succ: succ}
		})

	case *grammar.UnaryNode:
		l.lowerExpr(e.Operand, dest)
		op := rtl.NEG
		if e.Op == "!" {
			op = rtl.NOT
		}
		l.seq(func(succ rtl.Label) rtl.Instr {
			return &rtl.Unop{Op: op, Arg: dest, Succ: succ}
		})

	case *grammar.BinaryNode:
		if op, ok := arithOp(e.Op); ok {
			l.lowerExpr(e.Left, dest)
			tmp := l.counters.FreshPseudo()
			l.lowerExpr(e.Right, tmp)
			l.seq(func(succ rtl.Label) rtl.Instr {
				return &rtl.Binop{Op: op, Src: tmp, Dest: dest, Succ: succ}
			})
			return
		}
		// Comparison or short-circuit operator in value position:
		// materialize through a 1/0 diamond.
		l.materializeBool(node, dest)

	case *grammar.CallNode:
		l.lowerCall(e, dest)
	}
}

func (l *lowerer) lowerCall(e *grammar.CallNode, dest rtl.Pseudo) {
	args := make([]rtl.Pseudo, len(e.Args))
	for n, a := range e.Args {
		args[n] = l.counters.FreshPseudo()
		l.lowerExpr(a, args[n])
	}
	name := e.Name
	if l.res.Procs[e.Name].Builtin {
		name = llvm.PrintIntRuntime
	}
	l.seq(func(succ rtl.Label) rtl.Instr {
		return &rtl.Call{Func: name, Args: args, Ret: dest, Succ: succ}
	})
}

// materializeBool lowers a boolean-producing expression to a 0/1 value by
// branching into two Move arms that rejoin.
func (l *lowerer) materializeBool(node grammar.Node, dest rtl.Pseudo) {
	trueL := l.counters.FreshLabel()
	falseL := l.counters.FreshLabel()
	join := l.counters.FreshLabel()
	l.lowerCond(node, trueL, falseL)
	l.add(trueL, &rtl.Move{Source: 1, Dest: dest, Succ: join})
	l.add(falseL, &rtl.Move{Source: 0, Dest: dest, Succ: join})
	l.cur = join
}

// lowerCond lowers node as a condition branching to trueL or falseL.
// Comparisons become Bbranch, negation swaps the targets, and the
// short-circuit operators chain through an intermediate label.
func (l *lowerer) lowerCond(node grammar.Node, trueL, falseL rtl.Label) {
	switch e := node.(type) {
	case *grammar.BoolNode:
		target := falseL
		if e.Value {
			target = trueL
		}
		l.add(l.cur, &rtl.Goto{Succ: target})

	case *grammar.UnaryNode:
		if e.Op == "!" {
			l.lowerCond(e.Operand, falseL, trueL)
			return
		}
		l.branchOnValue(node, trueL, falseL)

	case *grammar.BinaryNode:
		switch e.Op {
		case "&&":
			mid := l.counters.FreshLabel()
			l.lowerCond(e.Left, mid, falseL)
			l.cur = mid
			l.lowerCond(e.Right, trueL, falseL)
		case "||":
			mid := l.counters.FreshLabel()
			l.lowerCond(e.Left, trueL, mid)
			l.cur = mid
			l.lowerCond(e.Right, trueL, falseL)
		case "==", "!=", "<", "<=", ">", ">=":
			a1 := l.counters.FreshPseudo()
			a2 := l.counters.FreshPseudo()
			l.lowerExpr(e.Left, a1)
			l.lowerExpr(e.Right, a2)
			l.add(l.cur, &rtl.Bbranch{
				Op: compareOp(e.Op), Arg1: a1, Arg2: a2, Then: trueL, Else: falseL,
			})
		default:
			l.branchOnValue(node, trueL, falseL)
		}

	default:
		l.branchOnValue(node, trueL, falseL)
	}
}

// branchOnValue tests an already 0/1-valued boolean expression.
func (l *lowerer) branchOnValue(node grammar.Node, trueL, falseL rtl.Label) {
	tmp := l.counters.FreshPseudo()
	l.lowerExpr(node, tmp)
	l.add(l.cur, &rtl.Ubranch{Op: rtl.JNZ, Arg: tmp, Then: trueL, Else: falseL})
}

func arithOp(op string) (rtl.BinopCode, bool) {
	switch op {
	case "+":
		return rtl.ADD, true
	case "-":
		return rtl.SUB, true
	case "*":
		return rtl.MUL, true
	case "/":
		return rtl.DIV, true
	case "%":
		return rtl.REM, true
	case "<<":
		return rtl.SAL, true
	case ">>":
		return rtl.SAR, true
	case "&":
		return rtl.AND, true
	case "|":
		return rtl.OR, true
	case "^":
		return rtl.XOR, true
	}
	return 0, false
}

func compareOp(op string) rtl.BbranchCode {
	switch op {
	case "==":
		return rtl.JE
	case "!=":
		return rtl.JNE
	case "<":
		return rtl.JL
	case "<=":
		return rtl.JLE
	case ">":
		return rtl.JG
	}
	return rtl.JGE
}

func namedType(name string) source.Type {
	if name == "bool" {
		return source.TypeBool
	}
	return source.TypeInt64
}

func parseInt64(text string) int64 {
	// The checker already rejected out-of-range literals.
	v, _ := strconv.ParseInt(text, 10, 64)
	return v
}
