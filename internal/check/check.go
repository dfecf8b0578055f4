package check

import (
	"fmt"
	"strconv"

	"github.com/alecthomas/participle/v2/lexer"

	"bxc/internal/diag"
	"bxc/internal/grammar"
	"bxc/internal/source"
)

// The type checker runs two passes: collect global variables and procedure
// signatures, then check every procedure body against them. It produces the
// global-variable table the back end consumes plus a list of diagnostics;
// any error-level diagnostic fails the unit.

// typeInvalid poisons expressions that already produced a diagnostic so one
// mistake does not cascade.
const typeInvalid source.Type = -1

// ProcSig is a procedure's checked signature.
type ProcSig struct {
	Name       string
	ParamNames []string
	Params     []source.Type
	Return     source.Type
	Builtin    bool

	decl *grammar.ProcDecl
}

// Result is everything later stages need from the checker.
type Result struct {
	Globals source.GlobalVarTable
	Procs   map[string]*ProcSig
}

type checker struct {
	procs   map[string]*ProcSig
	globals map[string]source.Type
	table   source.GlobalVarTable
	diags   []diag.Diagnostic

	cur    *ProcSig
	scopes []map[string]source.Type
}

// Check type-checks a parsed program.
func Check(prog *grammar.Program) (*Result, []diag.Diagnostic) {
	c := &checker{
		procs:   make(map[string]*ProcSig),
		globals: make(map[string]source.Type),
	}
	c.procs["print"] = &ProcSig{
		Name:       "print",
		ParamNames: []string{"value"},
		Params:     []source.Type{source.TypeInt64},
		Return:     source.TypeVoid,
		Builtin:    true,
	}

	c.collect(prog)
	for _, decl := range prog.Decls {
		if decl.Proc != nil {
			c.checkProc(decl.Proc)
		}
	}

	if main, ok := c.procs["main"]; !ok {
		c.errorAt(lexer.Position{Line: 1, Column: 1}, diag.CodeMissingMain,
			"program has no main procedure")
	} else if len(main.Params) != 0 || main.Return != source.TypeVoid {
		c.errorAt(lexer.Position{Line: 1, Column: 1}, diag.CodeMissingMain,
			"main must take no parameters and return nothing")
	}

	return &Result{Globals: c.table, Procs: c.procs}, c.diags
}

func (c *checker) errorAt(pos lexer.Position, code, format string, args ...interface{}) {
	c.diags = append(c.diags, diag.Diagnostic{
		Level:   diag.Error,
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Pos:     pos,
	})
}

func namedType(name string) source.Type {
	if name == "bool" {
		return source.TypeBool
	}
	return source.TypeInt64
}

// collect registers globals and procedure signatures before bodies are
// checked, so forward calls resolve.
func (c *checker) collect(prog *grammar.Program) {
	for _, decl := range prog.Decls {
		switch {
		case decl.Global != nil:
			g := decl.Global
			if _, ok := c.globals[g.Name]; ok {
				c.errorAt(g.Pos, diag.CodeRedeclaredVar, "global %q is already declared", g.Name)
				continue
			}
			gv := &source.GlobalVar{Name: g.Name, Type: namedType(g.Type)}
			switch {
			case g.Init.Int != nil:
				if gv.Type != source.TypeInt64 {
					c.errorAt(g.Init.Pos, diag.CodeTypeMismatch,
						"global %q declared bool but initialized with an integer", g.Name)
				}
				v, err := strconv.ParseInt(*g.Init.Int, 10, 64)
				if err != nil {
					c.errorAt(g.Init.Pos, diag.CodeIntOutOfRange,
						"integer literal %s does not fit in 64 bits", *g.Init.Int)
				}
				gv.Init = source.IntConstant(v)
			default:
				if gv.Type != source.TypeBool {
					c.errorAt(g.Init.Pos, diag.CodeTypeMismatch,
						"global %q declared int but initialized with a boolean", g.Name)
				}
				gv.Init = source.BoolConstant(g.Init.True)
			}
			c.globals[g.Name] = gv.Type
			c.table = append(c.table, gv)

		case decl.Proc != nil:
			p := decl.Proc
			if _, ok := c.procs[p.Name]; ok {
				c.errorAt(p.Pos, diag.CodeRedeclaredProc, "procedure %q is already declared", p.Name)
				continue
			}
			sig := &ProcSig{Name: p.Name, Return: source.TypeVoid, decl: p}
			if p.Return != "" {
				sig.Return = namedType(p.Return)
			}
			for _, param := range p.Params {
				sig.ParamNames = append(sig.ParamNames, param.Name)
				sig.Params = append(sig.Params, namedType(param.Type))
			}
			c.procs[p.Name] = sig
		}
	}
}

func (c *checker) checkProc(p *grammar.ProcDecl) {
	sig, ok := c.procs[p.Name]
	if !ok || sig.decl != p {
		// A redeclared procedure's body is not checked against the original
		// signature; the redeclaration diagnostic already failed the unit.
		return
	}
	c.cur = sig
	params := make(map[string]source.Type)
	for n, name := range sig.ParamNames {
		if _, dup := params[name]; dup {
			c.errorAt(p.Params[n].Pos, diag.CodeRedeclaredVar,
				"parameter %q is already declared", name)
		}
		params[name] = sig.Params[n]
	}
	c.scopes = []map[string]source.Type{params}
	c.checkBlock(p.Body)
	c.scopes = nil

	if sig.Return != source.TypeVoid && !Terminates(p.Body) {
		c.errorAt(p.Pos, diag.CodeMissingReturn,
			"procedure %q returns %s but not all paths return a value", p.Name, sig.Return)
	}
}

func (c *checker) pushScope() { c.scopes = append(c.scopes, make(map[string]source.Type)) }
func (c *checker) popScope()  { c.scopes = c.scopes[:len(c.scopes)-1] }

func (c *checker) lookupVar(name string) (source.Type, bool) {
	for n := len(c.scopes) - 1; n >= 0; n-- {
		if t, ok := c.scopes[n][name]; ok {
			return t, true
		}
	}
	if t, ok := c.globals[name]; ok {
		return t, true
	}
	return typeInvalid, false
}

func (c *checker) checkBlock(b *grammar.Block) {
	c.pushScope()
	for _, stmt := range b.Stmts {
		c.checkStmt(stmt)
	}
	c.popScope()
}

func (c *checker) checkStmt(s *grammar.Stmt) {
	switch {
	case s.VarDecl != nil:
		d := s.VarDecl
		declared := namedType(d.Type)
		got := c.checkExpr(d.Init.Normalize())
		if got != typeInvalid && got != declared {
			c.errorAt(d.Pos, diag.CodeTypeMismatch,
				"variable %q declared %s but initialized with %s", d.Name, declared, got)
		}
		scope := c.scopes[len(c.scopes)-1]
		if _, ok := scope[d.Name]; ok {
			c.errorAt(d.Pos, diag.CodeRedeclaredVar, "variable %q is already declared in this scope", d.Name)
		}
		scope[d.Name] = declared

	case s.Assign != nil:
		a := s.Assign
		declared, ok := c.lookupVar(a.Name)
		if !ok {
			c.errorAt(a.Pos, diag.CodeUndeclaredVar, "assignment to undeclared variable %q", a.Name)
			c.checkExpr(a.Value.Normalize())
			return
		}
		got := c.checkExpr(a.Value.Normalize())
		if got != typeInvalid && got != declared {
			c.errorAt(a.Pos, diag.CodeTypeMismatch,
				"cannot assign %s to %s variable %q", got, declared, a.Name)
		}

	case s.Eval != nil:
		c.checkExprAllowVoid(s.Eval.Expr.Normalize())

	case s.If != nil:
		c.checkIf(s.If)

	case s.While != nil:
		cond := c.checkExpr(s.While.Cond.Normalize())
		if cond != typeInvalid && cond != source.TypeBool {
			c.errorAt(s.While.Pos, diag.CodeBadCondition, "while condition must be bool, got %s", cond)
		}
		c.checkBlock(s.While.Body)

	case s.Return != nil:
		c.checkReturn(s.Return)

	case s.Block != nil:
		c.checkBlock(s.Block)
	}
}

func (c *checker) checkIf(i *grammar.IfStmt) {
	cond := c.checkExpr(i.Cond.Normalize())
	if cond != typeInvalid && cond != source.TypeBool {
		c.errorAt(i.Pos, diag.CodeBadCondition, "if condition must be bool, got %s", cond)
	}
	c.checkBlock(i.Then)
	if i.Else != nil {
		if i.Else.If != nil {
			c.checkIf(i.Else.If)
		} else {
			c.checkBlock(i.Else.Block)
		}
	}
}

func (c *checker) checkReturn(r *grammar.ReturnStmt) {
	if r.Expr == nil {
		if c.cur.Return != source.TypeVoid {
			c.errorAt(r.Pos, diag.CodeBadReturn,
				"procedure %q must return a %s value", c.cur.Name, c.cur.Return)
		}
		return
	}
	got := c.checkExpr(r.Expr.Normalize())
	if c.cur.Return == source.TypeVoid {
		c.errorAt(r.Pos, diag.CodeBadReturn,
			"procedure %q returns nothing but return has a value", c.cur.Name)
		return
	}
	if got != typeInvalid && got != c.cur.Return {
		c.errorAt(r.Pos, diag.CodeBadReturn,
			"procedure %q returns %s, got %s", c.cur.Name, c.cur.Return, got)
	}
}

// checkExpr types an expression in value position; void calls are rejected.
func (c *checker) checkExpr(n grammar.Node) source.Type {
	t := c.checkExprAllowVoid(n)
	if t == source.TypeVoid {
		if call, ok := n.(*grammar.CallNode); ok {
			c.errorAt(call.Pos, diag.CodeVoidInExpr,
				"call to %q produces no value", call.Name)
		}
		return typeInvalid
	}
	return t
}

func (c *checker) checkExprAllowVoid(n grammar.Node) source.Type {
	switch e := n.(type) {
	case *grammar.IntNode:
		if _, err := strconv.ParseInt(e.Text, 10, 64); err != nil {
			c.errorAt(e.Pos, diag.CodeIntOutOfRange,
				"integer literal %s does not fit in 64 bits", e.Text)
			return typeInvalid
		}
		return source.TypeInt64

	case *grammar.BoolNode:
		return source.TypeBool

	case *grammar.VarNode:
		t, ok := c.lookupVar(e.Name)
		if !ok {
			c.errorAt(e.Pos, diag.CodeUndeclaredVar, "undeclared variable %q", e.Name)
			return typeInvalid
		}
		return t

	case *grammar.UnaryNode:
		return c.checkUnary(e)

	case *grammar.BinaryNode:
		return c.checkBinary(e)

	case *grammar.CallNode:
		return c.checkCall(e)
	}
	return typeInvalid
}

func (c *checker) checkUnary(e *grammar.UnaryNode) source.Type {
	operand := c.checkExpr(e.Operand)
	if operand == typeInvalid {
		return typeInvalid
	}
	switch e.Op {
	case "-":
		if operand != source.TypeInt64 {
			c.errorAt(e.Pos, diag.CodeTypeMismatch, "unary - needs an int operand, got %s", operand)
			return typeInvalid
		}
		return source.TypeInt64
	default: // "!"
		if operand != source.TypeBool {
			c.errorAt(e.Pos, diag.CodeTypeMismatch, "! needs a bool operand, got %s", operand)
			return typeInvalid
		}
		return source.TypeBool
	}
}

func (c *checker) checkBinary(e *grammar.BinaryNode) source.Type {
	left := c.checkExpr(e.Left)
	right := c.checkExpr(e.Right)
	if left == typeInvalid || right == typeInvalid {
		return typeInvalid
	}
	switch e.Op {
	case "+", "-", "*", "/", "%", "<<", ">>", "&", "|", "^":
		if left != source.TypeInt64 || right != source.TypeInt64 {
			c.errorAt(e.Pos, diag.CodeTypeMismatch,
				"%s needs int operands, got %s and %s", e.Op, left, right)
			return typeInvalid
		}
		return source.TypeInt64
	case "<", "<=", ">", ">=":
		if left != source.TypeInt64 || right != source.TypeInt64 {
			c.errorAt(e.Pos, diag.CodeTypeMismatch,
				"%s needs int operands, got %s and %s", e.Op, left, right)
			return typeInvalid
		}
		return source.TypeBool
	case "==", "!=":
		if left != right {
			c.errorAt(e.Pos, diag.CodeTypeMismatch,
				"%s needs operands of the same type, got %s and %s", e.Op, left, right)
			return typeInvalid
		}
		return source.TypeBool
	default: // "&&", "||"
		if left != source.TypeBool || right != source.TypeBool {
			c.errorAt(e.Pos, diag.CodeTypeMismatch,
				"%s needs bool operands, got %s and %s", e.Op, left, right)
			return typeInvalid
		}
		return source.TypeBool
	}
}

func (c *checker) checkCall(e *grammar.CallNode) source.Type {
	sig, ok := c.procs[e.Name]
	if !ok {
		c.errorAt(e.Pos, diag.CodeUndeclaredProc, "call to undeclared procedure %q", e.Name)
		for _, a := range e.Args {
			c.checkExpr(a)
		}
		return typeInvalid
	}
	if len(e.Args) != len(sig.Params) {
		c.errorAt(e.Pos, diag.CodeArityMismatch,
			"%q expects %d argument(s), got %d", e.Name, len(sig.Params), len(e.Args))
	}
	for n, a := range e.Args {
		got := c.checkExpr(a)
		if n < len(sig.Params) && got != typeInvalid && got != sig.Params[n] {
			c.errorAt(a.NodePos(), diag.CodeTypeMismatch,
				"argument %d of %q must be %s, got %s", n+1, e.Name, sig.Params[n], got)
		}
	}
	return sig.Return
}

// Terminates reports whether every path through the block ends in a return
// statement. The lowering pass uses it to skip unreachable statements.
func Terminates(b *grammar.Block) bool {
	for _, s := range b.Stmts {
		if stmtTerminates(s) {
			return true
		}
	}
	return false
}

func stmtTerminates(s *grammar.Stmt) bool {
	switch {
	case s.Return != nil:
		return true
	case s.Block != nil:
		return Terminates(s.Block)
	case s.If != nil:
		return ifTerminates(s.If)
	}
	return false
}

func ifTerminates(i *grammar.IfStmt) bool {
	if i.Else == nil || !Terminates(i.Then) {
		return false
	}
	if i.Else.If != nil {
		return ifTerminates(i.Else.If)
	}
	return Terminates(i.Else.Block)
}
