package grammar

import "github.com/alecthomas/participle/v2/lexer"

// Normalized expression view. The precedence tower is what participle needs;
// the checker and the lowering pass want a plain operator tree. Normalize
// folds the tower left-associatively into Node values.

type Node interface {
	NodePos() lexer.Position
}

type BinaryNode struct {
	Pos         lexer.Position
	Op          string
	Left, Right Node
}

type UnaryNode struct {
	Pos     lexer.Position
	Op      string
	Operand Node
}

type IntNode struct {
	Pos  lexer.Position
	Text string
}

type BoolNode struct {
	Pos   lexer.Position
	Value bool
}

type VarNode struct {
	Pos  lexer.Position
	Name string
}

type CallNode struct {
	Pos  lexer.Position
	Name string
	Args []Node
}

func (n *BinaryNode) NodePos() lexer.Position { return n.Pos }
func (n *UnaryNode) NodePos() lexer.Position  { return n.Pos }
func (n *IntNode) NodePos() lexer.Position    { return n.Pos }
func (n *BoolNode) NodePos() lexer.Position   { return n.Pos }
func (n *VarNode) NodePos() lexer.Position    { return n.Pos }
func (n *CallNode) NodePos() lexer.Position   { return n.Pos }

// Normalize folds the parse tree into an operator tree.
func (e *Expr) Normalize() Node { return e.Or.normalize() }

func fold(left Node, op string, right Node) Node {
	return &BinaryNode{Pos: left.NodePos(), Op: op, Left: left, Right: right}
}

func (e *OrExpr) normalize() Node {
	n := e.Left.normalize()
	for _, t := range e.Rest {
		n = fold(n, t.Op, t.Right.normalize())
	}
	return n
}

func (e *AndExpr) normalize() Node {
	n := e.Left.normalize()
	for _, t := range e.Rest {
		n = fold(n, t.Op, t.Right.normalize())
	}
	return n
}

func (e *BitOrExpr) normalize() Node {
	n := e.Left.normalize()
	for _, t := range e.Rest {
		n = fold(n, t.Op, t.Right.normalize())
	}
	return n
}

func (e *BitXorExpr) normalize() Node {
	n := e.Left.normalize()
	for _, t := range e.Rest {
		n = fold(n, t.Op, t.Right.normalize())
	}
	return n
}

func (e *BitAndExpr) normalize() Node {
	n := e.Left.normalize()
	for _, t := range e.Rest {
		n = fold(n, t.Op, t.Right.normalize())
	}
	return n
}

func (e *EqExpr) normalize() Node {
	n := e.Left.normalize()
	for _, t := range e.Rest {
		n = fold(n, t.Op, t.Right.normalize())
	}
	return n
}

func (e *RelExpr) normalize() Node {
	n := e.Left.normalize()
	for _, t := range e.Rest {
		n = fold(n, t.Op, t.Right.normalize())
	}
	return n
}

func (e *ShiftExpr) normalize() Node {
	n := e.Left.normalize()
	for _, t := range e.Rest {
		n = fold(n, t.Op, t.Right.normalize())
	}
	return n
}

func (e *AddExpr) normalize() Node {
	n := e.Left.normalize()
	for _, t := range e.Rest {
		n = fold(n, t.Op, t.Right.normalize())
	}
	return n
}

func (e *MulExpr) normalize() Node {
	n := e.Left.normalize()
	for _, t := range e.Rest {
		n = fold(n, t.Op, t.Right.normalize())
	}
	return n
}

func (e *UnaryExpr) normalize() Node {
	if e.Op != nil {
		operand := e.Operand.normalize()
		return &UnaryNode{Pos: operand.NodePos(), Op: *e.Op, Operand: operand}
	}
	return e.Primary.normalize()
}

func (e *PrimaryExpr) normalize() Node {
	switch {
	case e.Call != nil:
		args := make([]Node, len(e.Call.Args))
		for n, a := range e.Call.Args {
			args[n] = a.Normalize()
		}
		return &CallNode{Pos: e.Call.Pos, Name: e.Call.Name, Args: args}
	case e.Int != nil:
		return &IntNode{Pos: e.Pos, Text: *e.Int}
	case e.True:
		return &BoolNode{Pos: e.Pos, Value: true}
	case e.False:
		return &BoolNode{Pos: e.Pos, Value: false}
	case e.Var != nil:
		return &VarNode{Pos: e.Pos, Name: *e.Var}
	default:
		return e.Parens.Normalize()
	}
}
