package grammar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseProgram(t *testing.T, src string) *Program {
	t.Helper()
	program, errs := ParseSource("test.bx", src)
	require.Empty(t, errs)
	require.NotNil(t, program)
	return program
}

func parseExpr(t *testing.T, src string) Node {
	t.Helper()
	program := parseProgram(t, "def main() { var x = "+src+" : int; }")
	return program.Decls[0].Proc.Body.Stmts[0].VarDecl.Init.Normalize()
}

func TestParseGlobalsAndProcs(t *testing.T) {
	program := parseProgram(t, `
var limit = 10 : int;
var debug = false : bool;

def add(x : int, y : int) : int {
	return x + y;
}

def main() {
	print(add(1, 2));
}
`)

	require.Len(t, program.Decls, 4)

	limit := program.Decls[0].Global
	require.NotNil(t, limit)
	assert.Equal(t, "limit", limit.Name)
	assert.Equal(t, "int", limit.Type)
	require.NotNil(t, limit.Init.Int)
	assert.Equal(t, "10", *limit.Init.Int)

	debug := program.Decls[1].Global
	require.NotNil(t, debug)
	assert.Equal(t, "bool", debug.Type)
	assert.True(t, debug.Init.False)

	add := program.Decls[2].Proc
	require.NotNil(t, add)
	assert.Equal(t, "add", add.Name)
	assert.Equal(t, "int", add.Return)
	require.Len(t, add.Params, 2)
	assert.Equal(t, "x", add.Params[0].Name)

	main := program.Decls[3].Proc
	require.NotNil(t, main)
	assert.Empty(t, main.Return)
	assert.Empty(t, main.Params)
}

func TestParseStatements(t *testing.T) {
	program := parseProgram(t, `
def main() {
	var x = 0 : int;
	x = x + 1;
	print(x);
	if (x > 0) {
		x = 1;
	} else if (x == 0) {
		x = 2;
	} else {
		x = 3;
	}
	while (x < 10) {
		x = x + 1;
	}
	return;
}
`)

	stmts := program.Decls[0].Proc.Body.Stmts
	require.Len(t, stmts, 6)
	assert.NotNil(t, stmts[0].VarDecl)
	assert.NotNil(t, stmts[1].Assign)
	assert.NotNil(t, stmts[2].Eval)
	require.NotNil(t, stmts[3].If)
	assert.NotNil(t, stmts[4].While)
	assert.NotNil(t, stmts[5].Return)

	ifStmt := stmts[3].If
	require.NotNil(t, ifStmt.Else)
	require.NotNil(t, ifStmt.Else.If, "else-if chains")
	require.NotNil(t, ifStmt.Else.If.Else)
	assert.NotNil(t, ifStmt.Else.If.Else.Block)
}

func TestMultiplicationBindsTighterThanAddition(t *testing.T) {
	node := parseExpr(t, "1 + 2 * 3")

	add, ok := node.(*BinaryNode)
	require.True(t, ok)
	assert.Equal(t, "+", add.Op)

	mul, ok := add.Right.(*BinaryNode)
	require.True(t, ok)
	assert.Equal(t, "*", mul.Op)
}

func TestSubtractionIsLeftAssociative(t *testing.T) {
	node := parseExpr(t, "10 - 4 - 3")

	outer, ok := node.(*BinaryNode)
	require.True(t, ok)
	assert.Equal(t, "-", outer.Op)

	inner, ok := outer.Left.(*BinaryNode)
	require.True(t, ok)
	assert.Equal(t, "-", inner.Op)
	assert.Equal(t, "10", inner.Left.(*IntNode).Text)
	assert.Equal(t, "3", outer.Right.(*IntNode).Text)
}

func TestShiftBindsTighterThanComparison(t *testing.T) {
	program := parseProgram(t, "def main() { var b = 1 << 2 < 3 : bool; }")
	node := program.Decls[0].Proc.Body.Stmts[0].VarDecl.Init.Normalize()

	cmp, ok := node.(*BinaryNode)
	require.True(t, ok)
	assert.Equal(t, "<", cmp.Op)

	shift, ok := cmp.Left.(*BinaryNode)
	require.True(t, ok)
	assert.Equal(t, "<<", shift.Op)
}

func TestUnaryAndCalls(t *testing.T) {
	node := parseExpr(t, "-f(x, 2) + !0") // type nonsense, but syntax is fine

	add := node.(*BinaryNode)
	neg, ok := add.Left.(*UnaryNode)
	require.True(t, ok)
	assert.Equal(t, "-", neg.Op)

	call, ok := neg.Operand.(*CallNode)
	require.True(t, ok)
	assert.Equal(t, "f", call.Name)
	require.Len(t, call.Args, 2)
	assert.Equal(t, "x", call.Args[0].(*VarNode).Name)

	not, ok := add.Right.(*UnaryNode)
	require.True(t, ok)
	assert.Equal(t, "!", not.Op)
}

func TestShortCircuitPrecedence(t *testing.T) {
	node := parseExpr(t, "a && b || c")

	or, ok := node.(*BinaryNode)
	require.True(t, ok)
	assert.Equal(t, "||", or.Op)

	and, ok := or.Left.(*BinaryNode)
	require.True(t, ok)
	assert.Equal(t, "&&", and.Op)
}

func TestParseErrorCarriesPosition(t *testing.T) {
	program, errs := ParseSource("broken.bx", "def main( {\n}\n")
	assert.Nil(t, program)
	require.NotEmpty(t, errs)
	assert.Equal(t, "broken.bx", errs[0].Pos.Filename)
	assert.NotEmpty(t, errs[0].Message)
	assert.Contains(t, errs[0].Error(), "broken.bx:")
}

func TestParensOverridePrecedence(t *testing.T) {
	node := parseExpr(t, "(1 + 2) * 3")

	mul, ok := node.(*BinaryNode)
	require.True(t, ok)
	assert.Equal(t, "*", mul.Op)

	add, ok := mul.Left.(*BinaryNode)
	require.True(t, ok)
	assert.Equal(t, "+", add.Op)
}
