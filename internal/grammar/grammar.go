package grammar

import "github.com/alecthomas/participle/v2/lexer"

// The BX grammar. Expression precedence is encoded as a tower of left-
// associative levels, loosest binding first: ||, &&, |, ^, &, equality,
// relational, shifts, additive, multiplicative, unary, primary.

type Program struct {
	Decls []*Decl `@@*`
}

type Decl struct {
	Global *GlobalDecl `  @@`
	Proc   *ProcDecl   `| @@`
}

type GlobalDecl struct {
	Pos  lexer.Position
	Name string   `"var" @Ident "="`
	Init *Literal `@@ ":"`
	Type string   `@("int" | "bool") ";"`
}

type Literal struct {
	Pos   lexer.Position
	Int   *string `  @Integer`
	True  bool    `| @"true"`
	False bool    `| @"false"`
}

type ProcDecl struct {
	Pos    lexer.Position
	Name   string   `"def" @Ident "("`
	Params []*Param `[ @@ { "," @@ } ] ")"`
	Return string   `[ ":" @("int" | "bool") ]`
	Body   *Block   `@@`
}

type Param struct {
	Pos  lexer.Position
	Name string `@Ident ":"`
	Type string `@("int" | "bool")`
}

type Block struct {
	Stmts []*Stmt `"{" @@* "}"`
}

type Stmt struct {
	VarDecl *VarDeclStmt `  @@`
	If      *IfStmt      `| @@`
	While   *WhileStmt   `| @@`
	Return  *ReturnStmt  `| @@`
	Block   *Block       `| @@`
	Assign  *AssignStmt  `| @@`
	Eval    *EvalStmt    `| @@`
}

type VarDeclStmt struct {
	Pos  lexer.Position
	Name string `"var" @Ident "="`
	Init *Expr  `@@ ":"`
	Type string `@("int" | "bool") ";"`
}

type AssignStmt struct {
	Pos   lexer.Position
	Name  string `@Ident "="`
	Value *Expr  `@@ ";"`
}

type EvalStmt struct {
	Pos  lexer.Position
	Expr *Expr `@@ ";"`
}

type IfStmt struct {
	Pos  lexer.Position
	Cond *Expr       `"if" "(" @@ ")"`
	Then *Block      `@@`
	Else *ElseClause `[ @@ ]`
}

type ElseClause struct {
	If    *IfStmt `"else" ( @@`
	Block *Block  `| @@ )`
}

type WhileStmt struct {
	Pos  lexer.Position
	Cond *Expr  `"while" "(" @@ ")"`
	Body *Block `@@`
}

type ReturnStmt struct {
	Pos  lexer.Position
	Expr *Expr `"return" [ @@ ] ";"`
}

// Expression precedence tower

type Expr struct {
	Or *OrExpr `@@`
}

type OrExpr struct {
	Left *AndExpr  `@@`
	Rest []*OrTail `@@*`
}

type OrTail struct {
	Op    string   `@"||"`
	Right *AndExpr `@@`
}

type AndExpr struct {
	Left *BitOrExpr `@@`
	Rest []*AndTail `@@*`
}

type AndTail struct {
	Op    string     `@"&&"`
	Right *BitOrExpr `@@`
}

type BitOrExpr struct {
	Left *BitXorExpr  `@@`
	Rest []*BitOrTail `@@*`
}

type BitOrTail struct {
	Op    string      `@"|"`
	Right *BitXorExpr `@@`
}

type BitXorExpr struct {
	Left *BitAndExpr   `@@`
	Rest []*BitXorTail `@@*`
}

type BitXorTail struct {
	Op    string      `@"^"`
	Right *BitAndExpr `@@`
}

type BitAndExpr struct {
	Left *EqExpr       `@@`
	Rest []*BitAndTail `@@*`
}

type BitAndTail struct {
	Op    string  `@"&"`
	Right *EqExpr `@@`
}

type EqExpr struct {
	Left *RelExpr  `@@`
	Rest []*EqTail `@@*`
}

type EqTail struct {
	Op    string   `@("==" | "!=")`
	Right *RelExpr `@@`
}

type RelExpr struct {
	Left *ShiftExpr `@@`
	Rest []*RelTail `@@*`
}

type RelTail struct {
	Op    string     `@("<=" | ">=" | "<" | ">")`
	Right *ShiftExpr `@@`
}

type ShiftExpr struct {
	Left *AddExpr     `@@`
	Rest []*ShiftTail `@@*`
}

type ShiftTail struct {
	Op    string   `@("<<" | ">>")`
	Right *AddExpr `@@`
}

type AddExpr struct {
	Left *MulExpr   `@@`
	Rest []*AddTail `@@*`
}

type AddTail struct {
	Op    string   `@("+" | "-")`
	Right *MulExpr `@@`
}

type MulExpr struct {
	Left *UnaryExpr `@@`
	Rest []*MulTail `@@*`
}

type MulTail struct {
	Op    string     `@("*" | "/" | "%")`
	Right *UnaryExpr `@@`
}

type UnaryExpr struct {
	Op      *string      `( @("-" | "!")`
	Operand *UnaryExpr   `  @@ )`
	Primary *PrimaryExpr `| @@`
}

type PrimaryExpr struct {
	Pos    lexer.Position
	Call   *CallExpr `  @@`
	Int    *string   `| @Integer`
	True   bool      `| @"true"`
	False  bool      `| @"false"`
	Var    *string   `| @Ident`
	Parens *Expr     `| "(" @@ ")"`
}

type CallExpr struct {
	Pos  lexer.Position
	Name string  `@Ident "("`
	Args []*Expr `[ @@ { "," @@ } ] ")"`
}
