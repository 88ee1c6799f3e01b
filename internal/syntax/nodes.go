package syntax

import "fmt"

// ----------------------------------------------------------------------------
// Interfaces
//
// Expressions and statements are closed sum types: every variant embeds
// expr or stmt, so only this package can add variants and a type switch
// over them is exhaustive. Child links are arena handles (see arena.go),
// never pointers.

// Node is implemented by every AST node.
type Node interface {
	Pos() Pos // position of the first token belonging to the node
	aNode()
}

// Expr is an expression variant.
type Expr interface {
	Node
	aExpr()
}

// Stmt is a statement variant.
type Stmt interface {
	Node
	aStmt()
}

type node struct {
	pos Pos
}

func (n *node) Pos() Pos { return n.pos }
func (n *node) aNode()   {}

type expr struct{ node }

func (*expr) aExpr() {}

type stmt struct{ node }

func (*stmt) aStmt() {}

// ----------------------------------------------------------------------------
// Operators

// UnaryOperator is the operator of a UnaryOp.
type UnaryOperator uint8

const (
	Negate     UnaryOperator = iota // -x
	Complement                      // ~x
	LogicalNot                      // !x
)

func (op UnaryOperator) String() string {
	switch op {
	case Negate:
		return "-"
	case Complement:
		return "~"
	case LogicalNot:
		return "!"
	}
	return fmt.Sprintf("unary(%d)", op)
}

// BinaryOperator is the operator of a BinaryOp.
type BinaryOperator uint8

const (
	Add BinaryOperator = iota
	Sub
	Mul
	Div
	Eql
	Neq
	Lss
	Leq
	Gtr
	Geq
	LogAnd
	LogOr
	Assign
)

var binaryNames = [...]string{
	Add:    "+",
	Sub:    "-",
	Mul:    "*",
	Div:    "/",
	Eql:    "==",
	Neq:    "!=",
	Lss:    "<",
	Leq:    "<=",
	Gtr:    ">",
	Geq:    ">=",
	LogAnd: "&&",
	LogOr:  "||",
	Assign: "=",
}

func (op BinaryOperator) String() string {
	if int(op) < len(binaryNames) {
		return binaryNames[op]
	}
	return fmt.Sprintf("binary(%d)", op)
}

// binaryOps maps infix operator tokens to AST operators.
var binaryOps = map[Op]BinaryOperator{
	OpPlus:   Add,
	OpMinus:  Sub,
	OpMul:    Mul,
	OpDiv:    Div,
	OpEql:    Eql,
	OpNeq:    Neq,
	OpLss:    Lss,
	OpLeq:    Leq,
	OpGtr:    Gtr,
	OpGeq:    Geq,
	OpAndAnd: LogAnd,
	OpOrOr:   LogOr,
	OpAssign: Assign,
}

var unaryOps = map[Op]UnaryOperator{
	OpMinus: Negate,
	OpTilde: Complement,
	OpNot:   LogicalNot,
}

// ----------------------------------------------------------------------------
// Expressions

// IntLit is an integer literal.
type IntLit struct {
	expr
	Value int64
}

// UnaryOp is a prefix operation.
type UnaryOp struct {
	expr
	Op UnaryOperator
	X  ExprRef
}

// BinaryOp is an infix operation, including assignment. For Assign, X is
// always a *VarRef.
type BinaryOp struct {
	expr
	Op BinaryOperator
	X  ExprRef // left operand
	Y  ExprRef // right operand
}

// VarRef is a reference to a local variable.
type VarRef struct {
	expr
	Name string
}

// CondExpr is a ternary conditional: Cond ? Then : Else.
type CondExpr struct {
	expr
	Cond ExprRef
	Then ExprRef
	Else ExprRef
}

// ----------------------------------------------------------------------------
// Statements

// ReturnStmt exits the program with the value of Result.
type ReturnStmt struct {
	stmt
	Result ExprRef
}

// ExprStmt evaluates X for its side effects.
type ExprStmt struct {
	stmt
	X ExprRef
}

// IfStmt is if (Cond) Then [else Else]. Else is the zero StmtRef when
// absent.
type IfStmt struct {
	stmt
	Cond ExprRef
	Then StmtRef
	Else StmtRef
}

// BlockStmt is a compound statement { Items... }.
type BlockStmt struct {
	stmt
	Items  []ItemRef
	Rbrace Pos
}

// ----------------------------------------------------------------------------
// Declarations and block items

// Decl declares an int variable. Init is the zero ExprRef when the
// declaration has no initializer.
type Decl struct {
	node
	Name string
	Init ExprRef
}

// BlockItem is either a statement or a declaration: exactly one of Stmt
// and Decl is valid.
type BlockItem struct {
	node
	Stmt StmtRef
	Decl DeclRef
}

// IsDecl reports whether the item is a declaration.
func (b *BlockItem) IsDecl() bool {
	return b.Decl.IsValid()
}

// FuncDecl is the single function of a program.
type FuncDecl struct {
	node
	Name   string
	Body   []ItemRef
	Rbrace Pos
}

// Program is a parsed translation unit. Every node reachable from Main
// lives in Arena and shares its lifetime.
type Program struct {
	Main  *FuncDecl
	Arena *Arena
}

// Release drops the whole tree at once. The program must not be used
// afterwards.
func (p *Program) Release() {
	p.Arena.Release()
	p.Main = nil
}
