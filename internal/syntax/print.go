package syntax

import (
	"fmt"
	"io"
	"strings"
)

// Fprint writes a textual representation of the program's AST to w.
func Fprint(w io.Writer, prog *Program) {
	p := &printer{w: w, arena: prog.Arena}
	p.print(prog.Main)
}

type printer struct {
	w      io.Writer
	arena  *Arena
	indent int
}

func (p *printer) printf(format string, args ...interface{}) {
	fmt.Fprintf(p.w, "%s%s", strings.Repeat("  ", p.indent), fmt.Sprintf(format, args...))
}

// section prints a labelled child one level deeper.
func (p *printer) section(label string, node Node) {
	p.printf("%s:\n", label)
	p.indent++
	p.print(node)
	p.indent--
}

func (p *printer) items(items []ItemRef) {
	for _, r := range items {
		it := p.arena.Item(r)
		if it.IsDecl() {
			p.print(p.arena.Decl(it.Decl))
		} else {
			p.print(p.arena.Stmt(it.Stmt))
		}
	}
}

func (p *printer) print(node Node) {
	switch n := node.(type) {
	case *FuncDecl:
		p.printf("FuncDecl %s %s\n", n.Name, n.pos)
		p.indent++
		p.items(n.Body)
		p.indent--

	case *Decl:
		p.printf("Decl %s %s\n", n.Name, n.pos)
		if n.Init.IsValid() {
			p.indent++
			p.section("Init", p.arena.Expr(n.Init))
			p.indent--
		}

	case *ReturnStmt:
		p.printf("ReturnStmt %s\n", n.pos)
		p.indent++
		p.print(p.arena.Expr(n.Result))
		p.indent--

	case *ExprStmt:
		p.printf("ExprStmt %s\n", n.pos)
		p.indent++
		p.print(p.arena.Expr(n.X))
		p.indent--

	case *IfStmt:
		p.printf("IfStmt %s\n", n.pos)
		p.indent++
		p.section("Cond", p.arena.Expr(n.Cond))
		p.section("Then", p.arena.Stmt(n.Then))
		if n.Else.IsValid() {
			p.section("Else", p.arena.Stmt(n.Else))
		}
		p.indent--

	case *BlockStmt:
		p.printf("BlockStmt %s\n", n.pos)
		p.indent++
		p.items(n.Items)
		p.indent--

	case *IntLit:
		p.printf("IntLit %d %s\n", n.Value, n.pos)

	case *VarRef:
		p.printf("VarRef %s %s\n", n.Name, n.pos)

	case *UnaryOp:
		p.printf("UnaryOp %s %s\n", n.Op, n.pos)
		p.indent++
		p.print(p.arena.Expr(n.X))
		p.indent--

	case *BinaryOp:
		p.printf("BinaryOp %s %s\n", n.Op, n.pos)
		p.indent++
		p.section("X", p.arena.Expr(n.X))
		p.section("Y", p.arena.Expr(n.Y))
		p.indent--

	case *CondExpr:
		p.printf("CondExpr %s\n", n.pos)
		p.indent++
		p.section("Cond", p.arena.Expr(n.Cond))
		p.section("Then", p.arena.Expr(n.Then))
		p.section("Else", p.arena.Expr(n.Else))
		p.indent--

	default:
		p.printf("<unknown %T>\n", node)
	}
}
