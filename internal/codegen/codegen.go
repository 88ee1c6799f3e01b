// Package codegen lowers a qxc program to x86-64 NASM assembly for Linux.
//
// The generated code is a stack machine: every expression leaves its value
// in rax, binary operators park their right operand on the stack while the
// left one is computed, and variables live in 8-byte slots below rbp.
// The program exits through the exit syscall; there is no caller to
// return to.
package codegen

import (
	"bytes"
	"fmt"
	"io"

	"github.com/you-not-fish/qxc/internal/rtabi"
	"github.com/you-not-fish/qxc/internal/syntax"
)

// Scoping selects how declarations inside nested blocks are resolved.
type Scoping uint8

const (
	// ScopeFlat keeps every declaration visible until the end of main,
	// so a name may be declared only once per function.
	ScopeFlat Scoping = iota
	// ScopeBlock gives each block its own scope. Inner declarations may
	// shadow outer ones and go out of scope at the closing brace.
	ScopeBlock
)

func (s Scoping) String() string {
	switch s {
	case ScopeFlat:
		return "flat"
	case ScopeBlock:
		return "block"
	}
	return fmt.Sprintf("Scoping(%d)", s)
}

// ParseScoping converts "flat" or "block" to a Scoping.
func ParseScoping(s string) (Scoping, error) {
	switch s {
	case "flat", "":
		return ScopeFlat, nil
	case "block":
		return ScopeBlock, nil
	}
	return 0, fmt.Errorf("unknown scoping %q (want flat or block)", s)
}

// Config controls code generation.
type Config struct {
	Scoping Scoping
}

// Generate writes the assembly for prog to w. Semantic errors are returned
// as *Error; nothing is written to w in that case.
func Generate(w io.Writer, prog *syntax.Program, conf Config) error {
	g := &generator{
		arena: prog.Arena,
		vars:  newVarTable(conf.Scoping),
	}

	// The body is rendered first: the frame size is only known once every
	// declaration has been seen.
	var body bytes.Buffer
	g.e = emitter{w: &body, indent: 1}
	if err := g.funcDecl(prog.Main); err != nil {
		return err
	}
	if g.e.err != nil {
		return g.e.err
	}

	out := &emitter{w: w, indent: 1}
	out.emit("global %s", rtabi.EntrySymbol)
	out.emit("section %s", rtabi.TextSection)
	out.emitLabel(rtabi.EntrySymbol)
	out.emit("push rbp")
	out.emit("mov rbp, rsp")
	if n := g.vars.frameSize(); n > 0 {
		out.emit("sub rsp, %d", n)
	}
	if out.err != nil {
		return out.err
	}
	_, err := body.WriteTo(w)
	return err
}

type generator struct {
	arena  *syntax.Arena
	e      emitter
	vars   *varTable
	labels labeler
}

func (g *generator) errorf(kind ErrorKind, n syntax.Node, name string) error {
	return &Error{Kind: kind, Pos: n.Pos(), Name: name}
}

func (g *generator) funcDecl(fn *syntax.FuncDecl) error {
	for _, r := range fn.Body {
		if err := g.item(r); err != nil {
			return err
		}
	}

	// main returns 0 when control reaches its closing brace.
	if !g.itemsTerminate(fn.Body) {
		g.e.emit("mov rax, 0")
		g.exit()
	}

	g.e.emitLine()
	g.e.emit("mov rsp, rbp")
	g.e.emit("pop rbp")
	g.e.emit("ret")
	return nil
}

func (g *generator) exit() {
	g.e.emit("mov rdi, rax")
	g.e.emit("mov rax, %d", rtabi.SysExit)
	g.e.emit("syscall")
}

// ----------------------------------------------------------------------------
// Statements

func (g *generator) item(r syntax.ItemRef) error {
	it := g.arena.Item(r)
	if it.IsDecl() {
		return g.decl(g.arena.Decl(it.Decl))
	}
	return g.stmt(it.Stmt)
}

func (g *generator) decl(d *syntax.Decl) error {
	if g.vars.declared(d.Name) {
		return g.errorf(DuplicateDecl, d, d.Name)
	}
	// The initializer cannot see the variable it initializes.
	if d.Init.IsValid() {
		if err := g.expr(d.Init); err != nil {
			return err
		}
	}
	slot, _ := g.vars.declare(d.Name)
	g.e.emitComment(fmt.Sprintf("int %s at %s", d.Name, slotAddr(slot)))
	if d.Init.IsValid() {
		g.e.emit("mov %s, rax", slotAddr(slot))
	} else {
		g.e.emit("mov qword %s, 0", slotAddr(slot))
	}
	return nil
}

func (g *generator) stmt(r syntax.StmtRef) error {
	switch s := g.arena.Stmt(r).(type) {
	case *syntax.ReturnStmt:
		if err := g.expr(s.Result); err != nil {
			return err
		}
		g.exit()

	case *syntax.ExprStmt:
		return g.expr(s.X)

	case *syntax.IfStmt:
		return g.ifStmt(s)

	case *syntax.BlockStmt:
		g.vars.openScope()
		for _, it := range s.Items {
			if err := g.item(it); err != nil {
				return err
			}
		}
		g.vars.closeScope()

	default:
		panic(fmt.Sprintf("codegen: unexpected statement %T", s))
	}
	return nil
}

func (g *generator) ifStmt(s *syntax.IfStmt) error {
	els, post := g.labels.conditional()

	if err := g.expr(s.Cond); err != nil {
		return err
	}
	g.e.emit("cmp rax, 0")

	if !s.Else.IsValid() {
		g.e.emit("je %s", post)
		if err := g.stmt(s.Then); err != nil {
			return err
		}
		g.e.emitLabel(post)
		return nil
	}

	g.e.emit("je %s", els)
	if err := g.stmt(s.Then); err != nil {
		return err
	}
	g.e.emit("jmp %s", post)
	g.e.emitLabel(els)
	if err := g.stmt(s.Else); err != nil {
		return err
	}
	g.e.emitLabel(post)
	return nil
}

// itemsTerminate reports whether executing items always ends in a return.
func (g *generator) itemsTerminate(items []syntax.ItemRef) bool {
	for _, r := range items {
		it := g.arena.Item(r)
		if !it.IsDecl() && g.stmtTerminates(it.Stmt) {
			return true
		}
	}
	return false
}

func (g *generator) stmtTerminates(r syntax.StmtRef) bool {
	switch s := g.arena.Stmt(r).(type) {
	case *syntax.ReturnStmt:
		return true
	case *syntax.IfStmt:
		return s.Else.IsValid() && g.stmtTerminates(s.Then) && g.stmtTerminates(s.Else)
	case *syntax.BlockStmt:
		return g.itemsTerminate(s.Items)
	}
	return false
}

// ----------------------------------------------------------------------------
// Expressions

// expr generates code leaving the value of r in rax.
func (g *generator) expr(r syntax.ExprRef) error {
	switch x := g.arena.Expr(r).(type) {
	case *syntax.IntLit:
		g.e.emit("mov rax, %d", x.Value)

	case *syntax.VarRef:
		slot, ok := g.vars.lookup(x.Name)
		if !ok {
			return g.errorf(UndefinedVar, x, x.Name)
		}
		g.e.emit("mov rax, %s", slotAddr(slot))

	case *syntax.UnaryOp:
		if err := g.expr(x.X); err != nil {
			return err
		}
		switch x.Op {
		case syntax.Negate:
			g.e.emit("neg rax")
		case syntax.Complement:
			g.e.emit("not rax")
		case syntax.LogicalNot:
			g.setcc("sete", "0")
		}

	case *syntax.BinaryOp:
		switch x.Op {
		case syntax.LogOr:
			return g.logicalOr(x)
		case syntax.LogAnd:
			return g.logicalAnd(x)
		case syntax.Assign:
			return g.assign(x)
		}
		return g.binary(x)

	case *syntax.CondExpr:
		return g.condExpr(x)

	default:
		panic(fmt.Sprintf("codegen: unexpected expression %T", x))
	}
	return nil
}

// setcc compares rax with operand and replaces rax by the flag selected by
// the set instruction. mov leaves the flags intact.
func (g *generator) setcc(set, operand string) {
	g.e.emit("cmp rax, %s", operand)
	g.e.emit("mov rax, 0")
	g.e.emit("%s al", set)
}

var setInsts = map[syntax.BinaryOperator]string{
	syntax.Eql: "sete",
	syntax.Neq: "setne",
	syntax.Lss: "setl",
	syntax.Leq: "setle",
	syntax.Gtr: "setg",
	syntax.Geq: "setge",
}

// binary generates an arithmetic or comparison operator. The right operand
// is evaluated first and saved on the stack, leaving left in rax and right
// in rbx.
func (g *generator) binary(x *syntax.BinaryOp) error {
	if err := g.expr(x.Y); err != nil {
		return err
	}
	g.e.emit("push rax")
	if err := g.expr(x.X); err != nil {
		return err
	}
	g.e.emit("pop rbx")

	switch x.Op {
	case syntax.Add:
		g.e.emit("add rax, rbx")
	case syntax.Sub:
		g.e.emit("sub rax, rbx")
	case syntax.Mul:
		g.e.emit("imul rax, rbx")
	case syntax.Div:
		g.e.emit("cqo")
		g.e.emit("idiv rbx")
	default:
		set, ok := setInsts[x.Op]
		if !ok {
			panic(fmt.Sprintf("codegen: unexpected binary operator %s", x.Op))
		}
		g.setcc(set, "rbx")
	}
	return nil
}

func (g *generator) logicalOr(x *syntax.BinaryOp) error {
	snd, end := g.labels.logicalOr()

	if err := g.expr(x.X); err != nil {
		return err
	}
	g.e.emit("cmp rax, 0")
	g.e.emit("je %s", snd)
	g.e.emit("mov rax, 1")
	g.e.emit("jmp %s", end)

	g.e.emitLabel(snd)
	if err := g.expr(x.Y); err != nil {
		return err
	}
	g.setcc("setne", "0")

	g.e.emitLabel(end)
	return nil
}

func (g *generator) logicalAnd(x *syntax.BinaryOp) error {
	snd, end := g.labels.logicalAnd()

	if err := g.expr(x.X); err != nil {
		return err
	}
	// rax is already 0 when the jump to end is taken.
	g.e.emit("cmp rax, 0")
	g.e.emit("jne %s", snd)
	g.e.emit("jmp %s", end)

	g.e.emitLabel(snd)
	if err := g.expr(x.Y); err != nil {
		return err
	}
	g.setcc("setne", "0")

	g.e.emitLabel(end)
	return nil
}

func (g *generator) assign(x *syntax.BinaryOp) error {
	target, ok := g.arena.Expr(x.X).(*syntax.VarRef)
	if !ok {
		return g.errorf(InvalidAssignTarget, x, "")
	}
	if err := g.expr(x.Y); err != nil {
		return err
	}
	slot, ok := g.vars.lookup(target.Name)
	if !ok {
		return g.errorf(UndefinedVar, target, target.Name)
	}
	g.e.emit("mov %s, rax", slotAddr(slot))
	return nil
}

func (g *generator) condExpr(x *syntax.CondExpr) error {
	els, post := g.labels.conditional()

	if err := g.expr(x.Cond); err != nil {
		return err
	}
	g.e.emit("cmp rax, 0")
	g.e.emit("je %s", els)
	if err := g.expr(x.Then); err != nil {
		return err
	}
	g.e.emit("jmp %s", post)

	g.e.emitLabel(els)
	if err := g.expr(x.Else); err != nil {
		return err
	}
	g.e.emitLabel(post)
	return nil
}
