package syntax

import "fmt"

// Handles into an Arena. They are 1-based so that the zero value means
// "no node", which is how optional children are represented.
type (
	ExprRef int32
	StmtRef int32
	DeclRef int32
	ItemRef int32
)

func (r ExprRef) IsValid() bool { return r > 0 }
func (r StmtRef) IsValid() bool { return r > 0 }
func (r DeclRef) IsValid() bool { return r > 0 }
func (r ItemRef) IsValid() bool { return r > 0 }

// Arena owns every node of one AST. Nodes are appended, never removed
// individually, and the whole arena is dropped by Release.
//
// A node can only be added after all of its children, and every node may
// be claimed as a child at most once, so the stored AST is always a tree
// whose allocation order is a valid bottom-up traversal order.
type Arena struct {
	exprs []Expr
	stmts []Stmt
	decls []*Decl
	items []*BlockItem

	// owned[i] is set once node i+1 has a parent.
	exprOwned []bool
	stmtOwned []bool
	itemOwned []bool

	released bool
}

// NewArena returns an empty arena.
func NewArena() *Arena {
	return &Arena{}
}

// NewExpr stores e and returns its handle.
func (a *Arena) NewExpr(e Expr) ExprRef {
	a.checkLive()
	switch e := e.(type) {
	case *IntLit, *VarRef:
	case *UnaryOp:
		a.claimExpr(e.X)
	case *BinaryOp:
		a.claimExpr(e.X)
		a.claimExpr(e.Y)
	case *CondExpr:
		a.claimExpr(e.Cond)
		a.claimExpr(e.Then)
		a.claimExpr(e.Else)
	default:
		panic(fmt.Sprintf("arena: unknown expression %T", e))
	}
	a.exprs = append(a.exprs, e)
	a.exprOwned = append(a.exprOwned, false)
	return ExprRef(len(a.exprs))
}

// NewStmt stores s and returns its handle.
func (a *Arena) NewStmt(s Stmt) StmtRef {
	a.checkLive()
	switch s := s.(type) {
	case *ReturnStmt:
		a.claimExpr(s.Result)
	case *ExprStmt:
		a.claimExpr(s.X)
	case *IfStmt:
		a.claimExpr(s.Cond)
		a.claimStmt(s.Then)
		if s.Else.IsValid() {
			a.claimStmt(s.Else)
		}
	case *BlockStmt:
		for _, it := range s.Items {
			a.claimItem(it)
		}
	default:
		panic(fmt.Sprintf("arena: unknown statement %T", s))
	}
	a.stmts = append(a.stmts, s)
	a.stmtOwned = append(a.stmtOwned, false)
	return StmtRef(len(a.stmts))
}

// NewDecl stores d and returns its handle.
func (a *Arena) NewDecl(d *Decl) DeclRef {
	a.checkLive()
	if d.Init.IsValid() {
		a.claimExpr(d.Init)
	}
	a.decls = append(a.decls, d)
	return DeclRef(len(a.decls))
}

// NewItem stores b and returns its handle.
func (a *Arena) NewItem(b *BlockItem) ItemRef {
	a.checkLive()
	if b.Stmt.IsValid() == b.Decl.IsValid() {
		panic("arena: block item must hold exactly one of statement or declaration")
	}
	if b.Stmt.IsValid() {
		a.claimStmt(b.Stmt)
	} else if int(b.Decl) > len(a.decls) {
		panic(fmt.Sprintf("arena: declaration %d not allocated", b.Decl))
	}
	a.items = append(a.items, b)
	a.itemOwned = append(a.itemOwned, false)
	return ItemRef(len(a.items))
}

// NewFunc claims the body items of f for the function.
func (a *Arena) NewFunc(f *FuncDecl) *FuncDecl {
	a.checkLive()
	for _, it := range f.Body {
		a.claimItem(it)
	}
	return f
}

// Expr resolves an expression handle.
func (a *Arena) Expr(r ExprRef) Expr {
	a.checkLive()
	if r <= 0 || int(r) > len(a.exprs) {
		panic(fmt.Sprintf("arena: invalid expression reference %d", r))
	}
	return a.exprs[r-1]
}

// Stmt resolves a statement handle.
func (a *Arena) Stmt(r StmtRef) Stmt {
	a.checkLive()
	if r <= 0 || int(r) > len(a.stmts) {
		panic(fmt.Sprintf("arena: invalid statement reference %d", r))
	}
	return a.stmts[r-1]
}

// Decl resolves a declaration handle.
func (a *Arena) Decl(r DeclRef) *Decl {
	a.checkLive()
	if r <= 0 || int(r) > len(a.decls) {
		panic(fmt.Sprintf("arena: invalid declaration reference %d", r))
	}
	return a.decls[r-1]
}

// Item resolves a block item handle.
func (a *Arena) Item(r ItemRef) *BlockItem {
	a.checkLive()
	if r <= 0 || int(r) > len(a.items) {
		panic(fmt.Sprintf("arena: invalid block item reference %d", r))
	}
	return a.items[r-1]
}

// Len returns the total number of nodes held.
func (a *Arena) Len() int {
	return len(a.exprs) + len(a.stmts) + len(a.decls) + len(a.items)
}

// Release drops every node. Resolving a handle afterwards panics.
func (a *Arena) Release() {
	a.exprs, a.stmts, a.decls, a.items = nil, nil, nil, nil
	a.exprOwned, a.stmtOwned, a.itemOwned = nil, nil, nil
	a.released = true
}

// Released reports whether Release has been called.
func (a *Arena) Released() bool {
	return a.released
}

func (a *Arena) checkLive() {
	if a.released {
		panic("arena: use after release")
	}
}

func (a *Arena) claimExpr(r ExprRef) {
	if r <= 0 || int(r) > len(a.exprs) {
		panic(fmt.Sprintf("arena: child expression %d not allocated", r))
	}
	if a.exprOwned[r-1] {
		panic(fmt.Sprintf("arena: expression %d already has a parent", r))
	}
	a.exprOwned[r-1] = true
}

func (a *Arena) claimStmt(r StmtRef) {
	if r <= 0 || int(r) > len(a.stmts) {
		panic(fmt.Sprintf("arena: child statement %d not allocated", r))
	}
	if a.stmtOwned[r-1] {
		panic(fmt.Sprintf("arena: statement %d already has a parent", r))
	}
	a.stmtOwned[r-1] = true
}

func (a *Arena) claimItem(r ItemRef) {
	if r <= 0 || int(r) > len(a.items) {
		panic(fmt.Sprintf("arena: child block item %d not allocated", r))
	}
	if a.itemOwned[r-1] {
		panic(fmt.Sprintf("arena: block item %d already has a parent", r))
	}
	a.itemOwned[r-1] = true
}
