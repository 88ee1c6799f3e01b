package syntax

// Visitor is called for each node during Walk.
// If it returns false, the children of the node are not visited.
type Visitor func(node Node) bool

// Walk traverses the subtree rooted at node in depth-first order,
// resolving child handles through a. Block items are not reported
// themselves; their statement or declaration is.
func Walk(a *Arena, node Node, v Visitor) {
	if node == nil {
		return
	}
	if it, ok := node.(*BlockItem); ok {
		walkItem(a, it, v)
		return
	}
	if !v(node) {
		return
	}

	switch n := node.(type) {
	case *FuncDecl:
		for _, it := range n.Body {
			walkItem(a, a.Item(it), v)
		}

	case *Decl:
		if n.Init.IsValid() {
			Walk(a, a.Expr(n.Init), v)
		}

	case *ReturnStmt:
		Walk(a, a.Expr(n.Result), v)

	case *ExprStmt:
		Walk(a, a.Expr(n.X), v)

	case *IfStmt:
		Walk(a, a.Expr(n.Cond), v)
		Walk(a, a.Stmt(n.Then), v)
		if n.Else.IsValid() {
			Walk(a, a.Stmt(n.Else), v)
		}

	case *BlockStmt:
		for _, it := range n.Items {
			walkItem(a, a.Item(it), v)
		}

	case *UnaryOp:
		Walk(a, a.Expr(n.X), v)

	case *BinaryOp:
		Walk(a, a.Expr(n.X), v)
		Walk(a, a.Expr(n.Y), v)

	case *CondExpr:
		Walk(a, a.Expr(n.Cond), v)
		Walk(a, a.Expr(n.Then), v)
		Walk(a, a.Expr(n.Else), v)

	case *IntLit, *VarRef:
		// leaves
	}
}

func walkItem(a *Arena, it *BlockItem, v Visitor) {
	if it.IsDecl() {
		Walk(a, a.Decl(it.Decl), v)
	} else {
		Walk(a, a.Stmt(it.Stmt), v)
	}
}

// Inspect traverses the whole program.
func Inspect(prog *Program, f func(Node) bool) {
	Walk(prog.Arena, prog.Main, f)
}
