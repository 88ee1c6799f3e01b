package syntax

import (
	"encoding/json"
	"io"
)

// FprintJSON writes a JSON representation of the program's AST to w.
func FprintJSON(w io.Writer, prog *Program) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	j := &jsonBuilder{arena: prog.Arena}
	return enc.Encode(j.node(prog.Main))
}

type jsonBuilder struct {
	arena *Arena
}

func (j *jsonBuilder) items(items []ItemRef) []interface{} {
	out := make([]interface{}, 0, len(items))
	for _, r := range items {
		it := j.arena.Item(r)
		if it.IsDecl() {
			out = append(out, j.node(j.arena.Decl(it.Decl)))
		} else {
			out = append(out, j.node(j.arena.Stmt(it.Stmt)))
		}
	}
	return out
}

func (j *jsonBuilder) expr(r ExprRef) interface{} {
	return j.node(j.arena.Expr(r))
}

func (j *jsonBuilder) node(node Node) interface{} {
	switch n := node.(type) {
	case *FuncDecl:
		return map[string]interface{}{
			"type": "FuncDecl",
			"pos":  n.pos.String(),
			"name": n.Name,
			"body": j.items(n.Body),
		}

	case *Decl:
		m := map[string]interface{}{
			"type": "Decl",
			"pos":  n.pos.String(),
			"name": n.Name,
		}
		if n.Init.IsValid() {
			m["init"] = j.expr(n.Init)
		}
		return m

	case *ReturnStmt:
		return map[string]interface{}{
			"type":   "ReturnStmt",
			"pos":    n.pos.String(),
			"result": j.expr(n.Result),
		}

	case *ExprStmt:
		return map[string]interface{}{
			"type": "ExprStmt",
			"pos":  n.pos.String(),
			"x":    j.expr(n.X),
		}

	case *IfStmt:
		m := map[string]interface{}{
			"type": "IfStmt",
			"pos":  n.pos.String(),
			"cond": j.expr(n.Cond),
			"then": j.node(j.arena.Stmt(n.Then)),
		}
		if n.Else.IsValid() {
			m["else"] = j.node(j.arena.Stmt(n.Else))
		}
		return m

	case *BlockStmt:
		return map[string]interface{}{
			"type":  "BlockStmt",
			"pos":   n.pos.String(),
			"items": j.items(n.Items),
		}

	case *IntLit:
		return map[string]interface{}{
			"type":  "IntLit",
			"pos":   n.pos.String(),
			"value": n.Value,
		}

	case *VarRef:
		return map[string]interface{}{
			"type": "VarRef",
			"pos":  n.pos.String(),
			"name": n.Name,
		}

	case *UnaryOp:
		return map[string]interface{}{
			"type": "UnaryOp",
			"pos":  n.pos.String(),
			"op":   n.Op.String(),
			"x":    j.expr(n.X),
		}

	case *BinaryOp:
		return map[string]interface{}{
			"type": "BinaryOp",
			"pos":  n.pos.String(),
			"op":   n.Op.String(),
			"x":    j.expr(n.X),
			"y":    j.expr(n.Y),
		}

	case *CondExpr:
		return map[string]interface{}{
			"type": "CondExpr",
			"pos":  n.pos.String(),
			"cond": j.expr(n.Cond),
			"then": j.expr(n.Then),
			"else": j.expr(n.Else),
		}
	}
	return nil
}
