package syntax

import (
	"fmt"
	"io"
	"os"
)

// DefaultMaxDepth bounds the nesting of statements and expressions.
const DefaultMaxDepth = 1000

// Config controls parsing.
type Config struct {
	// MaxDepth is the deepest nesting of statements, expressions and
	// factors the parser accepts before failing. It also bounds the
	// height of every expression tree, including left-associative
	// chains such as 1+1+...+1 that the parser folds iteratively.
	// Zero means DefaultMaxDepth.
	MaxDepth int
}

// SyntaxError is a lexical or syntactic error.
type SyntaxError struct {
	Pos Pos
	Msg string
}

func (e *SyntaxError) Error() string {
	return e.Pos.String() + ": " + e.Msg
}

// Parser builds the AST for a token sequence. Parsing stops at the first
// error; no partial tree is returned.
//
// Grammar:
//
//	program     = "int" "main" "(" ")" "{" { block-item } "}" .
//	block-item  = declaration | statement .
//	declaration = "int" id [ "=" expr ] ";" .
//	statement   = "return" expr ";"
//	            | expr ";"
//	            | "if" "(" expr ")" statement [ "else" statement ]
//	            | "{" { block-item } "}" .
//	expr        = id "=" expr | conditional .
//	conditional = logical-or [ "?" expr ":" conditional ] .
//	logical-or  = logical-and { "||" logical-and } .
//	...
//	factor      = "(" expr ")" | unary-op factor | int | id .
type Parser struct {
	cur   *Cursor
	arena *Arena

	depth    int
	maxDepth int

	// heights[r-1] is the height of the expression tree rooted at r.
	heights []int
}

// NewParser returns a parser over toks. end is the position of end of
// input, used in diagnostics for truncated programs.
func NewParser(toks []Token, end Pos, conf Config) *Parser {
	maxDepth := conf.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Parser{
		cur:      NewCursor(toks, end),
		arena:    NewArena(),
		maxDepth: maxDepth,
	}
}

// Parse scans and parses src.
func Parse(filename string, src io.Reader, conf Config) (*Program, error) {
	s, err := NewScanner(filename, src)
	if err != nil {
		return nil, err
	}
	toks, err := s.All()
	if err != nil {
		return nil, err
	}
	return ParseTokens(toks, s.pos(), conf)
}

// ParseTokens parses an already scanned token sequence.
func ParseTokens(toks []Token, end Pos, conf Config) (*Program, error) {
	return NewParser(toks, end, conf).Parse()
}

// ParseFile parses the file at path.
func ParseFile(path string, conf Config) (*Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(path, f, conf)
}

// Parse parses a complete program.
func (p *Parser) Parse() (*Program, error) {
	fn, err := p.funcDecl()
	if err != nil {
		p.arena.Release()
		return nil, err
	}
	return &Program{Main: fn, Arena: p.arena}, nil
}

// ----------------------------------------------------------------------------
// Helpers

func (p *Parser) errorf(pos Pos, format string, args ...interface{}) error {
	return &SyntaxError{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

// want consumes a token of kind k or fails with "expected what".
func (p *Parser) want(k Kind, what string) (Token, error) {
	tok, ok := p.cur.Pop()
	if !ok || !tok.Is(k) {
		return tok, p.errorf(tok.Pos, "expected %s, found %s", what, tok)
	}
	return tok, nil
}

func (p *Parser) peekIs(k Kind) bool {
	tok, ok := p.cur.Peek()
	return ok && tok.Is(k)
}

func (p *Parser) peekKeyword(kw Kw) bool {
	tok, ok := p.cur.Peek()
	return ok && tok.IsKeyword(kw)
}

func (p *Parser) peekOp(op Op) bool {
	tok, ok := p.cur.Peek()
	return ok && tok.IsOp(op)
}

// enter records one level of nesting.
func (p *Parser) enter() error {
	p.depth++
	if p.depth > p.maxDepth {
		return p.errorf(p.cur.Pos(), "program nested too deeply (limit %d)", p.maxDepth)
	}
	return nil
}

func (p *Parser) leave() {
	p.depth--
}

// newExpr stores e, whose operands are kids, and fails if the resulting
// tree would be taller than the depth limit.
func (p *Parser) newExpr(e Expr, kids ...ExprRef) (ExprRef, error) {
	h := 1
	for _, k := range kids {
		if kh := p.heights[k-1] + 1; kh > h {
			h = kh
		}
	}
	if h > p.maxDepth {
		return 0, p.errorf(e.Pos(), "expression nested too deeply (limit %d)", p.maxDepth)
	}
	r := p.arena.NewExpr(e)
	p.heights = append(p.heights, h)
	return r, nil
}

// ----------------------------------------------------------------------------
// Function and block items

func (p *Parser) funcDecl() (*FuncDecl, error) {
	fn := &FuncDecl{}
	fn.pos = p.cur.Pos()

	tok, ok := p.cur.Pop()
	if !ok || !tok.IsKeyword(KwInt) {
		return nil, p.errorf(tok.Pos, "expected return type 'int' of main, found %s", tok)
	}
	tok, ok = p.cur.Pop()
	if !ok || tok.Kind != Name || tok.Lit != "main" {
		return nil, p.errorf(tok.Pos, "expected function name 'main', found %s", tok)
	}
	fn.Name = tok.Lit

	if _, err := p.want(Lparen, "'('"); err != nil {
		return nil, err
	}
	if _, err := p.want(Rparen, "')' (main takes no parameters)"); err != nil {
		return nil, err
	}
	if _, err := p.want(Lbrace, "'{'"); err != nil {
		return nil, err
	}

	items, rbrace, err := p.blockItems()
	if err != nil {
		return nil, err
	}
	fn.Body = items
	fn.Rbrace = rbrace

	if tok, ok := p.cur.Peek(); ok {
		return nil, p.errorf(tok.Pos, "unexpected %s after end of function main", tok)
	}
	return p.arena.NewFunc(fn), nil
}

// blockItems parses items up to and including the closing brace.
func (p *Parser) blockItems() ([]ItemRef, Pos, error) {
	var items []ItemRef
	for {
		tok, ok := p.cur.Peek()
		if !ok {
			return nil, Pos{}, p.errorf(tok.Pos, "expected '}', found end of input")
		}
		if tok.Kind == Rbrace {
			p.cur.Pop()
			return items, tok.Pos, nil
		}
		it, err := p.blockItem()
		if err != nil {
			return nil, Pos{}, err
		}
		items = append(items, it)
	}
}

func (p *Parser) blockItem() (ItemRef, error) {
	it := &BlockItem{}
	it.pos = p.cur.Pos()

	if p.peekKeyword(KwInt) {
		d, err := p.declaration()
		if err != nil {
			return 0, err
		}
		it.Decl = d
	} else {
		s, err := p.statement()
		if err != nil {
			return 0, err
		}
		it.Stmt = s
	}
	return p.arena.NewItem(it), nil
}

// declaration parses: "int" id [ "=" expr ] ";"
func (p *Parser) declaration() (DeclRef, error) {
	d := &Decl{}
	d.pos = p.cur.Pos()
	p.cur.Pop() // int

	tok, err := p.want(Name, "variable name")
	if err != nil {
		return 0, err
	}
	d.Name = tok.Lit

	if p.peekOp(OpAssign) {
		p.cur.Pop()
		init, err := p.expr()
		if err != nil {
			return 0, err
		}
		d.Init = init
	}

	if _, err := p.want(Semi, "';' after declaration"); err != nil {
		return 0, err
	}
	return p.arena.NewDecl(d), nil
}

// ----------------------------------------------------------------------------
// Statements

func (p *Parser) statement() (StmtRef, error) {
	if err := p.enter(); err != nil {
		return 0, err
	}
	defer p.leave()

	tok, _ := p.cur.Peek()
	switch {
	case tok.IsKeyword(KwReturn):
		return p.returnStmt()
	case tok.IsKeyword(KwIf):
		return p.ifStmt()
	case tok.Kind == Lbrace:
		return p.blockStmt()
	case tok.IsKeyword(KwInt):
		return 0, p.errorf(tok.Pos, "declaration of %q is not allowed here; wrap it in a block", p.declName())
	default:
		return p.exprStmt()
	}
}

// declName returns the name following an int keyword, for diagnostics.
func (p *Parser) declName() string {
	if tok, ok := p.cur.PeekN(1); ok && tok.Is(Name) {
		return tok.Lit
	}
	return "int"
}

func (p *Parser) returnStmt() (StmtRef, error) {
	s := &ReturnStmt{}
	s.pos = p.cur.Pos()
	p.cur.Pop() // return

	x, err := p.expr()
	if err != nil {
		return 0, err
	}
	s.Result = x

	if _, err := p.want(Semi, "';' after return statement"); err != nil {
		return 0, err
	}
	return p.arena.NewStmt(s), nil
}

func (p *Parser) exprStmt() (StmtRef, error) {
	s := &ExprStmt{}
	s.pos = p.cur.Pos()

	x, err := p.expr()
	if err != nil {
		return 0, err
	}
	s.X = x

	if _, err := p.want(Semi, "';' after expression"); err != nil {
		return 0, err
	}
	return p.arena.NewStmt(s), nil
}

// ifStmt parses: "if" "(" expr ")" statement [ "else" statement ]
func (p *Parser) ifStmt() (StmtRef, error) {
	s := &IfStmt{}
	s.pos = p.cur.Pos()
	p.cur.Pop() // if

	if _, err := p.want(Lparen, "'(' after if"); err != nil {
		return 0, err
	}
	cond, err := p.expr()
	if err != nil {
		return 0, err
	}
	s.Cond = cond
	if _, err := p.want(Rparen, "')' after if condition"); err != nil {
		return 0, err
	}

	then, err := p.statement()
	if err != nil {
		return 0, err
	}
	s.Then = then

	if p.peekKeyword(KwElse) {
		p.cur.Pop()
		els, err := p.statement()
		if err != nil {
			return 0, err
		}
		s.Else = els
	}
	return p.arena.NewStmt(s), nil
}

func (p *Parser) blockStmt() (StmtRef, error) {
	b := &BlockStmt{}
	b.pos = p.cur.Pos()
	p.cur.Pop() // {

	items, rbrace, err := p.blockItems()
	if err != nil {
		return 0, err
	}
	b.Items = items
	b.Rbrace = rbrace
	return p.arena.NewStmt(b), nil
}

// ----------------------------------------------------------------------------
// Expressions

// expr parses: id "=" expr | conditional
//
// Assignment is right associative and sits outside the precedence table:
// after the first factor, a following "=" makes this an assignment whose
// target must be a plain variable.
func (p *Parser) expr() (ExprRef, error) {
	if err := p.enter(); err != nil {
		return 0, err
	}
	defer p.leave()

	x, err := p.factor()
	if err != nil {
		return 0, err
	}

	if tok, ok := p.cur.Peek(); ok && tok.IsOp(OpAssign) {
		if err := p.checkAssignTarget(x, tok); err != nil {
			return 0, err
		}
		p.cur.Pop()
		y, err := p.expr()
		if err != nil {
			return 0, err
		}
		return p.binary(Assign, x, y)
	}

	c, err := p.conditional(x)
	if err != nil {
		return 0, err
	}
	if tok, ok := p.cur.Peek(); ok && tok.IsOp(OpAssign) {
		return 0, p.errorf(tok.Pos, "left-hand side of assignment must be a variable")
	}
	return c, nil
}

func (p *Parser) checkAssignTarget(x ExprRef, eq Token) error {
	if _, ok := p.arena.Expr(x).(*VarRef); !ok {
		return p.errorf(eq.Pos, "left-hand side of assignment must be a variable")
	}
	return nil
}

// conditional parses: logical-or [ "?" expr ":" conditional ]
// left is the already parsed first factor.
func (p *Parser) conditional(left ExprRef) (ExprRef, error) {
	if err := p.enter(); err != nil {
		return 0, err
	}
	defer p.leave()

	cond, err := p.climb(left, precTernary)
	if err != nil {
		return 0, err
	}
	if !p.peekOp(OpQuestion) {
		return cond, nil
	}
	p.cur.Pop()

	then, err := p.expr()
	if err != nil {
		return 0, err
	}

	tok, ok := p.cur.Pop()
	if !ok || !tok.IsOp(OpColon) {
		return 0, p.errorf(tok.Pos, "expected ':' in conditional expression, found %s", tok)
	}

	f, err := p.factor()
	if err != nil {
		return 0, err
	}
	els, err := p.conditional(f)
	if err != nil {
		return 0, err
	}

	c := &CondExpr{Cond: cond, Then: then, Else: els}
	c.pos = p.arena.Expr(cond).Pos()
	return p.newExpr(c, cond, then, els)
}

// climb folds infix operators binding tighter than minPrec onto left.
// The right operand of each operator is climbed with that operator's own
// precedence as the minimum, so equal-precedence chains associate left.
// Operators at or below the ternary level (= ? :) always stop the climb.
func (p *Parser) climb(left ExprRef, minPrec int) (ExprRef, error) {
	for {
		tok, ok := p.cur.Peek()
		if !ok || tok.Kind != Operator {
			return left, nil
		}
		prec := tok.Op.Precedence()
		if prec <= precTernary || prec <= minPrec {
			return left, nil
		}
		p.cur.Pop()

		f, err := p.factor()
		if err != nil {
			return 0, err
		}
		right, err := p.climb(f, prec)
		if err != nil {
			return 0, err
		}
		left, err = p.binary(binaryOps[tok.Op], left, right)
		if err != nil {
			return 0, err
		}
	}
}

func (p *Parser) binary(op BinaryOperator, x, y ExprRef) (ExprRef, error) {
	b := &BinaryOp{Op: op, X: x, Y: y}
	b.pos = p.arena.Expr(x).Pos()
	return p.newExpr(b, x, y)
}

// factor parses: "(" expr ")" | unary-op factor | int | id
func (p *Parser) factor() (ExprRef, error) {
	if err := p.enter(); err != nil {
		return 0, err
	}
	defer p.leave()

	tok, ok := p.cur.Pop()
	if !ok {
		return 0, p.errorf(tok.Pos, "expected expression, found end of input")
	}

	switch tok.Kind {
	case Int:
		lit := &IntLit{Value: tok.Value}
		lit.pos = tok.Pos
		return p.newExpr(lit)

	case Name:
		v := &VarRef{Name: tok.Lit}
		v.pos = tok.Pos
		return p.newExpr(v)

	case Operator:
		if !tok.Op.IsUnary() {
			return 0, p.errorf(tok.Pos, "operator %q cannot start an expression", tok.Op)
		}
		x, err := p.factor()
		if err != nil {
			return 0, err
		}
		u := &UnaryOp{Op: unaryOps[tok.Op], X: x}
		u.pos = tok.Pos
		return p.newExpr(u, x)

	case Lparen:
		x, err := p.expr()
		if err != nil {
			return 0, err
		}
		if _, err := p.want(Rparen, "')'"); err != nil {
			return 0, err
		}
		return x, nil
	}

	return 0, p.errorf(tok.Pos, "expected expression, found %s", tok)
}
