// Package syntax implements lexical and syntactic analysis for qxc, a
// compiler for a small C subset with a single int main() function.
package syntax

import "fmt"

// Kind is the lexical class of a token.
type Kind uint8

const (
	EOF Kind = iota // end of input; never stored in a token sequence

	Name     // identifier: x, foo_1
	Int      // integer literal: 42
	Keyword  // int, return, if, else
	Operator // - + * / ! ~ && || == != < <= > >= = ? :

	Lparen // (
	Rparen // )
	Lbrace // {
	Rbrace // }
	Semi   // ;

	kindCount
)

var kindNames = [...]string{
	EOF:      "EOF",
	Name:     "NAME",
	Int:      "INT",
	Keyword:  "KEYWORD",
	Operator: "OPERATOR",
	Lparen:   "(",
	Rparen:   ")",
	Lbrace:   "{",
	Rbrace:   "}",
	Semi:     ";",
}

func (k Kind) String() string {
	if k < kindCount {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

// Kw identifies a keyword.
type Kw uint8

const (
	KwInvalid Kw = iota
	KwInt
	KwReturn
	KwIf
	KwElse
)

var keywords = map[string]Kw{
	"int":    KwInt,
	"return": KwReturn,
	"if":     KwIf,
	"else":   KwElse,
}

var kwNames = [...]string{
	KwInvalid: "<invalid>",
	KwInt:     "int",
	KwReturn:  "return",
	KwIf:      "if",
	KwElse:    "else",
}

func (k Kw) String() string {
	if int(k) < len(kwNames) {
		return kwNames[k]
	}
	return fmt.Sprintf("kw(%d)", k)
}

// LookupKeyword returns the keyword spelled by ident, or KwInvalid.
func LookupKeyword(ident string) Kw {
	return keywords[ident]
}

// Op identifies an operator token.
type Op uint8

const (
	OpInvalid Op = iota
	OpMinus       // -
	OpPlus        // +
	OpMul         // *
	OpDiv         // /
	OpNot         // !
	OpTilde       // ~
	OpAndAnd      // &&
	OpOrOr        // ||
	OpEql         // ==
	OpNeq         // !=
	OpLss         // <
	OpLeq         // <=
	OpGtr         // >
	OpGeq         // >=
	OpAssign      // =
	OpQuestion    // ?
	OpColon       // :

	opCount
)

var opNames = [...]string{
	OpInvalid:  "<invalid>",
	OpMinus:    "-",
	OpPlus:     "+",
	OpMul:      "*",
	OpDiv:      "/",
	OpNot:      "!",
	OpTilde:    "~",
	OpAndAnd:   "&&",
	OpOrOr:     "||",
	OpEql:      "==",
	OpNeq:      "!=",
	OpLss:      "<",
	OpLeq:      "<=",
	OpGtr:      ">",
	OpGeq:      ">=",
	OpAssign:   "=",
	OpQuestion: "?",
	OpColon:    ":",
}

func (op Op) String() string {
	if op < opCount {
		return opNames[op]
	}
	return fmt.Sprintf("op(%d)", op)
}

// Precedence levels, higher binds tighter.
const (
	precAssign  = 2
	precTernary = 3
	precOrOr    = 4
	precAndAnd  = 5
	precEqual   = 9
	precCompare = 10
	precAdd     = 12
	precMul     = 13
)

// Precedence returns the binding strength of op when used as an infix
// operator, or 0 if op is never infix.
//
//	 2: =
//	 3: ? :
//	 4: ||
//	 5: &&
//	 9: == !=
//	10: < <= > >=
//	12: + -
//	13: * /
func (op Op) Precedence() int {
	switch op {
	case OpAssign:
		return precAssign
	case OpQuestion, OpColon:
		return precTernary
	case OpOrOr:
		return precOrOr
	case OpAndAnd:
		return precAndAnd
	case OpEql, OpNeq:
		return precEqual
	case OpLss, OpLeq, OpGtr, OpGeq:
		return precCompare
	case OpPlus, OpMinus:
		return precAdd
	case OpMul, OpDiv:
		return precMul
	}
	return 0
}

// IsUnary reports whether op may prefix a factor.
func (op Op) IsUnary() bool {
	return op == OpMinus || op == OpTilde || op == OpNot
}

// Token is one lexical token. Which payload field is meaningful is
// determined by Kind: Lit for Name, Value for Int, Kw for Keyword and Op
// for Operator.
type Token struct {
	Kind  Kind
	Pos   Pos
	Lit   string // source text of the token
	Value int64
	Kw    Kw
	Op    Op
}

// Is reports whether t has kind k.
func (t Token) Is(k Kind) bool {
	return t.Kind == k
}

// IsKeyword reports whether t is the keyword kw.
func (t Token) IsKeyword(kw Kw) bool {
	return t.Kind == Keyword && t.Kw == kw
}

// IsOp reports whether t is the operator op.
func (t Token) IsOp(op Op) bool {
	return t.Kind == Operator && t.Op == op
}

// String describes the token for diagnostics.
func (t Token) String() string {
	switch t.Kind {
	case Name:
		return fmt.Sprintf("identifier %q", t.Lit)
	case Int:
		return fmt.Sprintf("integer %d", t.Value)
	case Keyword:
		return fmt.Sprintf("keyword %q", t.Kw)
	case Operator:
		return fmt.Sprintf("operator %q", t.Op)
	case EOF:
		return "end of input"
	}
	return fmt.Sprintf("%q", t.Kind.String())
}
