package syntax

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Scanner splits qxc source text into tokens.
type Scanner struct {
	source

	tok Token
	err *SyntaxError // first lexical error; scanning stops once set

	litBuf strings.Builder
}

// NewScanner creates a Scanner reading all of src.
func NewScanner(filename string, src io.Reader) (*Scanner, error) {
	s, err := newSource(filename, src)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", filename, err)
	}
	return &Scanner{source: *s}, nil
}

// Tokenize scans src completely and returns its token sequence. The first
// lexical error aborts scanning and is returned as a *SyntaxError.
func Tokenize(filename string, src io.Reader) ([]Token, error) {
	s, err := NewScanner(filename, src)
	if err != nil {
		return nil, err
	}
	return s.All()
}

// All scans the remaining input.
func (s *Scanner) All() ([]Token, error) {
	var toks []Token
	for s.Next() {
		toks = append(toks, s.tok)
	}
	if s.err != nil {
		return nil, s.err
	}
	return toks, nil
}

// Next advances to the next token. It returns false at end of input or
// after a lexical error; Err distinguishes the two.
func (s *Scanner) Next() bool {
	if s.err != nil {
		return false
	}

redo:
	for isWhitespace(s.ch) {
		s.nextch()
	}

	s.tok = Token{Pos: s.pos()}

	switch {
	case s.ch < 0:
		s.tok.Kind = EOF
		return false

	case isLetter(s.ch):
		s.scanIdent()

	case isDigit(s.ch):
		s.scanNumber()

	case s.ch == '/' && (s.peek() == '/' || s.peek() == '*'):
		s.skipComment()
		if s.err != nil {
			return false
		}
		goto redo

	default:
		s.scanPunct()
	}

	return s.err == nil
}

// Token returns the current token.
func (s *Scanner) Token() Token {
	return s.tok
}

// Err returns the first lexical error, or nil.
func (s *Scanner) Err() error {
	if s.err == nil {
		return nil
	}
	return s.err
}

func (s *Scanner) errorAt(pos Pos, format string, args ...interface{}) {
	if s.err == nil {
		s.err = &SyntaxError{Pos: pos, Msg: fmt.Sprintf(format, args...)}
	}
}

// scanWord accumulates letters and digits into a literal.
func (s *Scanner) scanWord() string {
	s.litBuf.Reset()
	for isLetter(s.ch) || isDigit(s.ch) {
		s.litBuf.WriteRune(s.ch)
		s.nextch()
	}
	return s.litBuf.String()
}

func (s *Scanner) scanIdent() {
	lit := s.scanWord()
	s.tok.Lit = lit
	if kw := LookupKeyword(lit); kw != KwInvalid {
		s.tok.Kind = Keyword
		s.tok.Kw = kw
		return
	}
	s.tok.Kind = Name
}

// scanNumber scans a decimal integer literal. Trailing letters are part
// of the literal so that 12ab is rejected as a whole.
func (s *Scanner) scanNumber() {
	lit := s.scanWord()
	s.tok.Kind = Int
	s.tok.Lit = lit

	v, err := strconv.ParseInt(lit, 10, 64)
	if err != nil {
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			s.errorAt(s.tok.Pos, "integer literal %s out of range", lit)
		} else {
			s.errorAt(s.tok.Pos, "invalid integer literal %q", lit)
		}
		return
	}
	s.tok.Value = v
}

func (s *Scanner) skipComment() {
	pos := s.pos()
	s.nextch() // '/'
	if s.ch == '/' {
		for s.ch != '\n' && s.ch >= 0 {
			s.nextch()
		}
		return
	}

	s.nextch() // '*'
	for {
		if s.ch < 0 {
			s.errorAt(pos, "comment not terminated")
			return
		}
		if s.ch == '*' && s.peek() == '/' {
			s.nextch()
			s.nextch()
			return
		}
		s.nextch()
	}
}

// scanPunct scans an operator or punctuation token.
func (s *Scanner) scanPunct() {
	ch := s.ch
	s.nextch()

	switch ch {
	case '(':
		s.punct(Lparen, "(")
	case ')':
		s.punct(Rparen, ")")
	case '{':
		s.punct(Lbrace, "{")
	case '}':
		s.punct(Rbrace, "}")
	case ';':
		s.punct(Semi, ";")
	case '-':
		s.op(OpMinus)
	case '+':
		s.op(OpPlus)
	case '*':
		s.op(OpMul)
	case '/':
		s.op(OpDiv)
	case '~':
		s.op(OpTilde)
	case '?':
		s.op(OpQuestion)
	case ':':
		s.op(OpColon)
	case '!':
		s.op2('=', OpNeq, OpNot)
	case '=':
		s.op2('=', OpEql, OpAssign)
	case '<':
		s.op2('=', OpLeq, OpLss)
	case '>':
		s.op2('=', OpGeq, OpGtr)
	case '&':
		if s.ch != '&' {
			s.errorAt(s.tok.Pos, "unexpected character '&' (bitwise operators are not supported)")
			return
		}
		s.nextch()
		s.op(OpAndAnd)
	case '|':
		if s.ch != '|' {
			s.errorAt(s.tok.Pos, "unexpected character '|' (bitwise operators are not supported)")
			return
		}
		s.nextch()
		s.op(OpOrOr)
	default:
		s.errorAt(s.tok.Pos, "unexpected character %q", ch)
	}
}

func (s *Scanner) punct(k Kind, lit string) {
	s.tok.Kind = k
	s.tok.Lit = lit
}

func (s *Scanner) op(op Op) {
	s.tok.Kind = Operator
	s.tok.Op = op
	s.tok.Lit = op.String()
}

// op2 scans a one- or two-character operator: if the next character is
// second the result is long, otherwise short.
func (s *Scanner) op2(second rune, long, short Op) {
	if s.ch == second {
		s.nextch()
		s.op(long)
		return
	}
	s.op(short)
}
