package syntax

// Cursor is a forward-only view over a token sequence.
type Cursor struct {
	toks []Token
	i    int
	end  Pos // position reported once the sequence is exhausted
}

// NewCursor returns a cursor positioned on the first token. end is the
// position reported for end of input.
func NewCursor(toks []Token, end Pos) *Cursor {
	return &Cursor{toks: toks, end: end}
}

// Peek returns the next token without consuming it.
// ok is false once the sequence is exhausted.
func (c *Cursor) Peek() (tok Token, ok bool) {
	return c.PeekN(0)
}

// PeekN returns the token n positions past the next one without
// consuming anything; PeekN(0) is Peek.
func (c *Cursor) PeekN(n int) (tok Token, ok bool) {
	if j := c.i + n; n >= 0 && j < len(c.toks) {
		return c.toks[j], true
	}
	return Token{Kind: EOF, Pos: c.end}, false
}

// Pop consumes and returns the next token.
// ok is false once the sequence is exhausted.
func (c *Cursor) Pop() (tok Token, ok bool) {
	tok, ok = c.Peek()
	if ok {
		c.i++
	}
	return tok, ok
}

// Pos returns the position of the next token, or the end position.
func (c *Cursor) Pos() Pos {
	tok, _ := c.Peek()
	return tok.Pos
}

// Remaining returns the number of unconsumed tokens.
func (c *Cursor) Remaining() int {
	return len(c.toks) - c.i
}
