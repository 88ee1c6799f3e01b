package syntax

import (
	"io"
	"unicode/utf8"
)

// source is a character reader with line/column tracking.
// The whole input is read into memory up front.
type source struct {
	buf      []byte
	filename string

	// (line, col) always refers to ch after nextch returns. col counts
	// bytes, so a multi-byte character advances it by its encoded width.
	line int
	col  int
	ch   rune // current character, -1 at EOF
	chw  int  // encoded width of ch in bytes
	offs int  // byte offset of the character after ch
}

// newSource reads src completely and positions the reader on the first
// character.
func newSource(filename string, src io.Reader) (*source, error) {
	buf, err := io.ReadAll(src)
	if err != nil {
		return nil, err
	}
	s := &source{
		buf:      buf,
		filename: filename,
		line:     1,
		col:      0,
		ch:       -1, // sentinel: before first char, keeps nextch from bumping line
		chw:      1,
	}
	s.nextch()
	return s, nil
}

// nextch advances to the next character.
func (s *source) nextch() {
	if s.ch == '\n' {
		s.line++
		s.col = 1
	} else {
		s.col += s.chw
	}

	if s.offs >= len(s.buf) {
		s.ch = -1
		return
	}

	r, width := utf8.DecodeRune(s.buf[s.offs:])
	s.ch = r
	s.chw = width
	s.offs += width
}

// peek returns the character following ch without consuming anything.
func (s *source) peek() rune {
	if s.offs >= len(s.buf) {
		return -1
	}
	r, _ := utf8.DecodeRune(s.buf[s.offs:])
	return r
}

// pos returns the position of the current character.
func (s *source) pos() Pos {
	return NewPos(s.filename, s.line, s.col)
}

func isLetter(r rune) bool {
	return 'a' <= r && r <= 'z' || 'A' <= r && r <= 'Z' || r == '_'
}

func isDigit(r rune) bool {
	return '0' <= r && r <= '9'
}

// isWhitespace reports whether r is blank. Newlines are whitespace too:
// the language has no automatic semicolons.
func isWhitespace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\r' || r == '\n' || r == '\f' || r == '\v'
}
