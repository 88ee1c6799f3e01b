package codegen

import (
	"fmt"
	"io"
	"strings"
)

// emitter wraps an io.Writer with helpers for emitting NASM text.
type emitter struct {
	w      io.Writer
	err    error // first write error
	indent int
}

// emit writes a formatted line at the current indentation.
func (e *emitter) emit(format string, args ...interface{}) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, strings.Repeat("  ", e.indent)+format+"\n", args...)
}

// emitLine writes a blank line.
func (e *emitter) emitLine() {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintln(e.w)
}

// emitComment writes a comment line.
func (e *emitter) emitComment(text string) {
	e.emit("; %s", text)
}

// emitLabel writes a label definition, unindented and preceded by a
// blank line.
func (e *emitter) emitLabel(name string) {
	e.emitLine()
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, "%s:\n", name)
}
