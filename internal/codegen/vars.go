package codegen

import (
	"fmt"

	"github.com/you-not-fish/qxc/internal/rtabi"
)

// binding maps a variable to its stack slot.
type binding struct {
	name string
	slot int // 1-based; the variable lives at [rbp - 8*slot]
}

// varTable is the ordered set of visible variables.
//
// With ScopeFlat the table only grows: a declaration stays visible until
// the end of the function, whatever block it appeared in. With ScopeBlock
// every block pushes a mark, its declarations may shadow outer ones, and
// leaving the block truncates the table back to the mark so the slots are
// reused.
type varTable struct {
	scoping Scoping
	vars    []binding
	marks   []int
	maxSlot int
}

func newVarTable(scoping Scoping) *varTable {
	return &varTable{scoping: scoping}
}

// declared reports whether name is already bound in the current scope.
func (t *varTable) declared(name string) bool {
	_, ok := t.lookupFrom(t.scopeStart(), name)
	return ok
}

// declare binds name to a fresh slot. ok is false if name is already
// bound in the current scope.
func (t *varTable) declare(name string) (slot int, ok bool) {
	if t.declared(name) {
		return 0, false
	}
	slot = len(t.vars) + 1
	t.vars = append(t.vars, binding{name: name, slot: slot})
	if slot > t.maxSlot {
		t.maxSlot = slot
	}
	return slot, true
}

// lookup returns the slot of the innermost visible binding of name.
func (t *varTable) lookup(name string) (slot int, ok bool) {
	return t.lookupFrom(0, name)
}

func (t *varTable) lookupFrom(start int, name string) (int, bool) {
	for i := len(t.vars) - 1; i >= start; i-- {
		if t.vars[i].name == name {
			return t.vars[i].slot, true
		}
	}
	return 0, false
}

func (t *varTable) scopeStart() int {
	if len(t.marks) == 0 {
		return 0
	}
	return t.marks[len(t.marks)-1]
}

func (t *varTable) openScope() {
	if t.scoping == ScopeBlock {
		t.marks = append(t.marks, len(t.vars))
	}
}

func (t *varTable) closeScope() {
	if t.scoping != ScopeBlock {
		return
	}
	n := len(t.marks) - 1
	t.vars = t.vars[:t.marks[n]]
	t.marks = t.marks[:n]
}

// frameSize returns the bytes needed for every slot ever handed out.
func (t *varTable) frameSize() int {
	return t.maxSlot * rtabi.WordSize
}

func slotAddr(slot int) string {
	return fmt.Sprintf("[rbp - %d]", slot*rtabi.WordSize)
}
