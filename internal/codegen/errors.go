package codegen

import (
	"errors"
	"fmt"

	"github.com/you-not-fish/qxc/internal/syntax"
)

// ErrorKind classifies a code generation failure.
type ErrorKind uint8

const (
	DuplicateDecl ErrorKind = iota + 1
	UndefinedVar
	InvalidAssignTarget
)

// Sentinels matched by errors.Is against an *Error of the same kind.
var (
	ErrDuplicateDecl       = errors.New("variable declared twice")
	ErrUndefinedVar        = errors.New("undefined variable")
	ErrInvalidAssignTarget = errors.New("assignment target is not a variable")
)

func (k ErrorKind) sentinel() error {
	switch k {
	case DuplicateDecl:
		return ErrDuplicateDecl
	case UndefinedVar:
		return ErrUndefinedVar
	case InvalidAssignTarget:
		return ErrInvalidAssignTarget
	}
	return nil
}

func (k ErrorKind) String() string {
	if err := k.sentinel(); err != nil {
		return err.Error()
	}
	return fmt.Sprintf("ErrorKind(%d)", k)
}

// Error is a semantic error found while generating code.
type Error struct {
	Kind ErrorKind
	Pos  syntax.Pos
	Name string // variable involved, if any
}

func (e *Error) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("%s: %s", e.Pos, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %s", e.Pos, e.Kind, e.Name)
}

// Unwrap returns the sentinel for the error's kind.
func (e *Error) Unwrap() error {
	return e.Kind.sentinel()
}
