package vm

import (
	"errors"
	"fmt"
)

// ---------------------------------------------------------------------------
// Runtime errors raised while executing units
// ---------------------------------------------------------------------------

var (
	ErrNullPointer      = errors.New("null pointer")
	ErrClassCast        = errors.New("class cast")
	ErrIndexOutOfBounds = errors.New("index out of bounds")
	ErrArithmetic       = errors.New("arithmetic")
	ErrNoSuchMethod     = errors.New("no such method")
	ErrNoSuchClass      = errors.New("no such class")
	ErrStackOverflow    = errors.New("stack overflow")
	ErrStepLimit        = errors.New("step limit exceeded")
	ErrBadInstruction   = errors.New("bad instruction")
)

// RuntimeError locates a failure inside executing code.
type RuntimeError struct {
	Class  string
	Method string
	PC     int // line index in the method body
	Instr  string
	Err    error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("%s.%s [%d: %s]: %v", e.Class, e.Method, e.PC, e.Instr, e.Err)
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// throwf builds the error raised by a native operation.
func throwf(kind error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}
