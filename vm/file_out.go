package vm

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Field is a .field directive of a unit.
type Field struct {
	Name       string
	Descriptor string
}

// Unit is the assembler text of one class: header, fields and methods.
type Unit struct {
	Name    string
	Super   string
	Fields  []Field
	Methods []*Method
}

// Method returns the method with the given name and descriptor. An empty
// descriptor matches the first method called name.
func (u *Unit) Method(name, descriptor string) *Method {
	for _, m := range u.Methods {
		if m.Name == name && (descriptor == "" || m.Descriptor == descriptor) {
			return m
		}
	}
	return nil
}

// String renders the unit as assembler text.
func (u *Unit) String() string {
	var sb strings.Builder
	if err := WriteUnit(&sb, u); err != nil {
		return fmt.Sprintf("; invalid unit %s: %v\n", u.Name, err)
	}
	return sb.String()
}

// UnitWriter streams one unit to an output. Each method is verified before
// any of its lines are written and the output is flushed after every method,
// so a failure never leaves an unterminated method body behind.
type UnitWriter struct {
	w      *bufio.Writer
	header bool
	err    error
}

// NewUnitWriter returns a writer producing assembler text on w.
func NewUnitWriter(w io.Writer) *UnitWriter {
	return &UnitWriter{w: bufio.NewWriter(w)}
}

// Header writes the .class and .super directives.
func (uw *UnitWriter) Header(name, super string) error {
	if uw.header {
		return fmt.Errorf("unit %s: header written twice", name)
	}
	uw.header = true
	uw.printf(".class public %s\n", name)
	uw.printf(".super %s\n", super)
	return uw.flush()
}

// Field writes a .field directive.
func (uw *UnitWriter) Field(f Field) error {
	if !uw.header {
		return fmt.Errorf("field %s: no class header", f.Name)
	}
	uw.printf(".field public %s %s\n", f.Name, f.Descriptor)
	return uw.flush()
}

// Method verifies m and writes it.
func (uw *UnitWriter) Method(m *Method) error {
	if !uw.header {
		return fmt.Errorf("method %s: no class header", m.Name)
	}
	if err := Verify(m); err != nil {
		return err
	}
	uw.printf("\n%s", m.String())
	return uw.flush()
}

func (uw *UnitWriter) printf(format string, args ...interface{}) {
	if uw.err != nil {
		return
	}
	_, uw.err = fmt.Fprintf(uw.w, format, args...)
}

func (uw *UnitWriter) flush() error {
	if uw.err != nil {
		return uw.err
	}
	uw.err = uw.w.Flush()
	return uw.err
}

// WriteUnit writes a complete unit to w.
func WriteUnit(w io.Writer, u *Unit) error {
	uw := NewUnitWriter(w)
	if err := uw.Header(u.Name, u.Super); err != nil {
		return err
	}
	for _, f := range u.Fields {
		if err := uw.Field(f); err != nil {
			return err
		}
	}
	for _, m := range u.Methods {
		if err := uw.Method(m); err != nil {
			return fmt.Errorf("unit %s: %w", u.Name, err)
		}
	}
	return nil
}
