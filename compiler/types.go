package compiler

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Types: the closed set of static types carried by the AST
// ---------------------------------------------------------------------------

// Type is a resolved static type. The set of implementations is closed;
// code that switches over types treats any other value as an internal error.
type Type interface {
	String() string
	typ() // marker method
}

// IntType is the integer type.
type IntType struct{}

// BoolType is the boolean type.
type BoolType struct{}

// StringType is the string type.
type StringType struct{}

// NullType is the type of the null literal. As a method return type it
// means "no value".
type NullType struct{}

// ClassType refers to a user class by name.
type ClassType struct {
	Name string
}

// ListElement is one named, independently typed member of a list record.
// Name is empty for positional-only elements.
type ListElement struct {
	Name string
	Type Type
}

// ListType is a fixed-shape heterogeneous record: an ordered sequence of
// (name, type) pairs.
type ListType struct {
	Elements []ListElement
}

// FptrType is the type of a bound method value. Parameter types are kept for
// resolution but do not affect the runtime representation.
type FptrType struct {
	Params []Type
	Return Type
}

func (IntType) typ()    {}
func (BoolType) typ()   {}
func (StringType) typ() {}
func (NullType) typ()   {}
func (ClassType) typ()  {}
func (*ListType) typ()  {}
func (*FptrType) typ()  {}

func (IntType) String() string    { return "int" }
func (BoolType) String() string   { return "bool" }
func (StringType) String() string { return "string" }
func (NullType) String() string   { return "null" }
func (t ClassType) String() string {
	return t.Name
}

func (t *ListType) String() string {
	parts := make([]string, len(t.Elements))
	for i, el := range t.Elements {
		if el.Name != "" {
			parts[i] = el.Name + ": " + typeString(el.Type)
		} else {
			parts[i] = typeString(el.Type)
		}
	}
	return "list(" + strings.Join(parts, ", ") + ")"
}

func (t *FptrType) String() string {
	parts := make([]string, len(t.Params))
	for i, p := range t.Params {
		parts[i] = typeString(p)
	}
	return fmt.Sprintf("func<(%s) -> %s>", strings.Join(parts, ", "), typeString(t.Return))
}

func typeString(t Type) string {
	if t == nil {
		return "<unresolved>"
	}
	return t.String()
}

// Convenience values for the scalar types.
var (
	Int    Type = IntType{}
	Bool   Type = BoolType{}
	String Type = StringType{}
	Null   Type = NullType{}
)

// Class returns a ClassType for name.
func Class(name string) Type {
	return ClassType{Name: name}
}

// List returns a ListType built from elements.
func List(elements ...ListElement) *ListType {
	return &ListType{Elements: elements}
}

// Fptr returns a function pointer type.
func Fptr(ret Type, params ...Type) *FptrType {
	return &FptrType{Params: params, Return: ret}
}

// IsPrimitive reports whether values of t are boxed in storage and unboxed
// on the operand stack.
func IsPrimitive(t Type) bool {
	switch t.(type) {
	case IntType, BoolType:
		return true
	}
	return false
}

// IsVoid reports whether t, used as a return type, means "no value".
func IsVoid(t Type) bool {
	if t == nil {
		return true
	}
	_, ok := t.(NullType)
	return ok
}

// SameType reports structural type equality. Element names of lists are
// ignored.
func SameType(a, b Type) bool {
	switch x := a.(type) {
	case IntType:
		_, ok := b.(IntType)
		return ok
	case BoolType:
		_, ok := b.(BoolType)
		return ok
	case StringType:
		_, ok := b.(StringType)
		return ok
	case NullType:
		_, ok := b.(NullType)
		return ok
	case ClassType:
		y, ok := b.(ClassType)
		return ok && x.Name == y.Name
	case *ListType:
		y, ok := b.(*ListType)
		if !ok || len(x.Elements) != len(y.Elements) {
			return false
		}
		for i := range x.Elements {
			if !SameType(x.Elements[i].Type, y.Elements[i].Type) {
				return false
			}
		}
		return true
	case *FptrType:
		y, ok := b.(*FptrType)
		if !ok || len(x.Params) != len(y.Params) || !SameType(x.Return, y.Return) {
			return false
		}
		for i := range x.Params {
			if !SameType(x.Params[i], y.Params[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// ElementIndex returns the position of the first element called name.
func (t *ListType) ElementIndex(name string) (int, bool) {
	for i, el := range t.Elements {
		if el.Name == name {
			return i, true
		}
	}
	return -1, false
}

// CommonElementType returns the element type shared by every element, if any.
func (t *ListType) CommonElementType() (Type, bool) {
	if len(t.Elements) == 0 {
		return nil, false
	}
	first := t.Elements[0].Type
	for _, el := range t.Elements[1:] {
		if !SameType(first, el.Type) {
			return nil, false
		}
	}
	return first, true
}
