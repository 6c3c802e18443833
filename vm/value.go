package vm

import (
	"fmt"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Value: runtime representation of operand-stack and slot contents
// ---------------------------------------------------------------------------

// Value is one operand-stack or slot entry. Its dynamic type is one of:
//
//	int32         primitive int or boolean (0/1)
//	nil           null reference
//	string        java/lang/String
//	*Integer      java/lang/Integer
//	*Boolean      java/lang/Boolean
//	*Object       instance of a loaded unit
//	*ArrayList    java/util/ArrayList
//	*List         List record
//	*Fptr         bound method
//	*PrintStream  java/io/PrintStream
type Value interface{}

// Runtime support type names.
const (
	ClassObject      = "java/lang/Object"
	ClassInteger     = "java/lang/Integer"
	ClassBoolean     = "java/lang/Boolean"
	ClassString      = "java/lang/String"
	ClassArrayList   = "java/util/ArrayList"
	ClassList        = "List"
	ClassFptr        = "Fptr"
	ClassSystem      = "java/lang/System"
	ClassPrintStream = "java/io/PrintStream"
)

// Integer is a boxed int.
type Integer struct {
	V int32
}

// Boolean is a boxed boolean.
type Boolean struct {
	V bool
}

// Object is an instance of a user class.
type Object struct {
	Class  *RuntimeClass
	Fields map[string]Value
	id     int
}

// Field returns the value stored in the named field.
func (o *Object) Field(name string) Value {
	return o.Fields[name]
}

// ArrayList is the growable list used to build List records and call
// argument lists.
type ArrayList struct {
	Items []Value
}

// List is a fixed-shape record with indexed element access.
type List struct {
	Elements []Value
}

// Fptr pairs a receiver with a method name.
type Fptr struct {
	Receiver Value
	Name     string
}

// IsPrimitive reports whether v is an unboxed int or boolean.
func IsPrimitive(v Value) bool {
	_, ok := v.(int32)
	return ok
}

// RuntimeClassName returns the class name of a reference value.
func RuntimeClassName(v Value) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case int32:
		return "int"
	case string:
		return ClassString
	case *Integer:
		return ClassInteger
	case *Boolean:
		return ClassBoolean
	case *Object:
		return x.Class.Name
	case *ArrayList:
		return ClassArrayList
	case *List:
		return ClassList
	case *Fptr:
		return ClassFptr
	case *PrintStream:
		return ClassPrintStream
	}
	return fmt.Sprintf("%T", v)
}

// Format renders v the way println(Object) prints it.
func Format(v Value) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case int32:
		return strconv.Itoa(int(x))
	case string:
		return x
	case *Integer:
		return strconv.Itoa(int(x.V))
	case *Boolean:
		return strconv.FormatBool(x.V)
	case *Object:
		return fmt.Sprintf("%s@%x", x.Class.Name, x.id)
	case *ArrayList:
		return formatItems(x.Items)
	case *List:
		return formatItems(x.Elements)
	case *Fptr:
		return fmt.Sprintf("Fptr(%s.%s)", RuntimeClassName(x.Receiver), x.Name)
	}
	return fmt.Sprintf("%v", v)
}

func formatItems(items []Value) string {
	parts := make([]string, len(items))
	for i, v := range items {
		parts[i] = Format(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// SameRef implements if_acmpeq: identity for heap values, value equality
// for strings. Strings only come from ldc constants, which the assembler
// interns, so equal text means the same reference. Once strings can be
// built at run time this must switch to identity.
func SameRef(a, b Value) bool {
	switch x := a.(type) {
	case nil:
		return b == nil
	case string:
		y, ok := b.(string)
		return ok && x == y
	}
	return a == b
}
