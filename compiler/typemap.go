package compiler

import (
	"errors"
	"fmt"

	"github.com/chazu/sophia/vm"
)

// ErrUnsupportedType is returned when a type outside the closed set reaches
// the signature mapper.
var ErrUnsupportedType = errors.New("unsupported type")

// ---------------------------------------------------------------------------
// Type/signature mapping
// ---------------------------------------------------------------------------

// ObjectName returns the runtime class name used for values of t.
func ObjectName(t Type) (string, error) {
	switch x := t.(type) {
	case IntType:
		return vm.ClassInteger, nil
	case BoolType:
		return vm.ClassBoolean, nil
	case StringType:
		return vm.ClassString, nil
	case *ListType:
		return vm.ClassList, nil
	case ClassType:
		return x.Name, nil
	case *FptrType:
		return vm.ClassFptr, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedType, typeString(t))
}

// Signature returns the object-reference signature of t ("Ljava/lang/Integer;").
func Signature(t Type) (string, error) {
	name, err := ObjectName(t)
	if err != nil {
		return "", err
	}
	return "L" + name + ";", nil
}

// PrimitiveSignature returns I or Z for int and bool and Signature(t)
// otherwise.
func PrimitiveSignature(t Type) (string, error) {
	switch t.(type) {
	case IntType:
		return "I", nil
	case BoolType:
		return "Z", nil
	}
	return Signature(t)
}

// ReturnSignature returns V for "no value" and Signature(t) otherwise.
func ReturnSignature(t Type) (string, error) {
	if IsVoid(t) {
		return "V", nil
	}
	return Signature(t)
}

// MethodDescriptor encodes the argument and return types of m.
func MethodDescriptor(m *MethodDecl) (string, error) {
	args := make([]string, len(m.Args))
	for i, a := range m.Args {
		sig, err := Signature(a.Type)
		if err != nil {
			return "", fmt.Errorf("argument %s: %w", a.Name, err)
		}
		args[i] = sig
	}
	ret := "V"
	if !m.Constructor {
		var err error
		if ret, err = ReturnSignature(m.ReturnType); err != nil {
			return "", fmt.Errorf("return type: %w", err)
		}
	}
	return vm.Descriptor(ret, args...), nil
}

// Box emits the conversion of a primitive on the stack to its boxed form.
// It emits nothing for reference types.
func Box(m *vm.Method, t Type) {
	switch t.(type) {
	case IntType:
		m.EmitInvoke(vm.OpInvokestatic, vm.ClassInteger, "valueOf", "(I)Ljava/lang/Integer;")
	case BoolType:
		m.EmitInvoke(vm.OpInvokestatic, vm.ClassBoolean, "valueOf", "(Z)Ljava/lang/Boolean;")
	}
}

// Unbox emits the conversion of a boxed value on the stack to a primitive.
// It emits nothing for reference types.
func Unbox(m *vm.Method, t Type) {
	switch t.(type) {
	case IntType:
		m.EmitInvoke(vm.OpInvokevirtual, vm.ClassInteger, "intValue", "()I")
	case BoolType:
		m.EmitInvoke(vm.OpInvokevirtual, vm.ClassBoolean, "booleanValue", "()Z")
	}
}

// Checkcast emits a downcast of a generic Object to the runtime class of t.
func Checkcast(m *vm.Method, t Type) error {
	name, err := ObjectName(t)
	if err != nil {
		return err
	}
	if name != vm.ClassObject {
		m.Emit(vm.OpCheckcast, name)
	}
	return nil
}
