package vm

import (
	"fmt"
	"io"
	"strconv"
)

// ---------------------------------------------------------------------------
// java/lang/System.out and java/io/PrintStream
// ---------------------------------------------------------------------------

// PrintStream is the target of println.
type PrintStream struct {
	w io.Writer
}

func (m *Machine) registerPrintPrimitives() {
	printer := func(format func(Value) (string, error)) NativeFunc {
		return func(_ *Machine, recv Value, args []Value) (Value, error) {
			ps, ok := recv.(*PrintStream)
			if !ok {
				return nil, castError(recv, ClassPrintStream)
			}
			s, err := format(args[0])
			if err != nil {
				return nil, err
			}
			if _, err := fmt.Fprintln(ps.w, s); err != nil {
				return nil, fmt.Errorf("println: %w", err)
			}
			return nil, nil
		}
	}

	m.RegisterNative(ClassPrintStream, "println", "(I)V", printer(func(v Value) (string, error) {
		i, err := primitiveArg(v)
		return strconv.Itoa(int(i)), err
	}))
	m.RegisterNative(ClassPrintStream, "println", "(Z)V", printer(func(v Value) (string, error) {
		i, err := primitiveArg(v)
		return strconv.FormatBool(i != 0), err
	}))
	m.RegisterNative(ClassPrintStream, "println", "(Ljava/lang/String;)V", printer(func(v Value) (string, error) {
		switch s := v.(type) {
		case nil:
			return "null", nil
		case string:
			return s, nil
		}
		return "", castError(v, ClassString)
	}))
	m.RegisterNative(ClassPrintStream, "println", "(Ljava/lang/Object;)V", printer(func(v Value) (string, error) {
		return Format(v), nil
	}))
}
