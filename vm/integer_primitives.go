package vm

// ---------------------------------------------------------------------------
// java/lang/Integer
// ---------------------------------------------------------------------------

func (m *Machine) registerIntegerPrimitives() {
	m.RegisterNative(ClassInteger, "valueOf", "(I)Ljava/lang/Integer;", func(_ *Machine, _ Value, args []Value) (Value, error) {
		v, err := primitiveArg(args[0])
		if err != nil {
			return nil, err
		}
		return &Integer{V: v}, nil
	})

	m.RegisterNative(ClassInteger, "intValue", "()I", func(_ *Machine, recv Value, _ []Value) (Value, error) {
		i, ok := recv.(*Integer)
		if !ok {
			return nil, castError(recv, ClassInteger)
		}
		return i.V, nil
	})
}

// primitiveArg checks that an operand is an unboxed int.
func primitiveArg(v Value) (int32, error) {
	i, ok := v.(int32)
	if !ok {
		return 0, throwf(ErrBadInstruction, "expected primitive, got %s", RuntimeClassName(v))
	}
	return i, nil
}

func castError(v Value, want string) error {
	if v == nil {
		return throwf(ErrNullPointer, "expected %s", want)
	}
	return throwf(ErrClassCast, "%s cannot be cast to %s", RuntimeClassName(v), want)
}
