package vm

// ---------------------------------------------------------------------------
// java/lang/Boolean
// ---------------------------------------------------------------------------

func (m *Machine) registerBooleanPrimitives() {
	m.RegisterNative(ClassBoolean, "valueOf", "(Z)Ljava/lang/Boolean;", func(_ *Machine, _ Value, args []Value) (Value, error) {
		v, err := primitiveArg(args[0])
		if err != nil {
			return nil, err
		}
		return &Boolean{V: v != 0}, nil
	})

	m.RegisterNative(ClassBoolean, "booleanValue", "()Z", func(_ *Machine, recv Value, _ []Value) (Value, error) {
		b, ok := recv.(*Boolean)
		if !ok {
			return nil, castError(recv, ClassBoolean)
		}
		if b.V {
			return int32(1), nil
		}
		return int32(0), nil
	})
}
