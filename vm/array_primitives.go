package vm

// ---------------------------------------------------------------------------
// java/util/ArrayList and List
// ---------------------------------------------------------------------------

func (m *Machine) registerArrayPrimitives() {
	m.RegisterNative(ClassArrayList, "<init>", "()V", func(_ *Machine, recv Value, _ []Value) (Value, error) {
		if _, ok := recv.(*ArrayList); !ok {
			return nil, castError(recv, ClassArrayList)
		}
		return nil, nil
	})

	m.RegisterNative(ClassArrayList, "add", "(Ljava/lang/Object;)Z", func(_ *Machine, recv Value, args []Value) (Value, error) {
		a, ok := recv.(*ArrayList)
		if !ok {
			return nil, castError(recv, ClassArrayList)
		}
		a.Items = append(a.Items, args[0])
		return int32(1), nil
	})

	m.RegisterNative(ClassArrayList, "size", "()I", func(_ *Machine, recv Value, _ []Value) (Value, error) {
		a, ok := recv.(*ArrayList)
		if !ok {
			return nil, castError(recv, ClassArrayList)
		}
		return int32(len(a.Items)), nil
	})

	m.RegisterNative(ClassList, "<init>", "(Ljava/util/ArrayList;)V", func(_ *Machine, recv Value, args []Value) (Value, error) {
		l, ok := recv.(*List)
		if !ok {
			return nil, castError(recv, ClassList)
		}
		src, ok := args[0].(*ArrayList)
		if !ok {
			return nil, castError(args[0], ClassArrayList)
		}
		l.Elements = append([]Value(nil), src.Items...)
		return nil, nil
	})

	m.RegisterNative(ClassList, "<init>", "(LList;)V", func(_ *Machine, recv Value, args []Value) (Value, error) {
		l, ok := recv.(*List)
		if !ok {
			return nil, castError(recv, ClassList)
		}
		src, ok := args[0].(*List)
		if !ok {
			return nil, castError(args[0], ClassList)
		}
		l.Elements = copyElements(src.Elements)
		return nil, nil
	})

	m.RegisterNative(ClassList, "getElement", "(I)Ljava/lang/Object;", func(_ *Machine, recv Value, args []Value) (Value, error) {
		l, i, err := listIndex(recv, args[0])
		if err != nil {
			return nil, err
		}
		return l.Elements[i], nil
	})

	m.RegisterNative(ClassList, "setElement", "(ILjava/lang/Object;)V", func(_ *Machine, recv Value, args []Value) (Value, error) {
		l, i, err := listIndex(recv, args[0])
		if err != nil {
			return nil, err
		}
		l.Elements[i] = args[1]
		return nil, nil
	})

	m.RegisterNative(ClassList, "getSize", "()I", func(_ *Machine, recv Value, _ []Value) (Value, error) {
		l, ok := recv.(*List)
		if !ok {
			return nil, castError(recv, ClassList)
		}
		return int32(len(l.Elements)), nil
	})
}

// copyElements copies a record; nested records are copied too, so the copy
// shares no List storage with its source.
func copyElements(src []Value) []Value {
	out := make([]Value, len(src))
	for i, v := range src {
		if nested, ok := v.(*List); ok {
			v = &List{Elements: copyElements(nested.Elements)}
		}
		out[i] = v
	}
	return out
}

func listIndex(recv, index Value) (*List, int, error) {
	l, ok := recv.(*List)
	if !ok {
		return nil, 0, castError(recv, ClassList)
	}
	i, err := primitiveArg(index)
	if err != nil {
		return nil, 0, err
	}
	if i < 0 || int(i) >= len(l.Elements) {
		return nil, 0, throwf(ErrIndexOutOfBounds, "index %d, size %d", i, len(l.Elements))
	}
	return l, int(i), nil
}
