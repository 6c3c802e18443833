package vm

// ---------------------------------------------------------------------------
// Fptr: bound methods
// ---------------------------------------------------------------------------

func (m *Machine) registerFptrPrimitives() {
	m.RegisterNative(ClassFptr, "<init>", "(Ljava/lang/Object;Ljava/lang/String;)V", func(_ *Machine, recv Value, args []Value) (Value, error) {
		f, ok := recv.(*Fptr)
		if !ok {
			return nil, castError(recv, ClassFptr)
		}
		name, ok := args[1].(string)
		if !ok {
			return nil, castError(args[1], ClassString)
		}
		f.Receiver = args[0]
		f.Name = name
		return nil, nil
	})

	m.RegisterNative(ClassFptr, "invoke", "(Ljava/util/ArrayList;)Ljava/lang/Object;", func(vm *Machine, recv Value, args []Value) (Value, error) {
		f, ok := recv.(*Fptr)
		if !ok {
			return nil, castError(recv, ClassFptr)
		}
		list, ok := args[0].(*ArrayList)
		if !ok {
			return nil, castError(args[0], ClassArrayList)
		}
		obj, ok := f.Receiver.(*Object)
		if !ok {
			return nil, castError(f.Receiver, ClassObject)
		}
		cls, method := obj.Class.LookupMethodByName(f.Name)
		if method == nil {
			return nil, throwf(ErrNoSuchMethod, "%s.%s", obj.Class.Name, f.Name)
		}
		params, _, err := SplitDescriptor(method.Descriptor)
		if err != nil {
			return nil, err
		}
		if len(params) != len(list.Items) {
			return nil, throwf(ErrNoSuchMethod, "%s.%s takes %d arguments, got %d",
				obj.Class.Name, f.Name, len(params), len(list.Items))
		}
		return vm.invoke(cls, method, obj, list.Items)
	})
}
