package vm

import "fmt"

// ---------------------------------------------------------------------------
// RuntimeClass: a loaded unit linked to its superclass
// ---------------------------------------------------------------------------

// RuntimeClass is a unit loaded into a Machine.
type RuntimeClass struct {
	Name       string
	Superclass *RuntimeClass // nil when the parent is the root class
	Unit       *Unit
	methods    map[string]*Method // name+descriptor
	labels     map[*Method]map[string]int
}

func newRuntimeClass(u *Unit) *RuntimeClass {
	c := &RuntimeClass{
		Name:    u.Name,
		Unit:    u,
		methods: make(map[string]*Method),
		labels:  make(map[*Method]map[string]int),
	}
	for _, m := range u.Methods {
		c.methods[m.Name+m.Descriptor] = m
		targets := make(map[string]int)
		for i, l := range m.Lines {
			if l.Kind == LineLabel {
				targets[l.Text] = i
			}
		}
		c.labels[m] = targets
	}
	return c
}

// LookupMethod finds name+descriptor in the class or its superclasses.
func (c *RuntimeClass) LookupMethod(name, descriptor string) (*RuntimeClass, *Method) {
	for cls := c; cls != nil; cls = cls.Superclass {
		if m, ok := cls.methods[name+descriptor]; ok {
			return cls, m
		}
	}
	return nil, nil
}

// LookupMethodByName finds the first method called name in the class or its
// superclasses, ignoring the descriptor.
func (c *RuntimeClass) LookupMethodByName(name string) (*RuntimeClass, *Method) {
	for cls := c; cls != nil; cls = cls.Superclass {
		if m := cls.Unit.Method(name, ""); m != nil {
			return cls, m
		}
	}
	return nil, nil
}

// IsSubclassOf reports whether c is name or inherits from it.
func (c *RuntimeClass) IsSubclassOf(name string) bool {
	if name == ClassObject {
		return true
	}
	for cls := c; cls != nil; cls = cls.Superclass {
		if cls.Name == name {
			return true
		}
	}
	return false
}

// HasField reports whether the class or a superclass declares name.
func (c *RuntimeClass) HasField(name string) bool {
	for cls := c; cls != nil; cls = cls.Superclass {
		for _, f := range cls.Unit.Fields {
			if f.Name == name {
				return true
			}
		}
	}
	return false
}

func (c *RuntimeClass) label(m *Method, name string) (int, error) {
	i, ok := c.labels[m][name]
	if !ok {
		return 0, fmt.Errorf("%w: undefined label %s", ErrBadInstruction, name)
	}
	return i, nil
}
