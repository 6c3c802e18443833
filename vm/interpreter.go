package vm

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("sophia.vm")

// Default execution limits.
const (
	DefaultMaxSteps = 10_000_000
	DefaultMaxDepth = 1024
)

// ---------------------------------------------------------------------------
// CallFrame: Execution state for a method invocation
// ---------------------------------------------------------------------------

// CallFrame is the execution state of one method invocation.
type CallFrame struct {
	Class  *RuntimeClass
	Method *Method
	Locals []Value
	PC     int // index into Method.Lines

	stack []Value
}

type stackUnderflow struct{}

func (f *CallFrame) push(v Value) {
	f.stack = append(f.stack, v)
}

func (f *CallFrame) pop() Value {
	n := len(f.stack)
	if n == 0 {
		panic(stackUnderflow{})
	}
	v := f.stack[n-1]
	f.stack = f.stack[:n-1]
	return v
}

func (f *CallFrame) peek() Value {
	n := len(f.stack)
	if n == 0 {
		panic(stackUnderflow{})
	}
	return f.stack[n-1]
}

func (f *CallFrame) popInt() (int32, error) {
	return primitiveArg(f.pop())
}

// ---------------------------------------------------------------------------
// Machine: executes loaded units
// ---------------------------------------------------------------------------

// NativeFunc implements a method of a runtime support type.
type NativeFunc func(m *Machine, recv Value, args []Value) (Value, error)

// Machine is a reference interpreter for generated units. Runtime support
// types are implemented natively.
type Machine struct {
	MaxSteps int
	MaxDepth int

	classes map[string]*RuntimeClass
	natives map[string]NativeFunc
	out     *PrintStream
	steps   int
	depth   int
	nextID  int
}

// NewMachine creates a machine printing to out (os.Stdout when nil).
func NewMachine(out io.Writer) *Machine {
	if out == nil {
		out = os.Stdout
	}
	m := &Machine{
		MaxSteps: DefaultMaxSteps,
		MaxDepth: DefaultMaxDepth,
		classes:  make(map[string]*RuntimeClass),
		natives:  make(map[string]NativeFunc),
		out:      &PrintStream{w: out},
	}
	m.registerIntegerPrimitives()
	m.registerBooleanPrimitives()
	m.registerArrayPrimitives()
	m.registerFptrPrimitives()
	m.registerPrintPrimitives()
	return m
}

// RegisterNative installs the implementation of owner/name+descriptor.
func (m *Machine) RegisterNative(owner, name, descriptor string, fn NativeFunc) {
	m.natives[owner+"/"+name+descriptor] = fn
}

// Steps returns the number of instructions executed so far.
func (m *Machine) Steps() int {
	return m.steps
}

// Load verifies and links units. Superclasses must be loaded in the same
// call or earlier.
func (m *Machine) Load(units ...*Unit) error {
	var added []*RuntimeClass
	for _, u := range units {
		if _, dup := m.classes[u.Name]; dup {
			return fmt.Errorf("load %s: class already loaded", u.Name)
		}
		for _, meth := range u.Methods {
			if err := Verify(meth); err != nil {
				return fmt.Errorf("load %s: %w", u.Name, err)
			}
		}
		c := newRuntimeClass(u)
		m.classes[u.Name] = c
		added = append(added, c)
	}
	for _, c := range added {
		super := c.Unit.Super
		if super == "" || super == ClassObject {
			continue
		}
		parent, ok := m.classes[super]
		if !ok {
			return fmt.Errorf("load %s: %w: superclass %s", c.Name, ErrNoSuchClass, super)
		}
		c.Superclass = parent
	}
	for _, c := range added {
		seen := map[*RuntimeClass]bool{}
		for cls := c; cls != nil; cls = cls.Superclass {
			if seen[cls] {
				return fmt.Errorf("load %s: cyclic superclass chain", c.Name)
			}
			seen[cls] = true
		}
		log.Debugf("loaded class %s (%d methods)", c.Name, len(c.Unit.Methods))
	}
	return nil
}

// LoadText parses and loads units from assembler text.
func (m *Machine) LoadText(texts ...string) error {
	units := make([]*Unit, 0, len(texts))
	for _, text := range texts {
		u, err := ParseUnit(text)
		if err != nil {
			return err
		}
		units = append(units, u)
	}
	return m.Load(units...)
}

// Class returns a loaded class.
func (m *Machine) Class(name string) (*RuntimeClass, bool) {
	c, ok := m.classes[name]
	return c, ok
}

// Run executes the static main method of class.
func (m *Machine) Run(class string) error {
	c, ok := m.classes[class]
	if !ok {
		return fmt.Errorf("run: %w: %s", ErrNoSuchClass, class)
	}
	main := c.Unit.Method("main", "([Ljava/lang/String;)V")
	if main == nil || !main.Static {
		return fmt.Errorf("run: %w: %s.main", ErrNoSuchMethod, class)
	}
	log.Infof("running %s", class)
	_, err := m.invoke(c, main, nil, []Value{nil})
	return err
}

// NewInstance allocates an instance of class and runs the constructor that
// takes len(args) arguments.
func (m *Machine) NewInstance(class string, args ...Value) (*Object, error) {
	c, ok := m.classes[class]
	if !ok {
		return nil, fmt.Errorf("new: %w: %s", ErrNoSuchClass, class)
	}
	var ctor *Method
	for _, meth := range c.Unit.Methods {
		if meth.Name != "<init>" {
			continue
		}
		params, _, err := SplitDescriptor(meth.Descriptor)
		if err == nil && len(params) == len(args) {
			ctor = meth
			break
		}
	}
	if ctor == nil {
		return nil, fmt.Errorf("new %s: %w: no constructor with %d arguments", class, ErrNoSuchMethod, len(args))
	}
	obj := m.newObject(c)
	if _, err := m.invoke(c, ctor, obj, args); err != nil {
		return nil, err
	}
	return obj, nil
}

// Call invokes the method called name on recv.
func (m *Machine) Call(recv *Object, name string, args ...Value) (Value, error) {
	if recv == nil {
		return nil, fmt.Errorf("call %s: %w", name, ErrNullPointer)
	}
	cls, meth := recv.Class.LookupMethodByName(name)
	if meth == nil {
		return nil, fmt.Errorf("call: %w: %s.%s", ErrNoSuchMethod, recv.Class.Name, name)
	}
	return m.invoke(cls, meth, recv, args)
}

func (m *Machine) newObject(c *RuntimeClass) *Object {
	m.nextID++
	return &Object{Class: c, Fields: make(map[string]Value), id: m.nextID}
}

// invoke runs meth with a fresh frame.
func (m *Machine) invoke(cls *RuntimeClass, meth *Method, recv Value, args []Value) (Value, error) {
	if m.depth >= m.MaxDepth {
		return nil, &RuntimeError{Class: cls.Name, Method: meth.Name, Err: ErrStackOverflow}
	}
	m.depth++
	defer func() { m.depth-- }()

	first := 1
	if meth.Static {
		first = 0
	}
	size := meth.LocalsLimit
	if size < first+len(args) {
		size = first + len(args)
	}
	f := &CallFrame{Class: cls, Method: meth, Locals: make([]Value, size)}
	if !meth.Static {
		f.Locals[0] = recv
	}
	copy(f.Locals[first:], args)
	return m.execute(f)
}

// execute runs a frame to completion.
func (m *Machine) execute(f *CallFrame) (result Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(stackUnderflow); !ok {
				panic(r)
			}
			err = m.fault(f, fmt.Errorf("%w: operand stack underflow", ErrBadInstruction))
		}
	}()

	lines := f.Method.Lines
	for f.PC < len(lines) {
		line := lines[f.PC]
		if line.Kind != LineInstr {
			f.PC++
			continue
		}
		m.steps++
		if m.MaxSteps > 0 && m.steps > m.MaxSteps {
			return nil, m.fault(f, ErrStepLimit)
		}

		next := f.PC + 1
		done, jump, err := m.step(f, line.Instr)
		if err != nil {
			return nil, m.fault(f, err)
		}
		if done {
			if line.Instr.Op == OpAreturn {
				return f.pop(), nil
			}
			return nil, nil
		}
		if jump != "" {
			target, err := f.Class.label(f.Method, jump)
			if err != nil {
				return nil, m.fault(f, err)
			}
			next = target
		}
		f.PC = next
	}
	return nil, m.fault(f, fmt.Errorf("%w: fell off the end of the method", ErrBadInstruction))
}

// fault wraps err with the location of the current instruction. Errors
// raised in a nested call keep their own location.
func (m *Machine) fault(f *CallFrame, err error) error {
	var re *RuntimeError
	if errors.As(err, &re) {
		return err
	}
	instr := ""
	if f.PC < len(f.Method.Lines) {
		instr = f.Method.Lines[f.PC].Instr.String()
	}
	return &RuntimeError{Class: f.Class.Name, Method: f.Method.Name, PC: f.PC, Instr: instr, Err: err}
}

// step executes one instruction. It returns done for return instructions and
// the target label of a taken jump.
func (m *Machine) step(f *CallFrame, in Instr) (done bool, jump string, err error) {
	operand := func(i int) string {
		if i < len(in.Operands) {
			return in.Operands[i]
		}
		return ""
	}

	switch in.Op {
	// Constants
	case OpLdc:
		v := operand(0)
		if strings.HasPrefix(v, `"`) {
			s, err := Unquote(v)
			if err != nil {
				return false, "", err
			}
			f.push(s)
			break
		}
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			return false, "", fmt.Errorf("%w: ldc %s", ErrBadInstruction, v)
		}
		f.push(int32(n))
	case OpIconst0:
		f.push(int32(0))
	case OpIconst1:
		f.push(int32(1))
	case OpAconstNull:
		f.push(nil)

	// Stack
	case OpPop:
		f.pop()
	case OpDup:
		f.push(f.peek())
	case OpDupX1:
		v1, v2 := f.pop(), f.pop()
		f.push(v1)
		f.push(v2)
		f.push(v1)
	case OpDupX2:
		v1, v2, v3 := f.pop(), f.pop(), f.pop()
		f.push(v1)
		f.push(v3)
		f.push(v2)
		f.push(v1)
	case OpDup2:
		v1, v2 := f.pop(), f.pop()
		f.push(v2)
		f.push(v1)
		f.push(v2)
		f.push(v1)
	case OpSwap:
		v1, v2 := f.pop(), f.pop()
		f.push(v1)
		f.push(v2)

	// Slots
	case OpAload, OpIload, OpAstore, OpIstore, OpIinc:
		slot, err := strconv.Atoi(operand(0))
		if err != nil || slot < 0 || slot >= len(f.Locals) {
			return false, "", fmt.Errorf("%w: slot %q", ErrBadInstruction, operand(0))
		}
		switch in.Op {
		case OpAload, OpIload:
			f.push(f.Locals[slot])
		case OpAstore, OpIstore:
			f.Locals[slot] = f.pop()
		case OpIinc:
			delta, err := strconv.Atoi(operand(1))
			if err != nil {
				return false, "", fmt.Errorf("%w: iinc %q", ErrBadInstruction, operand(1))
			}
			cur, err := primitiveArg(f.Locals[slot])
			if err != nil {
				return false, "", err
			}
			f.Locals[slot] = cur + int32(delta)
		}

	// Arithmetic
	case OpIadd, OpIsub, OpImul, OpIdiv, OpIrem, OpIxor:
		b, err := f.popInt()
		if err != nil {
			return false, "", err
		}
		a, err := f.popInt()
		if err != nil {
			return false, "", err
		}
		r, err := arith(in.Op, a, b)
		if err != nil {
			return false, "", err
		}
		f.push(r)
	case OpIneg:
		a, err := f.popInt()
		if err != nil {
			return false, "", err
		}
		f.push(-a)

	// Control flow
	case OpGoto:
		return false, operand(0), nil
	case OpIfeq, OpIfne:
		v, err := f.popInt()
		if err != nil {
			return false, "", err
		}
		if (v == 0) == (in.Op == OpIfeq) {
			return false, operand(0), nil
		}
	case OpIfIcmpeq, OpIfIcmpne, OpIfIcmplt, OpIfIcmpgt, OpIfIcmpge, OpIfIcmple:
		b, err := f.popInt()
		if err != nil {
			return false, "", err
		}
		a, err := f.popInt()
		if err != nil {
			return false, "", err
		}
		if compare(in.Op, a, b) {
			return false, operand(0), nil
		}
	case OpIfAcmpeq, OpIfAcmpne:
		b, a := f.pop(), f.pop()
		if SameRef(a, b) == (in.Op == OpIfAcmpeq) {
			return false, operand(0), nil
		}
	case OpIfnull:
		if f.pop() == nil {
			return false, operand(0), nil
		}
	case OpReturn, OpAreturn:
		return true, "", nil

	// Objects
	case OpNew:
		v, err := m.allocate(operand(0))
		if err != nil {
			return false, "", err
		}
		f.push(v)
	case OpCheckcast:
		if v := f.peek(); !m.isInstance(v, operand(0)) {
			return false, "", castError(v, operand(0))
		}
	case OpGetfield, OpPutfield:
		slash := strings.LastIndexByte(operand(0), '/')
		if slash < 0 {
			return false, "", fmt.Errorf("%w: field %q", ErrBadInstruction, operand(0))
		}
		name := operand(0)[slash+1:]
		var v Value
		if in.Op == OpPutfield {
			v = f.pop()
		}
		obj, ok := f.pop().(*Object)
		if !ok || obj == nil {
			return false, "", throwf(ErrNullPointer, "field %s", name)
		}
		if !obj.Class.HasField(name) {
			return false, "", throwf(ErrBadInstruction, "no field %s in %s", name, obj.Class.Name)
		}
		if in.Op == OpPutfield {
			obj.Fields[name] = v
		} else {
			f.push(obj.Fields[name])
		}
	case OpGetstatic:
		if operand(0) != ClassSystem+"/out" {
			return false, "", fmt.Errorf("%w: getstatic %s", ErrBadInstruction, operand(0))
		}
		f.push(m.out)
	case OpInvokevirtual, OpInvokespecial, OpInvokestatic:
		return false, "", m.call(f, in.Op, operand(0))

	default:
		return false, "", fmt.Errorf("%w: unknown opcode %s", ErrBadInstruction, in.Op)
	}
	return false, "", nil
}

// call performs an invoke instruction on the frame's operand stack.
func (m *Machine) call(f *CallFrame, op Opcode, target string) error {
	owner, name, desc, err := SplitTarget(target)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadInstruction, err)
	}
	params, ret, err := SplitDescriptor(desc)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadInstruction, err)
	}
	args := make([]Value, len(params))
	for i := len(params) - 1; i >= 0; i-- {
		args[i] = f.pop()
	}
	var recv Value
	if op != OpInvokestatic {
		recv = f.pop()
	}

	result, err := m.dispatch(op, owner, name, desc, recv, args)
	if err != nil {
		return err
	}
	if ret != "V" {
		f.push(result)
	}
	return nil
}

func (m *Machine) dispatch(op Opcode, owner, name, desc string, recv Value, args []Value) (Value, error) {
	if op == OpInvokespecial && name == "<init>" && owner == ClassObject {
		return nil, nil
	}
	if cls, ok := m.classes[owner]; ok {
		switch op {
		case OpInvokestatic:
			meth := cls.Unit.Method(name, desc)
			if meth == nil || !meth.Static {
				return nil, throwf(ErrNoSuchMethod, "%s.%s%s", owner, name, desc)
			}
			return m.invoke(cls, meth, nil, args)
		case OpInvokespecial:
			impl, meth := cls.LookupMethod(name, desc)
			if meth == nil {
				return nil, throwf(ErrNoSuchMethod, "%s.%s%s", owner, name, desc)
			}
			return m.invoke(impl, meth, recv, args)
		}
	}
	if obj, ok := recv.(*Object); ok && op == OpInvokevirtual && obj != nil {
		impl, meth := obj.Class.LookupMethod(name, desc)
		if meth == nil {
			return nil, throwf(ErrNoSuchMethod, "%s.%s%s", obj.Class.Name, name, desc)
		}
		return m.invoke(impl, meth, obj, args)
	}
	fn, ok := m.natives[owner+"/"+name+desc]
	if !ok {
		return nil, throwf(ErrNoSuchMethod, "%s.%s%s", owner, name, desc)
	}
	if op != OpInvokestatic && recv == nil {
		return nil, throwf(ErrNullPointer, "%s.%s", owner, name)
	}
	return fn(m, recv, args)
}

func (m *Machine) allocate(class string) (Value, error) {
	switch class {
	case ClassArrayList:
		return &ArrayList{}, nil
	case ClassList:
		return &List{}, nil
	case ClassFptr:
		return &Fptr{}, nil
	}
	c, ok := m.classes[class]
	if !ok {
		return nil, throwf(ErrNoSuchClass, "%s", class)
	}
	return m.newObject(c), nil
}

func (m *Machine) isInstance(v Value, class string) bool {
	if v == nil || class == ClassObject {
		return true
	}
	switch x := v.(type) {
	case *Object:
		return x.Class.IsSubclassOf(class)
	case int32:
		return false
	}
	return RuntimeClassName(v) == class
}

func arith(op Opcode, a, b int32) (int32, error) {
	switch op {
	case OpIadd:
		return a + b, nil
	case OpIsub:
		return a - b, nil
	case OpImul:
		return a * b, nil
	case OpIxor:
		return a ^ b, nil
	case OpIdiv, OpIrem:
		if b == 0 {
			return 0, throwf(ErrArithmetic, "/ by zero")
		}
		if a == -1<<31 && b == -1 {
			// Overflow wraps as on the JVM.
			if op == OpIdiv {
				return a, nil
			}
			return 0, nil
		}
		if op == OpIdiv {
			return a / b, nil
		}
		return a % b, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrBadInstruction, op)
}

func compare(op Opcode, a, b int32) bool {
	switch op {
	case OpIfIcmpeq:
		return a == b
	case OpIfIcmpne:
		return a != b
	case OpIfIcmplt:
		return a < b
	case OpIfIcmpgt:
		return a > b
	case OpIfIcmpge:
		return a >= b
	case OpIfIcmple:
		return a <= b
	}
	return false
}
