package compiler

import (
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"

	"github.com/chazu/sophia/vm"
)

var log = commonlog.GetLogger("sophia.compiler")

// ---------------------------------------------------------------------------
// Codegen: Lower typed AST to assembler units
// ---------------------------------------------------------------------------

// Options controls code generation.
type Options struct {
	EntryClass string // receives the static main method
	RootClass  string // implicit parent of classes without one
	StackLimit int    // .limit stack of every method
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{
		EntryClass: "Main",
		RootClass:  vm.ClassObject,
		StackLimit: 128,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.EntryClass == "" {
		o.EntryClass = d.EntryClass
	}
	if o.RootClass == "" {
		o.RootClass = d.RootClass
	}
	if o.StackLimit <= 0 {
		o.StackLimit = d.StackLimit
	}
	return o
}

// Session owns the state shared by every method of one compilation: the
// options, the class table and the program-wide label sequence.
type Session struct {
	ID      uuid.UUID
	Options Options
	Labels  Labels

	table *ClassTable
}

// NewSession starts a compilation over table.
func NewSession(table *ClassTable, opts Options) *Session {
	return &Session{
		ID:      uuid.New(),
		Options: opts.withDefaults(),
		table:   table,
	}
}

// Compile lowers every class of a resolved program, in declaration order,
// and writes one unit per class to sink (which may be nil). A class whose
// lowering fails is aborted and left out of the result; the errors of all
// failed classes are joined.
func Compile(prog *Program, opts Options, sink Sink) ([]*vm.Unit, error) {
	s := NewSession(NewClassTable(prog), opts)
	return s.CompileProgram(prog, sink)
}

// CompileProgram lowers every class of prog.
func (s *Session) CompileProgram(prog *Program, sink Sink) ([]*vm.Unit, error) {
	var units []*vm.Unit
	var errs []error
	for _, c := range prog.Classes {
		u, err := s.CompileClass(c, sink)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		units = append(units, u)
	}
	log.Infof("session %s: compiled %d of %d classes, %d labels",
		s.ID, len(units), len(prog.Classes), s.Labels.Count())
	return units, errors.Join(errs...)
}

// CompileClass lowers one class and streams it to sink.
func (s *Session) CompileClass(c *ClassDecl, sink Sink) (u *vm.Unit, err error) {
	log.Debugf("compiling class %s", c.Name)
	u = &vm.Unit{Name: c.Name, Super: c.Parent}
	if u.Super == "" {
		u.Super = s.Options.RootClass
	}

	uw := vm.NewUnitWriter(io.Discard)
	if sink != nil {
		w, oerr := sink.Open(c.Name)
		if oerr != nil {
			return nil, fmt.Errorf("class %s: %w", c.Name, oerr)
		}
		defer func() {
			cerr := w.Close()
			if err == nil && cerr != nil {
				err = fmt.Errorf("class %s: %w", c.Name, cerr)
			}
			if err != nil {
				if aerr := sink.Abort(c.Name); aerr != nil {
					err = errors.Join(err, aerr)
				}
				u = nil
			}
		}()
		uw = vm.NewUnitWriter(w)
	}

	if err := uw.Header(u.Name, u.Super); err != nil {
		return nil, fmt.Errorf("class %s: %w", c.Name, err)
	}
	for _, f := range c.Fields {
		sig, err := Signature(f.Type)
		if err != nil {
			return nil, fmt.Errorf("class %s: field %s: %w", c.Name, f.Name, err)
		}
		field := vm.Field{Name: f.Name, Descriptor: sig}
		if err := uw.Field(field); err != nil {
			return nil, fmt.Errorf("class %s: %w", c.Name, err)
		}
		u.Fields = append(u.Fields, field)
	}

	emit := func(m *vm.Method, err error) error {
		if err != nil {
			return fmt.Errorf("class %s: %w", c.Name, err)
		}
		if err := uw.Method(m); err != nil {
			return fmt.Errorf("class %s: %w", c.Name, err)
		}
		u.Methods = append(u.Methods, m)
		return nil
	}

	if c.Constructor == nil || len(c.Constructor.Args) > 0 {
		if err := emit(s.defaultConstructor(c)); err != nil {
			return nil, err
		}
	}
	if c.Constructor != nil {
		if err := emit(s.newCompiler(c, c.Constructor).compileMethod()); err != nil {
			return nil, err
		}
	}
	for _, m := range c.Methods {
		if err := emit(s.newCompiler(c, m).compileMethod()); err != nil {
			return nil, err
		}
	}
	if c.Name == s.Options.EntryClass {
		if err := emit(s.entryPoint(c), nil); err != nil {
			return nil, err
		}
	}
	return u, nil
}

// defaultConstructor synthesizes <init>()V: call the parent constructor and
// initialise every field to its default value.
func (s *Session) defaultConstructor(class *ClassDecl) (*vm.Method, error) {
	c := s.newCompiler(class, &MethodDecl{Constructor: true, DoesReturn: false})
	c.out = vm.NewMethod("<init>", "()V")
	c.prologue()
	c.out.Emit(vm.OpReturn)
	return c.finish()
}

// entryPoint synthesizes the static main method of the entry class.
func (s *Session) entryPoint(class *ClassDecl) *vm.Method {
	m := vm.NewMethod("main", "([Ljava/lang/String;)V")
	m.Static = true
	m.Emit(vm.OpNew, class.Name)
	m.Emit(vm.OpDup)
	m.EmitInvoke(vm.OpInvokespecial, class.Name, "<init>", "()V")
	m.Emit(vm.OpPop)
	m.Emit(vm.OpReturn)
	m.StackLimit = s.Options.StackLimit
	m.LocalsLimit = 1
	return m
}

// ---------------------------------------------------------------------------
// Compiler: per-method lowering state
// ---------------------------------------------------------------------------

// Compiler lowers one method. It is discarded when the method is done; only
// the session outlives it.
type Compiler struct {
	session *Session
	class   *ClassDecl
	method  *MethodDecl
	slots   *Slots
	loops   loopLabels
	out     *vm.Method
	errors  []error
}

func (s *Session) newCompiler(class *ClassDecl, method *MethodDecl) *Compiler {
	return &Compiler{
		session: s,
		class:   class,
		method:  method,
		slots:   NewSlots(method),
	}
}

// errorf records a compilation error. Wrapped sentinels stay matchable with
// errors.Is.
func (c *Compiler) errorf(format string, args ...interface{}) {
	c.errors = append(c.errors, fmt.Errorf(format, args...))
}

// Errors returns the errors recorded for this method.
func (c *Compiler) Errors() []error {
	return c.errors
}

func (c *Compiler) methodName() string {
	if c.method.Constructor {
		return "<init>"
	}
	return c.method.Name
}

// newLabel returns the next program-wide label suffix.
func (c *Compiler) newLabel() int {
	return c.session.Labels.New()
}

// compileMethod lowers a declared method or explicit constructor.
func (c *Compiler) compileMethod() (*vm.Method, error) {
	desc, err := MethodDescriptor(c.method)
	if err != nil {
		return nil, fmt.Errorf("%s.%s: %w", c.class.Name, c.methodName(), err)
	}
	log.Debugf("compiling %s.%s%s", c.class.Name, c.methodName(), desc)
	c.out = vm.NewMethod(c.methodName(), desc)

	if c.method.Constructor {
		c.prologue()
	}
	for _, l := range c.method.Locals {
		if slot, err := c.slots.Of(l.Name); err == nil {
			c.compileDefault(l.Type)
			c.out.EmitSlot(vm.OpAstore, slot)
		}
	}
	c.compileStatements(c.method.Body)

	if !c.method.DoesReturn || !c.out.EndsWithTerminator() {
		if c.method.Constructor || IsVoid(c.method.ReturnType) {
			c.out.Emit(vm.OpReturn)
		} else {
			c.out.Emit(vm.OpAconstNull)
			c.out.Emit(vm.OpAreturn)
		}
	}
	return c.finish()
}

// prologue calls the parent's zero-argument constructor and initialises the
// fields declared by the class.
func (c *Compiler) prologue() {
	parent := c.class.Parent
	if parent == "" {
		parent = c.session.Options.RootClass
	}
	c.out.EmitSlot(vm.OpAload, 0)
	c.out.EmitInvoke(vm.OpInvokespecial, parent, "<init>", "()V")
	for _, f := range c.class.Fields {
		sig, err := Signature(f.Type)
		if err != nil {
			c.errorf("field %s: %w", f.Name, err)
			continue
		}
		c.out.EmitSlot(vm.OpAload, 0)
		c.compileDefault(f.Type)
		c.out.EmitField(vm.OpPutfield, c.class.Name, f.Name, sig)
	}
}

// finish sets the method limits, or reports the accumulated errors.
func (c *Compiler) finish() (*vm.Method, error) {
	if len(c.errors) > 0 {
		return nil, fmt.Errorf("%s.%s: %w", c.class.Name, c.methodName(), errors.Join(c.errors...))
	}
	c.out.StackLimit = c.session.Options.StackLimit
	c.out.LocalsLimit = c.slots.Limit()
	return c.out, nil
}

// compileDefault pushes the boxed default value of t.
func (c *Compiler) compileDefault(t Type) {
	switch t := t.(type) {
	case IntType, BoolType:
		c.out.Emit(vm.OpIconst0)
		Box(c.out, t)
	case StringType:
		c.out.EmitString("")
	case ClassType, *FptrType:
		c.out.Emit(vm.OpAconstNull)
	case *ListType:
		c.compileList(len(t.Elements), func(i int) {
			c.compileDefault(t.Elements[i].Type)
		})
	default:
		c.errorf("default value: %w: %s", ErrUnsupportedType, typeString(t))
		c.out.Emit(vm.OpAconstNull)
	}
}

// compileList builds a List from n boxed values pushed by elem.
func (c *Compiler) compileList(n int, elem func(i int)) {
	tmp := c.slots.Temp()
	c.out.Emit(vm.OpNew, vm.ClassArrayList)
	c.out.Emit(vm.OpDup)
	c.out.EmitInvoke(vm.OpInvokespecial, vm.ClassArrayList, "<init>", "()V")
	c.out.EmitSlot(vm.OpAstore, tmp)
	for i := 0; i < n; i++ {
		c.out.EmitSlot(vm.OpAload, tmp)
		elem(i)
		c.out.EmitInvoke(vm.OpInvokevirtual, vm.ClassArrayList, "add", "(Ljava/lang/Object;)Z")
		c.out.Emit(vm.OpPop)
	}
	c.out.Emit(vm.OpNew, vm.ClassList)
	c.out.Emit(vm.OpDup)
	c.out.EmitSlot(vm.OpAload, tmp)
	c.out.EmitInvoke(vm.OpInvokespecial, vm.ClassList, "<init>", "(Ljava/util/ArrayList;)V")
}
