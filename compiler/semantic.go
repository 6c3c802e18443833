package compiler

import (
	"errors"
	"fmt"
)

// ---------------------------------------------------------------------------
// Resolver: fills in expression types for code generation
// ---------------------------------------------------------------------------

// Resolver decorates an AST with the information the code generator reads:
// a static type on every expression and the DoesReturn flag of every method.
// It rejects programs it cannot type but is not a full type checker.
type Resolver struct {
	errors []string

	table  *ClassTable
	class  *ClassDecl
	method *MethodDecl
	scope  map[string]Type
	loops  int
}

// NewResolver creates a resolver for prog.
func NewResolver(prog *Program) *Resolver {
	return &Resolver{table: NewClassTable(prog)}
}

// Resolve types every expression of prog and returns its class table.
func Resolve(prog *Program) (*ClassTable, error) {
	r := NewResolver(prog)
	r.ResolveProgram(prog)
	if len(r.errors) > 0 {
		errs := make([]error, len(r.errors))
		for i, e := range r.errors {
			errs[i] = errors.New(e)
		}
		return nil, fmt.Errorf("resolve: %w", errors.Join(errs...))
	}
	return r.table, nil
}

// Errors returns accumulated resolution errors.
func (r *Resolver) Errors() []string {
	return r.errors
}

// errorAt records an error with position information.
func (r *Resolver) errorAt(node Node, format string, args ...interface{}) {
	pos := node.Span().Start
	msg := fmt.Sprintf("line %d, column %d: %s", pos.Line, pos.Column, fmt.Sprintf(format, args...))
	r.errors = append(r.errors, msg)
}

// ResolveProgram resolves every class of prog.
func (r *Resolver) ResolveProgram(prog *Program) {
	seen := make(map[string]bool)
	for _, c := range prog.Classes {
		if seen[c.Name] {
			r.errorAt(c, "class %s declared twice", c.Name)
		}
		seen[c.Name] = true
	}
	for _, c := range prog.Classes {
		if c.Parent != "" && !r.table.Hierarchy().Contains(c.Parent) {
			r.errorAt(c, "class %s: unknown parent %s", c.Name, c.Parent)
			continue
		}
		if _, err := r.table.Hierarchy().Ancestors(c.Name); err != nil {
			r.errorAt(c, "class %s: %v", c.Name, err)
		}
	}
	if len(r.errors) > 0 {
		return
	}
	for _, c := range prog.Classes {
		r.ResolveClass(c)
	}
}

// ResolveClass resolves the constructor and methods of c.
func (r *Resolver) ResolveClass(c *ClassDecl) {
	r.class = c
	if c.Constructor != nil {
		c.Constructor.Constructor = true
		r.resolveMethod(c.Constructor)
	}
	for _, m := range c.Methods {
		r.resolveMethod(m)
	}
	r.class = nil
}

func (r *Resolver) resolveMethod(m *MethodDecl) {
	r.method = m
	r.loops = 0
	r.scope = make(map[string]Type)
	for _, a := range m.Args {
		r.declare(a)
	}
	for _, l := range m.Locals {
		r.declare(l)
	}
	for _, s := range m.Body {
		r.stmt(s)
	}
	m.DoesReturn = allPathsReturn(m.Body)
	r.method = nil
}

func (r *Resolver) declare(v *VarDecl) {
	if _, dup := r.scope[v.Name]; dup {
		r.errorAt(v, "%s declared twice", v.Name)
	}
	if v.Type == nil {
		r.errorAt(v, "%s has no type", v.Name)
	}
	r.scope[v.Name] = v.Type
}

// allPathsReturn reports whether every path through stmts ends in a return.
func allPathsReturn(stmts []Stmt) bool {
	if len(stmts) == 0 {
		return false
	}
	switch s := stmts[len(stmts)-1].(type) {
	case *Return:
		return true
	case *Block:
		return allPathsReturn(s.Stmts)
	case *If:
		return s.Then != nil && s.Else != nil &&
			allPathsReturn([]Stmt{s.Then}) && allPathsReturn([]Stmt{s.Else})
	}
	return false
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (r *Resolver) stmt(s Stmt) {
	switch s := s.(type) {
	case nil:
	case *Block:
		for _, st := range s.Stmts {
			r.stmt(st)
		}
	case *If:
		r.expect(s.Cond, Bool)
		r.stmt(s.Then)
		r.stmt(s.Else)
	case *For:
		r.stmt(s.Init)
		if s.Cond != nil {
			r.expect(s.Cond, Bool)
		}
		r.stmt(s.Update)
		r.loops++
		r.stmt(s.Body)
		r.loops--
	case *Foreach:
		lt := r.expr(s.List)
		vt := r.expr(s.Var)
		if list, ok := lt.(*ListType); ok && vt != nil {
			for _, el := range list.Elements {
				if !SameType(el.Type, vt) {
					r.errorAt(s, "foreach over %s binds %s: element type %s", list, vt, el.Type)
					break
				}
			}
		} else if lt != nil {
			r.errorAt(s, "foreach over non-list %s", lt)
		}
		r.loops++
		r.stmt(s.Body)
		r.loops--
	case *Break:
		if r.loops == 0 {
			r.errorAt(s, "break outside a loop")
		}
	case *Continue:
		if r.loops == 0 {
			r.errorAt(s, "continue outside a loop")
		}
	case *Return:
		void := r.method.Constructor || IsVoid(r.method.ReturnType)
		switch {
		case void && s.Value != nil:
			r.errorAt(s, "return with a value in a method without one")
		case !void && s.Value == nil:
			r.errorAt(s, "return without a value")
		case !void:
			r.expect(s.Value, r.method.ReturnType)
		}
	case *Print:
		r.expr(s.Arg)
	case *CallStmt:
		r.expr(s.Call)
	case *AssignStmt:
		tt := r.target(s.Target)
		if tt != nil {
			r.expect(s.Value, tt)
		} else {
			r.expr(s.Value)
		}
	case *VarDeclStmt:
		if _, ok := r.scope[s.Decl.Name]; !ok {
			r.errorAt(s, "%s is not a local of this method", s.Decl.Name)
		}
	case *ExprStmt:
		r.expr(s.Expr)
	default:
		r.errorAt(s, "unknown statement %T", s)
	}
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// expect resolves e and checks it is assignable to want.
func (r *Resolver) expect(e Expr, want Type) {
	got := r.expr(e)
	if got == nil || want == nil {
		return
	}
	if !r.assignable(got, want) {
		r.errorAt(e, "expected %s, got %s", want, got)
	}
}

func (r *Resolver) assignable(got, want Type) bool {
	if SameType(got, want) {
		return true
	}
	if _, ok := got.(NullType); ok {
		switch want.(type) {
		case ClassType, *FptrType, *ListType, StringType:
			return true
		}
		return false
	}
	g, ok1 := got.(ClassType)
	w, ok2 := want.(ClassType)
	return ok1 && ok2 && r.table.Hierarchy().IsSubclass(g.Name, w.Name)
}

// target resolves an assignment or inc/dec target.
func (r *Resolver) target(e Expr) Type {
	switch e.(type) {
	case *Identifier, *MemberAccess, *IndexAccess:
		t := r.expr(e)
		if ma, ok := e.(*MemberAccess); ok {
			if _, isFptr := t.(*FptrType); isFptr && r.isMethodAccess(ma) {
				r.errorAt(e, "cannot assign to method %s", ma.Member)
				return nil
			}
		}
		return t
	}
	r.errorAt(e, "cannot assign to %T", e)
	r.expr(e)
	return nil
}

func (r *Resolver) isMethodAccess(ma *MemberAccess) bool {
	ct, ok := ma.Instance.Type().(ClassType)
	if !ok {
		return false
	}
	mem, err := r.table.LookupMember(ct.Name, ma.Member)
	return err == nil && mem.Kind == MemberMethod
}

func (r *Resolver) expr(e Expr) Type {
	t := r.exprType(e)
	if t != nil {
		e.SetType(t)
	}
	return t
}

func (r *Resolver) exprType(e Expr) Type {
	switch e := e.(type) {
	case *IntLiteral:
		return Int
	case *BoolLiteral:
		return Bool
	case *StringLiteral:
		return String
	case *NullLiteral:
		return Null
	case *ListLiteral:
		elems := make([]ListElement, len(e.Elements))
		declared, _ := e.Type().(*ListType)
		if declared != nil && len(declared.Elements) != len(e.Elements) {
			r.errorAt(e, "list literal has %d elements, type %s", len(e.Elements), declared)
			declared = nil
		}
		for i, el := range e.Elements {
			elems[i].Type = r.expr(el)
			if declared != nil {
				elems[i].Name = declared.Elements[i].Name
				if elems[i].Type != nil && !r.assignable(elems[i].Type, declared.Elements[i].Type) {
					r.errorAt(el, "element %d: expected %s, got %s", i, declared.Elements[i].Type, elems[i].Type)
				}
				elems[i].Type = declared.Elements[i].Type
			}
		}
		return List(elems...)
	case *Identifier:
		t, ok := r.scope[e.Name]
		if !ok {
			r.errorAt(e, "%v: %s", ErrUnresolvedName, e.Name)
			return nil
		}
		return t
	case *This:
		return Class(r.class.Name)
	case *BinaryExpr:
		return r.binary(e)
	case *UnaryExpr:
		switch {
		case e.Op.IsIncDec():
			if t := r.target(e.Operand); t != nil && !SameType(t, Int) {
				r.errorAt(e, "%s on %s", e.Op, t)
			}
			return Int
		case e.Op == OpNot:
			r.expect(e.Operand, Bool)
			return Bool
		default:
			r.expect(e.Operand, Int)
			return Int
		}
	case *MemberAccess:
		return r.member(e)
	case *IndexAccess:
		return r.index(e)
	case *MethodCall:
		ft, ok := r.expr(e.Instance).(*FptrType)
		if !ok {
			r.errorAt(e, "call of non-function %s", typeString(e.Instance.Type()))
			for _, a := range e.Args {
				r.expr(a)
			}
			return nil
		}
		if len(ft.Params) != len(e.Args) {
			r.errorAt(e, "call with %d arguments, want %d", len(e.Args), len(ft.Params))
		}
		for i, a := range e.Args {
			if i < len(ft.Params) {
				r.expect(a, ft.Params[i])
			} else {
				r.expr(a)
			}
		}
		if ft.Return == nil {
			return Null
		}
		return ft.Return
	case *NewInstance:
		ctor, err := r.table.Constructor(e.Class)
		if err != nil {
			r.errorAt(e, "%v", err)
			return nil
		}
		var params []*VarDecl
		if ctor != nil {
			params = ctor.Args
		}
		if len(e.Args) != len(params) && len(e.Args) != 0 {
			r.errorAt(e, "new %s with %d arguments, want %d", e.Class, len(e.Args), len(params))
		}
		for i, a := range e.Args {
			if i < len(params) {
				r.expect(a, params[i].Type)
			} else {
				r.expr(a)
			}
		}
		return Class(e.Class)
	}
	r.errorAt(e, "unknown expression %T", e)
	return nil
}

func (r *Resolver) binary(e *BinaryExpr) Type {
	switch e.Op {
	case OpAdd, OpSub, OpMul, OpDiv, OpMod:
		r.expect(e.Left, Int)
		r.expect(e.Right, Int)
		return Int
	case OpLt, OpGt:
		r.expect(e.Left, Int)
		r.expect(e.Right, Int)
		return Bool
	case OpEq, OpNeq:
		lt, rt := r.expr(e.Left), r.expr(e.Right)
		if lt != nil && rt != nil && IsPrimitive(lt) != IsPrimitive(rt) {
			r.errorAt(e, "comparing %s with %s", lt, rt)
		}
		return Bool
	case OpAnd, OpOr:
		r.expect(e.Left, Bool)
		r.expect(e.Right, Bool)
		return Bool
	case OpAssign:
		tt := r.target(e.Left)
		if tt == nil {
			r.expr(e.Right)
			return nil
		}
		r.expect(e.Right, tt)
		return tt
	}
	r.errorAt(e, "unknown operator %s", e.Op)
	return nil
}

func (r *Resolver) member(e *MemberAccess) Type {
	switch it := r.expr(e.Instance).(type) {
	case ClassType:
		mem, err := r.table.LookupMember(it.Name, e.Member)
		if err != nil {
			r.errorAt(e, "%v", err)
			return nil
		}
		if mem.Kind == MemberAbsent {
			r.errorAt(e, "%v: %s.%s", ErrUnknownMember, it.Name, e.Member)
			return nil
		}
		return mem.Type
	case *ListType:
		i, ok := it.ElementIndex(e.Member)
		if !ok {
			r.errorAt(e, "%v: %s has no element %s", ErrUnknownMember, it, e.Member)
			return nil
		}
		return it.Elements[i].Type
	case nil:
		return nil
	default:
		r.errorAt(e, "member access on %s", it)
		return nil
	}
}

func (r *Resolver) index(e *IndexAccess) Type {
	it := r.expr(e.Instance)
	r.expect(e.Index, Int)
	list, ok := it.(*ListType)
	if !ok {
		if it != nil {
			r.errorAt(e, "indexing non-list %s", it)
		}
		return nil
	}
	if lit, ok := e.Index.(*IntLiteral); ok {
		if lit.Value < 0 || int(lit.Value) >= len(list.Elements) {
			r.errorAt(e, "index %d out of range for %s", lit.Value, list)
			return nil
		}
		return list.Elements[lit.Value].Type
	}
	t, ok := list.CommonElementType()
	if !ok {
		r.errorAt(e, "non-constant index into mixed list %s", list)
		return nil
	}
	return t
}
