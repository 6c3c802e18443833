package compiler

import (
	"bytes"
	"testing"

	"github.com/chazu/sophia/vm"
)

// ---------------------------------------------------------------------------
// AST builders for tests
// ---------------------------------------------------------------------------

func num(v int32) *IntLiteral        { return &IntLiteral{Value: v} }
func boolean(v bool) *BoolLiteral    { return &BoolLiteral{Value: v} }
func str(v string) *StringLiteral    { return &StringLiteral{Value: v} }
func null() *NullLiteral             { return &NullLiteral{} }
func ident(name string) *Identifier  { return &Identifier{Name: name} }
func this() *This                    { return &This{} }
func list(elems ...Expr) *ListLiteral { return &ListLiteral{Elements: elems} }

func bin(op BinaryOp, l, r Expr) *BinaryExpr {
	return &BinaryExpr{Op: op, Left: l, Right: r}
}

func unary(op UnaryOp, e Expr) *UnaryExpr {
	return &UnaryExpr{Op: op, Operand: e}
}

func member(inst Expr, name string) *MemberAccess {
	return &MemberAccess{Instance: inst, Member: name}
}

func index(inst, idx Expr) *IndexAccess {
	return &IndexAccess{Instance: inst, Index: idx}
}

func call(inst Expr, args ...Expr) *MethodCall {
	return &MethodCall{Instance: inst, Args: args}
}

func construct(class string, args ...Expr) *NewInstance {
	return &NewInstance{Class: class, Args: args}
}

func assign(target, value Expr) *AssignStmt {
	return &AssignStmt{Target: target, Value: value}
}

func printStmt(e Expr) *Print { return &Print{Arg: e} }
func ret(e Expr) *Return      { return &Return{Value: e} }
func exprStmt(e Expr) *ExprStmt {
	return &ExprStmt{Expr: e}
}
func callStmt(c *MethodCall) *CallStmt { return &CallStmt{Call: c} }
func block(stmts ...Stmt) *Block      { return &Block{Stmts: stmts} }

func ifStmt(cond Expr, then, els Stmt) *If {
	return &If{Cond: cond, Then: then, Else: els}
}

func forStmt(init Stmt, cond Expr, update Stmt, body Stmt) *For {
	return &For{Init: init, Cond: cond, Update: update, Body: body}
}

func decl(name string, t Type) *VarDecl {
	return &VarDecl{Name: name, Type: t}
}

func vars(decls ...*VarDecl) []*VarDecl { return decls }

func method(name string, ret Type, args, locals []*VarDecl, body ...Stmt) *MethodDecl {
	return &MethodDecl{Name: name, ReturnType: ret, Args: args, Locals: locals, Body: body}
}

func ctor(args, locals []*VarDecl, body ...Stmt) *MethodDecl {
	return &MethodDecl{Constructor: true, Args: args, Locals: locals, Body: body}
}

func class(name, parent string, fields []*VarDecl, methods ...*MethodDecl) *ClassDecl {
	return &ClassDecl{Name: name, Parent: parent, Fields: fields, Methods: methods}
}

// mainClass returns the entry class whose constructor runs body.
func mainClass(locals []*VarDecl, body ...Stmt) *ClassDecl {
	c := class("Main", "", nil)
	c.Constructor = ctor(nil, locals, body...)
	return c
}

func program(classes ...*ClassDecl) *Program {
	return &Program{Classes: classes}
}

// ---------------------------------------------------------------------------
// Pipeline helpers
// ---------------------------------------------------------------------------

// compileProgram resolves and compiles prog into memory.
func compileProgram(t *testing.T, prog *Program) ([]*vm.Unit, *MemorySink) {
	t.Helper()
	if _, err := Resolve(prog); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	sink := NewMemorySink()
	units, err := Compile(prog, DefaultOptions(), sink)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	return units, sink
}

// runProgram compiles prog, loads the emitted unit text into a machine and
// runs Main. It returns everything printed.
func runProgram(t *testing.T, prog *Program) string {
	t.Helper()
	_, sink := compileProgram(t, prog)

	var out bytes.Buffer
	m := vm.NewMachine(&out)
	texts := make([]string, 0, len(sink.Units))
	for _, name := range sink.Classes() {
		texts = append(texts, sink.Units[name])
	}
	if err := m.LoadText(texts...); err != nil {
		t.Fatalf("LoadText failed: %v", err)
	}
	if err := m.Run("Main"); err != nil {
		t.Fatalf("Run failed: %v\noutput so far:\n%s", err, out.String())
	}
	return out.String()
}

func findMethod(t *testing.T, units []*vm.Unit, class, name string) *vm.Method {
	t.Helper()
	for _, u := range units {
		if u.Name != class {
			continue
		}
		if m := u.Method(name, ""); m != nil {
			return m
		}
	}
	t.Fatalf("method %s.%s not found", class, name)
	return nil
}

func instrStrings(m *vm.Method) []string {
	var out []string
	for _, in := range m.Instrs() {
		out = append(out, in.String())
	}
	return out
}
