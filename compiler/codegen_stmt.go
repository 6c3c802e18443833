package compiler

import (
	"strconv"

	"github.com/chazu/sophia/vm"
)

// Label prefixes.
const (
	labelElse        = "else"
	labelAfter       = "after"
	labelLoop        = "loop"
	labelLoopCont    = "loop_cont"
	labelLoopEnd     = "loop_end"
	labelForeach     = "foreach"
	labelForeachCont = "foreach_cont"
	labelForeachEnd  = "foreach_end"
)

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (c *Compiler) compileStatements(stmts []Stmt) {
	for _, s := range stmts {
		c.compileStmt(s)
	}
}

func (c *Compiler) compileStmt(s Stmt) {
	switch s := s.(type) {
	case nil:
	case *Block:
		c.compileStatements(s.Stmts)
	case *If:
		c.compileIf(s)
	case *For:
		c.compileFor(s)
	case *Foreach:
		c.compileForeach(s)
	case *Break:
		target, err := c.loops.breakTarget()
		if err != nil {
			c.errorf("%w", err)
			return
		}
		c.out.EmitJump(vm.OpGoto, target)
	case *Continue:
		target, err := c.loops.continueTarget()
		if err != nil {
			c.errorf("%w", err)
			return
		}
		c.out.EmitJump(vm.OpGoto, target)
	case *Return:
		if s.Value == nil || c.method.Constructor || IsVoid(c.method.ReturnType) {
			c.out.Emit(vm.OpReturn)
			return
		}
		c.compileBoxed(s.Value)
		c.out.Emit(vm.OpAreturn)
	case *Print:
		c.compilePrint(s)
	case *CallStmt:
		c.compileCall(s.Call)
		c.out.Emit(vm.OpPop)
	case *AssignStmt:
		c.compileAssign(s.Target, s.Value, false)
	case *VarDeclStmt:
		slot, err := c.slots.Of(s.Decl.Name)
		if err != nil {
			c.errorf("%w", err)
			return
		}
		c.compileDefault(s.Decl.Type)
		c.out.EmitSlot(vm.OpAstore, slot)
	case *ExprStmt:
		c.compileEffect(s.Expr)
	default:
		c.errorf("unsupported statement %T", s)
	}
}

// compileEffect evaluates e for its side effects only.
func (c *Compiler) compileEffect(e Expr) {
	switch e := e.(type) {
	case *BinaryExpr:
		if e.Op == OpAssign {
			c.compileAssign(e.Left, e.Right, false)
			return
		}
	case *UnaryExpr:
		if e.Op.IsIncDec() {
			c.compileIncDec(e, false)
			return
		}
	}
	c.compileExpr(e)
	c.out.Emit(vm.OpPop)
}

func (c *Compiler) compileIf(s *If) {
	n := c.newLabel()
	elseLabel, afterLabel := Label(labelElse, n), Label(labelAfter, n)
	c.compileExpr(s.Cond)
	c.out.EmitJump(vm.OpIfeq, elseLabel)
	c.compileStmt(s.Then)
	c.out.EmitJump(vm.OpGoto, afterLabel)
	c.out.Mark(elseLabel)
	c.compileStmt(s.Else)
	c.out.Mark(afterLabel)
}

func (c *Compiler) compileFor(s *For) {
	c.compileStmt(s.Init)

	n := c.newLabel()
	start, cont, end := Label(labelLoop, n), Label(labelLoopCont, n), Label(labelLoopEnd, n)
	c.loops.push(end, cont)
	defer c.loops.pop()

	c.out.Mark(start)
	if s.Cond != nil {
		c.compileExpr(s.Cond)
		c.out.EmitJump(vm.OpIfeq, end)
	}
	c.compileStmt(s.Body)
	c.out.Mark(cont)
	c.compileStmt(s.Update)
	c.out.EmitJump(vm.OpGoto, start)
	c.out.Mark(end)
}

// compileForeach binds the loop variable to each element of the list in
// declaration order.
func (c *Compiler) compileForeach(s *Foreach) {
	slot, err := c.slots.Of(s.Var.Name)
	if err != nil {
		c.errorf("foreach: %w", err)
		return
	}
	list, index := c.slots.Temp(), c.slots.Temp()
	c.compileExpr(s.List)
	c.out.EmitSlot(vm.OpAstore, list)
	c.out.Emit(vm.OpIconst0)
	c.out.EmitSlot(vm.OpIstore, index)

	n := c.newLabel()
	start, cont, end := Label(labelForeach, n), Label(labelForeachCont, n), Label(labelForeachEnd, n)
	c.loops.push(end, cont)
	defer c.loops.pop()

	c.out.Mark(start)
	c.out.EmitSlot(vm.OpIload, index)
	c.out.EmitSlot(vm.OpAload, list)
	c.out.EmitInvoke(vm.OpInvokevirtual, vm.ClassList, "getSize", "()I")
	c.out.EmitJump(vm.OpIfIcmpge, end)
	c.out.EmitSlot(vm.OpAload, list)
	c.out.EmitSlot(vm.OpIload, index)
	c.out.EmitInvoke(vm.OpInvokevirtual, vm.ClassList, "getElement", "(I)Ljava/lang/Object;")
	if err := Checkcast(c.out, s.Var.Type()); err != nil {
		c.errorf("foreach: %w", err)
	}
	c.out.EmitSlot(vm.OpAstore, slot)
	c.compileStmt(s.Body)
	c.out.Mark(cont)
	c.out.Emit(vm.OpIinc, strconv.Itoa(index), "1")
	c.out.EmitJump(vm.OpGoto, start)
	c.out.Mark(end)
}

func (c *Compiler) compilePrint(s *Print) {
	c.out.EmitField(vm.OpGetstatic, vm.ClassSystem, "out", "Ljava/io/PrintStream;")
	c.compileExpr(s.Arg)
	var sig string
	switch s.Arg.Type().(type) {
	case IntType:
		sig = "I"
	case BoolType:
		sig = "Z"
	case StringType:
		sig = "Ljava/lang/String;"
	default:
		sig = "Ljava/lang/Object;"
	}
	c.out.EmitInvoke(vm.OpInvokevirtual, vm.ClassPrintStream, "println", vm.Descriptor("V", sig))
}
