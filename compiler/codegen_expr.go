package compiler

import (
	"github.com/chazu/sophia/vm"
)

// Label prefixes.
const (
	labelCmpTrue  = "cmp_true"
	labelCmpEnd   = "cmp_end"
	labelScSkip   = "sc_skip"
	labelScEnd    = "sc_end"
	labelCopyNull = "copy_null"
)

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// compileExpr pushes the value of e. Int and bool values are left unboxed;
// every other value is a reference.
func (c *Compiler) compileExpr(e Expr) {
	switch e := e.(type) {
	case *IntLiteral:
		c.out.EmitInt(e.Value)
	case *BoolLiteral:
		c.out.EmitBool(e.Value)
	case *StringLiteral:
		c.out.EmitString(e.Value)
	case *NullLiteral:
		c.out.Emit(vm.OpAconstNull)
	case *ListLiteral:
		c.compileList(len(e.Elements), func(i int) {
			c.compileBoxed(e.Elements[i])
		})
	case *Identifier:
		slot, err := c.slots.Of(e.Name)
		if err != nil {
			c.errorf("%w", err)
			c.out.Emit(vm.OpAconstNull)
			return
		}
		c.out.EmitSlot(vm.OpAload, slot)
		Unbox(c.out, e.Type())
	case *This:
		c.out.EmitSlot(vm.OpAload, 0)
	case *BinaryExpr:
		c.compileBinary(e)
	case *UnaryExpr:
		c.compileUnary(e, true)
	case *MemberAccess:
		c.compileMember(e)
	case *IndexAccess:
		c.compileExpr(e.Instance)
		c.compileExpr(e.Index)
		c.getElement(e.Type())
	case *MethodCall:
		c.compileCall(e)
	case *NewInstance:
		c.compileNew(e)
	default:
		c.errorf("unsupported expression %T", e)
		c.out.Emit(vm.OpAconstNull)
	}
}

// compileBoxed pushes the value of e as a reference.
func (c *Compiler) compileBoxed(e Expr) {
	c.compileExpr(e)
	Box(c.out, e.Type())
}

// compileCopy pushes e, copying list values so the result shares no storage
// with its source. A null list stays null.
func (c *Compiler) compileCopy(e Expr, t Type) {
	if _, ok := t.(*ListType); !ok {
		c.compileExpr(e)
		return
	}
	c.compileExpr(e)
	if _, ok := e.(*NullLiteral); ok {
		return
	}
	skip := Label(labelCopyNull, c.newLabel())
	c.out.Emit(vm.OpDup)
	c.out.EmitJump(vm.OpIfnull, skip)
	c.out.Emit(vm.OpNew, vm.ClassList)
	c.out.Emit(vm.OpDupX1)
	c.out.Emit(vm.OpSwap)
	c.out.EmitInvoke(vm.OpInvokespecial, vm.ClassList, "<init>", "(LList;)V")
	c.out.Mark(skip)
}

// getElement replaces a List and an index on the stack with the element,
// downcast to t and unboxed.
func (c *Compiler) getElement(t Type) {
	c.out.EmitInvoke(vm.OpInvokevirtual, vm.ClassList, "getElement", "(I)Ljava/lang/Object;")
	if err := Checkcast(c.out, t); err != nil {
		c.errorf("list element: %w", err)
	}
	Unbox(c.out, t)
}

func (c *Compiler) setElement() {
	c.out.EmitInvoke(vm.OpInvokevirtual, vm.ClassList, "setElement", "(ILjava/lang/Object;)V")
}

func (c *Compiler) signature(t Type) string {
	sig, err := Signature(t)
	if err != nil {
		c.errorf("%w", err)
		return "Ljava/lang/Object;"
	}
	return sig
}

// ---------------------------------------------------------------------------
// Operators
// ---------------------------------------------------------------------------

func (c *Compiler) compileBinary(e *BinaryExpr) {
	switch e.Op {
	case OpAdd, OpSub, OpMul, OpDiv, OpMod:
		c.compileExpr(e.Left)
		c.compileExpr(e.Right)
		c.out.Emit(arithOps[e.Op])
	case OpLt, OpGt, OpEq, OpNeq:
		c.compileExpr(e.Left)
		c.compileExpr(e.Right)
		c.compileCompare(e.Op, e.Left.Type())
	case OpAnd, OpOr:
		c.compileShortCircuit(e)
	case OpAssign:
		c.compileAssign(e.Left, e.Right, true)
	default:
		c.errorf("unsupported operator %s", e.Op)
		c.out.Emit(vm.OpAconstNull)
	}
}

var arithOps = map[BinaryOp]vm.Opcode{
	OpAdd: vm.OpIadd,
	OpSub: vm.OpIsub,
	OpMul: vm.OpImul,
	OpDiv: vm.OpIdiv,
	OpMod: vm.OpIrem,
}

// compileCompare turns the two operands on the stack into 0 or 1.
func (c *Compiler) compileCompare(op BinaryOp, operand Type) {
	var jump vm.Opcode
	switch op {
	case OpLt:
		jump = vm.OpIfIcmplt
	case OpGt:
		jump = vm.OpIfIcmpgt
	case OpEq:
		jump = vm.OpIfAcmpeq
		if IsPrimitive(operand) {
			jump = vm.OpIfIcmpeq
		}
	case OpNeq:
		jump = vm.OpIfAcmpne
		if IsPrimitive(operand) {
			jump = vm.OpIfIcmpne
		}
	}
	n := c.newLabel()
	trueLabel, endLabel := Label(labelCmpTrue, n), Label(labelCmpEnd, n)
	c.out.EmitJump(jump, trueLabel)
	c.out.Emit(vm.OpIconst0)
	c.out.EmitJump(vm.OpGoto, endLabel)
	c.out.Mark(trueLabel)
	c.out.Emit(vm.OpIconst1)
	c.out.Mark(endLabel)
}

// compileShortCircuit evaluates the right operand only when the left one
// does not decide the result.
func (c *Compiler) compileShortCircuit(e *BinaryExpr) {
	n := c.newLabel()
	skip, end := Label(labelScSkip, n), Label(labelScEnd, n)
	c.compileExpr(e.Left)
	if e.Op == OpAnd {
		c.out.EmitJump(vm.OpIfeq, skip)
	} else {
		c.out.EmitJump(vm.OpIfne, skip)
	}
	c.compileExpr(e.Right)
	c.out.EmitJump(vm.OpGoto, end)
	c.out.Mark(skip)
	c.out.EmitBool(e.Op == OpOr)
	c.out.Mark(end)
}

// compileAssign stores value into target. With keep, the stored value is
// left on the stack.
func (c *Compiler) compileAssign(target, value Expr, keep bool) {
	t := target.Type()
	switch tg := target.(type) {
	case *Identifier:
		slot, err := c.slots.Of(tg.Name)
		if err != nil {
			c.errorf("assignment: %w", err)
			return
		}
		c.compileCopy(value, t)
		if keep {
			c.out.Emit(vm.OpDup)
		}
		Box(c.out, t)
		c.out.EmitSlot(vm.OpAstore, slot)
	case *MemberAccess:
		switch it := tg.Instance.Type().(type) {
		case ClassType:
			c.compileExpr(tg.Instance)
			c.compileCopy(value, t)
			if keep {
				c.out.Emit(vm.OpDupX1)
			}
			Box(c.out, t)
			c.out.EmitField(vm.OpPutfield, it.Name, tg.Member, c.signature(t))
		case *ListType:
			idx, ok := it.ElementIndex(tg.Member)
			if !ok {
				c.errorf("assignment: %w: %s", ErrUnknownMember, tg.Member)
				return
			}
			c.compileExpr(tg.Instance)
			c.out.EmitInt(int32(idx))
			c.storeElement(value, t, keep)
		default:
			c.errorf("assignment to member of %s", typeString(it))
		}
	case *IndexAccess:
		c.compileExpr(tg.Instance)
		c.compileExpr(tg.Index)
		c.storeElement(value, t, keep)
	default:
		c.errorf("cannot assign to %T", target)
	}
}

// storeElement stores value into the List and index on the stack.
func (c *Compiler) storeElement(value Expr, t Type, keep bool) {
	c.compileCopy(value, t)
	if keep {
		c.out.Emit(vm.OpDupX2)
	}
	Box(c.out, t)
	c.setElement()
}

func (c *Compiler) compileUnary(e *UnaryExpr, keep bool) {
	switch e.Op {
	case OpNeg:
		c.compileExpr(e.Operand)
		c.out.Emit(vm.OpIneg)
	case OpNot:
		c.compileExpr(e.Operand)
		c.out.Emit(vm.OpIconst1)
		c.out.Emit(vm.OpIxor)
	default:
		c.compileIncDec(e, keep)
	}
	if !keep && !e.Op.IsIncDec() {
		c.out.Emit(vm.OpPop)
	}
}

// compileIncDec reads, updates and writes back an int location. With keep,
// the prefix form leaves the updated value and the postfix form the previous one.
func (c *Compiler) compileIncDec(e *UnaryExpr, keep bool) {
	op := vm.OpIadd
	if e.Op == OpPreDec || e.Op == OpPostDec {
		op = vm.OpIsub
	}
	post := e.Op == OpPostInc || e.Op == OpPostDec

	// update applies the increment to the primitive on top of the stack,
	// duplicating the kept value with dupOp.
	update := func(dupOp vm.Opcode) {
		if keep && post {
			c.out.Emit(dupOp)
		}
		c.out.EmitInt(1)
		c.out.Emit(op)
		if keep && !post {
			c.out.Emit(dupOp)
		}
		Box(c.out, Int)
	}

	switch tg := e.Operand.(type) {
	case *Identifier:
		slot, err := c.slots.Of(tg.Name)
		if err != nil {
			c.errorf("%s: %w", e.Op, err)
			return
		}
		c.out.EmitSlot(vm.OpAload, slot)
		Unbox(c.out, Int)
		update(vm.OpDup)
		c.out.EmitSlot(vm.OpAstore, slot)
	case *MemberAccess:
		switch it := tg.Instance.Type().(type) {
		case ClassType:
			sig := c.signature(Int)
			c.compileExpr(tg.Instance)
			c.out.Emit(vm.OpDup)
			c.out.EmitField(vm.OpGetfield, it.Name, tg.Member, sig)
			Unbox(c.out, Int)
			update(vm.OpDupX1)
			c.out.EmitField(vm.OpPutfield, it.Name, tg.Member, sig)
		case *ListType:
			idx, ok := it.ElementIndex(tg.Member)
			if !ok {
				c.errorf("%s: %w: %s", e.Op, ErrUnknownMember, tg.Member)
				return
			}
			c.compileExpr(tg.Instance)
			c.out.EmitInt(int32(idx))
			c.incDecElement(update)
		default:
			c.errorf("%s on member of %s", e.Op, typeString(it))
		}
	case *IndexAccess:
		c.compileExpr(tg.Instance)
		c.compileExpr(tg.Index)
		c.incDecElement(update)
	default:
		c.errorf("%s on %T", e.Op, e.Operand)
	}
}

func (c *Compiler) incDecElement(update func(vm.Opcode)) {
	c.out.Emit(vm.OpDup2)
	c.getElement(Int)
	update(vm.OpDupX2)
	c.setElement()
}

// ---------------------------------------------------------------------------
// Members, calls and construction
// ---------------------------------------------------------------------------

func (c *Compiler) compileMember(e *MemberAccess) {
	switch it := e.Instance.Type().(type) {
	case ClassType:
		mem, err := c.session.table.LookupMember(it.Name, e.Member)
		if err != nil {
			c.errorf("member %s: %w", e.Member, err)
			c.out.Emit(vm.OpAconstNull)
			return
		}
		switch mem.Kind {
		case MemberField:
			c.compileExpr(e.Instance)
			c.out.EmitField(vm.OpGetfield, it.Name, e.Member, c.signature(mem.Type))
			Unbox(c.out, mem.Type)
		case MemberMethod:
			c.out.Emit(vm.OpNew, vm.ClassFptr)
			c.out.Emit(vm.OpDup)
			c.compileExpr(e.Instance)
			c.out.EmitString(e.Member)
			c.out.EmitInvoke(vm.OpInvokespecial, vm.ClassFptr, "<init>", "(Ljava/lang/Object;Ljava/lang/String;)V")
		default:
			c.errorf("%w: %s.%s", ErrUnknownMember, it.Name, e.Member)
			c.out.Emit(vm.OpAconstNull)
		}
	case *ListType:
		idx, ok := it.ElementIndex(e.Member)
		if !ok {
			c.errorf("%w: %s has no element %s", ErrUnknownMember, it, e.Member)
			c.out.Emit(vm.OpAconstNull)
			return
		}
		c.compileExpr(e.Instance)
		c.out.EmitInt(int32(idx))
		c.getElement(e.Type())
	default:
		c.errorf("member %s of %s", e.Member, typeString(it))
		c.out.Emit(vm.OpAconstNull)
	}
}

// compileCall invokes a function pointer. The pointer is evaluated before
// any argument and kept in its own temporary while the arguments are built.
func (c *Compiler) compileCall(e *MethodCall) {
	inst, args := c.slots.Temp(), c.slots.Temp()
	c.compileExpr(e.Instance)
	c.out.EmitSlot(vm.OpAstore, inst)
	c.out.Emit(vm.OpNew, vm.ClassArrayList)
	c.out.Emit(vm.OpDup)
	c.out.EmitInvoke(vm.OpInvokespecial, vm.ClassArrayList, "<init>", "()V")
	c.out.EmitSlot(vm.OpAstore, args)
	for _, a := range e.Args {
		c.out.EmitSlot(vm.OpAload, args)
		c.compileBoxed(a)
		c.out.EmitInvoke(vm.OpInvokevirtual, vm.ClassArrayList, "add", "(Ljava/lang/Object;)Z")
		c.out.Emit(vm.OpPop)
	}
	c.out.EmitSlot(vm.OpAload, inst)
	c.out.EmitSlot(vm.OpAload, args)
	c.out.EmitInvoke(vm.OpInvokevirtual, vm.ClassFptr, "invoke", "(Ljava/util/ArrayList;)Ljava/lang/Object;")
	if t := e.Type(); !IsVoid(t) {
		if err := Checkcast(c.out, t); err != nil {
			c.errorf("call result: %w", err)
		}
		Unbox(c.out, t)
	}
}

func (c *Compiler) compileNew(e *NewInstance) {
	var params []Type
	if len(e.Args) > 0 {
		ctor, err := c.session.table.Constructor(e.Class)
		if err != nil {
			c.errorf("new %s: %w", e.Class, err)
			c.out.Emit(vm.OpAconstNull)
			return
		}
		if ctor == nil || len(ctor.Args) != len(e.Args) {
			c.errorf("new %s: %w: constructor with %d arguments", e.Class, ErrUnknownMember, len(e.Args))
			c.out.Emit(vm.OpAconstNull)
			return
		}
		for _, a := range ctor.Args {
			params = append(params, a.Type)
		}
	}
	sigs := make([]string, len(params))
	for i, p := range params {
		sigs[i] = c.signature(p)
	}
	c.out.Emit(vm.OpNew, e.Class)
	c.out.Emit(vm.OpDup)
	for _, a := range e.Args {
		c.compileBoxed(a)
	}
	c.out.EmitInvoke(vm.OpInvokespecial, e.Class, "<init>", vm.Descriptor("V", sigs...))
}
