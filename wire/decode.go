package wire

import (
	"fmt"

	"github.com/chazu/sophia/compiler"
)

var (
	binaryOps = map[string]compiler.BinaryOp{}
	unaryOps  = map[string]compiler.UnaryOp{}
)

func init() {
	for op := compiler.OpAdd; op <= compiler.OpAssign; op++ {
		binaryOps[op.String()] = op
	}
	for op := compiler.OpNeg; op <= compiler.OpPostDec; op++ {
		unaryOps[op.String()] = op
	}
}

func decodeSpan(p posDoc) compiler.Span {
	pos := compiler.Position{Line: p.Line, Column: p.Column}
	return compiler.MakeSpan(pos, pos)
}

// decoder rebuilds the AST of one method at a time so that var-decl
// statements can refer to the method's locals.
type decoder struct {
	method *compiler.MethodDecl
}

func decodeProgram(doc *programDoc) (*compiler.Program, error) {
	prog := &compiler.Program{}
	for _, cd := range doc.Classes {
		c := &compiler.ClassDecl{Name: cd.Name, Parent: cd.Parent, SpanVal: decodeSpan(cd.Pos)}
		for _, fd := range cd.Fields {
			f, err := decodeVar(fd)
			if err != nil {
				return nil, fmt.Errorf("class %s: %w", cd.Name, err)
			}
			c.Fields = append(c.Fields, f)
		}
		if cd.Constructor != nil {
			m, err := decodeMethod(cd.Constructor)
			if err != nil {
				return nil, fmt.Errorf("class %s: constructor: %w", cd.Name, err)
			}
			m.Constructor = true
			c.Constructor = m
		}
		for i := range cd.Methods {
			m, err := decodeMethod(&cd.Methods[i])
			if err != nil {
				return nil, fmt.Errorf("class %s: method %s: %w", cd.Name, cd.Methods[i].Name, err)
			}
			c.Methods = append(c.Methods, m)
		}
		prog.Classes = append(prog.Classes, c)
	}
	return prog, nil
}

func decodeVar(vd varDoc) (*compiler.VarDecl, error) {
	t, err := decodeType(vd.Type)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", vd.Name, err)
	}
	if t == nil {
		return nil, fmt.Errorf("%s: missing type", vd.Name)
	}
	return &compiler.VarDecl{Name: vd.Name, Type: t, SpanVal: decodeSpan(vd.Pos)}, nil
}

func decodeMethod(md *methodDoc) (*compiler.MethodDecl, error) {
	m := &compiler.MethodDecl{Name: md.Name, DoesReturn: md.DoesReturn, SpanVal: decodeSpan(md.Pos)}
	for _, a := range md.Args {
		v, err := decodeVar(a)
		if err != nil {
			return nil, err
		}
		m.Args = append(m.Args, v)
	}
	for _, l := range md.Locals {
		v, err := decodeVar(l)
		if err != nil {
			return nil, err
		}
		m.Locals = append(m.Locals, v)
	}
	rt, err := decodeType(md.Return)
	if err != nil {
		return nil, fmt.Errorf("return type: %w", err)
	}
	m.ReturnType = rt

	d := &decoder{method: m}
	for _, n := range md.Body {
		s, err := d.stmt(n)
		if err != nil {
			return nil, err
		}
		m.Body = append(m.Body, s)
	}
	return m, nil
}

func decodeType(td *typeDoc) (compiler.Type, error) {
	if td == nil {
		return nil, nil
	}
	switch td.Kind {
	case typeInt:
		return compiler.Int, nil
	case typeBool:
		return compiler.Bool, nil
	case typeString:
		return compiler.String, nil
	case typeNull:
		return compiler.Null, nil
	case typeClass:
		if td.Name == "" {
			return nil, fmt.Errorf("class type without a name")
		}
		return compiler.Class(td.Name), nil
	case typeList:
		elems := make([]compiler.ListElement, len(td.Elems))
		for i, ed := range td.Elems {
			et, err := decodeType(ed.Type)
			if err != nil {
				return nil, err
			}
			elems[i] = compiler.ListElement{Name: ed.Name, Type: et}
		}
		return compiler.List(elems...), nil
	case typeFptr:
		params := make([]compiler.Type, len(td.Params))
		for i, pd := range td.Params {
			pt, err := decodeType(pd)
			if err != nil {
				return nil, err
			}
			params[i] = pt
		}
		ret, err := decodeType(td.Return)
		if err != nil {
			return nil, err
		}
		return compiler.Fptr(ret, params...), nil
	}
	return nil, fmt.Errorf("%w: kind %q", compiler.ErrUnsupportedType, td.Kind)
}

// ---------------------------------------------------------------------------
// Nodes
// ---------------------------------------------------------------------------

func arity(n *nodeDoc, want int) error {
	if len(n.Kids) != want {
		return fmt.Errorf("line %d: %s node has %d children, want %d", n.Pos.Line, n.Kind, len(n.Kids), want)
	}
	return nil
}

func (d *decoder) expr(n *nodeDoc) (compiler.Expr, error) {
	if n == nil {
		return nil, nil
	}
	var e compiler.Expr
	var err error
	kid := func(i int) compiler.Expr {
		if err != nil {
			return nil
		}
		var k compiler.Expr
		k, err = d.expr(n.Kids[i])
		return k
	}

	switch n.Kind {
	case kindInt:
		e = &compiler.IntLiteral{Value: n.Int}
	case kindBool:
		e = &compiler.BoolLiteral{Value: n.Bool}
	case kindString:
		e = &compiler.StringLiteral{Value: n.Str}
	case kindNull:
		e = &compiler.NullLiteral{}
	case kindList:
		l := &compiler.ListLiteral{}
		for i := range n.Kids {
			l.Elements = append(l.Elements, kid(i))
		}
		e = l
	case kindIdent:
		e = &compiler.Identifier{Name: n.Str}
	case kindThis:
		e = &compiler.This{}
	case kindBinary:
		op, ok := binaryOps[n.Op]
		if !ok {
			return nil, fmt.Errorf("line %d: unknown binary operator %q", n.Pos.Line, n.Op)
		}
		if err := arity(n, 2); err != nil {
			return nil, err
		}
		e = &compiler.BinaryExpr{Op: op, Left: kid(0), Right: kid(1)}
	case kindUnary:
		op, ok := unaryOps[n.Op]
		if !ok {
			return nil, fmt.Errorf("line %d: unknown unary operator %q", n.Pos.Line, n.Op)
		}
		if err := arity(n, 1); err != nil {
			return nil, err
		}
		e = &compiler.UnaryExpr{Op: op, Operand: kid(0)}
	case kindMember:
		if err := arity(n, 1); err != nil {
			return nil, err
		}
		e = &compiler.MemberAccess{Instance: kid(0), Member: n.Str}
	case kindIndex:
		if err := arity(n, 2); err != nil {
			return nil, err
		}
		e = &compiler.IndexAccess{Instance: kid(0), Index: kid(1)}
	case kindCall:
		if len(n.Kids) == 0 {
			return nil, fmt.Errorf("line %d: call without a callee", n.Pos.Line)
		}
		c := &compiler.MethodCall{Instance: kid(0)}
		for i := 1; i < len(n.Kids); i++ {
			c.Args = append(c.Args, kid(i))
		}
		e = c
	case kindNew:
		ni := &compiler.NewInstance{Class: n.Str}
		for i := range n.Kids {
			ni.Args = append(ni.Args, kid(i))
		}
		e = ni
	default:
		return nil, fmt.Errorf("line %d: unknown expression kind %q", n.Pos.Line, n.Kind)
	}
	if err != nil {
		return nil, err
	}

	t, err := decodeType(n.Type)
	if err != nil {
		return nil, err
	}
	if t != nil {
		e.SetType(t)
	}
	setSpan(e, decodeSpan(n.Pos))
	return e, nil
}

// setSpan stores the source position of a decoded expression.
func setSpan(e compiler.Expr, s compiler.Span) {
	switch e := e.(type) {
	case *compiler.IntLiteral:
		e.SpanVal = s
	case *compiler.BoolLiteral:
		e.SpanVal = s
	case *compiler.StringLiteral:
		e.SpanVal = s
	case *compiler.NullLiteral:
		e.SpanVal = s
	case *compiler.ListLiteral:
		e.SpanVal = s
	case *compiler.Identifier:
		e.SpanVal = s
	case *compiler.This:
		e.SpanVal = s
	case *compiler.BinaryExpr:
		e.SpanVal = s
	case *compiler.UnaryExpr:
		e.SpanVal = s
	case *compiler.MemberAccess:
		e.SpanVal = s
	case *compiler.IndexAccess:
		e.SpanVal = s
	case *compiler.MethodCall:
		e.SpanVal = s
	case *compiler.NewInstance:
		e.SpanVal = s
	}
}

func (d *decoder) stmt(n *nodeDoc) (compiler.Stmt, error) {
	if n == nil {
		return nil, nil
	}
	span := decodeSpan(n.Pos)
	var err error
	kidExpr := func(i int) compiler.Expr {
		if err != nil || i >= len(n.Kids) {
			return nil
		}
		var e compiler.Expr
		e, err = d.expr(n.Kids[i])
		return e
	}
	kidStmt := func(i int) compiler.Stmt {
		if err != nil || i >= len(n.Kids) {
			return nil
		}
		var s compiler.Stmt
		s, err = d.stmt(n.Kids[i])
		return s
	}

	var s compiler.Stmt
	switch n.Kind {
	case kindBlock:
		b := &compiler.Block{}
		b.SpanVal = span
		for i := range n.Kids {
			b.Stmts = append(b.Stmts, kidStmt(i))
		}
		s = b
	case kindIf:
		if err := arity(n, 3); err != nil {
			return nil, err
		}
		st := &compiler.If{Cond: kidExpr(0), Then: kidStmt(1), Else: kidStmt(2)}
		st.SpanVal = span
		s = st
	case kindFor:
		if err := arity(n, 4); err != nil {
			return nil, err
		}
		st := &compiler.For{Init: kidStmt(0), Cond: kidExpr(1), Update: kidStmt(2), Body: kidStmt(3)}
		st.SpanVal = span
		s = st
	case kindForeach:
		if err := arity(n, 3); err != nil {
			return nil, err
		}
		v, ok := kidExpr(0).(*compiler.Identifier)
		if err == nil && !ok {
			return nil, fmt.Errorf("line %d: foreach variable is not an identifier", n.Pos.Line)
		}
		st := &compiler.Foreach{Var: v, List: kidExpr(1), Body: kidStmt(2)}
		st.SpanVal = span
		s = st
	case kindBreak:
		st := &compiler.Break{}
		st.SpanVal = span
		s = st
	case kindContinue:
		st := &compiler.Continue{}
		st.SpanVal = span
		s = st
	case kindReturn:
		st := &compiler.Return{Value: kidExpr(0)}
		st.SpanVal = span
		s = st
	case kindPrint:
		if err := arity(n, 1); err != nil {
			return nil, err
		}
		st := &compiler.Print{Arg: kidExpr(0)}
		st.SpanVal = span
		s = st
	case kindCallStmt:
		if err := arity(n, 1); err != nil {
			return nil, err
		}
		call, ok := kidExpr(0).(*compiler.MethodCall)
		if err == nil && !ok {
			return nil, fmt.Errorf("line %d: call statement without a call", n.Pos.Line)
		}
		st := &compiler.CallStmt{Call: call}
		st.SpanVal = span
		s = st
	case kindAssign:
		if err := arity(n, 2); err != nil {
			return nil, err
		}
		st := &compiler.AssignStmt{Target: kidExpr(0), Value: kidExpr(1)}
		st.SpanVal = span
		s = st
	case kindVarDecl:
		var decl *compiler.VarDecl
		for _, l := range d.method.Locals {
			if l.Name == n.Str {
				decl = l
			}
		}
		if decl == nil {
			return nil, fmt.Errorf("line %d: %s is not a local", n.Pos.Line, n.Str)
		}
		st := &compiler.VarDeclStmt{Decl: decl}
		st.SpanVal = span
		s = st
	case kindExpr:
		if err := arity(n, 1); err != nil {
			return nil, err
		}
		st := &compiler.ExprStmt{Expr: kidExpr(0)}
		st.SpanVal = span
		s = st
	default:
		return nil, fmt.Errorf("line %d: unknown statement kind %q", n.Pos.Line, n.Kind)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}
