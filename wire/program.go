package wire

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/chazu/sophia/compiler"
)

// ---------------------------------------------------------------------------
// Documents: the CBOR shape of a typed program
// ---------------------------------------------------------------------------

type programDoc struct {
	Version int        `cbor:"v"`
	Classes []classDoc `cbor:"classes"`
}

type classDoc struct {
	Name        string      `cbor:"name"`
	Parent      string      `cbor:"parent,omitempty"`
	Fields      []varDoc    `cbor:"fields,omitempty"`
	Constructor *methodDoc  `cbor:"ctor,omitempty"`
	Methods     []methodDoc `cbor:"methods,omitempty"`
	Pos         posDoc      `cbor:"pos,omitempty"`
}

type methodDoc struct {
	Name       string     `cbor:"name,omitempty"`
	Args       []varDoc   `cbor:"args,omitempty"`
	Locals     []varDoc   `cbor:"locals,omitempty"`
	Return     *typeDoc   `cbor:"ret,omitempty"`
	Body       []*nodeDoc `cbor:"body,omitempty"`
	DoesReturn bool       `cbor:"returns,omitempty"`
	Pos        posDoc     `cbor:"pos,omitempty"`
}

type varDoc struct {
	Name string   `cbor:"name"`
	Type *typeDoc `cbor:"t"`
	Pos  posDoc   `cbor:"pos,omitempty"`
}

// typeDoc is a tagged type envelope.
type typeDoc struct {
	Kind   string     `cbor:"k"`
	Name   string     `cbor:"n,omitempty"`
	Elems  []elemDoc  `cbor:"e,omitempty"`
	Params []*typeDoc `cbor:"p,omitempty"`
	Return *typeDoc   `cbor:"r,omitempty"`
}

type elemDoc struct {
	Name string   `cbor:"n,omitempty"`
	Type *typeDoc `cbor:"t"`
}

// nodeDoc is a tagged node envelope. The meaning of Kids depends on Kind;
// absent optional children are encoded as null.
type nodeDoc struct {
	Kind string     `cbor:"k"`
	Type *typeDoc   `cbor:"t,omitempty"`
	Int  int32      `cbor:"i,omitempty"`
	Bool bool       `cbor:"b,omitempty"`
	Str  string     `cbor:"s,omitempty"`
	Op   string     `cbor:"op,omitempty"`
	Kids []*nodeDoc `cbor:"c,omitempty"`
	Pos  posDoc     `cbor:"pos,omitempty"`
}

type posDoc struct {
	Line   int `cbor:"l,omitempty"`
	Column int `cbor:"c,omitempty"`
}

// Node kinds.
const (
	kindInt      = "int"
	kindBool     = "bool"
	kindString   = "string"
	kindNull     = "null"
	kindList     = "list"
	kindIdent    = "ident"
	kindThis     = "this"
	kindBinary   = "binary"
	kindUnary    = "unary"
	kindMember   = "member"
	kindIndex    = "index"
	kindCall     = "call"
	kindNew      = "new"
	kindBlock    = "block"
	kindIf       = "if"
	kindFor      = "for"
	kindForeach  = "foreach"
	kindBreak    = "break"
	kindContinue = "continue"
	kindReturn   = "return"
	kindPrint    = "print"
	kindCallStmt = "callstmt"
	kindAssign   = "assign"
	kindVarDecl  = "vardecl"
	kindExpr     = "expr"
)

// Type kinds.
const (
	typeInt    = "int"
	typeBool   = "bool"
	typeString = "string"
	typeNull   = "null"
	typeClass  = "class"
	typeList   = "list"
	typeFptr   = "fptr"
)

// EncodeProgram serializes a typed program to CBOR bytes.
func EncodeProgram(prog *compiler.Program) ([]byte, error) {
	doc, err := encodeProgram(prog)
	if err != nil {
		return nil, fmt.Errorf("wire: encode program: %w", err)
	}
	return cborEncMode.Marshal(doc)
}

// DecodeProgram deserializes a typed program from CBOR bytes.
func DecodeProgram(data []byte) (*compiler.Program, error) {
	var doc programDoc
	if err := cbor.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("wire: unmarshal program: %w", err)
	}
	if doc.Version != Version {
		return nil, fmt.Errorf("wire: program version %d, want %d", doc.Version, Version)
	}
	prog, err := decodeProgram(&doc)
	if err != nil {
		return nil, fmt.Errorf("wire: decode program: %w", err)
	}
	return prog, nil
}

// ---------------------------------------------------------------------------
// Encoding
// ---------------------------------------------------------------------------

func encodePos(s compiler.Span) posDoc {
	return posDoc{Line: s.Start.Line, Column: s.Start.Column}
}

func encodeProgram(prog *compiler.Program) (*programDoc, error) {
	doc := &programDoc{Version: Version}
	for _, c := range prog.Classes {
		cd := classDoc{Name: c.Name, Parent: c.Parent, Pos: encodePos(c.Span())}
		for _, f := range c.Fields {
			vd, err := encodeVar(f)
			if err != nil {
				return nil, fmt.Errorf("class %s: %w", c.Name, err)
			}
			cd.Fields = append(cd.Fields, vd)
		}
		if c.Constructor != nil {
			md, err := encodeMethod(c.Constructor)
			if err != nil {
				return nil, fmt.Errorf("class %s: constructor: %w", c.Name, err)
			}
			cd.Constructor = &md
		}
		for _, m := range c.Methods {
			md, err := encodeMethod(m)
			if err != nil {
				return nil, fmt.Errorf("class %s: method %s: %w", c.Name, m.Name, err)
			}
			cd.Methods = append(cd.Methods, md)
		}
		doc.Classes = append(doc.Classes, cd)
	}
	return doc, nil
}

func encodeVar(v *compiler.VarDecl) (varDoc, error) {
	t, err := encodeType(v.Type)
	if err != nil {
		return varDoc{}, fmt.Errorf("%s: %w", v.Name, err)
	}
	return varDoc{Name: v.Name, Type: t, Pos: encodePos(v.Span())}, nil
}

func encodeMethod(m *compiler.MethodDecl) (methodDoc, error) {
	md := methodDoc{Name: m.Name, DoesReturn: m.DoesReturn, Pos: encodePos(m.Span())}
	for _, a := range m.Args {
		vd, err := encodeVar(a)
		if err != nil {
			return md, err
		}
		md.Args = append(md.Args, vd)
	}
	for _, l := range m.Locals {
		vd, err := encodeVar(l)
		if err != nil {
			return md, err
		}
		md.Locals = append(md.Locals, vd)
	}
	if m.ReturnType != nil {
		t, err := encodeType(m.ReturnType)
		if err != nil {
			return md, err
		}
		md.Return = t
	}
	for _, s := range m.Body {
		n, err := encodeStmt(s)
		if err != nil {
			return md, err
		}
		md.Body = append(md.Body, n)
	}
	return md, nil
}

func encodeType(t compiler.Type) (*typeDoc, error) {
	switch t := t.(type) {
	case nil:
		return nil, nil
	case compiler.IntType:
		return &typeDoc{Kind: typeInt}, nil
	case compiler.BoolType:
		return &typeDoc{Kind: typeBool}, nil
	case compiler.StringType:
		return &typeDoc{Kind: typeString}, nil
	case compiler.NullType:
		return &typeDoc{Kind: typeNull}, nil
	case compiler.ClassType:
		return &typeDoc{Kind: typeClass, Name: t.Name}, nil
	case *compiler.ListType:
		d := &typeDoc{Kind: typeList}
		for _, el := range t.Elements {
			et, err := encodeType(el.Type)
			if err != nil {
				return nil, err
			}
			d.Elems = append(d.Elems, elemDoc{Name: el.Name, Type: et})
		}
		return d, nil
	case *compiler.FptrType:
		d := &typeDoc{Kind: typeFptr}
		for _, p := range t.Params {
			pt, err := encodeType(p)
			if err != nil {
				return nil, err
			}
			d.Params = append(d.Params, pt)
		}
		rt, err := encodeType(t.Return)
		if err != nil {
			return nil, err
		}
		d.Return = rt
		return d, nil
	}
	return nil, fmt.Errorf("%w: %T", compiler.ErrUnsupportedType, t)
}

func encodeExpr(e compiler.Expr) (*nodeDoc, error) {
	if e == nil {
		return nil, nil
	}
	t, err := encodeType(e.Type())
	if err != nil {
		return nil, err
	}
	n := &nodeDoc{Type: t, Pos: encodePos(e.Span())}
	kids := func(es ...compiler.Expr) error {
		for _, k := range es {
			kd, err := encodeExpr(k)
			if err != nil {
				return err
			}
			n.Kids = append(n.Kids, kd)
		}
		return nil
	}

	switch e := e.(type) {
	case *compiler.IntLiteral:
		n.Kind, n.Int = kindInt, e.Value
	case *compiler.BoolLiteral:
		n.Kind, n.Bool = kindBool, e.Value
	case *compiler.StringLiteral:
		n.Kind, n.Str = kindString, e.Value
	case *compiler.NullLiteral:
		n.Kind = kindNull
	case *compiler.ListLiteral:
		n.Kind = kindList
		err = kids(e.Elements...)
	case *compiler.Identifier:
		n.Kind, n.Str = kindIdent, e.Name
	case *compiler.This:
		n.Kind = kindThis
	case *compiler.BinaryExpr:
		n.Kind, n.Op = kindBinary, e.Op.String()
		err = kids(e.Left, e.Right)
	case *compiler.UnaryExpr:
		n.Kind, n.Op = kindUnary, e.Op.String()
		err = kids(e.Operand)
	case *compiler.MemberAccess:
		n.Kind, n.Str = kindMember, e.Member
		err = kids(e.Instance)
	case *compiler.IndexAccess:
		n.Kind = kindIndex
		err = kids(e.Instance, e.Index)
	case *compiler.MethodCall:
		n.Kind = kindCall
		err = kids(append([]compiler.Expr{e.Instance}, e.Args...)...)
	case *compiler.NewInstance:
		n.Kind, n.Str = kindNew, e.Class
		err = kids(e.Args...)
	default:
		return nil, fmt.Errorf("unknown expression %T", e)
	}
	if err != nil {
		return nil, err
	}
	return n, nil
}

func encodeStmt(s compiler.Stmt) (*nodeDoc, error) {
	if s == nil {
		return nil, nil
	}
	n := &nodeDoc{Pos: encodePos(s.Span())}
	var err error
	exprs := func(es ...compiler.Expr) {
		for _, e := range es {
			if err != nil {
				return
			}
			var d *nodeDoc
			d, err = encodeExpr(e)
			n.Kids = append(n.Kids, d)
		}
	}
	stmts := func(ss ...compiler.Stmt) {
		for _, st := range ss {
			if err != nil {
				return
			}
			var d *nodeDoc
			d, err = encodeStmt(st)
			n.Kids = append(n.Kids, d)
		}
	}

	switch s := s.(type) {
	case *compiler.Block:
		n.Kind = kindBlock
		stmts(s.Stmts...)
	case *compiler.If:
		n.Kind = kindIf
		exprs(s.Cond)
		stmts(s.Then, s.Else)
	case *compiler.For:
		n.Kind = kindFor
		stmts(s.Init)
		exprs(s.Cond)
		stmts(s.Update, s.Body)
	case *compiler.Foreach:
		n.Kind = kindForeach
		exprs(s.Var, s.List)
		stmts(s.Body)
	case *compiler.Break:
		n.Kind = kindBreak
	case *compiler.Continue:
		n.Kind = kindContinue
	case *compiler.Return:
		n.Kind = kindReturn
		if s.Value != nil {
			exprs(s.Value)
		}
	case *compiler.Print:
		n.Kind = kindPrint
		exprs(s.Arg)
	case *compiler.CallStmt:
		n.Kind = kindCallStmt
		exprs(s.Call)
	case *compiler.AssignStmt:
		n.Kind = kindAssign
		exprs(s.Target, s.Value)
	case *compiler.VarDeclStmt:
		n.Kind, n.Str = kindVarDecl, s.Decl.Name
	case *compiler.ExprStmt:
		n.Kind = kindExpr
		exprs(s.Expr)
	default:
		return nil, fmt.Errorf("unknown statement %T", s)
	}
	if err != nil {
		return nil, err
	}
	return n, nil
}
