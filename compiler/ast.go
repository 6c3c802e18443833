package compiler

// ---------------------------------------------------------------------------
// AST: typed abstract syntax tree for Sophia programs
// ---------------------------------------------------------------------------

// Position represents a source location.
type Position struct {
	Offset int // byte offset
	Line   int // 1-based line number
	Column int // 1-based column number
}

// Span represents a range in source code.
type Span struct {
	Start Position
	End   Position
}

// Node is the interface implemented by all AST nodes.
type Node interface {
	Span() Span
	node() // marker method
}

// ---------------------------------------------------------------------------
// Expression nodes
// ---------------------------------------------------------------------------

// Expr is the interface for expression nodes. Every expression carries the
// static type assigned by the type checker.
type Expr interface {
	Node
	Type() Type
	SetType(Type)
	expr() // marker method
}

// exprInfo holds the fields shared by all expressions.
type exprInfo struct {
	SpanVal Span
	TypeVal Type
}

func (e *exprInfo) Span() Span     { return e.SpanVal }
func (e *exprInfo) Type() Type     { return e.TypeVal }
func (e *exprInfo) SetType(t Type) { e.TypeVal = t }
func (e *exprInfo) node()          {}
func (e *exprInfo) expr()          {}

// IntLiteral represents an integer literal.
type IntLiteral struct {
	exprInfo
	Value int32
}

// BoolLiteral represents true or false.
type BoolLiteral struct {
	exprInfo
	Value bool
}

// StringLiteral represents a string literal.
type StringLiteral struct {
	exprInfo
	Value string
}

// NullLiteral represents null.
type NullLiteral struct {
	exprInfo
}

// ListLiteral represents a list value [a, b, c].
type ListLiteral struct {
	exprInfo
	Elements []Expr
}

// Identifier represents a reference to an argument or local variable.
type Identifier struct {
	exprInfo
	Name string
}

// This represents the receiver.
type This struct {
	exprInfo
}

// BinaryOp enumerates binary operators.
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpLt
	OpGt
	OpEq
	OpNeq
	OpAnd
	OpOr
	OpAssign
)

var binaryOpNames = [...]string{
	OpAdd:    "+",
	OpSub:    "-",
	OpMul:    "*",
	OpDiv:    "/",
	OpMod:    "%",
	OpLt:     "<",
	OpGt:     ">",
	OpEq:     "==",
	OpNeq:    "!=",
	OpAnd:    "and",
	OpOr:     "or",
	OpAssign: "=",
}

func (op BinaryOp) String() string {
	if int(op) < len(binaryOpNames) {
		return binaryOpNames[op]
	}
	return "?"
}

// BinaryExpr represents a binary operation, including assignment.
type BinaryExpr struct {
	exprInfo
	Op    BinaryOp
	Left  Expr
	Right Expr
}

// UnaryOp enumerates unary operators.
type UnaryOp int

const (
	OpNeg UnaryOp = iota
	OpNot
	OpPreInc
	OpPreDec
	OpPostInc
	OpPostDec
)

var unaryOpNames = [...]string{
	OpNeg:     "-",
	OpNot:     "not",
	OpPreInc:  "++x",
	OpPreDec:  "--x",
	OpPostInc: "x++",
	OpPostDec: "x--",
}

func (op UnaryOp) String() string {
	if int(op) < len(unaryOpNames) {
		return unaryOpNames[op]
	}
	return "?"
}

// IsIncDec reports whether op writes back to its operand.
func (op UnaryOp) IsIncDec() bool {
	return op >= OpPreInc
}

// UnaryExpr represents a unary operation.
type UnaryExpr struct {
	exprInfo
	Op      UnaryOp
	Operand Expr
}

// MemberAccess represents instance.member, where instance is a class
// instance (field or method) or a list record (named element).
type MemberAccess struct {
	exprInfo
	Instance Expr
	Member   string
}

// IndexAccess represents list[index].
type IndexAccess struct {
	exprInfo
	Instance Expr
	Index    Expr
}

// MethodCall invokes a function pointer value with arguments. A direct
// call obj.m(x) is a MethodCall whose Instance is the MemberAccess obj.m.
type MethodCall struct {
	exprInfo
	Instance Expr
	Args     []Expr
}

// NewInstance represents new C(args).
type NewInstance struct {
	exprInfo
	Class string
	Args  []Expr
}

// ---------------------------------------------------------------------------
// Statement nodes
// ---------------------------------------------------------------------------

// Stmt is the interface for statement nodes.
type Stmt interface {
	Node
	stmt() // marker method
}

type stmtInfo struct {
	SpanVal Span
}

func (s *stmtInfo) Span() Span { return s.SpanVal }
func (s *stmtInfo) node()      {}
func (s *stmtInfo) stmt()      {}

// Block is a braced statement list.
type Block struct {
	stmtInfo
	Stmts []Stmt
}

// If is a conditional statement. Then and Else may be nil.
type If struct {
	stmtInfo
	Cond Expr
	Then Stmt
	Else Stmt
}

// For is for (init; cond; update) body. Every part may be nil.
type For struct {
	stmtInfo
	Init   Stmt
	Cond   Expr
	Update Stmt
	Body   Stmt
}

// Foreach iterates Var over the elements of List.
type Foreach struct {
	stmtInfo
	Var  *Identifier
	List Expr
	Body Stmt
}

// Break exits the innermost loop.
type Break struct {
	stmtInfo
}

// Continue starts the next iteration of the innermost loop.
type Continue struct {
	stmtInfo
}

// Return returns from the method. Value is nil in methods returning no value.
type Return struct {
	stmtInfo
	Value Expr
}

// Print writes its argument and a newline to standard output.
type Print struct {
	stmtInfo
	Arg Expr
}

// CallStmt evaluates a method call for its side effects.
type CallStmt struct {
	stmtInfo
	Call *MethodCall
}

// AssignStmt stores Value into Target.
type AssignStmt struct {
	stmtInfo
	Target Expr
	Value  Expr
}

// VarDeclStmt (re)initialises a declared local to its default value.
type VarDeclStmt struct {
	stmtInfo
	Decl *VarDecl
}

// ExprStmt evaluates an expression and discards its value.
type ExprStmt struct {
	stmtInfo
	Expr Expr
}

// ---------------------------------------------------------------------------
// Declarations
// ---------------------------------------------------------------------------

// VarDecl declares an argument, local or field.
type VarDecl struct {
	SpanVal Span
	Name    string
	Type    Type
}

func (n *VarDecl) Span() Span { return n.SpanVal }
func (n *VarDecl) node()      {}

// MethodDecl is a method or, with Constructor set, a constructor.
type MethodDecl struct {
	SpanVal     Span
	Name        string // empty for constructors
	Constructor bool
	Args        []*VarDecl
	Locals      []*VarDecl
	ReturnType  Type // NullType (or nil) for no value
	Body        []Stmt
	DoesReturn  bool // every control path ends in an explicit return
}

func (n *MethodDecl) Span() Span { return n.SpanVal }
func (n *MethodDecl) node()      {}

// ClassDecl declares a class.
type ClassDecl struct {
	SpanVal     Span
	Name        string
	Parent      string // empty for the implicit root
	Fields      []*VarDecl
	Constructor *MethodDecl
	Methods     []*MethodDecl
}

func (n *ClassDecl) Span() Span { return n.SpanVal }
func (n *ClassDecl) node()      {}

// Method returns the method called name declared directly on the class.
func (n *ClassDecl) Method(name string) *MethodDecl {
	for _, m := range n.Methods {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// Field returns the field called name declared directly on the class.
func (n *ClassDecl) Field(name string) *VarDecl {
	for _, f := range n.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Program is a complete compilation unit.
type Program struct {
	SpanVal Span
	Classes []*ClassDecl
}

func (n *Program) Span() Span { return n.SpanVal }
func (n *Program) node()      {}

// ---------------------------------------------------------------------------
// Helper functions
// ---------------------------------------------------------------------------

// MakeSpan creates a span from start and end positions.
func MakeSpan(start, end Position) Span {
	return Span{Start: start, End: end}
}
