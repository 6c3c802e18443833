package compiler

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/chazu/sophia/vm"
)

// ---------------------------------------------------------------------------
// Resolver
// ---------------------------------------------------------------------------

func TestResolveTypes(t *testing.T) {
	pair := List(ListElement{Name: "a", Type: Int}, ListElement{Name: "b", Type: Bool})
	sum := bin(OpAdd, ident("x"), num(1))
	cmpExpr := bin(OpLt, ident("x"), num(3))
	elem := member(ident("p"), "b")
	lit := list(num(1), boolean(true))
	fp := member(this(), "get")

	c := class("C", "", nil,
		method("get", Int, vars(decl("x", Int)), vars(decl("p", pair), decl("f", Fptr(Int, Int))),
			assign(ident("p"), lit),
			exprStmt(elem),
			exprStmt(cmpExpr),
			assign(ident("f"), fp),
			ret(sum),
		),
	)
	if _, err := Resolve(program(c)); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	tests := []struct {
		name string
		expr Expr
		want Type
	}{
		{"sum", sum, Int},
		{"comparison", cmpExpr, Bool},
		{"list element", elem, Bool},
		{"list literal", lit, pair},
		{"method pointer", fp, Fptr(Int, Int)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !SameType(tt.expr.Type(), tt.want) {
				t.Errorf("type = %s, want %s", typeString(tt.expr.Type()), tt.want)
			}
		})
	}
}

func TestResolveDoesReturn(t *testing.T) {
	both := method("both", Int, vars(decl("x", Bool)), nil,
		ifStmt(ident("x"), ret(num(1)), ret(num(2))),
	)
	oneArm := method("oneArm", Int, vars(decl("x", Bool)), nil,
		ifStmt(ident("x"), ret(num(1)), nil),
	)
	inLoop := method("inLoop", Int, nil, nil,
		forStmt(nil, nil, nil, ret(num(1))),
	)
	nested := method("nested", Int, nil, nil,
		block(block(ret(num(3)))),
	)
	if _, err := Resolve(program(class("C", "", nil, both, oneArm, inLoop, nested))); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	got := map[string]bool{
		both.Name: both.DoesReturn, oneArm.Name: oneArm.DoesReturn,
		inLoop.Name: inLoop.DoesReturn, nested.Name: nested.DoesReturn,
	}
	want := map[string]bool{"both": true, "oneArm": false, "inLoop": false, "nested": true}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("DoesReturn mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveErrors(t *testing.T) {
	tests := []struct {
		name string
		prog *Program
		want string
	}{
		{
			"unresolved name",
			program(class("C", "", nil, method("m", nil, nil, nil, printStmt(ident("ghost"))))),
			"ghost",
		},
		{
			"break outside loop",
			program(class("C", "", nil, method("m", nil, nil, nil, &Break{}))),
			"break outside a loop",
		},
		{
			"unknown parent",
			program(class("C", "Nope", nil)),
			"unknown parent Nope",
		},
		{
			"cyclic classes",
			program(class("A", "B", nil), class("B", "A", nil)),
			"cyclic",
		},
		{
			"duplicate class",
			program(class("A", "", nil), class("A", "", nil)),
			"declared twice",
		},
		{
			"type mismatch",
			program(class("C", "", nil, method("m", nil, nil, vars(decl("x", Int)), assign(ident("x"), str("s"))))),
			"expected int, got string",
		},
		{
			"mixed list index",
			program(class("C", "", nil, method("m", nil, nil,
				vars(decl("l", List(ListElement{Type: Int}, ListElement{Type: String})), decl("i", Int)),
				printStmt(index(ident("l"), ident("i"))),
			))),
			"mixed list",
		},
		{
			"constant index out of range",
			program(class("C", "", nil, method("m", nil, nil,
				vars(decl("l", List(ListElement{Type: Int}))),
				printStmt(index(ident("l"), num(2))),
			))),
			"out of range",
		},
		{
			"assign to method",
			program(class("C", "", nil,
				method("m", nil, nil, nil, assign(member(this(), "m"), null())),
			)),
			"cannot assign to method",
		},
		{
			"return value from void method",
			program(class("C", "", nil, method("m", nil, nil, nil, ret(num(1))))),
			"return with a value",
		},
		{
			"unknown member",
			program(class("C", "", nil, method("m", nil, nil, nil, printStmt(member(this(), "zz"))))),
			"unknown member",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(tt.prog)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestResolveNullAssignable(t *testing.T) {
	c := class("C", "", vars(decl("next", Class("C")), decl("name", String)),
		method("reset", nil, nil, nil,
			assign(member(this(), "next"), null()),
			assign(member(this(), "name"), null()),
		),
	)
	if _, err := Resolve(program(c)); err != nil {
		t.Errorf("Resolve: %v", err)
	}

	bad := class("D", "", vars(decl("n", Int)),
		method("reset", nil, nil, nil, assign(member(this(), "n"), null())),
	)
	if _, err := Resolve(program(bad)); err == nil {
		t.Error("null assigned to int should fail")
	}
}

func TestResolveSubclassAssignable(t *testing.T) {
	prog := program(
		class("Base", "", nil),
		class("Derived", "Base", nil),
		class("User", "", nil,
			method("m", nil, nil, vars(decl("b", Class("Base")), decl("d", Class("Derived"))),
				assign(ident("b"), construct("Derived")),
			),
			method("bad", nil, nil, vars(decl("d", Class("Derived"))),
				assign(ident("d"), construct("Base")),
			),
		),
	)
	_, err := Resolve(prog)
	if err == nil || !strings.Contains(err.Error(), "expected Derived, got Base") {
		t.Errorf("err = %v", err)
	}
}

// ---------------------------------------------------------------------------
// Symbols
// ---------------------------------------------------------------------------

func TestHierarchy(t *testing.T) {
	prog := program(
		class("A", "", nil),
		class("B", "A", nil),
		class("C", "B", nil),
		class("X", "Y", nil),
		class("Y", "X", nil),
	)
	h := NewHierarchy(prog.Classes)

	chain, err := h.Ancestors("C")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"C", "B", "A"}, chain); diff != "" {
		t.Errorf("Ancestors mismatch (-want +got):\n%s", diff)
	}
	if !h.IsSubclass("C", "A") || h.IsSubclass("A", "C") {
		t.Error("IsSubclass is wrong")
	}
	if _, err := h.Ancestors("X"); !errors.Is(err, ErrCyclicClass) {
		t.Errorf("err = %v, want ErrCyclicClass", err)
	}
}

func TestLookupMember(t *testing.T) {
	base := class("Base", "", vars(decl("size", Int)),
		method("area", Int, vars(decl("scale", Int)), nil, ret(num(0))),
	)
	derived := class("Derived", "Base", vars(decl("tag", String)))
	table := NewClassTable(program(base, derived))

	tests := []struct {
		name  string
		kind  MemberKind
		owner string
	}{
		{"tag", MemberField, "Derived"},
		{"size", MemberField, "Base"},
		{"area", MemberMethod, "Base"},
		{"missing", MemberAbsent, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem, err := table.LookupMember("Derived", tt.name)
			if err != nil {
				t.Fatal(err)
			}
			if mem.Kind != tt.kind || mem.Owner != tt.owner {
				t.Errorf("got %s owned by %q, want %s owned by %q", mem.Kind, mem.Owner, tt.kind, tt.owner)
			}
		})
	}

	mem, _ := table.LookupMember("Derived", "area")
	if !SameType(mem.Type, Fptr(Int, Int)) {
		t.Errorf("method type = %s", mem.Type)
	}
	if _, err := table.LookupMember("Nope", "x"); !errors.Is(err, ErrUnknownClass) {
		t.Errorf("err = %v, want ErrUnknownClass", err)
	}
}

// ---------------------------------------------------------------------------
// Slots, labels and type mapping
// ---------------------------------------------------------------------------

func TestSlots(t *testing.T) {
	m := method("m", nil, vars(decl("a", Int), decl("b", Int)), vars(decl("c", Int), decl("d", String)))
	s := NewSlots(m)

	for name, want := range map[string]int{"a": 1, "b": 2, "c": 3, "d": 4} {
		got, err := s.Of(name)
		if err != nil || got != want {
			t.Errorf("Of(%s) = %d, %v; want %d", name, got, err, want)
		}
	}
	if s.Limit() != 5 {
		t.Errorf("Limit = %d, want 5", s.Limit())
	}
	if a, b := s.Temp(), s.Temp(); a != 5 || b != 6 {
		t.Errorf("temps = %d, %d; want 5, 6", a, b)
	}
	if s.HighWater() != 6 || s.Limit() != 7 {
		t.Errorf("HighWater = %d, Limit = %d", s.HighWater(), s.Limit())
	}
	if _, err := s.Of("zz"); !errors.Is(err, ErrUnresolvedName) {
		t.Errorf("err = %v, want ErrUnresolvedName", err)
	}
}

func TestLoopLabels(t *testing.T) {
	var l loopLabels
	if _, err := l.breakTarget(); !errors.Is(err, ErrLoopControl) {
		t.Errorf("err = %v, want ErrLoopControl", err)
	}
	l.push("end_0", "cont_0")
	l.push("end_1", "cont_1")
	for i := 0; i < 2; i++ {
		if got, _ := l.breakTarget(); got != "end_1" {
			t.Errorf("break target = %s, want end_1", got)
		}
	}
	l.pop()
	if got, _ := l.continueTarget(); got != "cont_0" {
		t.Errorf("continue target = %s, want cont_0", got)
	}

	var seq Labels
	if a, b := seq.New(), seq.New(); a == b || seq.Count() != 2 {
		t.Errorf("labels %d, %d; count %d", a, b, seq.Count())
	}
	if got := Label("then", 7); got != "then_7" {
		t.Errorf("Label = %s", got)
	}
}

func TestSignatures(t *testing.T) {
	tests := []struct {
		typ  Type
		want string
	}{
		{Int, "Ljava/lang/Integer;"},
		{Bool, "Ljava/lang/Boolean;"},
		{String, "Ljava/lang/String;"},
		{Class("Shape"), "LShape;"},
		{List(ListElement{Type: Int}), "LList;"},
		{Fptr(Int), "LFptr;"},
	}
	for _, tt := range tests {
		got, err := Signature(tt.typ)
		if err != nil || got != tt.want {
			t.Errorf("Signature(%s) = %q, %v; want %q", tt.typ, got, err, tt.want)
		}
	}
	if _, err := Signature(Null); !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("Signature(null) err = %v", err)
	}

	m := method("area", Int, vars(decl("w", Int), decl("s", Class("Shape"))), nil)
	desc, err := MethodDescriptor(m)
	if err != nil || desc != "(Ljava/lang/Integer;LShape;)Ljava/lang/Integer;" {
		t.Errorf("MethodDescriptor = %q, %v", desc, err)
	}
	ctorDesc, _ := MethodDescriptor(ctor(vars(decl("n", Int)), nil))
	if ctorDesc != "(Ljava/lang/Integer;)V" {
		t.Errorf("constructor descriptor = %q", ctorDesc)
	}
}

func TestBoxing(t *testing.T) {
	m := vm.NewMethod("m", "()V")
	Box(m, Int)
	Unbox(m, Bool)
	Box(m, String)
	if err := Checkcast(m, Class("Shape")); err != nil {
		t.Fatal(err)
	}
	want := []string{
		"invokestatic java/lang/Integer/valueOf(I)Ljava/lang/Integer;",
		"invokevirtual java/lang/Boolean/booleanValue()Z",
		"checkcast Shape",
	}
	if diff := cmp.Diff(want, instrStrings(m)); diff != "" {
		t.Errorf("boxing mismatch (-want +got):\n%s", diff)
	}
}
