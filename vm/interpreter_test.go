package vm

import (
	"bytes"
	"errors"
	"testing"
)

// calcUnit exercises arithmetic, branches, fields and the runtime natives.
const calcUnit = `.class public Calc
.super java/lang/Object
.field public total Ljava/lang/Integer;

.method public <init>()V
.limit stack 4
.limit locals 1
		aload 0
		invokespecial java/lang/Object/<init>()V
		aload 0
		iconst_0
		invokestatic java/lang/Integer/valueOf(I)Ljava/lang/Integer;
		putfield Calc/total Ljava/lang/Integer;
		return
.end method

.method public add(Ljava/lang/Integer;)Ljava/lang/Integer;
.limit stack 4
.limit locals 2
		aload 0
		dup
		getfield Calc/total Ljava/lang/Integer;
		invokevirtual java/lang/Integer/intValue()I
		aload 1
		invokevirtual java/lang/Integer/intValue()I
		iadd
		invokestatic java/lang/Integer/valueOf(I)Ljava/lang/Integer;
		dup_x1
		putfield Calc/total Ljava/lang/Integer;
		areturn
.end method

.method public div(Ljava/lang/Integer;Ljava/lang/Integer;)Ljava/lang/Integer;
.limit stack 4
.limit locals 3
		aload 1
		invokevirtual java/lang/Integer/intValue()I
		aload 2
		invokevirtual java/lang/Integer/intValue()I
		idiv
		invokestatic java/lang/Integer/valueOf(I)Ljava/lang/Integer;
		areturn
.end method

.method public spin()V
.limit stack 2
.limit locals 1
	top_0:
		goto top_0
.end method

.method public deep()V
.limit stack 2
.limit locals 1
		aload 0
		invokevirtual Calc/deep()V
		return
.end method

.method public static main([Ljava/lang/String;)V
.limit stack 8
.limit locals 3
		; sum 1..4 with a counted loop
		iconst_0
		istore 1
		iconst_0
		istore 2
	loop_0:
		iload 1
		ldc 4
		if_icmpge end_0
		iinc 1 1
		iload 2
		iload 1
		iadd
		istore 2
		goto loop_0
	end_0:
		getstatic java/lang/System/out Ljava/io/PrintStream;
		iload 2
		invokevirtual java/io/PrintStream/println(I)V
		getstatic java/lang/System/out Ljava/io/PrintStream;
		ldc "sum done"
		invokevirtual java/io/PrintStream/println(Ljava/lang/String;)V
		return
.end method
`

func newCalcMachine(t *testing.T) (*Machine, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	m := NewMachine(&out)
	if err := m.LoadText(calcUnit); err != nil {
		t.Fatalf("LoadText: %v", err)
	}
	return m, &out
}

// ---------------------------------------------------------------------------
// Execution tests
// ---------------------------------------------------------------------------

func TestRunMain(t *testing.T) {
	m, out := newCalcMachine(t)
	if err := m.Run("Calc"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := out.String(); got != "10\nsum done\n" {
		t.Errorf("output = %q", got)
	}
	if m.Steps() == 0 {
		t.Error("Steps = 0")
	}
}

func TestFieldsAndCalls(t *testing.T) {
	m, _ := newCalcMachine(t)
	obj, err := m.NewInstance("Calc")
	if err != nil {
		t.Fatalf("NewInstance: %v", err)
	}
	for _, n := range []int32{3, 4} {
		if _, err := m.Call(obj, "add", &Integer{V: n}); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	total, ok := obj.Field("total").(*Integer)
	if !ok || total.V != 7 {
		t.Errorf("total = %v", obj.Field("total"))
	}
}

func TestArithmeticErrors(t *testing.T) {
	m, _ := newCalcMachine(t)
	obj, _ := m.NewInstance("Calc")

	got, err := m.Call(obj, "div", &Integer{V: -7}, &Integer{V: 2})
	if err != nil {
		t.Fatal(err)
	}
	if got.(*Integer).V != -3 {
		t.Errorf("-7 / 2 = %d, want -3", got.(*Integer).V)
	}

	got, err = m.Call(obj, "div", &Integer{V: -1 << 31}, &Integer{V: -1})
	if err != nil {
		t.Fatal(err)
	}
	if got.(*Integer).V != -1<<31 {
		t.Errorf("MinInt / -1 = %d", got.(*Integer).V)
	}

	_, err = m.Call(obj, "div", &Integer{V: 1}, &Integer{V: 0})
	if !errors.Is(err, ErrArithmetic) {
		t.Fatalf("err = %v, want ErrArithmetic", err)
	}
	var re *RuntimeError
	if !errors.As(err, &re) || re.Class != "Calc" || re.Method != "div" || re.Instr != "idiv" {
		t.Errorf("runtime error location = %+v", re)
	}
}

func TestNullReceiver(t *testing.T) {
	m, _ := newCalcMachine(t)
	obj, _ := m.NewInstance("Calc")
	if _, err := m.Call(obj, "add", nil); !errors.Is(err, ErrNullPointer) {
		t.Errorf("err = %v, want ErrNullPointer", err)
	}
}

func TestStepLimit(t *testing.T) {
	m, _ := newCalcMachine(t)
	m.MaxSteps = 1000
	obj, _ := m.NewInstance("Calc")
	if _, err := m.Call(obj, "spin"); !errors.Is(err, ErrStepLimit) {
		t.Errorf("err = %v, want ErrStepLimit", err)
	}
}

func TestStackOverflow(t *testing.T) {
	m, _ := newCalcMachine(t)
	m.MaxDepth = 50
	obj, _ := m.NewInstance("Calc")
	if _, err := m.Call(obj, "deep"); !errors.Is(err, ErrStackOverflow) {
		t.Errorf("err = %v, want ErrStackOverflow", err)
	}
}

func TestLoadErrors(t *testing.T) {
	m, _ := newCalcMachine(t)
	if err := m.LoadText(calcUnit); err == nil {
		t.Error("loading Calc twice succeeded")
	}

	orphan := ".class public Orphan\n.super Missing\n"
	if err := NewMachine(nil).LoadText(orphan); !errors.Is(err, ErrNoSuchClass) {
		t.Errorf("err = %v, want ErrNoSuchClass", err)
	}

	if err := m.Run("Nope"); !errors.Is(err, ErrNoSuchClass) {
		t.Errorf("Run(Nope) err = %v", err)
	}
}

// ---------------------------------------------------------------------------
// Native runtime types
// ---------------------------------------------------------------------------

const listUnit = `.class public Lists
.super java/lang/Object

.method public static main([Ljava/lang/String;)V
.limit stack 8
.limit locals 4
		new java/util/ArrayList
		dup
		invokespecial java/util/ArrayList/<init>()V
		astore 1
		aload 1
		iconst_1
		invokestatic java/lang/Integer/valueOf(I)Ljava/lang/Integer;
		invokevirtual java/util/ArrayList/add(Ljava/lang/Object;)Z
		pop
		aload 1
		iconst_0
		invokestatic java/lang/Boolean/valueOf(Z)Ljava/lang/Boolean;
		invokevirtual java/util/ArrayList/add(Ljava/lang/Object;)Z
		pop
		new List
		dup
		aload 1
		invokespecial List/<init>(Ljava/util/ArrayList;)V
		astore 2
		new List
		dup
		aload 2
		invokespecial List/<init>(LList;)V
		astore 3
		aload 2
		iconst_0
		ldc 9
		invokestatic java/lang/Integer/valueOf(I)Ljava/lang/Integer;
		invokevirtual List/setElement(ILjava/lang/Object;)V
		getstatic java/lang/System/out Ljava/io/PrintStream;
		aload 2
		invokevirtual java/io/PrintStream/println(Ljava/lang/Object;)V
		getstatic java/lang/System/out Ljava/io/PrintStream;
		aload 3
		invokevirtual java/io/PrintStream/println(Ljava/lang/Object;)V
		getstatic java/lang/System/out Ljava/io/PrintStream;
		aload 3
		invokevirtual List/getSize()I
		invokevirtual java/io/PrintStream/println(I)V
		getstatic java/lang/System/out Ljava/io/PrintStream;
		aload 3
		iconst_1
		invokevirtual List/getElement(I)Ljava/lang/Object;
		checkcast java/lang/Boolean
		invokevirtual java/lang/Boolean/booleanValue()Z
		invokevirtual java/io/PrintStream/println(Z)V
		aload 3
		ldc 5
		invokevirtual List/getElement(I)Ljava/lang/Object;
		pop
		return
.end method
`

func TestListNatives(t *testing.T) {
	var out bytes.Buffer
	m := NewMachine(&out)
	if err := m.LoadText(listUnit); err != nil {
		t.Fatal(err)
	}
	err := m.Run("Lists")
	if !errors.Is(err, ErrIndexOutOfBounds) {
		t.Fatalf("err = %v, want ErrIndexOutOfBounds", err)
	}
	if got, want := out.String(), "[9, false]\n[1, false]\n2\nfalse\n"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestCopyElementsIsDeep(t *testing.T) {
	inner := &List{Elements: []Value{&Integer{V: 1}}}
	outer := []Value{inner, "s"}
	cp := copyElements(outer)
	cp[0].(*List).Elements[0] = &Integer{V: 2}
	if inner.Elements[0].(*Integer).V != 1 {
		t.Error("nested list shared with its copy")
	}
	if cp[1] != "s" {
		t.Errorf("cp[1] = %v", cp[1])
	}
}

func TestCheckcastFailure(t *testing.T) {
	const text = `.class public Cast
.super java/lang/Object

.method public static main([Ljava/lang/String;)V
.limit stack 2
.limit locals 1
		ldc "text"
		checkcast java/lang/Integer
		pop
		return
.end method
`
	m := NewMachine(nil)
	if err := m.LoadText(text); err != nil {
		t.Fatal(err)
	}
	if err := m.Run("Cast"); !errors.Is(err, ErrClassCast) {
		t.Errorf("err = %v, want ErrClassCast", err)
	}
}

func TestFptrInvoke(t *testing.T) {
	m, _ := newCalcMachine(t)
	obj, _ := m.NewInstance("Calc")

	fp := &Fptr{}
	bind := m.natives[ClassFptr+"/<init>(Ljava/lang/Object;Ljava/lang/String;)V"]
	if _, err := bind(m, fp, []Value{obj, "add"}); err != nil {
		t.Fatal(err)
	}
	invoke := m.natives[ClassFptr+"/invoke(Ljava/util/ArrayList;)Ljava/lang/Object;"]
	got, err := invoke(m, fp, []Value{&ArrayList{Items: []Value{&Integer{V: 5}}}})
	if err != nil {
		t.Fatal(err)
	}
	if got.(*Integer).V != 5 {
		t.Errorf("invoke = %v", Format(got))
	}

	_, err = invoke(m, fp, []Value{&ArrayList{}})
	if !errors.Is(err, ErrNoSuchMethod) {
		t.Errorf("arity mismatch err = %v", err)
	}
	if _, err := invoke(m, &Fptr{Receiver: obj, Name: "nope"}, []Value{&ArrayList{}}); !errors.Is(err, ErrNoSuchMethod) {
		t.Errorf("missing method err = %v", err)
	}
}
