package vm

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// ---------------------------------------------------------------------------
// Opcode metadata tests
// ---------------------------------------------------------------------------

func TestOpcodeClasses(t *testing.T) {
	tests := []struct {
		op         Opcode
		jump, term bool
	}{
		{OpGoto, true, true},
		{OpIfeq, true, false},
		{OpIfIcmpge, true, false},
		{OpIfAcmpne, true, false},
		{OpIfnull, true, false},
		{OpReturn, false, true},
		{OpAreturn, false, true},
		{OpIadd, false, false},
		{OpInvokevirtual, false, false},
	}
	for _, tt := range tests {
		if got := tt.op.IsJump(); got != tt.jump {
			t.Errorf("%s.IsJump() = %v, want %v", tt.op, got, tt.jump)
		}
		if got := tt.op.IsTerminator(); got != tt.term {
			t.Errorf("%s.IsTerminator() = %v, want %v", tt.op, got, tt.term)
		}
	}
}

// ---------------------------------------------------------------------------
// Method builder tests
// ---------------------------------------------------------------------------

func TestMethodString(t *testing.T) {
	m := NewMethod("max", "(Ljava/lang/Integer;Ljava/lang/Integer;)Ljava/lang/Integer;")
	m.StackLimit = 8
	m.LocalsLimit = 3
	m.EmitSlot(OpAload, 1)
	m.EmitInvoke(OpInvokevirtual, ClassInteger, "intValue", "()I")
	m.EmitInt(-4)
	m.EmitJump(OpIfIcmpgt, "big_0")
	m.Comment("small")
	m.EmitSlot(OpAload, 2)
	m.Emit(OpAreturn)
	m.Mark("big_0")
	m.EmitSlot(OpAload, 1)
	m.Emit(OpAreturn)

	want := strings.Join([]string{
		".method public max(Ljava/lang/Integer;Ljava/lang/Integer;)Ljava/lang/Integer;",
		".limit stack 8",
		".limit locals 3",
		"\t\taload 1",
		"\t\tinvokevirtual java/lang/Integer/intValue()I",
		"\t\tldc -4",
		"\t\tif_icmpgt big_0",
		"\t\t; small",
		"\t\taload 2",
		"\t\tareturn",
		"\tbig_0:",
		"\t\taload 1",
		"\t\tareturn",
		".end method",
	}, "\n") + "\n"
	if diff := cmp.Diff(want, m.String()); diff != "" {
		t.Errorf("String() mismatch (-want +got):\n%s", diff)
	}
	if !m.EndsWithTerminator() {
		t.Error("EndsWithTerminator = false")
	}
	if n := len(m.Instrs()); n != 8 {
		t.Errorf("len(Instrs) = %d, want 8", n)
	}
}

func TestEndsWithTerminatorSkipsComments(t *testing.T) {
	m := NewMethod("m", "()V")
	m.Emit(OpReturn)
	m.Comment("trailing")
	if !m.EndsWithTerminator() {
		t.Error("comment after return hides the terminator")
	}
	m.Mark("after_0")
	if m.EndsWithTerminator() {
		t.Error("label after return should not count as a terminator")
	}
}

func TestStaticHeader(t *testing.T) {
	m := NewMethod("main", "([Ljava/lang/String;)V")
	m.Static = true
	if got := m.Header(); got != ".method public static main([Ljava/lang/String;)V" {
		t.Errorf("Header = %q", got)
	}
}

// ---------------------------------------------------------------------------
// Descriptor tests
// ---------------------------------------------------------------------------

func TestSplitDescriptor(t *testing.T) {
	tests := []struct {
		desc string
		args []string
		ret  string
	}{
		{"()V", nil, "V"},
		{"(I)Ljava/lang/Integer;", []string{"I"}, "Ljava/lang/Integer;"},
		{"(ILjava/lang/Object;)V", []string{"I", "Ljava/lang/Object;"}, "V"},
		{"([Ljava/lang/String;)V", []string{"[Ljava/lang/String;"}, "V"},
		{"(LList;ZLFptr;)LList;", []string{"LList;", "Z", "LFptr;"}, "LList;"},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			args, ret, err := SplitDescriptor(tt.desc)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.args, args); diff != "" {
				t.Errorf("args mismatch (-want +got):\n%s", diff)
			}
			if ret != tt.ret {
				t.Errorf("ret = %q, want %q", ret, tt.ret)
			}
		})
	}

	for _, bad := range []string{"", "I)V", "(Ljava/lang/Object", "(Q)V"} {
		if _, _, err := SplitDescriptor(bad); err == nil {
			t.Errorf("SplitDescriptor(%q) succeeded", bad)
		}
	}
}

func TestSplitTarget(t *testing.T) {
	owner, name, desc, err := SplitTarget("java/lang/Integer/valueOf(I)Ljava/lang/Integer;")
	if err != nil {
		t.Fatal(err)
	}
	if owner != "java/lang/Integer" || name != "valueOf" || desc != "(I)Ljava/lang/Integer;" {
		t.Errorf("got %q %q %q", owner, name, desc)
	}
	if _, _, _, err := SplitTarget("noslash()V"); err == nil {
		t.Error("expected an error without an owner")
	}
}

// ---------------------------------------------------------------------------
// String constant tests
// ---------------------------------------------------------------------------

func TestQuote(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", `""`},
		{"plain", `"plain"`},
		{`say "hi"`, `"say \"hi\""`},
		{"tab\tnew\nline", `"tab\tnew\nline"`},
		{`back\slash`, `"back\\slash"`},
		{"é", `"\u00e9"`},
		{"\x01", `"\u0001"`},
		{"😀", `"\ud83d\ude00"`},
	}
	for _, tt := range tests {
		got := Quote(tt.in)
		if got != tt.want {
			t.Errorf("Quote(%q) = %s, want %s", tt.in, got, tt.want)
		}
		back, err := Unquote(got)
		if err != nil || back != tt.in {
			t.Errorf("Unquote(%s) = %q, %v; want %q", got, back, err, tt.in)
		}
	}
}

func TestUnquoteErrors(t *testing.T) {
	for _, bad := range []string{`abc`, `"abc`, `"\"`, `"\u12"`, `"\uzzzz"`} {
		if _, err := Unquote(bad); err == nil {
			t.Errorf("Unquote(%s) succeeded", bad)
		}
	}
}
