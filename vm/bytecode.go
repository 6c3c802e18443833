package vm

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf16"
)

// ---------------------------------------------------------------------------
// Opcode definitions
// ---------------------------------------------------------------------------

// Opcode is an instruction mnemonic of the target assembler.
type Opcode string

// Stack Operations
const (
	OpPop        Opcode = "pop"
	OpDup        Opcode = "dup"
	OpDupX1      Opcode = "dup_x1"
	OpDupX2      Opcode = "dup_x2"
	OpDup2       Opcode = "dup2"
	OpSwap       Opcode = "swap"
	OpLdc        Opcode = "ldc"
	OpIconst0    Opcode = "iconst_0"
	OpIconst1    Opcode = "iconst_1"
	OpAconstNull Opcode = "aconst_null"
)

// Slot Operations
const (
	OpAload  Opcode = "aload"
	OpAstore Opcode = "astore"
	OpIload  Opcode = "iload"
	OpIstore Opcode = "istore"
	OpIinc   Opcode = "iinc"
)

// Arithmetic
const (
	OpIadd Opcode = "iadd"
	OpIsub Opcode = "isub"
	OpImul Opcode = "imul"
	OpIdiv Opcode = "idiv"
	OpIrem Opcode = "irem"
	OpIneg Opcode = "ineg"
	OpIxor Opcode = "ixor"
)

// Control Flow
const (
	OpGoto     Opcode = "goto"
	OpIfeq     Opcode = "ifeq"
	OpIfne     Opcode = "ifne"
	OpIfIcmpeq Opcode = "if_icmpeq"
	OpIfIcmpne Opcode = "if_icmpne"
	OpIfIcmplt Opcode = "if_icmplt"
	OpIfIcmpgt Opcode = "if_icmpgt"
	OpIfIcmpge Opcode = "if_icmpge"
	OpIfIcmple Opcode = "if_icmple"
	OpIfAcmpeq Opcode = "if_acmpeq"
	OpIfAcmpne Opcode = "if_acmpne"
	OpIfnull   Opcode = "ifnull"
	OpReturn   Opcode = "return"
	OpAreturn  Opcode = "areturn"
)

// Objects and Calls
const (
	OpNew           Opcode = "new"
	OpCheckcast     Opcode = "checkcast"
	OpGetfield      Opcode = "getfield"
	OpPutfield      Opcode = "putfield"
	OpGetstatic     Opcode = "getstatic"
	OpInvokevirtual Opcode = "invokevirtual"
	OpInvokespecial Opcode = "invokespecial"
	OpInvokestatic  Opcode = "invokestatic"
)

// IsJump reports whether op takes a label operand.
func (op Opcode) IsJump() bool {
	switch op {
	case OpGoto, OpIfeq, OpIfne,
		OpIfIcmpeq, OpIfIcmpne, OpIfIcmplt, OpIfIcmpgt, OpIfIcmpge, OpIfIcmple,
		OpIfAcmpeq, OpIfAcmpne, OpIfnull:
		return true
	}
	return false
}

// IsTerminator reports whether control never falls through op.
func (op Opcode) IsTerminator() bool {
	switch op {
	case OpGoto, OpReturn, OpAreturn:
		return true
	}
	return false
}

// usesSlot reports whether op's first operand is a local slot number.
func (op Opcode) usesSlot() bool {
	switch op {
	case OpAload, OpAstore, OpIload, OpIstore, OpIinc:
		return true
	}
	return false
}

// ---------------------------------------------------------------------------
// Lines: instructions, labels and comments of a method body
// ---------------------------------------------------------------------------

// LineKind distinguishes the entries of a method body.
type LineKind int

const (
	LineInstr LineKind = iota
	LineLabel
	LineComment
)

// Instr is one instruction with its textual operands.
type Instr struct {
	Op       Opcode
	Operands []string
}

func (i Instr) String() string {
	if len(i.Operands) == 0 {
		return string(i.Op)
	}
	return string(i.Op) + " " + strings.Join(i.Operands, " ")
}

// Line is one entry of a method body.
type Line struct {
	Kind  LineKind
	Instr Instr
	Text  string // label name or comment text
}

func (l Line) String() string {
	switch l.Kind {
	case LineLabel:
		return "\t" + l.Text + ":"
	case LineComment:
		return "\t\t; " + l.Text
	}
	return "\t\t" + l.Instr.String()
}

// ---------------------------------------------------------------------------
// Method: instruction builder for one method body
// ---------------------------------------------------------------------------

// Method accumulates the body of one method. Nothing is written until the
// method is complete, so a unit never contains a partial body.
type Method struct {
	Name        string
	Descriptor  string // "(args)ret"
	Static      bool
	StackLimit  int
	LocalsLimit int
	Lines       []Line
}

// NewMethod creates an empty method body.
func NewMethod(name, descriptor string) *Method {
	return &Method{Name: name, Descriptor: descriptor}
}

// Header returns the .method directive.
func (m *Method) Header() string {
	access := "public"
	if m.Static {
		access = "public static"
	}
	return fmt.Sprintf(".method %s %s%s", access, m.Name, m.Descriptor)
}

// Emit appends an instruction.
func (m *Method) Emit(op Opcode, operands ...string) {
	m.Lines = append(m.Lines, Line{Kind: LineInstr, Instr: Instr{Op: op, Operands: operands}})
}

// EmitSlot appends a slot instruction (aload n, astore n, ...).
func (m *Method) EmitSlot(op Opcode, slot int) {
	m.Emit(op, strconv.Itoa(slot))
}

// EmitInt appends ldc with an integer constant.
func (m *Method) EmitInt(value int32) {
	m.Emit(OpLdc, strconv.Itoa(int(value)))
}

// EmitString appends ldc with a string constant.
func (m *Method) EmitString(value string) {
	m.Emit(OpLdc, Quote(value))
}

// EmitBool pushes 0 or 1.
func (m *Method) EmitBool(value bool) {
	if value {
		m.Emit(OpIconst1)
	} else {
		m.Emit(OpIconst0)
	}
}

// EmitJump appends a jump to label.
func (m *Method) EmitJump(op Opcode, label string) {
	m.Emit(op, label)
}

// EmitInvoke appends a call to owner/name with a method descriptor.
func (m *Method) EmitInvoke(op Opcode, owner, name, descriptor string) {
	m.Emit(op, owner+"/"+name+descriptor)
}

// EmitField appends getfield/putfield/getstatic on owner/name.
func (m *Method) EmitField(op Opcode, owner, name, descriptor string) {
	m.Emit(op, owner+"/"+name, descriptor)
}

// Mark places a label at the current position.
func (m *Method) Mark(label string) {
	m.Lines = append(m.Lines, Line{Kind: LineLabel, Text: label})
}

// Comment appends a comment line.
func (m *Method) Comment(format string, args ...interface{}) {
	m.Lines = append(m.Lines, Line{Kind: LineComment, Text: fmt.Sprintf(format, args...)})
}

// Len returns the number of lines.
func (m *Method) Len() int {
	return len(m.Lines)
}

// lastCode returns the last non-comment line.
func (m *Method) lastCode() (Line, bool) {
	for i := len(m.Lines) - 1; i >= 0; i-- {
		if m.Lines[i].Kind != LineComment {
			return m.Lines[i], true
		}
	}
	return Line{}, false
}

// EndsWithTerminator reports whether control cannot fall off the end.
func (m *Method) EndsWithTerminator() bool {
	l, ok := m.lastCode()
	return ok && l.Kind == LineInstr && l.Instr.Op.IsTerminator()
}

// Instrs returns the instructions without labels and comments.
func (m *Method) Instrs() []Instr {
	var out []Instr
	for _, l := range m.Lines {
		if l.Kind == LineInstr {
			out = append(out, l.Instr)
		}
	}
	return out
}

// String renders the method as assembler text.
func (m *Method) String() string {
	var sb strings.Builder
	sb.WriteString(m.Header())
	sb.WriteByte('\n')
	fmt.Fprintf(&sb, ".limit stack %d\n", m.StackLimit)
	fmt.Fprintf(&sb, ".limit locals %d\n", m.LocalsLimit)
	for _, l := range m.Lines {
		sb.WriteString(l.String())
		sb.WriteByte('\n')
	}
	sb.WriteString(".end method\n")
	return sb.String()
}

// ---------------------------------------------------------------------------
// Descriptors
// ---------------------------------------------------------------------------

// Descriptor builds "(args)ret" from argument and return signatures.
func Descriptor(ret string, args ...string) string {
	return "(" + strings.Join(args, "") + ")" + ret
}

// SplitDescriptor returns the argument signatures and the return signature
// of a method descriptor.
func SplitDescriptor(desc string) ([]string, string, error) {
	if !strings.HasPrefix(desc, "(") {
		return nil, "", fmt.Errorf("bad descriptor %q", desc)
	}
	end := strings.IndexByte(desc, ')')
	if end < 0 {
		return nil, "", fmt.Errorf("bad descriptor %q", desc)
	}
	var args []string
	params := desc[1:end]
	for len(params) > 0 {
		n, err := sigLen(params)
		if err != nil {
			return nil, "", fmt.Errorf("bad descriptor %q: %w", desc, err)
		}
		args = append(args, params[:n])
		params = params[n:]
	}
	return args, desc[end+1:], nil
}

func sigLen(s string) (int, error) {
	switch s[0] {
	case 'I', 'Z', 'V':
		return 1, nil
	case 'L':
		end := strings.IndexByte(s, ';')
		if end < 0 {
			return 0, fmt.Errorf("unterminated object type in %q", s)
		}
		return end + 1, nil
	case '[':
		n, err := sigLen(s[1:])
		return n + 1, err
	}
	return 0, fmt.Errorf("unknown type %q", s[:1])
}

// SplitTarget splits "owner/name(desc)" into its parts.
func SplitTarget(target string) (owner, name, desc string, err error) {
	paren := strings.IndexByte(target, '(')
	if paren < 0 {
		return "", "", "", fmt.Errorf("bad call target %q", target)
	}
	path, desc := target[:paren], target[paren:]
	slash := strings.LastIndexByte(path, '/')
	if slash < 0 {
		return "", "", "", fmt.Errorf("bad call target %q", target)
	}
	return path[:slash], path[slash+1:], desc, nil
}

// Quote renders s as an assembler string constant.
func Quote(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, r := range s {
		switch {
		case r == '"':
			sb.WriteString(`\"`)
		case r == '\\':
			sb.WriteString(`\\`)
		case r == '\n':
			sb.WriteString(`\n`)
		case r == '\t':
			sb.WriteString(`\t`)
		case r == '\r':
			sb.WriteString(`\r`)
		case r < 0x20 || r > 0x7e:
			if r > 0xffff {
				// Encode as a UTF-16 surrogate pair.
				r -= 0x10000
				fmt.Fprintf(&sb, `\u%04x\u%04x`, 0xd800+(r>>10), 0xdc00+(r&0x3ff))
			} else {
				fmt.Fprintf(&sb, `\u%04x`, r)
			}
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

// Unquote reverses Quote.
func Unquote(s string) (string, error) {
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return "", fmt.Errorf("not a string constant: %s", s)
	}
	body := s[1 : len(s)-1]
	var units []uint16
	var sb strings.Builder
	flush := func() {
		if len(units) > 0 {
			sb.WriteString(string(utf16.Decode(units)))
			units = units[:0]
		}
	}
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' {
			flush()
			sb.WriteByte(c)
			continue
		}
		i++
		if i >= len(body) {
			return "", fmt.Errorf("dangling escape in %s", s)
		}
		switch body[i] {
		case '"', '\\':
			flush()
			sb.WriteByte(body[i])
		case 'n':
			flush()
			sb.WriteByte('\n')
		case 't':
			flush()
			sb.WriteByte('\t')
		case 'r':
			flush()
			sb.WriteByte('\r')
		case 'u':
			if i+5 > len(body) {
				return "", fmt.Errorf("short unicode escape in %s", s)
			}
			v, err := strconv.ParseUint(body[i+1:i+5], 16, 16)
			if err != nil {
				return "", fmt.Errorf("bad unicode escape in %s: %w", s, err)
			}
			units = append(units, uint16(v))
			i += 4
		default:
			return "", fmt.Errorf("unknown escape \\%c in %s", body[i], s)
		}
	}
	flush()
	return sb.String(), nil
}
