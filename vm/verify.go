package vm

import (
	"errors"
	"fmt"
	"strconv"

	mapset "github.com/deckarep/golang-set"
)

// ErrVerify is returned for a malformed method body.
var ErrVerify = errors.New("verify")

// Verify checks the structural well-formedness of a method body: every label
// is defined once, every jump target is defined, slot operands are within
// the locals limit, and the body ends in a terminator.
func Verify(m *Method) error {
	defined := mapset.NewSet()
	for _, l := range m.Lines {
		if l.Kind != LineLabel {
			continue
		}
		if !defined.Add(l.Text) {
			return fmt.Errorf("%w: %s%s: label %s defined twice", ErrVerify, m.Name, m.Descriptor, l.Text)
		}
	}

	for i, l := range m.Lines {
		if l.Kind != LineInstr {
			continue
		}
		in := l.Instr
		switch {
		case in.Op.IsJump():
			if len(in.Operands) != 1 {
				return verifyErr(m, i, "%s needs one label", in.Op)
			}
			if !defined.Contains(in.Operands[0]) {
				return verifyErr(m, i, "undefined label %s", in.Operands[0])
			}
		case in.Op.usesSlot():
			if len(in.Operands) == 0 {
				return verifyErr(m, i, "%s needs a slot", in.Op)
			}
			slot, err := strconv.Atoi(in.Operands[0])
			if err != nil || slot < 0 {
				return verifyErr(m, i, "bad slot %q", in.Operands[0])
			}
			if slot >= m.LocalsLimit {
				return verifyErr(m, i, "slot %d outside locals limit %d", slot, m.LocalsLimit)
			}
		}
	}

	if !m.EndsWithTerminator() {
		return fmt.Errorf("%w: %s%s: body does not end in a terminator", ErrVerify, m.Name, m.Descriptor)
	}
	if m.StackLimit <= 0 {
		return fmt.Errorf("%w: %s%s: stack limit %d", ErrVerify, m.Name, m.Descriptor, m.StackLimit)
	}
	return nil
}

func verifyErr(m *Method, line int, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s%s line %d: %s", ErrVerify, m.Name, m.Descriptor, line, fmt.Sprintf(format, args...))
}
