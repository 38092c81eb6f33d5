package driver

import (
	"errors"
	"fmt"

	"reify/internal/bc"
	"reify/internal/diag"
)

// CheckMethod reports the structural problems of m: undefined or repeated
// labels, malformed descriptors, missing operands and an inconsistent or
// overflowing operand stack. It returns false when an error was reported.
func CheckMethod(file string, m *bc.Method, r diag.Reporter) bool {
	if m == nil || m.Code == nil {
		return true
	}
	name := m.QualifiedName()
	ok := true
	fail := func(code diag.Code, index int, format string, args ...any) {
		ok = false
		diag.ReportError(r, code, diag.At(file, name, index), fmt.Sprintf(format, args...)).Emit()
	}

	if m.Desc != "" {
		if _, _, err := bc.ParseMethodDesc(m.Desc); err != nil {
			fail(diag.BcBadDescriptor, diag.NoIndex, "method descriptor %q: %v", m.Desc, err)
		}
	}

	instrs := m.Code.Instrs()
	defined := make(map[bc.LabelID]int, 8)
	for i, ins := range instrs {
		switch {
		case ins.Op == bc.OpLabel:
			if first, dup := defined[ins.Label]; dup {
				fail(diag.BcDuplicateLabel, i, "label L%d already defined at #%d", ins.Label, first)
				continue
			}
			defined[ins.Label] = i
		case ins.Op.IsInvoke():
			if _, _, err := bc.ParseMethodDesc(ins.Desc); err != nil {
				fail(diag.BcBadDescriptor, i, "%s: %v", ins.Op, err)
			}
		case ins.Op.IsTypeInsn() && ins.Type == "":
			fail(diag.BcMissingOperand, i, "%s without type operand", ins.Op)
		case ins.Op.IsFieldInsn() && ins.Desc == "":
			fail(diag.BcMissingOperand, i, "%s without field descriptor", ins.Op)
		}
	}
	for i, ins := range instrs {
		if ins.Op.IsJump() {
			if _, found := defined[ins.Label]; !found {
				fail(diag.BcUndefinedLabel, i, "%s to undefined label L%d", ins.Op, ins.Label)
			}
		}
	}
	if !ok {
		return false
	}

	depth, err := bc.MaxStack(m.Code)
	switch {
	case errors.Is(err, bc.ErrStackUnderflow):
		fail(diag.BcStackUnderflow, diag.NoIndex, "%v", err)
	case err != nil:
		fail(diag.BcStackMismatch, diag.NoIndex, "%v", err)
	case m.MaxStack > 0 && depth > m.MaxStack:
		fail(diag.BcStackOverflow, diag.NoIndex, "stack depth %d exceeds declared max %d", depth, m.MaxStack)
	}
	return ok
}
