package bc

import (
	"errors"
	"fmt"
)

// Method is a function body ready for rewriting.
type Method struct {
	Owner string
	Name  string
	Desc  string

	Code      *List
	MaxStack  int
	MaxLocals int
}

// QualifiedName returns "Owner.Name".
func (m *Method) QualifiedName() string {
	if m == nil {
		return ""
	}
	if m.Owner == "" {
		return m.Name
	}
	return m.Owner + "." + m.Name
}

// Clone deep-copies m.
func (m *Method) Clone() *Method {
	if m == nil {
		return nil
	}
	c := *m
	c.Code = m.Code.Clone()
	return &c
}

// Validate checks structural invariants of m: labels are unique and every
// jump target exists, descriptors parse, and the computed stack depth fits
// the declared MaxStack when one is declared.
func Validate(m *Method) error {
	if m == nil {
		return nil
	}
	var errs []error
	if m.Desc != "" {
		if _, _, err := ParseMethodDesc(m.Desc); err != nil {
			errs = append(errs, err)
		}
	}

	defined := make(map[LabelID]bool)
	for i, ins := range m.Code.Instrs() {
		if ins.Op == OpLabel {
			if defined[ins.Label] {
				errs = append(errs, fmt.Errorf("#%d: label L%d defined twice", i, ins.Label))
			}
			defined[ins.Label] = true
		}
		if ins.Op.IsInvoke() {
			if _, _, err := ParseMethodDesc(ins.Desc); err != nil {
				errs = append(errs, fmt.Errorf("#%d: %w", i, err))
			}
		}
		if ins.Op.IsTypeInsn() && ins.Type == "" {
			errs = append(errs, fmt.Errorf("#%d: %s without type operand", i, ins.Op))
		}
	}
	for i, ins := range m.Code.Instrs() {
		if ins.Op.IsJump() && !defined[ins.Label] {
			errs = append(errs, fmt.Errorf("#%d: jump to undefined label L%d", i, ins.Label))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("method %s: %w", m.QualifiedName(), errors.Join(errs...))
	}

	depth, err := MaxStack(m.Code)
	if err != nil {
		return fmt.Errorf("method %s: %w", m.QualifiedName(), err)
	}
	if m.MaxStack > 0 && depth > m.MaxStack {
		return fmt.Errorf("method %s: stack depth %d exceeds declared max %d", m.QualifiedName(), depth, m.MaxStack)
	}
	return nil
}
