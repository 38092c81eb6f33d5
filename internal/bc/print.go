package bc

import (
	"fmt"
	"io"
)

// Dump writes a numbered listing of m.
func Dump(w io.Writer, m *Method) error {
	if w == nil || m == nil {
		return nil
	}
	if _, err := fmt.Fprintf(w, "%s %s stack=%d locals=%d\n", m.QualifiedName(), m.Desc, m.MaxStack, m.MaxLocals); err != nil {
		return err
	}
	for i, ins := range m.Code.Instrs() {
		var err error
		if ins.Op == OpLabel {
			_, err = fmt.Fprintf(w, "  L%d:\n", ins.Label)
		} else {
			_, err = fmt.Fprintf(w, "  %4d  %s\n", i, ins)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
