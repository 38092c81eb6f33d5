package asm

import (
	"bufio"
	"fmt"
	"io"

	"reify/internal/bc"
)

// Format writes methods in the syntax accepted by Parse.
func Format(w io.Writer, methods ...*bc.Method) error {
	bw := bufio.NewWriter(w)
	for i, m := range methods {
		if m == nil {
			continue
		}
		if i > 0 {
			bw.WriteByte('\n')
		}
		bw.WriteString("method ")
		bw.WriteString(memberName(m.Owner, m.Name))
		if m.Desc != "" {
			bw.WriteByte(' ')
			bw.WriteString(m.Desc)
		}
		if m.MaxStack > 0 {
			fmt.Fprintf(bw, " stack=%d", m.MaxStack)
		}
		if m.MaxLocals > 0 {
			fmt.Fprintf(bw, " locals=%d", m.MaxLocals)
		}
		bw.WriteByte('\n')
		for _, ins := range m.Code.Instrs() {
			bw.WriteString("  ")
			bw.WriteString(ins.String())
			bw.WriteByte('\n')
		}
		bw.WriteString("end\n")
	}
	return bw.Flush()
}

func memberName(owner, name string) string {
	if owner == "" {
		return name
	}
	return owner + "." + name
}
