package bc

import (
	"testing"
)

func opsOf(l *List) []Opcode {
	var out []Opcode
	for _, ins := range l.Instrs() {
		out = append(out, ins.Op)
	}
	return out
}

func equalOps(a, b []Opcode) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestListAppendInsertRemove(t *testing.T) {
	l := NewList()
	a := l.Append(Instr{Op: OpAConstNull})
	c := l.Append(Instr{Op: OpPop})
	b := l.InsertAfter(a, Instr{Op: OpDup})
	l.InsertAfter(NoRef, Instr{Op: OpNop})

	want := []Opcode{OpNop, OpAConstNull, OpDup, OpPop}
	if got := opsOf(l); !equalOps(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if l.Len() != 4 {
		t.Fatalf("expected length 4, got %d", l.Len())
	}

	if !l.Remove(b) {
		t.Fatalf("expected dup to be removed")
	}
	if l.Valid(b) {
		t.Fatalf("removed ref must become invalid")
	}
	if l.Remove(b) {
		t.Fatalf("double remove must report false")
	}
	if l.Next(a) != c {
		t.Errorf("expected pop to follow aconst_null after removal")
	}
	if l.Prev(c) != a {
		t.Errorf("expected aconst_null to precede pop after removal")
	}
}

func TestListGenerationInvalidatesReusedSlot(t *testing.T) {
	l := NewList()
	a := l.Append(Instr{Op: OpNop})
	l.Remove(a)
	b := l.Append(Instr{Op: OpPop})
	if l.Valid(a) {
		t.Fatalf("stale ref must not alias the reused slot")
	}
	if got := l.At(b); got == nil || got.Op != OpPop {
		t.Fatalf("expected pop at new ref, got %v", got)
	}
}

func TestListSnapshotSurvivesEdits(t *testing.T) {
	l := ListOf(
		Instr{Op: OpIConst, Int: 1},
		Instr{Op: OpIConst, Int: 2},
		Instr{Op: OpIConst, Int: 3},
	)
	refs := l.Refs()
	l.Remove(refs[0])
	l.InsertAfter(refs[1], Instr{Op: OpPop})

	var live []int32
	for _, r := range refs {
		if ins := l.At(r); ins != nil {
			live = append(live, ins.Int)
		}
	}
	if len(live) != 2 || live[0] != 2 || live[1] != 3 {
		t.Fatalf("expected snapshot to see [2 3], got %v", live)
	}
	if got := l.Instrs(); len(got) != 3 || got[2].Int != 3 {
		t.Errorf("expected iconst 3 at index 2, got %v", got)
	}
}

func TestListSpliceRelabels(t *testing.T) {
	l := NewList()
	own := l.NewLabel()
	head := l.Append(Instr{Op: OpLabel, Label: own})
	l.Append(Instr{Op: OpReturn})

	frag := NewBuilder()
	skip := frag.NewLabel()
	frag.Goto(skip)
	frag.Mark(skip)

	last := l.Splice(head, frag.List())
	if frag.List().Len() != 0 {
		t.Fatalf("splice must drain the fragment")
	}
	if l.Len() != 4 {
		t.Fatalf("expected 4 instructions, got %d", l.Len())
	}
	instrs := l.Instrs()
	if instrs[1].Op != OpGoto || instrs[2].Op != OpLabel {
		t.Fatalf("unexpected layout %v", opsOf(l))
	}
	if instrs[1].Label == own {
		t.Errorf("spliced label must not clash with existing label L%d", own)
	}
	if instrs[1].Label != instrs[2].Label {
		t.Errorf("jump and its target must stay paired, got L%d and L%d", instrs[1].Label, instrs[2].Label)
	}
	if l.At(last).Op != OpLabel {
		t.Errorf("expected splice to return the last moved instruction")
	}
}

func TestListSetKeepsRef(t *testing.T) {
	l := NewList()
	r := l.Append(Instr{Op: OpLdc, Const: StringConst("T")})
	l.Set(r, Instr{Op: OpLdc, Const: StringConst("[T")})
	if s, _ := l.At(r).StringConstant(); s != "[T" {
		t.Fatalf("expected replaced constant, got %q", s)
	}
}
