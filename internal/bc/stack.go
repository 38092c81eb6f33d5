package bc

import (
	"errors"
	"fmt"
)

var (
	ErrStackUnderflow = errors.New("stack underflow")
	ErrStackMismatch  = errors.New("stack depth mismatch")
)

// StackEffect returns how many slots ins pops and pushes.
func StackEffect(ins Instr) (pop, push int, err error) {
	switch ins.Op {
	case OpNop, OpLabel, OpGoto, OpReturn:
		return 0, 0, nil
	case OpAConstNull, OpIConst, OpALoad, OpILoad, OpNew:
		return 0, 1, nil
	case OpLdc:
		return 0, 1, nil
	case OpAStore, OpIStore, OpPop, OpIfNull, OpIfNonNull, OpIfEq, OpIfNe, OpAThrow, OpAReturn, OpIReturn:
		return 1, 0, nil
	case OpDup:
		return 1, 2, nil
	case OpSwap:
		return 2, 2, nil
	case OpANewArray, OpCheckCast, OpInstanceOf, OpArrayLength:
		return 1, 1, nil
	case OpAALoad:
		return 2, 1, nil
	case OpAAStore:
		return 3, 0, nil
	case OpGetStatic:
		return 0, Type(ins.Desc).Size(), nil
	case OpPutStatic:
		return Type(ins.Desc).Size(), 0, nil
	case OpGetField:
		return 1, Type(ins.Desc).Size(), nil
	case OpInvokeStatic, OpInvokeVirtual, OpInvokeSpecial, OpInvokeInterface:
		args, ret, err := ParseMethodDesc(ins.Desc)
		if err != nil {
			return 0, 0, err
		}
		for _, a := range args {
			pop += a.Size()
		}
		if ins.Op != OpInvokeStatic {
			pop++
		}
		return pop, ret.Size(), nil
	}
	return 0, 0, fmt.Errorf("unknown opcode %v", ins.Op)
}

// MaxStack computes the largest operand stack depth reached by the code in l,
// starting from an empty stack at its first instruction. Branches are followed;
// all paths meeting at a label must agree on the depth.
func MaxStack(l *List) (int, error) {
	return MaxStackFrom(l, 0)
}

// MaxStackFrom is MaxStack for a fragment entered with initial slots already
// on the stack. The result includes those slots.
func MaxStackFrom(l *List, initial int) (int, error) {
	instrs := l.Instrs()
	if len(instrs) == 0 {
		return 0, nil
	}
	labels := make(map[LabelID]int)
	for i, ins := range instrs {
		if ins.Op == OpLabel {
			if _, dup := labels[ins.Label]; dup {
				return 0, fmt.Errorf("label L%d defined twice", ins.Label)
			}
			labels[ins.Label] = i
		}
	}

	depth := make([]int, len(instrs))
	for i := range depth {
		depth[i] = -1
	}
	maxDepth := initial
	work := []int{0}
	depth[0] = initial

	enqueue := func(at, d int) error {
		if at >= len(instrs) {
			return nil
		}
		switch {
		case depth[at] < 0:
			depth[at] = d
			work = append(work, at)
		case depth[at] != d:
			return fmt.Errorf("#%d: %w (%d vs %d)", at, ErrStackMismatch, depth[at], d)
		}
		return nil
	}

	for len(work) > 0 {
		i := work[len(work)-1]
		work = work[:len(work)-1]
		ins := instrs[i]
		pop, push, err := StackEffect(ins)
		if err != nil {
			return 0, fmt.Errorf("#%d %s: %w", i, ins, err)
		}
		d := depth[i]
		if d < pop {
			return 0, fmt.Errorf("#%d %s: %w", i, ins, ErrStackUnderflow)
		}
		d = d - pop + push
		if d > maxDepth {
			maxDepth = d
		}
		if ins.Op.IsJump() {
			target, ok := labels[ins.Label]
			if !ok {
				return 0, fmt.Errorf("#%d %s: unknown label", i, ins)
			}
			if err := enqueue(target, d); err != nil {
				return 0, err
			}
		}
		if !ins.Op.EndsFlow() {
			if err := enqueue(i+1, d); err != nil {
				return 0, err
			}
		}
	}
	return maxDepth, nil
}
