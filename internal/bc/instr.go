package bc

import (
	"fmt"
	"strconv"
)

// LabelID identifies a jump target inside one List.
type LabelID int32

// NoLabel marks the absence of a label.
const NoLabel LabelID = 0

// ConstKind distinguishes constant pool entries loaded by ldc.
type ConstKind uint8

const (
	// ConstInt is an int constant.
	ConstInt ConstKind = iota
	// ConstString is a string constant.
	ConstString
	// ConstType is a class token constant.
	ConstType
)

// Const is an ldc operand.
type Const struct {
	Kind ConstKind
	Int  int32
	Str  string
	Type Type
}

// StringConst returns a string constant.
func StringConst(s string) Const { return Const{Kind: ConstString, Str: s} }

// TypeConst returns a class token constant.
func TypeConst(t Type) Const { return Const{Kind: ConstType, Type: t} }

// IntConst returns an int constant.
func IntConst(v int32) Const { return Const{Kind: ConstInt, Int: v} }

func (c Const) String() string {
	switch c.Kind {
	case ConstInt:
		return strconv.FormatInt(int64(c.Int), 10)
	case ConstString:
		return strconv.Quote(c.Str)
	case ConstType:
		return "type:" + string(c.Type)
	default:
		return fmt.Sprintf("ConstKind(%d)", c.Kind)
	}
}

// Instr is a single instruction. Only the operand fields relevant to Op are meaningful.
type Instr struct {
	Op Opcode

	Int   int32   // OpIConst
	Const Const   // OpLdc
	Type  string  // type instructions: internal name
	Var   int     // local variable instructions
	Label LabelID // jumps (target) and OpLabel (definition)

	// field and method instructions
	Owner string
	Name  string
	Desc  string
}

// IntConstant returns the int pushed by ins, if it is an integer push.
func (ins *Instr) IntConstant() (int32, bool) {
	if ins == nil {
		return 0, false
	}
	switch ins.Op {
	case OpIConst:
		return ins.Int, true
	case OpLdc:
		if ins.Const.Kind == ConstInt {
			return ins.Const.Int, true
		}
	}
	return 0, false
}

// StringConstant returns the string pushed by ins, if it is a string ldc.
func (ins *Instr) StringConstant() (string, bool) {
	if ins == nil || ins.Op != OpLdc || ins.Const.Kind != ConstString {
		return "", false
	}
	return ins.Const.Str, true
}

func (ins Instr) String() string {
	switch {
	case ins.Op == OpIConst:
		return fmt.Sprintf("%s %d", ins.Op, ins.Int)
	case ins.Op == OpLdc:
		return fmt.Sprintf("%s %s", ins.Op, ins.Const)
	case ins.Op == OpLabel || ins.Op.IsJump():
		return fmt.Sprintf("%s L%d", ins.Op, ins.Label)
	case ins.Op.IsVarInsn():
		return fmt.Sprintf("%s %d", ins.Op, ins.Var)
	case ins.Op.IsTypeInsn():
		return fmt.Sprintf("%s %s", ins.Op, ins.Type)
	case ins.Op.IsInvoke(), ins.Op.IsFieldInsn():
		return fmt.Sprintf("%s %s.%s %s", ins.Op, ins.Owner, ins.Name, ins.Desc)
	default:
		return ins.Op.String()
	}
}
