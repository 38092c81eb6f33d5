package bc

import "fmt"

// Opcode enumerates the instructions of the stack machine.
type Opcode uint8

const (
	// OpNop does nothing.
	OpNop Opcode = iota
	// OpAConstNull pushes the null reference.
	OpAConstNull
	// OpIConst pushes Instr.Int.
	OpIConst
	// OpLdc pushes Instr.Const.
	OpLdc
	// OpALoad pushes the reference held in local Instr.Var.
	OpALoad
	// OpAStore pops a reference into local Instr.Var.
	OpAStore
	// OpILoad pushes the int held in local Instr.Var.
	OpILoad
	// OpIStore pops an int into local Instr.Var.
	OpIStore
	// OpPop discards the top of the stack.
	OpPop
	// OpDup duplicates the top of the stack.
	OpDup
	// OpSwap swaps the two topmost values.
	OpSwap
	// OpNew allocates an uninitialized instance of Instr.Type.
	OpNew
	// OpANewArray pops a length and pushes an array of Instr.Type.
	OpANewArray
	// OpCheckCast checks the top of the stack against Instr.Type.
	OpCheckCast
	// OpInstanceOf replaces the top of the stack with an int telling whether it is an Instr.Type.
	OpInstanceOf
	// OpGetStatic pushes a static field.
	OpGetStatic
	// OpPutStatic pops into a static field.
	OpPutStatic
	// OpGetField replaces an object with one of its fields.
	OpGetField
	// OpInvokeStatic calls a static method.
	OpInvokeStatic
	// OpInvokeVirtual calls a virtual method.
	OpInvokeVirtual
	// OpInvokeSpecial calls a constructor or private method.
	OpInvokeSpecial
	// OpInvokeInterface calls an interface method.
	OpInvokeInterface
	// OpIfNull jumps to Instr.Label when the popped reference is null.
	OpIfNull
	// OpIfNonNull jumps to Instr.Label when the popped reference is not null.
	OpIfNonNull
	// OpIfEq jumps to Instr.Label when the popped int is zero.
	OpIfEq
	// OpIfNe jumps to Instr.Label when the popped int is not zero.
	OpIfNe
	// OpGoto jumps unconditionally to Instr.Label.
	OpGoto
	// OpLabel marks a jump target; it is not executed.
	OpLabel
	// OpAALoad loads a reference from an array.
	OpAALoad
	// OpAAStore stores a reference into an array.
	OpAAStore
	// OpArrayLength replaces an array with its length.
	OpArrayLength
	// OpAThrow throws the popped reference.
	OpAThrow
	// OpReturn returns void.
	OpReturn
	// OpAReturn returns a reference.
	OpAReturn
	// OpIReturn returns an int.
	OpIReturn

	opcodeCount
)

var opcodeNames = [...]string{
	OpNop:             "nop",
	OpAConstNull:      "aconst_null",
	OpIConst:          "iconst",
	OpLdc:             "ldc",
	OpALoad:           "aload",
	OpAStore:          "astore",
	OpILoad:           "iload",
	OpIStore:          "istore",
	OpPop:             "pop",
	OpDup:             "dup",
	OpSwap:            "swap",
	OpNew:             "new",
	OpANewArray:       "anewarray",
	OpCheckCast:       "checkcast",
	OpInstanceOf:      "instanceof",
	OpGetStatic:       "getstatic",
	OpPutStatic:       "putstatic",
	OpGetField:        "getfield",
	OpInvokeStatic:    "invokestatic",
	OpInvokeVirtual:   "invokevirtual",
	OpInvokeSpecial:   "invokespecial",
	OpInvokeInterface: "invokeinterface",
	OpIfNull:          "ifnull",
	OpIfNonNull:       "ifnonnull",
	OpIfEq:            "ifeq",
	OpIfNe:            "ifne",
	OpGoto:            "goto",
	OpLabel:           "label",
	OpAALoad:          "aaload",
	OpAAStore:         "aastore",
	OpArrayLength:     "arraylength",
	OpAThrow:          "athrow",
	OpReturn:          "return",
	OpAReturn:         "areturn",
	OpIReturn:         "ireturn",
}

func (op Opcode) String() string {
	if op < opcodeCount {
		return opcodeNames[op]
	}
	return fmt.Sprintf("Opcode(%d)", op)
}

// LookupOpcode returns the opcode with the given mnemonic.
func LookupOpcode(name string) (Opcode, bool) {
	for i, n := range opcodeNames {
		if n == name {
			return Opcode(i), true
		}
	}
	return OpNop, false
}

// IsInvoke reports whether op is one of the method call opcodes.
func (op Opcode) IsInvoke() bool {
	switch op {
	case OpInvokeStatic, OpInvokeVirtual, OpInvokeSpecial, OpInvokeInterface:
		return true
	}
	return false
}

// IsJump reports whether op transfers control to Instr.Label.
func (op Opcode) IsJump() bool {
	switch op {
	case OpIfNull, OpIfNonNull, OpIfEq, OpIfNe, OpGoto:
		return true
	}
	return false
}

// IsTypeInsn reports whether op carries its operand in Instr.Type.
func (op Opcode) IsTypeInsn() bool {
	switch op {
	case OpNew, OpANewArray, OpCheckCast, OpInstanceOf:
		return true
	}
	return false
}

// IsFieldInsn reports whether op addresses a field through Owner/Name/Desc.
func (op Opcode) IsFieldInsn() bool {
	switch op {
	case OpGetStatic, OpPutStatic, OpGetField:
		return true
	}
	return false
}

// IsVarInsn reports whether op addresses a local variable slot.
func (op Opcode) IsVarInsn() bool {
	switch op {
	case OpALoad, OpAStore, OpILoad, OpIStore:
		return true
	}
	return false
}

// EndsFlow reports whether control never falls through op.
func (op Opcode) EndsFlow() bool {
	switch op {
	case OpGoto, OpAThrow, OpReturn, OpAReturn, OpIReturn:
		return true
	}
	return false
}
