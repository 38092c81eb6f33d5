package bc

// Builder appends instructions to a List.
type Builder struct {
	list *List
}

// NewBuilder returns a builder over a fresh list.
func NewBuilder() *Builder { return &Builder{list: NewList()} }

// BuilderFor returns a builder appending to l.
func BuilderFor(l *List) *Builder { return &Builder{list: l} }

// List returns the list being built.
func (b *Builder) List() *List { return b.list }

// Emit appends an arbitrary instruction.
func (b *Builder) Emit(ins Instr) Ref { return b.list.Append(ins) }

func (b *Builder) op(op Opcode) Ref { return b.list.Append(Instr{Op: op}) }

func (b *Builder) NewLabel() LabelID { return b.list.NewLabel() }

func (b *Builder) Mark(l LabelID) Ref { return b.list.Append(Instr{Op: OpLabel, Label: l}) }

func (b *Builder) AConstNull() Ref { return b.op(OpAConstNull) }

func (b *Builder) IConst(v int32) Ref { return b.list.Append(Instr{Op: OpIConst, Int: v}) }

func (b *Builder) Ldc(c Const) Ref { return b.list.Append(Instr{Op: OpLdc, Const: c}) }

func (b *Builder) LdcString(s string) Ref { return b.Ldc(StringConst(s)) }

func (b *Builder) LdcType(t Type) Ref { return b.Ldc(TypeConst(t)) }

func (b *Builder) ALoad(v int) Ref { return b.list.Append(Instr{Op: OpALoad, Var: v}) }

func (b *Builder) AStore(v int) Ref { return b.list.Append(Instr{Op: OpAStore, Var: v}) }

func (b *Builder) Pop() Ref { return b.op(OpPop) }

func (b *Builder) Dup() Ref { return b.op(OpDup) }

func (b *Builder) Swap() Ref { return b.op(OpSwap) }

func (b *Builder) typeInsn(op Opcode, internalName string) Ref {
	return b.list.Append(Instr{Op: op, Type: internalName})
}

func (b *Builder) New(internalName string) Ref { return b.typeInsn(OpNew, internalName) }

func (b *Builder) ANewArray(internalName string) Ref { return b.typeInsn(OpANewArray, internalName) }

func (b *Builder) CheckCast(t Type) Ref { return b.typeInsn(OpCheckCast, t.InternalName()) }

func (b *Builder) InstanceOf(t Type) Ref { return b.typeInsn(OpInstanceOf, t.InternalName()) }

func (b *Builder) member(op Opcode, owner, name, desc string) Ref {
	return b.list.Append(Instr{Op: op, Owner: owner, Name: name, Desc: desc})
}

func (b *Builder) GetStatic(owner, name, desc string) Ref {
	return b.member(OpGetStatic, owner, name, desc)
}

func (b *Builder) InvokeStatic(owner, name, desc string) Ref {
	return b.member(OpInvokeStatic, owner, name, desc)
}

func (b *Builder) InvokeVirtual(owner, name, desc string) Ref {
	return b.member(OpInvokeVirtual, owner, name, desc)
}

func (b *Builder) InvokeSpecial(owner, name, desc string) Ref {
	return b.member(OpInvokeSpecial, owner, name, desc)
}

func (b *Builder) jump(op Opcode, l LabelID) Ref { return b.list.Append(Instr{Op: op, Label: l}) }

func (b *Builder) IfNull(l LabelID) Ref { return b.jump(OpIfNull, l) }

func (b *Builder) IfNonNull(l LabelID) Ref { return b.jump(OpIfNonNull, l) }

func (b *Builder) IfNe(l LabelID) Ref { return b.jump(OpIfNe, l) }

func (b *Builder) IfEq(l LabelID) Ref { return b.jump(OpIfEq, l) }

func (b *Builder) Goto(l LabelID) Ref { return b.jump(OpGoto, l) }

func (b *Builder) AAStore() Ref { return b.op(OpAAStore) }

func (b *Builder) AThrow() Ref { return b.op(OpAThrow) }

func (b *Builder) Return() Ref { return b.op(OpReturn) }

func (b *Builder) AReturn() Ref { return b.op(OpAReturn) }
