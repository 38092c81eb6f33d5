package reify

import (
	"fmt"

	"reify/internal/bc"
	"reify/internal/intrinsics"
	"reify/internal/marker"
	"reify/internal/types"
)

// Upper bounds of the stack slots the generated cast and check sequences
// need on top of the checked value.
const (
	asCastExtraStack  = 4
	isCheckExtraStack = 2
)

var objectInternalName = bc.ObjectType.InternalName()

// rewrite resolves the marker at ref for the concrete type t with erased
// descriptor asm. It returns the extra stack the replacement needs, or an
// error describing why the follow-up instructions were not rewritten. On
// error the code is left unchanged.
func (r *Inliner) rewrite(code *bc.List, ref bc.Ref, kind marker.OperationKind, t types.TypeID, asm bc.Type) (int, error) {
	switch kind {
	case marker.NewArray:
		return rewriteNewArray(code, ref, asm)
	case marker.As:
		return r.rewriteAs(code, ref, t, asm, false)
	case marker.SafeAs:
		return r.rewriteAs(code, ref, t, asm, true)
	case marker.Is:
		return r.rewriteIs(code, ref, t, asm)
	case marker.JavaClass:
		return rewriteJavaClass(code, ref, asm)
	case marker.EnumReified:
		return rewriteEnum(code, ref, asm)
	case marker.TypeOf:
		return r.rewriteTypeOf(code, ref, t)
	}
	return 0, fmt.Errorf("unsupported operation %s", kind)
}

func expectNext(code *bc.List, at bc.Ref, op bc.Opcode) (bc.Ref, error) {
	next := code.Next(at)
	ins := code.At(next)
	if ins == nil {
		return bc.NoRef, fmt.Errorf("expected %s after marker, found end of code", op)
	}
	if ins.Op != op {
		return bc.NoRef, fmt.Errorf("expected %s after marker, found %s", op, ins.Op)
	}
	return next, nil
}

func rewriteNewArray(code *bc.List, ref bc.Ref, asm bc.Type) (int, error) {
	next, err := expectNext(code, ref, bc.OpANewArray)
	if err != nil {
		return 0, err
	}
	ins := *code.At(next)
	ins.Type = asm.InternalName()
	code.Set(next, ins)
	return 0, nil
}

// rewriteAs splices the generated cast after the marker. A stub cast to
// Object is dropped; any other stub stays so frame merges keep its type.
func (r *Inliner) rewriteAs(code *bc.List, ref bc.Ref, t types.TypeID, asm bc.Type, safe bool) (int, error) {
	stub, err := expectNext(code, ref, bc.OpCheckCast)
	if err != nil {
		return 0, err
	}
	b := bc.NewBuilder()
	if err := r.codegen.GenerateAsCast(b, t, asm, safe); err != nil {
		return 0, err
	}
	stubType := code.At(stub).Type
	code.Splice(ref, b.List())
	if stubType == objectInternalName {
		code.Remove(stub)
	}
	return asCastExtraStack, nil
}

func (r *Inliner) rewriteIs(code *bc.List, ref bc.Ref, t types.TypeID, asm bc.Type) (int, error) {
	stub, err := expectNext(code, ref, bc.OpInstanceOf)
	if err != nil {
		return 0, err
	}
	b := bc.NewBuilder()
	if err := r.codegen.GenerateIsCheck(b, t, asm); err != nil {
		return 0, err
	}
	code.Splice(ref, b.List())
	code.Remove(stub)
	return isCheckExtraStack, nil
}

func rewriteJavaClass(code *bc.List, ref bc.Ref, asm bc.Type) (int, error) {
	next, err := expectNext(code, ref, bc.OpLdc)
	if err != nil {
		return 0, err
	}
	ins := *code.At(next)
	ins.Const = bc.TypeConst(asm)
	code.Set(next, ins)
	return 0, nil
}

// rewriteEnum handles the two shapes left by enumValueOf and enumValues:
//
//	aconst_null; aload n; invoke* valueOf   -> aload n; invoke* E.valueOf
//	iconst 0; anewarray Stub                -> invokestatic E.values
func rewriteEnum(code *bc.List, ref bc.Ref, asm bc.Type) (int, error) {
	r1 := code.Next(ref)
	r2 := code.Next(r1)
	i1, i2 := code.At(r1), code.At(r2)
	if i1 == nil || i2 == nil {
		return 0, fmt.Errorf("expected enum accessor after marker, found end of code")
	}
	switch {
	case i1.Op == bc.OpAConstNull && i2.Op == bc.OpALoad:
		r3 := code.Next(r2)
		call := code.At(r3)
		if call == nil || !call.Op.IsInvoke() || call.Name != "valueOf" {
			return 0, fmt.Errorf("expected valueOf call after enum name load")
		}
		updated := *call
		updated.Owner = asm.InternalName()
		updated.Desc = intrinsics.EnumValueOfDesc(asm)
		code.Set(r3, updated)
		code.Remove(r1)
	case i1.Op == bc.OpIConst && i1.Int == 0 && i2.Op == bc.OpANewArray:
		code.Remove(r1)
		code.Remove(r2)
		code.InsertAfter(ref, bc.Instr{
			Op:    bc.OpInvokeStatic,
			Owner: asm.InternalName(),
			Name:  "values",
			Desc:  intrinsics.EnumValuesDesc(asm),
		})
	default:
		return 0, fmt.Errorf("expected enum accessor after marker, found %s; %s", i1.Op, i2.Op)
	}
	return 0, nil
}

// rewriteTypeOf replaces the null placeholder with a type descriptor
// construction. Its stack need depends on the shape of t, so it is measured.
func (r *Inliner) rewriteTypeOf(code *bc.List, ref bc.Ref, t types.TypeID) (int, error) {
	placeholder, err := expectNext(code, ref, bc.OpAConstNull)
	if err != nil {
		return 0, err
	}
	b := bc.NewBuilder()
	if err := r.codegen.GenerateTypeOf(b, t); err != nil {
		return 0, err
	}
	depth, err := bc.MaxStack(b.List())
	if err != nil {
		return 0, fmt.Errorf("typeOf sequence: %w", err)
	}
	code.Splice(ref, b.List())
	code.Remove(placeholder)
	return depth, nil
}
