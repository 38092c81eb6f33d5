package intrinsics

import (
	"fmt"
	"strings"

	"reify/internal/bc"
	"reify/internal/types"
)

// Generator emits replacement sequences for concrete types of one interner.
type Generator struct {
	Types *types.Interner

	// UnifiedNullChecks selects NullPointerException over TypeCastException
	// for failed non-null casts.
	UnifiedNullChecks bool
}

// New returns a generator over in.
func New(in *types.Interner, unifiedNullChecks bool) *Generator {
	return &Generator{Types: in, UnifiedNullChecks: unifiedNullChecks}
}

func (g *Generator) lookup(t types.TypeID) (types.Type, error) {
	if g == nil || g.Types == nil {
		return types.Type{}, fmt.Errorf("intrinsics: generator has no type interner")
	}
	tt, ok := g.Types.Lookup(t)
	if !ok {
		return types.Type{}, fmt.Errorf("intrinsics: invalid type id %d", t)
	}
	return tt, nil
}

// GenerateAsCast emits a cast of the value on top of the stack to t, whose
// erased descriptor is asm. A safe cast yields null instead of failing; an
// unsafe cast to a non-null type first rejects null with an exception.
func (g *Generator) GenerateAsCast(b *bc.Builder, t types.TypeID, asm bc.Type, safe bool) error {
	if _, err := g.lookup(t); err != nil {
		return err
	}
	switch {
	case safe:
		ok := b.NewLabel()
		b.Dup()
		b.InstanceOf(asm)
		b.IfNe(ok)
		b.Pop()
		b.AConstNull()
		b.Mark(ok)
	case !g.Types.IsNullable(t):
		g.nullCheckForNonSafeAs(b, t)
	}
	g.checkcast(b, t, asm, safe)
	return nil
}

func (g *Generator) nullCheckForNonSafeAs(b *bc.Builder, t types.TypeID) {
	exception := typeCastException
	if g.UnifiedNullChecks {
		exception = nullPointerException
	}
	nonnull := b.NewLabel()
	b.Dup()
	b.IfNonNull(nonnull)
	b.New(exception)
	b.Dup()
	b.LdcString("null cannot be cast to non-null type " + renderFQ(g.Types, t))
	b.InvokeSpecial(exception, "<init>", bc.MethodDesc(bc.VoidType, bc.StringType))
	b.AThrow()
	b.Mark(nonnull)
}

func (g *Generator) checkcast(b *bc.Builder, t types.TypeID, asm bc.Type, safe bool) {
	if name, ok := g.Types.MutableCollection(t); ok {
		method := "as" + name
		if safe {
			method = "safeAs" + name
		}
		b.InvokeStatic(typeIntrinsicsClass, method, bc.MethodDesc(asm, bc.ObjectType))
		return
	}
	b.CheckCast(asm)
}

// GenerateIsCheck replaces the reference on top of the stack with a boolean
// telling whether it is an instance of t. Null is an instance of nullable types.
func (g *Generator) GenerateIsCheck(b *bc.Builder, t types.TypeID, asm bc.Type) error {
	if _, err := g.lookup(t); err != nil {
		return err
	}
	if !g.Types.IsNullable(t) {
		g.instanceOf(b, t, asm)
		return nil
	}
	nope, end := b.NewLabel(), b.NewLabel()
	b.Dup()
	b.IfNull(nope)
	g.instanceOf(b, t, asm)
	b.Goto(end)
	b.Mark(nope)
	b.Pop()
	b.IConst(1)
	b.Mark(end)
	return nil
}

func (g *Generator) instanceOf(b *bc.Builder, t types.TypeID, asm bc.Type) {
	if name, ok := g.Types.MutableCollection(t); ok {
		b.InvokeStatic(typeIntrinsicsClass, "is"+name, bc.MethodDesc(bc.BooleanType, bc.ObjectType))
		return
	}
	b.InstanceOf(asm)
}

// renderFQ renders t with dotted names, as used in exception messages.
func renderFQ(in *types.Interner, t types.TypeID) string {
	tt, ok := in.Lookup(t)
	if !ok {
		return "?"
	}
	var s string
	switch tt.Kind {
	case types.KindArray:
		s = "kotlin.Array<" + renderFQ(in, tt.Elem) + ">"
	case types.KindClass:
		s = strings.ReplaceAll(tt.Name, "/", ".")
		if args := in.Args(t); len(args) > 0 {
			parts := make([]string, len(args))
			for i, a := range args {
				parts[i] = renderFQ(in, a)
			}
			s += "<" + strings.Join(parts, ", ") + ">"
		}
	case types.KindStar:
		return "*"
	default:
		s = tt.Name
	}
	if tt.Nullable {
		s += "?"
	}
	return s
}
