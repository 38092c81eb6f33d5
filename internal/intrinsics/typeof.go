package intrinsics

import (
	"fmt"

	"reify/internal/bc"
	"reify/internal/marker"
	"reify/internal/types"
)

// GenerateTypeOf pushes a kotlin.reflect.KType describing t. Reified type
// parameters still present in t become nested TYPE_OF markers followed by
// a null placeholder, so an enclosing inlining step can complete them.
func (g *Generator) GenerateTypeOf(b *bc.Builder, t types.TypeID) error {
	tt, err := g.lookup(t)
	if err != nil {
		return err
	}
	method := "typeOf"
	if tt.Nullable {
		method = "nullableTypeOf"
	}

	switch tt.Kind {
	case types.KindStar:
		return fmt.Errorf("intrinsics: typeOf of a star projection")
	case types.KindParam:
		if tt.Reified {
			marker.PutOperationMarker(b, marker.TypeOf, marker.Argument{ParameterName: tt.Name, Nullable: tt.Nullable})
			b.AConstNull()
			return nil
		}
		g.typeParameter(b, tt)
		b.InvokeStatic(reflectionClass, method, bc.MethodDesc(kTypeType, kClassifierType))
		return nil
	}

	b.LdcType(g.Types.AsmType(t))

	var args []types.TypeID
	if tt.Kind == types.KindArray {
		args = []types.TypeID{tt.Elem}
	} else {
		args = g.Types.Args(t)
	}
	useArray := len(args) > maxInlineProjections
	if useArray {
		b.IConst(int32(len(args)))
		b.ANewArray(kTypeProjection)
	}
	for i, a := range args {
		if useArray {
			b.Dup()
			b.IConst(int32(i))
		}
		if err := g.projection(b, a); err != nil {
			return err
		}
		if useArray {
			b.AAStore()
		}
	}

	params := []bc.Type{bc.ClassType}
	if useArray {
		params = append(params, kTypeProjectionType.Array(1))
	} else {
		for range args {
			params = append(params, kTypeProjectionType)
		}
	}
	b.InvokeStatic(reflectionClass, method, bc.MethodDesc(kTypeType, params...))
	return nil
}

func (g *Generator) projection(b *bc.Builder, arg types.TypeID) error {
	b.GetStatic(kTypeProjection, "Companion", string(kTypeProjectionComT))
	if tt, ok := g.Types.Lookup(arg); ok && tt.Kind == types.KindStar {
		b.InvokeVirtual(kTypeProjectionComp, "getSTAR", bc.MethodDesc(kTypeProjectionType))
		return nil
	}
	if err := g.GenerateTypeOf(b, arg); err != nil {
		return err
	}
	b.InvokeVirtual(kTypeProjectionComp, "invariant", bc.MethodDesc(kTypeProjectionType, kTypeType))
	return nil
}

// typeParameter pushes the KTypeParameter of a non-reified parameter.
func (g *Generator) typeParameter(b *bc.Builder, tt types.Type) {
	if tt.Owner != "" {
		b.LdcType(bc.ObjectTypeOf(tt.Owner))
	} else {
		b.AConstNull()
	}
	b.LdcString(tt.Name)
	b.GetStatic(kVarianceClass, "INVARIANT", string(kVarianceType))
	b.IConst(0)
	b.InvokeStatic(reflectionClass, "typeParameter",
		bc.MethodDesc(kTypeParameterType, bc.ObjectType, bc.StringType, kVarianceType, bc.BooleanType))
}
