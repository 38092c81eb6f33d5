// Package intrinsics emits the instruction sequences that replace resolved
// reified operation markers: casts, type checks, runtime type descriptors and
// enum accessors. The sequences mirror what the code generator produces for
// the same operations on a concrete type.
package intrinsics

import "reify/internal/bc"

const (
	reflectionClass      = "kotlin/jvm/internal/Reflection"
	typeIntrinsicsClass  = "kotlin/jvm/internal/TypeIntrinsics"
	kTypeProjection      = "kotlin/reflect/KTypeProjection"
	kTypeProjectionComp  = "kotlin/reflect/KTypeProjection$Companion"
	kVarianceClass       = "kotlin/reflect/KVariance"
	typeCastException    = "kotlin/TypeCastException"
	nullPointerException = "java/lang/NullPointerException"
)

var (
	kTypeType           = bc.ObjectTypeOf("kotlin/reflect/KType")
	kClassifierType     = bc.ObjectTypeOf("kotlin/reflect/KClassifier")
	kTypeParameterType  = bc.ObjectTypeOf("kotlin/reflect/KTypeParameter")
	kTypeProjectionType = bc.ObjectTypeOf(kTypeProjection)
	kTypeProjectionComT = bc.ObjectTypeOf(kTypeProjectionComp)
	kVarianceType       = bc.ObjectTypeOf(kVarianceClass)
)

// maxInlineProjections is the largest argument count passed to typeOf as
// separate parameters; longer lists go through an array.
const maxInlineProjections = 3
