package types

import "fmt"

// TypeID uniquely identifies a type inside the interner.
type TypeID uint32

// NoTypeID marks the absence of a type.
const NoTypeID TypeID = 0

// Kind enumerates all supported kinds of types.
type Kind uint8

const (
	KindInvalid Kind = iota
	// KindClass is a named class, possibly with type arguments.
	KindClass
	// KindArray is Array<Elem>.
	KindArray
	// KindParam is a type parameter.
	KindParam
	// KindStar is the star projection, only valid as a type argument.
	KindStar
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindClass:
		return "class"
	case KindArray:
		return "array"
	case KindParam:
		return "param"
	case KindStar:
		return "star"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Type is a compact descriptor for any supported type.
type Type struct {
	Kind     Kind
	Name     string // class name ("kotlin/String") or parameter name
	Elem     TypeID // for arrays
	Nullable bool

	// for parameters
	Reified bool
	Owner   string // internal name of the declaring class or file facade

	// Args is the payload slot of the class's type arguments.
	Args uint32
}

// Descriptor helpers ---------------------------------------------------------

// MakeClass describes a class without arguments; use Interner.Class for generic classes.
func MakeClass(name string) Type {
	return Type{Kind: KindClass, Name: name}
}

// MakeParam describes a type parameter declared by owner.
func MakeParam(name string, reified bool, owner string) Type {
	return Type{Kind: KindParam, Name: name, Reified: reified, Owner: owner}
}

// MakeArray describes Array<elem>.
func MakeArray(elem TypeID) Type {
	return Type{Kind: KindArray, Elem: elem}
}
