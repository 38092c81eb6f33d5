package marker

import "fmt"

// OperationKind tags the runtime-dependent operation a marker stands for.
// The numeric values are part of the marker encoding and must not change.
type OperationKind uint8

const (
	// NewArray creates an array of the parameter type.
	NewArray OperationKind = iota
	// As is an unchecked cast.
	As
	// SafeAs is a cast yielding null on failure.
	SafeAs
	// Is is a runtime type check.
	Is
	// JavaClass loads the parameter's class token.
	JavaClass
	// EnumReified calls enumValueOf/enumValues for an enum parameter.
	EnumReified
	// TypeOf builds a runtime type descriptor.
	TypeOf

	operationKindCount
)

var operationKindNames = [...]string{
	NewArray:    "NEW_ARRAY",
	As:          "AS",
	SafeAs:      "SAFE_AS",
	Is:          "IS",
	JavaClass:   "JAVA_CLASS",
	EnumReified: "ENUM_REIFIED",
	TypeOf:      "TYPE_OF",
}

// ID returns the integer pushed before the marker call.
func (k OperationKind) ID() int { return int(k) }

func (k OperationKind) String() string {
	if k < operationKindCount {
		return operationKindNames[k]
	}
	return fmt.Sprintf("OperationKind(%d)", k)
}

// OperationKinds lists every kind in id order.
func OperationKinds() []OperationKind {
	out := make([]OperationKind, 0, operationKindCount)
	for k := OperationKind(0); k < operationKindCount; k++ {
		out = append(out, k)
	}
	return out
}

// OperationKindFromID maps an encoded id back to its kind.
func OperationKindFromID(id int) (OperationKind, bool) {
	if id < 0 || id >= int(operationKindCount) {
		return 0, false
	}
	return OperationKind(id), true
}

// ParseOperationKind maps a kind name such as "SAFE_AS" back to its kind.
func ParseOperationKind(name string) (OperationKind, bool) {
	for i, n := range operationKindNames {
		if n == name {
			return OperationKind(i), true
		}
	}
	return 0, false
}
