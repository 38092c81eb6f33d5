package bc

import (
	"fmt"
	"strings"
)

// Type is a field descriptor, e.g. "I", "Ljava/lang/String;" or "[[Ljava/lang/Object;".
type Type string

const (
	VoidType    Type = "V"
	IntType     Type = "I"
	BooleanType Type = "Z"
	LongType    Type = "J"
	DoubleType  Type = "D"

	ObjectType Type = "Ljava/lang/Object;"
	StringType Type = "Ljava/lang/String;"
	ClassType  Type = "Ljava/lang/Class;"
)

// ObjectTypeOf returns the descriptor of a class or array given its internal name.
func ObjectTypeOf(internalName string) Type {
	if strings.HasPrefix(internalName, "[") {
		return Type(internalName)
	}
	return Type("L" + internalName + ";")
}

// InternalName returns the name used by type instructions: the class name for
// object types and the full descriptor for arrays and primitives.
func (t Type) InternalName() string {
	s := string(t)
	if len(s) >= 2 && s[0] == 'L' && s[len(s)-1] == ';' {
		return s[1 : len(s)-1]
	}
	return s
}

// Array wraps t into depth array dimensions.
func (t Type) Array(depth int) Type {
	if depth <= 0 {
		return t
	}
	return Type(strings.Repeat("[", depth) + string(t))
}

// IsArray reports whether t is an array descriptor.
func (t Type) IsArray() bool { return strings.HasPrefix(string(t), "[") }

// IsObject reports whether t is a class or array reference.
func (t Type) IsObject() bool {
	return strings.HasPrefix(string(t), "L") || t.IsArray()
}

// Size returns the number of stack slots a value of t occupies.
func (t Type) Size() int {
	switch t {
	case VoidType:
		return 0
	case LongType, DoubleType:
		return 2
	default:
		return 1
	}
}

// MethodDesc builds a method descriptor.
func MethodDesc(ret Type, args ...Type) string {
	var sb strings.Builder
	sb.WriteByte('(')
	for _, a := range args {
		sb.WriteString(string(a))
	}
	sb.WriteByte(')')
	sb.WriteString(string(ret))
	return sb.String()
}

// ParseMethodDesc splits a method descriptor into argument and return types.
func ParseMethodDesc(desc string) (args []Type, ret Type, err error) {
	if !strings.HasPrefix(desc, "(") {
		return nil, "", fmt.Errorf("method descriptor %q: missing '('", desc)
	}
	i := 1
	for i < len(desc) && desc[i] != ')' {
		n, err := fieldDescLen(desc[i:])
		if err != nil {
			return nil, "", fmt.Errorf("method descriptor %q: %w", desc, err)
		}
		args = append(args, Type(desc[i:i+n]))
		i += n
	}
	if i >= len(desc) {
		return nil, "", fmt.Errorf("method descriptor %q: missing ')'", desc)
	}
	rest := desc[i+1:]
	if rest == string(VoidType) {
		return args, VoidType, nil
	}
	n, err := fieldDescLen(rest)
	if err != nil || n != len(rest) {
		return nil, "", fmt.Errorf("method descriptor %q: bad return type", desc)
	}
	return args, Type(rest), nil
}

func fieldDescLen(s string) (int, error) {
	dims := 0
	for dims < len(s) && s[dims] == '[' {
		dims++
	}
	if dims >= len(s) {
		return 0, fmt.Errorf("truncated type")
	}
	switch s[dims] {
	case 'Z', 'B', 'C', 'S', 'I', 'J', 'F', 'D':
		return dims + 1, nil
	case 'L':
		end := strings.IndexByte(s[dims:], ';')
		if end < 0 {
			return 0, fmt.Errorf("unterminated class type")
		}
		return dims + end + 1, nil
	default:
		return 0, fmt.Errorf("unknown type %q", s[dims])
	}
}
