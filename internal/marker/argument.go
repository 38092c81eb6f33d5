package marker

import "strings"

// Argument describes how a type parameter is used at one marker site:
// which parameter, how many array dimensions wrap it, and whether the
// outermost type is nullable.
type Argument struct {
	ParameterName string
	Nullable      bool
	ArrayDepth    int
}

// String returns the canonical encoding stored in the marker's string operand.
func (a Argument) String() string {
	var sb strings.Builder
	sb.Grow(a.ArrayDepth + len(a.ParameterName) + 1)
	for i := 0; i < a.ArrayDepth; i++ {
		sb.WriteByte('[')
	}
	sb.WriteString(a.ParameterName)
	if a.Nullable {
		sb.WriteByte('?')
	}
	return sb.String()
}

// ParseArgument decodes the canonical encoding. It fails when no parameter
// name remains after the array prefix and nullability suffix are stripped.
func ParseArgument(s string) (Argument, bool) {
	depth := 0
	for depth < len(s) && s[depth] == '[' {
		depth++
	}
	rest := s[depth:]
	nullable := strings.HasSuffix(rest, "?")
	name := strings.TrimSuffix(rest, "?")
	if name == "" {
		return Argument{}, false
	}
	return Argument{ParameterName: name, Nullable: nullable, ArrayDepth: depth}, true
}

// Combine substitutes replacement for the parameter a refers to. The name comes
// from replacement, array depths add up, and the replacement's nullability only
// survives when a does not wrap it in arrays itself. The operation is not
// commutative.
func (a Argument) Combine(replacement Argument) Argument {
	return Argument{
		ParameterName: replacement.ParameterName,
		Nullable:      a.Nullable || (replacement.Nullable && a.ArrayDepth == 0),
		ArrayDepth:    a.ArrayDepth + replacement.ArrayDepth,
	}
}
