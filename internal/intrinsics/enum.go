package intrinsics

import "reify/internal/bc"

// EnumValueOfDesc is the descriptor of the static valueOf(String) accessor of enum.
func EnumValueOfDesc(enum bc.Type) string {
	return bc.MethodDesc(enum, bc.StringType)
}

// EnumValuesDesc is the descriptor of the static values() accessor of enum.
func EnumValuesDesc(enum bc.Type) string {
	return bc.MethodDesc(enum.Array(1))
}
