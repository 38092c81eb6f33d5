package types

import (
	"strings"

	"reify/internal/bc"
)

// jvmNames maps classes to the JVM class used when the type appears as a
// generic argument: primitives are boxed, read-only and mutable collection
// interfaces share one java.util interface.
var jvmNames = map[string]string{
	ClassAny:              "java/lang/Object",
	ClassString:           "java/lang/String",
	ClassInt:              "java/lang/Integer",
	ClassBoolean:          "java/lang/Boolean",
	"kotlin/Long":         "java/lang/Long",
	"kotlin/Short":        "java/lang/Short",
	"kotlin/Byte":         "java/lang/Byte",
	"kotlin/Char":         "java/lang/Character",
	"kotlin/Float":        "java/lang/Float",
	"kotlin/Double":       "java/lang/Double",
	"kotlin/Number":       "java/lang/Number",
	"kotlin/CharSequence": "java/lang/CharSequence",
	"kotlin/Comparable":   "java/lang/Comparable",
	"kotlin/Enum":         "java/lang/Enum",
	"kotlin/Throwable":    "java/lang/Throwable",
	"kotlin/Nothing":      "java/lang/Void",
	"kotlin/IntArray":     "[I",
	"kotlin/BooleanArray": "[Z",
	"kotlin/LongArray":    "[J",
	"kotlin/ShortArray":   "[S",
	"kotlin/ByteArray":    "[B",
	"kotlin/CharArray":    "[C",
	"kotlin/FloatArray":   "[F",
	"kotlin/DoubleArray":  "[D",

	"kotlin/collections/Iterable":                "java/lang/Iterable",
	"kotlin/collections/MutableIterable":         "java/lang/Iterable",
	"kotlin/collections/Iterator":                "java/util/Iterator",
	"kotlin/collections/MutableIterator":         "java/util/Iterator",
	"kotlin/collections/ListIterator":            "java/util/ListIterator",
	"kotlin/collections/MutableListIterator":     "java/util/ListIterator",
	"kotlin/collections/Collection":              "java/util/Collection",
	"kotlin/collections/MutableCollection":       "java/util/Collection",
	"kotlin/collections/List":                    "java/util/List",
	"kotlin/collections/MutableList":             "java/util/List",
	"kotlin/collections/Set":                     "java/util/Set",
	"kotlin/collections/MutableSet":              "java/util/Set",
	"kotlin/collections/Map":                     "java/util/Map",
	"kotlin/collections/MutableMap":              "java/util/Map",
	"kotlin/collections/Map.Entry":               "java/util/Map$Entry",
	"kotlin/collections/MutableMap.MutableEntry": "java/util/Map$Entry",
}

// JVMClassName returns the internal name of the JVM class behind a class name.
// Nested classes written with '.' are joined with '$'.
func JVMClassName(name string) string {
	if mapped, ok := jvmNames[name]; ok {
		return mapped
	}
	return strings.ReplaceAll(name, ".", "$")
}

// AsmType returns the descriptor of id as seen by generic code: type
// parameters and star projections erase to java/lang/Object.
func (in *Interner) AsmType(id TypeID) bc.Type {
	tt, ok := in.Lookup(id)
	if !ok {
		return bc.ObjectType
	}
	switch tt.Kind {
	case KindClass:
		return bc.ObjectTypeOf(JVMClassName(tt.Name))
	case KindArray:
		return in.AsmType(tt.Elem).Array(1)
	default:
		return bc.ObjectType
	}
}

// Signature returns the generic signature of id, e.g.
// "Ljava/util/List<Ljava/lang/String;>;" or "[TT;".
func (in *Interner) Signature(id TypeID) string {
	var sb strings.Builder
	in.writeSignature(&sb, id, false)
	return sb.String()
}

func (in *Interner) writeSignature(sb *strings.Builder, id TypeID, argument bool) {
	tt, ok := in.Lookup(id)
	if !ok {
		sb.WriteString(string(bc.ObjectType))
		return
	}
	switch tt.Kind {
	case KindStar:
		if argument {
			sb.WriteByte('*')
		} else {
			sb.WriteString(string(bc.ObjectType))
		}
	case KindParam:
		sb.WriteByte('T')
		sb.WriteString(tt.Name)
		sb.WriteByte(';')
	case KindArray:
		sb.WriteByte('[')
		in.writeSignature(sb, tt.Elem, false)
	case KindClass:
		name := JVMClassName(tt.Name)
		if strings.HasPrefix(name, "[") {
			sb.WriteString(name)
			return
		}
		sb.WriteByte('L')
		sb.WriteString(name)
		if args := in.Args(id); len(args) > 0 {
			sb.WriteByte('<')
			for _, a := range args {
				in.writeSignature(sb, a, true)
			}
			sb.WriteByte('>')
		}
		sb.WriteByte(';')
	}
}
