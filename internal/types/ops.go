package types

import "strings"

// Well-known class names.
const (
	ClassAny     = "kotlin/Any"
	ClassString  = "kotlin/String"
	ClassInt     = "kotlin/Int"
	ClassBoolean = "kotlin/Boolean"
	ClassArray   = "kotlin/Array"
)

// ArrayOf wraps id into depth array dimensions.
func (in *Interner) ArrayOf(id TypeID, depth int) TypeID {
	for i := 0; i < depth; i++ {
		id = in.Array(id)
	}
	return id
}

// MakeNullable returns the nullable variant of id. Star projections are
// returned unchanged.
func (in *Interner) MakeNullable(id TypeID) TypeID {
	tt, ok := in.Lookup(id)
	if !ok || tt.Nullable || tt.Kind == KindStar {
		return id
	}
	tt.Nullable = true
	return in.Intern(tt)
}

// MakeNonNullable strips the nullability flag from id.
func (in *Interner) MakeNonNullable(id TypeID) TypeID {
	tt, ok := in.Lookup(id)
	if !ok || !tt.Nullable {
		return id
	}
	tt.Nullable = false
	return in.Intern(tt)
}

// IsNullable reports whether values of id may be null.
func (in *Interner) IsNullable(id TypeID) bool {
	tt, ok := in.Lookup(id)
	return ok && (tt.Nullable || tt.Kind == KindStar)
}

// IsParam reports whether id is a type parameter.
func (in *Interner) IsParam(id TypeID) bool {
	tt, ok := in.Lookup(id)
	return ok && tt.Kind == KindParam
}

// ReifiedParams lists the names of reified type parameters occurring
// anywhere inside id, in order of first appearance.
func (in *Interner) ReifiedParams(id TypeID) []string {
	var (
		out  []string
		seen = make(map[string]struct{})
		walk func(TypeID)
	)
	walk = func(cur TypeID) {
		tt, ok := in.Lookup(cur)
		if !ok {
			return
		}
		switch tt.Kind {
		case KindParam:
			if _, dup := seen[tt.Name]; tt.Reified && !dup {
				seen[tt.Name] = struct{}{}
				out = append(out, tt.Name)
			}
		case KindArray:
			walk(tt.Elem)
		case KindClass:
			for _, a := range in.Args(cur) {
				walk(a)
			}
		}
	}
	walk(id)
	return out
}

var mutableCollections = map[string]string{
	"kotlin/collections/MutableIterator":         "MutableIterator",
	"kotlin/collections/MutableListIterator":     "MutableListIterator",
	"kotlin/collections/MutableIterable":         "MutableIterable",
	"kotlin/collections/MutableCollection":       "MutableCollection",
	"kotlin/collections/MutableList":             "MutableList",
	"kotlin/collections/MutableSet":              "MutableSet",
	"kotlin/collections/MutableMap":              "MutableMap",
	"kotlin/collections/MutableMap.MutableEntry": "MutableMapEntry",
}

// MutableCollection returns the short name used by the runtime helpers
// (e.g. "MutableList") when id is one of the mutable collection interfaces.
func (in *Interner) MutableCollection(id TypeID) (string, bool) {
	tt, ok := in.Lookup(id)
	if !ok || tt.Kind != KindClass {
		return "", false
	}
	name, ok := mutableCollections[tt.Name]
	return name, ok
}

// IsMutableCollection reports whether id is a mutable collection interface.
func (in *Interner) IsMutableCollection(id TypeID) bool {
	_, ok := in.MutableCollection(id)
	return ok
}

// String renders id in source form, e.g. "Array<T>?" or "kotlin/collections/List<*>".
func (in *Interner) String(id TypeID) string {
	var sb strings.Builder
	in.write(&sb, id)
	return sb.String()
}

func (in *Interner) write(sb *strings.Builder, id TypeID) {
	tt, ok := in.Lookup(id)
	if !ok {
		sb.WriteString("<invalid>")
		return
	}
	switch tt.Kind {
	case KindStar:
		sb.WriteByte('*')
		return
	case KindParam:
		sb.WriteString(tt.Name)
	case KindArray:
		sb.WriteString("Array<")
		in.write(sb, tt.Elem)
		sb.WriteByte('>')
	case KindClass:
		sb.WriteString(tt.Name)
		if args := in.Args(id); len(args) > 0 {
			sb.WriteByte('<')
			for i, a := range args {
				if i > 0 {
					sb.WriteString(", ")
				}
				in.write(sb, a)
			}
			sb.WriteByte('>')
		}
	}
	if tt.Nullable {
		sb.WriteByte('?')
	}
}
