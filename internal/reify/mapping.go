package reify

import (
	"fmt"
	"sort"

	"golang.org/x/text/unicode/norm"

	"reify/internal/bc"
	"reify/internal/marker"
	"reify/internal/types"
)

// TypeMapper maps high-level types to their erased descriptor and generic
// signature. *types.Interner satisfies it.
type TypeMapper interface {
	AsmType(id types.TypeID) bc.Type
	Signature(id types.TypeID) string
}

// TypeArgument binds a type parameter of the inlined function to the type
// supplied at the call site.
type TypeArgument struct {
	Param types.TypeID
	Type  types.TypeID
}

// TypeParameterMapping is the resolved binding of one type parameter.
type TypeParameterMapping struct {
	Name    string
	Type    types.TypeID
	AsmType bc.Type

	// ReificationArgument is set when the bound type is itself a reified
	// parameter of the caller, possibly wrapped into arrays. A nil value
	// means the binding is concrete.
	ReificationArgument *marker.Argument

	Signature string
	IsReified bool

	// Usages names every reified parameter occurring in Type.
	Usages *Usages
}

// TypeParameterMappings is the binding table of one inlining step.
type TypeParameterMappings struct {
	types  *types.Interner
	byName map[string]*TypeParameterMapping
}

// NewTypeParameterMappings resolves args against in. With allReified every
// binding is treated as reified regardless of its declaration. mapper may be
// nil, in which case in maps the types.
func NewTypeParameterMappings(in *types.Interner, args []TypeArgument, allReified bool, mapper TypeMapper) (*TypeParameterMappings, error) {
	if in == nil {
		return nil, fmt.Errorf("reify: mappings need a type interner")
	}
	if mapper == nil {
		mapper = in
	}
	tm := &TypeParameterMappings{
		types:  in,
		byName: make(map[string]*TypeParameterMapping, len(args)),
	}
	for i, arg := range args {
		param, ok := in.Lookup(arg.Param)
		if !ok || param.Kind != types.KindParam {
			return nil, fmt.Errorf("reify: argument %d: %s is not a type parameter", i, in.String(arg.Param))
		}
		if _, ok := in.Lookup(arg.Type); !ok {
			return nil, fmt.Errorf("reify: argument %d: invalid type bound to %s", i, param.Name)
		}
		if _, dup := tm.byName[param.Name]; dup {
			return nil, fmt.Errorf("reify: type parameter %s bound twice", param.Name)
		}
		tm.byName[param.Name] = &TypeParameterMapping{
			Name:                param.Name,
			Type:                arg.Type,
			AsmType:             mapper.AsmType(arg.Type),
			ReificationArgument: extractReificationArgument(in, arg.Type),
			Signature:           mapper.Signature(arg.Type),
			IsReified:           allReified || param.Reified,
			Usages:              NewUsages(in.ReifiedParams(arg.Type)...),
		}
	}
	return tm, nil
}

// extractReificationArgument walks the array wrappers of t down to a reified
// type parameter. Nullability is that of t itself. It returns nil when t does
// not end in a reified parameter or an array level is a star projection.
func extractReificationArgument(in *types.Interner, t types.TypeID) *marker.Argument {
	tt, ok := in.Lookup(t)
	if !ok {
		return nil
	}
	nullable := tt.Nullable
	depth := 0
	for tt.Kind == types.KindArray {
		elem, ok := in.Lookup(tt.Elem)
		if !ok || elem.Kind == types.KindStar {
			return nil
		}
		depth++
		tt = elem
	}
	if tt.Kind != types.KindParam || !tt.Reified {
		return nil
	}
	return &marker.Argument{ParameterName: tt.Name, Nullable: nullable, ArrayDepth: depth}
}

// Types returns the interner the table was built against.
func (tm *TypeParameterMappings) Types() *types.Interner {
	if tm == nil {
		return nil
	}
	return tm.types
}

// Get looks name up byte-exactly, then in NFC. Manifest names are stored
// in NFC; marker operands are kept as written.
func (tm *TypeParameterMappings) Get(name string) (*TypeParameterMapping, bool) {
	if tm == nil {
		return nil, false
	}
	if m, ok := tm.byName[name]; ok {
		return m, true
	}
	m, ok := tm.byName[norm.NFC.String(name)]
	return m, ok
}

// HasReifiedParameters reports whether any binding is reified.
func (tm *TypeParameterMappings) HasReifiedParameters() bool {
	if tm == nil {
		return false
	}
	for _, m := range tm.byName {
		if m.IsReified {
			return true
		}
	}
	return false
}

func (tm *TypeParameterMappings) Len() int {
	if tm == nil {
		return 0
	}
	return len(tm.byName)
}

// Each calls fn for every binding in name order.
func (tm *TypeParameterMappings) Each(fn func(*TypeParameterMapping)) {
	if tm == nil {
		return
	}
	names := make([]string, 0, len(tm.byName))
	for n := range tm.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		fn(tm.byName[n])
	}
}

// reify applies the array depth and nullability of a marker argument to the
// bound type of m.
func (tm *TypeParameterMappings) reify(m *TypeParameterMapping, arg marker.Argument) (types.TypeID, bc.Type) {
	t := tm.types.ArrayOf(m.Type, arg.ArrayDepth)
	if arg.Nullable {
		t = tm.types.MakeNullable(t)
	}
	return t, m.AsmType.Array(arg.ArrayDepth)
}
