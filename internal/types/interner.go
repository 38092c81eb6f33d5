package types

import (
	"fmt"
	"strconv"
	"strings"

	"fortio.org/safecast"
)

// Builtins stores TypeIDs for the classes the rewriters refer to directly.
type Builtins struct {
	Invalid TypeID
	Any     TypeID
	String  TypeID
	Int     TypeID
	Boolean TypeID
	Star    TypeID
}

// Interner provides stable TypeIDs by hashing structural descriptors.
// It is not safe for concurrent mutation; the driver gives every worker
// its own interner or finishes interning before fanning out.
type Interner struct {
	types    []Type
	index    map[typeKey]TypeID
	builtins Builtins

	// args holds class argument lists; slot 0 is the empty list.
	args      [][]TypeID
	argsIndex map[string]uint32
}

// NewInterner constructs an interner seeded with the builtin classes.
func NewInterner() *Interner {
	in := &Interner{
		index:     make(map[typeKey]TypeID, 64),
		argsIndex: make(map[string]uint32, 16),
	}
	in.args = append(in.args, nil) // reserve 0 as the empty argument list
	in.argsIndex[""] = 0
	in.builtins.Invalid = in.internRaw(Type{Kind: KindInvalid})
	in.builtins.Any = in.Intern(MakeClass(ClassAny))
	in.builtins.String = in.Intern(MakeClass(ClassString))
	in.builtins.Int = in.Intern(MakeClass(ClassInt))
	in.builtins.Boolean = in.Intern(MakeClass(ClassBoolean))
	in.builtins.Star = in.Intern(Type{Kind: KindStar})
	return in
}

// Builtins returns TypeIDs for the builtin classes.
func (in *Interner) Builtins() Builtins {
	return in.builtins
}

// Intern ensures the provided descriptor has a stable TypeID.
func (in *Interner) Intern(t Type) TypeID {
	if t.Kind == KindInvalid {
		return NoTypeID
	}
	key := keyOf(t)
	if id, ok := in.index[key]; ok {
		return id
	}
	return in.internRaw(t)
}

// internRaw adds the descriptor to the storage without consulting the map.
func (in *Interner) internRaw(t Type) TypeID {
	lenTypes, err := safecast.Conv[uint32](len(in.types))
	if err != nil {
		panic(fmt.Errorf("len(types) overflow: %w", err))
	}
	id := TypeID(lenTypes)
	in.types = append(in.types, t)
	in.index[keyOf(t)] = id
	return id
}

// Class interns a class type with the given type arguments.
func (in *Interner) Class(name string, args ...TypeID) TypeID {
	t := MakeClass(name)
	t.Args = in.internArgs(args)
	return in.Intern(t)
}

// Param interns a type parameter.
func (in *Interner) Param(name string, reified bool, owner string) TypeID {
	return in.Intern(MakeParam(name, reified, owner))
}

// Array interns Array<elem>.
func (in *Interner) Array(elem TypeID) TypeID {
	return in.Intern(MakeArray(elem))
}

func (in *Interner) internArgs(args []TypeID) uint32 {
	if len(args) == 0 {
		return 0
	}
	var sb strings.Builder
	for i, a := range args {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatUint(uint64(a), 10))
	}
	key := sb.String()
	if slot, ok := in.argsIndex[key]; ok {
		return slot
	}
	slot, err := safecast.Conv[uint32](len(in.args))
	if err != nil {
		panic(fmt.Errorf("args overflow: %w", err))
	}
	in.args = append(in.args, append([]TypeID(nil), args...))
	in.argsIndex[key] = slot
	return slot
}

// Lookup returns the descriptor for a TypeID.
func (in *Interner) Lookup(id TypeID) (Type, bool) {
	if id == NoTypeID || int(id) >= len(in.types) {
		return Type{}, false
	}
	return in.types[id], true
}

// MustLookup panics when id is invalid.
func (in *Interner) MustLookup(id TypeID) Type {
	tt, ok := in.Lookup(id)
	if !ok {
		panic("types: invalid TypeID")
	}
	return tt
}

// Args returns the type arguments of a class type.
func (in *Interner) Args(id TypeID) []TypeID {
	tt, ok := in.Lookup(id)
	if !ok || tt.Kind != KindClass || int(tt.Args) >= len(in.args) {
		return nil
	}
	return in.args[tt.Args]
}

type typeKey struct {
	Kind     Kind
	Name     string
	Elem     TypeID
	Nullable bool
	Reified  bool
	Owner    string
	Args     uint32
}

func keyOf(t Type) typeKey {
	return typeKey(t)
}
