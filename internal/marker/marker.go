// Package marker defines the instruction-level encoding of reified operation
// markers. A marker occurrence is exactly three instructions:
//
//	iconst       <operation kind id>
//	ldc          "<argument>"
//	invokestatic kotlin/jvm/internal/Intrinsics.reifiedOperationMarker (ILjava/lang/String;)V
//
// The encoding is shared with the pass that emits markers into generic
// bodies, so it must stay bit-exact.
package marker

import (
	"reify/internal/bc"
)

const (
	// IntrinsicsClass owns both marker methods.
	IntrinsicsClass = "kotlin/jvm/internal/Intrinsics"
	// OperationMarkerName is the name of the reified operation marker method.
	OperationMarkerName = "reifiedOperationMarker"
	// NeedClassReificationMarkerName flags call sites that need class reification support.
	NeedClassReificationMarkerName = "needClassReification"
)

var (
	// OperationMarkerDesc is the descriptor of the operation marker method.
	OperationMarkerDesc = bc.MethodDesc(bc.VoidType, bc.IntType, bc.StringType)
	// NeedClassReificationMarkerDesc is the descriptor of the class reification marker.
	NeedClassReificationMarkerDesc = bc.MethodDesc(bc.VoidType)
)

func isMarker(ins *bc.Instr, name string) bool {
	if ins == nil || ins.Op != bc.OpInvokeStatic {
		return false
	}
	return ins.Owner == IntrinsicsClass && ins.Name == name
}

// IsOperationMarker reports whether ins is a call to the operation marker.
func IsOperationMarker(ins *bc.Instr) bool { return isMarker(ins, OperationMarkerName) }

// IsNeedClassReificationMarker reports whether ins is a call to the class reification marker.
func IsNeedClassReificationMarker(ins *bc.Instr) bool {
	return isMarker(ins, NeedClassReificationMarkerName)
}

// PutNeedClassReificationMarker emits the argument-less class reification marker.
func PutNeedClassReificationMarker(b *bc.Builder) {
	b.InvokeStatic(IntrinsicsClass, NeedClassReificationMarkerName, NeedClassReificationMarkerDesc)
}

// PutOperationMarker emits the three marker instructions.
func PutOperationMarker(b *bc.Builder, kind OperationKind, arg Argument) {
	b.IConst(int32(kind.ID()))
	b.LdcString(arg.String())
	b.InvokeStatic(IntrinsicsClass, OperationMarkerName, OperationMarkerDesc)
}

// PutOperationMarkerIfNeeded emits a marker for a direct use of a type
// parameter, but only when the parameter is reified. It reports whether a
// marker was emitted.
func PutOperationMarkerIfNeeded(b *bc.Builder, name string, reified, nullable bool, kind OperationKind) bool {
	if !reified {
		return false
	}
	PutOperationMarker(b, kind, Argument{ParameterName: name, Nullable: nullable})
	return true
}

// Decode reads the operation kind and argument of the marker call at ref.
// It fails unless ref is a marker call preceded by a string constant push,
// itself preceded by an integer push holding a known kind id.
func Decode(l *bc.List, ref bc.Ref) (OperationKind, Argument, bool) {
	if !IsOperationMarker(l.At(ref)) {
		return 0, Argument{}, false
	}
	argRef := l.Prev(ref)
	raw, ok := l.At(argRef).StringConstant()
	if !ok {
		return 0, Argument{}, false
	}
	id, ok := l.At(l.Prev(argRef)).IntConstant()
	if !ok {
		return 0, Argument{}, false
	}
	kind, ok := OperationKindFromID(int(id))
	if !ok {
		return 0, Argument{}, false
	}
	arg, ok := ParseArgument(raw)
	if !ok {
		return 0, Argument{}, false
	}
	return kind, arg, true
}

// Site is one marker call found by Scan.
type Site struct {
	Ref   bc.Ref
	Index int

	// Decoded is false when the instructions before the call do not form a
	// valid marker; Kind and Argument are then zero.
	Decoded  bool
	Kind     OperationKind
	Argument Argument

	// NeedClassReification marks the argument-less class reification marker.
	NeedClassReification bool
}

// Scan lists every marker call in l in order.
func Scan(l *bc.List) []Site {
	var sites []Site
	for i, ref := range l.Refs() {
		ins := l.At(ref)
		switch {
		case IsOperationMarker(ins):
			kind, arg, ok := Decode(l, ref)
			sites = append(sites, Site{Ref: ref, Index: i, Decoded: ok, Kind: kind, Argument: arg})
		case IsNeedClassReificationMarker(ins):
			sites = append(sites, Site{Ref: ref, Index: i, NeedClassReification: true})
		}
	}
	return sites
}
