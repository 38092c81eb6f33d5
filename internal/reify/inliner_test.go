package reify_test

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"reify/internal/bc"
	"reify/internal/diag"
	"reify/internal/marker"
	"reify/internal/reify"
	"reify/internal/types"
)

func method(build func(b *bc.Builder)) *bc.Method {
	b := bc.NewBuilder()
	build(b)
	return &bc.Method{Owner: "demo/CallerKt", Name: "caller", Desc: "()Ljava/lang/Object;", Code: b.List(), MaxStack: 2}
}

// bindT binds the reified parameter T to bound.
func bindT(t *testing.T, in *types.Interner, bound types.TypeID) *reify.TypeParameterMappings {
	t.Helper()
	tm, err := reify.NewTypeParameterMappings(in, []reify.TypeArgument{
		{Param: in.Param("T", true, "demo/CalleeKt"), Type: bound},
	}, false, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return tm
}

func reifyT(t *testing.T, in *types.Interner, bound types.TypeID, m *bc.Method) reify.Result {
	t.Helper()
	res, err := reify.NewInliner(bindT(t, in, bound), nil, reify.Options{}).ReifyInstructions(m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return res
}

func arg(name string) marker.Argument {
	a, _ := marker.ParseArgument(name)
	return a
}

func TestNoReifiedParametersLeavesBodyUntouched(t *testing.T) {
	in := types.NewInterner()
	tm, err := reify.NewTypeParameterMappings(in, []reify.TypeArgument{
		{Param: in.Param("T", false, ""), Type: in.Builtins().String},
	}, false, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	build := func(b *bc.Builder) {
		b.IConst(1)
		marker.PutOperationMarker(b, marker.NewArray, arg("T"))
		b.ANewArray("java/lang/Object")
		b.AReturn()
	}
	m := method(build)
	want := method(build).Code.Instrs()

	for _, mappings := range []*reify.TypeParameterMappings{tm, nil} {
		res, err := reify.NewInliner(mappings, nil, reify.Options{}).ReifyInstructions(m)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !reflect.DeepEqual(m.Code.Instrs(), want) {
			t.Errorf("expected body unchanged, got %v", m.Code.Instrs())
		}
		if res.Usages.WereUsed() || m.MaxStack != 2 {
			t.Errorf("expected empty usages and untouched max stack, got %v / %d", res.Usages.Names(), m.MaxStack)
		}
	}
}

func TestNewArrayConcrete(t *testing.T) {
	in := types.NewInterner()
	m := method(func(b *bc.Builder) {
		b.IConst(3)
		marker.PutOperationMarker(b, marker.NewArray, arg("T"))
		b.ANewArray("Stub")
		b.AReturn()
	})
	before := m.Code.Len()
	res := reifyT(t, in, in.Builtins().String, m)

	if m.Code.Len() != before-3 {
		t.Errorf("expected exactly 3 instructions removed, got %d -> %d", before, m.Code.Len())
	}
	want := []bc.Instr{
		{Op: bc.OpIConst, Int: 3},
		{Op: bc.OpANewArray, Type: "java/lang/String"},
		{Op: bc.OpAReturn},
	}
	if got := m.Code.Instrs(); !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
	if res.Rewritten != 1 || res.ExtraStack != 0 || m.MaxStack != 2 {
		t.Errorf("unexpected result %+v, max stack %d", res, m.MaxStack)
	}
}

func TestNewArrayFoldsMarkerDepth(t *testing.T) {
	in := types.NewInterner()
	m := method(func(b *bc.Builder) {
		b.IConst(3)
		marker.PutOperationMarker(b, marker.NewArray, arg("[T"))
		b.ANewArray("Stub")
		b.AReturn()
	})
	reifyT(t, in, in.Builtins().String, m)
	if got := m.Code.Instrs()[1].Type; got != "[Ljava/lang/String;" {
		t.Errorf("expected array element type [Ljava/lang/String;, got %s", got)
	}
}

func TestDeferredMarkerIsReencoded(t *testing.T) {
	in := types.NewInterner()
	outerT := in.Param("T", true, "demo/OuterKt")
	tm, err := reify.NewTypeParameterMappings(in, []reify.TypeArgument{
		{Param: in.Param("V", true, "demo/InnerKt"), Type: in.ArrayOf(outerT, 1)},
	}, false, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m := method(func(b *bc.Builder) {
		b.ALoad(0)
		marker.PutOperationMarker(b, marker.As, arg("V"))
		b.CheckCast(bc.ObjectType)
		marker.PutOperationMarker(b, marker.Is, arg("V?"))
		b.InstanceOf(bc.ObjectType)
		b.Emit(bc.Instr{Op: bc.OpIReturn})
	})
	before := m.Code.Len()
	res, err := reify.NewInliner(tm, nil, reify.Options{}).ReifyInstructions(m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Code.Len() != before {
		t.Errorf("expected instruction count %d, got %d", before, m.Code.Len())
	}
	sites := marker.Scan(m.Code)
	if len(sites) != 2 {
		t.Fatalf("expected both markers to survive, got %+v", sites)
	}
	want := marker.Argument{ParameterName: "T", ArrayDepth: 1}
	if sites[0].Argument != want || sites[0].Argument.String() != "[T" || sites[0].Kind != marker.As {
		t.Errorf("expected AS %+v, got %s %+v", want, sites[0].Kind, sites[0].Argument)
	}
	// The nullability of V? belongs to the outer array.
	if got := sites[1].Argument.String(); got != "[T?" || sites[1].Kind != marker.Is {
		t.Errorf("expected IS \"[T?\", got %s %q", sites[1].Kind, got)
	}
	if res.Deferred != 2 || !reflect.DeepEqual(res.Usages.Names(), []string{"T"}) {
		t.Errorf("unexpected result %+v (usages %v)", res, res.Usages.Names())
	}
	if m.MaxStack != 2 {
		t.Errorf("expected max stack untouched, got %d", m.MaxStack)
	}
}

func TestAsCastRemovesObjectStub(t *testing.T) {
	in := types.NewInterner()
	m := method(func(b *bc.Builder) {
		b.ALoad(0)
		marker.PutOperationMarker(b, marker.As, arg("T"))
		b.CheckCast(bc.ObjectType)
		b.AReturn()
	})
	res := reifyT(t, in, in.Builtins().String, m)

	instrs := m.Code.Instrs()
	if instrs[0].Op != bc.OpALoad || instrs[len(instrs)-1].Op != bc.OpAReturn {
		t.Fatalf("unexpected body %v", instrs)
	}
	casts := 0
	for _, ins := range instrs {
		if ins.Op == bc.OpCheckCast {
			casts++
			if ins.Type != "java/lang/String" {
				t.Errorf("unexpected cast target %s", ins.Type)
			}
		}
	}
	if casts != 1 {
		t.Errorf("expected only the generated checkcast, got %d", casts)
	}
	if len(marker.Scan(m.Code)) != 0 {
		t.Errorf("expected no marker left")
	}
	if res.ExtraStack != 4 || m.MaxStack != 6 {
		t.Errorf("expected extra stack 4, got %d (max %d)", res.ExtraStack, m.MaxStack)
	}
	if err := bc.Validate(m); err != nil {
		t.Errorf("rewritten body must validate: %v", err)
	}
}

func TestSafeAsKeepsTypedStub(t *testing.T) {
	in := types.NewInterner()
	m := method(func(b *bc.Builder) {
		b.ALoad(0)
		marker.PutOperationMarker(b, marker.SafeAs, arg("T?"))
		b.CheckCast(bc.ObjectTypeOf("demo/Stub"))
		b.AReturn()
	})
	reifyT(t, in, in.Builtins().String, m)

	instrs := m.Code.Instrs()
	stub := instrs[len(instrs)-2]
	if stub.Op != bc.OpCheckCast || stub.Type != "demo/Stub" {
		t.Errorf("expected typed stub to be kept before return, got %s", stub)
	}
	if instrs[1].Op != bc.OpDup || instrs[2].Op != bc.OpInstanceOf {
		t.Errorf("expected safe cast sequence after the load, got %v", instrs[1:3])
	}
}

func TestIsCheckRemovesStub(t *testing.T) {
	in := types.NewInterner()
	u := in.Param("U", true, "demo/OuterKt")
	m := method(func(b *bc.Builder) {
		b.ALoad(0)
		marker.PutOperationMarker(b, marker.Is, arg("T"))
		b.InstanceOf(bc.ObjectType)
		b.Emit(bc.Instr{Op: bc.OpIReturn})
	})
	res := reifyT(t, in, in.Class("kotlin/collections/MutableList", u), m)

	want := []bc.Opcode{bc.OpALoad, bc.OpInvokeStatic, bc.OpIReturn}
	var got []bc.Opcode
	for _, ins := range m.Code.Instrs() {
		got = append(got, ins.Op)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if call := m.Code.Instrs()[1]; call.Name != "isMutableList" {
		t.Errorf("expected isMutableList intrinsic, got %s", call)
	}
	if res.ExtraStack != 2 {
		t.Errorf("expected extra stack 2, got %d", res.ExtraStack)
	}
	if !reflect.DeepEqual(res.Usages.Names(), []string{"U"}) {
		t.Errorf("expected binding usages [U], got %v", res.Usages.Names())
	}
}

func TestJavaClass(t *testing.T) {
	in := types.NewInterner()
	m := method(func(b *bc.Builder) {
		marker.PutOperationMarker(b, marker.JavaClass, arg("T"))
		b.LdcType(bc.ObjectType)
		b.AReturn()
	})
	reifyT(t, in, in.Builtins().Int, m)
	instrs := m.Code.Instrs()
	if len(instrs) != 2 || instrs[0].Const != bc.TypeConst("Ljava/lang/Integer;") {
		t.Errorf("expected boxed Integer class token, got %v", instrs)
	}
}

func TestEnumValueOf(t *testing.T) {
	in := types.NewInterner()
	m := method(func(b *bc.Builder) {
		marker.PutOperationMarker(b, marker.EnumReified, arg("T"))
		b.AConstNull()
		b.ALoad(1)
		b.InvokeStatic("java/lang/Enum", "valueOf", "(Ljava/lang/Class;Ljava/lang/String;)Ljava/lang/Enum;")
		b.AReturn()
	})
	reifyT(t, in, in.Class("demo/Color"), m)
	want := []bc.Instr{
		{Op: bc.OpALoad, Var: 1},
		{Op: bc.OpInvokeStatic, Owner: "demo/Color", Name: "valueOf", Desc: "(Ljava/lang/String;)Ldemo/Color;"},
		{Op: bc.OpAReturn},
	}
	if got := m.Code.Instrs(); !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestEnumValues(t *testing.T) {
	in := types.NewInterner()
	m := method(func(b *bc.Builder) {
		marker.PutOperationMarker(b, marker.EnumReified, arg("T"))
		b.IConst(0)
		b.ANewArray("java/lang/Enum")
		b.AReturn()
	})
	reifyT(t, in, in.Class("demo/Color"), m)
	want := []bc.Instr{
		{Op: bc.OpInvokeStatic, Owner: "demo/Color", Name: "values", Desc: "()[Ldemo/Color;"},
		{Op: bc.OpAReturn},
	}
	if got := m.Code.Instrs(); !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestTypeOfConcrete(t *testing.T) {
	in := types.NewInterner()
	m := method(func(b *bc.Builder) {
		marker.PutOperationMarker(b, marker.TypeOf, arg("T?"))
		b.AConstNull()
		b.AReturn()
	})
	res := reifyT(t, in, in.Builtins().String, m)
	instrs := m.Code.Instrs()
	if len(instrs) != 3 || instrs[1].Name != "nullableTypeOf" {
		t.Fatalf("unexpected body %v", instrs)
	}
	if res.ExtraStack != 1 || res.Rewritten != 1 {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestTypeOfPartial(t *testing.T) {
	in := types.NewInterner()
	u := in.Param("U", true, "demo/OuterKt")
	m := method(func(b *bc.Builder) {
		marker.PutOperationMarker(b, marker.TypeOf, arg("T"))
		b.AConstNull()
		b.AReturn()
	})
	res := reifyT(t, in, in.Array(in.MakeNullable(u)), m)

	first := m.Code.At(m.Code.First())
	if first.Op != bc.OpLdc || first.Const != bc.TypeConst("[Ljava/lang/Object;") {
		t.Errorf("expected the array class token first, got %s", first)
	}
	sites := marker.Scan(m.Code)
	if len(sites) != 1 || sites[0].Kind != marker.TypeOf || sites[0].Argument.String() != "U?" {
		t.Fatalf("expected nested TYPE_OF marker for U?, got %+v", sites)
	}
	if res.Partial != 1 || res.ExtraStack != 4 {
		t.Errorf("unexpected result %+v", res)
	}
	if !reflect.DeepEqual(res.Usages.Names(), []string{"U"}) {
		t.Errorf("expected usages [U], got %v", res.Usages.Names())
	}
}

func TestAbandonOnMismatch(t *testing.T) {
	in := types.NewInterner()
	build := func(b *bc.Builder) {
		b.ALoad(0)
		marker.PutOperationMarker(b, marker.As, arg("T"))
		b.Pop()
		b.Return()
	}
	m := method(build)
	want := method(build).Code.Instrs()
	bag := diag.NewBag(10)

	res, err := reify.NewInliner(bindT(t, in, in.Builtins().String), nil, reify.Options{
		Reporter: diag.BagReporter{Bag: bag},
		File:     "caller.rasm",
	}).ReifyInstructions(m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(m.Code.Instrs(), want) {
		t.Errorf("expected body unchanged, got %v", m.Code.Instrs())
	}
	if len(res.Abandoned) != 1 || res.Abandoned[0].Index != 3 || !strings.Contains(res.Abandoned[0].Reason, "expected checkcast") {
		t.Fatalf("unexpected abandoned markers %+v", res.Abandoned)
	}
	if m.MaxStack != 2 {
		t.Errorf("expected max stack untouched, got %d", m.MaxStack)
	}
	items := bag.Items()
	if len(items) != 1 || items[0].Code != diag.RfyAbandonedMarker || items[0].Severity != diag.SevWarning {
		t.Fatalf("expected one RFY5001 warning, got %+v", items)
	}
	if items[0].Primary.File != "caller.rasm" || items[0].Primary.Index != 3 {
		t.Errorf("unexpected location %s", items[0].Primary)
	}
}

func TestStrictModeReportsAfterFullPass(t *testing.T) {
	in := types.NewInterner()
	m := method(func(b *bc.Builder) {
		b.ALoad(0)
		marker.PutOperationMarker(b, marker.Is, arg("T"))
		b.Pop()
		b.IConst(1)
		marker.PutOperationMarker(b, marker.NewArray, arg("T"))
		b.ANewArray("Stub")
		b.AReturn()
	})
	res, err := reify.NewInliner(bindT(t, in, in.Builtins().String), nil, reify.Options{Strict: true}).ReifyInstructions(m)
	if !errors.Is(err, reify.ErrAbandonedMarker) {
		t.Fatalf("expected ErrAbandonedMarker, got %v", err)
	}
	var ame *reify.AbandonedMarkersError
	if !errors.As(err, &ame) || len(ame.Markers) != 1 || ame.Method != "demo/CallerKt.caller" {
		t.Fatalf("unexpected error %v", err)
	}
	if res.Rewritten != 1 {
		t.Errorf("expected later markers to be rewritten, got %d", res.Rewritten)
	}
	if !strings.Contains(err.Error(), "IS") {
		t.Errorf("expected kind in message, got %q", err.Error())
	}
}

func TestUndecodableAndUnmappedMarkersAreSkipped(t *testing.T) {
	in := types.NewInterner()
	build := func(b *bc.Builder) {
		b.ALoad(0)
		b.AConstNull()
		b.InvokeStatic(marker.IntrinsicsClass, marker.OperationMarkerName, marker.OperationMarkerDesc)
		b.IConst(99)
		b.LdcString("T")
		b.InvokeStatic(marker.IntrinsicsClass, marker.OperationMarkerName, marker.OperationMarkerDesc)
		marker.PutOperationMarker(b, marker.NewArray, arg("Q"))
		b.ANewArray("Stub")
		b.AReturn()
	}
	m := method(build)
	want := method(build).Code.Instrs()
	res := reifyT(t, in, in.Builtins().String, m)
	if res.Skipped != 3 || res.Rewritten != 0 {
		t.Errorf("expected 3 skipped markers, got %+v", res)
	}
	if !reflect.DeepEqual(m.Code.Instrs(), want) {
		t.Errorf("expected body unchanged")
	}
	if res.Usages.WereUsed() {
		t.Errorf("skipped markers must not record usages")
	}
}

func TestNilMethod(t *testing.T) {
	in := types.NewInterner()
	if _, err := reify.NewInliner(bindT(t, in, in.Builtins().String), nil, reify.Options{}).ReifyInstructions(nil); err == nil {
		t.Errorf("expected error for a nil method")
	}
}
