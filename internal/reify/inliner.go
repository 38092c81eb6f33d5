// Package reify resolves reified operation markers in an inlined body once
// the type arguments of the inlining step are known. Markers whose binding is
// concrete are replaced by the operation for that type; markers bound to a
// reified parameter of the caller are re-encoded for the next step.
package reify

import (
	"fmt"
	"strconv"

	"reify/internal/bc"
	"reify/internal/diag"
	"reify/internal/intrinsics"
	"reify/internal/marker"
	"reify/internal/trace"
	"reify/internal/types"
)

// Codegen emits the replacement sequences for concrete types.
// *intrinsics.Generator is the default implementation.
type Codegen interface {
	GenerateAsCast(b *bc.Builder, t types.TypeID, asm bc.Type, safe bool) error
	GenerateIsCheck(b *bc.Builder, t types.TypeID, asm bc.Type) error
	GenerateTypeOf(b *bc.Builder, t types.TypeID) error
}

type Options struct {
	Tracer     trace.Tracer
	ParentSpan uint64
	Reporter   diag.Reporter

	// File is used in diagnostic locations.
	File string

	// Strict makes ReifyInstructions fail when a marker is left in place.
	// The body is still fully processed.
	Strict bool
}

// Result summarises one ReifyInstructions call.
type Result struct {
	// Usages lists the caller parameters the rewritten markers depend on.
	Usages *Usages

	Rewritten int // markers replaced by the concrete operation
	Partial   int // TYPE_OF markers expanded around a still generic type
	Deferred  int // markers re-encoded for the enclosing step
	Skipped   int // undecodable markers and markers of unknown parameters

	Abandoned []AbandonedMarker

	// ExtraStack is the amount added to the method's MaxStack.
	ExtraStack int
}

// Inliner rewrites the markers of bodies inlined under one binding table.
// It keeps no state between calls.
type Inliner struct {
	mappings *TypeParameterMappings
	codegen  Codegen
	opts     Options
}

// NewInliner builds an inliner for mappings. A nil codegen selects the
// intrinsics generator over the mappings' interner.
func NewInliner(mappings *TypeParameterMappings, codegen Codegen, opts Options) *Inliner {
	if codegen == nil && mappings != nil {
		codegen = intrinsics.New(mappings.Types(), false)
	}
	if opts.Tracer == nil {
		opts.Tracer = trace.Nop
	}
	if opts.Reporter == nil {
		opts.Reporter = diag.NopReporter{}
	}
	return &Inliner{mappings: mappings, codegen: codegen, opts: opts}
}

// ReifyInstructions processes every marker of m in place and grows
// m.MaxStack by the extra stack the replacements need. Without reified
// bindings the body is returned untouched with empty usages.
func (r *Inliner) ReifyInstructions(m *bc.Method) (Result, error) {
	res := Result{Usages: NewUsages()}
	if m == nil || m.Code == nil {
		return res, fmt.Errorf("reify: no method body")
	}
	if !r.mappings.HasReifiedParameters() {
		return res, nil
	}

	span := trace.Begin(r.opts.Tracer, trace.ScopeMethod, "reify_method", r.opts.ParentSpan)
	code := m.Code
	for i, ref := range code.Refs() {
		if !code.Valid(ref) || !marker.IsOperationMarker(code.At(ref)) {
			continue
		}
		r.processMarker(m, ref, i, &res, span.ID())
	}
	m.MaxStack += res.ExtraStack

	span.WithExtra("method", m.QualifiedName()).
		WithExtra("rewritten", strconv.Itoa(res.Rewritten)).
		WithExtra("deferred", strconv.Itoa(res.Deferred)).
		WithExtra("abandoned", strconv.Itoa(len(res.Abandoned))).
		End("")

	if r.opts.Strict && len(res.Abandoned) > 0 {
		return res, &AbandonedMarkersError{Method: m.QualifiedName(), Markers: res.Abandoned}
	}
	return res, nil
}

func (r *Inliner) processMarker(m *bc.Method, ref bc.Ref, index int, res *Result, parent uint64) {
	code := m.Code
	kind, arg, ok := marker.Decode(code, ref)
	if !ok {
		res.Skipped++
		trace.Point(r.opts.Tracer, trace.ScopeMarker, "marker_skip", "undecodable", parent, "index", strconv.Itoa(index))
		return
	}
	mapping, ok := r.mappings.Get(arg.ParameterName)
	if !ok {
		res.Skipped++
		trace.Point(r.opts.Tracer, trace.ScopeMarker, "marker_skip", "unmapped", parent,
			"index", strconv.Itoa(index), "argument", arg.String())
		return
	}

	switch {
	case mapping.ReificationArgument == nil:
		t, asm := r.mappings.reify(mapping, arg)
		extra, err := r.rewrite(code, ref, kind, t, asm)
		if err != nil {
			r.abandon(m, index, kind, arg, err, res, parent)
			break
		}
		removeMarker(code, ref)
		res.Rewritten++
		res.ExtraStack = max(res.ExtraStack, extra)
		trace.Point(r.opts.Tracer, trace.ScopeMarker, "marker_rewrite", kind.String(), parent,
			"index", strconv.Itoa(index), "argument", arg.String(), "type", string(asm))
	case kind == marker.TypeOf:
		t, _ := r.mappings.reify(mapping, arg)
		extra, err := r.rewriteTypeOf(code, ref, t)
		if err != nil {
			r.abandon(m, index, kind, arg, err, res, parent)
			break
		}
		removeMarker(code, ref)
		res.Partial++
		res.ExtraStack = max(res.ExtraStack, extra)
		trace.Point(r.opts.Tracer, trace.ScopeMarker, "marker_partial", kind.String(), parent,
			"index", strconv.Itoa(index), "argument", arg.String())
	default:
		combined := arg.Combine(*mapping.ReificationArgument)
		code.Set(code.Prev(ref), bc.Instr{Op: bc.OpLdc, Const: bc.StringConst(combined.String())})
		res.Deferred++
		trace.Point(r.opts.Tracer, trace.ScopeMarker, "marker_defer", kind.String(), parent,
			"index", strconv.Itoa(index), "from", arg.String(), "to", combined.String())
	}
	res.Usages.MergeAll(mapping.Usages)
}

// removeMarker drops the kind push, the argument push and the call.
func removeMarker(code *bc.List, call bc.Ref) {
	argPush := code.Prev(call)
	kindPush := code.Prev(argPush)
	code.Remove(kindPush)
	code.Remove(argPush)
	code.Remove(call)
}

func (r *Inliner) abandon(m *bc.Method, index int, kind marker.OperationKind, arg marker.Argument, cause error, res *Result, parent uint64) {
	am := AbandonedMarker{Index: index, Kind: kind, Argument: arg, Reason: cause.Error()}
	res.Abandoned = append(res.Abandoned, am)
	trace.Point(r.opts.Tracer, trace.ScopeMethod, "marker_abandon", am.Reason, parent,
		"index", strconv.Itoa(index), "kind", kind.String(), "argument", arg.String())
	loc := diag.At(r.opts.File, m.QualifiedName(), index)
	diag.ReportWarning(r.opts.Reporter, diag.RfyAbandonedMarker, loc,
		fmt.Sprintf("%s marker for %q left in place: %s", kind, arg.String(), am.Reason)).
		WithNote(loc, "the marker fails at run time if this code is reachable").
		Emit()
}
