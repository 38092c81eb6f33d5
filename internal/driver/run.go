// Package driver runs the reification pass over every method of a unit:
// it assembles the sources, checks and rewrites the bodies in parallel,
// aggregates usages and diagnostics, and caches finished runs on disk.
package driver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"reify/internal/asm"
	"reify/internal/bc"
	"reify/internal/diag"
	"reify/internal/intrinsics"
	"reify/internal/observ"
	"reify/internal/pipeline"
	"reify/internal/reify"
	"reify/internal/trace"
	"reify/internal/types"
	"reify/internal/unit"
)

const defaultMaxDiagnostics = 256

// Options configures Run. Strict and UnifiedNullChecks are or-ed with the
// manifest's own options.
type Options struct {
	Jobs              int
	Strict            bool
	UnifiedNullChecks bool
	MaxDiagnostics    int

	// Cache, when set, short-circuits runs whose inputs were seen before.
	Cache *DiskCache

	Progress pipeline.ProgressSink

	// Timings appends an ObsTimings diagnostic with the phase report.
	Timings bool
}

// MethodResult is the outcome for one method. Method is rewritten in place.
type MethodResult struct {
	File   string
	Method *bc.Method
	Result reify.Result
	Err    error
}

// Result is the outcome of a run.
type Result struct {
	Files   []string
	Methods []MethodResult

	// BodyUsages is the union of every method's usages; Usages keeps only
	// the names the caller does not declare itself.
	BodyUsages *reify.Usages
	Usages     *reify.Usages

	Bag    *diag.Bag
	Timing observ.Report
	Cached bool
}

// Summary totals the per-method counters.
type Summary struct {
	Methods   int
	Rewritten int
	Partial   int
	Deferred  int
	Skipped   int
	Abandoned int
}

func (r *Result) Summary() Summary {
	var s Summary
	if r == nil {
		return s
	}
	s.Methods = len(r.Methods)
	for _, m := range r.Methods {
		s.Rewritten += m.Result.Rewritten
		s.Partial += m.Result.Partial
		s.Deferred += m.Result.Deferred
		s.Skipped += m.Result.Skipped
		s.Abandoned += len(m.Result.Abandoned)
	}
	return s
}

// MethodsIn returns the methods of file in source order.
func (r *Result) MethodsIn(file string) []*bc.Method {
	var out []*bc.Method
	for _, m := range r.Methods {
		if m.File == file {
			out = append(out, m.Method)
		}
	}
	return out
}

type sourceFile struct {
	path    string
	data    []byte
	methods []*bc.Method
	bag     *diag.Bag
}

type runConfig struct {
	unit     *unit.Unit
	strict   bool
	unified  bool
	maxDiag  int
	progress pipeline.ProgressSink
}

// Run processes every method of u. The returned error joins the failures of
// the run; the matching diagnostics are in Result.Bag. A nil Result is only
// returned for a nil unit or a cancelled context.
func Run(ctx context.Context, u *unit.Unit, opts Options) (*Result, error) {
	if u == nil {
		return nil, errors.New("driver: no unit")
	}
	cfg := runConfig{
		unit:     u,
		strict:   opts.Strict || u.Manifest.Options.Strict,
		unified:  opts.UnifiedNullChecks || u.Manifest.Options.UnifiedNullChecks,
		maxDiag:  opts.MaxDiagnostics,
		progress: opts.Progress,
	}
	if cfg.strict {
		// Strict runs fail on any abandoned marker and are never cached.
		opts.Cache = nil
	}
	if cfg.maxDiag <= 0 {
		cfg.maxDiag = defaultMaxDiagnostics
	}
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	span, ctx := trace.Start(ctx, trace.ScopeDriver, "run")
	span.WithExtra("unit", u.Path)
	defer span.End("")

	timer := observ.NewTimer()
	res := &Result{
		Files:      u.SourcePaths(),
		BodyUsages: reify.NewUsages(),
		Usages:     reify.NewUsages(),
		Bag:        diag.NewBag(cfg.maxDiag),
	}
	finish := func(err error) (*Result, error) {
		res.Timing = timer.Report()
		if opts.Timings {
			appendTimingDiagnostic(res.Bag, timingPayload{
				Path:    u.Path,
				Methods: len(res.Methods),
				TotalMS: res.Timing.TotalMS,
				Phases:  res.Timing.Phases,
			})
		}
		return res, err
	}

	done := timer.Track("load")
	sources, err := loadSources(ctx, res.Files, jobs, cfg)
	if err != nil {
		done("cancelled")
		return nil, err
	}
	var loadErrs []error
	for _, src := range sources {
		res.Bag.Merge(src.bag)
		if src.bag.HasErrors() {
			loadErrs = append(loadErrs, fmt.Errorf("%s: malformed source", src.path))
		}
	}
	done(fmt.Sprintf("%d files", len(sources)))
	if len(loadErrs) > 0 {
		return finish(errors.Join(loadErrs...))
	}

	done = timer.Track("resolve")
	if err := validateBindings(ctx, u); err != nil {
		done("failed")
		res.Bag.Add(unitDiagnostic(u, err))
		return finish(err)
	}
	done(fmt.Sprintf("%d params", len(u.Manifest.Params)))

	var key Digest
	if opts.Cache != nil {
		done = timer.Track("cache")
		key, err = cacheKey(u, sources, cfg.strict, cfg.unified)
		if err == nil {
			if restoreCached(opts.Cache, key, res) {
				done("hit")
				res.Cached = true
				pipeline.Emit(cfg.progress, pipeline.Event{Stage: pipeline.StageCache, Status: pipeline.StatusDone})
				return finish(nil)
			}
			done("miss")
		} else {
			done("unkeyed")
			opts.Cache = nil
		}
	}

	done = timer.Track("reify")
	methods, err := reifyAll(ctx, sources, jobs, cfg)
	if err != nil {
		done("cancelled")
		return nil, err
	}
	var failures []error
	for _, m := range methods {
		res.Methods = append(res.Methods, m.MethodResult)
		res.Bag.Merge(m.bag)
		res.BodyUsages.MergeAll(m.Result.Usages)
		if m.Err != nil {
			failures = append(failures, m.Err)
		}
	}
	res.Usages.PropagateChildUsagesWithinContext(res.BodyUsages, u.ContextNames)
	if res.Usages.WereUsed() {
		diag.ReportInfo(diag.BagReporter{Bag: res.Bag}, diag.RfyUnresolvedUsage, diag.AtLine(u.Path, 0),
			fmt.Sprintf("caller must reify %s at its own call sites", strings.Join(res.Usages.Names(), ", "))).Emit()
	}
	done(fmt.Sprintf("%d methods", len(res.Methods)))

	if opts.Cache != nil && !res.Bag.HasErrors() {
		payload, err := toPayload(res)
		if err == nil {
			err = opts.Cache.Put(key, payload)
		}
		if err != nil {
			diag.ReportWarning(diag.BagReporter{Bag: res.Bag}, diag.IOCacheError, diag.AtLine(u.Path, 0),
				"failed to store cache entry: "+err.Error()).Emit()
		}
	}
	return finish(errors.Join(failures...))
}

func loadSources(ctx context.Context, paths []string, jobs int, cfg runConfig) ([]sourceFile, error) {
	sources := make([]sourceFile, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, min(jobs, len(paths))))
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			sources[i] = loadSource(gctx, path, cfg)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return sources, nil
}

func loadSource(ctx context.Context, path string, cfg runConfig) sourceFile {
	start := time.Now()
	span, _ := trace.Start(ctx, trace.ScopeDriver, "load_source")
	span.WithExtra("path", path)
	defer span.End("")

	src := sourceFile{path: path, bag: diag.NewBag(cfg.maxDiag)}
	pipeline.Emit(cfg.progress, pipeline.Event{File: path, Stage: pipeline.StageLoad, Status: pipeline.StatusWorking})

	data, err := os.ReadFile(path)
	if err != nil {
		src.bag.Add(diag.NewError(diag.IOLoadFileError, diag.AtLine(path, 0), "failed to load file: "+err.Error()))
		pipeline.Emit(cfg.progress, pipeline.Event{File: path, Stage: pipeline.StageLoad, Status: pipeline.StatusError, Err: err, Elapsed: time.Since(start)})
		return src
	}
	src.data = data

	methods, err := asm.Parse(path, string(data))
	src.methods = methods
	if err != nil {
		var list asm.ErrorList
		if errors.As(err, &list) {
			list.Report(diag.BagReporter{Bag: src.bag})
		} else {
			src.bag.Add(diag.NewError(diag.AsmSyntax, diag.AtLine(path, 0), err.Error()))
		}
		pipeline.Emit(cfg.progress, pipeline.Event{File: path, Stage: pipeline.StageLoad, Status: pipeline.StatusError, Err: err, Elapsed: time.Since(start)})
		return src
	}
	for _, m := range methods {
		pipeline.Emit(cfg.progress, pipeline.Event{File: path, Method: m.QualifiedName(), Stage: pipeline.StageReify, Status: pipeline.StatusQueued})
	}
	pipeline.Emit(cfg.progress, pipeline.Event{File: path, Stage: pipeline.StageLoad, Status: pipeline.StatusDone, Elapsed: time.Since(start)})
	return src
}

// validateBindings resolves the manifest once so that binding errors are
// reported a single time instead of once per method.
func validateBindings(ctx context.Context, u *unit.Unit) error {
	in := types.NewInterner()
	args, err := u.Resolve(in)
	if err != nil {
		return err
	}
	mappings, err := reify.NewTypeParameterMappings(in, args, u.Manifest.AllReified, nil)
	if err != nil {
		return err
	}
	tracer, parent := trace.FromContext(ctx), trace.CurrentSpan(ctx)
	mappings.Each(func(m *reify.TypeParameterMapping) {
		deferred := "concrete"
		if m.ReificationArgument != nil {
			deferred = m.ReificationArgument.String()
		}
		trace.Point(tracer, trace.ScopeDriver, "binding", m.Name, parent,
			"type", in.String(m.Type), "asm", string(m.AsmType), "argument", deferred)
	})
	return nil
}

func unitDiagnostic(u *unit.Unit, err error) diag.Diagnostic {
	var ue *unit.Error
	if errors.As(err, &ue) {
		return ue.Diagnostic()
	}
	return diag.NewError(diag.UnitBadType, diag.AtLine(u.Path, 0), err.Error())
}

type methodOutcome struct {
	MethodResult
	bag *diag.Bag
}

func reifyAll(ctx context.Context, sources []sourceFile, jobs int, cfg runConfig) ([]methodOutcome, error) {
	type job struct {
		file   string
		method *bc.Method
	}
	var work []job
	for _, src := range sources {
		for _, m := range src.methods {
			work = append(work, job{file: src.path, method: m})
		}
	}

	// Indices are unique per goroutine, no mutex needed.
	out := make([]methodOutcome, len(work))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, min(jobs, len(work))))
	for i, w := range work {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = reifyMethod(gctx, w.file, w.method, cfg)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// reifyMethod rewrites one method. Type interners are not safe for
// concurrent use, so every method resolves the bindings into its own.
func reifyMethod(ctx context.Context, file string, m *bc.Method, cfg runConfig) methodOutcome {
	start := time.Now()
	name := m.QualifiedName()
	bag := diag.NewBag(cfg.maxDiag)
	reporter := diag.BagReporter{Bag: bag}
	out := methodOutcome{MethodResult: MethodResult{File: file, Method: m, Result: reify.Result{Usages: reify.NewUsages()}}, bag: bag}

	span, ctx := trace.Start(ctx, trace.ScopeMethod, "method")
	span.WithExtra("method", name)
	pipeline.Emit(cfg.progress, pipeline.Event{File: file, Method: name, Stage: pipeline.StageReify, Status: pipeline.StatusWorking})

	fail := func(err error) methodOutcome {
		out.Err = err
		span.End("failed")
		pipeline.Emit(cfg.progress, pipeline.Event{File: file, Method: name, Stage: pipeline.StageReify, Status: pipeline.StatusError, Err: err, Elapsed: time.Since(start)})
		return out
	}

	if !CheckMethod(file, m, reporter) {
		return fail(fmt.Errorf("%s: invalid method body", name))
	}

	in := types.NewInterner()
	args, err := cfg.unit.Resolve(in)
	if err != nil {
		return fail(err)
	}
	mappings, err := reify.NewTypeParameterMappings(in, args, cfg.unit.Manifest.AllReified, nil)
	if err != nil {
		return fail(err)
	}
	inliner := reify.NewInliner(mappings, intrinsics.New(in, cfg.unified), reify.Options{
		Tracer:     trace.FromContext(ctx),
		ParentSpan: span.ID(),
		Reporter:   reporter,
		File:       file,
		Strict:     cfg.strict,
	})
	result, err := inliner.ReifyInstructions(m)
	out.Result = result
	if err != nil {
		diag.ReportError(reporter, diag.RfyStrict, diag.At(file, name, diag.NoIndex), err.Error()).Emit()
		return fail(err)
	}
	if !CheckMethod(file, m, reporter) {
		return fail(fmt.Errorf("%s: rewritten body does not verify", name))
	}

	span.WithExtra("rewritten", strconv.Itoa(result.Rewritten)).End("")
	pipeline.Emit(cfg.progress, pipeline.Event{File: file, Method: name, Stage: pipeline.StageReify, Status: pipeline.StatusDone, Elapsed: time.Since(start)})
	return out
}

func toPayload(res *Result) (*CachePayload, error) {
	payload := &CachePayload{
		Schema:      diskCacheSchemaVersion,
		BodyUsages:  res.BodyUsages.Names(),
		Usages:      res.Usages.Names(),
		Diagnostics: append([]diag.Diagnostic(nil), res.Bag.Items()...),
	}
	for _, file := range res.Files {
		var sb strings.Builder
		methods := res.MethodsIn(file)
		if err := asm.Format(&sb, methods...); err != nil {
			return nil, err
		}
		cf := CachedFile{Path: file, Assembly: sb.String()}
		for _, m := range res.Methods {
			if m.File != file {
				continue
			}
			cf.Methods = append(cf.Methods, CachedMethod{
				Rewritten:  m.Result.Rewritten,
				Partial:    m.Result.Partial,
				Deferred:   m.Result.Deferred,
				Skipped:    m.Result.Skipped,
				ExtraStack: m.Result.ExtraStack,
				Usages:     m.Result.Usages.Names(),
				Abandoned:  m.Result.Abandoned,
			})
		}
		payload.Files = append(payload.Files, cf)
	}
	return payload, nil
}

// restoreCached fills res from the entry at key. Entries that no longer
// assemble or do not match the unit's files count as misses.
func restoreCached(c *DiskCache, key Digest, res *Result) bool {
	var payload CachePayload
	found, err := c.Get(key, &payload)
	if err != nil || !found || len(payload.Files) != len(res.Files) {
		return false
	}
	var methods []MethodResult
	for i, cf := range payload.Files {
		if cf.Path != res.Files[i] {
			return false
		}
		parsed, err := asm.Parse(cf.Path, cf.Assembly)
		if err != nil || len(parsed) != len(cf.Methods) {
			return false
		}
		for j, m := range parsed {
			cm := cf.Methods[j]
			methods = append(methods, MethodResult{
				File:   cf.Path,
				Method: m,
				Result: reify.Result{
					Usages:     reify.NewUsages(cm.Usages...),
					Rewritten:  cm.Rewritten,
					Partial:    cm.Partial,
					Deferred:   cm.Deferred,
					Skipped:    cm.Skipped,
					Abandoned:  cm.Abandoned,
					ExtraStack: cm.ExtraStack,
				},
			})
		}
	}
	res.Methods = methods
	res.BodyUsages = reify.NewUsages(payload.BodyUsages...)
	res.Usages = reify.NewUsages(payload.Usages...)
	for _, d := range payload.Diagnostics {
		res.Bag.Add(d)
	}
	return true
}
