package driver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"reify/internal/asm"
	"reify/internal/diag"
	"reify/internal/driver"
	"reify/internal/marker"
	"reify/internal/pipeline"
	"reify/internal/reify"
	"reify/internal/testkit"
	"reify/internal/trace"
	"reify/internal/unit"
)

const manifest = `
name = "demo"
sources = ["callee.rasm"]
context = ["T"]

[[scope]]
name = "T"
reified = true
owner = "demo/CallerKt"

[[scope]]
name = "U"
reified = true
owner = "demo/CallerKt"

[[param]]
name = "E"
reified = true
owner = "demo/CalleeKt"
bind = "String"

[[param]]
name = "V"
reified = true
owner = "demo/CalleeKt"
bind = "Array<U>"

[[param]]
name = "W"
reified = true
owner = "demo/CalleeKt"
bind = "T"
`

const callee = `method demo/CalleeKt.make (I)[Ljava/lang/Object; stack=3 locals=1
  iload 0
  iconst 0
  ldc "E"
  invokestatic kotlin/jvm/internal/Intrinsics.reifiedOperationMarker (ILjava/lang/String;)V
  anewarray java/lang/Object
  areturn
end

method demo/CalleeKt.check (Ljava/lang/Object;)Z stack=3 locals=1
  aload 0
  iconst 3
  ldc "V"
  invokestatic kotlin/jvm/internal/Intrinsics.reifiedOperationMarker (ILjava/lang/String;)V
  instanceof java/lang/Object
  ireturn
end

method demo/CalleeKt.cast (Ljava/lang/Object;)Ljava/lang/Object; stack=3 locals=1
  aload 0
  iconst 1
  ldc "W?"
  invokestatic kotlin/jvm/internal/Intrinsics.reifiedOperationMarker (ILjava/lang/String;)V
  checkcast java/lang/Object
  areturn
end
`

// broken asks for an AS cast but is not followed by one.
const broken = `method demo/CalleeKt.broken (Ljava/lang/Object;)V stack=3 locals=1
  aload 0
  iconst 1
  ldc "E"
  invokestatic kotlin/jvm/internal/Intrinsics.reifiedOperationMarker (ILjava/lang/String;)V
  pop
  return
end
`

func writeUnit(t *testing.T, manifestText, source string) *unit.Unit {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "callee.rasm"), []byte(source), 0o600))
	path := filepath.Join(dir, "unit.toml")
	require.NoError(t, os.WriteFile(path, []byte(manifestText), 0o600))
	u, err := unit.Load(path)
	require.NoError(t, err)
	return u
}

func codes(bag *diag.Bag) []diag.Code {
	var out []diag.Code
	for _, d := range bag.Items() {
		out = append(out, d.Code)
	}
	return out
}

func TestRunRewritesUnit(t *testing.T) {
	u := writeUnit(t, manifest, callee)
	res, err := driver.Run(context.Background(), u, driver.Options{Jobs: 2})
	require.NoError(t, err)
	require.False(t, res.Bag.HasErrors())

	summary := res.Summary()
	require.Equal(t, driver.Summary{Methods: 3, Rewritten: 1, Deferred: 2}, summary)

	methods := res.MethodsIn(u.SourcePaths()[0])
	require.Len(t, methods, 3)
	require.Equal(t, "make", methods[0].Name)
	require.Equal(t, "java/lang/String", methods[0].Code.Instrs()[1].Type)
	for _, m := range methods {
		require.NoError(t, testkit.CheckRewrittenBody(m, "E", "V", "W"))
	}

	check := marker.Scan(methods[1].Code)
	require.Len(t, check, 1)
	require.Equal(t, "[U", check[0].Argument.String())
	cast := marker.Scan(methods[2].Code)
	require.Len(t, cast, 1)
	require.Equal(t, "T?", cast[0].Argument.String())

	require.Equal(t, []string{"T", "U"}, res.BodyUsages.Names())
	require.Equal(t, []string{"U"}, res.Usages.Names())
	require.Contains(t, codes(res.Bag), diag.RfyUnresolvedUsage)
	require.False(t, res.Cached)
	require.NotEmpty(t, res.Timing.Phases)
}

func TestRunStrictFailsAfterFullPass(t *testing.T) {
	u := writeUnit(t, manifest, callee+"\n"+broken)
	res, err := driver.Run(context.Background(), u, driver.Options{Strict: true})
	require.Error(t, err)
	require.True(t, errors.Is(err, reify.ErrAbandonedMarker))
	require.True(t, res.Bag.HasErrors())
	require.Contains(t, codes(res.Bag), diag.RfyStrict)
	require.Contains(t, codes(res.Bag), diag.RfyAbandonedMarker)

	summary := res.Summary()
	require.Equal(t, 4, summary.Methods)
	require.Equal(t, 1, summary.Rewritten)
	require.Equal(t, 1, summary.Abandoned)
}

func TestRunWithoutStrictKeepsAbandonedMarker(t *testing.T) {
	u := writeUnit(t, manifest, broken)
	res, err := driver.Run(context.Background(), u, driver.Options{})
	require.NoError(t, err)
	require.False(t, res.Bag.HasErrors())
	require.True(t, res.Bag.HasWarnings())
	require.Len(t, res.Methods[0].Result.Abandoned, 1)
	require.Len(t, marker.Scan(res.Methods[0].Method.Code), 1)
}

func TestRunReportsAssemblyErrors(t *testing.T) {
	u := writeUnit(t, manifest, "method demo/A.f ()V\n  frobnicate\nend\n")
	res, err := driver.Run(context.Background(), u, driver.Options{})
	require.Error(t, err)
	require.Empty(t, res.Methods)
	require.Equal(t, []diag.Code{diag.AsmUnknownOpcode}, codes(res.Bag))
	require.Equal(t, 2, res.Bag.Items()[0].Primary.Line)
}

func TestRunReportsBadBinding(t *testing.T) {
	u := writeUnit(t, manifest, callee)
	u.Manifest.Params[0].Bind = "Array<"
	res, err := driver.Run(context.Background(), u, driver.Options{})
	require.Error(t, err)
	require.Empty(t, res.Methods)
	require.Equal(t, []diag.Code{diag.UnitBadType}, codes(res.Bag))
}

func TestRunRejectsInvalidBody(t *testing.T) {
	u := writeUnit(t, manifest, "method demo/A.f ()V stack=1\n  pop\n  return\nend\n")
	res, err := driver.Run(context.Background(), u, driver.Options{})
	require.Error(t, err)
	require.Equal(t, []diag.Code{diag.BcStackUnderflow}, codes(res.Bag))
}

func TestRunCachesFinishedRuns(t *testing.T) {
	cache, err := driver.OpenDiskCacheAt(t.TempDir())
	require.NoError(t, err)
	u := writeUnit(t, manifest, callee)

	first, err := driver.Run(context.Background(), u, driver.Options{Cache: cache})
	require.NoError(t, err)
	require.False(t, first.Cached)

	second, err := driver.Run(context.Background(), u, driver.Options{Cache: cache})
	require.NoError(t, err)
	require.True(t, second.Cached)
	require.Equal(t, first.Summary(), second.Summary())
	require.Equal(t, first.Usages.Names(), second.Usages.Names())
	require.Equal(t, codes(first.Bag), codes(second.Bag))

	file := u.SourcePaths()[0]
	var a, b bytes.Buffer
	require.NoError(t, asm.Format(&a, first.MethodsIn(file)...))
	require.NoError(t, asm.Format(&b, second.MethodsIn(file)...))
	require.Equal(t, a.String(), b.String())

	// A different option set is a different entry.
	third, err := driver.Run(context.Background(), u, driver.Options{Cache: cache, UnifiedNullChecks: true})
	require.NoError(t, err)
	require.False(t, third.Cached)
}

func TestRunTimingsDiagnostic(t *testing.T) {
	u := writeUnit(t, manifest, callee)
	res, err := driver.Run(context.Background(), u, driver.Options{Timings: true})
	require.NoError(t, err)

	items := res.Bag.Items()
	last := items[len(items)-1]
	require.Equal(t, diag.ObsTimings, last.Code)
	require.Len(t, last.Notes, 1)

	var payload struct {
		Kind    string `json:"kind"`
		Methods int    `json:"methods"`
		Phases  []struct {
			Name string `json:"name"`
		} `json:"phases"`
	}
	require.NoError(t, json.Unmarshal([]byte(last.Notes[0].Msg), &payload))
	require.Equal(t, "run", payload.Kind)
	require.Equal(t, 3, payload.Methods)
	var names []string
	for _, p := range payload.Phases {
		names = append(names, p.Name)
	}
	require.Equal(t, []string{"load", "resolve", "reify"}, names)
}

func TestRunEmitsProgress(t *testing.T) {
	u := writeUnit(t, manifest, callee)
	var (
		mu     sync.Mutex
		events []pipeline.Event
	)
	sink := pipeline.FuncSink(func(evt pipeline.Event) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, evt)
	})
	_, err := driver.Run(context.Background(), u, driver.Options{Jobs: 3, Progress: sink})
	require.NoError(t, err)

	done := map[string]bool{}
	for _, evt := range events {
		if evt.Stage == pipeline.StageReify && evt.Status == pipeline.StatusDone {
			done[evt.Method] = true
		}
	}
	require.Equal(t, map[string]bool{
		"demo/CalleeKt.make":  true,
		"demo/CalleeKt.check": true,
		"demo/CalleeKt.cast":  true,
	}, done)
}

func TestRunCancelled(t *testing.T) {
	u := writeUnit(t, manifest, callee)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := driver.Run(ctx, u, driver.Options{})
	require.ErrorIs(t, err, context.Canceled)
	require.Nil(t, res)
}

func TestRunStrictIsNotCached(t *testing.T) {
	cache, err := driver.OpenDiskCacheAt(t.TempDir())
	require.NoError(t, err)
	u := writeUnit(t, manifest, callee)

	for range 2 {
		res, err := driver.Run(context.Background(), u, driver.Options{Cache: cache, Strict: true})
		require.NoError(t, err)
		require.False(t, res.Cached)
	}
	entries, err := os.ReadDir(filepath.Join(cache.Dir(), "runs"))
	if !errors.Is(err, os.ErrNotExist) {
		require.NoError(t, err)
	}
	require.Empty(t, entries)
}

func TestRunKeepsStringConstantBytes(t *testing.T) {
	const decomposed = "Te\u0301"
	source := "method demo/CalleeKt.label ()Ljava/lang/String; stack=1\n  ldc \"" + decomposed + "\"\n  areturn\nend\n"
	u := writeUnit(t, manifest, source)
	res, err := driver.Run(context.Background(), u, driver.Options{})
	require.NoError(t, err)

	s, ok := res.Methods[0].Method.Code.Instrs()[0].StringConstant()
	require.True(t, ok)
	require.Equal(t, []byte(decomposed), []byte(s))
	var out bytes.Buffer
	require.NoError(t, asm.Format(&out, res.MethodsIn(u.SourcePaths()[0])...))
	require.Contains(t, out.String(), decomposed)
}

func TestRunTracesBindings(t *testing.T) {
	ring := trace.NewRingTracer(256, trace.LevelPhase)
	ctx := trace.WithTracer(context.Background(), ring)
	u := writeUnit(t, manifest, callee)
	_, err := driver.Run(ctx, u, driver.Options{})
	require.NoError(t, err)

	bindings := map[string]string{}
	for _, ev := range ring.Snapshot() {
		if ev.Kind == trace.KindPoint && ev.Name == "binding" {
			bindings[ev.Detail] = ev.Extra["argument"]
		}
	}
	require.Equal(t, map[string]string{"E": "concrete", "V": "[U", "W": "T"}, bindings)
}
