package trace

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestParseLevelAndMode(t *testing.T) {
	if lvl, err := ParseLevel("DEBUG"); err != nil || lvl != LevelDebug {
		t.Fatalf("expected debug, got %v %v", lvl, err)
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
	if m, err := ParseMode("both"); err != nil || m != ModeBoth {
		t.Fatalf("expected both, got %v %v", m, err)
	}
	if f, err := ParseFormat("ndjson"); err != nil || f != FormatNDJSON {
		t.Fatalf("expected ndjson, got %v %v", f, err)
	}
}

func TestLevelScopes(t *testing.T) {
	if !LevelPhase.ShouldEmit(ScopePass) || LevelPhase.ShouldEmit(ScopeMethod) {
		t.Errorf("phase level must stop at passes")
	}
	if !LevelDetail.ShouldEmit(ScopeMethod) || LevelDetail.ShouldEmit(ScopeMarker) {
		t.Errorf("detail level must stop at methods")
	}
	if !LevelDebug.ShouldEmit(ScopeMarker) {
		t.Errorf("debug level must emit markers")
	}
}

func TestStreamNDJSON(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelDetail, FormatNDJSON)
	ctx := WithTracer(context.Background(), tr)

	span, mctx := Start(ctx, ScopeMethod, "method:demo/BoxKt.cast")
	Point(FromContext(mctx), ScopeMarker, "marker", "dropped at detail level", CurrentSpan(mctx))
	span.WithExtra("markers", "2").End("ok")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 events, got %d: %q", len(lines), buf.String())
	}
	var end map[string]any
	if err := json.Unmarshal([]byte(lines[1]), &end); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if end["kind"] != "end" || end["detail"] != "ok" {
		t.Errorf("unexpected end event %v", end)
	}
	if extra, _ := end["extra"].(map[string]any); extra["markers"] != "2" {
		t.Errorf("expected extra markers=2, got %v", end["extra"])
	}
}

func TestChromeStreamIsValidJSON(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelDebug, FormatChrome)
	s := Begin(tr, ScopePass, "reify", 0)
	Point(tr, ScopeMarker, "marker", "rewritten", s.ID(), "kind", "IS")
	s.End("")
	if err := tr.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	var doc struct {
		TraceEvents []map[string]any `json:"traceEvents"`
	}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("invalid chrome trace: %v\n%s", err, buf.String())
	}
	if len(doc.TraceEvents) != 3 || doc.TraceEvents[0]["ph"] != "B" || doc.TraceEvents[2]["ph"] != "E" {
		t.Fatalf("unexpected events %v", doc.TraceEvents)
	}
}

func TestRingWrapsAndKeepsOrder(t *testing.T) {
	r := NewRingTracer(2, LevelDebug)
	for _, name := range []string{"a", "b", "c"} {
		Point(r, ScopeMarker, name, "", 0)
	}
	snap := r.Snapshot()
	if len(snap) != 2 || snap[0].Name != "b" || snap[1].Name != "c" {
		t.Fatalf("expected [b c], got %+v", snap)
	}
	var buf bytes.Buffer
	if err := r.Dump(&buf, FormatText); err != nil {
		t.Fatalf("dump: %v", err)
	}
	if !strings.Contains(buf.String(), "• c") {
		t.Errorf("expected text dump to contain point c, got %q", buf.String())
	}
}

func TestErrorLevelRingKeepsEverything(t *testing.T) {
	tr, err := New(Config{Level: LevelError, Mode: ModeRing, RingSize: 8})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	Point(tr, ScopeMarker, "marker", "", 0)
	if ring := RingOf(tr); ring == nil || len(ring.Snapshot()) != 1 {
		t.Fatalf("expected ring to capture the event")
	}
}

func TestOffIsNop(t *testing.T) {
	tr, err := New(Config{Level: LevelOff})
	if err != nil || tr.Enabled() {
		t.Fatalf("expected disabled tracer, got %v %v", tr, err)
	}
	if s := Begin(tr, ScopeDriver, "x", 0); s.ID() != 0 {
		t.Fatalf("nop span must have zero id")
	}
}

func TestNamesAndFormatDetection(t *testing.T) {
	if KindPoint.String() != "point" || Kind(0).String() != "unknown" {
		t.Errorf("unexpected kind names %q %q", KindPoint, Kind(0))
	}
	if ScopeMarker.String() != "marker" || Scope(9).String() != "unknown" {
		t.Errorf("unexpected scope names %q %q", ScopeMarker, Scope(9))
	}
	if ModeRing.String() != "ring" || LevelDetail.String() != "detail" {
		t.Errorf("unexpected mode or level names")
	}
	for path, want := range map[string]Format{"run.ndjson": FormatNDJSON, "run.json": FormatChrome, "-": FormatText, "": FormatText} {
		if got := detectFormat(path); got != want {
			t.Errorf("detectFormat(%q) = %v, want %v", path, got, want)
		}
	}
}
