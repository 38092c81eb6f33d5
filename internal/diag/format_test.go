package diag

import "testing"

func TestFormatShortDiagnostics(t *testing.T) {
	diags := []Diagnostic{
		{
			Severity: SevWarning,
			Code:     RfyAbandonedMarker,
			Message:  "AS marker for T\nleft in place",
			Primary:  At("./testdata/box.rasm", "demo/BoxKt.cast", 7),
			Notes: []Note{
				{Loc: At("./testdata/box.rasm", "demo/BoxKt.cast", 10), Msg: "expected checkcast"},
			},
		},
		{
			Severity: SevError,
			Code:     AsmSyntax,
			Message:  "unexpected token",
			Primary:  AtLine("testdata/box.rasm", 3),
		},
	}

	expected := "warning RFY5001 testdata/box.rasm demo/BoxKt.cast#7 AS marker for T left in place\n" +
		"note RFY5001 testdata/box.rasm demo/BoxKt.cast#10 expected checkcast\n" +
		"error ASM1001 testdata/box.rasm:3 unexpected token"

	if got := FormatShortDiagnostics(diags, true); got != expected {
		t.Fatalf("unexpected short diagnostics:\nwant:\n%s\n\ngot:\n%s", expected, got)
	}
}

func TestBagLimitSortAndDedup(t *testing.T) {
	bag := NewBag(3)
	r := BagReporter{Bag: bag}
	loc := At("a.rasm", "m", 2)
	ReportWarning(r, RfyAbandonedMarker, loc, "first").Emit()
	ReportWarning(r, RfyAbandonedMarker, loc, "again").Emit()
	ReportError(r, BcStackUnderflow, At("a.rasm", "m", 1), "underflow").Emit()
	if bag.Add(New(SevInfo, RfyInfo, loc, "over")) {
		t.Fatalf("expected bag limit to reject the fourth diagnostic")
	}
	if !bag.HasErrors() || !bag.HasWarnings() {
		t.Fatalf("expected both errors and warnings")
	}
	bag.Dedup()
	if bag.Len() != 2 {
		t.Fatalf("expected 2 diagnostics after dedup, got %d", bag.Len())
	}
	bag.Sort()
	if bag.Items()[0].Code != BcStackUnderflow {
		t.Errorf("expected index 1 first, got %s", bag.Items()[0].Code.ID())
	}
}

func TestBagMergeGrowsLimit(t *testing.T) {
	a, b := NewBag(1), NewBag(2)
	a.Add(New(SevInfo, RfyInfo, Location{}, "a"))
	b.Add(New(SevInfo, RfyInfo, Location{}, "b"))
	b.Add(New(SevInfo, RfyInfo, Location{}, "c"))
	a.Merge(b)
	if a.Len() != 3 || a.Cap() != 3 {
		t.Fatalf("expected 3 merged diagnostics with cap 3, got %d/%d", a.Len(), a.Cap())
	}
}

func TestReportBuilderEmitsOnce(t *testing.T) {
	bag := NewBag(10)
	b := ReportInfo(BagReporter{Bag: bag}, MrkUnmapped, At("", "m", 0), "unmapped").
		WithNote(At("", "m", 1), "note")
	b.Emit()
	b.Emit()
	if bag.Len() != 1 || len(bag.Items()[0].Notes) != 1 {
		t.Fatalf("expected one diagnostic with one note, got %+v", bag.Items())
	}
}

func TestDedupReporter(t *testing.T) {
	bag := NewBag(10)
	r := NewDedupReporter(BagReporter{Bag: bag})
	for i := 0; i < 3; i++ {
		r.Report(MrkUndecodable, SevInfo, At("f", "m", 4), "bad marker", nil)
	}
	if bag.Len() != 1 {
		t.Fatalf("expected 1 diagnostic, got %d", bag.Len())
	}
}

func TestSeverityLabels(t *testing.T) {
	for sev, want := range map[Severity]string{SevInfo: "info", SevWarning: "warning", SevError: "error", Severity(9): "unknown"} {
		if got := sev.Label(); got != want {
			t.Errorf("expected %q for %d, got %q", want, sev, got)
		}
	}
	if SevError.String() != "ERROR" {
		t.Errorf("expected upper-case String, got %q", SevError.String())
	}
}
