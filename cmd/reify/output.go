package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"

	"reify/internal/diag"
	"reify/internal/observ"
)

var (
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow, color.Bold)
	infoColor    = color.New(color.FgCyan)
	noteColor    = color.New(color.Faint)
)

func severityColor(sev diag.Severity) *color.Color {
	switch sev {
	case diag.SevError:
		return errorColor
	case diag.SevWarning:
		return warningColor
	default:
		return infoColor
	}
}

// printDiagnostics writes one line per diagnostic, sorted, followed by its
// notes. Timing notes carry JSON and are only shown with includeNotes.
func printDiagnostics(out io.Writer, bag *diag.Bag, includeNotes bool) {
	if bag == nil || bag.Len() == 0 {
		return
	}
	bag.Sort()
	for _, d := range bag.Items() {
		label := d.Severity.Label()
		fmt.Fprintf(out, "%s: %s[%s]: %s\n", location(d.Primary), severityColor(d.Severity).Sprint(label), d.Code.ID(), d.Message)
		if !includeNotes && d.Code == diag.ObsTimings {
			continue
		}
		for _, n := range d.Notes {
			fmt.Fprintf(out, "  %s %s\n", noteColor.Sprint("note:"), n.Msg)
		}
	}
}

func location(loc diag.Location) string {
	if s := loc.String(); s != "" {
		return s
	}
	return "<unit>"
}

type jsonDiagnostic struct {
	Severity string   `json:"severity"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	File     string   `json:"file,omitempty"`
	Line     int      `json:"line,omitempty"`
	Method   string   `json:"method,omitempty"`
	Index    *int     `json:"index,omitempty"`
	Notes    []string `json:"notes,omitempty"`
}

func toJSONDiagnostics(bag *diag.Bag) []jsonDiagnostic {
	if bag == nil {
		return nil
	}
	bag.Sort()
	out := make([]jsonDiagnostic, 0, bag.Len())
	for _, d := range bag.Items() {
		jd := jsonDiagnostic{
			Severity: d.Severity.Label(),
			Code:     d.Code.ID(),
			Message:  d.Message,
			File:     d.Primary.File,
			Line:     d.Primary.Line,
			Method:   d.Primary.Method,
		}
		if d.Primary.Method != "" && d.Primary.Index >= 0 {
			idx := d.Primary.Index
			jd.Index = &idx
		}
		for _, n := range d.Notes {
			jd.Notes = append(jd.Notes, n.Msg)
		}
		out = append(out, jd)
	}
	return out
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printTimings(out io.Writer, report observ.Report) {
	fmt.Fprintln(out, "timings:")
	for _, p := range report.Phases {
		fmt.Fprintf(out, "  %-10s %8.2f ms", p.Name, p.DurationMS)
		if p.Note != "" {
			fmt.Fprintf(out, "  // %s", p.Note)
		}
		fmt.Fprintln(out)
	}
	fmt.Fprintf(out, "  %-10s %8.2f ms\n", "total", report.TotalMS)
}
