package diag

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

type shortDiagnostic struct {
	Severity string
	Code     string
	Loc      Location
	Message  string
}

// FormatShortDiagnostics renders diagnostics into a stable, single-line-per-entry
// representation used by golden tests and the CLI text output. Entries are
// sorted deterministically and returned as a single string (empty when nothing
// remains).
func FormatShortDiagnostics(diags []Diagnostic, includeNotes bool) string {
	if len(diags) == 0 {
		return ""
	}

	rendered := make([]shortDiagnostic, 0, len(diags))
	for i := range diags {
		rendered = appendDiagnostic(rendered, &diags[i], includeNotes)
	}

	sort.SliceStable(rendered, func(i, j int) bool {
		di, dj := rendered[i], rendered[j]
		if di.Loc.File != dj.Loc.File {
			return di.Loc.File < dj.Loc.File
		}
		if di.Loc.Line != dj.Loc.Line {
			return di.Loc.Line < dj.Loc.Line
		}
		if di.Loc.Method != dj.Loc.Method {
			return di.Loc.Method < dj.Loc.Method
		}
		if di.Loc.Index != dj.Loc.Index {
			return di.Loc.Index < dj.Loc.Index
		}
		if di.Severity != dj.Severity {
			return di.Severity < dj.Severity
		}
		if di.Code != dj.Code {
			return di.Code < dj.Code
		}
		return di.Message < dj.Message
	})

	var b strings.Builder
	for i, d := range rendered {
		fmt.Fprintf(&b, "%s %s %s %s", d.Severity, d.Code, d.Loc, d.Message)
		if i < len(rendered)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func appendDiagnostic(out []shortDiagnostic, d *Diagnostic, includeNotes bool) []shortDiagnostic {
	out = append(out, shortDiagnostic{
		Severity: d.Severity.Label(),
		Code:     d.Code.ID(),
		Loc:      normalizeLocation(d.Primary),
		Message:  sanitizeMessage(d.Message),
	})

	if includeNotes {
		for _, note := range d.Notes {
			out = append(out, shortDiagnostic{
				Severity: "note",
				Code:     d.Code.ID(),
				Loc:      normalizeLocation(note.Loc),
				Message:  sanitizeMessage(note.Msg),
			})
		}
	}

	return out
}

func normalizeLocation(loc Location) Location {
	if loc.File == "" {
		return loc
	}
	p := filepath.ToSlash(loc.File)
	for strings.HasPrefix(p, "./") {
		p = strings.TrimPrefix(p, "./")
	}
	loc.File = p
	return loc
}

func sanitizeMessage(msg string) string {
	msg = strings.ReplaceAll(msg, "\r\n", "\n")
	msg = strings.ReplaceAll(msg, "\r", "\n")
	msg = strings.ReplaceAll(msg, "\n", " ")
	return strings.TrimSpace(msg)
}
