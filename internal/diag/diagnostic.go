package diag

import (
	"fmt"
	"strings"
)

// Location points either at a source line (Line > 0) or at an instruction of
// a method (Method set, Index >= 0). Both may be present.
type Location struct {
	File   string
	Line   int
	Method string
	Index  int
}

// NoIndex marks a location that does not refer to a single instruction.
const NoIndex = -1

// At returns the location of instruction index inside method.
func At(file, method string, index int) Location {
	return Location{File: file, Method: method, Index: index}
}

// AtLine returns the location of a source line.
func AtLine(file string, line int) Location {
	return Location{File: file, Line: line, Index: NoIndex}
}

func (l Location) String() string {
	var sb strings.Builder
	sb.WriteString(l.File)
	if l.Line > 0 {
		fmt.Fprintf(&sb, ":%d", l.Line)
	}
	if l.Method != "" {
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(l.Method)
		if l.Index >= 0 {
			fmt.Fprintf(&sb, "#%d", l.Index)
		}
	}
	return sb.String()
}

type Note struct {
	Loc Location
	Msg string
}

type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Primary  Location
	Notes    []Note
}

func New(sev Severity, code Code, primary Location, msg string) Diagnostic {
	return Diagnostic{
		Severity: sev,
		Code:     code,
		Primary:  primary,
		Message:  msg,
	}
}

func NewError(code Code, primary Location, msg string) Diagnostic {
	return New(SevError, code, primary, msg)
}

func (d Diagnostic) WithNote(loc Location, msg string) Diagnostic {
	d.Notes = append(d.Notes, Note{Loc: loc, Msg: msg})
	return d
}
