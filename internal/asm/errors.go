package asm

import (
	"fmt"
	"strings"

	"reify/internal/diag"
)

// Error is one problem found while parsing assembly text.
type Error struct {
	File string
	Line int
	Code diag.Code
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Msg)
}

// Diagnostic converts e for a diag.Bag.
func (e *Error) Diagnostic() diag.Diagnostic {
	return diag.NewError(e.Code, diag.AtLine(e.File, e.Line), e.Msg)
}

// ErrorList collects every error of one parse in source order.
type ErrorList []*Error

func (l ErrorList) Error() string {
	switch len(l) {
	case 0:
		return "no errors"
	case 1:
		return l[0].Error()
	}
	parts := make([]string, len(l))
	for i, e := range l {
		parts[i] = e.Error()
	}
	return strings.Join(parts, "\n")
}

// Report sends every error to r.
func (l ErrorList) Report(r diag.Reporter) {
	for _, e := range l {
		diag.ReportError(r, e.Code, diag.AtLine(e.File, e.Line), e.Msg).Emit()
	}
}
