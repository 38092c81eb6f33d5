// Package testkit holds invariant checks shared by the package tests.
package testkit

import (
	"errors"
	"fmt"
	"slices"

	"reify/internal/bc"
	"reify/internal/marker"
)

// CheckRewrittenBody runs the invariants every rewritten body must keep:
// 1) the operand stack is consistent and fits the declared max
// 2) every operation marker left behind still decodes
// 3) no remaining marker names one of the callee parameters in replaced
func CheckRewrittenBody(m *bc.Method, replaced ...string) error {
	if m == nil || m.Code == nil {
		return errors.New("nil method or body")
	}
	name := m.QualifiedName()

	depth, err := bc.MaxStack(m.Code)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if m.MaxStack > 0 && depth > m.MaxStack {
		return fmt.Errorf("%s: stack depth %d exceeds declared max %d", name, depth, m.MaxStack)
	}

	var errs []error
	for _, site := range marker.Scan(m.Code) {
		if site.NeedClassReification {
			continue
		}
		if !site.Decoded {
			errs = append(errs, fmt.Errorf("%s #%d: undecodable marker", name, site.Index))
			continue
		}
		if slices.Contains(replaced, site.Argument.ParameterName) {
			errs = append(errs, fmt.Errorf("%s #%d: %s marker still names %q",
				name, site.Index, site.Kind, site.Argument.ParameterName))
		}
	}
	return errors.Join(errs...)
}
