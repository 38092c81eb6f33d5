package driver

import (
	"encoding/json"
	"fmt"

	"reify/internal/diag"
	"reify/internal/observ"
)

// timingPayload is the JSON carried by the ObsTimings note.
type timingPayload struct {
	Kind    string               `json:"kind"`
	Path    string               `json:"path,omitempty"`
	Methods int                  `json:"methods"`
	TotalMS float64              `json:"total_ms"`
	Phases  []observ.PhaseReport `json:"phases"`
}

func (p timingPayload) diagnostic() (diag.Diagnostic, error) {
	if p.Kind == "" {
		p.Kind = "run"
	}
	note, err := json.Marshal(p)
	if err != nil {
		return diag.Diagnostic{}, err
	}
	loc := diag.AtLine(p.Path, 0)
	msg := fmt.Sprintf("%s of %d methods took %.2f ms", p.Kind, p.Methods, p.TotalMS)
	return diag.New(diag.SevInfo, diag.ObsTimings, loc, msg).WithNote(loc, string(note)), nil
}

// appendTimingDiagnostic adds the timing report to bag even when the bag
// is already at its limit.
func appendTimingDiagnostic(bag *diag.Bag, payload timingPayload) {
	if bag == nil {
		return
	}
	d, err := payload.diagnostic()
	if err != nil || bag.Add(d) {
		return
	}
	overflow := diag.NewBag(1)
	overflow.Add(d)
	bag.Merge(overflow)
}
