package reify

import (
	"errors"
	"fmt"
	"strings"

	"reify/internal/marker"
)

// ErrAbandonedMarker is matched by errors reporting markers left in place.
var ErrAbandonedMarker = errors.New("reified operation marker left in place")

// AbandonedMarker is a marker whose follow-up instructions did not have the
// shape its operation kind requires.
type AbandonedMarker struct {
	Index    int // instruction index of the marker call before rewriting
	Kind     marker.OperationKind
	Argument marker.Argument
	Reason   string
}

func (a AbandonedMarker) String() string {
	return fmt.Sprintf("#%d %s %q: %s", a.Index, a.Kind, a.Argument.String(), a.Reason)
}

// AbandonedMarkersError is returned in strict mode once a body has been
// fully processed and at least one marker was abandoned.
type AbandonedMarkersError struct {
	Method  string
	Markers []AbandonedMarker
}

func (e *AbandonedMarkersError) Error() string {
	if e == nil {
		return "<nil>"
	}
	parts := make([]string, 0, len(e.Markers))
	for _, m := range e.Markers {
		parts = append(parts, m.String())
	}
	return fmt.Sprintf("%s: %d marker(s) left in place: %s", e.Method, len(e.Markers), strings.Join(parts, "; "))
}

func (e *AbandonedMarkersError) Unwrap() error { return ErrAbandonedMarker }
