package trace

import (
	"io"
	"sync"
)

// RingTracer keeps the most recent events of a run for post-mortem dumps.
type RingTracer struct {
	mu     sync.RWMutex
	events []Event
	head   int  // next write position
	full   bool // has wrapped around
	level  Level
}

// NewRingTracer keeps up to capacity events (4096 when capacity <= 0).
func NewRingTracer(capacity int, level Level) *RingTracer {
	if capacity <= 0 {
		capacity = 4096
	}
	return &RingTracer{
		events: make([]Event, capacity),
		level:  level,
	}
}

// Emit adds an event to the ring buffer. At LevelError every event is kept,
// so a failing run can still dump the most recent activity.
func (t *RingTracer) Emit(ev *Event) {
	if t.level != LevelError && !t.level.ShouldEmit(ev.Scope) {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	stored := *ev
	stored.Seq = NextSeq()
	t.events[t.head] = stored
	t.head = (t.head + 1) % len(t.events)
	if t.head == 0 {
		t.full = true
	}
}

// Snapshot returns a copy of all stored events in chronological order.
func (t *RingTracer) Snapshot() []Event {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if !t.full {
		result := make([]Event, t.head)
		copy(result, t.events[:t.head])
		return result
	}
	result := make([]Event, 0, len(t.events))
	result = append(result, t.events[t.head:]...)
	return append(result, t.events[:t.head]...)
}

// Dump replays the buffered events to w, oldest first.
func (t *RingTracer) Dump(w io.Writer, format Format) error {
	st := NewStreamTracer(w, LevelDebug, format)
	for _, ev := range t.Snapshot() {
		data := FormatEvent(&ev, format)
		st.mu.Lock()
		if format == FormatChrome && st.written > 0 {
			st.write([]byte(",\n"))
		}
		st.write(data)
		st.written++
		st.mu.Unlock()
	}
	if format == FormatChrome {
		st.write([]byte("\n]}\n"))
	}
	return st.err
}

func (t *RingTracer) Flush() error { return nil }

func (t *RingTracer) Close() error { return nil }

func (t *RingTracer) Level() Level { return t.level }

func (t *RingTracer) Enabled() bool { return t.level > LevelOff }
