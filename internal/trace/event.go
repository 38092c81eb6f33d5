package trace

import "time"

// Kind tells spans from points.
type Kind uint8

const (
	KindSpanBegin Kind = iota + 1
	KindSpanEnd
	KindPoint
)

var kindNames = [...]string{KindSpanBegin: "begin", KindSpanEnd: "end", KindPoint: "point"}

func (k Kind) String() string {
	if k > 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Scope is the granularity of an event; lower values are coarser.
type Scope uint8

const (
	ScopeDriver Scope = iota + 1 // one command invocation
	ScopePass                    // load, resolve, cache, reify
	ScopeMethod                  // one method body
	ScopeMarker                  // one marker occurrence
)

var scopeNames = [...]string{ScopeDriver: "driver", ScopePass: "pass", ScopeMethod: "method", ScopeMarker: "marker"}

func (s Scope) String() string {
	if s > 0 && int(s) < len(scopeNames) {
		return scopeNames[s]
	}
	return "unknown"
}

// Event is one span boundary or point.
type Event struct {
	Time     time.Time         // wall-clock timestamp
	Seq      uint64            // global sequence number (monotonic)
	Kind     Kind              // event kind
	Scope    Scope             // granularity level
	SpanID   uint64            // unique span identifier, 0 for points
	ParentID uint64            // parent span (0 if root)
	GID      uint64            // goroutine ID (for concurrent spans)
	Name     string            // e.g. "reify", "method:demo/BoxKt.cast"
	Detail   string            // optional detail message
	Extra    map[string]string // extensible key-value pairs
}
