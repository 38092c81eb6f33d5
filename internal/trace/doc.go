// Package trace records what the reification pipeline does: which units and
// methods were processed, and what happened to every marker.
//
// # Usage
//
//	reify run unit.toml --trace=- --trace-level=debug
//
// # Tracers
//
//   - Nop: zero-overhead tracer used when tracing is off
//   - StreamTracer: writes every event immediately (text, NDJSON or Chrome JSON)
//   - RingTracer: keeps the last N events for post-mortem dumps
//   - MultiTracer: fans out to several tracers
//
// # Levels and scopes
//
// LevelPhase emits driver and pass boundaries, LevelDetail adds one span per
// method, LevelDebug adds one point per marker decision. LevelError records
// nothing in stream mode and exists so the ring can be dumped on failure.
//
// # Context propagation
//
//	ctx = trace.WithTracer(ctx, tracer)
//	span := trace.Begin(trace.FromContext(ctx), trace.ScopePass, "reify", parentID)
//	defer span.End("")
package trace
