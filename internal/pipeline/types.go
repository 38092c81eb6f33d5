package pipeline

import "time"

// Stage describes a high-level pipeline phase.
type Stage string

const (
	// StageLoad reads and assembles a source file.
	StageLoad Stage = "load"
	// StageCheck validates a method before it is rewritten.
	StageCheck Stage = "check"
	// StageReify rewrites the markers of a method.
	StageReify Stage = "reify"
	// StageCache covers cache lookups and stores.
	StageCache Stage = "cache"
)

// Status captures progress state within a stage.
type Status string

const (
	// StatusQueued indicates the task is waiting to start.
	StatusQueued Status = "queued"
	// StatusWorking indicates the task is currently working.
	StatusWorking Status = "working"
	// StatusDone indicates the task is done.
	StatusDone Status = "done"
	// StatusError indicates the task encountered an error.
	StatusError Status = "error"
)

// Event reports progress for a method, a file when Method is empty, or the
// whole run when both are empty.
type Event struct {
	File    string
	Method  string
	Stage   Stage
	Status  Status
	Err     error
	Elapsed time.Duration
}

// Task names what the event is about.
func (e Event) Task() string {
	switch {
	case e.Method != "":
		return e.Method
	case e.File != "":
		return e.File
	}
	return string(e.Stage)
}

// ProgressSink consumes progress events.
type ProgressSink interface {
	OnEvent(Event)
}
