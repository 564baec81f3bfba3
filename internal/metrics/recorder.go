package metrics

import "time"

// Result enumerates poll and command outcome labels.
type Result string

const (
	ResultOK       Result = "ok"
	ResultEmpty    Result = "empty"
	ResultError    Result = "error"
	ResultRejected Result = "rejected"
	ResultCanceled Result = "canceled"
)

// Recorder defines observability hooks for the synchronizer.
type Recorder interface {
	ObservePoll(source string, d time.Duration, result Result)
	IncSkippedTick(source string)
	IncCommand(command string, result Result)
	SetArmed(armed bool)
	SetHealthCode(code int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics are not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObservePoll(string, time.Duration, Result) {}
func (NoopRecorder) IncSkippedTick(string)                     {}
func (NoopRecorder) IncCommand(string, Result)                 {}
func (NoopRecorder) SetArmed(bool)                             {}
func (NoopRecorder) SetHealthCode(int)                         {}
