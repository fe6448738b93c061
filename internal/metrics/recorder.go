// Package metrics records build and lint activity. The default recorder does
// nothing; the Prometheus recorder is installed when a metrics address is set.
package metrics

import "time"

// LintOutcome classifies one lint attempt.
type LintOutcome string

const (
	LintRan       LintOutcome = "ran"
	LintThrottled LintOutcome = "throttled"
	LintFailed    LintOutcome = "failed"
	LintSkipped   LintOutcome = "skipped"
)

// Recorder receives observations from the build orchestrator and linters.
// Implementations must be safe for concurrent use.
type Recorder interface {
	ObserveBuild(status string, d time.Duration)
	SetBuildsInFlight(n int)
	IncLint(tool string, outcome LintOutcome)
	ObserveLintDuration(tool string, d time.Duration)
}

// NoopRecorder discards every observation.
type NoopRecorder struct{}

func (NoopRecorder) ObserveBuild(string, time.Duration)        {}
func (NoopRecorder) SetBuildsInFlight(int)                     {}
func (NoopRecorder) IncLint(string, LintOutcome)               {}
func (NoopRecorder) ObserveLintDuration(string, time.Duration) {}

// OrNoop returns r, or a NoopRecorder when r is nil.
func OrNoop(r Recorder) Recorder {
	if r == nil {
		return NoopRecorder{}
	}
	return r
}
