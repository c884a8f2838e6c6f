package history

import "time"

// Status is the lifecycle state of a run or of one target within it.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	// StatusSkipped marks targets never attempted because an earlier one halted the run.
	StatusSkipped Status = "skipped"
)

// Run is one ffbuild build invocation.
type Run struct {
	ID         string
	SourceKind string
	SourceRef  string
	SourceDir  string
	Commit     string
	Status     Status
	Error      string
	Started    time.Time
	Finished   time.Time
	Targets    []Target
}

// Duration returns the wall time of a finished run.
func (r Run) Duration() time.Duration {
	if r.Finished.IsZero() {
		return 0
	}
	return r.Finished.Sub(r.Started)
}

// Target is the outcome for one ABI.
type Target struct {
	ABI             string
	APILevel        int
	Status          Status
	Libraries       int
	TextRelocations int
	Error           string
	Duration        time.Duration
}
