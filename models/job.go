package models

import (
	"fmt"
	"math"
	"time"
)

// ScaleEntry names a density class and the multiplier applied to the base size
type ScaleEntry struct {
	Name       string  `json:"name"`       // e.g. "hdpi"
	Multiplier float64 `json:"multiplier"` // 1.5 for hdpi
}

// JobDescriptor is one (source file, scale) conversion. Never mutated after the build.
type JobDescriptor struct {
	SourcePath      string `json:"source_path"`
	Scale           string `json:"scale"`
	TargetSize      int    `json:"target_size"` // square edge in pixels
	DestinationPath string `json:"destination_path"`
	FileType        string `json:"file_type"` // selects the command template
}

// JobStatus is the terminal state of a job
type JobStatus int

const (
	StatusSuccess JobStatus = iota
	StatusFailure
)

func (s JobStatus) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// JobOutcome is produced once per descriptor by the converter invoker
type JobOutcome struct {
	Descriptor JobDescriptor `json:"descriptor"`
	Status     JobStatus     `json:"status"`
	ExitCode   int           `json:"exit_code"`
	Output     string        `json:"output,omitempty"` // captured converter output, kept for failures only
	Duration   time.Duration `json:"duration"`
}

// Failed reports whether the outcome is a failure
func (o JobOutcome) Failed() bool {
	return o.Status == StatusFailure
}

// BatchSummary is the finalized view of one run
type BatchSummary struct {
	TotalJobs int           `json:"total_jobs"`
	Failed    []JobOutcome  `json:"failed"` // in completion order
	Elapsed   time.Duration `json:"elapsed"`
}

// FailedCount is what the CLI layer uses to decide the exit status
func (s BatchSummary) FailedCount() int {
	return len(s.Failed)
}

// ElapsedSeconds returns the wall time of the run in seconds
func (s BatchSummary) ElapsedSeconds() float64 {
	return s.Elapsed.Seconds()
}

func (s BatchSummary) String() string {
	return fmt.Sprintf("Finished %d conversions in %d seconds", s.TotalJobs, int(math.Round(s.ElapsedSeconds())))
}
