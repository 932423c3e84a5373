package calendar

import (
	"time"
)

// RunReport summarises one sync run. The JSON field names success, processed,
// inserted, skipped, errors, sourceUsed and window are consumed by operator tooling.
type RunReport struct {
	RunID string `json:"runId"`
	Job   string `json:"job"`
	Kind  Kind   `json:"kind"`

	Success      bool   `json:"success"`
	Processed    int    `json:"processed"`
	Normalized   int    `json:"normalized"`
	Inserted     int    `json:"inserted"`
	Skipped      int    `json:"skipped"`
	Deduplicated int    `json:"deduplicated"`
	Errors       int    `json:"errors"`
	SourceUsed   string `json:"sourceUsed"`
	Window       Window `json:"window"`

	Batches       int `json:"batches"`
	BatchesFailed int `json:"batchesFailed"`

	Transitions []Transition    `json:"transitions,omitempty"`
	Failures    []RecordFailure `json:"failures,omitempty"`

	Cancelled     bool   `json:"cancelled,omitempty"`
	SkippedReason string `json:"skippedReason,omitempty"`
	Error         string `json:"error,omitempty"`

	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	DurationMs int64     `json:"durationMs"`
}

// Transition records one fallback state change and why it happened
type Transition struct {
	Batch  int    `json:"batch"`
	From   string `json:"from"`
	To     string `json:"to"`
	Reason string `json:"reason"`
}

// RecordFailure is one event (or a whole batch when ID is empty) that could not be persisted
type RecordFailure struct {
	ID     string `json:"id,omitempty"`
	Batch  int    `json:"batch"`
	Source string `json:"source,omitempty"`
	Error  string `json:"error"`
}
