// Package report serializes the submission result onto the output channel.
package report

import (
	"encoding/json"
	"fmt"
	"io"

	"gavel/internal/sandbox/result"
)

// TestRecord is the wire form of one test verdict.
type TestRecord struct {
	TestID   int    `json:"test_id"`
	Status   string `json:"status"`
	TimeMs   int64  `json:"time_ms"`
	MemoryKB int64  `json:"memory_kb"`
}

// Record is the single structured result emitted per judge run.
// ExecutionTimeMs is the average per executed test; TotalExecutionTimeMs
// is the sum across tests.
type Record struct {
	Status               string       `json:"status"`
	ErrorMessage         string       `json:"error_message,omitempty"`
	SubmissionID         string       `json:"submission_id,omitempty"`
	ProblemID            string       `json:"problem_id,omitempty"`
	CompilationTimeMs    int64        `json:"compilation_time_ms"`
	ExecutionTimeMs      int64        `json:"execution_time_ms"`
	TotalExecutionTimeMs int64        `json:"total_execution_time_ms"`
	MemoryUsedKB         int64        `json:"memory_used_kb"`
	TestsPassed          int          `json:"tests_passed"`
	TestsTotal           int          `json:"tests_total"`
	TestResults          []TestRecord `json:"test_results"`
}

// FromResult converts the aggregate result into its wire form.
func FromResult(res result.SubmissionResult) Record {
	rec := Record{
		Status:               string(res.Status),
		ErrorMessage:         res.ErrorMessage,
		SubmissionID:         res.SubmissionID,
		ProblemID:            res.ProblemID,
		CompilationTimeMs:    res.CompilationTimeMs,
		TotalExecutionTimeMs: res.TotalExecutionTimeMs,
		MemoryUsedKB:         res.PeakMemoryKB,
		TestsPassed:          res.TestsPassed,
		TestsTotal:           res.TestsTotal,
		TestResults:          make([]TestRecord, 0, len(res.Tests)),
	}
	if res.TestsTotal > 0 {
		rec.ExecutionTimeMs = res.TotalExecutionTimeMs / int64(res.TestsTotal)
	}
	for _, v := range res.Tests {
		rec.TestResults = append(rec.TestResults, TestRecord{
			TestID:   v.TestID,
			Status:   string(v.Status),
			TimeMs:   v.TimeMs,
			MemoryKB: v.MemoryKB,
		})
	}
	return rec
}

// InternalErrorRecord is the last line of defense: the caller always
// receives a parseable record, never a silent exit. It is the one case
// where error_message accompanies a status other than compilation_error;
// runtime_error is reused because no judged code ran to completion.
func InternalErrorRecord(submissionID string, msg string) Record {
	return Record{
		Status:       string(result.StatusRuntimeError),
		ErrorMessage: fmt.Sprintf("internal judge error: %s", msg),
		SubmissionID: submissionID,
		TestResults:  []TestRecord{},
	}
}

// Reporter writes exactly one record to the output channel.
type Reporter struct {
	w       io.Writer
	written bool
}

// NewReporter creates a reporter over the output channel.
func NewReporter(w io.Writer) *Reporter {
	return &Reporter{w: w}
}

// Write emits the record as one JSON line. Only the first call writes;
// later calls are ignored so fault paths cannot double-report.
func (r *Reporter) Write(rec Record) error {
	if r.written {
		return nil
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if _, err := r.w.Write(append(data, '\n')); err != nil {
		return err
	}
	r.written = true
	return nil
}

// Written reports whether a record has been emitted.
func (r *Reporter) Written() bool {
	return r.written
}
