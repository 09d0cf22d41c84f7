// Package aggregate accumulates per-test verdicts into a submission result.
package aggregate

import (
	"github.com/samber/lo"

	"gavel/internal/sandbox/result"
)

// Aggregator builds the submission result incrementally as tests finish.
// Tests are appended in execution order, which is also report order.
type Aggregator struct {
	submissionID string
	problemID    string
	compileMs    int64
	verdicts     []result.TestVerdict
	finalized    bool
}

// New creates an aggregator for one submission.
func New(submissionID, problemID string, compileMs int64) *Aggregator {
	return &Aggregator{
		submissionID: submissionID,
		problemID:    problemID,
		compileMs:    compileMs,
	}
}

// Add records one test verdict.
func (a *Aggregator) Add(v result.TestVerdict) {
	if a.finalized {
		return
	}
	a.verdicts = append(a.verdicts, v)
}

// Finalize computes the aggregate verdict. The overall status of a failing
// run is the status of the first non-accepted test in sequence order, a
// deterministic tie-break independent of failure severity.
func (a *Aggregator) Finalize() result.SubmissionResult {
	a.finalized = true

	passed := lo.CountBy(a.verdicts, func(v result.TestVerdict) bool {
		return v.Status == result.StatusAccepted
	})
	totalMs := lo.SumBy(a.verdicts, func(v result.TestVerdict) int64 { return v.TimeMs })
	peakKB := lo.MaxBy(a.verdicts, func(v, max result.TestVerdict) bool {
		return v.MemoryKB > max.MemoryKB
	}).MemoryKB

	status := result.StatusAccepted
	if firstFailed, found := lo.Find(a.verdicts, func(v result.TestVerdict) bool {
		return v.Status != result.StatusAccepted
	}); found {
		status = firstFailed.Status
	}

	return result.SubmissionResult{
		SubmissionID:         a.submissionID,
		ProblemID:            a.problemID,
		Status:               status,
		CompilationTimeMs:    a.compileMs,
		TotalExecutionTimeMs: totalMs,
		PeakMemoryKB:         peakKB,
		TestsPassed:          passed,
		TestsTotal:           len(a.verdicts),
		Tests:                a.verdicts,
	}
}
