// Package sandbox runs the judge pipeline for one submission.
package sandbox

import (
	"context"

	"gavel/internal/payload"
)

// JudgeRequest contains all data needed to judge one submission.
type JudgeRequest struct {
	Submission payload.Submission
	Tests      []payload.TestCase
}

// TestState is the lifecycle state of one test case. Every supplied test
// moves pending -> executing -> classified and yields exactly one verdict.
type TestState string

const (
	TestPending    TestState = "pending"
	TestExecuting  TestState = "executing"
	TestClassified TestState = "classified"
)

// StatusUpdate carries intermediate judge progress data.
type StatusUpdate struct {
	SubmissionID string
	TestID       int
	State        TestState
	DoneTests    int
	TotalTests   int
}

// StatusReporter observes intermediate judge progress.
type StatusReporter interface {
	ReportStatus(ctx context.Context, update StatusUpdate)
}
