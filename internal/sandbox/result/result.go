// Package result defines execution outcomes, verdicts and the submission result.
package result

// Status classifies a single test case or the whole submission.
type Status string

const (
	StatusAccepted            Status = "accepted"
	StatusWrongAnswer         Status = "wrong_answer"
	StatusRuntimeError        Status = "runtime_error"
	StatusTimeout             Status = "timeout"
	StatusMemoryLimitExceeded Status = "memory_limit_exceeded"
	// StatusCompilationError applies to the submission only, never to a test.
	StatusCompilationError Status = "compilation_error"
)

// TerminationKind records how the sandboxed process ended.
type TerminationKind string

const (
	TerminatedNaturally     TerminationKind = "natural"
	TerminatedByTimeout     TerminationKind = "timeout"
	TerminatedByMemoryLimit TerminationKind = "memory_limit"
	TerminatedBySignal      TerminationKind = "signal"
)

// ExecutionOutcome captures raw sandbox execution data for one test case.
// It lives only until the verdict for that test is computed.
type ExecutionOutcome struct {
	Stdout       []byte
	Stderr       []byte
	ExitCode     int
	Signal       string
	TerminatedBy TerminationKind
	WallTimeMs   int64
	CPUTimeMs    int64
	PeakMemoryKB int64
}

// CompileResult contains the compilation outcome.
type CompileResult struct {
	OK          bool
	ExitCode    int
	TimeMs      int64
	Diagnostics string
}

// TestVerdict is the immutable classification of one test case.
type TestVerdict struct {
	TestID   int
	Status   Status
	TimeMs   int64
	MemoryKB int64
}

// SubmissionResult is the aggregate verdict for one judged submission.
// Invariant: TestsPassed equals the number of accepted entries in Tests,
// and TestsTotal equals len(Tests); after a compilation error both are zero.
type SubmissionResult struct {
	SubmissionID         string
	ProblemID            string
	Status               Status
	ErrorMessage         string
	CompilationTimeMs    int64
	TotalExecutionTimeMs int64
	PeakMemoryKB         int64
	TestsPassed          int
	TestsTotal           int
	Tests                []TestVerdict
}
