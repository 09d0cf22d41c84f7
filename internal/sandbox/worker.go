package sandbox

import (
	"context"

	"go.uber.org/zap"

	"gavel/internal/payload"
	"gavel/internal/sandbox/aggregate"
	"gavel/internal/sandbox/profile"
	"gavel/internal/sandbox/result"
	"gavel/internal/sandbox/runner"
	"gavel/internal/sandbox/spec"
	"gavel/internal/sandbox/verdict"
	appErr "gavel/pkg/errors"
	"gavel/pkg/utils/logger"
)

// Config holds worker settings.
type Config struct {
	// WorkDir is the scratch directory owned by this invocation.
	WorkDir string
	// EarlyExit stops at the first non-accepted test. Off by default:
	// the passed-test count is a first-class output.
	EarlyExit bool
	// Compile limits are fixed per run, independent of test limits.
	CompileTimeLimitMs   int64
	CompileMemoryLimitKB int64
}

// Worker executes the full judge workflow for one submission:
// compile once, then run and classify every test in sequence order.
type Worker struct {
	runner     runner.Runner
	registry   *profile.Registry
	classifier *verdict.Classifier
	cfg        Config
	status     StatusReporter
}

// NewWorker creates a worker with required dependencies.
func NewWorker(r runner.Runner, registry *profile.Registry, classifier *verdict.Classifier, cfg Config) *Worker {
	return &Worker{
		runner:     r,
		registry:   registry,
		classifier: classifier,
		cfg:        cfg,
	}
}

// SetStatusReporter injects an observer for intermediate progress.
func (w *Worker) SetStatusReporter(reporter StatusReporter) {
	w.status = reporter
}

// Execute judges one submission. A returned error is an internal fault
// that prevented judging; everything else, including compile failures and
// per-test faults, is expressed in the returned result.
func (w *Worker) Execute(ctx context.Context, req JudgeRequest) (result.SubmissionResult, error) {
	if w.runner == nil || w.registry == nil || w.classifier == nil {
		return result.SubmissionResult{}, appErr.New(appErr.InternalError).WithMessage("worker dependencies are not initialized")
	}
	if w.cfg.WorkDir == "" {
		return result.SubmissionResult{}, appErr.ValidationError("work_dir", "required")
	}

	sub := req.Submission
	ctx = context.WithValue(ctx, logger.SubmissionIDKey, sub.SubmissionID)
	if sub.ProblemID != "" {
		ctx = context.WithValue(ctx, logger.ProblemIDKey, sub.ProblemID)
	}

	lang, err := w.registry.Get(sub.Language)
	if err != nil {
		if appErr.Is(err, appErr.LanguageNotSupported) {
			return compileErrorResult(sub, 0, "language not supported: "+sub.Language), nil
		}
		return result.SubmissionResult{}, err
	}

	compileRes, err := w.runner.Compile(ctx, runner.CompileRequest{
		SubmissionID: sub.SubmissionID,
		Language:     lang,
		WorkDir:      w.cfg.WorkDir,
		Source:       sub.Source,
		Limits: spec.ResourceLimit{
			WallTimeMs: w.cfg.CompileTimeLimitMs,
			MemoryKB:   w.cfg.CompileMemoryLimitKB,
		},
	})
	if err != nil {
		return result.SubmissionResult{}, err
	}
	if !compileRes.OK {
		logger.Info(ctx, "compilation failed", zap.Int("exit_code", compileRes.ExitCode), zap.Int64("time_ms", compileRes.TimeMs))
		return compileErrorResult(sub, compileRes.TimeMs, compileRes.Diagnostics), nil
	}
	logger.Debug(ctx, "compiled", zap.Int64("time_ms", compileRes.TimeMs))

	agg := aggregate.New(sub.SubmissionID, sub.ProblemID, compileRes.TimeMs)
	total := len(req.Tests)

	for i, tc := range req.Tests {
		testCtx := context.WithValue(ctx, logger.TestIDKey, tc.ID)
		w.reportStatus(testCtx, sub.SubmissionID, tc.ID, TestExecuting, i, total)

		v := w.runTest(testCtx, lang, sub.SubmissionID, tc)
		agg.Add(v)
		w.reportStatus(testCtx, sub.SubmissionID, tc.ID, TestClassified, i+1, total)

		if w.cfg.EarlyExit && v.Status != result.StatusAccepted {
			break
		}
	}

	return agg.Finalize(), nil
}

// runTest executes and classifies one test case. Executor faults convert
// to a runtime_error verdict for this test only; later tests still run.
func (w *Worker) runTest(ctx context.Context, lang profile.LanguageSpec, submissionID string, tc payload.TestCase) result.TestVerdict {
	outcome, err := w.runner.Run(ctx, runner.RunRequest{
		SubmissionID: submissionID,
		TestID:       tc.ID,
		Language:     lang,
		WorkDir:      w.cfg.WorkDir,
		Input:        tc.Input,
		Limits: spec.ResourceLimit{
			WallTimeMs: tc.TimeLimitMs,
			MemoryKB:   tc.MemoryLimitKB,
		},
	})
	if err != nil {
		logger.Warn(ctx, "executor fault, isolating to this test", zap.Error(err))
		return result.TestVerdict{
			TestID:   tc.ID,
			Status:   result.StatusRuntimeError,
			TimeMs:   outcome.WallTimeMs,
			MemoryKB: outcome.PeakMemoryKB,
		}
	}

	v := w.classifier.Classify(tc.ID, outcome, tc.ExpectedOutput)
	logger.Debug(ctx, "test classified",
		zap.String("status", string(v.Status)),
		zap.Int64("wall_ms", outcome.WallTimeMs),
		zap.Int64("cpu_ms", outcome.CPUTimeMs),
		zap.Int64("memory_kb", outcome.PeakMemoryKB))
	return v
}

func (w *Worker) reportStatus(ctx context.Context, submissionID string, testID int, state TestState, done, total int) {
	if w.status == nil {
		return
	}
	w.status.ReportStatus(ctx, StatusUpdate{
		SubmissionID: submissionID,
		TestID:       testID,
		State:        state,
		DoneTests:    done,
		TotalTests:   total,
	})
}

func compileErrorResult(sub payload.Submission, compileMs int64, diagnostics string) result.SubmissionResult {
	return result.SubmissionResult{
		SubmissionID:      sub.SubmissionID,
		ProblemID:         sub.ProblemID,
		Status:            result.StatusCompilationError,
		ErrorMessage:      diagnostics,
		CompilationTimeMs: compileMs,
		Tests:             []result.TestVerdict{},
	}
}
