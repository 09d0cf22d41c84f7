// gavel judges one submission per process: it decodes the code and test
// payloads from the environment, compiles and runs the code in a sandbox,
// and writes exactly one JSON verdict record to stdout. The process exits
// 0 once any record has been written; the verdict travels in the payload,
// not in the exit code.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"gavel/internal/payload"
	"gavel/internal/report"
	"gavel/internal/sandbox"
	"gavel/internal/sandbox/engine"
	"gavel/internal/sandbox/profile"
	"gavel/internal/sandbox/result"
	"gavel/internal/sandbox/runner"
	"gavel/internal/sandbox/verdict"
	"gavel/internal/workspace"
	appErr "gavel/pkg/errors"
	"gavel/pkg/utils/logger"
)

func main() {
	// Optional .env for local runs; the orchestrator sets env directly.
	_ = godotenv.Load()

	reporter := report.NewReporter(os.Stdout)
	submissionID := os.Getenv("SUBMISSION_ID")

	defer func() {
		if r := recover(); r != nil {
			_ = reporter.Write(report.InternalErrorRecord(submissionID, fmt.Sprint(r)))
		}
		_ = logger.Sync()
	}()

	cfg, err := loadAppConfig(os.Getenv("GAVEL_CONFIG"))
	if err != nil {
		_ = reporter.Write(report.InternalErrorRecord(submissionID, err.Error()))
		return
	}
	if err := logger.Init(cfg.Logger); err != nil {
		_ = reporter.Write(report.InternalErrorRecord(submissionID, err.Error()))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		cancel()
	}()

	rec := judge(ctx, cfg, submissionID)
	if err := reporter.Write(rec); err != nil {
		logger.Error(ctx, "write report failed", zap.Error(err))
		os.Exit(1)
	}
}

// judge runs the full pipeline and always produces a record: decode and
// compile failures short-circuit to compilation_error, internal faults to
// the catch-all internal-error record.
func judge(ctx context.Context, cfg *AppConfig, submissionID string) report.Record {
	decoder := payload.NewDecoder(payload.Defaults{
		TimeLimitMs:   cfg.Judge.DefaultTimeLimitMs,
		MemoryLimitKB: cfg.Judge.DefaultMemoryLimitKB,
	})

	language := os.Getenv("LANGUAGE")
	if language == "" {
		language = cfg.Judge.DefaultLanguage
	}

	sub, err := decoder.DecodeSubmission(os.Getenv("CODE"), language, submissionID, os.Getenv("PROBLEM_ID"))
	if err != nil {
		logger.Warn(ctx, "code payload rejected", zap.Error(err))
		return decodeErrorRecord(submissionID, err)
	}
	tests, err := decoder.DecodeTestCases(os.Getenv("TEST_CASES"))
	if err != nil {
		logger.Warn(ctx, "test payload rejected", zap.Error(err))
		return decodeErrorRecord(sub.SubmissionID, err)
	}

	ws, err := workspace.New(cfg.Judge.WorkRoot)
	if err != nil {
		return report.InternalErrorRecord(sub.SubmissionID, err.Error())
	}
	defer func() {
		if err := ws.Close(); err != nil {
			logger.Warn(ctx, "workspace cleanup failed", zap.Error(err))
		}
	}()

	eng, err := engine.NewEngine(cfg.Sandbox)
	if err != nil {
		return report.InternalErrorRecord(sub.SubmissionID, err.Error())
	}

	worker := sandbox.NewWorker(
		runner.NewRunner(eng),
		profile.NewRegistry(cfg.Languages),
		verdict.NewClassifier(verdict.CompareMode(cfg.Judge.CompareMode)),
		sandbox.Config{
			WorkDir:              ws.Root(),
			EarlyExit:            cfg.Judge.EarlyExit,
			CompileTimeLimitMs:   cfg.Judge.CompileTimeLimitMs,
			CompileMemoryLimitKB: cfg.Judge.CompileMemoryLimitKB,
		},
	)
	worker.SetStatusReporter(logStatusReporter{})

	res, err := worker.Execute(ctx, sandbox.JudgeRequest{Submission: sub, Tests: tests})
	if err != nil {
		logger.Error(ctx, "judge pipeline failed", zap.Error(err))
		return report.InternalErrorRecord(sub.SubmissionID, err.Error())
	}
	return report.FromResult(res)
}

// decodeErrorRecord maps any payload decode failure to a compilation_error
// outcome with zero timings and no tests attempted.
func decodeErrorRecord(submissionID string, err error) report.Record {
	return report.FromResult(result.SubmissionResult{
		SubmissionID: submissionID,
		Status:       result.StatusCompilationError,
		ErrorMessage: appErr.GetError(err).Error(),
		Tests:        []result.TestVerdict{},
	})
}

// logStatusReporter surfaces per-test progress in the structured log.
type logStatusReporter struct{}

func (logStatusReporter) ReportStatus(ctx context.Context, update sandbox.StatusUpdate) {
	logger.Debug(ctx, "test state",
		zap.String("state", string(update.State)),
		zap.Int("done", update.DoneTests),
		zap.Int("total", update.TotalTests))
}
