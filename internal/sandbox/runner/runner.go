// Package runner implements compile and per-test execution workflows on
// top of the sandbox engine.
package runner

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gavel/internal/sandbox/engine"
	"gavel/internal/sandbox/profile"
	"gavel/internal/sandbox/result"
	"gavel/internal/sandbox/spec"
	appErr "gavel/pkg/errors"
)

const compileTaskID = "compile"

// CompileRequest describes one compilation.
type CompileRequest struct {
	SubmissionID string
	Language     profile.LanguageSpec
	WorkDir      string
	Source       []byte
	Limits       spec.ResourceLimit
}

// RunRequest describes one test case execution.
type RunRequest struct {
	SubmissionID string
	TestID       int
	Language     profile.LanguageSpec
	WorkDir      string
	Input        []byte
	Limits       spec.ResourceLimit
}

// Runner compiles a submission once and executes it per test case.
type Runner interface {
	Compile(ctx context.Context, req CompileRequest) (result.CompileResult, error)
	Run(ctx context.Context, req RunRequest) (result.ExecutionOutcome, error)
}

// DefaultRunner is the engine-backed Runner implementation.
type DefaultRunner struct {
	eng engine.Engine
}

// NewRunner creates a runner backed by the sandbox engine.
func NewRunner(eng engine.Engine) *DefaultRunner {
	return &DefaultRunner{eng: eng}
}

// Compile writes the scaffolded source into the work directory and invokes
// the language toolchain. Compiler stdout and stderr are combined into the
// diagnostics text. The returned error is an executor fault; a failed
// compilation is reported through CompileResult.OK instead.
func (r *DefaultRunner) Compile(ctx context.Context, req CompileRequest) (result.CompileResult, error) {
	if err := validateCompileRequest(req); err != nil {
		return result.CompileResult{}, err
	}
	if err := writeSourceFile(req.WorkDir, req.Language, req.Source); err != nil {
		return result.CompileResult{}, err
	}
	if !req.Language.CompileEnabled {
		return result.CompileResult{OK: true}, nil
	}

	cmd, err := req.Language.CompileCommand(req.WorkDir)
	if err != nil {
		return result.CompileResult{}, err
	}

	runSpec := spec.RunSpec{
		SubmissionID: req.SubmissionID,
		TaskID:       compileTaskID,
		WorkDir:      req.WorkDir,
		Cmd:          cmd,
		Env:          req.Language.Env,
		Limits:       req.Limits,
	}

	start := time.Now()
	outcome, runErr := r.eng.Run(ctx, runSpec)
	elapsed := time.Since(start).Milliseconds()
	if runErr != nil {
		return result.CompileResult{TimeMs: elapsed}, appErr.Wrapf(runErr, appErr.CompilerUnavailable, "invoke compiler failed")
	}

	compileRes := result.CompileResult{
		OK:          outcome.TerminatedBy == result.TerminatedNaturally && outcome.ExitCode == 0,
		ExitCode:    outcome.ExitCode,
		TimeMs:      elapsed,
		Diagnostics: combineDiagnostics(outcome),
	}
	return compileRes, nil
}

// Run executes the compiled artifact against one test case input.
func (r *DefaultRunner) Run(ctx context.Context, req RunRequest) (result.ExecutionOutcome, error) {
	if err := validateRunRequest(req); err != nil {
		return result.ExecutionOutcome{}, err
	}
	cmd, err := req.Language.RunCommand(req.WorkDir)
	if err != nil {
		return result.ExecutionOutcome{}, err
	}
	runSpec := spec.RunSpec{
		SubmissionID: req.SubmissionID,
		TaskID:       "test-" + strconv.Itoa(req.TestID),
		WorkDir:      req.WorkDir,
		Cmd:          cmd,
		Env:          req.Language.Env,
		Stdin:        req.Input,
		Limits:       req.Limits,
	}
	return r.eng.Run(ctx, runSpec)
}

func combineDiagnostics(outcome result.ExecutionOutcome) string {
	var sb strings.Builder
	sb.Write(outcome.Stdout)
	if len(outcome.Stdout) > 0 && len(outcome.Stderr) > 0 {
		sb.WriteByte('\n')
	}
	sb.Write(outcome.Stderr)
	return sb.String()
}

func writeSourceFile(workDir string, lang profile.LanguageSpec, source []byte) error {
	if lang.SourceFile == "" {
		return appErr.ValidationError("source_file", "required")
	}
	target := filepath.Join(workDir, lang.SourceFile)
	if err := os.WriteFile(target, lang.WrapSource(source), 0644); err != nil {
		return appErr.Wrapf(err, appErr.WorkspaceFailed, "write source failed")
	}
	return nil
}

func validateCompileRequest(req CompileRequest) error {
	if req.SubmissionID == "" {
		return appErr.ValidationError("submission_id", "required")
	}
	if req.WorkDir == "" {
		return appErr.ValidationError("work_dir", "required")
	}
	if req.Language.ID == "" {
		return appErr.ValidationError("language_id", "required")
	}
	if len(req.Source) == 0 {
		return appErr.ValidationError("source", "required")
	}
	return nil
}

func validateRunRequest(req RunRequest) error {
	if req.SubmissionID == "" {
		return appErr.ValidationError("submission_id", "required")
	}
	if req.TestID < 0 {
		return appErr.ValidationError("test_id", "must not be negative")
	}
	if req.WorkDir == "" {
		return appErr.ValidationError("work_dir", "required")
	}
	if req.Language.ID == "" {
		return appErr.ValidationError("language_id", "required")
	}
	return nil
}
