//go:build linux

package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"go.uber.org/zap"

	"gavel/internal/sandbox/result"
	"gavel/internal/sandbox/spec"
	appErr "gavel/pkg/errors"
	"gavel/pkg/utils/logger"
)

// pipeWaitGrace bounds how long Wait may linger on the child's output
// pipes after the process itself is gone. A descendant that re-parented
// out of the process group can keep the pipe write end open; without the
// bound it would hold the judge past the wall limit.
const pipeWaitGrace = time.Second

type linuxEngine struct {
	cfg   Config
	probe MemoryProbe
}

// NewEngine creates a Linux sandbox engine. Cgroup usability is checked
// once here: enforcement and the memory probe are enabled or disabled
// together, never half-on. The probe is reused for every execution.
func NewEngine(cfg Config) (Engine, error) {
	if cfg.MaxOutputBytes <= 0 {
		cfg.MaxOutputBytes = defaultMaxOutputBytes
	}
	if cfg.EnableCgroup && !cgroupUsable(cfg.CgroupRoot) {
		logger.Warn(context.Background(), "cgroup root unusable, disabling cgroup enforcement",
			zap.String("cgroup_root", cfg.CgroupRoot))
		cfg.EnableCgroup = false
	}
	eng := &linuxEngine{cfg: cfg, probe: selectProbe(cfg)}
	logger.Info(context.Background(), "sandbox engine ready",
		zap.String("memory_probe", eng.probe.Name()),
		zap.Bool("cgroup", cfg.EnableCgroup),
		zap.Bool("seccomp", cfg.EnableSeccomp),
		zap.String("helper", cfg.HelperPath))
	return eng, nil
}

func (e *linuxEngine) Run(ctx context.Context, runSpec spec.RunSpec) (result.ExecutionOutcome, error) {
	if err := validateRunSpec(runSpec); err != nil {
		return result.ExecutionOutcome{}, err
	}

	limits := runSpec.Limits
	if limits.MaxOutputBytes <= 0 {
		limits.MaxOutputBytes = e.cfg.MaxOutputBytes
	}

	cgroupPath := ""
	cgroupCleanup := func() {}
	if e.cfg.EnableCgroup {
		var err error
		cgroupPath, cgroupCleanup, err = createTaskCgroup(e.cfg.CgroupRoot, runSpec.SubmissionID, runSpec.TaskID)
		if err != nil {
			return result.ExecutionOutcome{}, appErr.ExecutorError(err, "create cgroup")
		}
		if err := applyCgroupLimits(cgroupPath, limits); err != nil {
			cgroupCleanup()
			return result.ExecutionOutcome{}, appErr.ExecutorError(err, "apply cgroup limits")
		}
	}
	defer cgroupCleanup()

	cmd, err := e.buildCommand(runSpec, limits)
	if err != nil {
		return result.ExecutionOutcome{}, err
	}

	stdout := newBoundedBuffer(limits.MaxOutputBytes)
	stderr := newBoundedBuffer(limits.MaxOutputBytes)
	cmd.Stdin = bytes.NewReader(runSpec.Stdin)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.Dir = runSpec.WorkDir
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid:   true,
		Pdeathsig: syscall.SIGKILL,
	}
	cmd.WaitDelay = pipeWaitGrace

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return result.ExecutionOutcome{}, appErr.ExecutorError(err, "spawn")
	}

	if e.cfg.EnableCgroup {
		if err := addProcessToCgroup(cgroupPath, cmd.Process.Pid); err != nil {
			logger.Warn(ctx, "add process to cgroup failed", zap.String("cgroup", cgroupPath), zap.Error(err))
		}
	}

	session := e.probe.Begin(cmd.Process.Pid, cgroupPath)

	var timedOut atomic.Bool
	done := make(chan struct{})
	go func() {
		var wallTimer <-chan time.Time
		if limits.WallTimeMs > 0 {
			wallTimer = time.After(time.Duration(limits.WallTimeMs) * time.Millisecond)
		}
		select {
		case <-ctx.Done():
			killTask(cgroupPath, cmd.Process.Pid)
		case <-wallTimer:
			timedOut.Store(true)
			killTask(cgroupPath, cmd.Process.Pid)
		case <-done:
		}
	}()

	waitErr := cmd.Wait()
	close(done)

	wallTimeMs := time.Since(start).Milliseconds()
	peakKB := session.Stop(cmd.ProcessState)

	outcome := result.ExecutionOutcome{
		Stdout:       stdout.Bytes(),
		Stderr:       stderr.Bytes(),
		ExitCode:     exitCode(cmd.ProcessState),
		Signal:       signalName(cmd.ProcessState),
		WallTimeMs:   wallTimeMs,
		CPUTimeMs:    cpuTimeMs(cmd.ProcessState),
		PeakMemoryKB: peakKB,
	}
	outcome.TerminatedBy = terminationKind(outcome, limits, timedOut.Load(), wasOomKilled(cgroupPath))

	if waitErr != nil && !errors.Is(waitErr, exec.ErrWaitDelay) && outcome.Signal == "" && outcome.ExitCode == 0 {
		// Wait failed for a reason other than the child's own exit or an
		// abandoned output pipe.
		return outcome, appErr.ExecutorError(waitErr, "wait")
	}
	return outcome, nil
}

// terminationKind classifies how the process ended. Timeout wins over the
// memory limit, which wins over a plain signal death; the verdict layer
// relies on this ordering.
func terminationKind(out result.ExecutionOutcome, limits spec.ResourceLimit, timedOut, oomKilled bool) result.TerminationKind {
	switch {
	case timedOut:
		return result.TerminatedByTimeout
	case oomKilled:
		return result.TerminatedByMemoryLimit
	case limits.MemoryKB > 0 && out.PeakMemoryKB > limits.MemoryKB:
		return result.TerminatedByMemoryLimit
	case out.Signal != "":
		return result.TerminatedBySignal
	default:
		return result.TerminatedNaturally
	}
}

func (e *linuxEngine) buildCommand(runSpec spec.RunSpec, limits spec.ResourceLimit) (*exec.Cmd, error) {
	if e.cfg.HelperPath == "" {
		cmd := exec.Command(runSpec.Cmd[0], runSpec.Cmd[1:]...)
		cmd.Env = runSpec.Env
		return cmd, nil
	}

	req := initRequest{
		Cmd:     runSpec.Cmd,
		WorkDir: runSpec.WorkDir,
		Env:     runSpec.Env,
		Limits:  limits,
	}
	if e.cfg.EnableSeccomp {
		req.SeccompProfile = e.cfg.SeccompProfile
	}
	encoded, err := json.Marshal(req)
	if err != nil {
		return nil, appErr.ExecutorError(err, "encode init request")
	}
	cmd := exec.Command(e.cfg.HelperPath)
	cmd.Env = append(os.Environ(), fmt.Sprintf("%s=%s", initSpecEnv, encoded))
	return cmd, nil
}

// killTask kills the whole task. cgroup.kill reaches descendants that
// left the process group; the group kill covers the no-cgroup case.
func killTask(cgroupPath string, pid int) {
	if cgroupPath != "" {
		_ = killCgroup(cgroupPath)
	}
	killProcessGroup(pid)
}

func killProcessGroup(pid int) {
	if pid <= 0 {
		return
	}
	_ = syscall.Kill(-pid, syscall.SIGKILL)
}

func exitCode(state *os.ProcessState) int {
	if state == nil {
		return -1
	}
	return state.ExitCode()
}

func signalName(state *os.ProcessState) string {
	if state == nil {
		return ""
	}
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return ws.Signal().String()
	}
	return ""
}

func cpuTimeMs(state *os.ProcessState) int64 {
	if state == nil {
		return 0
	}
	return (state.UserTime() + state.SystemTime()).Milliseconds()
}

func validateRunSpec(runSpec spec.RunSpec) error {
	if runSpec.SubmissionID == "" {
		return appErr.ValidationError("submission_id", "required")
	}
	if runSpec.TaskID == "" {
		return appErr.ValidationError("task_id", "required")
	}
	if runSpec.WorkDir == "" {
		return appErr.ValidationError("work_dir", "required")
	}
	if len(runSpec.Cmd) == 0 {
		return appErr.ValidationError("cmd", "required")
	}
	return nil
}

// boundedBuffer captures child output up to a fixed cap and discards the
// rest, so a write-happy program cannot exhaust the judge's memory.
type boundedBuffer struct {
	mu        sync.Mutex
	buf       bytes.Buffer
	max       int64
	truncated bool
}

func newBoundedBuffer(max int64) *boundedBuffer {
	return &boundedBuffer{max: max}
}

func (b *boundedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	remaining := b.max - int64(b.buf.Len())
	if remaining <= 0 {
		b.truncated = true
		return len(p), nil
	}
	if int64(len(p)) > remaining {
		b.truncated = true
		b.buf.Write(p[:remaining])
		return len(p), nil
	}
	b.buf.Write(p)
	return len(p), nil
}

func (b *boundedBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]byte, b.buf.Len())
	copy(out, b.buf.Bytes())
	return out
}

func (b *boundedBuffer) Truncated() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.truncated
}
