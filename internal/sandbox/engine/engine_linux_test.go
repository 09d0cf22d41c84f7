//go:build linux

package engine

import (
	"bytes"
	"context"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"gavel/internal/sandbox/result"
	"gavel/internal/sandbox/spec"
	appErr "gavel/pkg/errors"
)

func requireTool(t *testing.T, name string) {
	t.Helper()
	if _, err := exec.LookPath(name); err != nil {
		t.Skipf("%s not available: %v", name, err)
	}
}

func newTestEngine(t *testing.T, cfg Config) Engine {
	t.Helper()
	eng, err := NewEngine(cfg)
	if err != nil {
		t.Fatalf("new engine failed: %v", err)
	}
	return eng
}

func runSpecFor(t *testing.T, cmd ...string) spec.RunSpec {
	t.Helper()
	return spec.RunSpec{
		SubmissionID: "sub-1",
		TaskID:       "test-0",
		WorkDir:      t.TempDir(),
		Cmd:          cmd,
	}
}

func TestRunCapturesStdinRoundTrip(t *testing.T) {
	requireTool(t, "cat")
	eng := newTestEngine(t, Config{})

	s := runSpecFor(t, "cat")
	s.Stdin = []byte("1 2 3\nalpha beta\n")
	s.Limits = spec.ResourceLimit{WallTimeMs: 5000}

	outcome, err := eng.Run(context.Background(), s)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if outcome.TerminatedBy != result.TerminatedNaturally {
		t.Fatalf("terminated by %s, want natural", outcome.TerminatedBy)
	}
	if outcome.ExitCode != 0 {
		t.Fatalf("exit code %d, want 0", outcome.ExitCode)
	}
	if !bytes.Equal(outcome.Stdout, s.Stdin) {
		t.Fatalf("stdout %q, want %q", outcome.Stdout, s.Stdin)
	}
}

func TestRunNonzeroExit(t *testing.T) {
	requireTool(t, "sh")
	eng := newTestEngine(t, Config{})

	s := runSpecFor(t, "sh", "-c", "exit 3")
	s.Limits = spec.ResourceLimit{WallTimeMs: 5000}

	outcome, err := eng.Run(context.Background(), s)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if outcome.TerminatedBy != result.TerminatedNaturally {
		t.Fatalf("terminated by %s, want natural", outcome.TerminatedBy)
	}
	if outcome.ExitCode != 3 {
		t.Fatalf("exit code %d, want 3", outcome.ExitCode)
	}
}

func TestRunWallTimeout(t *testing.T) {
	requireTool(t, "sleep")
	eng := newTestEngine(t, Config{})

	s := runSpecFor(t, "sleep", "5")
	s.Limits = spec.ResourceLimit{WallTimeMs: 200}

	start := time.Now()
	outcome, err := eng.Run(context.Background(), s)
	elapsed := time.Since(start)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if outcome.TerminatedBy != result.TerminatedByTimeout {
		t.Fatalf("terminated by %s, want timeout", outcome.TerminatedBy)
	}
	if elapsed > 3*time.Second {
		t.Fatalf("run held open %v past a 200ms wall limit", elapsed)
	}
}

func TestRunTimeoutWithEscapedDescendant(t *testing.T) {
	requireTool(t, "sh")
	requireTool(t, "setsid")
	eng := newTestEngine(t, Config{})

	// The setsid child leaves the process group and keeps the stdout
	// pipe open; Run must still return shortly after the wall limit.
	s := runSpecFor(t, "sh", "-c", "setsid sleep 30 & sleep 100")
	s.Limits = spec.ResourceLimit{WallTimeMs: 200}

	start := time.Now()
	outcome, err := eng.Run(context.Background(), s)
	elapsed := time.Since(start)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if outcome.TerminatedBy != result.TerminatedByTimeout {
		t.Fatalf("terminated by %s, want timeout", outcome.TerminatedBy)
	}
	if elapsed > 5*time.Second {
		t.Fatalf("escaped descendant held the run open %v", elapsed)
	}
}

func TestRunContextCancel(t *testing.T) {
	requireTool(t, "sleep")
	eng := newTestEngine(t, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	s := runSpecFor(t, "sleep", "30")
	start := time.Now()
	if _, err := eng.Run(ctx, s); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Fatalf("cancel did not stop the run, took %v", elapsed)
	}
}

func TestNewEngineDisablesUnusableCgroup(t *testing.T) {
	requireTool(t, "sh")
	// A plain directory is not a cgroupfs: enforcement must switch off
	// instead of faulting every test on cgroup file writes.
	eng := newTestEngine(t, Config{
		EnableCgroup: true,
		CgroupRoot:   filepath.Join(t.TempDir(), "cg"),
	})

	s := runSpecFor(t, "sh", "-c", "echo ok")
	s.Limits = spec.ResourceLimit{WallTimeMs: 5000, MemoryKB: 262144}

	outcome, err := eng.Run(context.Background(), s)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if outcome.TerminatedBy != result.TerminatedNaturally {
		t.Fatalf("terminated by %s, want natural", outcome.TerminatedBy)
	}
	if string(outcome.Stdout) != "ok\n" {
		t.Fatalf("stdout %q", outcome.Stdout)
	}
}

func TestBoundedBufferUnderCap(t *testing.T) {
	buf := newBoundedBuffer(16)
	if _, err := buf.Write([]byte("hello")); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if got := buf.Bytes(); !bytes.Equal(got, []byte("hello")) {
		t.Fatalf("got %q", got)
	}
	if buf.Truncated() {
		t.Fatal("must not truncate under the cap")
	}
}

func TestBoundedBufferTruncates(t *testing.T) {
	buf := newBoundedBuffer(4)
	n, err := buf.Write([]byte("abcdef"))
	if err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if n != 6 {
		t.Fatalf("write must report the full length, got %d", n)
	}
	if got := buf.Bytes(); !bytes.Equal(got, []byte("abcd")) {
		t.Fatalf("got %q", got)
	}
	if !buf.Truncated() {
		t.Fatal("truncation flag not set")
	}

	// Writes past the cap are swallowed without error.
	if _, err := buf.Write([]byte("more")); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if got := buf.Bytes(); !bytes.Equal(got, []byte("abcd")) {
		t.Fatalf("got %q", got)
	}
}

func TestBoundedBufferBytesIsACopy(t *testing.T) {
	buf := newBoundedBuffer(8)
	buf.Write([]byte("data"))
	out := buf.Bytes()
	out[0] = 'X'
	if got := buf.Bytes(); !bytes.Equal(got, []byte("data")) {
		t.Fatalf("Bytes must return a copy, got %q", got)
	}
}

func TestValidateRunSpec(t *testing.T) {
	valid := spec.RunSpec{
		SubmissionID: "sub-1",
		TaskID:       "test-0",
		WorkDir:      "/tmp",
		Cmd:          []string{"true"},
	}
	if err := validateRunSpec(valid); err != nil {
		t.Fatalf("valid spec rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*spec.RunSpec)
		field  string
	}{
		{"missing submission id", func(s *spec.RunSpec) { s.SubmissionID = "" }, "submission_id"},
		{"missing task id", func(s *spec.RunSpec) { s.TaskID = "" }, "task_id"},
		{"missing work dir", func(s *spec.RunSpec) { s.WorkDir = "" }, "work_dir"},
		{"missing cmd", func(s *spec.RunSpec) { s.Cmd = nil }, "cmd"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := valid
			tc.mutate(&s)
			err := validateRunSpec(s)
			if !appErr.Is(err, appErr.ValidationFailed) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if got := appErr.GetError(err).Details["field"]; got != tc.field {
				t.Fatalf("error must name the field %q, got %v", tc.field, got)
			}
		})
	}
}

func TestExitCodeNilState(t *testing.T) {
	if got := exitCode(nil); got != -1 {
		t.Fatalf("nil state must map to -1, got %d", got)
	}
	if got := signalName(nil); got != "" {
		t.Fatalf("nil state must have no signal, got %q", got)
	}
	if got := cpuTimeMs(nil); got != 0 {
		t.Fatalf("nil state must have zero cpu time, got %d", got)
	}
}
