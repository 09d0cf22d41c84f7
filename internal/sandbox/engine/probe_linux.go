//go:build linux

package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// MemoryProbe measures peak memory of a sandboxed process. One probe
// implementation is selected when the engine is constructed and used for
// every test of the run; mixing sources within a run would break
// comparability between tests.
type MemoryProbe interface {
	Name() string
	Begin(pid int, cgroupPath string) ProbeSession
}

// ProbeSession observes one process execution. Stop must be called after
// the process has been waited on; it returns the peak usage in KB.
type ProbeSession interface {
	Stop(state *os.ProcessState) int64
}

// selectProbe trusts cfg.EnableCgroup: NewEngine has already cleared the
// flag when the cgroup root is not usable.
func selectProbe(cfg Config) MemoryProbe {
	if cfg.EnableCgroup {
		return cgroupProbe{}
	}
	interval := cfg.ProbeIntervalMs
	if interval <= 0 {
		interval = defaultProbeIntervalMs
	}
	return rssProbe{interval: time.Duration(interval) * time.Millisecond}
}

func cgroupUsable(root string) bool {
	if root == "" {
		return false
	}
	probeDir := filepath.Join(root, fmt.Sprintf("probe-%d", os.Getpid()))
	if err := os.MkdirAll(probeDir, 0750); err != nil {
		return false
	}
	defer os.RemoveAll(probeDir)
	_, err := os.ReadFile(filepath.Join(probeDir, "memory.peak"))
	return err == nil
}

// cgroupProbe reads memory.peak from the per-task cgroup.
type cgroupProbe struct{}

func (cgroupProbe) Name() string { return "cgroup" }

func (cgroupProbe) Begin(pid int, cgroupPath string) ProbeSession {
	return &cgroupSession{cgroupPath: cgroupPath}
}

type cgroupSession struct {
	cgroupPath string
}

func (s *cgroupSession) Stop(state *os.ProcessState) int64 {
	if s.cgroupPath == "" {
		return 0
	}
	if val, err := readCgroupInt(s.cgroupPath, "memory.peak"); err == nil && val > 0 {
		return val / 1024
	}
	return 0
}

// rssProbe samples VmHWM from /proc while the process runs and folds in
// the rusage high-water mark once it has exited.
type rssProbe struct {
	interval time.Duration
}

func (rssProbe) Name() string { return "rss" }

func (p rssProbe) Begin(pid int, cgroupPath string) ProbeSession {
	s := &rssSession{pid: pid, done: make(chan struct{}), finished: make(chan struct{})}
	go s.sample(p.interval)
	return s
}

type rssSession struct {
	pid      int
	peakKB   int64
	done     chan struct{}
	finished chan struct{}
}

func (s *rssSession) sample(interval time.Duration) {
	defer close(s.finished)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			if kb, ok := readVmHWM(s.pid); ok && kb > s.peakKB {
				s.peakKB = kb
			}
		}
	}
}

func (s *rssSession) Stop(state *os.ProcessState) int64 {
	close(s.done)
	<-s.finished
	peak := s.peakKB
	if state != nil {
		if usage, ok := state.SysUsage().(*syscall.Rusage); ok && usage.Maxrss > peak {
			peak = usage.Maxrss
		}
	}
	return peak
}

func readVmHWM(pid int) (int64, bool) {
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/status", pid))
	if err != nil {
		return 0, false
	}
	for _, line := range strings.Split(string(data), "\n") {
		if !strings.HasPrefix(line, "VmHWM:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return 0, false
		}
		kb, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return 0, false
		}
		return kb, true
	}
	return 0, false
}
