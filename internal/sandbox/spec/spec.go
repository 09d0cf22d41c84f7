// Package spec defines the execution specification and resource limits.
package spec

// ResourceLimit describes hard limits enforced by the sandbox.
type ResourceLimit struct {
	CPUTimeMs      int64
	WallTimeMs     int64
	MemoryKB       int64
	StackKB        int64
	MaxOutputBytes int64
	PIDs           int64
}

// RunSpec is the unified execution specification for one sandboxed task.
// Stdin carries the test input directly; stdout and stderr are captured
// in memory, bounded by Limits.MaxOutputBytes.
type RunSpec struct {
	SubmissionID string
	TaskID       string
	WorkDir      string
	Cmd          []string
	Env          []string
	Stdin        []byte
	Limits       ResourceLimit
}
