package engine

import "gavel/internal/sandbox/spec"

// initSpecEnv carries the encoded initRequest to the helper binary.
// Stdin stays free for test input, unlike a stdin-based handshake.
const initSpecEnv = "GAVEL_INIT_SPEC"

type initRequest struct {
	Cmd            []string           `json:"cmd"`
	WorkDir        string             `json:"work_dir"`
	Env            []string           `json:"env"`
	Limits         spec.ResourceLimit `json:"limits"`
	SeccompProfile string             `json:"seccomp_profile,omitempty"`
}
