//go:build !linux

package engine

import (
	"context"

	"gavel/internal/sandbox/result"
	"gavel/internal/sandbox/spec"
	appErr "gavel/pkg/errors"
)

type stubEngine struct{}

func NewEngine(cfg Config) (Engine, error) {
	return &stubEngine{}, nil
}

func (s *stubEngine) Run(ctx context.Context, runSpec spec.RunSpec) (result.ExecutionOutcome, error) {
	return result.ExecutionOutcome{}, appErr.New(appErr.SandboxUnsupported)
}
